package cli

import (
	"context"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"go.viam.com/depthmesh/config"
	"go.viam.com/depthmesh/depth"
	"go.viam.com/depthmesh/logging"
	"go.viam.com/depthmesh/pipeline"
	"go.viam.com/depthmesh/rimage"
	"go.viam.com/depthmesh/services/mlmodel"
	"go.viam.com/depthmesh/services/mlmodel/fake"
)

// runner holds what every command needs: config, logger and a generator
// sharing one lazily loaded model.
type runner struct {
	c         *cli.Context
	conf      *config.Config
	logger    logging.Logger
	estimator *depth.Estimator
	gen       *pipeline.Generator
}

// loadConfig reads the config file if one was given and applies flag
// overrides on top.
func loadConfig(c *cli.Context) (*config.Config, error) {
	conf := config.Default()
	if path := c.String(configFlag); path != "" {
		var err error
		if conf, err = config.Read(path); err != nil {
			return nil, err
		}
	}
	if url := c.String(modelURLFlag); url != "" {
		conf.Model.Type = config.ModelTypeRemote
		conf.Model.URL = url
	}
	if c.Bool(fakeModelFlag) {
		conf.Model.Type = config.ModelTypeFake
	}
	if c.Bool(debugFlag) {
		conf.LogLevel = logging.DEBUG.String()
	}
	if err := conf.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	return conf, nil
}

func modelLoader(conf *config.Config, logger logging.Logger) depth.Loader {
	return func(ctx context.Context) (mlmodel.Service, error) {
		switch conf.Model.Type {
		case config.ModelTypeFake:
			logger.Debug("using fake depth model")
			return fake.NewModel(), nil
		default:
			logger.Debugw("using remote depth model", "url", conf.Model.URL)
			return mlmodel.NewClientFromURL(conf.Model.URL, conf.Model.TimeoutDuration(), logger)
		}
	}
}

func newRunner(c *cli.Context) (*runner, error) {
	conf, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	logger := logging.NewLoggerAtLevel("depthmesh", conf.Level())
	logging.ReplaceGlobal(logger)

	opts := rimage.PreprocessOptions{
		MaxHeight: conf.Preprocess.MaxHeight,
		Stride:    conf.Preprocess.Stride,
		Border:    conf.Preprocess.Border,
	}
	estimator := depth.NewEstimator(modelLoader(conf, logger.Sublogger("model")), opts, conf.Model.DepthScale, logger.Sublogger("depth"))
	return &runner{
		c:         c,
		conf:      conf,
		logger:    logger,
		estimator: estimator,
		gen:       pipeline.NewGenerator(conf, estimator, logger.Sublogger("pipeline")),
	}, nil
}

func (r *runner) progress(stages ...pipeline.Stage) *ProgressManager {
	return NewProgressManager(r.c.App.ErrWriter, stages, WithProgressOutput(!r.c.Bool(noProgressFlag)))
}

func (r *runner) close() error {
	err := r.estimator.Close(context.Background())
	//nolint:errcheck
	r.logger.Sync()
	return err
}

var meshStages = []pipeline.Stage{
	pipeline.StageRead, pipeline.StageEstimate, pipeline.StagePointCloud, pipeline.StageHull,
}

var depthStages = []pipeline.Stage{pipeline.StageRead, pipeline.StageEstimate}

var cloudStages = []pipeline.Stage{pipeline.StageRead, pipeline.StageHull}
