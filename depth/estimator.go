// Package depth turns images into depth maps with a pretrained model.
package depth

import (
	"context"
	"image"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/depthmesh/logging"
	"go.viam.com/depthmesh/ml"
	"go.viam.com/depthmesh/rimage"
	"go.viam.com/depthmesh/services/mlmodel"
)

// DefaultScale brings the model's raw output into a usable numeric range.
const DefaultScale = 1000.0

var (
	// ErrShapeMismatch is returned when the model's depth output does not
	// match the spatial size of its input.
	ErrShapeMismatch = errors.New("depth output does not match input size")
	// ErrClosed is returned when estimating after Close.
	ErrClosed = errors.New("depth estimator is closed")
	// ErrIncompatibleModel is returned when a model's metadata lacks the
	// image input or depth output tensor.
	ErrIncompatibleModel = errors.New("model is not a depth estimator")
)

// InferenceError wraps any failure of the model itself: loading it, running
// it, or making sense of its output.
type InferenceError struct {
	Err error
}

func (e *InferenceError) Error() string {
	return "depth inference failed: " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *InferenceError) Unwrap() error {
	return e.Err
}

// Loader opens the model. An Estimator calls it until it first succeeds.
type Loader func(ctx context.Context) (mlmodel.Service, error)

// Estimation is the result of one Estimate call.
type Estimation struct {
	// Resized is the image as fed to the model.
	Resized *image.NRGBA
	// Image is Resized with the border cropped, aligned with Depth.
	Image *image.NRGBA
	// Depth is the scaled, cropped depth map.
	Depth *rimage.DepthMap
	// Took is how long inference took.
	Took time.Duration
}

// Estimator holds the process wide model handle. The model is loaded lazily
// on first use, shared read-only across estimates, and released by Close.
type Estimator struct {
	load   Loader
	opts   rimage.PreprocessOptions
	scale  float64
	logger logging.Logger

	mu     sync.Mutex
	model  mlmodel.Service
	closed bool
}

// NewEstimator returns an Estimator that fits images per opts and multiplies
// raw model output by scale. A nil logger logs through the global logger.
func NewEstimator(load Loader, opts rimage.PreprocessOptions, scale float64, logger logging.Logger) *Estimator {
	if logger == nil {
		logger = logging.Global().Sublogger("depth")
	}
	return &Estimator{
		load:   load,
		opts:   opts,
		scale:  scale,
		logger: logger,
	}
}

// Load opens the model now rather than on the first estimate.
func (e *Estimator) Load(ctx context.Context) error {
	_, err := e.getModel(ctx)
	return err
}

func (e *Estimator) getModel(ctx context.Context) (mlmodel.Service, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrClosed
	}
	if e.model != nil {
		return e.model, nil
	}
	start := time.Now()
	model, err := e.load(ctx)
	if err != nil {
		return nil, &InferenceError{Err: errors.Wrap(err, "cannot load model")}
	}
	md, err := checkMetadata(ctx, model)
	if err != nil {
		return nil, &InferenceError{Err: multierr.Combine(err, model.Close(ctx))}
	}
	e.model = model
	e.logger.Debugw("depth model loaded", "name", md.ModelName, "type", md.ModelType, "took", time.Since(start))
	return model, nil
}

// checkMetadata makes sure model takes an image and returns depth under the
// tensor names Estimate uses. A model that lists no tensors is trusted.
func checkMetadata(ctx context.Context, model mlmodel.Service) (mlmodel.MLMetadata, error) {
	md, err := model.Metadata(ctx)
	if err != nil {
		return md, errors.Wrap(err, "cannot get model metadata")
	}
	if len(md.Inputs) > 0 && !hasTensor(md.Inputs, ml.InputTensorName) {
		return md, errors.Wrapf(ErrIncompatibleModel, "no input tensor named %q", ml.InputTensorName)
	}
	if len(md.Outputs) > 1 && !hasTensor(md.Outputs, ml.DepthTensorName) {
		return md, errors.Wrapf(ErrIncompatibleModel, "no output tensor named %q among %d outputs",
			ml.DepthTensorName, len(md.Outputs))
	}
	return md, nil
}

func hasTensor(infos []mlmodel.TensorInfo, name string) bool {
	for _, info := range infos {
		if info.Name == name {
			return true
		}
	}
	return false
}

// Estimate resizes img to the model's stride, runs the model, scales the
// output and crops the border from both the image and the depth map.
func (e *Estimator) Estimate(ctx context.Context, img image.Image) (*Estimation, error) {
	resized, err := rimage.ResizeForModel(img, e.opts)
	if err != nil {
		return nil, err
	}
	model, err := e.getModel(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	outputs, err := model.Infer(ctx, ml.Tensors{ml.InputTensorName: ml.ImageToTensor(resized)})
	if err != nil {
		return nil, &InferenceError{Err: err}
	}
	took := time.Since(start)

	raw, err := ml.DepthTensor(outputs)
	if err != nil {
		return nil, &InferenceError{Err: err}
	}
	dm, err := ml.DepthFromTensor(raw, e.scale)
	if err != nil {
		return nil, &InferenceError{Err: err}
	}
	if dm.Width() != resized.Bounds().Dx() || dm.Height() != resized.Bounds().Dy() {
		return nil, &InferenceError{Err: errors.Wrapf(ErrShapeMismatch, "input %dx%d, output %dx%d",
			resized.Bounds().Dx(), resized.Bounds().Dy(), dm.Width(), dm.Height())}
	}

	croppedDepth, err := dm.CropBorder(e.opts.Border)
	if err != nil {
		return nil, err
	}
	croppedImage, err := rimage.CropBorder(resized, e.opts.Border)
	if err != nil {
		return nil, err
	}
	e.logger.Debugw("depth estimated",
		"input", resized.Bounds().Size(), "depth", croppedDepth.Bounds().Size(), "took", took)
	return &Estimation{Resized: resized, Image: croppedImage, Depth: croppedDepth, Took: took}, nil
}

// Close releases the model. Estimates after Close fail with ErrClosed.
func (e *Estimator) Close(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	if e.model == nil {
		return nil
	}
	err := e.model.Close(ctx)
	e.model = nil
	return err
}
