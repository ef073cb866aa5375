// Package pipeline runs an image through depth estimation, point cloud
// conversion and convex hull meshing, and exports the results.
package pipeline

import (
	"context"
	"image"
	"time"

	"github.com/montanaflynn/stats"
	"golang.org/x/sync/semaphore"

	"go.viam.com/depthmesh/config"
	"go.viam.com/depthmesh/depth"
	"go.viam.com/depthmesh/logging"
	"go.viam.com/depthmesh/pointcloud"
	"go.viam.com/depthmesh/rimage"
	"go.viam.com/depthmesh/spatialmath"
)

// Stage names a step of a run.
type Stage string

// The stages of a run, in order.
const (
	StageRead       Stage = "read"
	StageEstimate   Stage = "estimate"
	StagePointCloud Stage = "point cloud"
	StageHull       Stage = "hull"
	StageExport     Stage = "export"
)

// Observer is told as each stage of a run starts and finishes.
type Observer interface {
	StageStarted(stage Stage)
	StageFinished(stage Stage, took time.Duration, err error)
}

// StageTiming records how long a stage took.
type StageTiming struct {
	Stage Stage
	Took  time.Duration
}

// DepthStats summarizes a depth map.
type DepthStats struct {
	Min, Max, Mean, Median, StdDev float64
}

// Result is everything a run produced.
type Result struct {
	SourcePath string
	// Image is the resized image with the border cropped, aligned with Depth.
	// Image, Depth, Normalized and Stats are unset for point cloud runs.
	Image *image.NRGBA
	// Depth is the scaled depth map; Normalized is Depth over its maximum.
	Depth      *rimage.DepthMap
	Normalized *rimage.DepthMap
	Stats      DepthStats

	// Cloud, Hull and Mesh are nil for depth-only runs.
	Cloud *pointcloud.PointCloud
	Hull  *spatialmath.ConvexHull
	Mesh  *spatialmath.Mesh

	Timings []StageTiming
}

// Took returns the total time of all stages.
func (r *Result) Took() time.Duration {
	var total time.Duration
	for _, t := range r.Timings {
		total += t.Took
	}
	return total
}

// Generator turns images into meshes. It allows one run at a time.
type Generator struct {
	estimator *depth.Estimator
	logger    logging.Logger
	queueRuns bool
	running   *semaphore.Weighted
}

// NewGenerator returns a Generator estimating depth with estimator. A nil
// logger logs through the global logger.
func NewGenerator(cfg *config.Config, estimator *depth.Estimator, logger logging.Logger) *Generator {
	if logger == nil {
		logger = logging.Global().Sublogger("pipeline")
	}
	return &Generator{
		estimator: estimator,
		logger:    logger,
		queueRuns: cfg.QueueRuns,
		running:   semaphore.NewWeighted(1),
	}
}

func (g *Generator) acquire(ctx context.Context) error {
	if g.queueRuns {
		if err := g.running.Acquire(ctx, 1); err != nil {
			return &Error{Kind: ErrCanceled, Err: err}
		}
		return nil
	}
	if !g.running.TryAcquire(1) {
		return &Error{Kind: ErrRunInProgress}
	}
	return nil
}

type run struct {
	ctx      context.Context
	logger   logging.Logger
	observer Observer
	result   *Result
}

func (r *run) stage(stage Stage, fn func() error) error {
	if err := r.ctx.Err(); err != nil {
		return &Error{Kind: ErrCanceled, Stage: stage, Err: err}
	}
	if r.observer != nil {
		r.observer.StageStarted(stage)
	}
	start := time.Now()
	err := fn()
	took := time.Since(start)
	if err != nil {
		err = classify(stage, err)
	}
	if r.observer != nil {
		r.observer.StageFinished(stage, took, err)
	}
	if err != nil {
		return err
	}
	r.result.Timings = append(r.result.Timings, StageTiming{Stage: stage, Took: took})
	r.logger.Debugw("stage done", "stage", stage, "took", took)
	return nil
}

// Run reads the image at imagePath and builds its mesh.
func (g *Generator) Run(ctx context.Context, imagePath string) (*Result, error) {
	return g.RunWithObserver(ctx, imagePath, nil)
}

// RunWithObserver is Run reporting stage progress to observer.
func (g *Generator) RunWithObserver(ctx context.Context, imagePath string, observer Observer) (*Result, error) {
	return g.execute(ctx, imagePath, observer, true)
}

// RunDepth reads the image at imagePath and estimates its depth, without
// building a point cloud or mesh.
func (g *Generator) RunDepth(ctx context.Context, imagePath string, observer Observer) (*Result, error) {
	return g.execute(ctx, imagePath, observer, false)
}

func (g *Generator) execute(ctx context.Context, imagePath string, observer Observer, mesh bool) (*Result, error) {
	if err := g.acquire(ctx); err != nil {
		return nil, err
	}
	defer g.running.Release(1)

	r := &run{ctx: ctx, logger: g.logger, observer: observer, result: &Result{SourcePath: imagePath}}
	res := r.result

	var img image.Image
	if err := r.stage(StageRead, func() error {
		var err error
		img, err = rimage.ReadImageFromFile(imagePath)
		return err
	}); err != nil {
		return nil, err
	}

	if err := r.stage(StageEstimate, func() error {
		est, err := g.estimator.Estimate(ctx, img)
		if err != nil {
			return err
		}
		res.Image, res.Depth = est.Image, est.Depth
		if res.Normalized, err = est.Depth.Normalized(); err != nil {
			return err
		}
		res.Stats, err = summarize(est.Depth)
		return err
	}); err != nil {
		return nil, err
	}

	if mesh {
		if err := r.stage(StagePointCloud, func() error {
			res.Cloud = pointcloud.NewFromNormalizedDepthMap(res.Normalized)
			return nil
		}); err != nil {
			return nil, err
		}
		if err := r.hullStage(); err != nil {
			return nil, err
		}
	}
	g.logFinished(res)
	return res, nil
}

// RunPointCloud reads a point cloud saved as PCD and builds its mesh. The
// result has no image or depth map.
func (g *Generator) RunPointCloud(ctx context.Context, pcdPath string, observer Observer) (*Result, error) {
	if err := g.acquire(ctx); err != nil {
		return nil, err
	}
	defer g.running.Release(1)

	r := &run{ctx: ctx, logger: g.logger, observer: observer, result: &Result{SourcePath: pcdPath}}
	if err := r.stage(StageRead, func() error {
		var err error
		r.result.Cloud, err = pointcloud.NewFromPCDFile(pcdPath)
		return err
	}); err != nil {
		return nil, err
	}
	if err := r.hullStage(); err != nil {
		return nil, err
	}
	g.logFinished(r.result)
	return r.result, nil
}

func (r *run) hullStage() error {
	return r.stage(StageHull, func() error {
		hull, err := spatialmath.NewConvexHull(r.result.Cloud.Points())
		if err != nil {
			return err
		}
		r.result.Hull = hull
		r.result.Mesh = spatialmath.NewMeshFromHull(hull)
		return nil
	})
}

func (g *Generator) logFinished(res *Result) {
	fields := []interface{}{"source", res.SourcePath, "took", res.Took()}
	if res.Depth != nil {
		fields = append(fields,
			"size", res.Depth.Bounds().Size(),
			"depth_min", res.Stats.Min,
			"depth_max", res.Stats.Max)
	}
	if res.Mesh != nil {
		meta := res.Cloud.MetaData()
		fields = append(fields,
			"points", res.Cloud.Size(),
			"z_min", meta.MinZ,
			"z_max", meta.MaxZ,
			"vertices", len(res.Mesh.Vertices()),
			"faces", len(res.Mesh.Faces()),
			"volume", res.Hull.Volume(),
			"area", res.Mesh.Area())
	}
	g.logger.Infow("run finished", fields...)
}

func summarize(dm *rimage.DepthMap) (DepthStats, error) {
	data := stats.Float64Data(dm.Data())
	var s DepthStats
	var err error
	if s.Min, err = data.Min(); err != nil {
		return s, err
	}
	if s.Max, err = data.Max(); err != nil {
		return s, err
	}
	if s.Mean, err = data.Mean(); err != nil {
		return s, err
	}
	if s.Median, err = data.Median(); err != nil {
		return s, err
	}
	s.StdDev, err = data.StandardDeviation()
	return s, err
}
