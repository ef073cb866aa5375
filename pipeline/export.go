package pipeline

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/depthmesh/pointcloud"
	"go.viam.com/depthmesh/presentation"
)

// Outputs names the files Export writes. Empty paths are skipped.
type Outputs struct {
	OBJ     string
	Figure  string
	Plot    string
	Preview string
	PCD     string

	// PCDBinary writes the point cloud as binary rather than ascii PCD.
	PCDBinary      bool
	PreviewOptions presentation.PreviewOptions
}

// Export writes every requested output of res. A failing output does not stop
// the others; all failures are combined in the returned error. It returns
// the paths written, in the order tried.
func (g *Generator) Export(ctx context.Context, res *Result, out Outputs) ([]string, error) {
	type sink struct {
		path  string
		needs string
		write func(path string) (string, error)
	}
	sinks := []sink{
		{out.Figure, "depth map", func(path string) (string, error) {
			return path, presentation.SaveDepthFigure(path, res.Image, res.Depth)
		}},
		{out.Plot, "depth map", func(path string) (string, error) {
			return path, presentation.SaveDepthPlot(path, res.Depth)
		}},
		{out.PCD, "point cloud", func(path string) (string, error) {
			pcdType := pointcloud.PCDAscii
			if out.PCDBinary {
				pcdType = pointcloud.PCDBinary
			}
			return path, presentation.SavePCD(path, res.Cloud, pcdType)
		}},
		{out.Preview, "mesh", func(path string) (string, error) {
			return path, presentation.SaveMeshPreview(path, res.Mesh, out.PreviewOptions)
		}},
		{out.OBJ, "mesh", func(path string) (string, error) {
			return presentation.SaveOBJ(path, res.Mesh)
		}},
	}

	var written []string
	var combined error
	for _, s := range sinks {
		if s.path == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return written, multierr.Append(combined, &Error{Kind: ErrCanceled, Stage: StageExport, Err: err})
		}
		if !res.has(s.needs) {
			combined = multierr.Append(combined, &Error{
				Kind: ErrIO, Stage: StageExport,
				Err: errors.Errorf("cannot write %s: run has no %s", s.path, s.needs),
			})
			continue
		}
		path, err := s.write(s.path)
		if err != nil {
			g.logger.Warnw("export failed", "path", path, "error", err)
			combined = multierr.Append(combined, classify(StageExport, err))
			continue
		}
		g.logger.Infow("exported", "path", path)
		written = append(written, path)
	}
	return written, combined
}

func (r *Result) has(output string) bool {
	switch output {
	case "depth map":
		return r.Depth != nil
	case "point cloud":
		return r.Cloud != nil
	default:
		return r.Mesh != nil
	}
}
