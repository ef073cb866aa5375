package cli

import (
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"go.viam.com/depthmesh/pipeline"
	"go.viam.com/depthmesh/presentation"
)

// GenerateAction is the corresponding Action for 'generate'.
func GenerateAction(c *cli.Context) (err error) {
	r, err := newRunner(c)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, r.close())
	}()

	pm := r.progress(meshStages...)
	defer pm.Stop()
	res, err := r.gen.RunWithObserver(c.Context, c.String(imageFlag), pm)
	if err != nil {
		return err
	}
	printResult(c, res)

	written, err := r.gen.Export(c.Context, res, pipeline.Outputs{
		OBJ:            c.String(objFlag),
		Figure:         c.String(figureFlag),
		Plot:           c.String(plotFlag),
		Preview:        c.String(previewFlag),
		PCD:            c.String(pcdFlag),
		PCDBinary:      c.Bool(pcdBinFlag),
		PreviewOptions: previewOptions(c),
	})
	for _, path := range written {
		printf(c.App.Writer, "Wrote %s", path)
	}
	return err
}

// MeshAction is the corresponding Action for 'mesh'.
func MeshAction(c *cli.Context) (err error) {
	r, err := newRunner(c)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, r.close())
	}()

	pm := r.progress(cloudStages...)
	defer pm.Stop()
	res, err := r.gen.RunPointCloud(c.Context, c.String(pcdFlag), pm)
	if err != nil {
		return err
	}
	printResult(c, res)

	written, err := r.gen.Export(c.Context, res, pipeline.Outputs{
		OBJ:            c.String(objFlag),
		Preview:        c.String(previewFlag),
		PreviewOptions: previewOptions(c),
	})
	for _, path := range written {
		printf(c.App.Writer, "Wrote %s", path)
	}
	return err
}

// DepthAction is the corresponding Action for 'depth'.
func DepthAction(c *cli.Context) (err error) {
	r, err := newRunner(c)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, r.close())
	}()

	pm := r.progress(depthStages...)
	defer pm.Stop()
	res, err := r.gen.RunDepth(c.Context, c.String(imageFlag), pm)
	if err != nil {
		return err
	}
	printResult(c, res)

	written, err := r.gen.Export(c.Context, res, pipeline.Outputs{
		Figure: c.String(outFlag),
		Plot:   c.String(plotFlag),
	})
	for _, path := range written {
		printf(c.App.Writer, "Wrote %s", path)
	}
	return err
}

func previewOptions(c *cli.Context) presentation.PreviewOptions {
	opts := presentation.DefaultPreviewOptions()
	opts.Yaw = c.Float64(yawFlag)
	opts.Pitch = c.Float64(pitchFlag)
	return opts
}

func printResult(c *cli.Context, res *pipeline.Result) {
	if res.Depth != nil {
		size := res.Depth.Bounds().Size()
		printf(c.App.Writer, "Depth map: %dx%d, min %.1f, median %.1f, max %.1f",
			size.X, size.Y, res.Stats.Min, res.Stats.Median, res.Stats.Max)
	}
	if res.Mesh != nil {
		printf(c.App.Writer, "Mesh: %d of %d points on the hull, %d faces, volume %.1f, area %.1f",
			len(res.Mesh.Vertices()), res.Cloud.Size(), len(res.Mesh.Faces()),
			res.Hull.Volume(), res.Mesh.Area())
	}
}
