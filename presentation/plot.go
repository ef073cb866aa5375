package presentation

import (
	"image/color"
	"io"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"go.viam.com/depthmesh/rimage"
)

// depthGrid adapts a depth map to plotter.GridXYZ, one cell per pixel.
type depthGrid struct {
	dm *rimage.DepthMap
}

func (g depthGrid) Dims() (int, int) {
	return g.dm.Width(), g.dm.Height()
}

func (g depthGrid) Z(c, r int) float64 {
	return g.dm.GetDepth(c, r)
}

func (g depthGrid) X(c int) float64 {
	return float64(c)
}

func (g depthGrid) Y(r int) float64 {
	return float64(r)
}

type plasmaPalette int

func (p plasmaPalette) Colors() []color.Color {
	return rimage.PlasmaColors(int(p))
}

var _ palette.Palette = plasmaPalette(0)

// DepthPlot returns a heat map of dm with pixel axes and row 0 at the top.
func DepthPlot(dm *rimage.DepthMap) (*plot.Plot, error) {
	if !dm.HasData() {
		return nil, errors.New("cannot plot an empty depth map")
	}
	p := plot.New()
	p.Title.Text = "Depth Map"
	p.X.Label.Text = "Column"
	p.Y.Label.Text = "Row"
	p.Y.Scale = plot.InvertedScale{Normalizer: p.Y.Scale}

	heat := plotter.NewHeatMap(depthGrid{dm}, plasmaPalette(256))
	if heat.Max == heat.Min {
		heat.Max = heat.Min + 1
	}
	p.Add(heat)
	return p, nil
}

// SaveDepthPlot writes DepthPlot as a PNG sized to the map.
func SaveDepthPlot(path string, dm *rimage.DepthMap) error {
	p, err := DepthPlot(dm)
	if err != nil {
		return &exportError{path: path, err: err}
	}
	width := vg.Length(dm.Width())*vg.Millimeter/2 + 3*vg.Centimeter
	height := vg.Length(dm.Height())*vg.Millimeter/2 + 3*vg.Centimeter
	wt, err := p.WriterTo(width, height, "png")
	if err != nil {
		return &exportError{path: path, err: err}
	}
	return writeFileAtomic(path, func(w io.Writer) error {
		_, err := wt.WriteTo(w)
		return err
	})
}
