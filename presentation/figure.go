package presentation

import (
	"image"
	"image/color"
	"io"
	"math"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/pkg/errors"

	"go.viam.com/depthmesh/rimage"
)

const (
	figureMargin      = 12
	figureCaptionSize = 16
	figureCaptionRoom = 28
)

// DepthFigure composes img and the false-color depth map side by side with
// captions. Both must be the same size.
func DepthFigure(img image.Image, dm *rimage.DepthMap) (image.Image, error) {
	bounds := img.Bounds()
	if bounds.Dx() != dm.Width() || bounds.Dy() != dm.Height() {
		return nil, errors.Errorf("image is %dx%d but depth map is %dx%d",
			bounds.Dx(), bounds.Dy(), dm.Width(), dm.Height())
	}
	w, h := bounds.Dx(), bounds.Dy()

	dc := gg.NewContext(2*w+3*figureMargin, h+figureCaptionRoom+2*figureMargin)
	dc.SetColor(color.White)
	dc.Clear()

	top := figureMargin + figureCaptionRoom
	dc.DrawImage(imaging.Clone(img), figureMargin, top)
	dc.DrawImage(dm.ToPrettyPicture(), w+2*figureMargin, top)

	captionY := float64(figureMargin)
	rimage.DrawCaption(dc, "Image", float64(figureMargin)+float64(w)/2, captionY, color.Black, figureCaptionSize)
	rimage.DrawCaption(dc, "Depth Map", float64(2*figureMargin+w)+float64(w)/2, captionY, color.Black, figureCaptionSize)
	return dc.Image(), nil
}

// SaveDepthFigure writes DepthFigure as a PNG.
func SaveDepthFigure(path string, img image.Image, dm *rimage.DepthMap) error {
	fig, err := DepthFigure(img, dm)
	if err != nil {
		return &exportError{path: path, err: err}
	}
	return savePNG(path, fig)
}

func savePNG(path string, img image.Image) error {
	return writeFileAtomic(path, func(w io.Writer) error {
		return imaging.Encode(w, img, imaging.PNG)
	})
}

// shade scales c's brightness by intensity in [0, 1].
func shade(c color.NRGBA, intensity float64) color.NRGBA {
	intensity = math.Max(0, math.Min(1, intensity))
	return color.NRGBA{
		R: uint8(float64(c.R) * intensity),
		G: uint8(float64(c.G) * intensity),
		B: uint8(float64(c.B) * intensity),
		A: c.A,
	}
}
