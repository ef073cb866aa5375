package rimage

import (
	"image"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

// ErrImageTooSmall is returned when an image cannot survive the stride fit
// and border crop with a positive size.
var ErrImageTooSmall = errors.New("image too small for model input")

// PreprocessOptions controls how images are fit to a depth model.
type PreprocessOptions struct {
	// MaxHeight caps the resized height before stride rounding.
	MaxHeight int
	// Stride is the factor both dimensions must be a multiple of.
	Stride int
	// Border is cropped from every side after inference.
	Border int
}

// DefaultPreprocessOptions returns the options for a 32-stride model with a
// 16 pixel artifact border and a 480 pixel height cap.
func DefaultPreprocessOptions() PreprocessOptions {
	return PreprocessOptions{MaxHeight: 480, Stride: 32, Border: 16}
}

// ModelInputSize computes the size an image of the given dimensions is
// resized to before inference. The height is capped and rounded down to the
// stride; the width keeps the aspect ratio and is rounded to the nearest
// stride multiple, with exact halves rounding up.
func ModelInputSize(width, height int, opts PreprocessOptions) (image.Point, error) {
	if width <= 0 || height <= 0 {
		return image.Point{}, errors.Wrapf(ErrImageTooSmall, "bad dimensions %dx%d", width, height)
	}
	if opts.Stride <= 0 {
		return image.Point{}, errors.Errorf("stride must be positive, got %d", opts.Stride)
	}

	newHeight := height
	if newHeight > opts.MaxHeight {
		newHeight = opts.MaxHeight
	}
	newHeight -= newHeight % opts.Stride

	newWidth := newHeight * width / height
	diff := newWidth % opts.Stride
	if diff < (opts.Stride+1)/2 {
		newWidth -= diff
	} else {
		newWidth += opts.Stride - diff
	}

	if newWidth-2*opts.Border <= 0 || newHeight-2*opts.Border <= 0 {
		return image.Point{}, errors.Wrapf(ErrImageTooSmall,
			"%dx%d fits to %dx%d which leaves nothing after a %d pixel border",
			width, height, newWidth, newHeight, opts.Border)
	}
	return image.Point{X: newWidth, Y: newHeight}, nil
}

// ResizeForModel resizes img to ModelInputSize using bicubic filtering.
func ResizeForModel(img image.Image, opts PreprocessOptions) (*image.NRGBA, error) {
	bounds := img.Bounds()
	size, err := ModelInputSize(bounds.Dx(), bounds.Dy(), opts)
	if err != nil {
		return nil, err
	}
	return imaging.Resize(img, size.X, size.Y, imaging.CatmullRom), nil
}

// CropBorder removes border pixels from every side of img.
func CropBorder(img image.Image, border int) (*image.NRGBA, error) {
	rect, err := borderRect(img.Bounds(), border)
	if err != nil {
		return nil, err
	}
	return imaging.Crop(img, rect), nil
}

func borderRect(bounds image.Rectangle, border int) (image.Rectangle, error) {
	if border < 0 {
		return image.Rectangle{}, errors.Errorf("border must not be negative, got %d", border)
	}
	rect := image.Rect(bounds.Min.X+border, bounds.Min.Y+border, bounds.Max.X-border, bounds.Max.Y-border)
	if rect.Dx() <= 0 || rect.Dy() <= 0 || bounds.Dx()-2*border <= 0 || bounds.Dy()-2*border <= 0 {
		return image.Rectangle{}, errors.Wrapf(ErrImageTooSmall,
			"cannot crop %d pixels from each side of %dx%d", border, bounds.Dx(), bounds.Dy())
	}
	return rect, nil
}
