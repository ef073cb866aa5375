package rimage

import (
	"image"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

var (
	// ErrNonPositiveMax is returned when normalizing a depth map whose maximum is not positive.
	ErrNonPositiveMax = errors.New("depth map maximum is not positive")
	// ErrNegativeDepth is returned when normalizing a depth map that holds negative values.
	ErrNegativeDepth = errors.New("depth map has negative values")
)

// DepthMap is a grid of scalar depth estimates stored row-major.
type DepthMap struct {
	width  int
	height int

	data []float64
}

// NewEmptyDepthMap returns a zeroed depth map of the given size.
func NewEmptyDepthMap(width, height int) *DepthMap {
	return &DepthMap{
		width:  width,
		height: height,
		data:   make([]float64, width*height),
	}
}

// NewDepthMapFromData wraps row-major data as a depth map. The slice is not copied.
func NewDepthMapFromData(width, height int, data []float64) (*DepthMap, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.Errorf("bad width or height for depth map %d %d", width, height)
	}
	if len(data) != width*height {
		return nil, errors.Errorf("depth map of %dx%d needs %d values, got %d", width, height, width*height, len(data))
	}
	return &DepthMap{width: width, height: height, data: data}, nil
}

// HasData returns whether the map has any cells.
func (dm *DepthMap) HasData() bool {
	return dm.width > 0 && dm.height > 0 && dm.data != nil
}

// Width returns the number of columns.
func (dm *DepthMap) Width() int {
	return dm.width
}

// Height returns the number of rows.
func (dm *DepthMap) Height() int {
	return dm.height
}

// Bounds returns the map's extent as an image rectangle.
func (dm *DepthMap) Bounds() image.Rectangle {
	return image.Rect(0, 0, dm.width, dm.height)
}

func (dm *DepthMap) kxy(x, y int) int {
	return (y * dm.width) + x
}

// GetDepth returns the depth at column x, row y.
func (dm *DepthMap) GetDepth(x, y int) float64 {
	return dm.data[dm.kxy(x, y)]
}

// Set sets the depth at column x, row y.
func (dm *DepthMap) Set(x, y int, val float64) {
	dm.data[dm.kxy(x, y)] = val
}

// Data returns the backing row-major slice. Callers must not modify it.
func (dm *DepthMap) Data() []float64 {
	return dm.data
}

// Clone returns a deep copy.
func (dm *DepthMap) Clone() *DepthMap {
	data := make([]float64, len(dm.data))
	copy(data, dm.data)
	return &DepthMap{width: dm.width, height: dm.height, data: data}
}

// MinMax returns the smallest and largest depth.
func (dm *DepthMap) MinMax() (float64, float64) {
	if len(dm.data) == 0 {
		return 0, 0
	}
	return floats.Min(dm.data), floats.Max(dm.data)
}

// Normalized returns a copy divided by the global maximum so values fall in
// [0, 1]. A map whose maximum is already 1 comes back unchanged.
func (dm *DepthMap) Normalized() (*DepthMap, error) {
	if !dm.HasData() {
		return nil, errors.New("cannot normalize an empty depth map")
	}
	minDepth, maxDepth := dm.MinMax()
	if minDepth < 0 {
		return nil, errors.Wrapf(ErrNegativeDepth, "minimum %v", minDepth)
	}
	if !(maxDepth > 0) {
		return nil, errors.Wrapf(ErrNonPositiveMax, "maximum %v", maxDepth)
	}
	out := dm.Clone()
	if maxDepth == 1 {
		return out, nil
	}
	// divide rather than scale by the reciprocal so the maximum lands on exactly 1
	for i, v := range out.data {
		out.data[i] = v / maxDepth
	}
	return out, nil
}

// CropBorder returns a copy with border cells removed from every side.
func (dm *DepthMap) CropBorder(border int) (*DepthMap, error) {
	rect, err := borderRect(dm.Bounds(), border)
	if err != nil {
		return nil, err
	}
	return dm.SubMap(rect)
}

// SubMap returns a copy of the cells inside rect.
func (dm *DepthMap) SubMap(rect image.Rectangle) (*DepthMap, error) {
	if rect.Empty() || !rect.In(dm.Bounds()) {
		return nil, errors.Errorf("cannot take %v from depth map of bounds %v", rect, dm.Bounds())
	}
	out := NewEmptyDepthMap(rect.Dx(), rect.Dy())
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		row := dm.data[dm.kxy(rect.Min.X, y):dm.kxy(rect.Max.X, y)]
		copy(out.data[out.kxy(0, y-rect.Min.Y):], row)
	}
	return out, nil
}

// ToPrettyPicture renders the map in false color on the plasma ramp, with
// the shallowest depth at the dark end. A constant map renders entirely dark.
func (dm *DepthMap) ToPrettyPicture() *image.NRGBA {
	img := image.NewNRGBA(dm.Bounds())
	minDepth, maxDepth := dm.MinMax()
	span := maxDepth - minDepth

	for y := 0; y < dm.height; y++ {
		for x := 0; x < dm.width; x++ {
			ratio := 0.0
			if span > 0 {
				ratio = (dm.GetDepth(x, y) - minDepth) / span
			}
			img.SetNRGBA(x, y, Plasma(ratio))
		}
	}
	return img
}
