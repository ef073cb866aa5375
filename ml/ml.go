// Package ml provides the tensor plumbing between images, depth maps and
// depth models.
package ml

import (
	"image"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/exp/constraints"
	"gorgonia.org/tensor"

	"go.viam.com/depthmesh/rimage"
)

// Tensors are a map of named tensors going into or coming out of a model.
type Tensors map[string]*tensor.Dense

const (
	// InputTensorName is the name depth models read the image from.
	InputTensorName = "pixel_values"
	// DepthTensorName is the name depth models write their prediction to.
	DepthTensorName = "predicted_depth"
)

// ImageToTensor converts img into a float32 NCHW tensor of shape
// [1, 3, height, width] with channels rescaled to [0, 1].
func ImageToTensor(img image.Image) *tensor.Dense {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	plane := width * height
	data := make([]float32, 3*plane)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			k := y*width + x
			data[k] = float32(r) / 0xffff
			data[plane+k] = float32(g) / 0xffff
			data[2*plane+k] = float32(b) / 0xffff
		}
	}
	return tensor.New(tensor.WithShape(1, 3, height, width), tensor.WithBacking(data))
}

// DepthTensor picks the depth prediction out of a model's outputs. A lone
// output tensor is accepted regardless of its name.
func DepthTensor(outputs Tensors) (*tensor.Dense, error) {
	if t, ok := outputs[DepthTensorName]; ok && t != nil {
		return t, nil
	}
	if len(outputs) == 1 {
		for _, t := range outputs {
			if t != nil {
				return t, nil
			}
		}
	}
	return nil, errors.Errorf("no tensor named %q among output tensors [%s]",
		DepthTensorName, strings.Join(tensorNames(outputs), ", "))
}

// DepthFromTensor squeezes a single channel tensor of shape [H, W], [1, H, W]
// or [1, 1, H, W] into a depth map, multiplying every value by scale.
func DepthFromTensor(t *tensor.Dense, scale float64) (*rimage.DepthMap, error) {
	if t == nil {
		return nil, errors.New("nil depth tensor")
	}
	var dims []int
	for _, d := range t.Shape() {
		if d != 1 {
			dims = append(dims, d)
		}
	}
	if len(dims) != 2 {
		return nil, errors.Errorf("expected a single channel 2D depth tensor, got shape %v", t.Shape())
	}
	values, err := convertToFloat64Slice(t.Data())
	if err != nil {
		return nil, err
	}
	height, width := dims[0], dims[1]
	if len(values) != width*height {
		return nil, errors.Errorf("tensor of shape %v holds %d values", t.Shape(), len(values))
	}
	if scale != 1 {
		for i := range values {
			values[i] *= scale
		}
	}
	return rimage.NewDepthMapFromData(width, height, values)
}

// number interface for converting between numbers.
type number interface {
	constraints.Integer | constraints.Float
}

// convertNumberSlice converts any number slice into another number slice.
func convertNumberSlice[T1, T2 number](t1 []T1) []T2 {
	t2 := make([]T2, len(t1))
	for i := range t1 {
		t2[i] = T2(t1[i])
	}
	return t2
}

// convertToFloat64Slice always returns a fresh slice so callers may modify it.
func convertToFloat64Slice(slice interface{}) ([]float64, error) {
	switch v := slice.(type) {
	case []float64:
		return convertNumberSlice[float64, float64](v), nil
	case []float32:
		return convertNumberSlice[float32, float64](v), nil
	case []int:
		return convertNumberSlice[int, float64](v), nil
	case []int32:
		return convertNumberSlice[int32, float64](v), nil
	case []int64:
		return convertNumberSlice[int64, float64](v), nil
	case []uint8:
		return convertNumberSlice[uint8, float64](v), nil
	case []uint16:
		return convertNumberSlice[uint16, float64](v), nil
	case float64:
		return []float64{v}, nil
	case float32:
		return []float64{float64(v)}, nil
	default:
		return nil, errors.Errorf("dont know how to convert slice of %T into a []float64", slice)
	}
}

// tensorNames returns all the names of the tensors, sorted.
func tensorNames(t Tensors) []string {
	names := []string{}
	for name := range t {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
