// Package fake implements a depth model that synthesizes depth from image
// brightness, for running without a model server and for tests.
package fake

import (
	"context"
	"math"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	"go.viam.com/depthmesh/ml"
	"go.viam.com/depthmesh/services/mlmodel"
)

// Model estimates depth as darker-is-farther plus a falloff toward the image
// edges. Output is always strictly positive.
type Model struct {
	mu     sync.Mutex
	closed bool
	infers atomic.Int64
}

// NewModel returns a fake depth model.
func NewModel() *Model {
	return &Model{}
}

// Infer reads a [1, 3, H, W] pixel_values tensor and returns a [1, H, W]
// predicted_depth tensor.
func (m *Model) Infer(ctx context.Context, tensors ml.Tensors) (ml.Tensors, error) {
	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()
	if closed {
		return nil, errors.New("fake model is closed")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.infers.Add(1)

	input, ok := tensors[ml.InputTensorName]
	if !ok || input == nil {
		return nil, errors.Errorf("missing input tensor %q", ml.InputTensorName)
	}
	shape := input.Shape()
	if len(shape) != 4 || shape[0] != 1 || shape[1] != 3 {
		return nil, errors.Errorf("expected input of shape [1 3 H W], got %v", shape)
	}
	pixels, ok := input.Data().([]float32)
	if !ok {
		return nil, errors.Errorf("expected float32 input, got %T", input.Data())
	}

	height, width := shape[2], shape[3]
	plane := height * width
	cx, cy := float64(width-1)/2, float64(height-1)/2
	maxR := math.Hypot(cx, cy)
	if maxR == 0 {
		maxR = 1
	}
	depth := make([]float32, plane)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			k := y*width + x
			lum := 0.299*float64(pixels[k]) + 0.587*float64(pixels[plane+k]) + 0.114*float64(pixels[2*plane+k])
			r := math.Hypot(float64(x)-cx, float64(y)-cy) / maxR
			depth[k] = float32(1 + (1 - lum) + 0.5*r)
		}
	}
	return ml.Tensors{
		ml.DepthTensorName: tensor.New(tensor.WithShape(1, height, width), tensor.WithBacking(depth)),
	}, nil
}

// Metadata describes the fake model.
func (m *Model) Metadata(ctx context.Context) (mlmodel.MLMetadata, error) {
	return mlmodel.MLMetadata{
		ModelName:        "fake",
		ModelType:        "depth_estimator",
		ModelDescription: "synthetic depth from brightness and radial falloff",
		Inputs:           []mlmodel.TensorInfo{{Name: ml.InputTensorName, DataType: "float32", Shape: []int{1, 3, -1, -1}}},
		Outputs:          []mlmodel.TensorInfo{{Name: ml.DepthTensorName, DataType: "float32", Shape: []int{1, -1, -1}}},
	}, nil
}

// Close marks the model closed; later inferences fail.
func (m *Model) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Infers returns how many inference calls were made.
func (m *Model) Infers() int {
	return int(m.infers.Load())
}
