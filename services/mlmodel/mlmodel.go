// Package mlmodel defines the service a depth model is reached through: it
// takes a map of input tensors, passes them through an inference engine, and
// returns a map of output tensors.
package mlmodel

import (
	"context"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	"go.viam.com/depthmesh/ml"
)

// Service is the inference engine behind the depth estimator.
type Service interface {
	Infer(ctx context.Context, tensors ml.Tensors) (ml.Tensors, error)
	Metadata(ctx context.Context) (MLMetadata, error)
	Close(ctx context.Context) error
}

// MLMetadata describes a model and its tensors.
type MLMetadata struct {
	ModelName        string       `json:"name"`
	ModelType        string       `json:"type"` // e.g. depth_estimator
	ModelDescription string       `json:"description"`
	Inputs           []TensorInfo `json:"inputs"`
	Outputs          []TensorInfo `json:"outputs"`
}

// TensorInfo describes one named tensor.
type TensorInfo struct {
	Name        string `json:"name"` // e.g. predicted_depth
	Description string `json:"description,omitempty"`
	DataType    string `json:"data_type"` // e.g. float32
	Shape       []int  `json:"shape,omitempty"`
}

// FlatTensor is the JSON form of a tensor: its shape and row-major float32 data.
type FlatTensor struct {
	Shape []int     `json:"shape"`
	Data  []float32 `json:"data"`
}

// FlatTensors is the JSON envelope for a set of named tensors.
type FlatTensors struct {
	Tensors map[string]FlatTensor `json:"tensors"`
}

// TensorsToFlat converts tensors into their JSON form.
func TensorsToFlat(tensors ml.Tensors) (*FlatTensors, error) {
	out := &FlatTensors{Tensors: make(map[string]FlatTensor, len(tensors))}
	for name, t := range tensors {
		if t == nil {
			return nil, errors.Errorf("tensor %q is nil", name)
		}
		var data []float32
		switch backing := t.Data().(type) {
		case []float32:
			data = backing
		case []float64:
			data = make([]float32, len(backing))
			for i, v := range backing {
				data[i] = float32(v)
			}
		default:
			return nil, errors.Errorf("tensor %q has unsupported data type %T", name, backing)
		}
		out.Tensors[name] = FlatTensor{Shape: append([]int(nil), t.Shape()...), Data: data}
	}
	return out, nil
}

// FlatToTensors converts the JSON form back into tensors, checking that each
// shape matches its data length.
func FlatToTensors(flat *FlatTensors) (ml.Tensors, error) {
	if flat == nil {
		return nil, errors.New("flat tensors are nil")
	}
	tensors := ml.Tensors{}
	for name, ft := range flat.Tensors {
		if len(ft.Shape) == 0 {
			return nil, errors.Errorf("tensor %q has no shape", name)
		}
		size := 1
		for _, d := range ft.Shape {
			if d <= 0 {
				return nil, errors.Errorf("tensor %q has bad shape %v", name, ft.Shape)
			}
			size *= d
		}
		if size != len(ft.Data) {
			return nil, errors.Errorf("tensor %q of shape %v needs %d values, got %d", name, ft.Shape, size, len(ft.Data))
		}
		tensors[name] = tensor.New(tensor.WithShape(ft.Shape...), tensor.WithBacking(ft.Data))
	}
	return tensors, nil
}
