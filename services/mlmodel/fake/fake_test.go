package fake

import (
	"context"
	"testing"

	"go.viam.com/test"
	"gorgonia.org/tensor"

	"go.viam.com/depthmesh/ml"
	"go.viam.com/depthmesh/services/mlmodel"
)

func TestFakeModel(t *testing.T) {
	var svc mlmodel.Service = NewModel()
	ctx := context.Background()

	pixels := make([]float32, 3*4*6)
	input := tensor.New(tensor.WithShape(1, 3, 4, 6), tensor.WithBacking(pixels))
	out, err := svc.Infer(ctx, ml.Tensors{ml.InputTensorName: input})
	test.That(t, err, test.ShouldBeNil)

	depth, err := ml.DepthTensor(out)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, []int(depth.Shape()), test.ShouldResemble, []int{1, 4, 6})
	for _, v := range depth.Data().([]float32) {
		test.That(t, v, test.ShouldBeGreaterThan, float32(0))
	}
	// black image: edges are farther than the middle
	data := depth.Data().([]float32)
	test.That(t, data[0], test.ShouldBeGreaterThan, data[2*6+3])

	md, err := svc.Metadata(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, md.ModelType, test.ShouldEqual, "depth_estimator")

	_, err = svc.Infer(ctx, ml.Tensors{})
	test.That(t, err, test.ShouldNotBeNil)
	bad := tensor.New(tensor.WithShape(3, 4), tensor.WithBacking(make([]float32, 12)))
	_, err = svc.Infer(ctx, ml.Tensors{ml.InputTensorName: bad})
	test.That(t, err, test.ShouldNotBeNil)

	test.That(t, svc.Close(ctx), test.ShouldBeNil)
	_, err = svc.Infer(ctx, ml.Tensors{ml.InputTensorName: input})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, svc.(*Model).Infers(), test.ShouldEqual, 3)
}
