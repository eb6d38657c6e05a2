package flow

import (
	"github.com/born-ml/rectflow/internal/tensor"
)

// call records one Predict invocation.
type call struct {
	x    *tensor.Tensor
	t    []float64
	cond Condition
}

// recordingPredictor returns a velocity from fn and records every call.
type recordingPredictor struct {
	fn    func(x *tensor.Tensor, t []float64, cond Condition) (*tensor.Tensor, error)
	calls []call
}

func (p *recordingPredictor) Predict(x *tensor.Tensor, t []float64, cond Condition) (*tensor.Tensor, error) {
	p.calls = append(p.calls, call{x: x.Clone(), t: append([]float64(nil), t...), cond: cond})
	return p.fn(x, t, cond)
}

func constant(value float64) func(x *tensor.Tensor, _ []float64, _ Condition) (*tensor.Tensor, error) {
	return func(x *tensor.Tensor, _ []float64, _ Condition) (*tensor.Tensor, error) {
		return tensor.Full(x.Shape(), value), nil
	}
}

// byCondition returns vc for the conditional labels and vu for the null label.
func byCondition(nullID int, vc, vu float64) func(x *tensor.Tensor, _ []float64, cond Condition) (*tensor.Tensor, error) {
	return func(x *tensor.Tensor, _ []float64, cond Condition) (*tensor.Tensor, error) {
		if l, ok := cond.(Labels); ok && len(l) > 0 && l[0] == nullID {
			return tensor.Full(x.Shape(), vu), nil
		}
		return tensor.Full(x.Shape(), vc), nil
	}
}
