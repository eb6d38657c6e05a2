package flow

import (
	"github.com/born-ml/rectflow/internal/tensor"
)

// Interpolate returns zt = (1 - t)*x + t*z, with t[i] applied to every
// element of example i.
//
// x and z must share a shape and len(t) must equal the batch size; it
// panics otherwise.
func Interpolate(x, z *tensor.Tensor, t []float64) *tensor.Tensor {
	oneMinus := make([]float64, len(t))
	for i, v := range t {
		oneMinus[i] = 1 - v
	}
	return tensor.Add(tensor.ScaleRows(x, oneMinus), tensor.ScaleRows(z, t))
}

// VelocityTarget returns the straight-line velocity z - x. It does not
// depend on t.
func VelocityTarget(x, z *tensor.Tensor) *tensor.Tensor {
	return tensor.Sub(z, x)
}
