package nn

import (
	"github.com/born-ml/rectflow/internal/tensor"
)

// Parameter is a trainable tensor together with its gradient.
//
// The gradient has the same shape as the value and accumulates across
// Backward calls until ZeroGrad.
//
// Example:
//
//	w := nn.NewParameter("fc1.weight", tensor.Zeros(tensor.Shape{128, 64}))
//	w.Grad().Data()[0] += 0.5
//	w.ZeroGrad()
type Parameter struct {
	name  string
	value *tensor.Tensor
	grad  *tensor.Tensor
}

// NewParameter wraps t as a trainable parameter with a zero gradient.
func NewParameter(name string, t *tensor.Tensor) *Parameter {
	return &Parameter{
		name:  name,
		value: t,
		grad:  tensor.Zeros(t.Shape()),
	}
}

// Name returns the parameter name (e.g. "fc1.weight").
func (p *Parameter) Name() string {
	return p.name
}

// Tensor returns the parameter value.
func (p *Parameter) Tensor() *tensor.Tensor {
	return p.value
}

// Grad returns the accumulated gradient.
func (p *Parameter) Grad() *tensor.Tensor {
	return p.grad
}

// ZeroGrad clears the accumulated gradient.
func (p *Parameter) ZeroGrad() {
	clear(p.grad.Data())
}
