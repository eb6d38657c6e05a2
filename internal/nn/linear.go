package nn

import (
	"fmt"
	"math/rand/v2"

	"github.com/born-ml/rectflow/internal/tensor"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Linear implements a fully connected layer: y = x @ W.T + b.
//
// W has shape [out, in] and b has shape [out]. Weights use Xavier
// initialization; biases start at zero. The gonum matrices used for the
// products share the parameters' backing slices, so optimizer updates are
// visible without copying.
type Linear struct {
	in, out int
	weight  *Parameter
	bias    *Parameter

	input *mat.Dense // cached by Forward
}

// NewLinear creates a Linear layer whose parameters are named
// "<name>.weight" and "<name>.bias".
func NewLinear(name string, in, out int, src rand.Source) *Linear {
	return &Linear{
		in:     in,
		out:    out,
		weight: NewParameter(name+".weight", Xavier(in, out, tensor.Shape{out, in}, src)),
		bias:   NewParameter(name+".bias", tensor.Zeros(tensor.Shape{out})),
	}
}

// InFeatures returns the input width.
func (l *Linear) InFeatures() int { return l.in }

// OutFeatures returns the output width.
func (l *Linear) OutFeatures() int { return l.out }

// Weight returns the [out, in] weight parameter.
func (l *Linear) Weight() *Parameter { return l.weight }

// Bias returns the [out] bias parameter.
func (l *Linear) Bias() *Parameter { return l.bias }

// Forward computes x @ W.T + b for x of shape [batch, in].
func (l *Linear) Forward(x *mat.Dense) *mat.Dense {
	rows, cols := x.Dims()
	if cols != l.in {
		panic(fmt.Sprintf("linear: expected %d input features, got %d", l.in, cols))
	}

	w := mat.NewDense(l.out, l.in, l.weight.Tensor().Data())
	y := mat.NewDense(rows, l.out, nil)
	y.Mul(x, w.T())

	b := l.bias.Tensor().Data()
	for i := range rows {
		floats.Add(y.RawRowView(i), b)
	}

	l.input = x
	return y
}

// Backward accumulates dW = dOut.T @ x and db = sum(dOut) and returns
// dOut @ W.
func (l *Linear) Backward(dOut *mat.Dense) *mat.Dense {
	if l.input == nil {
		panic("linear: backward called before forward")
	}
	rows, _ := dOut.Dims()

	var dw mat.Dense
	dw.Mul(dOut.T(), l.input)
	gw := mat.NewDense(l.out, l.in, l.weight.Grad().Data())
	gw.Add(gw, &dw)

	gb := l.bias.Grad().Data()
	for i := range rows {
		floats.Add(gb, dOut.RawRowView(i))
	}

	w := mat.NewDense(l.out, l.in, l.weight.Tensor().Data())
	dx := mat.NewDense(rows, l.in, nil)
	dx.Mul(dOut, w)
	return dx
}

// Parameters returns [weight, bias].
func (l *Linear) Parameters() []*Parameter {
	return []*Parameter{l.weight, l.bias}
}
