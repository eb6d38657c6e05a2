package nn

import (
	"math"

	"github.com/born-ml/rectflow/internal/parallel"
	"gonum.org/v1/gonum/mat"
)

// SiLU applies x * sigmoid(x) elementwise.
type SiLU struct {
	par   parallel.Config
	input *mat.Dense
}

// NewSiLU creates a SiLU activation that splits rows according to par.
func NewSiLU(par parallel.Config) *SiLU {
	return &SiLU{par: par}
}

// Forward applies SiLU.
func (s *SiLU) Forward(x *mat.Dense) *mat.Dense {
	rows, cols := x.Dims()
	y := mat.NewDense(rows, cols, nil)
	parallel.For(rows, func(i int) {
		in, out := x.RawRowView(i), y.RawRowView(i)
		for j, v := range in {
			out[j] = v * sigmoid(v)
		}
	}, s.par)

	s.input = x
	return y
}

// Backward multiplies dOut by silu'(x) = s(x) * (1 + x*(1 - s(x))).
func (s *SiLU) Backward(dOut *mat.Dense) *mat.Dense {
	if s.input == nil {
		panic("silu: backward called before forward")
	}
	rows, cols := dOut.Dims()
	dx := mat.NewDense(rows, cols, nil)
	parallel.For(rows, func(i int) {
		in, g, out := s.input.RawRowView(i), dOut.RawRowView(i), dx.RawRowView(i)
		for j, v := range in {
			sg := sigmoid(v)
			out[j] = g[j] * sg * (1 + v*(1-sg))
		}
	}, s.par)
	return dx
}

// Parameters returns nil.
func (s *SiLU) Parameters() []*Parameter {
	return nil
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
