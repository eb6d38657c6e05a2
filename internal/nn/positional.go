package nn

import (
	"fmt"
	"math"

	"github.com/born-ml/rectflow/internal/parallel"
	"gonum.org/v1/gonum/mat"
)

// TimeEmbedding encodes a scalar time with fixed sinusoids:
//
//	freq_k = MaxPeriod^(-k/half),  k = 0..half-1
//	emb    = [cos(Scale*t*freq_0..), sin(Scale*t*freq_0..)]
//
// It has no parameters. Time is an input of the network, not a trainable
// quantity, so there is no backward pass.
type TimeEmbedding struct {
	Dim       int
	MaxPeriod float64
	Scale     float64

	freqs []float64
	par   parallel.Config
}

// NewTimeEmbedding creates a time embedding of even width dim with the
// usual max period 10000. Times in [0, 1] are scaled by 1000 so the
// highest frequencies still resolve neighbouring sampler steps.
func NewTimeEmbedding(dim int, par parallel.Config) *TimeEmbedding {
	if dim <= 0 || dim%2 != 0 {
		panic(fmt.Sprintf("time embedding: dim must be positive and even, got %d", dim))
	}
	e := &TimeEmbedding{Dim: dim, MaxPeriod: 10000, Scale: 1000, par: par}

	half := dim / 2
	e.freqs = make([]float64, half)
	for k := range e.freqs {
		e.freqs[k] = math.Exp(-math.Log(e.MaxPeriod) * float64(k) / float64(half))
	}
	return e
}

// Forward returns a [len(t), Dim] matrix.
func (e *TimeEmbedding) Forward(t []float64) *mat.Dense {
	half := e.Dim / 2
	out := mat.NewDense(len(t), e.Dim, nil)
	parallel.For(len(t), func(i int) {
		row := out.RawRowView(i)
		for k, f := range e.freqs {
			arg := e.Scale * t[i] * f
			row[k] = math.Cos(arg)
			row[half+k] = math.Sin(arg)
		}
	}, e.par)
	return out
}
