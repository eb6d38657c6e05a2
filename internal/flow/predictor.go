package flow

import (
	"github.com/born-ml/rectflow/internal/tensor"
)

// Condition is a batch of conditioning values aligned with a data batch by
// index. The predictor decides what concrete kind it accepts.
type Condition interface {
	// Len returns the number of conditioning values (the batch size).
	Len() int
}

// Labels is a batch of integer class ids.
type Labels []int

// Len implements Condition.
func (l Labels) Len() int {
	return len(l)
}

// Fill returns a Labels batch of n copies of id, e.g. the reserved
// unconditional class used as the null condition for guidance.
func Fill(id, n int) Labels {
	out := make(Labels, n)
	for i := range out {
		out[i] = id
	}
	return out
}

// *tensor.Tensor satisfies Condition through its batch axis, so embedding
// rows can be passed directly.
var _ Condition = (*tensor.Tensor)(nil)

// Predictor estimates the transport velocity at a noisy state.
//
// Predict receives a state of shape [B, S...], one time value per example
// (never broadcast), and B conditioning values. It must return a velocity
// with the same shape as x. Implementations own their parameters; the flow
// package only reads through Predict.
type Predictor interface {
	Predict(x *tensor.Tensor, t []float64, cond Condition) (*tensor.Tensor, error)
}

// PredictorFunc adapts an ordinary function to the Predictor interface.
type PredictorFunc func(x *tensor.Tensor, t []float64, cond Condition) (*tensor.Tensor, error)

// Predict calls f(x, t, cond).
func (f PredictorFunc) Predict(x *tensor.Tensor, t []float64, cond Condition) (*tensor.Tensor, error) {
	return f(x, t, cond)
}
