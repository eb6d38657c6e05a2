package flow

import (
	"math/rand/v2"

	"github.com/born-ml/rectflow/internal/tensor"
	"gonum.org/v1/gonum/floats"
)

// EngineConfig configures the training objective.
type EngineConfig struct {
	// TimePolicy selects the training time distribution.
	// The zero value is TimeLogitNormal.
	TimePolicy TimePolicy

	// Seed for time and noise draws. -1 = random. The engine uses its own
	// stream of the seed (StreamEngine).
	Seed int64
}

// StreamEngine names the random stream the engine draws times and noise
// from. See tensor.NewStream.
const StreamEngine = "flow.engine"

// TimeLoss pairs an example's training time with its loss. Values are plain
// numbers meant for diagnostics (e.g. loss per decile of t).
type TimeLoss struct {
	T    float64 `json:"t"`
	Loss float64 `json:"loss"`
}

// Loss is the result of one training objective evaluation.
type Loss struct {
	// Value is the batch mean of PerExample.
	Value float64

	// PerExample holds the mean squared velocity error of each example.
	PerExample []float64

	// Report holds one (t, loss) pair per example, in batch order.
	Report []TimeLoss

	// Grad is dValue/dv for the predictor output v, shaped like the data
	// batch. Trainable predictors backpropagate from it.
	Grad *tensor.Tensor
}

// Engine builds the Rectified Flow regression objective.
//
// An Engine owns a random source and is not safe for concurrent use.
type Engine struct {
	predictor Predictor
	policy    TimePolicy
	src       rand.Source
}

// NewEngine creates an Engine that queries predictor.
func NewEngine(predictor Predictor, config EngineConfig) *Engine {
	return &Engine{
		predictor: predictor,
		policy:    config.TimePolicy,
		src:       tensor.NewStream(config.Seed, StreamEngine),
	}
}

// TimePolicy returns the configured time policy.
func (e *Engine) TimePolicy() TimePolicy {
	return e.policy
}

// ComputeLoss evaluates the objective on one batch.
//
// Steps:
//  1. Draw one t per example under the time policy.
//  2. Draw fresh noise z ~ N(0, 1) shaped like x.
//  3. Evaluate the loss at (x, z, t).
//
// Returns ErrShapeMismatch (as *ShapeError) when x and cond disagree, and
// the predictor's own error unchanged when Predict fails.
func (e *Engine) ComputeLoss(x *tensor.Tensor, cond Condition) (*Loss, error) {
	if err := validateBatch(x, cond); err != nil {
		return nil, err
	}
	t := SampleTimes(e.policy, x.Len(), e.src)
	z := tensor.Randn(x.Shape(), e.src)
	return e.Evaluate(x, z, t, cond)
}

// Evaluate computes the objective for caller-supplied noise and times.
//
// The predictor sees the interpolant and the unbroadcast times t. The
// per-example loss is mean(((z - x) - v)^2) over all non-batch elements.
func (e *Engine) Evaluate(x, z *tensor.Tensor, t []float64, cond Condition) (*Loss, error) {
	if err := validateBatch(x, cond); err != nil {
		return nil, err
	}
	if z == nil || !z.Shape().Equal(x.Shape()) {
		return nil, shapeErr("noise", x.Shape(), shapeOf(z))
	}
	if len(t) != x.Len() {
		return nil, shapeErr("time", x.Len(), len(t))
	}

	zt := Interpolate(x, z, t)
	times := make([]float64, len(t))
	copy(times, t)

	v, err := e.predictor.Predict(zt, times, cond)
	if err != nil {
		return nil, err
	}
	if v == nil || !v.Shape().Equal(x.Shape()) {
		return nil, shapeErr("velocity", x.Shape(), shapeOf(v))
	}

	residual := tensor.Sub(v, VelocityTarget(x, z))
	perExample := tensor.RowMeanSquares(residual)

	b := float64(x.Len())
	n := float64(x.RowSize())
	grad := tensor.Scale(residual, 2/(b*n))

	report := make([]TimeLoss, len(perExample))
	for i, l := range perExample {
		report[i] = TimeLoss{T: t[i], Loss: l}
	}

	return &Loss{
		Value:      floats.Sum(perExample) / b,
		PerExample: perExample,
		Report:     report,
		Grad:       grad,
	}, nil
}

// validateBatch checks that x is a non-empty batch with at least one
// feature axis and that cond is aligned with it.
func validateBatch(x *tensor.Tensor, cond Condition) error {
	if x == nil {
		return shapeErr("data", "[B, S...]", "nil")
	}
	shape := x.Shape()
	if len(shape) < 2 {
		return shapeErr("data", "[B, S...]", shape)
	}
	if cond == nil || cond.Len() != x.Len() {
		return shapeErr("condition", x.Len(), condLen(cond))
	}
	return nil
}

func shapeOf(t *tensor.Tensor) any {
	if t == nil {
		return "nil"
	}
	return t.Shape()
}

func condLen(c Condition) any {
	if c == nil {
		return "nil"
	}
	return c.Len()
}
