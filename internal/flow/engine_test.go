package flow

import (
	"errors"
	"testing"

	"github.com/born-ml/rectflow/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateExactPredictionIsZeroLoss(t *testing.T) {
	src := tensor.NewSource(7)
	x := tensor.Randn(tensor.Shape{3, 4}, src)
	z := tensor.Randn(tensor.Shape{3, 4}, src)

	oracle := PredictorFunc(func(_ *tensor.Tensor, _ []float64, _ Condition) (*tensor.Tensor, error) {
		return VelocityTarget(x, z), nil
	})
	e := NewEngine(oracle, EngineConfig{Seed: 1})

	loss, err := e.Evaluate(x, z, []float64{0.2, 0.5, 0.8}, Labels{0, 1, 2})
	require.NoError(t, err)

	assert.Equal(t, 0.0, loss.Value)
	assert.Equal(t, []float64{0, 0, 0}, loss.PerExample)
	for _, g := range loss.Grad.Data() {
		assert.Equal(t, 0.0, g)
	}
}

func TestEvaluateKnownLoss(t *testing.T) {
	x := tensor.MustFromSlice([]float64{0, 0, 1, 1}, tensor.Shape{2, 2})
	z := tensor.MustFromSlice([]float64{1, 1, 1, 1}, tensor.Shape{2, 2})
	// targets: [1,1] and [0,0]; predicting zeros gives losses 1 and 0.
	p := &recordingPredictor{fn: constant(0)}
	e := NewEngine(p, EngineConfig{})

	loss, err := e.Evaluate(x, z, []float64{0.25, 0.75}, Labels{3, 4})
	require.NoError(t, err)

	assert.InDeltaSlice(t, []float64{1, 0}, loss.PerExample, 1e-12)
	assert.InDelta(t, 0.5, loss.Value, 1e-12)
	assert.Equal(t, []TimeLoss{{T: 0.25, Loss: 1}, {T: 0.75, Loss: 0}}, loss.Report)

	// dL/dv = 2(v - target)/(B*N) = 2*(0-1)/4 for the first example.
	assert.InDeltaSlice(t, []float64{-0.5, -0.5, 0, 0}, loss.Grad.Data(), 1e-12)

	require.Len(t, p.calls, 1)
	assert.Equal(t, []float64{0.25, 0.75}, p.calls[0].t)
	assert.Equal(t, Labels{3, 4}, p.calls[0].cond)
	// zt = (1-t)x + tz
	assert.InDeltaSlice(t, []float64{0.25, 0.25, 1, 1}, p.calls[0].x.Data(), 1e-12)
}

func TestComputeLossProperties(t *testing.T) {
	x := tensor.Randn(tensor.Shape{16, 1, 4, 4}, tensor.NewSource(2))
	p := &recordingPredictor{fn: constant(0.1)}

	for _, policy := range []TimePolicy{TimeLogitNormal, TimeUniform} {
		t.Run(policy.String(), func(t *testing.T) {
			p.calls = nil
			e := NewEngine(p, EngineConfig{TimePolicy: policy, Seed: 9})
			assert.Equal(t, policy, e.TimePolicy())

			loss, err := e.ComputeLoss(x, Fill(1, 16))
			require.NoError(t, err)

			assert.GreaterOrEqual(t, loss.Value, 0.0)
			require.Len(t, loss.Report, 16)
			require.Len(t, loss.PerExample, 16)
			require.Len(t, p.calls, 1)

			sum := 0.0
			for i, r := range loss.Report {
				assert.Greater(t, r.T, 0.0)
				assert.Less(t, r.T, 1.0)
				assert.GreaterOrEqual(t, r.Loss, 0.0)
				assert.Equal(t, p.calls[0].t[i], r.T)
				assert.Equal(t, loss.PerExample[i], r.Loss)
				sum += r.Loss
			}
			assert.InDelta(t, sum/16, loss.Value, 1e-12)
			assert.Equal(t, x.Shape(), loss.Grad.Shape())
		})
	}
}

func TestComputeLossSeeded(t *testing.T) {
	x := tensor.Randn(tensor.Shape{4, 3}, tensor.NewSource(2))
	p := PredictorFunc(constant(0))

	a, err := NewEngine(p, EngineConfig{Seed: 42}).ComputeLoss(x, Fill(0, 4))
	require.NoError(t, err)
	b, err := NewEngine(p, EngineConfig{Seed: 42}).ComputeLoss(x, Fill(0, 4))
	require.NoError(t, err)

	assert.Equal(t, a.Report, b.Report)
	assert.Equal(t, a.Value, b.Value)
}

func TestComputeLossShapeErrors(t *testing.T) {
	p := &recordingPredictor{fn: constant(0)}
	e := NewEngine(p, EngineConfig{Seed: 1})
	x := tensor.Zeros(tensor.Shape{2, 3})

	tests := []struct {
		name string
		x    *tensor.Tensor
		cond Condition
	}{
		{"nil data", nil, Labels{0, 1}},
		{"rank one", tensor.Zeros(tensor.Shape{2}), Labels{0, 1}},
		{"short condition", x, Labels{0}},
		{"long condition", x, Labels{0, 1, 2}},
		{"nil condition", x, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.ComputeLoss(tt.x, tt.cond)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrShapeMismatch)

			var se *ShapeError
			assert.ErrorAs(t, err, &se)
		})
	}
	assert.Empty(t, p.calls, "predictor must not be queried on invalid input")
}

func TestEvaluateShapeErrors(t *testing.T) {
	x := tensor.Zeros(tensor.Shape{2, 3})
	e := NewEngine(PredictorFunc(constant(0)), EngineConfig{})

	_, err := e.Evaluate(x, tensor.Zeros(tensor.Shape{2, 4}), []float64{0.5, 0.5}, Labels{0, 0})
	assert.ErrorIs(t, err, ErrShapeMismatch)

	_, err = e.Evaluate(x, tensor.Zeros(tensor.Shape{2, 3}), []float64{0.5}, Labels{0, 0})
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestComputeLossRejectsWrongVelocityShape(t *testing.T) {
	bad := PredictorFunc(func(x *tensor.Tensor, _ []float64, _ Condition) (*tensor.Tensor, error) {
		return tensor.Zeros(tensor.Shape{x.Len(), 1}), nil
	})
	e := NewEngine(bad, EngineConfig{Seed: 1})

	_, err := e.ComputeLoss(tensor.Zeros(tensor.Shape{2, 3}), Labels{0, 1})
	assert.ErrorIs(t, err, ErrShapeMismatch)
	assert.Contains(t, err.Error(), "velocity")
}

func TestComputeLossReturnsPredictorErrorVerbatim(t *testing.T) {
	boom := errors.New("boom")
	e := NewEngine(PredictorFunc(func(*tensor.Tensor, []float64, Condition) (*tensor.Tensor, error) {
		return nil, boom
	}), EngineConfig{Seed: 1})

	loss, err := e.ComputeLoss(tensor.Zeros(tensor.Shape{2, 3}), Labels{0, 1})
	assert.Nil(t, loss)
	assert.Same(t, boom, err)
}

func TestTensorCondition(t *testing.T) {
	emb := tensor.Zeros(tensor.Shape{2, 8})
	p := &recordingPredictor{fn: constant(0)}
	e := NewEngine(p, EngineConfig{Seed: 1})

	_, err := e.ComputeLoss(tensor.Zeros(tensor.Shape{2, 3}), emb)
	require.NoError(t, err)
	require.Len(t, p.calls, 1)
	assert.Same(t, emb, p.calls[0].cond)
}

func TestShapeErrorMessage(t *testing.T) {
	err := shapeErr("condition", 4, 3)
	assert.Equal(t, "shape mismatch: condition: want 4, got 3", err.Error())
	assert.True(t, errors.Is(err, ErrShapeMismatch))
}
