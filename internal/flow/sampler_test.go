package flow

import (
	"context"
	"errors"
	"testing"

	"github.com/born-ml/rectflow/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSampleConfig(t *testing.T) {
	cfg := DefaultSampleConfig()
	assert.Equal(t, 50, cfg.Steps)
	assert.Equal(t, 2.0, cfg.GuidanceScale)
	assert.Nil(t, cfg.Progress)
}

func TestSampleZeroVelocity(t *testing.T) {
	noise := tensor.MustFromSlice([]float64{1, 1, 1, 2, 2, 2}, tensor.Shape{2, 3})
	p := &recordingPredictor{fn: constant(0)}

	traj, err := Sample(context.Background(), p, noise, Labels{0, 1}, nil, SampleConfig{Steps: 4})
	require.NoError(t, err)

	require.Len(t, traj, 5)
	for i, state := range traj {
		assert.True(t, state.Equal(noise), "state %d", i)
	}

	require.Len(t, p.calls, 4)
	wantT := []float64{1, 0.75, 0.5, 0.25}
	for i, c := range p.calls {
		assert.Equal(t, []float64{wantT[i], wantT[i]}, c.t, "call %d", i)
		assert.Equal(t, Labels{0, 1}, c.cond)
	}
}

func TestSampleTrajectoryStartsWithNoiseCopy(t *testing.T) {
	noise := tensor.Randn(tensor.Shape{3, 2, 2}, tensor.NewSource(4))
	orig := noise.Clone()

	traj, err := Sample(context.Background(), PredictorFunc(constant(1)), noise, Fill(0, 3), nil, SampleConfig{Steps: 7})
	require.NoError(t, err)

	require.Len(t, traj, 8)
	assert.True(t, traj[0].Equal(noise))
	assert.NotSame(t, noise, traj[0])
	assert.True(t, noise.Equal(orig), "noise must not be mutated")

	// Constant unit velocity moves every element by -1 over the unit interval.
	assert.True(t, traj.Final().AllClose(tensor.AddScaled(orig, -1, tensor.Full(orig.Shape(), 1)), 1e-12))
}

func TestSampleNeverQueriesTimeZero(t *testing.T) {
	for _, steps := range []int{1, 2, 10} {
		p := &recordingPredictor{fn: constant(0)}
		_, err := Sample(context.Background(), p, tensor.Zeros(tensor.Shape{1, 1}), Labels{0}, Labels{9}, SampleConfig{Steps: steps, GuidanceScale: 2})
		require.NoError(t, err)

		require.Len(t, p.calls, 2*steps)
		for _, c := range p.calls {
			assert.Greater(t, c.t[0], 0.0)
			assert.LessOrEqual(t, c.t[0], 1.0)
		}
		assert.Equal(t, 1.0, p.calls[0].t[0])
		assert.Equal(t, 1/float64(steps), p.calls[len(p.calls)-1].t[0])
	}
}

func TestSampleGuidanceMath(t *testing.T) {
	noise := tensor.Zeros(tensor.Shape{2, 3})
	p := &recordingPredictor{fn: byCondition(10, 1, 0)}

	traj, err := Sample(context.Background(), p, noise, Labels{0, 1}, Fill(10, 2), SampleConfig{Steps: 4, GuidanceScale: 3})
	require.NoError(t, err)

	// v = 0 + 3*(1-0) = 3, so each step subtracts 0.75.
	require.Len(t, traj, 5)
	for i, state := range traj {
		want := tensor.Full(noise.Shape(), -0.75*float64(i))
		assert.True(t, state.AllClose(want, 1e-12), "state %d: %v", i, state)
	}

	require.Len(t, p.calls, 8)
	for i := 0; i < len(p.calls); i += 2 {
		assert.Equal(t, Labels{0, 1}, p.calls[i].cond)
		assert.Equal(t, Labels{10, 10}, p.calls[i+1].cond)
		assert.Equal(t, p.calls[i].t, p.calls[i+1].t)
		assert.True(t, p.calls[i].x.Equal(p.calls[i+1].x))
	}
}

func TestGuideScaleOneIsConditional(t *testing.T) {
	src := tensor.NewSource(8)
	vc := tensor.Randn(tensor.Shape{4, 5}, src)
	vu := tensor.Randn(tensor.Shape{4, 5}, src)

	assert.True(t, Guide(vc, vu, 1).Equal(vc))
	assert.True(t, Guide(vc, vu, 0).Equal(vu))

	// General form vu + s*(vc - vu).
	want := tensor.Add(vu, tensor.Scale(tensor.Sub(vc, vu), 2.5))
	assert.True(t, Guide(vc, vu, 2.5).AllClose(want, 1e-12))
}

func TestSampleGuidanceScaleOneMatchesUnguided(t *testing.T) {
	noise := tensor.Randn(tensor.Shape{2, 4}, tensor.NewSource(12))
	fn := func(x *tensor.Tensor, ts []float64, cond Condition) (*tensor.Tensor, error) {
		out := tensor.Scale(x, ts[0])
		if l := cond.(Labels); l[0] == 10 {
			out = tensor.Scale(out, -3)
		}
		return out, nil
	}

	guided, err := Sample(context.Background(), PredictorFunc(fn), noise, Labels{1, 2}, Fill(10, 2), SampleConfig{Steps: 6, GuidanceScale: 1})
	require.NoError(t, err)
	plain, err := Sample(context.Background(), PredictorFunc(fn), noise, Labels{1, 2}, nil, SampleConfig{Steps: 6, GuidanceScale: 1})
	require.NoError(t, err)

	require.Len(t, guided, len(plain))
	for i := range plain {
		assert.True(t, guided[i].Equal(plain[i]), "state %d", i)
	}
}

func TestSampleInvalidStepCount(t *testing.T) {
	for _, steps := range []int{0, -1} {
		p := &recordingPredictor{fn: constant(0)}
		traj, err := Sample(context.Background(), p, tensor.Zeros(tensor.Shape{1, 2}), Labels{0}, nil, SampleConfig{Steps: steps})

		assert.ErrorIs(t, err, ErrInvalidStepCount)
		assert.Nil(t, traj)
		assert.Empty(t, p.calls)
	}
}

func TestSampleShapeErrors(t *testing.T) {
	noise := tensor.Zeros(tensor.Shape{2, 3})
	tests := []struct {
		name  string
		noise *tensor.Tensor
		cond  Condition
		null  Condition
	}{
		{"nil noise", nil, Labels{0, 1}, nil},
		{"rank one noise", tensor.Zeros(tensor.Shape{2}), Labels{0, 1}, nil},
		{"condition length", noise, Labels{0}, nil},
		{"null length", noise, Labels{0, 1}, Labels{10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &recordingPredictor{fn: constant(0)}
			traj, err := Sample(context.Background(), p, tt.noise, tt.cond, tt.null, SampleConfig{Steps: 3})

			assert.ErrorIs(t, err, ErrShapeMismatch)
			assert.Nil(t, traj)
			assert.Empty(t, p.calls)
		})
	}
}

func TestSamplePredictorErrorAbortsRun(t *testing.T) {
	boom := errors.New("predictor failed")
	n := 0
	p := PredictorFunc(func(x *tensor.Tensor, _ []float64, _ Condition) (*tensor.Tensor, error) {
		n++
		if n == 3 {
			return nil, boom
		}
		return tensor.Zeros(x.Shape()), nil
	})

	traj, err := Sample(context.Background(), p, tensor.Zeros(tensor.Shape{1, 2}), Labels{0}, nil, SampleConfig{Steps: 5})
	assert.Same(t, boom, err)
	assert.Nil(t, traj)
	assert.Equal(t, 3, n)
}

func TestSampleUnconditionalErrorVerbatim(t *testing.T) {
	boom := errors.New("null failed")
	p := PredictorFunc(func(x *tensor.Tensor, _ []float64, cond Condition) (*tensor.Tensor, error) {
		if cond.(Labels)[0] == 10 {
			return nil, boom
		}
		return tensor.Zeros(x.Shape()), nil
	})

	_, err := Sample(context.Background(), p, tensor.Zeros(tensor.Shape{1, 2}), Labels{0}, Labels{10}, SampleConfig{Steps: 2, GuidanceScale: 2})
	assert.Same(t, boom, err)
}

func TestSampleRejectsWrongVelocityShape(t *testing.T) {
	p := PredictorFunc(func(x *tensor.Tensor, _ []float64, _ Condition) (*tensor.Tensor, error) {
		return tensor.Zeros(tensor.Shape{x.Len(), 7}), nil
	})

	_, err := Sample(context.Background(), p, tensor.Zeros(tensor.Shape{2, 3}), Labels{0, 1}, nil, SampleConfig{Steps: 2})
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestSampleContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	p := PredictorFunc(func(x *tensor.Tensor, _ []float64, _ Condition) (*tensor.Tensor, error) {
		calls++
		if calls == 2 {
			cancel()
		}
		return tensor.Zeros(x.Shape()), nil
	})

	traj, err := Sample(ctx, p, tensor.Zeros(tensor.Shape{1, 1}), Labels{0}, nil, SampleConfig{Steps: 10})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, traj)
	assert.Equal(t, 2, calls)
}

func TestSamplerProgress(t *testing.T) {
	var seen [][2]int
	cfg := SampleConfig{Steps: 3, GuidanceScale: 1, Progress: func(step, total int) {
		seen = append(seen, [2]int{step, total})
	}}
	s := NewSampler(PredictorFunc(constant(0)), cfg)
	assert.Equal(t, 3, s.Config().Steps)

	traj, err := s.Sample(context.Background(), tensor.Zeros(tensor.Shape{1, 1}), Labels{0}, nil)
	require.NoError(t, err)
	assert.Len(t, traj, 4)
	assert.Equal(t, [][2]int{{1, 3}, {2, 3}, {3, 3}}, seen)
}

func TestTrajectoryFinal(t *testing.T) {
	assert.Nil(t, Trajectory(nil).Final())

	a := tensor.Zeros(tensor.Shape{1, 1})
	b := tensor.Full(tensor.Shape{1, 1}, 1)
	assert.Same(t, b, Trajectory{a, b}.Final())
}
