package flow

import (
	"context"

	"github.com/born-ml/rectflow/internal/tensor"
)

// SampleConfig configures the Euler sampler.
type SampleConfig struct {
	// Steps is the number of Euler steps. Must be > 0.
	Steps int

	// GuidanceScale is the classifier-free guidance strength. 1 reproduces
	// the conditional velocity; larger values trade diversity for fidelity
	// to the condition. Ignored when no null condition is supplied.
	GuidanceScale float64

	// Progress, if set, is called after every completed step.
	Progress func(step, total int)
}

// DefaultSampleConfig returns 50 steps with guidance scale 2.0.
func DefaultSampleConfig() SampleConfig {
	return SampleConfig{
		Steps:         50,
		GuidanceScale: 2.0,
	}
}

// Trajectory is the ordered sequence of sampler states. Element 0 is the
// initial noise and the last element is the denoised batch.
type Trajectory []*tensor.Tensor

// Final returns the last state, or nil for an empty trajectory.
func (tr Trajectory) Final() *tensor.Tensor {
	if len(tr) == 0 {
		return nil
	}
	return tr[len(tr)-1]
}

// Sampler integrates the learned reverse-time ODE.
type Sampler struct {
	predictor Predictor
	config    SampleConfig
}

// NewSampler creates a Sampler. The config is validated on every Sample.
func NewSampler(predictor Predictor, config SampleConfig) *Sampler {
	return &Sampler{predictor: predictor, config: config}
}

// Config returns the sampler configuration.
func (s *Sampler) Config() SampleConfig {
	return s.config
}

// Sample runs the sampler with its configured steps and guidance scale.
// See Sample for semantics.
func (s *Sampler) Sample(ctx context.Context, noise *tensor.Tensor, cond, null Condition) (Trajectory, error) {
	return Sample(ctx, s.predictor, noise, cond, null, s.config)
}

// Sample integrates from t = 1 down to t = 0 with fixed-step explicit Euler.
//
// For i = Steps..1 with t = i/Steps and dt = 1/Steps:
//
//	vc = Predict(z, t, cond)
//	v  = Guide(vc, Predict(z, t, null), scale)   if null != nil
//	v  = vc                                       otherwise
//	z  = z - dt*v
//
// The predictor is never queried at t = 0; the final state is the output of
// the last update. The returned trajectory holds Steps+1 states.
//
// Errors: ErrInvalidStepCount for Steps <= 0 and ErrShapeMismatch for
// misaligned inputs, both before any predictor call. A predictor error or a
// cancelled ctx (checked between steps) aborts the run and no trajectory is
// returned.
func Sample(ctx context.Context, predictor Predictor, noise *tensor.Tensor, cond, null Condition, config SampleConfig) (Trajectory, error) {
	if config.Steps <= 0 {
		return nil, ErrInvalidStepCount
	}
	if err := validateBatch(noise, cond); err != nil {
		return nil, err
	}
	if null != nil && null.Len() != noise.Len() {
		return nil, shapeErr("null condition", noise.Len(), null.Len())
	}

	b := noise.Len()
	steps := config.Steps
	dt := 1.0 / float64(steps)

	z := noise.Clone()
	traj := make(Trajectory, 0, steps+1)
	traj = append(traj, z)

	for i := steps; i >= 1; i-- {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		t := make([]float64, b)
		ti := float64(i) / float64(steps)
		for j := range t {
			t[j] = ti
		}

		v, err := velocity(predictor, z, t, cond, null, config.GuidanceScale)
		if err != nil {
			return nil, err
		}

		z = tensor.AddScaled(z, -dt, v)
		traj = append(traj, z)

		if config.Progress != nil {
			config.Progress(steps-i+1, steps)
		}
	}

	return traj, nil
}

// velocity returns the (optionally guided) velocity at state z.
func velocity(predictor Predictor, z *tensor.Tensor, t []float64, cond, null Condition, scale float64) (*tensor.Tensor, error) {
	vc, err := predictor.Predict(z, t, cond)
	if err != nil {
		return nil, err
	}
	if vc == nil || !vc.Shape().Equal(z.Shape()) {
		return nil, shapeErr("velocity", z.Shape(), shapeOf(vc))
	}
	if null == nil {
		return vc, nil
	}

	uncondT := make([]float64, len(t))
	copy(uncondT, t)
	vu, err := predictor.Predict(z, uncondT, null)
	if err != nil {
		return nil, err
	}
	if vu == nil || !vu.Shape().Equal(z.Shape()) {
		return nil, shapeErr("unconditional velocity", z.Shape(), shapeOf(vu))
	}
	return Guide(vc, vu, scale), nil
}

// Guide applies classifier-free guidance: vu + scale*(vc - vu).
//
// It is evaluated as scale*vc + (1-scale)*vu, so scale = 1 returns vc
// exactly and scale = 0 returns vu exactly.
func Guide(vc, vu *tensor.Tensor, scale float64) *tensor.Tensor {
	return tensor.AddScaled(tensor.Scale(vc, scale), 1-scale, vu)
}
