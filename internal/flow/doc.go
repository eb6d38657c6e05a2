// Package flow implements Rectified Flow training objectives and sampling.
//
// Rectified Flow learns a velocity field v(x, t, c) that moves samples along
// the straight line between a data point x (t = 0) and Gaussian noise z
// (t = 1):
//
//	zt = (1 - t)*x + t*z        interpolant
//	z - x                       velocity target, constant in t
//
// Two components are provided, both stateless with respect to the
// predictor's parameters:
//   - Engine builds the regression loss for one training batch and reports
//     a (t, loss) pair per example for diagnostic bucketing.
//   - Sampler integrates the reverse-time ODE from t = 1 to t = 0 with
//     fixed-step explicit Euler, optionally blending conditional and
//     unconditional predictions (classifier-free guidance), and returns
//     every intermediate state.
//
// The velocity model itself is an opaque Predictor. Predictor failures are
// returned to the caller unchanged.
//
// Example:
//
//	engine := flow.NewEngine(model, flow.EngineConfig{Seed: 42})
//	loss, err := engine.ComputeLoss(images, flow.Labels(classes))
//
//	sampler := flow.NewSampler(model, flow.DefaultSampleConfig())
//	traj, err := sampler.Sample(ctx, noise, flow.Labels(classes), flow.Labels(nullClasses))
//	final := traj.Final()
package flow
