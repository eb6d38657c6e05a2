// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package flow provides Rectified Flow training objectives and guided
// sampling.
//
// Training regresses a velocity predictor onto the straight path between
// data x (t = 0) and Gaussian noise z (t = 1):
//
//	zt     = (1 - t)*x + t*z
//	target = z - x
//	loss   = mean((Predict(zt, t, cond) - target)^2)
//
// Sampling integrates the learned ODE from noise back to data with
// fixed-step Euler and optional classifier-free guidance.
//
// Example:
//
//	engine := flow.NewEngine(model, flow.EngineConfig{Seed: 42})
//	loss, err := engine.ComputeLoss(x, flow.Labels(labels))
//	...
//	traj, err := flow.Sample(ctx, model, noise, cond, null, flow.DefaultSampleConfig())
//	images := traj.Final()
package flow

import (
	"context"
	"math/rand/v2"

	"github.com/born-ml/rectflow/internal/flow"
	"github.com/born-ml/rectflow/internal/tensor"
)

// Errors.
var (
	ErrShapeMismatch    = flow.ErrShapeMismatch
	ErrInvalidStepCount = flow.ErrInvalidStepCount
)

// ShapeError describes which operand disagreed in shape.
type ShapeError = flow.ShapeError

// Conditioning

// Condition is a batch of per-example conditioning values.
type Condition = flow.Condition

// Labels is a Condition of integer class ids.
type Labels = flow.Labels

// Fill returns n copies of class id, e.g. a batch of null labels.
func Fill(id, n int) Labels {
	return flow.Fill(id, n)
}

// Predictor estimates the velocity field.
type Predictor = flow.Predictor

// PredictorFunc adapts an ordinary function to Predictor.
type PredictorFunc = flow.PredictorFunc

// Training

// TimePolicy selects how training times are drawn.
type TimePolicy = flow.TimePolicy

// Time policies.
const (
	TimeLogitNormal = flow.TimeLogitNormal
	TimeUniform     = flow.TimeUniform
)

// ParseTimePolicy parses "logit-normal" or "uniform".
func ParseTimePolicy(s string) (TimePolicy, error) {
	return flow.ParseTimePolicy(s)
}

// SampleTimes draws n training times strictly inside (0, 1).
func SampleTimes(policy TimePolicy, n int, src rand.Source) []float64 {
	return flow.SampleTimes(policy, n, src)
}

// EngineConfig configures the training objective.
type EngineConfig = flow.EngineConfig

// Engine builds the Rectified Flow regression objective.
type Engine = flow.Engine

// Loss is the result of one objective evaluation.
type Loss = flow.Loss

// TimeLoss pairs an example's training time with its loss.
type TimeLoss = flow.TimeLoss

// NewEngine creates an Engine that queries predictor.
func NewEngine(predictor Predictor, config EngineConfig) *Engine {
	return flow.NewEngine(predictor, config)
}

// Interpolate returns (1 - t)*x + t*z with one t per example.
func Interpolate(x, z *tensor.Tensor, t []float64) *tensor.Tensor {
	return flow.Interpolate(x, z, t)
}

// VelocityTarget returns z - x.
func VelocityTarget(x, z *tensor.Tensor) *tensor.Tensor {
	return flow.VelocityTarget(x, z)
}

// Sampling

// SampleConfig configures the Euler sampler.
type SampleConfig = flow.SampleConfig

// Trajectory is the ordered sequence of sampler states.
type Trajectory = flow.Trajectory

// Sampler integrates the learned reverse-time ODE.
type Sampler = flow.Sampler

// DefaultSampleConfig returns 50 steps with guidance scale 2.0.
func DefaultSampleConfig() SampleConfig {
	return flow.DefaultSampleConfig()
}

// NewSampler creates a Sampler.
func NewSampler(predictor Predictor, config SampleConfig) *Sampler {
	return flow.NewSampler(predictor, config)
}

// Sample integrates from t = 1 to t = 0. null may be nil to disable
// guidance.
func Sample(ctx context.Context, predictor Predictor, noise *tensor.Tensor, cond, null Condition, config SampleConfig) (Trajectory, error) {
	return flow.Sample(ctx, predictor, noise, cond, null, config)
}

// Guide applies classifier-free guidance: vu + scale*(vc - vu).
func Guide(vc, vu *tensor.Tensor, scale float64) *tensor.Tensor {
	return flow.Guide(vc, vu, scale)
}
