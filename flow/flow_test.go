// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package flow_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/rectflow/flow"
	"github.com/born-ml/rectflow/tensor"
)

// TestTrainAndSampleWithFacade runs the loss and the sampler through the
// public API with a predictor that always returns the exact velocity of a
// single fixed data point.
func TestTrainAndSampleWithFacade(t *testing.T) {
	x := tensor.MustFromSlice([]float64{0.5, -0.5}, tensor.Shape{1, 2})

	// For the path from x to z, the velocity at (zt, t) is (zt - x) / t.
	exact := flow.PredictorFunc(func(zt *tensor.Tensor, times []float64, _ flow.Condition) (*tensor.Tensor, error) {
		inv := make([]float64, len(times))
		for i, v := range times {
			inv[i] = 1 / v
		}
		return tensor.ScaleRows(tensor.Sub(zt, x), inv), nil
	})

	engine := flow.NewEngine(exact, flow.EngineConfig{Seed: 3})
	loss, err := engine.ComputeLoss(x, flow.Labels{0})
	require.NoError(t, err)
	assert.InDelta(t, 0, loss.Value, 1e-18)
	require.Len(t, loss.Report, 1)

	noise := tensor.Randn(tensor.Shape{1, 2}, tensor.NewSource(4))
	traj, err := flow.Sample(context.Background(), exact, noise, flow.Labels{0}, nil, flow.SampleConfig{Steps: 8})
	require.NoError(t, err)
	assert.Len(t, traj, 9)
	assert.True(t, traj.Final().AllClose(x, 1e-12), "straight paths are integrated exactly")
}

func TestFacadeErrors(t *testing.T) {
	zero := flow.PredictorFunc(func(zt *tensor.Tensor, _ []float64, _ flow.Condition) (*tensor.Tensor, error) {
		return tensor.Zeros(zt.Shape()), nil
	})
	noise := tensor.Zeros(tensor.Shape{2, 1})

	_, err := flow.NewSampler(zero, flow.SampleConfig{}).Sample(context.Background(), noise, flow.Labels{0, 1}, nil)
	assert.ErrorIs(t, err, flow.ErrInvalidStepCount)

	_, err = flow.Sample(context.Background(), zero, noise, flow.Labels{0}, nil, flow.DefaultSampleConfig())
	var se *flow.ShapeError
	assert.True(t, errors.As(err, &se))
	assert.ErrorIs(t, err, flow.ErrShapeMismatch)

	policy, err := flow.ParseTimePolicy("uniform")
	require.NoError(t, err)
	assert.Equal(t, flow.TimeUniform, policy)
}
