// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optim provides gradient-based optimizers for rectflow models.
//
// Example:
//
//	opt := optim.NewAdam(model.Parameters(), optim.AdamConfig{LR: 2e-4})
//	for batch := range batches {
//	    opt.ZeroGrad()
//	    loss, _ := engine.ComputeLoss(batch.X, batch.Labels)
//	    _ = model.Backward(loss.Grad)
//	    opt.Step()
//	}
package optim

import (
	"github.com/born-ml/rectflow/internal/nn"
	"github.com/born-ml/rectflow/internal/optim"
)

// Optimizer updates parameters from their accumulated gradients.
type Optimizer = optim.Optimizer

// Adam

// Adam implements Adaptive Moment Estimation.
type Adam = optim.Adam

// AdamConfig holds Adam hyperparameters.
type AdamConfig = optim.AdamConfig

// NewAdam creates an Adam optimizer over params.
func NewAdam(params []*nn.Parameter, config AdamConfig) *Adam {
	return optim.NewAdam(params, config)
}

// SGD

// SGD implements stochastic gradient descent with optional momentum.
type SGD = optim.SGD

// SGDConfig holds SGD hyperparameters.
type SGDConfig = optim.SGDConfig

// NewSGD creates an SGD optimizer over params.
func NewSGD(params []*nn.Parameter, config SGDConfig) *SGD {
	return optim.NewSGD(params, config)
}
