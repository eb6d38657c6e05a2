// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides the trainable velocity network for Rectified Flow.
//
// The network is a small MLP over the flattened state, sinusoidal time
// features and a learned class embedding whose last row is the null
// (unconditional) class used for classifier-free guidance.
//
// Example:
//
//	model, err := nn.NewVelocityMLP(nn.DefaultMLPConfig())
//	engine := flow.NewEngine(model, flow.EngineConfig{})
//	loss, _ := engine.ComputeLoss(x, labels)
//	_ = model.Backward(loss.Grad)
package nn

import (
	"github.com/born-ml/rectflow/internal/nn"
	"github.com/born-ml/rectflow/internal/tensor"
)

// Errors.
var (
	ErrUnknownClass = nn.ErrUnknownClass
	ErrNoForward    = nn.ErrNoForward
)

// Module is anything that owns parameters.
type Module = nn.Module

// Trainable is a module that backpropagates a gradient of its output.
type Trainable = nn.Trainable

// Parameter is a named trainable tensor with its gradient.
type Parameter = nn.Parameter

// MLPConfig describes a VelocityMLP.
type MLPConfig = nn.MLPConfig

// VelocityMLP is a class-conditional velocity predictor.
type VelocityMLP = nn.VelocityMLP

// DefaultMLPConfig returns a config for 32x32 single-channel images with
// ten classes.
func DefaultMLPConfig() MLPConfig {
	return nn.DefaultMLPConfig()
}

// NewVelocityMLP builds a network from cfg.
func NewVelocityMLP(cfg MLPConfig) (*VelocityMLP, error) {
	return nn.NewVelocityMLP(cfg)
}

// StateDict returns a copy of every parameter keyed by name.
func StateDict(m Module) map[string]*tensor.Tensor {
	return nn.StateDict(m)
}

// LoadStateDict copies state into the module's parameters.
func LoadStateDict(m Module, state map[string]*tensor.Tensor) error {
	return nn.LoadStateDict(m, state)
}
