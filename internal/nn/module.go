// Package nn implements the trainable velocity network used by rectflow.
//
// This package provides:
//   - Parameter: a value tensor paired with its accumulated gradient
//   - Layer: Linear and SiLU with explicit Forward/Backward over gonum matrices
//   - Sequential: a chain of layers
//   - Embedding and TimeEmbedding: class and time conditioning
//   - VelocityMLP: a conditional velocity predictor for images
//
// There is no autograd tape. Each layer caches what its backward pass
// needs during Forward, so Backward must follow the Forward it refers to.
package nn

import (
	"github.com/born-ml/rectflow/internal/tensor"
	"gonum.org/v1/gonum/mat"
)

// Module is anything that owns trainable parameters.
type Module interface {
	// Parameters returns all trainable parameters, including those of
	// nested modules. Modules without parameters return nil.
	Parameters() []*Parameter
}

// Trainable is a Module that can backpropagate a gradient with respect to
// the output of its most recent forward pass.
type Trainable interface {
	Module

	// Backward accumulates parameter gradients from grad, which must have
	// the shape of the most recent output.
	Backward(grad *tensor.Tensor) error
}

// Layer maps a [batch, in] matrix to a [batch, out] matrix.
type Layer interface {
	Module

	// Forward computes the layer output and caches its input.
	Forward(x *mat.Dense) *mat.Dense

	// Backward takes dL/dOut and returns dL/dIn, accumulating parameter
	// gradients on the way.
	Backward(dOut *mat.Dense) *mat.Dense
}
