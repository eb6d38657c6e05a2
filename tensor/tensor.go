// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"math/rand/v2"

	"github.com/born-ml/rectflow/internal/tensor"
)

// Shape represents the dimensions of a tensor.
// Example: Shape{16, 1, 32, 32} is a batch of 16 single-channel 32x32 images.
type Shape = tensor.Shape

// Tensor is a dense, row-major float64 tensor.
type Tensor = tensor.Tensor

// Constructors.

// FromSlice creates a tensor that takes ownership of data.
func FromSlice(data []float64, shape Shape) (*Tensor, error) {
	return tensor.FromSlice(data, shape)
}

// MustFromSlice is FromSlice that panics on error.
func MustFromSlice(data []float64, shape Shape) *Tensor {
	return tensor.MustFromSlice(data, shape)
}

// Zeros creates a tensor filled with zeros.
func Zeros(shape Shape) *Tensor {
	return tensor.Zeros(shape)
}

// Full creates a tensor filled with value.
func Full(shape Shape, value float64) *Tensor {
	return tensor.Full(shape, value)
}

// Stack builds a batch tensor from per-example rows.
func Stack(rows [][]float64, example Shape) (*Tensor, error) {
	return tensor.Stack(rows, example)
}

// Random tensors.

// NewSource returns a PCG source. Negative seeds are replaced by a random seed.
func NewSource(seed int64) rand.Source {
	return tensor.NewSource(seed)
}

// NewStream returns an independent source per name for the same seed.
func NewStream(seed int64, name string) rand.Source {
	return tensor.NewStream(seed, name)
}

// Randn draws a tensor from N(0, 1).
func Randn(shape Shape, src rand.Source) *Tensor {
	return tensor.Randn(shape, src)
}

// Rand draws a tensor from U(0, 1).
func Rand(shape Shape, src rand.Source) *Tensor {
	return tensor.Rand(shape, src)
}

// Elementwise operations. Operand shapes must match exactly.

// Add returns a + b.
func Add(a, b *Tensor) *Tensor { return tensor.Add(a, b) }

// Sub returns a - b.
func Sub(a, b *Tensor) *Tensor { return tensor.Sub(a, b) }

// Mul returns a * b elementwise.
func Mul(a, b *Tensor) *Tensor { return tensor.Mul(a, b) }

// Scale returns c * a.
func Scale(a *Tensor, c float64) *Tensor { return tensor.Scale(a, c) }

// AddScaled returns a + alpha*b.
func AddScaled(a *Tensor, alpha float64, b *Tensor) *Tensor { return tensor.AddScaled(a, alpha, b) }

// Per-example operations.

// BroadcastBatch expands one value per example to a tensor of shape.
func BroadcastBatch(values []float64, shape Shape) *Tensor {
	return tensor.BroadcastBatch(values, shape)
}

// ScaleRows multiplies every element of example i by scales[i].
func ScaleRows(a *Tensor, scales []float64) *Tensor {
	return tensor.ScaleRows(a, scales)
}

// RowMeanSquares returns the mean of squared elements of every example.
func RowMeanSquares(a *Tensor) []float64 {
	return tensor.RowMeanSquares(a)
}
