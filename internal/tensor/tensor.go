// Package tensor implements the dense float64 tensors used by rectflow.
//
// A Tensor is a row-major buffer plus a Shape. Axis 0 is always the batch
// axis, so a batch of B examples of shape S has Shape{B, S...}. The flow
// core treats tensors as values: every operation in this package returns a
// fresh tensor and never writes into its inputs.
//
// Elementwise kernels are delegated to gonum's floats package; random
// tensors are drawn through gonum's distuv distributions so callers control
// reproducibility through an explicit rand.Source.
package tensor

import (
	"fmt"
	"math"
)

// Tensor is a dense, row-major float64 tensor.
type Tensor struct {
	shape Shape
	data  []float64
}

// FromSlice creates a tensor that takes ownership of data.
//
// Returns an error if the shape is invalid or does not match len(data).
//
// Example:
//
//	x, err := tensor.FromSlice([]float64{1, 1, 1, 2, 2, 2}, tensor.Shape{2, 3})
func FromSlice(data []float64, shape Shape) (*Tensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	if len(data) != shape.NumElements() {
		return nil, fmt.Errorf("data length %d does not match shape %v (%d elements)",
			len(data), shape, shape.NumElements())
	}
	return &Tensor{shape: shape.Clone(), data: data}, nil
}

// MustFromSlice is FromSlice that panics on error. Intended for tests and
// literals whose shape is known to be valid.
func MustFromSlice(data []float64, shape Shape) *Tensor {
	t, err := FromSlice(data, shape)
	if err != nil {
		panic(err)
	}
	return t
}

// Zeros creates a tensor filled with zeros.
func Zeros(shape Shape) *Tensor {
	if err := shape.Validate(); err != nil {
		panic(err) // Callers validate shapes before allocating
	}
	return &Tensor{shape: shape.Clone(), data: make([]float64, shape.NumElements())}
}

// Full creates a tensor filled with value.
func Full(shape Shape, value float64) *Tensor {
	t := Zeros(shape)
	for i := range t.data {
		t.data[i] = value
	}
	return t
}

// Stack builds a batch tensor from per-example rows.
//
// Every row must hold exactly example.NumElements() values.
func Stack(rows [][]float64, example Shape) (*Tensor, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("stack: no rows")
	}
	n := example.NumElements()
	data := make([]float64, 0, len(rows)*n)
	for i, row := range rows {
		if len(row) != n {
			return nil, fmt.Errorf("stack: row %d has %d values, want %d", i, len(row), n)
		}
		data = append(data, row...)
	}
	return FromSlice(data, example.WithBatch(len(rows)))
}

// Shape returns a copy of the tensor shape.
func (t *Tensor) Shape() Shape {
	return t.shape.Clone()
}

// Data returns the backing slice.
//
// Writing through the returned slice mutates the tensor; only owners of a
// freshly created tensor (layers, optimizers) should do so.
func (t *Tensor) Data() []float64 {
	return t.data
}

// NumElements returns the total element count.
func (t *Tensor) NumElements() int {
	return len(t.data)
}

// Len returns the batch size (size of axis 0).
//
// Len lets a tensor of embedding rows act directly as a batch of conditions.
func (t *Tensor) Len() int {
	if t == nil {
		return 0
	}
	return t.shape.Batch()
}

// RowSize returns the number of elements per example.
func (t *Tensor) RowSize() int {
	if t.shape.Batch() == 0 {
		return 0
	}
	return len(t.data) / t.shape.Batch()
}

// Row returns a view of example i's elements.
func (t *Tensor) Row(i int) []float64 {
	n := t.RowSize()
	return t.data[i*n : (i+1)*n : (i+1)*n]
}

// Clone returns a deep copy of the tensor.
func (t *Tensor) Clone() *Tensor {
	data := make([]float64, len(t.data))
	copy(data, t.data)
	return &Tensor{shape: t.shape.Clone(), data: data}
}

// Equal reports whether both tensors have the same shape and bit-identical
// elements.
func (t *Tensor) Equal(other *Tensor) bool {
	if other == nil || !t.shape.Equal(other.shape) {
		return false
	}
	for i, v := range t.data {
		if math.Float64bits(v) != math.Float64bits(other.data[i]) {
			return false
		}
	}
	return true
}

// AllClose reports whether both tensors have the same shape and every pair
// of elements differs by at most tol.
func (t *Tensor) AllClose(other *Tensor, tol float64) bool {
	if other == nil || !t.shape.Equal(other.shape) {
		return false
	}
	for i, v := range t.data {
		if math.Abs(v-other.data[i]) > tol {
			return false
		}
	}
	return true
}

// String implements fmt.Stringer.
func (t *Tensor) String() string {
	return fmt.Sprintf("Tensor(shape=%v, data=%v)", t.shape, t.data)
}
