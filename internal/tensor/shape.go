package tensor

import "fmt"

// Shape represents the dimensions of a tensor.
//
// Axis 0 is the batch axis; the remaining axes form the per-example shape.
type Shape []int

// NumElements returns the total number of elements in the tensor.
func (s Shape) NumElements() int {
	if len(s) == 0 {
		return 1 // Scalar has 1 element
	}
	n := 1
	for _, dim := range s {
		n *= dim
	}
	return n
}

// Validate checks if the shape is valid (all dimensions > 0).
func (s Shape) Validate() error {
	for i, dim := range s {
		if dim <= 0 {
			return fmt.Errorf("invalid dimension at index %d: %d (must be > 0)", i, dim)
		}
	}
	return nil
}

// Equal checks if two shapes are equal.
func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy of the shape.
func (s Shape) Clone() Shape {
	clone := make(Shape, len(s))
	copy(clone, s)
	return clone
}

// Batch returns the size of the batch axis, or 0 for a scalar shape.
func (s Shape) Batch() int {
	if len(s) == 0 {
		return 0
	}
	return s[0]
}

// Example returns the per-example shape (every axis after the batch axis).
//
//	Shape{16, 1, 32, 32}.Example() → Shape{1, 32, 32}
func (s Shape) Example() Shape {
	if len(s) < 2 {
		return Shape{}
	}
	return s[1:].Clone()
}

// WithBatch prepends a batch axis of size b to the shape.
func (s Shape) WithBatch(b int) Shape {
	out := make(Shape, 0, len(s)+1)
	out = append(out, b)
	return append(out, s...)
}

// String formats the shape as [d0 d1 ...].
func (s Shape) String() string {
	return fmt.Sprint([]int(s))
}
