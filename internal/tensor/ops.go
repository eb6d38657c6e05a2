package tensor

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// mustMatch panics when two operands disagree in shape. Public entry points
// of the flow core validate shapes first, so this only fires on misuse.
func mustMatch(op string, a, b *Tensor) {
	if !a.shape.Equal(b.shape) {
		panic(fmt.Sprintf("%s: shape mismatch %v vs %v", op, a.shape, b.shape))
	}
}

// Add returns a + b elementwise.
func Add(a, b *Tensor) *Tensor {
	mustMatch("Add", a, b)
	out := Zeros(a.shape)
	floats.AddTo(out.data, a.data, b.data)
	return out
}

// Sub returns a - b elementwise.
func Sub(a, b *Tensor) *Tensor {
	mustMatch("Sub", a, b)
	out := Zeros(a.shape)
	floats.SubTo(out.data, a.data, b.data)
	return out
}

// Mul returns a * b elementwise.
func Mul(a, b *Tensor) *Tensor {
	mustMatch("Mul", a, b)
	out := Zeros(a.shape)
	floats.MulTo(out.data, a.data, b.data)
	return out
}

// Scale returns c * a.
func Scale(a *Tensor, c float64) *Tensor {
	out := a.Clone()
	floats.Scale(c, out.data)
	return out
}

// AddScaled returns a + alpha*b.
func AddScaled(a *Tensor, alpha float64, b *Tensor) *Tensor {
	mustMatch("AddScaled", a, b)
	out := Zeros(a.shape)
	floats.AddScaledTo(out.data, a.data, alpha, b.data)
	return out
}

// BroadcastBatch expands one scalar per example to a full tensor of shape.
//
// Broadcast rule: values[i] is repeated across every non-batch element of
// example i. len(values) must equal shape[0].
//
//	BroadcastBatch([]float64{0.2, 0.7}, Shape{2, 3}) → [[0.2 0.2 0.2] [0.7 0.7 0.7]]
func BroadcastBatch(values []float64, shape Shape) *Tensor {
	if shape.Batch() != len(values) {
		panic(fmt.Sprintf("BroadcastBatch: %d values for batch of %d", len(values), shape.Batch()))
	}
	out := Zeros(shape)
	for i, v := range values {
		row := out.Row(i)
		for j := range row {
			row[j] = v
		}
	}
	return out
}

// ScaleRows returns a with every element of example i multiplied by
// scales[i]. It equals Mul(a, BroadcastBatch(scales, a.Shape())) without
// materializing the broadcast tensor.
func ScaleRows(a *Tensor, scales []float64) *Tensor {
	if a.shape.Batch() != len(scales) {
		panic(fmt.Sprintf("ScaleRows: %d scales for batch of %d", len(scales), a.shape.Batch()))
	}
	out := a.Clone()
	for i, s := range scales {
		floats.Scale(s, out.Row(i))
	}
	return out
}

// RowMeanSquares returns, for each example, the mean of its squared
// elements.
func RowMeanSquares(a *Tensor) []float64 {
	b := a.shape.Batch()
	n := float64(a.RowSize())
	out := make([]float64, b)
	for i := range out {
		row := a.Row(i)
		out[i] = floats.Dot(row, row) / n
	}
	return out
}
