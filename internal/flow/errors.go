package flow

import (
	"errors"
	"fmt"
)

// Sentinel errors. Predictor failures are never wrapped in these; they are
// returned exactly as the predictor produced them.
var (
	ErrShapeMismatch    = errors.New("shape mismatch")
	ErrInvalidStepCount = errors.New("invalid step count")
)

// ShapeError describes which operand disagreed in shape.
// It unwraps to ErrShapeMismatch.
type ShapeError struct {
	Operand string // e.g. "condition", "noise", "velocity"
	Want    string
	Got     string
}

// Error implements the error interface.
func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s: %s: want %s, got %s", ErrShapeMismatch, e.Operand, e.Want, e.Got)
}

// Unwrap returns ErrShapeMismatch.
func (e *ShapeError) Unwrap() error {
	return ErrShapeMismatch
}

func shapeErr(operand string, want, got any) error {
	return &ShapeError{Operand: operand, Want: fmt.Sprint(want), Got: fmt.Sprint(got)}
}
