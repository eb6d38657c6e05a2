package serialization

import (
	"fmt"
	"sort"
	"strings"
)

// Validation limits.
const (
	MaxHeaderSize    = 100 * 1024 * 1024 // 100MB
	MaxTensorCount   = 100_000
	MaxTensorNameLen = 4096
)

// entry is one parsed header record.
type entry struct {
	Name  string
	DType string
	Shape []int
	Start int64
	End   int64
}

// validateEntries checks names, dtypes, sizes, bounds, and that no two
// tensors share bytes.
func validateEntries(entries []entry, dataSize int64) error {
	if len(entries) > MaxTensorCount {
		return &ValidationError{Err: ErrInvalidHeader, Details: fmt.Sprintf("%d tensors, max %d", len(entries), MaxTensorCount)}
	}

	for _, e := range entries {
		if err := validateName(e.Name); err != nil {
			return err
		}
		size, ok := dtypeSize(e.DType)
		if !ok {
			return &ValidationError{Err: ErrUnsupportedDType, Tensor: e.Name, Details: e.DType}
		}
		n := int64(1)
		for _, d := range e.Shape {
			if d <= 0 {
				return &ValidationError{Err: ErrInvalidHeader, Tensor: e.Name, Details: fmt.Sprintf("invalid dim %d", d)}
			}
			n *= int64(d)
		}
		if e.Start < 0 || e.End < e.Start {
			return &ValidationError{Err: ErrInvalidHeader, Tensor: e.Name, Details: fmt.Sprintf("offsets [%d, %d)", e.Start, e.End)}
		}
		if e.End-e.Start != n*size {
			return &ValidationError{Err: ErrInvalidHeader, Tensor: e.Name,
				Details: fmt.Sprintf("%d bytes for %d elements of %s", e.End-e.Start, n, e.DType)}
		}
		if e.End > dataSize {
			return &ValidationError{Err: ErrOutOfBounds, Tensor: e.Name,
				Details: fmt.Sprintf("end %d > data size %d", e.End, dataSize)}
		}
	}

	sorted := make([]entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })
	for i := 1; i < len(sorted); i++ {
		prev, cur := sorted[i-1], sorted[i]
		if prev.End > cur.Start {
			return &ValidationError{Err: ErrOffsetOverlap, Tensor: prev.Name, Tensor2: cur.Name,
				Details: fmt.Sprintf("[%d-%d] and [%d-%d]", prev.Start, prev.End, cur.Start, cur.End)}
		}
	}
	return nil
}

func validateName(name string) error {
	switch {
	case name == "":
		return &ValidationError{Err: ErrInvalidTensorName, Details: "empty name"}
	case len(name) > MaxTensorNameLen:
		return &ValidationError{Err: ErrInvalidTensorName, Tensor: name[:32] + "...", Details: "name too long"}
	case strings.ContainsAny(name, "\x00\n"):
		return &ValidationError{Err: ErrInvalidTensorName, Tensor: name, Details: "control characters"}
	}
	return nil
}

// dtypeSize returns the element size of a supported dtype.
func dtypeSize(dtype string) (int64, bool) {
	switch dtype {
	case "F64":
		return 8, true
	case "F32":
		return 4, true
	default:
		return 0, false
	}
}
