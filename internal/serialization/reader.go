package serialization

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"

	json "github.com/goccy/go-json"

	"github.com/born-ml/rectflow/internal/tensor"
)

// Checkpoint is a decoded SafeTensors file.
type Checkpoint struct {
	Metadata map[string]string
	Tensors  map[string]*tensor.Tensor
}

// ReadSafeTensors reads and validates a checkpoint file. The file is
// memory-mapped where the platform allows it.
func ReadSafeTensors(path string) (*Checkpoint, error) {
	//nolint:gosec // G304: checkpoint path is user supplied
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open checkpoint: %w", err)
	}
	defer func() { _ = f.Close() }()

	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat checkpoint: %w", err)
	}

	data, release, err := mapFile(f, stat.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to map checkpoint: %w", err)
	}
	defer release()

	ckpt, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ckpt, nil
}

// Decode parses a SafeTensors image. Tensor data is copied out of data.
// F64 and F32 tensors are accepted; F32 values are widened.
func Decode(data []byte) (*Checkpoint, error) {
	if len(data) < 8 {
		return nil, &ValidationError{Err: ErrInvalidHeader, Details: fmt.Sprintf("file too small: %d bytes", len(data))}
	}
	headerSize := binary.LittleEndian.Uint64(data[:8])
	if headerSize > MaxHeaderSize {
		return nil, ErrHeaderTooLarge
	}
	if 8+headerSize > uint64(len(data)) {
		return nil, &ValidationError{Err: ErrInvalidHeader, Details: "header extends beyond file"}
	}
	body := data[8+headerSize:]

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data[8:8+headerSize], &raw); err != nil {
		return nil, &ValidationError{Err: ErrInvalidHeader, Details: err.Error()}
	}

	ckpt := &Checkpoint{Metadata: map[string]string{}, Tensors: make(map[string]*tensor.Tensor, len(raw))}
	if msg, ok := raw["__metadata__"]; ok {
		if err := json.Unmarshal(msg, &ckpt.Metadata); err != nil {
			return nil, &ValidationError{Err: ErrInvalidHeader, Details: "metadata: " + err.Error()}
		}
		delete(raw, "__metadata__")
	}

	entries := make([]entry, 0, len(raw))
	for name, msg := range raw {
		var th tensorHeader
		if err := json.Unmarshal(msg, &th); err != nil {
			return nil, &ValidationError{Err: ErrInvalidHeader, Tensor: name, Details: err.Error()}
		}
		shape := make([]int, len(th.Shape))
		for i, d := range th.Shape {
			shape[i] = int(d)
		}
		entries = append(entries, entry{
			Name:  name,
			DType: th.DType,
			Shape: shape,
			Start: th.DataOffsets[0],
			End:   th.DataOffsets[1],
		})
	}
	if err := validateEntries(entries, int64(len(body))); err != nil {
		return nil, err
	}
	if err := verifyChecksum(body, ckpt.Metadata); err != nil {
		return nil, err
	}

	for _, e := range entries {
		t, err := decodeTensor(e, body[e.Start:e.End])
		if err != nil {
			return nil, err
		}
		ckpt.Tensors[e.Name] = t
	}
	return ckpt, nil
}

func decodeTensor(e entry, raw []byte) (*tensor.Tensor, error) {
	var values []float64
	switch e.DType {
	case "F64":
		values = make([]float64, len(raw)/8)
		for i := range values {
			values[i] = math.Float64frombits(binary.LittleEndian.Uint64(raw[i*8:]))
		}
	case "F32":
		values = make([]float64, len(raw)/4)
		for i := range values {
			values[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:])))
		}
	default:
		return nil, &ValidationError{Err: ErrUnsupportedDType, Tensor: e.Name, Details: e.DType}
	}

	t, err := tensor.FromSlice(values, tensor.Shape(e.Shape))
	if err != nil {
		return nil, &ValidationError{Err: ErrInvalidHeader, Tensor: e.Name, Details: err.Error()}
	}
	return t, nil
}
