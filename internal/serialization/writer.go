package serialization

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	json "github.com/goccy/go-json"

	"github.com/born-ml/rectflow/internal/tensor"
)

// tensorHeader is one tensor record in the JSON header.
type tensorHeader struct {
	DType       string   `json:"dtype"`
	Shape       []int64  `json:"shape"`
	DataOffsets [2]int64 `json:"data_offsets"`
}

// WriteSafeTensors writes state to path. The file is written to a temporary
// sibling first and renamed into place, so readers never see a partial
// checkpoint.
func WriteSafeTensors(path string, state map[string]*tensor.Tensor, metadata map[string]string) error {
	tmp := path + ".tmp"
	//nolint:gosec // G304: checkpoint path comes from the caller
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	w := bufio.NewWriter(f)
	if err := Encode(w, state, metadata); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to flush: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to close: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to rename: %w", err)
	}
	return nil
}

// Encode writes state in SafeTensors format to w. Tensors are stored as F64
// in name order; a data checksum is added to the metadata.
func Encode(w io.Writer, state map[string]*tensor.Tensor, metadata map[string]string) error {
	names := make([]string, 0, len(state))
	for name := range state {
		if err := validateName(name); err != nil {
			return err
		}
		names = append(names, name)
	}
	sort.Strings(names)

	var offset int64
	header := make(map[string]any, len(names)+1)
	data := make([]byte, 0)
	for _, name := range names {
		t := state[name]
		shape := t.Shape()
		dims := make([]int64, len(shape))
		for i, d := range shape {
			dims[i] = int64(d)
		}

		size := int64(t.NumElements()) * 8
		header[name] = tensorHeader{
			DType:       "F64",
			Shape:       dims,
			DataOffsets: [2]int64{offset, offset + size},
		}
		offset += size

		for _, v := range t.Data() {
			data = binary.LittleEndian.AppendUint64(data, math.Float64bits(v))
		}
	}

	meta := make(map[string]string, len(metadata)+1)
	for k, v := range metadata {
		meta[k] = v
	}
	meta[MetadataChecksum] = checksum(data)
	header["__metadata__"] = meta

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}
	// Pad the header with spaces so the data section is 8-byte aligned.
	for len(headerJSON)%8 != 0 {
		headerJSON = append(headerJSON, ' ')
	}

	if err := binary.Write(w, binary.LittleEndian, uint64(len(headerJSON))); err != nil {
		return fmt.Errorf("failed to write header size: %w", err)
	}
	if _, err := w.Write(headerJSON); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write tensor data: %w", err)
	}
	return nil
}
