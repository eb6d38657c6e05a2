package serialization

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	json "github.com/goccy/go-json"

	"github.com/born-ml/rectflow/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testState() map[string]*tensor.Tensor {
	return map[string]*tensor.Tensor{
		"fc1.weight": tensor.MustFromSlice([]float64{1, -2, 3.5, math.Pi, 0, -0.25}, tensor.Shape{2, 3}),
		"fc1.bias":   tensor.MustFromSlice([]float64{0.5, -0.5}, tensor.Shape{2}),
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.safetensors")
	state := testState()

	require.NoError(t, WriteSafeTensors(path, state, map[string]string{"epoch": "3"}))

	ckpt, err := ReadSafeTensors(path)
	require.NoError(t, err)

	assert.Equal(t, "3", ckpt.Metadata["epoch"])
	assert.NotEmpty(t, ckpt.Metadata[MetadataChecksum])
	require.Len(t, ckpt.Tensors, 2)
	for name, want := range state {
		assert.True(t, want.Equal(ckpt.Tensors[name]), name)
	}

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temporary file must be renamed")
}

func TestEncodeLayout(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, testState(), nil))
	data := buf.Bytes()

	headerSize := binary.LittleEndian.Uint64(data[:8])
	assert.Zero(t, (8+headerSize)%8, "data section must be 8-byte aligned")

	var header map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data[8:8+headerSize], &header))

	var bias tensorHeader
	require.NoError(t, json.Unmarshal(header["fc1.bias"], &bias))
	assert.Equal(t, "F64", bias.DType)
	assert.Equal(t, []int64{2}, bias.Shape)
	// Names are sorted: fc1.bias precedes fc1.weight.
	assert.Equal(t, [2]int64{0, 16}, bias.DataOffsets)

	assert.Equal(t, uint64(len(data)), 8+headerSize+8*8)
}

func TestDecodeF32(t *testing.T) {
	body := make([]byte, 0, 8)
	body = binary.LittleEndian.AppendUint32(body, math.Float32bits(1.5))
	body = binary.LittleEndian.AppendUint32(body, math.Float32bits(-2))
	header := []byte(`{"w":{"dtype":"F32","shape":[2],"data_offsets":[0,8]}}`)

	ckpt, err := Decode(image(header, body))
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, -2}, ckpt.Tensors["w"].Data())
	assert.Empty(t, ckpt.Metadata)
}

func TestDecodeErrors(t *testing.T) {
	eight := make([]byte, 8)
	sixteen := make([]byte, 16)

	tests := []struct {
		name   string
		data   []byte
		target error
	}{
		{"too small", []byte{1, 2}, ErrInvalidHeader},
		{"header past end", image([]byte(`{}`), nil)[:9], ErrInvalidHeader},
		{"bad json", image([]byte(`{not json`), nil), ErrInvalidHeader},
		{"dtype", image([]byte(`{"w":{"dtype":"I8","shape":[8],"data_offsets":[0,8]}}`), eight), ErrUnsupportedDType},
		{"size mismatch", image([]byte(`{"w":{"dtype":"F64","shape":[2],"data_offsets":[0,8]}}`), eight), ErrInvalidHeader},
		{"out of bounds", image([]byte(`{"w":{"dtype":"F64","shape":[2],"data_offsets":[0,16]}}`), eight), ErrOutOfBounds},
		{"zero dim", image([]byte(`{"w":{"dtype":"F64","shape":[0],"data_offsets":[0,0]}}`), nil), ErrInvalidHeader},
		{"overlap", image([]byte(`{"a":{"dtype":"F64","shape":[1],"data_offsets":[0,8]},"b":{"dtype":"F64","shape":[1],"data_offsets":[0,8]}}`), sixteen), ErrOffsetOverlap},
		{"checksum", image([]byte(`{"__metadata__":{"rectflow.sha256":"00"},"w":{"dtype":"F64","shape":[1],"data_offsets":[0,8]}}`), eight), ErrChecksumMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.data)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.target)
		})
	}
}

func TestHeaderTooLarge(t *testing.T) {
	data := make([]byte, 8)
	binary.LittleEndian.PutUint64(data, MaxHeaderSize+1)
	_, err := Decode(data)
	assert.ErrorIs(t, err, ErrHeaderTooLarge)
}

func TestCorruptedDataDetected(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, testState(), nil))
	data := buf.Bytes()
	data[len(data)-1] ^= 0xff

	_, err := Decode(data)
	assert.ErrorIs(t, err, ErrChecksumMismatch)
}

func TestInvalidNamesRejected(t *testing.T) {
	var buf bytes.Buffer
	err := Encode(&buf, map[string]*tensor.Tensor{"": tensor.Zeros(tensor.Shape{1})}, nil)
	assert.ErrorIs(t, err, ErrInvalidTensorName)

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Error(), "empty name")
}

func TestReadMissingFile(t *testing.T) {
	_, err := ReadSafeTensors(filepath.Join(t.TempDir(), "missing.safetensors"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

// image assembles a SafeTensors byte image from a header and data section.
func image(header, body []byte) []byte {
	out := binary.LittleEndian.AppendUint64(nil, uint64(len(header)))
	out = append(out, header...)
	return append(out, body...)
}
