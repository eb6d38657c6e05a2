package data

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/born-ml/rectflow/internal/tensor"
)

// ErrInvalidCSV is returned for malformed MNIST CSV input.
var ErrInvalidCSV = errors.New("invalid mnist csv")

// LoadMNISTCSV reads a Kaggle-style MNIST CSV file:
//
//	label,pixel0,pixel1,...,pixel783
//	5,0,0,12,...,0
//
// Images are square, padded by 2 pixels and normalized like LoadMNIST.
func LoadMNISTCSV(path string, maxSamples int) (*InMemory, error) {
	f, err := os.Open(path) //nolint:gosec // G304: dataset path is user supplied
	if err != nil {
		return nil, fmt.Errorf("failed to open csv: %w", err)
	}
	defer func() { _ = f.Close() }()
	return ReadMNISTCSV(f, maxSamples)
}

// ReadMNISTCSV parses MNIST CSV records from r. The first row is a header.
func ReadMNISTCSV(r io.Reader, maxSamples int) (*InMemory, error) {
	reader := csv.NewReader(r)
	reader.ReuseRecord = true

	if _, err := reader.Read(); err != nil {
		return nil, fmt.Errorf("%w: missing header: %v", ErrInvalidCSV, err)
	}

	const pad = 2
	var (
		rows   [][]float64
		labels []int
		side   int
	)
	for line := 2; maxSamples <= 0 || len(rows) < maxSamples; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCSV, err)
		}

		if side == 0 {
			side = int(math.Sqrt(float64(len(record) - 1)))
			if side == 0 || side*side != len(record)-1 {
				return nil, fmt.Errorf("%w: line %d: %d pixels is not a square image", ErrInvalidCSV, line, len(record)-1)
			}
		}
		if len(record) != side*side+1 {
			return nil, fmt.Errorf("%w: line %d: got %d fields, want %d", ErrInvalidCSV, line, len(record), side*side+1)
		}

		label, err := strconv.Atoi(record[0])
		if err != nil || label < 0 || label > 9 {
			return nil, fmt.Errorf("%w: line %d: invalid label %q", ErrInvalidCSV, line, record[0])
		}

		pixels := make([]byte, side*side)
		for j := range pixels {
			p, err := strconv.Atoi(record[j+1])
			if err != nil || p < 0 || p > 255 {
				return nil, fmt.Errorf("%w: line %d column %d: invalid pixel %q", ErrInvalidCSV, line, j+2, record[j+1])
			}
			pixels[j] = byte(p)
		}

		rows = append(rows, Pad(pixels, side, side, pad))
		labels = append(labels, label)
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no records", ErrInvalidCSV)
	}
	return NewInMemory(tensor.Shape{1, side + 2*pad, side + 2*pad}, 10, rows, labels)
}
