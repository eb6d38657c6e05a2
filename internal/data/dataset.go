// Package data loads labelled image datasets as normalized tensors.
//
// Pixels are mapped from [0, 255] to [-1, 1] with (p/255 - 0.5)/0.5, the
// range the flow model trains and samples in. MNIST digits are zero padded
// from 28x28 to 32x32.
package data

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/born-ml/rectflow/internal/tensor"
)

// Dataset is an indexable collection of labelled examples.
type Dataset interface {
	// Len returns the number of examples.
	Len() int

	// Example returns the per-example shape, e.g. [1, 32, 32].
	Example() tensor.Shape

	// NumClasses returns the number of distinct labels.
	NumClasses() int

	// At returns example i as a flat row and its label. The row must not
	// be modified.
	At(i int) ([]float64, int)
}

// InMemory is a Dataset held fully in memory.
type InMemory struct {
	example    tensor.Shape
	numClasses int
	rows       [][]float64
	labels     []int
}

// NewInMemory creates a dataset from flat rows. Every row must hold
// example.NumElements() values and every label must lie in [0, numClasses).
func NewInMemory(example tensor.Shape, numClasses int, rows [][]float64, labels []int) (*InMemory, error) {
	if len(rows) != len(labels) {
		return nil, fmt.Errorf("%d rows but %d labels", len(rows), len(labels))
	}
	n := example.NumElements()
	for i, row := range rows {
		if len(row) != n {
			return nil, fmt.Errorf("row %d has %d values, want %d", i, len(row), n)
		}
		if labels[i] < 0 || labels[i] >= numClasses {
			return nil, fmt.Errorf("label %d of row %d not in [0, %d)", labels[i], i, numClasses)
		}
	}
	return &InMemory{example: example.Clone(), numClasses: numClasses, rows: rows, labels: labels}, nil
}

// Len implements Dataset.
func (d *InMemory) Len() int { return len(d.rows) }

// Example implements Dataset.
func (d *InMemory) Example() tensor.Shape { return d.example.Clone() }

// NumClasses implements Dataset.
func (d *InMemory) NumClasses() int { return d.numClasses }

// At implements Dataset.
func (d *InMemory) At(i int) ([]float64, int) { return d.rows[i], d.labels[i] }

// Normalize maps a pixel in [0, 255] to [-1, 1].
func Normalize(p byte) float64 {
	return (float64(p)/255 - 0.5) / 0.5
}

// Pad zero-pads a rows x cols image by pad pixels on every side and
// normalizes it. Padding takes the normalized value of a black pixel.
func Pad(pixels []byte, rows, cols, pad int) []float64 {
	w := cols + 2*pad
	out := make([]float64, (rows+2*pad)*w)
	black := Normalize(0)
	for i := range out {
		out[i] = black
	}
	for r := range rows {
		for c := range cols {
			out[(r+pad)*w+c+pad] = Normalize(pixels[r*cols+c])
		}
	}
	return out
}

// MNIST file names, as distributed.
const (
	trainImages = "train-images-idx3-ubyte"
	trainLabels = "train-labels-idx1-ubyte"
	testImages  = "t10k-images-idx3-ubyte"
	testLabels  = "t10k-labels-idx1-ubyte"
)

// LoadMNIST reads the MNIST training (or test) split from dir.
//
// Both plain and ".gz" files are accepted. Images are padded by 2 pixels
// to [1, 32, 32]. maxSamples > 0 truncates the split.
func LoadMNIST(dir string, train bool, maxSamples int) (*InMemory, error) {
	imgName, lblName := trainImages, trainLabels
	if !train {
		imgName, lblName = testImages, testLabels
	}

	raw, err := readImagesFile(findFile(dir, imgName))
	if err != nil {
		return nil, fmt.Errorf("failed to load images: %w", err)
	}
	labelsRaw, err := readLabelsFile(findFile(dir, lblName))
	if err != nil {
		return nil, fmt.Errorf("failed to load labels: %w", err)
	}
	if len(raw.Pixels) != len(labelsRaw) {
		return nil, fmt.Errorf("image count (%d) != label count (%d)", len(raw.Pixels), len(labelsRaw))
	}

	n := len(raw.Pixels)
	if maxSamples > 0 && n > maxSamples {
		n = maxSamples
	}

	const pad = 2
	rows := make([][]float64, n)
	labels := make([]int, n)
	for i := range n {
		rows[i] = Pad(raw.Pixels[i], raw.Rows, raw.Cols, pad)
		labels[i] = int(labelsRaw[i])
	}

	example := tensor.Shape{1, raw.Rows + 2*pad, raw.Cols + 2*pad}
	return NewInMemory(example, 10, rows, labels)
}

// findFile prefers name and falls back to name.gz when only the
// compressed file exists.
func findFile(dir, name string) string {
	plain := filepath.Join(dir, name)
	if _, err := os.Stat(plain); err == nil {
		return plain
	}
	if _, err := os.Stat(plain + ".gz"); err == nil {
		return plain + ".gz"
	}
	return plain
}

func readImagesFile(path string) (*RawImages, error) {
	f, err := openIDX(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return ReadIDXImages(f)
}

func readLabelsFile(path string) ([]byte, error) {
	f, err := openIDX(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return ReadIDXLabels(f)
}
