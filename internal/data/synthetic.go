package data

import (
	"fmt"
	"math/rand/v2"

	"github.com/born-ml/rectflow/internal/tensor"
	"gonum.org/v1/gonum/stat/distuv"
)

// Synthetic generates a class-conditional toy dataset of size x size
// single-channel images, for smoke tests and demos without MNIST files.
//
// Class k draws a bright horizontal band whose vertical position depends
// on k, plus Gaussian pixel noise. Values are clamped to [-1, 1].
func Synthetic(n, numClasses, size int, src rand.Source) (*InMemory, error) {
	if n <= 0 || numClasses <= 0 || size < numClasses {
		return nil, fmt.Errorf("synthetic: need n > 0 and size >= classes, got n=%d classes=%d size=%d", n, numClasses, size)
	}
	noise := distuv.Normal{Mu: 0, Sigma: 0.1, Src: src}

	band := max(size/numClasses, 1)
	rows := make([][]float64, n)
	labels := make([]int, n)
	for i := range rows {
		label := i % numClasses
		top := label * (size - band) / max(numClasses-1, 1)

		row := make([]float64, size*size)
		for y := range size {
			base := -1.0
			if y >= top && y < top+band {
				base = 1.0
			}
			for x := range size {
				row[y*size+x] = clamp(base+noise.Rand(), -1, 1)
			}
		}
		rows[i] = row
		labels[i] = label
	}
	return NewInMemory(tensor.Shape{1, size, size}, numClasses, rows, labels)
}

func clamp(v, lo, hi float64) float64 {
	return min(max(v, lo), hi)
}
