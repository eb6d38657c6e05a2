package nn

import (
	"math"
	"math/rand/v2"

	"github.com/born-ml/rectflow/internal/tensor"
	"gonum.org/v1/gonum/stat/distuv"
)

// Xavier draws weights from the Glorot uniform distribution
// U(-sqrt(6/(fanIn+fanOut)), sqrt(6/(fanIn+fanOut))).
func Xavier(fanIn, fanOut int, shape tensor.Shape, src rand.Source) *tensor.Tensor {
	bound := math.Sqrt(6.0 / float64(fanIn+fanOut))
	dist := distuv.Uniform{Min: -bound, Max: bound, Src: src}

	t := tensor.Zeros(shape)
	data := t.Data()
	for i := range data {
		data[i] = dist.Rand()
	}
	return t
}

// Normal draws weights from N(0, std^2).
func Normal(std float64, shape tensor.Shape, src rand.Source) *tensor.Tensor {
	dist := distuv.Normal{Mu: 0, Sigma: std, Src: src}

	t := tensor.Zeros(shape)
	data := t.Data()
	for i := range data {
		data[i] = dist.Rand()
	}
	return t
}
