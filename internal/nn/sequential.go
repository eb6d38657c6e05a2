package nn

import (
	"gonum.org/v1/gonum/mat"
)

// Sequential chains layers; each output feeds the next layer.
//
// Example:
//
//	body := nn.NewSequential(
//	    nn.NewLinear("fc1", 96, 256, src),
//	    nn.NewSiLU(par),
//	    nn.NewLinear("fc2", 256, 64, src),
//	)
type Sequential struct {
	layers []Layer
}

// NewSequential creates a Sequential from layers.
func NewSequential(layers ...Layer) *Sequential {
	return &Sequential{layers: layers}
}

// Forward applies all layers in order.
func (s *Sequential) Forward(x *mat.Dense) *mat.Dense {
	for _, l := range s.layers {
		x = l.Forward(x)
	}
	return x
}

// Backward runs the layers' backward passes in reverse order.
func (s *Sequential) Backward(dOut *mat.Dense) *mat.Dense {
	for i := len(s.layers) - 1; i >= 0; i-- {
		dOut = s.layers[i].Backward(dOut)
	}
	return dOut
}

// Parameters collects the parameters of all layers in order.
func (s *Sequential) Parameters() []*Parameter {
	var params []*Parameter
	for _, l := range s.layers {
		params = append(params, l.Parameters()...)
	}
	return params
}

// Layers returns the chained layers.
func (s *Sequential) Layers() []Layer {
	return s.layers
}
