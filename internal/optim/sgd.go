package optim

import (
	"github.com/born-ml/rectflow/internal/nn"
	"gonum.org/v1/gonum/floats"
)

// SGD implements stochastic gradient descent with optional momentum:
//
//	velocity = momentum*velocity + grad
//	param    = param - lr*velocity
type SGD struct {
	params     []*nn.Parameter
	lr         float64
	momentum   float64
	velocities map[*nn.Parameter][]float64
}

// SGDConfig holds SGD hyperparameters. A zero LR defaults to 0.01.
type SGDConfig struct {
	LR       float64
	Momentum float64 // in [0, 1)
}

// NewSGD creates an SGD optimizer over params.
func NewSGD(params []*nn.Parameter, config SGDConfig) *SGD {
	if config.LR == 0 {
		config.LR = 0.01
	}
	return &SGD{
		params:     params,
		lr:         config.LR,
		momentum:   config.Momentum,
		velocities: make(map[*nn.Parameter][]float64, len(params)),
	}
}

// Step performs one SGD update.
func (s *SGD) Step() {
	for _, p := range s.params {
		value := p.Tensor().Data()
		grad := p.Grad().Data()

		if s.momentum == 0 {
			floats.AddScaled(value, -s.lr, grad)
			continue
		}

		vel, ok := s.velocities[p]
		if !ok {
			vel = make([]float64, len(value))
			s.velocities[p] = vel
		}
		floats.Scale(s.momentum, vel)
		floats.Add(vel, grad)
		floats.AddScaled(value, -s.lr, vel)
	}
}

// ZeroGrad clears all parameter gradients.
func (s *SGD) ZeroGrad() { zeroGrad(s.params) }

// LR returns the learning rate.
func (s *SGD) LR() float64 { return s.lr }

// SetLR sets the learning rate.
func (s *SGD) SetLR(lr float64) { s.lr = lr }
