package optim

import (
	"math"

	"github.com/born-ml/rectflow/internal/nn"
)

// Adam implements Adaptive Moment Estimation (Kingma & Ba, 2014).
//
//	m_t   = beta1*m + (1-beta1)*g
//	v_t   = beta2*v + (1-beta2)*g^2
//	param = param - lr * (m_t/(1-beta1^t)) / (sqrt(v_t/(1-beta2^t)) + eps)
type Adam struct {
	params []*nn.Parameter
	lr     float64
	beta1  float64
	beta2  float64
	eps    float64
	t      int
	m      map[*nn.Parameter][]float64
	v      map[*nn.Parameter][]float64
}

// AdamConfig holds Adam hyperparameters. Zero fields take the defaults
// LR 2e-4, Betas [0.9, 0.999], Eps 1e-8.
type AdamConfig struct {
	LR    float64
	Betas [2]float64
	Eps   float64
}

// NewAdam creates an Adam optimizer over params.
func NewAdam(params []*nn.Parameter, config AdamConfig) *Adam {
	if config.LR == 0 {
		config.LR = 2e-4
	}
	if config.Betas[0] == 0 {
		config.Betas[0] = 0.9
	}
	if config.Betas[1] == 0 {
		config.Betas[1] = 0.999
	}
	if config.Eps == 0 {
		config.Eps = 1e-8
	}

	return &Adam{
		params: params,
		lr:     config.LR,
		beta1:  config.Betas[0],
		beta2:  config.Betas[1],
		eps:    config.Eps,
		m:      make(map[*nn.Parameter][]float64, len(params)),
		v:      make(map[*nn.Parameter][]float64, len(params)),
	}
}

// Step performs one Adam update.
func (a *Adam) Step() {
	a.t++
	bc1 := 1 - math.Pow(a.beta1, float64(a.t))
	bc2 := 1 - math.Pow(a.beta2, float64(a.t))

	for _, p := range a.params {
		value := p.Tensor().Data()
		grad := p.Grad().Data()

		m, ok := a.m[p]
		if !ok {
			m = make([]float64, len(value))
			a.m[p] = m
		}
		v, ok := a.v[p]
		if !ok {
			v = make([]float64, len(value))
			a.v[p] = v
		}

		for i, g := range grad {
			m[i] = a.beta1*m[i] + (1-a.beta1)*g
			v[i] = a.beta2*v[i] + (1-a.beta2)*g*g
			value[i] -= a.lr * (m[i] / bc1) / (math.Sqrt(v[i]/bc2) + a.eps)
		}
	}
}

// ZeroGrad clears all parameter gradients.
func (a *Adam) ZeroGrad() { zeroGrad(a.params) }

// LR returns the learning rate.
func (a *Adam) LR() float64 { return a.lr }

// SetLR sets the learning rate.
func (a *Adam) SetLR(lr float64) { a.lr = lr }

// Steps returns the number of updates applied so far.
func (a *Adam) Steps() int { return a.t }
