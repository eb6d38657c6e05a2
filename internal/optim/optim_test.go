package optim_test

import (
	"math"
	"testing"

	"github.com/born-ml/rectflow/internal/nn"
	"github.com/born-ml/rectflow/internal/optim"
	"github.com/born-ml/rectflow/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scalarParam(v float64) *nn.Parameter {
	return nn.NewParameter("x", tensor.MustFromSlice([]float64{v}, tensor.Shape{1}))
}

func TestSGDSimpleUpdate(t *testing.T) {
	p := scalarParam(2)
	opt := optim.NewSGD([]*nn.Parameter{p}, optim.SGDConfig{LR: 0.1})

	p.Grad().Data()[0] = 1
	opt.Step()

	assert.InDelta(t, 1.9, p.Tensor().Data()[0], 1e-12)
}

func TestSGDWithMomentum(t *testing.T) {
	p := scalarParam(0)
	opt := optim.NewSGD([]*nn.Parameter{p}, optim.SGDConfig{LR: 1, Momentum: 0.5})

	p.Grad().Data()[0] = 1
	opt.Step() // velocity 1, x = -1
	opt.Step() // velocity 1.5, x = -2.5

	assert.InDelta(t, -2.5, p.Tensor().Data()[0], 1e-12)
}

func TestSGDDefaultsAndLR(t *testing.T) {
	opt := optim.NewSGD(nil, optim.SGDConfig{})
	assert.Equal(t, 0.01, opt.LR())
	opt.SetLR(0.5)
	assert.Equal(t, 0.5, opt.LR())
}

func TestAdamFirstStep(t *testing.T) {
	p := scalarParam(1)
	opt := optim.NewAdam([]*nn.Parameter{p}, optim.AdamConfig{LR: 0.1})

	p.Grad().Data()[0] = 3
	opt.Step()

	// With bias correction the first step is lr * g/|g|.
	assert.InDelta(t, 0.9, p.Tensor().Data()[0], 1e-6)
	assert.Equal(t, 1, opt.Steps())
}

func TestAdamDefaults(t *testing.T) {
	opt := optim.NewAdam(nil, optim.AdamConfig{})
	assert.Equal(t, 2e-4, opt.LR())
}

func TestZeroGrad(t *testing.T) {
	p := scalarParam(1)
	for _, opt := range []optim.Optimizer{
		optim.NewSGD([]*nn.Parameter{p}, optim.SGDConfig{}),
		optim.NewAdam([]*nn.Parameter{p}, optim.AdamConfig{}),
	} {
		p.Grad().Data()[0] = 4
		opt.ZeroGrad()
		assert.Equal(t, 0.0, p.Grad().Data()[0])
	}
}

// Minimize f(x) = (x - 3)^2 with both optimizers.
func TestConvergesOnQuadratic(t *testing.T) {
	tests := map[string]func(*nn.Parameter) optim.Optimizer{
		"sgd": func(p *nn.Parameter) optim.Optimizer {
			return optim.NewSGD([]*nn.Parameter{p}, optim.SGDConfig{LR: 0.1, Momentum: 0.9})
		},
		"adam": func(p *nn.Parameter) optim.Optimizer {
			return optim.NewAdam([]*nn.Parameter{p}, optim.AdamConfig{LR: 0.1})
		},
	}

	for name, build := range tests {
		t.Run(name, func(t *testing.T) {
			p := scalarParam(0)
			opt := build(p)
			for range 1000 {
				opt.ZeroGrad()
				x := p.Tensor().Data()[0]
				p.Grad().Data()[0] = 2 * (x - 3)
				opt.Step()
			}
			require.False(t, math.IsNaN(p.Tensor().Data()[0]))
			assert.InDelta(t, 3.0, p.Tensor().Data()[0], 5e-2)
		})
	}
}
