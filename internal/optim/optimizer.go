// Package optim implements first-order optimizers over nn parameters.
//
// Gradients live on the parameters themselves (nn.Parameter.Grad), filled
// by a Trainable's Backward. A training step is:
//
//	opt.ZeroGrad()
//	loss, err := engine.ComputeLoss(x, cond)
//	model.Backward(loss.Grad)
//	opt.Step()
package optim

import (
	"github.com/born-ml/rectflow/internal/nn"
)

// Optimizer updates parameters in place from their accumulated gradients.
type Optimizer interface {
	// Step applies one update to every parameter.
	Step()

	// ZeroGrad clears all parameter gradients.
	ZeroGrad()

	// LR returns the current learning rate.
	LR() float64

	// SetLR changes the learning rate for subsequent steps.
	SetLR(lr float64)
}

func zeroGrad(params []*nn.Parameter) {
	for _, p := range params {
		p.ZeroGrad()
	}
}
