package nn

import (
	"fmt"
	"sort"

	"github.com/born-ml/rectflow/internal/tensor"
)

// StateDict returns a copy of every parameter keyed by name.
func StateDict(m Module) map[string]*tensor.Tensor {
	params := m.Parameters()
	state := make(map[string]*tensor.Tensor, len(params))
	for _, p := range params {
		state[p.Name()] = p.Tensor().Clone()
	}
	return state
}

// LoadStateDict copies state into the module's parameters in place.
//
// Every parameter must be present with a matching shape. Extra entries are
// reported as errors too, since they usually mean the wrong architecture.
func LoadStateDict(m Module, state map[string]*tensor.Tensor) error {
	params := m.Parameters()
	seen := make(map[string]bool, len(params))

	for _, p := range params {
		src, ok := state[p.Name()]
		if !ok {
			return fmt.Errorf("missing parameter %q", p.Name())
		}
		if !src.Shape().Equal(p.Tensor().Shape()) {
			return fmt.Errorf("parameter %q: shape %v, want %v", p.Name(), src.Shape(), p.Tensor().Shape())
		}
		seen[p.Name()] = true
	}

	var extra []string
	for name := range state {
		if !seen[name] {
			extra = append(extra, name)
		}
	}
	if len(extra) > 0 {
		sort.Strings(extra)
		return fmt.Errorf("unexpected parameters: %v", extra)
	}

	for _, p := range params {
		copy(p.Tensor().Data(), state[p.Name()].Data())
	}
	return nil
}
