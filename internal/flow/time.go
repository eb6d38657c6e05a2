package flow

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"

	"gonum.org/v1/gonum/stat/distuv"
)

// TimePolicy selects how training times are drawn.
type TimePolicy int

const (
	// TimeLogitNormal draws t = sigmoid(n), n ~ N(0, 1). Mass concentrates
	// around t = 0.5 while every point of (0, 1) keeps nonzero density.
	// It is the zero value and therefore the default.
	TimeLogitNormal TimePolicy = iota

	// TimeUniform draws t ~ U(0, 1).
	TimeUniform
)

// String returns the policy name used in configs and flags.
func (p TimePolicy) String() string {
	switch p {
	case TimeLogitNormal:
		return "logit-normal"
	case TimeUniform:
		return "uniform"
	default:
		return fmt.Sprintf("TimePolicy(%d)", int(p))
	}
}

// ParseTimePolicy parses "logit-normal" (alias "ln") or "uniform".
func ParseTimePolicy(s string) (TimePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "logit-normal", "logitnormal", "ln":
		return TimeLogitNormal, nil
	case "uniform", "u":
		return TimeUniform, nil
	default:
		return 0, fmt.Errorf("unknown time policy %q (want logit-normal or uniform)", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p TimePolicy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *TimePolicy) UnmarshalText(text []byte) error {
	parsed, err := ParseTimePolicy(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// SampleTimes draws n training times strictly inside (0, 1).
//
// A draw that lands exactly on 0 or 1 (U(0,1) can return 0; the sigmoid
// saturates to 1 in float64 for n > ~37) is redrawn.
func SampleTimes(policy TimePolicy, n int, src rand.Source) []float64 {
	var draw func() float64
	switch policy {
	case TimeUniform:
		u := distuv.Uniform{Min: 0, Max: 1, Src: src}
		draw = u.Rand
	default:
		normal := distuv.Normal{Mu: 0, Sigma: 1, Src: src}
		draw = func() float64 { return sigmoid(normal.Rand()) }
	}

	out := make([]float64, n)
	for i := range out {
		t := draw()
		for t <= 0 || t >= 1 {
			t = draw()
		}
		out[i] = t
	}
	return out
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
