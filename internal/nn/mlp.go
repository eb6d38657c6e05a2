package nn

import (
	"errors"
	"fmt"

	"github.com/born-ml/rectflow/internal/flow"
	"github.com/born-ml/rectflow/internal/parallel"
	"github.com/born-ml/rectflow/internal/tensor"
	"gonum.org/v1/gonum/mat"
)

// ErrNoForward is returned by Backward when no Predict preceded it.
var ErrNoForward = errors.New("backward called without a preceding forward pass")

// MLPConfig describes a VelocityMLP.
type MLPConfig struct {
	Example    tensor.Shape    // Per-example data shape, e.g. [1, 32, 32].
	NumClasses int             // Real classes; id NumClasses is the null class.
	Hidden     int             // Width of both hidden layers.
	TimeDim    int             // Sinusoidal time features (even).
	ClassDim   int             // Class embedding width.
	Seed       int64           // Initialization seed. -1 = random.
	Parallel   parallel.Config // Row parallelism for activations.
}

// DefaultMLPConfig returns a config for 32x32 single-channel images with
// ten classes.
func DefaultMLPConfig() MLPConfig {
	return MLPConfig{
		Example:    tensor.Shape{1, 32, 32},
		NumClasses: 10,
		Hidden:     256,
		TimeDim:    64,
		ClassDim:   32,
		Seed:       -1,
		Parallel:   parallel.DefaultConfig(),
	}
}

// Validate checks the config.
func (c MLPConfig) Validate() error {
	if err := c.Example.Validate(); err != nil {
		return fmt.Errorf("example shape: %w", err)
	}
	if len(c.Example) == 0 {
		return errors.New("example shape must have at least one axis")
	}
	if c.NumClasses <= 0 {
		return fmt.Errorf("num classes must be positive, got %d", c.NumClasses)
	}
	if c.Hidden <= 0 || c.ClassDim <= 0 {
		return fmt.Errorf("hidden (%d) and class dim (%d) must be positive", c.Hidden, c.ClassDim)
	}
	if c.TimeDim <= 0 || c.TimeDim%2 != 0 {
		return fmt.Errorf("time dim must be positive and even, got %d", c.TimeDim)
	}
	return nil
}

// VelocityMLP predicts a velocity from a flattened state, its time and a
// class condition:
//
//	h = [flatten(x) | time(t) | class(cond)]
//	v = Linear(SiLU(Linear(SiLU(Linear(h)))))
//
// cond may be flow.Labels (looked up in the class table, whose last row is
// the null class) or a [B, ClassDim] *tensor.Tensor used as the class
// features directly.
//
// A VelocityMLP implements flow.Predictor and Trainable. Backward refers to
// the most recent Predict, so it is not safe for concurrent use.
type VelocityMLP struct {
	cfg   MLPConfig
	dataN int

	time  *TimeEmbedding
	class *Embedding
	body  *Sequential

	last *forwardState
}

type forwardState struct {
	shape  tensor.Shape
	labels bool
}

// NewVelocityMLP builds a network from cfg.
func NewVelocityMLP(cfg MLPConfig) (*VelocityMLP, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid mlp config: %w", err)
	}
	src := tensor.NewStream(cfg.Seed, "nn.init")
	n := cfg.Example.NumElements()
	in := n + cfg.TimeDim + cfg.ClassDim

	return &VelocityMLP{
		cfg:   cfg,
		dataN: n,
		time:  NewTimeEmbedding(cfg.TimeDim, cfg.Parallel),
		class: NewEmbedding("class", cfg.NumClasses+1, cfg.ClassDim, src),
		body: NewSequential(
			NewLinear("fc1", in, cfg.Hidden, src),
			NewSiLU(cfg.Parallel),
			NewLinear("fc2", cfg.Hidden, cfg.Hidden, src),
			NewSiLU(cfg.Parallel),
			NewLinear("fc3", cfg.Hidden, n, src),
		),
	}, nil
}

// Config returns the network configuration.
func (m *VelocityMLP) Config() MLPConfig {
	return m.cfg
}

// NullClass returns the id of the unconditional class.
func (m *VelocityMLP) NullClass() int {
	return m.cfg.NumClasses
}

// Predict implements flow.Predictor.
func (m *VelocityMLP) Predict(x *tensor.Tensor, t []float64, cond flow.Condition) (*tensor.Tensor, error) {
	shape := x.Shape()
	if !shape.Example().Equal(m.cfg.Example) {
		return nil, &flow.ShapeError{Operand: "mlp input", Want: m.cfg.Example.WithBatch(x.Len()).String(), Got: shape.String()}
	}
	b := x.Len()
	if len(t) != b {
		return nil, &flow.ShapeError{Operand: "mlp time", Want: fmt.Sprint(b), Got: fmt.Sprint(len(t))}
	}

	classFeat, labels, err := m.classFeatures(cond, b)
	if err != nil {
		return nil, err
	}
	timeFeat := m.time.Forward(t)

	width := m.dataN + m.cfg.TimeDim + m.cfg.ClassDim
	h := mat.NewDense(b, width, nil)
	for i := range b {
		row := h.RawRowView(i)
		copy(row, x.Row(i))
		copy(row[m.dataN:], timeFeat.RawRowView(i))
		copy(row[m.dataN+m.cfg.TimeDim:], classFeat.RawRowView(i))
	}

	out := m.body.Forward(h)
	m.last = &forwardState{shape: shape, labels: labels}

	v, err := tensor.FromSlice(out.RawMatrix().Data, shape)
	if err != nil {
		return nil, fmt.Errorf("mlp output: %w", err)
	}
	return v, nil
}

func (m *VelocityMLP) classFeatures(cond flow.Condition, b int) (*mat.Dense, bool, error) {
	switch c := cond.(type) {
	case flow.Labels:
		if len(c) != b {
			return nil, false, &flow.ShapeError{Operand: "mlp condition", Want: fmt.Sprint(b), Got: fmt.Sprint(len(c))}
		}
		feat, err := m.class.Forward(c)
		if err != nil {
			return nil, false, err
		}
		return feat, true, nil
	case *tensor.Tensor:
		want := tensor.Shape{b, m.cfg.ClassDim}
		if c == nil || !c.Shape().Equal(want) {
			got := "nil"
			if c != nil {
				got = c.Shape().String()
			}
			return nil, false, &flow.ShapeError{Operand: "mlp condition", Want: want.String(), Got: got}
		}
		data := make([]float64, c.NumElements())
		copy(data, c.Data())
		return mat.NewDense(b, m.cfg.ClassDim, data), false, nil
	default:
		return nil, false, fmt.Errorf("unsupported condition type %T", cond)
	}
}

// Backward backpropagates dL/dv from the most recent Predict into the
// parameter gradients. The cached forward state is consumed.
func (m *VelocityMLP) Backward(grad *tensor.Tensor) error {
	if m.last == nil {
		return ErrNoForward
	}
	if grad == nil || !grad.Shape().Equal(m.last.shape) {
		got := "nil"
		if grad != nil {
			got = grad.Shape().String()
		}
		return &flow.ShapeError{Operand: "mlp gradient", Want: m.last.shape.String(), Got: got}
	}

	b := grad.Len()
	data := make([]float64, grad.NumElements())
	copy(data, grad.Data())

	dh := m.body.Backward(mat.NewDense(b, m.dataN, data))

	if m.last.labels {
		off := m.dataN + m.cfg.TimeDim
		width := m.dataN + m.cfg.TimeDim + m.cfg.ClassDim
		dClass := dh.Slice(0, b, off, width).(*mat.Dense)
		m.class.Backward(dClass)
	}
	m.last = nil
	return nil
}

// Parameters returns the class table followed by the layer parameters.
func (m *VelocityMLP) Parameters() []*Parameter {
	return append(m.class.Parameters(), m.body.Parameters()...)
}

// ZeroGrad clears every parameter gradient.
func (m *VelocityMLP) ZeroGrad() {
	for _, p := range m.Parameters() {
		p.ZeroGrad()
	}
}

var (
	_ flow.Predictor = (*VelocityMLP)(nil)
	_ Trainable      = (*VelocityMLP)(nil)
)
