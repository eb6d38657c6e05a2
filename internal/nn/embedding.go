package nn

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/born-ml/rectflow/internal/tensor"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ErrUnknownClass is returned when an index is outside the embedding table.
var ErrUnknownClass = errors.New("class id out of range")

// Embedding maps integer ids to learned vectors.
//
// Weight has shape [NumEmbed, EmbedDim] and is initialized from N(0, 1).
// Backward scatter-adds row gradients into the ids seen by the most recent
// Forward.
type Embedding struct {
	Weight   *Parameter
	NumEmbed int
	EmbedDim int

	ids []int // cached by Forward
}

// NewEmbedding creates an Embedding whose weight is named "<name>.weight".
func NewEmbedding(name string, numEmbed, embedDim int, src rand.Source) *Embedding {
	return &Embedding{
		Weight:   NewParameter(name+".weight", Normal(1, tensor.Shape{numEmbed, embedDim}, src)),
		NumEmbed: numEmbed,
		EmbedDim: embedDim,
	}
}

// Forward returns a [len(ids), EmbedDim] matrix of embedding rows.
func (e *Embedding) Forward(ids []int) (*mat.Dense, error) {
	out := mat.NewDense(len(ids), e.EmbedDim, nil)
	w := e.Weight.Tensor()
	for i, id := range ids {
		if id < 0 || id >= e.NumEmbed {
			return nil, fmt.Errorf("%w: %d not in [0, %d)", ErrUnknownClass, id, e.NumEmbed)
		}
		copy(out.RawRowView(i), w.Row(id))
	}
	e.ids = append(e.ids[:0], ids...)
	return out, nil
}

// Backward accumulates dOut row i into the gradient row of ids[i].
func (e *Embedding) Backward(dOut *mat.Dense) {
	g := e.Weight.Grad()
	for i, id := range e.ids {
		floats.Add(g.Row(id), dOut.RawRowView(i))
	}
}

// Parameters returns [weight].
func (e *Embedding) Parameters() []*Parameter {
	return []*Parameter{e.Weight}
}
