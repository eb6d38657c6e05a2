package data

import (
	"iter"
	"math/rand/v2"

	"github.com/born-ml/rectflow/internal/flow"
	"github.com/born-ml/rectflow/internal/tensor"
)

// Batch is one minibatch.
type Batch struct {
	X      *tensor.Tensor // [B, example...]
	Labels flow.Labels
}

// LoaderConfig controls batching.
type LoaderConfig struct {
	BatchSize int
	Shuffle   bool
	DropLast  bool // Skip a final batch smaller than BatchSize.
}

// Loader yields minibatches from a Dataset.
type Loader struct {
	ds  Dataset
	cfg LoaderConfig
	rng *rand.Rand
}

// NewLoader creates a Loader. src drives shuffling.
func NewLoader(ds Dataset, cfg LoaderConfig, src rand.Source) *Loader {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1
	}
	return &Loader{ds: ds, cfg: cfg, rng: rand.New(src)}
}

// NumBatches returns the number of batches per epoch.
func (l *Loader) NumBatches() int {
	n := l.ds.Len() / l.cfg.BatchSize
	if !l.cfg.DropLast && l.ds.Len()%l.cfg.BatchSize != 0 {
		n++
	}
	return n
}

// Epoch returns the batches of one pass over the dataset. Each call
// reshuffles when shuffling is enabled.
func (l *Loader) Epoch() iter.Seq[Batch] {
	order := make([]int, l.ds.Len())
	for i := range order {
		order[i] = i
	}
	if l.cfg.Shuffle {
		l.rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	}

	return func(yield func(Batch) bool) {
		example := l.ds.Example()
		for start := 0; start < len(order); start += l.cfg.BatchSize {
			end := min(start+l.cfg.BatchSize, len(order))
			if l.cfg.DropLast && end-start < l.cfg.BatchSize {
				return
			}

			rows := make([][]float64, 0, end-start)
			labels := make(flow.Labels, 0, end-start)
			for _, idx := range order[start:end] {
				row, label := l.ds.At(idx)
				rows = append(rows, row)
				labels = append(labels, label)
			}

			x, err := tensor.Stack(rows, example)
			if err != nil {
				panic(err) // Dataset rows are validated on construction
			}
			if !yield(Batch{X: x, Labels: labels}) {
				return
			}
		}
	}
}
