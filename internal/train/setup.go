package train

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/born-ml/rectflow/internal/config"
	"github.com/born-ml/rectflow/internal/data"
	"github.com/born-ml/rectflow/internal/flow"
	"github.com/born-ml/rectflow/internal/logger"
	"github.com/born-ml/rectflow/internal/nn"
	"github.com/born-ml/rectflow/internal/optim"
	"github.com/born-ml/rectflow/internal/tensor"
)

// defaultSyntheticSize is the synthetic dataset size when max_samples is 0.
const defaultSyntheticSize = 1024

// Random streams derived from train.seed, one per consumer.
const (
	streamShuffle   = "train.shuffle"
	streamSynthetic = "train.synthetic"
	streamSample    = "train.sample"
)

// FromConfig loads the dataset and builds the model, optimizer and loader
// described by cfg. The resolved config is written to the output dir.
func FromConfig(cfg *config.Config, log logger.Logger) (*Trainer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Discard()
	}

	ds, err := LoadDataset(cfg)
	if err != nil {
		return nil, err
	}

	mlpCfg := cfg.MLP()
	if !ds.Example().Equal(mlpCfg.Example) {
		return nil, fmt.Errorf("dataset example shape %v does not match model shape %v", ds.Example(), mlpCfg.Example)
	}
	if ds.NumClasses() > mlpCfg.NumClasses {
		return nil, fmt.Errorf("dataset has %d classes, model only %d", ds.NumClasses(), mlpCfg.NumClasses)
	}

	model, err := nn.NewVelocityMLP(mlpCfg)
	if err != nil {
		return nil, err
	}
	opt := NewOptimizer(cfg, model)

	loader := data.NewLoader(ds, data.LoaderConfig{
		BatchSize: cfg.Train.BatchSize,
		Shuffle:   true,
		DropLast:  true,
	}, tensor.NewStream(cfg.Train.Seed, streamShuffle))

	if cfg.Train.OutputDir != "" {
		if err := writeConfig(cfg); err != nil {
			return nil, err
		}
	}

	log.Info("dataset loaded",
		"dataset", cfg.Train.Dataset,
		"examples", ds.Len(),
		"shape", ds.Example().String(),
		"params", countParams(model),
	)

	return New(model, opt, loader, Config{
		Epochs:      cfg.Train.Epochs,
		LogEvery:    cfg.Train.LogEvery,
		OutputDir:   cfg.Train.OutputDir,
		Checkpoint:  cfg.Train.Checkpoint,
		SampleCount: cfg.Train.SampleCount,
		NRow:        cfg.Sample.NRow,
		Sample:      cfg.SampleDefaults(),
		Engine: flow.EngineConfig{
			TimePolicy: cfg.Train.TimePolicy,
			Seed:       cfg.Train.Seed,
		},
	}, log), nil
}

// LoadDataset returns the training set named by cfg.Train.Dataset.
func LoadDataset(cfg *config.Config) (data.Dataset, error) {
	switch cfg.Train.Dataset {
	case config.DatasetMNIST:
		return data.LoadMNIST(cfg.Train.DataDir, true, cfg.Train.MaxSamples)
	case config.DatasetMNISTCSV:
		path := cfg.Train.DataDir
		if filepath.Ext(path) != ".csv" {
			path = filepath.Join(path, "mnist_train.csv")
		}
		return data.LoadMNISTCSV(path, cfg.Train.MaxSamples)
	case config.DatasetSynthetic:
		shape := cfg.Model.Shape
		if len(shape) != 3 || shape[0] != 1 || shape[1] != shape[2] {
			return nil, fmt.Errorf("synthetic data needs a square [1, N, N] model shape, got %v", shape)
		}
		n := cfg.Train.MaxSamples
		if n == 0 {
			n = defaultSyntheticSize
		}
		return data.Synthetic(n, cfg.Model.NumClasses, shape[1], tensor.NewStream(cfg.Train.Seed, streamSynthetic))
	default:
		return nil, fmt.Errorf("unknown dataset %q", cfg.Train.Dataset)
	}
}

// NewOptimizer builds the optimizer named by cfg.Train.Optimizer.
func NewOptimizer(cfg *config.Config, model nn.Module) optim.Optimizer {
	if cfg.Train.Optimizer == config.OptimizerSGD {
		return optim.NewSGD(model.Parameters(), optim.SGDConfig{LR: cfg.Train.LR, Momentum: cfg.Train.Momentum})
	}
	return optim.NewAdam(model.Parameters(), optim.AdamConfig{LR: cfg.Train.LR})
}

func writeConfig(cfg *config.Config) error {
	if err := os.MkdirAll(cfg.Train.OutputDir, 0o750); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(cfg.Train.OutputDir, "config.yaml")
	f, err := os.Create(path) //nolint:gosec // G304: output path is user supplied
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := cfg.Write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func countParams(m nn.Module) int {
	n := 0
	for _, p := range m.Parameters() {
		n += p.Tensor().NumElements()
	}
	return n
}
