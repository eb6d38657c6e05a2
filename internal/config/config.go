// Package config holds the YAML run configuration for training, sampling
// and serving.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/born-ml/rectflow/internal/flow"
	"github.com/born-ml/rectflow/internal/nn"
	"github.com/born-ml/rectflow/internal/parallel"
	"github.com/born-ml/rectflow/internal/tensor"
)

// Dataset sources.
const (
	DatasetMNIST     = "mnist"
	DatasetMNISTCSV  = "mnist-csv" // data_dir is the CSV file or a dir holding mnist_train.csv
	DatasetSynthetic = "synthetic"
)

// Optimizers.
const (
	OptimizerAdam = "adam"
	OptimizerSGD  = "sgd"
)

// Config captures every knob of a run. Missing YAML keys keep the values
// from Default.
type Config struct {
	Model  ModelConfig  `yaml:"model"`
	Train  TrainConfig  `yaml:"train"`
	Sample SampleConfig `yaml:"sample"`
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log"`
}

// ModelConfig describes the velocity network.
type ModelConfig struct {
	Shape      []int `yaml:"shape"` // per-example shape, e.g. [1, 32, 32]
	NumClasses int   `yaml:"num_classes"`
	Hidden     int   `yaml:"hidden"`
	TimeDim    int   `yaml:"time_dim"`
	ClassDim   int   `yaml:"class_dim"`
	Workers    int   `yaml:"workers"` // 0 = one per CPU, 1 = sequential
}

// TrainConfig describes a training run.
type TrainConfig struct {
	Dataset     string          `yaml:"dataset"`
	DataDir     string          `yaml:"data_dir"`
	MaxSamples  int             `yaml:"max_samples"` // 0 = all
	Epochs      int             `yaml:"epochs"`
	BatchSize   int             `yaml:"batch_size"`
	Optimizer   string          `yaml:"optimizer"`
	LR          float64         `yaml:"lr"`
	Momentum    float64         `yaml:"momentum"`
	TimePolicy  flow.TimePolicy `yaml:"time_policy"`
	Seed        int64           `yaml:"seed"`
	OutputDir   string          `yaml:"output_dir"`
	SampleCount int             `yaml:"sample_count"` // images drawn after each epoch, 0 disables
	Checkpoint  bool            `yaml:"checkpoint"`
	LogEvery    int             `yaml:"log_every"`
}

// SampleConfig holds sampler defaults.
type SampleConfig struct {
	Steps         int     `yaml:"steps"`
	GuidanceScale float64 `yaml:"guidance_scale"`
	NRow          int     `yaml:"nrow"`
}

// ServerConfig configures the HTTP sampling server.
type ServerConfig struct {
	Addr       string `yaml:"addr"`
	Checkpoint string `yaml:"checkpoint"`
	MaxBatch   int    `yaml:"max_batch"`
	MaxSteps   int    `yaml:"max_steps"`
}

// LogConfig selects the log level and format.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the MNIST configuration.
func Default() *Config {
	mlp := nn.DefaultMLPConfig()
	sample := flow.DefaultSampleConfig()
	return &Config{
		Model: ModelConfig{
			Shape:      []int(mlp.Example),
			NumClasses: mlp.NumClasses,
			Hidden:     mlp.Hidden,
			TimeDim:    mlp.TimeDim,
			ClassDim:   mlp.ClassDim,
		},
		Train: TrainConfig{
			Dataset:     DatasetMNIST,
			DataDir:     "./data/mnist",
			Epochs:      100,
			BatchSize:   256,
			Optimizer:   OptimizerAdam,
			LR:          2e-4,
			TimePolicy:  flow.TimeLogitNormal,
			Seed:        -1,
			OutputDir:   "./runs",
			SampleCount: 16,
			Checkpoint:  true,
			LogEvery:    50,
		},
		Sample: SampleConfig{
			Steps:         sample.Steps,
			GuidanceScale: sample.GuidanceScale,
			NRow:          4,
		},
		Server: ServerConfig{
			Addr:     ":8080",
			MaxBatch: 64,
			MaxSteps: 1000,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "pretty",
		},
	}
}

// Load reads a YAML file on top of Default and validates the result.
// Unknown keys are rejected.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: config path is user supplied
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}

	cfg, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML from r on top of Default without validating.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return cfg, nil
}

// Write encodes cfg as YAML.
func (c *Config) Write(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return enc.Close()
}

// MLP converts the model section into a network config.
func (c *Config) MLP() nn.MLPConfig {
	par := parallel.DefaultConfig()
	switch {
	case c.Model.Workers == 1:
		par = parallel.Sequential()
	case c.Model.Workers > 1:
		par.Workers = c.Model.Workers
	}
	return nn.MLPConfig{
		Example:    tensor.Shape(append([]int(nil), c.Model.Shape...)),
		NumClasses: c.Model.NumClasses,
		Hidden:     c.Model.Hidden,
		TimeDim:    c.Model.TimeDim,
		ClassDim:   c.Model.ClassDim,
		Seed:       c.Train.Seed,
		Parallel:   par,
	}
}

// SampleDefaults converts the sample section into a sampler config.
func (c *Config) SampleDefaults() flow.SampleConfig {
	return flow.SampleConfig{Steps: c.Sample.Steps, GuidanceScale: c.Sample.GuidanceScale}
}
