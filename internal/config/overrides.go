package config

import "github.com/born-ml/rectflow/internal/flow"

// Overrides carries command-line values. A nil field was not set on the
// command line and leaves the config untouched.
type Overrides struct {
	DataDir       *string
	Dataset       *string
	MaxSamples    *int
	Epochs        *int
	BatchSize     *int
	LR            *float64
	TimePolicy    *flow.TimePolicy
	Seed          *int64
	OutputDir     *string
	Steps         *int
	GuidanceScale *float64
	Addr          *string
	Checkpoint    *string
	Workers       *int
	LogLevel      *string
	LogFormat     *string
}

// ApplyOverrides copies every set override into c.
func (c *Config) ApplyOverrides(o Overrides) {
	set(&c.Train.DataDir, o.DataDir)
	set(&c.Train.Dataset, o.Dataset)
	set(&c.Train.MaxSamples, o.MaxSamples)
	set(&c.Train.Epochs, o.Epochs)
	set(&c.Train.BatchSize, o.BatchSize)
	set(&c.Train.LR, o.LR)
	set(&c.Train.TimePolicy, o.TimePolicy)
	set(&c.Train.Seed, o.Seed)
	set(&c.Train.OutputDir, o.OutputDir)
	set(&c.Sample.Steps, o.Steps)
	set(&c.Sample.GuidanceScale, o.GuidanceScale)
	set(&c.Server.Addr, o.Addr)
	set(&c.Server.Checkpoint, o.Checkpoint)
	set(&c.Model.Workers, o.Workers)
	set(&c.Log.Level, o.LogLevel)
	set(&c.Log.Format, o.LogFormat)
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
