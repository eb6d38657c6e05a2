package config

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid config")

// FieldError names the offending key.
type FieldError struct {
	Field string // dotted YAML path, e.g. "train.batch_size"
	Msg   string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

func (e *FieldError) Unwrap() error { return ErrInvalid }

// Validate verifies the config is runnable. All failures are joined.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: config is nil", ErrInvalid)
	}

	var errs []error
	check := func(ok bool, field, format string, args ...any) {
		if !ok {
			errs = append(errs, &FieldError{Field: field, Msg: fmt.Sprintf(format, args...)})
		}
	}

	if err := c.MLP().Validate(); err != nil {
		errs = append(errs, &FieldError{Field: "model", Msg: err.Error()})
	}
	check(c.Model.Workers >= 0, "model.workers", "must be >= 0 (got %d)", c.Model.Workers)

	t := c.Train
	check(t.Dataset == DatasetMNIST || t.Dataset == DatasetMNISTCSV || t.Dataset == DatasetSynthetic,
		"train.dataset", "must be %q, %q or %q (got %q)", DatasetMNIST, DatasetMNISTCSV, DatasetSynthetic, t.Dataset)
	check(t.Dataset == DatasetSynthetic || t.DataDir != "", "train.data_dir", "required for %s", t.Dataset)
	check(t.MaxSamples >= 0, "train.max_samples", "must be >= 0 (got %d)", t.MaxSamples)
	check(t.Epochs > 0, "train.epochs", "must be > 0 (got %d)", t.Epochs)
	check(t.BatchSize > 0, "train.batch_size", "must be > 0 (got %d)", t.BatchSize)
	check(t.Optimizer == OptimizerAdam || t.Optimizer == OptimizerSGD,
		"train.optimizer", "must be %q or %q (got %q)", OptimizerAdam, OptimizerSGD, t.Optimizer)
	check(t.LR > 0, "train.lr", "must be > 0 (got %g)", t.LR)
	check(t.Momentum >= 0 && t.Momentum < 1, "train.momentum", "must be in [0, 1) (got %g)", t.Momentum)
	check(t.SampleCount >= 0, "train.sample_count", "must be >= 0 (got %d)", t.SampleCount)

	check(c.Sample.Steps > 0, "sample.steps", "must be > 0 (got %d)", c.Sample.Steps)
	check(c.Sample.NRow > 0, "sample.nrow", "must be > 0 (got %d)", c.Sample.NRow)

	check(c.Server.Addr != "", "server.addr", "required")
	check(c.Server.MaxBatch > 0, "server.max_batch", "must be > 0 (got %d)", c.Server.MaxBatch)
	check(c.Server.MaxSteps > 0, "server.max_steps", "must be > 0 (got %d)", c.Server.MaxSteps)

	switch strings.ToLower(c.Log.Format) {
	case "", "pretty", "text", "json":
	default:
		errs = append(errs, &FieldError{Field: "log.format", Msg: fmt.Sprintf("unknown format %q", c.Log.Format)})
	}

	// Non-positive log_every falls back to the default instead of failing.
	if c.Train.LogEvery <= 0 {
		c.Train.LogEvery = 50
	}

	return errors.Join(errs...)
}
