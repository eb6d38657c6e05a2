// Package train runs the Rectified Flow training loop.
package train

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/born-ml/rectflow/internal/data"
	"github.com/born-ml/rectflow/internal/flow"
	"github.com/born-ml/rectflow/internal/imageio"
	"github.com/born-ml/rectflow/internal/logger"
	"github.com/born-ml/rectflow/internal/metrics"
	"github.com/born-ml/rectflow/internal/nn"
	"github.com/born-ml/rectflow/internal/optim"
	"github.com/born-ml/rectflow/internal/tensor"
)

// Config controls a training run.
type Config struct {
	Epochs     int
	LogEvery   int    // Steps between throughput logs.
	OutputDir  string // Samples and checkpoints; empty disables both.
	Checkpoint bool   // Save model.safetensors after every epoch.

	// SampleCount images are drawn after every epoch with labels i % classes
	// and the null class as the unconditional branch. 0 disables sampling.
	SampleCount int
	NRow        int
	Sample      flow.SampleConfig

	Engine flow.EngineConfig
}

// EpochResult summarizes one epoch.
type EpochResult struct {
	Epoch      int
	Steps      int
	MeanLoss   float64
	Bins       [metrics.NumBins]float64
	Counts     [metrics.NumBins]int
	Duration   time.Duration
	SampleBase string // <dir>/sample_<epoch>, without extension
	Checkpoint string
}

// Trainer owns the model, optimizer and data for one run.
type Trainer struct {
	model  *nn.VelocityMLP
	opt    optim.Optimizer
	loader *data.Loader
	engine *flow.Engine
	cfg    Config
	log    logger.Logger

	runID string
	noise rand.Source
	bins  metrics.LossBins
	win   metrics.Window
}

// New creates a Trainer.
func New(model *nn.VelocityMLP, opt optim.Optimizer, loader *data.Loader, cfg Config, log logger.Logger) *Trainer {
	if log == nil {
		log = logger.Discard()
	}
	if cfg.NRow <= 0 {
		cfg.NRow = 4
	}
	if cfg.LogEvery <= 0 {
		cfg.LogEvery = 50
	}
	runID := uuid.NewString()
	return &Trainer{
		model:  model,
		opt:    opt,
		loader: loader,
		engine: flow.NewEngine(model, cfg.Engine),
		cfg:    cfg,
		log:    log.With("run", runID),
		runID:  runID,
		noise:  tensor.NewStream(cfg.Engine.Seed, streamSample),
	}
}

// RunID returns the unique id of this run.
func (t *Trainer) RunID() string {
	return t.runID
}

// Model returns the trained network.
func (t *Trainer) Model() *nn.VelocityMLP {
	return t.model
}

// Step performs one optimization step on batch.
func (t *Trainer) Step(batch data.Batch) (*flow.Loss, error) {
	t.opt.ZeroGrad()
	loss, err := t.engine.ComputeLoss(batch.X, batch.Labels)
	if err != nil {
		return nil, fmt.Errorf("compute loss: %w", err)
	}
	if err := t.model.Backward(loss.Grad); err != nil {
		return nil, fmt.Errorf("backward: %w", err)
	}
	t.opt.Step()
	return loss, nil
}

// Run trains for cfg.Epochs epochs. It stops between batches when ctx is
// cancelled and returns the results of the completed epochs with ctx.Err().
func (t *Trainer) Run(ctx context.Context) ([]EpochResult, error) {
	if t.cfg.Epochs <= 0 {
		return nil, errors.New("train: epochs must be > 0")
	}
	if t.cfg.OutputDir != "" {
		if err := os.MkdirAll(t.cfg.OutputDir, 0o750); err != nil {
			return nil, fmt.Errorf("create output dir: %w", err)
		}
	}

	t.log.Info("training started",
		"epochs", t.cfg.Epochs,
		"batches", t.loader.NumBatches(),
		"time_policy", t.engine.TimePolicy().String(),
	)

	results := make([]EpochResult, 0, t.cfg.Epochs)
	for epoch := range t.cfg.Epochs {
		res, err := t.runEpoch(ctx, epoch)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

func (t *Trainer) runEpoch(ctx context.Context, epoch int) (EpochResult, error) {
	start := time.Now()
	t.bins.Reset()

	res := EpochResult{Epoch: epoch}
	var lossSum float64

	dataStart := time.Now()
	for batch := range t.loader.Epoch() {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		dataTime := time.Since(dataStart)

		computeStart := time.Now()
		loss, err := t.Step(batch)
		if err != nil {
			return res, fmt.Errorf("epoch %d step %d: %w", epoch, res.Steps, err)
		}
		t.win.Record(batch.X.Len(), dataTime, time.Since(computeStart), loss.Value)
		t.bins.Add(loss.Report)

		lossSum += loss.Value
		res.Steps++

		if res.Steps%t.cfg.LogEvery == 0 {
			snap := t.win.Snapshot()
			t.log.Debug("step",
				"epoch", epoch,
				"step", res.Steps,
				"samples_per_sec", snap.SamplesPerSec,
				"data_ms", snap.AvgDataMS,
				"compute_ms", snap.AvgComputeMS,
				"loss", snap.MeanLoss,
			)
		}
		dataStart = time.Now()
	}

	if res.Steps > 0 {
		res.MeanLoss = lossSum / float64(res.Steps)
	}
	res.Bins = t.bins.Means()
	res.Counts = t.bins.Counts()
	t.logBins(epoch, res)

	if err := t.afterEpoch(ctx, epoch, &res); err != nil {
		return res, err
	}
	res.Duration = time.Since(start)
	return res, nil
}

func (t *Trainer) logBins(epoch int, res EpochResult) {
	attrs := make([]any, 0, 2*metrics.NumBins)
	for k, mean := range res.Bins {
		attrs = append(attrs, strconv.Itoa(k), mean)
	}
	t.log.Info("epoch done",
		"epoch", epoch,
		"steps", res.Steps,
		"loss", res.MeanLoss,
		slog.Group("bin", attrs...),
	)
}

func (t *Trainer) afterEpoch(ctx context.Context, epoch int, res *EpochResult) error {
	if t.cfg.OutputDir == "" {
		return nil
	}

	if t.cfg.SampleCount > 0 {
		traj, err := t.SampleImages(ctx, t.cfg.SampleCount)
		if err != nil {
			return fmt.Errorf("epoch %d sample: %w", epoch, err)
		}
		base := filepath.Join(t.cfg.OutputDir, fmt.Sprintf("sample_%d", epoch))
		if err := imageio.SaveTrajectory(base, traj, t.cfg.NRow); err != nil {
			return fmt.Errorf("epoch %d sample: %w", epoch, err)
		}
		res.SampleBase = base
	}

	if t.cfg.Checkpoint {
		path := filepath.Join(t.cfg.OutputDir, "model.safetensors")
		if err := SaveModel(path, t.model, epochMeta(t.runID, epoch)); err != nil {
			return fmt.Errorf("epoch %d checkpoint: %w", epoch, err)
		}
		res.Checkpoint = path
	}
	return nil
}

// SampleImages draws n guided samples with labels i % NumClasses.
func (t *Trainer) SampleImages(ctx context.Context, n int) (flow.Trajectory, error) {
	mcfg := t.model.Config()
	cond := make(flow.Labels, n)
	for i := range cond {
		cond[i] = i % mcfg.NumClasses
	}
	null := flow.Fill(t.model.NullClass(), n)

	noise := tensor.Randn(mcfg.Example.WithBatch(n), t.noise)
	return flow.Sample(ctx, t.model, noise, cond, null, t.cfg.Sample)
}
