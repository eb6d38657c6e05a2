package train

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/rectflow/internal/config"
	"github.com/born-ml/rectflow/internal/data"
	"github.com/born-ml/rectflow/internal/flow"
	"github.com/born-ml/rectflow/internal/metrics"
	"github.com/born-ml/rectflow/internal/nn"
	"github.com/born-ml/rectflow/internal/parallel"
	"github.com/born-ml/rectflow/internal/tensor"
)

func smallConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Model = config.ModelConfig{
		Shape:      []int{1, 4, 4},
		NumClasses: 2,
		Hidden:     16,
		TimeDim:    4,
		ClassDim:   3,
		Workers:    1,
	}
	cfg.Train.Dataset = config.DatasetSynthetic
	cfg.Train.MaxSamples = 32
	cfg.Train.Epochs = 2
	cfg.Train.BatchSize = 8
	cfg.Train.Seed = 1
	cfg.Train.SampleCount = 4
	cfg.Train.OutputDir = t.TempDir()
	cfg.Sample.Steps = 3
	cfg.Sample.NRow = 2
	return cfg
}

func TestRunWritesArtifacts(t *testing.T) {
	cfg := smallConfig(t)
	tr, err := FromConfig(cfg, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, tr.RunID())

	results, err := tr.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)

	dir := cfg.Train.OutputDir
	for i, res := range results {
		assert.Equal(t, i, res.Epoch)
		assert.Equal(t, 4, res.Steps, "32 examples / batch 8")
		assert.False(t, math.IsNaN(res.MeanLoss))
		assert.Greater(t, res.MeanLoss, 0.0)

		total := 0
		for _, c := range res.Counts {
			total += c
		}
		assert.Equal(t, 32, total, "every example lands in one time bin")
		assert.Len(t, res.Bins, metrics.NumBins)
		assert.Equal(t, filepath.Join(dir, fmt.Sprintf("sample_%d", i)), res.SampleBase)
	}

	for _, name := range []string{"config.yaml", "model.safetensors", "sample_0.gif", "sample_0_last.png", "sample_1.gif", "sample_1_last.png"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}
}

func TestCheckpointRestoresModel(t *testing.T) {
	cfg := smallConfig(t)
	cfg.Train.Epochs = 1
	cfg.Train.SampleCount = 0
	tr, err := FromConfig(cfg, nil)
	require.NoError(t, err)
	_, err = tr.Run(context.Background())
	require.NoError(t, err)

	loaded, meta, err := LoadModel(filepath.Join(cfg.Train.OutputDir, "model.safetensors"), nn.MLPConfig{Parallel: parallel.Sequential()})
	require.NoError(t, err)
	assert.Equal(t, tr.RunID(), meta[MetaRunID])
	assert.Equal(t, "0", meta[MetaEpoch])
	assert.Equal(t, tensor.Shape{1, 4, 4}, loaded.Config().Example)

	x := tensor.Randn(tensor.Shape{3, 1, 4, 4}, tensor.NewSource(7))
	times := []float64{0.1, 0.5, 0.9}
	labels := flow.Labels{0, 1, 2}

	want, err := tr.Model().Predict(x, times, labels)
	require.NoError(t, err)
	got, err := loaded.Predict(x, times, labels)
	require.NoError(t, err)
	assert.True(t, want.AllClose(got, 1e-12))
}

func TestLoadModelWithoutArchitecture(t *testing.T) {
	cfg := smallConfig(t)
	model, err := nn.NewVelocityMLP(cfg.MLP())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "bare.safetensors")
	require.NoError(t, serializationWrite(path, model))

	_, _, err = LoadModel(path, cfg.MLP())
	assert.True(t, errors.Is(err, ErrNoModelConfig))
}

func TestStepLearns(t *testing.T) {
	cfg := smallConfig(t)
	cfg.Train.OutputDir = ""
	cfg.Train.LR = 5e-3
	tr, err := FromConfig(cfg, nil)
	require.NoError(t, err)

	ds, err := LoadDataset(cfg)
	require.NoError(t, err)
	loader := data.NewLoader(ds, data.LoaderConfig{BatchSize: 32}, tensor.NewSource(1))
	var batch data.Batch
	for b := range loader.Epoch() {
		batch = b
	}

	var first, last float64
	const steps, window = 300, 30
	for i := range steps {
		loss, err := tr.Step(batch)
		require.NoError(t, err)
		switch {
		case i < window:
			first += loss.Value
		case i >= steps-window:
			last += loss.Value
		}
	}
	assert.Less(t, last, first)
}

func TestRunStopsOnCancel(t *testing.T) {
	cfg := smallConfig(t)
	tr, err := FromConfig(cfg, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := tr.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, results)
}

func TestFromConfigErrors(t *testing.T) {
	cfg := smallConfig(t)
	cfg.Model.Shape = []int{1, 4, 5}
	_, err := FromConfig(cfg, nil)
	assert.Error(t, err)

	cfg = smallConfig(t)
	cfg.Train.Dataset = config.DatasetMNIST
	cfg.Train.DataDir = t.TempDir()
	_, err = FromConfig(cfg, nil)
	assert.Error(t, err, "no MNIST files present")

	cfg = smallConfig(t)
	cfg.Train.Epochs = 0
	_, err = FromConfig(cfg, nil)
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestNewOptimizer(t *testing.T) {
	cfg := smallConfig(t)
	model, err := nn.NewVelocityMLP(cfg.MLP())
	require.NoError(t, err)

	cfg.Train.Optimizer = config.OptimizerSGD
	cfg.Train.LR = 0.1
	opt := NewOptimizer(cfg, model)
	assert.Equal(t, 0.1, opt.LR())

	cfg.Train.Optimizer = config.OptimizerAdam
	assert.Equal(t, 0.1, NewOptimizer(cfg, model).LR())
}

func TestSampleImagesShape(t *testing.T) {
	cfg := smallConfig(t)
	tr, err := FromConfig(cfg, nil)
	require.NoError(t, err)

	traj, err := tr.SampleImages(context.Background(), 5)
	require.NoError(t, err)
	assert.Len(t, traj, cfg.Sample.Steps+1)
	assert.Equal(t, tensor.Shape{5, 1, 4, 4}, traj.Final().Shape())
}

func TestSampleNoiseIndependentOfTraining(t *testing.T) {
	cfg := smallConfig(t)
	tr, err := FromConfig(cfg, nil)
	require.NoError(t, err)

	var batch data.Batch
	for b := range tr.loader.Epoch() {
		batch = b
		break
	}
	require.NotNil(t, batch.X)

	loss, err := tr.engine.ComputeLoss(batch.X, batch.Labels)
	require.NoError(t, err)

	traj, err := tr.SampleImages(context.Background(), len(loss.Report))
	require.NoError(t, err)

	noise := traj[0].Data()
	for i, r := range loss.Report {
		logit := math.Log(r.T / (1 - r.T))
		assert.Greater(t, math.Abs(logit-noise[i]), 1e-9, "example %d", i)
	}
}

func TestLoadDatasetCSV(t *testing.T) {
	dir := t.TempDir()
	csv := "label,a,b,c,d\n4,0,10,20,30\n9,255,0,255,0\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mnist_train.csv"), []byte(csv), 0o600))

	cfg := smallConfig(t)
	cfg.Train.Dataset = config.DatasetMNISTCSV
	cfg.Train.DataDir = dir

	ds, err := LoadDataset(cfg)
	require.NoError(t, err)
	assert.Equal(t, 2, ds.Len())
	assert.Equal(t, tensor.Shape{1, 6, 6}, ds.Example())

	cfg.Train.DataDir = filepath.Join(dir, "mnist_train.csv")
	ds, err = LoadDataset(cfg)
	require.NoError(t, err)
	assert.Equal(t, 2, ds.Len())
}
