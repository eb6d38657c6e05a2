package train

import (
	"errors"
	"fmt"
	"strconv"

	json "github.com/goccy/go-json"

	"github.com/born-ml/rectflow/internal/nn"
	"github.com/born-ml/rectflow/internal/serialization"
	"github.com/born-ml/rectflow/internal/tensor"
)

// Checkpoint metadata keys.
const (
	MetaModel = "rectflow.model"
	MetaRunID = "rectflow.run_id"
	MetaEpoch = "rectflow.epoch"
)

// ErrNoModelConfig is returned when a checkpoint lacks the model metadata
// needed to rebuild the network.
var ErrNoModelConfig = errors.New("checkpoint has no model config")

// modelMeta is the JSON form of the architecture stored next to the weights.
type modelMeta struct {
	Shape      []int `json:"shape"`
	NumClasses int   `json:"num_classes"`
	Hidden     int   `json:"hidden"`
	TimeDim    int   `json:"time_dim"`
	ClassDim   int   `json:"class_dim"`
}

// SaveModel writes the model weights and architecture to a SafeTensors file.
// extra is merged into the metadata.
func SaveModel(path string, model *nn.VelocityMLP, extra map[string]string) error {
	cfg := model.Config()
	arch, err := json.Marshal(modelMeta{
		Shape:      cfg.Example,
		NumClasses: cfg.NumClasses,
		Hidden:     cfg.Hidden,
		TimeDim:    cfg.TimeDim,
		ClassDim:   cfg.ClassDim,
	})
	if err != nil {
		return fmt.Errorf("encode model config: %w", err)
	}

	meta := make(map[string]string, len(extra)+1)
	for k, v := range extra {
		meta[k] = v
	}
	meta[MetaModel] = string(arch)

	return serialization.WriteSafeTensors(path, nn.StateDict(model), meta)
}

// LoadModel rebuilds a VelocityMLP from a checkpoint written by SaveModel.
// base supplies the settings that are not stored (seed, parallelism).
func LoadModel(path string, base nn.MLPConfig) (*nn.VelocityMLP, map[string]string, error) {
	ckpt, err := serialization.ReadSafeTensors(path)
	if err != nil {
		return nil, nil, err
	}

	raw, ok := ckpt.Metadata[MetaModel]
	if !ok {
		return nil, nil, fmt.Errorf("%s: %w", path, ErrNoModelConfig)
	}
	var arch modelMeta
	if err := json.Unmarshal([]byte(raw), &arch); err != nil {
		return nil, nil, fmt.Errorf("%s: decode model config: %w", path, err)
	}

	cfg := base
	cfg.Example = tensor.Shape(arch.Shape)
	cfg.NumClasses = arch.NumClasses
	cfg.Hidden = arch.Hidden
	cfg.TimeDim = arch.TimeDim
	cfg.ClassDim = arch.ClassDim

	model, err := nn.NewVelocityMLP(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := nn.LoadStateDict(model, ckpt.Tensors); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return model, ckpt.Metadata, nil
}

func epochMeta(runID string, epoch int) map[string]string {
	return map[string]string{
		MetaRunID: runID,
		MetaEpoch: strconv.Itoa(epoch),
	}
}
