package train

import (
	"github.com/born-ml/rectflow/internal/nn"
	"github.com/born-ml/rectflow/internal/serialization"
)

// serializationWrite stores weights without the architecture metadata.
func serializationWrite(path string, model *nn.VelocityMLP) error {
	return serialization.WriteSafeTensors(path, nn.StateDict(model), nil)
}
