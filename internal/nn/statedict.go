package nn

import (
	"fmt"

	"github.com/born-ml/readcomp/internal/serialization"
	"github.com/born-ml/readcomp/internal/tensor"
)

// Stateful is anything whose weights can be exported and restored.
// Every Layer is Stateful.
type Stateful interface {
	StateDict() map[string]*tensor.RawTensor
	LoadStateDict(stateDict map[string]*tensor.RawTensor) error
}

// SaveStateDict writes the layer's weights to a SafeTensors file.
// metadata is stored in the file header.
func SaveStateDict(path string, layer Stateful, metadata map[string]string) error {
	if err := serialization.WriteSafeTensors(path, layer.StateDict(), metadata); err != nil {
		return fmt.Errorf("save state dict: %w", err)
	}
	return nil
}

// LoadStateDictFile restores the layer's weights from a SafeTensors file
// and returns the file metadata.
func LoadStateDictFile(path string, layer Stateful) (map[string]string, error) {
	file, err := serialization.ReadSafeTensors(path)
	if err != nil {
		return nil, fmt.Errorf("load state dict: %w", err)
	}
	if err := layer.LoadStateDict(file.Tensors); err != nil {
		return nil, fmt.Errorf("load state dict from %s: %w", path, err)
	}
	return file.Metadata, nil
}
