package nn

import (
	"fmt"
	"sort"

	"github.com/born-ml/readcomp/internal/tensor"
)

// Parameter is a named trainable tensor owned by a layer.
//
// Example:
//
//	w := nn.NewParameter("BiDirAttnFlow/w_sim1", weightTensor)
//	data := w.Tensor().Data() // an external optimizer may update in place
type Parameter[B tensor.Backend] struct {
	name   string
	tensor *tensor.Tensor[float32, B]
}

// NewParameter creates a new trainable parameter.
func NewParameter[B tensor.Backend](name string, t *tensor.Tensor[float32, B]) *Parameter[B] {
	return &Parameter[B]{
		name:   name,
		tensor: t,
	}
}

// Name returns the scoped parameter name.
func (p *Parameter[B]) Name() string {
	return p.name
}

// Tensor returns the parameter tensor.
func (p *Parameter[B]) Tensor() *tensor.Tensor[float32, B] {
	return p.tensor
}

// StateDictOf maps parameter names to their raw tensors.
func StateDictOf[B tensor.Backend](params []*Parameter[B]) map[string]*tensor.RawTensor {
	stateDict := make(map[string]*tensor.RawTensor, len(params))
	for _, p := range params {
		stateDict[p.name] = p.tensor.Raw()
	}
	return stateDict
}

// LoadParameters copies stateDict into params. Every entry is validated
// first (presence, shape, dtype, no unknown names), so a failed load leaves
// the parameters untouched.
func LoadParameters[B tensor.Backend](params []*Parameter[B], stateDict map[string]*tensor.RawTensor) error {
	known := make(map[string]bool, len(params))
	for _, p := range params {
		known[p.name] = true

		raw, ok := stateDict[p.name]
		if !ok {
			return fmt.Errorf("missing %s in state dict", p.name)
		}
		if !raw.Shape().Equal(p.tensor.Shape()) {
			return fmt.Errorf("%s shape mismatch: expected %v, got %v", p.name, p.tensor.Shape(), raw.Shape())
		}
		if raw.DType() != tensor.Float32 {
			return fmt.Errorf("%s dtype mismatch: expected float32, got %v", p.name, raw.DType())
		}
	}

	var unexpected []string
	for name := range stateDict {
		if !known[name] {
			unexpected = append(unexpected, name)
		}
	}
	if len(unexpected) > 0 {
		sort.Strings(unexpected)
		return fmt.Errorf("unexpected keys in state dict: %v", unexpected)
	}

	for _, p := range params {
		copy(p.tensor.Data(), stateDict[p.name].AsFloat32())
	}
	return nil
}
