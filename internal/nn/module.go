// Package nn implements the reading-comprehension layers.
//
// This package provides:
//   - MaskedSoftmax: softmax that assigns zero probability to masked positions
//   - RNNEncoder: bidirectional GRU encoder that honors a validity mask
//   - SimpleSoftmaxLayer: linear projection to one logit per position
//   - BasicAttn: dot-product attention of keys over values
//   - BiDirAttnFlow: trilinear similarity with context-to-question and
//     question-to-context attention
//
// Supporting pieces (Parameter, Scope, Linear, GRUCell, Dropout, KeepProb)
// are exported for callers assembling their own models.
//
// Layers evaluate eagerly: every Forward call computes fresh tensors from
// its inputs and the layer's parameters, and never modifies either. There
// is no gradient tracking.
package nn

import (
	"github.com/born-ml/readcomp/internal/tensor"
)

// Layer is implemented by every component that owns trainable parameters.
//
// Layers with no parameters (BasicAttn, MaskedSoftmax) still implement it
// with empty results so they can be composed uniformly.
//
// Type parameter B must satisfy the tensor.Backend interface.
type Layer[B tensor.Backend] interface {
	// Parameters returns all trainable parameters, including those of
	// nested layers, in a stable order.
	Parameters() []*Parameter[B]

	// StateDict maps scoped parameter names to their raw tensors.
	StateDict() map[string]*tensor.RawTensor

	// LoadStateDict copies weights from stateDict into the parameters.
	// Shapes and dtypes are validated before anything is copied.
	LoadStateDict(stateDict map[string]*tensor.RawTensor) error
}
