package nn

import (
	"fmt"

	"github.com/born-ml/readcomp/internal/tensor"
)

// SimpleSoftmaxLayer projects each position to a single logit and takes a
// masked softmax over positions. It produces start and end distributions.
type SimpleSoftmaxLayer[B tensor.Backend] struct {
	dense *Linear[B]
}

// NewSimpleSoftmaxLayer creates the layer for inputs of inputSize features.
// Parameters are named "SimpleSoftmaxLayer/dense/{kernel,bias}".
func NewSimpleSoftmaxLayer[B tensor.Backend](inputSize int, backend B, opts ...Option) *SimpleSoftmaxLayer[B] {
	o := newOptions(opts)
	scope := o.scope.Sub("SimpleSoftmaxLayer").Sub("dense")
	return &SimpleSoftmaxLayer[B]{
		dense: newLinear(inputSize, 1, 0, scope, o.source(), backend),
	}
}

// Forward maps hidden [batch, len, input] and mask [batch, len] to masked
// logits and a probability distribution, both [batch, len].
func (s *SimpleSoftmaxLayer[B]) Forward(hidden, mask *tensor.Tensor[float32, B]) (maskedLogits, probDist *tensor.Tensor[float32, B]) {
	shape := hidden.Shape()
	if len(shape) != 3 {
		panic(fmt.Sprintf("SimpleSoftmaxLayer.Forward: expected 3D input [batch, len, features], got %v", shape))
	}
	if ms := mask.Shape(); len(ms) != 2 || ms[0] != shape[0] || ms[1] != shape[1] {
		panic(fmt.Sprintf("SimpleSoftmaxLayer.Forward: mask shape %v does not match input %v", ms, shape))
	}

	logits := s.dense.Forward(hidden).Squeeze(2)
	return MaskedSoftmax(logits, mask, 1)
}

// Parameters returns the projection parameters.
func (s *SimpleSoftmaxLayer[B]) Parameters() []*Parameter[B] {
	return s.dense.Parameters()
}

// StateDict returns a map of parameter names to raw tensors.
func (s *SimpleSoftmaxLayer[B]) StateDict() map[string]*tensor.RawTensor {
	return StateDictOf(s.Parameters())
}

// LoadStateDict loads parameters from a state dictionary.
func (s *SimpleSoftmaxLayer[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	return LoadParameters(s.Parameters(), stateDict)
}
