package nn

import (
	"fmt"
	"math/rand/v2"

	"github.com/born-ml/readcomp/internal/tensor"
)

// Linear implements a fully connected (dense) layer over the last axis.
//
// Performs the transformation: y = x @ W + b
// where:
//   - x has shape [..., in_features]
//   - W ("kernel") has shape [in_features, out_features]
//   - b ("bias") has shape [out_features]
//   - y has shape [..., out_features]
//
// The kernel is Xavier-initialized, the bias is zero.
//
// Example:
//
//	layer := nn.NewLinear(200, 1, backend, nn.WithScope(nn.NewScope("dense")))
//	logits := layer.Forward(hidden) // [batch, len, 200] -> [batch, len, 1]
type Linear[B tensor.Backend] struct {
	inFeatures  int
	outFeatures int
	weight      *Parameter[B]
	bias        *Parameter[B]
}

// NewLinear creates a new Linear layer. Parameters are named "kernel" and
// "bias" inside the configured scope.
func NewLinear[B tensor.Backend](inFeatures, outFeatures int, backend B, opts ...Option) *Linear[B] {
	o := newOptions(opts)
	return newLinear(inFeatures, outFeatures, 0, o.scope, o.source(), backend)
}

func newLinear[B tensor.Backend](inFeatures, outFeatures int, biasInit float32, scope Scope, src rand.Source, backend B) *Linear[B] {
	if inFeatures <= 0 || outFeatures <= 0 {
		panic(fmt.Sprintf("Linear: features must be positive, got in=%d out=%d", inFeatures, outFeatures))
	}
	weight := Xavier(inFeatures, outFeatures, tensor.Shape{inFeatures, outFeatures}, src, backend)
	bias := Constant(tensor.Shape{outFeatures}, biasInit, backend)

	return &Linear[B]{
		inFeatures:  inFeatures,
		outFeatures: outFeatures,
		weight:      NewParameter(scope.Name("kernel"), weight),
		bias:        NewParameter(scope.Name("bias"), bias),
	}
}

// Forward applies the layer to the last axis of input.
func (l *Linear[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	shape := input.Shape()
	if len(shape) < 2 {
		panic(fmt.Sprintf("Linear.Forward: expected at least 2D input [..., features], got shape %v", shape))
	}
	if last := shape[len(shape)-1]; last != l.inFeatures {
		panic(fmt.Sprintf("Linear.Forward: expected input with %d features, got %d", l.inFeatures, last))
	}

	flat := input.Reshape(-1, l.inFeatures)
	output := flat.MatMul(l.weight.Tensor()).Add(l.bias.Tensor().Reshape(1, l.outFeatures))

	outShape := shape.Clone()
	outShape[len(outShape)-1] = l.outFeatures
	return output.Reshape(outShape...)
}

// Parameters returns [kernel, bias].
func (l *Linear[B]) Parameters() []*Parameter[B] {
	return []*Parameter[B]{l.weight, l.bias}
}

// Weight returns the kernel parameter.
func (l *Linear[B]) Weight() *Parameter[B] {
	return l.weight
}

// Bias returns the bias parameter.
func (l *Linear[B]) Bias() *Parameter[B] {
	return l.bias
}

// InFeatures returns the number of input features.
func (l *Linear[B]) InFeatures() int {
	return l.inFeatures
}

// OutFeatures returns the number of output features.
func (l *Linear[B]) OutFeatures() int {
	return l.outFeatures
}

// StateDict returns a map of parameter names to raw tensors.
func (l *Linear[B]) StateDict() map[string]*tensor.RawTensor {
	return StateDictOf(l.Parameters())
}

// LoadStateDict loads parameters from a state dictionary.
func (l *Linear[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	return LoadParameters(l.Parameters(), stateDict)
}
