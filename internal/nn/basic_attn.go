package nn

import (
	"fmt"

	"github.com/born-ml/readcomp/internal/tensor"
	"k8s.io/klog/v2"
)

// BasicAttn is dot-product attention: every key attends over the values.
//
//	logits   = keys @ valuesᵀ                       [batch, keys, values]
//	attnDist = MaskedSoftmax(logits, valuesMask, 2)
//	output   = dropout(attnDist @ values)          [batch, keys, features]
//
// Key and value vectors must have the same size. The layer has no
// parameters.
type BasicAttn[B tensor.Backend] struct {
	keyVecSize   int
	valueVecSize int
	drop         *Dropout[B]
}

// NewBasicAttn creates the attention layer.
func NewBasicAttn[B tensor.Backend](keep *KeepProb, keyVecSize, valueVecSize int, backend B, opts ...Option) *BasicAttn[B] {
	o := newOptions(opts)
	klog.V(2).InfoS("Created layer", "layer", o.scope.Name("BasicAttn"), "keySize", keyVecSize, "valueSize", valueVecSize)
	return &BasicAttn[B]{
		keyVecSize:   keyVecSize,
		valueVecSize: valueVecSize,
		drop:         NewDropout[B](keep, o.source()),
	}
}

// Forward attends keys [batch, keys, d] over values [batch, values, d]
// with valuesMask [batch, values].
//
// Returns the attention distribution [batch, keys, values] and the
// attention output [batch, keys, d]. Panics when key and value feature
// sizes differ.
func (a *BasicAttn[B]) Forward(values, valuesMask, keys *tensor.Tensor[float32, B]) (attnDist, output *tensor.Tensor[float32, B]) {
	vs, ks, ms := values.Shape(), keys.Shape(), valuesMask.Shape()
	if len(vs) != 3 || len(ks) != 3 {
		panic(fmt.Sprintf("BasicAttn.Forward: expected 3D values and keys, got %v and %v", vs, ks))
	}
	if ks[2] != vs[2] {
		panic(fmt.Sprintf("BasicAttn.Forward: key size %d does not match value size %d", ks[2], vs[2]))
	}
	if ks[2] != a.keyVecSize || vs[2] != a.valueVecSize {
		panic(fmt.Sprintf("BasicAttn.Forward: expected key size %d and value size %d, got %d and %d",
			a.keyVecSize, a.valueVecSize, ks[2], vs[2]))
	}
	if ks[0] != vs[0] {
		panic(fmt.Sprintf("BasicAttn.Forward: batch mismatch: keys %v, values %v", ks, vs))
	}
	if len(ms) != 2 || ms[0] != vs[0] || ms[1] != vs[1] {
		panic(fmt.Sprintf("BasicAttn.Forward: mask shape %v does not match values %v", ms, vs))
	}

	logits := keys.BatchMatMul(values.Transpose(0, 2, 1))
	_, attnDist = MaskedSoftmax(logits, valuesMask.Unsqueeze(1), 2)
	output = a.drop.Forward(attnDist.BatchMatMul(values))
	return attnDist, output
}

// Parameters returns nil: the layer has no trainable parameters.
func (a *BasicAttn[B]) Parameters() []*Parameter[B] {
	return nil
}

// StateDict returns an empty map.
func (a *BasicAttn[B]) StateDict() map[string]*tensor.RawTensor {
	return map[string]*tensor.RawTensor{}
}

// LoadStateDict accepts only an empty state dict.
func (a *BasicAttn[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	return LoadParameters(a.Parameters(), stateDict)
}
