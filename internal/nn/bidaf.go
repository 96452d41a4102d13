package nn

import (
	"fmt"

	"github.com/born-ml/readcomp/internal/tensor"
	"k8s.io/klog/v2"
)

// BiDirAttnFlow is bidirectional attention flow between a context and a
// question.
//
// With c the context [batch, C, H] and q the question [batch, Q, H]:
//
//	S   = c @ w1 + (q @ w2)ᵀ + (c ⊙ w3ᵀ) @ qᵀ          [batch, C, Q]
//	c2q = MaskedSoftmax(S, qnMask ⊗ contextMask, 2) @ q
//	β   = MaskedSoftmax(max_j S[:, :, j], contextMask, 1)
//	c'  = β @ c                                       [batch, 1, H]
//	out = [c, c2q, c ⊙ c2q, c ⊙ c']                   [batch, C, 4H]
//
// Parameters are "BiDirAttnFlow/w_sim1", "w_sim2", "w_sim3", each [H, 1].
type BiDirAttnFlow[B tensor.Backend] struct {
	cfg        BiDAFConfig
	w1, w2, w3 *Parameter[B]
	drop       *Dropout[B]
}

// NewBiDirAttnFlow creates the layer. Panics if cfg is invalid.
func NewBiDirAttnFlow[B tensor.Backend](cfg BiDAFConfig, keep *KeepProb, backend B, opts ...Option) *BiDirAttnFlow[B] {
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("NewBiDirAttnFlow: %v", err))
	}
	o := newOptions(opts)
	scope := o.scope.Sub("BiDirAttnFlow")
	h := cfg.HiddenSize
	shape := tensor.Shape{h, 1}

	klog.V(2).InfoS("Created layer", "layer", scope.String(), "hidden", h, "outputDropout", cfg.OutputDropout)
	return &BiDirAttnFlow[B]{
		cfg:  cfg,
		w1:   NewParameter(scope.Name("w_sim1"), Xavier(h, 1, shape, o.source(), backend)),
		w2:   NewParameter(scope.Name("w_sim2"), Xavier(h, 1, shape, o.source(), backend)),
		w3:   NewParameter(scope.Name("w_sim3"), Xavier(h, 1, shape, o.source(), backend)),
		drop: NewDropout[B](keep, o.source()),
	}
}

// Similarity computes the trilinear similarity matrix S [batch, C, Q].
func (f *BiDirAttnFlow[B]) Similarity(question, context *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	cs, qs := context.Shape(), question.Shape()
	batch, clen, qlen, h := cs[0], cs[1], qs[1], f.cfg.HiddenSize

	cTerm := context.Reshape(-1, h).MatMul(f.w1.Tensor()).Reshape(batch, clen, 1)
	qTerm := question.Reshape(-1, h).MatMul(f.w2.Tensor()).Reshape(batch, 1, qlen)
	weighted := context.Mul(f.w3.Tensor().Reshape(1, 1, h))
	cqTerm := weighted.BatchMatMul(question.Transpose(0, 2, 1))

	return cqTerm.Add(cTerm).Add(qTerm)
}

// Forward fuses question [batch, Q, H] (mask [batch, Q]) into context
// [batch, C, H] (mask [batch, C]) and returns [batch, C, 4H].
//
// Padded context rows see a fully masked question axis and get a uniform
// distribution there, so their c2q vectors stay finite.
func (f *BiDirAttnFlow[B]) Forward(question, qnMask, context, contextMask *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	f.checkShapes(question, qnMask, context, contextMask)

	s := f.Similarity(question, context)

	// Context-to-question.
	c2qMask := qnMask.Unsqueeze(1).Mul(contextMask.Unsqueeze(2))
	_, alpha := MaskedSoftmax(s, c2qMask, 2)
	c2q := alpha.BatchMatMul(question)

	// Question-to-context.
	m := s.MaxDim(2, false)
	_, beta := MaskedSoftmax(m, contextMask, 1)
	cPrime := beta.Unsqueeze(1).BatchMatMul(context)

	out := tensor.Cat([]*tensor.Tensor[float32, B]{
		context,
		c2q,
		context.Mul(c2q),
		context.Mul(cPrime),
	}, 2)
	if v := klog.V(4); v.Enabled() {
		v.InfoS("BiDirAttnFlow forward", "question", question.Shape(), "context", context.Shape(), "output", out.Shape())
	}

	if f.cfg.OutputDropout {
		out = f.drop.Forward(out)
	}
	return out
}

func (f *BiDirAttnFlow[B]) checkShapes(question, qnMask, context, contextMask *tensor.Tensor[float32, B]) {
	qs, cs := question.Shape(), context.Shape()
	h := f.cfg.HiddenSize
	if len(qs) != 3 || qs[2] != h {
		panic(fmt.Sprintf("BiDirAttnFlow.Forward: expected question [batch, Q, %d], got %v", h, qs))
	}
	if len(cs) != 3 || cs[2] != h {
		panic(fmt.Sprintf("BiDirAttnFlow.Forward: expected context [batch, C, %d], got %v", h, cs))
	}
	if qs[0] != cs[0] {
		panic(fmt.Sprintf("BiDirAttnFlow.Forward: batch mismatch: question %v, context %v", qs, cs))
	}
	if ms := qnMask.Shape(); !ms.Equal(tensor.Shape{qs[0], qs[1]}) {
		panic(fmt.Sprintf("BiDirAttnFlow.Forward: question mask shape %v does not match question %v", ms, qs))
	}
	if ms := contextMask.Shape(); !ms.Equal(tensor.Shape{cs[0], cs[1]}) {
		panic(fmt.Sprintf("BiDirAttnFlow.Forward: context mask shape %v does not match context %v", ms, cs))
	}
}

// Config returns the layer configuration.
func (f *BiDirAttnFlow[B]) Config() BiDAFConfig {
	return f.cfg
}

// Parameters returns [w_sim1, w_sim2, w_sim3].
func (f *BiDirAttnFlow[B]) Parameters() []*Parameter[B] {
	return []*Parameter[B]{f.w1, f.w2, f.w3}
}

// StateDict returns a map of parameter names to raw tensors.
func (f *BiDirAttnFlow[B]) StateDict() map[string]*tensor.RawTensor {
	return StateDictOf(f.Parameters())
}

// LoadStateDict loads parameters from a state dictionary.
func (f *BiDirAttnFlow[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	return LoadParameters(f.Parameters(), stateDict)
}
