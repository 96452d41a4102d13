package nn

import (
	"fmt"
	"math"

	"github.com/born-ml/readcomp/internal/tensor"
	"k8s.io/klog/v2"
)

// RNNEncoder is a bidirectional GRU encoder for padded sequences.
//
// The forward cell reads each row left to right; the backward cell reads
// the row's valid prefix right to left. Padded positions (mask == 0) never
// influence any state and produce zero outputs. Each direction applies its
// own input dropout; the concatenated output gets one more dropout.
//
// Example:
//
//	enc := nn.NewRNNEncoder(nn.EncoderConfig{InputSize: 100, HiddenSize: 64}, keep, backend)
//	hidden := enc.Forward(embeddings, mask) // [batch, len, 128]
type RNNEncoder[B tensor.Backend] struct {
	cfg    EncoderConfig
	fw, bw *GRUCell[B]

	fwDrop, bwDrop, outDrop *Dropout[B]
}

// NewRNNEncoder creates an encoder. Parameters are named
// "RNNEncoder/fw/..." and "RNNEncoder/bw/..." inside the configured scope.
// Panics if cfg is invalid.
func NewRNNEncoder[B tensor.Backend](cfg EncoderConfig, keep *KeepProb, backend B, opts ...Option) *RNNEncoder[B] {
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("NewRNNEncoder: %v", err))
	}
	o := newOptions(opts)
	scope := o.scope.Sub("RNNEncoder")

	enc := &RNNEncoder[B]{
		cfg:     cfg,
		fw:      NewGRUCell(cfg.InputSize, cfg.HiddenSize, backend, WithScope(scope.Sub("fw")), WithSource(o.source())),
		bw:      NewGRUCell(cfg.InputSize, cfg.HiddenSize, backend, WithScope(scope.Sub("bw")), WithSource(o.source())),
		fwDrop:  NewDropout[B](keep, o.source()),
		bwDrop:  NewDropout[B](keep, o.source()),
		outDrop: NewDropout[B](keep, o.source()),
	}
	klog.V(2).InfoS("Created layer", "layer", scope.String(), "input", cfg.InputSize, "hidden", cfg.HiddenSize)
	return enc
}

// Forward encodes inputs [batch, len, input] under mask [batch, len] and
// returns [batch, len, 2*hidden].
//
// The valid length of row b is the sum of mask[b]; the mask is expected to
// be a prefix of ones followed by zeros. An all-zero row yields zero
// vectors.
func (e *RNNEncoder[B]) Forward(inputs, mask *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	shape, mshape := inputs.Shape(), mask.Shape()
	if len(shape) != 3 || shape[2] != e.cfg.InputSize {
		panic(fmt.Sprintf("RNNEncoder.Forward: expected input [batch, len, %d], got %v", e.cfg.InputSize, shape))
	}
	if len(mshape) != 2 || mshape[0] != shape[0] || mshape[1] != shape[1] {
		panic(fmt.Sprintf("RNNEncoder.Forward: mask shape %v does not match input %v", mshape, shape))
	}

	lengths := MaskLengths(mask)

	fwOut := e.fw.Scan(e.fwDrop.Forward(inputs), lengths)

	bwIn := e.bwDrop.Forward(inputs).ReverseSequence(lengths)
	bwOut := e.bw.Scan(bwIn, lengths).ReverseSequence(lengths)

	out := tensor.Cat([]*tensor.Tensor[float32, B]{fwOut, bwOut}, 2)
	if v := klog.V(4); v.Enabled() {
		v.InfoS("RNNEncoder forward", "input", shape, "lengths", lengths, "output", out.Shape())
	}
	return e.outDrop.Forward(out)
}

// Config returns the encoder configuration.
func (e *RNNEncoder[B]) Config() EncoderConfig {
	return e.cfg
}

// Parameters returns the forward then backward cell parameters.
func (e *RNNEncoder[B]) Parameters() []*Parameter[B] {
	return append(e.fw.Parameters(), e.bw.Parameters()...)
}

// StateDict returns a map of parameter names to raw tensors.
func (e *RNNEncoder[B]) StateDict() map[string]*tensor.RawTensor {
	return StateDictOf(e.Parameters())
}

// LoadStateDict loads parameters from a state dictionary.
func (e *RNNEncoder[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	return LoadParameters(e.Parameters(), stateDict)
}

// MaskLengths returns the rounded row sums of a [batch, len] mask.
func MaskLengths[B tensor.Backend](mask *tensor.Tensor[float32, B]) []int {
	sums := mask.SumDim(1, false).Data()
	lengths := make([]int, len(sums))
	for i, s := range sums {
		lengths[i] = int(math.Round(float64(s)))
	}
	return lengths
}
