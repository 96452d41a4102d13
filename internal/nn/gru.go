package nn

import (
	"fmt"

	"github.com/born-ml/readcomp/internal/tensor"
)

// GRUCell is a gated recurrent unit:
//
//	[r, u] = sigmoid([x, h] @ Wg + bg)
//	c      = tanh([x, r*h] @ Wc + bc)
//	h'     = u*h + (1-u)*c
//
// The gate bias starts at 1. Parameters live under "gates/" and
// "candidate/".
type GRUCell[B tensor.Backend] struct {
	inputSize  int
	hiddenSize int
	gates      *Linear[B] // [input+hidden] -> [2*hidden]
	candidate  *Linear[B] // [input+hidden] -> [hidden]
}

// NewGRUCell creates a GRU cell.
func NewGRUCell[B tensor.Backend](inputSize, hiddenSize int, backend B, opts ...Option) *GRUCell[B] {
	o := newOptions(opts)
	return &GRUCell[B]{
		inputSize:  inputSize,
		hiddenSize: hiddenSize,
		gates:      newLinear(inputSize+hiddenSize, 2*hiddenSize, 1, o.scope.Sub("gates"), o.source(), backend),
		candidate:  newLinear(inputSize+hiddenSize, hiddenSize, 0, o.scope.Sub("candidate"), o.source(), backend),
	}
}

// Step advances the cell by one time step: x [batch, input], h [batch,
// hidden] -> h' [batch, hidden].
func (g *GRUCell[B]) Step(x, h *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	ru := g.gates.Forward(tensor.Cat([]*tensor.Tensor[float32, B]{x, h}, 1)).Sigmoid()
	parts := ru.Chunk(2, 1)
	r, u := parts[0], parts[1]

	c := g.candidate.Forward(tensor.Cat([]*tensor.Tensor[float32, B]{x, r.Mul(h)}, 1)).Tanh()

	// u*h + (1-u)*c
	return u.Mul(h).Add(u.MulScalar(-1).AddScalar(1).Mul(c))
}

// Scan runs the cell over inputs [batch, len, input]. Row b only advances
// during its first lengths[b] steps: afterwards the state is carried
// unchanged and the output is zero.
//
// Returns the outputs [batch, len, hidden].
func (g *GRUCell[B]) Scan(inputs *tensor.Tensor[float32, B], lengths []int) *tensor.Tensor[float32, B] {
	shape := inputs.Shape()
	if len(shape) != 3 || shape[2] != g.inputSize {
		panic(fmt.Sprintf("GRUCell.Scan: expected input [batch, len, %d], got %v", g.inputSize, shape))
	}
	batch, steps := shape[0], shape[1]
	if len(lengths) != batch {
		panic(fmt.Sprintf("GRUCell.Scan: got %d lengths for batch of %d", len(lengths), batch))
	}

	valid := stepMask(lengths, steps, inputs.Backend())
	h := tensor.Zeros[float32](tensor.Shape{batch, g.hiddenSize}, inputs.Backend())
	outputs := make([]*tensor.Tensor[float32, B], steps)
	for t := 0; t < steps; t++ {
		x := inputs.Narrow(1, t, 1).Squeeze(1)
		v := valid.Narrow(1, t, 1) // [batch, 1]

		next := g.Step(x, h)
		outputs[t] = next.Mul(v)
		h = outputs[t].Add(h.Mul(v.MulScalar(-1).AddScalar(1)))
	}
	return tensor.Stack(outputs, 1)
}

// Parameters returns the gate and candidate parameters.
func (g *GRUCell[B]) Parameters() []*Parameter[B] {
	return append(g.gates.Parameters(), g.candidate.Parameters()...)
}

// StateDict returns a map of parameter names to raw tensors.
func (g *GRUCell[B]) StateDict() map[string]*tensor.RawTensor {
	return StateDictOf(g.Parameters())
}

// LoadStateDict loads parameters from a state dictionary.
func (g *GRUCell[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	return LoadParameters(g.Parameters(), stateDict)
}

// stepMask returns a [batch, steps] tensor with 1 where t < lengths[b].
func stepMask[B tensor.Backend](lengths []int, steps int, backend B) *tensor.Tensor[float32, B] {
	m := tensor.Zeros[float32](tensor.Shape{len(lengths), steps}, backend)
	data := m.Data()
	for b, l := range lengths {
		for t := 0; t < l && t < steps; t++ {
			data[b*steps+t] = 1
		}
	}
	return m
}
