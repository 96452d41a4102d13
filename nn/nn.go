// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"math/rand/v2"

	"github.com/born-ml/readcomp/internal/nn"
	"github.com/born-ml/readcomp/internal/tensor"
)

// Layer is implemented by every component that owns trainable parameters.
type Layer[B tensor.Backend] = nn.Layer[B]

// Parameter represents a trainable parameter in a neural network.
type Parameter[B tensor.Backend] = nn.Parameter[B]

// NewParameter creates a new parameter with the given name and tensor.
func NewParameter[B tensor.Backend](name string, t *tensor.Tensor[float32, B]) *Parameter[B] {
	return nn.NewParameter(name, t)
}

// Scope is a slash-separated parameter name prefix.
type Scope = nn.Scope

// NewScope returns a scope rooted at name.
func NewScope(name string) Scope {
	return nn.NewScope(name)
}

// Option configures layer construction.
type Option = nn.Option

// WithScope places the layer's parameters under scope.
func WithScope(scope Scope) Option {
	return nn.WithScope(scope)
}

// WithSource draws initial weights and dropout masks from src.
//
// Example:
//
//	src := rand.NewPCG(42, 0)
//	layer := nn.NewLinear(10, 5, backend, nn.WithSource(src))
func WithSource(src rand.Source) Option {
	return nn.WithSource(src)
}

// Dropout

// KeepProb is a shared, concurrently readable keep probability.
type KeepProb = nn.KeepProb

// NewKeepProb returns a KeepProb holding p, which must lie in (0, 1].
func NewKeepProb(p float64) (*KeepProb, error) {
	return nn.NewKeepProb(p)
}

// Inference returns a KeepProb of 1, which disables dropout.
func Inference() *KeepProb {
	return nn.Inference()
}

// Dropout zeroes activations with probability 1-keep and rescales the rest.
type Dropout[B tensor.Backend] = nn.Dropout[B]

// NewDropout creates a dropout layer reading keep on every call.
func NewDropout[B tensor.Backend](keep *KeepProb, src rand.Source) *Dropout[B] {
	return nn.NewDropout[B](keep, src)
}

// Functions

// MaskLarge is subtracted from the logits at masked positions.
const MaskLarge = nn.MaskLarge

// MaskedSoftmax takes a softmax over dim after driving masked positions to
// a very large negative value. It returns the masked logits and the
// probability distribution.
//
// Example:
//
//	logits, _ := tensor.FromSlice([]float32{1, 2, 3}, tensor.Shape{1, 3}, backend)
//	mask, _ := tensor.FromSlice([]float32{1, 1, 0}, tensor.Shape{1, 3}, backend)
//	_, probs := nn.MaskedSoftmax(logits, mask, 1) // probs[0, 2] == 0
func MaskedSoftmax[B tensor.Backend](logits, mask *tensor.Tensor[float32, B], dim int) (maskedLogits, probDist *tensor.Tensor[float32, B]) {
	return nn.MaskedSoftmax(logits, mask, dim)
}

// MaskLengths returns the number of valid positions in each row of a
// [batch, len] mask.
func MaskLengths[B tensor.Backend](mask *tensor.Tensor[float32, B]) []int {
	return nn.MaskLengths(mask)
}

// Persistence

// Stateful is anything whose weights can be exported and restored.
type Stateful = nn.Stateful

// SaveStateDict writes the layer's weights to a SafeTensors file.
func SaveStateDict(path string, layer Stateful, metadata map[string]string) error {
	return nn.SaveStateDict(path, layer, metadata)
}

// LoadStateDictFile restores the layer's weights from a SafeTensors file
// and returns the file metadata.
func LoadStateDictFile(path string, layer Stateful) (map[string]string, error) {
	return nn.LoadStateDictFile(path, layer)
}
