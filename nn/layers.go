// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"github.com/born-ml/readcomp/internal/nn"
	"github.com/born-ml/readcomp/internal/tensor"
)

// Configuration

// EncoderConfig sizes an RNNEncoder.
type EncoderConfig = nn.EncoderConfig

// DefaultEncoderConfig returns 100-dimensional inputs and 200 hidden units.
func DefaultEncoderConfig() EncoderConfig {
	return nn.DefaultEncoderConfig()
}

// BiDAFConfig sizes a BiDirAttnFlow layer.
type BiDAFConfig = nn.BiDAFConfig

// DefaultBiDAFConfig returns the configuration matching DefaultEncoderConfig
// outputs.
func DefaultBiDAFConfig() BiDAFConfig {
	return nn.DefaultBiDAFConfig()
}

// Building blocks

// Linear represents a fully connected (dense) layer.
type Linear[B tensor.Backend] = nn.Linear[B]

// NewLinear creates a new linear layer with Xavier initialization.
//
// Example:
//
//	backend := cpu.New()
//	layer := nn.NewLinear(400, 1, backend)
func NewLinear[B tensor.Backend](inFeatures, outFeatures int, backend B, opts ...Option) *Linear[B] {
	return nn.NewLinear(inFeatures, outFeatures, backend, opts...)
}

// GRUCell is a single gated recurrent unit.
type GRUCell[B tensor.Backend] = nn.GRUCell[B]

// NewGRUCell creates a GRU cell.
func NewGRUCell[B tensor.Backend](inputSize, hiddenSize int, backend B, opts ...Option) *GRUCell[B] {
	return nn.NewGRUCell(inputSize, hiddenSize, backend, opts...)
}

// Layers

// RNNEncoder is a bidirectional GRU encoder.
type RNNEncoder[B tensor.Backend] = nn.RNNEncoder[B]

// NewRNNEncoder creates an encoder. It panics if cfg is invalid.
//
// Example:
//
//	backend := cpu.New()
//	encoder := nn.NewRNNEncoder(nn.DefaultEncoderConfig(), nn.Inference(), backend)
//	hiddens := encoder.Forward(embeddings, mask) // [batch, len, 400]
func NewRNNEncoder[B tensor.Backend](cfg EncoderConfig, keep *KeepProb, backend B, opts ...Option) *RNNEncoder[B] {
	return nn.NewRNNEncoder(cfg, keep, backend, opts...)
}

// SimpleSoftmaxLayer projects each position to one logit and takes a
// masked softmax over the sequence.
type SimpleSoftmaxLayer[B tensor.Backend] = nn.SimpleSoftmaxLayer[B]

// NewSimpleSoftmaxLayer creates a SimpleSoftmaxLayer over inputSize features.
func NewSimpleSoftmaxLayer[B tensor.Backend](inputSize int, backend B, opts ...Option) *SimpleSoftmaxLayer[B] {
	return nn.NewSimpleSoftmaxLayer(inputSize, backend, opts...)
}

// BasicAttn is dot-product attention of keys over values.
type BasicAttn[B tensor.Backend] = nn.BasicAttn[B]

// NewBasicAttn creates a BasicAttn layer.
func NewBasicAttn[B tensor.Backend](keep *KeepProb, keyVecSize, valueVecSize int, backend B, opts ...Option) *BasicAttn[B] {
	return nn.NewBasicAttn(keep, keyVecSize, valueVecSize, backend, opts...)
}

// BiDirAttnFlow is bidirectional attention flow between a context and a
// question.
type BiDirAttnFlow[B tensor.Backend] = nn.BiDirAttnFlow[B]

// NewBiDirAttnFlow creates a BiDirAttnFlow layer. It panics if cfg is
// invalid.
func NewBiDirAttnFlow[B tensor.Backend](cfg BiDAFConfig, keep *KeepProb, backend B, opts ...Option) *BiDirAttnFlow[B] {
	return nn.NewBiDirAttnFlow(cfg, keep, backend, opts...)
}
