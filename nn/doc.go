// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides the reading comprehension layers and their building
// blocks.
//
// # Overview
//
// This package contains:
//   - Layers: RNNEncoder, SimpleSoftmaxLayer, BasicAttn, BiDirAttnFlow
//   - Functions: MaskedSoftmax
//   - Building blocks: Linear, GRUCell, Dropout
//   - Utilities: Parameter, Scope, KeepProb, state dict persistence
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/readcomp/backend/cpu"
//	    "github.com/born-ml/readcomp/nn"
//	)
//
//	func main() {
//	    backend := cpu.New()
//	    keep := nn.Inference()
//
//	    encoder := nn.NewRNNEncoder(nn.EncoderConfig{InputSize: 100, HiddenSize: 200}, keep, backend)
//	    attn := nn.NewBiDirAttnFlow(nn.BiDAFConfig{HiddenSize: 400}, keep, backend)
//
//	    contextHiddens := encoder.Forward(contextEmbs, contextMask)    // [B, N, 400]
//	    questionHiddens := encoder.Forward(questionEmbs, questionMask) // [B, M, 400]
//	    blended := attn.Forward(questionHiddens, questionMask, contextHiddens, contextMask)
//	}
//
// # Masks
//
// Masks are float32 tensors of zeros and ones where 1 marks a real
// position. Padding must be a suffix of each row.
//
// # Dropout
//
// Layers share a *KeepProb. The value 1 (see Inference) disables dropout;
// anything in (0, 1) enables it. The value can be changed between calls
// without rebuilding the layers.
//
// # Parameter Names
//
// Parameters are named by scope, for example
// "RNNEncoder/fw/gates/kernel" or "BiDirAttnFlow/w_sim1". WithScope
// nests a layer under a caller-chosen prefix.
//
//	start := nn.NewSimpleSoftmaxLayer(800, backend, nn.WithScope(nn.NewScope("StartDist")))
//	for _, p := range start.Parameters() {
//	    fmt.Println(p.Name(), p.Tensor().Shape())
//	}
package nn
