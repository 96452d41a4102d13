// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides type-safe tensor operations for the reading
// comprehension layers.
//
// # Overview
//
// Tensors are the fundamental data structure of the module. This package provides:
//   - Generic type-safe tensors (Tensor[T, B])
//   - NumPy-style broadcasting
//   - Device abstraction through the Backend interface
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/readcomp/backend/cpu"
//	    "github.com/born-ml/readcomp/tensor"
//	)
//
//	func main() {
//	    backend := cpu.New()
//
//	    x := tensor.Zeros[float32](tensor.Shape{2, 3}, backend)
//	    y := tensor.Ones[float32](tensor.Shape{3, 4}, backend)
//	    z := x.MatMul(y)
//	}
//
// # Supported Data Types
//
// Tensors hold float32 or float64 values. Masks are float32 tensors of
// zeros and ones.
//
// # Semantics
//
// Operations never modify their receivers: each returns a new tensor.
// Shape violations panic with a message naming the operation.
package tensor
