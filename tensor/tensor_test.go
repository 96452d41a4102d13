// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor_test

import (
	"testing"

	"github.com/born-ml/readcomp/backend/cpu"
	"github.com/born-ml/readcomp/tensor"
)

// TestBackendInterface verifies that cpu.Backend implements tensor.Backend.
func TestBackendInterface(_ *testing.T) {
	var _ tensor.Backend = (*cpu.Backend)(nil)
}

// TestRawTensorAPI verifies RawTensor type alias exposes expected API.
func TestRawTensorAPI(t *testing.T) {
	raw, err := tensor.NewRaw(tensor.Shape{2, 3}, tensor.Float32, tensor.CPU)
	if err != nil {
		t.Fatalf("NewRaw failed: %v", err)
	}

	if !raw.Shape().Equal(tensor.Shape{2, 3}) {
		t.Errorf("Shape() = %v, want [2 3]", raw.Shape())
	}
	if raw.DType() != tensor.Float32 {
		t.Errorf("DType() = %v, want Float32", raw.DType())
	}
	if raw.NumElements() != 6 {
		t.Errorf("NumElements() = %d, want 6", raw.NumElements())
	}
	if raw.ByteSize() != 24 {
		t.Errorf("ByteSize() = %d, want 24", raw.ByteSize())
	}
}

func TestPublicCreation(t *testing.T) {
	backend := cpu.New()

	x, err := tensor.FromSlice([]float32{1, 2, 3, 4}, tensor.Shape{2, 2}, backend)
	if err != nil {
		t.Fatalf("FromSlice failed: %v", err)
	}
	y := tensor.Ones[float32](tensor.Shape{2, 2}, backend)

	sum := x.Add(y)
	want := []float32{2, 3, 4, 5}
	for i, v := range sum.Data() {
		if v != want[i] {
			t.Errorf("sum[%d] = %v, want %v", i, v, want[i])
		}
	}

	stacked := tensor.Stack([]*tensor.Tensor[float32, *cpu.Backend]{x, y}, 0)
	if !stacked.Shape().Equal(tensor.Shape{2, 2, 2}) {
		t.Errorf("Stack shape = %v, want [2 2 2]", stacked.Shape())
	}
	joined := tensor.Cat([]*tensor.Tensor[float32, *cpu.Backend]{x, y}, 1)
	if !joined.Shape().Equal(tensor.Shape{2, 4}) {
		t.Errorf("Cat shape = %v, want [2 4]", joined.Shape())
	}
}
