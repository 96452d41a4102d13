package cpu

import (
	"math"
	"testing"

	"github.com/born-ml/readcomp/internal/parallel"
	"github.com/born-ml/readcomp/internal/tensor"
)

func rawFrom(t *testing.T, shape tensor.Shape, data ...float32) *tensor.RawTensor {
	t.Helper()
	r, err := tensor.NewRaw(shape, tensor.Float32, tensor.CPU)
	if err != nil {
		t.Fatal(err)
	}
	copy(r.AsFloat32(), data)
	return r
}

func assertClose(t *testing.T, got []float32, want []float32, tol float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d", len(got), len(want))
	}
	for i := range want {
		if math.Abs(float64(got[i]-want[i])) > tol {
			t.Errorf("index %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestBackendMetadata(t *testing.T) {
	backend := New()
	if backend.Name() != "CPU" {
		t.Errorf("Expected name CPU, got %s", backend.Name())
	}
	if backend.Device() != tensor.CPU {
		t.Errorf("Expected device CPU, got %v", backend.Device())
	}
}

func TestAdd_Broadcast(t *testing.T) {
	backend := New()

	a := rawFrom(t, tensor.Shape{2, 3}, 1, 2, 3, 4, 5, 6)
	b := rawFrom(t, tensor.Shape{3}, 10, 20, 30)

	result := backend.Add(a, b)
	if !result.Shape().Equal(tensor.Shape{2, 3}) {
		t.Fatalf("Expected shape [2, 3], got %v", result.Shape())
	}
	assertClose(t, result.AsFloat32(), []float32{11, 22, 33, 14, 25, 36}, 0)

	// Inputs are never modified.
	assertClose(t, a.AsFloat32(), []float32{1, 2, 3, 4, 5, 6}, 0)
}

func TestMul_ColumnBroadcast(t *testing.T) {
	backend := New()

	a := rawFrom(t, tensor.Shape{2, 3}, 1, 2, 3, 4, 5, 6)
	b := rawFrom(t, tensor.Shape{2, 1}, 2, 3)

	result := backend.Mul(a, b)
	assertClose(t, result.AsFloat32(), []float32{2, 4, 6, 12, 15, 18}, 0)
}

func TestBinary_IncompatibleShapesPanics(t *testing.T) {
	backend := New()
	defer func() {
		if recover() == nil {
			t.Error("Expected panic for incompatible shapes")
		}
	}()
	backend.Sub(rawFrom(t, tensor.Shape{2, 3}), rawFrom(t, tensor.Shape{2, 4}))
}

func TestScalarOps(t *testing.T) {
	backend := New()
	x := rawFrom(t, tensor.Shape{3}, -1, 0, 2)

	assertClose(t, backend.AddScalar(x, 1).AsFloat32(), []float32{0, 1, 3}, 0)
	assertClose(t, backend.MulScalar(x, -2).AsFloat32(), []float32{2, 0, -4}, 0)
}

func TestSigmoid_Extremes(t *testing.T) {
	backend := New()
	x := rawFrom(t, tensor.Shape{3}, -1000, 0, 1000)

	result := backend.Sigmoid(x).AsFloat32()
	assertClose(t, result, []float32{0, 0.5, 1}, 1e-7)
	for i, v := range result {
		if math.IsNaN(float64(v)) {
			t.Errorf("index %d is NaN", i)
		}
	}
}

func TestTanh(t *testing.T) {
	backend := New()
	x := rawFrom(t, tensor.Shape{2}, 0, 1)
	assertClose(t, backend.Tanh(x).AsFloat32(), []float32{0, float32(math.Tanh(1))}, 1e-6)
}

func TestMatMul(t *testing.T) {
	backend := New()

	// [2, 3] @ [3, 2]
	a := rawFrom(t, tensor.Shape{2, 3}, 1, 2, 3, 4, 5, 6)
	b := rawFrom(t, tensor.Shape{3, 2}, 7, 8, 9, 10, 11, 12)

	result := backend.MatMul(a, b)
	if !result.Shape().Equal(tensor.Shape{2, 2}) {
		t.Fatalf("Expected shape [2, 2], got %v", result.Shape())
	}
	assertClose(t, result.AsFloat32(), []float32{58, 64, 139, 154}, 1e-4)
}

func TestMatMul_Float64(t *testing.T) {
	backend := New()

	a := tensor.MustNewRaw(tensor.Shape{1, 2}, tensor.Float64, tensor.CPU)
	b := tensor.MustNewRaw(tensor.Shape{2, 1}, tensor.Float64, tensor.CPU)
	copy(a.AsFloat64(), []float64{3, 4})
	copy(b.AsFloat64(), []float64{5, 6})

	result := backend.MatMul(a, b)
	if got := result.AsFloat64()[0]; got != 39 {
		t.Errorf("Expected 39, got %v", got)
	}
}

func TestBatchMatMul_MatchesPerBatchMatMul(t *testing.T) {
	for _, cfg := range []parallel.Config{parallel.Sequential(), {Enabled: true, NumWorkers: 4, MinChunkSize: 1}} {
		backend := NewWithConfig(cfg)

		a := tensor.MustNewRaw(tensor.Shape{3, 2, 4}, tensor.Float32, tensor.CPU)
		b := tensor.MustNewRaw(tensor.Shape{3, 4, 5}, tensor.Float32, tensor.CPU)
		for i := range a.AsFloat32() {
			a.AsFloat32()[i] = float32(i%7) - 3
		}
		for i := range b.AsFloat32() {
			b.AsFloat32()[i] = float32(i%5) * 0.5
		}

		result := backend.BatchMatMul(a, b)
		if !result.Shape().Equal(tensor.Shape{3, 2, 5}) {
			t.Fatalf("Expected shape [3, 2, 5], got %v", result.Shape())
		}
		for batch := 0; batch < 3; batch++ {
			ab := backend.Narrow(a, 0, batch, 1)
			bb := backend.Narrow(b, 0, batch, 1)
			want := backend.MatMul(backend.Reshape(ab, tensor.Shape{2, 4}), backend.Reshape(bb, tensor.Shape{4, 5}))
			got := backend.Narrow(result, 0, batch, 1)
			assertClose(t, got.AsFloat32(), want.AsFloat32(), 1e-5)
		}
	}
}

func TestBatchMatMul_InnerMismatchPanics(t *testing.T) {
	backend := New()
	defer func() {
		if recover() == nil {
			t.Error("Expected panic for inner dimension mismatch")
		}
	}()
	backend.BatchMatMul(rawFrom(t, tensor.Shape{1, 2, 3}), rawFrom(t, tensor.Shape{1, 4, 2}))
}

// TestSoftmax_RowsSumToOne tests softmax along the last and a middle dimension.
func TestSoftmax_RowsSumToOne(t *testing.T) {
	backend := New()

	x := rawFrom(t, tensor.Shape{2, 3}, 1, 2, 3, 0, 0, 0)
	result := backend.Softmax(x, -1).AsFloat32()

	e1, e2, e3 := math.Exp(1), math.Exp(2), math.Exp(3)
	sum := e1 + e2 + e3
	assertClose(t, result, []float32{
		float32(e1 / sum), float32(e2 / sum), float32(e3 / sum),
		1.0 / 3, 1.0 / 3, 1.0 / 3,
	}, 1e-6)

	// Along dim 0 of [2, 3]: each column sums to one.
	cols := backend.Softmax(x, 0).AsFloat32()
	for c := 0; c < 3; c++ {
		if s := cols[c] + cols[3+c]; math.Abs(float64(s)-1) > 1e-6 {
			t.Errorf("column %d sums to %v", c, s)
		}
	}
}

func TestSoftmax_LargeValues(t *testing.T) {
	backend := New()

	x := rawFrom(t, tensor.Shape{1, 3}, -1e30, -1e30, -1e30)
	assertClose(t, backend.Softmax(x, 1).AsFloat32(), []float32{1.0 / 3, 1.0 / 3, 1.0 / 3}, 1e-6)

	y := rawFrom(t, tensor.Shape{1, 3}, 1000, -1e30, 999)
	got := backend.Softmax(y, 1).AsFloat32()
	if got[1] != 0 {
		t.Errorf("Expected masked entry to be exactly 0, got %v", got[1])
	}
	if math.Abs(float64(got[0]+got[2])-1) > 1e-6 {
		t.Errorf("Expected row to sum to 1, got %v", got[0]+got[2])
	}
}

func TestSumDim_MaxDim(t *testing.T) {
	backend := New()

	// [2, 3, 2]
	x := rawFrom(t, tensor.Shape{2, 3, 2},
		1, 2, 3, 4, 5, 6,
		-1, 8, 0, -2, 7, 1)

	sum := backend.SumDim(x, 1, false)
	if !sum.Shape().Equal(tensor.Shape{2, 2}) {
		t.Fatalf("Expected shape [2, 2], got %v", sum.Shape())
	}
	assertClose(t, sum.AsFloat32(), []float32{9, 12, 6, 7}, 0)

	maxKeep := backend.MaxDim(x, 1, true)
	if !maxKeep.Shape().Equal(tensor.Shape{2, 1, 2}) {
		t.Fatalf("Expected shape [2, 1, 2], got %v", maxKeep.Shape())
	}
	assertClose(t, maxKeep.AsFloat32(), []float32{5, 6, 7, 8}, 0)

	maxLast := backend.MaxDim(x, -1, false)
	assertClose(t, maxLast.AsFloat32(), []float32{2, 4, 6, 8, 0, 7}, 0)
}

func TestSumDim_ToScalar(t *testing.T) {
	backend := New()
	x := rawFrom(t, tensor.Shape{4}, 1, 2, 3, 4)

	result := backend.SumDim(x, 0, false)
	if len(result.Shape()) != 0 {
		t.Errorf("Expected shape [], got %v", result.Shape())
	}
	if result.AsFloat32()[0] != 10 {
		t.Errorf("Expected 10, got %v", result.AsFloat32()[0])
	}
}

func TestTranspose(t *testing.T) {
	backend := New()

	x := rawFrom(t, tensor.Shape{2, 3}, 1, 2, 3, 4, 5, 6)
	tt := backend.Transpose(x)
	if !tt.Shape().Equal(tensor.Shape{3, 2}) {
		t.Fatalf("Expected shape [3, 2], got %v", tt.Shape())
	}
	assertClose(t, tt.AsFloat32(), []float32{1, 4, 2, 5, 3, 6}, 0)

	// [1, 2, 3] -> [1, 3, 2]
	y := rawFrom(t, tensor.Shape{1, 2, 3}, 1, 2, 3, 4, 5, 6)
	yt := backend.Transpose(y, 0, 2, 1)
	if !yt.Shape().Equal(tensor.Shape{1, 3, 2}) {
		t.Fatalf("Expected shape [1, 3, 2], got %v", yt.Shape())
	}
	assertClose(t, yt.AsFloat32(), []float32{1, 4, 2, 5, 3, 6}, 0)
}

func TestTranspose_RepeatedAxisPanics(t *testing.T) {
	backend := New()
	defer func() {
		if recover() == nil {
			t.Error("Expected panic for repeated axis")
		}
	}()
	backend.Transpose(rawFrom(t, tensor.Shape{2, 3}), 1, 1)
}

func TestExpand(t *testing.T) {
	backend := New()

	x := rawFrom(t, tensor.Shape{2, 1}, 1, 2)
	result := backend.Expand(x, tensor.Shape{3, 2, 2})
	if !result.Shape().Equal(tensor.Shape{3, 2, 2}) {
		t.Fatalf("Expected shape [3, 2, 2], got %v", result.Shape())
	}
	assertClose(t, result.AsFloat32(), []float32{1, 1, 2, 2, 1, 1, 2, 2, 1, 1, 2, 2}, 0)
}

func TestExpand_ShrinkPanics(t *testing.T) {
	backend := New()
	defer func() {
		if recover() == nil {
			t.Error("Expected panic when target shape is not a broadcast of the input")
		}
	}()
	backend.Expand(rawFrom(t, tensor.Shape{2, 3}), tensor.Shape{3})
}

func TestCat(t *testing.T) {
	backend := New()

	a := rawFrom(t, tensor.Shape{2, 1}, 1, 2)
	b := rawFrom(t, tensor.Shape{2, 2}, 3, 4, 5, 6)

	result := backend.Cat([]*tensor.RawTensor{a, b}, -1)
	if !result.Shape().Equal(tensor.Shape{2, 3}) {
		t.Fatalf("Expected shape [2, 3], got %v", result.Shape())
	}
	assertClose(t, result.AsFloat32(), []float32{1, 3, 4, 2, 5, 6}, 0)

	rows := backend.Cat([]*tensor.RawTensor{b, b}, 0)
	assertClose(t, rows.AsFloat32(), []float32{3, 4, 5, 6, 3, 4, 5, 6}, 0)
}

func TestCat_ShapeMismatchPanics(t *testing.T) {
	backend := New()
	defer func() {
		if recover() == nil {
			t.Error("Expected panic for mismatched shapes")
		}
	}()
	backend.Cat([]*tensor.RawTensor{rawFrom(t, tensor.Shape{2, 1}), rawFrom(t, tensor.Shape{3, 1})}, 1)
}

func TestNarrow(t *testing.T) {
	backend := New()

	x := rawFrom(t, tensor.Shape{2, 4}, 0, 1, 2, 3, 4, 5, 6, 7)
	result := backend.Narrow(x, 1, 1, 2)
	if !result.Shape().Equal(tensor.Shape{2, 2}) {
		t.Fatalf("Expected shape [2, 2], got %v", result.Shape())
	}
	assertClose(t, result.AsFloat32(), []float32{1, 2, 5, 6}, 0)
}

func TestNarrow_OutOfRangePanics(t *testing.T) {
	backend := New()
	defer func() {
		if recover() == nil {
			t.Error("Expected panic for out-of-range narrow")
		}
	}()
	backend.Narrow(rawFrom(t, tensor.Shape{2, 4}), 1, 3, 2)
}

func TestReverseSequence(t *testing.T) {
	backend := New()

	// [2, 4, 1]; row 0 has length 3, row 1 has length 4.
	x := rawFrom(t, tensor.Shape{2, 4, 1}, 1, 2, 3, 4, 5, 6, 7, 8)
	result := backend.ReverseSequence(x, []int{3, 4})
	assertClose(t, result.AsFloat32(), []float32{3, 2, 1, 4, 8, 7, 6, 5}, 0)

	// Applying twice restores the input.
	back := backend.ReverseSequence(result, []int{3, 4})
	assertClose(t, back.AsFloat32(), x.AsFloat32(), 0)

	// Zero length leaves the row untouched.
	none := backend.ReverseSequence(x, []int{0, 1})
	assertClose(t, none.AsFloat32(), x.AsFloat32(), 0)
}

func TestReverseSequence_BadLengthsPanics(t *testing.T) {
	backend := New()
	x := rawFrom(t, tensor.Shape{2, 4, 1})

	for name, lengths := range map[string][]int{
		"count":    {1},
		"too long": {5, 1},
		"negative": {-1, 1},
	} {
		t.Run(name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Errorf("Expected panic for lengths %v", lengths)
				}
			}()
			backend.ReverseSequence(x, lengths)
		})
	}
}
