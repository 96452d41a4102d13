package nn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
)

// TestMaskedSoftmax_ZerosAndSums tests that masked positions get exactly
// zero probability and rows sum to one.
func TestMaskedSoftmax_ZerosAndSums(t *testing.T) {
	logits := fromSlice(t, []float32{
		1, 2, 3, 4,
		-5, 0.5, 100, 7,
	}, 2, 4)
	mask := fromSlice(t, []float32{
		1, 1, 0, 0,
		0, 1, 0, 1,
	}, 2, 4)

	masked, dist := MaskedSoftmax(logits, mask, 1)
	require.Equal(t, logits.Shape(), dist.Shape())

	p := values(dist)
	assert.InDelta(t, 1.0, floats.Sum(p[:4]), 1e-6)
	assert.InDelta(t, 1.0, floats.Sum(p[4:]), 1e-6)
	for _, i := range []int{2, 3, 4, 6} {
		assert.Equal(t, 0.0, p[i], "position %d", i)
	}

	// Unmasked logits are unchanged, masked ones are pushed far down.
	assert.Equal(t, float32(2), masked.At(0, 1))
	assert.Less(t, masked.At(1, 2), float32(-1e29))

	// Row 0 matches a plain softmax over the two unmasked logits.
	e1, e2 := 1.0, 2.718281828459045
	assert.InDelta(t, e1/(e1+e2), p[0], 1e-6)
}

// TestMaskedSoftmax_ShiftInvariance tests that adding a constant to every
// logit leaves the distribution unchanged.
func TestMaskedSoftmax_ShiftInvariance(t *testing.T) {
	logits := randTensor(3, 2, 5)
	mask := fromSlice(t, []float32{1, 1, 1, 0, 0, 1, 0, 1, 1, 1}, 2, 5)

	_, a := MaskedSoftmax(logits, mask, -1)
	_, b := MaskedSoftmax(logits.AddScalar(10), mask, -1)
	assert.True(t, floats.EqualApprox(values(a), values(b), 1e-6))
}

// TestMaskedSoftmax_FullyMasked tests that an all-masked row yields the
// uniform distribution instead of NaN.
func TestMaskedSoftmax_FullyMasked(t *testing.T) {
	logits := fromSlice(t, []float32{3, -2, 0.25, 1, 2, 3}, 2, 3)
	mask := fromSlice(t, []float32{0, 0, 0, 1, 1, 1}, 2, 3)

	_, dist := MaskedSoftmax(logits, mask, 1)
	assertNoNaN(t, dist)
	for j := 0; j < 3; j++ {
		assert.InDelta(t, 1.0/3, dist.At(0, j), 1e-6)
	}
}

// TestMaskedSoftmax_Broadcast tests a [batch, 1, n] mask over [batch, m, n]
// logits along the last axis.
func TestMaskedSoftmax_Broadcast(t *testing.T) {
	logits := randTensor(5, 2, 3, 4)
	mask := fromSlice(t, []float32{1, 1, 1, 0, 1, 0, 0, 0}, 2, 1, 4)

	_, dist := MaskedSoftmax(logits, mask, 2)
	require.Equal(t, logits.Shape(), dist.Shape())
	for i := 0; i < 3; i++ {
		assert.Equal(t, float32(0), dist.At(0, i, 3))
		assert.InDelta(t, 1.0, dist.At(1, i, 0), 1e-6)
	}
}
