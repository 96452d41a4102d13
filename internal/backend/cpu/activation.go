package cpu

import (
	"math"

	"github.com/born-ml/readcomp/internal/parallel"
	"github.com/born-ml/readcomp/internal/tensor"
)

// Softmax computes softmax along the specified dimension.
// Softmax(x_i) = exp(x_i - max) / sum(exp(x_j - max)) for all j in dimension.
//
// Subtracting the row max keeps exp from overflowing and makes a row whose
// entries are all equal (for example all driven to the same large negative
// value by a mask) come out uniform instead of NaN.
func (cpu *CPUBackend) Softmax(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	shape := x.Shape()
	dim = tensor.NormalizeDim(dim, len(shape))
	outer, size, inner := shape.Split(dim)

	result := cpu.newResult("softmax", shape, x.DType())
	switch x.DType() {
	case tensor.Float32:
		softmax(result.AsFloat32(), x.AsFloat32(), outer, size, inner, cpu.parallel)
	case tensor.Float64:
		softmax(result.AsFloat64(), x.AsFloat64(), outer, size, inner, cpu.parallel)
	default:
		panic(unsupported("softmax", x.DType()))
	}
	return result
}

func softmax[F tensor.DType](dst, src []F, outer, size, inner int, cfg parallel.Config) {
	parallel.For(outer*inner, func(row int) {
		base := (row/inner)*size*inner + row%inner

		maxVal := src[base]
		for d := 1; d < size; d++ {
			if v := src[base+d*inner]; v > maxVal {
				maxVal = v
			}
		}

		var sum float64
		for d := 0; d < size; d++ {
			idx := base + d*inner
			e := math.Exp(float64(src[idx]) - float64(maxVal))
			dst[idx] = F(e)
			sum += e
		}

		for d := 0; d < size; d++ {
			idx := base + d*inner
			dst[idx] = F(float64(dst[idx]) / sum)
		}
	}, cfg)
}
