package cpu

import (
	"github.com/born-ml/readcomp/internal/tensor"
)

// SumDim sums along dim. With keepDim the reduced dimension stays as size 1.
func (cpu *CPUBackend) SumDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	return cpu.reduce("sum_dim", x, dim, keepDim, false)
}

// MaxDim takes the maximum along dim. With keepDim the reduced dimension
// stays as size 1.
func (cpu *CPUBackend) MaxDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	return cpu.reduce("max_dim", x, dim, keepDim, true)
}

func (cpu *CPUBackend) reduce(op string, x *tensor.RawTensor, dim int, keepDim, takeMax bool) *tensor.RawTensor {
	shape := x.Shape()
	dim = tensor.NormalizeDim(dim, len(shape))
	outer, size, inner := shape.Split(dim)

	result := cpu.newResult(op, reducedShape(shape, dim, keepDim), x.DType())
	switch x.DType() {
	case tensor.Float32:
		reduceDim(result.AsFloat32(), x.AsFloat32(), outer, size, inner, takeMax)
	case tensor.Float64:
		reduceDim(result.AsFloat64(), x.AsFloat64(), outer, size, inner, takeMax)
	default:
		panic(unsupported(op, x.DType()))
	}
	return result
}

func reduceDim[F tensor.DType](dst, src []F, outer, size, inner int, takeMax bool) {
	for o := 0; o < outer; o++ {
		for i := 0; i < inner; i++ {
			base := o*size*inner + i
			acc := src[base]
			for d := 1; d < size; d++ {
				v := src[base+d*inner]
				switch {
				case !takeMax:
					acc += v
				case v > acc:
					acc = v
				}
			}
			dst[o*inner+i] = acc
		}
	}
}

func reducedShape(shape tensor.Shape, dim int, keepDim bool) tensor.Shape {
	out := make(tensor.Shape, 0, len(shape))
	for i, d := range shape {
		switch {
		case i != dim:
			out = append(out, d)
		case keepDim:
			out = append(out, 1)
		}
	}
	return out
}
