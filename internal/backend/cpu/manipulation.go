package cpu

import (
	"fmt"

	"github.com/born-ml/readcomp/internal/tensor"
)

// Transpose permutes the dimensions of x. With no axes, the dimensions are
// reversed.
func (cpu *CPUBackend) Transpose(x *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	shape := x.Shape()
	ndim := len(shape)

	if len(axes) == 0 {
		axes = make([]int, ndim)
		for i := range axes {
			axes[i] = ndim - 1 - i
		}
	}
	if len(axes) != ndim {
		panic(fmt.Sprintf("transpose: expected %d axes, got %d", ndim, len(axes)))
	}

	seen := make([]bool, ndim)
	perm := make([]int, ndim)
	outShape := make(tensor.Shape, ndim)
	for i, ax := range axes {
		ax = tensor.NormalizeDim(ax, ndim)
		if seen[ax] {
			panic(fmt.Sprintf("transpose: axis %d repeated in %v", ax, axes))
		}
		seen[ax] = true
		perm[i] = ax
		outShape[i] = shape[ax]
	}

	result := cpu.newResult("transpose", outShape, x.DType())
	switch x.DType() {
	case tensor.Float32:
		permute(result.AsFloat32(), x.AsFloat32(), shape, outShape, perm)
	case tensor.Float64:
		permute(result.AsFloat64(), x.AsFloat64(), shape, outShape, perm)
	default:
		panic(unsupported("transpose", x.DType()))
	}
	return result
}

func permute[F tensor.DType](dst, src []F, inShape, outShape tensor.Shape, axes []int) {
	inStrides := inShape.ComputeStrides()
	outStrides := outShape.ComputeStrides()
	for i := range dst {
		rem, srcIdx := i, 0
		for d, s := range outStrides {
			coord := rem / s
			rem %= s
			srcIdx += coord * inStrides[axes[d]]
		}
		dst[i] = src[srcIdx]
	}
}

// Expand broadcasts x to shape, materializing the repeated values.
func (cpu *CPUBackend) Expand(x *tensor.RawTensor, shape tensor.Shape) *tensor.RawTensor {
	out, _, err := tensor.BroadcastShapes(x.Shape(), shape)
	if err != nil || !out.Equal(shape) {
		panic(fmt.Sprintf("expand: cannot broadcast %v to %v", x.Shape(), shape))
	}

	result := cpu.newResult("expand", shape, x.DType())
	switch x.DType() {
	case tensor.Float32:
		gatherBroadcast(result.AsFloat32(), x.AsFloat32(), x.Shape(), shape)
	case tensor.Float64:
		gatherBroadcast(result.AsFloat64(), x.AsFloat64(), x.Shape(), shape)
	default:
		panic(unsupported("expand", x.DType()))
	}
	return result
}

func gatherBroadcast[F tensor.DType](dst, src []F, inShape, outShape tensor.Shape) {
	inStrides := tensor.BroadcastStrides(inShape, outShape)
	outStrides := outShape.ComputeStrides()
	for i := range dst {
		rem, srcIdx := i, 0
		for d, s := range outStrides {
			coord := rem / s
			rem %= s
			srcIdx += coord * inStrides[d]
		}
		dst[i] = src[srcIdx]
	}
}

// Cat concatenates tensors along dim.
// All tensors must match in every other dimension.
func (cpu *CPUBackend) Cat(tensors []*tensor.RawTensor, dim int) *tensor.RawTensor {
	if len(tensors) == 0 {
		panic("cat: at least one tensor required")
	}
	first := tensors[0].Shape()
	dim = tensor.NormalizeDim(dim, len(first))

	outShape := first.Clone()
	outShape[dim] = 0
	for i, t := range tensors {
		s := t.Shape()
		if len(s) != len(first) {
			panic(fmt.Sprintf("cat: tensor %d has rank %d, expected %d", i, len(s), len(first)))
		}
		if t.DType() != tensors[0].DType() {
			panic(fmt.Sprintf("cat: tensor %d has dtype %s, expected %s", i, t.DType(), tensors[0].DType()))
		}
		for d := range s {
			if d != dim && s[d] != first[d] {
				panic(fmt.Sprintf("cat: tensor %d shape %v incompatible with %v along dim %d", i, s, first, d))
			}
		}
		outShape[dim] += s[dim]
	}

	result := cpu.newResult("cat", outShape, tensors[0].DType())
	switch result.DType() {
	case tensor.Float32:
		parts := make([][]float32, len(tensors))
		for i, t := range tensors {
			parts[i] = t.AsFloat32()
		}
		concat(result.AsFloat32(), parts, tensors, dim)
	case tensor.Float64:
		parts := make([][]float64, len(tensors))
		for i, t := range tensors {
			parts[i] = t.AsFloat64()
		}
		concat(result.AsFloat64(), parts, tensors, dim)
	default:
		panic(unsupported("cat", result.DType()))
	}
	return result
}

func concat[F tensor.DType](dst []F, parts [][]F, tensors []*tensor.RawTensor, dim int) {
	outer, _, _ := tensors[0].Shape().Split(dim)
	pos := 0
	for o := 0; o < outer; o++ {
		for i, t := range tensors {
			_, size, inner := t.Shape().Split(dim)
			block := size * inner
			pos += copy(dst[pos:], parts[i][o*block:(o+1)*block])
		}
	}
}

// Narrow returns the slice [start, start+length) of dim.
func (cpu *CPUBackend) Narrow(x *tensor.RawTensor, dim, start, length int) *tensor.RawTensor {
	shape := x.Shape()
	dim = tensor.NormalizeDim(dim, len(shape))
	if start < 0 || length <= 0 || start+length > shape[dim] {
		panic(fmt.Sprintf("narrow: range [%d, %d) out of bounds for dimension %d of size %d",
			start, start+length, dim, shape[dim]))
	}

	outShape := shape.Clone()
	outShape[dim] = length
	outer, size, inner := shape.Split(dim)

	result := cpu.newResult("narrow", outShape, x.DType())
	switch x.DType() {
	case tensor.Float32:
		narrow(result.AsFloat32(), x.AsFloat32(), outer, size, inner, start, length)
	case tensor.Float64:
		narrow(result.AsFloat64(), x.AsFloat64(), outer, size, inner, start, length)
	default:
		panic(unsupported("narrow", x.DType()))
	}
	return result
}

func narrow[F tensor.DType](dst, src []F, outer, size, inner, start, length int) {
	for o := 0; o < outer; o++ {
		from := o*size*inner + start*inner
		copy(dst[o*length*inner:(o+1)*length*inner], src[from:from+length*inner])
	}
}

// ReverseSequence reverses the first lengths[b] steps of each batch row of
// x ([batch, seq, ...]); steps at or beyond lengths[b] keep their position.
func (cpu *CPUBackend) ReverseSequence(x *tensor.RawTensor, lengths []int) *tensor.RawTensor {
	shape := x.Shape()
	if len(shape) < 2 {
		panic(fmt.Sprintf("reverse_sequence: expected at least 2D [batch, seq, ...], got %v", shape))
	}
	batch, seq := shape[0], shape[1]
	if len(lengths) != batch {
		panic(fmt.Sprintf("reverse_sequence: got %d lengths for batch of %d", len(lengths), batch))
	}
	for b, l := range lengths {
		if l < 0 || l > seq {
			panic(fmt.Sprintf("reverse_sequence: length %d of row %d outside [0, %d]", l, b, seq))
		}
	}

	inner := 1
	for _, d := range shape[2:] {
		inner *= d
	}

	result := cpu.newResult("reverse_sequence", shape, x.DType())
	switch x.DType() {
	case tensor.Float32:
		reverseRows(result.AsFloat32(), x.AsFloat32(), lengths, seq, inner)
	case tensor.Float64:
		reverseRows(result.AsFloat64(), x.AsFloat64(), lengths, seq, inner)
	default:
		panic(unsupported("reverse_sequence", x.DType()))
	}
	return result
}

func reverseRows[F tensor.DType](dst, src []F, lengths []int, seq, inner int) {
	for b, l := range lengths {
		row := b * seq * inner
		for t := 0; t < seq; t++ {
			from := t
			if t < l {
				from = l - 1 - t
			}
			copy(dst[row+t*inner:row+(t+1)*inner], src[row+from*inner:row+(from+1)*inner])
		}
	}
}
