package tensor

import "fmt"

// Cat concatenates tensors along the specified dimension.
//
// All tensors must have the same shape except along dim.
// Supports negative dim indexing (-1 = last dimension).
//
// Example:
//
//	a := tensor.Zeros[float32](Shape{2, 3}, backend)
//	b := tensor.Zeros[float32](Shape{2, 5}, backend)
//	c := tensor.Cat([]*Tensor[float32, B]{a, b}, 1) // Shape: [2, 8]
func Cat[T DType, B Backend](tensors []*Tensor[T, B], dim int) *Tensor[T, B] {
	if len(tensors) == 0 {
		panic("cat: at least one tensor required")
	}
	if len(tensors) == 1 {
		return tensors[0].Clone()
	}

	raws := make([]*RawTensor, len(tensors))
	for i, t := range tensors {
		raws[i] = t.raw
	}
	backend := tensors[0].backend
	return New[T, B](backend.Cat(raws, dim), backend)
}

// Stack joins tensors of identical shape along a new dimension.
func Stack[T DType, B Backend](tensors []*Tensor[T, B], dim int) *Tensor[T, B] {
	if len(tensors) == 0 {
		panic("stack: at least one tensor required")
	}
	expanded := make([]*Tensor[T, B], len(tensors))
	for i, t := range tensors {
		expanded[i] = t.Unsqueeze(dim)
	}
	return Cat(expanded, dim)
}

// Narrow returns the slice [start, start+length) of dim.
//
// Example:
//
//	x := tensor.Zeros[float32](Shape{2, 5, 3}, backend)
//	step := x.Narrow(1, 2, 1) // Shape: [2, 1, 3]
func (t *Tensor[T, B]) Narrow(dim, start, length int) *Tensor[T, B] {
	return New[T, B](t.backend.Narrow(t.raw, dim, start, length), t.backend)
}

// Chunk splits the tensor into n equal parts along dim.
// The dimension size must be divisible by n.
func (t *Tensor[T, B]) Chunk(n, dim int) []*Tensor[T, B] {
	dim = NormalizeDim(dim, len(t.Shape()))
	size := t.Shape()[dim]
	if n <= 0 || size%n != 0 {
		panic(fmt.Sprintf("chunk: dimension %d of size %d is not divisible into %d parts", dim, size, n))
	}
	step := size / n
	parts := make([]*Tensor[T, B], n)
	for i := range parts {
		parts[i] = t.Narrow(dim, i*step, step)
	}
	return parts
}

// Unsqueeze adds a dimension of size 1 at dim.
//
// Example:
//
//	x := tensor.Zeros[float32](Shape{2, 3}, backend)
//	y := x.Unsqueeze(1)  // Shape: [2, 1, 3]
//	z := x.Unsqueeze(-1) // Shape: [2, 3, 1]
func (t *Tensor[T, B]) Unsqueeze(dim int) *Tensor[T, B] {
	shape := t.Shape()
	dim = NormalizeDim(dim, len(shape)+1)
	out := make(Shape, 0, len(shape)+1)
	out = append(out, shape[:dim]...)
	out = append(out, 1)
	out = append(out, shape[dim:]...)
	return t.Reshape(out...)
}

// Squeeze removes a dimension of size 1 at dim.
// Panics if the dimension size is not 1.
func (t *Tensor[T, B]) Squeeze(dim int) *Tensor[T, B] {
	shape := t.Shape()
	dim = NormalizeDim(dim, len(shape))
	if shape[dim] != 1 {
		panic(fmt.Sprintf("squeeze: dimension %d has size %d, expected 1", dim, shape[dim]))
	}
	out := make(Shape, 0, len(shape)-1)
	out = append(out, shape[:dim]...)
	out = append(out, shape[dim+1:]...)
	return t.Reshape(out...)
}

// ReverseSequence reverses the first lengths[b] steps of every batch row
// of a [batch, seq, ...] tensor.
func (t *Tensor[T, B]) ReverseSequence(lengths []int) *Tensor[T, B] {
	return New[T, B](t.backend.ReverseSequence(t.raw, lengths), t.backend)
}
