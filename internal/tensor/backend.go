package tensor

// Backend defines the operations a compute backend provides to the layers.
//
// Every operation returns a newly allocated tensor and leaves its inputs
// untouched. Shape violations panic with a message prefixed by the
// operation name.
//
// Implementations:
//   - CPU: pure Go kernels with gonum BLAS for matrix products
type Backend interface {
	// Element-wise binary operations with NumPy-style broadcasting.
	Add(a, b *RawTensor) *RawTensor
	Sub(a, b *RawTensor) *RawTensor
	Mul(a, b *RawTensor) *RawTensor
	Div(a, b *RawTensor) *RawTensor

	// Scalar operations.
	AddScalar(x *RawTensor, scalar float64) *RawTensor
	MulScalar(x *RawTensor, scalar float64) *RawTensor

	// MatMul multiplies 2D tensors: [M, K] @ [K, N] -> [M, N].
	MatMul(a, b *RawTensor) *RawTensor

	// BatchMatMul multiplies the last two dimensions of 3D/4D tensors whose
	// leading (batch) dimensions match: [B, M, K] @ [B, K, N] -> [B, M, N].
	BatchMatMul(a, b *RawTensor) *RawTensor

	// Shape operations.
	Reshape(x *RawTensor, newShape Shape) *RawTensor
	Transpose(x *RawTensor, axes ...int) *RawTensor
	Expand(x *RawTensor, shape Shape) *RawTensor

	// Element-wise math and activations.
	Exp(x *RawTensor) *RawTensor
	Sigmoid(x *RawTensor) *RawTensor
	Tanh(x *RawTensor) *RawTensor

	// Softmax normalizes along dim, subtracting the row max first.
	Softmax(x *RawTensor, dim int) *RawTensor

	// Reductions along one dimension.
	SumDim(x *RawTensor, dim int, keepDim bool) *RawTensor
	MaxDim(x *RawTensor, dim int, keepDim bool) *RawTensor

	// Manipulation.
	Cat(tensors []*RawTensor, dim int) *RawTensor
	Narrow(x *RawTensor, dim, start, length int) *RawTensor

	// ReverseSequence reverses, for each batch row b of x ([batch, seq, ...]),
	// the first lengths[b] steps along dim 1 and leaves the rest in place.
	ReverseSequence(x *RawTensor, lengths []int) *RawTensor

	// Metadata.
	Name() string
	Device() Device
}
