package cpu

import (
	"fmt"
	"math"

	"github.com/born-ml/readcomp/internal/tensor"
)

// binaryKernel holds the per-dtype implementations of an element-wise op.
type binaryKernel struct {
	name string
	f32  func(x, y float32) float32
	f64  func(x, y float64) float64
}

var (
	addKernel = binaryKernel{
		name: "add",
		f32:  func(x, y float32) float32 { return x + y },
		f64:  func(x, y float64) float64 { return x + y },
	}
	subKernel = binaryKernel{
		name: "sub",
		f32:  func(x, y float32) float32 { return x - y },
		f64:  func(x, y float64) float64 { return x - y },
	}
	mulKernel = binaryKernel{
		name: "mul",
		f32:  func(x, y float32) float32 { return x * y },
		f64:  func(x, y float64) float64 { return x * y },
	}
	divKernel = binaryKernel{
		name: "div",
		f32:  func(x, y float32) float32 { return x / y },
		f64:  func(x, y float64) float64 { return x / y },
	}
)

// Add performs element-wise addition with NumPy-style broadcasting.
func (cpu *CPUBackend) Add(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary(addKernel, a, b)
}

// Sub performs element-wise subtraction with broadcasting.
func (cpu *CPUBackend) Sub(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary(subKernel, a, b)
}

// Mul performs element-wise multiplication with broadcasting.
func (cpu *CPUBackend) Mul(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary(mulKernel, a, b)
}

// Div performs element-wise division with broadcasting.
func (cpu *CPUBackend) Div(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary(divKernel, a, b)
}

func (cpu *CPUBackend) binary(k binaryKernel, a, b *tensor.RawTensor) *tensor.RawTensor {
	if a.DType() != b.DType() {
		panic(fmt.Sprintf("%s: dtype mismatch %s vs %s", k.name, a.DType(), b.DType()))
	}
	outShape, needsBroadcast, err := tensor.BroadcastShapes(a.Shape(), b.Shape())
	if err != nil {
		panic(fmt.Sprintf("%s: %v", k.name, err))
	}

	result := cpu.newResult(k.name, outShape, a.DType())
	switch a.DType() {
	case tensor.Float32:
		applyBinary(result.AsFloat32(), a.AsFloat32(), b.AsFloat32(), a.Shape(), b.Shape(), outShape, needsBroadcast, k.f32)
	case tensor.Float64:
		applyBinary(result.AsFloat64(), a.AsFloat64(), b.AsFloat64(), a.Shape(), b.Shape(), outShape, needsBroadcast, k.f64)
	default:
		panic(unsupported(k.name, a.DType()))
	}
	return result
}

func applyBinary[F tensor.DType](dst, a, b []F, aShape, bShape, outShape tensor.Shape, broadcast bool, op func(x, y F) F) {
	if !broadcast {
		for i := range dst {
			dst[i] = op(a[i], b[i])
		}
		return
	}

	aStrides := tensor.BroadcastStrides(aShape, outShape)
	bStrides := tensor.BroadcastStrides(bShape, outShape)
	outStrides := outShape.ComputeStrides()
	for i := range dst {
		ai, bi, rem := 0, 0, i
		for d, s := range outStrides {
			coord := rem / s
			rem %= s
			ai += coord * aStrides[d]
			bi += coord * bStrides[d]
		}
		dst[i] = op(a[ai], b[bi])
	}
}

// AddScalar adds a scalar to every element.
func (cpu *CPUBackend) AddScalar(x *tensor.RawTensor, scalar float64) *tensor.RawTensor {
	return cpu.unary("add_scalar", x, func(v float64) float64 { return v + scalar })
}

// MulScalar multiplies every element by a scalar.
func (cpu *CPUBackend) MulScalar(x *tensor.RawTensor, scalar float64) *tensor.RawTensor {
	return cpu.unary("mul_scalar", x, func(v float64) float64 { return v * scalar })
}

// Exp computes e^x element-wise.
func (cpu *CPUBackend) Exp(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unary("exp", x, math.Exp)
}

// Sigmoid computes 1/(1+e^-x) element-wise without overflowing for large |x|.
func (cpu *CPUBackend) Sigmoid(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unary("sigmoid", x, sigmoid)
}

// Tanh computes the hyperbolic tangent element-wise.
func (cpu *CPUBackend) Tanh(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unary("tanh", x, math.Tanh)
}

func sigmoid(v float64) float64 {
	if v >= 0 {
		return 1 / (1 + math.Exp(-v))
	}
	e := math.Exp(v)
	return e / (1 + e)
}

func (cpu *CPUBackend) unary(op string, x *tensor.RawTensor, fn func(float64) float64) *tensor.RawTensor {
	result := cpu.newResult(op, x.Shape(), x.DType())
	switch x.DType() {
	case tensor.Float32:
		applyUnary(result.AsFloat32(), x.AsFloat32(), fn)
	case tensor.Float64:
		applyUnary(result.AsFloat64(), x.AsFloat64(), fn)
	default:
		panic(unsupported(op, x.DType()))
	}
	return result
}

func applyUnary[F tensor.DType](dst, src []F, fn func(float64) float64) {
	for i, v := range src {
		dst[i] = F(fn(float64(v)))
	}
}
