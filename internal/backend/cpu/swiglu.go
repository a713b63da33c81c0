package cpu

import (
	"math"

	"github.com/x448/float16"

	"github.com/born-ml/llaisys/internal/tensor"
)

// SwiGLU computes out = up * gate * sigmoid(gate) element-wise.
func (cpu *CPUBackend) SwiGLU(out, gate, up *tensor.Tensor) error {
	switch gate.DType() {
	case tensor.Float32:
		swiglu[float32](out, gate, up)
	case tensor.Float16:
		swiglu[float16.Float16](out, gate, up)
	case tensor.BFloat16:
		swiglu[tensor.BF16](out, gate, up)
	default:
		return unsupported("swiglu", gate.DType())
	}
	return nil
}

func swiglu[T tensor.Float](out, gate, up *tensor.Tensor) {
	rows, cols := gate.Shape()[0], gate.Shape()[1]

	g, u, o := tensor.Elements[T](gate), tensor.Elements[T](up), tensor.Elements[T](out)
	gs, us, os := gate.Strides(), up.Strides(), out.Strides()

	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			x := tensor.ToFloat32(g[r*gs[0]+c*gs[1]])
			sig := float32(1 / (1 + math.Exp(-float64(x))))
			o[r*os[0]+c*os[1]] = tensor.FromFloat32[T](tensor.ToFloat32(u[r*us[0]+c*us[1]]) * x * sig)
		}
	}
}
