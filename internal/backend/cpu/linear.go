package cpu

import (
	"github.com/x448/float16"

	"github.com/born-ml/llaisys/internal/tensor"
)

// Linear computes out[m, n] = Σ_k in[m, k] * weight[n, k] + bias[n].
// bias may be nil. Products accumulate in float32.
func (cpu *CPUBackend) Linear(out, in, weight, bias *tensor.Tensor) error {
	switch in.DType() {
	case tensor.Float32:
		linear[float32](out, in, weight, bias)
	case tensor.Float16:
		linear[float16.Float16](out, in, weight, bias)
	case tensor.BFloat16:
		linear[tensor.BF16](out, in, weight, bias)
	default:
		return unsupported("linear", in.DType())
	}
	return nil
}

func linear[T tensor.Float](out, in, weight, bias *tensor.Tensor) {
	m, k := in.Shape()[0], in.Shape()[1]
	n := weight.Shape()[0]

	x, w, o := tensor.Elements[T](in), tensor.Elements[T](weight), tensor.Elements[T](out)
	xs, ws, os := in.Strides(), weight.Strides(), out.Strides()

	var (
		b  []T
		bs int
	)
	if bias != nil {
		b, bs = tensor.Elements[T](bias), bias.Strides()[0]
	}

	for r := 0; r < m; r++ {
		for c := 0; c < n; c++ {
			var sum float32
			for i := 0; i < k; i++ {
				sum += tensor.ToFloat32(x[r*xs[0]+i*xs[1]]) * tensor.ToFloat32(w[c*ws[0]+i*ws[1]])
			}
			if b != nil {
				sum += tensor.ToFloat32(b[c*bs])
			}
			o[r*os[0]+c*os[1]] = tensor.FromFloat32[T](sum)
		}
	}
}
