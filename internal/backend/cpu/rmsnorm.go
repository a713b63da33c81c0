package cpu

import (
	"math"

	"github.com/x448/float16"

	"github.com/born-ml/llaisys/internal/tensor"
)

// RMSNorm computes out[m, k] = in[m, k] / sqrt(mean_k(in[m, :]²) + eps) * weight[k].
// The sum of squares accumulates in float64.
func (cpu *CPUBackend) RMSNorm(out, in, weight *tensor.Tensor, eps float32) error {
	switch in.DType() {
	case tensor.Float32:
		rmsNorm[float32](out, in, weight, eps)
	case tensor.Float16:
		rmsNorm[float16.Float16](out, in, weight, eps)
	case tensor.BFloat16:
		rmsNorm[tensor.BF16](out, in, weight, eps)
	default:
		return unsupported("rms_norm", in.DType())
	}
	return nil
}

func rmsNorm[T tensor.Float](out, in, weight *tensor.Tensor, eps float32) {
	m, k := in.Shape()[0], in.Shape()[1]

	x, w, o := tensor.Elements[T](in), tensor.Elements[T](weight), tensor.Elements[T](out)
	xs, os, ws := in.Strides()[0], out.Strides()[0], weight.Strides()[0]

	for r := 0; r < m; r++ {
		row, dst := x[r*xs:], o[r*os:]

		var sum float64
		for i := 0; i < k; i++ {
			v := tensor.ToFloat32(row[i])
			sum += float64(v * v)
		}
		inv := float32(1 / math.Sqrt(sum/float64(k)+float64(eps)))

		for i := 0; i < k; i++ {
			dst[i] = tensor.FromFloat32[T](tensor.ToFloat32(row[i]) * inv * tensor.ToFloat32(w[i*ws]))
		}
	}
}
