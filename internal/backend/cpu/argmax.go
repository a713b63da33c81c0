package cpu

import (
	"github.com/x448/float16"

	"github.com/born-ml/llaisys/internal/tensor"
)

// Argmax writes the flat index of the first maximum of vals to maxIdx[0] and
// its value to maxVal[0]. vals is contiguous and non-empty.
func (cpu *CPUBackend) Argmax(maxIdx, maxVal, vals *tensor.Tensor) error {
	switch vals.DType() {
	case tensor.Float32:
		argmax[float32](maxIdx, maxVal, vals)
	case tensor.Float16:
		argmax[float16.Float16](maxIdx, maxVal, vals)
	case tensor.BFloat16:
		argmax[tensor.BF16](maxIdx, maxVal, vals)
	default:
		return unsupported("argmax", vals.DType())
	}
	return nil
}

func argmax[T tensor.Float](maxIdx, maxVal, vals *tensor.Tensor) {
	x := tensor.Elements[T](vals)[:vals.NumElements()]

	best, bestVal := 0, tensor.ToFloat32(x[0])
	for i := 1; i < len(x); i++ {
		if f := tensor.ToFloat32(x[i]); f > bestVal {
			best, bestVal = i, f
		}
	}

	tensor.Elements[int64](maxIdx)[0] = int64(best)
	tensor.Elements[T](maxVal)[0] = x[best]
}
