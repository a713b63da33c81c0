package cpu

import (
	"github.com/x448/float16"

	"github.com/born-ml/llaisys/internal/tensor"
)

// Embedding copies weight[index[i], :] into out[i, :].
// index is 1-D Int64, weight is [V, D] and out is [len(index), D]. Any
// index outside [0, V) fails before out is written.
func (cpu *CPUBackend) Embedding(out, index, weight *tensor.Tensor) error {
	switch weight.DType() {
	case tensor.Float32:
		return embedding[float32](out, index, weight)
	case tensor.Float16:
		return embedding[float16.Float16](out, index, weight)
	case tensor.BFloat16:
		return embedding[tensor.BF16](out, index, weight)
	default:
		return unsupported("embedding", weight.DType())
	}
}

func embedding[T tensor.Float](out, index, weight *tensor.Tensor) error {
	vocab, dim := weight.Shape()[0], weight.Shape()[1]
	n := index.Shape()[0]
	idx := tensor.Elements[int64](index)
	is := index.Strides()[0]

	for i := 0; i < n; i++ {
		if row := idx[i*is]; row < 0 || row >= int64(vocab) {
			return tensor.Errorf("embedding", tensor.ErrInvalidArgument, "index[%d] = %d outside vocabulary of %d", i, row, vocab)
		}
	}

	w, o := tensor.Elements[T](weight), tensor.Elements[T](out)
	ws, os := weight.Strides(), out.Strides()
	for i := 0; i < n; i++ {
		src := int(idx[i*is]) * ws[0]
		dst := i * os[0]
		for j := 0; j < dim; j++ {
			o[dst+j*os[1]] = w[src+j*ws[1]]
		}
	}
	return nil
}
