package cpu

import (
	"math"

	"github.com/x448/float16"

	"github.com/born-ml/llaisys/internal/tensor"
)

// RoPE rotates each pair (x[j], x[j+d/2]) of every head by the angle
// pos * theta^(-2j/d). Frequencies and angles are computed in float64 and
// the rotation in float32. out may alias in.
func (cpu *CPUBackend) RoPE(out, in, posIDs *tensor.Tensor, theta float32) error {
	switch in.DType() {
	case tensor.Float32:
		rope[float32](out, in, posIDs, theta)
	case tensor.Float16:
		rope[float16.Float16](out, in, posIDs, theta)
	case tensor.BFloat16:
		rope[tensor.BF16](out, in, posIDs, theta)
	default:
		return unsupported("rope", in.DType())
	}
	return nil
}

func rope[T tensor.Float](out, in, posIDs *tensor.Tensor, theta float32) {
	seqLen, nHead, d := in.Shape()[0], in.Shape()[1], in.Shape()[2]
	half := d / 2

	invFreq := make([]float64, half)
	for j := range invFreq {
		invFreq[j] = 1 / math.Pow(float64(theta), float64(2*j)/float64(d))
	}

	x, o := tensor.Elements[T](in), tensor.Elements[T](out)
	pos := tensor.Elements[int64](posIDs)

	for i := 0; i < seqLen; i++ {
		p := float64(pos[i])
		for j := 0; j < half; j++ {
			phi := p * invFreq[j]
			cos, sin := float32(math.Cos(phi)), float32(math.Sin(phi))

			for h := 0; h < nHead; h++ {
				base := (i*nHead + h) * d
				a := tensor.ToFloat32(x[base+j])
				b := tensor.ToFloat32(x[base+j+half])
				o[base+j] = tensor.FromFloat32[T](a*cos - b*sin)
				o[base+j+half] = tensor.FromFloat32[T](b*cos + a*sin)
			}
		}
	}
}
