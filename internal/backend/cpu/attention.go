package cpu

import (
	"math"

	"github.com/x448/float16"

	"github.com/born-ml/llaisys/internal/tensor"
)

// minWeight is the softmax weight below which a value row is skipped.
const minWeight = 1e-8

// SelfAttention computes causal attention for S queries against T keys,
// where the queries are the last S positions of the sequence. Query head h
// reads key/value head h / (H / KVH).
//
// Positions after the query's own position receive exactly zero weight.
// Scores are float64 dot products scaled and stored as float32, the softmax
// denominator accumulates in float64 and the weighted sum of values in
// float32.
func (cpu *CPUBackend) SelfAttention(attnVal, q, k, v *tensor.Tensor, scale float32) error {
	switch q.DType() {
	case tensor.Float32:
		selfAttention[float32](attnVal, q, k, v, scale)
	case tensor.Float16:
		selfAttention[float16.Float16](attnVal, q, k, v, scale)
	case tensor.BFloat16:
		selfAttention[tensor.BF16](attnVal, q, k, v, scale)
	default:
		return unsupported("self_attention", q.DType())
	}
	return nil
}

func selfAttention[T tensor.Float](attnVal, q, k, v *tensor.Tensor, scale float32) {
	seqLen, nHead, d := q.Shape()[0], q.Shape()[1], q.Shape()[2]
	totalLen, nKVHead := k.Shape()[0], k.Shape()[1]
	dv := v.Shape()[2]
	group := nHead / nKVHead
	past := totalLen - seqLen

	qs, ks, vs, os := tensor.Elements[T](q), tensor.Elements[T](k), tensor.Elements[T](v), tensor.Elements[T](attnVal)

	scores := make([]float32, totalLen)
	acc := make([]float32, dv)

	for i := 0; i < seqLen; i++ {
		visible := past + i + 1

		for h := 0; h < nHead; h++ {
			hkv := h / group
			qRow := qs[(i*nHead+h)*d:]

			maxScore := float32(math.Inf(-1))
			for j := 0; j < visible; j++ {
				kRow := ks[(j*nKVHead+hkv)*d:]
				var dot float64
				for c := 0; c < d; c++ {
					dot += float64(tensor.ToFloat32(qRow[c])) * float64(tensor.ToFloat32(kRow[c]))
				}
				scores[j] = float32(dot * float64(scale))
				maxScore = max(maxScore, scores[j])
			}

			var sum float64
			for j := 0; j < visible; j++ {
				scores[j] = float32(math.Exp(float64(scores[j] - maxScore)))
				sum += float64(scores[j])
			}
			inv := float32(1 / sum)

			clear(acc)
			for j := 0; j < visible; j++ {
				w := scores[j] * inv
				if w < minWeight {
					continue
				}
				vRow := vs[(j*nKVHead+hkv)*dv:]
				for c := 0; c < dv; c++ {
					acc[c] += w * tensor.ToFloat32(vRow[c])
				}
			}

			out := os[(i*nHead+h)*dv:]
			for c := 0; c < dv; c++ {
				out[c] = tensor.FromFloat32[T](acc[c])
			}
		}
	}
}
