package ops

import (
	"github.com/born-ml/llaisys/internal/device"
	"github.com/born-ml/llaisys/internal/tensor"
)

// Embedding gathers rows of weight [V, D] selected by the Int64 index [N]
// into out [N, D].
func Embedding(ctx *device.Context, out, index, weight *tensor.Tensor) error {
	const op = "embedding"
	o, i, w := arg("out", out), arg("index", index), arg("weight", weight)

	if err := checkLive(op, o, i, w); err != nil {
		return err
	}
	if err := checkSameDevice(op, o, i, w); err != nil {
		return err
	}
	if err := checkDType(op, i, tensor.Int64); err != nil {
		return err
	}
	if err := checkSameDType(op, o, w); err != nil {
		return err
	}
	if err := checkNDim(op, 2, w); err != nil {
		return err
	}
	if err := checkNDim(op, 1, i); err != nil {
		return err
	}
	if err := checkShape(op, o, index.Shape()[0], weight.Shape()[1]); err != nil {
		return err
	}

	return dispatch(ctx, op, out, func(b tensor.Backend) error {
		return b.Embedding(out, index, weight)
	})
}

// Linear computes out [M, N] = in [M, K] · weightᵀ + bias, with weight
// [N, K] contiguous and bias [N] optional.
func Linear(ctx *device.Context, out, in, weight, bias *tensor.Tensor) error {
	const op = "linear"
	args := []operand{arg("out", out), arg("in", in), arg("weight", weight)}
	if bias != nil {
		args = append(args, arg("bias", bias))
	}

	if err := checkLive(op, args...); err != nil {
		return err
	}
	if err := checkSameDevice(op, args...); err != nil {
		return err
	}
	if err := checkSameDType(op, args...); err != nil {
		return err
	}
	if err := checkNDim(op, 2, args[:3]...); err != nil {
		return err
	}
	if in.Shape()[1] != weight.Shape()[1] {
		return tensor.Errorf(op, tensor.ErrShapeMismatch, "in has shape %v, weight has shape %v", in.Shape(), weight.Shape())
	}
	m, n := in.Shape()[0], weight.Shape()[0]
	if err := checkShape(op, args[0], m, n); err != nil {
		return err
	}
	if bias != nil {
		if err := checkShape(op, args[3], n); err != nil {
			return err
		}
	}
	if err := checkContiguous(op, args[2]); err != nil {
		return err
	}

	return dispatch(ctx, op, out, func(b tensor.Backend) error {
		return b.Linear(out, in, weight, bias)
	})
}

// RMSNorm normalizes each row of in [M, K] by its root mean square and
// scales it by weight [K]. in and out are contiguous.
func RMSNorm(ctx *device.Context, out, in, weight *tensor.Tensor, eps float32) error {
	const op = "rms_norm"
	o, x, w := arg("out", out), arg("in", in), arg("weight", weight)

	if err := checkLive(op, o, x, w); err != nil {
		return err
	}
	if err := checkSameDevice(op, o, x, w); err != nil {
		return err
	}
	if err := checkSameDType(op, o, x, w); err != nil {
		return err
	}
	if err := checkNDim(op, 2, x); err != nil {
		return err
	}
	if err := checkShape(op, o, in.Shape()...); err != nil {
		return err
	}
	if err := checkShape(op, w, in.Shape()[1]); err != nil {
		return err
	}
	if err := checkContiguous(op, o, x); err != nil {
		return err
	}

	return dispatch(ctx, op, out, func(b tensor.Backend) error {
		return b.RMSNorm(out, in, weight, eps)
	})
}

// RoPE applies rotary position embeddings to in [seqlen, nhead, d] with
// Int64 positions posIDs [seqlen]. d must be even and all operands
// contiguous. out may be in.
func RoPE(ctx *device.Context, out, in, posIDs *tensor.Tensor, theta float32) error {
	const op = "rope"
	o, x, p := arg("out", out), arg("in", in), arg("pos_ids", posIDs)

	if err := checkLive(op, o, x, p); err != nil {
		return err
	}
	if err := checkSameDevice(op, o, x, p); err != nil {
		return err
	}
	if err := checkSameDType(op, o, x); err != nil {
		return err
	}
	if err := checkDType(op, p, tensor.Int64); err != nil {
		return err
	}
	if err := checkNDim(op, 3, x); err != nil {
		return err
	}
	if err := checkShape(op, o, in.Shape()...); err != nil {
		return err
	}
	if err := checkShape(op, p, in.Shape()[0]); err != nil {
		return err
	}
	if d := in.Shape()[2]; d%2 != 0 {
		return tensor.Errorf(op, tensor.ErrShapeMismatch, "head dimension %d is odd", d)
	}
	if err := checkContiguous(op, o, x, p); err != nil {
		return err
	}

	return dispatch(ctx, op, out, func(b tensor.Backend) error {
		return b.RoPE(out, in, posIDs, theta)
	})
}

// SelfAttention computes causal grouped-query attention of q [S, H, D]
// against k [T, KVH, D] and v [T, KVH, DV] into attnVal [S, H, DV]. The
// queries are the last S of T positions, so T >= S. H must be a multiple of
// KVH. All operands are contiguous.
func SelfAttention(ctx *device.Context, attnVal, q, k, v *tensor.Tensor, scale float32) error {
	const op = "self_attention"
	o, qa, ka, va := arg("attn_val", attnVal), arg("q", q), arg("k", k), arg("v", v)

	if err := checkLive(op, o, qa, ka, va); err != nil {
		return err
	}
	if err := checkSameDevice(op, o, qa, ka, va); err != nil {
		return err
	}
	if err := checkSameDType(op, o, qa, ka, va); err != nil {
		return err
	}
	if err := checkNDim(op, 3, qa, ka, va); err != nil {
		return err
	}

	seqLen, nHead, d := q.Shape()[0], q.Shape()[1], q.Shape()[2]
	totalLen, nKVHead := k.Shape()[0], k.Shape()[1]
	dv := v.Shape()[2]

	if k.Shape()[2] != d {
		return tensor.Errorf(op, tensor.ErrShapeMismatch, "q head dim %d, k head dim %d", d, k.Shape()[2])
	}
	if err := checkShape(op, va, totalLen, nKVHead, dv); err != nil {
		return err
	}
	if nKVHead == 0 || nHead%nKVHead != 0 {
		return tensor.Errorf(op, tensor.ErrShapeMismatch, "%d query heads cannot be grouped over %d kv heads", nHead, nKVHead)
	}
	if totalLen < seqLen {
		return tensor.Errorf(op, tensor.ErrShapeMismatch, "%d queries but only %d keys", seqLen, totalLen)
	}
	if err := checkShape(op, o, seqLen, nHead, dv); err != nil {
		return err
	}
	if err := checkContiguous(op, o, qa, ka, va); err != nil {
		return err
	}

	return dispatch(ctx, op, attnVal, func(b tensor.Backend) error {
		return b.SelfAttention(attnVal, q, k, v, scale)
	})
}

// SwiGLU computes out = up · gate · sigmoid(gate) over equal 2-D shapes.
func SwiGLU(ctx *device.Context, out, gate, up *tensor.Tensor) error {
	const op = "swiglu"
	o, g, u := arg("out", out), arg("gate", gate), arg("up", up)

	if err := checkLive(op, o, g, u); err != nil {
		return err
	}
	if err := checkSameDevice(op, o, g, u); err != nil {
		return err
	}
	if err := checkSameDType(op, o, g, u); err != nil {
		return err
	}
	if err := checkNDim(op, 2, o); err != nil {
		return err
	}
	if err := checkShape(op, g, out.Shape()...); err != nil {
		return err
	}
	if err := checkShape(op, u, out.Shape()...); err != nil {
		return err
	}

	return dispatch(ctx, op, out, func(b tensor.Backend) error {
		return b.SwiGLU(out, gate, up)
	})
}

// Argmax writes the flat index (Int64) and value of the first maximum of
// the contiguous, non-empty vals into maxIdx[0] and maxVal[0].
func Argmax(ctx *device.Context, maxIdx, maxVal, vals *tensor.Tensor) error {
	const op = "argmax"
	i, m, x := arg("max_idx", maxIdx), arg("max_val", maxVal), arg("vals", vals)

	if err := checkLive(op, i, m, x); err != nil {
		return err
	}
	if err := checkSameDevice(op, x, i, m); err != nil {
		return err
	}
	if err := checkDType(op, i, tensor.Int64); err != nil {
		return err
	}
	if err := checkSameDType(op, x, m); err != nil {
		return err
	}
	if vals.NumElements() == 0 {
		return tensor.Errorf(op, tensor.ErrInvalidArgument, "vals is empty")
	}
	if maxIdx.NumElements() == 0 || maxVal.NumElements() == 0 {
		return tensor.Errorf(op, tensor.ErrShapeMismatch, "max_idx %v and max_val %v need an element each", maxIdx.Shape(), maxVal.Shape())
	}
	if err := checkContiguous(op, x); err != nil {
		return err
	}

	return dispatch(ctx, op, vals, func(b tensor.Backend) error {
		return b.Argmax(maxIdx, maxVal, vals)
	})
}
