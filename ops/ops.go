// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package ops provides the inference operators.
//
// Every operator writes into caller-allocated output tensors. Operands are
// validated first (device, then dtype, then shape), after which the kernel
// registered for the operands' device runs. CPU kernels are built in; other
// device families need a Backend installed with RegisterBackend.
package ops

import (
	"github.com/born-ml/llaisys/internal/device"
	"github.com/born-ml/llaisys/internal/ops"
	"github.com/born-ml/llaisys/internal/tensor"
)

// RegisterBackend installs the kernels for a device family.
func RegisterBackend(t device.Type, b tensor.Backend) {
	ops.RegisterBackend(t, b)
}

// Embedding gathers rows of weight selected by index into out.
func Embedding(ctx *device.Context, out, index, weight *tensor.Tensor) error {
	return ops.Embedding(ctx, out, index, weight)
}

// Linear computes out = in · weightᵀ + bias. bias may be nil.
func Linear(ctx *device.Context, out, in, weight, bias *tensor.Tensor) error {
	return ops.Linear(ctx, out, in, weight, bias)
}

// RMSNorm normalizes each row of in by its root mean square and scales it by
// weight.
func RMSNorm(ctx *device.Context, out, in, weight *tensor.Tensor, eps float32) error {
	return ops.RMSNorm(ctx, out, in, weight, eps)
}

// RoPE applies rotary position embeddings.
func RoPE(ctx *device.Context, out, in, posIDs *tensor.Tensor, theta float32) error {
	return ops.RoPE(ctx, out, in, posIDs, theta)
}

// SelfAttention computes causal grouped-query attention.
func SelfAttention(ctx *device.Context, attnVal, q, k, v *tensor.Tensor, scale float32) error {
	return ops.SelfAttention(ctx, attnVal, q, k, v, scale)
}

// SwiGLU computes out = up · gate · sigmoid(gate).
func SwiGLU(ctx *device.Context, out, gate, up *tensor.Tensor) error {
	return ops.SwiGLU(ctx, out, gate, up)
}

// Argmax writes the index and value of the first maximum of vals.
func Argmax(ctx *device.Context, maxIdx, maxVal, vals *tensor.Tensor) error {
	return ops.Argmax(ctx, maxIdx, maxVal, vals)
}
