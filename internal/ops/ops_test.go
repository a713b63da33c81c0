package ops_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/llaisys/internal/device"
	"github.com/born-ml/llaisys/internal/ops"
	"github.com/born-ml/llaisys/internal/tensor"
)

func create(t *testing.T, ctx *device.Context, dt tensor.DataType, devType device.Type, index int, shape ...int) *tensor.Tensor {
	t.Helper()
	x, err := tensor.Create(ctx, shape, dt, devType, index)
	require.NoError(t, err)
	t.Cleanup(func() { _ = x.Release() })
	return x
}

func host(t *testing.T, ctx *device.Context, dt tensor.DataType, values []float32, shape ...int) *tensor.Tensor {
	t.Helper()
	x := create(t, ctx, dt, device.CPU, 0, shape...)
	if values != nil {
		require.NoError(t, x.LoadFloat32s(ctx, values))
	}
	return x
}

func hostIndex(t *testing.T, ctx *device.Context, values []int64, shape ...int) *tensor.Tensor {
	t.Helper()
	x := create(t, ctx, tensor.Int64, device.CPU, 0, shape...)
	ids, err := x.Int64s()
	require.NoError(t, err)
	copy(ids, values)
	return x
}

func values(t *testing.T, x *tensor.Tensor) []float32 {
	t.Helper()
	v, err := x.Float32s()
	require.NoError(t, err)
	return v
}

func TestEmbedding(t *testing.T) {
	ctx := device.NewContext()
	weight := host(t, ctx, tensor.Float32, []float32{1, 2, 3, 4, 5, 6}, 3, 2)
	index := hostIndex(t, ctx, []int64{2, 0}, 2)
	out := host(t, ctx, tensor.Float32, nil, 2, 2)

	require.NoError(t, ops.Embedding(ctx, out, index, weight))
	assert.Equal(t, []float32{5, 6, 1, 2}, values(t, out))
}

func TestLinear(t *testing.T) {
	ctx := device.NewContext()
	in := host(t, ctx, tensor.BFloat16, []float32{1, 2}, 1, 2)
	weight := host(t, ctx, tensor.BFloat16, []float32{1, 0, 0, 1}, 2, 2)
	bias := host(t, ctx, tensor.BFloat16, []float32{0, 0}, 2)
	out := host(t, ctx, tensor.BFloat16, nil, 1, 2)

	require.NoError(t, ops.Linear(ctx, out, in, weight, bias))
	assert.Equal(t, []float32{1, 2}, values(t, out))

	require.NoError(t, ops.Linear(ctx, out, in, weight, nil))
	assert.Equal(t, []float32{1, 2}, values(t, out))
}

func TestLinear_EmptySlice(t *testing.T) {
	ctx := device.NewContext()
	full := host(t, ctx, tensor.Float32, nil, 0, 4)
	in, err := full.Slice(1, 2, 4)
	require.NoError(t, err)
	defer in.Release()
	weight := host(t, ctx, tensor.Float32, []float32{1, 0, 0, 1, 1, 1}, 3, 2)
	out := host(t, ctx, tensor.Float32, nil, 0, 3)

	require.NoError(t, ops.Linear(ctx, out, in, weight, nil))
	assert.Empty(t, values(t, out))
}

func TestRMSNorm(t *testing.T) {
	ctx := device.NewContext()
	in := host(t, ctx, tensor.Float32, []float32{3, 4}, 1, 2)
	weight := host(t, ctx, tensor.Float32, []float32{1, 1}, 2)
	out := host(t, ctx, tensor.Float32, nil, 1, 2)

	require.NoError(t, ops.RMSNorm(ctx, out, in, weight, 0))

	got := values(t, out)
	assert.InDelta(t, 3/math.Sqrt(12.5), got[0], 1e-6)
	assert.InDelta(t, 4/math.Sqrt(12.5), got[1], 1e-6)
}

func TestRoPE(t *testing.T) {
	ctx := device.NewContext()
	in := host(t, ctx, tensor.Float16, []float32{1, 0}, 1, 1, 2)
	pos := hostIndex(t, ctx, []int64{1}, 1)
	out := host(t, ctx, tensor.Float16, nil, 1, 1, 2)

	require.NoError(t, ops.RoPE(ctx, out, in, pos, 10000))

	got := values(t, out)
	assert.InDelta(t, math.Cos(1), got[0], 1e-3)
	assert.InDelta(t, math.Sin(1), got[1], 1e-3)
}

func TestSelfAttention(t *testing.T) {
	ctx := device.NewContext()
	q := host(t, ctx, tensor.Float32, []float32{1}, 1, 1, 1)
	k := host(t, ctx, tensor.Float32, []float32{1}, 1, 1, 1)
	v := host(t, ctx, tensor.Float32, []float32{1}, 1, 1, 1)
	out := host(t, ctx, tensor.Float32, nil, 1, 1, 1)

	require.NoError(t, ops.SelfAttention(ctx, out, q, k, v, 1))
	assert.Equal(t, []float32{1}, values(t, out))
}

func TestSelfAttention_CausalMask(t *testing.T) {
	ctx := device.NewContext()
	q := host(t, ctx, tensor.Float32, []float32{1, 1}, 2, 1, 1)
	k := host(t, ctx, tensor.Float32, []float32{0, 1000}, 2, 1, 1)
	v := host(t, ctx, tensor.Float32, []float32{-7, 123}, 2, 1, 1)
	out := host(t, ctx, tensor.Float32, nil, 2, 1, 1)

	require.NoError(t, ops.SelfAttention(ctx, out, q, k, v, 1))
	assert.Equal(t, float32(-7), values(t, out)[0])
}

func TestSwiGLU(t *testing.T) {
	ctx := device.NewContext()
	gate := host(t, ctx, tensor.Float32, []float32{0}, 1, 1)
	up := host(t, ctx, tensor.Float32, []float32{5}, 1, 1)
	out := host(t, ctx, tensor.Float32, []float32{9}, 1, 1)

	require.NoError(t, ops.SwiGLU(ctx, out, gate, up))
	assert.Equal(t, []float32{0}, values(t, out))
}

func TestArgmax(t *testing.T) {
	ctx := device.NewContext()
	vals := host(t, ctx, tensor.Float32, []float32{1, 5, 5, 2}, 4)
	maxIdx := hostIndex(t, ctx, nil, 1)
	maxVal := host(t, ctx, tensor.Float32, nil, 1)

	require.NoError(t, ops.Argmax(ctx, maxIdx, maxVal, vals))

	idx, err := maxIdx.Int64s()
	require.NoError(t, err)
	assert.Equal(t, int64(1), idx[0])
	assert.Equal(t, []float32{5}, values(t, maxVal))
}

func TestArgmax_Invalid(t *testing.T) {
	ctx := device.NewContext()
	maxIdx := hostIndex(t, ctx, nil, 1)
	maxVal := host(t, ctx, tensor.Float32, nil, 1)

	empty := host(t, ctx, tensor.Float32, nil, 0)
	assert.ErrorIs(t, ops.Argmax(ctx, maxIdx, maxVal, empty), tensor.ErrInvalidArgument)

	vals := host(t, ctx, tensor.Float32, []float32{1, 2}, 2)
	wrongIdx := host(t, ctx, tensor.Int32, nil, 1)
	assert.ErrorIs(t, ops.Argmax(ctx, wrongIdx, maxVal, vals), tensor.ErrDTypeMismatch)

	f16Val := host(t, ctx, tensor.Float16, nil, 1)
	assert.ErrorIs(t, ops.Argmax(ctx, maxIdx, f16Val, vals), tensor.ErrDTypeMismatch)

	noVal := host(t, ctx, tensor.Float32, nil, 0)
	assert.ErrorIs(t, ops.Argmax(ctx, maxIdx, noVal, vals), tensor.ErrShapeMismatch)
}
