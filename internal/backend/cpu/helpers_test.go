package cpu

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/born-ml/llaisys/internal/device"
	"github.com/born-ml/llaisys/internal/tensor"
)

// floatTypes are the storage types every kernel supports.
var floatTypes = []tensor.DataType{tensor.Float32, tensor.Float16, tensor.BFloat16}

// tolerance returns an absolute tolerance for values of magnitude ~1 stored
// as dt.
func tolerance(dt tensor.DataType) float64 {
	switch dt {
	case tensor.Float16:
		return 2e-3
	case tensor.BFloat16:
		return 2e-2
	default:
		return 1e-5
	}
}

func newTensor(t *testing.T, ctx *device.Context, dt tensor.DataType, shape tensor.Shape, values []float32) *tensor.Tensor {
	t.Helper()
	x, err := tensor.Create(ctx, shape, dt, device.CPU, 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = x.Release() })
	if values != nil {
		require.NoError(t, x.LoadFloat32s(ctx, values))
	}
	return x
}

func newIndex(t *testing.T, ctx *device.Context, shape tensor.Shape, values ...int64) *tensor.Tensor {
	t.Helper()
	x, err := tensor.Create(ctx, shape, tensor.Int64, device.CPU, 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = x.Release() })
	ids, err := x.Int64s()
	require.NoError(t, err)
	copy(ids, values)
	return x
}

func read(t *testing.T, x *tensor.Tensor) []float32 {
	t.Helper()
	out, err := x.Float32s()
	require.NoError(t, err)
	return out
}

// randomValues returns n values in [-1, 1) rounded to dt so that reference
// computations see exactly what the kernel sees.
func randomValues(r *rand.Rand, dt tensor.DataType, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = round(dt, r.Float32()*2-1)
	}
	return out
}

func round(dt tensor.DataType, v float32) float32 {
	b, err := tensor.EncodeFloat32s(dt, []float32{v})
	if err != nil {
		panic(err)
	}
	f, err := tensor.DecodeFloat32s(dt, b)
	if err != nil {
		panic(err)
	}
	return f[0]
}
