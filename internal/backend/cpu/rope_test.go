package cpu

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/llaisys/internal/device"
	"github.com/born-ml/llaisys/internal/tensor"
)

func TestRoPE_PositionZeroIsIdentity(t *testing.T) {
	ctx := device.NewContext()
	backend := New()

	for _, dt := range floatTypes {
		t.Run(dt.String(), func(t *testing.T) {
			values := []float32{1, 2, 3, 4, -1, -2, -3, -4}
			in := newTensor(t, ctx, dt, tensor.Shape{1, 2, 4}, values)
			pos := newIndex(t, ctx, tensor.Shape{1}, 0)
			out := newTensor(t, ctx, dt, tensor.Shape{1, 2, 4}, nil)

			require.NoError(t, backend.RoPE(out, in, pos, 10000))
			assert.Equal(t, values, read(t, out))
		})
	}
}

func TestRoPE_RotatesPairs(t *testing.T) {
	ctx := device.NewContext()
	backend := New()

	// d = 4: band 0 rotates by p, band 1 by p/theta^(1/2) = p/100.
	in := newTensor(t, ctx, tensor.Float32, tensor.Shape{2, 1, 4}, []float32{1, 1, 0, 0, 1, 1, 0, 0})
	pos := newIndex(t, ctx, tensor.Shape{2}, 1, 3)
	out := newTensor(t, ctx, tensor.Float32, tensor.Shape{2, 1, 4}, nil)

	require.NoError(t, backend.RoPE(out, in, pos, 10000))

	got := read(t, out)
	for i, p := range []float64{1, 3} {
		row := got[i*4:]
		assert.InDelta(t, math.Cos(p), row[0], 1e-6)
		assert.InDelta(t, math.Cos(p/100), row[1], 1e-6)
		assert.InDelta(t, math.Sin(p), row[2], 1e-6)
		assert.InDelta(t, math.Sin(p/100), row[3], 1e-6)
	}
}

func TestRoPE_InPlace(t *testing.T) {
	ctx := device.NewContext()
	backend := New()

	x := newTensor(t, ctx, tensor.Float32, tensor.Shape{1, 1, 2}, []float32{0, 2})
	pos := newIndex(t, ctx, tensor.Shape{1}, 2)

	require.NoError(t, backend.RoPE(x, x, pos, 10000))

	got := read(t, x)
	assert.InDelta(t, -2*math.Sin(2), got[0], 1e-6)
	assert.InDelta(t, 2*math.Cos(2), got[1], 1e-6)
}
