package ops_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/llaisys/internal/device"
	"github.com/born-ml/llaisys/internal/device/devicetest"
	"github.com/born-ml/llaisys/internal/ops"
	"github.com/born-ml/llaisys/internal/tensor"
)

func TestValidation_ShapeContracts(t *testing.T) {
	ctx := device.NewContext()
	f32 := func(shape ...int) *tensor.Tensor { return host(t, ctx, tensor.Float32, nil, shape...) }
	idx := func(shape ...int) *tensor.Tensor { return hostIndex(t, ctx, nil, shape...) }

	transposed, err := f32(3, 2).Permute(1, 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = transposed.Release() })

	tests := []struct {
		name string
		run  func() error
		kind error
	}{
		{"embedding weight 1-D", func() error { return ops.Embedding(ctx, f32(2, 2), idx(2), f32(6)) }, tensor.ErrShapeMismatch},
		{"embedding index 2-D", func() error { return ops.Embedding(ctx, f32(2, 2), idx(2, 1), f32(3, 2)) }, tensor.ErrShapeMismatch},
		{"embedding out rows", func() error { return ops.Embedding(ctx, f32(3, 2), idx(2), f32(3, 2)) }, tensor.ErrShapeMismatch},
		{"embedding index dtype", func() error { return ops.Embedding(ctx, f32(2, 2), f32(2), f32(3, 2)) }, tensor.ErrDTypeMismatch},

		{"linear inner dim", func() error { return ops.Linear(ctx, f32(1, 2), f32(1, 3), f32(2, 2), nil) }, tensor.ErrShapeMismatch},
		{"linear out shape", func() error { return ops.Linear(ctx, f32(2, 2), f32(1, 2), f32(2, 2), nil) }, tensor.ErrShapeMismatch},
		{"linear bias shape", func() error { return ops.Linear(ctx, f32(1, 2), f32(1, 2), f32(2, 2), f32(3)) }, tensor.ErrShapeMismatch},
		{"linear 3-D input", func() error { return ops.Linear(ctx, f32(1, 2), f32(1, 1, 2), f32(2, 2), nil) }, tensor.ErrShapeMismatch},
		{"linear strided weight", func() error { return ops.Linear(ctx, f32(1, 2), f32(1, 3), transposed, nil) }, tensor.ErrInvalidArgument},

		{"rms_norm weight", func() error { return ops.RMSNorm(ctx, f32(2, 3), f32(2, 3), f32(2), 1e-6) }, tensor.ErrShapeMismatch},
		{"rms_norm out", func() error { return ops.RMSNorm(ctx, f32(3, 2), f32(2, 3), f32(3), 1e-6) }, tensor.ErrShapeMismatch},
		{"rms_norm 1-D", func() error { return ops.RMSNorm(ctx, f32(3), f32(3), f32(3), 1e-6) }, tensor.ErrShapeMismatch},
		{"rms_norm strided", func() error { return ops.RMSNorm(ctx, f32(2, 3), transposed, f32(3), 1e-6) }, tensor.ErrInvalidArgument},

		{"rope odd d", func() error { return ops.RoPE(ctx, f32(1, 1, 3), f32(1, 1, 3), idx(1), 1e4) }, tensor.ErrShapeMismatch},
		{"rope positions", func() error { return ops.RoPE(ctx, f32(2, 1, 2), f32(2, 1, 2), idx(1), 1e4) }, tensor.ErrShapeMismatch},
		{"rope position dtype", func() error { return ops.RoPE(ctx, f32(1, 1, 2), f32(1, 1, 2), f32(1), 1e4) }, tensor.ErrDTypeMismatch},
		{"rope 2-D", func() error { return ops.RoPE(ctx, f32(1, 2), f32(1, 2), idx(1), 1e4) }, tensor.ErrShapeMismatch},

		{"attention head dim", func() error {
			return ops.SelfAttention(ctx, f32(1, 2, 4), f32(1, 2, 4), f32(1, 1, 3), f32(1, 1, 4), 1)
		}, tensor.ErrShapeMismatch},
		{"attention kv heads", func() error {
			return ops.SelfAttention(ctx, f32(1, 3, 4), f32(1, 3, 4), f32(1, 2, 4), f32(1, 2, 4), 1)
		}, tensor.ErrShapeMismatch},
		{"attention zero kv heads", func() error {
			return ops.SelfAttention(ctx, f32(1, 2, 4), f32(1, 2, 4), f32(1, 0, 4), f32(1, 0, 4), 1)
		}, tensor.ErrShapeMismatch},
		{"attention v length", func() error {
			return ops.SelfAttention(ctx, f32(1, 2, 4), f32(1, 2, 4), f32(2, 1, 4), f32(1, 1, 4), 1)
		}, tensor.ErrShapeMismatch},
		{"attention fewer keys than queries", func() error {
			return ops.SelfAttention(ctx, f32(2, 2, 4), f32(2, 2, 4), f32(1, 1, 4), f32(1, 1, 4), 1)
		}, tensor.ErrShapeMismatch},
		{"attention out shape", func() error {
			return ops.SelfAttention(ctx, f32(1, 2, 3), f32(1, 2, 4), f32(1, 1, 4), f32(1, 1, 4), 1)
		}, tensor.ErrShapeMismatch},

		{"swiglu shapes", func() error { return ops.SwiGLU(ctx, f32(2, 2), f32(2, 2), f32(2, 3)) }, tensor.ErrShapeMismatch},
		{"swiglu 1-D", func() error { return ops.SwiGLU(ctx, f32(4), f32(4), f32(4)) }, tensor.ErrShapeMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			require.ErrorIs(t, err, tt.kind)
			assert.ErrorIs(t, err, tensor.ErrContractViolation)
		})
	}
}

func TestValidation_Order(t *testing.T) {
	fake := devicetest.Register(device.NVIDIA, 2)
	fake.Reset()
	ctx := device.NewContext()

	onGPU := create(t, ctx, tensor.Float16, device.NVIDIA, 0, 5)
	onGPU1 := create(t, ctx, tensor.Float32, device.NVIDIA, 1, 2, 2)
	f32 := host(t, ctx, tensor.Float32, nil, 2, 2)
	f16 := host(t, ctx, tensor.Float16, nil, 3, 3)

	// Device is checked before dtype, dtype before shape.
	err := ops.SwiGLU(ctx, f32, f16, onGPU)
	assert.ErrorIs(t, err, tensor.ErrDeviceMismatch)

	err = ops.SwiGLU(ctx, f32, f16, f32)
	assert.ErrorIs(t, err, tensor.ErrDTypeMismatch)

	// Same type, different index.
	gpu0 := create(t, ctx, tensor.Float32, device.NVIDIA, 0, 2, 2)
	err = ops.SwiGLU(ctx, gpu0, onGPU1, onGPU1)
	assert.ErrorIs(t, err, tensor.ErrDeviceMismatch)
	assert.Contains(t, err.Error(), "nvidia:0")
	assert.Contains(t, err.Error(), "nvidia:1")
}

func TestValidation_ReleasedOperand(t *testing.T) {
	ctx := device.NewContext()
	gate := host(t, ctx, tensor.Float32, nil, 1, 1)
	up := host(t, ctx, tensor.Float32, nil, 1, 1)
	out := host(t, ctx, tensor.Float32, nil, 1, 1)
	require.NoError(t, up.Release())

	assert.ErrorIs(t, ops.SwiGLU(ctx, out, gate, up), tensor.ErrInvalidArgument)
	assert.ErrorIs(t, ops.SwiGLU(ctx, out, gate, nil), tensor.ErrInvalidArgument)
}
