package tensor

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/x448/float16"
)

func TestBF16_Truncates(t *testing.T) {
	assert.Equal(t, BF16(0x3f80), BF16FromFloat32(1))
	assert.Equal(t, BF16(0xc000), BF16FromFloat32(-2))

	// 1 + 2^-8 is below bfloat16 precision and truncates to 1.
	assert.Equal(t, float32(1), BF16FromFloat32(1+1.0/256).Float32())

	nan := BF16FromFloat32(float32(math.NaN()))
	assert.True(t, math.IsNaN(float64(nan.Float32())))
	tiny := math.Float32frombits(0x7f800001)
	assert.True(t, math.IsNaN(float64(BF16FromFloat32(tiny).Float32())), "low-bit NaN payload must not become Inf")
}

func TestFloatConversions(t *testing.T) {
	assert.Equal(t, float32(0.5), ToFloat32(FromFloat32[float16.Float16](0.5)))
	assert.Equal(t, float32(-3), ToFloat32(FromFloat32[BF16](-3)))
	assert.Equal(t, float32(7), ToFloat32(FromFloat32[float32](7)))

	assert.Equal(t, Float32, DataTypeOf[float32]())
	assert.Equal(t, Float16, DataTypeOf[float16.Float16]())
	assert.Equal(t, BFloat16, DataTypeOf[BF16]())
}

func TestEncodeDecodeFloat32s(t *testing.T) {
	b, err := EncodeFloat32s(Float16, []float32{1, -0.5})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x3c, 0x00, 0xb8}, b)

	b, err = EncodeFloat32s(BFloat16, []float32{1, -2})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x80, 0x3f, 0x00, 0xc0}, b)

	_, err = EncodeFloat32s(Int32, []float32{1})
	assert.ErrorIs(t, err, ErrUnsupportedDType)

	_, err = DecodeFloat32s(Float32, []byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = DecodeFloat32s(Int64, make([]byte, 8))
	assert.ErrorIs(t, err, ErrUnsupportedDType)
}
