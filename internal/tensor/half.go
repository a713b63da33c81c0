package tensor

import (
	"encoding/binary"
	"math"

	"github.com/d4l3k/go-bfloat16"
	"github.com/x448/float16"
)

// BF16 is the bfloat16 element type: a float32 truncated to its sign, 8-bit
// exponent and top 7 mantissa bits.
type BF16 uint16

// BF16FromFloat32 narrows f by dropping the low 16 mantissa bits.
func BF16FromFloat32(f float32) BF16 {
	if f != f {
		return 0x7fc0 // Keep NaN a NaN after truncation.
	}
	return BF16(math.Float32bits(f) >> 16)
}

// Float32 widens b exactly.
func (b BF16) Float32() float32 {
	return math.Float32frombits(uint32(b) << 16)
}

// Float is the set of element types the kernels operate on. Arithmetic is
// done in float32; the 16-bit types are widened on read and narrowed on
// write.
type Float interface {
	float32 | float16.Float16 | BF16
}

// ToFloat32 widens v to float32.
func ToFloat32[T Float](v T) float32 {
	switch x := any(v).(type) {
	case float32:
		return x
	case float16.Float16:
		return x.Float32()
	case BF16:
		return x.Float32()
	}
	panic("unreachable")
}

// FromFloat32 narrows f to T.
func FromFloat32[T Float](f float32) T {
	var zero T
	switch any(zero).(type) {
	case float32:
		return any(f).(T)
	case float16.Float16:
		return any(float16.Fromfloat32(f)).(T)
	case BF16:
		return any(BF16FromFloat32(f)).(T)
	}
	panic("unreachable")
}

// DataTypeOf returns the DataType of the element type T.
func DataTypeOf[T Float]() DataType {
	var zero T
	switch any(zero).(type) {
	case float16.Float16:
		return Float16
	case BF16:
		return BFloat16
	default:
		return Float32
	}
}

// EncodeFloat32s converts host float32 values into little-endian elements of
// dt. dt must be a floating-point type.
func EncodeFloat32s(dt DataType, values []float32) ([]byte, error) {
	switch dt {
	case Float32:
		out := make([]byte, 4*len(values))
		for i, v := range values {
			binary.LittleEndian.PutUint32(out[4*i:], math.Float32bits(v))
		}
		return out, nil
	case Float64:
		out := make([]byte, 8*len(values))
		for i, v := range values {
			binary.LittleEndian.PutUint64(out[8*i:], math.Float64bits(float64(v)))
		}
		return out, nil
	case Float16:
		out := make([]byte, 2*len(values))
		for i, v := range values {
			binary.LittleEndian.PutUint16(out[2*i:], float16.Fromfloat32(v).Bits())
		}
		return out, nil
	case BFloat16:
		return bfloat16.EncodeFloat32(values), nil
	default:
		return nil, Errorf("encode", ErrUnsupportedDType, "cannot encode float32 values as %s", dt)
	}
}

// DecodeFloat32s converts little-endian elements of dt into float32 values.
func DecodeFloat32s(dt DataType, data []byte) ([]float32, error) {
	if size := dt.Size(); size == 0 || len(data)%size != 0 {
		return nil, Errorf("decode", ErrInvalidArgument, "%d bytes is not a whole number of %s elements", len(data), dt)
	}

	switch dt {
	case Float32:
		out := make([]float32, len(data)/4)
		for i := range out {
			out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[4*i:]))
		}
		return out, nil
	case Float64:
		out := make([]float32, len(data)/8)
		for i := range out {
			out[i] = float32(math.Float64frombits(binary.LittleEndian.Uint64(data[8*i:])))
		}
		return out, nil
	case Float16:
		out := make([]float32, len(data)/2)
		for i := range out {
			out[i] = float16.Frombits(binary.LittleEndian.Uint16(data[2*i:])).Float32()
		}
		return out, nil
	case BFloat16:
		return bfloat16.DecodeFloat32(data), nil
	default:
		return nil, Errorf("decode", ErrUnsupportedDType, "cannot decode %s as float32 values", dt)
	}
}
