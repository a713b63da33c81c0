// Package tensor provides strided tensor views over reference-counted device
// storage, the element types the kernels compute on, and the error kinds
// shared by the operator layer.
package tensor

import "fmt"

// DataType is the element type of a tensor.
type DataType int

// Supported data types.
const (
	Byte DataType = iota
	Bool
	Int8
	Int16
	Int32
	Int64
	Uint8
	Uint16
	Uint32
	Uint64
	Float16
	Float32
	Float64
	BFloat16
)

// Size returns the byte size of one element, or 0 for an unknown type.
func (dt DataType) Size() int {
	switch dt {
	case Byte, Bool, Int8, Uint8:
		return 1
	case Int16, Uint16, Float16, BFloat16:
		return 2
	case Int32, Uint32, Float32:
		return 4
	case Int64, Uint64, Float64:
		return 8
	default:
		return 0
	}
}

// String returns a human-readable name for the data type.
func (dt DataType) String() string {
	switch dt {
	case Byte:
		return "byte"
	case Bool:
		return "bool"
	case Int8:
		return "int8"
	case Int16:
		return "int16"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case Uint8:
		return "uint8"
	case Uint16:
		return "uint16"
	case Uint32:
		return "uint32"
	case Uint64:
		return "uint64"
	case Float16:
		return "float16"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case BFloat16:
		return "bfloat16"
	default:
		return fmt.Sprintf("dtype(%d)", int(dt))
	}
}

// IsFloat reports whether dt is a floating-point type.
func (dt DataType) IsFloat() bool {
	switch dt {
	case Float16, Float32, Float64, BFloat16:
		return true
	default:
		return false
	}
}

// valid reports whether dt is one of the declared types.
func (dt DataType) valid() bool {
	return dt.Size() > 0
}
