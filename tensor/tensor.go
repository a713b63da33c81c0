// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"github.com/born-ml/llaisys/internal/device"
	"github.com/born-ml/llaisys/internal/tensor"
)

// Tensor is a strided view over shared storage.
type Tensor = tensor.Tensor

// Storage is a reference-counted block of device or host memory.
type Storage = tensor.Storage

// Shape represents the dimensions of a tensor.
type Shape = tensor.Shape

// DataType is the element type of a tensor.
type DataType = tensor.DataType

// Data type constants.
const (
	Byte     DataType = tensor.Byte
	Bool     DataType = tensor.Bool
	Int8     DataType = tensor.Int8
	Int16    DataType = tensor.Int16
	Int32    DataType = tensor.Int32
	Int64    DataType = tensor.Int64
	Uint8    DataType = tensor.Uint8
	Uint16   DataType = tensor.Uint16
	Uint32   DataType = tensor.Uint32
	Uint64   DataType = tensor.Uint64
	Float16  DataType = tensor.Float16
	Float32  DataType = tensor.Float32
	Float64  DataType = tensor.Float64
	BFloat16 DataType = tensor.BFloat16
)

// BF16 is the bfloat16 element type.
type BF16 = tensor.BF16

// Backend executes operator kernels for one device family.
type Backend = tensor.Backend

// OpError reports a failed operator or tensor call.
type OpError = tensor.OpError

// Error kinds, matched with errors.Is.
var (
	ErrContractViolation = tensor.ErrContractViolation
	ErrInvalidArgument   = tensor.ErrInvalidArgument
	ErrShapeMismatch     = tensor.ErrShapeMismatch
	ErrDTypeMismatch     = tensor.ErrDTypeMismatch
	ErrDeviceMismatch    = tensor.ErrDeviceMismatch
	ErrUnsupportedDType  = tensor.ErrUnsupportedDType
	ErrUnsupportedDevice = tensor.ErrUnsupportedDevice
	ErrUnimplemented     = tensor.ErrUnimplemented
)

// Create allocates an uninitialized tensor on devType:devIndex.
func Create(ctx *device.Context, shape Shape, dtype DataType, devType device.Type, devIndex int) (*Tensor, error) {
	return tensor.Create(ctx, shape, dtype, devType, devIndex)
}

// SameStorage reports whether a and b are views of one Storage.
func SameStorage(a, b *Tensor) bool {
	return tensor.SameStorage(a, b)
}

// EncodeFloat32s converts float32 values into little-endian elements of dt.
func EncodeFloat32s(dt DataType, values []float32) ([]byte, error) {
	return tensor.EncodeFloat32s(dt, values)
}

// DecodeFloat32s converts little-endian elements of dt into float32 values.
func DecodeFloat32s(dt DataType, data []byte) ([]float32, error) {
	return tensor.DecodeFloat32s(dt, data)
}
