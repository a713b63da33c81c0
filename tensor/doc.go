// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides strided tensor views over reference-counted device
// storage.
//
// # Overview
//
// A Tensor is a dtype, a shape, signed strides and a byte offset into a
// shared Storage. Permute, Slice and View return new views of the same
// storage without copying; each view holds its own reference and Release
// drops it. The storage is freed when the last view is released.
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/llaisys/device"
//	    "github.com/born-ml/llaisys/tensor"
//	)
//
//	func main() {
//	    ctx := device.NewContext()
//
//	    x, err := tensor.Create(ctx, tensor.Shape{2, 3}, tensor.Float32, device.CPU, 0)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    defer x.Release()
//
//	    _ = x.LoadFloat32s(ctx, []float32{1, 2, 3, 4, 5, 6})
//	    xt, _ := x.Permute(1, 0) // shape [3 2], strides [1 3]
//	    defer xt.Release()
//	}
//
// # Errors
//
// Malformed requests fail with errors matching ErrContractViolation and one
// of ErrInvalidArgument, ErrShapeMismatch, ErrDTypeMismatch or
// ErrDeviceMismatch. Well-formed requests without an implementation fail
// with ErrUnsupportedDType, ErrUnsupportedDevice or ErrUnimplemented.
package tensor
