// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package device selects the device that tensors and operators run on.
//
// Each device family (CPU, NVIDIA, WebGPU) is served by a Runtime registered
// under its Type. A Context tracks the current device; pass one through
// every call that allocates, copies or computes, and give each goroutine its
// own.
//
// The CPU runtime is always available. Importing this package also
// registers the WebGPU runtime on platforms that support it.
package device

import (
	"github.com/born-ml/llaisys/internal/device"

	_ "github.com/born-ml/llaisys/internal/device/webgpu" // registers the WebGPU runtime
)

// Type identifies a device family.
type Type = device.Type

// Device families.
const (
	CPU    Type = device.CPU
	NVIDIA Type = device.NVIDIA
	WebGPU Type = device.WebGPU
)

// MemcpyKind is the direction of a memory copy.
type MemcpyKind = device.MemcpyKind

// Copy directions.
const (
	HostToHost     MemcpyKind = device.HostToHost
	HostToDevice   MemcpyKind = device.HostToDevice
	DeviceToHost   MemcpyKind = device.DeviceToHost
	DeviceToDevice MemcpyKind = device.DeviceToDevice
)

// Runtime is the capability set of one device family.
type Runtime = device.Runtime

// Buffer is a block of memory owned by a Runtime.
type Buffer = device.Buffer

// HostBuffer is host-addressable memory.
type HostBuffer = device.HostBuffer

// Stream is an independent queue of device work.
type Stream = device.Stream

// Context records the current device.
type Context = device.Context

// Errors.
var (
	ErrUnsupportedDevice = device.ErrUnsupportedDevice
	ErrInvalidDevice     = device.ErrInvalidDevice
	ErrInvalidCopy       = device.ErrInvalidCopy
)

// NewContext returns a context whose current device is cpu:0.
func NewContext() *Context {
	return device.NewContext()
}

// Register adds a runtime factory for a device family. It panics if the
// family is already registered.
func Register(t Type, factory func() (Runtime, error)) {
	device.Register(t, factory)
}

// Lookup returns the runtime for a device family, creating it on first use.
func Lookup(t Type) (Runtime, error) {
	return device.Lookup(t)
}

// Registered returns the registered device families in ascending order.
func Registered() []Type {
	return device.Registered()
}

// Parse parses a device spec such as "cpu", "nvidia:1" or "webgpu".
func Parse(s string) (Type, int, error) {
	return device.Parse(s)
}
