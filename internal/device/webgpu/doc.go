// Package webgpu registers a device.Runtime for device.WebGPU backed by
// go-webgpu. The runtime provides memory and copies only; operator kernels
// for WebGPU are not implemented, so operators on WebGPU tensors report
// tensor.ErrUnimplemented.
//
// The runtime is built on windows, matching the platforms the go-webgpu
// native library ships for. Importing the package elsewhere registers
// nothing.
package webgpu
