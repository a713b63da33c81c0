// Package cpu implements the operator kernels on host memory.
//
// Kernels are generic over the three storage float types. Every element is
// widened to float32 on read and narrowed back to the storage type on write;
// reductions that are sensitive to cancellation accumulate in float64.
//
// Every loop nest runs sequentially on the calling goroutine, so ties and
// accumulation order are the same on every run.
package cpu

import (
	"github.com/born-ml/llaisys/internal/tensor"
)

// CPUBackend runs operator kernels single-threaded on host memory.
type CPUBackend struct{}

var _ tensor.Backend = (*CPUBackend)(nil)

// New creates a new CPU backend.
func New() *CPUBackend {
	return &CPUBackend{}
}

// Name returns the backend name.
func (cpu *CPUBackend) Name() string {
	return "CPU"
}

func unsupported(op string, dt tensor.DataType) error {
	return tensor.Errorf(op, tensor.ErrUnsupportedDType, "no CPU kernel for %s", dt)
}
