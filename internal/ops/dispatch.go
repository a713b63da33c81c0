// Package ops implements the operator surface: each operator validates its
// operands and then runs the kernel of the backend registered for the
// operands' device.
package ops

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/born-ml/llaisys/internal/backend/cpu"
	"github.com/born-ml/llaisys/internal/device"
	"github.com/born-ml/llaisys/internal/logutil"
	"github.com/born-ml/llaisys/internal/tensor"
)

var (
	backendsMu sync.RWMutex
	backends   = map[device.Type]tensor.Backend{
		device.CPU: cpu.New(),
	}
)

// RegisterBackend installs the kernels for a device family, replacing any
// previous registration.
func RegisterBackend(t device.Type, b tensor.Backend) {
	backendsMu.Lock()
	defer backendsMu.Unlock()

	slog.Debug("ops: register backend", "device", t, "backend", b.Name())
	backends[t] = b
}

// Backend returns the kernels registered for a device family.
func Backend(t device.Type) (tensor.Backend, bool) {
	backendsMu.RLock()
	defer backendsMu.RUnlock()

	b, ok := backends[t]
	return b, ok
}

// dispatch runs fn on the backend for on's device. CPU operands run
// directly; any other device is made current on ctx first.
func dispatch(ctx *device.Context, op string, on *tensor.Tensor, fn func(tensor.Backend) error) error {
	t, index := on.DeviceType(), on.DeviceIndex()

	if t != device.CPU {
		if err := ctx.SetDevice(t, index); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	b, ok := Backend(t)
	if !ok {
		return tensor.Errorf(op, tensor.ErrUnimplemented, "no kernels for %s", t)
	}

	logutil.Trace("ops: dispatch", "op", op, "device", t, "index", index, "backend", b.Name())
	return fn(b)
}
