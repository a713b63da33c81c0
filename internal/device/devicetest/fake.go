// Package devicetest provides a host-backed runtime for exercising non-CPU
// code paths in tests.
package devicetest

import (
	"fmt"
	"sync"

	"github.com/born-ml/llaisys/internal/device"
)

// Buffer is fake device memory. It is deliberately not a device.HostBuffer so
// code that expects host-addressable memory cannot reach into it.
type Buffer struct {
	Data  []byte
	freed bool
}

// Size returns the capacity in bytes.
func (b *Buffer) Size() int { return len(b.Data) }

// Runtime is a fake multi-device runtime that keeps "device" memory on the
// host and records what it was asked to do.
type Runtime struct {
	Type  device.Type
	Count int

	mu          sync.Mutex
	SetDevices  []int
	Copies      []device.MemcpyKind
	DeviceAlloc int
	HostAlloc   int
	DeviceFrees int
	HostFrees   int
}

var (
	registerMu sync.Mutex
	registered = make(map[device.Type]*Runtime)
)

// Register registers a fake runtime with count devices for t once per test
// binary and returns it.
func Register(t device.Type, count int) *Runtime {
	registerMu.Lock()
	defer registerMu.Unlock()

	if rt, ok := registered[t]; ok {
		return rt
	}
	rt := &Runtime{Type: t, Count: count}
	device.Register(t, func() (device.Runtime, error) { return rt, nil })
	registered[t] = rt
	return rt
}

func (r *Runtime) DeviceType() device.Type { return r.Type }

func (r *Runtime) DeviceCount() int { return r.Count }

func (r *Runtime) SetDevice(index int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.SetDevices = append(r.SetDevices, index)
	return nil
}

func (r *Runtime) DeviceSynchronize() error { return nil }

func (r *Runtime) CreateStream() (device.Stream, error) { return new(int), nil }

func (r *Runtime) DestroyStream(device.Stream) error { return nil }

func (r *Runtime) StreamSynchronize(device.Stream) error { return nil }

func (r *Runtime) MallocDevice(size int) (device.Buffer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.DeviceAlloc++
	return &Buffer{Data: make([]byte, size)}, nil
}

func (r *Runtime) FreeDevice(b device.Buffer) error {
	buf, ok := b.(*Buffer)
	if !ok || buf.freed {
		return fmt.Errorf("devicetest: bad device free")
	}
	buf.freed = true

	r.mu.Lock()
	defer r.mu.Unlock()
	r.DeviceFrees++
	return nil
}

func (r *Runtime) MallocHost(size int) (device.Buffer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.HostAlloc++
	return make(device.HostBuffer, size), nil
}

func (r *Runtime) FreeHost(device.Buffer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.HostFrees++
	return nil
}

func (r *Runtime) MemcpySync(dst device.Buffer, dstOffset int, src device.Buffer, srcOffset int, size int, kind device.MemcpyKind) error {
	r.mu.Lock()
	r.Copies = append(r.Copies, kind)
	r.mu.Unlock()

	d, err := bytesOf(dst, kind == device.HostToDevice || kind == device.DeviceToDevice)
	if err != nil {
		return err
	}
	s, err := bytesOf(src, kind == device.DeviceToHost || kind == device.DeviceToDevice)
	if err != nil {
		return err
	}
	if dstOffset+size > len(d) || srcOffset+size > len(s) {
		return fmt.Errorf("%w: copy out of range", device.ErrInvalidCopy)
	}
	copy(d[dstOffset:dstOffset+size], s[srcOffset:srcOffset+size])
	return nil
}

func (r *Runtime) MemcpyAsync(dst device.Buffer, dstOffset int, src device.Buffer, srcOffset int, size int, kind device.MemcpyKind, _ device.Stream) error {
	return r.MemcpySync(dst, dstOffset, src, srcOffset, size, kind)
}

// Reset clears the recorded calls.
func (r *Runtime) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.SetDevices, r.Copies = nil, nil
	r.DeviceAlloc, r.HostAlloc, r.DeviceFrees, r.HostFrees = 0, 0, 0, 0
}

// Bytes returns the contents of a fake device buffer.
func Bytes(b device.Buffer) []byte {
	if buf, ok := b.(*Buffer); ok {
		return buf.Data
	}
	return nil
}

func bytesOf(b device.Buffer, onDevice bool) ([]byte, error) {
	switch buf := b.(type) {
	case *Buffer:
		if !onDevice {
			return nil, fmt.Errorf("%w: device buffer used as host memory", device.ErrInvalidCopy)
		}
		return buf.Data, nil
	case device.HostBuffer:
		if onDevice {
			return nil, fmt.Errorf("%w: host buffer used as device memory", device.ErrInvalidCopy)
		}
		return buf, nil
	default:
		return nil, fmt.Errorf("%w: unknown buffer %T", device.ErrInvalidCopy, b)
	}
}
