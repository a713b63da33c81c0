//go:build windows

package webgpu

import (
	"fmt"
	"log/slog"
	"unsafe"

	"github.com/go-webgpu/webgpu/wgpu"

	"github.com/born-ml/llaisys/internal/device"
)

// copyAlignment is the WebGPU requirement for buffer copy offsets and sizes.
// Unaligned copies are widened to an aligned window.
const copyAlignment = 4

func init() {
	device.Register(device.WebGPU, func() (device.Runtime, error) { return New() })
}

// buffer is a storage buffer on the GPU.
type buffer struct {
	buf  *wgpu.Buffer
	size int
}

func (b *buffer) Size() int { return b.size }

// stream is a label for work submitted to the single device queue. The
// queue executes submissions in order, so synchronizing a stream is the same
// as synchronizing the device.
type stream struct{}

// Runtime drives a single WebGPU adapter.
type Runtime struct {
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
}

// New acquires the high-performance adapter and its default queue.
func New() (rt *Runtime, err error) {
	// go-webgpu panics when the native library cannot be loaded.
	defer func() {
		if r := recover(); r != nil {
			rt = nil
			err = fmt.Errorf("webgpu: native library not available: %v", r)
		}
	}()

	instance := wgpu.CreateInstance(nil)
	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		instance.Release()
		return nil, fmt.Errorf("webgpu: request adapter: %w", err)
	}

	dev, err := adapter.RequestDevice(nil)
	if err != nil {
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("webgpu: request device: %w", err)
	}

	queue := dev.GetQueue()
	if queue == nil {
		dev.Release()
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("webgpu: no queue")
	}

	info := adapter.GetInfo()
	slog.Info("webgpu runtime", "adapter", info.Name, "vendor", info.VendorName)

	return &Runtime{instance: instance, adapter: adapter, device: dev, queue: queue}, nil
}

func (r *Runtime) DeviceType() device.Type { return device.WebGPU }

func (r *Runtime) DeviceCount() int { return 1 }

func (r *Runtime) SetDevice(index int) error {
	if index != 0 {
		return fmt.Errorf("%w: webgpu:%d", device.ErrInvalidDevice, index)
	}
	return nil
}

// DeviceSynchronize is satisfied by construction: every copy is submitted
// immediately and readbacks block on the buffer map.
func (r *Runtime) DeviceSynchronize() error { return nil }

func (r *Runtime) CreateStream() (device.Stream, error) { return &stream{}, nil }

func (r *Runtime) DestroyStream(device.Stream) error { return nil }

func (r *Runtime) StreamSynchronize(device.Stream) error { return r.DeviceSynchronize() }

func (r *Runtime) MallocDevice(size int) (device.Buffer, error) {
	if size < 0 {
		return nil, fmt.Errorf("%w: negative allocation %d", device.ErrInvalidCopy, size)
	}
	buf := r.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst,
		Size:  uint64(align(size)),
	})
	return &buffer{buf: buf, size: size}, nil
}

func (r *Runtime) FreeDevice(b device.Buffer) error {
	buf, ok := b.(*buffer)
	if !ok {
		return fmt.Errorf("%w: %T is not webgpu memory", device.ErrInvalidCopy, b)
	}
	buf.buf.Release()
	return nil
}

func (r *Runtime) MallocHost(size int) (device.Buffer, error) {
	if size < 0 {
		return nil, fmt.Errorf("%w: negative allocation %d", device.ErrInvalidCopy, size)
	}
	return make(device.HostBuffer, size), nil
}

func (r *Runtime) FreeHost(device.Buffer) error { return nil }

func (r *Runtime) MemcpySync(dst device.Buffer, dstOffset int, src device.Buffer, srcOffset int, size int, kind device.MemcpyKind) error {
	switch kind {
	case device.HostToHost:
		return device.CopyHost(dst, dstOffset, src, srcOffset, size)
	case device.HostToDevice:
		return r.upload(dst, dstOffset, src, srcOffset, size)
	case device.DeviceToHost:
		return r.download(dst, dstOffset, src, srcOffset, size)
	case device.DeviceToDevice:
		return r.copyDevice(dst, dstOffset, src, srcOffset, size)
	default:
		return fmt.Errorf("%w: kind %s", device.ErrInvalidCopy, kind)
	}
}

// MemcpyAsync submits the copy on the device queue. Uploads and device
// copies return once submitted; downloads wait for the data.
func (r *Runtime) MemcpyAsync(dst device.Buffer, dstOffset int, src device.Buffer, srcOffset int, size int, kind device.MemcpyKind, _ device.Stream) error {
	return r.MemcpySync(dst, dstOffset, src, srcOffset, size, kind)
}

// upload writes size bytes of src into dst. Ranges that are not 4-byte
// aligned are widened to the enclosing aligned window, whose edge bytes are
// read back first so that only the requested range changes.
func (r *Runtime) upload(dst device.Buffer, dstOffset int, src device.Buffer, srcOffset int, size int) error {
	d, err := deviceBuffer(dst, dstOffset, size)
	if err != nil {
		return err
	}
	s, ok := src.(device.HostBuffer)
	if !ok || srcOffset < 0 || srcOffset+size > len(s) {
		return fmt.Errorf("%w: bad host source", device.ErrInvalidCopy)
	}
	if size == 0 {
		return nil
	}
	data := s[srcOffset : srcOffset+size]

	lo, hi := window(dstOffset, size)
	if lo == dstOffset && hi == dstOffset+size {
		r.write(d, lo, data)
		return nil
	}
	staged, err := r.read(d, lo, hi-lo)
	if err != nil {
		return err
	}
	copy(staged[dstOffset-lo:], data)
	r.write(d, lo, staged)
	return nil
}

func (r *Runtime) download(dst device.Buffer, dstOffset int, src device.Buffer, srcOffset int, size int) error {
	s, err := deviceBuffer(src, srcOffset, size)
	if err != nil {
		return err
	}
	d, ok := dst.(device.HostBuffer)
	if !ok || dstOffset < 0 || dstOffset+size > len(d) {
		return fmt.Errorf("%w: bad host destination", device.ErrInvalidCopy)
	}
	if size == 0 {
		return nil
	}

	lo, hi := window(srcOffset, size)
	staged, err := r.read(s, lo, hi-lo)
	if err != nil {
		return err
	}
	copy(d[dstOffset:dstOffset+size], staged[srcOffset-lo:])
	return nil
}

func (r *Runtime) copyDevice(dst device.Buffer, dstOffset int, src device.Buffer, srcOffset int, size int) error {
	d, err := deviceBuffer(dst, dstOffset, size)
	if err != nil {
		return err
	}
	s, err := deviceBuffer(src, srcOffset, size)
	if err != nil {
		return err
	}
	if size == 0 {
		return nil
	}

	if !aligned(dstOffset, srcOffset, size) {
		tmp := make(device.HostBuffer, size)
		if err := r.download(tmp, 0, s, srcOffset, size); err != nil {
			return err
		}
		return r.upload(d, dstOffset, tmp, 0, size)
	}

	encoder := r.device.CreateCommandEncoder(nil)
	encoder.CopyBufferToBuffer(s.buf, uint64(srcOffset), d.buf, uint64(dstOffset), uint64(size))
	r.queue.Submit(encoder.Finish(nil))
	return nil
}

// write uploads data at an aligned offset; len(data) must be aligned.
func (r *Runtime) write(d *buffer, offset int, data []byte) {
	size := len(data)
	staging := r.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            wgpu.BufferUsageCopySrc,
		Size:             uint64(size),
		MappedAtCreation: wgpu.True,
	})
	defer staging.Release()

	//nolint:gosec // G103: the mapped range is exactly size bytes
	mapped := unsafe.Slice((*byte)(staging.GetMappedRange(0, uint64(size))), size)
	copy(mapped, data)
	staging.Unmap()

	encoder := r.device.CreateCommandEncoder(nil)
	encoder.CopyBufferToBuffer(staging, 0, d.buf, uint64(offset), uint64(size))
	r.queue.Submit(encoder.Finish(nil))
}

// read returns size bytes from an aligned offset; size must be aligned.
func (r *Runtime) read(s *buffer, offset, size int) ([]byte, error) {
	staging := r.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
		Size:  uint64(size),
	})
	defer staging.Release()

	encoder := r.device.CreateCommandEncoder(nil)
	encoder.CopyBufferToBuffer(s.buf, uint64(offset), staging, 0, uint64(size))
	r.queue.Submit(encoder.Finish(nil))

	if err := staging.MapAsync(r.device, wgpu.MapModeRead, 0, uint64(size)); err != nil {
		return nil, fmt.Errorf("webgpu: map staging buffer: %w", err)
	}
	out := make([]byte, size)
	//nolint:gosec // G103: the mapped range is exactly size bytes
	copy(out, unsafe.Slice((*byte)(staging.GetMappedRange(0, uint64(size))), size))
	staging.Unmap()
	return out, nil
}

// Release frees the adapter, device and queue.
func (r *Runtime) Release() {
	if r.queue != nil {
		r.queue.Release()
		r.queue = nil
	}
	if r.device != nil {
		r.device.Release()
		r.device = nil
	}
	if r.adapter != nil {
		r.adapter.Release()
		r.adapter = nil
	}
	if r.instance != nil {
		r.instance.Release()
		r.instance = nil
	}
}

func deviceBuffer(b device.Buffer, offset, size int) (*buffer, error) {
	buf, ok := b.(*buffer)
	if !ok {
		return nil, fmt.Errorf("%w: %T is not webgpu memory", device.ErrInvalidCopy, b)
	}
	if offset < 0 || size < 0 || offset+size > buf.size {
		return nil, fmt.Errorf("%w: range [%d, %d) outside buffer of %d bytes", device.ErrInvalidCopy, offset, offset+size, buf.size)
	}
	return buf, nil
}

// window returns the aligned byte range enclosing [offset, offset+size).
// Buffers are allocated with aligned sizes, so the window always fits.
func window(offset, size int) (lo, hi int) {
	return offset &^ (copyAlignment - 1), align(offset + size)
}

func aligned(values ...int) bool {
	for _, v := range values {
		if v%copyAlignment != 0 {
			return false
		}
	}
	return true
}

func align(n int) int {
	return (n + copyAlignment - 1) &^ (copyAlignment - 1)
}
