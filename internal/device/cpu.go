package device

import "fmt"

func init() {
	Register(CPU, func() (Runtime, error) { return cpuRuntime{}, nil })
}

// cpuRuntime serves host memory. It has exactly one device; streams are
// no-ops and asynchronous copies complete before returning.
type cpuRuntime struct{}

func (cpuRuntime) DeviceType() Type { return CPU }

func (cpuRuntime) DeviceCount() int { return 1 }

func (cpuRuntime) SetDevice(index int) error {
	if index != 0 {
		return fmt.Errorf("%w: cpu:%d", ErrInvalidDevice, index)
	}
	return nil
}

func (cpuRuntime) DeviceSynchronize() error { return nil }

func (cpuRuntime) CreateStream() (Stream, error) { return nil, nil }

func (cpuRuntime) DestroyStream(Stream) error { return nil }

func (cpuRuntime) StreamSynchronize(Stream) error { return nil }

func (cpuRuntime) MallocDevice(size int) (Buffer, error) { return allocHost(size) }

func (cpuRuntime) FreeDevice(Buffer) error { return nil }

func (cpuRuntime) MallocHost(size int) (Buffer, error) { return allocHost(size) }

func (cpuRuntime) FreeHost(Buffer) error { return nil }

func (cpuRuntime) MemcpySync(dst Buffer, dstOffset int, src Buffer, srcOffset int, size int, kind MemcpyKind) error {
	return CopyHost(dst, dstOffset, src, srcOffset, size)
}

func (r cpuRuntime) MemcpyAsync(dst Buffer, dstOffset int, src Buffer, srcOffset int, size int, kind MemcpyKind, _ Stream) error {
	return r.MemcpySync(dst, dstOffset, src, srcOffset, size, kind)
}

func allocHost(size int) (Buffer, error) {
	if size < 0 {
		return nil, fmt.Errorf("%w: negative allocation %d", ErrInvalidCopy, size)
	}
	return make(HostBuffer, size), nil
}

// CopyHost copies between two host buffers after bounds checking both ends.
// Runtimes use it for the host side of their copies.
func CopyHost(dst Buffer, dstOffset int, src Buffer, srcOffset int, size int) error {
	d, ok := dst.(HostBuffer)
	if !ok {
		return fmt.Errorf("%w: destination is not host memory", ErrInvalidCopy)
	}
	s, ok := src.(HostBuffer)
	if !ok {
		return fmt.Errorf("%w: source is not host memory", ErrInvalidCopy)
	}
	if err := checkRange(d, dstOffset, size); err != nil {
		return err
	}
	if err := checkRange(s, srcOffset, size); err != nil {
		return err
	}
	copy(d[dstOffset:dstOffset+size], s[srcOffset:srcOffset+size])
	return nil
}
