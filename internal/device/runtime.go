package device

import (
	"fmt"
	"slices"
	"sync"
)

// Buffer is a block of memory owned by a Runtime.
type Buffer interface {
	// Size returns the capacity in bytes.
	Size() int
}

// HostBuffer is host-addressable memory.
type HostBuffer []byte

// Size returns the length of the buffer.
func (b HostBuffer) Size() int { return len(b) }

// Stream is an independent queue of device work.
type Stream interface{}

// Runtime is the capability set of one device family: device selection,
// synchronization, streams, memory and copies. Implementations are
// registered per Type and resolved once.
type Runtime interface {
	DeviceType() Type
	DeviceCount() int
	SetDevice(index int) error
	DeviceSynchronize() error

	CreateStream() (Stream, error)
	DestroyStream(s Stream) error
	StreamSynchronize(s Stream) error

	MallocDevice(size int) (Buffer, error)
	FreeDevice(b Buffer) error
	MallocHost(size int) (Buffer, error)
	FreeHost(b Buffer) error

	MemcpySync(dst Buffer, dstOffset int, src Buffer, srcOffset int, size int, kind MemcpyKind) error
	MemcpyAsync(dst Buffer, dstOffset int, src Buffer, srcOffset int, size int, kind MemcpyKind, s Stream) error
}

type registration struct {
	factory func() (Runtime, error)
	once    sync.Once
	runtime Runtime
	err     error
}

var (
	registryMu sync.Mutex
	registry   = make(map[Type]*registration)
)

// Register adds a runtime factory for a device family. It panics if the
// family is already registered.
func Register(t Type, factory func() (Runtime, error)) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, ok := registry[t]; ok {
		panic("device: runtime already registered for " + t.String())
	}
	registry[t] = &registration{factory: factory}
}

// Lookup returns the runtime for a device family, creating it on first use.
func Lookup(t Type) (Runtime, error) {
	registryMu.Lock()
	r, ok := registry[t]
	registryMu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: no runtime for %s", ErrUnsupportedDevice, t)
	}

	r.once.Do(func() {
		r.runtime, r.err = r.factory()
		if r.err != nil {
			r.err = fmt.Errorf("%w: %s: %w", ErrUnsupportedDevice, t, r.err)
		}
	})
	return r.runtime, r.err
}

// Registered returns the registered device families in ascending order.
func Registered() []Type {
	registryMu.Lock()
	defer registryMu.Unlock()

	types := make([]Type, 0, len(registry))
	for t := range registry {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}

// checkRange validates a copy window against a buffer.
func checkRange(b Buffer, offset, size int) error {
	if b == nil {
		return fmt.Errorf("%w: nil buffer", ErrInvalidCopy)
	}
	if offset < 0 || size < 0 || offset+size > b.Size() {
		return fmt.Errorf("%w: range [%d, %d) outside buffer of %d bytes", ErrInvalidCopy, offset, offset+size, b.Size())
	}
	return nil
}
