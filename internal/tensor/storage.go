package tensor

import (
	"sync/atomic"

	"github.com/born-ml/llaisys/internal/device"
	"github.com/born-ml/llaisys/internal/logutil"
)

// Storage is a reference-counted block of memory shared by tensor views.
// The last Release returns the memory to the runtime that allocated it.
type Storage struct {
	runtime  device.Runtime
	devType  device.Type
	devIndex int
	size     int
	buf      device.Buffer
	host     bool // allocated with MallocHost

	refs atomic.Int32
}

func newStorage(rt device.Runtime, t device.Type, index, size int, host bool) (*Storage, error) {
	var (
		buf device.Buffer
		err error
	)
	if host {
		buf, err = rt.MallocHost(size)
	} else {
		buf, err = rt.MallocDevice(size)
	}
	if err != nil {
		return nil, err
	}

	s := &Storage{runtime: rt, devType: t, devIndex: index, size: size, buf: buf, host: host}
	s.refs.Store(1)
	return s, nil
}

// DeviceType returns the device family the memory lives on.
func (s *Storage) DeviceType() device.Type { return s.devType }

// DeviceIndex returns the device index the memory lives on.
func (s *Storage) DeviceIndex() int { return s.devIndex }

// Size returns the capacity in bytes.
func (s *Storage) Size() int { return s.size }

// Buffer returns the runtime handle.
func (s *Storage) Buffer() device.Buffer { return s.buf }

// IsHost reports whether the memory was allocated as (pinned) host memory.
func (s *Storage) IsHost() bool { return s.host }

// Bytes returns the memory when it is host addressable and nil otherwise.
func (s *Storage) Bytes() []byte {
	if hb, ok := s.buf.(device.HostBuffer); ok {
		return hb
	}
	return nil
}

// Refs returns the current reference count.
func (s *Storage) Refs() int { return int(s.refs.Load()) }

// Retain adds a reference.
func (s *Storage) Retain() {
	s.refs.Add(1)
}

// Release drops a reference and frees the memory when none remain.
func (s *Storage) Release() error {
	if s.refs.Add(-1) != 0 {
		return nil
	}

	logutil.Trace("storage: free", "device", s.devType, "index", s.devIndex, "bytes", s.size, "host", s.host)
	buf := s.buf
	s.buf = nil
	if s.host {
		return s.runtime.FreeHost(buf)
	}
	return s.runtime.FreeDevice(buf)
}
