// Package device describes compute devices, the runtime capability interface
// each device family implements, and the context that tracks which device is
// current.
package device

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Type identifies a device family.
type Type int

// Supported device families.
const (
	CPU Type = iota
	NVIDIA
	WebGPU
)

// String returns the lower-case device family name.
func (t Type) String() string {
	switch t {
	case CPU:
		return "cpu"
	case NVIDIA:
		return "nvidia"
	case WebGPU:
		return "webgpu"
	default:
		return fmt.Sprintf("device(%d)", int(t))
	}
}

// MemcpyKind is the direction of a memory copy.
type MemcpyKind int

// Copy directions.
const (
	HostToHost MemcpyKind = iota
	HostToDevice
	DeviceToHost
	DeviceToDevice
)

func (k MemcpyKind) String() string {
	switch k {
	case HostToHost:
		return "H2H"
	case HostToDevice:
		return "H2D"
	case DeviceToHost:
		return "D2H"
	case DeviceToDevice:
		return "D2D"
	default:
		return fmt.Sprintf("memcpy(%d)", int(k))
	}
}

// Common errors.
var (
	ErrUnsupportedDevice = errors.New("unsupported device")
	ErrInvalidDevice     = errors.New("invalid device index")
	ErrInvalidCopy       = errors.New("invalid memory copy")
)

// Parse parses a device spec such as "cpu", "nvidia:1" or "webgpu".
// The index defaults to 0.
func Parse(s string) (Type, int, error) {
	name, index, found := strings.Cut(strings.ToLower(strings.TrimSpace(s)), ":")

	var t Type
	switch name {
	case "cpu":
		t = CPU
	case "nvidia", "cuda":
		t = NVIDIA
	case "webgpu":
		t = WebGPU
	default:
		return 0, 0, fmt.Errorf("%w: %q", ErrUnsupportedDevice, s)
	}

	if !found {
		return t, 0, nil
	}

	i, err := strconv.Atoi(index)
	if err != nil || i < 0 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidDevice, s)
	}
	return t, i, nil
}
