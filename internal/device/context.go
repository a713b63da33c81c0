package device

import (
	"fmt"

	"github.com/born-ml/llaisys/internal/logutil"
)

// Context records the current device and the runtimes resolved so far.
// Operators switch it before touching device memory. A Context is not safe
// for concurrent use; give each goroutine its own.
type Context struct {
	typ      Type
	index    int
	runtime  Runtime
	runtimes map[Type]Runtime
}

// NewContext returns a context whose current device is cpu:0.
func NewContext() *Context {
	c := &Context{runtimes: make(map[Type]Runtime)}
	rt, err := c.lookup(CPU)
	if err != nil {
		// The CPU runtime registers itself in this package.
		panic(err)
	}
	c.runtime = rt
	return c
}

// Current returns the current device.
func (c *Context) Current() (Type, int) {
	return c.typ, c.index
}

// Runtime returns the runtime of the current device.
func (c *Context) Runtime() Runtime {
	return c.runtime
}

// SetDevice makes t:index the current device.
func (c *Context) SetDevice(t Type, index int) error {
	rt, err := c.lookup(t)
	if err != nil {
		return err
	}
	if index < 0 || index >= rt.DeviceCount() {
		return fmt.Errorf("%w: %s:%d (have %d)", ErrInvalidDevice, t, index, rt.DeviceCount())
	}
	if err := rt.SetDevice(index); err != nil {
		return fmt.Errorf("set device %s:%d: %w", t, index, err)
	}
	if c.typ == t && c.index == index {
		return nil
	}

	logutil.Trace("device: switch", "from", fmt.Sprintf("%s:%d", c.typ, c.index), "to", fmt.Sprintf("%s:%d", t, index))
	c.typ, c.index, c.runtime = t, index, rt
	return nil
}

func (c *Context) lookup(t Type) (Runtime, error) {
	if rt, ok := c.runtimes[t]; ok {
		return rt, nil
	}
	rt, err := Lookup(t)
	if err != nil {
		return nil, err
	}
	c.runtimes[t] = rt
	return rt, nil
}
