package tensor

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/born-ml/llaisys/internal/device"
)

// Tensor is a strided view over a shared Storage. Permute, Slice and View
// never copy; they return new views that hold their own storage reference.
type Tensor struct {
	storage *Storage
	dtype   DataType
	shape   Shape
	strides []int // in elements, signed
	offset  int   // in bytes
}

// Create allocates an uninitialized tensor on devType:devIndex.
//
// A CPU tensor requested while ctx is on another device is allocated as
// pinned host memory through that device's runtime. Otherwise ctx switches to
// the requested device and the memory comes from its runtime.
func Create(ctx *device.Context, shape Shape, dtype DataType, devType device.Type, devIndex int) (*Tensor, error) {
	if !dtype.valid() {
		return nil, Errorf("create", ErrInvalidArgument, "unknown dtype %s", dtype)
	}
	size, err := shape.ByteSize(dtype.Size())
	if err != nil {
		return nil, &OpError{Op: "create", Kind: ErrInvalidArgument, Detail: err.Error()}
	}

	var s *Storage
	if cur, _ := ctx.Current(); devType == device.CPU && cur != device.CPU {
		if devIndex != 0 {
			return nil, Errorf("create", ErrInvalidArgument, "cpu device index %d", devIndex)
		}
		s, err = newStorage(ctx.Runtime(), device.CPU, 0, size, true)
	} else {
		if err := switchDevice(ctx, "create", devType, devIndex); err != nil {
			return nil, err
		}
		s, err = newStorage(ctx.Runtime(), devType, devIndex, size, false)
	}
	if err != nil {
		return nil, fmt.Errorf("create: allocate %d bytes on %s:%d: %w", size, devType, devIndex, err)
	}

	return &Tensor{
		storage: s,
		dtype:   dtype,
		shape:   shape.Clone(),
		strides: shape.ComputeStrides(),
	}, nil
}

// switchDevice moves ctx to t:index, reporting a bad index as an invalid
// argument.
func switchDevice(ctx *device.Context, op string, t device.Type, index int) error {
	err := ctx.SetDevice(t, index)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, device.ErrInvalidDevice):
		return &OpError{Op: op, Kind: ErrInvalidArgument, Detail: err.Error()}
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

// DType returns the element type.
func (t *Tensor) DType() DataType { return t.dtype }

// Shape returns the dimensions. Callers must not modify it.
func (t *Tensor) Shape() Shape { return t.shape }

// Strides returns the per-dimension strides in elements. Callers must not
// modify it.
func (t *Tensor) Strides() []int { return t.strides }

// Offset returns the byte offset of the first element within the storage.
func (t *Tensor) Offset() int { return t.offset }

// NDim returns the number of dimensions.
func (t *Tensor) NDim() int { return len(t.shape) }

// NumElements returns the number of elements; a 0-dim tensor has one.
func (t *Tensor) NumElements() int { return t.shape.NumElements() }

// ElementSize returns the size of one element in bytes.
func (t *Tensor) ElementSize() int { return t.dtype.Size() }

// ByteSize returns NumElements * ElementSize.
func (t *Tensor) ByteSize() int { return t.NumElements() * t.dtype.Size() }

// Storage returns the backing storage, or nil after Release.
func (t *Tensor) Storage() *Storage { return t.storage }

// DeviceType returns the device family of the storage.
func (t *Tensor) DeviceType() device.Type {
	if t.storage == nil {
		return device.CPU
	}
	return t.storage.devType
}

// DeviceIndex returns the device index of the storage.
func (t *Tensor) DeviceIndex() int {
	if t.storage == nil {
		return 0
	}
	return t.storage.devIndex
}

// IsContiguous reports whether the view is dense row-major.
func (t *Tensor) IsContiguous() bool {
	n := len(t.shape)
	if n == 0 {
		return true
	}
	if t.strides[n-1] != 1 {
		return false
	}
	for i := n - 2; i >= 0; i-- {
		if t.strides[i] != t.strides[i+1]*t.shape[i+1] {
			return false
		}
	}
	return true
}

// Data returns the host bytes starting at the view's offset, or nil when the
// storage is not host addressable.
func (t *Tensor) Data() []byte {
	if t.storage == nil {
		return nil
	}
	b := t.storage.Bytes()
	if b == nil {
		return nil
	}
	// An empty slice of an empty tensor may start past the end.
	if t.offset >= len(b) {
		return b[:0]
	}
	return b[t.offset:]
}

// Load copies NumElements*ElementSize bytes from src into the view, starting
// at its offset. src may be longer than needed.
func (t *Tensor) Load(ctx *device.Context, src []byte) error {
	if err := t.checkLive("load"); err != nil {
		return err
	}
	n := t.ByteSize()
	if len(src) < n {
		return Errorf("load", ErrInvalidArgument, "source has %d bytes, tensor needs %d", len(src), n)
	}
	if n == 0 {
		return nil
	}
	if err := switchDevice(ctx, "load", t.storage.devType, t.storage.devIndex); err != nil {
		return err
	}

	kind := device.HostToDevice
	if t.storage.devType == device.CPU {
		kind = device.HostToHost
	}
	if err := ctx.Runtime().MemcpySync(t.storage.buf, t.offset, device.HostBuffer(src), 0, n, kind); err != nil {
		return fmt.Errorf("load: %w", err)
	}
	return nil
}

// LoadFloat32s converts values to the tensor's floating-point dtype and loads
// them. len(values) must equal NumElements.
func (t *Tensor) LoadFloat32s(ctx *device.Context, values []float32) error {
	if len(values) != t.NumElements() {
		return Errorf("load", ErrInvalidArgument, "got %d values for %d elements", len(values), t.NumElements())
	}
	b, err := EncodeFloat32s(t.dtype, values)
	if err != nil {
		return err
	}
	return t.Load(ctx, b)
}

// Float32s returns the elements of a contiguous host tensor as float32.
func (t *Tensor) Float32s() ([]float32, error) {
	data, err := t.hostContiguous("float32s")
	if err != nil {
		return nil, err
	}
	return DecodeFloat32s(t.dtype, data)
}

// Int64s returns a typed view of a contiguous host Int64 tensor. The slice
// aliases the storage.
func (t *Tensor) Int64s() ([]int64, error) {
	if t.dtype != Int64 {
		return nil, Errorf("int64s", ErrDTypeMismatch, "tensor is %s", t.dtype)
	}
	if _, err := t.hostContiguous("int64s"); err != nil {
		return nil, err
	}
	return Elements[int64](t)[:t.NumElements()], nil
}

func (t *Tensor) hostContiguous(op string) ([]byte, error) {
	if err := t.checkLive(op); err != nil {
		return nil, err
	}
	if !t.IsContiguous() {
		return nil, Errorf(op, ErrInvalidArgument, "tensor is not contiguous")
	}
	data := t.Data()
	if data == nil {
		return nil, Errorf(op, ErrInvalidArgument, "%s memory is not host addressable", t.storage.devType)
	}
	return data[:t.ByteSize()], nil
}

// Elements reinterprets the host memory from the view's offset to the end of
// the storage as []T. Index it with the view's strides. It returns nil for
// device memory or an empty remainder.
func Elements[T any](t *Tensor) []T {
	data := t.Data()
	var zero T
	n := len(data) / int(unsafe.Sizeof(zero))
	if n == 0 {
		return nil
	}
	//nolint:gosec // offsets are multiples of the element size
	return unsafe.Slice((*T)(unsafe.Pointer(&data[0])), n)
}

// Permute returns a view with dimensions reordered so that dimension i of the
// result is dimension order[i] of t.
func (t *Tensor) Permute(order ...int) (*Tensor, error) {
	if err := t.checkLive("permute"); err != nil {
		return nil, err
	}
	if len(order) != len(t.shape) {
		return nil, Errorf("permute", ErrInvalidArgument, "order %v has %d axes, tensor has %d", order, len(order), len(t.shape))
	}

	seen := make([]bool, len(order))
	shape := make(Shape, len(order))
	strides := make([]int, len(order))
	for i, axis := range order {
		if axis < 0 || axis >= len(order) {
			return nil, Errorf("permute", ErrInvalidArgument, "axis %d out of range in %v", axis, order)
		}
		if seen[axis] {
			return nil, Errorf("permute", ErrInvalidArgument, "axis %d repeated in %v", axis, order)
		}
		seen[axis] = true
		shape[i] = t.shape[axis]
		strides[i] = t.strides[axis]
	}
	return t.view(shape, strides, t.offset), nil
}

// Slice returns a view of [start, end) along dim.
func (t *Tensor) Slice(dim, start, end int) (*Tensor, error) {
	if err := t.checkLive("slice"); err != nil {
		return nil, err
	}
	if dim < 0 || dim >= len(t.shape) {
		return nil, Errorf("slice", ErrInvalidArgument, "dim %d out of range for %d dims", dim, len(t.shape))
	}
	if start < 0 || start >= end || end > t.shape[dim] {
		return nil, Errorf("slice", ErrInvalidArgument, "range [%d, %d) invalid for dim %d of size %d", start, end, dim, t.shape[dim])
	}

	shape := t.shape.Clone()
	shape[dim] = end - start
	offset := t.offset + start*t.strides[dim]*t.dtype.Size()
	return t.view(shape, append([]int(nil), t.strides...), offset), nil
}

// View reinterprets a contiguous tensor with a new shape of the same size.
func (t *Tensor) View(shape ...int) (*Tensor, error) {
	if err := t.checkLive("view"); err != nil {
		return nil, err
	}
	s := Shape(shape)
	if err := s.Validate(); err != nil {
		return nil, &OpError{Op: "view", Kind: ErrInvalidArgument, Detail: err.Error()}
	}
	if !t.IsContiguous() {
		return nil, Errorf("view", ErrInvalidArgument, "tensor with strides %v is not contiguous", t.strides)
	}
	if s.NumElements() != t.NumElements() {
		return nil, Errorf("view", ErrShapeMismatch, "cannot view %v (%d elements) as %v (%d elements)",
			t.shape, t.NumElements(), s, s.NumElements())
	}
	return t.view(s.Clone(), s.ComputeStrides(), t.offset), nil
}

// Contiguous would return a dense copy of the view.
func (t *Tensor) Contiguous() (*Tensor, error) {
	return nil, &OpError{Op: "contiguous", Kind: ErrUnimplemented}
}

// Reshape would view or copy the tensor into a new shape.
func (t *Tensor) Reshape(shape ...int) (*Tensor, error) {
	return nil, &OpError{Op: "reshape", Kind: ErrUnimplemented}
}

// To would copy the tensor to another device.
func (t *Tensor) To(devType device.Type, devIndex int) (*Tensor, error) {
	return nil, &OpError{Op: "to", Kind: ErrUnimplemented}
}

// Release drops this view's storage reference. Further calls are no-ops.
func (t *Tensor) Release() error {
	s := t.storage
	if s == nil {
		return nil
	}
	t.storage = nil
	return s.Release()
}

// String returns a one-line summary of the view.
func (t *Tensor) String() string {
	return fmt.Sprintf("Tensor(shape=%v, strides=%v, dtype=%s, device=%s:%d)",
		[]int(t.shape), t.strides, t.dtype, t.DeviceType(), t.DeviceIndex())
}

// SameStorage reports whether a and b are views of one Storage.
func SameStorage(a, b *Tensor) bool {
	return a.storage != nil && a.storage == b.storage
}

func (t *Tensor) view(shape Shape, strides []int, offset int) *Tensor {
	t.storage.Retain()
	return &Tensor{
		storage: t.storage,
		dtype:   t.dtype,
		shape:   shape,
		strides: strides,
		offset:  offset,
	}
}

func (t *Tensor) checkLive(op string) error {
	if t.storage == nil {
		return Errorf(op, ErrInvalidArgument, "tensor has been released")
	}
	return nil
}
