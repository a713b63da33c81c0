package ops

import (
	"github.com/born-ml/llaisys/internal/tensor"
)

// operand is a named tensor argument.
type operand struct {
	name string
	t    *tensor.Tensor
}

func arg(name string, t *tensor.Tensor) operand { return operand{name, t} }

// checkLive rejects nil and released operands.
func checkLive(op string, args ...operand) error {
	for _, a := range args {
		if a.t == nil || a.t.Storage() == nil {
			return tensor.Errorf(op, tensor.ErrInvalidArgument, "%s is nil or released", a.name)
		}
	}
	return nil
}

// checkSameDevice requires every operand on the first operand's device.
func checkSameDevice(op string, args ...operand) error {
	first := args[0]
	for _, a := range args[1:] {
		if a.t.DeviceType() != first.t.DeviceType() || a.t.DeviceIndex() != first.t.DeviceIndex() {
			return tensor.Errorf(op, tensor.ErrDeviceMismatch, "%s is on %s:%d, %s is on %s:%d",
				first.name, first.t.DeviceType(), first.t.DeviceIndex(), a.name, a.t.DeviceType(), a.t.DeviceIndex())
		}
	}
	return nil
}

// checkSameDType requires every operand to have the first operand's dtype.
func checkSameDType(op string, args ...operand) error {
	first := args[0]
	for _, a := range args[1:] {
		if a.t.DType() != first.t.DType() {
			return tensor.Errorf(op, tensor.ErrDTypeMismatch, "%s is %s, %s is %s", first.name, first.t.DType(), a.name, a.t.DType())
		}
	}
	return nil
}

func checkDType(op string, a operand, want tensor.DataType) error {
	if a.t.DType() != want {
		return tensor.Errorf(op, tensor.ErrDTypeMismatch, "%s must be %s, got %s", a.name, want, a.t.DType())
	}
	return nil
}

func checkNDim(op string, ndim int, args ...operand) error {
	for _, a := range args {
		if a.t.NDim() != ndim {
			return tensor.Errorf(op, tensor.ErrShapeMismatch, "%s must be %d-D, got shape %v", a.name, ndim, a.t.Shape())
		}
	}
	return nil
}

func checkShape(op string, a operand, want ...int) error {
	if !a.t.Shape().Equal(want) {
		return tensor.Errorf(op, tensor.ErrShapeMismatch, "%s has shape %v, want %v", a.name, a.t.Shape(), want)
	}
	return nil
}

func checkContiguous(op string, args ...operand) error {
	for _, a := range args {
		if !a.t.IsContiguous() {
			return tensor.Errorf(op, tensor.ErrInvalidArgument, "%s must be contiguous, has shape %v strides %v", a.name, a.t.Shape(), a.t.Strides())
		}
	}
	return nil
}
