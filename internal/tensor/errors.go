package tensor

import (
	"errors"
	"fmt"

	"github.com/born-ml/llaisys/internal/device"
)

// Error kinds. Callers match them with errors.Is.
//
// ErrInvalidArgument, ErrShapeMismatch, ErrDTypeMismatch and
// ErrDeviceMismatch are contract violations: the request itself is wrong.
// ErrUnsupportedDType and ErrUnsupportedDevice mean the request is well
// formed but no implementation exists for that combination.
// ErrUnimplemented marks paths that are specified but not built yet.
var (
	ErrContractViolation = errors.New("contract violation")
	ErrInvalidArgument   = &kindError{msg: "invalid argument", contract: true}
	ErrShapeMismatch     = &kindError{msg: "shape mismatch", contract: true}
	ErrDTypeMismatch     = &kindError{msg: "dtype mismatch", contract: true}
	ErrDeviceMismatch    = &kindError{msg: "device mismatch", contract: true}
	ErrUnsupportedDType  = errors.New("unsupported dtype")
	ErrUnsupportedDevice = device.ErrUnsupportedDevice
	ErrUnimplemented     = errors.New("not implemented")
)

// kindError is a sentinel that also matches ErrContractViolation when it
// describes a malformed request.
type kindError struct {
	msg      string
	contract bool
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Is(target error) bool {
	return e.contract && target == ErrContractViolation
}

// OpError reports a failed operator or tensor call.
type OpError struct {
	Op     string // Operator or method name, e.g. "linear" or "slice"
	Kind   error  // One of the Err* kinds
	Detail string // The violated constraint with the offending values
}

// Error implements the error interface.
func (e *OpError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %s", e.Op, e.Kind, e.Detail)
}

// Unwrap returns the error kind.
func (e *OpError) Unwrap() error { return e.Kind }

// Errorf builds an OpError for op with a formatted detail.
func Errorf(op string, kind error, format string, args ...any) error {
	return &OpError{Op: op, Kind: kind, Detail: fmt.Sprintf(format, args...)}
}
