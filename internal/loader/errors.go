package loader

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	ErrHeaderTooLarge = errors.New("header exceeds maximum size")
	ErrTensorNotFound = errors.New("tensor not found")
	ErrUnknownDType   = errors.New("unknown safetensors dtype")
	ErrNegativeOffset = errors.New("negative offset or size")
	ErrOutOfBounds    = errors.New("tensor extends beyond data section")
	ErrOffsetOverlap  = errors.New("tensor offsets overlap")
	ErrSizeMismatch   = errors.New("byte range does not match dtype and shape")
	ErrTooManyTensors = errors.New("too many tensors in file")
	ErrNotHostTensor  = errors.New("tensor is not a contiguous host tensor")
)

// ValidationError reports a malformed header entry.
type ValidationError struct {
	Kind    error  // One of the Err* values above
	Tensor  string // Primary tensor name involved
	Tensor2 string // Secondary tensor name (for overlap errors)
	Details string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Tensor2 != "" {
		return fmt.Sprintf("%v: tensors %q and %q: %s", e.Kind, e.Tensor, e.Tensor2, e.Details)
	}
	if e.Tensor != "" {
		return fmt.Sprintf("%v: tensor %q: %s", e.Kind, e.Tensor, e.Details)
	}
	return fmt.Sprintf("%v: %s", e.Kind, e.Details)
}

// Unwrap returns the error kind.
func (e *ValidationError) Unwrap() error { return e.Kind }
