// Package loader reads SafeTensors model weights into tensors.
//
// Example usage:
//
//	import (
//	    "github.com/born-ml/llaisys/device"
//	    "github.com/born-ml/llaisys/loader"
//	)
//
//	f, err := loader.Open("path/to/model.safetensors")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer f.Close()
//
//	ctx := device.NewContext()
//	for _, name := range f.Names() {
//	    t, err := f.Load(ctx, name, loader.Options{Device: "cpu"})
//	    ...
//	}
package loader

import (
	"io"

	"github.com/born-ml/llaisys/internal/loader"
	"github.com/born-ml/llaisys/internal/tensor"
)

// File is an open SafeTensors file.
type File = loader.File

// TensorInfo describes one tensor in a file.
type TensorInfo = loader.TensorInfo

// Options controls where and how File.Load places a tensor.
type Options = loader.Options

// ValidationError reports a malformed header entry.
type ValidationError = loader.ValidationError

// Errors.
var (
	ErrHeaderTooLarge = loader.ErrHeaderTooLarge
	ErrTensorNotFound = loader.ErrTensorNotFound
	ErrUnknownDType   = loader.ErrUnknownDType
	ErrNegativeOffset = loader.ErrNegativeOffset
	ErrOutOfBounds    = loader.ErrOutOfBounds
	ErrOffsetOverlap  = loader.ErrOffsetOverlap
	ErrSizeMismatch   = loader.ErrSizeMismatch
	ErrTooManyTensors = loader.ErrTooManyTensors
	ErrNotHostTensor  = loader.ErrNotHostTensor
)

// Open parses and validates the header of the SafeTensors file at path.
func Open(path string) (*File, error) {
	return loader.Open(path)
}

// Write encodes contiguous host tensors as a SafeTensors stream.
func Write(w io.Writer, tensors map[string]*tensor.Tensor, metadata map[string]string) error {
	return loader.Write(w, tensors, metadata)
}

// WriteFile writes contiguous host tensors to a new SafeTensors file.
func WriteFile(path string, tensors map[string]*tensor.Tensor, metadata map[string]string) error {
	return loader.WriteFile(path, tensors, metadata)
}
