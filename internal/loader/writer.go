package loader

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/born-ml/llaisys/internal/tensor"
)

// Write encodes tensors and metadata as a SafeTensors stream. Tensors must be
// contiguous host tensors; they are laid out in ascending name order.
func Write(w io.Writer, tensors map[string]*tensor.Tensor, metadata map[string]string) error {
	names := make([]string, 0, len(tensors))
	for name := range tensors {
		names = append(names, name)
	}
	slices.Sort(names)

	header := make(map[string]any, len(tensors)+1)
	if len(metadata) > 0 {
		header[metadataKey] = metadata
	}

	var offset int64
	for _, name := range names {
		t := tensors[name]
		dtype := DTypeName(t.DType())
		if dtype == "" {
			return fmt.Errorf("write %q: %w: %s", name, ErrUnknownDType, t.DType())
		}
		if t.Data() == nil || !t.IsContiguous() {
			return fmt.Errorf("write %q: %w", name, ErrNotHostTensor)
		}

		size := int64(t.ByteSize())
		header[name] = headerEntry{
			DType:       dtype,
			Shape:       append([]int{}, t.Shape()...),
			DataOffsets: [2]int64{offset, offset + size},
		}
		offset += size
	}

	raw, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("marshal header: %w", err)
	}

	bw := bufio.NewWriter(w)
	if err := binary.Write(bw, binary.LittleEndian, uint64(len(raw))); err != nil {
		return fmt.Errorf("write header size: %w", err)
	}
	if _, err := bw.Write(raw); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, name := range names {
		t := tensors[name]
		if _, err := bw.Write(t.Data()[:t.ByteSize()]); err != nil {
			return fmt.Errorf("write tensor %q: %w", name, err)
		}
	}
	return bw.Flush()
}

// WriteFile writes tensors and metadata to a new SafeTensors file at path.
func WriteFile(path string, tensors map[string]*tensor.Tensor, metadata map[string]string) (err error) {
	//nolint:gosec // G304: the output path is chosen by the caller
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return Write(f, tensors, metadata)
}
