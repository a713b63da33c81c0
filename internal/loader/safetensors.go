package loader

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/born-ml/llaisys/internal/device"
	"github.com/born-ml/llaisys/internal/envconfig"
	"github.com/born-ml/llaisys/internal/tensor"
)

// Validation limits.
const (
	MaxHeaderSize  = 100 * 1024 * 1024
	MaxTensorCount = 100_000
)

const metadataKey = "__metadata__"

// SafeTensors dtype names.
var safeTensorsDTypes = map[string]tensor.DataType{
	"BOOL": tensor.Bool,
	"U8":   tensor.Uint8,
	"I8":   tensor.Int8,
	"I16":  tensor.Int16,
	"U16":  tensor.Uint16,
	"I32":  tensor.Int32,
	"U32":  tensor.Uint32,
	"I64":  tensor.Int64,
	"U64":  tensor.Uint64,
	"F16":  tensor.Float16,
	"BF16": tensor.BFloat16,
	"F32":  tensor.Float32,
	"F64":  tensor.Float64,
}

// DTypeName returns the SafeTensors name of dt, or "" if it has none.
func DTypeName(dt tensor.DataType) string {
	for name, t := range safeTensorsDTypes {
		if t == dt {
			return name
		}
	}
	return ""
}

// TensorInfo describes one tensor in a file.
type TensorInfo struct {
	Name   string
	DType  tensor.DataType
	Shape  tensor.Shape
	Offset int64 // relative to the start of the data section
	Size   int64
}

// headerEntry is the JSON form of a tensor entry.
type headerEntry struct {
	DType       string   `json:"dtype"`
	Shape       []int    `json:"shape"`
	DataOffsets [2]int64 `json:"data_offsets"`
}

// File is an open SafeTensors file. Tensor data is read from a read-only
// memory mapping when the platform supports one and with ReadAt otherwise.
// Reads are safe for concurrent use; Close is not.
type File struct {
	file       *os.File
	mapped     []byte
	dataOffset int64
	tensors    map[string]*TensorInfo
	names      []string
	metadata   map[string]string
}

// Open parses and validates the header of the SafeTensors file at path.
func Open(path string) (*File, error) {
	//nolint:gosec // G304: loading a user-named model file is the purpose
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open safetensors: %w", err)
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("open safetensors: %w", err)
	}

	file, err := parse(f, st.Size())
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("open safetensors %s: %w", path, err)
	}
	file.file = f

	if st.Size() > 0 {
		if data, err := mapFile(f, st.Size()); err != nil {
			slog.Debug("loader: mmap unavailable, using reads", "path", path, "error", err)
		} else {
			file.mapped = data
		}
	}
	return file, nil
}

func parse(r io.Reader, fileSize int64) (*File, error) {
	var headerSize uint64
	if err := binary.Read(r, binary.LittleEndian, &headerSize); err != nil {
		return nil, fmt.Errorf("read header size: %w", err)
	}
	if headerSize > MaxHeaderSize || int64(headerSize) > fileSize-8 {
		return nil, &ValidationError{Kind: ErrHeaderTooLarge, Details: fmt.Sprintf("%d bytes in a %d byte file", headerSize, fileSize)}
	}

	raw := make([]byte, headerSize)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	var entries map[string]json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse header: %w", err)
	}
	if len(entries) > MaxTensorCount {
		return nil, &ValidationError{Kind: ErrTooManyTensors, Details: fmt.Sprintf("got %d, max %d", len(entries), MaxTensorCount)}
	}

	file := &File{
		dataOffset: 8 + int64(headerSize),
		tensors:    make(map[string]*TensorInfo, len(entries)),
	}
	for name, msg := range entries {
		if name == metadataKey {
			if err := json.Unmarshal(msg, &file.metadata); err != nil {
				return nil, fmt.Errorf("parse metadata: %w", err)
			}
			continue
		}

		var e headerEntry
		if err := json.Unmarshal(msg, &e); err != nil {
			return nil, fmt.Errorf("parse tensor %q: %w", name, err)
		}
		info, err := newTensorInfo(name, e)
		if err != nil {
			return nil, err
		}
		file.tensors[name] = info
		file.names = append(file.names, name)
	}
	slices.Sort(file.names)

	if err := file.validateOffsets(fileSize - file.dataOffset); err != nil {
		return nil, err
	}
	return file, nil
}

func newTensorInfo(name string, e headerEntry) (*TensorInfo, error) {
	dt, ok := safeTensorsDTypes[e.DType]
	if !ok {
		return nil, &ValidationError{Kind: ErrUnknownDType, Tensor: name, Details: fmt.Sprintf("dtype %q", e.DType)}
	}
	shape := tensor.Shape(e.Shape)
	size, err := shape.ByteSize(dt.Size())
	if err != nil {
		return nil, &ValidationError{Kind: ErrSizeMismatch, Tensor: name, Details: err.Error()}
	}

	start, end := e.DataOffsets[0], e.DataOffsets[1]
	if start < 0 || end < start {
		return nil, &ValidationError{Kind: ErrNegativeOffset, Tensor: name, Details: fmt.Sprintf("data offsets [%d, %d]", start, end)}
	}
	if want := int64(size); end-start != want {
		return nil, &ValidationError{
			Kind:    ErrSizeMismatch,
			Tensor:  name,
			Details: fmt.Sprintf("%s%v needs %d bytes, range holds %d", e.DType, e.Shape, want, end-start),
		}
	}

	return &TensorInfo{Name: name, DType: dt, Shape: shape, Offset: start, Size: end - start}, nil
}

// validateOffsets rejects byte ranges that overlap or run past the data
// section.
func (f *File) validateOffsets(dataSize int64) error {
	sorted := make([]*TensorInfo, 0, len(f.tensors))
	for _, name := range f.names {
		sorted = append(sorted, f.tensors[name])
	}
	slices.SortStableFunc(sorted, func(a, b *TensorInfo) int {
		switch {
		case a.Offset < b.Offset:
			return -1
		case a.Offset > b.Offset:
			return 1
		}
		return 0
	})

	for i, t := range sorted {
		if t.Offset+t.Size > dataSize {
			return &ValidationError{
				Kind:    ErrOutOfBounds,
				Tensor:  t.Name,
				Details: fmt.Sprintf("offset %d + size %d > data size %d", t.Offset, t.Size, dataSize),
			}
		}
		if i+1 < len(sorted) {
			next := sorted[i+1]
			if t.Offset+t.Size > next.Offset {
				return &ValidationError{
					Kind:    ErrOffsetOverlap,
					Tensor:  t.Name,
					Tensor2: next.Name,
					Details: fmt.Sprintf("regions [%d, %d) and [%d, %d) overlap", t.Offset, t.Offset+t.Size, next.Offset, next.Offset+next.Size),
				}
			}
		}
	}
	return nil
}

// Close unmaps and closes the underlying file.
func (f *File) Close() error {
	if f.file == nil {
		return nil
	}
	var err error
	if f.mapped != nil {
		err = unmapFile(f.mapped)
		f.mapped = nil
	}
	if closeErr := f.file.Close(); err == nil {
		err = closeErr
	}
	f.file = nil
	return err
}

// Names returns the tensor names in ascending order.
func (f *File) Names() []string {
	return slices.Clone(f.names)
}

// Info describes the named tensor.
func (f *File) Info(name string) (TensorInfo, error) {
	info, ok := f.tensors[name]
	if !ok {
		return TensorInfo{}, fmt.Errorf("%w: %q", ErrTensorNotFound, name)
	}
	return *info, nil
}

// Metadata returns the free-form __metadata__ map, which may be nil.
func (f *File) Metadata() map[string]string {
	return f.metadata
}

// Read returns a copy of the stored bytes of the named tensor.
func (f *File) Read(name string) ([]byte, error) {
	data, err := f.view(name)
	if err != nil {
		return nil, err
	}
	if f.mapped != nil {
		data = slices.Clone(data)
	}
	return data, nil
}

// view returns the stored bytes of the named tensor. When the file is mapped
// the result aliases the mapping and must not be written or kept past Close.
func (f *File) view(name string) ([]byte, error) {
	info, err := f.Info(name)
	if err != nil {
		return nil, err
	}
	if f.file == nil {
		return nil, fmt.Errorf("read tensor %q: %w", name, os.ErrClosed)
	}
	if f.mapped != nil {
		start := f.dataOffset + info.Offset
		return f.mapped[start : start+info.Size : start+info.Size], nil
	}
	data := make([]byte, info.Size)
	if _, err := f.file.ReadAt(data, f.dataOffset+info.Offset); err != nil {
		return nil, fmt.Errorf("read tensor %q: %w", name, err)
	}
	return data, nil
}

// Options controls where and how Load places a tensor.
type Options struct {
	// Device is the target device as "type[:index]", e.g. "cpu" or
	// "nvidia:1". Empty means LLAISYS_DEVICE.
	Device string

	// DType, when set to a floating-point type, converts floating-point
	// tensors to it on the host before upload. The zero value keeps the
	// stored type.
	DType tensor.DataType
}

// Load reads the named tensor into a new tensor on the device chosen by
// opts.
func (f *File) Load(ctx *device.Context, name string, opts Options) (*tensor.Tensor, error) {
	info, err := f.Info(name)
	if err != nil {
		return nil, err
	}

	spec := opts.Device
	if spec == "" {
		spec = envconfig.Device()
	}
	devType, devIndex, err := device.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("load %q: %w", name, err)
	}

	data, err := f.view(name)
	if err != nil {
		return nil, err
	}

	dt := info.DType
	if opts.DType != 0 && opts.DType != dt {
		if data, err = Convert(data, dt, opts.DType); err != nil {
			return nil, fmt.Errorf("load %q: %w", name, err)
		}
		dt = opts.DType
	}

	t, err := tensor.Create(ctx, info.Shape, dt, devType, devIndex)
	if err != nil {
		return nil, fmt.Errorf("load %q: %w", name, err)
	}
	if err := t.Load(ctx, data); err != nil {
		_ = t.Release()
		return nil, fmt.Errorf("load %q: %w", name, err)
	}

	slog.Debug("loader: loaded tensor", "name", name, "dtype", dt, "shape", []int(info.Shape), "device", spec)
	return t, nil
}

// Convert re-encodes floating-point data of type from as type to.
func Convert(data []byte, from, to tensor.DataType) ([]byte, error) {
	if from == to {
		return data, nil
	}
	if !from.IsFloat() || !to.IsFloat() {
		return nil, fmt.Errorf("%w: cannot convert %s to %s", tensor.ErrUnsupportedDType, from, to)
	}
	values, err := tensor.DecodeFloat32s(from, data)
	if err != nil {
		return nil, err
	}
	return tensor.EncodeFloat32s(to, values)
}
