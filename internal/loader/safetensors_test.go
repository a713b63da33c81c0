package loader

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/llaisys/internal/device"
	"github.com/born-ml/llaisys/internal/device/devicetest"
	"github.com/born-ml/llaisys/internal/tensor"
)

func hostTensor(t *testing.T, ctx *device.Context, dt tensor.DataType, shape tensor.Shape, values []float32) *tensor.Tensor {
	t.Helper()
	x, err := tensor.Create(ctx, shape, dt, device.CPU, 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = x.Release() })
	require.NoError(t, x.LoadFloat32s(ctx, values))
	return x
}

// writeTestFile writes weight [2, 3] F32 and bias [3] BF16.
func writeTestFile(t *testing.T) string {
	t.Helper()
	ctx := device.NewContext()
	path := filepath.Join(t.TempDir(), "model.safetensors")

	err := WriteFile(path, map[string]*tensor.Tensor{
		"weight": hostTensor(t, ctx, tensor.Float32, tensor.Shape{2, 3}, []float32{1, 2, 3, 4, 5, 6}),
		"bias":   hostTensor(t, ctx, tensor.BFloat16, tensor.Shape{3}, []float32{0.5, -1, 2}),
	}, map[string]string{"format": "pt"})
	require.NoError(t, err)
	return path
}

// writeRawFile writes a file from a hand-built header and data section.
func writeRawFile(t *testing.T, header map[string]any, data []byte) string {
	t.Helper()
	raw, err := json.Marshal(header)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint64(len(raw))))
	buf.Write(raw)
	buf.Write(data)

	path := filepath.Join(t.TempDir(), "raw.safetensors")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
	return path
}

func TestOpen(t *testing.T) {
	f, err := Open(writeTestFile(t))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"bias", "weight"}, f.Names())
	assert.Equal(t, map[string]string{"format": "pt"}, f.Metadata())

	info, err := f.Info("weight")
	require.NoError(t, err)
	assert.Equal(t, tensor.Float32, info.DType)
	assert.Equal(t, tensor.Shape{2, 3}, info.Shape)
	assert.Equal(t, int64(6), info.Offset, "bias sorts first and takes 6 bytes")
	assert.Equal(t, int64(24), info.Size)

	_, err = f.Info("missing")
	assert.ErrorIs(t, err, ErrTensorNotFound)
}

func TestRead_ReturnsCopy(t *testing.T) {
	f, err := Open(writeTestFile(t))
	require.NoError(t, err)

	first, err := f.Read("weight")
	require.NoError(t, err)
	require.Len(t, first, 24)
	want := bytes.Clone(first)
	clear(first)

	second, err := f.Read("weight")
	require.NoError(t, err)
	assert.Equal(t, want, second)

	require.NoError(t, f.Close())
	require.NoError(t, f.Close())
	_, err = f.Read("weight")
	assert.ErrorIs(t, err, os.ErrClosed)
}

func TestLoad_CPU(t *testing.T) {
	f, err := Open(writeTestFile(t))
	require.NoError(t, err)
	defer f.Close()
	ctx := device.NewContext()

	w, err := f.Load(ctx, "weight", Options{Device: "cpu"})
	require.NoError(t, err)
	defer w.Release()

	got, err := w.Float32s()
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3, 4, 5, 6}, got)

	b, err := f.Load(ctx, "bias", Options{Device: "cpu"})
	require.NoError(t, err)
	defer b.Release()
	assert.Equal(t, tensor.BFloat16, b.DType())

	_, err = f.Load(ctx, "missing", Options{})
	assert.ErrorIs(t, err, ErrTensorNotFound)
}

func TestLoad_ConvertsDType(t *testing.T) {
	f, err := Open(writeTestFile(t))
	require.NoError(t, err)
	defer f.Close()
	ctx := device.NewContext()

	for _, dt := range []tensor.DataType{tensor.Float16, tensor.BFloat16, tensor.Float32} {
		t.Run(dt.String(), func(t *testing.T) {
			b, err := f.Load(ctx, "bias", Options{Device: "cpu", DType: dt})
			require.NoError(t, err)
			defer b.Release()

			assert.Equal(t, dt, b.DType())
			got, err := b.Float32s()
			require.NoError(t, err)
			assert.Equal(t, []float32{0.5, -1, 2}, got)
		})
	}

	_, err = f.Load(ctx, "bias", Options{Device: "cpu", DType: tensor.Int32})
	assert.ErrorIs(t, err, tensor.ErrUnsupportedDType)
}

func TestLoad_Device(t *testing.T) {
	fake := devicetest.Register(device.NVIDIA, 2)
	fake.Reset()

	f, err := Open(writeTestFile(t))
	require.NoError(t, err)
	defer f.Close()
	ctx := device.NewContext()

	w, err := f.Load(ctx, "weight", Options{Device: "nvidia:1"})
	require.NoError(t, err)
	defer w.Release()

	assert.Equal(t, device.NVIDIA, w.DeviceType())
	assert.Equal(t, 1, w.DeviceIndex())
	assert.Equal(t, []device.MemcpyKind{device.HostToDevice}, fake.Copies)

	t.Setenv("LLAISYS_DEVICE", "cuda:0")
	b, err := f.Load(ctx, "bias", Options{})
	require.NoError(t, err)
	defer b.Release()
	assert.Equal(t, device.NVIDIA, b.DeviceType())
	assert.Equal(t, 0, b.DeviceIndex())

	_, err = f.Load(ctx, "bias", Options{Device: "tpu"})
	assert.ErrorIs(t, err, device.ErrUnsupportedDevice)
}

func TestOpen_Malformed(t *testing.T) {
	f32 := func(shape []int, start, end int64) map[string]any {
		return map[string]any{"dtype": "F32", "shape": shape, "data_offsets": []int64{start, end}}
	}

	tests := []struct {
		name   string
		header map[string]any
		data   int
		kind   error
	}{
		{"size mismatch", map[string]any{"a": f32([]int{2}, 0, 4)}, 8, ErrSizeMismatch},
		{"out of bounds", map[string]any{"a": f32([]int{2}, 0, 8)}, 4, ErrOutOfBounds},
		{"overlap", map[string]any{"a": f32([]int{2}, 0, 8), "b": f32([]int{1}, 4, 8)}, 8, ErrOffsetOverlap},
		{"negative", map[string]any{"a": f32([]int{1}, 4, 0)}, 8, ErrNegativeOffset},
		{"element count overflow", map[string]any{"a": f32([]int{1 << 62, 4}, 0, 0)}, 0, ErrSizeMismatch},
		{"byte size overflow", map[string]any{"a": f32([]int{1 << 62}, 0, 0)}, 0, ErrSizeMismatch},
		{"negative dim", map[string]any{"a": f32([]int{-1}, 0, 0)}, 0, ErrSizeMismatch},
		{"unknown dtype", map[string]any{"a": map[string]any{"dtype": "Q4", "shape": []int{1}, "data_offsets": []int64{0, 1}}}, 1, ErrUnknownDType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(writeRawFile(t, tt.header, make([]byte, tt.data)))
			assert.ErrorIs(t, err, tt.kind)
		})
	}
}

func TestOpen_BadHeader(t *testing.T) {
	dir := t.TempDir()

	huge := filepath.Join(dir, "huge.safetensors")
	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint64(1<<20)))
	buf.WriteString("{}")
	require.NoError(t, os.WriteFile(huge, buf.Bytes(), 0o600))
	_, err := Open(huge)
	assert.ErrorIs(t, err, ErrHeaderTooLarge)

	short := filepath.Join(dir, "short.safetensors")
	require.NoError(t, os.WriteFile(short, []byte{1, 2}, 0o600))
	_, err = Open(short)
	assert.Error(t, err)

	_, err = Open(filepath.Join(dir, "missing.safetensors"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestWrite_RejectsDeviceTensors(t *testing.T) {
	devicetest.Register(device.NVIDIA, 2)
	ctx := device.NewContext()

	x, err := tensor.Create(ctx, tensor.Shape{2}, tensor.Float32, device.NVIDIA, 0)
	require.NoError(t, err)
	defer x.Release()

	err = Write(&bytes.Buffer{}, map[string]*tensor.Tensor{"x": x}, nil)
	assert.ErrorIs(t, err, ErrNotHostTensor)
}

func TestConvert(t *testing.T) {
	b, err := tensor.EncodeFloat32s(tensor.Float32, []float32{1.5, -3})
	require.NoError(t, err)

	half, err := Convert(b, tensor.Float32, tensor.Float16)
	require.NoError(t, err)
	assert.Len(t, half, 4)

	back, err := Convert(half, tensor.Float16, tensor.Float32)
	require.NoError(t, err)
	assert.Equal(t, b, back)

	_, err = Convert(b, tensor.Int64, tensor.Float32)
	assert.ErrorIs(t, err, tensor.ErrUnsupportedDType)
}
