package tensor

// Backend executes operator kernels for one device family.
//
// The operator layer validates device placement, dtypes and shapes before
// calling a Backend, so kernels may assume well-formed operands. A kernel
// still returns ErrUnsupportedDType for element types it does not implement.
//
// Implementations:
//   - CPU: pure Go, generic over float32, float16 and bfloat16
type Backend interface {
	// Name identifies the backend in logs and errors.
	Name() string

	// Embedding copies weight rows selected by index into out.
	Embedding(out, index, weight *Tensor) error

	// Linear computes out = in · weightᵀ + bias. bias may be nil.
	Linear(out, in, weight, bias *Tensor) error

	// RMSNorm normalizes each row of in by its root mean square and scales
	// it by weight.
	RMSNorm(out, in, weight *Tensor, eps float32) error

	// RoPE applies rotary position embeddings for the positions in posIDs.
	RoPE(out, in, posIDs *Tensor, theta float32) error

	// SelfAttention computes causal scaled dot-product attention with
	// grouped key/value heads.
	SelfAttention(attnVal, q, k, v *Tensor, scale float32) error

	// SwiGLU computes out = up · gate · sigmoid(gate).
	SwiGLU(out, gate, up *Tensor) error

	// Argmax writes the index and value of the first maximum of vals.
	Argmax(maxIdx, maxVal, vals *Tensor) error
}
