// Package loader reads model weights stored in the SafeTensors format into
// tensors on any registered device, and writes host tensors back out.
//
// A SafeTensors file is an 8-byte little-endian header length, a JSON header
// describing every tensor (dtype, shape and byte range), and the raw tensor
// bytes. Open parses and validates the header; tensor bytes are read on
// demand.
//
// Example:
//
//	f, err := loader.Open("model.safetensors")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer f.Close()
//
//	ctx := device.NewContext()
//	w, err := f.Load(ctx, "model.embed_tokens.weight", loader.Options{DType: tensor.Float32})
package loader
