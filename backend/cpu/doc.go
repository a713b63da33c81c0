// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides the pure Go CPU kernels.
//
// # Overview
//
// Every kernel is generic over float32, float16 and bfloat16 storage. Values
// are widened to float32 for arithmetic and narrowed on write; the RMS norm
// sum of squares and the attention dot products and softmax denominator
// accumulate in float64. Kernels are single-threaded and deterministic.
package cpu
