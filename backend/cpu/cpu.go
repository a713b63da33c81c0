// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package cpu

import (
	internalcpu "github.com/born-ml/llaisys/internal/backend/cpu"
	"github.com/born-ml/llaisys/tensor"
)

// Backend is the CPU kernel set.
type Backend = internalcpu.CPUBackend

// Compile-time check that Backend implements tensor.Backend.
var _ tensor.Backend = (*Backend)(nil)

// New creates a new CPU backend.
//
// The operator layer already uses it for CPU tensors. Register it for
// another device family whose memory is host addressable:
//
//	ops.RegisterBackend(myDevice, cpu.New())
func New() *Backend {
	return internalcpu.New()
}
