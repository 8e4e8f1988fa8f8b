// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package asynccompile defines the collaborator that compiles the kernels embedded in generated programs,
// and the runtime that invokes them, plus Toolchain, a Compiler that builds shared libraries with a local
// C++ compiler.
//
// The lowering itself never compiles nor caches anything: these are separate services that consume the
// generated programs.
package asynccompile

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// Handle of a compiled kernel.
type Handle struct {
	// Method of the async-compile object the program requested (e.g. "ascend").
	Method string

	// Fingerprint of the kernel: the hex SHA-256 of the method and the kernel source.
	Fingerprint string

	// Library is the path to the built shared library.
	Library string

	// Cached is true if the library was already built, and the compiler wasn't called.
	Cached bool

	// Elapsed time of the submission.
	Elapsed time.Duration
}

// Compiler compiles the kernel embedded in a generated program.
type Compiler interface {
	// Submit compiles the kernel of program and blocks until it is ready, or ctx is done.
	Submit(ctx context.Context, program string) (*Handle, error)
}

// Runtime invokes compiled kernels.
type Runtime interface {
	// Invoke calls the kernel's entry point with the data pointers of the inputs, and returns the
	// contents of the outputs.
	Invoke(ctx context.Context, handle *Handle, inputs []uintptr) ([][]byte, error)
}

// Execute submits program to compiler and invokes the resulting kernel with runtime, the way a
// generated call wrapper does.
func Execute(ctx context.Context, compiler Compiler, runtime Runtime, program string, inputs []uintptr) ([][]byte, error) {
	handle, err := compiler.Submit(ctx, program)
	if err != nil {
		return nil, err
	}
	outputs, err := runtime.Invoke(ctx, handle, inputs)
	if err != nil {
		return nil, errors.WithMessagef(err, "invoking %s kernel %s", handle.Method, handle.Fingerprint)
	}
	return outputs, nil
}
