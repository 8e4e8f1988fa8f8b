// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package notimplemented implements a backends.Backend that converts no operator: every call node fails
// with ir.ErrUnsupportedOperator, and every IR operator given directly to its emitter fails with
// ir.ErrUnknownEmitter.
//
// Graphs with only inputs and outputs still lower, which makes it useful to test the pipeline and to
// bootstrap new backend implementations: embed Backend and override what is implemented.
package notimplemented

import (
	"github.com/gomlx/fxlower/backends"
	"github.com/gomlx/fxlower/pkg/codegen"
	"github.com/gomlx/fxlower/pkg/codegen/harness"
	"github.com/gomlx/fxlower/pkg/conversion"
	"github.com/gomlx/fxlower/pkg/core/dtypes"
	"github.com/gomlx/fxlower/pkg/ir"
	"github.com/pkg/errors"
)

// BackendName of the mock backend.
const BackendName = "notimplemented"

// NotImplementedError is returned by the emitter for every operator.
//
// It doesn't contain a stack, attach one with errors.Wrapf(NotImplementedError, "...") when using it.
var NotImplementedError = ir.ErrUnknownEmitter

// New returns a new mock Backend. The configuration is ignored.
//
// The backend is not registered: use it directly.
func New(_ string) backends.Backend { return &Backend{} }

// Backend is a dummy backend that can be embedded to create mock backends.
type Backend struct {
	// GraphID returned in the DefaultOptions.
	GraphID int
}

var _ backends.Backend = &Backend{}

// Name returns the short name of the backend.
func (b *Backend) Name() string { return BackendName }

// String returns the same as Name.
func (b *Backend) String() string { return b.Name() }

// Description is a longer description of the Backend.
func (b *Backend) Description() string {
	return "Not Implemented Backend (mock backend for testing)"
}

// Capabilities returns empty capabilities.
func (b *Backend) Capabilities() backends.Capabilities {
	return backends.Capabilities{
		Operations: make(map[ir.OpType]bool),
		DTypes:     make(map[dtypes.DType]bool),
	}
}

// Registry returns an empty conversion registry.
func (b *Backend) Registry() *conversion.Registry { return conversion.NewRegistry(BackendName) }

// Rules returns no rules.
func (b *Backend) Rules() []conversion.Rule { return nil }

// NewEmitter returns an emitter that declares inputs as comments and fails for any operator.
func (b *Backend) NewEmitter() codegen.Emitter { return Emitter{} }

// DefaultOptions implements backends.Backend.
func (b *Backend) DefaultOptions() harness.Options { return harness.Options{GraphID: b.GraphID} }

// Assemble returns the generated body as the kernel, with no host wrapper.
func (b *Backend) Assemble(unit *codegen.Unit, _ harness.Options) (*harness.Artifacts, error) {
	if unit == nil {
		return nil, errors.Errorf("backend %q: nil compilation unit", BackendName)
	}
	kernel := unit.Body.String()
	return &harness.Artifacts{Kernel: kernel, Program: kernel}, nil
}

// Emitter implements codegen.Emitter, failing for every operator.
type Emitter struct{}

var _ codegen.Emitter = Emitter{}

// SymbolPrefix implements codegen.Emitter.
func (Emitter) SymbolPrefix() string { return "v" }

// Literals implements codegen.Emitter.
func (Emitter) Literals() *codegen.Renderer { return codegen.PythonRenderer }

// EmitInput writes a comment with the input metadata.
func (Emitter) EmitInput(f *codegen.Frame) error {
	f.Code.Linef("# %s: %s", f.Symbol(), f.Node().Meta)
	return nil
}

// Emit returns NotImplementedError for every operator.
func (Emitter) Emit(_ *codegen.Frame, op ir.Op) error {
	return errors.Wrapf(NotImplementedError, "backend %q: %s", BackendName, op.Type())
}
