// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package ascend lowers traced graphs to Huawei Ascend Graph Engine (GE) graphs.
//
// The generated compilation unit builds the graph with the GE operator API
// (`auto op2 = op::AddV2("op2").set_input_x1(op0)...`), and its `compile(graph_path)` entry point
// serializes it with the AclgraphBuilder of the Ascend runtime. The host wrapper receives one host
// array per unique output from the compiled kernel.
//
// Configuration options (see backends.ParseOptions):
//
//   - graph_id=<int>: identifier of the graph in the generated code, defaults to 0.
package ascend

import (
	"github.com/gomlx/fxlower/backends"
	"github.com/gomlx/fxlower/pkg/codegen"
	"github.com/gomlx/fxlower/pkg/codegen/harness"
	"github.com/gomlx/fxlower/pkg/conversion"
	"github.com/pkg/errors"
)

// BackendName to be used in FXLOWER_BACKEND to specify this backend.
const BackendName = "ascend"

// Registers New() as the constructor for the "ascend" backend.
func init() {
	backends.Register(BackendName, New)
}

// New constructs a new Ascend Backend. It panics if the configuration is invalid, use backends.NewOrErr
// to get an error instead.
func New(config string) backends.Backend {
	b, err := NewBackend(config)
	if err != nil {
		panic(err)
	}
	return b
}

// NewBackend constructs a new Ascend Backend, or returns an error if the configuration is invalid.
func NewBackend(config string) (*Backend, error) {
	options, err := backends.ParseOptions(config)
	if err != nil {
		return nil, err
	}
	if err = options.CheckKnown("graph_id"); err != nil {
		return nil, errors.WithMessagef(err, "backend %q", BackendName)
	}
	b := &Backend{registry: newRegistry()}
	if b.options.GraphID, err = options.Int("graph_id", 0); err != nil {
		return nil, err
	}
	return b, nil
}

// Backend implements the backends.Backend interface for Ascend.
type Backend struct {
	options  harness.Options
	registry *conversion.Registry
}

// Compile-time check that ascend.Backend implements backends.Backend.
var _ backends.Backend = &Backend{}

// Name returns the short name of the backend.
func (b *Backend) Name() string { return BackendName }

// String implements fmt.Stringer.
func (b *Backend) String() string { return BackendName }

// Description is a longer description of the Backend that can be used to pretty-print.
func (b *Backend) Description() string {
	return "Huawei Ascend (GE graph, C++ operator API)"
}

// Capabilities returns information about what is supported by this backend.
func (b *Backend) Capabilities() backends.Capabilities { return Capabilities }

// Registry returns the conversions from traced operators to the IR.
func (b *Backend) Registry() *conversion.Registry { return b.registry }

// Rules returns the rewrite rules applied before the conversion: Ascend has no native variance.
func (b *Backend) Rules() []conversion.Rule {
	return []conversion.Rule{conversion.VarianceRule, conversion.VarMeanRule}
}

// NewEmitter returns a new code emitter.
func (b *Backend) NewEmitter() codegen.Emitter { return &emitter{} }

// DefaultOptions returns the assembly options given in the backend configuration.
func (b *Backend) DefaultOptions() harness.Options { return b.options }
