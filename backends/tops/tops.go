// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package tops lowers traced graphs to Enflame TopsGraph HLIR programs.
//
// The generated compilation unit builds the program with the HLIR builder API
// (`builder::Op tmp2 = builder::Add(tmp0, tmp1);`), and its `compile(graph_path)` entry point saves the
// compiled executable. The host wrapper preallocates one buffer per unique output and passes all data
// pointers to the kernel's `run` entry point.
//
// Configuration options (see backends.ParseOptions):
//
//   - graph_id=<int>: identifier of the graph in the generated code, defaults to 0.
//   - reduce_mean_axes=<axis>+<axis>...: overrides the axes of every mean reduction (e.g. "2+3" for
//     spatial means of NCHW tensors). Off by default, the traced axes are used.
package tops

import (
	"slices"

	"github.com/gomlx/fxlower/backends"
	"github.com/gomlx/fxlower/pkg/codegen"
	"github.com/gomlx/fxlower/pkg/codegen/harness"
	"github.com/gomlx/fxlower/pkg/conversion"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// BackendName to be used in FXLOWER_BACKEND to specify this backend.
const BackendName = "tops"

func init() {
	backends.Register(BackendName, New)
}

// New constructs a new Tops Backend. It panics if the configuration is invalid.
func New(config string) backends.Backend {
	b, err := NewBackend(config)
	if err != nil {
		panic(err)
	}
	return b
}

// NewBackend constructs a new Tops Backend, or returns an error if the configuration is invalid.
func NewBackend(config string) (*Backend, error) {
	options, err := backends.ParseOptions(config)
	if err != nil {
		return nil, err
	}
	if err = options.CheckKnown("graph_id", "reduce_mean_axes"); err != nil {
		return nil, errors.WithMessagef(err, "backend %q", BackendName)
	}
	b := &Backend{registry: newRegistry()}
	if b.options.GraphID, err = options.Int("graph_id", 0); err != nil {
		return nil, err
	}
	if b.reduceMeanAxes, err = options.Ints("reduce_mean_axes"); err != nil {
		return nil, err
	}
	if b.reduceMeanAxes != nil {
		klog.V(1).Infof("tops: overriding the axes of mean reductions with %v", b.reduceMeanAxes)
	}
	return b, nil
}

// Backend implements the backends.Backend interface for Enflame Tops.
type Backend struct {
	options        harness.Options
	registry       *conversion.Registry
	reduceMeanAxes []int
}

var _ backends.Backend = &Backend{}

// Name returns the short name of the backend.
func (b *Backend) Name() string { return BackendName }

// String implements fmt.Stringer.
func (b *Backend) String() string { return BackendName }

// Description is a longer description of the Backend that can be used to pretty-print.
func (b *Backend) Description() string {
	return "Enflame Tops (HLIR builder, C++)"
}

// Capabilities returns information about what is supported by this backend.
func (b *Backend) Capabilities() backends.Capabilities { return Capabilities }

// Registry returns the conversions from traced operators to the IR.
func (b *Backend) Registry() *conversion.Registry { return b.registry }

// Rules returns the rewrite rules applied before the conversion.
func (b *Backend) Rules() []conversion.Rule { return conversion.StandardRules() }

// NewEmitter returns a new code emitter.
func (b *Backend) NewEmitter() codegen.Emitter {
	return &emitter{reduceMeanAxes: slices.Clone(b.reduceMeanAxes)}
}

// DefaultOptions returns the assembly options given in the backend configuration.
func (b *Backend) DefaultOptions() harness.Options { return b.options }
