// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package lower runs the whole lowering pipeline of a traced graph for one backend: validation, the
// backend's rewrite rules, code generation and the assembly of the generated program.
//
// Example:
//
//	backend := backends.NewWithConfig("ascend:graph_id=1")
//	result, err := lower.Compile(backend, g, lower.WithBenchmark())
//	if err != nil { ... }
//	fmt.Println(result.Artifacts.Program)
package lower

import (
	"time"

	"github.com/gomlx/fxlower/backends"
	"github.com/gomlx/fxlower/pkg/codegen"
	"github.com/gomlx/fxlower/pkg/codegen/harness"
	"github.com/gomlx/fxlower/pkg/conversion"
	"github.com/gomlx/fxlower/pkg/fx"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Result of a compilation.
type Result struct {
	// Graph after the backend's rewrite rules. The input graph is not modified.
	Graph *fx.Graph

	// Unit generated from Graph.
	Unit *codegen.Unit

	Artifacts *harness.Artifacts

	// Options used in the assembly.
	Options harness.Options
}

// Option changes the assembly options of a compilation. They are applied in order over the backend's
// DefaultOptions.
type Option func(opts *harness.Options)

// WithGraphID sets the identifier of the graph in the generated code.
func WithGraphID(id int) Option {
	return func(opts *harness.Options) { opts.GraphID = id }
}

// WithBenchmark adds a benchmark main to the generated program.
func WithBenchmark() Option {
	return func(opts *harness.Options) { opts.Benchmark = true }
}

// Compile lowers g with backend and returns the generated artifacts.
//
// Every call uses a new code generation engine, so compiling the same graph twice with the same options
// generates the same text. Errors of a specific node are *ir.NodeError.
func Compile(backend backends.Backend, g *fx.Graph, opts ...Option) (*Result, error) {
	if backend == nil {
		return nil, errors.New("lower.Compile: nil backend")
	}
	if g == nil {
		return nil, errors.New("lower.Compile: nil graph")
	}
	start := time.Now()
	result := &Result{Options: backend.DefaultOptions()}
	for _, opt := range opts {
		opt(&result.Options)
	}
	if err := g.Validate(); err != nil {
		return nil, errors.WithMessagef(err, "invalid graph %q", g.Name)
	}
	var err error
	result.Graph, err = conversion.Rewrite(g, backend.Rules())
	if err != nil {
		return nil, errors.WithMessagef(err, "rewriting graph %q for backend %q", g.Name, backend.Name())
	}
	engine := codegen.NewEngine(backend.Name(), backend.Registry(), backend.NewEmitter())
	result.Unit, err = engine.Run(result.Graph)
	if err != nil {
		return result, errors.WithMessagef(err, "lowering graph %q to backend %q", g.Name, backend.Name())
	}
	result.Artifacts, err = backend.Assemble(result.Unit, result.Options)
	if err != nil {
		return result, err
	}
	klog.V(1).Infof("lower: graph %q (%d nodes, %d after rewrites) compiled for %q in %s", g.Name, g.Len(),
		result.Graph.Len(), backend.Name(), time.Since(start))
	return result, nil
}
