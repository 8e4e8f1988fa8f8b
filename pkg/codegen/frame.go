// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package codegen

import (
	"github.com/gomlx/fxlower/pkg/core/dtypes"
	"github.com/gomlx/fxlower/pkg/fx"
	"github.com/gomlx/fxlower/pkg/ir"
	"github.com/pkg/errors"
)

// Frame is the context given to an Emitter for one node: it resolves the node's arguments to symbols or
// literals and collects the emitted code.
//
// Methods that can't resolve what they are asked for panic with an error (e.g. wrapping
// ir.ErrUnresolvedReference); the Engine converts it to the error returned for the node.
type Frame struct {
	engine *Engine
	node   *fx.Node
	op     ir.Op
	symbol string

	// Code receives the lines emitted for the node. It is appended to the compilation unit only if
	// the emission succeeds.
	Code *Block
}

// Symbol returns the symbol of the node being emitted.
func (f *Frame) Symbol() string { return f.symbol }

// Node returns the node of the traced graph being emitted.
func (f *Frame) Node() *fx.Node { return f.node }

// Op returns the IR operator being emitted, or nil for inputs.
func (f *Frame) Op() ir.Op { return f.op }

// Literals returns the literal renderer of the backend.
func (f *Frame) Literals() *Renderer { return f.engine.emitter.Literals() }

// IsTensor returns whether arg is a tensor (a reference to a node) as opposed to a literal.
func (f *Frame) IsTensor(arg fx.Argument) bool { return arg.IsRef() }

// SymbolOf returns the symbol of the node producing the referenced tensor.
// It panics with ir.ErrUnresolvedReference if the node wasn't visited yet.
func (f *Frame) SymbolOf(node *fx.Node) string {
	symbol, found := f.engine.names.Lookup(node)
	if !found || node.Kind == fx.Output {
		panic(errors.Wrapf(ir.ErrUnresolvedReference, "%q referenced by %q", node.Name, f.node.Name))
	}
	return symbol
}

// Ref resolves an argument to source text: the producer's symbol for references, the rendered literal
// otherwise. Float literals are rounded to the dtype given by ScalarDType.
func (f *Frame) Ref(arg fx.Argument) string {
	if arg.IsRef() {
		return f.SymbolOf(arg.Node())
	}
	return f.Literal(arg, ScalarDType(f))
}

// Refs resolves each of the arguments with Ref.
func (f *Frame) Refs(args ...fx.Argument) []string {
	refs := make([]string, len(args))
	for ii, arg := range args {
		refs[ii] = f.Ref(arg)
	}
	return refs
}

// Literal renders a literal argument with float values rounded to dtype. It panics for references.
func (f *Frame) Literal(arg fx.Argument, dtype dtypes.DType) string {
	text, err := f.Literals().Literal(arg, dtype)
	if err != nil {
		panic(err)
	}
	return text
}

// Meta returns the metadata of the node being emitted.
// It panics with ir.ErrMetadataMissing if the node has none.
func (f *Frame) Meta() *fx.TensorMeta {
	if f.node.Meta == nil {
		panic(errors.Wrapf(ir.ErrMetadataMissing, "node %q", f.node.Name))
	}
	return f.node.Meta
}

// MetaOf returns the metadata of the referenced tensor.
// It panics with ir.ErrMetadataMissing if the producer has none, or if arg is not a reference.
func (f *Frame) MetaOf(arg fx.Argument) *fx.TensorMeta {
	node := arg.Node()
	if node == nil {
		panic(errors.Wrapf(ir.ErrMetadataMissing, "literal %s used as a tensor by %q", arg, f.node.Name))
	}
	if node.Meta == nil {
		panic(errors.Wrapf(ir.ErrMetadataMissing, "node %q referenced by %q", node.Name, f.node.Name))
	}
	return node.Meta
}

// TupleMeta returns the metadata of the i-th output of the node being emitted, for multi-output operators.
func (f *Frame) TupleMeta(i int) *fx.TensorMeta {
	if i < 0 || i >= len(f.node.TupleMeta) || f.node.TupleMeta[i] == nil {
		panic(errors.Wrapf(ir.ErrMetadataMissing, "output %d of node %q", i, f.node.Name))
	}
	return f.node.TupleMeta[i]
}

// Local returns a new helper symbol scoped to the node, e.g. "op3_scalar".
func (f *Frame) Local(role string) string {
	return f.engine.names.Local(f.symbol, role)
}

// Alias binds the node to the symbol of the tensor referenced by arg, for operators that emit no code
// of their own.
func (f *Frame) Alias(arg fx.Argument) {
	if !arg.IsRef() {
		panic(errors.Errorf("node %q can't alias literal %s", f.node.Name, arg))
	}
	f.symbol = f.SymbolOf(arg.Node())
	f.engine.names.Alias(f.node, f.symbol)
}
