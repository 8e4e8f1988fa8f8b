// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package codegen walks a traced graph in order and emits, through a backend Emitter, the source text
// that builds the equivalent backend operator graph.
//
// An Engine is created per compilation: it owns the symbol table (Names) and the body Block of the
// generated code, and it records the declared inputs and outputs that the backend assembly needs to
// generate the entry points and the host wrapper.
package codegen

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/fxlower/pkg/conversion"
	"github.com/gomlx/fxlower/pkg/fx"
	"github.com/gomlx/fxlower/pkg/ir"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Emitter generates the code of a backend, one node at a time.
type Emitter interface {
	// SymbolPrefix is prepended to the counter of generated symbols (e.g. "op" for op0, op1, ...).
	SymbolPrefix() string

	// Literals returns the renderer used for literal values.
	Literals() *Renderer

	// EmitInput emits the declaration of a graph input (placeholder node).
	EmitInput(f *Frame) error

	// Emit emits the code of the IR operator converted from the frame's node.
	// Operators the backend has no emitter for must return an error wrapping ir.ErrUnknownEmitter.
	Emit(f *Frame, op ir.Op) error
}

// IndentUnit used by the blocks created by the Engine.
const IndentUnit = "    "

// Input of a compilation unit, in call order.
type Input struct {
	Symbol string
	Node   *fx.Node
}

// Output of a compilation unit, in declared order.
type Output struct {
	// Symbol of the tensor, empty if None.
	Symbol string

	// Node producing the value, nil if None.
	Node *fx.Node

	// None marks a missing value: the host wrapper returns None in its position.
	None bool
}

// Unit is the result of the code generation of one graph.
type Unit struct {
	Name string

	// Body holds the code of all inputs and call nodes, in graph order, without indentation.
	Body *Block

	Inputs []Input

	// Outputs are the flattened output values, in declared order, including None and repeated values.
	Outputs []Output

	// UniqueOutputs are the distinct output tensors, by symbol, in first-seen order. Backends register each
	// of them once as a graph output.
	UniqueOutputs []Output
}

// OutputIndex returns the position in UniqueOutputs of the tensor with the given symbol, or -1.
func (u *Unit) OutputIndex(symbol string) int {
	for ii, output := range u.UniqueOutputs {
		if output.Symbol == symbol {
			return ii
		}
	}
	return -1
}

// Engine generates the code of one graph. It is not safe for concurrent use, and it can only be run once:
// create a new Engine for each compilation.
type Engine struct {
	name     string
	registry *conversion.Registry
	emitter  Emitter
	names    *Names
	used     bool
}

// NewEngine creates an engine for the backend with the given conversion registry and emitter.
func NewEngine(name string, registry *conversion.Registry, emitter Emitter) *Engine {
	return &Engine{
		name:     name,
		registry: registry,
		emitter:  emitter,
		names:    NewNames(emitter.SymbolPrefix()),
	}
}

// Names returns the symbol table of the engine.
func (e *Engine) Names() *Names { return e.names }

// Run generates the code for the graph g, visiting its nodes in definition order.
//
// Errors identify the failing node with an *ir.NodeError. The code of a node is added to the unit only
// if its emission succeeds: on failure Run returns, together with the error, the unit generated up to
// the failing node, for diagnostics.
func (e *Engine) Run(g *fx.Graph) (*Unit, error) {
	if e.used {
		return nil, errors.Errorf("codegen.Engine(%s) already used, create a new one for graph %q", e.name, g.Name)
	}
	e.used = true
	unit := &Unit{Name: g.Name, Body: NewBlock(IndentUnit)}
	var sawOutput bool
	for _, node := range g.Nodes() {
		var err error
		switch node.Kind {
		case fx.Placeholder:
			err = e.visitInput(unit, node)
		case fx.CallFunction:
			err = e.visitCall(unit, node)
		case fx.Output:
			if sawOutput {
				err = errors.Errorf("graph %q has more than one output node", g.Name)
			} else {
				err = e.visitOutput(unit, node)
			}
			sawOutput = true
		default:
			err = errors.Errorf("invalid node kind %s", node.Kind)
		}
		if err != nil {
			return unit, ir.WrapNode(err, "", node)
		}
	}
	if !sawOutput {
		return unit, errors.Errorf("graph %q has no output node", g.Name)
	}
	klog.V(1).Infof("codegen %s: graph %q -> %d inputs, %d outputs (%d unique), %d lines", e.name, g.Name,
		len(unit.Inputs), len(unit.Outputs), len(unit.UniqueOutputs), unit.Body.Len())
	return unit, nil
}

// emit runs fn with a new frame for node, converting panics to errors, and splices the frame's code into
// the body if it succeeds.
func (e *Engine) emit(unit *Unit, node *fx.Node, op ir.Op, fn func(f *Frame) error) (*Frame, error) {
	f := &Frame{engine: e, node: node, op: op, symbol: e.names.Assign(node), Code: NewBlock(IndentUnit)}
	err := exceptions.TryCatch[error](func() {
		if err := fn(f); err != nil {
			panic(err)
		}
	})
	if err != nil {
		return nil, ir.WrapNode(err, f.symbol, node)
	}
	unit.Body.Append(f.Code)
	if klog.V(2).Enabled() {
		klog.Infof("codegen %s: %s = %s (%d lines)", e.name, f.symbol, node, f.Code.Len())
	}
	return f, nil
}

func (e *Engine) visitInput(unit *Unit, node *fx.Node) error {
	f, err := e.emit(unit, node, nil, e.emitter.EmitInput)
	if err != nil {
		return err
	}
	unit.Inputs = append(unit.Inputs, Input{Symbol: f.symbol, Node: node})
	return nil
}

func (e *Engine) visitCall(unit *Unit, node *fx.Node) error {
	symbol := e.names.Assign(node)
	op, err := e.registry.Convert(node)
	if err != nil {
		return ir.WrapNode(err, symbol, node)
	}
	_, err = e.emit(unit, node, op, func(f *Frame) error {
		return e.emitter.Emit(f, op)
	})
	return err
}

func (e *Engine) visitOutput(unit *Unit, node *fx.Node) error {
	for _, arg := range node.Args {
		if err := e.flattenOutput(unit, arg); err != nil {
			return err
		}
	}
	seen := make(map[string]bool, len(unit.Outputs))
	for _, output := range unit.Outputs {
		if output.None || seen[output.Symbol] {
			continue
		}
		seen[output.Symbol] = true
		unit.UniqueOutputs = append(unit.UniqueOutputs, output)
	}
	return nil
}

// flattenOutput appends the tensors (or None) of arg to the unit outputs, recursively for tuples.
func (e *Engine) flattenOutput(unit *Unit, arg fx.Argument) error {
	switch arg.Kind() {
	case fx.ArgNone:
		unit.Outputs = append(unit.Outputs, Output{None: true})
	case fx.ArgRef:
		node := arg.Node()
		symbol, found := e.names.Lookup(node)
		if !found || node.Kind == fx.Output {
			return errors.Wrapf(ir.ErrUnresolvedReference, "output references %q", node.Name)
		}
		unit.Outputs = append(unit.Outputs, Output{Symbol: symbol, Node: node})
	case fx.ArgList:
		for _, element := range arg.List() {
			if err := e.flattenOutput(unit, element); err != nil {
				return err
			}
		}
	default:
		return errors.Errorf("graph outputs must be tensors, None or tuples, got %s %s", arg.Kind(), arg)
	}
	return nil
}
