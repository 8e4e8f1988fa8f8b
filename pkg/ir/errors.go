// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package ir

import (
	"fmt"

	"github.com/gomlx/fxlower/pkg/core/shapes"
	"github.com/gomlx/fxlower/pkg/fx"
	"github.com/pkg/errors"
)

// Errors returned by the lowering. All of them are fatal to the compilation of a graph.
// Use errors.Is to check for them, they are usually wrapped with the context of the failure.
var (
	// ErrUnsupportedOperator is returned when there is no conversion registered for a generic operator.
	ErrUnsupportedOperator = errors.New("unsupported operator")

	// ErrUnsupportedReduction is returned for a reduction attribute this backend can't express
	// (e.g. a variance correction other than 0 or 1).
	ErrUnsupportedReduction = errors.New("unsupported reduction")

	// ErrUnsupportedConfiguration is returned for an operator attribute combination the backend can't express,
	// e.g. transposed convolution or non-zero output padding.
	ErrUnsupportedConfiguration = errors.New("unsupported configuration")

	// ErrUnknownEmitter is returned when the backend has no code emitter for an operator.
	ErrUnknownEmitter = errors.New("unknown emitter")

	// ErrUnresolvedReference is returned when an argument references a node not yet visited.
	ErrUnresolvedReference = fx.ErrUnresolvedReference

	// ErrMetadataMissing is returned when a node lacks the shape/dtype needed for emission.
	ErrMetadataMissing = fx.ErrMetadataMissing

	// ErrNonIntegralReshape is returned when an inferred dimension doesn't evenly divide the number of elements.
	ErrNonIntegralReshape = shapes.ErrNonIntegralReshape
)

// NodeError identifies the node of the traced graph where the compilation failed.
type NodeError struct {
	// Symbol generated for the node, if one was already assigned.
	Symbol string

	// Node is the name of the node in the traced graph, and Target its operator identifier.
	Node, Target string

	Err error
}

// Error implements the error interface.
func (e *NodeError) Error() string {
	var location string
	if e.Symbol != "" {
		location = fmt.Sprintf("%s (node %q", e.Symbol, e.Node)
	} else {
		location = fmt.Sprintf("(node %q", e.Node)
	}
	if e.Target != "" {
		location += ", target " + e.Target
	}
	return location + "): " + e.Err.Error()
}

// Unwrap allows errors.Is and errors.As to inspect the underlying error.
func (e *NodeError) Unwrap() error { return e.Err }

// Format implements fmt.Formatter, so "%+v" prints the stack trace of the underlying error.
func (e *NodeError) Format(s fmt.State, verb rune) {
	if verb == 'v' && s.Flag('+') {
		_, _ = fmt.Fprintf(s, "%s (node %q, target %s): %+v", e.Symbol, e.Node, e.Target, e.Err)
		return
	}
	_, _ = fmt.Fprint(s, e.Error())
}

// WrapNode wraps err with the identification of node. It returns nil if err is nil, and err unchanged
// if it already identifies a node.
func WrapNode(err error, symbol string, node *fx.Node) error {
	if err == nil {
		return nil
	}
	var nodeErr *NodeError
	if errors.As(err, &nodeErr) {
		return err
	}
	return &NodeError{Symbol: symbol, Node: node.Name, Target: node.Target.String(), Err: err}
}
