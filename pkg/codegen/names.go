// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package codegen

import (
	"fmt"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/fxlower/pkg/fx"
)

// Names assigns the symbols used in the generated code to the nodes of a graph.
//
// Symbols are the backend prefix followed by a counter ("op0", "op1", ...). The counter is never
// reused within a Names table, so symbols are unique even when a node is later aliased to another
// node's symbol. It is append-only: a node's symbol can be rebound (Alias) but never removed.
type Names struct {
	prefix  string
	next    int
	symbols map[*fx.Node]string
	order   []*fx.Node

	// locals counts the helper symbols requested per owner and role.
	locals map[string]int
}

// NewNames creates an empty table with the given symbol prefix.
func NewNames(prefix string) *Names {
	return &Names{
		prefix:  prefix,
		symbols: make(map[*fx.Node]string),
		locals:  make(map[string]int),
	}
}

// Assign returns the symbol of node, creating a new one if the node has none yet.
func (n *Names) Assign(node *fx.Node) string {
	if symbol, found := n.symbols[node]; found {
		return symbol
	}
	symbol := fmt.Sprintf("%s%d", n.prefix, n.next)
	n.next++
	n.symbols[node] = symbol
	n.order = append(n.order, node)
	return symbol
}

// Lookup returns the symbol of node, if it was already assigned.
func (n *Names) Lookup(node *fx.Node) (string, bool) {
	symbol, found := n.symbols[node]
	return symbol, found
}

// Alias binds node to an existing symbol, typically the one of the node it passes through.
func (n *Names) Alias(node *fx.Node, symbol string) {
	if symbol == "" {
		exceptions.Panicf("codegen.Names.Alias(%q): empty symbol", node.Name)
	}
	if _, found := n.symbols[node]; !found {
		n.order = append(n.order, node)
	}
	n.symbols[node] = symbol
}

// Local returns a new helper symbol scoped to owner: "op3_scalar" the first time, then "op3_scalar1",
// "op3_scalar2", ...
func (n *Names) Local(owner, role string) string {
	base := owner + "_" + role
	count := n.locals[base]
	n.locals[base] = count + 1
	if count == 0 {
		return base
	}
	return fmt.Sprintf("%s%d", base, count)
}

// Len returns the number of nodes with a symbol.
func (n *Names) Len() int { return len(n.order) }

// Nodes returns the nodes with a symbol, in the order they were first named.
func (n *Names) Nodes() []*fx.Node { return n.order }
