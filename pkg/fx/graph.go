// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package fx models the traced tensor-computation graph consumed by the lowering: an ordered list of nodes
// (inputs, operator calls and the output), each annotated with the metadata of the tensor it produces.
//
// Graphs are normally captured by an upstream tracer and loaded with ReadYAML, or built programmatically
// with Graph.Placeholder, Graph.Call and Graph.Output. Once built they are treated as read-only: rewrites
// produce new graphs.
package fx

import (
	"fmt"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
)

var (
	// ErrUnresolvedReference is returned when an argument references a node that is not defined before
	// its consumer in the same graph.
	ErrUnresolvedReference = errors.New("unresolved reference")

	// ErrMetadataMissing is returned when a node lacks the tensor metadata needed to lower it.
	ErrMetadataMissing = errors.New("metadata missing")
)

// Graph is an ordered sequence of nodes. Definition order is a valid topological order.
type Graph struct {
	Name string

	nodes      []*Node
	byName     map[string]*Node
	nameCounts map[string]int
}

// New creates an empty graph.
func New(name string) *Graph {
	return &Graph{
		Name:       name,
		byName:     make(map[string]*Node),
		nameCounts: make(map[string]int),
	}
}

// Nodes returns the nodes in definition order. The returned slice must not be modified.
func (g *Graph) Nodes() []*Node { return g.nodes }

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// Node returns the node with the given name, or nil.
func (g *Graph) Node(name string) *Node { return g.byName[name] }

// Inputs returns the placeholder nodes in order.
func (g *Graph) Inputs() []*Node {
	var inputs []*Node
	for _, node := range g.nodes {
		if node.Kind == Placeholder {
			inputs = append(inputs, node)
		}
	}
	return inputs
}

// OutputNode returns the output node, or nil if the graph has none yet.
func (g *Graph) OutputNode() *Node {
	if len(g.nodes) == 0 {
		return nil
	}
	last := g.nodes[len(g.nodes)-1]
	if last.Kind != Output {
		return nil
	}
	return last
}

// uniqueName returns name if not yet used, otherwise name with a numeric suffix ("add", "add_1", "add_2", ...),
// the same convention the tracer uses.
func (g *Graph) uniqueName(name string) string {
	for {
		count := g.nameCounts[name]
		g.nameCounts[name] = count + 1
		candidate := name
		if count > 0 {
			candidate = fmt.Sprintf("%s_%d", name, count)
		}
		if _, found := g.byName[candidate]; !found {
			return candidate
		}
	}
}

// AddNode appends node to the graph and returns it.
//
// If node.Name is empty a unique name is derived from the target (or kind). It panics if the name is
// already taken, if the node belongs to another graph or if the graph already has its output node.
func (g *Graph) AddNode(node *Node) *Node {
	if node.graph != nil {
		exceptions.Panicf("fx.Graph(%q).AddNode(%q): node already belongs to graph %q", g.Name, node.Name, node.graph.Name)
	}
	if g.OutputNode() != nil {
		exceptions.Panicf("fx.Graph(%q).AddNode(%q): graph already has an output node", g.Name, node.Name)
	}
	if node.Name == "" {
		base := node.Target.Base
		if base == "" {
			base = node.Kind.String()
		}
		node.Name = g.uniqueName(base)
	} else if _, found := g.byName[node.Name]; found {
		exceptions.Panicf("fx.Graph(%q).AddNode: duplicate node name %q", g.Name, node.Name)
	}
	node.graph = g
	node.index = len(g.nodes)
	g.nodes = append(g.nodes, node)
	g.byName[node.Name] = node
	return node
}

// Placeholder adds an input to the graph.
func (g *Graph) Placeholder(name string, meta *TensorMeta) *Node {
	return g.AddNode(&Node{Name: name, Kind: Placeholder, Meta: meta})
}

// Call adds an operator call to the graph. args and kwargs values are converted with ValueOf.
// The node name is derived from the target base name.
func (g *Graph) Call(target string, args []any, kwargs map[string]any, meta *TensorMeta) *Node {
	node := &Node{
		Kind:   CallFunction,
		Target: ParseTarget(target),
		Args:   make([]Argument, len(args)),
		Meta:   meta,
	}
	for ii, arg := range args {
		node.Args[ii] = ValueOf(arg)
	}
	if len(kwargs) > 0 {
		node.Kwargs = make(map[string]Argument, len(kwargs))
		for key, value := range kwargs {
			node.Kwargs[key] = ValueOf(value)
		}
	}
	return g.AddNode(node)
}

// Output adds the output node returning the given values: nodes, nil (None) or nested []any tuples.
func (g *Graph) Output(values ...any) *Node {
	outputs := make([]Argument, len(values))
	for ii, value := range values {
		outputs[ii] = ValueOf(value)
	}
	return g.AddNode(&Node{Name: "output", Kind: Output, Args: []Argument{List(outputs...)}})
}

// Validate checks the structural invariants of the graph:
//
//   - It has exactly one output node and it is the last one.
//   - Every reference points to a node of the same graph defined earlier (else ErrUnresolvedReference).
//   - Placeholders and operator calls carry metadata (else ErrMetadataMissing).
func (g *Graph) Validate() error {
	if g.OutputNode() == nil {
		return errors.Errorf("graph %q has no output node", g.Name)
	}
	for _, node := range g.nodes {
		if node.Kind == Output && node != g.OutputNode() {
			return errors.Errorf("graph %q has more than one output node (%q)", g.Name, node.Name)
		}
		if node.Kind == CallFunction && node.Target.IsZero() {
			return errors.Errorf("graph %q: node %q has no target", g.Name, node.Name)
		}
		if node.Kind != Output && node.Meta == nil {
			return errors.Wrapf(ErrMetadataMissing, "graph %q: node %q (%s)", g.Name, node.Name, node.Kind)
		}
		for _, input := range node.Inputs() {
			if input.graph != g || g.byName[input.Name] != input || input.index >= node.index {
				return errors.Wrapf(ErrUnresolvedReference, "graph %q: node %q references %q", g.Name, node.Name, input.Name)
			}
		}
	}
	return nil
}

// String implements fmt.Stringer, listing the nodes one per line.
func (g *Graph) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "graph %s:\n", g.Name)
	for _, node := range g.nodes {
		sb.WriteString("    " + node.String() + "\n")
	}
	return sb.String()
}
