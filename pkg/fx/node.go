// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package fx

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/gomlx/fxlower/pkg/core/dtypes"
	"github.com/gomlx/fxlower/pkg/core/shapes"
)

// NodeKind is the kind of a Node in the traced graph. It is encoded with the tracer's names
// ("placeholder", "call_function", "output").
type NodeKind int

//go:generate go tool enumer -type=NodeKind -transform=snake -text -yaml -output=gen_nodekind_enumer.go node.go

const (
	// Placeholder is an input of the graph.
	Placeholder NodeKind = iota

	// CallFunction is a call to a generic operator, identified by the node's Target.
	CallFunction

	// Output marks the values returned by the graph. It is always the last node.
	Output
)

// TensorMeta is the metadata attached by the tracer to the value produced by a node.
type TensorMeta struct {
	Shape  shapes.Shape
	Stride []int
	Device string
}

// NewMeta creates the metadata of a contiguous tensor on the "cpu" device.
func NewMeta(dtype dtypes.DType, dimensions ...int) *TensorMeta {
	shape := shapes.Make(dtype, dimensions...)
	return &TensorMeta{
		Shape:  shape,
		Stride: shapes.ContiguousStrides(shape.Dimensions),
		Device: "cpu",
	}
}

// DType of the tensor.
func (m *TensorMeta) DType() dtypes.DType { return m.Shape.DType }

// Dims returns the dimensions of the tensor. The returned slice must not be modified.
func (m *TensorMeta) Dims() []int { return m.Shape.Dimensions }

// Rank of the tensor.
func (m *TensorMeta) Rank() int { return m.Shape.Rank() }

// NumElements returns the total number of elements of the tensor.
func (m *TensorMeta) NumElements() int { return m.Shape.Size() }

// Clone returns a deep copy.
func (m *TensorMeta) Clone() *TensorMeta {
	if m == nil {
		return nil
	}
	return &TensorMeta{Shape: m.Shape.Clone(), Stride: slices.Clone(m.Stride), Device: m.Device}
}

// WithShape returns a copy of the metadata for a contiguous tensor of the given shape, on the same device.
func (m *TensorMeta) WithShape(shape shapes.Shape) *TensorMeta {
	return &TensorMeta{Shape: shape.Clone(), Stride: shapes.ContiguousStrides(shape.Dimensions), Device: m.Device}
}

// String implements fmt.Stringer.
func (m *TensorMeta) String() string {
	if m == nil {
		return "<no meta>"
	}
	return fmt.Sprintf("%s stride=%v device=%s", m.Shape, m.Stride, m.Device)
}

// Node of a traced graph: an input, an operator call or the output.
type Node struct {
	// Name is unique within the graph.
	Name string

	Kind   NodeKind
	Target Target

	Args   []Argument
	Kwargs map[string]Argument

	// Meta describes the value produced by the node. For multi-output operators it describes the first output,
	// and TupleMeta (optional) describes each of them.
	Meta      *TensorMeta
	TupleMeta []*TensorMeta

	graph *Graph
	index int
}

// Graph returns the graph the node belongs to.
func (n *Node) Graph() *Graph { return n.graph }

// Index returns the position of the node in its graph.
func (n *Node) Index() int { return n.index }

// Arg returns the argument in position pos, or if not given positionally, the keyword argument name.
// The second value is false if the argument was not given.
func (n *Node) Arg(pos int, name string) (Argument, bool) {
	if pos >= 0 && pos < len(n.Args) {
		return n.Args[pos], true
	}
	if name != "" {
		if arg, found := n.Kwargs[name]; found {
			return arg, true
		}
	}
	return None(), false
}

// Inputs returns the nodes referenced by the arguments (positional first, then keywords in sorted order).
func (n *Node) Inputs() []*Node {
	var inputs []*Node
	for _, arg := range n.Args {
		inputs = append(inputs, arg.Refs()...)
	}
	for _, key := range n.KwargsKeys() {
		inputs = append(inputs, n.Kwargs[key].Refs()...)
	}
	return inputs
}

// KwargsKeys returns the keyword argument names in sorted order.
func (n *Node) KwargsKeys() []string {
	keys := make([]string, 0, len(n.Kwargs))
	for key := range n.Kwargs {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// String implements fmt.Stringer, in a format similar to the tracer's graph print.
func (n *Node) String() string {
	var sb strings.Builder
	sb.WriteString("%" + n.Name + " : ")
	switch n.Kind {
	case Placeholder:
		sb.WriteString("placeholder")
	case Output:
		sb.WriteString("output")
	default:
		sb.WriteString("call_function[target=" + n.Target.String() + "]")
	}
	parts := make([]string, 0, len(n.Args))
	for _, arg := range n.Args {
		parts = append(parts, arg.String())
	}
	for _, key := range n.KwargsKeys() {
		parts = append(parts, key+"="+n.Kwargs[key].String())
	}
	sb.WriteString("(" + strings.Join(parts, ", ") + ")")
	if n.Meta != nil {
		sb.WriteString(" -> " + n.Meta.Shape.String())
	}
	return sb.String()
}
