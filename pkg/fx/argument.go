// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package fx

import (
	"strconv"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/fxlower/pkg/core/dtypes"
)

// ArgKind enumerates the kinds of values an Argument can hold.
type ArgKind int

//go:generate go tool enumer -type=ArgKind -trimprefix=Arg -transform=lower -text -yaml -output=gen_argkind_enumer.go argument.go

const (
	ArgNone ArgKind = iota
	ArgRef
	ArgBool
	ArgInt
	ArgFloat
	ArgDType
	ArgString
	ArgList
)

// Argument is a positional or keyword argument of a Node: either a reference to another node
// (the producer of a tensor) or a literal value.
//
// It is an immutable value type. Referenced nodes are not owned by the argument.
type Argument struct {
	kind  ArgKind
	node  *Node
	b     bool
	i     int64
	f     float64
	dtype dtypes.DType
	s     string
	list  []Argument
}

// None returns the argument representing a missing value (Python's None).
func None() Argument { return Argument{kind: ArgNone} }

// Ref returns an argument referencing the output of node.
func Ref(node *Node) Argument {
	if node == nil {
		exceptions.Panicf("fx.Ref(nil): use fx.None() for missing values")
	}
	return Argument{kind: ArgRef, node: node}
}

// Bool returns a literal boolean argument.
func Bool(v bool) Argument { return Argument{kind: ArgBool, b: v} }

// Int returns a literal integer argument.
func Int(v int64) Argument { return Argument{kind: ArgInt, i: v} }

// Float returns a literal float argument.
func Float(v float64) Argument { return Argument{kind: ArgFloat, f: v} }

// DType returns a literal dtype argument (e.g. the target dtype of a conversion).
func DType(dtype dtypes.DType) Argument { return Argument{kind: ArgDType, dtype: dtype} }

// String returns a literal string argument.
func String(s string) Argument { return Argument{kind: ArgString, s: s} }

// List returns a literal sequence of arguments. Elements can themselves be references.
func List(elements ...Argument) Argument {
	return Argument{kind: ArgList, list: append([]Argument{}, elements...)}
}

// Ints returns a literal list of integers.
func Ints(values ...int) Argument {
	elements := make([]Argument, len(values))
	for ii, v := range values {
		elements[ii] = Int(int64(v))
	}
	return Argument{kind: ArgList, list: elements}
}

// ValueOf converts a Go value into an Argument: *Node become references, nil becomes None,
// slices become lists and scalars become literals. It panics for unsupported types.
func ValueOf(value any) Argument {
	switch v := value.(type) {
	case nil:
		return None()
	case Argument:
		return v
	case *Node:
		return Ref(v)
	case bool:
		return Bool(v)
	case int:
		return Int(int64(v))
	case int32:
		return Int(int64(v))
	case int64:
		return Int(v)
	case float32:
		return Float(float64(v))
	case float64:
		return Float(v)
	case dtypes.DType:
		return DType(v)
	case string:
		return String(v)
	case []int:
		return Ints(v...)
	case []*Node:
		elements := make([]Argument, len(v))
		for ii, n := range v {
			elements[ii] = ValueOf(n)
		}
		return List(elements...)
	case []Argument:
		return List(v...)
	case []any:
		elements := make([]Argument, len(v))
		for ii, e := range v {
			elements[ii] = ValueOf(e)
		}
		return List(elements...)
	}
	exceptions.Panicf("fx.ValueOf: unsupported argument type %T (%v)", value, value)
	return None()
}

// Kind returns the kind of the argument.
func (a Argument) Kind() ArgKind { return a.kind }

// IsNone returns whether the argument is None.
func (a Argument) IsNone() bool { return a.kind == ArgNone }

// IsRef returns whether the argument is a reference to another node.
func (a Argument) IsRef() bool { return a.kind == ArgRef }

// IsScalar returns whether the argument is a literal bool, int or float.
func (a Argument) IsScalar() bool {
	return a.kind == ArgBool || a.kind == ArgInt || a.kind == ArgFloat
}

// Node returns the referenced node, or nil if the argument is not a reference.
func (a Argument) Node() *Node {
	if a.kind != ArgRef {
		return nil
	}
	return a.node
}

// AsBool returns the literal boolean value. Integers 0 and 1 are accepted as booleans.
func (a Argument) AsBool() (bool, bool) {
	switch a.kind {
	case ArgBool:
		return a.b, true
	case ArgInt:
		if a.i == 0 || a.i == 1 {
			return a.i == 1, true
		}
	}
	return false, false
}

// AsInt returns the literal integer value. Booleans and integral floats are not converted.
func (a Argument) AsInt() (int, bool) {
	if a.kind != ArgInt {
		return 0, false
	}
	return int(a.i), true
}

// AsFloat returns the literal value as a float64. Integers and booleans are converted.
func (a Argument) AsFloat() (float64, bool) {
	switch a.kind {
	case ArgFloat:
		return a.f, true
	case ArgInt:
		return float64(a.i), true
	case ArgBool:
		if a.b {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// AsDType returns the literal dtype.
func (a Argument) AsDType() (dtypes.DType, bool) {
	if a.kind != ArgDType {
		return dtypes.InvalidDType, false
	}
	return a.dtype, true
}

// AsString returns the literal string.
func (a Argument) AsString() (string, bool) {
	if a.kind != ArgString {
		return "", false
	}
	return a.s, true
}

// List returns the elements of a list argument, or nil if it is not a list.
// The returned slice must not be modified.
func (a Argument) List() []Argument {
	if a.kind != ArgList {
		return nil
	}
	return a.list
}

// AsInts returns the literal list of integers. A single integer is accepted as a list of one element,
// since traced graphs use both forms for axes arguments.
func (a Argument) AsInts() ([]int, bool) {
	switch a.kind {
	case ArgInt:
		return []int{int(a.i)}, true
	case ArgList:
		values := make([]int, len(a.list))
		for ii, e := range a.list {
			v, ok := e.AsInt()
			if !ok {
				return nil, false
			}
			values[ii] = v
		}
		return values, true
	}
	return nil, false
}

// Refs returns all nodes referenced by the argument, recursively for lists, in order.
func (a Argument) Refs() []*Node {
	switch a.kind {
	case ArgRef:
		return []*Node{a.node}
	case ArgList:
		var refs []*Node
		for _, e := range a.list {
			refs = append(refs, e.Refs()...)
		}
		return refs
	}
	return nil
}

// Map returns a copy of the argument where every reference (recursively for lists) is replaced by fn(node).
func (a Argument) Map(fn func(node *Node) Argument) Argument {
	switch a.kind {
	case ArgRef:
		return fn(a.node)
	case ArgList:
		elements := make([]Argument, len(a.list))
		for ii, e := range a.list {
			elements[ii] = e.Map(fn)
		}
		return Argument{kind: ArgList, list: elements}
	}
	return a
}

// String implements fmt.Stringer, using Python-like notation.
func (a Argument) String() string {
	switch a.kind {
	case ArgNone:
		return "None"
	case ArgRef:
		return a.node.Name
	case ArgBool:
		if a.b {
			return "True"
		}
		return "False"
	case ArgInt:
		return strconv.FormatInt(a.i, 10)
	case ArgFloat:
		return strconv.FormatFloat(a.f, 'g', -1, 64)
	case ArgDType:
		return a.dtype.TorchName()
	case ArgString:
		return strconv.Quote(a.s)
	case ArgList:
		parts := make([]string, len(a.list))
		for ii, e := range a.list {
			parts[ii] = e.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return "?"
}
