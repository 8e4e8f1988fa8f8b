// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package conversion

import (
	"github.com/gomlx/fxlower/pkg/core/dtypes"
	"github.com/gomlx/fxlower/pkg/fx"
	"github.com/pkg/errors"
)

// Arg returns the argument given in position pos or as keyword name, or None if not given.
func Arg(node *fx.Node, pos int, name string) fx.Argument {
	arg, _ := node.Arg(pos, name)
	return arg
}

// Tensor returns the argument given in position pos or as keyword name, which must be a reference to a node.
func Tensor(node *fx.Node, pos int, name string) (fx.Argument, error) {
	arg := Arg(node, pos, name)
	if !arg.IsRef() {
		return arg, errors.Errorf("argument %q (#%d) of %s must be a tensor, got %s", name, pos, node.Target, arg)
	}
	return arg, nil
}

// Int returns the integer argument in position pos or keyword name, or defaultValue if not given or None.
func Int(node *fx.Node, pos int, name string, defaultValue int) (int, error) {
	arg := Arg(node, pos, name)
	if arg.IsNone() {
		return defaultValue, nil
	}
	v, ok := arg.AsInt()
	if !ok {
		return 0, errors.Errorf("argument %q (#%d) of %s must be an int, got %s", name, pos, node.Target, arg)
	}
	return v, nil
}

// IntList returns the list of integers argument (a single integer is accepted as a list of one) in position
// pos or keyword name, or defaultValue if not given or None.
func IntList(node *fx.Node, pos int, name string, defaultValue []int) ([]int, error) {
	arg := Arg(node, pos, name)
	if arg.IsNone() {
		return defaultValue, nil
	}
	values, ok := arg.AsInts()
	if !ok {
		return nil, errors.Errorf("argument %q (#%d) of %s must be a list of ints, got %s", name, pos, node.Target, arg)
	}
	return values, nil
}

// Bool returns the boolean argument in position pos or keyword name, or defaultValue if not given or None.
func Bool(node *fx.Node, pos int, name string, defaultValue bool) (bool, error) {
	arg := Arg(node, pos, name)
	if arg.IsNone() {
		return defaultValue, nil
	}
	v, ok := arg.AsBool()
	if !ok {
		return false, errors.Errorf("argument %q (#%d) of %s must be a bool, got %s", name, pos, node.Target, arg)
	}
	return v, nil
}

// BoolList returns a list of booleans (e.g. an output mask) in position pos or keyword name.
func BoolList(node *fx.Node, pos int, name string) ([]bool, error) {
	arg := Arg(node, pos, name)
	elements := arg.List()
	if arg.Kind() != fx.ArgList {
		return nil, errors.Errorf("argument %q (#%d) of %s must be a list of bools, got %s", name, pos, node.Target, arg)
	}
	values := make([]bool, len(elements))
	for ii, e := range elements {
		v, ok := e.AsBool()
		if !ok {
			return nil, errors.Errorf("argument %q (#%d) of %s must be a list of bools, got %s", name, pos, node.Target, arg)
		}
		values[ii] = v
	}
	return values, nil
}

// Float returns the numeric argument in position pos or keyword name, or defaultValue if not given or None.
func Float(node *fx.Node, pos int, name string, defaultValue float64) (float64, error) {
	arg := Arg(node, pos, name)
	if arg.IsNone() {
		return defaultValue, nil
	}
	v, ok := arg.AsFloat()
	if !ok {
		return 0, errors.Errorf("argument %q (#%d) of %s must be a number, got %s", name, pos, node.Target, arg)
	}
	return v, nil
}

// DTypeArg returns the dtype argument in position pos or keyword name. If not given, it returns
// dtypes.InvalidDType, which by convention means "the dtype of the node's result".
func DTypeArg(node *fx.Node, pos int, name string) (dtypes.DType, error) {
	arg := Arg(node, pos, name)
	if arg.IsNone() {
		return dtypes.InvalidDType, nil
	}
	if dtype, ok := arg.AsDType(); ok {
		return dtype, nil
	}
	if s, ok := arg.AsString(); ok {
		return dtypes.Parse(s)
	}
	return dtypes.InvalidDType, errors.Errorf("argument %q (#%d) of %s must be a dtype, got %s", name, pos, node.Target, arg)
}
