// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package codegen

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/gomlx/fxlower/pkg/core/dtypes"
	"github.com/gomlx/fxlower/pkg/fx"
	"github.com/pkg/errors"
)

// Renderer renders literal values in the syntax of a target language.
//
// Renderers are plain values: backends needing a variation (e.g. their own dtype names) copy one of the
// predefined renderers and change the fields they need.
type Renderer struct {
	Language string

	True, False, None   string
	ListOpen, ListClose string

	// NonFinite renders infinities and NaN for the given float dtype.
	NonFinite func(value float64, dtype dtypes.DType) string

	// DType renders a dtype literal. If nil, dtype literals can't be rendered.
	DType func(dtype dtypes.DType) string
}

// CppRenderer renders C++ literals: brace-initialized lists and std::numeric_limits for non-finite values.
var CppRenderer = &Renderer{
	Language:  "c++",
	True:      "true",
	False:     "false",
	None:      "nullptr",
	ListOpen:  "{",
	ListClose: "}",
	NonFinite: func(value float64, dtype dtypes.DType) string {
		cType := "float"
		if dtype == dtypes.Float64 {
			cType = "double"
		}
		switch {
		case math.IsNaN(value):
			return fmt.Sprintf("std::numeric_limits<%s>::quiet_NaN()", cType)
		case value < 0:
			return fmt.Sprintf("-std::numeric_limits<%s>::infinity()", cType)
		default:
			return fmt.Sprintf("std::numeric_limits<%s>::infinity()", cType)
		}
	},
}

// PythonRenderer renders Python literals.
var PythonRenderer = &Renderer{
	Language:  "python",
	True:      "True",
	False:     "False",
	None:      "None",
	ListOpen:  "[",
	ListClose: "]",
	NonFinite: func(value float64, _ dtypes.DType) string {
		switch {
		case math.IsNaN(value):
			return "float('nan')"
		case value < 0:
			return "float('-inf')"
		default:
			return "float('inf')"
		}
	},
	DType: func(dtype dtypes.DType) string { return dtype.TorchName() },
}

// Bool renders a boolean.
func (r *Renderer) Bool(value bool) string {
	if value {
		return r.True
	}
	return r.False
}

// Int renders an integer.
func (r *Renderer) Int(value int) string { return strconv.Itoa(value) }

// Float renders value rounded to what the dtype can represent. The result always reads as a floating
// point literal ("1.0", not "1"), using the shortest representation that round-trips.
func (r *Renderer) Float(value float64, dtype dtypes.DType) string {
	if !dtypes.IsFinite(value) {
		return r.NonFinite(value, dtype)
	}
	bitSize := 64
	if dtype.IsFloat() && dtype != dtypes.Float64 {
		value = dtype.RoundFloat(value)
		bitSize = 32
	}
	text := strconv.FormatFloat(value, 'g', -1, bitSize)
	if !strings.ContainsAny(text, ".eE") {
		text += ".0"
	}
	return text
}

// String renders a quoted string.
func (r *Renderer) String(value string) string { return strconv.Quote(value) }

// List renders a list of already rendered elements.
func (r *Renderer) List(elements ...string) string {
	return r.ListOpen + strings.Join(elements, ", ") + r.ListClose
}

// Ints renders a list of integers, e.g. "{1, 1, 2, 2}" in C++.
func (r *Renderer) Ints(values []int) string {
	elements := make([]string, len(values))
	for ii, v := range values {
		elements[ii] = strconv.Itoa(v)
	}
	return r.List(elements...)
}

// Literal renders a literal argument. Floats are rounded to dtype. References can't be rendered and return
// an error.
func (r *Renderer) Literal(arg fx.Argument, dtype dtypes.DType) (string, error) {
	switch arg.Kind() {
	case fx.ArgNone:
		return r.None, nil
	case fx.ArgBool:
		v, _ := arg.AsBool()
		return r.Bool(v), nil
	case fx.ArgInt:
		v, _ := arg.AsInt()
		return r.Int(v), nil
	case fx.ArgFloat:
		v, _ := arg.AsFloat()
		return r.Float(v, dtype), nil
	case fx.ArgString:
		v, _ := arg.AsString()
		return r.String(v), nil
	case fx.ArgDType:
		if r.DType == nil {
			return "", errors.Errorf("%s renderer can't render dtype literal %s", r.Language, arg)
		}
		v, _ := arg.AsDType()
		return r.DType(v), nil
	case fx.ArgList:
		elements := make([]string, len(arg.List()))
		for ii, e := range arg.List() {
			var err error
			if elements[ii], err = r.Literal(e, dtype); err != nil {
				return "", err
			}
		}
		return r.List(elements...), nil
	}
	return "", errors.Errorf("%s renderer can't render %s argument %s as a literal", r.Language, arg.Kind(), arg)
}
