// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package tops

import (
	"fmt"
	"strings"

	"github.com/gomlx/fxlower/pkg/codegen"
	"github.com/gomlx/fxlower/pkg/core/dtypes"
	"github.com/gomlx/fxlower/pkg/fx"
	"github.com/gomlx/fxlower/pkg/ir"
	"github.com/pkg/errors"
)

type emitFn func(e *emitter, f *codegen.Frame, op ir.Op) error

// emitters are populated during initialization for the ops implemented.
var emitters [ir.OpTypeLast]emitFn

type emitter struct {
	// reduceMeanAxes overrides the axes of mean reductions, if set.
	reduceMeanAxes []int
}

var _ codegen.Emitter = &emitter{}

func (e *emitter) SymbolPrefix() string { return "tmp" }

func (e *emitter) Literals() *codegen.Renderer { return codegen.CppRenderer }

// EmitInput creates an HLIR input of the node's type.
func (e *emitter) EmitInput(f *codegen.Frame) error {
	meta := f.Meta()
	name := f.Symbol()
	primitive := primitiveType(meta.DType())
	f.Code.Linef("std::vector<int64_t> %s_in_shape%s;", name, f.Literals().Ints(meta.Dims()))
	f.Code.Linef("builder::Type %s_input_type(%s_in_shape, %s);", name, name, primitive)
	f.Code.Linef("builder::Op %s = hlir_builder->CreateInput(%s_input_type);", name, name)
	return nil
}

// Emit implements codegen.Emitter.
func (e *emitter) Emit(f *codegen.Frame, op ir.Op) error {
	opType := op.Type()
	if err := Capabilities.CheckOp(BackendName, opType); err != nil {
		return err
	}
	if opType <= ir.OpTypeInvalid || opType >= ir.OpTypeLast || emitters[opType] == nil {
		return errors.Wrapf(ir.ErrUnknownEmitter, "backend %q: %s", BackendName, opType)
	}
	return emitters[opType](e, f, op)
}

// primitiveType returns the HLIR primitive type of dtype, or panics with ir.ErrUnsupportedConfiguration.
func primitiveType(dtype dtypes.DType) string {
	primitive, found := primitiveTypes[dtype]
	if !found {
		panic(errors.Wrapf(ir.ErrUnsupportedConfiguration, "backend %q doesn't support dtype %s", BackendName, dtype))
	}
	return primitive
}

// declare writes `builder::Op name = builder::Fn(args...);`.
func declare(f *codegen.Frame, name, fn string, args ...string) {
	f.Code.Linef("builder::Op %s = builder::%s(%s);", name, fn, strings.Join(args, ", "))
}

// typeOf declares a builder::Type with the given dimensions and dtype, and returns its name.
func typeOf(f *codegen.Frame, role string, dims []int, dtype dtypes.DType) string {
	name := f.Local(role)
	f.Code.Linef("builder::Type %s(std::vector<int64_t>%s, %s);", name, f.Literals().Ints(dims), primitiveType(dtype))
	return name
}

// resultType declares the type of the node's result.
func resultType(f *codegen.Frame) string {
	meta := f.Meta()
	return typeOf(f, "type", meta.Dims(), meta.DType())
}

// scalarConst declares a 1-element constant holding value in dtype, and returns its symbol.
func scalarConst(f *codegen.Frame, role string, value fx.Argument, dtype dtypes.DType) string {
	cType, found := cTypes[dtype]
	if !found {
		panic(errors.Wrapf(ir.ErrUnsupportedConfiguration, "backend %q doesn't support scalars of dtype %s", BackendName, dtype))
	}
	var init string
	switch {
	case dtype.IsFloat16():
		v, ok := value.AsFloat()
		if !ok {
			panic(errors.Errorf("scalar %s can't be converted to %s", value, dtype))
		}
		init = fmt.Sprintf("0x%04x", dtype.Bits16(v))
	case dtype == dtypes.Bool:
		init = f.Literal(value, dtype)
	default:
		init = fmt.Sprintf("static_cast<%s>(%s)", cType, f.Literal(value, dtype))
	}
	name := f.Local(role)
	f.Code.Linef("%s %s_data = %s;", cType, name, init)
	f.Code.Linef("builder::Type %s_type(std::vector<int64_t>{1}, %s);", name, primitiveType(dtype))
	f.Code.Linef("builder::Op %s = builder::Const(hlir_builder, static_cast<void *>(&%s_data), %s_type);",
		name, name, name)
	return name
}

// axesConst declares a 1D int64 constant with the values, and returns its symbol.
func axesConst(f *codegen.Frame, role string, values []int) string {
	name := f.Local(role)
	cpp := f.Literals()
	f.Code.Linef("std::vector<int64_t> %s_data%s;", name, cpp.Ints(values))
	f.Code.Linef("builder::Type %s_type(std::vector<int64_t>{%d}, builder::PrimitiveType::S64());", name, len(values))
	f.Code.Linef("builder::Op %s = builder::Const(hlir_builder, static_cast<void *>(%s_data.data()), %s_type);",
		name, name, name)
	return name
}
