// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package ascend

import (
	"fmt"

	"github.com/gomlx/fxlower/pkg/codegen"
	"github.com/gomlx/fxlower/pkg/core/dtypes"
	"github.com/gomlx/fxlower/pkg/fx"
	"github.com/gomlx/fxlower/pkg/ir"
	"github.com/pkg/errors"
)

// emitFn emits the code of one IR operator. Failures can be returned or panicked (as the Frame methods do).
type emitFn func(f *codegen.Frame, op ir.Op) error

// emitters should be populated during initialization (`init` functions) for the ops implemented.
var emitters [ir.OpTypeLast]emitFn

// emitter implements codegen.Emitter for the GE operator API.
type emitter struct{}

var _ codegen.Emitter = &emitter{}

// SymbolPrefix implements codegen.Emitter.
func (e *emitter) SymbolPrefix() string { return "op" }

// Literals implements codegen.Emitter.
func (e *emitter) Literals() *codegen.Renderer { return codegen.CppRenderer }

// EmitInput declares a Data operator with the shape and dtype of the input, and registers it as a graph input.
func (e *emitter) EmitInput(f *codegen.Frame) error {
	meta := f.Meta()
	geType := geDType(meta.DType())
	name := f.Symbol()
	f.Code.Linef("std::vector<int64_t> %s_shape%s;", name, f.Literals().Ints(meta.Dims()))
	f.Code.Linef("TensorDesc %s_desc = TensorDesc(ge::Shape(%s_shape), FORMAT_NCHW, %s);", name, name, geType)
	f.Code.Linef(`auto %s = op::Data("%s");`, name, name)
	f.Code.Linef("%s.update_input_desc_x(%s_desc);", name, name)
	f.Code.Linef("%s.update_output_desc_y(%s_desc);", name, name)
	f.Code.Linef("graph.AddOp(%s);", name)
	f.Code.Linef("graph_inputs.push_back(%s);", name)
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
	return emitters[opType](f, op)
}

// geDType returns the GE data type of dtype, or panics with ir.ErrUnsupportedConfiguration.
func geDType(dtype dtypes.DType) string {
	geType, found := geDTypes[dtype]
	if !found {
		panic(errors.Wrapf(ir.ErrUnsupportedConfiguration, "backend %q doesn't support dtype %s", BackendName, dtype))
	}
	return geType
}

// geOp is the declaration of a GE operator: `auto name = op::Type("name")` followed by its setters.
// Emit adds it to the graph.
type geOp struct {
	opType, name string
	setters      []string
}

func newOp(opType, name string) *geOp {
	return &geOp{opType: opType, name: name}
}

// Input connects a tensor to the input port.
func (o *geOp) Input(port, value string) *geOp {
	o.setters = append(o.setters, fmt.Sprintf(".set_input_%s(%s)", port, value))
	return o
}

// Attr sets an attribute to an already rendered value.
func (o *geOp) Attr(attr, value string) *geOp {
	o.setters = append(o.setters, fmt.Sprintf(".set_attr_%s(%s)", attr, value))
	return o
}

// Call adds any other setter, e.g. "create_dynamic_input_x(2)".
func (o *geOp) Call(format string, args ...any) *geOp {
	o.setters = append(o.setters, "."+fmt.Sprintf(format, args...))
	return o
}

// Emit writes the declaration to code, and adds the operator to the graph.
func (o *geOp) Emit(code *codegen.Block) {
	header := fmt.Sprintf(`auto %s = op::%s("%s")`, o.name, o.opType, o.name)
	if len(o.setters) == 0 {
		code.Line(header + ";")
	} else {
		code.Line(header)
		code.Indent(func() {
			for ii, setter := range o.setters {
				if ii == len(o.setters)-1 {
					setter += ";"
				}
				code.Line(setter)
			}
		})
	}
	code.Linef("graph.AddOp(%s);", o.name)
}

// hostValue returns the C++ type and the initializer of a scalar literal held in dtype.
func hostValue(f *codegen.Frame, value fx.Argument, dtype dtypes.DType) (cType, init string) {
	cType, found := cTypes[dtype]
	if !found {
		panic(errors.Wrapf(ir.ErrUnsupportedConfiguration, "backend %q doesn't support scalars of dtype %s", BackendName, dtype))
	}
	if dtype.IsFloat16() {
		v, ok := value.AsFloat()
		if !ok {
			panic(errors.Errorf("scalar %s can't be converted to %s", value, dtype))
		}
		return cType, fmt.Sprintf("0x%04x", dtype.Bits16(v))
	}
	literal := f.Literal(value, dtype)
	if dtype == dtypes.Bool {
		return cType, literal
	}
	return cType, fmt.Sprintf("static_cast<%s>(%s)", cType, literal)
}

// declareScalar declares a rank-0 Const operator named name holding value in dtype.
func declareScalar(f *codegen.Frame, name string, value fx.Argument, dtype dtypes.DType) string {
	geType := geDType(dtype)
	cType, init := hostValue(f, value, dtype)
	f.Code.Linef("%s %s_value = %s;", cType, name, init)
	f.Code.Linef("auto %s_tensor = genTensor(std::vector<int64_t>(), FORMAT_NCHW, %s);", name, geType)
	f.Code.Linef(`setTensorData(%s_tensor, reinterpret_cast<uint8_t*>(&%s_value), sizeof(%s), "%s");`,
		name, name, cType, name)
	newOp("Const", name).Attr("value", name+"_tensor").Emit(f.Code)
	return name
}

// scalarConst declares a rank-0 Const operator local to the node, and returns its symbol.
func scalarConst(f *codegen.Frame, role string, value fx.Argument, dtype dtypes.DType) string {
	return declareScalar(f, f.Local(role), value, dtype)
}

// tensorOrScalar returns the symbol of arg if it's a tensor, otherwise the symbol of a new Const holding the
// literal in dtype.
func tensorOrScalar(f *codegen.Frame, role string, arg fx.Argument, dtype dtypes.DType) string {
	if f.IsTensor(arg) {
		return f.Ref(arg)
	}
	return scalarConst(f, role, arg, dtype)
}

// intsConst declares an int32 Const operator with the given dimensions and values, and returns its symbol.
func intsConst(f *codegen.Frame, role string, dims, values []int) string {
	name := f.Local(role)
	cpp := f.Literals()
	f.Code.Linef("std::vector<int32_t> %s_value%s;", name, cpp.Ints(values))
	f.Code.Linef("auto %s_tensor = genTensor(std::vector<int64_t>%s, FORMAT_ND, DT_INT32);", name, cpp.Ints(dims))
	f.Code.Linef(`setTensorData(%s_tensor, reinterpret_cast<uint8_t*>(%s_value.data()), %s_value.size() * sizeof(int32_t), "%s");`,
		name, name, name, name)
	newOp("Const", name).Attr("value", name+"_tensor").Emit(f.Code)
	return name
}

// vectorConst declares a 1D int32 Const operator with the values.
func vectorConst(f *codegen.Frame, role string, values []int) string {
	return intsConst(f, role, []int{len(values)}, values)
}

// shapeOf declares a Shape operator of the tensor x, and returns its symbol.
func shapeOf(f *codegen.Frame, role, x string) string {
	name := f.Local(role)
	newOp("Shape", name).Input("x", x).Emit(f.Code)
	return name
}
