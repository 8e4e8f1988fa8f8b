// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package tops

import (
	"github.com/gomlx/fxlower/pkg/codegen"
	"github.com/gomlx/fxlower/pkg/fx"
	"github.com/gomlx/fxlower/pkg/ir"
	"github.com/gomlx/fxlower/pkg/support/xslices"
	"github.com/pkg/errors"
)

var unaryOps = map[ir.OpType]string{
	ir.OpTypeAbs:        "Abs",
	ir.OpTypeExp:        "Exp",
	ir.OpTypeLog:        "Log",
	ir.OpTypeNeg:        "Neg",
	ir.OpTypeReciprocal: "Reciprocal",
	ir.OpTypeRelu:       "Relu",
	ir.OpTypeSqrt:       "Sqrt",
}

var binaryOps = map[ir.OpType]string{
	ir.OpTypeAdd:       "Add",
	ir.OpTypeSub:       "Sub",
	ir.OpTypeMul:       "Mul",
	ir.OpTypeDiv:       "Div",
	ir.OpTypeLessEqual: "LessEqual",
}

var reduceOps = map[ir.OpType]string{
	ir.OpTypeReduceSum:  "ReduceSum",
	ir.OpTypeReduceMean: "ReduceMean",
	ir.OpTypeReduceMax:  "ReduceMax",
}

func init() {
	for opType := range unaryOps {
		emitters[opType] = emitUnary
	}
	emitters[ir.OpTypeSquare] = emitSquare
	for opType := range binaryOps {
		emitters[opType] = emitBinary
	}
	for opType := range reduceOps {
		emitters[opType] = emitReduce
	}

	emitters[ir.OpTypeTranShape] = emitReshape
	emitters[ir.OpTypeSqueeze] = emitSqueeze
	emitters[ir.OpTypeUnsqueeze] = emitUnsqueeze
	emitters[ir.OpTypePermute] = emitTranspose

	emitters[ir.OpTypeGather] = emitGather
	emitters[ir.OpTypeIdentity] = emitIdentity
	emitters[ir.OpTypeGetItem] = emitGetItem
	emitters[ir.OpTypeCast] = emitConvert

	emitters[ir.OpTypeConv2D] = emitConv2D
	emitters[ir.OpTypeMaxPoolWithArgmax] = emitMaxPool2D
	emitters[ir.OpTypeMatMul] = emitGemm
}

func emitUnary(_ *emitter, f *codegen.Frame, op ir.Op) error {
	u := op.(*ir.Unary)
	declare(f, f.Symbol(), unaryOps[u.Op], f.Ref(u.X))
	return nil
}

func emitSquare(_ *emitter, f *codegen.Frame, op ir.Op) error {
	x := f.Ref(op.(*ir.Unary).X)
	declare(f, f.Symbol(), "Mul", x, x)
	return nil
}

// emitBinary materializes a literal second operand as a constant in the node's scalar dtype.
// Floating point division by a non-zero literal is emitted as a multiplication by its reciprocal.
func emitBinary(_ *emitter, f *codegen.Frame, op ir.Op) error {
	b := op.(*ir.Binary)
	fn := binaryOps[b.Op]
	x := f.Ref(b.X)
	if f.IsTensor(b.Y) {
		declare(f, f.Symbol(), fn, x, f.Ref(b.Y))
		return nil
	}
	dtype := codegen.ScalarDType(f)
	value := b.Y
	if divisor, ok := value.AsFloat(); ok && b.Op == ir.OpTypeDiv && dtype.IsFloat() && divisor != 0 {
		fn, value = "Mul", fx.Float(1/divisor)
	}
	declare(f, f.Symbol(), fn, x, scalarConst(f, "scalar", value, dtype))
	return nil
}

// emitReduce calls builder::ReduceX(x, keepdims, axes). Mean reductions take the result type too, and
// their axes can be overridden by the backend configuration.
func emitReduce(e *emitter, f *codegen.Frame, op ir.Op) error {
	r := op.(*ir.Reduce)
	cpp := f.Literals()
	rank := f.MetaOf(r.X).Rank()
	axes := r.Axes
	if r.Op == ir.OpTypeReduceMean && e.reduceMeanAxes != nil {
		axes = e.reduceMeanAxes
	}
	if len(axes) == 0 {
		axes = xslices.Iota(0, rank)
	}
	axes, err := codegen.NormalizeAxes(axes, rank)
	if err != nil {
		return errors.Wrap(ir.ErrUnsupportedReduction, err.Error())
	}
	args := []string{f.Ref(r.X), cpp.Bool(r.KeepDims), cpp.Ints(axes)}
	if r.Op == ir.OpTypeReduceMean {
		args = append(args, resultType(f))
	}
	declare(f, f.Symbol(), reduceOps[r.Op], args...)
	return nil
}

func emitReshape(_ *emitter, f *codegen.Frame, op ir.Op) error {
	t := op.(*ir.TranShape)
	shape, err := codegen.ResolveShape(t.Shape, f.MetaOf(t.X).NumElements())
	if err != nil {
		return err
	}
	shapeType := typeOf(f, "shape", shape, f.Meta().DType())
	declare(f, f.Symbol(), "Reshape", f.Ref(t.X), shapeType)
	return nil
}

func emitSqueeze(_ *emitter, f *codegen.Frame, op ir.Op) error {
	s := op.(*ir.Squeeze)
	meta := f.MetaOf(s.X)
	axes, err := codegen.NormalizeAxes(s.Axes, meta.Rank())
	if err != nil {
		return err
	}
	declare(f, f.Symbol(), "Squeeze", f.Ref(s.X), axesConst(f, "axes", axes), resultType(f))
	return nil
}

func emitUnsqueeze(_ *emitter, f *codegen.Frame, op ir.Op) error {
	u := op.(*ir.Unsqueeze)
	declare(f, f.Symbol(), "Unsqueeze", f.Ref(u.X), axesConst(f, "axes", u.Axes), resultType(f))
	return nil
}

func emitTranspose(_ *emitter, f *codegen.Frame, op ir.Op) error {
	p := op.(*ir.Permute)
	declare(f, f.Symbol(), "Transpose", f.Ref(p.X), f.Literals().Ints(p.Order))
	return nil
}

func emitGather(_ *emitter, f *codegen.Frame, op ir.Op) error {
	g := op.(*ir.Gather)
	declare(f, f.Symbol(), "Gather", f.Ref(g.X), f.Ref(g.Index), f.Literals().Int(g.Axis), resultType(f))
	return nil
}

// emitIdentity binds a new symbol to the same HLIR value: the builder ops are immutable.
func emitIdentity(_ *emitter, f *codegen.Frame, op ir.Op) error {
	f.Code.Linef("builder::Op %s = %s;", f.Symbol(), f.Ref(op.(*ir.Identity).X))
	return nil
}

// emitGetItem aliases the first output of a multi-output operator. MaxPool2D is built without indices,
// so it has no other outputs.
func emitGetItem(_ *emitter, f *codegen.Frame, op ir.Op) error {
	g := op.(*ir.GetItem)
	if g.Index != 0 {
		return errors.Wrapf(ir.ErrUnsupportedConfiguration, "backend %q: only the first output of %s can be used, got index %d",
			BackendName, g.X, g.Index)
	}
	f.Alias(g.X)
	return nil
}

func emitConvert(_ *emitter, f *codegen.Frame, op ir.Op) error {
	c := op.(*ir.Cast)
	outType := typeOf(f, "type", f.Meta().Dims(), c.DType)
	declare(f, f.Symbol(), "Convert", f.Ref(c.X), outType)
	return nil
}

func emitConv2D(_ *emitter, f *codegen.Frame, op ir.Op) error {
	c := op.(*ir.Conv2D)
	cpp := f.Literals()
	inputs := []string{f.Ref(c.Input), f.Ref(c.Weight)}
	if !c.Bias.IsNone() {
		inputs = append(inputs, f.Ref(c.Bias))
	}
	name := f.Local("inputs")
	f.Code.Linef("std::vector<builder::Op> %s = %s;", name, cpp.List(inputs...))
	sh, sw := codegen.Pair(c.Stride)
	dh, dw := codegen.Pair(c.Dilation)
	declare(f, f.Symbol(), "Conv2D", name, cpp.Int(c.Groups), cpp.String("NOTSET"), cpp.String("NCHW"),
		cpp.Ints([]int{sh, sw}), cpp.Ints(codegen.Pads4(c.Padding)), cpp.Ints([]int{dh, dw}))
	return nil
}

// emitMaxPool2D builds the pooling without indices: only its values can be used.
func emitMaxPool2D(_ *emitter, f *codegen.Frame, op ir.Op) error {
	m := op.(*ir.MaxPoolWithArgmax)
	cpp := f.Literals()
	kh, kw := codegen.Pair(m.KernelSize)
	sh, sw := codegen.Pair(m.Stride)
	declare(f, f.Symbol(), "MaxPool2D", f.Ref(m.X), cpp.Ints([]int{kh, kw}), cpp.Bool(m.CeilMode), cpp.Bool(false),
		cpp.String("NOTSET"), cpp.String("NCHW"), cpp.Ints([]int{sh, sw}), cpp.Ints(codegen.Pads4(m.Padding)))
	return nil
}

func emitGemm(_ *emitter, f *codegen.Frame, op ir.Op) error {
	m := op.(*ir.MatMul)
	declare(f, f.Symbol(), "Gemm", f.Literals().List(f.Ref(m.X), f.Ref(m.Y)))
	return nil
}
