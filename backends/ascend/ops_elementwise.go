// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package ascend

import (
	"github.com/gomlx/fxlower/pkg/codegen"
	"github.com/gomlx/fxlower/pkg/core/dtypes"
	"github.com/gomlx/fxlower/pkg/fx"
	"github.com/gomlx/fxlower/pkg/ir"
	"github.com/gomlx/fxlower/pkg/support/xslices"
	"github.com/pkg/errors"
)

// unaryOps maps unary operators to the GE operator: all of them take the "x" input.
var unaryOps = map[ir.OpType]string{
	ir.OpTypeAbs:        "Abs",
	ir.OpTypeExp:        "Exp",
	ir.OpTypeLog:        "Log",
	ir.OpTypeNeg:        "Neg",
	ir.OpTypeRsqrt:      "Rsqrt",
	ir.OpTypeReciprocal: "Reciprocal",
	ir.OpTypeRelu:       "Relu",
	ir.OpTypeSqrt:       "Sqrt",
	ir.OpTypeSquare:     "Square",
}

// binaryOps maps binary operators to the GE operator, with inputs "x1" and "x2".
// Division is handled by emitDiv.
var binaryOps = map[ir.OpType]string{
	ir.OpTypeAdd:       "AddV2",
	ir.OpTypeSub:       "Sub",
	ir.OpTypeMul:       "Mul",
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
	for opType := range binaryOps {
		emitters[opType] = emitBinary
	}
	emitters[ir.OpTypeDiv] = emitDiv
	for opType := range reduceOps {
		emitters[opType] = emitReduce
	}
}

func emitUnary(f *codegen.Frame, op ir.Op) error {
	u := op.(*ir.Unary)
	newOp(unaryOps[u.Op], f.Symbol()).Input("x", f.Ref(u.X)).Emit(f.Code)
	return nil
}

// emitBinary materializes a literal second operand as a scalar Const in the node's scalar dtype.
func emitBinary(f *codegen.Frame, op ir.Op) error {
	b := op.(*ir.Binary)
	x := f.Ref(b.X)
	y := tensorOrScalar(f, "scalar", b.Y, codegen.ScalarDType(f))
	newOp(binaryOps[b.Op], f.Symbol()).Input("x1", x).Input("x2", y).Emit(f.Code)
	return nil
}

// emitDiv emits DivNoNan for tensor divisors, and a multiplication by the reciprocal for literal ones.
// A literal zero divisor keeps a true division, so the result follows the IEEE infinities and NaN.
func emitDiv(f *codegen.Frame, op ir.Op) error {
	b := op.(*ir.Binary)
	x := f.Ref(b.X)
	if f.IsTensor(b.Y) {
		newOp("DivNoNan", f.Symbol()).Input("x1", x).Input("x2", f.Ref(b.Y)).Emit(f.Code)
		return nil
	}
	divisor, ok := b.Y.AsFloat()
	if !ok {
		return errors.Errorf("div: invalid divisor %s", b.Y)
	}
	if divisor == 0 {
		y := scalarConst(f, "scalar", b.Y, codegen.ScalarDType(f))
		newOp("Div", f.Symbol()).Input("x1", x).Input("x2", y).Emit(f.Code)
		return nil
	}
	newOp("Muls", f.Symbol()).
		Input("x", x).
		Attr("value", f.Literals().Float(1/divisor, dtypes.Float32)).
		Emit(f.Code)
	return nil
}

// reductionAxes normalizes the axes of a reduction of x: no axes means all of them.
func reductionAxes(f *codegen.Frame, x fx.Argument, axes []int) []int {
	rank := f.MetaOf(x).Rank()
	if len(axes) == 0 {
		return xslices.Iota(0, rank)
	}
	normalized, err := codegen.NormalizeAxes(axes, rank)
	if err != nil {
		panic(errors.Wrap(ir.ErrUnsupportedReduction, err.Error()))
	}
	return normalized
}

func emitReduce(f *codegen.Frame, op ir.Op) error {
	r := op.(*ir.Reduce)
	axes := vectorConst(f, "axes", reductionAxes(f, r.X, r.Axes))
	newOp(reduceOps[r.Op], f.Symbol()).
		Input("x", f.Ref(r.X)).
		Input("axes", axes).
		Attr("keep_dims", f.Literals().Bool(r.KeepDims)).
		Emit(f.Code)
	return nil
}
