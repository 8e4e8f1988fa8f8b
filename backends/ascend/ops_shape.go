// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package ascend

import (
	"slices"

	"github.com/gomlx/fxlower/pkg/codegen"
	"github.com/gomlx/fxlower/pkg/core/dtypes"
	"github.com/gomlx/fxlower/pkg/ir"
	"github.com/pkg/errors"
)

func init() {
	emitters[ir.OpTypeTranShape] = emitTranShape
	emitters[ir.OpTypeSqueeze] = emitSqueeze
	emitters[ir.OpTypeUnsqueeze] = emitUnsqueeze
	emitters[ir.OpTypePermute] = emitPermute
	emitters[ir.OpTypeBroadcastTo] = emitBroadcastTo
	emitters[ir.OpTypeExpand] = emitExpand

	emitters[ir.OpTypeGather] = emitGather
	emitters[ir.OpTypeScatter] = emitScatter
	emitters[ir.OpTypeIdentity] = emitIdentity
	emitters[ir.OpTypeGetItem] = emitGetItem
	emitters[ir.OpTypeCast] = emitCast

	emitters[ir.OpTypeWhere] = emitWhere
	emitters[ir.OpTypeScalarTensor] = emitScalarTensor
	emitters[ir.OpTypeZerosLike] = emitZerosLike
}

// emitTranShape resolves the inferred dimension with the number of elements of the input, since
// TranShape takes the final shape as an attribute.
func emitTranShape(f *codegen.Frame, op ir.Op) error {
	t := op.(*ir.TranShape)
	shape, err := codegen.ResolveShape(t.Shape, f.MetaOf(t.X).NumElements())
	if err != nil {
		return err
	}
	newOp("TranShape", f.Symbol()).
		Input("x", f.Ref(t.X)).
		Attr("outShape", f.Literals().Ints(shape)).
		Emit(f.Code)
	return nil
}

func emitSqueeze(f *codegen.Frame, op ir.Op) error {
	s := op.(*ir.Squeeze)
	meta := f.MetaOf(s.X)
	axes, err := codegen.NormalizeAxes(s.Axes, meta.Rank())
	if err != nil {
		return err
	}
	newOp("Squeeze", f.Symbol()).
		Input("x", f.Ref(s.X)).
		Attr("axis", f.Literals().Ints(axes)).
		Emit(f.Code)
	return nil
}

func emitUnsqueeze(f *codegen.Frame, op ir.Op) error {
	u := op.(*ir.Unsqueeze)
	newOp("Unsqueeze", f.Symbol()).
		Input("x", f.Ref(u.X)).
		Attr("axes", f.Literals().Ints(u.Axes)).
		Emit(f.Code)
	return nil
}

func emitPermute(f *codegen.Frame, op ir.Op) error {
	p := op.(*ir.Permute)
	newOp("Permute", f.Symbol()).
		Input("x", f.Ref(p.X)).
		Attr("order", f.Literals().Ints(p.Order)).
		Emit(f.Code)
	return nil
}

// emitBroadcastTo materializes a literal operand as a scalar Const of the result dtype.
func emitBroadcastTo(f *codegen.Frame, op ir.Op) error {
	b := op.(*ir.BroadcastTo)
	x := tensorOrScalar(f, "scalar", b.X, f.Meta().DType())
	shape := vectorConst(f, "shape", b.Shape)
	newOp("BroadcastTo", f.Symbol()).Input("x", x).Input("shape", shape).Emit(f.Code)
	return nil
}

// expandShape replaces the -1 entries of shape by the input dimension, aligned to the right.
func expandShape(shape, inputDims []int) ([]int, error) {
	offset := len(shape) - len(inputDims)
	if offset < 0 {
		return nil, errors.Errorf("expand: shape %v has fewer axes than the input %v", shape, inputDims)
	}
	resolved := slices.Clone(shape)
	for ii, dim := range resolved {
		if dim != -1 {
			continue
		}
		if ii < offset {
			return nil, errors.Errorf("expand: -1 is not allowed for the new leading axis %d of shape %v", ii, shape)
		}
		resolved[ii] = inputDims[ii-offset]
	}
	return resolved, nil
}

func emitExpand(f *codegen.Frame, op ir.Op) error {
	e := op.(*ir.Expand)
	shape, err := expandShape(e.Shape, f.MetaOf(e.X).Dims())
	if err != nil {
		return err
	}
	newOp("ExpandD", f.Symbol()).
		Input("x", f.Ref(e.X)).
		Attr("shape", f.Literals().Ints(shape)).
		Emit(f.Code)
	return nil
}

func emitGather(f *codegen.Frame, op ir.Op) error {
	g := op.(*ir.Gather)
	dim := vectorConst(f, "dim", []int{g.Axis})
	newOp("GatherD", f.Symbol()).
		Input("x", f.Ref(g.X)).
		Input("dim", dim).
		Input("index", f.Ref(g.Index)).
		Attr("dim", f.Literals().Int(g.Axis)).
		Emit(f.Code)
	return nil
}

// emitScatter broadcasts a literal source to the shape of the index first.
func emitScatter(f *codegen.Frame, op ir.Op) error {
	s := op.(*ir.Scatter)
	index := f.Ref(s.Index)
	updates := ""
	if f.IsTensor(s.Src) {
		updates = f.Ref(s.Src)
	} else {
		value := scalarConst(f, "value", s.Src, f.Meta().DType())
		shape := shapeOf(f, "index_shape", index)
		updates = f.Local("updates")
		newOp("BroadcastTo", updates).Input("x", value).Input("shape", shape).Emit(f.Code)
	}
	newOp("ScatterElements", f.Symbol()).
		Input("data", f.Ref(s.X)).
		Input("indices", index).
		Input("updates", updates).
		Attr("axis", f.Literals().Int(s.Axis)).
		Emit(f.Code)
	return nil
}

func emitIdentity(f *codegen.Frame, op ir.Op) error {
	i := op.(*ir.Identity)
	newOp("Identity", f.Symbol()).Input("x", f.Ref(i.X)).Emit(f.Code)
	return nil
}

// emitGetItem selects an output of a multi-output operator (e.g. IdentityN, MaxPoolWithArgmax) by its index.
func emitGetItem(f *codegen.Frame, op ir.Op) error {
	g := op.(*ir.GetItem)
	newOp("Identity", f.Symbol()).
		Call("set_input_x(%s, %d)", f.Ref(g.X), g.Index).
		Emit(f.Code)
	return nil
}

func emitCast(f *codegen.Frame, op ir.Op) error {
	c := op.(*ir.Cast)
	newOp("Cast", f.Symbol()).
		Input("x", f.Ref(c.X)).
		Attr("dst_type", geDType(c.DType)).
		Emit(f.Code)
	return nil
}

// emitWhere broadcasts both branches to the shape of the condition before selecting.
func emitWhere(f *codegen.Frame, op ir.Op) error {
	w := op.(*ir.Where)
	dtype := f.Meta().DType()
	cond := f.Ref(w.Cond)
	x := tensorOrScalar(f, "x", w.X, dtype)
	y := tensorOrScalar(f, "y", w.Y, dtype)
	shape := shapeOf(f, "cond_shape", cond)
	x1, x2 := f.Local("x1"), f.Local("x2")
	newOp("BroadcastTo", x1).Input("x", x).Input("shape", shape).Emit(f.Code)
	newOp("BroadcastTo", x2).Input("x", y).Input("shape", shape).Emit(f.Code)
	newOp("Select", f.Symbol()).
		Input("condition", cond).
		Input("x1", x1).
		Input("x2", x2).
		Emit(f.Code)
	return nil
}

func emitScalarTensor(f *codegen.Frame, op ir.Op) error {
	s := op.(*ir.ScalarTensor)
	dtype := s.DType
	if dtype == dtypes.InvalidDType {
		dtype = f.Meta().DType()
	}
	declareScalar(f, f.Symbol(), s.Value, dtype)
	return nil
}

func emitZerosLike(f *codegen.Frame, op ir.Op) error {
	z := op.(*ir.ZerosLike)
	newOp("ZerosLike", f.Symbol()).Input("x", f.Ref(z.X)).Emit(f.Code)
	return nil
}
