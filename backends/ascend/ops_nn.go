// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package ascend

import (
	"github.com/gomlx/fxlower/pkg/codegen"
	"github.com/gomlx/fxlower/pkg/fx"
	"github.com/gomlx/fxlower/pkg/ir"
	"github.com/pkg/errors"
)

func init() {
	emitters[ir.OpTypeConv2D] = emitConv2D
	emitters[ir.OpTypeConv2DBackward] = emitConv2DBackward
	emitters[ir.OpTypeMaxPoolWithArgmax] = emitMaxPoolWithArgmax
	emitters[ir.OpTypeMaxPoolWithArgmaxBackward] = emitMaxPoolWithArgmaxBackward
	emitters[ir.OpTypeMatMul] = emitMatMul
	emitters[ir.OpTypeFusedMatMulAdd] = emitFusedMatMulAdd
}

// convAttrs sets the window attributes shared by the convolution operators, all in NCHW order.
func convAttrs(f *codegen.Frame, o *geOp, window ir.Window, groups int, dataFormat string) *geOp {
	cpp := f.Literals()
	return o.
		Attr("strides", cpp.Ints(codegen.NCHW4(window.Stride, 1))).
		Attr("pads", cpp.Ints(codegen.Pads4(window.Padding))).
		Attr("dilations", cpp.Ints(codegen.NCHW4(window.Dilation, 1))).
		Attr("groups", cpp.Int(groups)).
		Attr("data_format", cpp.String(dataFormat))
}

// emitConv2D picks the data format from the layout of the traced result: a non-contiguous last axis means
// the tensor is laid out channels-last.
func emitConv2D(f *codegen.Frame, op ir.Op) error {
	c := op.(*ir.Conv2D)
	dataFormat := "NCHW"
	if !codegen.OutputStrideIsContiguous(f.Meta()) {
		dataFormat = "NHWC"
	}
	conv := newOp("Conv2D", f.Symbol()).
		Input("x", f.Ref(c.Input)).
		Input("filter", f.Ref(c.Weight))
	if !c.Bias.IsNone() {
		conv.Input("bias", f.Ref(c.Bias))
	}
	convAttrs(f, conv, c.Window, c.Groups, dataFormat).Emit(f.Code)
	return nil
}

// emitConv2DBackward emits the requested gradients, and packs them in an IdentityN with two outputs. If only
// one gradient is requested, it fills both outputs.
func emitConv2DBackward(f *codegen.Frame, op ir.Op) error {
	c := op.(*ir.Conv2DBackward)
	gradOutput, input, weight := f.Ref(c.GradOutput), f.Ref(c.Input), f.Ref(c.Weight)
	var grads []string
	if c.OutputMask[0] {
		inputShape := shapeOf(f, "input_shape", input)
		name := f.Local("input")
		backprop := newOp("Conv2DBackpropInput", name).
			Input("input_size", inputShape).
			Input("filter", weight).
			Input("out_backprop", gradOutput)
		convAttrs(f, backprop, c.Window, c.Groups, "NCHW").Emit(f.Code)
		grads = append(grads, name)
	}
	if c.OutputMask[1] {
		filterShape := shapeOf(f, "filter_shape", weight)
		name := f.Local("filter")
		backprop := newOp("Conv2DBackpropFilter", name).
			Input("x", input).
			Input("filter_size", filterShape).
			Input("out_backprop", gradOutput)
		convAttrs(f, backprop, c.Window, c.Groups, "NCHW").Emit(f.Code)
		grads = append(grads, name)
	}
	if len(grads) == 1 {
		grads = append(grads, grads[0])
	}
	newOp("IdentityN", f.Symbol()).
		Call("create_dynamic_input_x(2)").
		Call("set_dynamic_input_x(0, %s)", grads[0]).
		Call("set_dynamic_input_x(1, %s)", grads[1]).
		Call("create_dynamic_output_y(2)").
		Emit(f.Code)
	return nil
}

// padPool emits the explicit spatial padding of a pooling input, since the pooling operators only take
// "VALID" padding. It returns x unchanged if there is no padding.
func padPool(f *codegen.Frame, padOp, x string, padding []int) (padded, paddings string) {
	ph, pw := codegen.Pair(padding)
	if ph == 0 && pw == 0 {
		return x, ""
	}
	paddings = intsConst(f, "paddings", []int{4, 2}, []int{0, 0, 0, 0, ph, ph, pw, pw})
	padded = f.Local("pad")
	newOp(padOp, padded).Input("x", x).Input("paddings", paddings).Emit(f.Code)
	return padded, paddings
}

func checkCeilMode(ceilMode bool, op ir.OpType) {
	if ceilMode {
		panic(errors.Wrapf(ir.ErrUnsupportedConfiguration, "backend %q: %s with ceil_mode", BackendName, op))
	}
}

// emitMaxPoolWithArgmax emits a MaxPoolWithArgmax in NHWC attribute order, whose two outputs (values and
// indices) are selected by GetItem.
func emitMaxPoolWithArgmax(f *codegen.Frame, op ir.Op) error {
	m := op.(*ir.MaxPoolWithArgmax)
	checkCeilMode(m.CeilMode, m.Type())
	cpp := f.Literals()
	x, _ := padPool(f, "Pad", f.Ref(m.X), m.Padding)
	newOp("MaxPoolWithArgmax", f.Symbol()).
		Input("x", x).
		Attr("ksize", cpp.Ints(codegen.NHWC4(m.KernelSize, 1))).
		Attr("strides", cpp.Ints(codegen.NHWC4(m.Stride, 1))).
		Attr("padding", cpp.String("VALID")).
		Emit(f.Code)
	return nil
}

// emitMaxPoolWithArgmaxBackward recomputes the forward pooling and uses MaxPoolGrad, which doesn't need the
// indices. With padding, the gradient is computed on the padded input and the padding is then cropped.
func emitMaxPoolWithArgmaxBackward(f *codegen.Frame, op ir.Op) error {
	m := op.(*ir.MaxPoolWithArgmaxBackward)
	checkCeilMode(m.CeilMode, m.Type())
	cpp := f.Literals()
	ksize := cpp.Ints(codegen.NCHW4(m.KernelSize, 1))
	strides := cpp.Ints(codegen.NCHW4(m.Stride, 1))
	pool := func(o *geOp) *geOp {
		return o.
			Attr("ksize", ksize).
			Attr("strides", strides).
			Attr("padding", cpp.String("VALID")).
			Attr("data_format", cpp.String("NCHW"))
	}

	x, paddings := padPool(f, "PadV3", f.Ref(m.X), m.Padding)
	forward := f.Local("fwd_out")
	pool(newOp("MaxPool", forward).Input("x", x)).Emit(f.Code)

	grad := f.Symbol()
	if paddings != "" {
		grad = f.Local("bwd")
	}
	pool(newOp("MaxPoolGrad", grad).
		Input("x1", x).
		Input("x2", forward).
		Input("grad", f.Ref(m.GradOutput))).
		Emit(f.Code)
	if paddings != "" {
		newOp("PadV3Grad", f.Symbol()).Input("x", grad).Input("paddings", paddings).Emit(f.Code)
	}
	return nil
}

func emitMatMul(f *codegen.Frame, op ir.Op) error {
	m := op.(*ir.MatMul)
	newOp("MatMul", f.Symbol()).Input("x1", f.Ref(m.X)).Input("x2", f.Ref(m.Y)).Emit(f.Code)
	return nil
}

// emitFusedMatMulAdd computes beta*C + (alpha*A) x B. The scaling is skipped for factors of 1.
func emitFusedMatMulAdd(f *codegen.Frame, op ir.Op) error {
	m := op.(*ir.FusedMatMulAdd)
	dtype := f.Meta().DType()
	scale := func(role string, x string, factor float64) string {
		if factor == 1 {
			return x
		}
		value := scalarConst(f, role, fx.Float(factor), dtype)
		scaled := f.Local(role + "_mul")
		newOp("Mul", scaled).Input("x1", x).Input("x2", value).Emit(f.Code)
		return scaled
	}
	c := scale("beta", f.Ref(m.C), m.Beta)
	a := scale("alpha", f.Ref(m.A), m.Alpha)
	product := f.Local("matmul")
	newOp("MatMul", product).Input("x1", a).Input("x2", f.Ref(m.B)).Emit(f.Code)
	newOp("AddV2", f.Symbol()).Input("x1", c).Input("x2", product).Emit(f.Code)
	return nil
}
