// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package conversion

import (
	"github.com/gomlx/fxlower/pkg/core/dtypes"
	"github.com/gomlx/fxlower/pkg/fx"
	"github.com/gomlx/fxlower/pkg/ir"
	"github.com/pkg/errors"
)

// This file holds the constructors for the argument layouts of the traced operators (aten, prims and
// operator.getitem). Backends register the ones they support in their own Registry.

// inputMeta returns the metadata of the tensor referenced by arg.
func inputMeta(node *fx.Node, arg fx.Argument) (*fx.TensorMeta, error) {
	if arg.Node() == nil || arg.Node().Meta == nil {
		return nil, errors.Wrapf(ir.ErrMetadataMissing, "input %s of %s", arg, node.Target)
	}
	return arg.Node().Meta, nil
}

// UnaryOp returns the constructor of op(self).
func UnaryOp(op ir.OpType) Constructor {
	return func(node *fx.Node) (ir.Op, error) {
		x, err := Tensor(node, 0, "self")
		if err != nil {
			return nil, err
		}
		return ir.NewUnary(op, x)
	}
}

// BinaryOp returns the constructor of op(self, other) for all overloads of add, sub, mul, div and le.
//
// The "alpha" factor of add/sub and the "rounding_mode" of div are only accepted with their default values.
func BinaryOp(op ir.OpType) Constructor {
	return func(node *fx.Node) (ir.Op, error) {
		x, err := Tensor(node, 0, "self")
		if err != nil {
			return nil, err
		}
		y := Arg(node, 1, "other")
		switch op {
		case ir.OpTypeAdd, ir.OpTypeSub:
			alpha, err := Float(node, 2, "alpha", 1)
			if err != nil {
				return nil, err
			}
			if alpha != 1 {
				return nil, errors.Wrapf(ir.ErrUnsupportedConfiguration, "%s with alpha=%g", node.Target, alpha)
			}
		case ir.OpTypeDiv:
			if mode := Arg(node, 2, "rounding_mode"); !mode.IsNone() {
				return nil, errors.Wrapf(ir.ErrUnsupportedConfiguration, "%s with rounding_mode=%s", node.Target, mode)
			}
		default:
		}
		return ir.NewBinary(op, x, y)
	}
}

// ReduceOp returns the constructor of the reductions sum, mean and amax, for all their overloads:
// sum.default(self), sum.dim_IntList(self, dim, keepdim), mean.default(self), mean.dim(self, dim, keepdim)
// and amax(self, dim=[], keepdim=False).
//
// Axes are normalized with the rank of the input, a missing or empty dim means all axes.
func ReduceOp(op ir.OpType) Constructor {
	return func(node *fx.Node) (ir.Op, error) {
		x, err := Tensor(node, 0, "self")
		if err != nil {
			return nil, err
		}
		meta, err := inputMeta(node, x)
		if err != nil {
			return nil, err
		}
		var dims []int
		var keepDim bool
		dtypeArg := "dtype"
		dtypePos := 1
		if node.Target.Overload != "default" || op == ir.OpTypeReduceMax {
			if dims, err = IntList(node, 1, "dim", nil); err != nil {
				return nil, err
			}
			if keepDim, err = Bool(node, 2, "keepdim", false); err != nil {
				return nil, err
			}
			dtypePos = 3
		}
		if op != ir.OpTypeReduceMax {
			dtype, err := DTypeArg(node, dtypePos, dtypeArg)
			if err != nil {
				return nil, err
			}
			if dtype != dtypes.InvalidDType && dtype != meta.DType() {
				return nil, errors.Wrapf(ir.ErrUnsupportedReduction, "%s accumulating %s in %s", node.Target,
					meta.DType(), dtype)
			}
		}
		axes, err := ReductionAxes(dims, meta.Rank())
		if err != nil {
			return nil, errors.Wrapf(ir.ErrUnsupportedReduction, "%s: %v", node.Target, err)
		}
		return ir.NewReduce(op, x, axes, keepDim)
	}
}

// Reshape is the constructor of view(self, size), _unsafe_view(self, size) and reshape(self, shape).
func Reshape(node *fx.Node) (ir.Op, error) {
	x, err := Tensor(node, 0, "self")
	if err != nil {
		return nil, err
	}
	shape, err := IntList(node, 1, "size", nil)
	if err != nil {
		return nil, err
	}
	if shape == nil {
		if shape, err = IntList(node, 1, "shape", nil); err != nil {
			return nil, err
		}
	}
	return ir.NewTranShape(x, shape)
}

// Squeeze is the constructor of squeeze.dim(self, dim), squeeze.dims(self, dim) and squeeze.default(self).
// The default overload (or a None dim) squeezes every axis of dimension 1 of the input. Explicit axes
// whose dimension is not 1 are left in place, and if no axis is left the node lowers to an Identity.
func Squeeze(node *fx.Node) (ir.Op, error) {
	x, err := Tensor(node, 0, "self")
	if err != nil {
		return nil, err
	}
	meta, err := inputMeta(node, x)
	if err != nil {
		return nil, err
	}
	var axes []int
	if node.Target.Overload == "default" || Arg(node, 1, "dim").IsNone() {
		for axis, dim := range meta.Dims() {
			if dim == 1 {
				axes = append(axes, axis)
			}
		}
	} else if axes, err = IntList(node, 1, "dim", nil); err != nil {
		return nil, err
	}
	dims := meta.Dims()
	squeezed := make([]int, 0, len(axes))
	for _, axis := range axes {
		if axis < 0 {
			axis += meta.Rank()
		}
		if axis < 0 || axis >= meta.Rank() {
			return nil, errors.Errorf("squeeze: axis %d out of range for rank %d", axis, meta.Rank())
		}
		if dims[axis] == 1 {
			squeezed = append(squeezed, axis)
		}
	}
	if len(squeezed) == 0 {
		return ir.NewIdentity(x)
	}
	return ir.NewSqueeze(x, squeezed)
}

// Unsqueeze is the constructor of unsqueeze(self, dim).
func Unsqueeze(node *fx.Node) (ir.Op, error) {
	x, err := Tensor(node, 0, "self")
	if err != nil {
		return nil, err
	}
	dim, err := Int(node, 1, "dim", 0)
	if err != nil {
		return nil, err
	}
	if dim < 0 {
		meta, err := inputMeta(node, x)
		if err != nil {
			return nil, err
		}
		// The inserted axis counts in the rank of the result.
		dim += meta.Rank() + 1
	}
	return ir.NewUnsqueeze(x, []int{dim})
}

// Permute is the constructor of permute(self, dims).
func Permute(node *fx.Node) (ir.Op, error) {
	x, err := Tensor(node, 0, "self")
	if err != nil {
		return nil, err
	}
	order, err := IntList(node, 1, "dims", nil)
	if err != nil {
		return nil, err
	}
	return ir.NewPermute(x, order)
}

// Expand is the constructor of expand(self, size).
func Expand(node *fx.Node) (ir.Op, error) {
	x, err := Tensor(node, 0, "self")
	if err != nil {
		return nil, err
	}
	shape, err := IntList(node, 1, "size", nil)
	if err != nil {
		return nil, err
	}
	return ir.NewExpand(x, shape)
}

// BroadcastTo is the constructor of broadcast_to(self, size).
func BroadcastTo(node *fx.Node) (ir.Op, error) {
	x, err := Tensor(node, 0, "self")
	if err != nil {
		return nil, err
	}
	shape, err := IntList(node, 1, "size", nil)
	if err != nil {
		return nil, err
	}
	return ir.NewBroadcastTo(x, shape)
}

// Clone is the constructor of clone(self, memory_format=None).
func Clone(node *fx.Node) (ir.Op, error) {
	x, err := Tensor(node, 0, "self")
	if err != nil {
		return nil, err
	}
	return ir.NewIdentity(x)
}

// GetItem is the constructor of operator.getitem(tuple, index).
func GetItem(node *fx.Node) (ir.Op, error) {
	x, err := Tensor(node, 0, "")
	if err != nil {
		return nil, err
	}
	index, err := Int(node, 1, "", -1)
	if err != nil {
		return nil, err
	}
	return ir.NewGetItem(x, index)
}

// ConvertElementType is the constructor of prims.convert_element_type(a, dtype).
func ConvertElementType(node *fx.Node) (ir.Op, error) {
	x, err := Tensor(node, 0, "a")
	if err != nil {
		return nil, err
	}
	dtype, err := DTypeArg(node, 1, "dtype")
	if err != nil {
		return nil, err
	}
	if dtype == dtypes.InvalidDType && node.Meta != nil {
		dtype = node.Meta.DType()
	}
	return ir.NewCast(x, dtype)
}

// window reads the stride, padding and dilation arguments at the given positions.
func window(node *fx.Node, pos int, defaultStride []int) (w ir.Window, err error) {
	if w.Stride, err = IntList(node, pos, "stride", defaultStride); err != nil {
		return
	}
	if w.Padding, err = IntList(node, pos+1, "padding", []int{0}); err != nil {
		return
	}
	w.Dilation, err = IntList(node, pos+2, "dilation", []int{1})
	return
}

// Convolution is the constructor of
// convolution(input, weight, bias, stride, padding, dilation, transposed, output_padding, groups).
func Convolution(node *fx.Node) (ir.Op, error) {
	transposed, outputPadding, groups, err := convConfiguration(node, ir.OpTypeConv2D, 6)
	if err != nil {
		return nil, err
	}
	input, err := Tensor(node, 0, "input")
	if err != nil {
		return nil, err
	}
	weight, err := Tensor(node, 1, "weight")
	if err != nil {
		return nil, err
	}
	bias := Arg(node, 2, "bias")
	w, err := window(node, 3, []int{1})
	if err != nil {
		return nil, err
	}
	return ir.NewConv2D(input, weight, bias, w, transposed, outputPadding, groups)
}

// ConvolutionBackward is the constructor of convolution_backward(grad_output, input, weight, bias_sizes,
// stride, padding, dilation, transposed, output_padding, groups, output_mask).
func ConvolutionBackward(node *fx.Node) (ir.Op, error) {
	transposed, outputPadding, groups, err := convConfiguration(node, ir.OpTypeConv2DBackward, 7)
	if err != nil {
		return nil, err
	}
	gradOutput, err := Tensor(node, 0, "grad_output")
	if err != nil {
		return nil, err
	}
	input, err := Tensor(node, 1, "input")
	if err != nil {
		return nil, err
	}
	weight, err := Tensor(node, 2, "weight")
	if err != nil {
		return nil, err
	}
	w, err := window(node, 4, []int{1})
	if err != nil {
		return nil, err
	}
	mask, err := BoolList(node, 10, "output_mask")
	if err != nil {
		return nil, err
	}
	if len(mask) != 3 {
		return nil, errors.Errorf("%s: output_mask must have 3 values, got %v", node.Target, mask)
	}
	return ir.NewConv2DBackward(gradOutput, input, weight, w, transposed, outputPadding, groups,
		[3]bool{mask[0], mask[1], mask[2]})
}

// convConfiguration reads the transposed, output_padding and groups arguments, starting at position pos,
// and rejects the unsupported configurations before any other argument is parsed.
func convConfiguration(node *fx.Node, op ir.OpType, pos int) (transposed bool, outputPadding []int, groups int, err error) {
	if transposed, err = Bool(node, pos, "transposed", false); err != nil {
		return
	}
	if outputPadding, err = IntList(node, pos+1, "output_padding", nil); err != nil {
		return
	}
	if groups, err = Int(node, pos+2, "groups", 1); err != nil {
		return
	}
	err = ir.CheckConvConfiguration(op, transposed, outputPadding, groups)
	return
}

// MaxPool2DWithIndices is the constructor of
// max_pool2d_with_indices(self, kernel_size, stride=[], padding=0, dilation=1, ceil_mode=False).
func MaxPool2DWithIndices(node *fx.Node) (ir.Op, error) {
	x, err := Tensor(node, 0, "self")
	if err != nil {
		return nil, err
	}
	kernelSize, err := IntList(node, 1, "kernel_size", nil)
	if err != nil {
		return nil, err
	}
	w, err := window(node, 2, nil)
	if err != nil {
		return nil, err
	}
	ceilMode, err := Bool(node, 5, "ceil_mode", false)
	if err != nil {
		return nil, err
	}
	return ir.NewMaxPoolWithArgmax(x, kernelSize, w, ceilMode)
}

// MaxPool2DWithIndicesBackward is the constructor of max_pool2d_with_indices_backward(grad_output, self,
// kernel_size, stride, padding, dilation, ceil_mode, indices).
func MaxPool2DWithIndicesBackward(node *fx.Node) (ir.Op, error) {
	gradOutput, err := Tensor(node, 0, "grad_output")
	if err != nil {
		return nil, err
	}
	x, err := Tensor(node, 1, "self")
	if err != nil {
		return nil, err
	}
	kernelSize, err := IntList(node, 2, "kernel_size", nil)
	if err != nil {
		return nil, err
	}
	w, err := window(node, 3, nil)
	if err != nil {
		return nil, err
	}
	ceilMode, err := Bool(node, 6, "ceil_mode", false)
	if err != nil {
		return nil, err
	}
	indices, err := Tensor(node, 7, "indices")
	if err != nil {
		return nil, err
	}
	return ir.NewMaxPoolWithArgmaxBackward(gradOutput, x, indices, kernelSize, w, ceilMode)
}

// MM is the constructor of mm(self, mat2).
func MM(node *fx.Node) (ir.Op, error) {
	x, err := Tensor(node, 0, "self")
	if err != nil {
		return nil, err
	}
	y, err := Tensor(node, 1, "mat2")
	if err != nil {
		return nil, err
	}
	return ir.NewMatMul(x, y)
}

// Addmm is the constructor of addmm(self, mat1, mat2, beta=1, alpha=1), for backends with a native
// fused multiply-add. Others rewrite it first with AddmmRule.
func Addmm(node *fx.Node) (ir.Op, error) {
	c, err := Tensor(node, 0, "self")
	if err != nil {
		return nil, err
	}
	a, err := Tensor(node, 1, "mat1")
	if err != nil {
		return nil, err
	}
	b, err := Tensor(node, 2, "mat2")
	if err != nil {
		return nil, err
	}
	beta, err := Float(node, 3, "beta", 1)
	if err != nil {
		return nil, err
	}
	alpha, err := Float(node, 4, "alpha", 1)
	if err != nil {
		return nil, err
	}
	return ir.NewFusedMatMulAdd(c, a, b, alpha, beta)
}

// Gather is the constructor of gather(self, dim, index).
func Gather(node *fx.Node) (ir.Op, error) {
	x, err := Tensor(node, 0, "self")
	if err != nil {
		return nil, err
	}
	dim, err := Int(node, 1, "dim", 0)
	if err != nil {
		return nil, err
	}
	index, err := Tensor(node, 2, "index")
	if err != nil {
		return nil, err
	}
	return ir.NewGather(x, dim, index)
}

// Scatter is the constructor of scatter.value(self, dim, index, value) and scatter.src(self, dim, index, src).
// Scatters with a reduction are not supported.
func Scatter(node *fx.Node) (ir.Op, error) {
	x, err := Tensor(node, 0, "self")
	if err != nil {
		return nil, err
	}
	dim, err := Int(node, 1, "dim", 0)
	if err != nil {
		return nil, err
	}
	index, err := Tensor(node, 2, "index")
	if err != nil {
		return nil, err
	}
	src := Arg(node, 3, "src")
	if src.IsNone() {
		src = Arg(node, 3, "value")
	}
	if reduce := Arg(node, 4, "reduce"); !reduce.IsNone() {
		return nil, errors.Wrapf(ir.ErrUnsupportedConfiguration, "%s with reduce=%s", node.Target, reduce)
	}
	return ir.NewScatter(x, dim, index, src)
}

// Where is the constructor of where.self(condition, self, other).
func Where(node *fx.Node) (ir.Op, error) {
	cond, err := Tensor(node, 0, "condition")
	if err != nil {
		return nil, err
	}
	return ir.NewWhere(cond, Arg(node, 1, "self"), Arg(node, 2, "other"))
}

// ScalarTensor is the constructor of scalar_tensor(s, dtype=None).
func ScalarTensor(node *fx.Node) (ir.Op, error) {
	dtype, err := DTypeArg(node, 1, "dtype")
	if err != nil {
		return nil, err
	}
	return ir.NewScalarTensor(Arg(node, 0, "s"), dtype)
}

// ZerosLike is the constructor of zeros_like(self, dtype=None, ...). Only the dtype of the input is supported.
func ZerosLike(node *fx.Node) (ir.Op, error) {
	x, err := Tensor(node, 0, "self")
	if err != nil {
		return nil, err
	}
	dtype, err := DTypeArg(node, 1, "dtype")
	if err != nil {
		return nil, err
	}
	if dtype != dtypes.InvalidDType {
		meta, err := inputMeta(node, x)
		if err != nil {
			return nil, err
		}
		if dtype != meta.DType() {
			return nil, errors.Wrapf(ir.ErrUnsupportedConfiguration, "%s converting %s to %s", node.Target,
				meta.DType(), dtype)
		}
	}
	return ir.NewZerosLike(x)
}
