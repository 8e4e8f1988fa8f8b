// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package ascend

import (
	"github.com/gomlx/fxlower/pkg/conversion"
	"github.com/gomlx/fxlower/pkg/ir"
)

// newRegistry creates the conversions of the traced operators supported by Ascend.
// Targets are packets, binding every overload of the operator.
func newRegistry() *conversion.Registry {
	r := conversion.NewRegistry(BackendName)

	r.Register("aten.add", conversion.BinaryOp(ir.OpTypeAdd))
	r.Register("aten.sub", conversion.BinaryOp(ir.OpTypeSub))
	r.Register("aten.mul", conversion.BinaryOp(ir.OpTypeMul))
	r.Register("aten.div", conversion.BinaryOp(ir.OpTypeDiv))
	r.Register("aten.le", conversion.BinaryOp(ir.OpTypeLessEqual))

	r.Register("aten.abs", conversion.UnaryOp(ir.OpTypeAbs))
	r.Register("aten.exp", conversion.UnaryOp(ir.OpTypeExp))
	r.Register("aten.log", conversion.UnaryOp(ir.OpTypeLog))
	r.Register("aten.neg", conversion.UnaryOp(ir.OpTypeNeg))
	r.Register("aten.relu", conversion.UnaryOp(ir.OpTypeRelu))
	r.Register("aten.sqrt", conversion.UnaryOp(ir.OpTypeSqrt))
	r.Register("aten.rsqrt", conversion.UnaryOp(ir.OpTypeRsqrt))
	r.Register("aten.reciprocal", conversion.UnaryOp(ir.OpTypeReciprocal))
	r.Register("aten.square", conversion.UnaryOp(ir.OpTypeSquare))

	r.Register("aten.sum", conversion.ReduceOp(ir.OpTypeReduceSum))
	r.Register("aten.mean", conversion.ReduceOp(ir.OpTypeReduceMean))
	r.Register("aten.amax", conversion.ReduceOp(ir.OpTypeReduceMax))

	r.RegisterAll(conversion.Reshape, "aten.view", "aten._unsafe_view", "aten.reshape")
	r.Register("aten.squeeze", conversion.Squeeze)
	r.Register("aten.unsqueeze", conversion.Unsqueeze)
	r.Register("aten.permute", conversion.Permute)
	r.Register("aten.expand", conversion.Expand)
	r.Register("aten.broadcast_to", conversion.BroadcastTo)

	r.Register("aten.clone", conversion.Clone)
	r.RegisterAll(conversion.GetItem, "operator.getitem", "_operator.getitem")
	r.Register("prims.convert_element_type", conversion.ConvertElementType)
	r.Register("aten.gather", conversion.Gather)
	r.Register("aten.scatter", conversion.Scatter)

	r.Register("aten.convolution", conversion.Convolution)
	r.Register("aten.convolution_backward", conversion.ConvolutionBackward)
	r.Register("aten.max_pool2d_with_indices", conversion.MaxPool2DWithIndices)
	r.Register("aten.max_pool2d_with_indices_backward", conversion.MaxPool2DWithIndicesBackward)
	r.Register("aten.mm", conversion.MM)
	r.Register("aten.addmm", conversion.Addmm)

	r.Register("aten.where", conversion.Where)
	r.Register("aten.scalar_tensor", conversion.ScalarTensor)
	r.Register("aten.zeros_like", conversion.ZerosLike)
	return r
}
