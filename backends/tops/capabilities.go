// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package tops

import (
	"github.com/gomlx/fxlower/backends"
	"github.com/gomlx/fxlower/pkg/conversion"
	"github.com/gomlx/fxlower/pkg/core/dtypes"
	"github.com/gomlx/fxlower/pkg/ir"
)

// Capabilities of the Tops backend. Rsqrt and the fused matrix multiply-add are rewritten beforehand,
// so they have no emitter.
var Capabilities = backends.Capabilities{
	Operations: map[ir.OpType]bool{
		ir.OpTypeAbs:        true,
		ir.OpTypeExp:        true,
		ir.OpTypeLog:        true,
		ir.OpTypeNeg:        true,
		ir.OpTypeReciprocal: true,
		ir.OpTypeRelu:       true,
		ir.OpTypeSqrt:       true,
		ir.OpTypeSquare:     true,

		ir.OpTypeAdd:       true,
		ir.OpTypeSub:       true,
		ir.OpTypeMul:       true,
		ir.OpTypeDiv:       true,
		ir.OpTypeLessEqual: true,

		ir.OpTypeReduceSum:  true,
		ir.OpTypeReduceMean: true,
		ir.OpTypeReduceMax:  true,

		ir.OpTypeTranShape: true,
		ir.OpTypeSqueeze:   true,
		ir.OpTypeUnsqueeze: true,
		ir.OpTypePermute:   true,

		ir.OpTypeGather:   true,
		ir.OpTypeIdentity: true,
		ir.OpTypeGetItem:  true,
		ir.OpTypeCast:     true,

		ir.OpTypeConv2D:            true,
		ir.OpTypeMaxPoolWithArgmax: true,
		ir.OpTypeMatMul:            true,
	},

	DTypes: map[dtypes.DType]bool{
		dtypes.Bool:     true,
		dtypes.Int8:     true,
		dtypes.Int16:    true,
		dtypes.Int32:    true,
		dtypes.Int64:    true,
		dtypes.Uint8:    true,
		dtypes.Float16:  true,
		dtypes.BFloat16: true,
		dtypes.Float32:  true,
		dtypes.Float64:  true,
	},
}

// primitiveTypes maps dtypes to the HLIR builder primitive types.
var primitiveTypes = map[dtypes.DType]string{
	dtypes.Bool:     "builder::PrimitiveType::PRED()",
	dtypes.Int8:     "builder::PrimitiveType::S8()",
	dtypes.Int16:    "builder::PrimitiveType::S16()",
	dtypes.Int32:    "builder::PrimitiveType::S32()",
	dtypes.Int64:    "builder::PrimitiveType::S64()",
	dtypes.Uint8:    "builder::PrimitiveType::U8()",
	dtypes.Float16:  "builder::PrimitiveType::F16()",
	dtypes.BFloat16: "builder::PrimitiveType::BF16()",
	dtypes.Float32:  "builder::PrimitiveType::F32()",
	dtypes.Float64:  "builder::PrimitiveType::F64()",
}

// cTypes maps dtypes to the C++ type holding host values. 16 bits floats are held as their raw bits.
var cTypes = map[dtypes.DType]string{
	dtypes.Bool:     "bool",
	dtypes.Int8:     "int8_t",
	dtypes.Int16:    "int16_t",
	dtypes.Int32:    "int32_t",
	dtypes.Int64:    "int64_t",
	dtypes.Uint8:    "uint8_t",
	dtypes.Float16:  "uint16_t",
	dtypes.BFloat16: "uint16_t",
	dtypes.Float32:  "float",
	dtypes.Float64:  "double",
}

// newRegistry creates the conversions of the traced operators supported by Tops.
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
	r.Register("aten.square", conversion.UnaryOp(ir.OpTypeSquare))
	r.Register("aten.reciprocal", conversion.UnaryOp(ir.OpTypeReciprocal))

	r.Register("aten.sum", conversion.ReduceOp(ir.OpTypeReduceSum))
	r.Register("aten.mean", conversion.ReduceOp(ir.OpTypeReduceMean))
	r.Register("aten.amax", conversion.ReduceOp(ir.OpTypeReduceMax))

	r.RegisterAll(conversion.Reshape, "aten.view", "aten._unsafe_view", "aten.reshape")
	r.Register("aten.squeeze", conversion.Squeeze)
	r.Register("aten.unsqueeze", conversion.Unsqueeze)
	r.Register("aten.permute", conversion.Permute)

	r.Register("aten.clone", conversion.Clone)
	r.RegisterAll(conversion.GetItem, "operator.getitem", "_operator.getitem")
	r.Register("prims.convert_element_type", conversion.ConvertElementType)
	r.Register("aten.gather", conversion.Gather)

	r.Register("aten.convolution", conversion.Convolution)
	r.Register("aten.max_pool2d_with_indices", conversion.MaxPool2DWithIndices)
	r.Register("aten.mm", conversion.MM)
	return r
}
