// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package ascend

import (
	"github.com/gomlx/fxlower/backends"
	"github.com/gomlx/fxlower/pkg/core/dtypes"
	"github.com/gomlx/fxlower/pkg/ir"
)

// Capabilities of the Ascend backend: the set of supported operators and data types.
var Capabilities = backends.Capabilities{
	Operations: map[ir.OpType]bool{
		// Unary element-wise.
		ir.OpTypeAbs:        true,
		ir.OpTypeExp:        true,
		ir.OpTypeLog:        true,
		ir.OpTypeNeg:        true,
		ir.OpTypeRsqrt:      true,
		ir.OpTypeReciprocal: true,
		ir.OpTypeRelu:       true,
		ir.OpTypeSqrt:       true,
		ir.OpTypeSquare:     true,

		// Binary element-wise.
		ir.OpTypeAdd:       true,
		ir.OpTypeSub:       true,
		ir.OpTypeMul:       true,
		ir.OpTypeDiv:       true,
		ir.OpTypeLessEqual: true,

		ir.OpTypeReduceSum:  true,
		ir.OpTypeReduceMean: true,
		ir.OpTypeReduceMax:  true,

		ir.OpTypeTranShape:   true,
		ir.OpTypeSqueeze:     true,
		ir.OpTypeUnsqueeze:   true,
		ir.OpTypePermute:     true,
		ir.OpTypeBroadcastTo: true,
		ir.OpTypeExpand:      true,

		ir.OpTypeGather:   true,
		ir.OpTypeScatter:  true,
		ir.OpTypeIdentity: true,
		ir.OpTypeGetItem:  true,
		ir.OpTypeCast:     true,

		ir.OpTypeConv2D:                    true,
		ir.OpTypeConv2DBackward:            true,
		ir.OpTypeMaxPoolWithArgmax:         true,
		ir.OpTypeMaxPoolWithArgmaxBackward: true,
		ir.OpTypeMatMul:                    true,
		ir.OpTypeFusedMatMulAdd:            true,

		ir.OpTypeWhere:        true,
		ir.OpTypeScalarTensor: true,
		ir.OpTypeZerosLike:    true,
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

// geDTypes maps dtypes to the GE data type enum.
var geDTypes = map[dtypes.DType]string{
	dtypes.Bool:     "DT_BOOL",
	dtypes.Int8:     "DT_INT8",
	dtypes.Int16:    "DT_INT16",
	dtypes.Int32:    "DT_INT32",
	dtypes.Int64:    "DT_INT64",
	dtypes.Uint8:    "DT_UINT8",
	dtypes.Float16:  "DT_FLOAT16",
	dtypes.BFloat16: "DT_BF16",
	dtypes.Float32:  "DT_FLOAT",
	dtypes.Float64:  "DT_DOUBLE",
}

// cTypes maps dtypes to the C++ type used to hold host values. 16 bits floats are held as their raw bits.
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
