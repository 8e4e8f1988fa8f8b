// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package ir

// OpType is an enum of all backend operators the lowering knows about.
//
// Each IR variant reports its OpType, which is the dispatch key used by emitters and by
// backend capability tables. Its String() is the lower-case name without the prefix (e.g. "transhape").
type OpType int

//go:generate go tool enumer -type=OpType -trimprefix=OpType -transform=lower -output=gen_optype_enumer.go optype.go

const (
	OpTypeInvalid OpType = iota

	// Unary element-wise.
	OpTypeAbs
	OpTypeExp
	OpTypeLog
	OpTypeNeg
	OpTypeRsqrt
	OpTypeReciprocal
	OpTypeRelu
	OpTypeSqrt
	OpTypeSquare

	// Binary element-wise.
	OpTypeAdd
	OpTypeSub
	OpTypeMul
	OpTypeDiv
	OpTypeLessEqual

	// Reductions.
	OpTypeReduceSum
	OpTypeReduceMean
	OpTypeReduceMax

	// Shape transforms.
	OpTypeTranShape
	OpTypeSqueeze
	OpTypeUnsqueeze
	OpTypePermute
	OpTypeBroadcastTo
	OpTypeExpand

	// Indexing and data movement.
	OpTypeGather
	OpTypeScatter
	OpTypeIdentity
	OpTypeGetItem
	OpTypeCast

	// Structural.
	OpTypeConv2D
	OpTypeConv2DBackward
	OpTypeMaxPoolWithArgmax
	OpTypeMaxPoolWithArgmaxBackward
	OpTypeMatMul
	OpTypeFusedMatMulAdd

	// Helpers.
	OpTypeWhere
	OpTypeScalarTensor
	OpTypeZerosLike

	// OpTypeLast should always be kept the last, it is used as a counter/marker for OpType.
	OpTypeLast
)

// IsUnary returns whether t is an element-wise unary operator.
func (t OpType) IsUnary() bool { return t >= OpTypeAbs && t <= OpTypeSquare }

// IsBinary returns whether t is an element-wise binary operator.
func (t OpType) IsBinary() bool { return t >= OpTypeAdd && t <= OpTypeLessEqual }

// IsReduction returns whether t is a reduction over a set of axes.
func (t OpType) IsReduction() bool { return t >= OpTypeReduceSum && t <= OpTypeReduceMax }

// IsComparison returns whether t produces a boolean result from its operands.
func (t OpType) IsComparison() bool { return t == OpTypeLessEqual }

// AllOpTypes returns all valid operator types, in enum order.
func AllOpTypes() []OpType {
	types := make([]OpType, 0, int(OpTypeLast)-1)
	for t := OpTypeInvalid + 1; t < OpTypeLast; t++ {
		types = append(types, t)
	}
	return types
}
