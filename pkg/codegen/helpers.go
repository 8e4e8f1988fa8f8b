// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package codegen

import (
	"slices"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/fxlower/pkg/core/dtypes"
	"github.com/gomlx/fxlower/pkg/core/shapes"
	"github.com/gomlx/fxlower/pkg/fx"
	"github.com/gomlx/fxlower/pkg/ir"
	"github.com/pkg/errors"
)

// Pair returns the two spatial values of a 1 or 2 elements list, repeating a single value.
func Pair(values []int) (int, int) {
	switch len(values) {
	case 1:
		return values[0], values[0]
	case 2:
		return values[0], values[1]
	}
	exceptions.Panicf("expected 1 or 2 spatial values, got %v", values)
	return 0, 0
}

// NCHW4 expands spatial values to the 4 elements NCHW form, filling the batch and channel axes:
// NCHW4([2, 2], 1) is [1, 1, 2, 2].
func NCHW4(values []int, fill int) []int {
	h, w := Pair(values)
	return []int{fill, fill, h, w}
}

// NHWC4 expands spatial values to the 4 elements NHWC form: NHWC4([3, 3], 1) is [1, 3, 3, 1].
func NHWC4(values []int, fill int) []int {
	h, w := Pair(values)
	return []int{fill, h, w, fill}
}

// Pads4 expands a (height, width) padding to the 4 elements (top, bottom, left, right) form:
// Pads4([1, 2]) is [1, 1, 2, 2].
func Pads4(padding []int) []int {
	h, w := Pair(padding)
	return []int{h, h, w, w}
}

// NormalizeAxes converts negative axes to axis+rank, and returns them sorted and without duplicates.
func NormalizeAxes(axes []int, rank int) ([]int, error) {
	normalized := make([]int, 0, len(axes))
	for _, axis := range axes {
		adjusted := axis
		if adjusted < 0 {
			adjusted += rank
		}
		if adjusted < 0 || (adjusted >= rank && !(rank == 0 && adjusted == 0)) {
			return nil, errors.Errorf("axis %d out of range for rank %d", axis, rank)
		}
		normalized = append(normalized, adjusted)
	}
	slices.Sort(normalized)
	return slices.Compact(normalized), nil
}

// ResolveShape resolves the one inferred (-1) dimension of a reshape into a tensor with total elements.
// It fails with ir.ErrNonIntegralReshape if total is not a multiple of the other dimensions.
func ResolveShape(dims []int, total int) ([]int, error) {
	return shapes.ResolveInferred(dims, total)
}

// ScalarDType returns the dtype in which scalar literals of the node being emitted are materialized:
// the dtype of its result, or for comparisons (whose result is a bool) the dtype of its first tensor operand.
func ScalarDType(f *Frame) dtypes.DType {
	if f.op != nil && f.op.Type().IsComparison() {
		for _, input := range f.node.Inputs() {
			if input.Meta != nil {
				return input.Meta.DType()
			}
		}
	}
	if f.node.Meta == nil {
		panic(errors.Wrapf(ir.ErrMetadataMissing, "node %q: no dtype for its scalar operands", f.node.Name))
	}
	return f.node.Meta.DType()
}

// OutputStrideIsContiguous returns whether the last axis of the node's result is contiguous, which
// backends use to pick between channels-first and channels-last layouts.
func OutputStrideIsContiguous(meta *fx.TensorMeta) bool {
	if len(meta.Stride) == 0 {
		return true
	}
	return meta.Stride[len(meta.Stride)-1] == 1
}
