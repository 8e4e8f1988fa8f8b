// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package ir

import (
	"fmt"
	"testing"

	"github.com/gomlx/fxlower/pkg/core/dtypes"
	"github.com/gomlx/fxlower/pkg/fx"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRefs(t *testing.T, names ...string) []fx.Argument {
	t.Helper()
	g := fx.New("test")
	refs := make([]fx.Argument, len(names))
	for ii, name := range names {
		refs[ii] = fx.Ref(g.Placeholder(name, fx.NewMeta(dtypes.Float32, 1, 3, 8, 8)))
	}
	return refs
}

func TestOpTypeNames(t *testing.T) {
	for _, opType := range AllOpTypes() {
		parsed, err := OpTypeString(opType.String())
		require.NoError(t, err, opType.String())
		assert.Equal(t, opType, parsed)
	}
	assert.Equal(t, "transhape", OpTypeTranShape.String())
	assert.Equal(t, "conv2dbackward", OpTypeConv2DBackward.String())
	parsed, err := OpTypeString("MaxPoolWithArgmax")
	require.NoError(t, err)
	assert.Equal(t, OpTypeMaxPoolWithArgmax, parsed)
	assert.True(t, OpTypeRsqrt.IsUnary())
	assert.True(t, OpTypeLessEqual.IsBinary())
	assert.True(t, OpTypeLessEqual.IsComparison())
	assert.True(t, OpTypeReduceMax.IsReduction())
	assert.False(t, OpTypeTranShape.IsReduction())
	_, err = OpTypeString("softmax")
	assert.Error(t, err)
}

func TestElementWise(t *testing.T) {
	refs := newRefs(t, "x", "y")
	x, y := refs[0], refs[1]

	add, err := NewBinary(OpTypeAdd, x, fx.Float(1))
	require.NoError(t, err)
	assert.Equal(t, OpTypeAdd, add.Type())

	_, err = NewBinary(OpTypeAdd, fx.Float(1), y)
	require.Error(t, err, "first operand must be a tensor")
	_, err = NewBinary(OpTypeAdd, x, fx.Ints(1, 2))
	require.Error(t, err, "lists are not valid operands")
	_, err = NewBinary(OpTypeAbs, x, y)
	require.Error(t, err)
	_, err = NewUnary(OpTypeAdd, x)
	require.Error(t, err)

	relu, err := NewUnary(OpTypeRelu, x)
	require.NoError(t, err)
	assert.Equal(t, OpTypeRelu, relu.Type())

	where, err := NewWhere(x, fx.Float(0), y)
	require.NoError(t, err)
	assert.Equal(t, OpTypeWhere, where.Type())
	_, err = NewWhere(fx.Bool(true), x, y)
	require.Error(t, err)
}

func TestShapeOps(t *testing.T) {
	x := newRefs(t, "x")[0]

	reshape, err := NewTranShape(x, []int{-1, 4})
	require.NoError(t, err)
	assert.Equal(t, []int{-1, 4}, reshape.Shape)
	_, err = NewTranShape(x, []int{-1, -1})
	require.Error(t, err)
	_, err = NewTranShape(x, []int{-2, 4})
	require.Error(t, err)

	_, err = NewReduce(OpTypeReduceSum, x, []int{1, -3}, true)
	require.NoError(t, err, "repetition is only checked after normalization, when the rank is known")
	_, err = NewReduce(OpTypeReduceSum, x, []int{1, 1}, true)
	require.Error(t, err)
	_, err = NewUnsqueeze(x, nil)
	require.Error(t, err)
	_, err = NewPermute(x, []int{0, 0, 1})
	require.Error(t, err)
	_, err = NewExpand(x, []int{-1, 3, -2})
	require.Error(t, err)
}

func TestConvolution(t *testing.T) {
	refs := newRefs(t, "input", "weight", "grad")
	input, weight, grad := refs[0], refs[1], refs[2]
	window := Window{Stride: []int{2, 2}, Padding: []int{1, 1}, Dilation: []int{1, 1}}

	conv, err := NewConv2D(input, weight, fx.None(), window, false, []int{0, 0}, 1)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2}, conv.Stride)

	// Transposed fails regardless of the other arguments, even invalid ones.
	_, err = NewConv2D(fx.Float(1), weight, fx.None(), Window{}, true, nil, 0)
	require.ErrorIs(t, err, ErrUnsupportedConfiguration)
	_, err = NewConv2D(input, weight, fx.None(), window, false, []int{0, 1}, 1)
	require.ErrorIs(t, err, ErrUnsupportedConfiguration)
	_, err = NewConv2D(input, weight, fx.None(), Window{Stride: []int{2, 2, 2}, Padding: []int{0}, Dilation: []int{1}}, false, nil, 1)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrUnsupportedConfiguration)

	_, err = NewConv2DBackward(grad, input, weight, window, false, nil, 1, [3]bool{true, true, false})
	require.NoError(t, err)
	_, err = NewConv2DBackward(grad, input, weight, window, false, nil, 1, [3]bool{true, true, true})
	require.ErrorIs(t, err, ErrUnsupportedConfiguration)
	_, err = NewConv2DBackward(grad, input, weight, window, true, nil, 1, [3]bool{true, false, false})
	require.ErrorIs(t, err, ErrUnsupportedConfiguration)
}

func TestMaxPool(t *testing.T) {
	refs := newRefs(t, "x", "grad", "indices")
	pool, err := NewMaxPoolWithArgmax(refs[0], []int{3, 3}, Window{}, false)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 3}, pool.Stride, "stride defaults to the kernel size")
	assert.Equal(t, []int{0}, pool.Padding)

	_, err = NewMaxPoolWithArgmax(refs[0], []int{3, 3}, Window{Dilation: []int{2}}, false)
	require.ErrorIs(t, err, ErrUnsupportedConfiguration)

	backward, err := NewMaxPoolWithArgmaxBackward(refs[1], refs[0], refs[2], []int{2}, Window{Stride: []int{2}, Padding: []int{1}}, true)
	require.NoError(t, err)
	assert.True(t, backward.CeilMode)
	_, err = NewMaxPoolWithArgmaxBackward(refs[1], refs[0], fx.Int(0), []int{2}, Window{}, false)
	require.Error(t, err)
}

func TestNodeError(t *testing.T) {
	g := fx.New("test")
	x := g.Placeholder("x", fx.NewMeta(dtypes.Float32, 2))
	node := g.Call("aten.softmax.default", []any{x, -1}, nil, fx.NewMeta(dtypes.Float32, 2))

	err := WrapNode(errors.Wrapf(ErrUnsupportedOperator, "no conversion"), "op1", node)
	require.ErrorIs(t, err, ErrUnsupportedOperator)
	var nodeErr *NodeError
	require.True(t, errors.As(err, &nodeErr))
	assert.Equal(t, "op1", nodeErr.Symbol)
	assert.Equal(t, "softmax", nodeErr.Node)
	assert.Equal(t, `op1 (node "softmax", target aten.softmax.default): no conversion: unsupported operator`, err.Error())
	assert.Equal(t, err.Error(), fmt.Sprintf("%v", err))

	// Wrapping twice keeps the innermost identification.
	assert.Same(t, err, WrapNode(err, "op2", node))
	assert.NoError(t, WrapNode(nil, "op1", node))
}
