// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package conversion

import (
	"testing"

	"github.com/gomlx/fxlower/pkg/core/dtypes"
	"github.com/gomlx/fxlower/pkg/fx"
	"github.com/gomlx/fxlower/pkg/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Aliases
var (
	F32  = dtypes.Float32
	Meta = fx.NewMeta
)

func binaryConstructor(opType ir.OpType) Constructor {
	return func(node *fx.Node) (ir.Op, error) {
		x, err := Tensor(node, 0, "self")
		if err != nil {
			return nil, err
		}
		return ir.NewBinary(opType, x, Arg(node, 1, "other"))
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry("test")
	r.Register("aten.add", binaryConstructor(ir.OpTypeAdd))
	r.Register("aten.le", binaryConstructor(ir.OpTypeSub))
	r.Register("aten.le.Scalar", binaryConstructor(ir.OpTypeLessEqual))
	r.RegisterAll(binaryConstructor(ir.OpTypeMul), "aten.mul.Tensor", "aten.mul.Scalar")
	assert.Equal(t, []string{"aten.add", "aten.le", "aten.le.Scalar", "aten.mul.Scalar", "aten.mul.Tensor"}, r.Targets())
	require.Panics(t, func() { r.Register("aten.add", binaryConstructor(ir.OpTypeAdd)) })

	g := fx.New("registry")
	x := g.Placeholder("x", Meta(F32, 2))
	addTensor := g.Call("aten.add.Tensor", []any{x, x}, nil, Meta(F32, 2))
	addScalar := g.Call("aten.add.Scalar", []any{x, 2}, nil, Meta(F32, 2))
	le := g.Call("aten.le.Scalar", []any{x, 0.5}, nil, Meta(dtypes.Bool, 2))
	div := g.Call("aten.div.Tensor", []any{x, x}, nil, Meta(F32, 2))
	mulScalar := g.Call("aten.mul.Scalar", []any{x, 2}, nil, Meta(F32, 2))
	badAdd := g.Call("aten.add.Tensor", []any{1.0, x}, nil, Meta(F32, 2))

	// Packet registrations bind all overloads.
	for _, node := range []*fx.Node{addTensor, addScalar} {
		op, err := r.Convert(node)
		require.NoError(t, err)
		assert.Equal(t, ir.OpTypeAdd, op.Type())
	}

	// Exact overloads take precedence over packets.
	op, err := r.Convert(le)
	require.NoError(t, err)
	assert.Equal(t, ir.OpTypeLessEqual, op.Type())
	op, err = r.Convert(mulScalar)
	require.NoError(t, err)
	assert.Equal(t, ir.OpTypeMul, op.Type())

	_, err = r.Convert(div)
	require.ErrorIs(t, err, ir.ErrUnsupportedOperator)
	assert.False(t, r.Has(div.Target))

	_, err = r.Convert(badAdd)
	require.Error(t, err)
	require.NotErrorIs(t, err, ir.ErrUnsupportedOperator)

	_, err = r.Convert(x)
	require.Error(t, err, "placeholders can't be converted")
}

func TestArgs(t *testing.T) {
	g := fx.New("args")
	x := g.Placeholder("x", Meta(F32, 2, 3))
	node := g.Call("aten.sum.dim_IntList", []any{x, -1}, map[string]any{"keepdim": true, "dtype": dtypes.Float16}, Meta(F32, 2, 1))

	axes, err := IntList(node, 1, "dim", nil)
	require.NoError(t, err)
	assert.Equal(t, []int{-1}, axes)
	keepDim, err := Bool(node, 2, "keepdim", false)
	require.NoError(t, err)
	assert.True(t, keepDim)
	dtype, err := DTypeArg(node, 3, "dtype")
	require.NoError(t, err)
	assert.Equal(t, dtypes.Float16, dtype)
	alpha, err := Float(node, 4, "alpha", 1.5)
	require.NoError(t, err)
	assert.Equal(t, 1.5, alpha)
	_, err = Int(node, 0, "self", 0)
	require.Error(t, err)
	_, err = Tensor(node, 1, "dim")
	require.Error(t, err)
	_, err = BoolList(node, 1, "dim")
	require.Error(t, err)
}

func TestReductionAxes(t *testing.T) {
	axes, err := ReductionAxes([]int{-1, 1}, 4)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3}, axes)
	axes, err = ReductionAxes(nil, 3)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, axes)
	axes, err = ReductionAxes([]int{-1}, 0)
	require.NoError(t, err)
	assert.Empty(t, axes)
	_, err = ReductionAxes([]int{4}, 4)
	require.Error(t, err)
	_, err = ReductionAxes([]int{3, -1}, 4)
	require.Error(t, err)

	meta := ReducedMeta(Meta(F32, 2, 3, 4, 4), []int{2, 3}, true)
	assert.Equal(t, []int{2, 3, 1, 1}, meta.Dims())
	meta = ReducedMeta(Meta(F32, 2, 3, 4, 4), []int{0, 2, 3}, false)
	assert.Equal(t, []int{3}, meta.Dims())
	assert.Equal(t, []int{1}, meta.Stride)
}

func targets(g *fx.Graph) []string {
	var names []string
	for _, node := range g.Nodes() {
		if node.Kind == fx.CallFunction {
			names = append(names, node.Target.String())
		}
	}
	return names
}

func TestRsqrtRule(t *testing.T) {
	g := fx.New("rsqrt")
	x := g.Placeholder("x", Meta(F32, 4))
	rsqrt := g.Call("aten.rsqrt.default", []any{x}, nil, Meta(F32, 4))
	g.Output(rsqrt)

	rewritten, err := Rewrite(g, StandardRules())
	require.NoError(t, err)
	require.NoError(t, rewritten.Validate())
	assert.Equal(t, []string{"aten.sqrt.default", "aten.reciprocal.default"}, targets(rewritten))
	assert.Equal(t, "rsqrt_reciprocal", rewritten.OutputNode().Args[0].List()[0].Node().Name)
	assert.Equal(t, 3, g.Len(), "source graph must not be modified")

	// Without rules the graph is copied unchanged.
	copied, err := Rewrite(g, nil)
	require.NoError(t, err)
	assert.Equal(t, g.String(), copied.String())
}

func TestAddmmRule(t *testing.T) {
	build := func(kwargs map[string]any) *fx.Graph {
		g := fx.New("addmm")
		c := g.Placeholder("c", Meta(F32, 4))
		a := g.Placeholder("a", Meta(F32, 2, 3))
		b := g.Placeholder("b", Meta(F32, 3, 4))
		addmm := g.Call("aten.addmm.default", []any{c, a, b}, kwargs, Meta(F32, 2, 4))
		g.Output(addmm)
		return g
	}

	rewritten, err := Rewrite(build(nil), []Rule{AddmmRule})
	require.NoError(t, err)
	assert.Equal(t, []string{"aten.mm.default", "aten.add.Tensor"}, targets(rewritten))

	rewritten, err = Rewrite(build(map[string]any{"beta": 0.5, "alpha": 2}), []Rule{AddmmRule})
	require.NoError(t, err)
	require.NoError(t, rewritten.Validate())
	assert.Equal(t, []string{"aten.mul.Tensor", "aten.mul.Tensor", "aten.mm.default", "aten.add.Tensor"}, targets(rewritten))
	mulC := rewritten.Node("addmm_mul")
	require.NotNil(t, mulC)
	assert.Equal(t, "c", mulC.Args[0].Node().Name)
	beta, _ := mulC.Args[1].AsFloat()
	assert.Equal(t, 0.5, beta)
	add := rewritten.Node("addmm_add")
	assert.Equal(t, []string{"addmm_mul", "addmm_mm"}, []string{add.Args[0].Node().Name, add.Args[1].Node().Name})
}

func buildVarMean(correction any, keepDim bool) *fx.Graph {
	g := fx.New("var_mean")
	x := g.Placeholder("x", Meta(F32, 2, 3, 4, 4))
	resultMeta := Meta(F32, 3)
	if keepDim {
		resultMeta = Meta(F32, 1, 3, 1, 1)
	}
	varMean := g.Call("aten.var_mean.correction", []any{x, []int{0, -2, -1}},
		map[string]any{"correction": correction, "keepdim": keepDim}, resultMeta)
	variance := g.Call("operator.getitem", []any{varMean, 0}, nil, resultMeta.Clone())
	mean := g.Call("operator.getitem", []any{varMean, 1}, nil, resultMeta.Clone())
	add := g.Call("aten.add.Tensor", []any{variance, 1e-5}, nil, resultMeta.Clone())
	g.Output(add, mean, varMean)
	return g
}

func TestVarMeanRule(t *testing.T) {
	rewritten, err := Rewrite(buildVarMean(0, true), StandardRules())
	require.NoError(t, err)
	require.NoError(t, rewritten.Validate())
	assert.Equal(t, []string{"aten.mean.dim", "aten.sub.Tensor", "aten.square.default", "aten.sum.dim_IntList",
		"aten.div.Tensor", "aten.add.Tensor"}, targets(rewritten))

	mean := rewritten.Node("var_mean_mean")
	axes, ok := mean.Args[1].AsInts()
	require.True(t, ok)
	assert.Equal(t, []int{0, 2, 3}, axes)
	assert.Equal(t, []int{1, 3, 1, 1}, mean.Meta.Dims())

	div := rewritten.Node("var_mean_div")
	denominator, ok := div.Args[1].AsFloat()
	require.True(t, ok)
	assert.Equal(t, 32.0, denominator, "2*4*4 elements reduced, correction 0")

	// getitem nodes are folded into the replacement values, and the tuple output is flattened.
	add := rewritten.Node("add")
	assert.Same(t, div, add.Args[0].Node())
	outputs := rewritten.OutputNode().Args[0].List()
	require.Len(t, outputs, 3)
	assert.Same(t, mean, outputs[1].Node())
	tuple := outputs[2].List()
	require.Len(t, tuple, 2)
	assert.Same(t, div, tuple[0].Node())
	assert.Same(t, mean, tuple[1].Node())
	assert.Nil(t, rewritten.Node("getitem"))
}

func TestVarianceRule(t *testing.T) {
	g := fx.New("var")
	x := g.Placeholder("x", Meta(F32, 4, 6))
	variance := g.Call("aten.var.correction", []any{x, []int{1}}, nil, Meta(F32, 4))
	g.Output(variance)

	rewritten, err := Rewrite(g, []Rule{VarianceRule})
	require.NoError(t, err)
	div := rewritten.Node("var_div")
	denominator, _ := div.Args[1].AsFloat()
	assert.Equal(t, 5.0, denominator, "default correction is 1")
	assert.Equal(t, []int{4}, div.Meta.Dims())
	keepDim, _ := rewritten.Node("var_sum").Args[2].AsBool()
	assert.False(t, keepDim)

	// Older overload: var.dim(x, dims, unbiased=false, keepdim=true).
	g = fx.New("var_dim")
	x = g.Placeholder("x", Meta(F32, 4, 6))
	variance = g.Call("aten.var.dim", []any{x, []int{1}, false, true}, nil, Meta(F32, 4, 1))
	g.Output(variance)
	rewritten, err = Rewrite(g, []Rule{VarianceRule})
	require.NoError(t, err)
	denominator, _ = rewritten.Node("var_div").Args[1].AsFloat()
	assert.Equal(t, 6.0, denominator)
	assert.Equal(t, []int{4, 1}, rewritten.Node("var_div").Meta.Dims())
}

func TestVarianceUnsupportedCorrection(t *testing.T) {
	for _, correction := range []any{2, 0.5} {
		_, err := Rewrite(buildVarMean(correction, false), StandardRules())
		require.ErrorIs(t, err, ir.ErrUnsupportedReduction, "correction=%v", correction)
		var nodeErr *ir.NodeError
		require.ErrorAs(t, err, &nodeErr)
		assert.Equal(t, "var_mean", nodeErr.Node)
	}
}

func TestVarMeanWithoutKeepDim(t *testing.T) {
	rewritten, err := Rewrite(buildVarMean(1, false), StandardRules())
	require.NoError(t, err)
	require.NoError(t, rewritten.Validate())
	squeeze := rewritten.Node("var_mean_squeeze")
	require.NotNil(t, squeeze)
	assert.Equal(t, []int{3}, squeeze.Meta.Dims())
	assert.Same(t, squeeze, rewritten.OutputNode().Args[0].List()[1].Node())
	denominator, _ := rewritten.Node("var_mean_div").Args[1].AsFloat()
	assert.Equal(t, 31.0, denominator)
}

func TestRewriteNameCollisions(t *testing.T) {
	// A node of the source graph already uses the name a rule would generate.
	g := fx.New("collision")
	x := g.Placeholder("x", Meta(F32, 4))
	rsqrt := g.Call("aten.rsqrt.default", []any{x}, nil, Meta(F32, 4))
	other := g.AddNode(&fx.Node{Name: "rsqrt_sqrt", Kind: fx.CallFunction, Target: fx.ParseTarget("aten.neg.default"),
		Args: []fx.Argument{fx.Ref(rsqrt)}, Meta: Meta(F32, 4)})
	g.Output(other)

	rewritten, err := Rewrite(g, StandardRules())
	require.NoError(t, err)
	require.NoError(t, rewritten.Validate())
	assert.NotNil(t, rewritten.Node("rsqrt_sqrt_1"))
	assert.Equal(t, "aten.neg.default", rewritten.Node("rsqrt_sqrt").Target.String())
}
