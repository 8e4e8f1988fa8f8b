// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package conversion

import (
	"github.com/gomlx/fxlower/pkg/core/shapes"
	"github.com/gomlx/fxlower/pkg/fx"
	"github.com/gomlx/fxlower/pkg/ir"
	"github.com/gomlx/fxlower/pkg/support/sets"
	"github.com/gomlx/fxlower/pkg/support/xslices"
	"github.com/pkg/errors"
)

// RsqrtRule rewrites rsqrt(x) as reciprocal(sqrt(x)).
var RsqrtRule = Rule{
	Name:  "rsqrt",
	Match: MatchTargets("aten.rsqrt"),
	Replace: func(rw *Rewriter, node *fx.Node) ([]*fx.Node, error) {
		x, err := Tensor(node, 0, "self")
		if err != nil {
			return nil, err
		}
		sqrt := rw.Call("aten.sqrt.default", []any{x}, nil, node.Meta.Clone())
		reciprocal := rw.Call("aten.reciprocal.default", []any{sqrt}, nil, node.Meta.Clone())
		return []*fx.Node{reciprocal}, nil
	},
}

// AddmmRule rewrites addmm(c, a, b, beta=β, alpha=α) as add(c·β, mm(a·α, b)).
// The multiplications are only inserted when the factors are not 1.
var AddmmRule = Rule{
	Name:  "addmm",
	Match: MatchTargets("aten.addmm"),
	Replace: func(rw *Rewriter, node *fx.Node) ([]*fx.Node, error) {
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
		if beta != 1 {
			c = fx.Ref(rw.Call("aten.mul.Tensor", []any{c, beta}, nil, c.Node().Meta.Clone()))
		}
		if alpha != 1 {
			a = fx.Ref(rw.Call("aten.mul.Tensor", []any{a, alpha}, nil, a.Node().Meta.Clone()))
		}
		mm := rw.Call("aten.mm.default", []any{a, b}, nil, node.Meta.Clone())
		add := rw.Call("aten.add.Tensor", []any{c, mm}, nil, node.Meta.Clone())
		return []*fx.Node{add}, nil
	},
}

// VarianceRule rewrites var(x, dims, correction, keepdim) as the explicit chain
// mean(keepdim=true) -> sub -> square -> sum(keepdim) -> div(N - correction),
// where N is the number of reduced elements.
var VarianceRule = Rule{
	Name:  "var",
	Match: MatchTargets("aten.var"),
	Replace: func(rw *Rewriter, node *fx.Node) ([]*fx.Node, error) {
		variance, _, err := expandVariance(rw, node)
		if err != nil {
			return nil, err
		}
		return []*fx.Node{variance}, nil
	},
}

// VarMeanRule rewrites var_mean like VarianceRule, returning the tuple (variance, mean).
var VarMeanRule = Rule{
	Name:  "var_mean",
	Match: MatchTargets("aten.var_mean"),
	Replace: func(rw *Rewriter, node *fx.Node) ([]*fx.Node, error) {
		variance, mean, err := expandVariance(rw, node)
		if err != nil {
			return nil, err
		}
		return []*fx.Node{variance, mean}, nil
	},
}

// StandardRules returns all the rules defined in this package, in the order they should be applied.
func StandardRules() []Rule {
	return []Rule{RsqrtRule, AddmmRule, VarianceRule, VarMeanRule}
}

// varianceCorrection returns the correction of a var/var_mean node: the "correction" argument of the
// ".correction" overload, or 1/0 for the "unbiased" argument of the older overloads.
func varianceCorrection(node *fx.Node) (int, error) {
	if arg, found := node.Kwargs["correction"]; found && !arg.IsNone() {
		value, ok := arg.AsFloat()
		if !ok || value != float64(int(value)) {
			return 0, errors.Wrapf(ir.ErrUnsupportedReduction, "correction %s", arg)
		}
		return int(value), nil
	}
	if node.Target.Overload == "correction" {
		return 1, nil
	}
	unbiasedPos := 2
	if node.Target.Overload == "default" {
		// var.default(x, unbiased): no dims.
		unbiasedPos = 1
	}
	unbiased, err := Bool(node, unbiasedPos, "unbiased", true)
	if err != nil {
		return 0, err
	}
	if unbiased {
		return 1, nil
	}
	return 0, nil
}

// expandVariance emits the mean/centered-square/sum/div chain for a var or var_mean node.
func expandVariance(rw *Rewriter, node *fx.Node) (variance, mean *fx.Node, err error) {
	x, err := Tensor(node, 0, "self")
	if err != nil {
		return nil, nil, err
	}
	meta := x.Node().Meta
	if meta == nil {
		return nil, nil, errors.Wrapf(ir.ErrMetadataMissing, "input %q of %s", x.Node().Name, node.Target)
	}
	var dims []int
	if node.Target.Overload != "default" {
		if dims, err = IntList(node, 1, "dim", nil); err != nil {
			return nil, nil, err
		}
	}
	axes, err := ReductionAxes(dims, meta.Rank())
	if err != nil {
		return nil, nil, err
	}
	correction, err := varianceCorrection(node)
	if err != nil {
		return nil, nil, err
	}
	if correction != 0 && correction != 1 {
		return nil, nil, errors.Wrapf(ir.ErrUnsupportedReduction, "%s: correction must be 0 or 1, got %d", node.Target, correction)
	}
	keepDim, err := Bool(node, -1, "keepdim", false)
	if err != nil {
		return nil, nil, err
	}
	if node.Target.Overload != "correction" && len(node.Args) > 3 {
		// Older overloads take keepdim positionally: var.dim(x, dim, unbiased, keepdim).
		if keepDim, err = Bool(node, 3, "keepdim", false); err != nil {
			return nil, nil, err
		}
	}
	numElements := 1
	for _, axis := range axes {
		numElements *= meta.Dims()[axis]
	}
	denominator := numElements - correction

	keptMeta := ReducedMeta(meta, axes, true)
	resultMeta := ReducedMeta(meta, axes, keepDim)
	mean = rw.Call("aten.mean.dim", []any{x, axes, true}, nil, keptMeta)
	centered := rw.Call("aten.sub.Tensor", []any{x, mean}, nil, meta.Clone())
	squared := rw.Call("aten.square.default", []any{centered}, nil, meta.Clone())
	sum := rw.Call("aten.sum.dim_IntList", []any{squared, axes, keepDim}, nil, resultMeta)
	variance = rw.Call("aten.div.Tensor", []any{sum, float64(denominator)}, nil, resultMeta.Clone())
	if !keepDim {
		mean = rw.Call("aten.squeeze.dims", []any{mean, axes}, nil, resultMeta.Clone())
	}
	return variance, mean, nil
}

// ReductionAxes normalizes the axes of a reduction over a tensor of the given rank: negative axes are
// counted from the end, an empty list means all axes, and the result is sorted.
func ReductionAxes(axes []int, rank int) ([]int, error) {
	if rank == 0 {
		// Scalars accept the axes 0 and -1, and reducing them is a no-op.
		for _, axis := range axes {
			if axis != 0 && axis != -1 {
				return nil, errors.Errorf("reduction axis %d out of range for a scalar", axis)
			}
		}
		return []int{}, nil
	}
	if len(axes) == 0 {
		return xslices.Iota(0, rank), nil
	}
	normalized := sets.Make[int](len(axes))
	for _, axis := range axes {
		adjusted := axis
		if adjusted < 0 {
			adjusted += rank
		}
		if adjusted < 0 || adjusted >= rank {
			return nil, errors.Errorf("reduction axis %d out of range for rank %d", axis, rank)
		}
		if !normalized.Add(adjusted) {
			return nil, errors.Errorf("reduction axis %d given more than once in %v", axis, axes)
		}
	}
	return sets.Sorted(normalized), nil
}

// ReducedMeta returns the metadata of the result of reducing a tensor described by meta over the
// (normalized) axes.
func ReducedMeta(meta *fx.TensorMeta, axes []int, keepDims bool) *fx.TensorMeta {
	reduced := sets.MakeWith(axes...)
	dims := make([]int, 0, meta.Rank())
	for axis, dim := range meta.Dims() {
		switch {
		case !reduced.Has(axis):
			dims = append(dims, dim)
		case keepDims:
			dims = append(dims, 1)
		}
	}
	return meta.WithShape(shapes.Make(meta.DType(), dims...))
}
