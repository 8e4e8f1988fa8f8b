// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package codegen

import (
	"math"
	"testing"

	"github.com/gomlx/fxlower/pkg/conversion"
	"github.com/gomlx/fxlower/pkg/core/dtypes"
	"github.com/gomlx/fxlower/pkg/fx"
	"github.com/gomlx/fxlower/pkg/ir"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Aliases
var (
	F32  = dtypes.Float32
	Meta = fx.NewMeta
)

// testEmitter writes one pseudo-C++ line per node. Unary operators of type failOn write a line and fail.
type testEmitter struct {
	failOn ir.OpType
}

func (testEmitter) SymbolPrefix() string { return "t" }

func (testEmitter) Literals() *Renderer { return CppRenderer }

func (testEmitter) EmitInput(f *Frame) error {
	f.Code.Linef("auto %s = input(%s);", f.Symbol(), f.Literals().Ints(f.Meta().Dims()))
	return nil
}

func (e testEmitter) Emit(f *Frame, op ir.Op) error {
	switch op := op.(type) {
	case *ir.Binary:
		f.Code.Linef("auto %s = %s(%s, %s);", f.Symbol(), op.Op, f.Ref(op.X), f.Ref(op.Y))
	case *ir.Unary:
		f.Code.Linef("auto %s = %s(%s);", f.Symbol(), op.Op, f.Ref(op.X))
		if op.Op == e.failOn {
			return errors.Wrapf(ir.ErrUnknownEmitter, "%s", op.Op)
		}
	case *ir.GetItem:
		f.Alias(op.X)
	default:
		return errors.Wrapf(ir.ErrUnknownEmitter, "%s", op.Type())
	}
	return nil
}

func testRegistry() *conversion.Registry {
	r := conversion.NewRegistry("test")
	r.Register("aten.add", func(node *fx.Node) (ir.Op, error) {
		return ir.NewBinary(ir.OpTypeAdd, conversion.Arg(node, 0, "self"), conversion.Arg(node, 1, "other"))
	})
	r.Register("aten.relu", func(node *fx.Node) (ir.Op, error) {
		return ir.NewUnary(ir.OpTypeRelu, conversion.Arg(node, 0, "self"))
	})
	r.Register("aten.exp", func(node *fx.Node) (ir.Op, error) {
		return ir.NewUnary(ir.OpTypeExp, conversion.Arg(node, 0, "self"))
	})
	r.Register("operator.getitem", func(node *fx.Node) (ir.Op, error) {
		index, err := conversion.Int(node, 1, "index", 0)
		if err != nil {
			return nil, err
		}
		return ir.NewGetItem(conversion.Arg(node, 0, "self"), index)
	})
	return r
}

func testGraph() *fx.Graph {
	g := fx.New("test")
	x := g.Placeholder("x", Meta(F32, 2, 3))
	y := g.Placeholder("y", Meta(F32, 2, 3))
	add := g.Call("aten.add.Tensor", []any{x, y}, nil, Meta(F32, 2, 3))
	add1 := g.Call("aten.add.Tensor", []any{add, 1.5}, nil, Meta(F32, 2, 3))
	relu := g.Call("aten.relu.default", []any{add1}, nil, Meta(F32, 2, 3))
	item := g.Call("operator.getitem", []any{relu, 0}, nil, Meta(F32, 2, 3))
	g.Output(relu, nil, []any{item, x})
	return g
}

func TestEngineRun(t *testing.T) {
	unit, err := NewEngine("test", testRegistry(), testEmitter{}).Run(testGraph())
	require.NoError(t, err)
	assert.Equal(t, "test", unit.Name)
	assert.Equal(t, `auto t0 = input({2, 3});
auto t1 = input({2, 3});
auto t2 = add(t0, t1);
auto t3 = add(t2, 1.5);
auto t4 = relu(t3);
`, unit.Body.String())

	// Inputs in declaration order.
	require.Len(t, unit.Inputs, 2)
	assert.Equal(t, "t0", unit.Inputs[0].Symbol)
	assert.Equal(t, "x", unit.Inputs[0].Node.Name)
	assert.Equal(t, "t1", unit.Inputs[1].Symbol)

	// Outputs flattened: relu, None, getitem (aliased to relu), x.
	require.Len(t, unit.Outputs, 4)
	assert.Equal(t, "t4", unit.Outputs[0].Symbol)
	assert.True(t, unit.Outputs[1].None)
	assert.Equal(t, "t4", unit.Outputs[2].Symbol)
	assert.Equal(t, "getitem", unit.Outputs[2].Node.Name)
	assert.Equal(t, "t0", unit.Outputs[3].Symbol)

	// Unique outputs in first-seen order.
	require.Len(t, unit.UniqueOutputs, 2)
	assert.Equal(t, "t4", unit.UniqueOutputs[0].Symbol)
	assert.Equal(t, "t0", unit.UniqueOutputs[1].Symbol)
	assert.Equal(t, 1, unit.OutputIndex("t0"))
	assert.Equal(t, -1, unit.OutputIndex("t5"))
}

func TestEngineIdempotent(t *testing.T) {
	g := testGraph()
	first, err := NewEngine("test", testRegistry(), testEmitter{}).Run(g)
	require.NoError(t, err)
	second, err := NewEngine("test", testRegistry(), testEmitter{}).Run(g)
	require.NoError(t, err)
	assert.Equal(t, first.Body.String(), second.Body.String())

	// An engine can only be used once.
	engine := NewEngine("test", testRegistry(), testEmitter{})
	_, err = engine.Run(g)
	require.NoError(t, err)
	_, err = engine.Run(g)
	require.Error(t, err)
}

func TestEngineFailures(t *testing.T) {
	t.Run("no partial code", func(t *testing.T) {
		unit, err := NewEngine("test", testRegistry(), testEmitter{failOn: ir.OpTypeRelu}).Run(testGraph())
		require.Error(t, err)
		require.ErrorIs(t, err, ir.ErrUnknownEmitter)
		var nodeErr *ir.NodeError
		require.True(t, errors.As(err, &nodeErr))
		assert.Equal(t, "t4", nodeErr.Symbol)
		assert.Equal(t, "relu", nodeErr.Node)
		assert.Equal(t, "aten.relu.default", nodeErr.Target)
		assert.NotContains(t, unit.Body.String(), "relu")
		assert.Contains(t, unit.Body.String(), "auto t3 = add(t2, 1.5);")
	})

	t.Run("unsupported operator", func(t *testing.T) {
		g := fx.New("unsupported")
		x := g.Placeholder("x", Meta(F32, 4))
		softmax := g.Call("aten._softmax.default", []any{x, -1, false}, nil, Meta(F32, 4))
		g.Output(softmax)
		unit, err := NewEngine("test", testRegistry(), testEmitter{}).Run(g)
		require.ErrorIs(t, err, ir.ErrUnsupportedOperator)
		assert.Contains(t, err.Error(), "_softmax")
		var nodeErr *ir.NodeError
		require.True(t, errors.As(err, &nodeErr))
		assert.Equal(t, "t1", nodeErr.Symbol)
		assert.Equal(t, "_softmax", nodeErr.Node)
		assert.Equal(t, "auto t0 = input({4});\n", unit.Body.String())
	})

	t.Run("unresolved reference", func(t *testing.T) {
		other := fx.New("other")
		foreign := other.Placeholder("foreign", Meta(F32, 4))
		g := fx.New("unresolved")
		x := g.Placeholder("x", Meta(F32, 4))
		add := g.Call("aten.add.Tensor", []any{x, foreign}, nil, Meta(F32, 4))
		g.Output(add)
		_, err := NewEngine("test", testRegistry(), testEmitter{}).Run(g)
		require.ErrorIs(t, err, ir.ErrUnresolvedReference)
	})

	t.Run("metadata missing", func(t *testing.T) {
		g := fx.New("missing")
		x := g.Placeholder("x", nil)
		g.Output(x)
		_, err := NewEngine("test", testRegistry(), testEmitter{}).Run(g)
		require.ErrorIs(t, err, ir.ErrMetadataMissing)

		g = fx.New("missing_scalar_dtype")
		x = g.Placeholder("x", Meta(F32, 4))
		add := g.Call("aten.add.Tensor", []any{x, 2.0}, nil, nil)
		g.Output(add)
		_, err = NewEngine("test", testRegistry(), testEmitter{}).Run(g)
		require.ErrorIs(t, err, ir.ErrMetadataMissing)
	})

	t.Run("no output", func(t *testing.T) {
		g := fx.New("no_output")
		g.Placeholder("x", Meta(F32, 4))
		_, err := NewEngine("test", testRegistry(), testEmitter{}).Run(g)
		require.Error(t, err)
	})
}

func TestNames(t *testing.T) {
	g := fx.New("names")
	x := g.Placeholder("x", Meta(F32))
	y := g.Placeholder("y", Meta(F32))
	names := NewNames("op")
	assert.Equal(t, "op0", names.Assign(x))
	assert.Equal(t, "op0", names.Assign(x))
	assert.Equal(t, "op1", names.Assign(y))
	names.Alias(y, "op0")
	symbol, found := names.Lookup(y)
	require.True(t, found)
	assert.Equal(t, "op0", symbol)
	assert.Equal(t, 2, names.Len())

	assert.Equal(t, "op1_scalar", names.Local("op1", "scalar"))
	assert.Equal(t, "op1_scalar1", names.Local("op1", "scalar"))
	assert.Equal(t, "op1_axes", names.Local("op1", "axes"))
	assert.Equal(t, "op2_scalar", names.Local("op2", "scalar"))
}

func TestBlock(t *testing.T) {
	inner := NewBlock("  ")
	inner.Line("a;").Indent(func() { inner.Line("b;") })

	b := NewBlock("  ")
	b.Line("int f() {")
	b.Indent(func() {
		b.Append(inner)
		b.Splice(`
			if (x) {
			  return 1;
			}
		`)
		b.Blank()
		b.Lines("c;\nd;")
	})
	b.Line("}")
	assert.Equal(t, "int f() {\n  a;\n    b;\n  if (x) {\n    return 1;\n  }\n\n  c;\n  d;\n}\n", b.String())
	assert.Equal(t, 10, b.Len())
	assert.True(t, NewBlock("  ").IsEmpty())
}

func TestRenderers(t *testing.T) {
	cpp, py := CppRenderer, PythonRenderer
	assert.Equal(t, "true", cpp.Bool(true))
	assert.Equal(t, "False", py.Bool(false))
	assert.Equal(t, "{1, 1, 2, 2}", cpp.Ints([]int{1, 1, 2, 2}))
	assert.Equal(t, "[2, 3]", py.Ints([]int{2, 3}))
	assert.Equal(t, "{}", cpp.Ints(nil))

	assert.Equal(t, "1.0", cpp.Float(1, dtypes.Float32))
	assert.Equal(t, "0.5", cpp.Float(0.5, dtypes.Float32))
	assert.Equal(t, "1e-05", cpp.Float(1e-5, dtypes.Float32))
	assert.Equal(t, "0.1", cpp.Float(0.1, dtypes.Float64))
	assert.Equal(t, "1.0996094", cpp.Float(1.1, dtypes.Float16))
	assert.Equal(t, "std::numeric_limits<float>::infinity()", cpp.Float(math.Inf(1), dtypes.Float32))
	assert.Equal(t, "-std::numeric_limits<double>::infinity()", cpp.Float(math.Inf(-1), dtypes.Float64))
	assert.Equal(t, "std::numeric_limits<float>::quiet_NaN()", cpp.Float(math.NaN(), dtypes.Float16))
	assert.Equal(t, "float('-inf')", py.Float(math.Inf(-1), dtypes.Float32))

	text, err := py.Literal(fx.List(fx.Int(1), fx.None(), fx.Float(2), fx.Bool(true), fx.DType(dtypes.Int64)), dtypes.Float32)
	require.NoError(t, err)
	assert.Equal(t, "[1, None, 2.0, True, torch.int64]", text)
	_, err = cpp.Literal(fx.DType(dtypes.Int64), dtypes.Float32)
	require.Error(t, err)

	g := fx.New("literal")
	x := g.Placeholder("x", Meta(F32))
	_, err = cpp.Literal(fx.Ref(x), dtypes.Float32)
	require.Error(t, err)
}

func TestHelpers(t *testing.T) {
	assert.Equal(t, []int{1, 1, 2, 2}, NCHW4([]int{2, 2}, 1))
	assert.Equal(t, []int{1, 1, 3, 3}, NCHW4([]int{3}, 1))
	assert.Equal(t, []int{1, 2, 3, 1}, NHWC4([]int{2, 3}, 1))
	assert.Equal(t, []int{1, 1, 1, 1}, Pads4([]int{1, 1}))
	assert.Equal(t, []int{0, 0, 2, 2}, Pads4([]int{0, 2}))
	assert.Panics(t, func() { Pads4([]int{1, 2, 3}) })

	axes, err := NormalizeAxes([]int{-1, 1, 3}, 4)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3}, axes)
	_, err = NormalizeAxes([]int{4}, 4)
	require.Error(t, err)
	axes, err = NormalizeAxes(nil, 2)
	require.NoError(t, err)
	assert.Empty(t, axes)

	dims, err := ResolveShape([]int{-1, 4}, 24)
	require.NoError(t, err)
	assert.Equal(t, []int{6, 4}, dims)
	_, err = ResolveShape([]int{-1, 5}, 24)
	require.ErrorIs(t, err, ir.ErrNonIntegralReshape)

	meta := Meta(F32, 2, 3)
	assert.True(t, OutputStrideIsContiguous(meta))
	meta.Stride = []int{1, 2}
	assert.False(t, OutputStrideIsContiguous(meta))
}
