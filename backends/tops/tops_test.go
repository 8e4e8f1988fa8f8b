// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package tops

import (
	"testing"

	"github.com/gomlx/fxlower/backends"
	"github.com/gomlx/fxlower/pkg/codegen"
	"github.com/gomlx/fxlower/pkg/codegen/harness"
	"github.com/gomlx/fxlower/pkg/conversion"
	"github.com/gomlx/fxlower/pkg/core/dtypes"
	"github.com/gomlx/fxlower/pkg/fx"
	"github.com/gomlx/fxlower/pkg/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Aliases
var (
	F32  = dtypes.Float32
	I64  = dtypes.Int64
	Meta = fx.NewMeta
)

func emit(t *testing.T, config string, g *fx.Graph) (*codegen.Unit, error) {
	b, err := NewBackend(config)
	require.NoError(t, err)
	rewritten, err := conversion.Rewrite(g, b.Rules())
	require.NoError(t, err)
	return codegen.NewEngine(BackendName, b.Registry(), b.NewEmitter()).Run(rewritten)
}

func mustEmit(t *testing.T, config string, g *fx.Graph) string {
	unit, err := emit(t, config, g)
	require.NoError(t, err)
	return unit.Body.String()
}

func TestNew(t *testing.T) {
	b := backends.NewWithConfig("tops:graph_id=2,reduce_mean_axes=2+3").(*Backend)
	assert.Equal(t, 2, b.DefaultOptions().GraphID)
	assert.Equal(t, []int{2, 3}, b.reduceMeanAxes)

	_, err := NewBackend("reduce_mean_axes=a+b")
	require.Error(t, err)
	_, err = NewBackend("benchmark")
	require.Error(t, err)
}

func TestCapabilitiesMatchEmitters(t *testing.T) {
	for _, opType := range ir.AllOpTypes() {
		assert.Equal(t, Capabilities.Operations[opType], emitters[opType] != nil,
			"capabilities and emitters disagree on %s", opType)
	}
}

func TestElementwise(t *testing.T) {
	g := fx.New("elementwise")
	x := g.Placeholder("x", Meta(F32, 2, 3))
	add := g.Call("aten.add.Tensor", []any{x, 2.0}, nil, Meta(F32, 2, 3))
	rsqrt := g.Call("aten.rsqrt.default", []any{add}, nil, Meta(F32, 2, 3))
	le := g.Call("aten.le.Scalar", []any{rsqrt, 1}, nil, Meta(dtypes.Bool, 2, 3))
	clone := g.Call("aten.clone.default", []any{rsqrt}, nil, Meta(F32, 2, 3))
	g.Output(le, clone)
	assert.Equal(t, `std::vector<int64_t> tmp0_in_shape{2, 3};
builder::Type tmp0_input_type(tmp0_in_shape, builder::PrimitiveType::F32());
builder::Op tmp0 = hlir_builder->CreateInput(tmp0_input_type);
float tmp1_scalar_data = static_cast<float>(2.0);
builder::Type tmp1_scalar_type(std::vector<int64_t>{1}, builder::PrimitiveType::F32());
builder::Op tmp1_scalar = builder::Const(hlir_builder, static_cast<void *>(&tmp1_scalar_data), tmp1_scalar_type);
builder::Op tmp1 = builder::Add(tmp0, tmp1_scalar);
builder::Op tmp2 = builder::Sqrt(tmp1);
builder::Op tmp3 = builder::Reciprocal(tmp2);
float tmp4_scalar_data = static_cast<float>(1);
builder::Type tmp4_scalar_type(std::vector<int64_t>{1}, builder::PrimitiveType::F32());
builder::Op tmp4_scalar = builder::Const(hlir_builder, static_cast<void *>(&tmp4_scalar_data), tmp4_scalar_type);
builder::Op tmp4 = builder::LessEqual(tmp3, tmp4_scalar);
builder::Op tmp5 = tmp3;
`, mustEmit(t, "", g))
}

func TestDivision(t *testing.T) {
	g := fx.New("div")
	x := g.Placeholder("x", Meta(F32, 4))
	y := g.Placeholder("y", Meta(F32, 4))
	byTensor := g.Call("aten.div.Tensor", []any{x, y}, nil, Meta(F32, 4))
	byFour := g.Call("aten.div.Tensor", []any{byTensor, 4}, nil, Meta(F32, 4))
	byZero := g.Call("aten.div.Tensor", []any{byFour, 0.0}, nil, Meta(F32, 4))
	g.Output(byZero)
	body := mustEmit(t, "", g)
	assert.Contains(t, body, "builder::Op tmp2 = builder::Div(tmp0, tmp1);\n")
	assert.Contains(t, body, `float tmp3_scalar_data = static_cast<float>(0.25);
builder::Type tmp3_scalar_type(std::vector<int64_t>{1}, builder::PrimitiveType::F32());
builder::Op tmp3_scalar = builder::Const(hlir_builder, static_cast<void *>(&tmp3_scalar_data), tmp3_scalar_type);
builder::Op tmp3 = builder::Mul(tmp2, tmp3_scalar);
`)
	assert.Contains(t, body, "float tmp4_scalar_data = static_cast<float>(0.0);\n")
	assert.Contains(t, body, "builder::Op tmp4 = builder::Div(tmp3, tmp4_scalar);\n")
}

func TestAddmm(t *testing.T) {
	g := fx.New("addmm")
	c := g.Placeholder("c", Meta(F32, 4))
	a := g.Placeholder("a", Meta(F32, 2, 3))
	b := g.Placeholder("b", Meta(F32, 3, 4))
	g.Output(g.Call("aten.addmm.default", []any{c, a, b}, nil, Meta(F32, 2, 4)))
	body := mustEmit(t, "", g)
	assert.Contains(t, body, "builder::Op tmp3 = builder::Gemm({tmp1, tmp2});\n")
	assert.Contains(t, body, "builder::Op tmp4 = builder::Add(tmp0, tmp3);\n")
}

func TestReduce(t *testing.T) {
	build := func() *fx.Graph {
		g := fx.New("mean")
		x := g.Placeholder("x", Meta(F32, 1, 3, 4, 4))
		mean := g.Call("aten.mean.dim", []any{x, []int{-1}, true}, nil, Meta(F32, 1, 3, 4, 1))
		amax := g.Call("aten.amax.default", []any{x, []int{1}}, nil, Meta(F32, 1, 4, 4))
		g.Output(mean, amax)
		return g
	}
	body := mustEmit(t, "", build())
	assert.Contains(t, body, `builder::Type tmp1_type(std::vector<int64_t>{1, 3, 4, 1}, builder::PrimitiveType::F32());
builder::Op tmp1 = builder::ReduceMean(tmp0, true, {3}, tmp1_type);
`)
	assert.Contains(t, body, "builder::Op tmp2 = builder::ReduceMax(tmp0, false, {1});\n")

	body = mustEmit(t, "reduce_mean_axes=2+3", build())
	assert.Contains(t, body, "builder::Op tmp1 = builder::ReduceMean(tmp0, true, {2, 3}, tmp1_type);\n")
	assert.Contains(t, body, "builder::ReduceMax(tmp0, false, {1});", "only mean reductions are overridden")
}

func TestShapes(t *testing.T) {
	g := fx.New("shapes")
	x := g.Placeholder("x", Meta(F32, 2, 3, 4))
	view := g.Call("aten.view.default", []any{x, []int{-1, 4}}, nil, Meta(F32, 6, 4))
	permute := g.Call("aten.permute.default", []any{view, []int{1, 0}}, nil, Meta(F32, 4, 6))
	unsqueeze := g.Call("aten.unsqueeze.default", []any{permute, 0}, nil, Meta(F32, 1, 4, 6))
	cast := g.Call("prims.convert_element_type.default", []any{unsqueeze, dtypes.Float16}, nil, Meta(dtypes.Float16, 1, 4, 6))
	g.Output(cast)
	body := mustEmit(t, "", g)
	assert.Contains(t, body, `builder::Type tmp1_shape(std::vector<int64_t>{6, 4}, builder::PrimitiveType::F32());
builder::Op tmp1 = builder::Reshape(tmp0, tmp1_shape);
builder::Op tmp2 = builder::Transpose(tmp1, {1, 0});
std::vector<int64_t> tmp3_axes_data{0};
builder::Type tmp3_axes_type(std::vector<int64_t>{1}, builder::PrimitiveType::S64());
`)
	assert.Contains(t, body, "builder::Op tmp3 = builder::Unsqueeze(tmp2, tmp3_axes, tmp3_type);\n")
	assert.Contains(t, body, `builder::Type tmp4_type(std::vector<int64_t>{1, 4, 6}, builder::PrimitiveType::F16());
builder::Op tmp4 = builder::Convert(tmp3, tmp4_type);
`)

	g = fx.New("view")
	x = g.Placeholder("x", Meta(F32, 2, 3, 4))
	g.Output(g.Call("aten.view.default", []any{x, []int{-1, 5}}, nil, Meta(F32, 5, 5)))
	_, err := emit(t, "", g)
	require.ErrorIs(t, err, ir.ErrNonIntegralReshape)
}

func TestSqueezeWithoutAxes(t *testing.T) {
	g := fx.New("squeeze")
	x := g.Placeholder("x", Meta(F32, 1, 3))
	g.Output(g.Call("aten.squeeze.dims", []any{x, []int{}}, nil, Meta(F32, 1, 3)))
	body := mustEmit(t, "", g)
	assert.Contains(t, body, "builder::Op tmp1 = tmp0;\n")
	assert.NotContains(t, body, "Squeeze")
}

func TestConvolutionAndPooling(t *testing.T) {
	g := fx.New("conv")
	x := g.Placeholder("x", Meta(F32, 1, 3, 8, 8))
	w := g.Placeholder("w", Meta(F32, 16, 3, 3, 3))
	conv := g.Call("aten.convolution.default",
		[]any{x, w, nil, []int{2, 2}, []int{1, 1}, []int{1, 1}, false, []int{0, 0}, 1}, nil, Meta(F32, 1, 16, 4, 4))
	pool := g.Call("aten.max_pool2d_with_indices.default", []any{conv, []int{2, 2}, []int{2, 2}}, nil, nil)
	values := g.Call("operator.getitem", []any{pool, 0}, nil, Meta(F32, 1, 16, 2, 2))
	g.Output(values)

	unit, err := emit(t, "", g)
	require.NoError(t, err)
	body := unit.Body.String()
	assert.Contains(t, body, `std::vector<builder::Op> tmp2_inputs = {tmp0, tmp1};
builder::Op tmp2 = builder::Conv2D(tmp2_inputs, 1, "NOTSET", "NCHW", {2, 2}, {1, 1, 1, 1}, {1, 1});
builder::Op tmp3 = builder::MaxPool2D(tmp2, {2, 2}, false, false, "NOTSET", "NCHW", {2, 2}, {0, 0, 0, 0});
`)
	require.Len(t, unit.UniqueOutputs, 1)
	assert.Equal(t, "tmp3", unit.UniqueOutputs[0].Symbol, "getitem aliases the pooled values")

	g = fx.New("indices")
	x = g.Placeholder("x", Meta(F32, 1, 3, 8, 8))
	pool = g.Call("aten.max_pool2d_with_indices.default", []any{x, []int{2, 2}}, nil, nil)
	g.Output(g.Call("operator.getitem", []any{pool, 1}, nil, Meta(I64, 1, 3, 4, 4)))
	_, err = emit(t, "", g)
	require.ErrorIs(t, err, ir.ErrUnsupportedConfiguration)

	g = fx.New("transposed")
	x = g.Placeholder("x", Meta(F32, 1, 3, 8, 8))
	w = g.Placeholder("w", Meta(F32, 3, 16, 3, 3))
	g.Output(g.Call("aten.convolution.default",
		[]any{x, w, nil, []int{1}, []int{0}, []int{1}, true, []int{0}, 1}, nil, Meta(F32, 1, 16, 10, 10)))
	_, err = emit(t, "", g)
	require.ErrorIs(t, err, ir.ErrUnsupportedConfiguration)
}

func TestUnsupported(t *testing.T) {
	g := fx.New("where")
	cond := g.Placeholder("cond", Meta(dtypes.Bool, 4))
	x := g.Placeholder("x", Meta(F32, 4))
	g.Output(g.Call("aten.where.self", []any{cond, x, 0.0}, nil, Meta(F32, 4)))
	unit, err := emit(t, "", g)
	require.ErrorIs(t, err, ir.ErrUnsupportedOperator)
	var nodeErr *ir.NodeError
	require.ErrorAs(t, err, &nodeErr)
	assert.Equal(t, "tmp2", nodeErr.Symbol)
	assert.NotContains(t, unit.Body.String(), "tmp2")
}

func TestAssemble(t *testing.T) {
	g := fx.New("relu")
	x := g.Placeholder("x", Meta(F32, 2, 3))
	y := g.Placeholder("y", Meta(I64, 4))
	relu := g.Call("aten.relu.default", []any{x}, nil, Meta(F32, 2, 3))
	g.Output(relu, nil, relu, y)

	b, err := NewBackend("graph_id=5")
	require.NoError(t, err)
	unit, err := emit(t, "", g)
	require.NoError(t, err)
	artifacts, err := b.Assemble(unit, b.DefaultOptions())
	require.NoError(t, err)

	kernel := artifacts.Kernel
	assert.Contains(t, kernel, "uint32_t graph_id = 5;\n")
	assert.Contains(t, kernel, `    hlir_builder->SetShapeInference(true);
    std::vector<int64_t> tmp0_in_shape{2, 3};
`)
	assert.Contains(t, kernel, `    builder::Op tmp2 = builder::Relu(tmp0);
    hlir_builder->SetOutput({tmp2, tmp1});
    return hlir_builder;
`)
	assert.Contains(t, kernel, `extern "C" int compile(char* graph_path) {`)
	assert.Contains(t, kernel, `extern "C" void run(void* input_ptr0, void* input_ptr1, void* output_ptr0, void* output_ptr1) {
    std::vector<void *> input_ptrs;
    input_ptrs.emplace_back(input_ptr0);
    input_ptrs.emplace_back(input_ptr1);
    std::vector<void *> output_ptrs;
    output_ptrs.emplace_back(output_ptr0);
    output_ptrs.emplace_back(output_ptr1);
    run(exe_ptr, input_ptrs, output_ptrs);
}
`)

	program := artifacts.Program
	assert.Contains(t, program, "from torch._inductor.codecache import AsyncCompile\n")
	assert.Contains(t, program, "kernel_cpp_0 = async_compile.enflame('''\n")
	assert.Contains(t, program, "    buf0 = empty_strided((2, 3), (3, 1), device='cpu', dtype=torch.float32)\n")
	assert.Contains(t, program, "    buf1 = empty_strided((4,), (1,), device='cpu', dtype=torch.int64)\n")
	assert.Contains(t, program,
		"    kernel_cpp_0(c_void_p(arg0_1.data_ptr()), c_void_p(arg1_1.data_ptr()), c_void_p(buf0.data_ptr()), c_void_p(buf1.data_ptr()))\n")
	assert.Contains(t, program, "    return (buf0, None, buf0, buf1)")

	_, embedded, err := harness.ExtractKernel(program)
	require.NoError(t, err)
	assert.Equal(t, kernel, embedded)
}
