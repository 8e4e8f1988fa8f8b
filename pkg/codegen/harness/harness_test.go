// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package harness

import (
	"testing"

	"github.com/gomlx/fxlower/pkg/codegen"
	"github.com/gomlx/fxlower/pkg/core/dtypes"
	"github.com/gomlx/fxlower/pkg/fx"
	"github.com/gomlx/fxlower/pkg/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testUnit returns a unit with two inputs and the outputs (relu, None, relu).
func testUnit() *codegen.Unit {
	g := fx.New("harness")
	x := g.Placeholder("x", fx.NewMeta(dtypes.Float32, 2, 3))
	y := g.Placeholder("y", fx.NewMeta(dtypes.Int64, 4))
	relu := g.Call("aten.relu.default", []any{x}, nil, fx.NewMeta(dtypes.Float32, 2, 3))
	relu.Meta.Device = "npu"
	g.Output(relu, nil, relu)
	return &codegen.Unit{
		Name:   g.Name,
		Body:   codegen.NewBlock(codegen.IndentUnit),
		Inputs: []codegen.Input{{Symbol: "op0", Node: x}, {Symbol: "op1", Node: y}},
		Outputs: []codegen.Output{
			{Symbol: "op2", Node: relu},
			{None: true},
			{Symbol: "op2", Node: relu},
		},
		UniqueOutputs: []codegen.Output{{Symbol: "op2", Node: relu}},
	}
}

var testKernel = "int compile(char* graph_path) {\n    return 0;\n}\n"

func TestReturnsArrays(t *testing.T) {
	host := Host{
		Method:         "test",
		CompilerImport: "from compiler import AsyncCompileTest",
		CompilerClass:  "AsyncCompileTest",
		Style:          ReturnsArrays,
	}
	artifacts, err := host.Generate(testUnit(), testKernel, Options{})
	require.NoError(t, err)
	assert.Equal(t, testKernel, artifacts.Kernel)
	assert.Equal(t, `def call(args):
    arg0_1, arg1_1, = args
    inputs_data = list(map(lambda x: x.data_ptr(), args))
    args.clear()
    output_np = kernel_cpp_0(inputs_data)
    buf0 = torch.from_numpy(output_np[0])
    del arg0_1
    del arg1_1
    return (buf0, None, buf0)
`, artifacts.Wrapper)
	assert.Contains(t, artifacts.Program, "from compiler import AsyncCompileTest\n")
	assert.Contains(t, artifacts.Program, "async_compile = AsyncCompileTest()\n")
	assert.Contains(t, artifacts.Program, "kernel_cpp_0 = async_compile.test('''\n"+testKernel+"''')\n")
	assert.NotContains(t, artifacts.Program, "__main__")

	method, kernel, err := ExtractKernel(artifacts.Program)
	require.NoError(t, err)
	assert.Equal(t, "test", method)
	assert.Equal(t, testKernel, kernel)
}

func TestPreallocatedBuffers(t *testing.T) {
	host := Host{Method: "enflame", CompilerImport: "from torch._inductor.codecache import AsyncCompile",
		CompilerClass: "AsyncCompile", Style: PreallocatedBuffers}
	artifacts, err := host.Generate(testUnit(), testKernel, Options{Benchmark: true})
	require.NoError(t, err)
	assert.Equal(t, `def call(args):
    arg0_1, arg1_1, = args
    args.clear()
    buf0 = empty_strided((2, 3), (3, 1), device='npu', dtype=torch.float32)
    kernel_cpp_0(c_void_p(arg0_1.data_ptr()), c_void_p(arg1_1.data_ptr()), c_void_p(buf0.data_ptr()))
    del arg0_1
    del arg1_1
    return (buf0, None, buf0)


if __name__ == "__main__":
    from torch._dynamo.testing import rand_strided
    from torch._inductor.utils import print_performance
    arg0_1 = rand_strided((2, 3), (3, 1), device='cpu', dtype=torch.float32)
    arg1_1 = rand_strided((4,), (1,), device='cpu', dtype=torch.int64)
    print_performance(lambda: call([arg0_1, arg1_1]))
`, artifacts.Wrapper)
}

func TestSingleOutputAndNoInputs(t *testing.T) {
	g := fx.New("constant")
	value := g.Call("aten.scalar_tensor.default", []any{1.0}, nil, fx.NewMeta(dtypes.Float32))
	g.Output(value)
	unit := &codegen.Unit{
		Name:          g.Name,
		Outputs:       []codegen.Output{{Symbol: "op0", Node: value}},
		UniqueOutputs: []codegen.Output{{Symbol: "op0", Node: value}},
	}
	artifacts, err := Host{Method: "test", Style: PreallocatedBuffers}.Generate(unit, testKernel, Options{})
	require.NoError(t, err)
	assert.Equal(t, `def call(args):
    assert len(args) == 0
    args.clear()
    buf0 = empty_strided((), (), device='cpu', dtype=torch.float32)
    kernel_cpp_0(c_void_p(buf0.data_ptr()))
    return (buf0,)
`, artifacts.Wrapper)
}

func TestErrors(t *testing.T) {
	unit := testUnit()
	unit.UniqueOutputs[0].Node = &fx.Node{Name: "broken"}
	_, err := Host{Method: "test"}.Generate(unit, testKernel, Options{})
	require.ErrorIs(t, err, ir.ErrMetadataMissing)

	_, _, err = ExtractKernel("print('no kernel')")
	require.ErrorIs(t, err, ErrNoKernel)
	_, _, err = ExtractKernel("kernel_cpp_0 = async_compile.test('''\nint x;\n")
	require.ErrorIs(t, err, ErrNoKernel)
}
