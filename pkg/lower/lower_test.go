// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package lower

import (
	"testing"

	"github.com/gomlx/fxlower/backends"
	"github.com/gomlx/fxlower/backends/ascend"
	"github.com/gomlx/fxlower/backends/notimplemented"
	"github.com/gomlx/fxlower/backends/tops"
	"github.com/gomlx/fxlower/pkg/codegen/harness"
	"github.com/gomlx/fxlower/pkg/core/dtypes"
	"github.com/gomlx/fxlower/pkg/fx"
	"github.com/gomlx/fxlower/pkg/ir"
	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile(t *testing.T) {
	g := must.M1(fx.ReadYAMLFile("testdata/conv_relu.yaml"))
	for _, config := range []string{"", "graph_id=9"} {
		backend := ascend.New(config)
		result, err := Compile(backend, g, WithGraphID(2), WithBenchmark())
		require.NoError(t, err, "config %q", config)
		assert.Equal(t, harness.Options{GraphID: 2, Benchmark: true}, result.Options)
		assert.Len(t, result.Unit.Inputs, 2)
		assert.Len(t, result.Unit.Outputs, 3)
		assert.Len(t, result.Unit.UniqueOutputs, 2)
		assert.Contains(t, result.Artifacts.Kernel, "uint32_t graph_id = 2;")
		assert.Contains(t, result.Artifacts.Program, `if __name__ == "__main__":`)
		assert.Contains(t, result.Artifacts.Program, "return (buf0, buf1, buf0)")
	}

	// Default options of the backend.
	result, err := Compile(ascend.New("graph_id=9"), g)
	require.NoError(t, err)
	assert.Equal(t, 9, result.Options.GraphID)
	assert.NotContains(t, result.Artifacts.Program, "__main__")
}

func TestCompileIsIdempotent(t *testing.T) {
	g := must.M1(fx.ReadYAMLFile("testdata/var_mean.yaml"))
	for _, newBackend := range []func(config string) backends.Backend{ascend.New, tops.New} {
		first, err := Compile(newBackend(""), g)
		require.NoError(t, err)
		second, err := Compile(newBackend(""), g)
		require.NoError(t, err)
		name := first.Unit.Name
		assert.Equal(t, first.Artifacts.Program, second.Artifacts.Program, "graph %s", name)
		assert.Greater(t, first.Graph.Len(), g.Len(), "var_mean should have been expanded")
	}
}

func TestCompileErrors(t *testing.T) {
	g := fx.New("relu")
	x := g.Placeholder("x", fx.NewMeta(dtypes.Float32, 2))
	relu := g.Call("aten.relu.default", []any{x}, nil, fx.NewMeta(dtypes.Float32, 2))
	g.Output(relu)

	result, err := Compile(&notimplemented.Backend{}, g)
	require.ErrorIs(t, err, ir.ErrUnsupportedOperator)
	var nodeErr *ir.NodeError
	require.ErrorAs(t, err, &nodeErr)
	assert.Equal(t, "relu", nodeErr.Node)
	require.NotNil(t, result)
	assert.Len(t, result.Unit.Inputs, 1, "the unit generated up to the failing node is returned")
	assert.Nil(t, result.Artifacts)

	// Invalid graphs: no output.
	g = fx.New("no_output")
	g.Placeholder("x", fx.NewMeta(dtypes.Float32, 2))
	_, err = Compile(&notimplemented.Backend{}, g)
	require.Error(t, err)

	_, err = Compile(nil, g)
	require.Error(t, err)
}
