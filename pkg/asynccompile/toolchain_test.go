// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package asynccompile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/gomlx/fxlower/pkg/codegen/harness"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCompiler writes a shell script that copies the source to the output, and logs each call to
// calls.log in dir.
func fakeCompiler(t *testing.T, dir string, fail bool) string {
	if runtime.GOOS == "windows" {
		t.Skip("fake compiler is a shell script")
	}
	script := fmt.Sprintf(`#!/bin/sh
echo call >> %q
out=""
src=""
while [ $# -gt 0 ]; do
  case "$1" in
    -o) out="$2"; shift 2 ;;
    *) src="$1"; shift ;;
  esac
done
`, filepath.Join(dir, "calls.log"))
	if fail {
		script += "echo \"kernel.cpp:1: error: boom\" >&2\nexit 1\n"
	} else {
		script += "cp \"$src\" \"$out\"\n"
	}
	path := filepath.Join(dir, "fakecxx")
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func numCalls(t *testing.T, dir string) int {
	contents, err := os.ReadFile(filepath.Join(dir, "calls.log"))
	if os.IsNotExist(err) {
		return 0
	}
	require.NoError(t, err)
	return strings.Count(string(contents), "call")
}

func program(method, kernel string) string {
	return "import torch\n" + harness.KernelOpen(method) + "\n" + kernel + harness.KernelClose + "\n\ndef call(args):\n    pass\n"
}

func TestSubmit(t *testing.T) {
	dir := t.TempDir()
	tc := NewToolchain(filepath.Join(dir, "cache"), fakeCompiler(t, dir, false))
	ctx := context.Background()

	handle, err := tc.Submit(ctx, program("ascend", "int32_t genGraph();\n"))
	require.NoError(t, err)
	assert.Equal(t, "ascend", handle.Method)
	assert.False(t, handle.Cached)
	assert.Equal(t, Fingerprint("ascend", "int32_t genGraph();\n"), handle.Fingerprint)
	library, err := os.ReadFile(handle.Library)
	require.NoError(t, err)
	assert.Equal(t, "int32_t genGraph();\n", string(library))
	assert.Equal(t, 1, numCalls(t, dir))

	// Same kernel: cached, regardless of the wrapper.
	again, err := tc.Submit(ctx, program("ascend", "int32_t genGraph();\n")+"# benchmark\n")
	require.NoError(t, err)
	assert.True(t, again.Cached)
	assert.Equal(t, handle.Library, again.Library)
	assert.Equal(t, 1, numCalls(t, dir))

	// Same kernel, different method: different library.
	other, err := tc.Submit(ctx, program("enflame", "int32_t genGraph();\n"))
	require.NoError(t, err)
	assert.NotEqual(t, handle.Fingerprint, other.Fingerprint)
	assert.Equal(t, 2, numCalls(t, dir))

	_, err = tc.Submit(ctx, "def call(args):\n    pass\n")
	require.ErrorIs(t, err, harness.ErrNoKernel)
}

func TestSubmitFailure(t *testing.T) {
	dir := t.TempDir()
	tc := NewToolchain(filepath.Join(dir, "cache"), fakeCompiler(t, dir, true))
	_, err := tc.Submit(context.Background(), program("ascend", "syntax error\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error: boom")

	// Nothing is cached after a failure.
	_, err = tc.Submit(context.Background(), program("ascend", "syntax error\n"))
	require.Error(t, err)
	assert.Equal(t, 2, numCalls(t, dir))
}

func TestSubmitAll(t *testing.T) {
	dir := t.TempDir()
	tc := NewToolchain(filepath.Join(dir, "cache"), fakeCompiler(t, dir, false))
	tc.Parallelism = 2
	var programs []string
	for ii := range 5 {
		programs = append(programs, program("enflame", fmt.Sprintf("uint32_t graph_id = %d;\n", ii)))
	}
	programs = append(programs, programs[0])

	handles, err := tc.SubmitAll(context.Background(), programs)
	require.NoError(t, err)
	require.Len(t, handles, len(programs))
	for ii, handle := range handles[:5] {
		library, err := os.ReadFile(handle.Library)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("uint32_t graph_id = %d;\n", ii), string(library))
	}
	assert.Equal(t, handles[0].Library, handles[5].Library)
	assert.LessOrEqual(t, numCalls(t, dir), 6)

	programs = append(programs, "no kernel")
	_, err = tc.SubmitAll(context.Background(), programs)
	require.ErrorIs(t, err, harness.ErrNoKernel)
}
