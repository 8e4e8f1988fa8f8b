// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package fsutil

import (
	"os"
	"os/user"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplaceTildeInDir(t *testing.T) {
	dir, err := ReplaceTildeInDir("/tmp/x")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/x", dir)

	usr, err := user.Current()
	require.NoError(t, err)
	dir, err = ReplaceTildeInDir("~/cache")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(usr.HomeDir, "cache"), dir)

	_, err = ReplaceTildeInDir("~no_such_user_for_fsutil_test/cache")
	require.Error(t, err)
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "kernel.cpp")
	exists, err := FileExists(path)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, WriteFileAtomic(path, []byte("int x;"), 0o644))
	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "int x;", string(contents))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no scratch files left behind")
	assert.NotEqual(t, ScratchPath(dir, ".so"), ScratchPath(dir, ".so"))
}
