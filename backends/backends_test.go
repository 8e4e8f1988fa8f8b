// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package backends

import (
	"testing"

	"github.com/gomlx/exceptions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOptions(t *testing.T) {
	options, err := ParseOptions(" graph_id=3, benchmark ,reduce_mean_axes=2+3,,")
	require.NoError(t, err)
	assert.Equal(t, Options{"graph_id": "3", "benchmark": "true", "reduce_mean_axes": "2+3"}, options)

	id, err := options.Int("graph_id", 0)
	require.NoError(t, err)
	assert.Equal(t, 3, id)
	id, err = options.Int("missing", 7)
	require.NoError(t, err)
	assert.Equal(t, 7, id)

	benchmark, err := options.Bool("benchmark", false)
	require.NoError(t, err)
	assert.True(t, benchmark)

	axes, err := options.Ints("reduce_mean_axes")
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, axes)
	axes, err = options.Ints("missing")
	require.NoError(t, err)
	assert.Nil(t, axes)

	require.NoError(t, options.CheckKnown("reduce_mean_axes", "graph_id", "benchmark"))
	require.Error(t, options.CheckKnown("graph_id"))

	_, err = ParseOptions("graph_id=1,graph_id=2")
	require.Error(t, err)
	_, err = ParseOptions("=1")
	require.Error(t, err)

	options, err = ParseOptions("graph_id=x,flag=maybe,axes=1+y")
	require.NoError(t, err)
	_, err = options.Int("graph_id", 0)
	require.Error(t, err)
	_, err = options.Bool("flag", false)
	require.Error(t, err)
	_, err = options.Ints("axes")
	require.Error(t, err)
}

// fakeBackend only implements Name: the registry doesn't call anything else.
type fakeBackend struct {
	Backend
	name, config string
}

func (b *fakeBackend) Name() string { return b.name }

func TestRegistry(t *testing.T) {
	saved, savedFirst := registeredConstructors, firstRegistered
	defer func() { registeredConstructors, firstRegistered = saved, savedFirst }()
	registeredConstructors = make(map[string]Constructor)

	_, err := NewOrErr("fake")
	require.Error(t, err)

	for _, name := range []string{"fake", "other"} {
		Register(name, func(config string) Backend {
			if config == "bad" {
				exceptions.Panicf("invalid configuration %q", config)
			}
			return &fakeBackend{name: name, config: config}
		})
	}
	assert.Equal(t, []string{"fake", "other"}, List())

	b := NewWithConfig("other:graph_id=2").(*fakeBackend)
	assert.Equal(t, "other", b.name)
	assert.Equal(t, "graph_id=2", b.config)

	// Without ":" the configuration is a backend name or the configuration of the first backend.
	b = NewWithConfig("other").(*fakeBackend)
	assert.Equal(t, "other", b.name)
	assert.Equal(t, "", b.config)
	b = NewWithConfig("graph_id=1").(*fakeBackend)
	assert.Equal(t, "fake", b.name)
	assert.Equal(t, "graph_id=1", b.config)

	t.Setenv(FXLOWER_BACKEND, "other:x")
	b = New().(*fakeBackend)
	assert.Equal(t, "other", b.name)
	assert.Equal(t, "x", b.config)

	_, err = NewOrErr("unknown:")
	require.Error(t, err)
	_, err = NewOrErr("fake:bad")
	require.Error(t, err)
	require.Panics(t, func() { NewWithConfig("unknown:") })
}
