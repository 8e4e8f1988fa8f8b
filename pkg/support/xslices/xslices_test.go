// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package xslices

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlices(t *testing.T) {
	assert.Equal(t, 3, Last([]int{1, 2, 3}))
	assert.Equal(t, []string{"1", "2"}, Map([]int{1, 2}, strconv.Itoa))
	assert.Equal(t, 24, Product([]int{2, 3, 4}))
	assert.Equal(t, 1, Product([]int{}))
	assert.Equal(t, []int{2, 3, 4}, Iota(2, 3))
	assert.Equal(t, []string{"a", "b"}, SortedKeys(map[string]int{"b": 1, "a": 2}))
	assert.True(t, AllEqual([]int{1, 1}, 1))
	assert.False(t, AllEqual([]int{1, 0}, 1))
}
