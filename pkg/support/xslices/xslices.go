// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package xslices provide missing functionality to the slices package.
package xslices

import (
	"cmp"
	"slices"

	"golang.org/x/exp/constraints"
)

// Last returns the last element of a slice. It panics for an empty slice.
func Last[T any](slice []T) T {
	return slice[len(slice)-1]
}

// Map executes the given function sequentially for every element on in, and returns a mapped slice.
func Map[In, Out any](in []In, fn func(e In) Out) (out []Out) {
	out = make([]Out, len(in))
	for ii, e := range in {
		out[ii] = fn(e)
	}
	return
}

// Product returns the product of all elements. The product of an empty slice is 1.
func Product[T constraints.Integer | constraints.Float](slice []T) T {
	var product T = 1
	for _, v := range slice {
		product *= v
	}
	return product
}

// Iota returns a slice of incremental values, starting with start, with len elements.
func Iota[T constraints.Integer](start T, len int) []T {
	s := make([]T, len)
	for ii := range s {
		s[ii] = start + T(ii)
	}
	return s
}

// SortedKeys returns the sorted keys of a map.
func SortedKeys[K cmp.Ordered, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// AllEqual returns whether every element of the slice equals value. It is true for an empty slice.
func AllEqual[T comparable](slice []T, value T) bool {
	for _, v := range slice {
		if v != value {
			return false
		}
	}
	return true
}
