// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package bfloat16 is a trivial implementation for the bfloat16 type, used to render bfloat16
// literals in generated code. It is based on https://github.com/x448/float16 and the pending issue in
// https://github.com/x448/float16/issues/22
package bfloat16

import (
	"math"
	"strconv"
)

// BFloat16 (brain floating point) is the 16 bits truncated version of the IEEE 754 float32 format:
// 1 bit sign, 8 bits exponent and 7 bits mantissa.
type BFloat16 uint16

// Float32 converts the BFloat16 to a float32, which is exact.
func (f BFloat16) Float32() float32 {
	return math.Float32frombits(uint32(f) << 16)
}

// FromFloat32 converts a float32 to a BFloat16, rounding to the nearest even value.
// NaN is preserved as a quiet NaN.
func FromFloat32(x float32) BFloat16 {
	bits := math.Float32bits(x)
	if math.IsNaN(float64(x)) {
		return BFloat16((bits >> 16) | 0x0040)
	}
	rounding := uint32(0x7FFF) + ((bits >> 16) & 1)
	return BFloat16((bits + rounding) >> 16)
}

// FromFloat64 converts a float64 to a BFloat16.
func FromFloat64(x float64) BFloat16 {
	return FromFloat32(float32(x))
}

// Bits convert BFloat16 to an uint16.
func (f BFloat16) Bits() uint16 {
	return uint16(f)
}

// String implements fmt.Stringer, and prints a float representation of the BFloat16.
func (f BFloat16) String() string {
	return strconv.FormatFloat(float64(f.Float32()), 'g', -1, 32)
}
