// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package dtypes includes the DType enum for the data types that can flow through a traced graph.
//
// The traced graphs name their dtypes the way PyTorch does ("torch.float32", "float32", "f32"), and each
// backend renders them in its own vocabulary. This package is the common ground: parsing from the traced
// names, sizes, classification (float, integer, ...), and rounding of literal values to what the dtype
// can actually represent, so generated constants are exact.
package dtypes

import (
	"maps"
	"math"
	"slices"
	"strings"

	"github.com/gomlx/fxlower/pkg/core/dtypes/bfloat16"
	"github.com/pkg/errors"
	"github.com/x448/float16"
)

// DType is an enum that represents the data type of a tensor or of a scalar.
type DType int32

const (
	// InvalidDType is the zero value, used to signal a missing or unknown dtype.
	InvalidDType DType = iota
	Bool
	Int8
	Int16
	Int32
	Int64
	Uint8
	Float16
	BFloat16
	Float32
	Float64
	Complex64
	Complex128

	// lastDType should always be kept last, it's used as a counter.
	lastDType
)

// Aliases commonly used in tests and in emitters.
const (
	F16  = Float16
	BF16 = BFloat16
	F32  = Float32
	F64  = Float64
	I32  = Int32
	I64  = Int64
)

var dtypeNames = [lastDType]string{
	InvalidDType: "InvalidDType",
	Bool:         "Bool",
	Int8:         "Int8",
	Int16:        "Int16",
	Int32:        "Int32",
	Int64:        "Int64",
	Uint8:        "Uint8",
	Float16:      "Float16",
	BFloat16:     "BFloat16",
	Float32:      "Float32",
	Float64:      "Float64",
	Complex64:    "Complex64",
	Complex128:   "Complex128",
}

// torchNames are the names used by the tracer, without the "torch." prefix.
var torchNames = [lastDType]string{
	Bool:       "bool",
	Int8:       "int8",
	Int16:      "int16",
	Int32:      "int32",
	Int64:      "int64",
	Uint8:      "uint8",
	Float16:    "float16",
	BFloat16:   "bfloat16",
	Float32:    "float32",
	Float64:    "float64",
	Complex64:  "complex64",
	Complex128: "complex128",
}

// MapOfNames maps every accepted spelling of a dtype to its value.
// It's populated during initialization with the enum names, the torch names and their common aliases.
var MapOfNames = map[string]DType{
	"float":  Float32,
	"double": Float64,
	"half":   Float16,
	"long":   Int64,
	"int":    Int32,
	"short":  Int16,
	"char":   Int8,
	"byte":   Uint8,
	"f16":    Float16,
	"bf16":   BFloat16,
	"f32":    Float32,
	"f64":    Float64,
	"i8":     Int8,
	"i16":    Int16,
	"i32":    Int32,
	"i64":    Int64,
	"u8":     Uint8,
	"pred":   Bool,
}

func init() {
	for dtype := Bool; dtype < lastDType; dtype++ {
		MapOfNames[dtypeNames[dtype]] = dtype
		MapOfNames[torchNames[dtype]] = dtype
	}
	// Add a mapping to the lower-case version of dtypes.
	keys := slices.Collect(maps.Keys(MapOfNames))
	for _, key := range keys {
		lowerKey := strings.ToLower(key)
		if _, found := MapOfNames[lowerKey]; !found {
			MapOfNames[lowerKey] = MapOfNames[key]
		}
	}
}

// String implements fmt.Stringer.
func (dtype DType) String() string {
	if dtype < 0 || dtype >= lastDType {
		return "InvalidDType"
	}
	return dtypeNames[dtype]
}

// TorchName returns the name used by PyTorch, e.g.: "torch.float32".
// It is what the generated host code uses to allocate buffers.
func (dtype DType) TorchName() string {
	if !dtype.IsValid() {
		return "torch.invalid"
	}
	return "torch." + torchNames[dtype]
}

// IsValid returns whether dtype is one of the known dtypes (and not InvalidDType).
func (dtype DType) IsValid() bool {
	return dtype > InvalidDType && dtype < lastDType
}

// Parse converts the name of a dtype into a DType. It accepts the enum names ("Float32"),
// the torch names with or without prefix ("torch.float32", "float32") and common aliases ("f32", "long").
func Parse(name string) (DType, error) {
	key := strings.TrimPrefix(strings.TrimSpace(name), "torch.")
	if dtype, found := MapOfNames[key]; found {
		return dtype, nil
	}
	if dtype, found := MapOfNames[strings.ToLower(key)]; found {
		return dtype, nil
	}
	return InvalidDType, errors.Errorf("unknown dtype %q", name)
}

// Size returns the number of bytes for the given DType.
func (dtype DType) Size() int {
	switch dtype {
	case Bool, Int8, Uint8:
		return 1
	case Int16, Float16, BFloat16:
		return 2
	case Int32, Float32:
		return 4
	case Int64, Float64, Complex64:
		return 8
	case Complex128:
		return 16
	}
	return 0
}

// SizeForDimensions returns the size in bytes used for the given dimensions.
func (dtype DType) SizeForDimensions(dimensions ...int) int {
	numElements := 1
	for _, dim := range dimensions {
		numElements *= dim
	}
	return numElements * dtype.Size()
}

// IsFloat returns whether dtype is a supported float -- float types not yet supported will return false.
func (dtype DType) IsFloat() bool {
	return dtype == Float32 || dtype == Float64 || dtype == Float16 || dtype == BFloat16
}

// IsFloat16 returns whether dtype is one of the 16 bits float types (Float16 or BFloat16).
func (dtype DType) IsFloat16() bool {
	return dtype == Float16 || dtype == BFloat16
}

// IsComplex returns whether dtype is a supported complex number type.
func (dtype DType) IsComplex() bool {
	return dtype == Complex64 || dtype == Complex128
}

// IsInt returns whether dtype is a supported integer type -- float types not yet supported will return false.
func (dtype DType) IsInt() bool {
	return dtype == Int8 || dtype == Int16 || dtype == Int32 || dtype == Int64 || dtype == Uint8
}

// IsUnsigned returns whether dtype is one of the unsigned (only int for now) types.
func (dtype DType) IsUnsigned() bool {
	return dtype == Uint8
}

// RoundFloat returns value rounded to the nearest number representable by the float dtype.
// Non-float dtypes return the value unchanged.
//
// Backends are strongly typed, so a literal like 0.1 materialized as a float16 constant should be
// rendered with the value the device will actually see.
func (dtype DType) RoundFloat(value float64) float64 {
	switch dtype {
	case Float32:
		return float64(float32(value))
	case Float16:
		return float64(float16.Fromfloat32(float32(value)).Float32())
	case BFloat16:
		return float64(bfloat16.FromFloat64(value).Float32())
	}
	return value
}

// Bits16 returns the raw 16 bits encoding of value in the given 16 bits float dtype.
// It panics if dtype is not Float16 or BFloat16.
func (dtype DType) Bits16(value float64) uint16 {
	switch dtype {
	case Float16:
		return float16.Fromfloat32(float32(value)).Bits()
	case BFloat16:
		return bfloat16.FromFloat64(value).Bits()
	}
	panic(errors.Errorf("Bits16 called for dtype %s, only Float16 and BFloat16 are accepted", dtype))
}

// ConvertInt converts value to the range of the integer dtype, the same way a C static_cast would.
// Non-integer dtypes return the value unchanged.
func (dtype DType) ConvertInt(value int64) int64 {
	switch dtype {
	case Int8:
		return int64(int8(value))
	case Int16:
		return int64(int16(value))
	case Int32:
		return int64(int32(value))
	case Uint8:
		return int64(uint8(value))
	case Bool:
		if value != 0 {
			return 1
		}
		return 0
	}
	return value
}

// IsFinite is a small helper that returns whether value is neither NaN nor infinite.
func IsFinite(value float64) bool {
	return !math.IsNaN(value) && !math.IsInf(value, 0)
}
