// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package shapes defines Shape and associated tools.
//
// Shape represents the shape (rank, dimensions and DType) of a tensor flowing through a traced graph.
// It is attached by the tracer to every input and operator node, and it is the sole source of shape
// information for code emission: the lowering never infers shapes by itself, except to resolve a single
// inferred ("-1") dimension of a reshape.
//
// ## Glossary
//
//   - Rank: number of axes (dimensions) of a Tensor.
//   - Axis: is the index of a dimension on a multidimensional Tensor.
//   - Dimension: the size of a multi-dimensions Tensor in one of its axes.
//   - DType: the data type of the unit element in a tensor. Enumeration defined in package dtypes.
//   - Scalar: is a shape where there are no axes (or dimensions), only a single value of the associated DType.
//   - Stride: number of elements to skip in the flat storage to move one step along an axis.
package shapes

import (
	"fmt"
	"slices"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/fxlower/pkg/core/dtypes"
	"github.com/pkg/errors"
)

// Shape represents the shape of a tensor: its DType and its dimensions.
//
// Use Make to create a new shape.
type Shape struct {
	DType      dtypes.DType
	Dimensions []int
}

// Make returns a Shape structure filled with the values given.
// Dimensions must be non-negative (0 is a valid dimension for empty tensors).
func Make(dtype dtypes.DType, dimensions ...int) Shape {
	s := Shape{Dimensions: slices.Clone(dimensions), DType: dtype}
	for _, dim := range dimensions {
		if dim < 0 {
			exceptions.Panicf("shapes.Make(%s): cannot create a shape with an axis with negative dimension", s)
		}
	}
	return s
}

// Invalid returns an invalid shape.
//
// Invalid().Ok() == false.
func Invalid() Shape {
	return Shape{DType: dtypes.InvalidDType}
}

// Ok returns whether this is a valid Shape. A "zero" shape, that is just instantiating it with Shape{} will be invalid.
func (s Shape) Ok() bool { return s.DType != dtypes.InvalidDType }

// Rank of the shape, that is, the number of dimensions.
func (s Shape) Rank() int { return len(s.Dimensions) }

// IsScalar returns whether the shape represents a scalar, that is there are no dimensions (rank==0).
func (s Shape) IsScalar() bool { return s.Ok() && s.Rank() == 0 }

// Dim returns the dimension of the given axis. axis can take negative numbers, in which
// case it counts as starting from the end -- so axis=-1 refers to the last axis.
// Like with a slice indexing, it panics for an out-of-bound axis.
func (s Shape) Dim(axis int) int {
	adjustedAxis := axis
	if adjustedAxis < 0 {
		adjustedAxis += s.Rank()
	}
	if adjustedAxis < 0 || adjustedAxis >= s.Rank() {
		exceptions.Panicf("Shape.Dim(%d) out-of-bounds for rank %d (shape=%s)", axis, s.Rank(), s)
	}
	return s.Dimensions[adjustedAxis]
}

// String implements stringer, pretty-prints the shape.
func (s Shape) String() string {
	if s.Rank() == 0 {
		return fmt.Sprintf("(%s)", s.DType)
	}
	return fmt.Sprintf("(%s)%v", s.DType, s.Dimensions)
}

// Size returns the number of elements of DType are needed for this shape. It's the product of all dimensions.
func (s Shape) Size() (size int) {
	size = 1
	for _, d := range s.Dimensions {
		size *= d
	}
	return
}

// Memory returns the number of bytes used to store a contiguous array of the given shape.
func (s Shape) Memory() int {
	return s.DType.SizeForDimensions(s.Dimensions...)
}

// Equal compares two shapes for equality: dtype and dimensions are compared.
func (s Shape) Equal(s2 Shape) bool {
	return s.DType == s2.DType && slices.Equal(s.Dimensions, s2.Dimensions)
}

// Clone returns a new deep copy of the shape.
func (s Shape) Clone() Shape {
	return Shape{DType: s.DType, Dimensions: slices.Clone(s.Dimensions)}
}

// WithDType returns a copy of the shape with a different dtype.
func (s Shape) WithDType(dtype dtypes.DType) Shape {
	s2 := s.Clone()
	s2.DType = dtype
	return s2
}

// ContiguousStrides returns the row-major (C order) strides, in number of elements, for the given dimensions.
func ContiguousStrides(dimensions []int) []int {
	strides := make([]int, len(dimensions))
	stride := 1
	for axis := len(dimensions) - 1; axis >= 0; axis-- {
		strides[axis] = stride
		stride *= max(dimensions[axis], 1)
	}
	return strides
}

// ErrNonIntegralReshape is returned when a reshape with an inferred dimension doesn't evenly divide the
// total number of elements.
var ErrNonIntegralReshape = errors.New("non-integral reshape")

// ResolveInferred returns a copy of dimensions where the one inferred dimension (given as -1) is replaced by
// totalSize divided by the product of the other dimensions.
//
// Dimensions without an inferred axis are returned as given (cloned).
// It returns an error wrapping ErrNonIntegralReshape if the division is not exact, and a plain error if more
// than one dimension is inferred or any other dimension is negative.
func ResolveInferred(dimensions []int, totalSize int) ([]int, error) {
	resolved := slices.Clone(dimensions)
	inferredAxis := -1
	known := 1
	for axis, dim := range dimensions {
		switch {
		case dim == -1:
			if inferredAxis != -1 {
				return nil, errors.Errorf("only one dimension can be inferred, got %v", dimensions)
			}
			inferredAxis = axis
		case dim < 0:
			return nil, errors.Errorf("invalid dimension %d in axis %d of %v", dim, axis, dimensions)
		default:
			known *= dim
		}
	}
	if inferredAxis == -1 {
		return resolved, nil
	}
	if known == 0 || totalSize%known != 0 {
		return nil, errors.Wrapf(ErrNonIntegralReshape, "cannot infer axis %d of %v for %d elements",
			inferredAxis, dimensions, totalSize)
	}
	resolved[inferredAxis] = totalSize / known
	return resolved, nil
}
