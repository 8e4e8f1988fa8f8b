// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package ir defines the operator IR of the lowering: the closed set of backend operators a traced graph
// node can be converted to.
//
// Each variant is a plain, immutable parameter bundle: tensor operands are fx.Argument references to the
// nodes producing them (or, where the backend can branch on it, a literal scalar), and the remaining fields
// are literal attributes. Constructors validate arity, operand kinds and attribute combinations; no variant
// performs any computation.
package ir

import (
	"slices"

	"github.com/gomlx/fxlower/pkg/core/dtypes"
	"github.com/gomlx/fxlower/pkg/fx"
	"github.com/gomlx/fxlower/pkg/support/sets"
	"github.com/pkg/errors"
)

// Op is implemented by every IR variant.
type Op interface {
	// Type returns the dispatch key of the operator.
	Type() OpType
}

func requireTensor(op OpType, name string, arg fx.Argument) error {
	if !arg.IsRef() {
		return errors.Errorf("%s: operand %s must be a tensor reference, got %s %s", op, name, arg.Kind(), arg)
	}
	return nil
}

func requireTensors(op OpType, names []string, args ...fx.Argument) error {
	for ii, arg := range args {
		if err := requireTensor(op, names[ii], arg); err != nil {
			return err
		}
	}
	return nil
}

func requireTensorOrScalar(op OpType, name string, arg fx.Argument) error {
	if !arg.IsRef() && !arg.IsScalar() {
		return errors.Errorf("%s: operand %s must be a tensor reference or a scalar literal, got %s %s",
			op, name, arg.Kind(), arg)
	}
	return nil
}

func requireOpType(op OpType, ok bool, family string) error {
	if !ok {
		return errors.Errorf("%s is not a %s operator", op, family)
	}
	return nil
}

// Unary element-wise operator.
type Unary struct {
	Op OpType
	X  fx.Argument
}

func (u *Unary) Type() OpType { return u.Op }

// NewUnary creates a unary element-wise operator.
func NewUnary(op OpType, x fx.Argument) (*Unary, error) {
	if err := requireOpType(op, op.IsUnary(), "unary"); err != nil {
		return nil, err
	}
	if err := requireTensor(op, "x", x); err != nil {
		return nil, err
	}
	return &Unary{Op: op, X: x}, nil
}

// Binary element-wise operator, with broadcasting. Y may be a scalar literal.
type Binary struct {
	Op   OpType
	X, Y fx.Argument
}

func (b *Binary) Type() OpType { return b.Op }

// NewBinary creates a binary element-wise operator. X must be a tensor, Y can be a tensor or a scalar literal.
func NewBinary(op OpType, x, y fx.Argument) (*Binary, error) {
	if err := requireOpType(op, op.IsBinary(), "binary"); err != nil {
		return nil, err
	}
	if err := requireTensor(op, "x", x); err != nil {
		return nil, err
	}
	if err := requireTensorOrScalar(op, "y", y); err != nil {
		return nil, err
	}
	return &Binary{Op: op, X: x, Y: y}, nil
}

// Reduce reduces X over Axes. An empty Axes means all axes.
// Axes can be negative, they are normalized at emission time when the rank is known.
type Reduce struct {
	Op       OpType
	X        fx.Argument
	Axes     []int
	KeepDims bool
}

func (r *Reduce) Type() OpType { return r.Op }

// NewReduce creates a reduction.
func NewReduce(op OpType, x fx.Argument, axes []int, keepDims bool) (*Reduce, error) {
	if err := requireOpType(op, op.IsReduction(), "reduction"); err != nil {
		return nil, err
	}
	if err := requireTensor(op, "x", x); err != nil {
		return nil, err
	}
	if err := checkUnique(op, "axes", axes); err != nil {
		return nil, err
	}
	return &Reduce{Op: op, X: x, Axes: slices.Clone(axes), KeepDims: keepDims}, nil
}

func checkUnique(op OpType, name string, values []int) error {
	if len(sets.MakeWith(values...)) != len(values) {
		return errors.Errorf("%s: %s %v has repeated values", op, name, values)
	}
	return nil
}

// TranShape reshapes X. Shape may contain one inferred dimension (-1).
type TranShape struct {
	X     fx.Argument
	Shape []int
}

func (*TranShape) Type() OpType { return OpTypeTranShape }

// NewTranShape creates a reshape.
func NewTranShape(x fx.Argument, shape []int) (*TranShape, error) {
	if err := requireTensor(OpTypeTranShape, "x", x); err != nil {
		return nil, err
	}
	inferred := 0
	for _, dim := range shape {
		if dim == -1 {
			inferred++
		} else if dim < 0 {
			return nil, errors.Errorf("transhape: invalid dimension %d in shape %v", dim, shape)
		}
	}
	if inferred > 1 {
		return nil, errors.Errorf("transhape: only one dimension can be inferred, got shape %v", shape)
	}
	return &TranShape{X: x, Shape: slices.Clone(shape)}, nil
}

// Squeeze removes the given axes, all of dimension 1.
type Squeeze struct {
	X    fx.Argument
	Axes []int
}

func (*Squeeze) Type() OpType { return OpTypeSqueeze }

// NewSqueeze creates a squeeze. At least one axis must be given.
func NewSqueeze(x fx.Argument, axes []int) (*Squeeze, error) {
	if err := requireTensor(OpTypeSqueeze, "x", x); err != nil {
		return nil, err
	}
	if len(axes) == 0 {
		return nil, errors.New("squeeze: no axes given")
	}
	if err := checkUnique(OpTypeSqueeze, "axes", axes); err != nil {
		return nil, err
	}
	return &Squeeze{X: x, Axes: slices.Clone(axes)}, nil
}

// Unsqueeze inserts axes of dimension 1.
type Unsqueeze struct {
	X    fx.Argument
	Axes []int
}

func (*Unsqueeze) Type() OpType { return OpTypeUnsqueeze }

// NewUnsqueeze creates an unsqueeze. At least one axis must be given.
func NewUnsqueeze(x fx.Argument, axes []int) (*Unsqueeze, error) {
	if err := requireTensor(OpTypeUnsqueeze, "x", x); err != nil {
		return nil, err
	}
	if len(axes) == 0 {
		return nil, errors.New("unsqueeze: no axes given")
	}
	if err := checkUnique(OpTypeUnsqueeze, "axes", axes); err != nil {
		return nil, err
	}
	return &Unsqueeze{X: x, Axes: slices.Clone(axes)}, nil
}

// Permute transposes the axes of X: output axis i is input axis Order[i].
type Permute struct {
	X     fx.Argument
	Order []int
}

func (*Permute) Type() OpType { return OpTypePermute }

// NewPermute creates a permutation of axes.
func NewPermute(x fx.Argument, order []int) (*Permute, error) {
	if err := requireTensor(OpTypePermute, "x", x); err != nil {
		return nil, err
	}
	if err := checkUnique(OpTypePermute, "order", order); err != nil {
		return nil, err
	}
	return &Permute{X: x, Order: slices.Clone(order)}, nil
}

// BroadcastTo broadcasts X (tensor or scalar literal) to Shape.
type BroadcastTo struct {
	X     fx.Argument
	Shape []int
}

func (*BroadcastTo) Type() OpType { return OpTypeBroadcastTo }

// NewBroadcastTo creates a broadcast.
func NewBroadcastTo(x fx.Argument, shape []int) (*BroadcastTo, error) {
	if err := requireTensorOrScalar(OpTypeBroadcastTo, "x", x); err != nil {
		return nil, err
	}
	return &BroadcastTo{X: x, Shape: slices.Clone(shape)}, nil
}

// Expand broadcasts X to Shape, where -1 keeps the corresponding input dimension.
type Expand struct {
	X     fx.Argument
	Shape []int
}

func (*Expand) Type() OpType { return OpTypeExpand }

// NewExpand creates an expand.
func NewExpand(x fx.Argument, shape []int) (*Expand, error) {
	if err := requireTensor(OpTypeExpand, "x", x); err != nil {
		return nil, err
	}
	for _, dim := range shape {
		if dim < -1 {
			return nil, errors.Errorf("expand: invalid dimension %d in shape %v", dim, shape)
		}
	}
	return &Expand{X: x, Shape: slices.Clone(shape)}, nil
}

// Gather collects the values of X along Axis at the positions given by Index.
type Gather struct {
	X     fx.Argument
	Axis  int
	Index fx.Argument
}

func (*Gather) Type() OpType { return OpTypeGather }

// NewGather creates a gather.
func NewGather(x fx.Argument, axis int, index fx.Argument) (*Gather, error) {
	if err := requireTensor(OpTypeGather, "x", x); err != nil {
		return nil, err
	}
	if err := requireTensor(OpTypeGather, "index", index); err != nil {
		return nil, err
	}
	return &Gather{X: x, Axis: axis, Index: index}, nil
}

// Scatter writes Src (a tensor, or a scalar literal broadcast to the index shape) into a copy of X
// along Axis at the positions given by Index.
type Scatter struct {
	X     fx.Argument
	Axis  int
	Index fx.Argument
	Src   fx.Argument
}

func (*Scatter) Type() OpType { return OpTypeScatter }

// NewScatter creates a scatter.
func NewScatter(x fx.Argument, axis int, index, src fx.Argument) (*Scatter, error) {
	if err := requireTensor(OpTypeScatter, "x", x); err != nil {
		return nil, err
	}
	if err := requireTensor(OpTypeScatter, "index", index); err != nil {
		return nil, err
	}
	if err := requireTensorOrScalar(OpTypeScatter, "src", src); err != nil {
		return nil, err
	}
	return &Scatter{X: x, Axis: axis, Index: index, Src: src}, nil
}

// Identity copies X.
type Identity struct {
	X fx.Argument
}

func (*Identity) Type() OpType { return OpTypeIdentity }

// NewIdentity creates a copy.
func NewIdentity(x fx.Argument) (*Identity, error) {
	if err := requireTensor(OpTypeIdentity, "x", x); err != nil {
		return nil, err
	}
	return &Identity{X: x}, nil
}

// GetItem selects the Index-th output of a multi-output operator.
type GetItem struct {
	X     fx.Argument
	Index int
}

func (*GetItem) Type() OpType { return OpTypeGetItem }

// NewGetItem creates a tuple element selection.
func NewGetItem(x fx.Argument, index int) (*GetItem, error) {
	if err := requireTensor(OpTypeGetItem, "x", x); err != nil {
		return nil, err
	}
	if index < 0 {
		return nil, errors.Errorf("getitem: invalid index %d", index)
	}
	return &GetItem{X: x, Index: index}, nil
}

// Cast converts X to DType.
type Cast struct {
	X     fx.Argument
	DType dtypes.DType
}

func (*Cast) Type() OpType { return OpTypeCast }

// NewCast creates a dtype conversion.
func NewCast(x fx.Argument, dtype dtypes.DType) (*Cast, error) {
	if err := requireTensor(OpTypeCast, "x", x); err != nil {
		return nil, err
	}
	if !dtype.IsValid() {
		return nil, errors.Errorf("cast: invalid dtype %s", dtype)
	}
	return &Cast{X: x, DType: dtype}, nil
}

// Window holds the spatial attributes of 2D convolutions and poolings, as given by the traced graph:
// each list has 1 (same value for both spatial axes) or 2 elements.
type Window struct {
	Stride, Padding, Dilation []int
}

func checkSpatial(op OpType, name string, values []int, minValue int) error {
	if len(values) != 1 && len(values) != 2 {
		return errors.Errorf("%s: %s must have 1 or 2 spatial values, got %v", op, name, values)
	}
	for _, v := range values {
		if v < minValue {
			return errors.Errorf("%s: invalid %s %v", op, name, values)
		}
	}
	return nil
}

func (w Window) check(op OpType) error {
	if err := checkSpatial(op, "stride", w.Stride, 1); err != nil {
		return err
	}
	if err := checkSpatial(op, "padding", w.Padding, 0); err != nil {
		return err
	}
	return checkSpatial(op, "dilation", w.Dilation, 1)
}

func (w Window) clone() Window {
	return Window{Stride: slices.Clone(w.Stride), Padding: slices.Clone(w.Padding), Dilation: slices.Clone(w.Dilation)}
}

// CheckConvConfiguration fails fast on the convolution variants no backend supports.
func CheckConvConfiguration(op OpType, transposed bool, outputPadding []int, groups int) error {
	if transposed {
		return errors.Wrapf(ErrUnsupportedConfiguration, "%s: transposed convolution", op)
	}
	for _, p := range outputPadding {
		if p != 0 {
			return errors.Wrapf(ErrUnsupportedConfiguration, "%s: output padding %v", op, outputPadding)
		}
	}
	if groups < 1 {
		return errors.Errorf("%s: invalid groups %d", op, groups)
	}
	return nil
}

// Conv2D is a 2D convolution in NCHW layout, with an optional bias (None if absent).
type Conv2D struct {
	Input, Weight, Bias fx.Argument
	Window
	Groups int
}

func (*Conv2D) Type() OpType { return OpTypeConv2D }

// NewConv2D creates a 2D convolution. Transposed convolutions and non-zero output padding
// fail with ErrUnsupportedConfiguration, regardless of the other arguments.
func NewConv2D(input, weight, bias fx.Argument, window Window, transposed bool, outputPadding []int, groups int) (*Conv2D, error) {
	if err := CheckConvConfiguration(OpTypeConv2D, transposed, outputPadding, groups); err != nil {
		return nil, err
	}
	if err := requireTensor(OpTypeConv2D, "input", input); err != nil {
		return nil, err
	}
	if err := requireTensor(OpTypeConv2D, "weight", weight); err != nil {
		return nil, err
	}
	if !bias.IsNone() {
		if err := requireTensor(OpTypeConv2D, "bias", bias); err != nil {
			return nil, err
		}
	}
	if err := window.check(OpTypeConv2D); err != nil {
		return nil, err
	}
	return &Conv2D{Input: input, Weight: weight, Bias: bias, Window: window.clone(), Groups: groups}, nil
}

// Conv2DBackward computes the gradients of a Conv2D with respect to its input and weight, selected by
// OutputMask (input, weight, bias). Its result is a tuple of the two gradients.
type Conv2DBackward struct {
	GradOutput, Input, Weight fx.Argument
	Window
	Groups     int
	OutputMask [3]bool
}

func (*Conv2DBackward) Type() OpType { return OpTypeConv2DBackward }

// NewConv2DBackward creates the gradient of a 2D convolution. Bias gradients are not supported.
func NewConv2DBackward(gradOutput, input, weight fx.Argument, window Window, transposed bool, outputPadding []int,
	groups int, outputMask [3]bool) (*Conv2DBackward, error) {
	if err := CheckConvConfiguration(OpTypeConv2DBackward, transposed, outputPadding, groups); err != nil {
		return nil, err
	}
	if outputMask[2] {
		return nil, errors.Wrapf(ErrUnsupportedConfiguration, "conv2dbackward: bias gradient")
	}
	if !outputMask[0] && !outputMask[1] {
		return nil, errors.Wrapf(ErrUnsupportedConfiguration, "conv2dbackward: no gradient requested")
	}
	if err := requireTensors(OpTypeConv2DBackward, []string{"grad_output", "input", "weight"}, gradOutput, input, weight); err != nil {
		return nil, err
	}
	if err := window.check(OpTypeConv2DBackward); err != nil {
		return nil, err
	}
	return &Conv2DBackward{GradOutput: gradOutput, Input: input, Weight: weight, Window: window.clone(),
		Groups: groups, OutputMask: outputMask}, nil
}

// MaxPoolWithArgmax is a 2D max-pooling returning the pooled values and the positions of the maxima.
type MaxPoolWithArgmax struct {
	X          fx.Argument
	KernelSize []int
	Window
	CeilMode bool
}

func (*MaxPoolWithArgmax) Type() OpType { return OpTypeMaxPoolWithArgmax }

// NewMaxPoolWithArgmax creates a max-pooling with argmax. An empty stride defaults to the kernel size.
func NewMaxPoolWithArgmax(x fx.Argument, kernelSize []int, window Window, ceilMode bool) (*MaxPoolWithArgmax, error) {
	window, err := poolWindow(OpTypeMaxPoolWithArgmax, kernelSize, window)
	if err != nil {
		return nil, err
	}
	if err := requireTensor(OpTypeMaxPoolWithArgmax, "x", x); err != nil {
		return nil, err
	}
	return &MaxPoolWithArgmax{X: x, KernelSize: slices.Clone(kernelSize), Window: window, CeilMode: ceilMode}, nil
}

func poolWindow(op OpType, kernelSize []int, window Window) (Window, error) {
	if err := checkSpatial(op, "kernel_size", kernelSize, 1); err != nil {
		return window, err
	}
	window = window.clone()
	if len(window.Stride) == 0 {
		window.Stride = slices.Clone(kernelSize)
	}
	if len(window.Padding) == 0 {
		window.Padding = []int{0}
	}
	if len(window.Dilation) == 0 {
		window.Dilation = []int{1}
	}
	if err := window.check(op); err != nil {
		return window, err
	}
	for _, d := range window.Dilation {
		if d != 1 {
			return window, errors.Wrapf(ErrUnsupportedConfiguration, "%s: dilation %v", op, window.Dilation)
		}
	}
	return window, nil
}

// MaxPoolWithArgmaxBackward routes GradOutput to the positions of the maxima given by Indices.
type MaxPoolWithArgmaxBackward struct {
	GradOutput, X, Indices fx.Argument
	KernelSize             []int
	Window
	CeilMode bool
}

func (*MaxPoolWithArgmaxBackward) Type() OpType { return OpTypeMaxPoolWithArgmaxBackward }

// NewMaxPoolWithArgmaxBackward creates the gradient of a max-pooling with argmax.
func NewMaxPoolWithArgmaxBackward(gradOutput, x, indices fx.Argument, kernelSize []int, window Window,
	ceilMode bool) (*MaxPoolWithArgmaxBackward, error) {
	window, err := poolWindow(OpTypeMaxPoolWithArgmaxBackward, kernelSize, window)
	if err != nil {
		return nil, err
	}
	if err := requireTensors(OpTypeMaxPoolWithArgmaxBackward, []string{"grad_output", "x", "indices"}, gradOutput, x, indices); err != nil {
		return nil, err
	}
	return &MaxPoolWithArgmaxBackward{GradOutput: gradOutput, X: x, Indices: indices,
		KernelSize: slices.Clone(kernelSize), Window: window, CeilMode: ceilMode}, nil
}

// MatMul is a 2D matrix multiplication.
type MatMul struct {
	X, Y fx.Argument
}

func (*MatMul) Type() OpType { return OpTypeMatMul }

// NewMatMul creates a matrix multiplication.
func NewMatMul(x, y fx.Argument) (*MatMul, error) {
	if err := requireTensor(OpTypeMatMul, "x", x); err != nil {
		return nil, err
	}
	if err := requireTensor(OpTypeMatMul, "y", y); err != nil {
		return nil, err
	}
	return &MatMul{X: x, Y: y}, nil
}

// FusedMatMulAdd computes Beta*C + Alpha*(A x B).
type FusedMatMulAdd struct {
	C, A, B     fx.Argument
	Alpha, Beta float64
}

func (*FusedMatMulAdd) Type() OpType { return OpTypeFusedMatMulAdd }

// NewFusedMatMulAdd creates a fused multiply-add.
func NewFusedMatMulAdd(c, a, b fx.Argument, alpha, beta float64) (*FusedMatMulAdd, error) {
	if err := requireTensors(OpTypeFusedMatMulAdd, []string{"c", "a", "b"}, c, a, b); err != nil {
		return nil, err
	}
	return &FusedMatMulAdd{C: c, A: a, B: b, Alpha: alpha, Beta: beta}, nil
}

// Where selects X where Cond is true, Y otherwise. X and Y may be scalar literals.
type Where struct {
	Cond, X, Y fx.Argument
}

func (*Where) Type() OpType { return OpTypeWhere }

// NewWhere creates a selection.
func NewWhere(cond, x, y fx.Argument) (*Where, error) {
	if err := requireTensor(OpTypeWhere, "cond", cond); err != nil {
		return nil, err
	}
	if err := requireTensorOrScalar(OpTypeWhere, "x", x); err != nil {
		return nil, err
	}
	if err := requireTensorOrScalar(OpTypeWhere, "y", y); err != nil {
		return nil, err
	}
	return &Where{Cond: cond, X: x, Y: y}, nil
}

// ScalarTensor materializes a scalar literal as a rank-0 tensor of DType.
type ScalarTensor struct {
	Value fx.Argument
	DType dtypes.DType
}

func (*ScalarTensor) Type() OpType { return OpTypeScalarTensor }

// NewScalarTensor creates a scalar tensor. An invalid dtype means the dtype of the node's result.
func NewScalarTensor(value fx.Argument, dtype dtypes.DType) (*ScalarTensor, error) {
	if !value.IsScalar() {
		return nil, errors.Errorf("scalartensor: value must be a scalar literal, got %s %s", value.Kind(), value)
	}
	return &ScalarTensor{Value: value, DType: dtype}, nil
}

// ZerosLike creates a tensor of zeros with the shape and dtype of X.
type ZerosLike struct {
	X fx.Argument
}

func (*ZerosLike) Type() OpType { return OpTypeZerosLike }

// NewZerosLike creates a zeros tensor.
func NewZerosLike(x fx.Argument) (*ZerosLike, error) {
	if err := requireTensor(OpTypeZerosLike, "x", x); err != nil {
		return nil, err
	}
	return &ZerosLike{X: x}, nil
}
