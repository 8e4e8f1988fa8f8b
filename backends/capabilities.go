// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package backends

import (
	"maps"

	"github.com/gomlx/fxlower/pkg/core/dtypes"
	"github.com/gomlx/fxlower/pkg/ir"
	"github.com/pkg/errors"
)

// Capabilities holds mappings of what is supported by a backend.
type Capabilities struct {
	// Operations supported by a backend.
	// If not listed, it's assumed to be false, hence not supported.
	Operations map[ir.OpType]bool

	// DTypes list the data types supported by a backend.
	// If not listed, it's assumed to be false, hence not supported.
	DTypes map[dtypes.DType]bool
}

// Clone makes a deep copy of the Capabilities.
func (c Capabilities) Clone() Capabilities {
	var c2 Capabilities
	c2.Operations = make(map[ir.OpType]bool, len(c.Operations))
	maps.Copy(c2.Operations, c.Operations)
	c2.DTypes = make(map[dtypes.DType]bool, len(c.DTypes))
	maps.Copy(c2.DTypes, c.DTypes)
	return c2
}

// CheckOp returns an error wrapping ir.ErrUnknownEmitter if the operator is not supported.
func (c Capabilities) CheckOp(backendName string, op ir.OpType) error {
	if !c.Operations[op] {
		return errors.Wrapf(ir.ErrUnknownEmitter, "backend %q has no emitter for %s", backendName, op)
	}
	return nil
}

// CheckDType returns an error wrapping ir.ErrUnsupportedConfiguration if the dtype is not supported.
func (c Capabilities) CheckDType(backendName string, dtype dtypes.DType) error {
	if !c.DTypes[dtype] {
		return errors.Wrapf(ir.ErrUnsupportedConfiguration, "backend %q doesn't support dtype %s", backendName, dtype)
	}
	return nil
}

// SupportedOps returns the supported operators in enum order.
func (c Capabilities) SupportedOps() []ir.OpType {
	var ops []ir.OpType
	for _, op := range ir.AllOpTypes() {
		if c.Operations[op] {
			ops = append(ops, op)
		}
	}
	return ops
}
