// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package conversion maps the generic operators of a traced graph to the operator IR of a backend.
//
// A Registry binds target identifiers to Constructor functions, and is created once per backend and passed
// explicitly to the code generation: there are no global tables, so backends (and tests) can hold
// independent registries.
//
// Operators without a native equivalent are expanded beforehand by a small ordered list of Rule, applied
// with Rewrite in a single linear scan over the graph.
package conversion

import (
	"sort"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/fxlower/pkg/fx"
	"github.com/gomlx/fxlower/pkg/ir"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Constructor creates the IR operator for a call node. The node's arguments reference nodes of the
// same graph.
type Constructor func(node *fx.Node) (ir.Op, error)

// Registry of conversions from generic operator targets to IR constructors.
type Registry struct {
	name         string
	constructors map[string]Constructor
}

// NewRegistry creates an empty registry. The name is used in error messages (usually the backend name).
func NewRegistry(name string) *Registry {
	return &Registry{name: name, constructors: make(map[string]Constructor)}
}

// Name of the registry.
func (r *Registry) Name() string { return r.name }

// Register binds the constructor to target, which can be a specific overload (e.g. "aten.le.Scalar") or a
// packet (e.g. "aten.add") binding every overload of the operator.
//
// It panics if the target is already registered.
func (r *Registry) Register(target string, constructor Constructor) {
	key := fx.ParseTarget(target).String()
	if key == "" {
		exceptions.Panicf("conversion.Registry(%q).Register: empty target", r.name)
	}
	if _, found := r.constructors[key]; found {
		exceptions.Panicf("conversion.Registry(%q).Register: target %q registered twice", r.name, key)
	}
	r.constructors[key] = constructor
}

// RegisterAll binds the same constructor to all the given targets.
func (r *Registry) RegisterAll(constructor Constructor, targets ...string) {
	for _, target := range targets {
		r.Register(target, constructor)
	}
}

// Lookup returns the constructor for target: the exact overload registration if present, otherwise
// the registration of its packet.
func (r *Registry) Lookup(target fx.Target) (Constructor, bool) {
	if constructor, found := r.constructors[target.String()]; found {
		return constructor, true
	}
	constructor, found := r.constructors[target.Packet()]
	return constructor, found
}

// Has returns whether a conversion is registered for the target.
func (r *Registry) Has(target fx.Target) bool {
	_, found := r.Lookup(target)
	return found
}

// Convert returns the IR operator for the call node. It fails with ir.ErrUnsupportedOperator if no
// conversion is registered for the node's target.
func (r *Registry) Convert(node *fx.Node) (ir.Op, error) {
	if node.Kind != fx.CallFunction {
		return nil, errors.Errorf("only call_function nodes can be converted, node %q is a %s", node.Name, node.Kind)
	}
	constructor, found := r.Lookup(node.Target)
	if !found {
		return nil, errors.Wrapf(ir.ErrUnsupportedOperator, "no %s conversion registered for %s", r.name, node.Target)
	}
	op, err := constructor(node)
	if err != nil {
		return nil, errors.WithMessagef(err, "converting %s", node.Target)
	}
	if klog.V(2).Enabled() {
		klog.Infof("conversion %s: %s -> %s", r.name, node.Target, op.Type())
	}
	return op, nil
}

// Targets returns the registered targets, sorted.
func (r *Registry) Targets() []string {
	targets := make([]string, 0, len(r.constructors))
	for target := range r.constructors {
		targets = append(targets, target)
	}
	sort.Strings(targets)
	return targets
}
