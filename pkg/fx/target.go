// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package fx

import (
	"strings"

	"github.com/gomlx/fxlower/pkg/support/sets"
)

// Target identifies the generic operator called by a CallFunction node,
// e.g. "aten.add.Tensor" is the overload "Tensor" of the operator "add" in the namespace "aten".
type Target struct {
	Namespace string
	Base      string
	Overload  string
}

// knownNamespaces are the qualifiers that can prefix an operator name in traced graphs.
var knownNamespaces = sets.MakeWith("aten", "prims", "operator", "_operator", "builtins", "torch", "ops", "dicp")

// ParseTarget parses a target identifier. The following forms are accepted:
//
//   - "torch.ops.aten.add.Tensor", "aten.add.Tensor", "aten::add.Tensor": namespace, base and overload.
//   - "aten.add": namespace and base (the whole family of overloads, a "packet").
//   - "operator.getitem", "getitem": builtin functions.
func ParseTarget(target string) Target {
	target = strings.ReplaceAll(strings.TrimSpace(target), "::", ".")
	parts := strings.Split(target, ".")
	// Strip leading module qualifiers, e.g. "torch.ops.".
	for len(parts) > 2 && (parts[0] == "torch" || parts[0] == "ops") {
		parts = parts[1:]
	}
	switch len(parts) {
	case 0:
		return Target{}
	case 1:
		return Target{Base: parts[0]}
	case 2:
		if knownNamespaces.Has(parts[0]) {
			return Target{Namespace: parts[0], Base: parts[1]}
		}
		return Target{Base: parts[0], Overload: parts[1]}
	}
	return Target{Namespace: parts[0], Base: parts[1], Overload: strings.Join(parts[2:], ".")}
}

// IsZero returns whether the target is empty (placeholder and output nodes).
func (t Target) IsZero() bool { return t.Base == "" }

// String returns the dotted form of the target, e.g. "aten.add.Tensor".
func (t Target) String() string {
	var parts []string
	if t.Namespace != "" {
		parts = append(parts, t.Namespace)
	}
	if t.Base != "" {
		parts = append(parts, t.Base)
	}
	if t.Overload != "" {
		parts = append(parts, t.Overload)
	}
	return strings.Join(parts, ".")
}

// Packet returns the identifier of the family of overloads of the target: "aten.add" for "aten.add.Tensor".
func (t Target) Packet() string {
	if t.Namespace == "" {
		return t.Base
	}
	return t.Namespace + "." + t.Base
}

// Canonical returns the canonical operator name: namespace and overload stripped, lower-cased.
// E.g.: "aten.max_pool2d_with_indices.default" -> "max_pool2d_with_indices".
func (t Target) Canonical() string {
	return strings.ToLower(t.Base)
}
