// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package conversion

import (
	"fmt"

	"github.com/gomlx/fxlower/pkg/fx"
	"github.com/gomlx/fxlower/pkg/ir"
	"github.com/gomlx/fxlower/pkg/support/sets"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Rule expands a generic operator the backend has no native equivalent for into a short fixed sequence of
// supported ones.
type Rule struct {
	Name string

	// Match returns whether the rule applies to the call node.
	Match func(node *fx.Node) bool

	// Replace creates the replacement nodes with the Rewriter and returns the values standing for the
	// outputs of the matched node: one for a single-output operator, one per element for tuple results.
	//
	// The matched node given has its arguments already bound to the nodes of the rewritten graph,
	// but it is not itself part of it.
	Replace func(rw *Rewriter, node *fx.Node) ([]*fx.Node, error)
}

// MatchTargets returns a Match function accepting call nodes whose target is one of the given
// overloads (e.g. "aten.var.correction") or packets (e.g. "aten.var").
func MatchTargets(targets ...string) func(node *fx.Node) bool {
	accepted := sets.Make[string](len(targets))
	for _, target := range targets {
		accepted.Insert(fx.ParseTarget(target).String())
	}
	return func(node *fx.Node) bool {
		return node.Kind == fx.CallFunction && (accepted.Has(node.Target.String()) || accepted.Has(node.Target.Packet()))
	}
}

// Rewriter builds the rewritten graph. Rules use it to create their replacement nodes.
type Rewriter struct {
	graph    *fx.Graph
	reserved sets.Set[string]

	// mapped binds each node of the source graph to the node standing for it in the rewritten graph.
	mapped map[*fx.Node]*fx.Node

	// tuples binds multi-output nodes replaced by a rule to the values of each of their outputs.
	tuples map[*fx.Node][]*fx.Node

	matched *fx.Node
}

// Graph returns the rewritten graph under construction.
func (rw *Rewriter) Graph() *fx.Graph { return rw.graph }

// Call adds a call node to the rewritten graph, on behalf of the rule being applied. The name is derived from
// the matched node and the target, and never collides with names of the source graph.
//
// Arguments follow fx.ValueOf conventions, and node references must be nodes of the rewritten graph.
func (rw *Rewriter) Call(target string, args []any, kwargs map[string]any, meta *fx.TensorMeta) *fx.Node {
	parsed := fx.ParseTarget(target)
	base := parsed.Base
	if rw.matched != nil {
		base = rw.matched.Name + "_" + base
	}
	name := base
	for ii := 1; rw.reserved.Has(name) || rw.graph.Node(name) != nil; ii++ {
		name = fmt.Sprintf("%s_%d", base, ii)
	}
	node := &fx.Node{Name: name, Kind: fx.CallFunction, Target: parsed, Meta: meta, Args: make([]fx.Argument, len(args))}
	for ii, arg := range args {
		node.Args[ii] = fx.ValueOf(arg)
	}
	if len(kwargs) > 0 {
		node.Kwargs = make(map[string]fx.Argument, len(kwargs))
		for key, value := range kwargs {
			node.Kwargs[key] = fx.ValueOf(value)
		}
	}
	return rw.graph.AddNode(node)
}

// bind returns a copy of arg with references to source nodes replaced by their rewritten counterparts.
// References to replaced multi-output nodes are flattened into a list of their outputs.
func (rw *Rewriter) bind(arg fx.Argument) (fx.Argument, error) {
	var err error
	bound := arg.Map(func(node *fx.Node) fx.Argument {
		if outputs, found := rw.tuples[node]; found {
			values := make([]fx.Argument, len(outputs))
			for ii, output := range outputs {
				values[ii] = fx.Ref(output)
			}
			return fx.List(values...)
		}
		if target, found := rw.mapped[node]; found {
			return fx.Ref(target)
		}
		if err == nil {
			err = errors.Wrapf(ir.ErrUnresolvedReference, "node %q", node.Name)
		}
		return fx.None()
	})
	return bound, err
}

// bindNode returns a detached copy of node with its arguments bound to the rewritten graph.
func (rw *Rewriter) bindNode(node *fx.Node) (*fx.Node, error) {
	bound := &fx.Node{
		Name:      node.Name,
		Kind:      node.Kind,
		Target:    node.Target,
		Meta:      node.Meta.Clone(),
		Args:      make([]fx.Argument, len(node.Args)),
		TupleMeta: make([]*fx.TensorMeta, 0, len(node.TupleMeta)),
	}
	for _, meta := range node.TupleMeta {
		bound.TupleMeta = append(bound.TupleMeta, meta.Clone())
	}
	var err error
	for ii, arg := range node.Args {
		if bound.Args[ii], err = rw.bind(arg); err != nil {
			return nil, err
		}
	}
	if len(node.Kwargs) > 0 {
		bound.Kwargs = make(map[string]fx.Argument, len(node.Kwargs))
		for key, arg := range node.Kwargs {
			if bound.Kwargs[key], err = rw.bind(arg); err != nil {
				return nil, err
			}
		}
	}
	return bound, nil
}

// foldGetItem resolves getitem(x, i) when x was replaced by a rule with multiple outputs.
func (rw *Rewriter) foldGetItem(node *fx.Node) (*fx.Node, bool, error) {
	if node.Kind != fx.CallFunction || node.Target.Canonical() != "getitem" || len(node.Args) < 2 {
		return nil, false, nil
	}
	outputs, found := rw.tuples[node.Args[0].Node()]
	if !found {
		return nil, false, nil
	}
	index, ok := node.Args[1].AsInt()
	if !ok || index < 0 || index >= len(outputs) {
		return nil, false, errors.Errorf("getitem %q: invalid index %s for a tuple of %d values", node.Name, node.Args[1], len(outputs))
	}
	return outputs[index], true, nil
}

// Rewrite applies the rules to the graph in a single linear scan and returns the rewritten graph.
// The source graph is not modified.
//
// For each call node, the first matching rule (in order) replaces it. Rules never see nodes created by
// rules: replacement nodes are not scanned again.
func Rewrite(g *fx.Graph, rules []Rule) (*fx.Graph, error) {
	rw := &Rewriter{
		graph:    fx.New(g.Name),
		reserved: sets.Make[string](g.Len()),
		mapped:   make(map[*fx.Node]*fx.Node, g.Len()),
		tuples:   make(map[*fx.Node][]*fx.Node),
	}
	for _, node := range g.Nodes() {
		rw.reserved.Insert(node.Name)
	}
	var numRewrites int
	for _, node := range g.Nodes() {
		folded, ok, err := rw.foldGetItem(node)
		if err != nil {
			return nil, ir.WrapNode(err, "", node)
		}
		if ok {
			rw.mapped[node] = folded
			continue
		}

		bound, err := rw.bindNode(node)
		if err != nil {
			return nil, ir.WrapNode(err, "", node)
		}
		rule := findRule(rules, bound)
		if rule == nil {
			rw.mapped[node] = rw.graph.AddNode(bound)
			continue
		}

		rw.matched = node
		outputs, err := rule.Replace(rw, bound)
		rw.matched = nil
		if err != nil {
			return nil, ir.WrapNode(errors.WithMessagef(err, "rule %s", rule.Name), "", node)
		}
		switch len(outputs) {
		case 0:
			return nil, ir.WrapNode(errors.Errorf("rule %s returned no outputs", rule.Name), "", node)
		case 1:
			rw.mapped[node] = outputs[0]
		default:
			rw.tuples[node] = outputs
		}
		numRewrites++
		klog.V(2).Infof("rewrite %s: rule %s replaced %q by %d node(s)", g.Name, rule.Name, node.Name, len(outputs))
	}
	klog.V(1).Infof("rewrite %s: %d node(s) rewritten, %d -> %d nodes", g.Name, numRewrites, g.Len(), rw.graph.Len())
	return rw.graph, nil
}

func findRule(rules []Rule, node *fx.Node) *Rule {
	if node.Kind != fx.CallFunction {
		return nil
	}
	for ii := range rules {
		if rules[ii].Match(node) {
			return &rules[ii]
		}
	}
	return nil
}
