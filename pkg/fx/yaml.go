// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package fx

import (
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/gomlx/fxlower/pkg/core/dtypes"
	"github.com/gomlx/fxlower/pkg/core/shapes"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// The YAML format of a graph mirrors the tracer's node table:
//
//	name: add_relu
//	nodes:
//	  - {name: arg0_1, op: placeholder, meta: {dtype: float32, shape: [2, 3]}}
//	  - name: add
//	    op: call_function
//	    target: aten.add.Tensor
//	    args: [{ref: arg0_1}, 1.0]
//	    meta: {dtype: float32, shape: [2, 3], stride: [3, 1], device: cpu}
//	  - {name: output, op: output, args: [[{ref: add}]]}
//
// References to other nodes are written as {ref: <name>} and dtypes as {dtype: <name>}.

type yamlGraph struct {
	Name  string     `yaml:"name"`
	Nodes []yamlNode `yaml:"nodes"`
}

type yamlNode struct {
	Name      string         `yaml:"name"`
	Op        *NodeKind      `yaml:"op"`
	Target    string         `yaml:"target,omitempty"`
	Args      []any          `yaml:"args,omitempty"`
	Kwargs    map[string]any `yaml:"kwargs,omitempty"`
	Meta      *yamlMeta      `yaml:"meta,omitempty"`
	TupleMeta []*yamlMeta    `yaml:"tuple_meta,omitempty"`
}

type yamlMeta struct {
	DType  string `yaml:"dtype"`
	Shape  []int  `yaml:"shape,flow"`
	Stride []int  `yaml:"stride,flow,omitempty"`
	Device string `yaml:"device,omitempty"`
}

// ReadYAML decodes a graph in the YAML format from r and validates it.
func ReadYAML(r io.Reader) (*Graph, error) {
	var yg yamlGraph
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&yg); err != nil {
		return nil, errors.Wrap(err, "failed to decode YAML graph")
	}
	g := New(yg.Name)
	for ii, yn := range yg.Nodes {
		node, err := yn.toNode(g)
		if err != nil {
			return nil, errors.WithMessagef(err, "graph %q, node #%d (%q)", yg.Name, ii, yn.Name)
		}
		if node.Name == "" {
			return nil, errors.Errorf("graph %q, node #%d has no name", yg.Name, ii)
		}
		if g.Node(node.Name) != nil {
			return nil, errors.Errorf("graph %q, node #%d: duplicate name %q", yg.Name, ii, node.Name)
		}
		if g.OutputNode() != nil {
			return nil, errors.Errorf("graph %q, node #%d (%q) defined after the output node", yg.Name, ii, node.Name)
		}
		g.AddNode(node)
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// ReadYAMLFile reads a graph from a YAML file.
func ReadYAMLFile(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open graph file")
	}
	defer func() { _ = f.Close() }()
	g, err := ReadYAML(f)
	if err != nil {
		return nil, errors.WithMessagef(err, "reading %q", path)
	}
	return g, nil
}

// WriteYAML encodes the graph in the YAML format. Reading it back with ReadYAML yields an equivalent graph.
func WriteYAML(w io.Writer, g *Graph) error {
	yg := yamlGraph{Name: g.Name, Nodes: make([]yamlNode, len(g.nodes))}
	for ii, node := range g.nodes {
		kind := node.Kind
		yn := yamlNode{
			Name:   node.Name,
			Op:     &kind,
			Target: node.Target.String(),
			Meta:   metaToYAML(node.Meta),
		}
		for _, arg := range node.Args {
			yn.Args = append(yn.Args, argumentToYAML(arg))
		}
		if len(node.Kwargs) > 0 {
			yn.Kwargs = make(map[string]any, len(node.Kwargs))
			for key, arg := range node.Kwargs {
				yn.Kwargs[key] = argumentToYAML(arg)
			}
		}
		for _, meta := range node.TupleMeta {
			yn.TupleMeta = append(yn.TupleMeta, metaToYAML(meta))
		}
		yg.Nodes[ii] = yn
	}
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(&yg); err != nil {
		return errors.Wrapf(err, "failed to encode graph %q", g.Name)
	}
	return errors.WithStack(encoder.Close())
}

func (yn *yamlNode) toNode(g *Graph) (*Node, error) {
	if yn.Op == nil {
		return nil, errors.Errorf("missing op, expected one of %v", NodeKindStrings())
	}
	kind := *yn.Op
	node := &Node{Name: yn.Name, Kind: kind}
	if kind == CallFunction {
		if yn.Target == "" {
			return nil, errors.New("call_function without target")
		}
		node.Target = ParseTarget(yn.Target)
	}
	var err error
	for _, value := range yn.Args {
		var arg Argument
		arg, err = argumentFromYAML(g, value)
		if err != nil {
			return nil, err
		}
		node.Args = append(node.Args, arg)
	}
	if len(yn.Kwargs) > 0 {
		node.Kwargs = make(map[string]Argument, len(yn.Kwargs))
		for key, value := range yn.Kwargs {
			node.Kwargs[key], err = argumentFromYAML(g, value)
			if err != nil {
				return nil, errors.WithMessagef(err, "kwarg %q", key)
			}
		}
	}
	if node.Meta, err = yn.Meta.toMeta(); err != nil {
		return nil, err
	}
	for ii, ym := range yn.TupleMeta {
		var meta *TensorMeta
		if meta, err = ym.toMeta(); err != nil {
			return nil, errors.WithMessagef(err, "tuple_meta #%d", ii)
		}
		node.TupleMeta = append(node.TupleMeta, meta)
	}
	return node, nil
}

func (ym *yamlMeta) toMeta() (*TensorMeta, error) {
	if ym == nil {
		return nil, nil
	}
	dtype, err := dtypes.Parse(ym.DType)
	if err != nil {
		return nil, err
	}
	for _, dim := range ym.Shape {
		if dim < 0 {
			return nil, errors.Errorf("invalid shape %v in metadata: dimensions must be non-negative", ym.Shape)
		}
	}
	meta := &TensorMeta{Shape: shapes.Make(dtype, ym.Shape...), Stride: ym.Stride, Device: ym.Device}
	if meta.Stride == nil {
		meta.Stride = shapes.ContiguousStrides(ym.Shape)
	} else if len(meta.Stride) != len(ym.Shape) {
		return nil, errors.Errorf("stride %v doesn't match the rank of shape %v", ym.Stride, ym.Shape)
	}
	if meta.Device == "" {
		meta.Device = "cpu"
	}
	return meta, nil
}

func metaToYAML(meta *TensorMeta) *yamlMeta {
	if meta == nil {
		return nil
	}
	return &yamlMeta{
		DType:  strings.TrimPrefix(meta.DType().TorchName(), "torch."),
		Shape:  meta.Dims(),
		Stride: meta.Stride,
		Device: meta.Device,
	}
}

func argumentFromYAML(g *Graph, value any) (Argument, error) {
	switch v := value.(type) {
	case nil:
		return None(), nil
	case bool:
		return Bool(v), nil
	case int:
		return Int(int64(v)), nil
	case int64:
		return Int(v), nil
	case uint64:
		if v > math.MaxInt64 {
			return None(), errors.Errorf("integer literal %d overflows int64", v)
		}
		return Int(int64(v)), nil
	case float64:
		return Float(v), nil
	case string:
		return String(v), nil
	case []any:
		elements := make([]Argument, len(v))
		for ii, e := range v {
			var err error
			if elements[ii], err = argumentFromYAML(g, e); err != nil {
				return None(), err
			}
		}
		return List(elements...), nil
	case map[string]any:
		if len(v) == 1 {
			if name, ok := v["ref"].(string); ok {
				node := g.Node(name)
				if node == nil {
					return None(), errors.Wrapf(ErrUnresolvedReference, "reference to %q", name)
				}
				return Ref(node), nil
			}
			if name, ok := v["dtype"].(string); ok {
				dtype, err := dtypes.Parse(name)
				if err != nil {
					return None(), err
				}
				return DType(dtype), nil
			}
		}
		return None(), errors.Errorf("invalid argument %v: mappings must be {ref: <node>} or {dtype: <name>}", v)
	}
	return None(), errors.Errorf("invalid argument %v of type %T", value, value)
}

// floatToYAML keeps integral floats distinguishable from integers: 1.0 is written as "1.0", not "1".
func floatToYAML(v float64) *yaml.Node {
	var text string
	switch {
	case math.IsNaN(v):
		text = ".nan"
	case math.IsInf(v, 1):
		text = ".inf"
	case math.IsInf(v, -1):
		text = "-.inf"
	default:
		text = strconv.FormatFloat(v, 'g', -1, 64)
		if !strings.ContainsAny(text, ".eE") {
			text += ".0"
		}
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: text}
}

func argumentToYAML(arg Argument) any {
	switch arg.Kind() {
	case ArgRef:
		return map[string]any{"ref": arg.Node().Name}
	case ArgBool:
		v, _ := arg.AsBool()
		return v
	case ArgInt:
		v, _ := arg.AsInt()
		return v
	case ArgFloat:
		v, _ := arg.AsFloat()
		return floatToYAML(v)
	case ArgDType:
		v, _ := arg.AsDType()
		return map[string]any{"dtype": strings.TrimPrefix(v.TorchName(), "torch.")}
	case ArgString:
		v, _ := arg.AsString()
		return v
	case ArgList:
		elements := make([]any, len(arg.List()))
		for ii, e := range arg.List() {
			elements[ii] = argumentToYAML(e)
		}
		return elements
	}
	return nil
}
