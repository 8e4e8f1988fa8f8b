// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package harness generates the Python program that hosts a generated kernel: it embeds the kernel source
// between fixed sentinels for the async-compile collaborator, and defines the `call(args)` wrapper that
// converts between framework tensors and the kernel entry point, plus an optional benchmark main.
package harness

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/gomlx/fxlower/pkg/codegen"
	"github.com/gomlx/fxlower/pkg/fx"
	"github.com/gomlx/fxlower/pkg/ir"
	"github.com/pkg/errors"
)

// KernelVariable is the Python variable bound to the compiled kernel.
const KernelVariable = "kernel_cpp_0"

// KernelClose is the sentinel closing the kernel source.
const KernelClose = "''')"

// ErrNoKernel is returned by ExtractKernel when the program has no embedded kernel.
var ErrNoKernel = errors.New("no kernel found in program")

// KernelOpen returns the sentinel opening the kernel source compiled by the given async-compile method.
func KernelOpen(method string) string {
	return fmt.Sprintf("%s = async_compile.%s('''", KernelVariable, method)
}

// Options of the code assembly.
type Options struct {
	// GraphID identifies the graph in the generated kernel. It is explicit, so compiling the same graph
	// twice generates the same text.
	GraphID int

	// Benchmark adds a `__main__` block calling the wrapper with random inputs and timing it.
	Benchmark bool
}

// Artifacts generated for a graph.
type Artifacts struct {
	// Kernel is the backend source (the compilation unit).
	Kernel string

	// Wrapper is the Python host code: the call function and, if requested, the benchmark main.
	Wrapper string

	// Program is the complete Python program embedding the kernel and the wrapper.
	Program string
}

// CallStyle is how the generated wrapper exchanges outputs with the kernel.
type CallStyle int

const (
	// ReturnsArrays kernels take the list of input data pointers and return one host array per unique output.
	ReturnsArrays CallStyle = iota

	// PreallocatedBuffers kernels take one pointer per input and per unique output, and the wrapper
	// allocates the output buffers beforehand.
	PreallocatedBuffers
)

// Host describes the Python side of a backend.
type Host struct {
	// Method of the async-compile object used to compile the kernel (e.g. "ascend").
	Method string

	// CompilerImport is the import statement of the async-compile class, and CompilerClass its name.
	CompilerImport, CompilerClass string

	Style CallStyle
}

// tensor is the template view of a framework tensor.
type tensor struct {
	Name, Shape, Stride, Device, DType string
}

type programData struct {
	Host
	Kernel    string
	Inputs    []tensor
	Buffers   []tensor
	Returns   []string
	Benchmark bool
}

func (d *programData) ReturnsArrays() bool { return d.Style == ReturnsArrays }

// Generate assembles the artifacts of a unit whose kernel source was already generated.
func (h Host) Generate(unit *codegen.Unit, kernel string, opts Options) (*Artifacts, error) {
	data := &programData{Host: h, Kernel: kernel, Benchmark: opts.Benchmark}
	for ii, input := range unit.Inputs {
		t, err := tensorOf(fmt.Sprintf("arg%d_1", ii), input.Node)
		if err != nil {
			return nil, err
		}
		data.Inputs = append(data.Inputs, t)
	}
	buffers := make(map[string]string, len(unit.UniqueOutputs))
	for ii, output := range unit.UniqueOutputs {
		t, err := tensorOf(fmt.Sprintf("buf%d", ii), output.Node)
		if err != nil {
			return nil, err
		}
		data.Buffers = append(data.Buffers, t)
		buffers[output.Symbol] = t.Name
	}
	for _, output := range unit.Outputs {
		if output.None {
			data.Returns = append(data.Returns, "None")
			continue
		}
		data.Returns = append(data.Returns, buffers[output.Symbol])
	}

	var wrapper, program strings.Builder
	if err := wrapperTemplate.Execute(&wrapper, data); err != nil {
		return nil, errors.Wrapf(err, "generating the host wrapper of %q", unit.Name)
	}
	if err := programTemplate.Execute(&program, data); err != nil {
		return nil, errors.Wrapf(err, "generating the program of %q", unit.Name)
	}
	program.WriteString(wrapper.String())
	return &Artifacts{Kernel: kernel, Wrapper: wrapper.String(), Program: program.String()}, nil
}

func tensorOf(name string, node *fx.Node) (tensor, error) {
	if node == nil || node.Meta == nil {
		return tensor{}, errors.Wrapf(ir.ErrMetadataMissing, "value %s of the host wrapper", name)
	}
	meta := node.Meta
	device := meta.Device
	if device == "" {
		device = "cpu"
	}
	return tensor{
		Name:   name,
		Shape:  pythonTuple(meta.Dims()),
		Stride: pythonTuple(meta.Stride),
		Device: device,
		DType:  meta.DType().TorchName(),
	}, nil
}

// pythonTuple renders values as a Python tuple: (), (2,) or (2, 3).
func pythonTuple(values []int) string {
	parts := make([]string, len(values))
	for ii, v := range values {
		parts[ii] = fmt.Sprint(v)
	}
	if len(parts) == 1 {
		return "(" + parts[0] + ",)"
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// ExtractKernel returns the async-compile method and the kernel source embedded in a generated program.
func ExtractKernel(program string) (method, kernel string, err error) {
	prefix := KernelVariable + " = async_compile."
	start := strings.Index(program, prefix)
	if start < 0 {
		return "", "", ErrNoKernel
	}
	rest := program[start+len(prefix):]
	open := strings.Index(rest, "('''")
	if open < 0 {
		return "", "", errors.Wrapf(ErrNoKernel, "unterminated kernel sentinel")
	}
	method = rest[:open]
	rest = strings.TrimPrefix(rest[open+len("('''"):], "\n")
	end := strings.Index(rest, KernelClose)
	if end < 0 {
		return "", "", errors.Wrapf(ErrNoKernel, "missing %s after the kernel of %s", KernelClose, method)
	}
	return method, rest[:end], nil
}

var templateFuncs = template.FuncMap{
	"names": func(tensors []tensor) string {
		names := make([]string, len(tensors))
		for ii, t := range tensors {
			names[ii] = t.Name
		}
		return strings.Join(names, ", ")
	},
	"join":        strings.Join,
	"kernelOpen":  KernelOpen,
	"kernelClose": func() string { return KernelClose },
}

var programTemplate = template.Must(template.New("program").Funcs(templateFuncs).Parse(
	`from ctypes import c_void_p, c_long
import torch
import random
from torch import empty_strided, as_strided, device
{{.CompilerImport}}

aten = torch.ops.aten
assert_size_stride = torch._C._dynamo.guards.assert_size_stride
async_compile = {{.CompilerClass}}()

{{kernelOpen .Method}}
{{.Kernel}}{{kernelClose}}

async_compile.wait(globals())
del async_compile

`))

var wrapperTemplate = template.Must(template.New("wrapper").Funcs(templateFuncs).Parse(
	`def call(args):
{{- if .Inputs}}
    {{names .Inputs}}, = args
{{- else}}
    assert len(args) == 0
{{- end}}
{{- if .ReturnsArrays}}
    inputs_data = list(map(lambda x: x.data_ptr(), args))
    args.clear()
    output_np = kernel_cpp_0(inputs_data)
{{- range $index, $buf := .Buffers}}
    {{$buf.Name}} = torch.from_numpy(output_np[{{$index}}])
{{- end}}
{{- else}}
    args.clear()
{{- range .Buffers}}
    {{.Name}} = empty_strided({{.Shape}}, {{.Stride}}, device='{{.Device}}', dtype={{.DType}})
{{- end}}
    kernel_cpp_0(
{{- range $index, $input := .Inputs}}{{if $index}}, {{end}}c_void_p({{$input.Name}}.data_ptr()){{end}}
{{- range $index, $buf := .Buffers}}{{if or $index $.Inputs}}, {{end}}c_void_p({{$buf.Name}}.data_ptr()){{end -}}
    )
{{- end}}
{{- range .Inputs}}
    del {{.Name}}
{{- end}}
    return ({{join .Returns ", "}}{{if eq (len .Returns) 1}},{{end}})
{{- if .Benchmark}}


if __name__ == "__main__":
    from torch._dynamo.testing import rand_strided
    from torch._inductor.utils import print_performance

{{- range .Inputs}}
    {{.Name}} = rand_strided({{.Shape}}, {{.Stride}}, device='{{.Device}}', dtype={{.DType}})
{{- end}}
    print_performance(lambda: call([{{names .Inputs}}]))
{{- end}}
`))
