// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package tops

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/gomlx/fxlower/pkg/codegen"
	"github.com/gomlx/fxlower/pkg/codegen/harness"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Host of the generated programs: the wrapper preallocates the output buffers and the kernel writes
// into them.
var Host = harness.Host{
	Method:         "enflame",
	CompilerImport: "from torch._inductor.codecache import AsyncCompile",
	CompilerClass:  "AsyncCompile",
	Style:          harness.PreallocatedBuffers,
}

type kernelData struct {
	GraphID       int
	Body          string
	Outputs       string
	Params        string
	Inputs        []string
	OutputBuffers []string
}

var kernelTemplate = template.Must(template.New("kernel").Parse(
	`#include "common/dtu_utils.h"
#include "common/dtu_utils.cpp"

#include "dtu/hlir_builder/hlir_builder.h"
#include "dtu/hlir_builder/hlir_builder_client_ops.h"

#include <cmath>
#include <fstream>
#include <iostream>
#include <limits>
#include <sstream>
#include <string>
#include <vector>

uint32_t graph_id = {{.GraphID}};
topsExecutable_t exe_ptr;

std::shared_ptr<builder::Builder> build_sample() {
    auto hlir_builder = std::make_shared<builder::Builder>();
    hlir_builder->SetShapeInference(true);
{{.Body}}    hlir_builder->SetOutput({{.Outputs}});
    return hlir_builder;
}

extern "C" int compile(char* graph_path) {
    auto hlir_builder = build_sample();
    compile(hlir_builder, &exe_ptr);
    if (topsExecutableSaveToFile(exe_ptr, graph_path) != topsSuccess) {
        std::cout << "Saving the executable of graph " << graph_id << " failed." << std::endl;
        return -1;
    }
    std::cout << "graph path: " << graph_path << std::endl;
    return 0;
}

extern "C" void run({{.Params}}) {
    std::vector<void *> input_ptrs;
{{- range .Inputs}}
    input_ptrs.emplace_back({{.}});
{{- end}}
    std::vector<void *> output_ptrs;
{{- range .OutputBuffers}}
    output_ptrs.emplace_back({{.}});
{{- end}}
    run(exe_ptr, input_ptrs, output_ptrs);
}
`))

// newKernelData lays out the entry points of unit: one pointer per input, then one per unique output.
func newKernelData(unit *codegen.Unit, opts harness.Options) *kernelData {
	data := &kernelData{GraphID: opts.GraphID}
	body := codegen.NewBlock(codegen.IndentUnit)
	body.Indent(func() { body.Append(unit.Body) })
	data.Body = body.String()

	var params, outputs []string
	for ii := range unit.Inputs {
		name := fmt.Sprintf("input_ptr%d", ii)
		data.Inputs = append(data.Inputs, name)
		params = append(params, "void* "+name)
	}
	for ii, output := range unit.UniqueOutputs {
		name := fmt.Sprintf("output_ptr%d", ii)
		data.OutputBuffers = append(data.OutputBuffers, name)
		params = append(params, "void* "+name)
		outputs = append(outputs, output.Symbol)
	}
	data.Params = strings.Join(params, ", ")
	data.Outputs = codegen.CppRenderer.List(outputs...)
	return data
}

// Assemble implements backends.Backend.
func (b *Backend) Assemble(unit *codegen.Unit, opts harness.Options) (*harness.Artifacts, error) {
	var kernel strings.Builder
	if err := kernelTemplate.Execute(&kernel, newKernelData(unit, opts)); err != nil {
		return nil, errors.Wrapf(err, "backend %q: generating the kernel of %q", BackendName, unit.Name)
	}
	artifacts, err := Host.Generate(unit, kernel.String(), opts)
	if err != nil {
		return nil, errors.WithMessagef(err, "backend %q", BackendName)
	}
	klog.V(1).Infof("tops: assembled graph %q (graph_id=%d): kernel %d bytes, program %d bytes",
		unit.Name, opts.GraphID, len(artifacts.Kernel), len(artifacts.Program))
	return artifacts, nil
}
