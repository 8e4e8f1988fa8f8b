// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package ascend

import (
	"strings"
	"text/template"

	"github.com/gomlx/fxlower/pkg/codegen"
	"github.com/gomlx/fxlower/pkg/codegen/harness"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Host of the generated programs: the kernel is compiled by the Ascend async-compile collaborator, and
// returns one host array per unique output.
var Host = harness.Host{
	Method:         "ascend",
	CompilerImport: "from third_party.DICP.AscendGraph.compile import AsyncCompileAscend",
	CompilerClass:  "AsyncCompileAscend",
	Style:          harness.ReturnsArrays,
}

type kernelData struct {
	GraphID int
	Body    string
}

var kernelTemplate = template.Must(template.New("kernel").Parse(
	`#include "graph_utils.h"
#include <iostream>
#include <fstream>
#include <string.h>
#include <stdint.h>
#include <memory>
#include <numeric>
#include <functional>
#include <limits>

uint32_t graph_id = {{.GraphID}};

int32_t genGraph(Graph& graph) {
{{.Body}}}

extern "C" int compile(char* graph_path) {
    std::string graph_name = "BuildGraph" + std::to_string(graph_id);
    Graph graph(graph_name.c_str());
    Status ret = genGraph(graph);
    if (ret != SUCCESS) {
        std::cout << "Generate simple graph failed." << std::endl;
        return FAILED;
    }
    std::cout << "Generate simple graph success." << std::endl;

    AclgraphBuilder builder;
    builder.saveGraph(graph_path, graph);
    std::cout << "graph path: " << graph_path << std::endl;
    return SUCCESS;
}
`))

// genGraphBody returns the body of genGraph: the declared operators of the unit, followed by the
// registration of each unique output, once.
func genGraphBody(unit *codegen.Unit) string {
	body := codegen.NewBlock(codegen.IndentUnit)
	body.Indent(func() {
		body.Line("std::vector<Operator> graph_inputs;")
		body.Line("std::vector<Operator> graph_outputs;")
		body.Append(unit.Body)
		for _, output := range unit.UniqueOutputs {
			body.Linef("graph_outputs.push_back(%s);", output.Symbol)
		}
		body.Line("graph.SetInputs(graph_inputs).SetOutputs(graph_outputs);")
		body.Line("return 0;")
	})
	return body.String()
}

// Assemble implements backends.Backend.
func (b *Backend) Assemble(unit *codegen.Unit, opts harness.Options) (*harness.Artifacts, error) {
	var kernel strings.Builder
	data := kernelData{GraphID: opts.GraphID, Body: genGraphBody(unit)}
	if err := kernelTemplate.Execute(&kernel, data); err != nil {
		return nil, errors.Wrapf(err, "backend %q: generating the kernel of %q", BackendName, unit.Name)
	}
	artifacts, err := Host.Generate(unit, kernel.String(), opts)
	if err != nil {
		return nil, errors.WithMessagef(err, "backend %q", BackendName)
	}
	klog.V(1).Infof("ascend: assembled graph %q (graph_id=%d): kernel %d bytes, program %d bytes",
		unit.Name, opts.GraphID, len(artifacts.Kernel), len(artifacts.Program))
	return artifacts, nil
}
