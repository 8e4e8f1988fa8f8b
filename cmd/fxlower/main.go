// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// fxlower compiles traced graphs, described in YAML files, into the programs of a backend.
//
// For each graph it writes <out>/<name>.py, the complete program to be run by the framework, and
// <out>/<name>.<backend>.cpp, the generated kernel. With -compile it also builds the kernels into shared
// libraries with a local C++ compiler.
//
// Usage:
//
//	fxlower -backend=ascend:graph_id=1 -out=/tmp/generated graph1.yaml graph2.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/gomlx/fxlower/backends"
	_ "github.com/gomlx/fxlower/backends/default"
	"github.com/gomlx/fxlower/pkg/asynccompile"
	"github.com/gomlx/fxlower/pkg/fx"
	"github.com/gomlx/fxlower/pkg/lower"
	"github.com/gomlx/fxlower/pkg/support/fsutil"
	"github.com/janpfeifer/must"
	"github.com/muesli/termenv"
	"github.com/schollz/progressbar/v3"
	"k8s.io/klog/v2"
)

var (
	flagBackend = flag.String("backend", "",
		fmt.Sprintf("Backend configuration, formatted as \"<backend>:<option>=<value>,...\". "+
			"If empty it uses $%s, or the first registered backend.", backends.FXLOWER_BACKEND))
	flagOut       = flag.String("out", ".", "Directory where to write the generated programs and kernels.")
	flagBenchmark = flag.Bool("benchmark", false, "Add a benchmark main to the generated programs.")
	flagGraphID   = flag.Int("graph_id", -1,
		"Graph id of the first graph, the following ones are numbered sequentially. "+
			"If negative, the graph_id of the backend configuration is used for all graphs.")
	flagCompile     = flag.Bool("compile", false, "Compile the generated kernels with the C++ compiler given by -cxx.")
	flagCXX         = flag.String("cxx", asynccompile.DefaultCompiler, "C++ compiler used by -compile.")
	flagCache       = flag.String("cache", "~/.cache/fxlower", "Directory where -compile caches the built kernels.")
	flagParallelism = flag.Int("parallelism", 0, "Maximum number of concurrent compilations. If 0, the number of CPUs.")
)

// job is the lowering of one graph file.
type job struct {
	File    string
	Graph   *fx.Graph
	Result  *lower.Result
	Program string // Path to the generated program.
	Kernel  string // Path to the generated kernel.
	Library string
	Cached  bool
	Err     error
}

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	files := flag.Args()
	if len(files) == 0 {
		klog.Errorf("Missing YAML graph files to compile. See 'fxlower -help'")
		os.Exit(1)
	}
	backend := must.M1(backends.NewOrErr(*flagBackend))
	outDir := must.M1(fsutil.ReplaceTildeInDir(*flagOut))
	must.M(os.MkdirAll(outDir, 0o755))

	out := termenv.NewOutput(os.Stdout)
	interactive := out.Profile != termenv.Ascii && len(files) > 1
	var bar *progressbar.ProgressBar
	if interactive {
		out.HideCursor()
		bar = progressbar.NewOptions(len(files),
			progressbar.OptionSetDescription(fmt.Sprintf("lowering to %s", backend.Name())),
			progressbar.OptionUseANSICodes(true),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionSetTheme(progressbar.ThemeUnicode),
		)
	}
	jobs := make([]*job, len(files))
	for ii, file := range files {
		jobs[ii] = lowerFile(backend, file, ii, outDir)
		if bar != nil {
			_ = bar.Add(1)
		}
	}
	if bar != nil {
		_ = bar.Close()
		out.ShowCursor()
		fmt.Println()
	}

	if *flagCompile {
		compileAll(jobs)
	}
	fmt.Println(titleStyle.Render(fmt.Sprintf("%s: %s", backend.Name(), backend.Description())))
	table := summary(jobs)
	fmt.Println(table.Table.Render())
	if failed := table.Failed(); failed > 0 {
		klog.Errorf("%d of %d graphs failed", failed, len(jobs))
		os.Exit(1)
	}
}

// lowerFile reads the graph in file, lowers it and writes the artifacts in outDir.
func lowerFile(backend backends.Backend, file string, index int, outDir string) *job {
	j := &job{File: file}
	j.Graph, j.Err = fx.ReadYAMLFile(file)
	if j.Err != nil {
		return j
	}
	var opts []lower.Option
	if *flagGraphID >= 0 {
		opts = append(opts, lower.WithGraphID(*flagGraphID+index))
	}
	if *flagBenchmark {
		opts = append(opts, lower.WithBenchmark())
	}
	j.Result, j.Err = lower.Compile(backend, j.Graph, opts...)
	if j.Err != nil {
		klog.Errorf("%s: %+v", file, j.Err)
		return j
	}
	j.Program = filepath.Join(outDir, j.Graph.Name+".py")
	j.Kernel = filepath.Join(outDir, fmt.Sprintf("%s.%s.cpp", j.Graph.Name, backend.Name()))
	if j.Err = fsutil.WriteFileAtomic(j.Program, []byte(j.Result.Artifacts.Program), 0o644); j.Err != nil {
		return j
	}
	j.Err = fsutil.WriteFileAtomic(j.Kernel, []byte(j.Result.Artifacts.Kernel), 0o644)
	return j
}

// compileAll builds the kernels of the successful jobs.
func compileAll(jobs []*job) {
	tc := asynccompile.NewToolchain(*flagCache, *flagCXX)
	tc.Parallelism = *flagParallelism
	var programs []string
	var compiled []*job
	for _, j := range jobs {
		if j.Err == nil {
			programs = append(programs, j.Result.Artifacts.Program)
			compiled = append(compiled, j)
		}
	}
	if len(programs) == 0 {
		return
	}
	handles, err := tc.SubmitAll(context.Background(), programs)
	if err != nil {
		// SubmitAll stops at the first failure: submit one at a time to attribute the errors.
		klog.Warningf("compilation failed, retrying one graph at a time: %v", err)
		for _, j := range compiled {
			handle, err := tc.Submit(context.Background(), j.Result.Artifacts.Program)
			if err != nil {
				j.Err = err
				klog.Errorf("%s: %+v", j.File, err)
				continue
			}
			j.Library, j.Cached = handle.Library, handle.Cached
		}
		return
	}
	for ii, handle := range handles {
		compiled[ii].Library, compiled[ii].Cached = handle.Library, handle.Cached
	}
}

// summary table of the jobs, with failures in red.
func summary(jobs []*job) *statusTable {
	headers := []string{"graph", "nodes", "kernel", "program"}
	if *flagCompile {
		headers = append(headers, "library")
	}
	headers = append(headers, "status")
	table := newStatusTable(headers, lipgloss.Left, lipgloss.Right, lipgloss.Right, lipgloss.Left)
	for _, j := range jobs {
		row := []string{j.File, "", "", ""}
		if j.Graph != nil {
			row[0] = j.Graph.Name
			row[1] = strconv.Itoa(j.Graph.Len())
		}
		if j.Result != nil && j.Result.Artifacts != nil {
			row[2] = humanize.Bytes(uint64(len(j.Result.Artifacts.Kernel)))
			row[3] = j.Program
		}
		if *flagCompile {
			library := j.Library
			if j.Cached {
				library += " (cached)"
			}
			row = append(row, library)
		}
		status, text := rowOK, "ok"
		switch {
		case j.Err != nil:
			status, text = rowFailed, j.Err.Error()
		case j.Cached:
			status = rowCached
		}
		table.Row(status, append(row, text)...)
	}
	return table
}
