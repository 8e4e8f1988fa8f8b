// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package asynccompile

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gomlx/fxlower/pkg/codegen/harness"
	"github.com/gomlx/fxlower/pkg/support/fsutil"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"k8s.io/klog/v2"
)

// DefaultCompiler is the C++ compiler command used if none is configured.
const DefaultCompiler = "c++"

// DefaultFlags passed to the C++ compiler, before the "-o <library> <source>" arguments.
var DefaultFlags = []string{"-shared", "-fPIC", "-O2", "-std=c++17"}

// Toolchain is a Compiler that builds each kernel into a shared library with a local C++ compiler.
//
// Libraries are cached in CacheDir by fingerprint: a kernel is only compiled once, even if submitted
// concurrently. It is safe for concurrent use.
type Toolchain struct {
	// CacheDir where the libraries are stored. It may start with "~".
	CacheDir string

	// Command of the C++ compiler, and its Flags.
	Command string
	Flags   []string

	// Parallelism of SubmitAll. If <= 0 it uses runtime.NumCPU().
	Parallelism int

	group singleflight.Group
}

var _ Compiler = &Toolchain{}

// NewToolchain creates a Toolchain caching the libraries in cacheDir, using the compiler command cxx
// (DefaultCompiler if empty) with DefaultFlags.
func NewToolchain(cacheDir, cxx string) *Toolchain {
	if cxx == "" {
		cxx = DefaultCompiler
	}
	return &Toolchain{CacheDir: cacheDir, Command: cxx, Flags: slices.Clone(DefaultFlags)}
}

// Fingerprint returns the cache key of the kernel compiled with method.
func Fingerprint(method, kernel string) string {
	hash := sha256.New()
	hash.Write([]byte(method))
	hash.Write([]byte{0})
	hash.Write([]byte(kernel))
	return hex.EncodeToString(hash.Sum(nil))
}

// Submit implements Compiler.
func (tc *Toolchain) Submit(ctx context.Context, program string) (*Handle, error) {
	start := time.Now()
	method, kernel, err := harness.ExtractKernel(program)
	if err != nil {
		return nil, err
	}
	cacheDir, err := fsutil.ReplaceTildeInDir(tc.CacheDir)
	if err != nil {
		return nil, err
	}
	fingerprint := Fingerprint(method, kernel)
	handle := &Handle{
		Method:      method,
		Fingerprint: fingerprint,
		Library:     filepath.Join(cacheDir, fingerprint[:2], fingerprint+".so"),
	}
	exists, err := fsutil.FileExists(handle.Library)
	if err != nil {
		return nil, err
	}
	if exists {
		handle.Cached = true
		handle.Elapsed = time.Since(start)
		klog.V(1).Infof("asynccompile: %s kernel %s cached", method, fingerprint[:12])
		return handle, nil
	}

	_, err, _ = tc.group.Do(fingerprint, func() (any, error) {
		return nil, tc.build(ctx, handle, kernel)
	})
	if err != nil {
		return nil, err
	}
	handle.Elapsed = time.Since(start)
	return handle, nil
}

// build compiles kernel into handle.Library, going through scratch files in the same directory.
func (tc *Toolchain) build(ctx context.Context, handle *Handle, kernel string) error {
	dir := filepath.Dir(handle.Library)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "creating cache directory %q", dir)
	}
	source := fsutil.ScratchPath(dir, ".cpp")
	defer func() { _ = os.Remove(source) }()
	if err := os.WriteFile(source, []byte(kernel), 0o644); err != nil {
		return errors.Wrapf(err, "writing kernel source %q", source)
	}
	library := fsutil.ScratchPath(dir, ".so")
	args := append(slices.Clone(tc.Flags), "-o", library, source)
	cmd := exec.CommandContext(ctx, tc.Command, args...)
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output
	klog.V(2).Infof("asynccompile: %s %s", tc.Command, strings.Join(args, " "))
	if err := cmd.Run(); err != nil {
		_ = os.Remove(library)
		return errors.Wrapf(err, "compiling %s kernel %s with %q:\n%s", handle.Method, handle.Fingerprint[:12],
			tc.Command, strings.TrimSpace(output.String()))
	}
	if err := os.Rename(library, handle.Library); err != nil {
		_ = os.Remove(library)
		return errors.Wrapf(err, "moving library to %q", handle.Library)
	}
	if info, err := os.Stat(handle.Library); err == nil {
		klog.V(1).Infof("asynccompile: %s kernel %s (%s of source) built into %s", handle.Method,
			handle.Fingerprint[:12], humanize.Bytes(uint64(len(kernel))), humanize.Bytes(uint64(info.Size())))
	}
	return nil
}

// SubmitAll compiles the kernels of all programs concurrently, with at most Parallelism compilations at a
// time. It returns the handles in the order of programs, or the first error.
func (tc *Toolchain) SubmitAll(ctx context.Context, programs []string) ([]*Handle, error) {
	handles := make([]*Handle, len(programs))
	g, ctx := errgroup.WithContext(ctx)
	limit := tc.Parallelism
	if limit <= 0 {
		limit = runtime.NumCPU()
	}
	g.SetLimit(limit)
	for ii, program := range programs {
		g.Go(func() error {
			handle, err := tc.Submit(ctx, program)
			if err != nil {
				return errors.WithMessagef(err, "program #%d", ii)
			}
			handles[ii] = handle
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return handles, nil
}
