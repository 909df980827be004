// Copyright 2026 fuzzcov project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package covermerger extracts per-batch coverage reports from isolated
// contexts and folds them into a cumulative report.
// Reports are opaque files (lcov tracefiles) produced and merged by external tools.
package covermerger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fuzzcov/fuzzcov/pkg/isolate"
	"github.com/fuzzcov/fuzzcov/pkg/log"
	"github.com/fuzzcov/fuzzcov/pkg/osutil"
	"github.com/fuzzcov/fuzzcov/pkg/toolchain"
)

// Merger merges two reports into out. out may be the same file as next.
type Merger interface {
	Merge(acc, next, out string) error
}

type Backend interface {
	Merger
	// Reset zeroes coverage state collected so far in the context.
	Reset(ctx *isolate.Context) error
	// Extract writes the coverage report of the context to out.
	Extract(ctx *isolate.Context, out string) error
}

// DefaultTimeout bounds every coverage tool invocation.
// Capturing a full compiler build tree takes a while.
const DefaultTimeout = time.Hour

// ReportPath returns the per-batch report path for batch seq.
func ReportPath(dir string, seq int) string {
	return filepath.Join(dir, fmt.Sprintf("cov_%v.info", seq))
}

// Config describes the external coverage tools.
type Config struct {
	Lcov  string
	Grcov string
	// Rust source tree, install dir and llvm tools dir used by grcov.
	SrcDir     string
	InstallDir string
	LLVMPath   string
	Timeout    time.Duration
}

// Make returns the backend matching the coverage mode.
func Make(mode toolchain.CoverageMode, cfg *Config) (Backend, error) {
	lcov := &Lcov{Bin: cfg.Lcov, Timeout: cfg.Timeout}
	switch mode {
	case toolchain.Counters:
		return lcov, nil
	case toolchain.Profiles:
		llvmPath := cfg.LLVMPath
		if llvmPath == "" {
			llvmPath = filepath.Join(cfg.SrcDir, "build", "x86_64-unknown-linux-gnu", "ci-llvm", "bin")
		}
		return &Grcov{
			Bin:        cfg.Grcov,
			SrcDir:     cfg.SrcDir,
			InstallDir: cfg.InstallDir,
			LLVMPath:   llvmPath,
			Timeout:    cfg.Timeout,
			Lcov:       lcov,
		}, nil
	}
	return nil, fmt.Errorf("unknown coverage mode %v", mode)
}

// Lcov handles gcov counters with lcov.
type Lcov struct {
	Bin     string
	Timeout time.Duration
}

func (l *Lcov) run(args ...string) error {
	bin := l.Bin
	if bin == "" {
		bin = "lcov"
	}
	_, err := osutil.RunCmd(timeoutOrDefault(l.Timeout), "", bin, args...)
	return err
}

func (l *Lcov) Reset(ctx *isolate.Context) error {
	if err := l.run("-z", "-d", ctx.Dir); err != nil {
		return osutil.PrependContext("lcov reset", err)
	}
	return nil
}

func (l *Lcov) Extract(ctx *isolate.Context, out string) error {
	if err := l.run("-c", "-d", ctx.Dir, "-o", out); err != nil {
		return osutil.PrependContext("lcov capture", err)
	}
	return checkReport(out)
}

func (l *Lcov) Merge(acc, next, out string) error {
	if err := l.run("-a", acc, "-a", next, "-o", out); err != nil {
		return osutil.PrependContext("lcov merge", err)
	}
	return checkReport(out)
}

// Grcov handles llvm .profraw files with grcov. Reports are emitted in lcov
// format, so merging is done by lcov.
type Grcov struct {
	Bin        string
	SrcDir     string
	InstallDir string
	LLVMPath   string
	Timeout    time.Duration
	Lcov       *Lcov
}

func (g *Grcov) Reset(ctx *isolate.Context) error {
	files, err := osutil.ListDir(ctx.Dir)
	if err != nil {
		return fmt.Errorf("failed to list %v: %w", ctx.Dir, err)
	}
	for _, file := range files {
		if !strings.HasSuffix(file, ".profraw") {
			continue
		}
		if err := os.Remove(filepath.Join(ctx.Dir, file)); err != nil {
			return err
		}
	}
	return nil
}

func (g *Grcov) Extract(ctx *isolate.Context, out string) error {
	bin := g.Bin
	if bin == "" {
		bin = "grcov"
	}
	_, err := osutil.RunCmd(timeoutOrDefault(g.Timeout), "", bin, ctx.Dir,
		"-s", filepath.Join(g.SrcDir, "compiler"),
		"-b", g.InstallDir,
		"--llvm-path", g.LLVMPath,
		"-t", "lcov",
		"-o", out)
	if err != nil {
		return osutil.PrependContext("grcov", err)
	}
	return checkReport(out)
}

func (g *Grcov) Merge(acc, next, out string) error {
	return g.Lcov.Merge(acc, next, out)
}

func checkReport(file string) error {
	if !osutil.IsExist(file) {
		return fmt.Errorf("coverage tool did not produce %v", file)
	}
	return nil
}

func timeoutOrDefault(timeout time.Duration) time.Duration {
	if timeout == 0 {
		return DefaultTimeout
	}
	return timeout
}

// ExtractBatch runs extraction for one context into the batch's report file.
func ExtractBatch(b Backend, ctx *isolate.Context, dir string) (string, error) {
	out := ReportPath(dir, ctx.Seq)
	start := time.Now()
	if err := b.Extract(ctx, out); err != nil {
		return "", err
	}
	log.Logf(1, "batch #%v: coverage report %v (%v)", ctx.Seq, out, time.Since(start).Round(time.Second))
	return out, nil
}
