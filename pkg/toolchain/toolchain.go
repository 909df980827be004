// Copyright 2026 fuzzcov project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package toolchain runs a compiler under test on a single fuzz artifact
// and classifies the outcome.
package toolchain

import (
	"fmt"
	"path/filepath"

	"github.com/fuzzcov/fuzzcov/pkg/diag"
	"github.com/fuzzcov/fuzzcov/pkg/osutil"
)

// CoverageMode says how an instrumented build of the toolchain records coverage.
type CoverageMode int

const (
	// Counters: gcov-style .gcda files next to the build tree,
	// redirected with GCOV_PREFIX/GCOV_PREFIX_STRIP.
	Counters CoverageMode = iota
	// Profiles: one llvm .profraw file per process, named by LLVM_PROFILE_FILE.
	Profiles
)

type Toolchain struct {
	Name       string
	Compiler   string
	Flags      []string
	Signatures diag.Signatures
	Mode       CoverageMode
}

const (
	GCC  = "gcc"
	Rust = "rustc"
)

var (
	gccFlags = []string{"-x", "c", "-std=c2x", "-c"}
	// Static library output, dead code kept for coverage visibility,
	// full debug info and maximum optimization levels.
	rustFlags = []string{
		"--crate-type", "staticlib",
		"-C", "link-dead-code",
		"-C", "debuginfo=2",
		"-C", "opt-level=3",
		"-Z", "mir-opt-level=3",
	}
)

// Lookup returns the toolchain with the given name installed under installDir
// (the compiler binary is expected at installDir/bin/<name>).
func Lookup(name, installDir string) (*Toolchain, error) {
	compiler := filepath.Join(installDir, "bin", name)
	return New(name, compiler)
}

// New returns the toolchain with the given name that uses the compiler binary.
func New(name, compiler string) (*Toolchain, error) {
	tc := &Toolchain{
		Name:     name,
		Compiler: compiler,
	}
	switch name {
	case GCC:
		tc.Flags = gccFlags
		tc.Signatures = diag.GCCSignatures
		tc.Mode = Counters
	case Rust:
		tc.Flags = rustFlags
		tc.Signatures = diag.RustSignatures
		tc.Mode = Profiles
	default:
		return nil, fmt.Errorf("unknown toolchain %q (supported: %v, %v)", name, GCC, Rust)
	}
	return tc, nil
}

// Check verifies that the compiler binary exists and is executable.
func (tc *Toolchain) Check() error {
	if !osutil.IsExecutable(tc.Compiler) {
		return fmt.Errorf("%v executable not found at %v", tc.Name, tc.Compiler)
	}
	return nil
}

// Args returns the full argument list for compiling artifact into object.
func (tc *Toolchain) Args(artifact, object string) []string {
	args := append([]string{}, tc.Flags...)
	return append(args, artifact, "-o", object)
}
