// Copyright 2026 fuzzcov project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package fcconfig

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/fuzzcov/fuzzcov/pkg/diag"
	"github.com/fuzzcov/fuzzcov/pkg/osutil"
	"github.com/fuzzcov/fuzzcov/pkg/testutil"
	"github.com/fuzzcov/fuzzcov/pkg/toolchain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type env struct {
	install   string
	tree      string
	artifacts string
	workdir   string
}

func makeEnv(t *testing.T, name string) *env {
	e := &env{
		install:   t.TempDir(),
		tree:      t.TempDir(),
		artifacts: t.TempDir(),
		workdir:   t.TempDir(),
	}
	testutil.WriteScript(t, e.install, filepath.Join("bin", name), "exit 0")
	return e
}

func TestLoadData(t *testing.T) {
	e := makeEnv(t, toolchain.GCC)
	cfg, err := LoadData([]byte(fmt.Sprintf(`{
		# gcc campaign
		"toolchain": "gcc",
		"install": %q,
		"build_tree": %q,
		"artifacts": %q,
		"workdir": %q,
		"tmpdir": "/tmp/fuzzcov-test",
		"window": "30m",
		"procs": 3
	}`, e.install, e.tree, e.artifacts, e.workdir)))
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, cfg.BatchWidth)
	assert.Equal(t, 10*time.Second, cfg.CompileTimeout)
	assert.Equal(t, 3, cfg.Procs)
	assert.Equal(t, 3, cfg.ExtractProcs)
	assert.Equal(t, "*.fuzz", cfg.ArtifactGlob)
	assert.Equal(t, filepath.Join(e.install, "bin", "gcc"), cfg.Compiler.Compiler)
	assert.Equal(t, toolchain.Counters, cfg.Compiler.Mode)
	assert.Equal(t, filepath.Join(e.workdir, "hangs", "gcc"), cfg.HangsDir)
	assert.Equal(t, filepath.Join(e.workdir, "crashes", "gcc"), cfg.CrashesDir)
	assert.Equal(t, filepath.Join(e.workdir, "coverage", "gcc"), cfg.CoverageDir)
	assert.Equal(t, "/tmp/fuzzcov-test", cfg.TempDir)
	assert.Equal(t, diag.GCCSignatures, cfg.Compiler.Signatures)
}

func TestFromEnv(t *testing.T) {
	e := makeEnv(t, toolchain.Rust)
	t.Setenv("RUSTC_INSTALL", e.install)
	t.Setenv("RUSTC_SRC", e.tree)
	t.Setenv("TMPDIR", "")
	t.Chdir(e.workdir)
	require.NoError(t, osutil.MkdirAll(filepath.Join("Results", "rustc")))

	cfg, err := FromEnv(toolchain.Rust)
	require.NoError(t, err)
	assert.Equal(t, toolchain.Profiles, cfg.Compiler.Mode)
	assert.Equal(t, e.tree, cfg.SrcDir)
	assert.Equal(t, filepath.Join(e.workdir, "Results", "rustc"), cfg.Artifacts)
	assert.Equal(t, "/tmp", cfg.TempDir)
	assert.Equal(t, time.Hour, cfg.BatchWidth)
}

func TestSignaturesOverride(t *testing.T) {
	e := makeEnv(t, toolchain.GCC)
	t.Setenv("GCC_INSTALL", e.install)
	t.Setenv("GCC_BUILD", e.tree)
	cfg, err := LoadData([]byte(fmt.Sprintf(`{"toolchain": "gcc", "artifacts": %q,
		"signatures": ["Segmentation fault"]}`, e.artifacts)))
	require.NoError(t, err)
	assert.Equal(t, diag.Signatures{"Segmentation fault"}, cfg.Compiler.Signatures)
}

func TestErrors(t *testing.T) {
	e := makeEnv(t, toolchain.GCC)
	t.Setenv("GCC_INSTALL", "")
	t.Setenv("GCC_BUILD", "")
	tests := []struct {
		name string
		cfg  string
		err  string
	}{
		{"no-toolchain", `{}`, "toolchain is empty"},
		{"unknown-toolchain", `{"toolchain": "clang"}`, "clang"},
		{"no-install", `{"toolchain": "gcc"}`, "GCC_INSTALL is not set"},
		{"missing-compiler", fmt.Sprintf(`{"toolchain": "gcc", "install": %q}`, e.tree), ""},
		{"no-tree", fmt.Sprintf(`{"toolchain": "gcc", "install": %q}`, e.install), "build_tree"},
		{"no-artifacts", fmt.Sprintf(`{"toolchain": "gcc", "install": %q, "build_tree": %q,
			"artifacts": "/nonexistent"}`, e.install, e.tree), "artifacts"},
		{"bad-window", fmt.Sprintf(`{"toolchain": "gcc", "install": %q, "build_tree": %q,
			"artifacts": %q, "window": "0s"}`, e.install, e.tree, e.artifacts), "window"},
		{"bad-timeout", fmt.Sprintf(`{"toolchain": "gcc", "install": %q, "build_tree": %q,
			"artifacts": %q, "compile_timeout": "soon"}`, e.install, e.tree, e.artifacts), "compile_timeout"},
		{"bad-procs", fmt.Sprintf(`{"toolchain": "gcc", "install": %q, "build_tree": %q,
			"artifacts": %q, "procs": -1}`, e.install, e.tree, e.artifacts), "procs"},
		{"unknown-field", `{"toolchain": "gcc", "kernel_obj": "/"}`, "kernel_obj"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := LoadData([]byte(test.cfg))
			require.Error(t, err)
			assert.Contains(t, err.Error(), test.err)
		})
	}
}

func TestValidator(t *testing.T) {
	e := makeEnv(t, toolchain.Rust)
	t.Setenv("TARGET_NAME", "")
	_, err := Validator()
	assert.Error(t, err)

	t.Setenv("TARGET_NAME", toolchain.Rust)
	t.Setenv("RUSTC_INSTALL", e.install)
	tc, err := Validator()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(e.install, "bin", "rustc"), tc.Compiler)
}
