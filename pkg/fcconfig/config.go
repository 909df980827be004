// Copyright 2026 fuzzcov project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package fcconfig describes the configuration of a coverage collection campaign.
package fcconfig

import (
	"time"

	"github.com/fuzzcov/fuzzcov/pkg/diag"
	"github.com/fuzzcov/fuzzcov/pkg/toolchain"
)

type Config struct {
	// Compiler under test: "gcc" or "rustc".
	Toolchain string `json:"toolchain"`
	// Installation prefix of the instrumented compiler (the binary is <install>/bin/<toolchain>).
	// Defaults to $GCC_INSTALL or $RUSTC_INSTALL.
	Install string `json:"install,omitempty"`
	// Clean instrumented gcc build tree copied into every batch context.
	// Defaults to $GCC_BUILD. Required for gcc.
	BuildTree string `json:"build_tree,omitempty"`
	// Rust source tree used to map coverage back to sources.
	// Defaults to $RUSTC_SRC. Required for rustc.
	SrcDir string `json:"src,omitempty"`

	// Directory with fuzz artifacts (default ./Results/<toolchain>).
	Artifacts    string `json:"artifacts,omitempty"`
	ArtifactGlob string `json:"artifact_glob,omitempty"`
	// Root for hangs/, crashes/ and coverage/ output directories.
	Workdir string `json:"workdir,omitempty"`
	// Root for isolation contexts. Defaults to $TMPDIR, then /tmp/fuzz4all for gcc and /tmp for rustc.
	TempDir string `json:"tmpdir,omitempty"`

	// Width of a batch time window, e.g. "1h" or "30m".
	Window string `json:"window,omitempty"`
	// Number of batches processed in parallel.
	Procs int `json:"procs,omitempty"`
	// Per-artifact compile timeout, e.g. "10s".
	Timeout string `json:"compile_timeout,omitempty"`
	// Limit on concurrent coverage extractions (0 means Procs).
	ExtractProcs int `json:"extract_procs,omitempty"`

	// Crash signatures replacing the toolchain defaults.
	Signatures []string `json:"signatures,omitempty"`

	Lcov     string `json:"lcov,omitempty"`
	Grcov    string `json:"grcov,omitempty"`
	LLVMPath string `json:"llvm_path,omitempty"`

	// Where to upload the cumulative report and the hang/crash corpus:
	// gs://bucket/path or a local directory. Empty disables uploads.
	UploadTo string `json:"upload_to,omitempty"`
	// Address of the status HTTP server. Empty disables the server.
	HTTP string `json:"http,omitempty"`
	// Keep isolation contexts on disk after the campaign.
	KeepContexts bool `json:"keep_contexts,omitempty"`

	// Implementation details beyond this point. Filled after parsing.
	Compiler       *toolchain.Toolchain `json:"-"`
	BatchWidth     time.Duration        `json:"-"`
	CompileTimeout time.Duration        `json:"-"`
	HangsDir       string               `json:"-"`
	CrashesDir     string               `json:"-"`
	CoverageDir    string               `json:"-"`
}

// CrashSignatures returns the configured signature override, or nil.
func (cfg *Config) CrashSignatures() diag.Signatures {
	if len(cfg.Signatures) == 0 {
		return nil
	}
	return diag.Signatures(cfg.Signatures)
}
