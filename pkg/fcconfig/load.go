// Copyright 2026 fuzzcov project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package fcconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/fuzzcov/fuzzcov/pkg/config"
	"github.com/fuzzcov/fuzzcov/pkg/osutil"
	"github.com/fuzzcov/fuzzcov/pkg/toolchain"
)

func LoadData(data []byte) (*Config, error) {
	cfg := defaultValues()
	if err := config.LoadData(data, cfg); err != nil {
		return nil, err
	}
	if err := Complete(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func LoadFile(filename string) (*Config, error) {
	cfg := defaultValues()
	if err := config.LoadFile(filename, cfg); err != nil {
		return nil, err
	}
	if err := Complete(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv returns the configuration for the toolchain with all paths taken
// from the environment.
func FromEnv(name string) (*Config, error) {
	cfg := defaultValues()
	cfg.Toolchain = name
	if err := Complete(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaultValues() *Config {
	return &Config{
		ArtifactGlob: "*.fuzz",
		Workdir:      ".",
		Window:       "1h",
		Timeout:      toolchain.CoverageTimeout.String(),
		Procs:        runtime.NumCPU(),
		Lcov:         "lcov",
		Grcov:        "grcov",
	}
}

// InstallEnv returns the environment variable holding the install prefix of the toolchain.
func InstallEnv(name string) string {
	switch name {
	case toolchain.GCC:
		return "GCC_INSTALL"
	case toolchain.Rust:
		return "RUSTC_INSTALL"
	}
	return ""
}

// Validator returns the toolchain selected by $TARGET_NAME for artifact validation.
func Validator() (*toolchain.Toolchain, error) {
	name := os.Getenv("TARGET_NAME")
	if name == "" {
		return nil, fmt.Errorf("TARGET_NAME is not set")
	}
	tc, err := toolchain.Lookup(name, os.Getenv(InstallEnv(name)))
	if err != nil {
		return nil, err
	}
	if err := tc.Check(); err != nil {
		return nil, err
	}
	return tc, nil
}

func Complete(cfg *Config) error {
	if cfg.Toolchain == "" {
		return fmt.Errorf("config param toolchain is empty")
	}
	if err := completeToolchain(cfg); err != nil {
		return err
	}
	if err := completeDirs(cfg); err != nil {
		return err
	}
	var err error
	if cfg.BatchWidth, err = parseDuration("window", cfg.Window); err != nil {
		return err
	}
	if cfg.CompileTimeout, err = parseDuration("compile_timeout", cfg.Timeout); err != nil {
		return err
	}
	if cfg.Procs < 1 {
		return fmt.Errorf("bad config param procs: '%v', want >= 1", cfg.Procs)
	}
	if cfg.ExtractProcs == 0 {
		cfg.ExtractProcs = cfg.Procs
	}
	if cfg.ExtractProcs < 1 {
		return fmt.Errorf("bad config param extract_procs: '%v', want >= 1", cfg.ExtractProcs)
	}
	if cfg.ArtifactGlob == "" {
		return fmt.Errorf("config param artifact_glob is empty")
	}
	if _, err := filepath.Match(cfg.ArtifactGlob, ""); err != nil {
		return fmt.Errorf("bad config param artifact_glob: %w", err)
	}
	return nil
}

func completeToolchain(cfg *Config) error {
	if cfg.Install == "" {
		cfg.Install = os.Getenv(InstallEnv(cfg.Toolchain))
	}
	if cfg.Install == "" && InstallEnv(cfg.Toolchain) != "" {
		return fmt.Errorf("config param install is empty and %v is not set", InstallEnv(cfg.Toolchain))
	}
	cfg.Install = osutil.Abs(cfg.Install)
	var err error
	if cfg.Compiler, err = toolchain.Lookup(cfg.Toolchain, cfg.Install); err != nil {
		return err
	}
	if err := cfg.Compiler.Check(); err != nil {
		return err
	}
	if sigs := cfg.CrashSignatures(); sigs != nil {
		cfg.Compiler.Signatures = sigs
	}
	switch cfg.Compiler.Mode {
	case toolchain.Counters:
		if cfg.BuildTree == "" {
			cfg.BuildTree = os.Getenv("GCC_BUILD")
		}
		cfg.BuildTree = osutil.Abs(cfg.BuildTree)
		if !osutil.IsDir(cfg.BuildTree) {
			return fmt.Errorf("bad config param build_tree: %q is not a directory", cfg.BuildTree)
		}
	case toolchain.Profiles:
		if cfg.SrcDir == "" {
			cfg.SrcDir = os.Getenv("RUSTC_SRC")
		}
		cfg.SrcDir = osutil.Abs(cfg.SrcDir)
		if !osutil.IsDir(cfg.SrcDir) {
			return fmt.Errorf("bad config param src: %q is not a directory", cfg.SrcDir)
		}
	}
	return nil
}

func completeDirs(cfg *Config) error {
	if cfg.Artifacts == "" {
		cfg.Artifacts = filepath.Join("Results", cfg.Toolchain)
	}
	cfg.Artifacts = osutil.Abs(cfg.Artifacts)
	if !osutil.IsDir(cfg.Artifacts) {
		return fmt.Errorf("bad config param artifacts: %q is not a directory", cfg.Artifacts)
	}
	if cfg.Workdir == "" {
		return fmt.Errorf("config param workdir is empty")
	}
	cfg.Workdir = osutil.Abs(cfg.Workdir)
	cfg.HangsDir = filepath.Join(cfg.Workdir, "hangs", cfg.Toolchain)
	cfg.CrashesDir = filepath.Join(cfg.Workdir, "crashes", cfg.Toolchain)
	cfg.CoverageDir = filepath.Join(cfg.Workdir, "coverage", cfg.Toolchain)
	if cfg.TempDir == "" {
		cfg.TempDir = os.Getenv("TMPDIR")
	}
	if cfg.TempDir == "" {
		cfg.TempDir = "/tmp"
		if cfg.Compiler.Mode == toolchain.Counters {
			cfg.TempDir = "/tmp/fuzz4all"
		}
	}
	cfg.TempDir = osutil.Abs(cfg.TempDir)
	return nil
}

func parseDuration(name, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("bad config param %v: %w", name, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("bad config param %v: '%v', want a positive duration", name, value)
	}
	return d, nil
}
