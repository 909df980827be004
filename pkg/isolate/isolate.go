// Copyright 2026 fuzzcov project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package isolate allocates private coverage-instrumentation state for a batch.
//
// An instrumented compiler writes its coverage counters to a location derived
// from environment variables. If two batches ran with the same variables they
// would update the same counters. Every batch therefore gets its own Context,
// and the Context's Env overlay is passed explicitly to every compiler
// invocation of that batch; the process environment is never modified.
package isolate

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/fuzzcov/fuzzcov/pkg/log"
	"github.com/fuzzcov/fuzzcov/pkg/osutil"
	"github.com/fuzzcov/fuzzcov/pkg/toolchain"
	"github.com/google/uuid"
)

type Context struct {
	Seq  int
	Mode toolchain.CoverageMode
	// Token is a random identifier unique across pipeline restarts.
	Token string
	// Dir holds the coverage state: a private copy of the instrumented
	// build tree (Counters) or the directory .profraw files go to (Profiles).
	Dir    string
	ObjDir string
	// Env is the environment overlay for compiler invocations.
	Env []string
}

const maxAttempts = 10

// NewToken returns a fresh isolation token.
func NewToken() string {
	return uuid.NewString()[:8]
}

// StripCount returns the GCOV_PREFIX_STRIP value for the given prefix directory.
func StripCount(dir string) int {
	return osutil.PathDepth(dir) + 1
}

// New creates a context of the given mode. cleanTree is required for Counters mode.
func New(mode toolchain.CoverageMode, tempRoot, cleanTree string, seq int) (*Context, error) {
	switch mode {
	case toolchain.Counters:
		return NewCounters(tempRoot, cleanTree, seq)
	case toolchain.Profiles:
		return NewProfiles(tempRoot, seq)
	}
	return nil, fmt.Errorf("unknown coverage mode %v", mode)
}

// NewCounters creates a context for gcov-style counters: the clean instrumented
// build tree is copied into a private directory and counter files are
// redirected there with GCOV_PREFIX and GCOV_PREFIX_STRIP.
func NewCounters(tempRoot, cleanTree string, seq int) (*Context, error) {
	if !osutil.IsDir(cleanTree) {
		return nil, fmt.Errorf("build tree %v is not a directory", cleanTree)
	}
	if err := osutil.MkdirAll(tempRoot); err != nil {
		return nil, err
	}
	token, dir, err := allocate(func(token string) string {
		return filepath.Join(tempRoot, "gcc-build-"+token)
	})
	if err != nil {
		return nil, err
	}
	ctx := &Context{
		Seq:    seq,
		Mode:   toolchain.Counters,
		Token:  token,
		Dir:    dir,
		ObjDir: dir + "-obj",
		Env: []string{
			"GCOV_PREFIX=" + dir,
			"GCOV_PREFIX_STRIP=" + strconv.Itoa(StripCount(dir)),
		},
	}
	// Fail early, a partially copied tree produces bogus coverage.
	if err := osutil.CopyDirRecursively(cleanTree, dir); err != nil {
		ctx.Remove()
		return nil, fmt.Errorf("failed to copy build tree %v: %w", cleanTree, err)
	}
	if err := osutil.MkdirAll(ctx.ObjDir); err != nil {
		ctx.Remove()
		return nil, err
	}
	log.Logf(1, "batch #%v: counters in %v (strip %v)", seq, dir, StripCount(dir))
	return ctx, nil
}

// NewProfiles creates a context for per-process profile files: every compiler
// process writes <Dir>/<pid>-<module signature>.profraw.
func NewProfiles(tempRoot string, seq int) (*Context, error) {
	base := filepath.Join(tempRoot, "fuzz4all", "rustc")
	if err := osutil.MkdirAll(base); err != nil {
		return nil, err
	}
	token, dir, err := allocate(func(token string) string {
		return filepath.Join(base, fmt.Sprintf("profraw-%v-%v", token, seq))
	})
	if err != nil {
		return nil, err
	}
	ctx := &Context{
		Seq:    seq,
		Mode:   toolchain.Profiles,
		Token:  token,
		Dir:    dir,
		ObjDir: filepath.Join(base, fmt.Sprintf("object-%v-%v", token, seq)),
		Env: []string{
			"LLVM_PROFILE_FILE=" + filepath.Join(dir, "%p-%m.profraw"),
		},
	}
	if err := osutil.MkdirAll(ctx.ObjDir); err != nil {
		ctx.Remove()
		return nil, err
	}
	log.Logf(1, "batch #%v: profiles in %v", seq, dir)
	return ctx, nil
}

// allocate creates a new directory named by pathFor with a fresh token.
// Mkdir fails if the directory exists, so a token is never reused.
func allocate(pathFor func(token string) string) (string, string, error) {
	for i := 0; i < maxAttempts; i++ {
		token := NewToken()
		dir := pathFor(token)
		err := os.Mkdir(dir, osutil.DefaultDirPerm)
		if os.IsExist(err) {
			continue
		}
		if err != nil {
			return "", "", err
		}
		return token, dir, nil
	}
	return "", "", fmt.Errorf("failed to allocate a unique directory after %v attempts", maxAttempts)
}

// Remove deletes all storage of the context.
func (ctx *Context) Remove() error {
	err1 := os.RemoveAll(ctx.Dir)
	err2 := os.RemoveAll(ctx.ObjDir)
	if err1 != nil {
		return err1
	}
	return err2
}

func (ctx *Context) String() string {
	return fmt.Sprintf("context %v (batch #%v, %v)", ctx.Token, ctx.Seq, ctx.Dir)
}
