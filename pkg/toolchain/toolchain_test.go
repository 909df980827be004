// Copyright 2026 fuzzcov project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package toolchain

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fuzzcov/fuzzcov/pkg/diag"
	"github.com/fuzzcov/fuzzcov/pkg/osutil"
	"github.com/fuzzcov/fuzzcov/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeCompiler(t *testing.T, name, script string) *Toolchain {
	dir := t.TempDir()
	testutil.WriteScript(t, dir, filepath.Join("bin", name), script)
	tc, err := Lookup(name, dir)
	require.NoError(t, err)
	require.NoError(t, tc.Check())
	return tc
}

func writeArtifact(t *testing.T) string {
	file := filepath.Join(t.TempDir(), "1234.fuzz")
	require.NoError(t, osutil.WriteFile(file, []byte("fn main() {}")))
	return file
}

func TestLookup(t *testing.T) {
	tc, err := Lookup(GCC, "/opt/gcc")
	require.NoError(t, err)
	assert.Equal(t, "/opt/gcc/bin/gcc", tc.Compiler)
	assert.Equal(t, Counters, tc.Mode)
	assert.Error(t, tc.Check())

	tc, err = Lookup(Rust, "/opt/rust")
	require.NoError(t, err)
	assert.Equal(t, Profiles, tc.Mode)
	assert.Equal(t, []string{
		"--crate-type", "staticlib",
		"-C", "link-dead-code",
		"-C", "debuginfo=2",
		"-C", "opt-level=3",
		"-Z", "mir-opt-level=3",
		"a.fuzz", "-o", "obj/a.fuzz.o",
	}, tc.Args("a.fuzz", "obj/a.fuzz.o"))

	_, err = Lookup("clang", "/opt/clang")
	assert.Error(t, err)
}

func TestRunClassification(t *testing.T) {
	tests := []struct {
		name   string
		script string
		result diag.Result
		exit   int
	}{
		{"safe", "echo compiled; exit 0", diag.Safe, 0},
		{"failure", "echo 'error: expected `;`' >&2; exit 1", diag.CompilerFailure, 1},
		{"ice", "echo 'internal compiler error: in expand_expr' >&2; exit 4", diag.Crash, 4},
		{"rust-panic", "echo \"thread 'rustc' panicked at src/x.rs\" >&2; exit 101", diag.Crash, 101},
		{"ice-exit0", "echo 'error: internal compiler error' >&2; exit 0", diag.Crash, 0},
		{"binary-ice", "printf '\\377\\376internal compiler error' >&2; exit 1", diag.Crash, 1},
		{"binary", "printf '\\377\\376' >&2; exit 0", diag.CompilerFailure, 0},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			a := &Adapter{
				Toolchain: fakeCompiler(t, Rust, test.script),
				Timeout:   time.Minute,
				ObjDir:    t.TempDir(),
			}
			res := a.Run(writeArtifact(t))
			assert.Equal(t, test.result, res.Result, "output: %s", res.Output)
			assert.Equal(t, test.exit, res.ExitCode)
			assert.NoError(t, res.Err)
			assert.NotContains(t, string(res.Output), "compiled")
		})
	}
}

func TestRunTimeout(t *testing.T) {
	a := &Adapter{
		Toolchain: fakeCompiler(t, GCC, "sleep 60"),
		Timeout:   300 * time.Millisecond,
		ObjDir:    t.TempDir(),
	}
	start := time.Now()
	res := a.Run(writeArtifact(t))
	assert.Equal(t, diag.Timeout, res.Result)
	assert.Equal(t, diag.TimeoutExitCode, res.ExitCode)
	assert.Less(t, time.Since(start), 30*time.Second)
}

func TestRunLaunchFailure(t *testing.T) {
	tc, err := New(GCC, filepath.Join(t.TempDir(), "missing-gcc"))
	require.NoError(t, err)
	a := &Adapter{Toolchain: tc, ObjDir: t.TempDir()}
	res := a.Run(writeArtifact(t))
	assert.Equal(t, diag.CompilerFailure, res.Result)
	assert.Error(t, res.Err)
}

func TestRunArgsAndEnv(t *testing.T) {
	tc := fakeCompiler(t, GCC, `echo "$@" >&2; echo "GCOV_PREFIX=$GCOV_PREFIX" >&2; touch "$7"; exit 1`)
	objDir := t.TempDir()
	a := &Adapter{
		Toolchain: tc,
		ObjDir:    objDir,
		Env:       []string{"GCOV_PREFIX=/tmp/private"},
	}
	artifact := writeArtifact(t)
	res := a.Run(artifact)
	lines := strings.Split(strings.TrimSpace(string(res.Output)), "\n")
	require.Len(t, lines, 2)
	object := filepath.Join(objDir, "1234.fuzz.o")
	assert.Equal(t, "-x c -std=c2x -c "+artifact+" -o "+object, lines[0])
	assert.Equal(t, "GCOV_PREFIX=/tmp/private", lines[1])
	assert.True(t, osutil.IsExist(object))
}

func TestValidate(t *testing.T) {
	tc := fakeCompiler(t, Rust, `echo "profile=$LLVM_PROFILE_FILE" >&2; exit 1`)
	v := NewValidator(tc, t.TempDir())
	assert.Equal(t, ValidateTimeout, v.Timeout)
	res, msg := v.Validate(writeArtifact(t))
	assert.Equal(t, diag.CompilerFailure, res)
	assert.Equal(t, "profile=/dev/null\n", msg)

	objDir := t.TempDir()
	v = NewValidator(fakeCompiler(t, GCC, `echo "gcov=$GCOV_PREFIX" >&2; exit 1`), objDir)
	res, msg = v.Validate(writeArtifact(t))
	assert.Equal(t, diag.CompilerFailure, res)
	assert.Equal(t, "gcov="+filepath.Join(objDir, "gcov")+"\n", msg)

	v = NewValidator(fakeCompiler(t, Rust, "exit 0"), t.TempDir())
	res, msg = v.Validate(writeArtifact(t))
	assert.Equal(t, diag.Safe, res)
	assert.Equal(t, "its safe", msg)

	v = NewValidator(fakeCompiler(t, Rust, "sleep 60"), t.TempDir())
	v.Timeout = 200 * time.Millisecond
	res, msg = v.Validate(writeArtifact(t))
	assert.Equal(t, diag.Timeout, res)
	assert.Equal(t, "timed out", msg)
}
