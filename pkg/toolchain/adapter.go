// Copyright 2026 fuzzcov project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package toolchain

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fuzzcov/fuzzcov/pkg/diag"
	"github.com/fuzzcov/fuzzcov/pkg/log"
	"github.com/fuzzcov/fuzzcov/pkg/osutil"
)

// Per call-site timeout policies.
const (
	CoverageTimeout = 10 * time.Second
	ValidateTimeout = 30 * time.Second
)

// Adapter runs one compiler invocation per artifact.
type Adapter struct {
	Toolchain *Toolchain
	Timeout   time.Duration
	// ObjDir receives at most one object file per artifact.
	ObjDir string
	// Env is appended to the process environment of every invocation.
	Env []string
	// Signatures override the toolchain default crash signatures if non-nil.
	Signatures diag.Signatures
}

type Outcome struct {
	Artifact string
	Result   diag.Result
	ExitCode int
	Output   []byte
	Duration time.Duration
	// Err is set if the compiler could not be started at all.
	Err error
}

// NewValidator returns an adapter for ahead-of-time validation of a single artifact.
// Coverage output is disabled or redirected under objDir so that validation
// never writes into a shared location such as the instrumented build tree.
func NewValidator(tc *Toolchain, objDir string) *Adapter {
	env := []string{"LLVM_PROFILE_FILE=/dev/null"}
	if tc.Mode == Counters {
		env = append(env, "GCOV_PREFIX="+filepath.Join(objDir, "gcov"))
	}
	return &Adapter{
		Toolchain: tc,
		Timeout:   ValidateTimeout,
		ObjDir:    objDir,
		Env:       env,
	}
}

func (a *Adapter) signatures() diag.Signatures {
	if a.Signatures != nil {
		return a.Signatures
	}
	return a.Toolchain.Signatures
}

// ObjectPath returns the object file path the artifact is compiled into.
func (a *Adapter) ObjectPath(artifact string) string {
	return filepath.Join(a.ObjDir, filepath.Base(artifact)+".o")
}

// Run compiles the artifact and classifies the result.
// It never fails: launch errors are reported as CompilerFailure.
func (a *Adapter) Run(artifact string) *Outcome {
	timeout := a.Timeout
	if timeout == 0 {
		timeout = CoverageTimeout
	}
	cmd := osutil.Command(a.Toolchain.Compiler, a.Toolchain.Args(artifact, a.ObjectPath(artifact))...)
	cmd.Env = append(os.Environ(), a.Env...)
	cmd.Stdout = io.Discard
	start := time.Now()
	output, err := osutil.Run(timeout, cmd)
	res := &Outcome{
		Artifact: artifact,
		Output:   output,
		Duration: time.Since(start),
	}
	var verr *osutil.VerboseError
	switch {
	case err == nil:
	case errors.As(err, &verr):
		res.ExitCode = verr.ExitCode
		if verr.Timedout {
			res.ExitCode = diag.TimeoutExitCode
		}
	default:
		log.Logf(0, "failed to run %v on %v: %v", a.Toolchain.Name, artifact, err)
		res.Err = err
		res.Result = diag.CompilerFailure
		return res
	}
	res.Result = diag.Classify(res.ExitCode, res.Output, a.signatures())
	log.Logf(3, "%v: %v (exit %v, %v)", artifact, res.Result, res.ExitCode, res.Duration)
	return res
}

// Validate compiles the artifact with the validation policy and returns
// the result with a human-readable message.
func (a *Adapter) Validate(artifact string) (diag.Result, string) {
	res := a.Run(artifact)
	switch res.Result {
	case diag.Safe:
		return res.Result, "its safe"
	case diag.Timeout:
		return res.Result, "timed out"
	}
	if res.Err != nil {
		return res.Result, res.Err.Error()
	}
	return res.Result, string(res.Output)
}
