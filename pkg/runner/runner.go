// Copyright 2026 fuzzcov project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package runner executes one batch of artifacts in its isolated context,
// archives hangs and crashes and extracts the batch coverage report.
package runner

import (
	"fmt"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fuzzcov/fuzzcov/pkg/batch"
	"github.com/fuzzcov/fuzzcov/pkg/covermerger"
	"github.com/fuzzcov/fuzzcov/pkg/diag"
	"github.com/fuzzcov/fuzzcov/pkg/isolate"
	"github.com/fuzzcov/fuzzcov/pkg/log"
	"github.com/fuzzcov/fuzzcov/pkg/osutil"
	"github.com/fuzzcov/fuzzcov/pkg/stat"
	"github.com/fuzzcov/fuzzcov/pkg/toolchain"
)

var (
	statArtifacts = stat.New("artifacts", "Number of compiled artifacts",
		stat.Console, stat.Rate{}, stat.Prometheus("fuzzcov_artifacts"))
	statSafe = stat.New("safe", "Number of artifacts that compiled successfully",
		stat.Prometheus("fuzzcov_safe"))
	statFailures = stat.New("failures", "Number of artifacts rejected by the compiler",
		stat.Prometheus("fuzzcov_failures"))
	statHangs = stat.New("hangs", "Number of artifacts that hit the compile timeout",
		stat.Console, stat.Prometheus("fuzzcov_hangs"))
	statCrashes = stat.New("crashes", "Number of artifacts that crashed the compiler",
		stat.Console, stat.Prometheus("fuzzcov_crashes"))
	statCompileTime = stat.New("compile time", "Mean compile time per artifact (ms)",
		stat.Distribution{})
)

type Config struct {
	Toolchain  *toolchain.Toolchain
	Timeout    time.Duration
	Signatures diag.Signatures
	Backend    covermerger.Backend

	HangsDir    string
	CrashesDir  string
	CoverageDir string

	// ExtractSem, if set, limits the number of concurrent coverage extractions.
	ExtractSem *osutil.Semaphore
}

// PipelineError is a batch-level failure (context reset or coverage extraction).
// The batch coverage contribution is dropped, sibling batches are not affected.
type PipelineError struct {
	Seq   int
	Stage string
	Err   error
}

func (err *PipelineError) Error() string {
	return fmt.Sprintf("batch #%v: %v failed: %v", err.Seq, err.Stage, err.Err)
}

func (err *PipelineError) Unwrap() error {
	return err.Err
}

// Stats are updated by the batch worker and may be read concurrently.
type Stats struct {
	Seq   int
	Total int

	Processed atomic.Int64
	Safe      atomic.Int64
	Failures  atomic.Int64
	Hangs     atomic.Int64
	Crashes   atomic.Int64

	CompileTime stat.AverageValue[time.Duration]
}

func NewStats(b *batch.Batch) *Stats {
	return &Stats{
		Seq:   b.Seq,
		Total: len(b.Artifacts),
	}
}

func (s *Stats) String() string {
	return fmt.Sprintf("batch #%v: hangs: %v, crashes: %v (%v/%v)",
		s.Seq, s.Hangs.Load(), s.Crashes.Load(), s.Processed.Load(), s.Total)
}

type Runner struct {
	cfg *Config
}

func New(cfg *Config) *Runner {
	return &Runner{cfg: cfg}
}

// Run processes all artifacts of the batch sequentially in ctx: the counter-based
// instrumentation of a single context is not safe for concurrent writers.
// Per-artifact outcomes never fail the batch. Returns the batch coverage report,
// or a *PipelineError if the batch contributes no coverage. Hangs and crashes
// are archived in either case.
func (r *Runner) Run(b *batch.Batch, ctx *isolate.Context, stats *Stats) (*covermerger.Report, error) {
	resetErr := r.cfg.Backend.Reset(ctx)
	if resetErr != nil {
		log.Errorf("batch #%v: failed to reset coverage counters: %v", b.Seq, resetErr)
	}
	adapter := &toolchain.Adapter{
		Toolchain:  r.cfg.Toolchain,
		Timeout:    r.cfg.Timeout,
		ObjDir:     ctx.ObjDir,
		Env:        ctx.Env,
		Signatures: r.cfg.Signatures,
	}
	for _, artifact := range b.Artifacts {
		res := adapter.Run(artifact.Path)
		r.record(stats, res)
		log.Logf(1, "%v", stats)
	}
	if resetErr != nil {
		// Counters may hold stale data, the batch report would be wrong.
		return nil, &PipelineError{Seq: b.Seq, Stage: "coverage reset", Err: resetErr}
	}
	log.Logf(0, "%v: done, extracting coverage", stats)
	var out string
	extract := func() error {
		var err error
		out, err = covermerger.ExtractBatch(r.cfg.Backend, ctx, r.cfg.CoverageDir)
		return err
	}
	var err error
	if r.cfg.ExtractSem != nil {
		err = r.cfg.ExtractSem.Do(extract)
	} else {
		err = extract()
	}
	if err != nil {
		return nil, &PipelineError{Seq: b.Seq, Stage: "coverage extraction", Err: err}
	}
	log.Logf(0, "batch #%v: generated coverage file: %v", b.Seq, out)
	return &covermerger.Report{Seq: b.Seq, Path: out}, nil
}

func (r *Runner) record(stats *Stats, res *toolchain.Outcome) {
	stats.Processed.Add(1)
	stats.CompileTime.Save(res.Duration)
	statArtifacts.Add(1)
	statCompileTime.Add(int(res.Duration.Milliseconds()))
	switch res.Result {
	case diag.Safe:
		stats.Safe.Add(1)
		statSafe.Add(1)
	case diag.CompilerFailure:
		stats.Failures.Add(1)
		statFailures.Add(1)
	case diag.Timeout:
		stats.Hangs.Add(1)
		statHangs.Add(1)
		r.archive(r.cfg.HangsDir, res)
	case diag.Crash:
		stats.Crashes.Add(1)
		statCrashes.Add(1)
		if sig, ok := r.signatures().Match(res.Output); ok {
			log.Logf(0, "batch #%v: %v: %v", stats.Seq, res.Artifact, sig)
		}
		r.archive(r.cfg.CrashesDir, res)
	}
}

func (r *Runner) signatures() diag.Signatures {
	if r.cfg.Signatures != nil {
		return r.cfg.Signatures
	}
	return r.cfg.Toolchain.Signatures
}

// archive copies the artifact into dir. File names derive from distinct
// artifacts, so concurrent batches never write the same file.
func (r *Runner) archive(dir string, res *toolchain.Outcome) {
	dst := filepath.Join(dir, filepath.Base(res.Artifact))
	if err := osutil.CopyFile(res.Artifact, dst); err != nil {
		log.Errorf("failed to archive %v %v: %v", res.Result, res.Artifact, err)
	}
}
