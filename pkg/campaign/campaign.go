// Copyright 2026 fuzzcov project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package campaign drives a coverage collection campaign: it partitions the
// artifact corpus into time-window batches, runs the batches in parallel in
// isolated contexts and merges the per-batch coverage reports in batch order.
package campaign

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fuzzcov/fuzzcov/pkg/asset"
	"github.com/fuzzcov/fuzzcov/pkg/batch"
	"github.com/fuzzcov/fuzzcov/pkg/config"
	"github.com/fuzzcov/fuzzcov/pkg/covermerger"
	"github.com/fuzzcov/fuzzcov/pkg/fcconfig"
	"github.com/fuzzcov/fuzzcov/pkg/isolate"
	"github.com/fuzzcov/fuzzcov/pkg/log"
	"github.com/fuzzcov/fuzzcov/pkg/osutil"
	"github.com/fuzzcov/fuzzcov/pkg/runner"
	"github.com/fuzzcov/fuzzcov/pkg/stat"
	"golang.org/x/sync/errgroup"
)

var (
	statBatches = stat.New("batches", "Number of finished batches",
		stat.Console, stat.Prometheus("fuzzcov_batches"))
	statBatchErrors = stat.New("batch errors", "Number of batches that produced no coverage report",
		stat.Console, stat.Prometheus("fuzzcov_batch_errors"))
)

// HeartbeatPeriod is how often console stats are logged while batches run.
var HeartbeatPeriod = time.Minute

type Campaign struct {
	cfg     *fcconfig.Config
	backend covermerger.Backend
	start   time.Time

	mu      sync.Mutex
	stats   []*runner.Stats
	reports []covermerger.Report
	failed  map[int]error
}

type Summary struct {
	Toolchain string
	Batches   []*runner.Stats
	// Per-batch coverage reports in batch order.
	Reports []string
	// The last report of the merge chain, holds coverage of all merged batches.
	Cumulative string
	Merged     []int
	Skipped    []int
	Failed     map[int]error
	Processed  int
	Hangs      int
	Crashes    int
	Uploaded   []*asset.Asset
}

// New prepares a campaign for the completed configuration.
func New(cfg *fcconfig.Config) (*Campaign, error) {
	backend, err := covermerger.Make(cfg.Compiler.Mode, &covermerger.Config{
		Lcov:       cfg.Lcov,
		Grcov:      cfg.Grcov,
		SrcDir:     cfg.SrcDir,
		InstallDir: cfg.Install,
		LLVMPath:   cfg.LLVMPath,
	})
	if err != nil {
		return nil, err
	}
	for _, dir := range []string{cfg.HangsDir, cfg.CrashesDir, cfg.CoverageDir, cfg.TempDir} {
		if err := osutil.MkdirAll(dir); err != nil {
			return nil, fmt.Errorf("failed to create %v: %w", dir, err)
		}
	}
	// Keep the effective configuration next to the reports it produced.
	if err := config.SaveFile(filepath.Join(cfg.CoverageDir, "campaign.cfg"), cfg); err != nil {
		return nil, err
	}
	return &Campaign{
		cfg:     cfg,
		backend: backend,
		start:   time.Now(),
		failed:  make(map[int]error),
	}, nil
}

func (c *Campaign) StartTime() time.Time {
	return c.start
}

// Progress returns stats of all batches, it can be called concurrently with Run.
func (c *Campaign) Progress() []*runner.Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*runner.Stats{}, c.stats...)
}

// Run processes all artifacts and returns the campaign summary.
// Failures of individual batches are reported in the summary, an error is returned
// only if there is nothing to process or no coverage report was produced.
func (c *Campaign) Run(ctx context.Context) (*Summary, error) {
	artifacts, err := batch.Scan(c.cfg.Artifacts, c.cfg.ArtifactGlob)
	if err != nil {
		return nil, err
	}
	batches := batch.Partition(artifacts, c.cfg.BatchWidth)
	if len(batches) == 0 {
		return nil, fmt.Errorf("no artifacts matching %v in %v", c.cfg.ArtifactGlob, c.cfg.Artifacts)
	}
	log.Logf(0, "%v artifacts in %v batches, %s", batch.Total(batches), len(batches), batch.Summary(batches))

	c.mu.Lock()
	c.stats = nil
	for _, b := range batches {
		c.stats = append(c.stats, runner.NewStats(b))
	}
	stats := append([]*runner.Stats{}, c.stats...)
	c.mu.Unlock()

	r := runner.New(&runner.Config{
		Toolchain:   c.cfg.Compiler,
		Timeout:     c.cfg.CompileTimeout,
		Backend:     c.backend,
		HangsDir:    c.cfg.HangsDir,
		CrashesDir:  c.cfg.CrashesDir,
		CoverageDir: c.cfg.CoverageDir,
		ExtractSem:  osutil.NewSemaphore(c.cfg.ExtractProcs),
	})
	done := make(chan bool)
	go c.heartbeat(done)
	var g errgroup.Group
	g.SetLimit(c.cfg.Procs)
	for i, b := range batches {
		g.Go(func() error {
			c.runBatch(ctx, r, b, stats[i])
			return nil
		})
	}
	// Merge must not start before every batch has written its report.
	g.Wait()
	close(done)

	res, mergeErr := covermerger.MergeChain(c.backend, c.sortedReports())
	summary := c.summary(stats, res)
	if mergeErr != nil {
		return summary, mergeErr
	}
	log.Logf(0, "cumulative coverage report: %v", res.Cumulative)
	if c.cfg.UploadTo != "" {
		summary.Uploaded = c.upload(ctx, res.Cumulative)
	}
	return summary, nil
}

func (c *Campaign) runBatch(ctx context.Context, r *runner.Runner, b *batch.Batch, stats *runner.Stats) {
	defer statBatches.Add(1)
	report, err := c.processBatch(ctx, r, b, stats)
	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		log.Error(err)
		statBatchErrors.Add(1)
		c.failed[b.Seq] = err
		c.reports = append(c.reports, covermerger.Report{Seq: b.Seq})
		return
	}
	c.reports = append(c.reports, *report)
}

func (c *Campaign) processBatch(ctx context.Context, r *runner.Runner, b *batch.Batch,
	stats *runner.Stats) (*covermerger.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, &runner.PipelineError{Seq: b.Seq, Stage: "scheduling", Err: err}
	}
	log.Logf(0, "%v: starting", b)
	ictx, err := isolate.New(c.cfg.Compiler.Mode, c.cfg.TempDir, c.cfg.BuildTree, b.Seq)
	if err != nil {
		return nil, &runner.PipelineError{Seq: b.Seq, Stage: "context creation", Err: err}
	}
	if !c.cfg.KeepContexts {
		defer func() {
			if err := ictx.Remove(); err != nil {
				log.Errorf("failed to remove %v: %v", ictx, err)
			}
		}()
	}
	return r.Run(b, ictx, stats)
}

func (c *Campaign) sortedReports() []covermerger.Report {
	c.mu.Lock()
	defer c.mu.Unlock()
	reports := append([]covermerger.Report{}, c.reports...)
	slices.SortFunc(reports, func(a, b covermerger.Report) int {
		return a.Seq - b.Seq
	})
	return reports
}

func (c *Campaign) summary(stats []*runner.Stats, res *covermerger.ChainResult) *Summary {
	s := &Summary{
		Toolchain:  c.cfg.Toolchain,
		Batches:    stats,
		Cumulative: res.Cumulative,
		Merged:     res.Merged,
		Skipped:    res.Skipped,
		Failed:     make(map[int]error),
	}
	for _, r := range c.sortedReports() {
		if r.Path != "" {
			s.Reports = append(s.Reports, r.Path)
		}
	}
	c.mu.Lock()
	for seq, err := range c.failed {
		s.Failed[seq] = err
	}
	c.mu.Unlock()
	for _, st := range stats {
		s.Processed += int(st.Processed.Load())
		s.Hangs += int(st.Hangs.Load())
		s.Crashes += int(st.Crashes.Load())
	}
	return s
}

func (c *Campaign) upload(ctx context.Context, cumulative string) []*asset.Asset {
	storage, err := asset.StorageFromConfig(ctx, &asset.Config{UploadTo: c.cfg.UploadTo})
	if err != nil {
		log.Errorf("failed to create asset storage: %v", err)
		return nil
	}
	defer storage.Close()
	tag := asset.Tag(c.cfg.Toolchain, c.start)
	var uploaded []*asset.Asset
	if a, err := storage.UploadFile(cumulative, asset.CoverageReport, tag); err != nil {
		log.Errorf("failed to upload %v: %v", cumulative, err)
	} else {
		uploaded = append(uploaded, a)
	}
	for typ, dir := range map[asset.Type]string{
		asset.HangArtifact:  c.cfg.HangsDir,
		asset.CrashArtifact: c.cfg.CrashesDir,
	} {
		assets, err := storage.UploadDir(dir, typ, tag)
		if err != nil {
			log.Errorf("failed to upload %v: %v", dir, err)
		}
		uploaded = append(uploaded, assets...)
	}
	log.Logf(0, "uploaded %v assets to %v", len(uploaded), c.cfg.UploadTo)
	return uploaded
}

func (c *Campaign) heartbeat(done <-chan bool) {
	ticker := time.NewTicker(HeartbeatPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
		}
		var parts []string
		for _, s := range stat.Collect(stat.Console) {
			parts = append(parts, fmt.Sprintf("%v=%v", s.Name, s.Value))
		}
		log.Logf(0, "%v", strings.Join(parts, " "))
	}
}

func (s *Summary) String() string {
	buf := new(bytes.Buffer)
	for _, st := range s.Batches {
		fmt.Fprintf(buf, "%v\n", st)
	}
	fmt.Fprintf(buf, "generated coverage files:\n")
	for _, report := range s.Reports {
		fmt.Fprintf(buf, "\t%v\n", report)
	}
	for _, seq := range slices.Sorted(maps.Keys(s.Failed)) {
		fmt.Fprintf(buf, "failed: %v\n", s.Failed[seq])
	}
	fmt.Fprintf(buf, "cumulative coverage: %v\n", s.Cumulative)
	fmt.Fprintf(buf, "%v: processed %v artifacts, hangs: %v, crashes: %v\n",
		s.Toolchain, s.Processed, s.Hangs, s.Crashes)
	return buf.String()
}
