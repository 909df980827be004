// Copyright 2026 fuzzcov project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// fc-collect replays a fuzz artifact corpus against an instrumented compiler,
// collects hangs and crashes and produces per-window and cumulative coverage reports.
//
// Configuration comes either from a JSON/YAML config file:
//
//	fc-collect -config gcc.yaml
//
// or from the environment (GCC_INSTALL, GCC_BUILD, RUSTC_INSTALL, RUSTC_SRC, TMPDIR):
//
//	fc-collect -toolchain rustc -procs 8
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fuzzcov/fuzzcov/pkg/campaign"
	"github.com/fuzzcov/fuzzcov/pkg/diag"
	"github.com/fuzzcov/fuzzcov/pkg/fcconfig"
	"github.com/fuzzcov/fuzzcov/pkg/httpsrv"
	"github.com/fuzzcov/fuzzcov/pkg/log"
	"github.com/fuzzcov/fuzzcov/pkg/tool"
	"github.com/fuzzcov/fuzzcov/pkg/toolchain"
)

func main() {
	var (
		flagConfig     = flag.String("config", "", "campaign config file (.json or .yaml)")
		flagToolchain  = flag.String("toolchain", toolchain.GCC, "toolchain to use without a config file (gcc or rustc)")
		flagProcs      = flag.Int("procs", 0, "number of batches processed in parallel (overrides config)")
		flagHTTP       = flag.String("http", "", "status server address (overrides config)")
		flagSignatures tool.ListFlag
	)
	flag.Var(&flagSignatures, "signatures", "comma-separated crash signatures replacing the toolchain defaults")
	flag.Parse()

	var cfg *fcconfig.Config
	var err error
	if *flagConfig != "" {
		cfg, err = fcconfig.LoadFile(*flagConfig)
	} else {
		cfg, err = fcconfig.FromEnv(*flagToolchain)
	}
	if err != nil {
		tool.Failf("%v", err)
	}
	if *flagProcs > 0 {
		cfg.Procs = *flagProcs
		cfg.ExtractProcs = *flagProcs
	}
	if *flagHTTP != "" {
		cfg.HTTP = *flagHTTP
	}
	if len(flagSignatures) != 0 {
		cfg.Compiler.Signatures = diag.Signatures(flagSignatures)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := campaign.New(cfg)
	if err != nil {
		tool.Fail(err)
	}
	if cfg.HTTP != "" {
		log.EnableLogCaching(1000, 1<<20)
		serv := &httpsrv.HTTPServer{
			Addr:      cfg.HTTP,
			Toolchain: cfg.Toolchain,
			StartTime: c.StartTime(),
			Progress:  c.Progress,
		}
		go func() {
			if err := serv.Serve(ctx); err != nil {
				log.Errorf("http server failed: %v", err)
			}
		}()
	}
	summary, err := c.Run(ctx)
	if summary != nil {
		fmt.Print(summary)
	}
	if err != nil {
		log.Fatal(err)
	}
}
