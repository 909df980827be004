// Copyright 2026 fuzzcov project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// fc-validate compiles the given artifacts with the toolchain selected by
// TARGET_NAME (install prefix from GCC_INSTALL/RUSTC_INSTALL) and prints
// the classification of every artifact.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/fuzzcov/fuzzcov/pkg/diag"
	"github.com/fuzzcov/fuzzcov/pkg/fcconfig"
	"github.com/fuzzcov/fuzzcov/pkg/tool"
	"github.com/fuzzcov/fuzzcov/pkg/toolchain"
)

func main() {
	flagCrashes := flag.Bool("crashes", false, "print only artifacts that crash the compiler")
	flag.Parse()
	if flag.NArg() == 0 {
		fmt.Fprintf(os.Stderr, "usage: fc-validate [-crashes] file...\n")
		os.Exit(1)
	}
	tc, err := fcconfig.Validator()
	if err != nil {
		tool.Fail(err)
	}
	objDir, err := os.MkdirTemp("", "fc-validate-")
	if err != nil {
		tool.Fail(err)
	}
	defer os.RemoveAll(objDir)
	validator := toolchain.NewValidator(tc, objDir)
	crashes := 0
	for _, file := range flag.Args() {
		res, msg := validator.Validate(file)
		if res == diag.Crash {
			crashes++
		} else if *flagCrashes {
			continue
		}
		fmt.Printf("%v: %v: %v\n", file, res, msg)
	}
	if crashes != 0 {
		fmt.Printf("%v/%v artifacts crash %v\n", crashes, flag.NArg(), tc.Name)
	}
}
