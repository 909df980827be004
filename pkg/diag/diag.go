// Copyright 2026 fuzzcov project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package diag classifies the outcome of a single compiler invocation
// from its exit status and diagnostic output.
package diag

import (
	"bytes"
	"strings"
	"unicode/utf8"
)

type Result int

const (
	Safe Result = iota
	CompilerFailure
	Timeout
	Crash
)

func (r Result) String() string {
	switch r {
	case Safe:
		return "safe"
	case CompilerFailure:
		return "failure"
	case Timeout:
		return "timeout"
	case Crash:
		return "crash"
	}
	return "unknown"
}

// TimeoutExitCode is the exit code reserved for a run killed by the timeout
// wrapper (the same value coreutils timeout(1) uses).
const TimeoutExitCode = 124

// Signatures is a set of case-insensitive substrings that identify
// an internal compiler error in diagnostic output.
type Signatures []string

var (
	GCCSignatures  = Signatures{"internal compiler error"}
	RustSignatures = Signatures{"internal compiler error", "'rustc' panicked"}
)

// Match returns the first signature found in output, if any.
func (sigs Signatures) Match(output []byte) (string, bool) {
	lower := bytes.ToLower(output)
	for _, sig := range sigs {
		sig = strings.ToLower(sig)
		if sig == "" {
			continue
		}
		if bytes.Contains(lower, []byte(sig)) {
			return sig, true
		}
	}
	return "", false
}

// Classify maps exit code and diagnostic output to a Result.
// Signatures are matched on raw bytes, so non-text bytes quoted from the
// artifact don't hide a crash. Otherwise clean output that is not valid
// UTF-8 text is treated as an ordinary compiler failure.
func Classify(exitCode int, output []byte, sigs Signatures) Result {
	if exitCode == TimeoutExitCode {
		return Timeout
	}
	if _, ok := sigs.Match(output); ok {
		return Crash
	}
	if exitCode != 0 || !utf8.Valid(output) {
		return CompilerFailure
	}
	return Safe
}
