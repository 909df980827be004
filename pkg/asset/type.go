// Copyright 2026 fuzzcov project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package asset

type Type string

const (
	CoverageReport Type = "coverage"
	HangArtifact   Type = "hangs"
	CrashArtifact  Type = "crashes"
)

type TypeDescription struct {
	Title       string
	ContentType string
}

var assetTypes = map[Type]*TypeDescription{
	CoverageReport: {
		Title:       "cumulative coverage report (lcov)",
		ContentType: "text/plain",
	},
	HangArtifact: {
		Title: "compiler hang reproducer",
	},
	CrashArtifact: {
		Title: "compiler crash reproducer",
	},
}

func GetTypeDescription(typ Type) *TypeDescription {
	return assetTypes[typ]
}
