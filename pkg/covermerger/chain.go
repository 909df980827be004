// Copyright 2026 fuzzcov project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package covermerger

import (
	"fmt"
	"sort"

	"github.com/fuzzcov/fuzzcov/pkg/log"
	"github.com/fuzzcov/fuzzcov/pkg/osutil"
)

// Report is a per-batch coverage report.
type Report struct {
	Seq  int
	Path string
}

type ChainResult struct {
	// Cumulative is the last successfully merged report in the chain.
	Cumulative string
	Merged     []int
	Skipped    []int
}

// MergeChain folds reports into a cumulative report in ascending Seq order,
// regardless of the order in the argument. Report i is merged as
// merge(acc, report_i) -> report_i, so each file in the chain holds the
// coverage of all preceding batches. The merge tool is not guaranteed to be
// order-insensitive, so the order must match batch production order.
// Missing reports and failed merge steps are skipped, the chain continues
// with the best available accumulator.
// MergeChain must only be called after all reports have been written.
func MergeChain(m Merger, reports []Report) (*ChainResult, error) {
	sorted := append([]Report{}, reports...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Seq < sorted[j].Seq
	})
	res := new(ChainResult)
	for _, r := range sorted {
		if r.Path == "" || !osutil.IsExist(r.Path) {
			log.Logf(0, "batch #%v: no coverage report, skipping", r.Seq)
			res.Skipped = append(res.Skipped, r.Seq)
			continue
		}
		if res.Cumulative == "" {
			res.Cumulative = r.Path
			res.Merged = append(res.Merged, r.Seq)
			continue
		}
		if err := m.Merge(res.Cumulative, r.Path, r.Path); err != nil {
			log.Errorf("batch #%v: failed to merge %v into %v: %v", r.Seq, res.Cumulative, r.Path, err)
			res.Skipped = append(res.Skipped, r.Seq)
			continue
		}
		log.Logf(1, "merged %v into %v", res.Cumulative, r.Path)
		res.Cumulative = r.Path
		res.Merged = append(res.Merged, r.Seq)
	}
	if res.Cumulative == "" {
		return res, fmt.Errorf("no coverage reports to merge (%v batches)", len(reports))
	}
	return res, nil
}
