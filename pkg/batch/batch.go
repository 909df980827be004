// Copyright 2026 fuzzcov project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package batch groups fuzz artifacts into time-ordered, fixed-width windows.
package batch

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// DefaultWidth is the default window width.
const DefaultWidth = time.Hour

// Artifact is a candidate program produced by the generator. Read-only.
type Artifact struct {
	Path    string
	ModTime time.Time
}

// Batch is a group of artifacts whose timestamps fall into one window.
type Batch struct {
	// Seq starts at 1 and strictly increases in time order.
	Seq       int
	Start     time.Time
	Artifacts []Artifact
}

func (b *Batch) String() string {
	return fmt.Sprintf("batch #%v (%v, %v files)", b.Seq, b.Start.Format(time.DateTime), len(b.Artifacts))
}

// Scan returns all files in dir matching the glob pattern together with their modification times.
func Scan(dir, pattern string) ([]Artifact, error) {
	files, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("bad artifact pattern %q: %w", pattern, err)
	}
	var artifacts []Artifact
	for _, file := range files {
		st, err := os.Stat(file)
		if err != nil {
			// The generator may be rotating files under us.
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		if !st.Mode().IsRegular() {
			continue
		}
		artifacts = append(artifacts, Artifact{Path: file, ModTime: st.ModTime()})
	}
	return artifacts, nil
}

// Partition sorts artifacts by modification time and splits them into windows
// of the given width anchored at the first artifact's timestamp.
// Windows without artifacts are not emitted, but the window boundary still
// advances over them. The input slice is not modified.
func Partition(artifacts []Artifact, width time.Duration) []*Batch {
	if len(artifacts) == 0 {
		return nil
	}
	if width <= 0 {
		width = DefaultWidth
	}
	sorted := append([]Artifact{}, artifacts...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].ModTime.Equal(sorted[j].ModTime) {
			return sorted[i].ModTime.Before(sorted[j].ModTime)
		}
		return sorted[i].Path < sorted[j].Path
	})
	var batches []*Batch
	end := sorted[0].ModTime.Add(width)
	var cur []Artifact
	emit := func() {
		if len(cur) == 0 {
			return
		}
		batches = append(batches, &Batch{
			Seq:       len(batches) + 1,
			Start:     end.Add(-width),
			Artifacts: cur,
		})
		cur = nil
	}
	for _, a := range sorted {
		for !a.ModTime.Before(end) {
			emit()
			end = end.Add(width)
		}
		cur = append(cur, a)
	}
	emit()
	return batches
}

// Summary returns a human-readable per-window file count summary.
func Summary(batches []*Batch) string {
	buf := new(bytes.Buffer)
	fmt.Fprintf(buf, "window file summary:\n")
	for _, b := range batches {
		fmt.Fprintf(buf, "%v: %v files\n", b.Start.Format(time.DateTime), len(b.Artifacts))
	}
	return buf.String()
}

// Total returns the number of artifacts in all batches.
func Total(batches []*Batch) int {
	total := 0
	for _, b := range batches {
		total += len(b.Artifacts)
	}
	return total
}
