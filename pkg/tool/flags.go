// Copyright 2026 fuzzcov project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package tool

import (
	"errors"
	"fmt"
	"strings"
)

// ListFlag allows passing a comma-separated list of values to a single flag,
// e.g. -signatures="internal compiler error,'rustc' panicked".
type ListFlag []string

func (lf *ListFlag) String() string {
	return strings.Join(*lf, ",")
}

// Set is used by flag.Parse to parse the command line argument.
func (lf *ListFlag) Set(value string) error {
	if len(*lf) > 0 {
		return errors.New("list flag was already set")
	}
	for _, elem := range strings.Split(value, ",") {
		elem = strings.TrimSpace(elem)
		if elem == "" {
			continue
		}
		*lf = append(*lf, elem)
	}
	if len(*lf) == 0 {
		return fmt.Errorf("empty list %q", value)
	}
	return nil
}
