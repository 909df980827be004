// Copyright 2026 fuzzcov project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package tool

import (
	"flag"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListFlag(t *testing.T) {
	var list ListFlag
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	set.Var(&list, "signatures", "")
	require.NoError(t, set.Parse([]string{"-signatures", "internal compiler error, 'rustc' panicked,"}))
	assert.Equal(t, ListFlag{"internal compiler error", "'rustc' panicked"}, list)
	assert.Equal(t, "internal compiler error,'rustc' panicked", list.String())
	assert.Error(t, list.Set("more"))

	var empty ListFlag
	assert.Error(t, empty.Set(" , "))
}
