// Copyright 2026 fuzzcov project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testNested struct {
	Aaa int
	Bbb string
}

type testConfig struct {
	Foo int
	Bar string
	Qux []string
	Box testNested
}

func TestLoad(t *testing.T) {
	tests := []struct {
		input  string
		output testConfig
		err    bool
	}{
		{
			input:  `{"foo": 42}`,
			output: testConfig{Foo: 42},
		},
		{
			input:  `{"BAR": "Baz", "foo": 42}`,
			output: testConfig{Foo: 42, Bar: "Baz"},
		},
		{
			input:  "# comment\n{\n  # another\n  \"qux\": [\"a\", \"b\"]\n}",
			output: testConfig{Qux: []string{"a", "b"}},
		},
		{
			input: `{"foobar": 42}`,
			err:   true,
		},
		{
			input: `{"box": {"aaa": 1, "ccc": 2}}`,
			err:   true,
		},
	}
	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			var cfg testConfig
			err := LoadData([]byte(test.input), &cfg)
			if test.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if diff := cmp.Diff(test.output, cfg); diff != "" {
				t.Fatal(diff)
			}
		})
	}
}

func TestLoadYAMLFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(file, []byte("foo: 7\nbox:\n  aaa: 3\n  bbb: x\n"), 0644))
	var cfg testConfig
	require.NoError(t, LoadFile(file, &cfg))
	assert.Equal(t, testConfig{Foo: 7, Box: testNested{Aaa: 3, Bbb: "x"}}, cfg)

	require.NoError(t, os.WriteFile(file, []byte("unknown: 1\n"), 0644))
	assert.Error(t, LoadFile(file, &cfg))
}

func TestSaveLoadFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "cfg.json")
	in := testConfig{Foo: 1, Bar: "bar", Qux: []string{"q"}}
	require.NoError(t, SaveFile(file, in))
	var out testConfig
	require.NoError(t, LoadFile(file, &out))
	assert.Equal(t, in, out)
}
