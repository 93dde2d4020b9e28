package scanner

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const suite = `#!/usr/bin/env bash

helper() {
  echo "not a test"
}

testcase_one_liner() { describe "fits on one line"; true; }

testcase_multi_line() {
  describe plays "some music"
  if true; then
    describe "nested does not count"
  fi
}

function testcase_keyword {
  # describe "commented out"
  true
}

function testcase_keyword_parens()
{
  {
    describe "inner block"
  }
  describe outer block
}

testcase_subshell() (
  describe "not scanned"
)

testcase_multi_line() {
  describe "redefined"
}

not_testcase_x() { :; }
`

func TestScanSource(t *testing.T) {
	defs, err := ScanSource("suite.sh", strings.NewReader(suite))
	require.NoError(t, err)

	type def struct {
		name, description string
		line              int
	}
	var got []def
	for _, d := range defs {
		assert.Equal(t, "suite.sh", d.Location.File)
		assert.Equal(t, d.Name, d.Location.Func)
		got = append(got, def{d.Name, d.Description, d.Location.Line})
	}

	assert.Equal(t, []def{
		{"testcase_one_liner", "fits on one line", 7},
		{"testcase_multi_line", "plays some music", 9},
		{"testcase_keyword", "", 16},
		{"testcase_keyword_parens", "outer block", 21},
		{"testcase_subshell", "", 29},
		{"testcase_multi_line", "redefined", 33},
	}, got)
}

func TestNames(t *testing.T) {
	defs, err := ScanSource("suite.sh", strings.NewReader(suite))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"testcase_one_liner",
		"testcase_multi_line",
		"testcase_keyword",
		"testcase_keyword_parens",
		"testcase_subshell",
	}, Names(defs))
}

func TestScanUnbalancedQuotes(t *testing.T) {
	src := `testcase_heredoc() {
  describe "multi line output"
  local msg="first
second"
  echo "$msg"
}

testcase_after() {
  describe after
}
`
	defs, err := ScanSource("x.sh", strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, defs, 2)
	assert.Equal(t, "multi line output", defs[0].Description)
	assert.Equal(t, "testcase_after", defs[1].Name)
	assert.Equal(t, "after", defs[1].Description)
}

func TestScanMultilineDescribe(t *testing.T) {
	src := `testcase_split() {
  describe "first
second" more
  echo "don't
stop here"
}

testcase_unterminated() {
  describe "never closed
}

testcase_next() {
  describe next
}
`
	defs, err := ScanSource("x.sh", strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, defs, 3)
	assert.Equal(t, "first\nsecond more", defs[0].Description)
	assert.Equal(t, "testcase_unterminated", defs[1].Name)
	assert.Equal(t, "never closed", defs[1].Description)
	assert.Equal(t, "testcase_next", defs[2].Name)
	assert.Equal(t, 7, defs[1].Location.Line)
	assert.Equal(t, 11, defs[2].Location.Line)
	assert.Equal(t, "next", defs[2].Description)
}

func TestScan(t *testing.T) {
	path := filepath.Join(t.TempDir(), "suite.sh")
	require.NoError(t, os.WriteFile(path, []byte(suite), 0644))

	defs, err := Scan(path)
	require.NoError(t, err)
	require.Len(t, defs, 6)
	assert.Equal(t, path, defs[0].Location.File)

	_, err = Scan(filepath.Join(t.TempDir(), "missing.sh"))
	require.Error(t, err)
}
