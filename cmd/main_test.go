package main

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/ethereum-optimism/optimism/op-service/testlog"
	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/op-shunit/exitcodes"
	"github.com/ethereum-optimism/infra/op-shunit/registry"
)

const sampleScript = `#!/usr/bin/env op-shunit

testcase_no_music() {
  describe "no music"
  run echo "quiet"
  equals "$output" "quiet"
}

testcase_no_game() {
  describe "no game"
  [ "$(pluralize game 2)" = "games" ]
}

testcase_no_footy() {
  describe "no footy"
  skip "season is over"
  false
}
`

const failingScript = `testcase_fails() {
  describe "fails twice"
  [ 1 -eq 2 ]
  false
}
`

func requireBash(t *testing.T) {
	if _, err := exec.LookPath("bash"); err != nil {
		t.Skip("bash is not installed")
	}
}

func writeScript(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "suite.sh")
	require.NoError(t, os.WriteFile(path, []byte(content), 0755))
	return path
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	reg := registry.NewRegistry(registry.Config{Log: testlog.Logger(t, log.LevelInfo)})
	code := run(context.Background(), append([]string{"op-shunit"}, args...), reg, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRunScript(t *testing.T) {
	requireBash(t)
	path := writeScript(t, sampleScript)

	code, stdout, stderr := runCLI(t, path, "--no-color")
	require.Equal(t, exitcodes.Success, code, stderr)
	assert.Equal(t,
		"✓ no music\n✓ no game\n- no footy (skipped: season is over)\n\n3 tests, 2 passed, 0 failed, 1 skipped\n",
		stdout)
}

func TestRunScriptSelectors(t *testing.T) {
	requireBash(t)
	path := writeScript(t, sampleScript)

	code, stdout, stderr := runCLI(t, path, "--no-color", "2", "no game")
	require.Equal(t, exitcodes.Success, code, stderr)
	assert.Equal(t,
		"- no footy (skipped: season is over)\n✓ no game\n\n2 tests, 1 passed, 0 failed, 1 skipped\n",
		stdout)
}

func TestRunScriptFailure(t *testing.T) {
	requireBash(t)
	path := writeScript(t, failingScript)

	code, stdout, _ := runCLI(t, path, "--no-color")
	assert.Equal(t, exitcodes.TestFailure, code)
	assert.Contains(t, stdout, "✗ fails twice\n")
	assert.Contains(t, stdout, path+":3: [ 1 -eq 2 ] (exit status 1)\n")
	assert.Contains(t, stdout, path+":4: false (exit status 1)\n")
}

func TestRunScriptListTests(t *testing.T) {
	path := writeScript(t, sampleScript)

	code, stdout, _ := runCLI(t, path, "--list-tests")
	assert.Equal(t, exitcodes.Success, code)
	assert.Contains(t, stdout, "testcase_no_footy")
	assert.Contains(t, stdout, "no music")
	assert.Contains(t, stdout, "3 tests")
}

func TestRunScriptUnsupportedOption(t *testing.T) {
	path := writeScript(t, sampleScript)

	code, stdout, stderr := runCLI(t, path, "--bogus")
	assert.Equal(t, exitcodes.FatalErr, code)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, path+": unsupported option: --bogus")
}

func TestRunScriptDuplicates(t *testing.T) {
	path := writeScript(t, `testcase_a() { :; }
testcase_b() { :; }
testcase_a() { :; }
testcase_b() { :; }
`)

	code, stdout, stderr := runCLI(t, path)
	assert.Equal(t, exitcodes.FatalErr, code)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "testcase_a is defined 2 times: "+path+":1, "+path+":3")
	assert.Contains(t, stderr, "testcase_b is defined 2 times: "+path+":2, "+path+":4")
}

func TestRunMissingScript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.sh")

	code, _, stderr := runCLI(t, path)
	assert.Equal(t, exitcodes.FatalErr, code)
	assert.Contains(t, stderr, path+":1: main: ")
}

func TestRunWithoutScript(t *testing.T) {
	code, _, stderr := runCLI(t)
	assert.Equal(t, exitcodes.FatalErr, code)
	assert.Contains(t, stderr, "no test script given")

	code, stdout, _ := runCLI(t, "--help")
	assert.Equal(t, exitcodes.Success, code)
	assert.Contains(t, stdout, "op-shunit")
}

func TestSplitScript(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		script     string
		remainArgs []string
	}{
		{"no args", []string{"op-shunit"}, "", []string{"op-shunit"}},
		{"option first", []string{"op-shunit", "-h"}, "", []string{"op-shunit", "-h"}},
		{"script", []string{"op-shunit", "suite.sh", "-f", "0"}, "suite.sh", []string{"suite.sh", "-f", "0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			script, args := splitScript(tt.args)
			assert.Equal(t, tt.script, script)
			assert.Equal(t, tt.remainArgs, args)
		})
	}
}
