package registry

import (
	"runtime"
	"testing"

	"github.com/ethereum-optimism/optimism/op-service/testlog"
	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/op-shunit/runner"
	"github.com/ethereum-optimism/infra/op-shunit/types"
)

func newTestRegistry(t *testing.T) *Registry {
	return NewRegistry(Config{Log: testlog.Logger(t, log.LevelInfo)})
}

func noop(*runner.T) {}

func currentLine() int {
	_, _, line, _ := runtime.Caller(1)
	return line
}

func TestRegisterKeepsOrder(t *testing.T) {
	reg := newTestRegistry(t)
	reg.Register("testcase_b", noop)
	reg.Register("testcase_a", noop, "handles", "the a case")
	reg.Register("testcase_c", noop)

	meta := reg.Metadata()
	require.Len(t, meta, 3)
	assert.Equal(t, []string{"testcase_b", "testcase_a", "testcase_c"}, []string{meta[0].Name, meta[1].Name, meta[2].Name})
	for i, m := range meta {
		assert.Equal(t, i, m.Index)
	}
	assert.Equal(t, "testcase_b", meta[0].Description)
	assert.Equal(t, "handles the a case", meta[1].Description)
	assert.Equal(t, 3, reg.Len())
}

func TestRegisterRecordsCallerLocation(t *testing.T) {
	reg := newTestRegistry(t)
	line := currentLine() + 1
	reg.Register("testcase_located", noop)

	test, ok := reg.Lookup("testcase_located")
	require.True(t, ok)
	assert.Contains(t, test.Metadata.Source.File, "registry_test.go")
	assert.Equal(t, line, test.Metadata.Source.Line)
}

func TestRegisterInvalid(t *testing.T) {
	reg := newTestRegistry(t)
	tests := []struct {
		name string
		test string
		fn   runner.TestFunc
	}{
		{name: "missing prefix", test: "music", fn: noop},
		{name: "empty suffix", test: "testcase_", fn: noop},
		{name: "bad characters", test: "testcase_no-music", fn: noop},
		{name: "nil body", test: "testcase_nobody", fn: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Panics(t, func() { reg.Register(tt.test, tt.fn) })
		})
	}
	assert.Equal(t, 0, reg.Len())
}

func TestDuplicateKeepsFirstPositionAndLastBody(t *testing.T) {
	reg := newTestRegistry(t)
	var calls []string
	first := types.SourceLocation{File: "suite.sh", Line: 3}
	second := types.SourceLocation{File: "suite.sh", Line: 12}

	reg.RegisterAt(first, "testcase_dup", func(*runner.T) { calls = append(calls, "first") }, "first body")
	reg.RegisterAt(types.SourceLocation{File: "suite.sh", Line: 7}, "testcase_other", noop)
	reg.RegisterAt(second, "testcase_dup", func(*runner.T) { calls = append(calls, "second") }, "second body")

	tests := reg.Tests()
	require.Len(t, tests, 2)
	assert.Equal(t, "testcase_dup", tests[0].Metadata.Name)
	assert.Equal(t, 0, tests[0].Metadata.Index)
	assert.Equal(t, first, tests[0].Metadata.Source)
	assert.Equal(t, "second body", tests[0].Metadata.Description)

	tests[0].Func(nil)
	assert.Equal(t, []string{"second"}, calls)

	dups := reg.Duplicates()
	require.Len(t, dups, 1)
	assert.Equal(t, "testcase_dup", dups[0].Name)
	assert.Equal(t, []types.SourceLocation{first, second}, dups[0].Locations)
}

func TestValidate(t *testing.T) {
	reg := newTestRegistry(t)
	reg.RegisterAt(types.SourceLocation{File: "a.sh", Line: 1}, "testcase_x", noop)
	require.NoError(t, reg.Validate(true))

	reg.RegisterAt(types.SourceLocation{File: "a.sh", Line: 9}, "testcase_x", noop)
	reg.RegisterAt(types.SourceLocation{File: "b.sh", Line: 2}, "testcase_x", noop)
	reg.RegisterAt(types.SourceLocation{File: "a.sh", Line: 4}, "testcase_y", noop)
	reg.RegisterAt(types.SourceLocation{File: "a.sh", Line: 5}, "testcase_y", noop)

	require.NoError(t, reg.Validate(false))

	err := reg.Validate(true)
	require.Error(t, err)
	var dupErr *DuplicateError
	require.ErrorAs(t, err, &dupErr)
	require.Len(t, dupErr.Duplicates, 2)
	assert.Equal(t, "duplicate test definitions:\n"+
		"testcase_x is defined 3 times: a.sh:1, a.sh:9, b.sh:2\n"+
		"testcase_y is defined 2 times: a.sh:4, a.sh:5", err.Error())
}

func TestLookupMissing(t *testing.T) {
	reg := newTestRegistry(t)
	_, ok := reg.Lookup("testcase_missing")
	assert.False(t, ok)
}

func TestHooks(t *testing.T) {
	reg := newTestRegistry(t)
	assert.Nil(t, reg.Hooks().Setup)

	var ran bool
	reg.SetHooks(runner.Hooks{Setup: func(*runner.T) { ran = true }})
	hooks := reg.Hooks()
	require.NotNil(t, hooks.Setup)
	assert.Nil(t, hooks.Teardown)
	hooks.Setup(nil)
	assert.True(t, ran)
}

func TestTestsReturnsCopy(t *testing.T) {
	reg := newTestRegistry(t)
	reg.Register("testcase_one", noop)

	tests := reg.Tests()
	tests[0].Metadata.Name = "changed"
	test, ok := reg.Lookup("testcase_one")
	require.True(t, ok)
	assert.Equal(t, "testcase_one", test.Metadata.Name)
}
