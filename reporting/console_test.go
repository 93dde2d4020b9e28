package reporting

import (
	"bytes"
	"errors"
	"testing"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/op-shunit/types"
)

func TestPluralize(t *testing.T) {
	tests := []struct {
		word     string
		count    int
		expected string
	}{
		{"test", 1, "test"},
		{"test", 2, "tests"},
		{"test", 0, "tests"},
		{"bus", 1, "bus"},
		{"bus", 2, "buses"},
		{"failure", 3, "failures"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, Pluralize(tt.word, tt.count), "%s x%d", tt.word, tt.count)
	}
}

func TestTotals(t *testing.T) {
	var totals Totals
	assert.Equal(t, "0 tests, 0 passed, 0 failed, 0 skipped", totals.String())

	totals.Add(types.TestStatusPass)
	assert.Equal(t, "1 test, 1 passed, 0 failed, 0 skipped", totals.String())

	totals.Add(types.TestStatusFail)
	totals.Add(types.TestStatusSkip)
	assert.Equal(t, "3 tests, 1 passed, 1 failed, 1 skipped", totals.String())
}

func TestFormatResult(t *testing.T) {
	failure := types.Failure{
		Location:  types.SourceLocation{File: "suite.sh", Line: 12},
		Status:    1,
		Statement: "[ 1 -eq 2 ]",
	}
	tests := []struct {
		name     string
		result   *types.TestResult
		expected string
	}{
		{
			name: "pass",
			result: &types.TestResult{
				Metadata:    types.TestMetadata{Name: "testcase_a"},
				Description: "plays music",
				Status:      types.TestStatusPass,
			},
			expected: "✓ plays music\n",
		},
		{
			name: "fail with every failure",
			result: &types.TestResult{
				Metadata:    types.TestMetadata{Name: "testcase_b"},
				Description: "fails twice",
				Status:      types.TestStatusFail,
				Failures: []types.Failure{failure, {
					Location: types.SourceLocation{File: "suite.sh", Line: 13},
					Status:   127,
				}},
			},
			expected: "✗ fails twice\n" +
				"  suite.sh:12: [ 1 -eq 2 ] (exit status 1)\n" +
				"  suite.sh:13: exit status 127\n",
		},
		{
			name: "skip with note",
			result: &types.TestResult{
				Metadata: types.TestMetadata{Name: "testcase_c"},
				Status:   types.TestStatusSkip,
				SkipNote: "not today",
			},
			expected: "- testcase_c (skipped: not today)\n",
		},
		{
			name: "skip without note",
			result: &types.TestResult{
				Metadata:    types.TestMetadata{Name: "testcase_d"},
				Description: "later",
				Status:      types.TestStatusSkip,
			},
			expected: "- later (skipped)\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatResult(tt.result, false))
		})
	}
}

func TestFormatResultColor(t *testing.T) {
	text.EnableColors()
	result := &types.TestResult{
		Metadata: types.TestMetadata{Name: "testcase_a"},
		Status:   types.TestStatusPass,
	}
	colored := FormatResult(result, true)
	assert.Contains(t, colored, "\x1b[")
	assert.Contains(t, colored, MarkerPass)
	assert.Contains(t, colored, "testcase_a")
}

func TestConsoleSink(t *testing.T) {
	var out bytes.Buffer
	sink := NewConsoleSink(&out, false)

	require.NoError(t, sink.Consume(&types.TestResult{
		Metadata: types.TestMetadata{Name: "testcase_a"},
		Status:   types.TestStatusPass,
	}, "run-1"))
	require.NoError(t, sink.Consume(&types.TestResult{
		Metadata: types.TestMetadata{Name: "testcase_b"},
		Status:   types.TestStatusSkip,
	}, "run-1"))
	require.NoError(t, sink.Complete("run-1"))

	assert.Equal(t, "✓ testcase_a\n- testcase_b (skipped)\n\n2 tests, 1 passed, 0 failed, 1 skipped\n", out.String())

	out.Reset()
	require.NoError(t, sink.Complete("run-2"))
	assert.Equal(t, "\n0 tests, 0 passed, 0 failed, 0 skipped\n", out.String())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("closed")
}

func TestConsoleSinkWriteError(t *testing.T) {
	sink := NewConsoleSink(failingWriter{}, false)
	err := sink.Consume(&types.TestResult{Status: types.TestStatusPass}, "run")
	require.Error(t, err)
}
