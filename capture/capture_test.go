package capture

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunNoCommand(t *testing.T) {
	res := Run(context.Background(), "")
	assert.Equal(t, 0, res.Status)
	assert.Equal(t, "", res.Output)
	assert.Equal(t, []string{}, res.Lines)
	assert.True(t, res.Success())
}

func TestRunCapturesOutputAndStatus(t *testing.T) {
	tests := []struct {
		name       string
		script     string
		wantStatus int
		wantOutput string
		wantLines  []string
	}{
		{
			name:       "single line",
			script:     "echo hello",
			wantStatus: 0,
			wantOutput: "hello",
			wantLines:  []string{"hello"},
		},
		{
			name:       "failure is data",
			script:     "echo oops; exit 3",
			wantStatus: 3,
			wantOutput: "oops",
			wantLines:  []string{"oops"},
		},
		{
			name:       "no output",
			script:     "true",
			wantStatus: 0,
			wantOutput: "",
			wantLines:  []string{},
		},
		{
			name:       "inner blank line kept",
			script:     "printf 'a\\n\\nb\\n'",
			wantStatus: 0,
			wantOutput: "a\n\nb",
			wantLines:  []string{"a", "", "b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Run(context.Background(), "sh", "-c", tt.script)
			assert.Equal(t, tt.wantStatus, res.Status)
			assert.Equal(t, tt.wantOutput, res.Output)
			assert.Equal(t, tt.wantLines, res.Lines)
		})
	}
}

func TestRunMergesStreams(t *testing.T) {
	res := Run(context.Background(), "sh", "-c", "echo out1; echo err1 >&2; echo out2; echo err2 >&2")
	require.Equal(t, 0, res.Status)
	require.Len(t, res.Lines, 4)

	// Relative interleaving is unspecified, per-stream order is not
	var stdout, stderr []string
	for _, line := range res.Lines {
		switch line {
		case "out1", "out2":
			stdout = append(stdout, line)
		case "err1", "err2":
			stderr = append(stderr, line)
		}
	}
	assert.Equal(t, []string{"out1", "out2"}, stdout)
	assert.Equal(t, []string{"err1", "err2"}, stderr)
}

func TestRunUnknownCommand(t *testing.T) {
	res := Run(context.Background(), "op-shunit-definitely-not-a-command")
	assert.Equal(t, StatusNotFound, res.Status)
	assert.False(t, res.Success())
}

func TestRunnerDirAndEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "marker"), []byte("x"), 0644))

	r := &Runner{Dir: dir, Env: []string{"SHUNIT_VALUE=42", "PATH=" + os.Getenv("PATH")}}
	res := r.Run(context.Background(), "sh", "-c", `ls; echo "$SHUNIT_VALUE"`)
	assert.Equal(t, 0, res.Status)
	assert.Equal(t, []string{"marker", "42"}, res.Lines)
}

func TestSplitLines(t *testing.T) {
	assert.Equal(t, []string{}, SplitLines(""))
	assert.Equal(t, []string{"a"}, SplitLines("a"))
	assert.Equal(t, []string{"a", "b"}, SplitLines("a\nb"))
}
