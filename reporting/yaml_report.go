package reporting

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ethereum-optimism/infra/op-shunit/types"
)

// Report is the machine-readable summary of a run
type Report struct {
	RunID     string           `yaml:"run_id"`
	Status    types.TestStatus `yaml:"status"`
	Generated time.Time        `yaml:"generated"`
	Totals    ReportTotals     `yaml:"totals"`
	Sets      types.ResultSets `yaml:"sets"`
	Tests     []ReportTest     `yaml:"tests"`
}

// ReportTotals counts tests per category
type ReportTotals struct {
	Tests   int `yaml:"tests"`
	Passed  int `yaml:"passed"`
	Failed  int `yaml:"failed"`
	Skipped int `yaml:"skipped"`
}

// ReportTest is a single test entry of the report
type ReportTest struct {
	Index       int                  `yaml:"index"`
	Name        string               `yaml:"name"`
	Description string               `yaml:"description"`
	Source      types.SourceLocation `yaml:"source"`
	Status      types.TestStatus     `yaml:"status"`
	Duration    string               `yaml:"duration"`
	SkipNote    string               `yaml:"skip_note,omitempty"`
	Failures    []types.Failure      `yaml:"failures,omitempty"`
}

// YAMLReportSink collects results and writes them as YAML to a file when
// the run completes
type YAMLReportSink struct {
	path    string
	mu      sync.Mutex
	results map[string][]*types.TestResult
}

// NewYAMLReportSink creates a sink writing its report to path
func NewYAMLReportSink(path string) *YAMLReportSink {
	return &YAMLReportSink{
		path:    path,
		results: make(map[string][]*types.TestResult),
	}
}

// Consume collects a test result
func (s *YAMLReportSink) Consume(result *types.TestResult, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[runID] = append(s.results[runID], result)
	return nil
}

// Complete writes the report of the run
func (s *YAMLReportSink) Complete(runID string) error {
	s.mu.Lock()
	results := s.results[runID]
	delete(s.results, runID)
	s.mu.Unlock()

	report, err := BuildReport(runID, results)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create report directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write report file: %w", err)
	}
	return nil
}

// BuildReport assembles the report of a run from its results in execution order
func BuildReport(runID string, results []*types.TestResult) (*Report, error) {
	report := &Report{
		RunID:     runID,
		Generated: time.Now().UTC(),
		Tests:     make([]ReportTest, 0, len(results)),
	}
	for _, result := range results {
		if err := report.Sets.Record(result.Metadata.Name, result.Status); err != nil {
			return nil, err
		}
		report.Tests = append(report.Tests, ReportTest{
			Index:       result.Metadata.Index,
			Name:        result.Metadata.Name,
			Description: result.DisplayName(),
			Source:      result.Metadata.Source,
			Status:      result.Status,
			Duration:    result.Duration.String(),
			SkipNote:    result.SkipNote,
			Failures:    result.Failures,
		})
	}
	report.Status = report.Sets.Status()
	report.Totals = ReportTotals{
		Tests:   len(report.Sets.Executed),
		Passed:  len(report.Sets.Passed),
		Failed:  len(report.Sets.Failed),
		Skipped: len(report.Sets.Skipped),
	}
	return report, nil
}
