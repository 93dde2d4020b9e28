package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/acarl005/stripansi"

	"github.com/ethereum-optimism/infra/op-shunit/reporting"
	"github.com/ethereum-optimism/infra/op-shunit/types"
)

const (
	RunDirectoryPrefix = "testrun-" // Standardized prefix for run directories
	AllLogsFilename    = "all.log"
	SummaryFilename    = "summary.log"
)

// ResultSink is an interface for different ways of consuming test results
type ResultSink interface {
	// Consume processes a single test result
	Consume(result *types.TestResult, runID string) error
	// Complete is called when all results have been consumed
	Complete(runID string) error
}

// FileLogger writes test results below a run directory:
//
//	testrun-<runID>/
//	  all.log
//	  summary.log
//	  passed/<test>.log
//	  failed/<test>.log
//	  skipped/<test>.log
type FileLogger struct {
	baseDir      string
	logDir       string
	mu           sync.Mutex
	sinks        []ResultSink
	asyncWriters map[string]*AsyncFile
	runID        string
}

// AsyncFile provides non-blocking file writing capabilities
type AsyncFile struct {
	file    *os.File
	queue   chan []byte
	wg      sync.WaitGroup
	mu      sync.Mutex
	stopped bool
	err     error
}

// NewAsyncFile creates a new AsyncFile for non-blocking writes
func NewAsyncFile(path string) (*AsyncFile, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create file %s: %w", path, err)
	}

	af := &AsyncFile{
		file:  file,
		queue: make(chan []byte, 100),
	}
	af.wg.Add(1)
	go af.processQueue()
	return af, nil
}

// Write queues data to be written asynchronously
func (af *AsyncFile) Write(data []byte) error {
	af.mu.Lock()
	defer af.mu.Unlock()

	if af.stopped {
		return fmt.Errorf("async file is closed")
	}

	dataCopy := make([]byte, len(data))
	copy(dataCopy, data)
	af.queue <- dataCopy
	return nil
}

func (af *AsyncFile) processQueue() {
	defer af.wg.Done()

	for data := range af.queue {
		if _, err := af.file.Write(data); err != nil && af.err == nil {
			af.err = err
		}
	}
}

// Close stops the async writer and closes the file. It returns the first
// write error, if any.
func (af *AsyncFile) Close() error {
	af.mu.Lock()
	if !af.stopped {
		af.stopped = true
		close(af.queue)
	}
	af.mu.Unlock()

	af.wg.Wait()
	if err := af.file.Close(); err != nil && af.err == nil {
		af.err = err
	}
	return af.err
}

// NewFileLogger creates the run directory for runID below baseDir
func NewFileLogger(baseDir string, runID string) (*FileLogger, error) {
	if runID == "" {
		return nil, fmt.Errorf("runID cannot be empty")
	}
	if baseDir == "" {
		return nil, fmt.Errorf("baseDir cannot be empty")
	}

	logDir := filepath.Join(baseDir, RunDirectoryPrefix+runID)
	dirs := []string{baseDir, logDir}
	for _, status := range []types.TestStatus{types.TestStatusPass, types.TestStatusFail, types.TestStatusSkip} {
		dirs = append(dirs, filepath.Join(logDir, statusDir(status)))
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	logger := &FileLogger{
		baseDir:      baseDir,
		logDir:       logDir,
		asyncWriters: make(map[string]*AsyncFile),
		runID:        runID,
	}
	logger.sinks = []ResultSink{
		&AllLogsFileSink{logger: logger},
		&PerTestFileSink{logger: logger},
		&SummaryFileSink{logger: logger, totals: make(map[string]*reporting.Totals)},
	}
	return logger, nil
}

func (l *FileLogger) getAsyncWriter(path string) (*AsyncFile, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if writer, exists := l.asyncWriters[path]; exists {
		return writer, nil
	}
	writer, err := NewAsyncFile(path)
	if err != nil {
		return nil, err
	}
	l.asyncWriters[path] = writer
	return writer, nil
}

func (l *FileLogger) closeAllWriters() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var firstErr error
	for path, writer := range l.asyncWriters {
		if err := writer.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to write %s: %w", path, err)
		}
	}
	l.asyncWriters = make(map[string]*AsyncFile)
	return firstErr
}

// GetDirectoryForRunID returns the path for a specific runID
func (l *FileLogger) GetDirectoryForRunID(runID string) (string, error) {
	if runID == "" {
		return "", fmt.Errorf("runID cannot be empty")
	}
	if runID == l.runID {
		return l.logDir, nil
	}
	return filepath.Join(l.baseDir, RunDirectoryPrefix+runID), nil
}

// Consume feeds a test result to all file sinks
func (l *FileLogger) Consume(result *types.TestResult, runID string) error {
	if runID == "" {
		return fmt.Errorf("runID cannot be empty")
	}
	for _, sink := range l.sinks {
		if err := sink.Consume(result, runID); err != nil {
			return fmt.Errorf("error in sink: %w", err)
		}
	}
	return nil
}

// Complete finalizes all sinks and closes all file writers
func (l *FileLogger) Complete(runID string) error {
	if runID == "" {
		return fmt.Errorf("runID cannot be empty")
	}
	for _, sink := range l.sinks {
		if err := sink.Complete(runID); err != nil {
			return fmt.Errorf("error completing sink: %w", err)
		}
	}
	return l.closeAllWriters()
}

// GetBaseDir returns the directory of the current run
func (l *FileLogger) GetBaseDir() string {
	return l.logDir
}

// GetRunID returns the current runID
func (l *FileLogger) GetRunID() string {
	return l.runID
}

// statusDir maps a test status to the directory holding its log files
func statusDir(status types.TestStatus) string {
	switch status {
	case types.TestStatusPass:
		return "passed"
	case types.TestStatusSkip:
		return "skipped"
	default:
		return "failed"
	}
}

// safeFilename converts a string to a safe filename by replacing problematic characters
func safeFilename(s string) string {
	replacer := strings.NewReplacer(
		"/", "_", "\\", "_", ":", "_", "*", "_", "?", "_",
		"\"", "_", "<", "_", ">", "_", "|", "_", " ", "_",
	)
	return replacer.Replace(s)
}

// AllLogsFileSink writes all test results to a single "all.log" file
type AllLogsFileSink struct {
	logger *FileLogger
}

// Consume appends a test result to the all.log file
func (s *AllLogsFileSink) Consume(result *types.TestResult, runID string) error {
	dir, err := s.logger.GetDirectoryForRunID(runID)
	if err != nil {
		return err
	}
	writer, err := s.logger.getAsyncWriter(filepath.Join(dir, AllLogsFilename))
	if err != nil {
		return err
	}

	var content strings.Builder
	fmt.Fprintf(&content, "\n")
	fmt.Fprintf(&content, "┌─────────────────────────────────────────────────────────────────────┐\n")
	fmt.Fprintf(&content, "│ TEST: %-62s │\n", truncateString(result.Metadata.Name, 62))
	fmt.Fprintf(&content, "├─────────────────────────────────────────────────────────────────────┤\n")
	fmt.Fprintf(&content, "│ Status:   %-58s │\n", result.Status)
	fmt.Fprintf(&content, "│ Source:   %-58s │\n", truncateString(result.Metadata.Source.String(), 58))
	fmt.Fprintf(&content, "│ Duration: %-58s │\n", result.Duration)
	fmt.Fprintf(&content, "│ Time:     %-58s │\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(&content, "└─────────────────────────────────────────────────────────────────────┘\n\n")
	writeDetails(&content, result)
	return writer.Write([]byte(content.String()))
}

// Complete is a no-op for AllLogsFileSink
func (s *AllLogsFileSink) Complete(runID string) error {
	return nil
}

// PerTestFileSink creates a dedicated log file for each test in the
// directory matching its status
type PerTestFileSink struct {
	logger *FileLogger
}

// Consume writes a test result to its own file
func (s *PerTestFileSink) Consume(result *types.TestResult, runID string) error {
	dir, err := s.logger.GetDirectoryForRunID(runID)
	if err != nil {
		return err
	}
	targetDir := filepath.Join(dir, statusDir(result.Status))
	if err := os.MkdirAll(targetDir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", targetDir, err)
	}

	writer, err := s.logger.getAsyncWriter(filepath.Join(targetDir, safeFilename(result.Metadata.Name)+".log"))
	if err != nil {
		return err
	}

	var content strings.Builder
	fmt.Fprintf(&content, "Test:        %s\n", result.Metadata.Name)
	fmt.Fprintf(&content, "Description: %s\n", result.DisplayName())
	fmt.Fprintf(&content, "Status:      %s\n", result.Status)
	fmt.Fprintf(&content, "Duration:    %s\n", formatDuration(result.Duration))
	fmt.Fprintf(&content, "\n%s\n", strings.Repeat("-", 80))
	writeDetails(&content, result)
	return writer.Write([]byte(content.String()))
}

// Complete is a no-op for PerTestFileSink
func (s *PerTestFileSink) Complete(runID string) error {
	return nil
}

// SummaryFileSink writes the console rendering of the run, without colors,
// to summary.log
type SummaryFileSink struct {
	logger *FileLogger
	mu     sync.Mutex
	totals map[string]*reporting.Totals
	lines  strings.Builder
}

// Consume records a test line for the summary
func (s *SummaryFileSink) Consume(result *types.TestResult, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	totals, ok := s.totals[runID]
	if !ok {
		totals = &reporting.Totals{}
		s.totals[runID] = totals
	}
	totals.Add(result.Status)
	s.lines.WriteString(reporting.FormatResult(result, false))
	return nil
}

// Complete writes summary.log
func (s *SummaryFileSink) Complete(runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var totals reporting.Totals
	if t, ok := s.totals[runID]; ok {
		totals = *t
	}
	dir, err := s.logger.GetDirectoryForRunID(runID)
	if err != nil {
		return err
	}
	writer, err := s.logger.getAsyncWriter(filepath.Join(dir, SummaryFilename))
	if err != nil {
		return err
	}

	content := fmt.Sprintf("Run: %s\n\n%s\n%s\n", runID, s.lines.String(), totals)
	return writer.Write([]byte(content))
}

func writeDetails(content *strings.Builder, result *types.TestResult) {
	if len(result.Failures) > 0 {
		fmt.Fprintf(content, "FAILURES:\n")
		fmt.Fprintf(content, "~~~~~~~~~\n")
		for _, failure := range result.Failures {
			fmt.Fprintf(content, "  %s\n", failure)
		}
		fmt.Fprintf(content, "\n")
	}
	if result.Status == types.TestStatusSkip {
		fmt.Fprintf(content, "SKIPPED: %s\n\n", result.SkipNote)
	}
	if result.Output != "" {
		fmt.Fprintf(content, "OUTPUT:\n")
		fmt.Fprintf(content, "~~~~~~~\n")
		fmt.Fprintf(content, "%s\n", indentText(stripansi.Strip(result.Output), "  "))
	}
	fmt.Fprintf(content, "\n")
}

// indentText adds indentation to each non-empty line of text
func indentText(text, indent string) string {
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = indent + line
		}
	}
	return strings.Join(lines, "\n")
}

// truncateString truncates a string to the specified max length
// and adds an ellipsis if needed
func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return d.Truncate(time.Millisecond).String()
}
