package reporting

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/gedex/inflector"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ethereum-optimism/infra/op-shunit/types"
)

// Result markers printed in front of each test
const (
	MarkerPass = "✓"
	MarkerFail = "✗"
	MarkerSkip = "-"
)

// Pluralize returns word in the form matching count: singular for exactly
// one, plural otherwise
func Pluralize(word string, count int) string {
	if count == 1 {
		return word
	}
	return inflector.Pluralize(word)
}

// Totals counts the results of a run per category
type Totals struct {
	Tests   int
	Passed  int
	Failed  int
	Skipped int
}

// Add counts one result
func (t *Totals) Add(status types.TestStatus) {
	t.Tests++
	switch status {
	case types.TestStatusPass:
		t.Passed++
	case types.TestStatusFail:
		t.Failed++
	case types.TestStatusSkip:
		t.Skipped++
	}
}

// String renders the totals as "3 tests, 1 passed, 1 failed, 1 skipped"
func (t Totals) String() string {
	return fmt.Sprintf("%d %s, %d passed, %d failed, %d skipped",
		t.Tests, Pluralize("test", t.Tests), t.Passed, t.Failed, t.Skipped)
}

// ConsoleSink prints a line per test as soon as its result is known, and
// the totals once the run completes
type ConsoleSink struct {
	out    io.Writer
	color  bool
	mu     sync.Mutex
	totals map[string]*Totals
}

// NewConsoleSink creates a console sink writing to out
func NewConsoleSink(out io.Writer, color bool) *ConsoleSink {
	return &ConsoleSink{
		out:    out,
		color:  color,
		totals: make(map[string]*Totals),
	}
}

// Consume prints the result of a single test
func (s *ConsoleSink) Consume(result *types.TestResult, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	totals, ok := s.totals[runID]
	if !ok {
		totals = &Totals{}
		s.totals[runID] = totals
	}
	totals.Add(result.Status)

	_, err := io.WriteString(s.out, FormatResult(result, s.color))
	return err
}

// Complete prints the totals of the run
func (s *ConsoleSink) Complete(runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var totals Totals
	if t, ok := s.totals[runID]; ok {
		totals = *t
		delete(s.totals, runID)
	}

	summary := totals.String()
	if s.color {
		summary = summaryColor(totals).Sprint(summary)
	}
	_, err := fmt.Fprintf(s.out, "\n%s\n", summary)
	return err
}

// FormatResult renders a test result: the marker and description, then one
// indented line per failure or the skip note
func FormatResult(result *types.TestResult, color bool) string {
	var b strings.Builder
	name := result.DisplayName()

	switch result.Status {
	case types.TestStatusPass:
		b.WriteString(paint(color, text.FgGreen, MarkerPass))
		b.WriteString(" " + name + "\n")
	case types.TestStatusSkip:
		b.WriteString(paint(color, text.FgYellow, MarkerSkip))
		b.WriteString(" " + name)
		if result.SkipNote != "" {
			b.WriteString(paint(color, text.FgHiBlack, fmt.Sprintf(" (skipped: %s)", result.SkipNote)))
		} else {
			b.WriteString(paint(color, text.FgHiBlack, " (skipped)"))
		}
		b.WriteString("\n")
	default:
		b.WriteString(paint(color, text.FgRed, MarkerFail))
		b.WriteString(" " + name + "\n")
		for _, failure := range result.Failures {
			b.WriteString("  " + paint(color, text.FgRed, failure.String()) + "\n")
		}
	}
	return b.String()
}

func paint(color bool, c text.Color, s string) string {
	if !color {
		return s
	}
	return c.Sprint(s)
}

func summaryColor(t Totals) text.Colors {
	switch {
	case t.Failed > 0:
		return text.Colors{text.FgRed, text.Bold}
	case t.Passed > 0:
		return text.Colors{text.FgGreen}
	default:
		return text.Colors{text.FgYellow}
	}
}
