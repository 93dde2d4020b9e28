package types

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// TestNamePrefix is the reserved prefix every test function name carries
const TestNamePrefix = "testcase_"

var testNameRegex = regexp.MustCompile(`^testcase_[A-Za-z0-9_]+$`)

// TestStatus represents the possible outcomes of a test execution
type TestStatus string

const (
	TestStatusPass TestStatus = "pass"
	TestStatusFail TestStatus = "fail"
	TestStatusSkip TestStatus = "skip"
)

// IsTestName reports whether name follows the reserved test naming convention
func IsTestName(name string) bool {
	return testNameRegex.MatchString(name)
}

// SourceLocation points at a line of source code
type SourceLocation struct {
	File string `yaml:"file"`
	Line int    `yaml:"line"`
	Func string `yaml:"func,omitempty"`
}

// IsZero reports whether the location carries no information
func (l SourceLocation) IsZero() bool {
	return l.File == "" && l.Line == 0 && l.Func == ""
}

func (l SourceLocation) String() string {
	if l.File == "" {
		return l.Func
	}
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// TestMetadata describes a registered test
type TestMetadata struct {
	Index       int
	Name        string
	Description string
	Source      SourceLocation
}

// Failure is a single trapped failure inside a test
type Failure struct {
	Location  SourceLocation `yaml:"location"`
	Status    int            `yaml:"status"`
	Statement string         `yaml:"statement,omitempty"`
}

func (f Failure) String() string {
	if f.Statement == "" {
		return fmt.Sprintf("%s: exit status %d", f.Location, f.Status)
	}
	return fmt.Sprintf("%s: %s (exit status %d)", f.Location, f.Statement, f.Status)
}

// TestResult captures the outcome of a single test run
type TestResult struct {
	Metadata    TestMetadata
	Description string // Description in effect when the test finished
	Status      TestStatus
	Failures    []Failure
	SkipNote    string
	Duration    time.Duration
	Output      string // Output logged by the test body
}

// DisplayName returns the text shown next to the result marker
func (r *TestResult) DisplayName() string {
	if strings.TrimSpace(r.Description) != "" {
		return r.Description
	}
	if r.Metadata.Description != "" {
		return r.Metadata.Description
	}
	return r.Metadata.Name
}

// Categorize maps the final skip and failure flags of a test to its status.
// Skip is checked first.
func Categorize(skipped, failed bool) TestStatus {
	switch {
	case skipped:
		return TestStatusSkip
	case failed:
		return TestStatusFail
	default:
		return TestStatusPass
	}
}
