package types

import "fmt"

// ResultSets holds the names of tests per category for a whole run.
// The sets only grow; Reset is called when a new run starts.
type ResultSets struct {
	Executed []string `yaml:"executed"`
	Passed   []string `yaml:"passed"`
	Failed   []string `yaml:"failed"`
	Skipped  []string `yaml:"skipped"`
}

// Record appends name to the executed set and to the set matching status
func (s *ResultSets) Record(name string, status TestStatus) error {
	switch status {
	case TestStatusPass:
		s.Passed = append(s.Passed, name)
	case TestStatusFail:
		s.Failed = append(s.Failed, name)
	case TestStatusSkip:
		s.Skipped = append(s.Skipped, name)
	default:
		return fmt.Errorf("unknown test status %q for %s", status, name)
	}
	s.Executed = append(s.Executed, name)
	return nil
}

// Reset clears all sets
func (s *ResultSets) Reset() {
	*s = ResultSets{}
}

// Status returns the overall run status: fail if any test failed, pass if
// any test passed, skip otherwise
func (s *ResultSets) Status() TestStatus {
	if len(s.Failed) > 0 {
		return TestStatusFail
	}
	if len(s.Passed) > 0 {
		return TestStatusPass
	}
	return TestStatusSkip
}
