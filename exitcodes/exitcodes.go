// Package exitcodes defines the standard exit codes used by op-shunit.
package exitcodes

// Exit code constants used by op-shunit
// These constants define the exit codes that a test script exits with:
//
// * Success (0): Used when every selected test passed or was skipped, and after help or a listing
// * TestFailure (1): Used when one or more tests fail
// * FatalErr (1): Used when the run is aborted before tests run, eg. duplicate definitions or a bad selector
// * RuntimeErr (2): Used for engine errors such as a shell that cannot be started or a report that cannot be written
const (
	Success     = 0 // All tests pass
	TestFailure = 1 // Test failures
	FatalErr    = 1 // Fatal errors before the run
	RuntimeErr  = 2 // Engine runtime errors
)
