// Package shunit is a unit testing engine for shell code. Tests register
// themselves at load time and run one after another through Main:
//
//	func init() {
//		shunit.Register("testcase_greets", func(t *shunit.T) {
//			res := t.Run("./greet.sh", "world")
//			t.Check(shunit.Equal(res.Output, "hello world"))
//		}, "greets the world")
//	}
//
//	func main() {
//		shunit.Main()
//	}
package shunit

import (
	"strings"

	"github.com/ethereum-optimism/infra/op-shunit/capture"
	"github.com/ethereum-optimism/infra/op-shunit/registry"
	"github.com/ethereum-optimism/infra/op-shunit/reporting"
	"github.com/ethereum-optimism/infra/op-shunit/runner"
)

type (
	// T is the execution context passed to tests and hooks
	T = runner.T
	// TestFunc is the body of a test or hook
	TestFunc = runner.TestFunc
	// Result is the outcome of a command run through T.Run
	Result = capture.Result
)

// Register adds a test to the process-wide registry. The name must start
// with testcase_; the description parts are joined and default to the name.
func Register(name string, fn TestFunc, description ...string) {
	registry.Default.RegisterAt(runner.Caller(1, nil), name, fn, description...)
}

// Setup sets the hook invoked before every test
func Setup(fn TestFunc) {
	hooks := registry.Default.Hooks()
	hooks.Setup = fn
	registry.Default.SetHooks(hooks)
}

// Teardown sets the hook invoked after every test, skipped ones included
func Teardown(fn TestFunc) {
	hooks := registry.Default.Hooks()
	hooks.Teardown = fn
	registry.Default.SetHooks(hooks)
}

// Equal reports whether a and b are the same string
func Equal(a, b string) bool {
	return a == b
}

// HasSuffix reports whether s ends with suffix
func HasSuffix(s, suffix string) bool {
	return strings.HasSuffix(s, suffix)
}

// Pluralize returns word in its plural form unless count is 1
func Pluralize(word string, count int) string {
	return reporting.Pluralize(word, count)
}
