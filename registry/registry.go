package registry

import (
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/op-shunit/runner"
	"github.com/ethereum-optimism/infra/op-shunit/types"
)

// Default is the process-wide registry tests register into at load time
var Default = NewRegistry(Config{Log: log.Root()})

// Registry holds the registered tests in registration order
type Registry struct {
	config      Config
	mu          sync.RWMutex
	tests       []runner.Test
	index       map[string]int
	definitions map[string][]types.SourceLocation
	hooks       runner.Hooks
}

// Config contains registry configuration
type Config struct {
	Log log.Logger
}

// NewRegistry creates a new, empty registry
func NewRegistry(cfg Config) *Registry {
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}
	return &Registry{
		config:      cfg,
		index:       make(map[string]int),
		definitions: make(map[string][]types.SourceLocation),
	}
}

// Register adds a test defined by the caller. The description parts are
// joined with spaces and default to the name.
func (r *Registry) Register(name string, fn runner.TestFunc, description ...string) {
	r.RegisterAt(runner.Caller(1, nil), name, fn, description...)
}

// RegisterAt adds a test defined at loc. Registering a name again keeps the
// position of the first definition, replaces its body and description, and
// records the new location as a duplicate definition.
// Invalid names and nil bodies are programming errors and panic.
func (r *Registry) RegisterAt(loc types.SourceLocation, name string, fn runner.TestFunc, description ...string) {
	if !types.IsTestName(name) {
		panic(fmt.Errorf("registry: invalid test name %q: names must match %s<word>", name, types.TestNamePrefix))
	}
	if fn == nil {
		panic(fmt.Errorf("registry: test %q has no body", name))
	}

	desc := strings.TrimSpace(strings.Join(description, " "))
	if desc == "" {
		desc = name
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.definitions[name] = append(r.definitions[name], loc)
	if i, ok := r.index[name]; ok {
		r.config.Log.Debug("Test redefined", "name", name, "at", loc, "first", r.tests[i].Metadata.Source)
		r.tests[i].Func = fn
		r.tests[i].Metadata.Description = desc
		return
	}

	r.index[name] = len(r.tests)
	r.tests = append(r.tests, runner.Test{
		Metadata: types.TestMetadata{
			Index:       len(r.tests),
			Name:        name,
			Description: desc,
			Source:      loc,
		},
		Func: fn,
	})
}

// SetHooks installs the global setup and teardown hooks
func (r *Registry) SetHooks(hooks runner.Hooks) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks = hooks
}

// Hooks returns the global setup and teardown hooks
func (r *Registry) Hooks() runner.Hooks {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.hooks
}

// Len returns the number of distinct tests
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tests)
}

// Tests returns all tests in registration order
func (r *Registry) Tests() []runner.Test {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]runner.Test(nil), r.tests...)
}

// Metadata returns the metadata of all tests in registration order
func (r *Registry) Metadata() []types.TestMetadata {
	r.mu.RLock()
	defer r.mu.RUnlock()

	metadata := make([]types.TestMetadata, len(r.tests))
	for i, test := range r.tests {
		metadata[i] = test.Metadata
	}
	return metadata
}

// Lookup returns the test registered under name
func (r *Registry) Lookup(name string) (runner.Test, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.index[name]
	if !ok {
		return runner.Test{}, false
	}
	return r.tests[i], true
}

// Duplicates returns every name defined more than once, in registration order
func (r *Registry) Duplicates() []Duplicate {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var dups []Duplicate
	for _, test := range r.tests {
		locs := r.definitions[test.Metadata.Name]
		if len(locs) > 1 {
			dups = append(dups, Duplicate{
				Name:      test.Metadata.Name,
				Locations: append([]types.SourceLocation(nil), locs...),
			})
		}
	}
	return dups
}

// Validate checks the registry before a run. Duplicate definitions are an
// error only when checkDuplicates is set.
func (r *Registry) Validate(checkDuplicates bool) error {
	dups := r.Duplicates()
	if len(dups) == 0 {
		return nil
	}
	if !checkDuplicates {
		for _, dup := range dups {
			r.config.Log.Warn("Duplicate test definition", "name", dup.Name, "count", len(dup.Locations))
		}
		return nil
	}
	return &DuplicateError{Duplicates: dups}
}
