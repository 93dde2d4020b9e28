package registry

import (
	"fmt"
	"strings"

	"github.com/ethereum-optimism/infra/op-shunit/types"
)

// Duplicate is a test name with all of its definition locations
type Duplicate struct {
	Name      string
	Locations []types.SourceLocation
}

func (d Duplicate) String() string {
	locs := make([]string, len(d.Locations))
	for i, loc := range d.Locations {
		locs[i] = loc.String()
	}
	return fmt.Sprintf("%s is defined %d times: %s", d.Name, len(d.Locations), strings.Join(locs, ", "))
}

// DuplicateError reports duplicate test definitions, one line per name
type DuplicateError struct {
	Duplicates []Duplicate
}

func (e *DuplicateError) Error() string {
	lines := make([]string, len(e.Duplicates))
	for i, dup := range e.Duplicates {
		lines[i] = dup.String()
	}
	return "duplicate test definitions:\n" + strings.Join(lines, "\n")
}
