package selector

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"

	"github.com/ethereum-optimism/infra/op-shunit/types"
)

var numeric = regexp.MustCompile(`^[0-9]+$`)

// Error is a selector token that could not be resolved
type Error struct {
	Token string
	Msg   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Token, e.Msg)
}

// Resolve turns selector tokens into the ordered list of tests to run.
// Each token is, in order of precedence, an index into tests, an exact name,
// an exact description or an unanchored regular expression matched against
// names, then against descriptions when no name matches. Regular expression
// matches are sorted by name. Without tokens all tests are returned in
// their original order.
func Resolve(tests []types.TestMetadata, tokens []string) ([]types.TestMetadata, error) {
	if len(tokens) == 0 {
		return append([]types.TestMetadata(nil), tests...), nil
	}

	var selected []types.TestMetadata
	for _, token := range tokens {
		matches, err := resolveToken(tests, token)
		if err != nil {
			return nil, err
		}
		selected = append(selected, matches...)
	}
	return selected, nil
}

func resolveToken(tests []types.TestMetadata, token string) ([]types.TestMetadata, error) {
	if numeric.MatchString(token) {
		i, err := strconv.Atoi(token)
		if err != nil || i >= len(tests) {
			return nil, &Error{Token: token, Msg: fmt.Sprintf("index out of range [0, %d]", len(tests)-1)}
		}
		return []types.TestMetadata{tests[i]}, nil
	}

	for _, test := range tests {
		if test.Name == token {
			return []types.TestMetadata{test}, nil
		}
	}
	for _, test := range tests {
		if test.Description == token {
			return []types.TestMetadata{test}, nil
		}
	}

	pattern, err := regexp.Compile(token)
	if err != nil {
		return nil, &Error{Token: token, Msg: fmt.Sprintf("invalid pattern: %v", err)}
	}
	matches := match(tests, func(test types.TestMetadata) bool { return pattern.MatchString(test.Name) })
	if len(matches) == 0 {
		matches = match(tests, func(test types.TestMetadata) bool { return pattern.MatchString(test.Description) })
	}
	if len(matches) == 0 {
		return nil, &Error{Token: token, Msg: "no test name or description matches"}
	}
	return matches, nil
}

// match returns the tests accepted by keep, deduplicated by name and sorted
func match(tests []types.TestMetadata, keep func(types.TestMetadata) bool) []types.TestMetadata {
	seen := make(map[string]struct{})
	var matches []types.TestMetadata
	for _, test := range tests {
		if _, ok := seen[test.Name]; ok || !keep(test) {
			continue
		}
		seen[test.Name] = struct{}{}
		matches = append(matches, test)
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Name < matches[j].Name
	})
	return matches
}
