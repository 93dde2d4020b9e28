package scanner

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/kballard/go-shellquote"

	"github.com/ethereum-optimism/infra/op-shunit/types"
)

// DescribeCommand is the command a test body calls to set its description
const DescribeCommand = "describe"

var (
	// function testcase_x [()] [body]
	keywordDef = regexp.MustCompile(`^\s*function\s+(testcase_[A-Za-z0-9_]+)\s*(?:\(\s*\))?\s*(|[{(].*)$`)
	// testcase_x() [body]
	parenDef = regexp.MustCompile(`^\s*(testcase_[A-Za-z0-9_]+)\s*\(\s*\)\s*(|[{(].*)$`)
)

// Definition is a test function found in a shell script
type Definition struct {
	Name string
	// Description is the argument list of the first describe call made
	// directly in the body, or empty when there is none
	Description string
	Location    types.SourceLocation
}

// Scan reads the script at path and returns its test definitions in source order
func Scan(path string) ([]Definition, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open script: %w", err)
	}
	defer f.Close()

	return ScanSource(path, f)
}

// maxContinuation bounds how many lines an unterminated describe argument may
// span before the scanner gives up on it
const maxContinuation = 20

// ScanSource returns the test definitions in src, attributing them to file.
// A name defined more than once is returned once per definition.
func ScanSource(file string, src io.Reader) ([]Definition, error) {
	var (
		defs    []Definition
		current *Definition
		pending bool // definition seen, opening brace not yet
		depth   int
		lineNo  int
		carry   string // describe call whose quoted argument is still open
		carried int
	)

	feed := func(words []string) {
		if pending {
			if len(words) == 0 {
				return
			}
			if words[0] != "{" && !strings.HasPrefix(words[0], "{") {
				// Not a brace group body, nothing to scan
				current, pending = nil, false
				return
			}
			pending = false
		}
		depth = scanWords(current, words, depth)
		if depth <= 0 {
			current = nil
		}
	}

	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()

		if carry != "" {
			if _, _, ok := matchDefinition(line); ok {
				// The quote never closes; give up on it at the next test
				feed(fallbackWords(carry))
				carry, carried, current = "", 0, nil
			} else {
				line = carry + "\n" + line
				carry = ""
			}
		}
		if carry == "" && current == nil {
			name, rest, ok := matchDefinition(line)
			if !ok {
				continue
			}
			defs = append(defs, Definition{
				Name:     name,
				Location: types.SourceLocation{File: file, Line: lineNo, Func: name},
			})
			current = &defs[len(defs)-1]
			depth = 0
			pending = true
			line = rest
		}

		words, err := splitWords(line)
		if err != nil {
			if current.Description == "" && carried < maxContinuation && mentionsDescribe(line) {
				carry = line
				carried++
				continue
			}
			words = fallbackWords(line)
		}
		carried = 0
		feed(words)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read script %s: %w", file, err)
	}
	if carry != "" {
		feed(fallbackWords(carry))
	}
	return defs, nil
}

// Names returns the distinct test names in first-definition order
func Names(defs []Definition) []string {
	seen := make(map[string]struct{}, len(defs))
	var names []string
	for _, def := range defs {
		if _, ok := seen[def.Name]; ok {
			continue
		}
		seen[def.Name] = struct{}{}
		names = append(names, def.Name)
	}
	return names
}

func matchDefinition(line string) (name, rest string, ok bool) {
	if m := keywordDef.FindStringSubmatch(line); m != nil {
		return m[1], m[2], true
	}
	if m := parenDef.FindStringSubmatch(line); m != nil {
		return m[1], m[2], true
	}
	return "", "", false
}

// scanWords walks the words of one line of a body, tracking brace depth and
// picking up the first describe call made at depth 1
func scanWords(def *Definition, words []string, depth int) int {
	statementStart := true
	for i := 0; i < len(words); i++ {
		word := words[i]
		switch {
		case word == "{":
			depth++
			statementStart = true
			continue
		case word == "}" || word == "};":
			depth--
			if depth <= 0 {
				return depth
			}
			statementStart = true
			continue
		case strings.HasPrefix(word, "{") && depth == 0:
			// {describe is not valid shell, but tolerate a glued opening brace
			depth++
			word = strings.TrimPrefix(word, "{")
		}

		if statementStart && depth == 1 && def.Description == "" && word == DescribeCommand {
			args, next := describeArgs(words[i+1:])
			def.Description = strings.Join(args, " ")
			i += next
			statementStart = true
			continue
		}
		statementStart = strings.HasSuffix(word, ";") || word == "&&" || word == "||"
	}
	return depth
}

// describeArgs returns the arguments of a describe call and the number of
// words they consumed, stopping at the end of the statement
func describeArgs(words []string) ([]string, int) {
	var args []string
	for i, word := range words {
		if word == "}" || word == "};" || word == "&&" || word == "||" || word == ";" {
			return args, i
		}
		if strings.HasSuffix(word, ";") {
			if trimmed := strings.TrimSuffix(word, ";"); trimmed != "" {
				args = append(args, trimmed)
			}
			return args, i + 1
		}
		args = append(args, word)
	}
	return args, len(words)
}

// splitWords splits a line into shell words, dropping comments. Lines the
// quoting rules cannot split, such as the start of a multi-line string,
// return an error.
func splitWords(line string) ([]string, error) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return nil, nil
	}
	words, err := shellquote.Split(trimmed)
	if err != nil {
		return nil, err
	}
	return dropComment(words), nil
}

// fallbackWords splits on whitespace and strips stray quotes
func fallbackWords(line string) []string {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return nil
	}
	words := strings.Fields(trimmed)
	for i, word := range words {
		if unquoted := strings.Trim(word, `"'`); unquoted != "" {
			words[i] = unquoted
		}
	}
	return dropComment(words)
}

func dropComment(words []string) []string {
	for i, word := range words {
		if strings.HasPrefix(word, "#") {
			return words[:i]
		}
	}
	return words
}

func mentionsDescribe(line string) bool {
	for _, word := range strings.Fields(line) {
		if strings.TrimLeft(word, "{") == DescribeCommand {
			return true
		}
	}
	return false
}
