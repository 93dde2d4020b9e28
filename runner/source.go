package runner

import (
	"bufio"
	"os"
	"reflect"
	"runtime"
	"strings"
	"sync"

	"github.com/ethereum-optimism/infra/op-shunit/types"
)

// SourceCache reads source files lazily to recover the statement text at a
// failure location. Unreadable files are remembered as empty.
type SourceCache struct {
	mu    sync.Mutex
	files map[string][]string
}

// NewSourceCache creates an empty cache
func NewSourceCache() *SourceCache {
	return &SourceCache{files: make(map[string][]string)}
}

// Statement returns the trimmed source line at file:line, or "" when the
// line is not available
func (c *SourceCache) Statement(file string, line int) string {
	if file == "" || line <= 0 {
		return ""
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	lines, ok := c.files[file]
	if !ok {
		lines = readLines(file)
		c.files[file] = lines
	}
	if line > len(lines) {
		return ""
	}
	return strings.TrimSpace(lines[line-1])
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines
}

// tMethodPrefix is the symbol prefix shared by all *T methods, frames
// carrying it never count as the caller of a failing statement
var tMethodPrefix = reflect.TypeOf((*T)(nil)).Elem().PkgPath() + ".(*T)."

// Caller returns the location of the first frame that is neither a *T
// method nor accepted by skipFrame, starting skip frames above the function
// calling Caller
func Caller(skip int, skipFrame func(function string) bool) types.SourceLocation {
	pcs := make([]uintptr, 64)
	n := runtime.Callers(2+skip, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if !strings.HasPrefix(frame.Function, tMethodPrefix) && (skipFrame == nil || !skipFrame(frame.Function)) {
			return frameLocation(frame)
		}
		if !more {
			return types.SourceLocation{}
		}
	}
}

// panicLocation returns the location that raised the panic currently being
// recovered. It must be called from the deferred function.
func panicLocation() types.SourceLocation {
	pcs := make([]uintptr, 64)
	n := runtime.Callers(1, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	panicking := false
	for {
		frame, more := frames.Next()
		switch {
		case frame.Function == "runtime.gopanic":
			panicking = true
		case panicking && !strings.HasPrefix(frame.Function, "runtime."):
			return frameLocation(frame)
		}
		if !more {
			return types.SourceLocation{}
		}
	}
}

func frameLocation(frame runtime.Frame) types.SourceLocation {
	fn := frame.Function
	if i := strings.LastIndex(fn, "/"); i >= 0 {
		fn = fn[i+1:]
	}
	return types.SourceLocation{
		File: frame.File,
		Line: frame.Line,
		Func: fn,
	}
}
