//go:build debug

// Package debug gates the VM's diagnostic tracing behind the "debug" build
// tag, so spec.md §6.3's "debug verbosity level" knob costs nothing in the
// default build: Enabled is false and Log/Assert compile down to no-ops
// unless the tag is present (see nodebug.go).
package debug

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/timandy/routine"
)

// Enabled is true when the binary was built with the "debug" tag.
const Enabled = true

var debugPattern *regexp.Regexp

// SetFilter restricts Log output to lines whose rendered text matches re.
// A nil re (the default) logs everything.
func SetFilter(re *regexp.Regexp) { debugPattern = re }

// Log prints a diagnostic line to stderr, tagged with the caller's
// package/file/line and goroutine id.
//
// context is optional printf-style args rendered before operation, for
// grouping related log lines (e.g. the current PC of the dispatch loop).
func Log(context []any, operation string, format string, args ...any) {
	pc, file, line, _ := runtime.Caller(1)

	fn := runtime.FuncForPC(pc)
	name := fn.Name()
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	pkg := name
	if idx := strings.Index(pkg, "."); idx >= 0 {
		pkg = pkg[:idx]
	}

	file = filepath.Base(file)

	buf := new(strings.Builder)
	fmt.Fprintf(buf, "%s/%s:%d [g%04d", pkg, file, line, routine.Goid())
	if len(context) >= 1 {
		fmt.Fprintf(buf, ", "+context[0].(string), context[1:]...)
	}
	fmt.Fprintf(buf, "] %s: ", operation)
	fmt.Fprintf(buf, format, args...)

	if debugPattern != nil && !debugPattern.MatchString(buf.String()) {
		return
	}

	buf.WriteByte('\n')
	os.Stderr.WriteString(buf.String())
}

// Assert panics if cond is false. It exists only in debug builds: a
// release build should never pay for assertions it can't act on, per
// spec.md's fault-channel design notes ("an implementation must not leak
// an unchecked exception across the host boundary" -- Assert is for
// catching bugs in this package's own invariants during development, not
// for anything internal/vm raises as a fault).
func Assert(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Errorf("sinter: internal assertion failed: "+format, args...))
	}
}
