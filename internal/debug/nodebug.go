//go:build !debug

package debug

import "regexp"

// Enabled is false in a release build: Log and Assert below compile down
// to nothing a caller can observe, and the compiler is free to eliminate
// the arguments at call sites that are themselves behind `if debug.Enabled`.
const Enabled = false

// SetFilter is a no-op outside debug builds.
func SetFilter(re *regexp.Regexp) {}

// Log is a no-op outside debug builds.
func Log(context []any, operation string, format string, args ...any) {}

// Assert is a no-op outside debug builds. Checks that must hold in every
// build belong behind an explicit fault, not Assert.
func Assert(cond bool, format string, args ...any) {}
