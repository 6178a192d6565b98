package sinter

// Options holds a Machine's resource configuration. It is not exported for
// direct construction; use New with a set of Option values instead.
type options struct {
	heapSize     int
	stackSize    int
	safetyChecks bool
}

const (
	defaultHeapSize  = 64 * 1024
	defaultStackSize = 1024
)

func defaultOptions() options {
	return options{
		heapSize:     defaultHeapSize,
		stackSize:    defaultStackSize,
		safetyChecks: true,
	}
}

// Option configures a Machine returned by New.
//
// This is a struct wrapping a closure, rather than a closure type alias,
// so that New's signature stays stable even if Options grows fields that
// an Option needs to see beyond what its apply function already closes
// over.
type Option struct{ apply func(*options) }

// WithHeapSize sets the byte size of the fixed heap arena backing every
// Run call, matching spec.md's SINTER_HEAP_SIZE. The default is 64KiB.
func WithHeapSize(bytes int) Option {
	return Option{func(o *options) { o.heapSize = bytes }}
}

// WithStackSize sets the total number of operand-stack slots available
// across every call depth, matching spec.md's SINTER_STACK_ENTRIES. The
// default is 1024. One slot beyond this budget is always reserved for the
// entry function's return value (spec.md §4.7).
func WithStackSize(entries int) Option {
	return Option{func(o *options) { o.stackSize = entries }}
}

// WithSafetyChecks toggles whether out-of-range environment and
// parent-chain accesses raise a catchable ReasonInvalidLoad fault (the
// default, true) or are instead treated as an internal error signalling a
// malformed bytecode image. Disabling this does not disable Go's own
// memory safety; it only changes which Reason a bad index surfaces as.
func WithSafetyChecks(enabled bool) Option {
	return Option{func(o *options) { o.safetyChecks = enabled }}
}
