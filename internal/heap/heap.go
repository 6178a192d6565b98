package heap

import "github.com/zhongfu/sinter/internal/nanbox"

// Destroy dispatches to the type-specific destructor for a block whose
// reference count has just reached zero. It is the destroy callback every
// Release call in this package and in internal/vm should pass, unless a
// caller has a specific reason to suppress recursive destruction (none
// currently do).
func (a *Arena) Destroy(kind Kind, off uint32) {
	switch kind {
	case KindEnv:
		a.DestroyEnv(off, a.Destroy)
	case KindFunction:
		a.DestroyFunction(off, a.Destroy)
	case KindFrame:
		a.DestroyFrame(off, a.Destroy)
	}
}

// RetainBox retains the heap block b points to, if any. Non-pointer boxes
// are a no-op, matching spec.md's "retain/release are only meaningful for
// pointer values" rule.
func (a *Arena) RetainBox(b nanbox.Box) {
	if b.IsPointer() {
		a.Retain(b.Pointer())
	}
}

// ReleaseBox releases the heap block b points to, if any.
func (a *Arena) ReleaseBox(b nanbox.Box) {
	if b.IsPointer() {
		a.Release(b.Pointer(), a.Destroy)
	}
}
