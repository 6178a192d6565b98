package heap

import "encoding/binary"

// functionSize is the size of a function object's payload: code offset(4)
// + captured env offset(4).
const functionSize = 8

// NewFunction allocates a closure capturing env at the given code offset.
// It retains env: a closure owns a reference to the environment it
// captured for as long as it lives (spec.md §4.2's "sifunction_new
// retains env").
func (a *Arena) NewFunction(code uint32, env uint32) (uint32, bool) {
	off, ok := a.Malloc(functionSize, KindFunction)
	if !ok {
		return 0, false
	}
	v := a.View(off)
	binary.LittleEndian.PutUint32(v[0:4], code)
	binary.LittleEndian.PutUint32(v[4:8], env)
	if env != Nil {
		a.Retain(env)
	}
	return off, true
}

// FunctionCode returns the code offset a closure jumps to when called.
func (a *Arena) FunctionCode(fn uint32) uint32 {
	return binary.LittleEndian.Uint32(a.View(fn)[0:4])
}

// FunctionEnv returns the environment a closure captured.
func (a *Arena) FunctionEnv(fn uint32) uint32 {
	return binary.LittleEndian.Uint32(a.View(fn)[4:8])
}

// DestroyFunction releases the environment a closure captured. Called by
// Arena.Release's destroy callback when a closure's reference count
// reaches zero (spec.md §4.2's "sifunction_destroy").
func (a *Arena) DestroyFunction(fn uint32, destroy func(Kind, uint32)) {
	env := a.FunctionEnv(fn)
	if env != Nil {
		a.Release(env, destroy)
	}
}
