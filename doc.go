// Package sinter runs bytecode images against a small register-free,
// NaN-boxed virtual machine: integers, floats, booleans, null, undefined,
// and lexically-scoped closures over a single fixed-size heap arena.
//
// A Machine owns the configuration (heap size, operand stack depth,
// which fault reason out-of-range environment accesses report) for a family of Run
// calls; each Run validates a bytecode image's header, builds a fresh
// root environment and frame, and drives the instruction dispatcher
// in internal/vm until the program returns from its entry function or a
// Fault aborts it.
//
//	m := sinter.New(sinter.WithHeapSize(64 << 10))
//	result, err := m.Run(image)
//	if err != nil {
//		var f sinter.Fault
//		if errors.As(err, &f) {
//			log.Printf("program faulted: %s", f.Reason())
//		}
//	}
package sinter
