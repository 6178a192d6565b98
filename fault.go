package sinter

import "github.com/zhongfu/sinter/internal/vm"

// Reason identifies why a Run call was aborted before completion.
type Reason = vm.Reason

const (
	ReasonOutOfMemory    = vm.ReasonOutOfMemory
	ReasonStackOverflow  = vm.ReasonStackOverflow
	ReasonType           = vm.ReasonType
	ReasonInvalidLoad    = vm.ReasonInvalidLoad
	ReasonInvalidProgram = vm.ReasonInvalidProgram
	ReasonInternalError  = vm.ReasonInternalError
)

// Fault is the error Run returns when a program aborts instead of
// returning a value: any type, memory, or stack-depth violation the
// dispatcher catches (spec.md §4.6). It is exported as an alias of
// internal/vm's own interface so callers can use errors.As against it
// without this package needing a second, wrapping concrete type.
type Fault = vm.Fault
