// Package bytecode describes the bytecode image format that internal/vm
// dispatches over: a fixed header, function records, and a little-endian,
// variable-length instruction encoding (spec.md §3.5, §6.2).
//
// This package owns only the wire format and a bounds-checked cursor over
// it; it has no notion of values, faults, or the heap. internal/vm is the
// only consumer.
package bytecode

import "encoding/binary"

// Magic is the constant that must appear at the start of a valid program
// image. A mismatch is an INVALID_PROGRAM fault.
const Magic uint32 = 0x53564D31 // "SVM1"

// HeaderSize is the size in bytes of Header's encoding.
const HeaderSize = 8

// Header is the fixed preamble of a bytecode image.
type Header struct {
	Magic       uint32
	EntryOffset uint32
}

// DecodeHeader reads a Header from the start of code. code must be at least
// HeaderSize bytes; callers are expected to have checked this already.
func DecodeHeader(code []byte) Header {
	return Header{
		Magic:       binary.LittleEndian.Uint32(code[0:4]),
		EntryOffset: binary.LittleEndian.Uint32(code[4:8]),
	}
}

// FunctionHeaderSize is the size in bytes of FunctionHeader's encoding. A
// function's code bytes begin immediately after it.
const FunctionHeaderSize = 6

// FunctionHeader is the fixed preamble of a function record. The code that
// follows it runs until a ret_* or call_t instruction transfers control away, or
// until it falls off the end of the image (which would be a bug in the
// image, caught by the dispatcher's bounds checks).
type FunctionHeader struct {
	NumArgs   uint16
	EnvSize   uint16
	StackSize uint16
}

// DecodeFunctionHeader reads a FunctionHeader at the given byte offset in
// code.
func DecodeFunctionHeader(code []byte, offset uint32) FunctionHeader {
	b := code[offset : offset+FunctionHeaderSize]
	return FunctionHeader{
		NumArgs:   binary.LittleEndian.Uint16(b[0:2]),
		EnvSize:   binary.LittleEndian.Uint16(b[2:4]),
		StackSize: binary.LittleEndian.Uint16(b[4:6]),
	}
}

// CodeOffset returns the byte offset of the first instruction of the
// function whose header starts at headerOffset.
func CodeOffset(headerOffset uint32) uint32 {
	return headerOffset + FunctionHeaderSize
}
