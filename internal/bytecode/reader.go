package bytecode

import (
	"encoding/binary"
	"math"
)

// Cursor is a bounds-checked reader over a program image's instruction
// bytes; calls and branches Seek it between functions. It never panics on
// out-of-range reads; instead it reports truncation through the ok return
// value, leaving the caller (internal/vm) to translate that into a
// ReasonInvalidProgram fault.
type Cursor struct {
	code []byte
	pos  uint32
}

// NewCursor returns a Cursor over code starting at the given byte offset.
func NewCursor(code []byte, offset uint32) Cursor {
	return Cursor{code: code, pos: offset}
}

// Pos returns the cursor's current byte offset, suitable for saving as a
// return address.
func (c Cursor) Pos() uint32 { return c.pos }

// Seek repositions the cursor to an absolute byte offset, as a branch or
// call does.
func (c *Cursor) Seek(offset uint32) { c.pos = offset }

func (c *Cursor) atLeast(n uint32) bool {
	return uint64(c.pos)+uint64(n) <= uint64(len(c.code))
}

// ReadOpcode reads the next instruction's opcode byte.
func (c *Cursor) ReadOpcode() (Opcode, bool) {
	if !c.atLeast(1) {
		return 0, false
	}
	op := Opcode(c.code[c.pos])
	c.pos++
	return op, true
}

// ReadInt32 reads a little-endian 32-bit two's-complement immediate, used
// by ldc_i/lgc_i.
func (c *Cursor) ReadInt32() (int32, bool) {
	if !c.atLeast(4) {
		return 0, false
	}
	v := int32(binary.LittleEndian.Uint32(c.code[c.pos:]))
	c.pos += 4
	return v, true
}

// ReadFloat32 reads a little-endian IEEE-754 float32 immediate, used by
// ldc_f32/lgc_f32.
func (c *Cursor) ReadFloat32() (float32, bool) {
	if !c.atLeast(4) {
		return 0, false
	}
	v := math.Float32frombits(binary.LittleEndian.Uint32(c.code[c.pos:]))
	c.pos += 4
	return v, true
}

// ReadFloat64 reads a little-endian IEEE-754 float64 immediate, used by
// ldc_f64/lgc_f64. The caller narrows the result to float32 before boxing
// it, per spec.md §3.5.
func (c *Cursor) ReadFloat64() (float64, bool) {
	if !c.atLeast(8) {
		return 0, false
	}
	v := math.Float64frombits(binary.LittleEndian.Uint64(c.code[c.pos:]))
	c.pos += 8
	return v, true
}

// ReadAddress reads a little-endian 32-bit code address operand shared by
// br/br_t/br_f/jmp. For br/br_t/br_f the caller adds this to the cursor
// position just after the operand (a relative offset); for jmp the caller
// seeks to it directly (an absolute offset). See internal/vm's dispatch
// loop for the exact arithmetic each opcode applies.
func (c *Cursor) ReadAddress() (uint32, bool) {
	if !c.atLeast(4) {
		return 0, false
	}
	v := binary.LittleEndian.Uint32(c.code[c.pos:])
	c.pos += 4
	return v, true
}

// ReadIndex reads a single 16-bit index, used by the environment
// load/store instructions for a slot number within one environment frame.
func (c *Cursor) ReadIndex() (uint16, bool) {
	if !c.atLeast(2) {
		return 0, false
	}
	v := binary.LittleEndian.Uint16(c.code[c.pos:])
	c.pos += 2
	return v, true
}

// ReadDepthIndex reads a (depth, index) pair: depth is how many parent
// links to walk before reading index, used by ldp/stp.
func (c *Cursor) ReadDepthIndex() (depth uint16, index uint16, ok bool) {
	if !c.atLeast(4) {
		return 0, 0, false
	}
	depth = binary.LittleEndian.Uint16(c.code[c.pos:])
	index = binary.LittleEndian.Uint16(c.code[c.pos+2:])
	c.pos += 4
	return depth, index, true
}

// ReadArity reads the 16-bit argument count operand of call/call_t.
func (c *Cursor) ReadArity() (uint16, bool) {
	return c.ReadIndex()
}
