package bytecode_test

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zhongfu/sinter/internal/bytecode"
)

func TestDecodeHeader(t *testing.T) {
	buf := make([]byte, bytecode.HeaderSize)
	binary.LittleEndian.PutUint32(buf[0:], bytecode.Magic)
	binary.LittleEndian.PutUint32(buf[4:], 0x100)

	h := bytecode.DecodeHeader(buf)
	require.Equal(t, bytecode.Magic, h.Magic)
	require.Equal(t, uint32(0x100), h.EntryOffset)
}

func TestDecodeFunctionHeader(t *testing.T) {
	buf := make([]byte, 10)
	binary.LittleEndian.PutUint16(buf[4:], 2)  // NumArgs
	binary.LittleEndian.PutUint16(buf[6:], 5)  // EnvSize
	binary.LittleEndian.PutUint16(buf[8:], 32) // StackSize

	fh := bytecode.DecodeFunctionHeader(buf, 4)
	require.Equal(t, uint16(2), fh.NumArgs)
	require.Equal(t, uint16(5), fh.EnvSize)
	require.Equal(t, uint16(32), fh.StackSize)
	require.Equal(t, uint32(10), bytecode.CodeOffset(4))
}

func TestOpcodeStringAndValid(t *testing.T) {
	require.Equal(t, "add_g", bytecode.OpAddGeneral.String())
	require.True(t, bytecode.OpAddGeneral.Valid())
	require.False(t, bytecode.OpAddGeneral.Reserved())

	require.True(t, bytecode.OpNewArray.Valid())
	require.True(t, bytecode.OpNewArray.Reserved())

	var junk bytecode.Opcode = 250
	require.False(t, junk.Valid())
	require.Equal(t, "invalid", junk.String())
}

func TestCursorReadsAndBoundsChecks(t *testing.T) {
	code := []byte{
		byte(bytecode.OpLdcInt), 0x2A, 0x00, 0x00, 0x00,
	}
	c := bytecode.NewCursor(code, 0)

	op, ok := c.ReadOpcode()
	require.True(t, ok)
	require.Equal(t, bytecode.OpLdcInt, op)

	v, ok := c.ReadInt32()
	require.True(t, ok)
	require.Equal(t, int32(42), v)
	require.Equal(t, uint32(5), c.Pos())

	_, ok = c.ReadInt32()
	require.False(t, ok)
}

func TestCursorSeek(t *testing.T) {
	code := make([]byte, 15)
	c := bytecode.NewCursor(code, 0)
	c.Seek(10)
	require.Equal(t, uint32(10), c.Pos())

	_, ok := c.ReadDepthIndex()
	require.True(t, ok)
	require.Equal(t, uint32(14), c.Pos())

	_, ok = c.ReadOpcode()
	require.True(t, ok)
	_, ok = c.ReadOpcode()
	require.False(t, ok)
}
