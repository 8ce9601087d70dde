package vm

import "testing"

func TestChunkConstants(t *testing.T) {
	chunk := NewChunk()
	idx := chunk.AddConstant(NumberVal(42))
	if idx != 0 {
		t.Errorf("first constant index: %d", idx)
	}
	if chunk.AddConstant(StringVal("x")) != 1 {
		t.Error("second constant index")
	}
}

func TestChunkU16Roundtrip(t *testing.T) {
	c := NewCompiler()
	c.emitU16(0xBEEF)
	if got := c.chunk.ReadU16(0); got != 0xBEEF {
		t.Errorf("u16 roundtrip: got %#x", got)
	}
}

func TestJumpPatchForward(t *testing.T) {
	c := NewCompiler()
	addr := c.emitJump(OP_JUMP)
	c.emit(OP_POP)
	c.emit(OP_POP)
	c.patchJump(addr)

	// Offset is relative to the byte after the operand.
	if got := c.chunk.ReadI16(addr); got != 2 {
		t.Errorf("forward jump offset: got %d, want 2", got)
	}
}

func TestLoopEmitsNegativeOffset(t *testing.T) {
	c := NewCompiler()
	start := c.chunk.Len()
	c.emit(OP_POP)
	c.emitLoop(start)

	// JUMP operand starts one byte after the opcode.
	offset := c.chunk.ReadI16(start + 2)
	if offset >= 0 {
		t.Errorf("loop offset should be negative, got %d", offset)
	}
	// Target = position after operand + offset.
	if target := start + 4 + int(offset); target != start {
		t.Errorf("loop target: got %d, want %d", target, start)
	}
}

func TestJumpOffsetExtremes(t *testing.T) {
	// i16 extremes must wrap through the u16 encoding untouched.
	c := NewCompiler()
	var iMin, iMax int16 = -32768, 32767
	c.emitU16(uint16(iMin))
	c.emitU16(uint16(iMax))
	if got := c.chunk.ReadI16(0); got != -32768 {
		t.Errorf("i16 min: got %d", got)
	}
	if got := c.chunk.ReadI16(2); got != 32767 {
		t.Errorf("i16 max: got %d", got)
	}
}

func TestChunkLocationTables(t *testing.T) {
	chunk := NewChunk()
	chunk.WriteOp(OP_NULL, 3, 7)
	if chunk.Lines[0] != 3 || chunk.Columns[0] != 7 {
		t.Errorf("location tables: line=%d col=%d", chunk.Lines[0], chunk.Columns[0])
	}
}
