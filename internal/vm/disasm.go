package vm

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// operand widths per opcode, used by the disassembler to walk the stream.
func operandWidth(op Opcode) int {
	switch op {
	case OP_GET_LOCAL, OP_SET_LOCAL,
		OP_CREATE_ARRAY, OP_CREATE_OBJECT,
		OP_CALL, OP_TAIL_CALL, OP_NEW, OP_SUPER_CALL:
		return 1
	case OP_CONSTANT,
		OP_GET_GLOBAL, OP_SET_GLOBAL, OP_DEFINE_GLOBAL, OP_TRY_GET_GLOBAL,
		OP_GET_UPVALUE, OP_CLOSE_UPVALUE,
		OP_DEFINE_PROPERTY, OP_GET_PROPERTY, OP_SET_PROPERTY, OP_DELETE_PROPERTY,
		OP_GET_PRIVATE_FIELD, OP_SET_PRIVATE_FIELD,
		OP_CREATE_FUNCTION,
		OP_LOAD_MODULE, OP_EXPORT_VALUE,
		OP_JUMP, OP_JUMP_IF_FALSE, OP_JUMP_IF_TRUE, OP_JUMP_IF_NULL, OP_JUMP_IF_NOT_NULL,
		OP_ENTER_TRY:
		return 2
	case OP_CALL_METHOD:
		return 3 // u16 name + u8 argc
	case OP_PERFORM:
		return 5 // u16 effect + u16 op + u8 argc
	default:
		return 0
	}
}

func isJump(op Opcode) bool {
	switch op {
	case OP_JUMP, OP_JUMP_IF_FALSE, OP_JUMP_IF_TRUE, OP_JUMP_IF_NULL, OP_JUMP_IF_NOT_NULL, OP_ENTER_TRY:
		return true
	}
	return false
}

// Disassemble renders a chunk as human-readable text.
func Disassemble(chunk *Chunk, name string) string {
	var b strings.Builder
	writeDisassembly(&b, chunk, name, false)
	return b.String()
}

// FprintDisassembly writes a disassembly to w, coloring opcode names when w
// is a terminal.
func FprintDisassembly(w io.Writer, chunk *Chunk, name string) {
	color := false
	if f, ok := w.(*os.File); ok {
		color = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	writeDisassembly(w, chunk, name, color)
}

func writeDisassembly(w io.Writer, chunk *Chunk, name string, color bool) {
	fmt.Fprintf(w, "== %s ==\n", name)

	offset := 0
	for offset < len(chunk.Code) {
		offset = writeInstruction(w, chunk, offset, color)
	}
}

func writeInstruction(w io.Writer, chunk *Chunk, offset int, color bool) int {
	fmt.Fprintf(w, "%04d ", offset)
	if offset > 0 && chunk.Lines[offset] == chunk.Lines[offset-1] {
		fmt.Fprint(w, "   | ")
	} else {
		fmt.Fprintf(w, "%4d ", chunk.Lines[offset])
	}

	op := Opcode(chunk.Code[offset])
	name := op.String()
	if color {
		name = "\x1b[36m" + name + "\x1b[0m"
	}

	switch width := operandWidth(op); {
	case op == OP_CONSTANT || op == OP_CREATE_FUNCTION:
		idx := chunk.ReadU16(offset + 1)
		constant := "<out of range>"
		if int(idx) < len(chunk.Constants) {
			constant = chunk.Constants[idx].Inspect()
		}
		fmt.Fprintf(w, "%-18s %4d  %s\n", name, idx, constant)
	case isJump(op):
		jump := chunk.ReadI16(offset + 1)
		fmt.Fprintf(w, "%-18s %4d -> %d\n", name, offset, offset+3+int(jump))
	case op == OP_CALL_METHOD:
		idx := chunk.ReadU16(offset + 1)
		argc := chunk.Code[offset+3]
		method := "?"
		if int(idx) < len(chunk.Constants) {
			method = chunk.Constants[idx].Inspect()
		}
		fmt.Fprintf(w, "%-18s %s argc=%d\n", name, method, argc)
	case op == OP_PERFORM:
		effect := chunk.ReadU16(offset + 1)
		operation := chunk.ReadU16(offset + 3)
		argc := chunk.Code[offset+5]
		fmt.Fprintf(w, "%-18s effect=%d op=%d argc=%d\n", name, effect, operation, argc)
	case width == 1:
		fmt.Fprintf(w, "%-18s %4d\n", name, chunk.Code[offset+1])
	case width == 2:
		fmt.Fprintf(w, "%-18s %4d\n", name, chunk.ReadU16(offset+1))
	default:
		fmt.Fprintf(w, "%s\n", name)
	}

	return offset + 1 + operandWidth(op)
}
