// Package vm implements the value model, the bytecode chunk format, and the
// AST-to-bytecode compiler. The dispatch loop executing chunks lives outside
// this package; the opcode set below is its contract.
package vm

// Opcode is a single VM instruction. Some opcodes carry inline operands
// (u8, u16, or signed i16 for jumps) encoded little-endian after the opcode
// byte. Jump offsets are relative to the byte immediately after the operand.
type Opcode byte

const (
	// Stack manipulation
	OP_POP  Opcode = iota // Discard top of stack
	OP_DUP                // Duplicate top of stack
	OP_SWAP               // Swap the two top entries

	// Constants
	OP_NULL            // Push null
	OP_UNDEFINED       // Push undefined
	OP_TRUE            // Push true
	OP_FALSE           // Push false
	OP_CONSTANT        // Push constant from pool (u16 index)

	// Variables
	OP_GET_LOCAL      // Get local by slot (u8)
	OP_SET_LOCAL      // Set local by slot (u8), peeks value
	OP_GET_GLOBAL     // Get global by name constant (u16)
	OP_SET_GLOBAL     // Set global by name constant (u16), peeks value
	OP_DEFINE_GLOBAL  // Define global by name constant (u16), pops value
	OP_TRY_GET_GLOBAL // Get global, pushing undefined instead of throwing (u16)
	OP_GET_UPVALUE    // Get captured variable (u16)
	OP_CLOSE_UPVALUE  // Close captured variable leaving scope (u16)

	// Arithmetic
	OP_ADD
	OP_SUB
	OP_MUL
	OP_DIV
	OP_MOD
	OP_POW
	OP_NEG
	OP_INCREMENT
	OP_DECREMENT

	// Bitwise
	OP_SHL
	OP_SHR
	OP_USHR
	OP_BITWISE_AND
	OP_BITWISE_OR
	OP_BITWISE_XOR
	OP_BITWISE_NOT

	// Comparison
	OP_EQ
	OP_NE
	OP_STRICT_EQ
	OP_STRICT_NE
	OP_LT
	OP_LE
	OP_GT
	OP_GE
	OP_IN
	OP_INSTANCEOF

	// Logic
	OP_NOT
	OP_TYPEOF
	OP_VOID
	OP_DELETE

	// Control flow (i16 offset)
	OP_JUMP
	OP_JUMP_IF_FALSE
	OP_JUMP_IF_TRUE
	OP_JUMP_IF_NULL
	OP_JUMP_IF_NOT_NULL

	// Collections
	OP_CREATE_ARRAY      // Build array from N stack values (u8)
	OP_CREATE_OBJECT     // Build object, then N DefineProperty pairs (u8)
	OP_DEFINE_PROPERTY   // Define key/value pair on object below (u16, unused)
	OP_GET_PROPERTY      // Get property by name constant (u16)
	OP_SET_PROPERTY      // Set property by name constant (u16)
	OP_GET_ELEMENT       // obj[key] with key on stack
	OP_SET_ELEMENT       // obj[key] = value with key, value on stack
	OP_DELETE_PROPERTY   // delete obj.prop by name constant (u16)
	OP_SPREAD            // Mark top of stack for spreading
	OP_GET_PRIVATE_FIELD // Get #field by name constant (u16)
	OP_SET_PRIVATE_FIELD // Set #field by name constant (u16)

	// Functions and classes
	OP_CREATE_FUNCTION // Instantiate function constant (u16)
	OP_CALL            // Call with N args (u8)
	OP_CALL_METHOD     // Call method: name constant (u16) + N args (u8)
	OP_TAIL_CALL       // Tail call with N args (u8)
	OP_NEW             // Construct with N args (u8)
	OP_SUPER_CALL      // super(...) with N args (u8)
	OP_SUPER           // Push super binding
	OP_THIS            // Push this binding
	OP_SET_SUPER_CLASS // Install prototype chain: [class, super] -> [class]
	OP_RETURN
	OP_RETURN_UNDEFINED

	// Exceptions
	OP_ENTER_TRY // Register handler at offset (i16)
	OP_LEAVE_TRY
	OP_THROW

	// Iterators
	OP_GET_ITERATOR
	OP_ITERATOR_NEXT  // Peeks iterator, pushes {value, done}
	OP_ITERATOR_DONE  // Pops result, pushes done flag
	OP_ITERATOR_VALUE // Pops result, pushes value

	// Async / generators
	OP_AWAIT
	OP_YIELD

	// Modules
	OP_LOAD_MODULE    // Push module namespace for source constant (u16)
	OP_EXPORT_VALUE   // Export top of stack under name constant (u16)
	OP_EXPORT_ALL     // Re-export every binding of the namespace on top
	OP_DYNAMIC_IMPORT // import(source) with source on stack

	// Algebraic effects
	OP_PERFORM // effect constant (u16) + operation constant (u16) + N args (u8)

	// Match expressions
	OP_MATCH_PATTERN // Strict-equality pattern test, pushes bool
	OP_MATCH_END     // Pop the discriminant
)

// OpcodeNames maps opcodes to their string names (for the disassembler).
var OpcodeNames = map[Opcode]string{
	OP_POP:  "POP",
	OP_DUP:  "DUP",
	OP_SWAP: "SWAP",

	OP_NULL:      "NULL",
	OP_UNDEFINED: "UNDEFINED",
	OP_TRUE:      "TRUE",
	OP_FALSE:     "FALSE",
	OP_CONSTANT:  "CONSTANT",

	OP_GET_LOCAL:      "GET_LOCAL",
	OP_SET_LOCAL:      "SET_LOCAL",
	OP_GET_GLOBAL:     "GET_GLOBAL",
	OP_SET_GLOBAL:     "SET_GLOBAL",
	OP_DEFINE_GLOBAL:  "DEFINE_GLOBAL",
	OP_TRY_GET_GLOBAL: "TRY_GET_GLOBAL",
	OP_GET_UPVALUE:    "GET_UPVALUE",
	OP_CLOSE_UPVALUE:  "CLOSE_UPVALUE",

	OP_ADD:       "ADD",
	OP_SUB:       "SUB",
	OP_MUL:       "MUL",
	OP_DIV:       "DIV",
	OP_MOD:       "MOD",
	OP_POW:       "POW",
	OP_NEG:       "NEG",
	OP_INCREMENT: "INCREMENT",
	OP_DECREMENT: "DECREMENT",

	OP_SHL:         "SHL",
	OP_SHR:         "SHR",
	OP_USHR:        "USHR",
	OP_BITWISE_AND: "BITWISE_AND",
	OP_BITWISE_OR:  "BITWISE_OR",
	OP_BITWISE_XOR: "BITWISE_XOR",
	OP_BITWISE_NOT: "BITWISE_NOT",

	OP_EQ:         "EQ",
	OP_NE:         "NE",
	OP_STRICT_EQ:  "STRICT_EQ",
	OP_STRICT_NE:  "STRICT_NE",
	OP_LT:         "LT",
	OP_LE:         "LE",
	OP_GT:         "GT",
	OP_GE:         "GE",
	OP_IN:         "IN",
	OP_INSTANCEOF: "INSTANCEOF",

	OP_NOT:    "NOT",
	OP_TYPEOF: "TYPEOF",
	OP_VOID:   "VOID",
	OP_DELETE: "DELETE",

	OP_JUMP:             "JUMP",
	OP_JUMP_IF_FALSE:    "JUMP_IF_FALSE",
	OP_JUMP_IF_TRUE:     "JUMP_IF_TRUE",
	OP_JUMP_IF_NULL:     "JUMP_IF_NULL",
	OP_JUMP_IF_NOT_NULL: "JUMP_IF_NOT_NULL",

	OP_CREATE_ARRAY:      "CREATE_ARRAY",
	OP_CREATE_OBJECT:     "CREATE_OBJECT",
	OP_DEFINE_PROPERTY:   "DEFINE_PROPERTY",
	OP_GET_PROPERTY:      "GET_PROPERTY",
	OP_SET_PROPERTY:      "SET_PROPERTY",
	OP_GET_ELEMENT:       "GET_ELEMENT",
	OP_SET_ELEMENT:       "SET_ELEMENT",
	OP_DELETE_PROPERTY:   "DELETE_PROPERTY",
	OP_SPREAD:            "SPREAD",
	OP_GET_PRIVATE_FIELD: "GET_PRIVATE_FIELD",
	OP_SET_PRIVATE_FIELD: "SET_PRIVATE_FIELD",

	OP_CREATE_FUNCTION:  "CREATE_FUNCTION",
	OP_CALL:             "CALL",
	OP_CALL_METHOD:      "CALL_METHOD",
	OP_TAIL_CALL:        "TAIL_CALL",
	OP_NEW:              "NEW",
	OP_SUPER_CALL:       "SUPER_CALL",
	OP_SUPER:            "SUPER",
	OP_THIS:             "THIS",
	OP_SET_SUPER_CLASS:  "SET_SUPER_CLASS",
	OP_RETURN:           "RETURN",
	OP_RETURN_UNDEFINED: "RETURN_UNDEFINED",

	OP_ENTER_TRY: "ENTER_TRY",
	OP_LEAVE_TRY: "LEAVE_TRY",
	OP_THROW:     "THROW",

	OP_GET_ITERATOR:   "GET_ITERATOR",
	OP_ITERATOR_NEXT:  "ITERATOR_NEXT",
	OP_ITERATOR_DONE:  "ITERATOR_DONE",
	OP_ITERATOR_VALUE: "ITERATOR_VALUE",

	OP_AWAIT: "AWAIT",
	OP_YIELD: "YIELD",

	OP_LOAD_MODULE:    "LOAD_MODULE",
	OP_EXPORT_VALUE:   "EXPORT_VALUE",
	OP_EXPORT_ALL:     "EXPORT_ALL",
	OP_DYNAMIC_IMPORT: "DYNAMIC_IMPORT",

	OP_PERFORM: "PERFORM",

	OP_MATCH_PATTERN: "MATCH_PATTERN",
	OP_MATCH_END:     "MATCH_END",
}

func (op Opcode) String() string {
	if name, ok := OpcodeNames[op]; ok {
		return name
	}
	return "UNKNOWN"
}
