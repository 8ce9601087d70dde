package vm

import (
	"github.com/josedab/quicksilver/internal/ast"
	"github.com/josedab/quicksilver/internal/errors"
)

// maxLocals caps local slots per function frame (u8 slot operands).
const maxLocals = 256

// local is a local variable during compilation.
type local struct {
	name       string
	depth      int
	isCaptured bool
}

// compilerUpvalue is a captured variable during compilation. The resolver in
// this core returns none (see resolveUpvalue); the type and the
// GET_UPVALUE / CLOSE_UPVALUE opcodes remain the contract for interpreters
// that implement capture.
type compilerUpvalue struct {
	index   uint8
	isLocal bool
}

// loopInfo tracks jump patch sites for break/continue.
type loopInfo struct {
	start         int
	breakJumps    []int
	continueJumps []int
	depth         int
}

// Compiler lowers an AST to a bytecode chunk.
type Compiler struct {
	chunk      *Chunk
	locals     []local
	upvalues   []compilerUpvalue
	scopeDepth int
	loopStack  []loopInfo

	// Current source location, mirrored into the chunk per instruction.
	line uint32
	col  uint32

	inFunction bool
	sourceFile string
}

// NewCompiler creates a compiler for top-level code.
func NewCompiler() *Compiler {
	return &Compiler{
		chunk: NewChunk(),
		line:  1,
		col:   1,
	}
}

// NewCompilerWithSource attaches a source file name for debug tables.
func NewCompilerWithSource(sourceFile string) *Compiler {
	c := NewCompiler()
	c.sourceFile = sourceFile
	c.chunk.File = sourceFile
	return c
}

// CompileProgram compiles a program to bytecode. The chunk leaves the last
// expression statement's value on the stack; any other trailing statement
// (and the empty program) pushes undefined.
func (c *Compiler) CompileProgram(program *ast.Program) (*Chunk, error) {
	c.chunk.IsStrict = program.Strict

	// Phase 1: hoist function declarations (they take precedence).
	if err := c.hoistFunctionDeclarations(collectFunctionDeclarations(program.Body)); err != nil {
		return nil, err
	}

	// Phase 2: hoist var declarations, initialized with undefined.
	if err := c.hoistVarDeclarations(collectVarDeclarations(program.Body)); err != nil {
		return nil, err
	}

	// Phase 3: compile statements, skipping the already-hoisted functions.
	last := len(program.Body) - 1
	for i, stmt := range program.Body {
		if _, ok := stmt.(*ast.Function); ok {
			// Hoisted already. A trailing function declaration still owes
			// the program result.
			if i == last {
				c.emit(OP_UNDEFINED)
			}
			continue
		}

		if i == last {
			if exprStmt, ok := stmt.(*ast.ExpressionStatement); ok {
				// Leave the value on the stack as the program result.
				if err := c.compileExpr(exprStmt.Expression); err != nil {
					return nil, err
				}
				continue
			}
			if err := c.compileStatement(stmt); err != nil {
				return nil, err
			}
			c.emit(OP_UNDEFINED)
			continue
		}

		if err := c.compileStatement(stmt); err != nil {
			return nil, err
		}
	}

	if len(program.Body) == 0 {
		c.emit(OP_UNDEFINED)
	}

	chunk := c.chunk
	c.chunk = NewChunk()
	return chunk, nil
}

// CompileExpression compiles a single expression into a chunk ending in
// RETURN.
func (c *Compiler) CompileExpression(expr ast.Expression) (*Chunk, error) {
	if err := c.compileExpr(expr); err != nil {
		return nil, err
	}
	c.emit(OP_RETURN)
	chunk := c.chunk
	c.chunk = NewChunk()
	return chunk, nil
}

// ===== Emit helpers =====

func (c *Compiler) emit(op Opcode) {
	c.chunk.WriteOp(op, c.line, c.col)
}

func (c *Compiler) emitByte(b byte) {
	c.chunk.Write(b, c.line, c.col)
}

func (c *Compiler) emitU16(v uint16) {
	c.emitByte(byte(v))
	c.emitByte(byte(v >> 8))
}

func (c *Compiler) setLocation(span ast.Span) {
	c.line = span.Start.Line
	c.col = span.Start.Column
}

func (c *Compiler) emitConstant(value Value) {
	idx := c.chunk.AddConstant(value)
	c.emit(OP_CONSTANT)
	c.emitU16(uint16(idx))
}

// nameConstant interns a string constant and returns its index.
func (c *Compiler) nameConstant(name string) uint16 {
	return uint16(c.chunk.AddConstant(StringVal(name)))
}

// emitJump writes a jump with a placeholder offset, returning the patch
// address.
func (c *Compiler) emitJump(op Opcode) int {
	c.emit(op)
	addr := c.chunk.Len()
	c.emitU16(0xFFFF)
	return addr
}

// patchJump back-fills a forward jump to target the current position.
// Offsets are signed 16-bit, relative to the byte after the operand.
func (c *Compiler) patchJump(addr int) {
	offset := int16(c.chunk.Len() - addr - 2)
	c.chunk.Code[addr] = byte(uint16(offset))
	c.chunk.Code[addr+1] = byte(uint16(offset) >> 8)
}

// emitLoop writes a backward jump to loopStart.
func (c *Compiler) emitLoop(loopStart int) {
	c.emit(OP_JUMP)
	offset := int16(loopStart - c.chunk.Len() - 2)
	c.emitU16(uint16(offset))
}

// emitCompoundOperator emits the arithmetic opcode of a compound assignment.
// Simple assignment emits nothing.
func (c *Compiler) emitCompoundOperator(op ast.AssignmentOperator) {
	switch op {
	case ast.AddAssign:
		c.emit(OP_ADD)
	case ast.SubAssign:
		c.emit(OP_SUB)
	case ast.MulAssign:
		c.emit(OP_MUL)
	case ast.DivAssign:
		c.emit(OP_DIV)
	case ast.ModAssign:
		c.emit(OP_MOD)
	case ast.PowAssign:
		c.emit(OP_POW)
	case ast.ShlAssign:
		c.emit(OP_SHL)
	case ast.ShrAssign:
		c.emit(OP_SHR)
	case ast.UShrAssign:
		c.emit(OP_USHR)
	case ast.BitwiseAndAssign:
		c.emit(OP_BITWISE_AND)
	case ast.BitwiseOrAssign:
		c.emit(OP_BITWISE_OR)
	case ast.BitwiseXorAssign:
		c.emit(OP_BITWISE_XOR)
	}
}

// ===== Scope management =====

func (c *Compiler) beginScope() {
	c.scopeDepth++
}

func (c *Compiler) endScope() {
	c.scopeDepth--
	for len(c.locals) > 0 && c.locals[len(c.locals)-1].depth > c.scopeDepth {
		l := c.locals[len(c.locals)-1]
		c.locals = c.locals[:len(c.locals)-1]
		if l.isCaptured {
			c.emit(OP_CLOSE_UPVALUE)
			c.emitU16(uint16(len(c.locals)))
		} else {
			c.emit(OP_POP)
		}
	}
}

func (c *Compiler) addLocal(name string) (uint8, error) {
	if len(c.locals) >= maxLocals {
		return 0, errors.NewInternalError("Too many local variables")
	}
	c.locals = append(c.locals, local{name: name, depth: c.scopeDepth})
	c.chunk.Locals = append(c.chunk.Locals, name)
	return uint8(len(c.locals) - 1), nil
}

// resolveLocal scans locals in reverse so inner shadows outer.
func (c *Compiler) resolveLocal(name string) (uint8, bool) {
	for i := len(c.locals) - 1; i >= 0; i-- {
		if c.locals[i].name == name {
			return uint8(i), true
		}
	}
	return 0, false
}

// resolveUpvalue returns no captures: closures over locals are resolved by
// the host interpreter through the upvalue opcode contract, not by this
// compiler. Kept as the hook point for ports that track enclosing compilers.
func (c *Compiler) resolveUpvalue(name string) (uint8, bool) {
	return 0, false
}

// ===== Hoisting =====

// collectVarDeclarations walks statements for function-scoped `var` names.
func collectVarDeclarations(stmts []ast.Statement) []string {
	var names []string
	for _, stmt := range stmts {
		collectVarsFromStatement(stmt, &names)
	}
	return names
}

func collectVarsFromStatement(stmt ast.Statement, names *[]string) {
	switch s := stmt.(type) {
	case *ast.VariableDeclaration:
		if s.Kind == ast.KindVar {
			for _, d := range s.Declarations {
				collectVarsFromPattern(d.ID, names)
			}
		}
	case *ast.BlockStatement:
		for _, inner := range s.Body {
			collectVarsFromStatement(inner, names)
		}
	case *ast.IfStatement:
		collectVarsFromStatement(s.Consequent, names)
		if s.Alternate != nil {
			collectVarsFromStatement(s.Alternate, names)
		}
	case *ast.WhileStatement:
		collectVarsFromStatement(s.Body, names)
	case *ast.DoWhileStatement:
		collectVarsFromStatement(s.Body, names)
	case *ast.ForStatement:
		if s.Init != nil && s.Init.Declaration != nil && s.Init.Declaration.Kind == ast.KindVar {
			for _, d := range s.Init.Declaration.Declarations {
				collectVarsFromPattern(d.ID, names)
			}
		}
		collectVarsFromStatement(s.Body, names)
	case *ast.ForInStatement:
		if s.Left.Declaration != nil && s.Left.Declaration.Kind == ast.KindVar {
			for _, d := range s.Left.Declaration.Declarations {
				collectVarsFromPattern(d.ID, names)
			}
		}
		collectVarsFromStatement(s.Body, names)
	case *ast.ForOfStatement:
		if s.Left.Declaration != nil && s.Left.Declaration.Kind == ast.KindVar {
			for _, d := range s.Left.Declaration.Declarations {
				collectVarsFromPattern(d.ID, names)
			}
		}
		collectVarsFromStatement(s.Body, names)
	case *ast.TryStatement:
		for _, inner := range s.Block.Body {
			collectVarsFromStatement(inner, names)
		}
		if s.Handler != nil {
			for _, inner := range s.Handler.Body.Body {
				collectVarsFromStatement(inner, names)
			}
		}
		if s.Finalizer != nil {
			for _, inner := range s.Finalizer.Body {
				collectVarsFromStatement(inner, names)
			}
		}
	case *ast.SwitchStatement:
		for _, cs := range s.Cases {
			for _, inner := range cs.Consequent {
				collectVarsFromStatement(inner, names)
			}
		}
	case *ast.LabeledStatement:
		collectVarsFromStatement(s.Body, names)
	case *ast.WithStatement:
		collectVarsFromStatement(s.Body, names)
	}
}

func collectVarsFromPattern(pattern ast.Pattern, names *[]string) {
	switch p := pattern.(type) {
	case *ast.IdentifierPattern:
		for _, existing := range *names {
			if existing == p.Name {
				return
			}
		}
		*names = append(*names, p.Name)
	case *ast.ArrayPattern:
		for _, elem := range p.Elements {
			if elem != nil {
				collectVarsFromPattern(elem, names)
			}
		}
	case *ast.ObjectPattern:
		for _, prop := range p.Properties {
			if prop.Value != nil {
				collectVarsFromPattern(prop.Value, names)
			}
		}
	case *ast.AssignmentPattern:
		collectVarsFromPattern(p.Left, names)
	case *ast.RestPattern:
		collectVarsFromPattern(p.Argument, names)
	case *ast.MemberPattern:
		// Member targets bind no names.
	}
}

func collectFunctionDeclarations(stmts []ast.Statement) []*ast.Function {
	var funcs []*ast.Function
	for _, stmt := range stmts {
		if fn, ok := stmt.(*ast.Function); ok {
			funcs = append(funcs, fn)
		}
	}
	return funcs
}

// hoistVarDeclarations binds each var name with undefined at function scope.
func (c *Compiler) hoistVarDeclarations(names []string) error {
	for _, name := range names {
		if c.scopeDepth > 0 {
			already := false
			for _, l := range c.locals {
				if l.name == name {
					already = true
					break
				}
			}
			if !already {
				// Push undefined so the slot exists on the stack.
				c.emit(OP_UNDEFINED)
				if _, err := c.addLocal(name); err != nil {
					return err
				}
			}
		} else {
			c.emit(OP_UNDEFINED)
			c.emit(OP_DEFINE_GLOBAL)
			c.emitU16(c.nameConstant(name))
		}
	}
	return nil
}

func (c *Compiler) hoistFunctionDeclarations(funcs []*ast.Function) error {
	for _, fn := range funcs {
		if err := c.compileFunctionDecl(fn); err != nil {
			return err
		}
	}
	return nil
}

// ===== Compile-time literal evaluation =====

// tryEvalLiteral folds literal expressions to values at compile time.
// Handles null, booleans, numbers, strings, `undefined`, and unary -/+/!
// over those. Anything else defers to runtime.
func (c *Compiler) tryEvalLiteral(expr ast.Expression) (Value, bool) {
	switch e := expr.(type) {
	case *ast.Literal:
		switch {
		case e.Value.Null:
			return NullVal(), true
		case e.Value.Boolean != nil:
			return BoolVal(*e.Value.Boolean), true
		case e.Value.Number != nil:
			return NumberVal(*e.Value.Number), true
		case e.Value.String != nil:
			return StringVal(*e.Value.String), true
		}
		// BigInt and regex need runtime handling.
		return UndefinedVal(), false
	case *ast.Identifier:
		if e.Name == "undefined" {
			return UndefinedVal(), true
		}
	case *ast.UnaryExpression:
		operand, ok := c.tryEvalLiteral(e.Argument)
		if !ok {
			return UndefinedVal(), false
		}
		switch e.Operator {
		case ast.UnaryMinus:
			if operand.IsNumber() {
				return NumberVal(-operand.AsNumber()), true
			}
		case ast.UnaryPlus:
			if operand.IsNumber() {
				return operand, true
			}
		case ast.UnaryNot:
			return BoolVal(!ToBoolean(operand)), true
		}
	case *ast.ParenthesizedExpression:
		return c.tryEvalLiteral(e.Expression)
	}
	return UndefinedVal(), false
}
