package vm

import (
	"strings"
	"testing"

	"github.com/josedab/quicksilver/internal/ast"
	"github.com/josedab/quicksilver/internal/errors"
)

// AST construction helpers. The parser is external, so tests build trees by
// hand.

func sp() ast.Span {
	return ast.Span{Start: ast.Position{Line: 1, Column: 1}}
}

func num(n float64) *ast.Literal {
	v := n
	return &ast.Literal{Value: ast.LiteralValue{Number: &v}, Span: sp()}
}

func str(s string) *ast.Literal {
	v := s
	return &ast.Literal{Value: ast.LiteralValue{String: &v}, Span: sp()}
}

func ident(name string) *ast.Identifier {
	return &ast.Identifier{Name: name, Span: sp()}
}

func exprStmt(e ast.Expression) *ast.ExpressionStatement {
	return &ast.ExpressionStatement{Expression: e, Span: sp()}
}

func program(stmts ...ast.Statement) *ast.Program {
	return &ast.Program{Body: stmts, Span: sp()}
}

func binary(op ast.BinaryOperator, left, right ast.Expression) *ast.BinaryExpression {
	return &ast.BinaryExpression{Operator: op, Left: left, Right: right, Span: sp()}
}

func letDecl(name string, init ast.Expression) *ast.VariableDeclaration {
	return &ast.VariableDeclaration{
		Kind: ast.KindLet,
		Declarations: []*ast.VariableDeclarator{
			{ID: &ast.IdentifierPattern{Name: name, Span: sp()}, Init: init, Span: sp()},
		},
		Span: sp(),
	}
}

func varDecl(name string, init ast.Expression) *ast.VariableDeclaration {
	decl := letDecl(name, init)
	decl.Kind = ast.KindVar
	return decl
}

func compileProgram(t *testing.T, prog *ast.Program) *Chunk {
	t.Helper()
	chunk, err := NewCompiler().CompileProgram(prog)
	if err != nil {
		t.Fatalf("compilation error: %s", err)
	}
	return chunk
}

// opcodes flattens a chunk's opcode stream, skipping operands.
func opcodes(chunk *Chunk) []Opcode {
	var ops []Opcode
	offset := 0
	for offset < len(chunk.Code) {
		op := Opcode(chunk.Code[offset])
		ops = append(ops, op)
		offset += 1 + operandWidth(op)
	}
	return ops
}

func assertDisasmContains(t *testing.T, chunk *Chunk, want string) {
	t.Helper()
	disasm := Disassemble(chunk, "test")
	if !strings.Contains(disasm, want) {
		t.Errorf("disassembly missing %q:\n%s", want, disasm)
	}
}

// findFunctionConstant returns the first compiled function in the pool.
func findFunctionConstant(t *testing.T, chunk *Chunk) *CompiledFunction {
	t.Helper()
	for _, c := range chunk.Constants {
		if c.IsObject() && c.Obj.Kind == KindFunction {
			return c.Obj.Function
		}
	}
	t.Fatal("no compiled function in constant pool")
	return nil
}

func TestCompileArithmetic(t *testing.T) {
	// 1 + 2; leaves the sum on the stack as the program result.
	chunk := compileProgram(t, program(exprStmt(binary(ast.BinaryAdd, num(1), num(2)))))

	ops := opcodes(chunk)
	want := []Opcode{OP_CONSTANT, OP_CONSTANT, OP_ADD}
	if len(ops) != len(want) {
		t.Fatalf("opcode count: got %v, want %v", ops, want)
	}
	for i, op := range want {
		if ops[i] != op {
			t.Errorf("opcode %d: got %s, want %s", i, ops[i], op)
		}
	}

	if len(chunk.Constants) != 2 ||
		chunk.Constants[0].AsNumber() != 1 || chunk.Constants[1].AsNumber() != 2 {
		t.Errorf("constants: got %v", chunk.Constants)
	}
}

func TestCompileTrailingStatementPushesUndefined(t *testing.T) {
	// A trailing non-expression statement pushes undefined.
	chunk := compileProgram(t, program(letDecl("x", num(10))))
	ops := opcodes(chunk)
	if ops[len(ops)-1] != OP_UNDEFINED {
		t.Errorf("trailing opcode: got %s, want UNDEFINED", ops[len(ops)-1])
	}
}

func TestCompileEmptyProgram(t *testing.T) {
	chunk := compileProgram(t, program())
	ops := opcodes(chunk)
	if len(ops) != 1 || ops[0] != OP_UNDEFINED {
		t.Errorf("empty program: got %v, want [UNDEFINED]", ops)
	}
}

func TestCompileGlobalDefineAndLoad(t *testing.T) {
	// let x = 10; x;
	chunk := compileProgram(t, program(letDecl("x", num(10)), exprStmt(ident("x"))))
	assertDisasmContains(t, chunk, "DEFINE_GLOBAL")
	assertDisasmContains(t, chunk, "GET_GLOBAL")
}

func TestVarHoistingThroughBlocks(t *testing.T) {
	// { var x = 1; } hoists x to the enclosing (global) scope before any
	// statement runs.
	block := &ast.BlockStatement{Body: []ast.Statement{varDecl("x", num(1))}, Span: sp()}
	chunk := compileProgram(t, program(block, exprStmt(ident("x"))))

	ops := opcodes(chunk)
	if ops[0] != OP_UNDEFINED || ops[1] != OP_DEFINE_GLOBAL {
		t.Errorf("hoist prologue: got %s %s, want UNDEFINED DEFINE_GLOBAL", ops[0], ops[1])
	}
}

func TestFunctionsHoistBeforeVars(t *testing.T) {
	fn := &ast.Function{
		ID:   ident("f"),
		Body: ast.FunctionBody{Block: &ast.BlockStatement{Span: sp()}},
		Span: sp(),
	}
	chunk := compileProgram(t, program(varDecl("x", nil), fn))
	ops := opcodes(chunk)
	if ops[0] != OP_CREATE_FUNCTION {
		t.Errorf("function not hoisted first: got %s", ops[0])
	}
}

func TestCompileIf(t *testing.T) {
	tval := true
	cond := &ast.Literal{Value: ast.LiteralValue{Boolean: &tval}, Span: sp()}
	stmt := &ast.IfStatement{
		Test:       cond,
		Consequent: exprStmt(num(1)),
		Alternate:  exprStmt(num(2)),
		Span:       sp(),
	}
	chunk := compileProgram(t, program(stmt, exprStmt(num(0))))
	assertDisasmContains(t, chunk, "JUMP_IF_FALSE")
}

func TestCompileWhileWithBreak(t *testing.T) {
	tval := true
	cond := &ast.Literal{Value: ast.LiteralValue{Boolean: &tval}, Span: sp()}
	loop := &ast.WhileStatement{
		Test: cond,
		Body: &ast.BlockStatement{Body: []ast.Statement{&ast.BreakStatement{Span: sp()}}, Span: sp()},
		Span: sp(),
	}
	chunk := compileProgram(t, program(loop, exprStmt(num(0))))
	assertDisasmContains(t, chunk, "JUMP")
}

func TestBreakOutsideLoopFails(t *testing.T) {
	_, err := NewCompiler().CompileProgram(program(&ast.BreakStatement{Span: sp()}))
	if err == nil {
		t.Fatal("expected error for break outside loop")
	}
	var qerr *errors.Error
	if qerr, _ = err.(*errors.Error); qerr == nil || qerr.Kind != errors.SyntaxError {
		t.Errorf("expected SyntaxError, got %v", err)
	}
}

func TestTooManyLocalsFails(t *testing.T) {
	params := make([]ast.Pattern, maxLocals+1)
	for i := range params {
		params[i] = &ast.IdentifierPattern{Name: "p" + NumberToString(float64(i)), Span: sp()}
	}
	fn := &ast.Function{
		ID:     ident("big"),
		Params: ast.FunctionParams{Params: params},
		Body:   ast.FunctionBody{Block: &ast.BlockStatement{Span: sp()}},
		Span:   sp(),
	}
	_, err := NewCompiler().CompileProgram(program(fn))
	if err == nil {
		t.Fatal("expected error for too many locals")
	}
	if !strings.Contains(err.Error(), "Too many local variables") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestCompileLogicalShortCircuit(t *testing.T) {
	and := &ast.LogicalExpression{Operator: ast.LogicalAnd, Left: ident("a"), Right: ident("b"), Span: sp()}
	chunk := compileProgram(t, program(exprStmt(and)))
	assertDisasmContains(t, chunk, "JUMP_IF_FALSE")

	nullish := &ast.LogicalExpression{Operator: ast.LogicalNullish, Left: ident("a"), Right: ident("b"), Span: sp()}
	chunk = compileProgram(t, program(exprStmt(nullish)))
	assertDisasmContains(t, chunk, "JUMP_IF_NOT_NULL")
}

func TestCompileTypeofGlobalUsesTryGet(t *testing.T) {
	expr := &ast.UnaryExpression{Operator: ast.UnaryTypeof, Argument: ident("nope"), Span: sp()}
	chunk := compileProgram(t, program(exprStmt(expr)))
	assertDisasmContains(t, chunk, "TRY_GET_GLOBAL")
	assertDisasmContains(t, chunk, "TYPEOF")
}

func TestCompileOptionalMember(t *testing.T) {
	member := &ast.MemberExpression{
		Object:   ident("obj"),
		Property: ast.MemberProperty{Identifier: ident("p")},
		Optional: true,
		Span:     sp(),
	}
	chunk := compileProgram(t, program(exprStmt(member)))
	assertDisasmContains(t, chunk, "JUMP_IF_NULL")
}

func TestCompileMethodCall(t *testing.T) {
	call := &ast.CallExpression{
		Callee: &ast.MemberExpression{
			Object:   ident("obj"),
			Property: ast.MemberProperty{Identifier: ident("m")},
			Span:     sp(),
		},
		Arguments: []ast.Expression{num(1), num(2)},
		Span:      sp(),
	}
	chunk := compileProgram(t, program(exprStmt(call)))
	assertDisasmContains(t, chunk, "CALL_METHOD")
}

func TestCompileTailCall(t *testing.T) {
	// function f() { return g(1); } compiles the return as a tail call.
	ret := &ast.ReturnStatement{
		Argument: &ast.CallExpression{Callee: ident("g"), Arguments: []ast.Expression{num(1)}, Span: sp()},
		Span:     sp(),
	}
	fn := &ast.Function{
		ID:   ident("f"),
		Body: ast.FunctionBody{Block: &ast.BlockStatement{Body: []ast.Statement{ret}, Span: sp()}},
		Span: sp(),
	}
	chunk := compileProgram(t, program(fn))
	inner := findFunctionConstant(t, chunk)
	assertDisasmContains(t, inner.Chunk, "TAIL_CALL")
}

func TestCompilePipeline(t *testing.T) {
	// a |> f desugars to f(a).
	pipe := &ast.PipelineExpression{Left: ident("a"), Right: ident("f"), Span: sp()}
	chunk := compileProgram(t, program(exprStmt(pipe)))

	ops := opcodes(chunk)
	n := len(ops)
	if n < 2 || ops[n-2] != OP_SWAP || ops[n-1] != OP_CALL {
		t.Errorf("pipeline tail: got %v", ops)
	}
}

func TestCompilePerform(t *testing.T) {
	perform := &ast.PerformExpression{
		EffectType: "IO",
		Operation:  "read",
		Arguments:  []ast.Expression{str("file.txt")},
		Span:       sp(),
	}
	chunk := compileProgram(t, program(exprStmt(perform)))
	assertDisasmContains(t, chunk, "PERFORM")
}

func TestCompileMatchLiteralArms(t *testing.T) {
	one := "one"
	other := "other"
	match := &ast.MatchExpression{
		Discriminant: ident("x"),
		Arms: []*ast.MatchArm{
			{Pattern: ast.MatchPattern{Literal: num(1)}, Body: str(one), Span: sp()},
			{Pattern: ast.MatchPattern{Wildcard: true}, Body: str(other), Span: sp()},
		},
		Span: sp(),
	}
	chunk := compileProgram(t, program(exprStmt(match)))
	assertDisasmContains(t, chunk, "MATCH_PATTERN")
	assertDisasmContains(t, chunk, "MATCH_END")
}

func TestCompileDestructuringDeclaration(t *testing.T) {
	// let [a, b, c] = [1, 2, 3];
	arr := &ast.ArrayExpression{Elements: []ast.Expression{num(1), num(2), num(3)}, Span: sp()}
	pattern := &ast.ArrayPattern{
		Elements: []ast.Pattern{
			&ast.IdentifierPattern{Name: "a", Span: sp()},
			&ast.IdentifierPattern{Name: "b", Span: sp()},
			&ast.IdentifierPattern{Name: "c", Span: sp()},
		},
		Span: sp(),
	}
	decl := &ast.VariableDeclaration{
		Kind:         ast.KindLet,
		Declarations: []*ast.VariableDeclarator{{ID: pattern, Init: arr, Span: sp()}},
		Span:         sp(),
	}
	chunk := compileProgram(t, program(decl, exprStmt(ident("a"))))

	disasm := Disassemble(chunk, "test")
	if got := strings.Count(disasm, "GET_ELEMENT"); got != 3 {
		t.Errorf("GET_ELEMENT count: got %d, want 3", got)
	}
	if got := strings.Count(disasm, "DEFINE_GLOBAL"); got != 3 {
		t.Errorf("DEFINE_GLOBAL count: got %d, want 3", got)
	}
}

func TestCompileClassWithPrivateField(t *testing.T) {
	// class C { #x = 5; get() { return this.#x; } }
	five := 5.0
	getBody := &ast.ReturnStatement{
		Argument: &ast.MemberExpression{
			Object:   &ast.ThisExpression{Span: sp()},
			Property: ast.MemberProperty{Private: strPtr("x")},
			Span:     sp(),
		},
		Span: sp(),
	}
	class := &ast.Class{
		ID: ident("C"),
		Body: []ast.ClassElement{
			{Property: &ast.PropertyDefinition{
				Key:   ast.PropertyKey{Private: strPtr("x")},
				Value: &ast.Literal{Value: ast.LiteralValue{Number: &five}, Span: sp()},
				Span:  sp(),
			}},
			{Method: &ast.MethodDefinition{
				Key:  ast.PropertyKey{Identifier: ident("get")},
				Kind: ast.MethodNormal,
				Value: &ast.Function{
					Body: ast.FunctionBody{Block: &ast.BlockStatement{Body: []ast.Statement{getBody}, Span: sp()}},
					Span: sp(),
				},
				Span: sp(),
			}},
		},
		Span: sp(),
	}
	chunk := compileProgram(t, program(class))

	var data *ClassData
	for _, c := range chunk.Constants {
		if c.IsObject() && c.Obj.Kind == KindClass {
			data = c.Obj.Class
		}
	}
	if data == nil {
		t.Fatal("no class constant emitted")
	}
	field, ok := data.InstanceFields["#x"]
	if !ok || field.AsNumber() != 5 {
		t.Errorf("instance field #x: got %v, ok=%v", field, ok)
	}
	if _, ok := data.PrototypeMethods["get"]; !ok {
		t.Error("prototype method get missing")
	}

	// The getter body accesses the private field through the dedicated
	// opcode.
	method := data.PrototypeMethods["get"]
	assertDisasmContains(t, method.Obj.Function.Chunk, "GET_PRIVATE_FIELD")
}

func TestCompileTemplateLiteral(t *testing.T) {
	tpl := &ast.TemplateLiteral{
		Quasis:      []ast.TemplateElement{{Cooked: "Hello "}, {Cooked: "!", Tail: true}},
		Expressions: []ast.Expression{ident("name")},
		Span:        sp(),
	}
	chunk := compileProgram(t, program(exprStmt(tpl)))
	disasm := Disassemble(chunk, "test")
	if got := strings.Count(disasm, "ADD"); got != 2 {
		t.Errorf("ADD count: got %d, want 2\n%s", got, disasm)
	}

	empty := &ast.TemplateLiteral{Quasis: []ast.TemplateElement{{Tail: true}}, Span: sp()}
	chunk = compileProgram(t, program(exprStmt(empty)))
	if len(chunk.Constants) != 1 || chunk.Constants[0].Str != "" {
		t.Errorf("empty template constants: %v", chunk.Constants)
	}
}

func TestCompileSwitch(t *testing.T) {
	sw := &ast.SwitchStatement{
		Discriminant: ident("x"),
		Cases: []*ast.SwitchCase{
			{Test: num(1), Consequent: []ast.Statement{exprStmt(str("a"))}, Span: sp()},
			{Test: nil, Consequent: []ast.Statement{exprStmt(str("d"))}, Span: sp()},
		},
		Span: sp(),
	}
	chunk := compileProgram(t, program(sw, exprStmt(num(0))))
	assertDisasmContains(t, chunk, "STRICT_EQ")
	assertDisasmContains(t, chunk, "JUMP_IF_TRUE")
}

func TestCompileTryCatch(t *testing.T) {
	try := &ast.TryStatement{
		Block: &ast.BlockStatement{Body: []ast.Statement{
			&ast.ThrowStatement{Argument: str("boom"), Span: sp()},
		}, Span: sp()},
		Handler: &ast.CatchClause{
			Param: &ast.IdentifierPattern{Name: "e", Span: sp()},
			Body:  &ast.BlockStatement{Span: sp()},
			Span:  sp(),
		},
		Span: sp(),
	}
	chunk := compileProgram(t, program(try, exprStmt(num(0))))
	assertDisasmContains(t, chunk, "ENTER_TRY")
	assertDisasmContains(t, chunk, "LEAVE_TRY")
	assertDisasmContains(t, chunk, "THROW")
}

func TestCompileForOfEmitsIteratorProtocol(t *testing.T) {
	loop := &ast.ForOfStatement{
		Left: ast.ForInLeft{Declaration: letDeclOf("item")},
		Right: &ast.ArrayExpression{
			Elements: []ast.Expression{num(1), num(2)},
			Span:     sp(),
		},
		Body: &ast.BlockStatement{Span: sp()},
		Span: sp(),
	}
	chunk := compileProgram(t, program(loop, exprStmt(num(0))))
	for _, want := range []string{"GET_ITERATOR", "ITERATOR_NEXT", "ITERATOR_DONE", "ITERATOR_VALUE"} {
		assertDisasmContains(t, chunk, want)
	}
}

func TestCompileForAwaitOfEmitsAwait(t *testing.T) {
	loop := &ast.ForOfStatement{
		Left:    ast.ForInLeft{Declaration: letDeclOf("item")},
		Right:   ident("stream"),
		Body:    &ast.BlockStatement{Span: sp()},
		IsAwait: true,
		Span:    sp(),
	}
	chunk := compileProgram(t, program(loop, exprStmt(num(0))))
	assertDisasmContains(t, chunk, "AWAIT")
}

func TestCompileImportExport(t *testing.T) {
	imp := &ast.ImportDeclaration{
		Specifiers: []ast.ImportSpecifier{{Local: ident("x"), Imported: ident("x")}},
		Source:     "./mod",
		Span:       sp(),
	}
	chunk := compileProgram(t, program(imp, exprStmt(num(0))))
	assertDisasmContains(t, chunk, "LOAD_MODULE")

	exp := &ast.ExportDeclaration{Kind: ast.ExportDefault, Expression: num(42), Span: sp()}
	chunk = compileProgram(t, program(exp, exprStmt(num(0))))
	assertDisasmContains(t, chunk, "EXPORT_VALUE")
}

func letDeclOf(name string) *ast.VariableDeclaration {
	return &ast.VariableDeclaration{
		Kind: ast.KindLet,
		Declarations: []*ast.VariableDeclarator{
			{ID: &ast.IdentifierPattern{Name: name, Span: sp()}, Span: sp()},
		},
		Span: sp(),
	}
}

func strPtr(s string) *string { return &s }
