package vm

import (
	"github.com/josedab/quicksilver/internal/ast"
)

// compileStatement lowers a single statement. Statements leave nothing on
// the stack.
func (c *Compiler) compileStatement(stmt ast.Statement) error {
	c.setLocation(stmt.GetSpan())

	switch s := stmt.(type) {
	case *ast.BlockStatement:
		return c.compileBlock(s)
	case *ast.EmptyStatement:
		return nil
	case *ast.ExpressionStatement:
		if err := c.compileExpr(s.Expression); err != nil {
			return err
		}
		c.emit(OP_POP)
		return nil
	case *ast.VariableDeclaration:
		return c.compileVarDecl(s)
	case *ast.Function:
		return c.compileFunctionDecl(s)
	case *ast.IfStatement:
		return c.compileIf(s)
	case *ast.WhileStatement:
		return c.compileWhile(s)
	case *ast.DoWhileStatement:
		return c.compileDoWhile(s)
	case *ast.ForStatement:
		return c.compileFor(s)
	case *ast.ForInStatement:
		return c.compileForIn(s)
	case *ast.ForOfStatement:
		return c.compileForOf(s)
	case *ast.BreakStatement:
		return c.compileBreak(s)
	case *ast.ContinueStatement:
		return c.compileContinue(s)
	case *ast.ReturnStatement:
		return c.compileReturn(s)
	case *ast.ThrowStatement:
		return c.compileThrow(s)
	case *ast.TryStatement:
		return c.compileTry(s)
	case *ast.SwitchStatement:
		return c.compileSwitch(s)
	case *ast.DebuggerStatement:
		return nil
	case *ast.Class:
		return c.compileClassDecl(s)
	case *ast.ImportDeclaration:
		return c.compileImport(s)
	case *ast.ExportDeclaration:
		return c.compileExport(s)
	case *ast.LabeledStatement:
		// Labels are not yet routed to break/continue targets; the body
		// still compiles.
		return c.compileStatement(s.Body)
	case *ast.WithStatement:
		// `with` scoping is not supported; compile the body as-is.
		return c.compileStatement(s.Body)
	default:
		return nil
	}
}

func (c *Compiler) compileBlock(block *ast.BlockStatement) error {
	c.beginScope()
	for _, stmt := range block.Body {
		if err := c.compileStatement(stmt); err != nil {
			return err
		}
	}
	c.endScope()
	return nil
}

func (c *Compiler) compileVarDecl(decl *ast.VariableDeclaration) error {
	isVar := decl.Kind == ast.KindVar

	for _, declarator := range decl.Declarations {
		switch pat := declarator.ID.(type) {
		case *ast.IdentifierPattern:
			if isVar {
				// Hoisted earlier; only the initializer runs here.
				if declarator.Init == nil {
					continue
				}
				if err := c.compileExpr(declarator.Init); err != nil {
					return err
				}
				if c.scopeDepth > 0 {
					if slot, ok := c.resolveLocal(pat.Name); ok {
						c.emit(OP_SET_LOCAL)
						c.emitByte(slot)
						c.emit(OP_POP)
					} else {
						// Top-level block: the name was hoisted as a global.
						c.emit(OP_SET_GLOBAL)
						c.emitU16(c.nameConstant(pat.Name))
						c.emit(OP_POP)
					}
				} else {
					c.emit(OP_SET_GLOBAL)
					c.emitU16(c.nameConstant(pat.Name))
					c.emit(OP_POP)
				}
				continue
			}

			// let / const bind at their slot in declaration order.
			if declarator.Init != nil {
				if err := c.compileExpr(declarator.Init); err != nil {
					return err
				}
			} else {
				c.emit(OP_UNDEFINED)
			}
			if c.scopeDepth > 0 {
				if _, err := c.addLocal(pat.Name); err != nil {
					return err
				}
			} else {
				c.emit(OP_DEFINE_GLOBAL)
				c.emitU16(c.nameConstant(pat.Name))
			}

		case *ast.ArrayPattern:
			if declarator.Init != nil {
				if err := c.compileExpr(declarator.Init); err != nil {
					return err
				}
			} else {
				c.emit(OP_UNDEFINED)
			}
			for idx, elem := range pat.Elements {
				if elem == nil {
					continue
				}
				c.emit(OP_DUP)
				c.emitConstant(NumberVal(float64(idx)))
				c.emit(OP_GET_ELEMENT)
				if err := c.compilePatternBinding(elem); err != nil {
					return err
				}
			}
			c.emit(OP_POP)

		case *ast.ObjectPattern:
			if declarator.Init != nil {
				if err := c.compileExpr(declarator.Init); err != nil {
					return err
				}
			} else {
				c.emit(OP_UNDEFINED)
			}
			for _, prop := range pat.Properties {
				if prop.Rest || prop.Key == nil {
					continue
				}
				name, ok := propertyKeyName(*prop.Key)
				if !ok {
					continue
				}
				c.emit(OP_DUP)
				c.emit(OP_GET_PROPERTY)
				c.emitU16(c.nameConstant(name))
				if err := c.compilePatternBinding(prop.Value); err != nil {
					return err
				}
			}
			c.emit(OP_POP)

		default:
			// Rest and assignment at declarator level: evaluate and discard.
			if declarator.Init != nil {
				if err := c.compileExpr(declarator.Init); err != nil {
					return err
				}
			} else {
				c.emit(OP_UNDEFINED)
			}
			c.emit(OP_POP)
		}
	}
	return nil
}

// compilePatternBinding consumes the value on top of the stack and declares
// fresh bindings for it.
func (c *Compiler) compilePatternBinding(pattern ast.Pattern) error {
	switch p := pattern.(type) {
	case *ast.IdentifierPattern:
		if c.scopeDepth > 0 {
			_, err := c.addLocal(p.Name)
			return err
		}
		c.emit(OP_DEFINE_GLOBAL)
		c.emitU16(c.nameConstant(p.Name))
		return nil

	case *ast.ArrayPattern:
		for idx, elem := range p.Elements {
			if elem == nil {
				continue
			}
			c.emit(OP_DUP)
			c.emitConstant(NumberVal(float64(idx)))
			c.emit(OP_GET_ELEMENT)
			if err := c.compilePatternBinding(elem); err != nil {
				return err
			}
		}
		c.emit(OP_POP)
		return nil

	case *ast.ObjectPattern:
		for _, prop := range p.Properties {
			if prop.Rest || prop.Key == nil {
				continue
			}
			name, ok := propertyKeyName(*prop.Key)
			if !ok {
				continue
			}
			c.emit(OP_DUP)
			c.emit(OP_GET_PROPERTY)
			c.emitU16(c.nameConstant(name))
			if err := c.compilePatternBinding(prop.Value); err != nil {
				return err
			}
		}
		c.emit(OP_POP)
		return nil

	case *ast.AssignmentPattern:
		// Apply the default when the value is undefined.
		c.emit(OP_DUP)
		c.emit(OP_UNDEFINED)
		c.emit(OP_STRICT_EQ)
		useValue := c.emitJump(OP_JUMP_IF_FALSE)

		c.emit(OP_POP) // comparison result
		c.emit(OP_POP) // the undefined value
		if err := c.compileExpr(p.Right); err != nil {
			return err
		}
		end := c.emitJump(OP_JUMP)

		c.patchJump(useValue)
		c.emit(OP_POP) // comparison result

		c.patchJump(end)
		return c.compilePatternBinding(p.Left)

	default:
		// Rest patterns in bindings are not yet supported.
		c.emit(OP_POP)
		return nil
	}
}

// compilePatternAssignment consumes the value on top of the stack and
// assigns it to already-existing targets.
func (c *Compiler) compilePatternAssignment(pattern ast.Pattern) error {
	switch p := pattern.(type) {
	case *ast.IdentifierPattern:
		if slot, ok := c.resolveLocal(p.Name); ok {
			c.emit(OP_SET_LOCAL)
			c.emitByte(slot)
		} else {
			c.emit(OP_SET_GLOBAL)
			c.emitU16(c.nameConstant(p.Name))
		}
		// SET_LOCAL / SET_GLOBAL peek rather than pop.
		c.emit(OP_POP)
		return nil

	case *ast.ArrayPattern:
		for idx, elem := range p.Elements {
			if elem == nil {
				continue
			}
			c.emit(OP_DUP)
			c.emitConstant(NumberVal(float64(idx)))
			c.emit(OP_GET_ELEMENT)
			if err := c.compilePatternAssignment(elem); err != nil {
				return err
			}
		}
		c.emit(OP_POP)
		return nil

	case *ast.ObjectPattern:
		for _, prop := range p.Properties {
			if prop.Rest || prop.Key == nil {
				continue
			}
			name, ok := propertyKeyName(*prop.Key)
			if !ok {
				continue
			}
			c.emit(OP_DUP)
			c.emit(OP_GET_PROPERTY)
			c.emitU16(c.nameConstant(name))
			if err := c.compilePatternAssignment(prop.Value); err != nil {
				return err
			}
		}
		c.emit(OP_POP)
		return nil

	case *ast.AssignmentPattern:
		c.emit(OP_DUP)
		c.emit(OP_UNDEFINED)
		c.emit(OP_STRICT_EQ)
		useValue := c.emitJump(OP_JUMP_IF_FALSE)

		c.emit(OP_POP)
		c.emit(OP_POP)
		if err := c.compileExpr(p.Right); err != nil {
			return err
		}
		end := c.emitJump(OP_JUMP)

		c.patchJump(useValue)
		c.emit(OP_POP)

		c.patchJump(end)
		return c.compilePatternAssignment(p.Left)

	case *ast.MemberPattern:
		member := p.Member
		// Value is on the stack; evaluate the object, then store.
		if err := c.compileExpr(member.Object); err != nil {
			return err
		}
		c.emit(OP_SWAP) // [value, obj] -> [obj, value]
		switch {
		case member.Property.Identifier != nil:
			c.emit(OP_SET_PROPERTY)
			c.emitU16(c.nameConstant(member.Property.Identifier.Name))
			c.emit(OP_POP)
		case member.Property.Expression != nil:
			// The key evaluates after the object here; side-effect ordering
			// between the two is the documented policy for destructuring
			// member targets.
			if err := c.compileExpr(member.Property.Expression); err != nil {
				return err
			}
			c.emit(OP_SWAP) // [obj, value, key] -> [obj, key, value]
			c.emit(OP_SET_ELEMENT)
			c.emit(OP_POP)
		case member.Property.Private != nil:
			c.emit(OP_SET_PRIVATE_FIELD)
			c.emitU16(c.nameConstant("#" + *member.Property.Private))
			c.emit(OP_POP)
		}
		return nil

	default:
		// Rest patterns in assignments are not yet supported.
		c.emit(OP_POP)
		return nil
	}
}

// ===== Functions =====

func (c *Compiler) compileFunctionDecl(fn *ast.Function) error {
	compiled, err := c.compileFunctionBody(fn)
	if err != nil {
		return err
	}

	idx := c.chunk.AddConstant(ObjVal(NewFunctionObject(compiled, fn.IsAsync, fn.IsGenerator)))
	c.emit(OP_CREATE_FUNCTION)
	c.emitU16(uint16(idx))

	if fn.ID != nil {
		if c.scopeDepth > 0 {
			if _, err := c.addLocal(fn.ID.Name); err != nil {
				return err
			}
		} else {
			c.emit(OP_DEFINE_GLOBAL)
			c.emitU16(c.nameConstant(fn.ID.Name))
		}
	}
	return nil
}

// compileFunctionBody lowers a function into its own chunk using a fresh
// compiler at scope depth 1. Default parameter values evaluate left to
// right, in a scope that sees earlier parameters.
func (c *Compiler) compileFunctionBody(fn *ast.Function) (*CompiledFunction, error) {
	inner := NewCompilerWithSource(c.sourceFile)
	inner.inFunction = true
	inner.scopeDepth = 1

	type defaultParam struct {
		slot int
		expr ast.Expression
	}
	var defaults []defaultParam

	for idx, param := range fn.Params.Params {
		switch p := param.(type) {
		case *ast.IdentifierPattern:
			if _, err := inner.addLocal(p.Name); err != nil {
				return nil, err
			}
		case *ast.AssignmentPattern:
			if id, ok := p.Left.(*ast.IdentifierPattern); ok {
				if _, err := inner.addLocal(id.Name); err != nil {
					return nil, err
				}
				defaults = append(defaults, defaultParam{slot: idx, expr: p.Right})
			}
		}
	}

	if fn.Params.Rest != nil {
		if id, ok := fn.Params.Rest.(*ast.IdentifierPattern); ok {
			if _, err := inner.addLocal(id.Name); err != nil {
				return nil, err
			}
			inner.chunk.HasRestParam = true
		}
	}

	inner.chunk.ParamCount = uint8(len(fn.Params.Params))
	inner.chunk.IsAsync = fn.IsAsync
	inner.chunk.IsGenerator = fn.IsGenerator

	// Default parameters: assign when the incoming value is undefined.
	for _, dp := range defaults {
		inner.emit(OP_GET_LOCAL)
		inner.emitByte(uint8(dp.slot))
		inner.emit(OP_UNDEFINED)
		inner.emit(OP_STRICT_EQ)

		skip := inner.emitJump(OP_JUMP_IF_FALSE)
		inner.emit(OP_POP)

		if err := inner.compileExpr(dp.expr); err != nil {
			return nil, err
		}
		inner.emit(OP_SET_LOCAL)
		inner.emitByte(uint8(dp.slot))
		inner.emit(OP_POP)

		end := inner.emitJump(OP_JUMP)
		inner.patchJump(skip)
		inner.emit(OP_POP)
		inner.patchJump(end)
	}

	if fn.Body.Block != nil {
		if err := inner.hoistFunctionDeclarations(collectFunctionDeclarations(fn.Body.Block.Body)); err != nil {
			return nil, err
		}
		if err := inner.hoistVarDeclarations(collectVarDeclarations(fn.Body.Block.Body)); err != nil {
			return nil, err
		}
		for _, stmt := range fn.Body.Block.Body {
			if _, ok := stmt.(*ast.Function); ok {
				continue
			}
			if err := inner.compileStatement(stmt); err != nil {
				return nil, err
			}
		}
	} else if fn.Body.Expr != nil {
		if err := inner.compileExpr(fn.Body.Expr); err != nil {
			return nil, err
		}
		inner.emit(OP_RETURN)
	}

	// Fall through to returning undefined.
	inner.emit(OP_RETURN_UNDEFINED)

	name := ""
	if fn.ID != nil {
		name = fn.ID.Name
	}
	return NewCompiledFunction(name, inner.chunk), nil
}

// ===== Control statements =====

func (c *Compiler) compileIf(stmt *ast.IfStatement) error {
	if err := c.compileExpr(stmt.Test); err != nil {
		return err
	}

	thenJump := c.emitJump(OP_JUMP_IF_FALSE)
	c.emit(OP_POP)

	if err := c.compileStatement(stmt.Consequent); err != nil {
		return err
	}

	if stmt.Alternate != nil {
		elseJump := c.emitJump(OP_JUMP)
		c.patchJump(thenJump)
		c.emit(OP_POP)
		if err := c.compileStatement(stmt.Alternate); err != nil {
			return err
		}
		c.patchJump(elseJump)
	} else {
		c.patchJump(thenJump)
		c.emit(OP_POP)
	}
	return nil
}

func (c *Compiler) compileReturn(stmt *ast.ReturnStatement) error {
	if stmt.Argument == nil {
		c.emit(OP_RETURN_UNDEFINED)
		return nil
	}

	// Tail-call optimization: `return f(args)` for simple calls.
	if call, ok := stmt.Argument.(*ast.CallExpression); ok && !call.Optional {
		_, isSuper := call.Callee.(*ast.SuperExpression)
		_, isMember := call.Callee.(*ast.MemberExpression)
		if !isSuper && !isMember {
			if err := c.compileExpr(call.Callee); err != nil {
				return err
			}
			for _, arg := range call.Arguments {
				if spread, ok := arg.(*ast.SpreadElement); ok {
					if err := c.compileExpr(spread.Argument); err != nil {
						return err
					}
					c.emit(OP_SPREAD)
				} else if err := c.compileExpr(arg); err != nil {
					return err
				}
			}
			c.emit(OP_TAIL_CALL)
			c.emitByte(argCount(call.Arguments))
			c.emit(OP_RETURN)
			return nil
		}
	}

	if err := c.compileExpr(stmt.Argument); err != nil {
		return err
	}
	c.emit(OP_RETURN)
	return nil
}

func (c *Compiler) compileThrow(stmt *ast.ThrowStatement) error {
	if err := c.compileExpr(stmt.Argument); err != nil {
		return err
	}
	c.emit(OP_THROW)
	return nil
}

// compileTry lowers try/catch/finally. The finalizer runs inline on the
// normal control path only; full finally semantics (run on return/throw)
// need a cleanup stack and are future work.
func (c *Compiler) compileTry(stmt *ast.TryStatement) error {
	tryStart := c.emitJump(OP_ENTER_TRY)

	if err := c.compileBlock(stmt.Block); err != nil {
		return err
	}
	c.emit(OP_LEAVE_TRY)
	tryEnd := c.emitJump(OP_JUMP)

	// Catch: the thrown value is on the stack when the handler is entered.
	c.patchJump(tryStart)
	if stmt.Handler != nil {
		c.beginScope()
		if stmt.Handler.Param != nil {
			if id, ok := stmt.Handler.Param.(*ast.IdentifierPattern); ok {
				if _, err := c.addLocal(id.Name); err != nil {
					return err
				}
			}
		} else {
			c.emit(OP_POP)
		}
		if err := c.compileBlock(stmt.Handler.Body); err != nil {
			return err
		}
		c.endScope()
	}

	c.patchJump(tryEnd)

	if stmt.Finalizer != nil {
		if err := c.compileBlock(stmt.Finalizer); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compiler) compileSwitch(stmt *ast.SwitchStatement) error {
	if err := c.compileExpr(stmt.Discriminant); err != nil {
		return err
	}

	var caseJumps []int
	for _, cs := range stmt.Cases {
		if cs.Test == nil {
			continue
		}
		c.emit(OP_DUP)
		if err := c.compileExpr(cs.Test); err != nil {
			return err
		}
		c.emit(OP_STRICT_EQ)
		caseJumps = append(caseJumps, c.emitJump(OP_JUMP_IF_TRUE))
		c.emit(OP_POP)
	}

	// No test matched: jump over every body (default handling is the
	// source-order fallthrough below).
	endJump := c.emitJump(OP_JUMP)

	// Bodies fall through in source order.
	jumpIdx := 0
	for _, cs := range stmt.Cases {
		if cs.Test != nil {
			c.patchJump(caseJumps[jumpIdx])
			jumpIdx++
			c.emit(OP_POP)
		}
		for _, inner := range cs.Consequent {
			if err := c.compileStatement(inner); err != nil {
				return err
			}
		}
	}

	c.patchJump(endJump)
	c.emit(OP_POP) // discriminant
	return nil
}

// propertyKeyName resolves a non-computed property key to its string form.
func propertyKeyName(key ast.PropertyKey) (string, bool) {
	switch {
	case key.Identifier != nil:
		return key.Identifier.Name, true
	case key.String != nil:
		return *key.String, true
	case key.Number != nil:
		return NumberToString(*key.Number), true
	case key.Private != nil:
		return *key.Private, true
	}
	return "", false
}

func argCount(args []ast.Expression) uint8 {
	n := len(args)
	if n > 255 {
		n = 255
	}
	return uint8(n)
}
