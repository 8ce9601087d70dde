package vm

import (
	"fmt"

	"github.com/josedab/quicksilver/internal/ast"
)

// compileExpr lowers an expression. Every expression pushes exactly one
// value onto the stack.
func (c *Compiler) compileExpr(expr ast.Expression) error {
	c.setLocation(expr.GetSpan())

	switch e := expr.(type) {
	case *ast.Literal:
		return c.compileLiteral(e)
	case *ast.Identifier:
		return c.compileIdentifier(e)
	case *ast.ThisExpression:
		c.emit(OP_THIS)
		return nil
	case *ast.SuperExpression:
		c.emit(OP_SUPER)
		return nil
	case *ast.ArrayExpression:
		return c.compileArray(e)
	case *ast.ObjectExpression:
		return c.compileObject(e)
	case *ast.Function:
		return c.compileFunctionExpr(e)
	case *ast.Class:
		return c.compileClassExpr(e)
	case *ast.MemberExpression:
		return c.compileMember(e)
	case *ast.CallExpression:
		return c.compileCall(e)
	case *ast.NewExpression:
		return c.compileNew(e)
	case *ast.UnaryExpression:
		return c.compileUnary(e)
	case *ast.UpdateExpression:
		return c.compileUpdate(e)
	case *ast.BinaryExpression:
		return c.compileBinary(e)
	case *ast.LogicalExpression:
		return c.compileLogical(e)
	case *ast.AssignmentExpression:
		return c.compileAssignment(e)
	case *ast.ConditionalExpression:
		return c.compileConditional(e)
	case *ast.SequenceExpression:
		return c.compileSequence(e)
	case *ast.ParenthesizedExpression:
		return c.compileExpr(e.Expression)
	case *ast.AwaitExpression:
		if err := c.compileExpr(e.Argument); err != nil {
			return err
		}
		c.emit(OP_AWAIT)
		return nil
	case *ast.YieldExpression:
		if e.Argument != nil {
			if err := c.compileExpr(e.Argument); err != nil {
				return err
			}
		} else {
			c.emit(OP_UNDEFINED)
		}
		c.emit(OP_YIELD)
		return nil
	case *ast.TemplateLiteral:
		return c.compileTemplateLiteral(e)
	case *ast.TaggedTemplate:
		// Tagged templates lower as a call of the tag with the cooked quasi.
		if err := c.compileExpr(e.Tag); err != nil {
			return err
		}
		if err := c.compileTemplateLiteral(e.Quasi); err != nil {
			return err
		}
		c.emit(OP_CALL)
		c.emitByte(1)
		return nil
	case *ast.ImportExpression:
		if err := c.compileExpr(e.Source); err != nil {
			return err
		}
		c.emit(OP_DYNAMIC_IMPORT)
		return nil
	case *ast.PerformExpression:
		return c.compilePerform(e)
	case *ast.MatchExpression:
		return c.compileMatchExpr(e)
	case *ast.PipelineExpression:
		// a |> f desugars to f(a).
		if err := c.compileExpr(e.Left); err != nil {
			return err
		}
		if err := c.compileExpr(e.Right); err != nil {
			return err
		}
		c.emit(OP_SWAP)
		c.emit(OP_CALL)
		c.emitByte(1)
		return nil
	case *ast.SpreadElement:
		if err := c.compileExpr(e.Argument); err != nil {
			return err
		}
		c.emit(OP_SPREAD)
		return nil
	case *ast.MetaProperty:
		// new.target / import.meta are parsed but not lowered.
		c.emit(OP_UNDEFINED)
		return nil
	default:
		c.emit(OP_UNDEFINED)
		return nil
	}
}

func (c *Compiler) compileLiteral(lit *ast.Literal) error {
	v := lit.Value
	switch {
	case v.Null:
		c.emit(OP_NULL)
	case v.Boolean != nil:
		if *v.Boolean {
			c.emit(OP_TRUE)
		} else {
			c.emit(OP_FALSE)
		}
	case v.Number != nil:
		c.emitConstant(NumberVal(*v.Number))
	case v.String != nil:
		c.emitConstant(StringVal(*v.String))
	case v.BigInt != nil:
		if bi, ok := NewBigInt(*v.BigInt); ok {
			c.emitConstant(bi)
		} else {
			zero, _ := NewBigInt("0")
			c.emitConstant(zero)
		}
	case v.Regex != nil:
		// Regex literals carry their source form; construction is a host
		// concern.
		c.emitConstant(StringVal(fmt.Sprintf("/%s/%s", v.Regex.Pattern, v.Regex.Flags)))
	default:
		c.emit(OP_UNDEFINED)
	}
	return nil
}

// compileIdentifier resolves local slot, then upvalue, then global.
func (c *Compiler) compileIdentifier(id *ast.Identifier) error {
	if slot, ok := c.resolveLocal(id.Name); ok {
		c.emit(OP_GET_LOCAL)
		c.emitByte(slot)
		return nil
	}
	if slot, ok := c.resolveUpvalue(id.Name); ok {
		c.emit(OP_GET_UPVALUE)
		c.emitU16(uint16(slot))
		return nil
	}
	c.emit(OP_GET_GLOBAL)
	c.emitU16(c.nameConstant(id.Name))
	return nil
}

func (c *Compiler) compileArray(arr *ast.ArrayExpression) error {
	for _, elem := range arr.Elements {
		if elem == nil {
			// Array hole.
			c.emit(OP_UNDEFINED)
			continue
		}
		if spread, ok := elem.(*ast.SpreadElement); ok {
			if err := c.compileExpr(spread.Argument); err != nil {
				return err
			}
			c.emit(OP_SPREAD)
			continue
		}
		if err := c.compileExpr(elem); err != nil {
			return err
		}
	}
	c.emit(OP_CREATE_ARRAY)
	c.emitByte(uint8(min(len(arr.Elements), 255)))
	return nil
}

func (c *Compiler) compileObject(obj *ast.ObjectExpression) error {
	c.emit(OP_CREATE_OBJECT)
	c.emitByte(uint8(min(len(obj.Properties), 255)))

	for _, prop := range obj.Properties {
		if prop.Spread != nil {
			if err := c.compileExpr(prop.Spread); err != nil {
				return err
			}
			c.emit(OP_SPREAD)
			continue
		}

		// Push key.
		switch {
		case prop.Key.Identifier != nil:
			c.emitConstant(StringVal(prop.Key.Identifier.Name))
		case prop.Key.String != nil:
			c.emitConstant(StringVal(*prop.Key.String))
		case prop.Key.Number != nil:
			c.emitConstant(NumberVal(*prop.Key.Number))
		case prop.Key.Computed != nil:
			if err := c.compileExpr(prop.Key.Computed); err != nil {
				return err
			}
		case prop.Key.Private != nil:
			c.emitConstant(StringVal(*prop.Key.Private))
		}

		// Push value.
		if prop.Method != nil {
			compiled, err := c.compileFunctionBody(prop.Method)
			if err != nil {
				return err
			}
			idx := c.chunk.AddConstant(ObjVal(NewFunctionObject(compiled, prop.Method.IsAsync, prop.Method.IsGenerator)))
			c.emit(OP_CREATE_FUNCTION)
			c.emitU16(uint16(idx))
		} else if err := c.compileExpr(prop.Value); err != nil {
			return err
		}

		c.emit(OP_DEFINE_PROPERTY)
		c.emitU16(0)
	}
	return nil
}

func (c *Compiler) compileFunctionExpr(fn *ast.Function) error {
	compiled, err := c.compileFunctionBody(fn)
	if err != nil {
		return err
	}
	idx := c.chunk.AddConstant(ObjVal(NewFunctionObject(compiled, fn.IsAsync, fn.IsGenerator)))
	c.emit(OP_CREATE_FUNCTION)
	c.emitU16(uint16(idx))
	return nil
}

// compileMember lowers obj.prop / obj[expr] / obj.#priv, short-circuiting
// optional access with JUMP_IF_NULL.
func (c *Compiler) compileMember(member *ast.MemberExpression) error {
	if err := c.compileExpr(member.Object); err != nil {
		return err
	}

	if member.Optional {
		skip := c.emitJump(OP_JUMP_IF_NULL)
		if err := c.compileMemberAccess(member); err != nil {
			return err
		}
		c.patchJump(skip)
		return nil
	}
	return c.compileMemberAccess(member)
}

func (c *Compiler) compileMemberAccess(member *ast.MemberExpression) error {
	switch {
	case member.Property.Identifier != nil:
		c.emit(OP_GET_PROPERTY)
		c.emitU16(c.nameConstant(member.Property.Identifier.Name))
	case member.Property.Expression != nil:
		if err := c.compileExpr(member.Property.Expression); err != nil {
			return err
		}
		c.emit(OP_GET_ELEMENT)
	case member.Property.Private != nil:
		c.emit(OP_GET_PRIVATE_FIELD)
		c.emitU16(c.nameConstant("#" + *member.Property.Private))
	}
	return nil
}

func (c *Compiler) compileCall(call *ast.CallExpression) error {
	// super(...) has its own opcode.
	if _, ok := call.Callee.(*ast.SuperExpression); ok {
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
		c.emit(OP_SUPER_CALL)
		c.emitByte(argCount(call.Arguments))
		return nil
	}

	// Method calls keep the receiver via CALL_METHOD.
	if member, ok := call.Callee.(*ast.MemberExpression); ok {
		if err := c.compileExpr(member.Object); err != nil {
			return err
		}
		if call.Optional || member.Optional {
			skip := c.emitJump(OP_JUMP_IF_NULL)
			if err := c.compileMethodCall(member, call); err != nil {
				return err
			}
			c.patchJump(skip)
			return nil
		}
		return c.compileMethodCall(member, call)
	}

	// Plain call.
	if err := c.compileExpr(call.Callee); err != nil {
		return err
	}
	if call.Optional {
		skip := c.emitJump(OP_JUMP_IF_NULL)
		if err := c.compileCallArgs(call); err != nil {
			return err
		}
		c.patchJump(skip)
		return nil
	}
	return c.compileCallArgs(call)
}

// compileMethodCall emits arguments then the method dispatch; the receiver
// is already on the stack.
func (c *Compiler) compileMethodCall(member *ast.MemberExpression, call *ast.CallExpression) error {
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

	count := argCount(call.Arguments)
	switch {
	case member.Property.Identifier != nil:
		// A single atomic opcode preserves `this`.
		c.emit(OP_CALL_METHOD)
		c.emitU16(c.nameConstant(member.Property.Identifier.Name))
		c.emitByte(count)
	case member.Property.Expression != nil:
		// Computed method calls fall back to GET_ELEMENT + CALL.
		if err := c.compileExpr(member.Property.Expression); err != nil {
			return err
		}
		c.emit(OP_GET_ELEMENT)
		c.emit(OP_CALL)
		c.emitByte(count)
	case member.Property.Private != nil:
		c.emit(OP_GET_PRIVATE_FIELD)
		c.emitU16(c.nameConstant("#" + *member.Property.Private))
		c.emit(OP_CALL)
		c.emitByte(count)
	}
	return nil
}

func (c *Compiler) compileCallArgs(call *ast.CallExpression) error {
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
	c.emit(OP_CALL)
	c.emitByte(argCount(call.Arguments))
	return nil
}

func (c *Compiler) compileNew(expr *ast.NewExpression) error {
	if err := c.compileExpr(expr.Callee); err != nil {
		return err
	}
	for _, arg := range expr.Arguments {
		if err := c.compileExpr(arg); err != nil {
			return err
		}
	}
	c.emit(OP_NEW)
	c.emitByte(argCount(expr.Arguments))
	return nil
}

func (c *Compiler) compileUnary(unary *ast.UnaryExpression) error {
	// delete obj.prop / delete obj[key] carry the target, not its value.
	if unary.Operator == ast.UnaryDelete {
		if member, ok := unary.Argument.(*ast.MemberExpression); ok {
			if err := c.compileExpr(member.Object); err != nil {
				return err
			}
			switch {
			case member.Property.Identifier != nil:
				c.emit(OP_DELETE_PROPERTY)
				c.emitU16(c.nameConstant(member.Property.Identifier.Name))
			case member.Property.Expression != nil:
				if err := c.compileExpr(member.Property.Expression); err != nil {
					return err
				}
				c.emit(OP_DELETE)
			default:
				c.emit(OP_DELETE)
			}
			return nil
		}
	}

	// typeof <unresolved identifier> must not throw ReferenceError.
	if unary.Operator == ast.UnaryTypeof {
		if id, ok := unary.Argument.(*ast.Identifier); ok {
			if _, isLocal := c.resolveLocal(id.Name); !isLocal {
				c.emit(OP_TRY_GET_GLOBAL)
				c.emitU16(c.nameConstant(id.Name))
				c.emit(OP_TYPEOF)
				return nil
			}
		}
	}

	if err := c.compileExpr(unary.Argument); err != nil {
		return err
	}

	switch unary.Operator {
	case ast.UnaryMinus:
		c.emit(OP_NEG)
	case ast.UnaryPlus:
		// Unary plus converts to number; the arithmetic opcodes coerce, so
		// this is a no-op at this layer.
	case ast.UnaryNot:
		c.emit(OP_NOT)
	case ast.UnaryBitwiseNot:
		c.emit(OP_BITWISE_NOT)
	case ast.UnaryTypeof:
		c.emit(OP_TYPEOF)
	case ast.UnaryVoid:
		c.emit(OP_VOID)
	case ast.UnaryDelete:
		c.emit(OP_DELETE)
	}
	return nil
}

func (c *Compiler) emitUpdateOp(op ast.UpdateOperator) {
	if op == ast.UpdateIncrement {
		c.emit(OP_INCREMENT)
	} else {
		c.emit(OP_DECREMENT)
	}
}

func (c *Compiler) compileUpdate(update *ast.UpdateExpression) error {
	switch target := update.Argument.(type) {
	case *ast.Identifier:
		if slot, ok := c.resolveLocal(target.Name); ok {
			c.emit(OP_GET_LOCAL)
			c.emitByte(slot)
			if !update.Prefix {
				c.emit(OP_DUP)
			}
			c.emitUpdateOp(update.Operator)
			if update.Prefix {
				c.emit(OP_DUP)
			}
			c.emit(OP_SET_LOCAL)
			c.emitByte(slot)
			c.emit(OP_POP)
			return nil
		}

		nameIdx := c.nameConstant(target.Name)
		c.emit(OP_GET_GLOBAL)
		c.emitU16(nameIdx)
		if !update.Prefix {
			c.emit(OP_DUP)
		}
		c.emitUpdateOp(update.Operator)
		if update.Prefix {
			c.emit(OP_DUP)
		}
		c.emit(OP_SET_GLOBAL)
		c.emitU16(nameIdx)
		c.emit(OP_POP)
		return nil

	case *ast.MemberExpression:
		return c.compileMemberUpdate(target, update)

	default:
		// Fallback: evaluate and apply without a store.
		if err := c.compileExpr(update.Argument); err != nil {
			return err
		}
		c.emitUpdateOp(update.Operator)
		return nil
	}
}

// compileMemberUpdate lowers obj.x++ and friends. The object (and computed
// key) may evaluate more than once; callers must not use side-effecting
// targets with update expressions.
func (c *Compiler) compileMemberUpdate(member *ast.MemberExpression, update *ast.UpdateExpression) error {
	switch {
	case member.Property.Identifier != nil:
		nameIdx := c.nameConstant(member.Property.Identifier.Name)
		if update.Prefix {
			// [obj] -> [obj, value] -> [obj, new] -> SET_PROPERTY -> [new]
			if err := c.compileExpr(member.Object); err != nil {
				return err
			}
			c.emit(OP_DUP)
			c.emit(OP_GET_PROPERTY)
			c.emitU16(nameIdx)
			c.emitUpdateOp(update.Operator)
			c.emit(OP_SET_PROPERTY)
			c.emitU16(nameIdx)
			return nil
		}
		// Postfix keeps the original value below the store.
		if err := c.compileExpr(member.Object); err != nil {
			return err
		}
		c.emit(OP_GET_PROPERTY)
		c.emitU16(nameIdx)
		c.emit(OP_DUP)
		c.emitUpdateOp(update.Operator)
		if err := c.compileExpr(member.Object); err != nil {
			return err
		}
		c.emit(OP_SWAP)
		c.emit(OP_SET_PROPERTY)
		c.emitU16(nameIdx)
		c.emit(OP_POP)
		return nil

	case member.Property.Expression != nil:
		key := member.Property.Expression
		if update.Prefix {
			if err := c.compileExpr(member.Object); err != nil {
				return err
			}
			c.emit(OP_DUP)
			if err := c.compileExpr(key); err != nil {
				return err
			}
			c.emit(OP_GET_ELEMENT)
			c.emitUpdateOp(update.Operator)
			// SET_ELEMENT expects [obj, key, value]; the key re-evaluates.
			if err := c.compileExpr(key); err != nil {
				return err
			}
			c.emit(OP_SWAP)
			c.emit(OP_SET_ELEMENT)
			return nil
		}
		// Postfix: read the original, then store the incremented copy.
		if err := c.compileExpr(member.Object); err != nil {
			return err
		}
		if err := c.compileExpr(key); err != nil {
			return err
		}
		c.emit(OP_GET_ELEMENT)

		if err := c.compileExpr(member.Object); err != nil {
			return err
		}
		if err := c.compileExpr(key); err != nil {
			return err
		}
		if err := c.compileExpr(member.Object); err != nil {
			return err
		}
		if err := c.compileExpr(key); err != nil {
			return err
		}
		c.emit(OP_GET_ELEMENT)
		c.emitUpdateOp(update.Operator)
		c.emit(OP_SET_ELEMENT)
		c.emit(OP_POP)
		return nil

	case member.Property.Private != nil:
		nameIdx := c.nameConstant("#" + *member.Property.Private)
		if update.Prefix {
			if err := c.compileExpr(member.Object); err != nil {
				return err
			}
			c.emit(OP_DUP)
			c.emit(OP_GET_PRIVATE_FIELD)
			c.emitU16(nameIdx)
			c.emitUpdateOp(update.Operator)
			c.emit(OP_SET_PRIVATE_FIELD)
			c.emitU16(nameIdx)
			return nil
		}
		if err := c.compileExpr(member.Object); err != nil {
			return err
		}
		c.emit(OP_GET_PRIVATE_FIELD)
		c.emitU16(nameIdx)
		c.emit(OP_DUP)
		c.emitUpdateOp(update.Operator)
		if err := c.compileExpr(member.Object); err != nil {
			return err
		}
		c.emit(OP_SWAP)
		c.emit(OP_SET_PRIVATE_FIELD)
		c.emitU16(nameIdx)
		c.emit(OP_POP)
		return nil
	}
	return nil
}

func (c *Compiler) compileBinary(binary *ast.BinaryExpression) error {
	if err := c.compileExpr(binary.Left); err != nil {
		return err
	}
	if err := c.compileExpr(binary.Right); err != nil {
		return err
	}

	switch binary.Operator {
	case ast.BinaryAdd:
		c.emit(OP_ADD)
	case ast.BinarySub:
		c.emit(OP_SUB)
	case ast.BinaryMul:
		c.emit(OP_MUL)
	case ast.BinaryDiv:
		c.emit(OP_DIV)
	case ast.BinaryMod:
		c.emit(OP_MOD)
	case ast.BinaryPow:
		c.emit(OP_POW)
	case ast.BinaryEq:
		c.emit(OP_EQ)
	case ast.BinaryNe:
		c.emit(OP_NE)
	case ast.BinaryStrictEq:
		c.emit(OP_STRICT_EQ)
	case ast.BinaryStrictNe:
		c.emit(OP_STRICT_NE)
	case ast.BinaryLt:
		c.emit(OP_LT)
	case ast.BinaryLe:
		c.emit(OP_LE)
	case ast.BinaryGt:
		c.emit(OP_GT)
	case ast.BinaryGe:
		c.emit(OP_GE)
	case ast.BinaryShl:
		c.emit(OP_SHL)
	case ast.BinaryShr:
		c.emit(OP_SHR)
	case ast.BinaryUShr:
		c.emit(OP_USHR)
	case ast.BinaryBitwiseAnd:
		c.emit(OP_BITWISE_AND)
	case ast.BinaryBitwiseOr:
		c.emit(OP_BITWISE_OR)
	case ast.BinaryBitwiseXor:
		c.emit(OP_BITWISE_XOR)
	case ast.BinaryIn:
		c.emit(OP_IN)
	case ast.BinaryInstanceof:
		c.emit(OP_INSTANCEOF)
	}
	return nil
}

// compileLogical short-circuits, leaving the chosen operand on the stack.
func (c *Compiler) compileLogical(logical *ast.LogicalExpression) error {
	if err := c.compileExpr(logical.Left); err != nil {
		return err
	}

	var jump int
	switch logical.Operator {
	case ast.LogicalAnd:
		jump = c.emitJump(OP_JUMP_IF_FALSE)
	case ast.LogicalOr:
		jump = c.emitJump(OP_JUMP_IF_TRUE)
	case ast.LogicalNullish:
		jump = c.emitJump(OP_JUMP_IF_NOT_NULL)
	}
	c.emit(OP_POP)
	if err := c.compileExpr(logical.Right); err != nil {
		return err
	}
	c.patchJump(jump)
	return nil
}

func (c *Compiler) compileAssignment(assignment *ast.AssignmentExpression) error {
	if assignment.Left.Pattern != nil {
		// Destructuring assignment; the RHS value is the expression result.
		if err := c.compileExpr(assignment.Right); err != nil {
			return err
		}
		c.emit(OP_DUP)
		return c.compilePatternAssignment(assignment.Left.Pattern)
	}

	switch target := assignment.Left.Simple.(type) {
	case *ast.Identifier:
		if assignment.Operator != ast.Assign {
			if err := c.compileIdentifier(target); err != nil {
				return err
			}
		}
		if err := c.compileExpr(assignment.Right); err != nil {
			return err
		}
		c.emitCompoundOperator(assignment.Operator)

		// Keep the value on the stack as the assignment's result.
		c.emit(OP_DUP)
		if slot, ok := c.resolveLocal(target.Name); ok {
			c.emit(OP_SET_LOCAL)
			c.emitByte(slot)
		} else {
			c.emit(OP_SET_GLOBAL)
			c.emitU16(c.nameConstant(target.Name))
		}
		c.emit(OP_POP)
		return nil

	case *ast.MemberExpression:
		if err := c.compileExpr(target.Object); err != nil {
			return err
		}
		isCompound := assignment.Operator != ast.Assign

		switch {
		case target.Property.Identifier != nil:
			nameIdx := c.nameConstant(target.Property.Identifier.Name)
			if isCompound {
				c.emit(OP_DUP)
				c.emit(OP_GET_PROPERTY)
				c.emitU16(nameIdx)
			}
			if err := c.compileExpr(assignment.Right); err != nil {
				return err
			}
			if isCompound {
				c.emitCompoundOperator(assignment.Operator)
			}
			c.emit(OP_SET_PROPERTY)
			c.emitU16(nameIdx)

		case target.Property.Expression != nil:
			key := target.Property.Expression
			if isCompound {
				// obj[k] op= v re-evaluates the key; callers must not use
				// side-effecting keys in compound assignment.
				c.emit(OP_DUP)
				if err := c.compileExpr(key); err != nil {
					return err
				}
				c.emit(OP_GET_ELEMENT)
				if err := c.compileExpr(assignment.Right); err != nil {
					return err
				}
				c.emitCompoundOperator(assignment.Operator)
				if err := c.compileExpr(key); err != nil {
					return err
				}
				c.emit(OP_SWAP)
				c.emit(OP_SET_ELEMENT)
			} else {
				if err := c.compileExpr(key); err != nil {
					return err
				}
				if err := c.compileExpr(assignment.Right); err != nil {
					return err
				}
				c.emit(OP_SET_ELEMENT)
			}

		case target.Property.Private != nil:
			nameIdx := c.nameConstant("#" + *target.Property.Private)
			if isCompound {
				c.emit(OP_DUP)
				c.emit(OP_GET_PRIVATE_FIELD)
				c.emitU16(nameIdx)
			}
			if err := c.compileExpr(assignment.Right); err != nil {
				return err
			}
			if isCompound {
				c.emitCompoundOperator(assignment.Operator)
			}
			c.emit(OP_SET_PRIVATE_FIELD)
			c.emitU16(nameIdx)
		}
		return nil

	default:
		return c.compileExpr(assignment.Right)
	}
}

// compileConditional evaluates the test, branches, and re-merges with the
// chosen branch's value on the stack.
func (c *Compiler) compileConditional(cond *ast.ConditionalExpression) error {
	if err := c.compileExpr(cond.Test); err != nil {
		return err
	}

	elseJump := c.emitJump(OP_JUMP_IF_FALSE)
	c.emit(OP_POP)
	if err := c.compileExpr(cond.Consequent); err != nil {
		return err
	}
	endJump := c.emitJump(OP_JUMP)

	c.patchJump(elseJump)
	c.emit(OP_POP)
	if err := c.compileExpr(cond.Alternate); err != nil {
		return err
	}

	c.patchJump(endJump)
	return nil
}

func (c *Compiler) compileSequence(seq *ast.SequenceExpression) error {
	for i, expr := range seq.Expressions {
		if err := c.compileExpr(expr); err != nil {
			return err
		}
		if i < len(seq.Expressions)-1 {
			c.emit(OP_POP)
		}
	}
	return nil
}

// compileTemplateLiteral chains ADD over cooked quasis and expression
// values, left to right. The empty template yields an empty string.
func (c *Compiler) compileTemplateLiteral(template *ast.TemplateLiteral) error {
	first := true

	for i, quasi := range template.Quasis {
		if quasi.Cooked != "" {
			c.emitConstant(StringVal(quasi.Cooked))
			if !first {
				c.emit(OP_ADD)
			}
			first = false
		}
		if i < len(template.Expressions) {
			if err := c.compileExpr(template.Expressions[i]); err != nil {
				return err
			}
			if !first {
				c.emit(OP_ADD)
			}
			first = false
		}
	}

	if first {
		c.emitConstant(StringVal(""))
	}
	return nil
}

// compilePerform lowers `perform Effect.op(args)`. The interpreter
// dispatches to the innermost matching effect-handler frame.
func (c *Compiler) compilePerform(perform *ast.PerformExpression) error {
	for _, arg := range perform.Arguments {
		if err := c.compileExpr(arg); err != nil {
			return err
		}
	}
	effectIdx := c.nameConstant(perform.EffectType)
	opIdx := c.nameConstant(perform.Operation)
	c.emit(OP_PERFORM)
	c.emitU16(effectIdx)
	c.emitU16(opIdx)
	c.emitByte(uint8(min(len(perform.Arguments), 255)))
	return nil
}
