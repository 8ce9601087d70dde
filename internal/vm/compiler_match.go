package vm

import (
	"github.com/josedab/quicksilver/internal/ast"
)

// compileMatchExpr lowers a match expression. The discriminant stays on the
// stack while arms test against it. Wildcard, literal and or arms pop it with
// MATCH_END before their body runs; identifier, array, object and binding
// arms keep it under the body and drop it with SWAP/POP afterwards. A match
// with no matching arm yields undefined.
func (c *Compiler) compileMatchExpr(match *ast.MatchExpression) error {
	if err := c.compileExpr(match.Discriminant); err != nil {
		return err
	}

	var endJumps []int

	for _, arm := range match.Arms {
		var err error
		switch {
		case arm.Pattern.Wildcard || arm.Pattern.Rest:
			err = c.compileWildcardArm(arm, &endJumps)
		case arm.Pattern.Literal != nil:
			err = c.compileLiteralArm(arm, &endJumps)
		case arm.Pattern.Identifier != nil:
			err = c.compileIdentifierArm(arm, &endJumps)
		case len(arm.Pattern.Or) > 0:
			err = c.compileOrArm(arm, &endJumps)
		case arm.Pattern.Array != nil:
			err = c.compileArrayArm(arm, &endJumps)
		case arm.Pattern.Object != nil:
			err = c.compileObjectArm(arm, &endJumps)
		case arm.Pattern.Binding != nil:
			err = c.compileBindingArm(arm, &endJumps)
		default:
			err = c.compileWildcardArm(arm, &endJumps)
		}
		if err != nil {
			return err
		}
	}

	// Nothing matched.
	c.emit(OP_MATCH_END)
	c.emit(OP_UNDEFINED)

	for _, jump := range endJumps {
		c.patchJump(jump)
	}
	return nil
}

// compileWildcardArm always matches.
func (c *Compiler) compileWildcardArm(arm *ast.MatchArm, endJumps *[]int) error {
	c.emit(OP_MATCH_END)
	if err := c.compileExpr(arm.Body); err != nil {
		return err
	}
	*endJumps = append(*endJumps, c.emitJump(OP_JUMP))
	return nil
}

// compileLiteralArm strict-compares the discriminant against a literal.
func (c *Compiler) compileLiteralArm(arm *ast.MatchArm, endJumps *[]int) error {
	c.emit(OP_DUP)
	if err := c.compileLiteral(arm.Pattern.Literal); err != nil {
		return err
	}
	c.emit(OP_MATCH_PATTERN)
	skip := c.emitJump(OP_JUMP_IF_FALSE)
	c.emit(OP_POP) // true

	if err := c.compileGuardedBody(arm, endJumps); err != nil {
		return err
	}

	c.patchJump(skip)
	c.emit(OP_POP) // false
	return nil
}

// compileGuardedBody pops the discriminant and runs the body, optionally
// behind a guard that leaves the discriminant for the next arm on failure.
func (c *Compiler) compileGuardedBody(arm *ast.MatchArm, endJumps *[]int) error {
	if arm.Guard != nil {
		if err := c.compileExpr(arm.Guard); err != nil {
			return err
		}
		guardSkip := c.emitJump(OP_JUMP_IF_FALSE)
		c.emit(OP_POP) // guard true
		c.emit(OP_MATCH_END)
		if err := c.compileExpr(arm.Body); err != nil {
			return err
		}
		*endJumps = append(*endJumps, c.emitJump(OP_JUMP))
		// Guard false: its value stays for the caller's no-match POP, which
		// leaves the discriminant for the next arm.
		c.patchJump(guardSkip)
		return nil
	}

	c.emit(OP_MATCH_END)
	if err := c.compileExpr(arm.Body); err != nil {
		return err
	}
	*endJumps = append(*endJumps, c.emitJump(OP_JUMP))
	return nil
}

// compileIdentifierArm binds the discriminant to a name visible in the
// guard and body, then drops the discriminant while keeping the result.
func (c *Compiler) compileIdentifierArm(arm *ast.MatchArm, endJumps *[]int) error {
	if _, err := c.addLocal(arm.Pattern.Identifier.Name); err != nil {
		return err
	}

	if arm.Guard != nil {
		if err := c.compileExpr(arm.Guard); err != nil {
			return err
		}
		guardSkip := c.emitJump(OP_JUMP_IF_FALSE)
		c.emit(OP_POP) // guard true

		if err := c.compileExpr(arm.Body); err != nil {
			return err
		}
		// [disc(=binding), result] -> drop the discriminant, keep result.
		c.emit(OP_SWAP)
		c.emit(OP_POP)
		c.locals = c.locals[:len(c.locals)-1]
		*endJumps = append(*endJumps, c.emitJump(OP_JUMP))

		c.patchJump(guardSkip)
		c.emit(OP_POP) // guard false
		// The discriminant stays on the stack for the next arm; its local
		// was dropped with the matching path above.
		return nil
	}

	if err := c.compileExpr(arm.Body); err != nil {
		return err
	}
	c.emit(OP_SWAP)
	c.emit(OP_POP)
	c.locals = c.locals[:len(c.locals)-1]
	*endJumps = append(*endJumps, c.emitJump(OP_JUMP))
	return nil
}

// compileOrArm short-circuits a p1 | p2 | ... chain of literal (or
// wildcard) alternatives.
func (c *Compiler) compileOrArm(arm *ast.MatchArm, endJumps *[]int) error {
	alternatives := arm.Pattern.Or
	var orHits []int
	for i, alt := range alternatives {
		if alt.Literal != nil {
			c.emit(OP_DUP)
			if err := c.compileLiteral(alt.Literal); err != nil {
				return err
			}
			c.emit(OP_MATCH_PATTERN)
		} else {
			// Wildcard alternatives always match.
			c.emit(OP_TRUE)
		}
		if i < len(alternatives)-1 {
			orHits = append(orHits, c.emitJump(OP_JUMP_IF_TRUE))
			c.emit(OP_POP) // false, try next alternative
		}
	}

	skip := c.emitJump(OP_JUMP_IF_FALSE)
	for _, jump := range orHits {
		c.patchJump(jump)
	}
	c.emit(OP_POP) // the boolean left by the chain

	if err := c.compileGuardedBody(arm, endJumps); err != nil {
		return err
	}

	c.patchJump(skip)
	c.emit(OP_POP) // false
	return nil
}

// compileArrayArm tests length >= the non-rest element count, tests literal
// elements by index, and binds identifier elements.
func (c *Compiler) compileArrayArm(arm *ast.MatchArm, endJumps *[]int) error {
	elements := arm.Pattern.Array

	nonRest := 0
	for _, elem := range elements {
		if !elem.Rest {
			nonRest++
		}
	}

	c.emit(OP_DUP)
	c.emit(OP_GET_PROPERTY)
	c.emitU16(c.nameConstant("length"))
	c.emitConstant(NumberVal(float64(nonRest)))
	c.emit(OP_GE)
	lengthFail := c.emitJump(OP_JUMP_IF_FALSE)
	c.emit(OP_POP) // true

	var elemFails []int
	for i, elem := range elements {
		if elem.Literal == nil {
			continue
		}
		c.emit(OP_DUP)
		c.emitConstant(NumberVal(float64(i)))
		c.emit(OP_GET_ELEMENT)
		if err := c.compileLiteral(elem.Literal); err != nil {
			return err
		}
		c.emit(OP_MATCH_PATTERN)
		elemFails = append(elemFails, c.emitJump(OP_JUMP_IF_FALSE))
		c.emit(OP_POP) // true
	}

	// All tests passed: bind identifier elements.
	bindings := 0
	for i, elem := range elements {
		if elem.Identifier == nil {
			continue
		}
		c.emit(OP_DUP)
		c.emitConstant(NumberVal(float64(i)))
		c.emit(OP_GET_ELEMENT)
		if _, err := c.addLocal(elem.Identifier.Name); err != nil {
			return err
		}
		bindings++
	}

	if err := c.compileBoundBody(arm, bindings, endJumps); err != nil {
		return err
	}

	c.patchJump(lengthFail)
	for _, jump := range elemFails {
		c.patchJump(jump)
	}
	c.emit(OP_POP) // false
	return nil
}

// compileObjectArm tests literal properties and binds identifier properties
// by name.
func (c *Compiler) compileObjectArm(arm *ast.MatchArm, endJumps *[]int) error {
	props := arm.Pattern.Object

	var propFails []int
	for _, prop := range props {
		if prop.Pattern.Literal == nil {
			continue
		}
		c.emit(OP_DUP)
		c.emit(OP_GET_PROPERTY)
		c.emitU16(c.nameConstant(prop.Key))
		if err := c.compileLiteral(prop.Pattern.Literal); err != nil {
			return err
		}
		c.emit(OP_MATCH_PATTERN)
		propFails = append(propFails, c.emitJump(OP_JUMP_IF_FALSE))
		c.emit(OP_POP) // true
	}

	bindings := 0
	for _, prop := range props {
		if prop.Pattern.Identifier == nil {
			continue
		}
		c.emit(OP_DUP)
		c.emit(OP_GET_PROPERTY)
		c.emitU16(c.nameConstant(prop.Key))
		if _, err := c.addLocal(prop.Pattern.Identifier.Name); err != nil {
			return err
		}
		bindings++
	}

	if err := c.compileBoundBody(arm, bindings, endJumps); err != nil {
		return err
	}

	for _, jump := range propFails {
		c.patchJump(jump)
	}
	c.emit(OP_POP) // false
	return nil
}

// compileBoundBody runs a guarded body over `bindings` stack bindings, then
// unwinds them and the discriminant while keeping the result.
func (c *Compiler) compileBoundBody(arm *ast.MatchArm, bindings int, endJumps *[]int) error {
	if arm.Guard != nil {
		if err := c.compileExpr(arm.Guard); err != nil {
			return err
		}
		guardSkip := c.emitJump(OP_JUMP_IF_FALSE)
		c.emit(OP_POP) // guard true

		if err := c.compileExpr(arm.Body); err != nil {
			return err
		}
		c.unwindBindings(bindings)
		c.emit(OP_SWAP)
		c.emit(OP_POP) // discriminant
		*endJumps = append(*endJumps, c.emitJump(OP_JUMP))

		// Guard false: drop the bindings from under the guard's value, which
		// the caller's no-match POP removes; their locals went with
		// unwindBindings above.
		c.patchJump(guardSkip)
		for i := 0; i < bindings; i++ {
			c.emit(OP_SWAP)
			c.emit(OP_POP)
		}
		return nil
	}

	if err := c.compileExpr(arm.Body); err != nil {
		return err
	}
	c.unwindBindings(bindings)
	c.emit(OP_SWAP)
	c.emit(OP_POP) // discriminant
	*endJumps = append(*endJumps, c.emitJump(OP_JUMP))
	return nil
}

// unwindBindings drops binding slots buried under the result value.
func (c *Compiler) unwindBindings(bindings int) {
	for i := 0; i < bindings; i++ {
		c.emit(OP_SWAP)
		c.emit(OP_POP)
		c.locals = c.locals[:len(c.locals)-1]
	}
}

// compileBindingArm handles `name @ inner`: the name binds the discriminant
// while the inner pattern decides the match.
func (c *Compiler) compileBindingArm(arm *ast.MatchArm, endJumps *[]int) error {
	binding := arm.Pattern.Binding
	if _, err := c.addLocal(binding.Name); err != nil {
		return err
	}

	inner := binding.Pattern
	if inner != nil && inner.Literal != nil {
		c.emit(OP_DUP)
		if err := c.compileLiteral(inner.Literal); err != nil {
			return err
		}
		c.emit(OP_MATCH_PATTERN)
		skip := c.emitJump(OP_JUMP_IF_FALSE)
		c.emit(OP_POP) // true

		if err := c.compileExpr(arm.Body); err != nil {
			return err
		}
		c.emit(OP_SWAP)
		c.emit(OP_POP)
		c.locals = c.locals[:len(c.locals)-1]
		*endJumps = append(*endJumps, c.emitJump(OP_JUMP))

		c.patchJump(skip)
		c.emit(OP_POP) // false
		// Its local was dropped with the matching path above.
		return nil
	}

	// Other inner patterns bind like a wildcard.
	if err := c.compileExpr(arm.Body); err != nil {
		return err
	}
	c.emit(OP_SWAP)
	c.emit(OP_POP)
	c.locals = c.locals[:len(c.locals)-1]
	*endJumps = append(*endJumps, c.emitJump(OP_JUMP))
	return nil
}
