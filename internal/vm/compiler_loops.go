package vm

import (
	"github.com/josedab/quicksilver/internal/ast"
	"github.com/josedab/quicksilver/internal/errors"
)

func (c *Compiler) pushLoop(start int) {
	c.loopStack = append(c.loopStack, loopInfo{start: start, depth: c.scopeDepth})
}

func (c *Compiler) popLoop() loopInfo {
	info := c.loopStack[len(c.loopStack)-1]
	c.loopStack = c.loopStack[:len(c.loopStack)-1]
	return info
}

// patchContinues patches pending continue jumps to the current position.
func (c *Compiler) patchContinues() {
	info := &c.loopStack[len(c.loopStack)-1]
	for _, jump := range info.continueJumps {
		c.patchJump(jump)
	}
	info.continueJumps = nil
}

func (c *Compiler) compileWhile(stmt *ast.WhileStatement) error {
	loopStart := c.chunk.Len()
	c.pushLoop(loopStart)

	if err := c.compileExpr(stmt.Test); err != nil {
		return err
	}
	exitJump := c.emitJump(OP_JUMP_IF_FALSE)
	c.emit(OP_POP)

	if err := c.compileStatement(stmt.Body); err != nil {
		return err
	}

	// Continue lands on the back jump, which re-enters the test.
	c.patchContinues()
	c.emitLoop(loopStart)

	c.patchJump(exitJump)
	c.emit(OP_POP)

	for _, jump := range c.popLoop().breakJumps {
		c.patchJump(jump)
	}
	return nil
}

func (c *Compiler) compileDoWhile(stmt *ast.DoWhileStatement) error {
	loopStart := c.chunk.Len()
	c.pushLoop(loopStart)

	if err := c.compileStatement(stmt.Body); err != nil {
		return err
	}

	// Continue lands just before the test.
	c.patchContinues()

	if err := c.compileExpr(stmt.Test); err != nil {
		return err
	}
	exitJump := c.emitJump(OP_JUMP_IF_FALSE)
	c.emit(OP_POP)
	c.emitLoop(loopStart)
	c.patchJump(exitJump)
	c.emit(OP_POP)

	for _, jump := range c.popLoop().breakJumps {
		c.patchJump(jump)
	}
	return nil
}

func (c *Compiler) compileFor(stmt *ast.ForStatement) error {
	c.beginScope()

	if stmt.Init != nil {
		if stmt.Init.Declaration != nil {
			if err := c.compileVarDecl(stmt.Init.Declaration); err != nil {
				return err
			}
		} else if stmt.Init.Expression != nil {
			if err := c.compileExpr(stmt.Init.Expression); err != nil {
				return err
			}
			c.emit(OP_POP)
		}
	}

	loopStart := c.chunk.Len()
	c.pushLoop(loopStart)

	exitJump := -1
	if stmt.Test != nil {
		if err := c.compileExpr(stmt.Test); err != nil {
			return err
		}
		exitJump = c.emitJump(OP_JUMP_IF_FALSE)
		c.emit(OP_POP)
	}

	if err := c.compileStatement(stmt.Body); err != nil {
		return err
	}

	// Continue lands just before the update.
	c.patchContinues()

	if stmt.Update != nil {
		if err := c.compileExpr(stmt.Update); err != nil {
			return err
		}
		c.emit(OP_POP)
	}

	c.emitLoop(loopStart)

	if exitJump >= 0 {
		c.patchJump(exitJump)
		c.emit(OP_POP)
	}

	for _, jump := range c.popLoop().breakJumps {
		c.patchJump(jump)
	}

	c.endScope()
	return nil
}

// compileForIn iterates an object's enumerable keys.
func (c *Compiler) compileForIn(stmt *ast.ForInStatement) error {
	return c.compileIteration(stmt.Left, stmt.Right, stmt.Body, false)
}

// compileForOf iterates any iterable; for-await-of awaits each step result
// and each value.
func (c *Compiler) compileForOf(stmt *ast.ForOfStatement) error {
	return c.compileIteration(stmt.Left, stmt.Right, stmt.Body, stmt.IsAwait)
}

// compileIteration is the shared for-in / for-of skeleton. The loop variable
// is pre-declared below the iterator so its slot stays stable across
// iterations.
func (c *Compiler) compileIteration(left ast.ForInLeft, right ast.Expression, body ast.Statement, isAwait bool) error {
	c.beginScope()

	var loopVarSlot uint8
	hasLoopVar := false
	if left.Declaration != nil && len(left.Declaration.Declarations) > 0 {
		if id, ok := left.Declaration.Declarations[0].ID.(*ast.IdentifierPattern); ok {
			c.emit(OP_UNDEFINED)
			slot, err := c.addLocal(id.Name)
			if err != nil {
				return err
			}
			loopVarSlot = slot
			hasLoopVar = true
		}
	}

	if err := c.compileExpr(right); err != nil {
		return err
	}
	c.emit(OP_GET_ITERATOR)

	loopStart := c.chunk.Len()
	c.pushLoop(loopStart)

	// ITERATOR_NEXT peeks the iterator, pushes the {value, done} result.
	c.emit(OP_ITERATOR_NEXT)
	if isAwait {
		c.emit(OP_AWAIT)
	}

	c.emit(OP_DUP)
	c.emit(OP_ITERATOR_DONE)
	exitJump := c.emitJump(OP_JUMP_IF_TRUE)
	c.emit(OP_POP) // done flag

	// ITERATOR_VALUE pops the result and pushes the value.
	c.emit(OP_ITERATOR_VALUE)
	if isAwait {
		c.emit(OP_AWAIT)
	}

	if hasLoopVar {
		c.emit(OP_SET_LOCAL)
		c.emitByte(loopVarSlot)
		c.emit(OP_POP)
	} else if left.Pattern != nil {
		if err := c.compilePatternAssignment(left.Pattern); err != nil {
			return err
		}
	} else {
		c.emit(OP_POP)
	}

	if err := c.compileStatement(body); err != nil {
		return err
	}

	c.patchContinues()
	c.emitLoop(loopStart)

	c.patchJump(exitJump)
	c.emit(OP_POP) // done flag
	c.emit(OP_POP) // iterator result
	c.emit(OP_POP) // iterator

	for _, jump := range c.popLoop().breakJumps {
		c.patchJump(jump)
	}

	c.endScope()
	return nil
}

func (c *Compiler) compileBreak(stmt *ast.BreakStatement) error {
	if len(c.loopStack) == 0 {
		return errors.NewSyntaxError("break outside of loop")
	}
	jump := c.emitJump(OP_JUMP)
	info := &c.loopStack[len(c.loopStack)-1]
	info.breakJumps = append(info.breakJumps, jump)
	return nil
}

func (c *Compiler) compileContinue(stmt *ast.ContinueStatement) error {
	if len(c.loopStack) == 0 {
		return errors.NewSyntaxError("continue outside of loop")
	}
	jump := c.emitJump(OP_JUMP)
	info := &c.loopStack[len(c.loopStack)-1]
	info.continueJumps = append(info.continueJumps, jump)
	return nil
}
