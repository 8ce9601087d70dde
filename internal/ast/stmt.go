package ast

// BlockStatement is `{ ... }`.
type BlockStatement struct {
	Body []Statement
	Span Span
}

func (b *BlockStatement) GetSpan() Span { return b.Span }
func (b *BlockStatement) statementNode() {}

// EmptyStatement is a lone semicolon.
type EmptyStatement struct {
	Span Span
}

func (e *EmptyStatement) GetSpan() Span { return e.Span }
func (e *EmptyStatement) statementNode() {}

// ExpressionStatement wraps an expression used as a statement.
type ExpressionStatement struct {
	Expression Expression
	Span       Span
}

func (e *ExpressionStatement) GetSpan() Span { return e.Span }
func (e *ExpressionStatement) statementNode() {}

// IfStatement is `if (test) consequent else alternate`.
type IfStatement struct {
	Test       Expression
	Consequent Statement
	Alternate  Statement // nil when absent
	Span       Span
}

func (i *IfStatement) GetSpan() Span { return i.Span }
func (i *IfStatement) statementNode() {}

// WhileStatement is `while (test) body`.
type WhileStatement struct {
	Test Expression
	Body Statement
	Span Span
}

func (w *WhileStatement) GetSpan() Span { return w.Span }
func (w *WhileStatement) statementNode() {}

// DoWhileStatement is `do body while (test)`.
type DoWhileStatement struct {
	Body Statement
	Test Expression
	Span Span
}

func (d *DoWhileStatement) GetSpan() Span { return d.Span }
func (d *DoWhileStatement) statementNode() {}

// ForInit is the init clause of a classic for loop.
type ForInit struct {
	Declaration *VariableDeclaration // one of the two is non-nil
	Expression  Expression
}

// ForStatement is `for (init; test; update) body`.
type ForStatement struct {
	Init   *ForInit // nil when absent
	Test   Expression
	Update Expression
	Body   Statement
	Span   Span
}

func (f *ForStatement) GetSpan() Span { return f.Span }
func (f *ForStatement) statementNode() {}

// ForInLeft is the left side of for-in / for-of.
type ForInLeft struct {
	Declaration *VariableDeclaration // one of the two is non-nil
	Pattern     Pattern
}

// ForInStatement is `for (left in right) body`.
type ForInStatement struct {
	Left  ForInLeft
	Right Expression
	Body  Statement
	Span  Span
}

func (f *ForInStatement) GetSpan() Span { return f.Span }
func (f *ForInStatement) statementNode() {}

// ForOfStatement is `for (left of right) body`, optionally `for await`.
type ForOfStatement struct {
	Left    ForInLeft
	Right   Expression
	Body    Statement
	IsAwait bool
	Span    Span
}

func (f *ForOfStatement) GetSpan() Span { return f.Span }
func (f *ForOfStatement) statementNode() {}

// SwitchStatement is `switch (discriminant) { cases }`.
type SwitchStatement struct {
	Discriminant Expression
	Cases        []*SwitchCase
	Span         Span
}

func (s *SwitchStatement) GetSpan() Span { return s.Span }
func (s *SwitchStatement) statementNode() {}

// BreakStatement is `break [label]`.
type BreakStatement struct {
	Label *Identifier
	Span  Span
}

func (b *BreakStatement) GetSpan() Span { return b.Span }
func (b *BreakStatement) statementNode() {}

// ContinueStatement is `continue [label]`.
type ContinueStatement struct {
	Label *Identifier
	Span  Span
}

func (c *ContinueStatement) GetSpan() Span { return c.Span }
func (c *ContinueStatement) statementNode() {}

// ReturnStatement is `return [argument]`.
type ReturnStatement struct {
	Argument Expression // nil when absent
	Span     Span
}

func (r *ReturnStatement) GetSpan() Span { return r.Span }
func (r *ReturnStatement) statementNode() {}

// ThrowStatement is `throw argument`.
type ThrowStatement struct {
	Argument Expression
	Span     Span
}

func (t *ThrowStatement) GetSpan() Span { return t.Span }
func (t *ThrowStatement) statementNode() {}

// TryStatement is `try block catch(param) handler finally finalizer`.
type TryStatement struct {
	Block     *BlockStatement
	Handler   *CatchClause    // nil when absent
	Finalizer *BlockStatement // nil when absent
	Span      Span
}

func (t *TryStatement) GetSpan() Span { return t.Span }
func (t *TryStatement) statementNode() {}

// LabeledStatement is `label: body`.
type LabeledStatement struct {
	Label *Identifier
	Body  Statement
	Span  Span
}

func (l *LabeledStatement) GetSpan() Span { return l.Span }
func (l *LabeledStatement) statementNode() {}

// WithStatement is `with (object) body`.
type WithStatement struct {
	Object Expression
	Body   Statement
	Span   Span
}

func (w *WithStatement) GetSpan() Span { return w.Span }
func (w *WithStatement) statementNode() {}

// DebuggerStatement is `debugger`.
type DebuggerStatement struct {
	Span Span
}

func (d *DebuggerStatement) GetSpan() Span { return d.Span }
func (d *DebuggerStatement) statementNode() {}

// ImportDeclaration is `import specifiers from source`.
type ImportDeclaration struct {
	Specifiers []ImportSpecifier
	Source     string
	Span       Span
}

func (i *ImportDeclaration) GetSpan() Span { return i.Span }
func (i *ImportDeclaration) statementNode() {}

// ExportKind discriminates the export forms.
type ExportKind int

const (
	// ExportDeclarationKind is `export <declaration>`.
	ExportDeclarationKind ExportKind = iota
	// ExportDefault is `export default <expression>`.
	ExportDefault
	// ExportDefaultDeclaration is `export default <declaration>`.
	ExportDefaultDeclaration
	// ExportNamed is `export {a, b as c} [from source]`.
	ExportNamed
	// ExportAllKind is `export * from source`.
	ExportAllKind
	// ExportAllAs is `export * as name from source`.
	ExportAllAs
)

// ExportDeclaration covers every export form.
type ExportDeclaration struct {
	Kind        ExportKind
	Declaration Statement // ExportDeclarationKind / ExportDefaultDeclaration
	Expression  Expression
	Specifiers  []ExportSpecifier
	Source      *string     // re-export source, nil for local exports
	Exported    *Identifier // ExportAllAs name
	Span        Span
}

func (e *ExportDeclaration) GetSpan() Span { return e.Span }
func (e *ExportDeclaration) statementNode() {}
