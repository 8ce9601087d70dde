// Package ast defines the syntax tree consumed by the bytecode compiler.
//
// The parser producing these nodes lives outside this module; the types here
// are the contract between the two. Every node carries a Span so the compiler
// can mirror source locations into chunk debug tables.
package ast

// Position is a single point in a source file.
type Position struct {
	Line   uint32
	Column uint32
	Offset uint32
}

// Span covers a source region from Start to End.
type Span struct {
	Start Position
	End   Position
}

// Node is the base interface for all AST nodes.
type Node interface {
	GetSpan() Span
}

// Statement is a Node that represents a statement.
type Statement interface {
	Node
	statementNode()
}

// Expression is a Node that represents an expression.
type Expression interface {
	Node
	expressionNode()
}

// Pattern is a binding or assignment target.
type Pattern interface {
	Node
	patternNode()
}

// SourceType distinguishes scripts from modules.
type SourceType int

const (
	SourceScript SourceType = iota
	SourceModule
)

// Program is the root node of every parse.
type Program struct {
	Body   []Statement
	Source SourceType
	Strict bool
	Span   Span
}

func (p *Program) GetSpan() Span { return p.Span }

// Identifier is a name reference.
type Identifier struct {
	Name string
	Span Span
}

func (i *Identifier) GetSpan() Span  { return i.Span }
func (i *Identifier) expressionNode() {}

// VariableKind is the declaration keyword.
type VariableKind int

const (
	KindVar VariableKind = iota
	KindLet
	KindConst
)

// VariableDeclarator is one binding inside a declaration.
type VariableDeclarator struct {
	ID   Pattern
	Init Expression // nil when absent
	Span Span
}

// VariableDeclaration is `var/let/const ...`.
type VariableDeclaration struct {
	Kind         VariableKind
	Declarations []*VariableDeclarator
	Span         Span
}

func (d *VariableDeclaration) GetSpan() Span { return d.Span }
func (d *VariableDeclaration) statementNode() {}

// FunctionParams holds positional params plus an optional rest pattern.
type FunctionParams struct {
	Params []Pattern
	Rest   Pattern // nil when absent
}

// FunctionBody is either a block or a bare expression (arrows).
type FunctionBody struct {
	Block *BlockStatement // non-nil for block bodies
	Expr  Expression      // non-nil for expression bodies
}

// Function covers declarations, expressions, arrows, and methods.
type Function struct {
	ID          *Identifier // nil for anonymous
	Params      FunctionParams
	Body        FunctionBody
	IsAsync     bool
	IsGenerator bool
	IsArrow     bool
	Span        Span
}

func (f *Function) GetSpan() Span  { return f.Span }
func (f *Function) statementNode() {}
func (f *Function) expressionNode() {}

// PropertyKey is an object-literal or class-member key.
type PropertyKey struct {
	Identifier *Identifier
	String     *string
	Number     *float64
	Computed   Expression // non-nil for [expr] keys
	Private    *string    // private name without the leading '#'
}

// MethodKind classifies class methods.
type MethodKind int

const (
	MethodNormal MethodKind = iota
	MethodConstructor
	MethodGet
	MethodSet
)

// MethodDefinition is a class method, getter, or setter.
type MethodDefinition struct {
	Key      PropertyKey
	Value    *Function
	Kind     MethodKind
	IsStatic bool
	Span     Span
}

// PropertyDefinition is a class field.
type PropertyDefinition struct {
	Key      PropertyKey
	Value    Expression // nil when uninitialized
	IsStatic bool
	Span     Span
}

// ClassElement is one member of a class body.
type ClassElement struct {
	Method      *MethodDefinition
	Property    *PropertyDefinition
	StaticBlock *BlockStatement
}

// Class covers declarations and expressions.
type Class struct {
	ID         *Identifier // nil for anonymous
	SuperClass Expression  // nil when absent
	Body       []ClassElement
	Span       Span
}

func (c *Class) GetSpan() Span  { return c.Span }
func (c *Class) statementNode() {}
func (c *Class) expressionNode() {}

// TemplateElement is one cooked/raw quasi of a template literal.
type TemplateElement struct {
	Raw    string
	Cooked string
	Tail   bool
}

// SwitchCase is one `case test:` (test nil for default).
type SwitchCase struct {
	Test       Expression
	Consequent []Statement
	Span       Span
}

// CatchClause is the handler of a try statement.
type CatchClause struct {
	Param Pattern // nil for `catch {}`
	Body  *BlockStatement
	Span  Span
}

// ImportSpecifier is one imported binding.
type ImportSpecifier struct {
	Local     *Identifier
	Imported  *Identifier // nil for default and namespace imports
	Default   bool
	Namespace bool
}

// ExportSpecifier is one exported binding of `export {a as b}`.
type ExportSpecifier struct {
	Local    *Identifier
	Exported *Identifier
}
