// Package ast defines the abstract syntax tree for fail.
//
// Expr and Stmt are sealed: only types in this package implement them, so
// consumers dispatch with a type switch over a closed set of node kinds.
// Nodes are always used by pointer and are never mutated after parsing; the
// pointer identity of an expression node is the key under which the resolver
// records its scope distance.
package ast

import (
	"fail-lang/internal/span"
	"fail-lang/internal/token"
)

// ============================================================
// Node interfaces
// ============================================================

// Node is the interface implemented by all AST nodes.
type Node interface {
	nodeNode()
	GetSpan() span.Span
}

// Expr is the interface for expression nodes.
type Expr interface {
	Node
	exprNode()
}

// Stmt is the interface for statement nodes.
type Stmt interface {
	Node
	stmtNode()
}

// ============================================================
// Base types (embedded to provide common fields)
// ============================================================

// NodeBase provides the common Span field for all AST nodes.
type NodeBase struct {
	Span span.Span
}

func (n NodeBase) nodeNode()          {}
func (n NodeBase) GetSpan() span.Span { return n.Span }

// ExprBase is embedded by all expression nodes.
type ExprBase struct{ NodeBase }

func (ExprBase) exprNode() {}

// StmtBase is embedded by all statement nodes.
type StmtBase struct{ NodeBase }

func (StmtBase) stmtNode() {}

// ============================================================
// File (top-level AST root)
// ============================================================

// File represents an entire program.
type File struct {
	NodeBase
	Stmts []Stmt
}

// ============================================================
// Expressions
// ============================================================

// LiteralExpr is a constant: nil (none), bool, float64 or string.
type LiteralExpr struct {
	ExprBase
	Value any
}

// VariableExpr is a reference to a named variable.
type VariableExpr struct {
	ExprBase
	Name token.Token
}

// AssignExpr assigns to a variable. Op is `=` or a compound operator
// (`+=`, `-=`, `*=`, `/=`, `**=`).
type AssignExpr struct {
	ExprBase
	Name  token.Token
	Op    token.Token
	Value Expr
}

// BinaryExpr is an arithmetic, comparison, equality or comma operation.
type BinaryExpr struct {
	ExprBase
	Left  Expr
	Op    token.Token
	Right Expr
}

// LogicalExpr is a short-circuiting `and` / `or`.
type LogicalExpr struct {
	ExprBase
	Left  Expr
	Op    token.Token
	Right Expr
}

// UnaryExpr is `!x`, `-x`, `++x`, `--x`, or (Postfix) `x++`, `x--`.
type UnaryExpr struct {
	ExprBase
	Op      token.Token
	Operand Expr
	Postfix bool
}

// TernaryExpr represents cond ? then : else.
type TernaryExpr struct {
	ExprBase
	Condition Expr
	Then      Expr
	Else      Expr
}

// GroupingExpr is a parenthesized expression.
type GroupingExpr struct {
	ExprBase
	Inner Expr
}

// CallExpr represents callee(args). Paren is the closing parenthesis and is
// used to attribute call errors.
type CallExpr struct {
	ExprBase
	Callee Expr
	Paren  token.Token
	Args   []Expr
}

// FuncExpr is a function literal and the shared shape of declared functions
// and methods. Getter is set for class members declared without a parameter
// list.
type FuncExpr struct {
	ExprBase
	Keyword token.Token
	Params  []token.Token
	Body    []Stmt
	Getter  bool
}

// GetExpr represents object.name.
type GetExpr struct {
	ExprBase
	Object Expr
	Name   token.Token
}

// SetExpr represents object.name = value.
type SetExpr struct {
	ExprBase
	Object Expr
	Name   token.Token
	Value  Expr
}

// ThisExpr represents the 'this' keyword.
type ThisExpr struct {
	ExprBase
	Keyword token.Token
}

// SuperExpr represents super.method.
type SuperExpr struct {
	ExprBase
	Keyword token.Token
	Method  token.Token
}

// ============================================================
// Statements
// ============================================================

// ExprStmt wraps an expression used as a statement.
type ExprStmt struct {
	StmtBase
	Expr Expr
}

// PrintStmt represents print expr;.
type PrintStmt struct {
	StmtBase
	Keyword token.Token
	Value   Expr
}

// VarStmt declares a variable; Init may be nil.
type VarStmt struct {
	StmtBase
	Name token.Token
	Init Expr
}

// BlockStmt represents { ... } and opens one scope.
type BlockStmt struct {
	StmtBase
	Stmts []Stmt
}

// IfStmt represents if (cond) then [else else].
type IfStmt struct {
	StmtBase
	Condition Expr
	Then      Stmt
	Else      Stmt // may be nil
}

// WhileStmt is the single loop form. `for` loops desugar into a WhileStmt
// carrying the update clause in Increment, which runs after every body
// execution that ends normally or by continue. DoWhile runs the body once
// before the first test.
type WhileStmt struct {
	StmtBase
	Condition Expr
	Body      Stmt
	Increment Expr // may be nil
	DoWhile   bool
}

// ReturnStmt represents return [expr];.
type ReturnStmt struct {
	StmtBase
	Keyword token.Token
	Value   Expr // may be nil
}

// BreakStmt represents break;.
type BreakStmt struct {
	StmtBase
	Keyword token.Token
}

// ContinueStmt represents continue;.
type ContinueStmt struct {
	StmtBase
	Keyword token.Token
}

// FuncDecl declares a named function, or a method inside a class.
type FuncDecl struct {
	StmtBase
	Name token.Token
	Func *FuncExpr
}

// ClassDecl declares a class. Superclass is nil when there is no `<` clause.
// ClassMethods are declared with a leading `class` keyword and are invoked
// on the class itself.
type ClassDecl struct {
	StmtBase
	Name         token.Token
	Superclass   *VariableExpr
	Methods      []*FuncDecl
	ClassMethods []*FuncDecl
}
