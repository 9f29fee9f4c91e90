// Package resolver implements the static scope pass for fail.
//
// For every variable, this and super reference it computes the number of
// environment hops between the use and the defining scope, and reports the
// distance to a Binder (the interpreter). References that miss every local
// scope are recorded with the current scope count, which lands on the
// global environment at run time. Along the way it reports placement errors
// and unused locals to a shared diag.Collector; it never stops early.
package resolver

import (
	"fmt"

	"fail-lang/internal/ast"
	"fail-lang/internal/diag"
	"fail-lang/internal/token"
)

// Binder receives the resolved distance for each reference expression.
type Binder interface {
	Resolve(expr ast.Expr, depth int)
}

// FunctionKind tracks what kind of function body is being resolved.
type FunctionKind int

const (
	FuncNone FunctionKind = iota
	FuncFunction
	FuncMethod
	FuncInitializer
)

// ClassKind tracks whether resolution is inside a class, and whether that
// class has a superclass.
type ClassKind int

const (
	ClassNone ClassKind = iota
	ClassClass
	ClassSubclass
)

type varState int

const (
	stateDeclared varState = iota
	stateDefined
	stateRead
)

type binding struct {
	name  token.Token
	state varState
}

// scope is an insertion-ordered name table.
type scope struct {
	index map[string]int
	vars  []*binding
}

func newScope() *scope {
	return &scope{index: make(map[string]int)}
}

func (s *scope) lookup(name string) (*binding, bool) {
	i, ok := s.index[name]
	if !ok {
		return nil, false
	}
	return s.vars[i], true
}

func (s *scope) put(b *binding) {
	if i, ok := s.index[b.name.Lexeme]; ok {
		s.vars[i] = b
		return
	}
	s.index[b.name.Lexeme] = len(s.vars)
	s.vars = append(s.vars, b)
}

// Resolver walks the AST once, before execution.
type Resolver struct {
	binder Binder
	diags  *diag.Collector

	scopes    []*scope
	globals   map[string]bool // top-level names declared so far
	function  FunctionKind
	class     ClassKind
	loopDepth int

	// preventAssignment is set while resolving an if/while/ternary condition.
	preventAssignment bool
}

// New creates a resolver reporting distances to binder and findings to diags.
func New(binder Binder, diags *diag.Collector) *Resolver {
	return &Resolver{binder: binder, diags: diags, globals: make(map[string]bool)}
}

// KnownGlobals records names already bound in the global environment, such
// as natives and earlier REPL inputs.
func (r *Resolver) KnownGlobals(names ...string) {
	for _, name := range names {
		r.globals[name] = true
	}
}

// Resolve resolves a program (or one REPL input) at global scope.
func (r *Resolver) Resolve(stmts []ast.Stmt) {
	for _, s := range stmts {
		r.stmt(s)
	}
}

// ResolveExpr resolves a bare expression at global scope.
func (r *Resolver) ResolveExpr(expr ast.Expr) {
	r.expr(expr)
}

// ---- reporting ----

func (r *Resolver) errorf(tok token.Token, code, format string, args ...interface{}) {
	r.diags.Add(diag.Errorf(code, tok.Span, format, args...).At(diag.StageResolve, tok.Lexeme))
}

func (r *Resolver) warnf(tok token.Token, code, format string, args ...interface{}) {
	r.diags.Add(diag.Warningf(code, tok.Span, format, args...).At(diag.StageResolve, tok.Lexeme))
}

// ---- scopes ----

func (r *Resolver) beginScope() {
	r.scopes = append(r.scopes, newScope())
}

func (r *Resolver) endScope() {
	top := r.scopes[len(r.scopes)-1]
	r.scopes = r.scopes[:len(r.scopes)-1]
	for _, b := range top.vars {
		if b.state == stateDefined {
			r.warnf(b.name, "W3001", "local variable '%s' is not used", b.name.Lexeme)
		}
	}
}

func (r *Resolver) declare(name token.Token) {
	if len(r.scopes) == 0 {
		r.globals[name.Lexeme] = true
		return
	}
	top := r.scopes[len(r.scopes)-1]
	if _, ok := top.lookup(name.Lexeme); ok {
		r.errorf(name, "E3001", "variable '%s' already declared in this scope", name.Lexeme)
	}
	top.put(&binding{name: name, state: stateDeclared})
}

func (r *Resolver) define(name token.Token) {
	if len(r.scopes) == 0 {
		return
	}
	if b, ok := r.scopes[len(r.scopes)-1].lookup(name.Lexeme); ok {
		b.state = stateDefined
	}
}

// defineSynthetic binds this or super in the innermost scope; these never
// produce unused warnings.
func (r *Resolver) defineSynthetic(name string) {
	tok := token.Token{Kind: token.IDENT, Lexeme: name}
	r.scopes[len(r.scopes)-1].put(&binding{name: tok, state: stateRead})
}

// resolveLocal records the distance for expr and marks reads.
func (r *Resolver) resolveLocal(expr ast.Expr, name token.Token, isRead bool) {
	r.resolveFrom(len(r.scopes)-1, expr, name, isRead)
}

// resolveFrom searches scopes[from] outward. Distances are still counted
// from the innermost scope.
func (r *Resolver) resolveFrom(from int, expr ast.Expr, name token.Token, isRead bool) {
	for i := from; i >= 0; i-- {
		if b, ok := r.scopes[i].lookup(name.Lexeme); ok {
			r.binder.Resolve(expr, len(r.scopes)-1-i)
			if isRead {
				b.state = stateRead
			}
			return
		}
	}
	// Not found: assumed global.
	r.binder.Resolve(expr, len(r.scopes))
}

// ============================================================
// Statements
// ============================================================

func (r *Resolver) stmt(s ast.Stmt) {
	switch n := s.(type) {
	case *ast.BlockStmt:
		r.beginScope()
		r.Resolve(n.Stmts)
		r.endScope()

	case *ast.VarStmt:
		r.declare(n.Name)
		if n.Init != nil {
			r.expr(n.Init)
		}
		r.define(n.Name)

	case *ast.FuncDecl:
		r.declare(n.Name)
		r.define(n.Name)
		r.resolveFunction(n.Func, FuncFunction)

	case *ast.ClassDecl:
		r.classDecl(n)

	case *ast.ExprStmt:
		r.expr(n.Expr)

	case *ast.PrintStmt:
		r.expr(n.Value)

	case *ast.IfStmt:
		r.condition(n.Condition)
		r.stmt(n.Then)
		if n.Else != nil {
			r.stmt(n.Else)
		}

	case *ast.WhileStmt:
		r.condition(n.Condition)
		r.loopDepth++
		r.stmt(n.Body)
		if n.Increment != nil {
			r.expr(n.Increment)
		}
		r.loopDepth--

	case *ast.ReturnStmt:
		if r.function == FuncNone {
			r.errorf(n.Keyword, "E3003", "cannot return from top-level code")
		}
		if n.Value != nil {
			if r.function == FuncInitializer {
				r.errorf(n.Keyword, "E3004", "cannot return a value from an initializer")
			}
			r.expr(n.Value)
		}

	case *ast.BreakStmt:
		if r.loopDepth == 0 {
			r.errorf(n.Keyword, "E3005", "'break' outside of a loop")
		}

	case *ast.ContinueStmt:
		if r.loopDepth == 0 {
			r.errorf(n.Keyword, "E3006", "'continue' outside of a loop")
		}

	default:
		panic(fmt.Sprintf("resolver: unexpected statement %T", s))
	}
}

func (r *Resolver) classDecl(n *ast.ClassDecl) {
	enclosing := r.class
	r.class = ClassClass

	r.declare(n.Name)
	r.define(n.Name)

	if n.Superclass != nil {
		if n.Superclass.Name.Lexeme == n.Name.Lexeme {
			r.errorf(n.Superclass.Name, "E3007", "a class cannot inherit from itself")
		}
		r.class = ClassSubclass
		r.expr(n.Superclass)

		r.beginScope()
		r.defineSynthetic("super")
	}

	r.beginScope()
	r.defineSynthetic("this")

	for _, m := range n.Methods {
		kind := FuncMethod
		if m.Name.Lexeme == "init" {
			kind = FuncInitializer
		}
		r.resolveFunction(m.Func, kind)
	}
	for _, m := range n.ClassMethods {
		r.resolveFunction(m.Func, FuncMethod)
	}

	r.endScope()
	if n.Superclass != nil {
		r.endScope()
	}
	r.class = enclosing
}

// resolveFunction resolves a function body in a single scope holding its
// parameters. Loop depth does not cross the function boundary.
func (r *Resolver) resolveFunction(fn *ast.FuncExpr, kind FunctionKind) {
	enclosingFn, enclosingLoop := r.function, r.loopDepth
	r.function, r.loopDepth = kind, 0

	r.beginScope()
	for _, p := range fn.Params {
		r.declare(p)
		r.define(p)
	}
	r.Resolve(fn.Body)
	r.endScope()

	r.function, r.loopDepth = enclosingFn, enclosingLoop
}

// resolveVariable resolves a read. An innermost entry still being
// initialised is skipped, so `var x = x;` reads an enclosing x; with no
// enclosing binding it is a self-reference error.
func (r *Resolver) resolveVariable(n *ast.VariableExpr) {
	from := len(r.scopes) - 1
	if from >= 0 {
		if b, ok := r.scopes[from].lookup(n.Name.Lexeme); ok && b.state == stateDeclared {
			from--
			if !r.boundOutside(n.Name.Lexeme, from) {
				r.errorf(n.Name, "E3002", "cannot read local variable '%s' in its own initializer", n.Name.Lexeme)
				return
			}
		}
	}
	r.resolveFrom(from, n, n.Name, true)
}

// boundOutside reports whether name is bound in scopes[0..from] or at top level.
func (r *Resolver) boundOutside(name string, from int) bool {
	for i := from; i >= 0; i-- {
		if _, ok := r.scopes[i].lookup(name); ok {
			return true
		}
	}
	return r.globals[name]
}

// condition resolves expr with assignment disallowed.
func (r *Resolver) condition(expr ast.Expr) {
	saved := r.preventAssignment
	r.preventAssignment = true
	r.expr(expr)
	r.preventAssignment = saved
}

// ============================================================
// Expressions
// ============================================================

func (r *Resolver) expr(e ast.Expr) {
	switch n := e.(type) {
	case *ast.LiteralExpr:

	case *ast.VariableExpr:
		r.resolveVariable(n)

	case *ast.AssignExpr:
		if r.preventAssignment {
			r.errorf(n.Op, "E3011", "assignment is not allowed within if, loop or ternary condition")
		}
		r.expr(n.Value)
		// Compound assignment reads the target too.
		r.resolveLocal(n, n.Name, n.Op.Kind.IsCompoundAssign())

	case *ast.BinaryExpr:
		r.expr(n.Left)
		r.expr(n.Right)

	case *ast.LogicalExpr:
		r.expr(n.Left)
		r.expr(n.Right)

	case *ast.UnaryExpr:
		r.expr(n.Operand)

	case *ast.TernaryExpr:
		r.condition(n.Condition)
		r.expr(n.Then)
		r.expr(n.Else)

	case *ast.GroupingExpr:
		r.expr(n.Inner)

	case *ast.CallExpr:
		r.expr(n.Callee)
		for _, arg := range n.Args {
			r.expr(arg)
		}

	case *ast.FuncExpr:
		r.resolveFunction(n, FuncFunction)

	case *ast.GetExpr:
		r.expr(n.Object)

	case *ast.SetExpr:
		r.expr(n.Value)
		r.expr(n.Object)

	case *ast.ThisExpr:
		if r.class == ClassNone {
			r.errorf(n.Keyword, "E3008", "cannot use 'this' outside of a class")
			return
		}
		r.resolveLocal(n, n.Keyword, true)

	case *ast.SuperExpr:
		switch r.class {
		case ClassNone:
			r.errorf(n.Keyword, "E3009", "cannot use 'super' outside of a class")
			return
		case ClassClass:
			r.errorf(n.Keyword, "E3010", "cannot use 'super' in a class with no superclass")
			return
		}
		r.resolveLocal(n, n.Keyword, true)

	default:
		panic(fmt.Sprintf("resolver: unexpected expression %T", e))
	}
}
