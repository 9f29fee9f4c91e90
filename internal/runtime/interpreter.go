package runtime

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"fail-lang/internal/ast"
	"fail-lang/internal/diag"
	"fail-lang/internal/token"
)

// ============================================================
// Control flow signals
// ============================================================

// ExecSignal represents a control flow signal from statement execution.
type ExecSignal int

const (
	SigNone     ExecSignal = iota
	SigReturn              // return from function
	SigBreak               // break from loop
	SigContinue            // continue in loop
)

// ExecResult carries a control flow signal and an optional value (for return).
type ExecResult struct {
	Signal ExecSignal
	Value  Value
}

var resultNone = ExecResult{Signal: SigNone}

// maxCallDepth bounds recursion so runaway programs fail with a runtime
// error instead of exhausting the Go stack.
const maxCallDepth = 10000

// maxRepeatLen bounds the length of text produced by repetition.
const maxRepeatLen = 1 << 30

// ============================================================
// Runtime error
// ============================================================

// RuntimeError represents an error during interpretation. Err holds the
// underlying cause when the error wraps one (native failures, scope
// mismatches).
type RuntimeError struct {
	Token   token.Token
	Code    string
	Message string
	Err     error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("runtime error at %d:%d: %s", e.Token.Span.Start.Line, e.Token.Span.Start.Column, e.Message)
}

func (e *RuntimeError) Unwrap() error { return e.Err }

// Diagnostic converts the error for the shared collector.
func (e *RuntimeError) Diagnostic() diag.Diagnostic {
	return diag.Errorf(e.Code, e.Token.Span, "%s", e.Message).At(diag.StageRuntime, e.Token.Lexeme)
}

func runtimeErr(tok token.Token, code, format string, args ...interface{}) *RuntimeError {
	return &RuntimeError{Token: tok, Code: code, Message: fmt.Sprintf(format, args...)}
}

// wrapErr attributes a non-runtime error to tok. Scope mismatches become
// internal errors; anything else is a failed native call.
func wrapErr(tok token.Token, err error) error {
	if err == nil {
		return nil
	}
	var rerr *RuntimeError
	if errors.As(err, &rerr) {
		return rerr
	}
	code := "E4012"
	if errors.Is(err, ErrScopeMismatch) {
		code = "E9001"
	}
	return &RuntimeError{Token: tok, Code: code, Message: err.Error(), Err: err}
}

// ============================================================
// Interpreter
// ============================================================

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithNatives restricts the registered native functions to names.
// Unknown names are silently ignored, so callers must validate them first
// (config.Parse does).
func WithNatives(names []string) Option {
	return func(i *Interpreter) {
		i.natives = i.natives[:0]
		for _, n := range names {
			if IsNative(n) {
				i.natives = append(i.natives, n)
			}
		}
	}
}

// WithClock replaces the time source used by clock().
func WithClock(now func() time.Time) Option {
	return func(i *Interpreter) { i.now = now }
}

// Interpreter walks the AST and executes it.
type Interpreter struct {
	globals *Environment
	env     *Environment
	locals  map[ast.Expr]int
	output  io.Writer

	natives []string
	now     func() time.Time
	depth   int
}

// NewInterpreter creates a new interpreter with native functions registered.
func NewInterpreter(output io.Writer, opts ...Option) *Interpreter {
	globals := NewEnvironment(nil)
	i := &Interpreter{
		globals: globals,
		env:     globals,
		locals:  make(map[ast.Expr]int),
		output:  output,
		natives: append([]string(nil), NativeNames...),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	// Names were filtered by WithNatives, so registration cannot fail.
	_ = RegisterBuiltins(globals, i.natives, i.now)
	return i
}

// Resolve records the scope distance of a reference expression.
func (i *Interpreter) Resolve(expr ast.Expr, depth int) {
	i.locals[expr] = depth
}

// Globals returns the global environment.
func (i *Interpreter) Globals() *Environment {
	return i.globals
}

// Interpret executes stmts in order and stops at the first runtime error,
// which is reported to diags and returned.
func (i *Interpreter) Interpret(stmts []ast.Stmt, diags *diag.Collector) error {
	for _, stmt := range stmts {
		if _, err := i.execStmt(stmt); err != nil {
			return i.report(err, diags)
		}
	}
	return nil
}

// Evaluate evaluates a single expression at global scope.
func (i *Interpreter) Evaluate(expr ast.Expr, diags *diag.Collector) (Value, error) {
	v, err := i.evalExpr(expr)
	if err != nil {
		return nil, i.report(err, diags)
	}
	return v, nil
}

func (i *Interpreter) report(err error, diags *diag.Collector) error {
	var rerr *RuntimeError
	if !errors.As(err, &rerr) {
		rerr = &RuntimeError{Code: "E9001", Message: err.Error(), Err: err}
	}
	if diags != nil {
		diags.Add(rerr.Diagnostic())
	}
	return rerr
}

// ============================================================
// Statement execution
// ============================================================

func (i *Interpreter) execStmt(stmt ast.Stmt) (ExecResult, error) {
	switch s := stmt.(type) {
	case *ast.ExprStmt:
		_, err := i.evalExpr(s.Expr)
		return resultNone, err

	case *ast.PrintStmt:
		val, err := i.evalExpr(s.Value)
		if err != nil {
			return resultNone, err
		}
		fmt.Fprintln(i.output, val.String())
		return resultNone, nil

	case *ast.VarStmt:
		var val Value = NoneVal{}
		if s.Init != nil {
			v, err := i.evalExpr(s.Init)
			if err != nil {
				return resultNone, err
			}
			val = v
		}
		i.env.Define(s.Name.Lexeme, val)
		return resultNone, nil

	case *ast.BlockStmt:
		return i.execBlock(s.Stmts, NewEnvironment(i.env))

	case *ast.IfStmt:
		return i.execIf(s)

	case *ast.WhileStmt:
		return i.execWhile(s)

	case *ast.ReturnStmt:
		var val Value = NoneVal{}
		if s.Value != nil {
			v, err := i.evalExpr(s.Value)
			if err != nil {
				return resultNone, err
			}
			val = v
		}
		return ExecResult{Signal: SigReturn, Value: val}, nil

	case *ast.BreakStmt:
		return ExecResult{Signal: SigBreak}, nil

	case *ast.ContinueStmt:
		return ExecResult{Signal: SigContinue}, nil

	case *ast.FuncDecl:
		fn := &Function{Name: s.Name.Lexeme, Decl: s.Func, Closure: i.env}
		i.env.Define(s.Name.Lexeme, fn)
		return resultNone, nil

	case *ast.ClassDecl:
		return i.execClassDecl(s)

	default:
		return resultNone, &RuntimeError{Code: "E9001", Message: fmt.Sprintf("unhandled statement type: %T", stmt)}
	}
}

func (i *Interpreter) execIf(s *ast.IfStmt) (ExecResult, error) {
	cond, err := i.evalExpr(s.Condition)
	if err != nil {
		return resultNone, err
	}
	if IsTruthy(cond) {
		return i.execStmt(s.Then)
	}
	if s.Else != nil {
		return i.execStmt(s.Else)
	}
	return resultNone, nil
}

// execWhile runs all loop forms. The increment runs after every body
// execution that finished normally or with continue.
func (i *Interpreter) execWhile(s *ast.WhileStmt) (ExecResult, error) {
	skipTest := s.DoWhile
	for {
		if !skipTest {
			cond, err := i.evalExpr(s.Condition)
			if err != nil {
				return resultNone, err
			}
			if !IsTruthy(cond) {
				break
			}
		}
		skipTest = false

		result, err := i.execStmt(s.Body)
		if err != nil {
			return resultNone, err
		}
		if result.Signal == SigBreak {
			break
		}
		if result.Signal == SigReturn {
			return result, nil // propagate return
		}

		if s.Increment != nil {
			if _, err := i.evalExpr(s.Increment); err != nil {
				return resultNone, err
			}
		}
	}
	return resultNone, nil
}

// execBlock runs stmts in blockEnv and restores the previous environment on
// every exit path.
func (i *Interpreter) execBlock(stmts []ast.Stmt, blockEnv *Environment) (ExecResult, error) {
	prevEnv := i.env
	i.env = blockEnv
	defer func() { i.env = prevEnv }()

	for _, stmt := range stmts {
		result, err := i.execStmt(stmt)
		if err != nil {
			return resultNone, err
		}
		if result.Signal != SigNone {
			return result, nil // propagate signal
		}
	}
	return resultNone, nil
}

func (i *Interpreter) execClassDecl(s *ast.ClassDecl) (ExecResult, error) {
	var superclass *Class
	if s.Superclass != nil {
		val, err := i.evalExpr(s.Superclass)
		if err != nil {
			return resultNone, err
		}
		sc, ok := val.(*Class)
		if !ok {
			return resultNone, runtimeErr(s.Superclass.Name, "E4010", "superclass must be a class")
		}
		superclass = sc
	}

	i.env.Define(s.Name.Lexeme, NoneVal{})

	// Methods close over an extra scope holding super, if there is one.
	methodEnv := i.env
	if superclass != nil {
		methodEnv = NewEnvironment(i.env)
		methodEnv.Define("super", superclass)
	}

	cls := &Class{
		Name:         s.Name.Lexeme,
		Superclass:   superclass,
		Methods:      make(map[string]*Function, len(s.Methods)),
		ClassMethods: make(map[string]*Function, len(s.ClassMethods)),
	}
	for _, m := range s.Methods {
		cls.Methods[m.Name.Lexeme] = &Function{
			Name:          m.Name.Lexeme,
			Decl:          m.Func,
			Closure:       methodEnv,
			IsInitializer: m.Name.Lexeme == "init",
		}
	}
	for _, m := range s.ClassMethods {
		cls.ClassMethods[m.Name.Lexeme] = &Function{
			Name:    m.Name.Lexeme,
			Decl:    m.Func,
			Closure: methodEnv,
		}
	}

	i.env.Define(s.Name.Lexeme, cls)
	return resultNone, nil
}

// ============================================================
// Variable access
// ============================================================

func (i *Interpreter) lookupVariable(name token.Token, expr ast.Expr) (Value, error) {
	distance, ok := i.locals[expr]
	if !ok {
		return nil, runtimeErr(name, "E9001", "unresolved reference to '%s'", name.Lexeme)
	}
	val, err := i.env.GetAt(distance, name)
	return val, wrapErr(name, err)
}

func (i *Interpreter) assignVariable(name token.Token, expr ast.Expr, value Value) error {
	distance, ok := i.locals[expr]
	if !ok {
		return runtimeErr(name, "E9001", "unresolved reference to '%s'", name.Lexeme)
	}
	return wrapErr(name, i.env.AssignAt(distance, name, value))
}

// ============================================================
// Expression evaluation
// ============================================================

func (i *Interpreter) evalExpr(expr ast.Expr) (Value, error) {
	switch e := expr.(type) {
	case *ast.LiteralExpr:
		return literalValue(e.Value), nil
	case *ast.GroupingExpr:
		return i.evalExpr(e.Inner)
	case *ast.VariableExpr:
		return i.lookupVariable(e.Name, e)
	case *ast.AssignExpr:
		return i.evalAssign(e)
	case *ast.BinaryExpr:
		return i.evalBinary(e)
	case *ast.LogicalExpr:
		return i.evalLogical(e)
	case *ast.UnaryExpr:
		return i.evalUnary(e)
	case *ast.TernaryExpr:
		return i.evalTernary(e)
	case *ast.CallExpr:
		return i.evalCall(e)
	case *ast.FuncExpr:
		return &Function{Decl: e, Closure: i.env}, nil
	case *ast.GetExpr:
		return i.evalGet(e)
	case *ast.SetExpr:
		return i.evalSet(e)
	case *ast.ThisExpr:
		return i.lookupVariable(e.Keyword, e)
	case *ast.SuperExpr:
		return i.evalSuper(e)
	default:
		return nil, &RuntimeError{Code: "E9001", Message: fmt.Sprintf("unhandled expression type: %T", expr)}
	}
}

func literalValue(v any) Value {
	switch val := v.(type) {
	case bool:
		return BoolVal(val)
	case float64:
		return NumberVal(val)
	case string:
		return StringVal(val)
	default:
		return NoneVal{}
	}
}

// evalAssign handles = and the op= forms. A compound assignment reads the
// target before evaluating the right-hand side.
func (i *Interpreter) evalAssign(e *ast.AssignExpr) (Value, error) {
	var current Value
	if e.Op.Kind != token.ASSIGN {
		var err error
		if current, err = i.lookupVariable(e.Name, e); err != nil {
			return nil, err
		}
	}

	val, err := i.evalExpr(e.Value)
	if err != nil {
		return nil, err
	}
	if current != nil {
		if val, err = binaryOp(e.Op, e.Op.Kind.BinaryOf(), current, val); err != nil {
			return nil, err
		}
	}

	if err := i.assignVariable(e.Name, e, val); err != nil {
		return nil, err
	}
	return val, nil
}

func (i *Interpreter) evalBinary(e *ast.BinaryExpr) (Value, error) {
	left, err := i.evalExpr(e.Left)
	if err != nil {
		return nil, err
	}
	right, err := i.evalExpr(e.Right)
	if err != nil {
		return nil, err
	}
	if e.Op.Kind == token.COMMA {
		return right, nil
	}
	return binaryOp(e.Op, e.Op.Kind, left, right)
}

// binaryOp applies the operator kind to two evaluated operands; op is used
// for error attribution only.
func binaryOp(op token.Token, kind token.Kind, left, right Value) (Value, error) {
	switch kind {
	case token.EQ:
		return BoolVal(valuesEqual(left, right)), nil
	case token.NEQ:
		return BoolVal(!valuesEqual(left, right)), nil

	case token.PLUS:
		if l, ok := left.(NumberVal); ok {
			if r, ok := right.(NumberVal); ok {
				return l + r, nil
			}
		}
		if l, ok := left.(StringVal); ok {
			if r, ok := right.(StringVal); ok {
				return l + r, nil
			}
		}
		return nil, runtimeErr(op, "E4002", "operands must be two numbers or two strings")

	case token.STAR:
		if text, ok := left.(StringVal); ok {
			return repeatText(op, text, right)
		}
		if text, ok := right.(StringVal); ok {
			return repeatText(op, text, left)
		}
	}

	l, lok := left.(NumberVal)
	r, rok := right.(NumberVal)
	if !lok || !rok {
		return nil, runtimeErr(op, "E4001", "operands must be numbers")
	}

	switch kind {
	case token.MINUS:
		return l - r, nil
	case token.STAR:
		return l * r, nil
	case token.SLASH:
		return l / r, nil
	case token.STAR_STAR:
		return NumberVal(math.Pow(float64(l), float64(r))), nil
	case token.LT:
		return BoolVal(l < r), nil
	case token.LTE:
		return BoolVal(l <= r), nil
	case token.GT:
		return BoolVal(l > r), nil
	case token.GTE:
		return BoolVal(l >= r), nil
	default:
		return nil, runtimeErr(op, "E9001", "unknown binary operator '%s'", op.Lexeme)
	}
}

// repeatText implements text * count and count * text.
func repeatText(op token.Token, text StringVal, count Value) (Value, error) {
	n, ok := count.(NumberVal)
	if !ok {
		return nil, runtimeErr(op, "E4001", "operands must be numbers")
	}
	f := float64(n)
	if math.IsInf(f, 0) || math.IsNaN(f) || f != math.Trunc(f) {
		return nil, runtimeErr(op, "E4003", "text can only be repeated a whole number of times")
	}
	if f <= 0 || text == "" {
		return StringVal(""), nil
	}
	if f*float64(len(text)) > maxRepeatLen {
		return nil, runtimeErr(op, "E4003", "repeated text is too long")
	}
	return StringVal(strings.Repeat(string(text), int(f))), nil
}

func (i *Interpreter) evalLogical(e *ast.LogicalExpr) (Value, error) {
	left, err := i.evalExpr(e.Left)
	if err != nil {
		return nil, err
	}
	if e.Op.Kind == token.KW_OR {
		if IsTruthy(left) {
			return left, nil
		}
	} else if !IsTruthy(left) {
		return left, nil
	}
	return i.evalExpr(e.Right)
}

func (i *Interpreter) evalUnary(e *ast.UnaryExpr) (Value, error) {
	switch e.Op.Kind {
	case token.PLUS_PLUS, token.MINUS_MINUS:
		return i.evalIncrement(e)
	}

	operand, err := i.evalExpr(e.Operand)
	if err != nil {
		return nil, err
	}

	switch e.Op.Kind {
	case token.BANG:
		return BoolVal(!IsTruthy(operand)), nil
	case token.MINUS:
		n, ok := operand.(NumberVal)
		if !ok {
			return nil, runtimeErr(e.Op, "E4001", "operand must be a number")
		}
		return -n, nil
	default:
		return nil, runtimeErr(e.Op, "E9001", "unknown unary operator '%s'", e.Op.Lexeme)
	}
}

// evalIncrement implements prefix and postfix ++ and --.
func (i *Interpreter) evalIncrement(e *ast.UnaryExpr) (Value, error) {
	target, ok := e.Operand.(*ast.VariableExpr)
	if !ok {
		return nil, runtimeErr(e.Op, "E4004", "operand of '%s' must be a variable", e.Op.Lexeme)
	}
	current, err := i.lookupVariable(target.Name, target)
	if err != nil {
		return nil, err
	}
	old, ok := current.(NumberVal)
	if !ok {
		return nil, runtimeErr(e.Op, "E4001", "operand must be a number")
	}

	updated := old + 1
	if e.Op.Kind == token.MINUS_MINUS {
		updated = old - 1
	}
	if err := i.assignVariable(target.Name, target, updated); err != nil {
		return nil, err
	}
	if e.Postfix {
		return old, nil
	}
	return updated, nil
}

func (i *Interpreter) evalTernary(e *ast.TernaryExpr) (Value, error) {
	cond, err := i.evalExpr(e.Condition)
	if err != nil {
		return nil, err
	}
	if IsTruthy(cond) {
		return i.evalExpr(e.Then)
	}
	return i.evalExpr(e.Else)
}

func (i *Interpreter) evalCall(e *ast.CallExpr) (Value, error) {
	callee, err := i.evalExpr(e.Callee)
	if err != nil {
		return nil, err
	}

	args := make([]Value, len(e.Args))
	for idx, argExpr := range e.Args {
		val, err := i.evalExpr(argExpr)
		if err != nil {
			return nil, err
		}
		args[idx] = val
	}

	fn, ok := callee.(Callable)
	if !ok {
		return nil, runtimeErr(e.Paren, "E4005", "can only call functions and classes")
	}
	if len(args) != fn.Arity() {
		return nil, runtimeErr(e.Paren, "E4006", "expected %d arguments but got %d", fn.Arity(), len(args))
	}
	return i.call(e.Paren, fn, args)
}

// call invokes fn with depth accounting; errors from natives are attributed
// to at.
func (i *Interpreter) call(at token.Token, fn Callable, args []Value) (Value, error) {
	if i.depth >= maxCallDepth {
		return nil, runtimeErr(at, "E4013", "stack overflow")
	}
	i.depth++
	defer func() { i.depth-- }()

	val, err := fn.Call(i, args)
	return val, wrapErr(at, err)
}

// bindProperty binds method to this, invoking it immediately if it is a
// getter.
func (i *Interpreter) bindProperty(at token.Token, method *Function, this Value) (Value, error) {
	bound := method.Bind(this)
	if bound.IsGetter() {
		return i.call(at, bound, nil)
	}
	return bound, nil
}

func (i *Interpreter) evalGet(e *ast.GetExpr) (Value, error) {
	obj, err := i.evalExpr(e.Object)
	if err != nil {
		return nil, err
	}

	switch o := obj.(type) {
	case *Instance:
		if val, ok := o.Fields[e.Name.Lexeme]; ok {
			return val, nil
		}
		if method := o.Class.FindMethod(e.Name.Lexeme); method != nil {
			return i.bindProperty(e.Name, method, o)
		}
	case *Class:
		if method := o.FindClassMethod(e.Name.Lexeme); method != nil {
			return i.bindProperty(e.Name, method, o)
		}
	default:
		return nil, runtimeErr(e.Name, "E4008", "only instances have properties")
	}
	return nil, runtimeErr(e.Name, "E4007", "undefined property '%s'", e.Name.Lexeme)
}

func (i *Interpreter) evalSet(e *ast.SetExpr) (Value, error) {
	obj, err := i.evalExpr(e.Object)
	if err != nil {
		return nil, err
	}
	inst, ok := obj.(*Instance)
	if !ok {
		return nil, runtimeErr(e.Name, "E4009", "only instances have fields")
	}
	val, err := i.evalExpr(e.Value)
	if err != nil {
		return nil, err
	}
	inst.Fields[e.Name.Lexeme] = val
	return val, nil
}

// evalSuper looks the method up starting at the superclass and binds it to
// the current this, which lives one scope inside the super scope.
func (i *Interpreter) evalSuper(e *ast.SuperExpr) (Value, error) {
	distance, ok := i.locals[e]
	if !ok {
		return nil, runtimeErr(e.Keyword, "E9001", "unresolved reference to 'super'")
	}
	superVal, err := i.env.GetAt(distance, e.Keyword)
	if err != nil {
		return nil, wrapErr(e.Keyword, err)
	}
	this, err := i.env.GetAt(distance-1, token.Synthetic(token.KW_THIS, "this", e.Keyword.Span))
	if err != nil {
		return nil, wrapErr(e.Keyword, err)
	}
	superclass, ok := superVal.(*Class)
	if !ok {
		return nil, runtimeErr(e.Keyword, "E9001", "'super' is bound to %s", superVal.TypeName())
	}

	var method *Function
	if _, isClass := this.(*Class); isClass {
		method = superclass.FindClassMethod(e.Method.Lexeme)
	} else {
		method = superclass.FindMethod(e.Method.Lexeme)
	}
	if method == nil {
		return nil, runtimeErr(e.Method, "E4007", "undefined property '%s'", e.Method.Lexeme)
	}
	return i.bindProperty(e.Method, method, this)
}
