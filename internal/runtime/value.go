// Package runtime implements the interpreter and runtime value system for fail.
package runtime

import (
	"fmt"
	"math"
	"strconv"

	"fail-lang/internal/ast"
)

// Value is the interface for all runtime values.
type Value interface {
	TypeName() string
	String() string
}

// Callable is implemented by every value that can appear as a callee.
type Callable interface {
	Value
	Arity() int
	Call(i *Interpreter, args []Value) (Value, error)
}

// ---- Primitive values ----

// NoneVal represents the absence of a value.
type NoneVal struct{}

func (v NoneVal) TypeName() string { return "none" }
func (v NoneVal) String() string   { return "none" }

// BoolVal represents a boolean value.
type BoolVal bool

func (v BoolVal) TypeName() string { return "bool" }
func (v BoolVal) String() string   { return strconv.FormatBool(bool(v)) }

// NumberVal represents a number. All numbers are float64.
type NumberVal float64

func (v NumberVal) TypeName() string { return "number" }
func (v NumberVal) String() string   { return FormatNumber(float64(v)) }

// StringVal represents a text value.
type StringVal string

func (v StringVal) TypeName() string { return "string" }
func (v StringVal) String() string   { return string(v) }

// FormatNumber renders n the way print shows it: the shortest decimal that
// round-trips, without a fractional part for integral values. Very large and
// very small magnitudes use exponent form.
func FormatNumber(n float64) string {
	switch {
	case math.IsInf(n, 1):
		return "Infinity"
	case math.IsInf(n, -1):
		return "-Infinity"
	case math.IsNaN(n):
		return "NaN"
	}
	if abs := math.Abs(n); abs != 0 && (abs < 1e-6 || abs >= 1e21) {
		return strconv.FormatFloat(n, 'g', -1, 64)
	}
	return strconv.FormatFloat(n, 'f', -1, 64)
}

// ---- Callable values ----

// Function is a user-defined function, method or lambda together with the
// environment it closes over.
type Function struct {
	Name          string // empty for lambdas
	Decl          *ast.FuncExpr
	Closure       *Environment
	IsInitializer bool
}

func (f *Function) TypeName() string { return "function" }
func (f *Function) String() string {
	if f.Name == "" {
		return "<fn>"
	}
	return "<fn " + f.Name + ">"
}

// Arity returns the number of declared parameters.
func (f *Function) Arity() int { return len(f.Decl.Params) }

// IsGetter reports whether f was declared without a parameter list.
func (f *Function) IsGetter() bool { return f.Decl.Getter }

// Bind returns a copy of f whose closure is a new environment holding this.
func (f *Function) Bind(this Value) *Function {
	env := NewEnvironment(f.Closure)
	env.Define("this", this)
	return &Function{
		Name:          f.Name,
		Decl:          f.Decl,
		Closure:       env,
		IsInitializer: f.IsInitializer,
	}
}

// Call runs the body in a fresh environment holding the parameters.
// Initializers always yield the bound this.
func (f *Function) Call(i *Interpreter, args []Value) (Value, error) {
	env := NewEnvironment(f.Closure)
	for idx, param := range f.Decl.Params {
		env.Define(param.Lexeme, args[idx])
	}

	result, err := i.execBlock(f.Decl.Body, env)
	if err != nil {
		return nil, err
	}

	if f.IsInitializer {
		return f.Closure.values["this"], nil
	}
	if result.Signal == SigReturn {
		return result.Value, nil
	}
	return NoneVal{}, nil
}

// Class is a class value. Calling it constructs an instance.
type Class struct {
	Name         string
	Superclass   *Class
	Methods      map[string]*Function
	ClassMethods map[string]*Function
}

func (c *Class) TypeName() string { return "class" }
func (c *Class) String() string   { return c.Name }

// FindMethod looks up an instance method through the superclass chain.
func (c *Class) FindMethod(name string) *Function {
	for cls := c; cls != nil; cls = cls.Superclass {
		if m, ok := cls.Methods[name]; ok {
			return m
		}
	}
	return nil
}

// FindClassMethod looks up a class-level method through the superclass chain.
func (c *Class) FindClassMethod(name string) *Function {
	for cls := c; cls != nil; cls = cls.Superclass {
		if m, ok := cls.ClassMethods[name]; ok {
			return m
		}
	}
	return nil
}

// Arity is the arity of init, or 0 when the class has none.
func (c *Class) Arity() int {
	if init := c.FindMethod("init"); init != nil {
		return init.Arity()
	}
	return 0
}

// Call creates an instance and runs init on it, if present.
func (c *Class) Call(i *Interpreter, args []Value) (Value, error) {
	inst := NewInstance(c)
	if init := c.FindMethod("init"); init != nil {
		if _, err := init.Bind(inst).Call(i, args); err != nil {
			return nil, err
		}
	}
	return inst, nil
}

// Instance is an object created by calling a class.
type Instance struct {
	Class  *Class
	Fields map[string]Value
}

// NewInstance creates an instance with no fields.
func NewInstance(c *Class) *Instance {
	return &Instance{Class: c, Fields: make(map[string]Value)}
}

func (v *Instance) TypeName() string { return "instance" }
func (v *Instance) String() string   { return v.Class.Name + " instance" }

// NativeFn is the Go signature for native functions.
type NativeFn func(args []Value) (Value, error)

// Builtin is a native function implemented in Go.
type Builtin struct {
	Name   string
	Params int
	Fn     NativeFn
}

func (b *Builtin) TypeName() string { return "native" }
func (b *Builtin) String() string   { return "<native fn>" }

// Arity returns the fixed parameter count.
func (b *Builtin) Arity() int { return b.Params }

// Call invokes the Go implementation.
func (b *Builtin) Call(_ *Interpreter, args []Value) (Value, error) {
	v, err := b.Fn(args)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name, err)
	}
	return v, nil
}

// ---- Truthiness ----

// IsTruthy returns the truthiness of a value: none and false are falsy.
func IsTruthy(v Value) bool {
	switch val := v.(type) {
	case NoneVal:
		return false
	case BoolVal:
		return bool(val)
	default:
		return true
	}
}

// ---- Equality ----

// valuesEqual compares by kind: values of different kinds are never equal,
// primitives compare by value, callables and instances by identity.
func valuesEqual(a, b Value) bool {
	switch av := a.(type) {
	case NoneVal:
		_, ok := b.(NoneVal)
		return ok
	case BoolVal:
		bv, ok := b.(BoolVal)
		return ok && av == bv
	case NumberVal:
		bv, ok := b.(NumberVal)
		return ok && av == bv
	case StringVal:
		bv, ok := b.(StringVal)
		return ok && av == bv
	}
	// Reference equality for functions, classes, instances and natives
	return a == b
}
