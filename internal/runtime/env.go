package runtime

import (
	"errors"
	"fmt"

	"fail-lang/internal/token"
)

// ErrScopeMismatch reports that a resolved distance does not match the
// runtime environment chain. It signals a resolver/interpreter bug, never a
// user error.
var ErrScopeMismatch = errors.New("scope mismatch")

// Environment represents a variable scope with a parent chain.
type Environment struct {
	values map[string]Value
	parent *Environment
}

// NewEnvironment creates a new environment with an optional parent scope.
func NewEnvironment(parent *Environment) *Environment {
	return &Environment{
		values: make(map[string]Value),
		parent: parent,
	}
}

// Define binds name in this environment. Redefinition overwrites.
func (e *Environment) Define(name string, value Value) {
	e.values[name] = value
}

// Get looks up a variable by walking the scope chain.
func (e *Environment) Get(name token.Token) (Value, error) {
	for env := e; env != nil; env = env.parent {
		if val, exists := env.values[name.Lexeme]; exists {
			return val, nil
		}
	}
	return nil, undefinedVariable(name)
}

// Assign sets an existing variable found by walking the scope chain.
func (e *Environment) Assign(name token.Token, value Value) error {
	for env := e; env != nil; env = env.parent {
		if _, exists := env.values[name.Lexeme]; exists {
			env.values[name.Lexeme] = value
			return nil
		}
	}
	return undefinedVariable(name)
}

// Ancestor returns the environment exactly distance hops up the chain.
func (e *Environment) Ancestor(distance int) (*Environment, error) {
	env := e
	for hop := 0; hop < distance; hop++ {
		if env.parent == nil {
			return nil, fmt.Errorf("%w: distance %d exceeds chain depth %d", ErrScopeMismatch, distance, hop)
		}
		env = env.parent
	}
	return env, nil
}

// GetAt reads name from the environment distance hops up. A miss in the
// global environment is an undefined variable; a miss anywhere else is a
// scope mismatch.
func (e *Environment) GetAt(distance int, name token.Token) (Value, error) {
	env, err := e.Ancestor(distance)
	if err != nil {
		return nil, err
	}
	if val, ok := env.values[name.Lexeme]; ok {
		return val, nil
	}
	if env.parent == nil {
		return nil, undefinedVariable(name)
	}
	return nil, fmt.Errorf("%w: '%s' not found at distance %d", ErrScopeMismatch, name.Lexeme, distance)
}

// AssignAt writes name in the environment distance hops up, with the same
// failure rules as GetAt.
func (e *Environment) AssignAt(distance int, name token.Token, value Value) error {
	env, err := e.Ancestor(distance)
	if err != nil {
		return err
	}
	if _, ok := env.values[name.Lexeme]; ok {
		env.values[name.Lexeme] = value
		return nil
	}
	if env.parent == nil {
		return undefinedVariable(name)
	}
	return fmt.Errorf("%w: '%s' not found at distance %d", ErrScopeMismatch, name.Lexeme, distance)
}

// Names returns the names bound directly in this environment.
func (e *Environment) Names() []string {
	names := make([]string, 0, len(e.values))
	for name := range e.values {
		names = append(names, name)
	}
	return names
}

func undefinedVariable(name token.Token) *RuntimeError {
	return runtimeErr(name, "E4011", "undefined variable '%s'", name.Lexeme)
}
