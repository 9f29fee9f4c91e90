// Package diag provides diagnostic (error/warning) types and the collector
// that every phase reports into.
package diag

import (
	"fmt"

	"fail-lang/internal/span"
)

// Severity indicates the severity of a diagnostic.
type Severity int

const (
	Error Severity = iota
	Warning
)

func (s Severity) String() string {
	switch s {
	case Error:
		return "error"
	case Warning:
		return "warning"
	default:
		return "unknown"
	}
}

// Stage identifies which phase produced a diagnostic. The driver maps
// errors from different stages to different outcomes.
type Stage int

const (
	StageSyntax Stage = iota // lexer and parser
	StageResolve
	StageRuntime
)

func (s Stage) String() string {
	switch s {
	case StageSyntax:
		return "syntax"
	case StageResolve:
		return "resolve"
	case StageRuntime:
		return "runtime"
	default:
		return "unknown"
	}
}

// Diagnostic represents a single finding.
type Diagnostic struct {
	Code     string    `json:"code"`             // stable code, e.g. "E3001"
	Severity Severity  `json:"severity"`         // error or warning
	Stage    Stage     `json:"stage"`            // producing phase
	Message  string    `json:"message"`          // human-readable description
	Span     span.Span `json:"span"`             // source location
	Lexeme   string    `json:"lexeme,omitempty"` // offending token text, if any
	Hint     string    `json:"hint,omitempty"`   // optional hint
}

// String returns a human-readable representation of the diagnostic.
func (d Diagnostic) String() string {
	loc := fmt.Sprintf("%d:%d", d.Span.Start.Line, d.Span.Start.Column)
	msg := fmt.Sprintf("[%s] %s at %s", d.Code, d.Severity, loc)
	if d.Lexeme != "" {
		msg += fmt.Sprintf(" near '%s'", d.Lexeme)
	}
	msg += ": " + d.Message
	if d.Hint != "" {
		msg += " (hint: " + d.Hint + ")"
	}
	return msg
}

// Errorf creates an error diagnostic at the given span.
func Errorf(code string, s span.Span, format string, args ...interface{}) Diagnostic {
	return Diagnostic{
		Code:     code,
		Severity: Error,
		Message:  fmt.Sprintf(format, args...),
		Span:     s,
	}
}

// Warningf creates a warning diagnostic at the given span.
func Warningf(code string, s span.Span, format string, args ...interface{}) Diagnostic {
	return Diagnostic{
		Code:     code,
		Severity: Warning,
		Message:  fmt.Sprintf(format, args...),
		Span:     s,
	}
}

// At returns a copy of d attributed to stage and lexeme.
func (d Diagnostic) At(stage Stage, lexeme string) Diagnostic {
	d.Stage = stage
	d.Lexeme = lexeme
	return d
}
