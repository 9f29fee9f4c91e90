// Package token defines the token types produced by the lexer.
package token

import (
	"fmt"
	"sort"

	"fail-lang/internal/span"
)

// Kind represents the type of a token.
type Kind int

const (
	// Special tokens
	ILLEGAL Kind = iota
	EOF

	// Literals
	IDENT  // identifiers: x, foo, myVar
	NUMBER // number literals: 123, 4.5
	STRING // string literals: "hello"

	// Single-character tokens
	LPAREN    // (
	RPAREN    // )
	LBRACE    // {
	RBRACE    // }
	COMMA     // ,
	DOT       // .
	SEMICOLON // ;
	COLON     // :
	QUESTION  // ?
	MINUS     // -
	PLUS      // +
	SLASH     // /
	STAR      // *
	BANG      // !
	ASSIGN    // =
	LT        // <
	GT        // >

	// Two- and three-character operators
	NEQ         // !=
	EQ          // ==
	LTE         // <=
	GTE         // >=
	PLUS_PLUS   // ++
	MINUS_MINUS // --
	STAR_STAR   // **

	// Compound assignment
	PLUS_ASSIGN      // +=
	MINUS_ASSIGN     // -=
	STAR_ASSIGN      // *=
	SLASH_ASSIGN     // /=
	STAR_STAR_ASSIGN // **=

	// Keywords
	KW_AND
	KW_CLASS
	KW_ELSE
	KW_FALSE
	KW_FUN
	KW_FOR
	KW_IF
	KW_NONE
	KW_OR
	KW_PRINT
	KW_RETURN
	KW_SUPER
	KW_THIS
	KW_TRUE
	KW_VAR
	KW_DO
	KW_WHILE
	KW_BREAK
	KW_CONTINUE
)

var kindNames = map[Kind]string{
	ILLEGAL: "ILLEGAL",
	EOF:     "EOF",

	IDENT:  "IDENT",
	NUMBER: "NUMBER",
	STRING: "STRING",

	LPAREN:    "(",
	RPAREN:    ")",
	LBRACE:    "{",
	RBRACE:    "}",
	COMMA:     ",",
	DOT:       ".",
	SEMICOLON: ";",
	COLON:     ":",
	QUESTION:  "?",
	MINUS:     "-",
	PLUS:      "+",
	SLASH:     "/",
	STAR:      "*",
	BANG:      "!",
	ASSIGN:    "=",
	LT:        "<",
	GT:        ">",

	NEQ:         "!=",
	EQ:          "==",
	LTE:         "<=",
	GTE:         ">=",
	PLUS_PLUS:   "++",
	MINUS_MINUS: "--",
	STAR_STAR:   "**",

	PLUS_ASSIGN:      "+=",
	MINUS_ASSIGN:     "-=",
	STAR_ASSIGN:      "*=",
	SLASH_ASSIGN:     "/=",
	STAR_STAR_ASSIGN: "**=",

	KW_AND:      "and",
	KW_CLASS:    "class",
	KW_ELSE:     "else",
	KW_FALSE:    "false",
	KW_FUN:      "fun",
	KW_FOR:      "for",
	KW_IF:       "if",
	KW_NONE:     "none",
	KW_OR:       "or",
	KW_PRINT:    "print",
	KW_RETURN:   "return",
	KW_SUPER:    "super",
	KW_THIS:     "this",
	KW_TRUE:     "true",
	KW_VAR:      "var",
	KW_DO:       "do",
	KW_WHILE:    "while",
	KW_BREAK:    "break",
	KW_CONTINUE: "continue",
}

// String returns the human-readable name for a token kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// IsKeyword returns true if the kind is a keyword.
func (k Kind) IsKeyword() bool {
	return k >= KW_AND && k <= KW_CONTINUE
}

// IsLiteral returns true if the kind is a literal (ident/number/string).
func (k Kind) IsLiteral() bool {
	return k >= IDENT && k <= STRING
}

// IsCompoundAssign reports whether k is one of the op= operators.
func (k Kind) IsCompoundAssign() bool {
	return k >= PLUS_ASSIGN && k <= STAR_STAR_ASSIGN
}

// BinaryOf maps a compound assignment operator to the binary operator it
// combines with. It returns k unchanged for any other kind.
func (k Kind) BinaryOf() Kind {
	switch k {
	case PLUS_ASSIGN:
		return PLUS
	case MINUS_ASSIGN:
		return MINUS
	case STAR_ASSIGN:
		return STAR
	case SLASH_ASSIGN:
		return SLASH
	case STAR_STAR_ASSIGN:
		return STAR_STAR
	default:
		return k
	}
}

var keywords = map[string]Kind{
	"and":      KW_AND,
	"class":    KW_CLASS,
	"else":     KW_ELSE,
	"false":    KW_FALSE,
	"fun":      KW_FUN,
	"for":      KW_FOR,
	"if":       KW_IF,
	"none":     KW_NONE,
	"or":       KW_OR,
	"print":    KW_PRINT,
	"return":   KW_RETURN,
	"super":    KW_SUPER,
	"this":     KW_THIS,
	"true":     KW_TRUE,
	"var":      KW_VAR,
	"do":       KW_DO,
	"while":    KW_WHILE,
	"break":    KW_BREAK,
	"continue": KW_CONTINUE,
}

// LookupIdent returns the keyword Kind for ident, or IDENT if it is not a keyword.
func LookupIdent(ident string) Kind {
	if kind, ok := keywords[ident]; ok {
		return kind
	}
	return IDENT
}

// Keywords returns every reserved word, sorted.
func Keywords() []string {
	words := make([]string, 0, len(keywords))
	for word := range keywords {
		words = append(words, word)
	}
	sort.Strings(words)
	return words
}

// Token is a lexical token. Lexeme is the raw source text; Literal holds the
// decoded value for NUMBER (float64) and STRING (string) tokens.
type Token struct {
	Kind    Kind      `json:"kind"`
	Lexeme  string    `json:"lexeme"`
	Literal any       `json:"literal,omitempty"`
	Span    span.Span `json:"span"`
}

// Line returns the 1-based source line of the token.
func (t Token) Line() int { return t.Span.Start.Line }

// String returns a human-readable representation of the token.
func (t Token) String() string {
	return fmt.Sprintf("%s %q %s", t.Kind, t.Lexeme, t.Span.Start)
}

// Synthetic builds a token that does not come from source text, used when
// the parser desugars constructs (e.g. the implicit `true` of `for (;;)`).
func Synthetic(kind Kind, lexeme string, at span.Span) Token {
	return Token{Kind: kind, Lexeme: lexeme, Span: at}
}
