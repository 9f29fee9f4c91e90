// Package lexer implements the lexical analysis (tokenization) for fail.
package lexer

import (
	"fmt"
	"strconv"
	"strings"

	"fail-lang/internal/diag"
	"fail-lang/internal/span"
	"fail-lang/internal/token"
)

// Lexer tokenizes source code into a sequence of tokens.
type Lexer struct {
	source   string
	filename string

	pos  int // current read position in source
	line int // current line (1-based)
	col  int // current column (1-based)

	diags []diag.Diagnostic
}

// New creates a new Lexer for the given source text.
func New(source, filename string) *Lexer {
	return &Lexer{
		source:   source,
		filename: filename,
		line:     1,
		col:      1,
	}
}

// Tokenize scans the entire source and returns all tokens and diagnostics.
// The token slice always ends with an EOF token.
func (l *Lexer) Tokenize() ([]token.Token, []diag.Diagnostic) {
	var tokens []token.Token
	for {
		tok := l.nextToken()
		tokens = append(tokens, tok)
		if tok.Kind == token.EOF {
			break
		}
	}
	return tokens, l.diags
}

// ---- internal helpers ----

func (l *Lexer) atEnd() bool { return l.pos >= len(l.source) }

// peek returns the current character without advancing, or 0 if at end.
func (l *Lexer) peek() byte {
	if l.pos >= len(l.source) {
		return 0
	}
	return l.source[l.pos]
}

// peekNext returns the character after current, or 0 if at end.
func (l *Lexer) peekNext() byte {
	if l.pos+1 >= len(l.source) {
		return 0
	}
	return l.source[l.pos+1]
}

// advance consumes the current character and returns it.
func (l *Lexer) advance() byte {
	ch := l.source[l.pos]
	l.pos++
	if ch == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return ch
}

// match consumes the current character if it equals want.
func (l *Lexer) match(want byte) bool {
	if l.peek() != want || l.atEnd() {
		return false
	}
	l.advance()
	return true
}

func (l *Lexer) curPos() span.Position {
	return span.Position{Offset: l.pos, Line: l.line, Column: l.col}
}

func (l *Lexer) makeSpan(start span.Position) span.Span {
	return span.Span{Start: start, End: l.curPos()}
}

func (l *Lexer) addError(code string, s span.Span, msg string) {
	l.diags = append(l.diags, diag.Errorf(code, s, "%s", msg).At(diag.StageSyntax, ""))
}

func (l *Lexer) make(kind token.Kind, start span.Position) token.Token {
	return token.Token{Kind: kind, Lexeme: l.source[start.Offset:l.pos], Span: l.makeSpan(start)}
}

// skipTrivia skips whitespace, line comments and (nested) block comments.
func (l *Lexer) skipTrivia() {
	for !l.atEnd() {
		ch := l.peek()
		switch {
		case ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n':
			l.advance()
		case ch == '/' && l.peekNext() == '/':
			for !l.atEnd() && l.peek() != '\n' {
				l.advance()
			}
		case ch == '/' && l.peekNext() == '*':
			l.skipBlockComment()
		default:
			return
		}
	}
}

func (l *Lexer) skipBlockComment() {
	start := l.curPos()
	l.advance() // /
	l.advance() // *
	depth := 1
	for !l.atEnd() {
		switch {
		case l.peek() == '/' && l.peekNext() == '*':
			l.advance()
			l.advance()
			depth++
		case l.peek() == '*' && l.peekNext() == '/':
			l.advance()
			l.advance()
			depth--
			if depth == 0 {
				return
			}
		default:
			l.advance()
		}
	}
	l.addError("E1004", l.makeSpan(start), "unterminated block comment")
}

// ---- token reading ----

func (l *Lexer) nextToken() token.Token {
	l.skipTrivia()

	start := l.curPos()
	if l.atEnd() {
		return token.Token{Kind: token.EOF, Span: l.makeSpan(start)}
	}

	ch := l.peek()
	switch {
	case ch == '"':
		return l.readString(start)
	case isDigit(ch):
		return l.readNumber(start)
	case isIdentStart(ch):
		return l.readIdentifier(start)
	default:
		return l.readOperator(start)
	}
}

// readString reads a double-quoted string literal. Strings may span lines.
func (l *Lexer) readString(start span.Position) token.Token {
	l.advance() // opening "
	var value strings.Builder

	for !l.atEnd() {
		ch := l.peek()
		if ch == '"' {
			l.advance()
			tok := l.make(token.STRING, start)
			tok.Literal = value.String()
			return tok
		}
		if ch == '\\' {
			l.advance()
			if l.atEnd() {
				break
			}
			esc := l.advance()
			switch esc {
			case 'n':
				value.WriteByte('\n')
			case 't':
				value.WriteByte('\t')
			case 'r':
				value.WriteByte('\r')
			case 'b':
				value.WriteByte('\b')
			case '\\':
				value.WriteByte('\\')
			case '"':
				value.WriteByte('"')
			default:
				value.WriteByte('\\')
				value.WriteByte(esc)
			}
			continue
		}
		value.WriteByte(l.advance())
	}

	l.addError("E1001", l.makeSpan(start), "unterminated string literal")
	tok := l.make(token.STRING, start)
	tok.Literal = value.String()
	return tok
}

// readNumber reads an integer or decimal literal. All numbers are float64.
func (l *Lexer) readNumber(start span.Position) token.Token {
	for isDigit(l.peek()) {
		l.advance()
	}
	if l.peek() == '.' && isDigit(l.peekNext()) {
		l.advance() // '.'
		for isDigit(l.peek()) {
			l.advance()
		}
	}

	tok := l.make(token.NUMBER, start)
	val, err := strconv.ParseFloat(tok.Lexeme, 64)
	if err != nil {
		l.addError("E1005", tok.Span, fmt.Sprintf("invalid number literal '%s'", tok.Lexeme))
	}
	tok.Literal = val
	return tok
}

// readIdentifier reads an identifier or keyword.
func (l *Lexer) readIdentifier(start span.Position) token.Token {
	for isIdentPart(l.peek()) {
		l.advance()
	}
	tok := l.make(token.IDENT, start)
	tok.Kind = token.LookupIdent(tok.Lexeme)
	return tok
}

// readOperator reads an operator or delimiter token.
func (l *Lexer) readOperator(start span.Position) token.Token {
	ch := l.advance()

	switch ch {
	case '(':
		return l.make(token.LPAREN, start)
	case ')':
		return l.make(token.RPAREN, start)
	case '{':
		return l.make(token.LBRACE, start)
	case '}':
		return l.make(token.RBRACE, start)
	case ',':
		return l.make(token.COMMA, start)
	case '.':
		return l.make(token.DOT, start)
	case ';':
		return l.make(token.SEMICOLON, start)
	case ':':
		return l.make(token.COLON, start)
	case '?':
		return l.make(token.QUESTION, start)
	case '-':
		switch {
		case l.match('-'):
			return l.make(token.MINUS_MINUS, start)
		case l.match('='):
			return l.make(token.MINUS_ASSIGN, start)
		}
		return l.make(token.MINUS, start)
	case '+':
		switch {
		case l.match('+'):
			return l.make(token.PLUS_PLUS, start)
		case l.match('='):
			return l.make(token.PLUS_ASSIGN, start)
		}
		return l.make(token.PLUS, start)
	case '*':
		if l.match('*') {
			if l.match('=') {
				return l.make(token.STAR_STAR_ASSIGN, start)
			}
			return l.make(token.STAR_STAR, start)
		}
		if l.match('=') {
			return l.make(token.STAR_ASSIGN, start)
		}
		return l.make(token.STAR, start)
	case '/':
		if l.match('=') {
			return l.make(token.SLASH_ASSIGN, start)
		}
		return l.make(token.SLASH, start)
	case '!':
		if l.match('=') {
			return l.make(token.NEQ, start)
		}
		return l.make(token.BANG, start)
	case '=':
		if l.match('=') {
			return l.make(token.EQ, start)
		}
		return l.make(token.ASSIGN, start)
	case '<':
		if l.match('=') {
			return l.make(token.LTE, start)
		}
		return l.make(token.LT, start)
	case '>':
		if l.match('=') {
			return l.make(token.GTE, start)
		}
		return l.make(token.GT, start)
	default:
		tok := l.make(token.ILLEGAL, start)
		l.addError("E1003", tok.Span, fmt.Sprintf("unexpected character: '%c'", ch))
		return tok
	}
}

// ---- character classification ----

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isIdentStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch)
}
