// Package parser implements the syntax analysis for fail.
// It uses recursive descent for statements and declarations and precedence
// climbing for the binary operator tiers.
package parser

import (
	"fmt"

	"fail-lang/internal/ast"
	"fail-lang/internal/diag"
	"fail-lang/internal/span"
	"fail-lang/internal/token"
)

// maxArgs bounds parameter and argument lists.
const maxArgs = 255

// ============================================================
// Binding power (precedence) levels
// ============================================================

const (
	bpNone       = 0
	bpOr         = 10 // or
	bpAnd        = 20 // and
	bpEquality   = 30 // == !=
	bpComparison = 40 // < <= > >=
	bpTerm       = 50 // + -
	bpFactor     = 60 // * /
	bpExponent   = 70 // **
)

// infixBP returns the binding power of a binary operator, or bpNone.
func infixBP(kind token.Kind) int {
	switch kind {
	case token.KW_OR:
		return bpOr
	case token.KW_AND:
		return bpAnd
	case token.EQ, token.NEQ:
		return bpEquality
	case token.LT, token.LTE, token.GT, token.GTE:
		return bpComparison
	case token.PLUS, token.MINUS:
		return bpTerm
	case token.STAR, token.SLASH:
		return bpFactor
	case token.STAR_STAR:
		return bpExponent
	default:
		return bpNone
	}
}

// ============================================================
// Parser
// ============================================================

// Parser performs syntax analysis on a stream of tokens.
type Parser struct {
	tokens []token.Token
	pos    int
	diags  []diag.Diagnostic
}

// bailout unwinds the parser to the nearest declaration boundary after a
// syntax error has been recorded.
type bailout struct{}

// New creates a new parser from a token slice ending in EOF.
func New(tokens []token.Token) *Parser {
	if len(tokens) == 0 || tokens[len(tokens)-1].Kind != token.EOF {
		tokens = append(tokens, token.Token{Kind: token.EOF})
	}
	return &Parser{tokens: tokens}
}

// ParseFile parses a whole program and returns the AST root and diagnostics.
// Statements that failed to parse are dropped; parsing resumes at the next
// statement boundary so several errors can be reported at once.
func (p *Parser) ParseFile() (*ast.File, []diag.Diagnostic) {
	file := &ast.File{}
	startPos := p.peek().Span.Start

	for !p.isAtEnd() {
		file.Stmts = append(file.Stmts, p.declaration()...)
	}

	file.Span = span.Span{Start: startPos, End: p.peek().Span.End}
	return file, p.diags
}

// ParseExpression parses input consisting of exactly one expression, as
// typed at the interactive prompt.
func (p *Parser) ParseExpression() (expr ast.Expr, diags []diag.Diagnostic) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(bailout); !ok {
				panic(r)
			}
			expr = nil
			diags = p.diags
		}
	}()

	expr = p.expression()
	if !p.isAtEnd() {
		tok := p.peek()
		p.errorAt(tok, "E2002", fmt.Sprintf("unexpected token '%s' after expression", tok.Lexeme))
		return nil, p.diags
	}
	return expr, p.diags
}

// ---- navigation helpers ----

func (p *Parser) peek() token.Token {
	return p.tokens[p.pos]
}

func (p *Parser) peekKind() token.Kind {
	return p.peek().Kind
}

func (p *Parser) peekNextKind() token.Kind {
	if p.pos+1 >= len(p.tokens) {
		return token.EOF
	}
	return p.tokens[p.pos+1].Kind
}

func (p *Parser) previous() token.Token {
	return p.tokens[p.pos-1]
}

func (p *Parser) advance() token.Token {
	tok := p.peek()
	if !p.isAtEnd() {
		p.pos++
	}
	return tok
}

func (p *Parser) check(kind token.Kind) bool {
	return p.peekKind() == kind
}

// match consumes the current token if it has one of the given kinds.
func (p *Parser) match(kinds ...token.Kind) bool {
	for _, k := range kinds {
		if p.check(k) {
			p.advance()
			return true
		}
	}
	return false
}

// expect consumes a token of the given kind or bails out with msg.
func (p *Parser) expect(kind token.Kind, msg string) token.Token {
	if p.check(kind) {
		return p.advance()
	}
	p.fail(p.peek(), "E2001", msg)
	return token.Token{}
}

func (p *Parser) isAtEnd() bool {
	return p.peekKind() == token.EOF
}

// errorAt records a syntax error without unwinding.
func (p *Parser) errorAt(tok token.Token, code, msg string) {
	lexeme := tok.Lexeme
	if tok.Kind == token.EOF {
		lexeme = "end"
	}
	p.diags = append(p.diags, diag.Errorf(code, tok.Span, "%s", msg).At(diag.StageSyntax, lexeme))
}

// fail records a syntax error and unwinds to the enclosing declaration.
func (p *Parser) fail(tok token.Token, code, msg string) {
	p.errorAt(tok, code, msg)
	panic(bailout{})
}

// ============================================================
// Error recovery
// ============================================================

// synchronize skips tokens until a likely statement boundary.
func (p *Parser) synchronize() {
	p.advance()
	for !p.isAtEnd() {
		if p.previous().Kind == token.SEMICOLON {
			return
		}
		switch p.peekKind() {
		case token.KW_CLASS, token.KW_FUN, token.KW_VAR, token.KW_FOR, token.KW_IF,
			token.KW_WHILE, token.KW_DO, token.KW_PRINT, token.KW_RETURN,
			token.KW_BREAK, token.KW_CONTINUE:
			return
		}
		p.advance()
	}
}

// ============================================================
// Declarations
// ============================================================

// declaration parses one declaration or statement. A multi-name var
// declaration yields several statements; a failed parse yields none.
func (p *Parser) declaration() (stmts []ast.Stmt) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(bailout); !ok {
				panic(r)
			}
			p.synchronize()
			stmts = nil
		}
	}()

	switch {
	case p.check(token.KW_CLASS):
		return []ast.Stmt{p.classDecl()}
	case p.check(token.KW_FUN) && p.peekNextKind() == token.IDENT:
		return []ast.Stmt{p.funDecl()}
	case p.check(token.KW_VAR):
		return p.varDecls()
	default:
		return []ast.Stmt{p.statement()}
	}
}

// classDecl parses: class IDENT [< IDENT] { members }
func (p *Parser) classDecl() *ast.ClassDecl {
	start := p.advance() // consume 'class'
	decl := &ast.ClassDecl{}
	decl.Name = p.expect(token.IDENT, "expect class name")

	if p.match(token.LT) {
		super := p.expect(token.IDENT, "expect superclass name")
		decl.Superclass = &ast.VariableExpr{
			ExprBase: makeExprBase(super.Span.Start, super.Span.End),
			Name:     super,
		}
	}

	p.expect(token.LBRACE, "expect '{' before class body")
	for !p.check(token.RBRACE) && !p.isAtEnd() {
		if p.match(token.KW_CLASS) {
			decl.ClassMethods = append(decl.ClassMethods, p.method())
		} else {
			decl.Methods = append(decl.Methods, p.method())
		}
	}
	p.expect(token.RBRACE, "expect '}' after class body")

	decl.Span = p.makeSpan(start.Span.Start)
	return decl
}

// method parses: IDENT [( params )] block. Omitting the parameter list
// declares a getter.
func (p *Parser) method() *ast.FuncDecl {
	name := p.expect(token.IDENT, "expect method name")
	fn := &ast.FuncExpr{Keyword: name}
	if p.check(token.LPAREN) {
		fn.Params = p.paramList()
	} else {
		fn.Getter = true
	}
	fn.Body = p.block()
	fn.ExprBase = makeExprBase(name.Span.Start, p.prevEnd())
	return &ast.FuncDecl{
		StmtBase: makeStmtBase(name.Span.Start, p.prevEnd()),
		Name:     name,
		Func:     fn,
	}
}

// funDecl parses: fun IDENT ( params ) block
func (p *Parser) funDecl() *ast.FuncDecl {
	start := p.advance() // consume 'fun'
	name := p.expect(token.IDENT, "expect function name")
	fn := &ast.FuncExpr{Keyword: start}
	fn.Params = p.paramList()
	fn.Body = p.block()
	fn.ExprBase = makeExprBase(start.Span.Start, p.prevEnd())
	return &ast.FuncDecl{
		StmtBase: makeStmtBase(start.Span.Start, p.prevEnd()),
		Name:     name,
		Func:     fn,
	}
}

// paramList parses: ( ident, ident, ... )
func (p *Parser) paramList() []token.Token {
	var params []token.Token
	p.expect(token.LPAREN, "expect '(' before parameters")
	if !p.check(token.RPAREN) {
		for {
			if len(params) >= maxArgs {
				p.errorAt(p.peek(), "E2004", fmt.Sprintf("cannot have more than %d parameters", maxArgs))
			}
			params = append(params, p.expect(token.IDENT, "expect parameter name"))
			if !p.match(token.COMMA) {
				break
			}
		}
	}
	p.expect(token.RPAREN, "expect ')' after parameters")
	return params
}

// varDecls parses: var IDENT [= expr] {, IDENT = expr} ;
// Every name after the first must be initialized.
func (p *Parser) varDecls() []ast.Stmt {
	start := p.advance() // consume 'var'
	var stmts []ast.Stmt

	name := p.expect(token.IDENT, "expect variable name")
	stmt := &ast.VarStmt{Name: name}
	if p.match(token.ASSIGN) {
		stmt.Init = p.assignment()
	}
	stmt.StmtBase = makeStmtBase(start.Span.Start, p.prevEnd())
	stmts = append(stmts, stmt)

	for p.match(token.COMMA) {
		name := p.expect(token.IDENT, "expect variable name")
		p.expect(token.ASSIGN, "expect assignment in multiple variable declaration")
		init := p.assignment()
		stmts = append(stmts, &ast.VarStmt{
			StmtBase: makeStmtBase(name.Span.Start, p.prevEnd()),
			Name:     name,
			Init:     init,
		})
	}

	p.expect(token.SEMICOLON, "expect ';' after variable declaration")
	return stmts
}

// ============================================================
// Statements
// ============================================================

func (p *Parser) statement() ast.Stmt {
	switch p.peekKind() {
	case token.KW_FOR:
		return p.forStmt()
	case token.KW_IF:
		return p.ifStmt()
	case token.KW_PRINT:
		return p.printStmt()
	case token.KW_RETURN:
		return p.returnStmt()
	case token.KW_DO:
		return p.doWhileStmt()
	case token.KW_WHILE:
		return p.whileStmt()
	case token.KW_BREAK:
		tok := p.advance()
		p.expect(token.SEMICOLON, "expect ';' after 'break'")
		return &ast.BreakStmt{StmtBase: makeStmtBase(tok.Span.Start, p.prevEnd()), Keyword: tok}
	case token.KW_CONTINUE:
		tok := p.advance()
		p.expect(token.SEMICOLON, "expect ';' after 'continue'")
		return &ast.ContinueStmt{StmtBase: makeStmtBase(tok.Span.Start, p.prevEnd()), Keyword: tok}
	case token.LBRACE:
		start := p.peek()
		stmts := p.block()
		return &ast.BlockStmt{StmtBase: makeStmtBase(start.Span.Start, p.prevEnd()), Stmts: stmts}
	default:
		return p.exprStmt()
	}
}

// block parses: { declarations }
func (p *Parser) block() []ast.Stmt {
	p.expect(token.LBRACE, "expect '{' before block")
	var stmts []ast.Stmt
	for !p.check(token.RBRACE) && !p.isAtEnd() {
		stmts = append(stmts, p.declaration()...)
	}
	p.expect(token.RBRACE, "expect '}' after block")
	return stmts
}

func (p *Parser) exprStmt() *ast.ExprStmt {
	expr := p.expression()
	p.expect(token.SEMICOLON, "expect ';' after expression")
	return &ast.ExprStmt{
		StmtBase: makeStmtBase(expr.GetSpan().Start, p.prevEnd()),
		Expr:     expr,
	}
}

func (p *Parser) printStmt() *ast.PrintStmt {
	kw := p.advance()
	value := p.expression()
	p.expect(token.SEMICOLON, "expect ';' after value")
	return &ast.PrintStmt{
		StmtBase: makeStmtBase(kw.Span.Start, p.prevEnd()),
		Keyword:  kw,
		Value:    value,
	}
}

func (p *Parser) returnStmt() *ast.ReturnStmt {
	kw := p.advance()
	stmt := &ast.ReturnStmt{Keyword: kw}
	if !p.check(token.SEMICOLON) {
		stmt.Value = p.expression()
	}
	p.expect(token.SEMICOLON, "expect ';' after return value")
	stmt.StmtBase = makeStmtBase(kw.Span.Start, p.prevEnd())
	return stmt
}

// ifStmt parses: if ( expr ) statement [ else statement ]
func (p *Parser) ifStmt() *ast.IfStmt {
	start := p.advance()
	p.expect(token.LPAREN, "expect '(' after 'if'")
	cond := p.expression()
	p.expect(token.RPAREN, "expect ')' after if condition")

	stmt := &ast.IfStmt{Condition: cond, Then: p.statement()}
	if p.match(token.KW_ELSE) {
		stmt.Else = p.statement()
	}
	stmt.StmtBase = makeStmtBase(start.Span.Start, p.prevEnd())
	return stmt
}

// whileStmt parses: while ( expr ) statement
func (p *Parser) whileStmt() *ast.WhileStmt {
	start := p.advance()
	p.expect(token.LPAREN, "expect '(' after 'while'")
	cond := p.expression()
	p.expect(token.RPAREN, "expect ')' after condition")
	body := p.statement()
	return &ast.WhileStmt{
		StmtBase:  makeStmtBase(start.Span.Start, p.prevEnd()),
		Condition: cond,
		Body:      body,
	}
}

// doWhileStmt parses: do statement while ( expr ) ;
func (p *Parser) doWhileStmt() *ast.WhileStmt {
	start := p.advance()
	body := p.statement()
	p.expect(token.KW_WHILE, "expect 'while' in a do-while loop")
	p.expect(token.LPAREN, "expect '(' after 'while'")
	cond := p.expression()
	p.expect(token.RPAREN, "expect ')' after condition")
	p.expect(token.SEMICOLON, "expect ';' after do-while statement")
	return &ast.WhileStmt{
		StmtBase:  makeStmtBase(start.Span.Start, p.prevEnd()),
		Condition: cond,
		Body:      body,
		DoWhile:   true,
	}
}

// forStmt parses: for ( [init] ; [cond] ; [update] ) statement
// and desugars it into an optional block holding the initializer around a
// WhileStmt whose Increment is the update clause.
func (p *Parser) forStmt() ast.Stmt {
	start := p.advance()
	p.expect(token.LPAREN, "expect '(' after 'for'")

	var init []ast.Stmt
	switch {
	case p.match(token.SEMICOLON):
	case p.check(token.KW_VAR):
		init = p.varDecls()
	default:
		init = []ast.Stmt{p.exprStmt()}
	}

	var cond ast.Expr
	if !p.check(token.SEMICOLON) {
		cond = p.expression()
	}
	semi := p.expect(token.SEMICOLON, "expect ';' after loop condition")

	var increment ast.Expr
	if !p.check(token.RPAREN) {
		increment = p.expression()
	}
	p.expect(token.RPAREN, "expect ')' after for clauses")

	body := p.statement()

	if cond == nil {
		cond = &ast.LiteralExpr{ExprBase: ast.ExprBase{NodeBase: ast.NodeBase{Span: semi.Span}}, Value: true}
	}
	loop := &ast.WhileStmt{
		StmtBase:  makeStmtBase(start.Span.Start, p.prevEnd()),
		Condition: cond,
		Body:      body,
		Increment: increment,
	}
	if init == nil {
		return loop
	}
	return &ast.BlockStmt{
		StmtBase: makeStmtBase(start.Span.Start, p.prevEnd()),
		Stmts:    append(init, loop),
	}
}

// ============================================================
// Expressions
// ============================================================

// expression parses the comma tier, the loosest binding.
func (p *Parser) expression() ast.Expr {
	expr := p.assignment()
	for p.check(token.COMMA) {
		op := p.advance()
		right := p.assignment()
		expr = &ast.BinaryExpr{
			ExprBase: makeExprBase(expr.GetSpan().Start, right.GetSpan().End),
			Left:     expr,
			Op:       op,
			Right:    right,
		}
	}
	return expr
}

// assignment parses right-associative `=` and compound assignment.
func (p *Parser) assignment() ast.Expr {
	expr := p.ternary()

	if p.check(token.ASSIGN) || p.peekKind().IsCompoundAssign() {
		op := p.advance()
		value := p.assignment()
		base := makeExprBase(expr.GetSpan().Start, value.GetSpan().End)

		switch target := expr.(type) {
		case *ast.VariableExpr:
			return &ast.AssignExpr{ExprBase: base, Name: target.Name, Op: op, Value: value}
		case *ast.GetExpr:
			if op.Kind == token.ASSIGN {
				return &ast.SetExpr{ExprBase: base, Object: target.Object, Name: target.Name, Value: value}
			}
		}
		p.errorAt(op, "E2003", "invalid assignment target")
	}

	return expr
}

// ternary parses: or [ ? expression : ternary ]
func (p *Parser) ternary() ast.Expr {
	expr := p.binary(bpNone)
	if p.match(token.QUESTION) {
		then := p.expression()
		p.expect(token.COLON, "expect ':' after then branch of ternary expression")
		els := p.ternary()
		expr = &ast.TernaryExpr{
			ExprBase:  makeExprBase(expr.GetSpan().Start, els.GetSpan().End),
			Condition: expr,
			Then:      then,
			Else:      els,
		}
	}
	return expr
}

// binary parses left-associative binary operators whose binding power is
// greater than minBP.
func (p *Parser) binary(minBP int) ast.Expr {
	left := p.unary()
	for {
		bp := infixBP(p.peekKind())
		if bp <= minBP {
			return left
		}
		op := p.advance()
		right := p.binary(bp)
		base := makeExprBase(left.GetSpan().Start, right.GetSpan().End)
		if op.Kind == token.KW_AND || op.Kind == token.KW_OR {
			left = &ast.LogicalExpr{ExprBase: base, Left: left, Op: op, Right: right}
		} else {
			left = &ast.BinaryExpr{ExprBase: base, Left: left, Op: op, Right: right}
		}
	}
}

// unary parses prefix ! - ++ --.
func (p *Parser) unary() ast.Expr {
	if p.check(token.BANG) || p.check(token.MINUS) || p.check(token.PLUS_PLUS) || p.check(token.MINUS_MINUS) {
		op := p.advance()
		operand := p.unary()
		return &ast.UnaryExpr{
			ExprBase: makeExprBase(op.Span.Start, operand.GetSpan().End),
			Op:       op,
			Operand:  operand,
		}
	}
	return p.postfix()
}

// postfix parses call [++ | --].
func (p *Parser) postfix() ast.Expr {
	expr := p.call()
	if p.check(token.PLUS_PLUS) || p.check(token.MINUS_MINUS) {
		op := p.advance()
		return &ast.UnaryExpr{
			ExprBase: makeExprBase(expr.GetSpan().Start, op.Span.End),
			Op:       op,
			Operand:  expr,
			Postfix:  true,
		}
	}
	return expr
}

// call parses primary { ( args ) | . IDENT }.
func (p *Parser) call() ast.Expr {
	expr := p.primary()
	for {
		switch {
		case p.match(token.LPAREN):
			expr = p.finishCall(expr)
		case p.match(token.DOT):
			name := p.expect(token.IDENT, "expect property name after '.'")
			expr = &ast.GetExpr{
				ExprBase: makeExprBase(expr.GetSpan().Start, name.Span.End),
				Object:   expr,
				Name:     name,
			}
		default:
			return expr
		}
	}
}

func (p *Parser) finishCall(callee ast.Expr) *ast.CallExpr {
	var args []ast.Expr
	if !p.check(token.RPAREN) {
		for {
			if len(args) >= maxArgs {
				p.errorAt(p.peek(), "E2004", fmt.Sprintf("cannot have more than %d arguments", maxArgs))
			}
			args = append(args, p.assignment())
			if !p.match(token.COMMA) {
				break
			}
		}
	}
	paren := p.expect(token.RPAREN, "expect ')' after arguments")
	return &ast.CallExpr{
		ExprBase: makeExprBase(callee.GetSpan().Start, paren.Span.End),
		Callee:   callee,
		Paren:    paren,
		Args:     args,
	}
}

func (p *Parser) primary() ast.Expr {
	tok := p.peek()
	base := makeExprBase(tok.Span.Start, tok.Span.End)

	switch tok.Kind {
	case token.KW_FALSE:
		p.advance()
		return &ast.LiteralExpr{ExprBase: base, Value: false}
	case token.KW_TRUE:
		p.advance()
		return &ast.LiteralExpr{ExprBase: base, Value: true}
	case token.KW_NONE:
		p.advance()
		return &ast.LiteralExpr{ExprBase: base, Value: nil}
	case token.NUMBER, token.STRING:
		p.advance()
		return &ast.LiteralExpr{ExprBase: base, Value: tok.Literal}
	case token.IDENT:
		p.advance()
		return &ast.VariableExpr{ExprBase: base, Name: tok}
	case token.KW_THIS:
		p.advance()
		return &ast.ThisExpr{ExprBase: base, Keyword: tok}
	case token.KW_SUPER:
		p.advance()
		p.expect(token.DOT, "expect '.' after 'super'")
		method := p.expect(token.IDENT, "expect superclass method name")
		return &ast.SuperExpr{
			ExprBase: makeExprBase(tok.Span.Start, method.Span.End),
			Keyword:  tok,
			Method:   method,
		}
	case token.LPAREN:
		p.advance()
		inner := p.expression()
		end := p.expect(token.RPAREN, "expect ')' after expression")
		return &ast.GroupingExpr{ExprBase: makeExprBase(tok.Span.Start, end.Span.End), Inner: inner}
	case token.KW_FUN:
		p.advance()
		fn := &ast.FuncExpr{Keyword: tok}
		fn.Params = p.paramList()
		fn.Body = p.block()
		fn.ExprBase = makeExprBase(tok.Span.Start, p.prevEnd())
		return fn

	// Error productions: a binary operator with nothing on its left.
	case token.QUESTION:
		p.fail(tok, "E2005", "missing left-hand condition of ternary operator")
	case token.EQ, token.NEQ, token.LT, token.LTE, token.GT, token.GTE,
		token.PLUS, token.SLASH, token.STAR, token.STAR_STAR:
		p.fail(tok, "E2005", "missing left-hand operand")
	}

	p.fail(tok, "E2002", "expect expression")
	return nil
}

// ============================================================
// Span helpers
// ============================================================

func (p *Parser) prevEnd() span.Position {
	if p.pos > 0 {
		return p.tokens[p.pos-1].Span.End
	}
	return p.peek().Span.Start
}

func (p *Parser) makeSpan(start span.Position) span.Span {
	return span.Span{Start: start, End: p.prevEnd()}
}

func makeExprBase(start, end span.Position) ast.ExprBase {
	return ast.ExprBase{NodeBase: ast.NodeBase{Span: span.Span{Start: start, End: end}}}
}

func makeStmtBase(start, end span.Position) ast.StmtBase {
	return ast.StmtBase{NodeBase: ast.NodeBase{Span: span.Span{Start: start, End: end}}}
}
