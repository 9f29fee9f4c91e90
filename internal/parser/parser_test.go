package parser

import (
	"encoding/json"
	"strings"
	"testing"

	"fail-lang/internal/ast"
	"fail-lang/internal/diag"
	"fail-lang/internal/lexer"
	"fail-lang/internal/token"
)

// helper: parse source and return AST + check for no errors
func parseOK(t *testing.T, source string) *ast.File {
	t.Helper()
	tokens, lexDiags := lexer.New(source, "test.fail").Tokenize()
	if len(lexDiags) > 0 {
		t.Fatalf("lex errors: %v", lexDiags)
	}
	file, parseDiags := New(tokens).ParseFile()
	if len(parseDiags) > 0 {
		t.Fatalf("parse errors: %v", parseDiags)
	}
	return file
}

// helper: parse source expecting syntax errors
func parseErr(t *testing.T, source string) []diag.Diagnostic {
	t.Helper()
	tokens, _ := lexer.New(source, "test.fail").Tokenize()
	_, diags := New(tokens).ParseFile()
	if len(diags) == 0 {
		t.Fatalf("expected parse errors for %q", source)
	}
	return diags
}

// helper: parse a single expression statement and return its expression
func parseExpr(t *testing.T, source string) ast.Expr {
	t.Helper()
	file := parseOK(t, source)
	if len(file.Stmts) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(file.Stmts))
	}
	stmt, ok := file.Stmts[0].(*ast.ExprStmt)
	if !ok {
		t.Fatalf("expected ExprStmt, got %T", file.Stmts[0])
	}
	return stmt.Expr
}

func TestParseVarDecl(t *testing.T) {
	file := parseOK(t, `var x = 42; var y;`)
	if len(file.Stmts) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(file.Stmts))
	}
	decl := file.Stmts[0].(*ast.VarStmt)
	if decl.Name.Lexeme != "x" {
		t.Errorf("expected name 'x', got %q", decl.Name.Lexeme)
	}
	if lit, ok := decl.Init.(*ast.LiteralExpr); !ok || lit.Value != 42.0 {
		t.Errorf("expected literal 42, got %#v", decl.Init)
	}
	if file.Stmts[1].(*ast.VarStmt).Init != nil {
		t.Error("expected y without initializer")
	}
}

func TestParseMultiVarDecl(t *testing.T) {
	file := parseOK(t, `var a = 1, b = 2, c = a;`)
	if len(file.Stmts) != 3 {
		t.Fatalf("expected 3 declarations, got %d", len(file.Stmts))
	}
	for i, want := range []string{"a", "b", "c"} {
		if got := file.Stmts[i].(*ast.VarStmt).Name.Lexeme; got != want {
			t.Errorf("decl %d: got %q, want %q", i, got, want)
		}
	}

	diags := parseErr(t, `var a = 1, b;`)
	if !strings.Contains(diags[0].Message, "multiple variable declaration") {
		t.Errorf("unexpected message: %s", diags[0].Message)
	}
}

func TestParsePrecedence(t *testing.T) {
	expr := parseExpr(t, `1 + 2 * 3;`)
	bin, ok := expr.(*ast.BinaryExpr)
	if !ok || bin.Op.Kind != token.PLUS {
		t.Fatalf("expected '+' at root, got %#v", expr)
	}
	right, ok := bin.Right.(*ast.BinaryExpr)
	if !ok || right.Op.Kind != token.STAR {
		t.Fatalf("expected '*' on the right, got %#v", bin.Right)
	}
}

func TestParseExponentLeftAssociative(t *testing.T) {
	expr := parseExpr(t, `2 ** 3 ** 2;`)
	bin := expr.(*ast.BinaryExpr)
	if _, ok := bin.Left.(*ast.BinaryExpr); !ok {
		t.Fatalf("expected (2 ** 3) ** 2, got left %T", bin.Left)
	}
	if _, ok := bin.Right.(*ast.LiteralExpr); !ok {
		t.Fatalf("expected literal on the right, got %T", bin.Right)
	}
}

func TestParseLogical(t *testing.T) {
	expr := parseExpr(t, `a or b and c;`)
	or, ok := expr.(*ast.LogicalExpr)
	if !ok || or.Op.Kind != token.KW_OR {
		t.Fatalf("expected 'or' at root, got %#v", expr)
	}
	if and, ok := or.Right.(*ast.LogicalExpr); !ok || and.Op.Kind != token.KW_AND {
		t.Fatalf("expected 'and' on the right, got %#v", or.Right)
	}
}

func TestParseComma(t *testing.T) {
	expr := parseExpr(t, `a = 1, b = 2;`)
	bin, ok := expr.(*ast.BinaryExpr)
	if !ok || bin.Op.Kind != token.COMMA {
		t.Fatalf("expected comma at root, got %#v", expr)
	}
	if _, ok := bin.Left.(*ast.AssignExpr); !ok {
		t.Errorf("expected assignment on the left, got %T", bin.Left)
	}
}

func TestParseTernary(t *testing.T) {
	expr := parseExpr(t, `a ? b : c ? d : e;`)
	tern, ok := expr.(*ast.TernaryExpr)
	if !ok {
		t.Fatalf("expected TernaryExpr, got %T", expr)
	}
	if _, ok := tern.Else.(*ast.TernaryExpr); !ok {
		t.Errorf("expected nested ternary in else branch, got %T", tern.Else)
	}
}

func TestParseAssignment(t *testing.T) {
	assign, ok := parseExpr(t, `x = y = 3;`).(*ast.AssignExpr)
	if !ok {
		t.Fatal("expected AssignExpr")
	}
	if _, ok := assign.Value.(*ast.AssignExpr); !ok {
		t.Errorf("assignment should be right-associative, got %T", assign.Value)
	}

	compound := parseExpr(t, `x **= 2;`).(*ast.AssignExpr)
	if compound.Op.Kind != token.STAR_STAR_ASSIGN {
		t.Errorf("expected **=, got %s", compound.Op.Kind)
	}

	set, ok := parseExpr(t, `a.b.c = 1;`).(*ast.SetExpr)
	if !ok {
		t.Fatal("expected SetExpr")
	}
	if set.Name.Lexeme != "c" {
		t.Errorf("expected property 'c', got %q", set.Name.Lexeme)
	}
	if _, ok := set.Object.(*ast.GetExpr); !ok {
		t.Errorf("expected GetExpr object, got %T", set.Object)
	}
}

func TestParseInvalidAssignmentTarget(t *testing.T) {
	for _, src := range []string{`1 = 2;`, `a + b = c;`, `a.b += 1;`} {
		diags := parseErr(t, src)
		if diags[0].Code != "E2003" {
			t.Errorf("%s: code = %s, want E2003", src, diags[0].Code)
		}
	}
}

func TestParseIncrements(t *testing.T) {
	pre := parseExpr(t, `++i;`).(*ast.UnaryExpr)
	if pre.Postfix || pre.Op.Kind != token.PLUS_PLUS {
		t.Errorf("expected prefix ++, got %#v", pre)
	}
	post := parseExpr(t, `a.b--;`).(*ast.UnaryExpr)
	if !post.Postfix || post.Op.Kind != token.MINUS_MINUS {
		t.Errorf("expected postfix --, got %#v", post)
	}
	if _, ok := post.Operand.(*ast.GetExpr); !ok {
		t.Errorf("expected GetExpr operand, got %T", post.Operand)
	}
}

func TestParseCallExpr(t *testing.T) {
	call, ok := parseExpr(t, `f(1, a = 2)(3);`).(*ast.CallExpr)
	if !ok {
		t.Fatal("expected CallExpr")
	}
	if len(call.Args) != 1 {
		t.Errorf("expected 1 arg in outer call, got %d", len(call.Args))
	}
	inner := call.Callee.(*ast.CallExpr)
	if len(inner.Args) != 2 {
		t.Fatalf("expected 2 args in inner call, got %d", len(inner.Args))
	}
	if _, ok := inner.Args[1].(*ast.AssignExpr); !ok {
		t.Errorf("expected assignment argument, got %T", inner.Args[1])
	}
}

func TestParseTooManyArguments(t *testing.T) {
	args := make([]string, 256)
	for i := range args {
		args[i] = "1"
	}
	diags := parseErr(t, "f("+strings.Join(args, ", ")+");")
	if diags[0].Code != "E2004" {
		t.Errorf("code = %s, want E2004", diags[0].Code)
	}
}

func TestParseIfStmt(t *testing.T) {
	file := parseOK(t, `if (a) print 1; else if (b) print 2; else print 3;`)
	stmt, ok := file.Stmts[0].(*ast.IfStmt)
	if !ok {
		t.Fatalf("expected IfStmt, got %T", file.Stmts[0])
	}
	elseIf, ok := stmt.Else.(*ast.IfStmt)
	if !ok {
		t.Fatalf("expected else-if, got %T", stmt.Else)
	}
	if elseIf.Else == nil {
		t.Error("expected final else branch")
	}
}

func TestParseWhileAndDoWhile(t *testing.T) {
	file := parseOK(t, `while (x) x = x - 1; do { x++; } while (x < 3);`)
	loop := file.Stmts[0].(*ast.WhileStmt)
	if loop.DoWhile {
		t.Error("while loop marked as do-while")
	}
	do := file.Stmts[1].(*ast.WhileStmt)
	if !do.DoWhile {
		t.Error("expected do-while")
	}
	if _, ok := do.Body.(*ast.BlockStmt); !ok {
		t.Errorf("expected block body, got %T", do.Body)
	}
}

func TestParseForDesugar(t *testing.T) {
	file := parseOK(t, `for (var i = 0; i < 3; i = i + 1) print i;`)
	block, ok := file.Stmts[0].(*ast.BlockStmt)
	if !ok {
		t.Fatalf("expected BlockStmt wrapper, got %T", file.Stmts[0])
	}
	if len(block.Stmts) != 2 {
		t.Fatalf("expected init + loop, got %d statements", len(block.Stmts))
	}
	if _, ok := block.Stmts[0].(*ast.VarStmt); !ok {
		t.Errorf("expected VarStmt init, got %T", block.Stmts[0])
	}
	loop := block.Stmts[1].(*ast.WhileStmt)
	if loop.Increment == nil {
		t.Error("expected increment on the loop")
	}
	if _, ok := loop.Body.(*ast.PrintStmt); !ok {
		t.Errorf("body should be the source statement, got %T", loop.Body)
	}
}

func TestParseForEmptyClauses(t *testing.T) {
	file := parseOK(t, `for (;;) break;`)
	loop, ok := file.Stmts[0].(*ast.WhileStmt)
	if !ok {
		t.Fatalf("expected bare WhileStmt, got %T", file.Stmts[0])
	}
	lit, ok := loop.Condition.(*ast.LiteralExpr)
	if !ok || lit.Value != true {
		t.Errorf("expected implicit true condition, got %#v", loop.Condition)
	}
	if loop.Increment != nil {
		t.Error("expected no increment")
	}
}

func TestParseFuncDecl(t *testing.T) {
	file := parseOK(t, `fun add(a, b) { return a + b; }`)
	decl, ok := file.Stmts[0].(*ast.FuncDecl)
	if !ok {
		t.Fatalf("expected FuncDecl, got %T", file.Stmts[0])
	}
	if decl.Name.Lexeme != "add" {
		t.Errorf("expected name 'add', got %q", decl.Name.Lexeme)
	}
	if len(decl.Func.Params) != 2 {
		t.Errorf("expected 2 params, got %d", len(decl.Func.Params))
	}
	if _, ok := decl.Func.Body[0].(*ast.ReturnStmt); !ok {
		t.Errorf("expected ReturnStmt, got %T", decl.Func.Body[0])
	}
}

func TestParseAnonymousFunction(t *testing.T) {
	file := parseOK(t, `var f = fun (x) { return x; }; fun () {};`)
	if _, ok := file.Stmts[0].(*ast.VarStmt).Init.(*ast.FuncExpr); !ok {
		t.Error("expected FuncExpr initializer")
	}
	stmt, ok := file.Stmts[1].(*ast.ExprStmt)
	if !ok {
		t.Fatalf("expected ExprStmt for statement-level lambda, got %T", file.Stmts[1])
	}
	if _, ok := stmt.Expr.(*ast.FuncExpr); !ok {
		t.Errorf("expected FuncExpr, got %T", stmt.Expr)
	}
}

func TestParseClassDecl(t *testing.T) {
	src := `class B < A {
		init(x) { this.x = x; }
		area { return 1; }
		class make() { return B(1); }
		greet() { return super.greet(); }
	}`
	file := parseOK(t, src)
	decl, ok := file.Stmts[0].(*ast.ClassDecl)
	if !ok {
		t.Fatalf("expected ClassDecl, got %T", file.Stmts[0])
	}
	if decl.Superclass == nil || decl.Superclass.Name.Lexeme != "A" {
		t.Fatalf("expected superclass A, got %#v", decl.Superclass)
	}
	if len(decl.Methods) != 3 {
		t.Fatalf("expected 3 methods, got %d", len(decl.Methods))
	}
	if len(decl.ClassMethods) != 1 || decl.ClassMethods[0].Name.Lexeme != "make" {
		t.Errorf("expected class method 'make', got %#v", decl.ClassMethods)
	}
	if !decl.Methods[1].Func.Getter {
		t.Error("expected 'area' to be a getter")
	}
	if decl.Methods[0].Func.Getter {
		t.Error("'init' is not a getter")
	}
}

func TestParseSuperRequiresMethod(t *testing.T) {
	diags := parseErr(t, `class A < B { m() { super; } }`)
	if !strings.Contains(diags[0].Message, "'.' after 'super'") {
		t.Errorf("unexpected message: %s", diags[0].Message)
	}
}

func TestParseJSONOutput(t *testing.T) {
	file := parseOK(t, `print 1 + 2;`)
	data, err := json.Marshal(ast.NodeToMap(file))
	if err != nil {
		t.Fatalf("json error: %v", err)
	}
	out := string(data)
	for _, want := range []string{`"kind":"File"`, `"kind":"PrintStmt"`, `"op":"+"`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in JSON output: %s", want, out)
		}
	}
}

func TestParseErrorRecovery(t *testing.T) {
	tokens, _ := lexer.New("var = 1;\nprint 2;\nvar y = ;\nprint 3;", "test.fail").Tokenize()
	file, diags := New(tokens).ParseFile()
	if len(diags) != 2 {
		t.Fatalf("expected 2 errors, got %v", diags)
	}
	if len(file.Stmts) != 2 {
		t.Fatalf("expected the 2 print statements to survive, got %d", len(file.Stmts))
	}
	for _, s := range file.Stmts {
		if _, ok := s.(*ast.PrintStmt); !ok {
			t.Errorf("expected PrintStmt, got %T", s)
		}
	}
}

func TestParseMissingLeftOperand(t *testing.T) {
	diags := parseErr(t, `* 3;`)
	if diags[0].Code != "E2005" {
		t.Errorf("code = %s, want E2005", diags[0].Code)
	}
}

func TestParseExpressionEntry(t *testing.T) {
	tokens, _ := lexer.New(`1 + x`, "<repl>").Tokenize()
	expr, diags := New(tokens).ParseExpression()
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	if _, ok := expr.(*ast.BinaryExpr); !ok {
		t.Errorf("expected BinaryExpr, got %T", expr)
	}

	tokens, _ = lexer.New(`1 2`, "<repl>").Tokenize()
	expr, diags = New(tokens).ParseExpression()
	if expr != nil || len(diags) != 1 || diags[0].Code != "E2002" {
		t.Errorf("expected trailing-token error, got %v %v", expr, diags)
	}
}
