// Package driver runs fail source through the whole pipeline: lexing,
// parsing, resolution and interpretation. A Session keeps one interpreter
// alive so that globals survive between inputs at the interactive prompt.
package driver

import (
	"io"
	"log"
	"slices"
	"time"

	"fail-lang/internal/ast"
	"fail-lang/internal/config"
	"fail-lang/internal/diag"
	"fail-lang/internal/lexer"
	"fail-lang/internal/parser"
	"fail-lang/internal/resolver"
	"fail-lang/internal/runtime"
	"fail-lang/internal/token"
)

// Outcome classifies how an input finished.
type Outcome int

const (
	OutcomeOK           Outcome = iota
	OutcomeStaticError          // lexing, parsing or resolution failed; nothing ran
	OutcomeRuntimeError         // execution stopped at a runtime error
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeStaticError:
		return "static error"
	case OutcomeRuntimeError:
		return "runtime error"
	default:
		return "unknown"
	}
}

// ExitCode maps the outcome to the process exit status used by `fail run`.
func (o Outcome) ExitCode() int {
	switch o {
	case OutcomeStaticError:
		return 65
	case OutcomeRuntimeError:
		return 70
	default:
		return 0
	}
}

// Result is what one Run or Eval produced.
type Result struct {
	Outcome     Outcome
	Diagnostics []diag.Diagnostic // warnings are dropped when disabled in the config
	Value       runtime.Value     // set when Eval evaluated a bare expression
}

// Option configures a Session.
type Option func(*Session)

// WithConfig applies a loaded configuration.
func WithConfig(cfg *config.Config) Option {
	return func(s *Session) { s.cfg = cfg }
}

// WithLogger enables phase tracing.
func WithLogger(logger *log.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// WithClock replaces the time source behind clock().
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// Session owns one interpreter and its global environment. It is not safe
// for concurrent use; hosts running programs in parallel create one Session
// per execution.
type Session struct {
	cfg    *config.Config
	logger *log.Logger
	now    func() time.Time
	out    io.Writer
	interp *runtime.Interpreter
}

// NewSession creates a session printing program output to out.
func NewSession(out io.Writer, opts ...Option) *Session {
	s := &Session{
		cfg:    config.Default(),
		logger: log.New(io.Discard, "fail: ", 0),
		out:    out,
	}
	for _, opt := range opts {
		opt(s)
	}

	runtimeOpts := []runtime.Option{runtime.WithNatives(s.cfg.Natives)}
	if s.now != nil {
		runtimeOpts = append(runtimeOpts, runtime.WithClock(s.now))
	}
	s.interp = runtime.NewInterpreter(out, runtimeOpts...)
	s.logger.Printf("session ready, natives %v", s.cfg.Natives)
	return s
}

// Names lists the global names, sorted. The REPL uses it for completion.
func (s *Session) Names() []string {
	names := s.interp.Globals().Names()
	slices.Sort(names)
	return names
}

// Run executes a complete program.
func (s *Session) Run(source, filename string) Result {
	diags := diag.NewCollector()

	tokens, ok := s.lex(source, filename, diags)
	if !ok {
		return s.finish(OutcomeStaticError, diags, nil)
	}

	start := time.Now()
	file, parseDiags := parser.New(tokens).ParseFile()
	diags.AddStage(diag.StageSyntax, parseDiags...)
	s.logger.Printf("parse: %d statements, %d diagnostics in %s", len(file.Stmts), len(parseDiags), time.Since(start))
	if diags.HasErrors() {
		return s.finish(OutcomeStaticError, diags, nil)
	}

	return s.execute(file.Stmts, diags)
}

// Eval executes one line of interactive input. Input without any
// statement-shaped token is treated as a bare expression: its value is
// printed and returned.
func (s *Session) Eval(source string) Result {
	diags := diag.NewCollector()

	tokens, ok := s.lex(source, "<repl>", diags)
	if !ok {
		return s.finish(OutcomeStaticError, diags, nil)
	}
	if len(tokens) == 0 || tokens[0].Kind == token.EOF {
		return s.finish(OutcomeOK, diags, nil)
	}

	if !IsBareExpression(tokens) {
		file, parseDiags := parser.New(tokens).ParseFile()
		diags.AddStage(diag.StageSyntax, parseDiags...)
		if diags.HasErrors() {
			return s.finish(OutcomeStaticError, diags, nil)
		}
		return s.execute(file.Stmts, diags)
	}

	expr, parseDiags := parser.New(tokens).ParseExpression()
	diags.AddStage(diag.StageSyntax, parseDiags...)
	if expr == nil || diags.HasErrors() {
		return s.finish(OutcomeStaticError, diags, nil)
	}

	s.newResolver(diags).ResolveExpr(expr)
	if diags.HasErrors() {
		return s.finish(OutcomeStaticError, diags, nil)
	}

	value, err := s.interp.Evaluate(expr, diags)
	if err != nil {
		return s.finish(OutcomeRuntimeError, diags, nil)
	}
	if _, werr := io.WriteString(s.out, value.String()+"\n"); werr != nil {
		s.logger.Printf("write result: %v", werr)
	}
	return s.finish(OutcomeOK, diags, value)
}

// IsBareExpression reports whether tokens contain nothing that only a
// statement could start or terminate.
func IsBareExpression(tokens []token.Token) bool {
	for _, tok := range tokens {
		switch tok.Kind {
		case token.SEMICOLON, token.LBRACE, token.RBRACE,
			token.KW_CLASS, token.KW_FUN, token.KW_VAR, token.KW_FOR, token.KW_IF,
			token.KW_WHILE, token.KW_DO, token.KW_BREAK, token.KW_CONTINUE,
			token.KW_PRINT, token.KW_RETURN:
			return false
		}
	}
	return true
}

func (s *Session) lex(source, filename string, diags *diag.Collector) ([]token.Token, bool) {
	start := time.Now()
	tokens, lexDiags := lexer.New(source, filename).Tokenize()
	diags.AddStage(diag.StageSyntax, lexDiags...)
	s.logger.Printf("lex %s: %d tokens, %d diagnostics in %s", filename, len(tokens), len(lexDiags), time.Since(start))
	return tokens, !diags.HasErrors()
}

// newResolver returns a resolver that knows the globals bound by natives and
// earlier inputs.
func (s *Session) newResolver(diags *diag.Collector) *resolver.Resolver {
	r := resolver.New(s.interp, diags)
	r.KnownGlobals(s.interp.Globals().Names()...)
	return r
}

func (s *Session) execute(stmts []ast.Stmt, diags *diag.Collector) Result {
	start := time.Now()
	s.newResolver(diags).Resolve(stmts)
	s.logger.Printf("resolve: %d diagnostics in %s", diags.Len(), time.Since(start))
	if diags.HasErrors() {
		return s.finish(OutcomeStaticError, diags, nil)
	}

	start = time.Now()
	err := s.interp.Interpret(stmts, diags)
	s.logger.Printf("interpret: done in %s", time.Since(start))
	if err != nil {
		return s.finish(OutcomeRuntimeError, diags, nil)
	}
	return s.finish(OutcomeOK, diags, nil)
}

func (s *Session) finish(outcome Outcome, diags *diag.Collector, value runtime.Value) Result {
	found := diags.Diagnostics()
	if !s.cfg.Diagnostics.Warnings {
		found = diags.Filter(diag.Error)
	}
	if outcome != OutcomeOK {
		s.logger.Printf("%s with %d diagnostics", outcome, len(found))
	}
	return Result{Outcome: outcome, Diagnostics: found, Value: value}
}
