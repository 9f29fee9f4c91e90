package driver

import (
	"bytes"
	"log"
	"strings"
	"testing"
	"time"

	"fail-lang/internal/config"
	"fail-lang/internal/diag"
	"fail-lang/internal/lexer"
	"fail-lang/internal/runtime"
)

func newSession(t *testing.T, opts ...Option) (*Session, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	return NewSession(&out, opts...), &out
}

func codes(diags []diag.Diagnostic) []string {
	out := make([]string, len(diags))
	for i, d := range diags {
		out[i] = d.Code
	}
	return out
}

func TestRunOK(t *testing.T) {
	s, out := newSession(t)
	res := s.Run(`var a = 1; print a + 2;`, "ok.fail")
	if res.Outcome != OutcomeOK {
		t.Fatalf("outcome = %s, diags %v", res.Outcome, res.Diagnostics)
	}
	if got := out.String(); got != "3\n" {
		t.Errorf("output = %q", got)
	}
	if res.Outcome.ExitCode() != 0 {
		t.Errorf("exit code = %d", res.Outcome.ExitCode())
	}
}

func TestRunOutcomes(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		outcome Outcome
		code    string
		exit    int
	}{
		{"lex error", `print "open;`, OutcomeStaticError, "E1", 65},
		{"parse error", `print ;`, OutcomeStaticError, "E2002", 65},
		{"resolve error", `return 1;`, OutcomeStaticError, "E3003", 65},
		{"runtime error", `print -"a";`, OutcomeRuntimeError, "E4001", 70},
		{"undefined variable", `print missing;`, OutcomeRuntimeError, "E4011", 70},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newSession(t)
			res := s.Run(tt.source, "test.fail")
			if res.Outcome != tt.outcome {
				t.Fatalf("outcome = %s, want %s (%v)", res.Outcome, tt.outcome, res.Diagnostics)
			}
			if res.Outcome.ExitCode() != tt.exit {
				t.Errorf("exit code = %d, want %d", res.Outcome.ExitCode(), tt.exit)
			}
			if len(res.Diagnostics) == 0 || !strings.HasPrefix(res.Diagnostics[0].Code, tt.code) {
				t.Errorf("diagnostics = %v, want code %s", codes(res.Diagnostics), tt.code)
			}
		})
	}
}

func TestStaticErrorRunsNothing(t *testing.T) {
	s, out := newSession(t)
	res := s.Run("print 1;\n{ var a = a; }", "test.fail")
	if res.Outcome != OutcomeStaticError {
		t.Fatalf("outcome = %s", res.Outcome)
	}
	if out.Len() != 0 {
		t.Errorf("nothing should run, got %q", out.String())
	}
}

func TestRuntimeErrorKeepsEarlierOutput(t *testing.T) {
	s, out := newSession(t)
	res := s.Run("print 1;\nprint 1 < \"2\";\nprint 3;", "test.fail")
	if res.Outcome != OutcomeRuntimeError {
		t.Fatalf("outcome = %s", res.Outcome)
	}
	if out.String() != "1\n" {
		t.Errorf("output = %q", out.String())
	}
	if line := res.Diagnostics[0].Span.Start.Line; line != 2 {
		t.Errorf("error line = %d, want 2", line)
	}
}

func TestWarningsDoNotChangeOutcome(t *testing.T) {
	s, out := newSession(t)
	res := s.Run(`{ var unused = 1; } print "done";`, "test.fail")
	if res.Outcome != OutcomeOK {
		t.Fatalf("outcome = %s", res.Outcome)
	}
	if got := codes(res.Diagnostics); len(got) != 1 || got[0] != "W3001" {
		t.Errorf("diagnostics = %v", got)
	}
	if out.String() != "done\n" {
		t.Errorf("output = %q", out.String())
	}
}

func TestWarningsDisabled(t *testing.T) {
	cfg := config.Default()
	cfg.Diagnostics.Warnings = false
	s, _ := newSession(t, WithConfig(cfg))
	res := s.Run(`{ var unused = 1; }`, "test.fail")
	if len(res.Diagnostics) != 0 {
		t.Errorf("expected warnings filtered, got %v", codes(res.Diagnostics))
	}
}

func TestConfigNatives(t *testing.T) {
	cfg := config.Default()
	cfg.Natives = []string{"str"}
	s, out := newSession(t, WithConfig(cfg))
	if res := s.Run(`print str(1) + "!";`, "test.fail"); res.Outcome != OutcomeOK {
		t.Fatalf("str should be available: %v", res.Diagnostics)
	}
	if out.String() != "1!\n" {
		t.Errorf("output = %q", out.String())
	}
	res := s.Run(`print len("abc");`, "test.fail")
	if res.Outcome != OutcomeRuntimeError || res.Diagnostics[0].Code != "E4011" {
		t.Errorf("len should be undefined, got %s %v", res.Outcome, codes(res.Diagnostics))
	}
}

func TestWithClock(t *testing.T) {
	fixed := time.Unix(42, 0)
	s, out := newSession(t, WithClock(func() time.Time { return fixed }))
	s.Run(`print clock();`, "test.fail")
	if out.String() != "42\n" {
		t.Errorf("output = %q", out.String())
	}
}

func TestEvalBareExpression(t *testing.T) {
	s, out := newSession(t)
	res := s.Eval("1 + 2 * 3")
	if res.Outcome != OutcomeOK {
		t.Fatalf("outcome = %s (%v)", res.Outcome, res.Diagnostics)
	}
	if n, ok := res.Value.(runtime.NumberVal); !ok || n != 7 {
		t.Errorf("value = %v", res.Value)
	}
	if out.String() != "7\n" {
		t.Errorf("output = %q", out.String())
	}
}

func TestEvalKeepsGlobals(t *testing.T) {
	s, out := newSession(t)
	steps := []string{
		`var count = 1;`,
		`fun bump() { count += 1; }`,
		`bump();`,
		`count`,
		`count = count * 10`,
		`"n" * count`,
	}
	for _, step := range steps {
		if res := s.Eval(step); res.Outcome != OutcomeOK {
			t.Fatalf("%q: outcome %s (%v)", step, res.Outcome, res.Diagnostics)
		}
	}
	want := "2\n20\n" + strings.Repeat("n", 20) + "\n"
	if out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}
}

func TestEvalResumesAfterErrors(t *testing.T) {
	s, out := newSession(t)
	if res := s.Eval("1 +"); res.Outcome != OutcomeStaticError {
		t.Errorf("outcome = %s", res.Outcome)
	}
	if res := s.Eval("nope"); res.Outcome != OutcomeRuntimeError {
		t.Errorf("outcome = %s", res.Outcome)
	}
	if res := s.Eval("this"); res.Outcome != OutcomeStaticError {
		t.Errorf("outcome = %s", res.Outcome)
	}
	if res := s.Eval("print 5;"); res.Outcome != OutcomeOK {
		t.Errorf("outcome = %s", res.Outcome)
	}
	if out.String() != "5\n" {
		t.Errorf("output = %q", out.String())
	}
}

func TestEvalEmptyInput(t *testing.T) {
	s, out := newSession(t)
	res := s.Eval("   // nothing\n")
	if res.Outcome != OutcomeOK || res.Value != nil || out.Len() != 0 {
		t.Errorf("empty input: %+v, output %q", res, out.String())
	}
}

func TestIsBareExpression(t *testing.T) {
	tests := []struct {
		source string
		want   bool
	}{
		{`1 + 2`, true},
		{`a = 3`, true},
		{`f(1, 2) ? "y" : "n"`, true},
		{`print 1`, false},
		{`x;`, false},
		{`var a = 1`, false},
		{`class A {}`, false},
		{`while (true) x`, false},
		{`do x`, false},
	}
	for _, tt := range tests {
		tokens, diags := lexer.New(tt.source, "<test>").Tokenize()
		if len(diags) > 0 {
			t.Fatalf("%q: %v", tt.source, diags)
		}
		if got := IsBareExpression(tokens); got != tt.want {
			t.Errorf("IsBareExpression(%q) = %v, want %v", tt.source, got, tt.want)
		}
	}
}

func TestNamesSorted(t *testing.T) {
	s, _ := newSession(t)
	s.Run(`var zeta = 1; fun alpha() {}`, "test.fail")
	names := s.Names()
	want := []string{"alpha", "clock", "len", "matches", "str", "zeta"}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Errorf("names = %v, want %v", names, want)
	}
}

func TestVerboseLogging(t *testing.T) {
	var trace bytes.Buffer
	s, _ := newSession(t, WithLogger(log.New(&trace, "fail: ", 0)))
	s.Run(`print 1;`, "trace.fail")
	got := trace.String()
	for _, want := range []string{"fail: session ready", "lex trace.fail", "parse: 1 statements", "resolve:", "interpret: done"} {
		if !strings.Contains(got, want) {
			t.Errorf("trace missing %q:\n%s", want, got)
		}
	}
}

func TestShadowingInitializerReadsOuter(t *testing.T) {
	s, out := newSession(t)
	res := s.Run(`var x = 1; { var x = x; print x; }`, "test.fail")
	if res.Outcome != OutcomeOK {
		t.Fatalf("outcome = %s (%v)", res.Outcome, res.Diagnostics)
	}
	if out.String() != "1\n" {
		t.Errorf("output = %q", out.String())
	}

	res = s.Run(`{ var y = y; }`, "test.fail")
	if res.Outcome != OutcomeStaticError || res.Diagnostics[0].Code != "E3002" {
		t.Errorf("self-reference: %s %v", res.Outcome, codes(res.Diagnostics))
	}
}

func TestShadowingInitializerSeesEarlierInput(t *testing.T) {
	s, out := newSession(t)
	if res := s.Eval("var y = 2;"); res.Outcome != OutcomeOK {
		t.Fatalf("outcome = %s", res.Outcome)
	}
	if res := s.Eval("{ var y = y * 3; print y; }"); res.Outcome != OutcomeOK {
		t.Fatalf("outcome = %s (%v)", res.Outcome, res.Diagnostics)
	}
	if out.String() != "6\n" {
		t.Errorf("output = %q", out.String())
	}
}
