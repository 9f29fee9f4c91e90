package diag

import (
	"strings"
	"testing"

	"fail-lang/internal/span"
)

func at(line, col int) span.Span {
	p := span.Position{Line: line, Column: col}
	return span.Span{Start: p, End: p}
}

func TestDiagnosticString(t *testing.T) {
	d := Errorf("E3001", at(3, 5), "variable '%s' already declared in this scope", "x").At(StageResolve, "x")
	got := d.String()
	want := "[E3001] error at 3:5 near 'x': variable 'x' already declared in this scope"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestDiagnosticStringWithHint(t *testing.T) {
	d := Warningf("W3001", at(1, 1), "local variable is not used")
	d.Hint = "remove it"
	if !strings.HasSuffix(d.String(), "(hint: remove it)") {
		t.Errorf("missing hint: %q", d.String())
	}
	if !strings.Contains(d.String(), "warning at 1:1") {
		t.Errorf("missing severity/location: %q", d.String())
	}
}

func TestCollectorWarningsNeverCount(t *testing.T) {
	c := NewCollector()
	c.AddStage(StageResolve, Warningf("W3001", at(1, 1), "unused"))
	if c.HasErrors() {
		t.Fatal("warning counted as error")
	}
	if c.Len() != 1 {
		t.Fatalf("expected 1 diagnostic, got %d", c.Len())
	}
}

func TestCollectorStages(t *testing.T) {
	c := NewCollector()
	c.AddStage(StageRuntime, Errorf("E4001", at(2, 1), "operands must be numbers"))
	if !c.HasErrors() {
		t.Fatal("expected errors")
	}
	if !c.HasStageErrors(StageRuntime) {
		t.Error("expected runtime-stage error")
	}
	if c.HasStageErrors(StageResolve) {
		t.Error("unexpected resolve-stage error")
	}
	if got := len(c.Filter(Error)); got != 1 {
		t.Errorf("Filter(Error) = %d, want 1", got)
	}
}
