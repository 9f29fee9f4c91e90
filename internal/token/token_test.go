package token

import (
	"testing"

	"fail-lang/internal/span"
)

func TestLookupIdent(t *testing.T) {
	tests := map[string]Kind{
		"class":    KW_CLASS,
		"continue": KW_CONTINUE,
		"none":     KW_NONE,
		"classy":   IDENT,
		"None":     IDENT,
	}
	for word, want := range tests {
		if got := LookupIdent(word); got != want {
			t.Errorf("LookupIdent(%q) = %s, want %s", word, got, want)
		}
	}
}

func TestKeywordsSortedAndComplete(t *testing.T) {
	words := Keywords()
	if len(words) != int(KW_CONTINUE-KW_AND)+1 {
		t.Fatalf("expected every keyword kind, got %v", words)
	}
	for i, w := range words {
		if i > 0 && words[i-1] >= w {
			t.Errorf("not sorted at %d: %q >= %q", i, words[i-1], w)
		}
		if !LookupIdent(w).IsKeyword() {
			t.Errorf("%q is not a keyword kind", w)
		}
	}
}

func TestBinaryOf(t *testing.T) {
	pairs := map[Kind]Kind{
		PLUS_ASSIGN:      PLUS,
		MINUS_ASSIGN:     MINUS,
		STAR_ASSIGN:      STAR,
		SLASH_ASSIGN:     SLASH,
		STAR_STAR_ASSIGN: STAR_STAR,
	}
	for compound, binary := range pairs {
		if !compound.IsCompoundAssign() {
			t.Errorf("%s should be a compound assignment", compound)
		}
		if got := compound.BinaryOf(); got != binary {
			t.Errorf("%s.BinaryOf() = %s, want %s", compound, got, binary)
		}
	}
	if ASSIGN.IsCompoundAssign() || ASSIGN.BinaryOf() != ASSIGN {
		t.Error("plain assignment is not compound")
	}
}

func TestSynthetic(t *testing.T) {
	at := span.Span{Start: span.Position{Line: 3, Column: 7}}
	tok := Synthetic(KW_TRUE, "true", at)
	if tok.Kind != KW_TRUE || tok.Lexeme != "true" || tok.Line() != 3 || tok.Literal != nil {
		t.Errorf("unexpected token %+v", tok)
	}
}
