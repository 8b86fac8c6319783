package lang

import "testing"

func lexAll(t *testing.T, src string) []Token {
	t.Helper()
	l := NewLexer(src)
	var toks []Token
	for {
		tok, err := l.Next()
		if err != nil {
			t.Fatalf("lex error: %v", err)
		}
		toks = append(toks, tok)
		if tok.Kind == EOF {
			return toks
		}
	}
}

func TestLexerIdentifiersAndKeywords(t *testing.T) {
	toks := lexAll(t, "USE people")
	if len(toks) < 2 {
		t.Fatalf("got %d tokens, want at least 2", len(toks))
	}
	if toks[0].Kind != KwUse {
		t.Errorf("first token kind = %v, want KwUse", toks[0].Kind)
	}
	if toks[1].Kind != Ident || toks[1].Text != "people" {
		t.Errorf("second token = %+v, want Ident(people)", toks[1])
	}
}

func TestLexerNumberAndString(t *testing.T) {
	toks := lexAll(t, `? 3.14, "hello"`)
	var nums, strs int
	for _, tok := range toks {
		switch tok.Kind {
		case Number:
			nums++
			if tok.Number != 3.14 {
				t.Errorf("Number = %v, want 3.14", tok.Number)
			}
		case String:
			strs++
			if tok.Text != "hello" {
				t.Errorf("String = %q, want hello", tok.Text)
			}
		}
	}
	if nums != 1 || strs != 1 {
		t.Fatalf("nums=%d strs=%d, want 1 and 1", nums, strs)
	}
}

func TestLexerDottedOperators(t *testing.T) {
	toks := lexAll(t, ".T. .AND. .NOT. .F.")
	want := []Kind{DotTrue, DotAnd, DotNot, DotFalse, EOF}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(toks), len(want))
	}
	for i, k := range want {
		if toks[i].Kind != k {
			t.Errorf("token %d kind = %v, want %v", i, toks[i].Kind, k)
		}
	}
}

func TestLexerLineCommentsAreSkipped(t *testing.T) {
	toks := lexAll(t, "* this is a comment\nUSE people && trailing comment\n")
	var kinds []Kind
	for _, tok := range toks {
		if tok.Kind != Newline {
			kinds = append(kinds, tok.Kind)
		}
	}
	if len(kinds) < 2 || kinds[0] != KwUse {
		t.Fatalf("comments were not skipped cleanly: %v", kinds)
	}
}

func TestLexerDateLiteral(t *testing.T) {
	toks := lexAll(t, "{01/15/2024}")
	if toks[0].Kind != DateLiteral {
		t.Fatalf("kind = %v, want DateLiteral", toks[0].Kind)
	}
	if toks[0].Text != "01/15/2024" {
		t.Errorf("Text = %q, want 01/15/2024", toks[0].Text)
	}
}

func TestLexerUnterminatedStringErrors(t *testing.T) {
	l := NewLexer(`"never closed`)
	if _, err := l.Next(); err == nil {
		t.Fatal("expected a syntax error for an unterminated string")
	}
}

func TestLexerPeekDoesNotConsume(t *testing.T) {
	l := NewLexer("SKIP 1")
	first, err := l.Peek()
	if err != nil {
		t.Fatalf("Peek: %v", err)
	}
	second, err := l.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if first.Kind != second.Kind {
		t.Fatal("Peek should return the same token Next then consumes")
	}
}
