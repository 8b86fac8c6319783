package lang

import "testing"

func parseOne(t *testing.T, src string) *Command {
	t.Helper()
	p := NewParser(src)
	cmd, err := p.ParseCommand()
	if err != nil {
		t.Fatalf("ParseCommand(%q): %v", src, err)
	}
	return cmd
}

func TestParseUse(t *testing.T) {
	cmd := parseOne(t, "USE people")
	if cmd.Kind != CmdUse {
		t.Fatalf("Kind = %v, want CmdUse", cmd.Kind)
	}
	if cmd.Filename != "people" {
		t.Errorf("Filename = %q, want people", cmd.Filename)
	}
}

func TestParseGoAndSkip(t *testing.T) {
	cmd := parseOne(t, "GO TOP")
	if cmd.Kind != CmdGo {
		t.Fatalf("Kind = %v, want CmdGo", cmd.Kind)
	}
	cmd2 := parseOne(t, "SKIP 3")
	if cmd2.Kind != CmdSkip {
		t.Fatalf("Kind = %v, want CmdSkip", cmd2.Kind)
	}
}

func TestParseSeekExpression(t *testing.T) {
	cmd := parseOne(t, `SEEK "MIKE"`)
	if cmd.Kind != CmdSeek {
		t.Fatalf("Kind = %v, want CmdSeek", cmd.Kind)
	}
	if cmd.Key == nil || cmd.Key.Kind != ExprString || cmd.Key.Str != "MIKE" {
		t.Fatalf("Key = %+v, want string literal MIKE", cmd.Key)
	}
}

func TestParseReplaceWith(t *testing.T) {
	cmd := parseOne(t, "REPLACE AGE WITH AGE + 1")
	if cmd.Kind != CmdReplace {
		t.Fatalf("Kind = %v, want CmdReplace", cmd.Kind)
	}
	if len(cmd.Replacements) != 1 || cmd.Replacements[0].Field != "AGE" {
		t.Fatalf("Replacements = %+v", cmd.Replacements)
	}
	val := cmd.Replacements[0].Value
	if val.Kind != ExprBinary || val.Op != Plus {
		t.Fatalf("replace value = %+v, want a + expression", val)
	}
}

func TestParseCloseTarget(t *testing.T) {
	cmd := parseOne(t, "CLOSE INDEXES")
	if cmd.Kind != CmdClose {
		t.Fatalf("Kind = %v, want CmdClose", cmd.Kind)
	}
	if cmd.CloseWhat != CloseIndexes {
		t.Fatalf("CloseWhat = %v, want CloseIndexes", cmd.CloseWhat)
	}
}

func TestParseIndexOnUnique(t *testing.T) {
	cmd := parseOne(t, "INDEX ON NAME TO byname UNIQUE")
	if cmd.Kind != CmdIndex {
		t.Fatalf("Kind = %v, want CmdIndex", cmd.Kind)
	}
	if !cmd.Unique {
		t.Error("Unique should be true")
	}
	if cmd.Filename != "byname" {
		t.Errorf("Filename = %q, want byname", cmd.Filename)
	}
}

func TestParseScopeAndForCondition(t *testing.T) {
	cmd := parseOne(t, `LIST FOR AGE > 18`)
	if cmd.Kind != CmdList {
		t.Fatalf("Kind = %v, want CmdList", cmd.Kind)
	}
	if cmd.Condition == nil || cmd.Condition.Kind != ExprBinary || cmd.Condition.Op != Gt {
		t.Fatalf("Condition = %+v, want a > comparison", cmd.Condition)
	}
}

func TestParseExprPrecedence(t *testing.T) {
	p := NewParser("2 + 3 * 4")
	e := p.ParseExpr()
	if e.Kind != ExprBinary || e.Op != Plus {
		t.Fatalf("top operator = %v, want Plus", e.Op)
	}
	if e.Right.Kind != ExprBinary || e.Right.Op != Star {
		t.Fatalf("right side = %+v, want a * expression (precedence)", e.Right)
	}
}

func TestParseExprParentheses(t *testing.T) {
	p := NewParser("(2 + 3) * 4")
	e := p.ParseExpr()
	if e.Kind != ExprBinary || e.Op != Star {
		t.Fatalf("top operator = %v, want Star", e.Op)
	}
	if e.Left.Kind != ExprBinary || e.Left.Op != Plus {
		t.Fatalf("left side = %+v, want a + expression (grouped)", e.Left)
	}
}

func TestParseMalformedCommandErrors(t *testing.T) {
	p := NewParser("THIS IS NOT A COMMAND @@@")
	if _, err := p.ParseCommand(); err == nil {
		t.Fatal("expected a syntax error for a malformed command")
	}
}
