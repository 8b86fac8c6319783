package lang

import "testing"

// fakeFields is a minimal FieldSource/VarSource double for evaluator
// tests, standing in for a session.Session.
type fakeFields struct {
	fields map[string]Value
	vars   map[string]Value
}

func (f *fakeFields) FieldValue(name string) (Value, bool) {
	v, ok := f.fields[name]
	return v, ok
}

func (f *fakeFields) AliasFieldValue(alias, field string) (Value, bool) {
	return f.FieldValue(field)
}

func (f *fakeFields) GetVar(name string) (Value, bool) {
	v, ok := f.vars[name]
	return v, ok
}

func evalExpr(t *testing.T, ctx *Context, src string) Value {
	t.Helper()
	p := NewParser(src)
	e := p.ParseExpr()
	return Eval(ctx, e)
}

func TestEvalArithmetic(t *testing.T) {
	ctx := &Context{}
	v := evalExpr(t, ctx, "2 + 3 * 4")
	if v.ToNumber() != 14 {
		t.Errorf("2 + 3 * 4 = %v, want 14", v.ToNumber())
	}
}

func TestEvalStringConcat(t *testing.T) {
	ctx := &Context{}
	v := evalExpr(t, ctx, `"foo" + "bar"`)
	if v.ToString() != "foobar" {
		t.Errorf(`"foo"+"bar" = %q, want foobar`, v.ToString())
	}
}

func TestEvalComparison(t *testing.T) {
	ctx := &Context{}
	v := evalExpr(t, ctx, "5 > 3")
	if !v.ToLogical() {
		t.Error("5 > 3 should be true")
	}
	v2 := evalExpr(t, ctx, "5 < 3")
	if v2.ToLogical() {
		t.Error("5 < 3 should be false")
	}
}

func TestEvalLogicalAnd(t *testing.T) {
	ctx := &Context{}
	v := evalExpr(t, ctx, ".T. .AND. .F.")
	if v.ToLogical() {
		t.Error(".T. .AND. .F. should be false")
	}
}

func TestEvalFieldThenVariableResolution(t *testing.T) {
	ff := &fakeFields{
		fields: map[string]Value{"NAME": StringVal("AMY")},
		vars:   map[string]Value{"NAME": StringVal("shadowed"), "MYVAR": NumberVal(7)},
	}
	ctx := &Context{Fields: ff, Vars: ff}

	if v := evalExpr(t, ctx, "NAME"); v.ToString() != "AMY" {
		t.Errorf("NAME resolved to %q, want AMY (field beats variable)", v.ToString())
	}
	if v := evalExpr(t, ctx, "MYVAR"); v.ToNumber() != 7 {
		t.Errorf("MYVAR resolved to %v, want 7", v.ToNumber())
	}
}

func TestEvalUndefinedIdentIsEmptyString(t *testing.T) {
	ctx := &Context{}
	v := evalExpr(t, ctx, "NOBODY")
	if v.ToString() != "" {
		t.Errorf("undefined ident = %q, want empty string", v.ToString())
	}
}

func TestEvalDateArithmetic(t *testing.T) {
	ctx := &Context{}
	v := evalExpr(t, ctx, "{01/15/2024} + 1")
	if v.ToDate() != "20240116" {
		t.Errorf("date+1 = %q, want 20240116", v.ToDate())
	}
}

func TestToNumberCoercesDateToJulian(t *testing.T) {
	a := DateVal("20240102")
	b := DateVal("20240101")
	if a.ToNumber()-b.ToNumber() != 1 {
		t.Errorf("date julian difference = %v, want 1", a.ToNumber()-b.ToNumber())
	}
}
