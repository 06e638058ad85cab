// printer_test.go
package fennel

import "testing"

// roundTrip asserts that rendering and re-parsing reproduces the value.
func roundTrip(t *testing.T, v Value) {
	t.Helper()
	src := AstToString(v)
	got := mustParseOne(t, src)
	if !Equal(v, got) {
		t.Fatalf("round-trip mismatch\nrendered: %s\nre-read:  %s", src, AstToString(got))
	}
}

func Test_Printer_RoundTrip_Scalars(t *testing.T) {
	roundTrip(t, Nil)
	roundTrip(t, Bool(true))
	roundTrip(t, Bool(false))
	roundTrip(t, Number(0))
	roundTrip(t, Number(42))
	roundTrip(t, Number(-7.25))
	roundTrip(t, Number(1e21))
	roundTrip(t, Str(""))
	roundTrip(t, Str("hello world"))
	roundTrip(t, Str("line\nbreak\tand \"quotes\" and \\slashes"))
	roundTrip(t, Sym("foo"))
	roundTrip(t, Sym("hello-world"))
	roundTrip(t, Sym("..."))
}

func Test_Printer_RoundTrip_Compound(t *testing.T) {
	roundTrip(t, ListOf(Sym("+"), Number(1), Number(2)))
	roundTrip(t, VectorOf(Number(1), Number(2), Number(3)))
	roundTrip(t, ListOf(
		Sym("fn"), Sym("add"),
		VectorOf(Sym("a"), Sym("b")),
		ListOf(Sym("+"), Sym("a"), Sym("b")),
	))
	roundTrip(t, MapOf(Str("a"), Number(1), Str("b"), ListOf(Sym("f"), Nil)))
	roundTrip(t, ListOf(Sym("f"), Nil, Nil, Nil))
}

func Test_Printer_Forms(t *testing.T) {
	cases := []struct {
		v    Value
		want string
	}{
		{Nil, "nil"},
		{Bool(true), "true"},
		{Number(1.5), "1.5"},
		{Str("a\"b"), `"a\"b"`},
		{Sym("x"), "x"},
		{ListOf(Sym("f"), Number(1)), "(f 1)"},
		{VectorOf(), "[]"},
		{MapOf(Str("k"), Number(2)), `{"k" 2}`},
	}
	for _, c := range cases {
		if got := AstToString(c.v); got != c.want {
			t.Fatalf("AstToString(%v) = %q, want %q", c.v, got, c.want)
		}
	}
}

func Test_Printer_Parse_Then_Print_Is_Canonical(t *testing.T) {
	src := "(fn   add [a    b]\n  (+ a b))"
	v := mustParseOne(t, src)
	if got := AstToString(v); got != "(fn add [a b] (+ a b))" {
		t.Fatalf("canonical form = %q", got)
	}
}
