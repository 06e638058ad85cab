// parser_test.go
package fennel

import (
	"errors"
	"strings"
	"testing"
)

/* --- helpers --------------------------------------------------------------- */

func mustParse(t *testing.T, src string) []Value {
	t.Helper()
	root, _, err := Parse(src)
	if err != nil {
		t.Fatalf("parse error: %v\nsource:\n%s", err, src)
	}
	items, _ := ListItems(root)
	return items
}

func mustParseOne(t *testing.T, src string) Value {
	t.Helper()
	items := mustParse(t, src)
	if len(items) != 1 {
		t.Fatalf("want a single form, got %d\nsource:\n%s", len(items), src)
	}
	return items[0]
}

func wantTag(t *testing.T, v Value, tag Tag) {
	t.Helper()
	if v.Tag != tag {
		t.Fatalf("want tag %v, got %v (%s)", tag, v.Tag, AstToString(v))
	}
}

func mustFailParse(t *testing.T, src string, substr string) *ParseError {
	t.Helper()
	_, _, err := Parse(src)
	if err == nil {
		t.Fatalf("expected parse error containing %q, got nil\nsource:\n%s", substr, src)
	}
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *ParseError, got %T: %v", err, err)
	}
	if substr != "" && !strings.Contains(err.Error(), substr) {
		t.Fatalf("expected error containing %q, got %v", substr, err)
	}
	return pe
}

/* --- tests ----------------------------------------------------------------- */

func Test_Parser_Scalars(t *testing.T) {
	items := mustParse(t, `nil true false 42 0.5 -7 1.5e3 "hi" x`)
	tags := []Tag{TagNil, TagBool, TagBool, TagNumber, TagNumber, TagNumber, TagNumber, TagString, TagSymbol}
	if len(items) != len(tags) {
		t.Fatalf("want %d forms, got %d", len(tags), len(items))
	}
	for i, tag := range tags {
		wantTag(t, items[i], tag)
	}
	if items[3].Data.(float64) != 42 {
		t.Fatalf("number literal mismatch: %v", items[3])
	}
	if items[5].Data.(float64) != -7 {
		t.Fatalf("negative literal mismatch: %v", items[5])
	}
	if items[7].Data.(string) != "hi" {
		t.Fatalf("string literal mismatch: %v", items[7])
	}
}

func Test_Parser_Bare_Minus_Is_A_Symbol(t *testing.T) {
	v := mustParseOne(t, "-")
	wantTag(t, v, TagSymbol)
}

func Test_Parser_Nested_Forms(t *testing.T) {
	v := mustParseOne(t, "(fn add [a b] (+ a b))")
	wantTag(t, v, TagList)
	items, _ := ListItems(v)
	if len(items) != 4 {
		t.Fatalf("want 4 items, got %d", len(items))
	}
	wantTag(t, items[0], TagSymbol)
	wantTag(t, items[2], TagVector)
	wantTag(t, items[3], TagList)
	params, _ := ListItems(items[2])
	if len(params) != 2 || !IsSym(params[0], "a") || !IsSym(params[1], "b") {
		t.Fatalf("parameter vector mismatch: %s", AstToString(items[2]))
	}
}

func Test_Parser_Map_Literal(t *testing.T) {
	v := mustParseOne(t, `{"a" 1 "b" 2}`)
	wantTag(t, v, TagMap)
	m := v.Data.(*MapObject)
	if m.Len() != 2 {
		t.Fatalf("want 2 entries, got %d", m.Len())
	}
	got, ok := m.Get(Str("b"))
	if !ok || got.Data.(float64) != 2 {
		t.Fatalf("entry b = %v ok=%v", got, ok)
	}
}

func Test_Parser_Map_Odd_Trailing_Key_Discarded(t *testing.T) {
	v := mustParseOne(t, "{1 2 3}")
	m := v.Data.(*MapObject)
	if m.Len() != 1 {
		t.Fatalf("want 1 entry, got %d", m.Len())
	}
	if _, ok := m.Get(Number(3)); ok {
		t.Fatalf("trailing key should be discarded")
	}
}

func Test_Parser_String_Escapes(t *testing.T) {
	v := mustParseOne(t, `"a\nb\t\"q\" \\ \100"`)
	want := "a\nb\t\"q\" \\ d"
	if got := v.Data.(string); got != want {
		t.Fatalf("decoded string = %q, want %q", got, want)
	}
	// single-quoted strings work the same way
	v = mustParseOne(t, `'it\'s'`)
	if got := v.Data.(string); got != "it's" {
		t.Fatalf("single-quoted string = %q", got)
	}
}

func Test_Parser_Nil_Elements_Keep_List_Length(t *testing.T) {
	v := mustParseOne(t, "(f nil nil)")
	items, _ := ListItems(v)
	if len(items) != 3 {
		t.Fatalf("nil elements must count: got %d", len(items))
	}
	wantTag(t, items[1], TagNil)
	wantTag(t, items[2], TagNil)
}

func Test_Parser_Errors(t *testing.T) {
	mustFailParse(t, "(", "unclosed")
	mustFailParse(t, "[1 2", "unclosed")
	mustFailParse(t, "(]", "mismatched")
	mustFailParse(t, "{)", "mismatched")
	mustFailParse(t, `"abc`, "unterminated")
	pe := mustFailParse(t, ")", "unexpected closing")
	if pe.Pos != 0 {
		t.Fatalf("stray closer position = %d", pe.Pos)
	}
}

func Test_Parser_Error_Position(t *testing.T) {
	pe := mustFailParse(t, "(a b ]", "mismatched")
	if pe.Pos != 5 {
		t.Fatalf("mismatch position = %d, want 5", pe.Pos)
	}
}

func Test_Parser_Dispatch_Order_And_Count(t *testing.T) {
	var seen []string
	_, count, err := ParseReader(NewStringReader("(a) (b) (c)"), func(v Value) error {
		seen = append(seen, AstToString(v))
		return nil
	})
	if err != nil {
		t.Fatalf("dispatch parse: %v", err)
	}
	if count != 3 {
		t.Fatalf("count = %d", count)
	}
	want := []string{"(a)", "(b)", "(c)"}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("dispatch order: got %v", seen)
		}
	}
}

func Test_Parser_Dispatch_Error_Aborts(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	_, _, err := ParseReader(NewStringReader("(a) (b)"), func(v Value) error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("want dispatch error back, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("dispatch should stop after the failing form, calls = %d", calls)
	}
}

func Test_Parser_WrapErrorWithSource_Snippet(t *testing.T) {
	src := "(fn add [a b]\n  (+ a b"
	_, _, err := Parse(src)
	if err == nil {
		t.Fatalf("expected parse error")
	}
	wrapped := WrapErrorWithSource(err, src)
	msg := wrapped.Error()
	if !strings.Contains(msg, "^") || !strings.Contains(msg, "|") {
		t.Fatalf("expected caret snippet, got:\n%s", msg)
	}
}
