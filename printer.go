package fennel

import (
	"strings"
)

/* ---------- AST -> re-parseable source text ---------- */

// AstToString renders an AST back to surface syntax. The result parses to
// a structurally equal value for lists, vectors, symbols, maps, 7-bit
// strings, numbers and the three scalars.
func AstToString(v Value) string {
	var b strings.Builder
	writeAst(&b, v)
	return b.String()
}

func writeAst(b *strings.Builder, v Value) {
	switch v.Tag {
	case TagNil:
		b.WriteString("nil")
	case TagBool:
		if v.Data.(bool) {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case TagNumber:
		b.WriteString(numberToString(v.Data.(float64)))
	case TagString:
		b.WriteString(quoteString(v.Data.(string)))
	case TagSymbol:
		b.WriteString(v.Data.(string))
	case TagList:
		writeSeq(b, "(", ")", v.Data.(*List).Items)
	case TagVector:
		writeSeq(b, "[", "]", v.Data.(*List).Items)
	case TagMap:
		m := v.Data.(*MapObject)
		b.WriteByte('{')
		for i, k := range m.Keys {
			if i > 0 {
				b.WriteByte(' ')
			}
			writeAst(b, k)
			b.WriteByte(' ')
			writeAst(b, m.Vals[i])
		}
		b.WriteByte('}')
	}
}

func writeSeq(b *strings.Builder, open, close string, items []Value) {
	b.WriteString(open)
	for i, item := range items {
		if i > 0 {
			b.WriteByte(' ')
		}
		writeAst(b, item)
	}
	b.WriteString(close)
}

func quoteString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		switch ch := s[i]; ch {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteByte(ch)
		}
	}
	b.WriteByte('"')
	return b.String()
}
