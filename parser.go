// parser.go — token-free recursive descent over delimiters.
//
// OVERVIEW
// --------
// The surface syntax is fully determined by six delimiter bytes and
// whitespace, so there is no separate lexer: the parser walks Reader bytes
// directly and builds tagged Values.
//
//	sequence := atom*
//	atom     := list | vector | map | string | word
//	list     := '(' sequence ')'
//	vector   := '[' sequence ']'
//	map      := '{' sequence '}'
//	string   := '"' ... '"' | "'" ... "'"    ('\' escapes)
//	word     := run of non-whitespace, non-delimiter bytes
//
// Atom semantics:
//   - a list becomes a TagList value, a vector a TagVector value;
//   - a map literal takes its sequence as alternating key/value pairs
//     (mapify); an odd trailing key is discarded;
//   - strings decode the usual backslash escapes; an unknown escape keeps
//     the escaped byte;
//   - a word is nil/true/false, else a number, else a symbol.
//
// A closing delimiter that does not match the innermost pending opener is
// fatal, as is end of input inside an open form or string. There is no
// error recovery.
//
// Two modes are exposed: collect-all (returns the root list of top-level
// forms) and dispatch (invokes a callback per completed top-level form and
// releases the consumed reader prefix, which is what streaming callers
// rely on).
package fennel

import (
	"math"
	"strconv"
	"strings"
)

////////////////////////////////////////////////////////////////////////////////
//                                  PUBLIC API
////////////////////////////////////////////////////////////////////////////////

// Parse parses a complete source string and returns the root list of
// top-level forms along with their count.
func Parse(src string) (Value, int, error) {
	return ParseReader(NewStringReader(src), nil)
}

// ParseReader parses every top-level form available from r. When dispatch
// is non-nil it is invoked for each form as soon as the form is complete,
// the consumed prefix is released, and the returned root list is empty.
// A dispatch error aborts parsing and is returned as-is.
func ParseReader(r *Reader, dispatch func(Value) error) (Value, int, error) {
	p := &parser{r: r}
	var items []Value
	count := 0
	for {
		p.skipSpace()
		b, ok := p.r.Byte(p.pos)
		if !ok {
			break
		}
		if isCloser(b) {
			return Nil, count, &ParseError{Pos: p.pos, Msg: "unexpected closing delimiter " + string(b)}
		}
		v, err := p.parseExpr()
		if err != nil {
			return Nil, count, err
		}
		count++
		if dispatch != nil {
			if err := dispatch(v); err != nil {
				return Nil, count, err
			}
			p.r.Free(p.pos)
		} else {
			items = append(items, v)
		}
	}
	return ListOf(items...), count, nil
}

////////////////////////////////////////////////////////////////////////////////
//                                implementation
////////////////////////////////////////////////////////////////////////////////

type parser struct {
	r   *Reader
	pos int // absolute index of the next unread byte
}

func isSpace(b byte) bool { return b == ' ' || (b >= 9 && b <= 13) }

func isDelim(b byte) bool {
	switch b {
	case '(', ')', '[', ']', '{', '}':
		return true
	}
	return false
}

func isCloser(b byte) bool { return b == ')' || b == ']' || b == '}' }

func closerFor(open byte) byte {
	switch open {
	case '(':
		return ')'
	case '[':
		return ']'
	default:
		return '}'
	}
}

func (p *parser) skipSpace() {
	for {
		b, ok := p.r.Byte(p.pos)
		if !ok || !isSpace(b) {
			return
		}
		p.pos++
	}
}

// parseExpr parses one atom starting at the current position. The caller
// has already ruled out end of input and stray closers.
func (p *parser) parseExpr() (Value, error) {
	b, _ := p.r.Byte(p.pos)
	switch b {
	case '(', '[', '{':
		return p.parseSequence(b)
	case '"', '\'':
		return p.parseString(b)
	default:
		return p.parseWord()
	}
}

func (p *parser) parseSequence(open byte) (Value, error) {
	openPos := p.pos
	close := closerFor(open)
	p.pos++ // consume opener
	var items []Value
	for {
		p.skipSpace()
		b, ok := p.r.Byte(p.pos)
		if !ok {
			return Nil, &ParseError{Pos: openPos, Msg: "unclosed " + string(open)}
		}
		if b == close {
			p.pos++
			break
		}
		if isCloser(b) {
			return Nil, &ParseError{Pos: p.pos, Msg: "mismatched closing delimiter " + string(b) + ", expected " + string(close)}
		}
		v, err := p.parseExpr()
		if err != nil {
			return Nil, err
		}
		items = append(items, v)
	}
	switch open {
	case '(':
		return ListOf(items...), nil
	case '[':
		return VectorOf(items...), nil
	default:
		return mapify(items), nil
	}
}

// mapify folds a flat sequence into a map: odd positions are keys, even
// positions the associated values. An odd trailing key is discarded.
func mapify(items []Value) Value {
	m := &MapObject{}
	for i := 0; i+1 < len(items); i += 2 {
		m.Set(items[i], items[i+1])
	}
	return Value{Tag: TagMap, Data: m}
}

func (p *parser) parseString(quote byte) (Value, error) {
	start := p.pos
	p.pos++ // consume opening quote
	var b strings.Builder
	for {
		ch, ok := p.r.Byte(p.pos)
		if !ok {
			return Nil, &ParseError{Pos: start, Msg: "unterminated string"}
		}
		p.pos++
		switch {
		case ch == quote:
			return Str(b.String()), nil
		case ch == '\\':
			esc, ok := p.r.Byte(p.pos)
			if !ok {
				return Nil, &ParseError{Pos: start, Msg: "unterminated string"}
			}
			p.pos++
			b.WriteByte(decodeEscape(p, esc))
		default:
			b.WriteByte(ch)
		}
	}
}

// decodeEscape handles the byte after a backslash. Decimal escapes consume
// up to three digits.
func decodeEscape(p *parser, esc byte) byte {
	switch esc {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	case 'a':
		return 7
	case 'b':
		return 8
	case 'f':
		return 12
	case 'v':
		return 11
	case '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		n := int(esc - '0')
		for digits := 1; digits < 3; digits++ {
			d, ok := p.r.Byte(p.pos)
			if !ok || d < '0' || d > '9' {
				break
			}
			n = n*10 + int(d-'0')
			p.pos++
		}
		return byte(n)
	default:
		// covers \\ \" \' and anything else: keep the escaped byte
		return esc
	}
}

func (p *parser) parseWord() (Value, error) {
	start := p.pos
	for {
		b, ok := p.r.Byte(p.pos)
		if !ok || isSpace(b) || isDelim(b) {
			break
		}
		p.pos++
	}
	word := p.r.Sub(start, p.pos)
	switch word {
	case "nil":
		return Nil, nil
	case "true":
		return Bool(true), nil
	case "false":
		return Bool(false), nil
	}
	if f, err := strconv.ParseFloat(word, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return Number(f), nil
	}
	return Sym(word), nil
}
