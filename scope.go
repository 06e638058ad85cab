// scope.go
//
// Nested symbol tables with bidirectional identifier renaming.
//
// A Scope records how source names appear in the emitted target text.
// Lookups on every table walk the parent chain; writes always land in the
// scope they were issued on. Unmanglings is the reverse index of
// Manglings and is what guarantees generated names never collide with
// names already visible in the chain.
package fennel

import (
	"strconv"
	"strings"
)

// Macro is a compile-time transformer from argument forms to a
// replacement form. The result must be a list.
type Macro func(args []Value) (Value, error)

// Special emits target fragments for one primitive construct.
type Special func(c *Compiler, form *List, scope *Scope, parent *Chunk) (CompileResult, error)

// Scope is one frame of the compilation environment.
type Scope struct {
	Manglings   map[string]string
	Unmanglings map[string]string
	Macros      map[string]Macro
	Specials    map[string]Special
	Parent      *Scope
	Vararg      bool
	Depth       int
}

// NewScope creates a child frame. Variadic legality is inherited; function
// bodies overwrite it explicitly.
func NewScope(parent *Scope) *Scope {
	s := &Scope{
		Manglings:   make(map[string]string),
		Unmanglings: make(map[string]string),
		Macros:      make(map[string]Macro),
		Parent:      parent,
	}
	if parent != nil {
		s.Depth = parent.Depth + 1
		s.Vararg = parent.Vararg
	}
	return s
}

// NewRootScope creates a top-level frame carrying the built-in specials.
// The built-in table is constructed once and never written to; user
// bindings land in child frames.
func NewRootScope() *Scope {
	s := NewScope(nil)
	s.Specials = builtinSpecials
	return s
}

/* ---------- chain lookups ---------- */

func (s *Scope) mangling(name string) (string, bool) {
	for t := s; t != nil; t = t.Parent {
		if v, ok := t.Manglings[name]; ok {
			return v, true
		}
	}
	return "", false
}

func (s *Scope) unmangled(target string) bool {
	for t := s; t != nil; t = t.Parent {
		if _, ok := t.Unmanglings[target]; ok {
			return true
		}
	}
	return false
}

// LookupMacro resolves a macro through the parent chain.
func (s *Scope) LookupMacro(name string) (Macro, bool) {
	for t := s; t != nil; t = t.Parent {
		if m, ok := t.Macros[name]; ok {
			return m, true
		}
	}
	return nil, false
}

// LookupSpecial resolves a special form through the parent chain.
func (s *Scope) LookupSpecial(name string) (Special, bool) {
	for t := s; t != nil; t = t.Parent {
		if sp, ok := t.Specials[name]; ok {
			return sp, true
		}
	}
	return nil, false
}

// DefineMacro installs a transformer in this frame.
func (s *Scope) DefineMacro(name string, m Macro) { s.Macros[name] = m }

/* ---------- mangling ---------- */

// Reserved words of the target language. An emitted local may never equal
// one of these.
var reservedWords = map[string]bool{
	"and": true, "break": true, "do": true, "else": true, "elseif": true,
	"end": true, "false": true, "for": true, "function": true, "if": true,
	"in": true, "local": true, "nil": true, "not": true, "or": true,
	"repeat": true, "return": true, "then": true, "true": true,
	"until": true, "while": true,
}

func isIdentByte(b byte) bool {
	return b == '_' || (b >= '0' && b <= '9') || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isIdentStart(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// Mangle renames a source name into a legal, unique target identifier and
// records the mapping in this frame. Renaming is stable: a name already
// mangled anywhere in the chain reuses its existing mangling.
//
// "..." passes through unchanged, but only inside a variadic scope.
func (s *Scope) Mangle(name string) (string, error) {
	if name == "..." {
		if !s.Vararg {
			return "", &NameError{Name: name, Msg: "varargs not allowed here"}
		}
		return "...", nil
	}
	if m, ok := s.mangling(name); ok {
		return m, nil
	}

	raw := name
	if reservedWords[raw] || raw == "" || !isIdentStart(raw[0]) {
		raw = "_" + raw
	}
	var b strings.Builder
	for i := 0; i < len(raw); i++ {
		if isIdentByte(raw[i]) {
			b.WriteByte(raw[i])
		} else {
			// deterministic: the byte code in base 36
			b.WriteString(strconv.FormatInt(int64(raw[i]), 36))
		}
	}
	cand := b.String()
	if s.unmangled(cand) {
		for i := 0; ; i++ {
			next := cand + strconv.Itoa(i)
			if !s.unmangled(next) {
				cand = next
				break
			}
		}
	}
	s.Manglings[name] = cand
	s.Unmanglings[cand] = name
	return cand, nil
}

// Gensym returns a fresh target identifier of the shape _0, _1, ... that
// is unused anywhere in the chain, recording it in this frame.
func (s *Scope) Gensym() string {
	for i := 0; ; i++ {
		cand := "_" + strconv.Itoa(i)
		if !s.unmangled(cand) {
			s.Unmanglings[cand] = cand
			return cand
		}
	}
}
