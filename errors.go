// errors.go: compiler error kinds and caret-snippet rendering
//
// Every failure mode of the pipeline has a dedicated error type so callers
// can switch on the kind with errors.As. All of them are fatal to the
// current compilation unit; there is no partial recovery.
//
//   - *ParseError:  unmatched delimiter, unterminated string, stray byte.
//     Carries the absolute byte position in the unit.
//   - *MacroError:  a macro expansion produced a non-list form, or the
//     transformer itself failed.
//   - *FormError:   a special form received arguments of the wrong shape.
//   - *NameError:   an identifier cannot be used here (varargs outside a
//     variadic scope).
//   - *BridgeError: the reflective compiler chunk failed to load or run in
//     the host state.
//
// WrapErrorWithSource upgrades a *ParseError into a readable snippet with a
// caret pointing at the offending byte:
//
//	parse error at 2:14: expected closing ')'
//
//	   1 | (fn add [a b]
//	   2 |   (+ a b
//	       |        ^
//
// Errors of any other kind are returned unchanged.
package fennel

import (
	"fmt"
	"strings"
)

// ParseError reports a fatal syntax error at an absolute byte position.
type ParseError struct {
	Pos int
	Msg string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at byte %d: %s", e.Pos, e.Msg)
}

// MacroError reports a failed or malformed macro expansion.
type MacroError struct {
	Sym string
	Msg string
}

func (e *MacroError) Error() string {
	return fmt.Sprintf("macro %s: %s", e.Sym, e.Msg)
}

// FormError reports a special form applied to arguments of the wrong shape.
type FormError struct {
	Form string
	Msg  string
}

func (e *FormError) Error() string {
	return fmt.Sprintf("bad %s form: %s", e.Form, e.Msg)
}

// NameError reports an identifier that is illegal in the current scope.
type NameError struct {
	Name string
	Msg  string
}

func (e *NameError) Error() string {
	return fmt.Sprintf("%s: %s", e.Name, e.Msg)
}

// BridgeError reports a failure loading or running a reflective compiler
// chunk in the host state.
type BridgeError struct {
	Msg string
	Err error
}

func (e *BridgeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("compiler bridge: %s: %v", e.Msg, e.Err)
	}
	return fmt.Sprintf("compiler bridge: %s", e.Msg)
}

func (e *BridgeError) Unwrap() error { return e.Err }

/* ===========================
   caret snippets
   =========================== */

// WrapErrorWithSource returns err augmented with a caret-annotated snippet
// of src when err is a *ParseError. Other errors pass through untouched.
func WrapErrorWithSource(err error, src string) error {
	pe, ok := err.(*ParseError)
	if !ok {
		return err
	}
	line, col := lineCol(src, pe.Pos)
	return fmt.Errorf("%s", prettyErrorString(src, "parse error", line, col, pe.Msg))
}

// lineCol converts a byte offset into 1-based line/column coordinates,
// clamped to the source bounds.
func lineCol(src string, pos int) (int, int) {
	if pos < 0 {
		pos = 0
	}
	if pos > len(src) {
		pos = len(src)
	}
	line, col := 1, 1
	for i := 0; i < pos; i++ {
		if src[i] == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return line, col
}

// prettyErrorString builds a snippet with a header and a caret. It shows at
// most one previous and one next line when available. Coordinates are
// 1-based and clamped.
func prettyErrorString(src, header string, line, col int, msg string) string {
	lines := strings.Split(src, "\n")
	if line < 1 {
		line = 1
	}
	if col < 1 {
		col = 1
	}
	if len(lines) == 0 {
		lines = []string{""}
	}
	if line > len(lines) {
		line = len(lines)
	}
	lineTxt := lines[line-1]

	var b strings.Builder
	fmt.Fprintf(&b, "%s at %d:%d: %s\n\n", header, line, col, msg)
	if line > 1 {
		fmt.Fprintf(&b, "%4d | %s\n", line-1, lines[line-2])
	}
	fmt.Fprintf(&b, "%4d | %s\n", line, lineTxt)
	fmt.Fprintf(&b, "     | %s^\n", strings.Repeat(" ", col-1))
	if line < len(lines) {
		fmt.Fprintf(&b, "%4d | %s\n", line+1, lines[line])
	}
	return b.String()
}
