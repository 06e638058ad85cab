// compiler.go — recursive expression compiler.
//
// OVERVIEW
// --------
// compileExpr turns one AST form into target-language fragments, threading
// a CompileResult through the traversal so enclosing forms can decide
// whether a fragment may be inlined, must be named, or must be guarded to
// be a statement.
//
// The walk per form:
//  1. expand macros at the head position (iteratively, on the same call
//     site; subforms expand lazily when they are compiled);
//  2. non-list forms are emitted as literals;
//  3. a head symbol bound in the specials chain dispatches to its emitter;
//  4. anything else compiles as a function application.
//
// Toss-rest is the policy that collapses any result to exactly one
// fragment while preserving left-to-right evaluation: a missing fragment
// becomes nil, surplus fragments are evaluated in order (the first bound
// to a fresh local, the rest as statements) and discarded.
package fennel

import (
	"fmt"
	"strconv"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// CompileResult is the metadata attached to emitted fragments.
type CompileResult struct {
	// Expr holds the emitted expression fragments (possibly multi-value).
	Expr []string
	// SideEffects is true if evaluating the fragments may observably
	// affect state.
	SideEffects bool
	// SingleEval is true if each fragment evaluates its subexpressions
	// exactly once, making it safe to name and reuse.
	SingleEval bool
	// ValidStatement is true if the fragments are legal stand-alone
	// statements.
	ValidStatement bool
	// Scoped is true if emitting the fragments already introduced local
	// bindings into the parent chunk, so they must not be re-emitted.
	Scoped bool
	// UnknownExprCount is true if the arity of the fragment list is not
	// statically known (calls, varargs).
	UnknownExprCount bool
}

// Compiler carries per-unit compilation state: the indent string and the
// lazily created host state used by eval and the reflective bridge.
type Compiler struct {
	tab          string
	luaState     *lua.LState
	bridgeReady  bool
	bridgeScopes []*Scope // active scopes while reflective chunks run
}

func newCompiler(opts *Options) *Compiler {
	c := &Compiler{tab: "  "}
	if opts != nil {
		if opts.Tab != "" {
			c.tab = opts.Tab
		}
		c.luaState = opts.State
	}
	return c
}

/* ---------- expression compilation ---------- */

// compileExpr compiles one form into parent and returns its fragments.
func (c *Compiler) compileExpr(v Value, scope *Scope, parent *Chunk) (CompileResult, error) {
	v, err := c.macroexpand(v, scope)
	if err != nil {
		return CompileResult{}, err
	}
	if v.Tag != TagList {
		return c.compileLiteral(v, scope, parent)
	}

	form := v.Data.(*List)
	if form.Len() == 0 {
		return CompileResult{}, &FormError{Form: "()", Msg: "cannot compile empty form"}
	}
	if name, ok := SymName(form.Items[0]); ok {
		if sp, found := scope.LookupSpecial(name); found {
			res, err := sp(c, form, scope, parent)
			if err != nil {
				return CompileResult{}, err
			}
			if res.Expr == nil {
				res.Expr = []string{}
			}
			return res, nil
		}
	}
	return c.compileCall(form, scope, parent)
}

// compileCall emits a function application. The callee and all arguments
// but the last collapse to single fragments; the final argument keeps its
// full arity so a multi-value tail flows into the call.
func (c *Compiler) compileCall(form *List, scope *Scope, parent *Chunk) (CompileResult, error) {
	callee, err := c.compileTossRest(form.Items[0], scope, parent)
	if err != nil {
		return CompileResult{}, err
	}
	var args []string
	n := form.Len()
	for i := 1; i < n; i++ {
		if i < n-1 {
			r, err := c.compileTossRest(form.Items[i], scope, parent)
			if err != nil {
				return CompileResult{}, err
			}
			args = append(args, r.Expr[0])
		} else {
			r, err := c.compileExpr(form.Items[i], scope, parent)
			if err != nil {
				return CompileResult{}, err
			}
			if len(r.Expr) == 0 {
				args = append(args, "nil")
			} else {
				args = append(args, r.Expr...)
			}
		}
	}
	call := fmt.Sprintf("%s(%s)", callee.Expr[0], strings.Join(args, ", "))
	return CompileResult{
		Expr:             []string{call},
		SideEffects:      true,
		SingleEval:       true,
		ValidStatement:   true,
		UnknownExprCount: true,
	}, nil
}

/* ---------- macro engine ---------- */

// macroexpand rewrites the call site while its head resolves to a macro.
// Subforms are not pre-expanded.
func (c *Compiler) macroexpand(v Value, scope *Scope) (Value, error) {
	for {
		if v.Tag != TagList {
			return v, nil
		}
		form := v.Data.(*List)
		if form.Len() == 0 {
			return v, nil
		}
		name, ok := SymName(form.Items[0])
		if !ok {
			return v, nil
		}
		m, found := scope.LookupMacro(name)
		if !found {
			return v, nil
		}
		out, err := m(form.Items[1:])
		if err != nil {
			return Nil, &MacroError{Sym: name, Msg: err.Error()}
		}
		if out.Tag != TagList {
			return Nil, &MacroError{Sym: name, Msg: "expansion is not a list"}
		}
		v = out
	}
}

/* ---------- literal emission ---------- */

func (c *Compiler) compileLiteral(v Value, scope *Scope, parent *Chunk) (CompileResult, error) {
	switch v.Tag {
	case TagNil:
		return CompileResult{Expr: []string{"nil"}, SingleEval: true}, nil
	case TagBool:
		return CompileResult{Expr: []string{strconv.FormatBool(v.Data.(bool))}, SingleEval: true}, nil
	case TagNumber:
		return CompileResult{Expr: []string{numberToString(v.Data.(float64))}, SingleEval: true}, nil
	case TagString:
		return CompileResult{Expr: []string{luaQuote(v.Data.(string))}, SingleEval: true}, nil
	case TagSymbol:
		name := v.Data.(string)
		m, err := scope.Mangle(name)
		if err != nil {
			return CompileResult{}, err
		}
		return CompileResult{
			Expr:             []string{m},
			SingleEval:       true,
			UnknownExprCount: name == "...",
		}, nil
	case TagVector:
		return c.compileVectorLiteral(v.Data.(*List), scope, parent)
	case TagMap:
		return c.compileMapLiteral(v.Data.(*MapObject), scope, parent)
	default:
		return CompileResult{}, &FormError{Form: v.Tag.String(), Msg: "cannot emit as literal"}
	}
}

func (c *Compiler) compileVectorLiteral(l *List, scope *Scope, parent *Chunk) (CompileResult, error) {
	parts := make([]string, 0, l.Len())
	res := CompileResult{SingleEval: true}
	for _, item := range l.Items {
		r, err := c.compileTossRest(item, scope, parent)
		if err != nil {
			return CompileResult{}, err
		}
		parts = append(parts, r.Expr[0])
		res.SideEffects = res.SideEffects || r.SideEffects
		res.SingleEval = res.SingleEval && r.SingleEval
	}
	res.Expr = []string{"{" + strings.Join(parts, ", ") + "}"}
	return res, nil
}

// compileMapLiteral writes a table constructor: keys forming the run
// 1..n are written positionally, everything else as [k] = v in insertion
// order.
func (c *Compiler) compileMapLiteral(m *MapObject, scope *Scope, parent *Chunk) (CompileResult, error) {
	positional := map[int]bool{}
	var parts []string
	res := CompileResult{SingleEval: true}

	emit := func(v Value) (string, error) {
		r, err := c.compileTossRest(v, scope, parent)
		if err != nil {
			return "", err
		}
		res.SideEffects = res.SideEffects || r.SideEffects
		res.SingleEval = res.SingleEval && r.SingleEval
		return r.Expr[0], nil
	}

	for n := 1; ; n++ {
		v, ok := m.Get(Number(float64(n)))
		if !ok {
			break
		}
		s, err := emit(v)
		if err != nil {
			return CompileResult{}, err
		}
		parts = append(parts, s)
		positional[n] = true
	}
	for i, k := range m.Keys {
		if k.Tag == TagNumber {
			f := k.Data.(float64)
			if f == float64(int(f)) && positional[int(f)] {
				continue
			}
		}
		ks, err := emit(k)
		if err != nil {
			return CompileResult{}, err
		}
		vs, err := emit(m.Vals[i])
		if err != nil {
			return CompileResult{}, err
		}
		parts = append(parts, fmt.Sprintf("[%s] = %s", ks, vs))
	}
	res.Expr = []string{"{" + strings.Join(parts, ", ") + "}"}
	return res, nil
}

// numberToString renders the shortest decimal form that round-trips.
func numberToString(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// luaQuote renders a target string literal. Control bytes and bytes >= 128
// become decimal escapes so the output stays 7-bit clean.
func luaQuote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case ch == '"':
			b.WriteString(`\"`)
		case ch == '\\':
			b.WriteString(`\\`)
		case ch == '\n':
			b.WriteString(`\n`)
		case ch < 32 || ch >= 128:
			b.WriteByte('\\')
			b.WriteString(strconv.Itoa(int(ch)))
		default:
			b.WriteByte(ch)
		}
	}
	b.WriteByte('"')
	return b.String()
}

/* ---------- toss-rest & statements ---------- */

// tossRest collapses r to exactly one fragment. Zero fragments become
// nil; surplus fragments keep their evaluation order (the first is bound
// to a fresh local, the rest run as statements) and are discarded.
func (c *Compiler) tossRest(r CompileResult, scope *Scope, parent *Chunk) CompileResult {
	switch len(r.Expr) {
	case 0:
		r.Expr = []string{"nil"}
		r.SingleEval = true
		r.SideEffects = false
	case 1:
		// already single
	default:
		name := scope.Gensym()
		parent.Linef("local %s = %s", name, r.Expr[0])
		for _, e := range r.Expr[1:] {
			emitFragmentStatement(parent, e, r.ValidStatement)
		}
		r.Expr = []string{name}
		r.SingleEval = true
		r.Scoped = true
	}
	r.UnknownExprCount = false
	return r
}

func (c *Compiler) compileTossRest(v Value, scope *Scope, parent *Chunk) (CompileResult, error) {
	r, err := c.compileExpr(v, scope, parent)
	if err != nil {
		return CompileResult{}, err
	}
	return c.tossRest(r, scope, parent), nil
}

// emitFragmentStatement writes one fragment for effect only, guarding
// fragments that are not legal statements.
func emitFragmentStatement(parent *Chunk, fragment string, valid bool) {
	if valid {
		parent.Line(fragment)
	} else {
		parent.Linef("do local _ = %s end", fragment)
	}
}

// compileStatement compiles a form for effect. Effect-free fragments and
// fragments whose bindings were already emitted are dropped.
func (c *Compiler) compileStatement(v Value, scope *Scope, parent *Chunk) error {
	r, err := c.compileExpr(v, scope, parent)
	if err != nil {
		return err
	}
	c.emitResult(r, parent)
	return nil
}

func (c *Compiler) emitResult(r CompileResult, parent *Chunk) {
	if len(r.Expr) == 0 || !r.SideEffects || r.Scoped {
		return
	}
	for _, e := range r.Expr {
		emitFragmentStatement(parent, e, r.ValidStatement)
	}
}

/* ---------- top-level units ---------- */

// compileUnit compiles a sequence of top-level forms into chunk. The last
// form keeps its full arity and is returned from the produced chunk.
func (c *Compiler) compileUnit(forms []Value, scope *Scope, chunk *Chunk) error {
	for i, form := range forms {
		if i < len(forms)-1 {
			if err := c.compileStatement(form, scope, chunk); err != nil {
				return err
			}
			continue
		}
		r, err := c.compileExpr(form, scope, chunk)
		if err != nil {
			return err
		}
		if len(r.Expr) > 0 {
			chunk.Linef("return %s", strings.Join(r.Expr, ", "))
		}
	}
	return nil
}
