// specials.go — one emitter per primitive construct.
//
// Each special receives the whole form, the active scope and the chunk it
// may emit statements into, and returns the fragments the form evaluates
// to. The built-in table is assembled once at package init and installed
// into every root scope; child scopes reach it through chain lookup, so
// nothing here is mutated after init.
package fennel

import (
	"fmt"
	"strings"
)

var builtinSpecials map[string]Special

func init() {
	builtinSpecials = map[string]Special{
		"fn":        specialFn,
		".":         specialIndex,
		"var":       specialVar,
		"set":       specialSet,
		"--":        specialComment,
		"block":     specialBlock,
		"do":        specialDo,
		"values":    specialValues,
		"*branch":   specialBranch,
		"*while":    specialWhile,
		"*dowhile":  specialDoWhile,
		"*for":      specialFor,
		"*break":    specialBreak,
		"*compiler": specialCompiler,
	}
	for name, op := range arithmeticOps {
		builtinSpecials[name] = makeArithmetic(name, op)
	}
	for name, op := range comparatorOps {
		builtinSpecials[name] = makeComparator(name, op)
	}
	for name, op := range unaryOps {
		builtinSpecials[name] = makeUnary(name, op)
	}
}

/* ---------- functions & indexing ---------- */

// (fn [name] [params...] body...)
func specialFn(c *Compiler, form *List, scope *Scope, parent *Chunk) (CompileResult, error) {
	i := 1
	var fname string
	var err error
	if i < form.Len() {
		if name, ok := SymName(form.Items[i]); ok {
			fname, err = scope.Mangle(name)
			if err != nil {
				return CompileResult{}, err
			}
			i++
		}
	}
	if fname == "" {
		fname = scope.Gensym()
	}
	if i >= form.Len() || form.Items[i].Tag != TagVector {
		return CompileResult{}, &FormError{Form: "fn", Msg: "expected parameter vector"}
	}
	params := form.Items[i].Data.(*List)
	i++

	child := NewScope(scope)
	child.Vararg = false
	var paramNames []string
	for _, p := range params.Items {
		name, ok := SymName(p)
		if !ok {
			return CompileResult{}, &FormError{Form: "fn", Msg: "parameters must be symbols"}
		}
		if name == "..." {
			child.Vararg = true
			paramNames = append(paramNames, "...")
			continue
		}
		m, err := child.Mangle(name)
		if err != nil {
			return CompileResult{}, err
		}
		paramNames = append(paramNames, m)
	}

	parent.Linef("local function %s(%s)", fname, strings.Join(paramNames, ", "))
	body := parent.Sub()
	forms := form.Items[i:]
	for j, bf := range forms {
		if j < len(forms)-1 {
			if err := c.compileStatement(bf, child, body); err != nil {
				return CompileResult{}, err
			}
			continue
		}
		r, err := c.compileExpr(bf, child, body)
		if err != nil {
			return CompileResult{}, err
		}
		if len(r.Expr) > 0 {
			body.Linef("return %s", strings.Join(r.Expr, ", "))
		}
	}
	parent.Line("end")

	return CompileResult{Expr: []string{fname}, SingleEval: true, Scoped: true}, nil
}

// (. t k)
func specialIndex(c *Compiler, form *List, scope *Scope, parent *Chunk) (CompileResult, error) {
	if form.Len() != 3 {
		return CompileResult{}, &FormError{Form: ".", Msg: "expected a table and a key"}
	}
	t, err := c.compileTossRest(form.Items[1], scope, parent)
	if err != nil {
		return CompileResult{}, err
	}
	k, err := c.compileTossRest(form.Items[2], scope, parent)
	if err != nil {
		return CompileResult{}, err
	}
	return CompileResult{
		Expr:        []string{fmt.Sprintf("%s[%s]", t.Expr[0], k.Expr[0])},
		SideEffects: t.SideEffects || k.SideEffects,
		SingleEval:  t.SingleEval && k.SingleEval,
	}, nil
}

/* ---------- bindings ---------- */

func specialVar(c *Compiler, form *List, scope *Scope, parent *Chunk) (CompileResult, error) {
	return compileAssign(c, form, scope, parent, "var", true)
}

func specialSet(c *Compiler, form *List, scope *Scope, parent *Chunk) (CompileResult, error) {
	return compileAssign(c, form, scope, parent, "set", false)
}

// (var x ... expr) / (set x ... expr): one or more target symbols and a
// trailing expression compiled at full arity so multi-value returns feed
// multi-target assignment.
func compileAssign(c *Compiler, form *List, scope *Scope, parent *Chunk, what string, local bool) (CompileResult, error) {
	if form.Len() < 3 {
		return CompileResult{}, &FormError{Form: what, Msg: "expected targets and a value"}
	}
	var targets []string
	for _, t := range form.Items[1 : form.Len()-1] {
		name, ok := SymName(t)
		if !ok {
			return CompileResult{}, &FormError{Form: what, Msg: "targets must be symbols"}
		}
		m, err := scope.Mangle(name)
		if err != nil {
			return CompileResult{}, err
		}
		targets = append(targets, m)
	}
	r, err := c.compileExpr(form.Items[form.Len()-1], scope, parent)
	if err != nil {
		return CompileResult{}, err
	}
	exprs := r.Expr
	if len(exprs) == 0 {
		exprs = []string{"nil"}
	}
	prefix := ""
	if local {
		prefix = "local "
	}
	parent.Linef("%s%s = %s", prefix, strings.Join(targets, ", "), strings.Join(exprs, ", "))
	return CompileResult{Scoped: local}, nil
}

/* ---------- comments ---------- */

// (-- "text" ...): target comments; every argument must be a string.
func specialComment(c *Compiler, form *List, scope *Scope, parent *Chunk) (CompileResult, error) {
	for _, arg := range form.Items[1:] {
		if arg.Tag != TagString {
			return CompileResult{}, &FormError{Form: "--", Msg: "comment text must be a string"}
		}
		parent.Linef("-- %s", arg.Data.(string))
	}
	return CompileResult{}, nil
}

/* ---------- blocks ---------- */

// (block body...): a statement-only scope; evaluates to nil.
func specialBlock(c *Compiler, form *List, scope *Scope, parent *Chunk) (CompileResult, error) {
	child := NewScope(scope)
	parent.Line("do")
	body := parent.Sub()
	for _, bf := range form.Items[1:] {
		if err := c.compileStatement(bf, child, body); err != nil {
			return CompileResult{}, err
		}
	}
	parent.Line("end")
	return CompileResult{}, nil
}

// (do body...): value-producing block. A tail of unknown arity is wrapped
// in an immediately invoked local function; a known tail is carried out of
// the block through hoisted locals.
func specialDo(c *Compiler, form *List, scope *Scope, parent *Chunk) (CompileResult, error) {
	body := form.Items[1:]
	if len(body) == 0 {
		return CompileResult{}, nil
	}
	child := NewScope(scope)
	inner := &Chunk{}
	for _, bf := range body[:len(body)-1] {
		if err := c.compileStatement(bf, child, inner); err != nil {
			return CompileResult{}, err
		}
	}
	tail, err := c.compileExpr(body[len(body)-1], child, inner)
	if err != nil {
		return CompileResult{}, err
	}

	if tail.UnknownExprCount {
		fname := scope.Gensym()
		varargs := ""
		if scope.Vararg {
			varargs = "..."
		}
		parent.Linef("local function %s(%s)", fname, varargs)
		if len(tail.Expr) > 0 {
			inner.Linef("return %s", strings.Join(tail.Expr, ", "))
		}
		parent.AddSub(inner)
		parent.Line("end")
		// the wrapper definition is already in parent, but the invocation
		// fragment is not: leaving Scoped unset makes statement positions
		// emit the call
		return CompileResult{
			Expr:             []string{fmt.Sprintf("%s(%s)", fname, varargs)},
			SideEffects:      true,
			SingleEval:       true,
			ValidStatement:   true,
			UnknownExprCount: true,
		}, nil
	}

	if len(tail.Expr) == 0 {
		parent.Line("do")
		parent.AddSub(inner)
		parent.Line("end")
		return CompileResult{}, nil
	}

	names := make([]string, len(tail.Expr))
	for i := range names {
		names[i] = scope.Gensym()
	}
	parent.Linef("local %s", strings.Join(names, ", "))
	inner.Linef("%s = %s", strings.Join(names, ", "), strings.Join(tail.Expr, ", "))
	parent.Line("do")
	parent.AddSub(inner)
	parent.Line("end")
	return CompileResult{
		Expr:        names,
		SideEffects: true,
		SingleEval:  true,
		Scoped:      true,
	}, nil
}

// (values v1 ... vn): multi-value result; only the last operand keeps its
// arity.
func specialValues(c *Compiler, form *List, scope *Scope, parent *Chunk) (CompileResult, error) {
	res := CompileResult{SingleEval: true}
	n := form.Len()
	for i := 1; i < n; i++ {
		if i < n-1 {
			r, err := c.compileTossRest(form.Items[i], scope, parent)
			if err != nil {
				return CompileResult{}, err
			}
			res.Expr = append(res.Expr, r.Expr[0])
			res.SideEffects = res.SideEffects || r.SideEffects
			res.SingleEval = res.SingleEval && r.SingleEval
		} else {
			r, err := c.compileExpr(form.Items[i], scope, parent)
			if err != nil {
				return CompileResult{}, err
			}
			res.Expr = append(res.Expr, r.Expr...)
			res.SideEffects = res.SideEffects || r.SideEffects
			res.SingleEval = res.SingleEval && r.SingleEval
			res.UnknownExprCount = r.UnknownExprCount
		}
	}
	return res, nil
}

/* ---------- branching & loops ---------- */

func isBranchSym(v Value) bool { return IsSym(v, "*branch") }

// (*branch cond body... *branch else body...) with elseif clauses spelled
// (*branch ... *branch elseif cond body...). Every clause gets a fresh
// scope; the whole form evaluates to nil.
//
// An elseif condition that needs statements of its own cannot share the
// enclosing chunk (the statements would land inside the preceding clause),
// so the rest of the chain is lowered into a nested if inside an else
// block.
func specialBranch(c *Compiler, form *List, scope *Scope, parent *Chunk) (CompileResult, error) {
	items := form.Items[1:]
	if len(items) == 0 {
		return CompileResult{}, &FormError{Form: "*branch", Msg: "expected a condition"}
	}
	cond, err := c.compileTossRest(items[0], scope, parent)
	if err != nil {
		return CompileResult{}, err
	}
	parent.Linef("if %s then", cond.Expr[0])
	open := []*Chunk{parent} // chunks holding an if awaiting its end
	target := parent
	i := 1
	for {
		clause := target.Sub()
		clauseScope := NewScope(scope)
		for i < len(items) && !isBranchSym(items[i]) {
			if err := c.compileStatement(items[i], clauseScope, clause); err != nil {
				return CompileResult{}, err
			}
			i++
		}
		if i >= len(items) {
			break
		}
		i++ // the *branch marker
		if i >= len(items) {
			return CompileResult{}, &FormError{Form: "*branch", Msg: "expected else or elseif after *branch"}
		}
		kw, ok := SymName(items[i])
		if !ok || (kw != "else" && kw != "elseif") {
			return CompileResult{}, &FormError{Form: "*branch", Msg: "expected else or elseif after *branch"}
		}
		i++
		if kw == "else" {
			target.Line("else")
			continue
		}
		if i >= len(items) {
			return CompileResult{}, &FormError{Form: "*branch", Msg: "elseif needs a condition"}
		}
		staging := &Chunk{}
		cond, err := c.compileTossRest(items[i], scope, staging)
		if err != nil {
			return CompileResult{}, err
		}
		i++
		if len(staging.nodes) == 0 {
			target.Linef("elseif %s then", cond.Expr[0])
			continue
		}
		target.Line("else")
		inner := target.Sub()
		inner.Splice(staging)
		inner.Linef("if %s then", cond.Expr[0])
		open = append(open, inner)
		target = inner
	}
	for j := len(open) - 1; j >= 0; j-- {
		open[j].Line("end")
	}
	return CompileResult{}, nil
}

// (*while cond body...)
func specialWhile(c *Compiler, form *List, scope *Scope, parent *Chunk) (CompileResult, error) {
	if form.Len() < 2 {
		return CompileResult{}, &FormError{Form: "*while", Msg: "expected a condition"}
	}
	cond, err := c.compileTossRest(form.Items[1], scope, parent)
	if err != nil {
		return CompileResult{}, err
	}
	parent.Linef("while %s do", cond.Expr[0])
	body := parent.Sub()
	child := NewScope(scope)
	for _, bf := range form.Items[2:] {
		if err := c.compileStatement(bf, child, body); err != nil {
			return CompileResult{}, err
		}
	}
	parent.Line("end")
	return CompileResult{}, nil
}

// (*dowhile cond body...): the body runs before the first test, so the
// condition compiles inside the loop chunk.
func specialDoWhile(c *Compiler, form *List, scope *Scope, parent *Chunk) (CompileResult, error) {
	if form.Len() < 2 {
		return CompileResult{}, &FormError{Form: "*dowhile", Msg: "expected a condition"}
	}
	parent.Line("repeat")
	body := parent.Sub()
	child := NewScope(scope)
	for _, bf := range form.Items[2:] {
		if err := c.compileStatement(bf, child, body); err != nil {
			return CompileResult{}, err
		}
	}
	cond, err := c.compileTossRest(form.Items[1], child, body)
	if err != nil {
		return CompileResult{}, err
	}
	parent.Linef("until %s", cond.Expr[0])
	return CompileResult{}, nil
}

// (*for i [start stop step?] body...)
func specialFor(c *Compiler, form *List, scope *Scope, parent *Chunk) (CompileResult, error) {
	if form.Len() < 3 {
		return CompileResult{}, &FormError{Form: "*for", Msg: "expected a loop variable and a range vector"}
	}
	name, ok := SymName(form.Items[1])
	if !ok {
		return CompileResult{}, &FormError{Form: "*for", Msg: "loop variable must be a symbol"}
	}
	if form.Items[2].Tag != TagVector {
		return CompileResult{}, &FormError{Form: "*for", Msg: "expected a range vector"}
	}
	rng := form.Items[2].Data.(*List)
	if rng.Len() < 2 || rng.Len() > 3 {
		return CompileResult{}, &FormError{Form: "*for", Msg: "range vector needs start and stop, with an optional step"}
	}
	child := NewScope(scope)
	v, err := child.Mangle(name)
	if err != nil {
		return CompileResult{}, err
	}
	var bounds []string
	for _, b := range rng.Items {
		r, err := c.compileTossRest(b, scope, parent)
		if err != nil {
			return CompileResult{}, err
		}
		bounds = append(bounds, r.Expr[0])
	}
	parent.Linef("for %s = %s do", v, strings.Join(bounds, ", "))
	body := parent.Sub()
	for _, bf := range form.Items[3:] {
		if err := c.compileStatement(bf, child, body); err != nil {
			return CompileResult{}, err
		}
	}
	parent.Line("end")
	return CompileResult{}, nil
}

func specialBreak(c *Compiler, form *List, scope *Scope, parent *Chunk) (CompileResult, error) {
	parent.Line("break")
	return CompileResult{}, nil
}

/* ---------- operator families ---------- */

// arithmeticOps maps the variadic operators to their unary prefix, where
// one exists.
var arithmeticOps = map[string]string{
	"+":   "",
	"..":  "",
	"^":   "",
	"-":   "-",
	"*":   "",
	"%":   "",
	"/":   "",
	"or":  "",
	"and": "",
}

func makeArithmetic(name, unary string) Special {
	return func(c *Compiler, form *List, scope *Scope, parent *Chunk) (CompileResult, error) {
		n := form.Len()
		if n == 1 {
			// a lone unary prefix is not a loadable fragment
			if unary != "" {
				return CompileResult{}, &FormError{Form: name, Msg: "expected at least one operand"}
			}
			return CompileResult{Expr: []string{"0"}, SingleEval: true}, nil
		}
		res := CompileResult{SingleEval: true}
		var parts []string
		for i := 1; i < n; i++ {
			var frag string
			if i < n-1 {
				r, err := c.compileTossRest(form.Items[i], scope, parent)
				if err != nil {
					return CompileResult{}, err
				}
				frag = r.Expr[0]
				res.SideEffects = res.SideEffects || r.SideEffects
				res.SingleEval = res.SingleEval && r.SingleEval
			} else {
				r, err := c.compileExpr(form.Items[i], scope, parent)
				if err != nil {
					return CompileResult{}, err
				}
				if len(r.Expr) == 0 {
					frag = "nil"
				} else {
					frag = r.Expr[0]
				}
				res.SideEffects = res.SideEffects || r.SideEffects
				res.SingleEval = res.SingleEval && r.SingleEval
			}
			parts = append(parts, frag)
		}
		if n == 2 && unary != "" {
			res.Expr = []string{fmt.Sprintf("(%s%s)", unary, parts[0])}
			return res, nil
		}
		res.Expr = []string{"(" + strings.Join(parts, " "+name+" ") + ")"}
		return res, nil
	}
}

// comparatorOps maps source comparators to target operators; strictly
// binary.
var comparatorOps = map[string]string{
	">":  ">",
	"<":  "<",
	">=": ">=",
	"<=": "<=",
	"=":  "==",
	"~=": "~=",
}

func makeComparator(name, op string) Special {
	return func(c *Compiler, form *List, scope *Scope, parent *Chunk) (CompileResult, error) {
		if form.Len() != 3 {
			return CompileResult{}, &FormError{Form: name, Msg: "expected exactly two operands"}
		}
		lhs, err := c.compileTossRest(form.Items[1], scope, parent)
		if err != nil {
			return CompileResult{}, err
		}
		rhs, err := c.compileTossRest(form.Items[2], scope, parent)
		if err != nil {
			return CompileResult{}, err
		}
		return CompileResult{
			Expr:        []string{fmt.Sprintf("((%s) %s (%s))", lhs.Expr[0], op, rhs.Expr[0])},
			SideEffects: lhs.SideEffects || rhs.SideEffects,
			SingleEval:  lhs.SingleEval && rhs.SingleEval,
		}, nil
	}
}

var unaryOps = map[string]string{
	"not": "not ",
	"#":   "#",
}

func makeUnary(name, op string) Special {
	return func(c *Compiler, form *List, scope *Scope, parent *Chunk) (CompileResult, error) {
		if form.Len() != 2 {
			return CompileResult{}, &FormError{Form: name, Msg: "expected exactly one operand"}
		}
		arg, err := c.compileTossRest(form.Items[1], scope, parent)
		if err != nil {
			return CompileResult{}, err
		}
		return CompileResult{
			Expr:        []string{fmt.Sprintf("(%s(%s))", op, arg.Expr[0])},
			SideEffects: arg.SideEffects,
			SingleEval:  arg.SingleEval,
		}, nil
	}
}
