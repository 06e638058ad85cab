// specials_test.go
package fennel

import (
	"errors"
	"testing"
)

func wantFormError(t *testing.T, src string, form string) {
	t.Helper()
	_, err := Compile(src, nil)
	var fe *FormError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FormError for %q, got %v", src, err)
	}
	if fe.Form != form {
		t.Fatalf("error names form %q, want %q", fe.Form, form)
	}
}

/* --- fn ---------------------------------------------------------------------- */

func Test_Special_Fn_Named(t *testing.T) {
	wantCompile(t, "(fn add [a b] (+ a b))",
		"local function add(a, b)\n  return (a + b)\nend\nreturn add")
}

func Test_Special_Fn_Anonymous(t *testing.T) {
	wantCompile(t, "((fn [x] (+ x 1)) 41)",
		"local function _0(x)\n  return (x + 1)\nend\nreturn _0(41)")
}

func Test_Special_Fn_Vararg_Passthrough(t *testing.T) {
	wantCompile(t, "(fn f [...] (values ...))",
		"local function f(...)\n  return ...\nend\nreturn f")
}

func Test_Special_Fn_Body_Statements(t *testing.T) {
	wantCompile(t, "(fn f [x] (g x) (+ x 1))",
		"local function f(x)\n  g(x)\n  return (x + 1)\nend\nreturn f")
}

func Test_Special_Fn_Mangles_Its_Name(t *testing.T) {
	wantCompile(t, "(fn say-hi [] 1)",
		"local function say19hi()\n  return 1\nend\nreturn say19hi")
}

func Test_Special_Fn_Errors(t *testing.T) {
	wantFormError(t, "(fn)", "fn")
	wantFormError(t, "(fn name)", "fn")
	wantFormError(t, "(fn [1] 1)", "fn")
}

func Test_Special_Fn_Vararg_Does_Not_Leak(t *testing.T) {
	// the inner function is variadic, the outer body is not
	_, err := Compile("(fn f [x] (fn g [...] ...) ...)", nil)
	var ne *NameError
	if !errors.As(err, &ne) {
		t.Fatalf("expected *NameError, got %v", err)
	}
}

/* --- indexing ---------------------------------------------------------------- */

func Test_Special_Index(t *testing.T) {
	wantCompile(t, `(. t "k")`, `return t["k"]`)
	wantCompile(t, "(. (f) 1)", "return f()[1]")
	wantFormError(t, "(. t)", ".")
	wantFormError(t, `(. t "a" "b")`, ".")
}

/* --- var & set --------------------------------------------------------------- */

func Test_Special_Var_And_Set(t *testing.T) {
	wantCompile(t, "(var x 10) (set x (+ x 1)) x",
		"local x = 10\nx = (x + 1)\nreturn x")
}

func Test_Special_Var_MultiTarget(t *testing.T) {
	wantCompile(t, "(var a b (f)) (+ a b)",
		"local a, b = f()\nreturn (a + b)")
}

func Test_Special_Set_MultiTarget_Values(t *testing.T) {
	wantCompile(t, "(var a 0) (var b 0) (set a b (values 1 2))",
		"local a = 0\nlocal b = 0\na, b = 1, 2")
}

func Test_Special_Assign_Errors(t *testing.T) {
	wantFormError(t, "(var x)", "var")
	wantFormError(t, "(set 1 2)", "set")
}

/* --- comments ---------------------------------------------------------------- */

func Test_Special_Comment(t *testing.T) {
	wantCompile(t, `(-- "hello" "world")`, "-- hello\n-- world")
	wantFormError(t, "(-- 42)", "--")
}

/* --- block & do -------------------------------------------------------------- */

func Test_Special_Block_Is_Statement_Only(t *testing.T) {
	wantCompile(t, "(block (var a 1) (f a))",
		"do\n  local a = 1\n  f(a)\nend")
}

func Test_Special_Block_Locals_Do_Not_Escape(t *testing.T) {
	wantCompile(t, "(block (var x-y 1)) (block (var x-y 2))",
		"do\n  local x19y = 1\nend\ndo\n  local x19y = 2\nend")
}

func Test_Special_Do_Hoists_Known_Tail(t *testing.T) {
	wantCompile(t, "(do (var a 1) (+ a 2))",
		"local _0\ndo\n  local a = 1\n  _0 = (a + 2)\nend\nreturn _0")
}

func Test_Special_Do_Wraps_Unknown_Tail(t *testing.T) {
	// a call tail has unknown arity, so the block becomes an immediately
	// invoked function
	wantCompile(t, "(do (f))",
		"local function _0()\n  return f()\nend\nreturn _0()")
}

func Test_Special_Do_Statement_Position_Calls_Wrapper(t *testing.T) {
	// the wrapper must be invoked even when the block's value is unused
	wantCompile(t, "(do (f)) 2",
		"local function _0()\n  return f()\nend\n_0()\nreturn 2")
}

func Test_Special_Do_Empty_And_NilTail(t *testing.T) {
	wantCompile(t, "(do) 1", "return 1")
	wantCompile(t, "(do (var a (f)) (block (g a))) 1",
		"do\n  local a = f()\n  do\n    g(a)\n  end\nend\nreturn 1")
}

/* --- branch ------------------------------------------------------------------ */

func Test_Special_Branch_If_Else(t *testing.T) {
	wantCompile(t, "(var x 0) (*branch (= x 0) (f) *branch else (g))",
		"local x = 0\nif ((x) == (0)) then\n  f()\nelse\n  g()\nend")
}

func Test_Special_Branch_Elseif_Chain(t *testing.T) {
	wantCompile(t,
		"(var x 0) (*branch (= x 1) (f) *branch elseif (= x 2) (g) *branch else (h))",
		"local x = 0\nif ((x) == (1)) then\n  f()\nelseif ((x) == (2)) then\n  g()\nelse\n  h()\nend")
}

func Test_Special_Branch_No_Else(t *testing.T) {
	wantCompile(t, "(var x 1) (*branch (< x 2) (f))",
		"local x = 1\nif ((x) < (2)) then\n  f()\nend")
}

func Test_Special_Branch_Elseif_Condition_With_Statements(t *testing.T) {
	// a condition needing statements of its own runs only after the first
	// test failed
	wantCompile(t, "(*branch (= x 1) (f) *branch elseif (values (g) (h)) (k))",
		"if ((x) == (1)) then\n  f()\nelse\n  local _0 = g()\n  do local _ = h() end\n  if _0 then\n    k()\n  end\nend")
}

func Test_Special_Branch_Else_After_Lowered_Elseif(t *testing.T) {
	wantCompile(t, "(*branch (= x 1) (f) *branch elseif (values (g) true) (k) *branch else (m))",
		"if ((x) == (1)) then\n  f()\nelse\n  local _0 = g()\n  do local _ = true end\n  if _0 then\n    k()\n  else\n    m()\n  end\nend")
}

func Test_Special_Branch_Errors(t *testing.T) {
	wantFormError(t, "(*branch)", "*branch")
	wantFormError(t, "(*branch true (f) *branch)", "*branch")
	wantFormError(t, "(*branch true (f) *branch wat (g))", "*branch")
	wantFormError(t, "(*branch true (f) *branch elseif)", "*branch")
}

/* --- loops ------------------------------------------------------------------- */

func Test_Special_While(t *testing.T) {
	wantCompile(t, "(var i 0) (*while (< i 10) (set i (+ i 1)))",
		"local i = 0\nwhile ((i) < (10)) do\n  i = (i + 1)\nend")
}

func Test_Special_DoWhile(t *testing.T) {
	// the condition evaluates inside the loop body, after it
	wantCompile(t, "(var x 0) (*dowhile (= x 1) (set x (f)))",
		"local x = 0\nrepeat\n  x = f()\nuntil ((x) == (1))")
}

func Test_Special_For(t *testing.T) {
	wantCompile(t, "(var s 0) (*for i [1 10] (set s (+ s i))) s",
		"local s = 0\nfor i = 1, 10 do\n  s = (s + i)\nend\nreturn s")
}

func Test_Special_For_With_Step(t *testing.T) {
	wantCompile(t, "(*for i [10 1 -1] (f i))",
		"for i = 10, 1, -1 do\n  f(i)\nend")
}

func Test_Special_For_Errors(t *testing.T) {
	wantFormError(t, "(*for 1 [1 2])", "*for")
	wantFormError(t, "(*for i 5)", "*for")
	wantFormError(t, "(*for i [1])", "*for")
	wantFormError(t, "(*for i [1 2 3 4])", "*for")
}

func Test_Special_Break(t *testing.T) {
	wantCompile(t, "(*while true (*break))",
		"while true do\n  break\nend")
}

/* --- operators --------------------------------------------------------------- */

func Test_Special_Arithmetic_Variadic(t *testing.T) {
	wantCompile(t, "(+ 1 2 3)", "return (1 + 2 + 3)")
	wantCompile(t, "(- 5 2)", "return (5 - 2)")
	wantCompile(t, "(* 2 3 4)", "return (2 * 3 * 4)")
	wantCompile(t, `(.. "a" "b")`, `return ("a" .. "b")`)
	wantCompile(t, "(and 1 2 3)", "return (1 and 2 and 3)")
	wantCompile(t, "(or x y)", "return (x or y)")
}

func Test_Special_Arithmetic_Unary_Minus(t *testing.T) {
	wantCompile(t, "(- 5)", "return (-5)")
	wantCompile(t, "(- (f))", "return (-f())")
}

func Test_Special_Arithmetic_Zero_Arity(t *testing.T) {
	wantCompile(t, "(+)", "return 0")
	wantCompile(t, "(*)", "return 0")
	wantFormError(t, "(-)", "-")
}

func Test_Special_Comparators(t *testing.T) {
	wantCompile(t, "(= x 0)", "return ((x) == (0))")
	wantCompile(t, "(~= a b)", "return ((a) ~= (b))")
	wantCompile(t, "(< 1 2)", "return ((1) < (2))")
	wantCompile(t, "(>= a 3)", "return ((a) >= (3))")
	wantFormError(t, "(= 1)", "=")
	wantFormError(t, "(< 1 2 3)", "<")
}

func Test_Special_Unary_Operators(t *testing.T) {
	wantCompile(t, "(not x)", "return (not (x))")
	wantCompile(t, "(# xs)", "return (#(xs))")
	wantFormError(t, "(not)", "not")
	wantFormError(t, "(# a b)", "#")
}
