// fennel.go
//
// Public surface of the compiler library.
//
// The pipeline is reader -> parser -> (macro expansion + expression
// compilation against a scope chain; special forms emit into a chunk
// tree) -> assembler -> target text. Everything is single-threaded; a
// Compile call owns its scope chain and chunk for the whole traversal.
//
//	lua, err := fennel.Compile(`(fn add [a b] (+ a b)) (add 1 2)`, nil)
//
// Eval additionally loads the produced text in an embedded host state and
// returns whatever the chunk returns.
package fennel

import (
	lua "github.com/yuin/gopher-lua"
)

// Version of the compiler.
const Version = "0.3.0"

// Options tune one Compile/Eval call. The zero value (or nil) selects a
// fresh root scope, two-space indentation and a private host state.
type Options struct {
	// Scope is a pre-built compilation scope; nil compiles against a
	// fresh root scope.
	Scope *Scope
	// Tab is the indent string for the assembler; empty means two spaces.
	Tab string
	// State is the host state used by eval and the reflective bridge;
	// nil creates one on demand.
	State *lua.LState
}

// Compile translates a full source string into target text. Each
// top-level form compiles independently; the last one is compiled so its
// result is returned from the produced chunk.
func Compile(src string, opts *Options) (string, error) {
	root, _, err := Parse(src)
	if err != nil {
		return "", err
	}
	forms, _ := ListItems(root)
	return compileForms(forms, opts)
}

// CompileAst translates a single already-parsed form.
func CompileAst(ast Value, opts *Options) (string, error) {
	return compileForms([]Value{ast}, opts)
}

func compileForms(forms []Value, opts *Options) (string, error) {
	c := newCompiler(opts)
	scope := optScope(opts)
	chunk := &Chunk{}
	if err := c.compileUnit(forms, scope, chunk); err != nil {
		return "", err
	}
	return chunk.Assemble(c.tab), nil
}

// Eval compiles src and runs the produced chunk in the host state,
// returning every value the chunk returned.
func Eval(src string, opts *Options) ([]lua.LValue, error) {
	root, _, err := Parse(src)
	if err != nil {
		return nil, err
	}
	forms, _ := ListItems(root)
	c := newCompiler(opts)
	scope := optScope(opts)
	chunk := &Chunk{}
	if err := c.compileUnit(forms, scope, chunk); err != nil {
		return nil, err
	}
	return c.evalChunk(chunk.Assemble(c.tab))
}

func optScope(opts *Options) *Scope {
	if opts != nil && opts.Scope != nil {
		return opts.Scope
	}
	return NewRootScope()
}
