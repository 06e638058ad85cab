// bridge.go — the reflective compiler bridge and the host loader.
//
// (*compiler <ast>) compiles its argument like a top-level unit, prepends
// the line
//
//	local _S, _M, _C, _A, __COMPILER_ENV__ = ...
//
// loads the text in the embedded Lua state and calls it with the active
// scope, a macro-table proxy, the parent chunk, the original form and
// true. The invoked code usually assigns into _M (or calls the macro
// helper) to install transformers that the rest of the unit can expand.
//
// AST values cross the boundary as Lua tables: lists carry an n field and
// the list metatable, symbols carry the symbol metatable, vectors and
// maps become plain tables, scalars map directly. The helper globals
// list and sym build tagged tables on the Lua side so macros can return
// well-formed call forms.
//
// The same state also backs Eval: compile the unit, load it, run it, hand
// back whatever it returned.
package fennel

import (
	lua "github.com/yuin/gopher-lua"
)

// lua returns the host state, creating it and installing the bridge
// globals on first use.
func (c *Compiler) lua() *lua.LState {
	if c.luaState == nil {
		c.luaState = lua.NewState()
	}
	if !c.bridgeReady {
		registerBridgeGlobals(c)
		c.bridgeReady = true
	}
	return c.luaState
}

// evalChunk loads and runs compiled target text, returning every value
// the chunk returned.
func (c *Compiler) evalChunk(code string) ([]lua.LValue, error) {
	L := c.lua()
	fn, err := L.LoadString(code)
	if err != nil {
		return nil, &BridgeError{Msg: "loading compiled chunk", Err: err}
	}
	base := L.GetTop()
	L.Push(fn)
	if err := L.PCall(0, lua.MultRet, nil); err != nil {
		return nil, &BridgeError{Msg: "running compiled chunk", Err: err}
	}
	n := L.GetTop() - base
	out := make([]lua.LValue, n)
	for i := 0; i < n; i++ {
		out[i] = L.Get(base + 1 + i)
	}
	L.SetTop(base)
	return out, nil
}

/* ---------- the *compiler special ---------- */

// (*compiler form...): compile the argument forms, run them immediately in
// the host state, and let them mutate the active scope. Produces no
// fragments.
func specialCompiler(c *Compiler, form *List, scope *Scope, parent *Chunk) (CompileResult, error) {
	if form.Len() < 2 {
		return CompileResult{}, &FormError{Form: "*compiler", Msg: "expected a form to compile"}
	}
	tmp := &Chunk{}
	if err := c.compileUnit(form.Items[1:], scope, tmp); err != nil {
		return CompileResult{}, err
	}
	src := "local _S, _M, _C, _A, __COMPILER_ENV__ = ...\n" + tmp.Assemble(c.tab)

	L := c.lua()
	fn, err := L.LoadString(src)
	if err != nil {
		return CompileResult{}, &BridgeError{Msg: "loading generated chunk", Err: err}
	}

	scopeUD := L.NewUserData()
	scopeUD.Value = scope
	chunkUD := L.NewUserData()
	chunkUD.Value = parent

	c.bridgeScopes = append(c.bridgeScopes, scope)
	defer func() { c.bridgeScopes = c.bridgeScopes[:len(c.bridgeScopes)-1] }()

	err = L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true},
		scopeUD,
		macroProxy(L, scope),
		chunkUD,
		valueToLua(L, Value{Tag: TagList, Data: form}),
		lua.LTrue,
	)
	if err != nil {
		return CompileResult{}, &BridgeError{Msg: "running generated chunk", Err: err}
	}
	return CompileResult{}, nil
}

// macroProxy builds the _M table: assignments install transformers into
// the scope; reads see only what was installed from the Lua side.
func macroProxy(L *lua.LState, scope *Scope) *lua.LTable {
	proxy := L.NewTable()
	store := L.NewTable()
	mt := L.NewTable()
	mt.RawSetString("__index", store)
	mt.RawSetString("__newindex", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(2)
		fn := L.CheckFunction(3)
		store.RawSetString(name, fn)
		scope.DefineMacro(name, luaMacro(L, fn))
		return 0
	}))
	L.SetMetatable(proxy, mt)
	return proxy
}

// luaMacro wraps a Lua function as a compile-time transformer.
func luaMacro(L *lua.LState, fn *lua.LFunction) Macro {
	return func(args []Value) (Value, error) {
		lvs := make([]lua.LValue, len(args))
		for i, a := range args {
			lvs[i] = valueToLua(L, a)
		}
		if err := L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, lvs...); err != nil {
			return Nil, err
		}
		ret := L.Get(-1)
		L.Pop(1)
		return luaToValue(L, ret), nil
	}
}

// registerBridgeGlobals installs the helpers reflective chunks rely on:
// list and sym to build AST forms, macro to install a transformer into
// the scope whose chunk is currently running.
func registerBridgeGlobals(c *Compiler) {
	L := c.luaState
	L.SetGlobal("list", L.NewFunction(func(L *lua.LState) int {
		n := L.GetTop()
		t := L.NewTable()
		for i := 1; i <= n; i++ {
			t.RawSetInt(i, L.Get(i))
		}
		t.RawSetString("n", lua.LNumber(n))
		L.SetMetatable(t, listMeta(L))
		L.Push(t)
		return 1
	}))
	L.SetGlobal("sym", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		t := L.NewTable()
		t.RawSetInt(1, lua.LString(name))
		L.SetMetatable(t, symbolMeta(L))
		L.Push(t)
		return 1
	}))
	L.SetGlobal("macro", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		fn := L.CheckFunction(2)
		if len(c.bridgeScopes) == 0 {
			L.RaiseError("macro defined outside a compiler chunk")
			return 0
		}
		scope := c.bridgeScopes[len(c.bridgeScopes)-1]
		scope.DefineMacro(name, luaMacro(L, fn))
		return 0
	}))
}

/* ---------- value conversion ---------- */

func bridgeMeta(L *lua.LState, key string) *lua.LTable {
	reg := L.Get(lua.RegistryIndex).(*lua.LTable)
	if mt, ok := reg.RawGetString(key).(*lua.LTable); ok {
		return mt
	}
	mt := L.NewTable()
	reg.RawSetString(key, mt)
	return mt
}

func listMeta(L *lua.LState) *lua.LTable   { return bridgeMeta(L, "fennel.list.meta") }
func symbolMeta(L *lua.LState) *lua.LTable { return bridgeMeta(L, "fennel.symbol.meta") }

func valueToLua(L *lua.LState, v Value) lua.LValue {
	switch v.Tag {
	case TagNil:
		return lua.LNil
	case TagBool:
		return lua.LBool(v.Data.(bool))
	case TagNumber:
		return lua.LNumber(v.Data.(float64))
	case TagString:
		return lua.LString(v.Data.(string))
	case TagSymbol:
		t := L.NewTable()
		t.RawSetInt(1, lua.LString(v.Data.(string)))
		L.SetMetatable(t, symbolMeta(L))
		return t
	case TagList:
		l := v.Data.(*List)
		t := L.NewTable()
		for i, item := range l.Items {
			t.RawSetInt(i+1, valueToLua(L, item))
		}
		t.RawSetString("n", lua.LNumber(float64(l.Len())))
		L.SetMetatable(t, listMeta(L))
		return t
	case TagVector:
		l := v.Data.(*List)
		t := L.NewTable()
		for i, item := range l.Items {
			t.RawSetInt(i+1, valueToLua(L, item))
		}
		return t
	case TagMap:
		m := v.Data.(*MapObject)
		t := L.NewTable()
		for i, k := range m.Keys {
			lk := valueToLua(L, k)
			if lk == lua.LNil {
				continue
			}
			t.RawSet(lk, valueToLua(L, m.Vals[i]))
		}
		return t
	default:
		return lua.LNil
	}
}

func luaToValue(L *lua.LState, lv lua.LValue) Value {
	switch x := lv.(type) {
	case lua.LBool:
		return Bool(bool(x))
	case lua.LNumber:
		return Number(float64(x))
	case lua.LString:
		return Str(string(x))
	case *lua.LTable:
		mt := L.GetMetatable(x)
		if mt == symbolMeta(L) {
			return Sym(lua.LVAsString(x.RawGetInt(1)))
		}
		if mt == listMeta(L) {
			n := int(lua.LVAsNumber(x.RawGetString("n")))
			if n == 0 {
				n = x.Len()
			}
			items := make([]Value, 0, n)
			for i := 1; i <= n; i++ {
				items = append(items, luaToValue(L, x.RawGetInt(i)))
			}
			return ListOf(items...)
		}
		return plainTableToValue(L, x)
	default:
		return Nil
	}
}

// plainTableToValue maps an untagged table to a vector when its keys form
// the run 1..n, and to a map otherwise.
func plainTableToValue(L *lua.LState, t *lua.LTable) Value {
	total := 0
	maxn := 0
	arrayLike := true
	t.ForEach(func(k, _ lua.LValue) {
		total++
		kn, ok := k.(lua.LNumber)
		if !ok || float64(kn) != float64(int(kn)) || int(kn) < 1 {
			arrayLike = false
			return
		}
		if int(kn) > maxn {
			maxn = int(kn)
		}
	})
	if arrayLike && maxn == total {
		items := make([]Value, 0, maxn)
		for i := 1; i <= maxn; i++ {
			items = append(items, luaToValue(L, t.RawGetInt(i)))
		}
		return VectorOf(items...)
	}
	m := &MapObject{}
	t.ForEach(func(k, v lua.LValue) {
		m.Set(luaToValue(L, k), luaToValue(L, v))
	})
	return Value{Tag: TagMap, Data: m}
}
