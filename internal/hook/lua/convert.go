// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package lua

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/samber/oops"
	lua "github.com/yuin/gopher-lua"

	"github.com/holomush/nautilus/internal/hook"
)

// Compile-time interface check.
var _ hook.Contribution = (*Table)(nil)

// Table is a contribution returned by a Lua hook. It wraps the live Lua
// table, so changes made by Lua code later (app.custom.called = true) are
// visible through Get.
type Table struct {
	rt *Runtime
	t  *lua.LTable
}

// LTable returns the underlying Lua table.
func (c *Table) LTable() *lua.LTable {
	return c.t
}

// Len returns the number of members, array and hash parts together.
func (c *Table) Len() int {
	n := 0
	c.t.ForEach(func(_, _ lua.LValue) {
		n++
	})
	return n
}

// Keys returns member names in sorted order. Numeric keys are formatted
// as decimal strings.
func (c *Table) Keys() []string {
	var keys []string
	c.t.ForEach(func(k, _ lua.LValue) {
		keys = append(keys, k.String())
	})
	sort.Strings(keys)
	return keys
}

// Get returns a member converted to Go: booleans, float64 numbers, strings,
// *Table for nested tables, and hook.Func for functions.
func (c *Table) Get(key string) (any, bool) {
	v := c.t.RawGetString(key)
	if v == lua.LNil {
		if n, err := strconv.Atoi(key); err == nil {
			v = c.t.RawGetInt(n)
		}
	}
	if v == lua.LNil {
		return nil, false
	}
	return c.rt.toGo(v), true
}

// toGo converts a Lua value for Go callers.
func (r *Runtime) toGo(v lua.LValue) any {
	switch x := v.(type) {
	case lua.LBool:
		return bool(x)
	case lua.LNumber:
		return float64(x)
	case lua.LString:
		return string(x)
	case *lua.LTable:
		return &Table{rt: r, t: x}
	case *lua.LFunction:
		return r.luaFunc(x)
	default:
		if v == lua.LNil {
			return nil
		}
		return v
	}
}

// toLua converts a Go value for Lua code. Tables contributed by this runtime
// are handed back as the same Lua table; other contributions are copied.
func (r *Runtime) toLua(L *lua.LState, v any) lua.LValue {
	switch x := v.(type) {
	case nil:
		return lua.LNil
	case lua.LValue:
		return x
	case *Table:
		if x.rt == r {
			return x.t
		}
		return r.copyContribution(L, x)
	case hook.Func:
		return L.NewFunction(r.goFunc(x))
	case func(...any) (any, error):
		return L.NewFunction(r.goFunc(x))
	case hook.Contribution:
		return r.copyContribution(L, x)
	case bool:
		return lua.LBool(x)
	case string:
		return lua.LString(x)
	case int:
		return lua.LNumber(x)
	case int32:
		return lua.LNumber(x)
	case int64:
		return lua.LNumber(x)
	case uint:
		return lua.LNumber(x)
	case uint32:
		return lua.LNumber(x)
	case uint64:
		return lua.LNumber(x)
	case float32:
		return lua.LNumber(x)
	case float64:
		return lua.LNumber(x)
	case []any:
		t := L.NewTable()
		for _, item := range x {
			t.Append(r.toLua(L, item))
		}
		return t
	case []string:
		t := L.NewTable()
		for _, item := range x {
			t.Append(lua.LString(item))
		}
		return t
	case map[string]any:
		t := L.NewTable()
		for k, item := range x {
			t.RawSetString(k, r.toLua(L, item))
		}
		return t
	case error:
		return lua.LString(x.Error())
	default:
		return lua.LString(fmt.Sprint(x))
	}
}

func (r *Runtime) copyContribution(L *lua.LState, c hook.Contribution) lua.LValue {
	t := L.NewTable()
	for _, k := range c.Keys() {
		v, _ := c.Get(k)
		t.RawSetString(k, r.toLua(L, v))
	}
	return t
}

// goFunc exposes a Go function to Lua. Arguments are converted with toGo;
// a returned error is raised as a Lua error.
func (r *Runtime) goFunc(fn hook.Func) lua.LGFunction {
	return func(L *lua.LState) int {
		top := L.GetTop()
		args := make([]any, 0, top)
		for i := 1; i <= top; i++ {
			args = append(args, r.toGo(L.Get(i)))
		}
		out, err := fn(args...)
		if err != nil {
			L.RaiseError("%s", err.Error())
			return 0
		}
		L.Push(r.toLua(L, out))
		return 1
	}
}

// luaFunc exposes a Lua function to Go as a hook.Func returning its first
// result.
func (r *Runtime) luaFunc(fn *lua.LFunction) hook.Func {
	return func(args ...any) (any, error) {
		r.mu.Lock()
		L, closed := r.state, r.closed
		r.mu.Unlock()
		if closed || L == nil {
			return nil, oops.In("lua").New("runtime is closed")
		}

		largs := make([]lua.LValue, len(args))
		for i, a := range args {
			largs[i] = r.toLua(L, a)
		}
		if err := L.CallByParam(lua.P{
			Fn:      fn,
			NRet:    1,
			Protect: true,
		}, largs...); err != nil {
			return nil, oops.In("lua").With("operation", "call").Wrap(err)
		}
		ret := L.Get(-1)
		L.Pop(1)
		return r.toGo(ret), nil
	}
}
