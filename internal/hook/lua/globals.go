// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package lua

import (
	"log/slog"

	"github.com/oklog/ulid/v2"
	lua "github.com/yuin/gopher-lua"

	"github.com/holomush/nautilus/internal/hook"
)

// bindGlobals installs the globals a hook sees:
//
//	app       read-only view of the application context
//	config    read-only view of configuration
//	hook      name, category, order and id of the running hook
//	nautilus  host functions (log, id)
func (r *Runtime) bindGlobals(L *lua.LState, env *hook.Env) {
	if r.appProxy == nil || r.app != env.App {
		r.app = env.App
		app := env.App
		r.appProxy = r.newProxy(L, "app", func(key string) lua.LValue {
			if app == nil {
				return lua.LNil
			}
			c, ok := app.Get(key)
			if !ok {
				return lua.LNil
			}
			return r.toLua(L, c)
		})
	}
	L.SetGlobal("app", r.appProxy)

	if !r.cfgBound || r.cfg != env.Config {
		r.cfg = env.Config
		r.cfgBound = true
		cfg := env.Config
		r.cfgProxy = r.newProxy(L, "config", func(key string) lua.LValue {
			if cfg == nil {
				return lua.LNil
			}
			v, ok := cfg.Lookup(key)
			if !ok {
				return lua.LNil
			}
			return r.toLua(L, v)
		})
	}
	L.SetGlobal("config", r.cfgProxy)

	info := L.NewTable()
	L.SetField(info, "name", lua.LString(env.Hook.Name))
	L.SetField(info, "category", lua.LString(env.Hook.Category))
	L.SetField(info, "order", lua.LNumber(env.Hook.Order))
	L.SetField(info, "id", lua.LString(env.Hook.ID()))
	L.SetGlobal("hook", info)

	logger := env.Logger
	if logger == nil {
		logger = slog.Default()
	}
	mod := L.NewTable()
	L.SetField(mod, "log", L.NewFunction(logFn(logger)))
	L.SetField(mod, "id", L.NewFunction(idFn))
	L.SetGlobal("nautilus", mod)
}

// newProxy builds an empty table whose reads are answered by lookup and
// whose writes raise an error.
func (r *Runtime) newProxy(L *lua.LState, name string, lookup func(key string) lua.LValue) *lua.LTable {
	proxy := L.NewTable()
	meta := L.NewTable()
	L.SetField(meta, "__index", L.NewFunction(func(L *lua.LState) int {
		key, ok := L.Get(2).(lua.LString)
		if !ok {
			L.Push(lua.LNil)
			return 1
		}
		L.Push(lookup(string(key)))
		return 1
	}))
	L.SetField(meta, "__newindex", L.NewFunction(func(L *lua.LState) int {
		L.RaiseError("%s is read-only; return a table to contribute", name)
		return 0
	}))
	L.SetMetatable(proxy, meta)
	return proxy
}

func logFn(logger *slog.Logger) lua.LGFunction {
	return func(L *lua.LState) int {
		level := L.CheckString(1)
		message := L.CheckString(2)

		switch level {
		case "debug":
			logger.Debug(message)
		case "warn":
			logger.Warn(message)
		case "error":
			logger.Error(message)
		default:
			logger.Info(message)
		}
		return 0
	}
}

func idFn(L *lua.LState) int {
	L.Push(lua.LString(ulid.Make().String()))
	return 1
}
