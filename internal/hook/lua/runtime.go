// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package lua

import (
	"bytes"
	"context"
	"sync"

	"github.com/samber/oops"
	"github.com/spf13/afero"
	lua "github.com/yuin/gopher-lua"

	"github.com/holomush/nautilus/internal/hook"
)

// Compile-time interface check.
var _ hook.Runtime = (*Runtime)(nil)

// Extension is the file extension of Lua hooks.
const Extension = ".lua"

// Runtime runs Lua hooks. All hooks of one Runtime share a single Lua state,
// so functions contributed by one hook can be called by later hooks.
//
// A Runtime is driven by the engine's load loop and is not safe for
// concurrent use. Functions it hands out through contributions must be
// called from one goroutine at a time.
type Runtime struct {
	factory *StateFactory

	mu     sync.Mutex
	state  *lua.LState
	closed bool

	// proxies for the current application context and configuration.
	app      *hook.Context
	appProxy *lua.LTable
	cfg      hook.ConfigReader
	cfgProxy *lua.LTable
	cfgBound bool
}

// NewRuntime creates a Lua runtime opening the named standard libraries
// (DefaultLibraries when none are given).
func NewRuntime(libraries ...string) (*Runtime, error) {
	f, err := NewStateFactory(libraries...)
	if err != nil {
		return nil, oops.In("lua").Code(hook.CodeInvalidOption).Wrap(err)
	}
	return &Runtime{factory: f}, nil
}

// Extensions returns the extensions handled by this runtime.
func (r *Runtime) Extensions() []string {
	return []string{Extension}
}

// Compile reads and compiles a Lua hook into an entry point.
func (r *Runtime) Compile(ctx context.Context, fsys afero.Fs, d hook.Descriptor) (hook.EntryPoint, error) {
	src, err := afero.ReadFile(fsys, d.Source)
	if err != nil {
		return nil, oops.In("lua").With("hook", d.ID()).With("path", d.Source).
			Hint("failed to read entry file").Wrap(err)
	}

	L, err := r.luaState(ctx)
	if err != nil {
		return nil, err
	}

	fn, err := L.Load(bytes.NewReader(src), d.Source)
	if err != nil {
		return nil, oops.In("lua").With("hook", d.ID()).With("path", d.Source).
			Hint("syntax error").Wrap(err)
	}
	return r.entry(fn), nil
}

// Close shuts down the Lua state.
func (r *Runtime) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	if r.state != nil {
		r.state.Close()
		r.state = nil
	}
	return nil
}

// luaState returns the shared state, creating it on first use.
func (r *Runtime) luaState(ctx context.Context) (*lua.LState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, oops.In("lua").New("runtime is closed")
	}
	if r.state == nil {
		L, err := r.factory.NewState(ctx)
		if err != nil {
			return nil, oops.In("lua").Hint("failed to create state").Wrap(err)
		}
		r.state = L
	}
	return r.state, nil
}

// entry wraps a compiled chunk as a hook entry point. The chunk's single
// return value is the contribution: a table, or nothing.
func (r *Runtime) entry(fn *lua.LFunction) hook.EntryPoint {
	return func(ctx context.Context, env *hook.Env) (hook.Contribution, error) {
		L, err := r.luaState(ctx)
		if err != nil {
			return nil, err
		}

		L.SetContext(ctx)
		defer L.RemoveContext()

		r.bindGlobals(L, env)

		if err := L.CallByParam(lua.P{
			Fn:      fn,
			NRet:    1,
			Protect: true,
		}); err != nil {
			return nil, oops.In("lua").With("hook", env.Hook.ID()).With("operation", "run").Wrap(err)
		}

		ret := L.Get(-1)
		L.Pop(1)

		switch v := ret.(type) {
		case *lua.LTable:
			return &Table{rt: r, t: v}, nil
		default:
			if ret == lua.LNil {
				return nil, nil
			}
			return nil, hook.ErrBadContribution(env.Hook.ID(), ret.Type().String())
		}
	}
}
