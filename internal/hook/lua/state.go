// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package lua runs hooks written in Lua.
package lua

import (
	"context"
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

// library is a Lua standard library that can be opened in a hook state.
type library struct {
	name string
	fn   lua.LGFunction
}

// knownLibraries maps configuration names to gopher-lua openers.
var knownLibraries = map[string]library{
	"base":      {lua.BaseLibName, lua.OpenBase},
	"table":     {lua.TabLibName, lua.OpenTable},
	"string":    {lua.StringLibName, lua.OpenString},
	"math":      {lua.MathLibName, lua.OpenMath},
	"coroutine": {lua.CoroutineLibName, lua.OpenCoroutine},
	"os":        {lua.OsLibName, lua.OpenOs},
	"io":        {lua.IoLibName, lua.OpenIo},
	"package":   {lua.LoadLibName, lua.OpenPackage},
	"debug":     {lua.DebugLibName, lua.OpenDebug},
	"channel":   {lua.ChannelLibName, lua.OpenChannel},
}

// DefaultLibraries are opened when no library list is configured.
// os, io, debug and package are left out.
var DefaultLibraries = []string{"base", "table", "string", "math"}

// unsafeBaseFunctions are removed from base unless "package" is opened.
// They reach the filesystem.
var unsafeBaseFunctions = []string{"dofile", "loadfile"}

// StateFactory creates Lua states with a fixed set of libraries.
type StateFactory struct {
	libraries []library
	fileAPI   bool
}

// NewStateFactory creates a state factory opening the named libraries.
// With no names DefaultLibraries is used.
func NewStateFactory(names ...string) (*StateFactory, error) {
	if len(names) == 0 {
		names = DefaultLibraries
	}
	f := &StateFactory{}
	for _, name := range names {
		lib, ok := knownLibraries[name]
		if !ok {
			return nil, fmt.Errorf("unknown Lua library %q", name)
		}
		f.libraries = append(f.libraries, lib)
		if name == "package" {
			f.fileAPI = true
		}
	}
	return f, nil
}

// NewState creates a fresh Lua state with the factory's libraries loaded.
// ctx is attached to the state while the libraries are opened.
func (f *StateFactory) NewState(ctx context.Context) (*lua.LState, error) {
	L := lua.NewState(lua.Options{
		SkipOpenLibs: true,
	})
	L.SetContext(ctx)
	defer L.RemoveContext()

	for _, lib := range f.libraries {
		if err := L.CallByParam(lua.P{
			Fn:      L.NewFunction(lib.fn),
			NRet:    0,
			Protect: true,
		}, lua.LString(lib.name)); err != nil {
			L.Close()
			return nil, fmt.Errorf("failed to open library %s: %w", lib.name, err)
		}
	}

	if !f.fileAPI {
		for _, fn := range unsafeBaseFunctions {
			L.SetGlobal(fn, lua.LNil)
		}
	}

	return L, nil
}
