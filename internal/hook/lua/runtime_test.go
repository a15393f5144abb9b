// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package lua_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/nautilus/internal/hook"
	"github.com/holomush/nautilus/internal/hook/lua"
	"github.com/holomush/nautilus/pkg/errutil"
)

type mapConfig map[string]any

func (m mapConfig) Lookup(key string) (any, bool) {
	v, ok := m[key]
	return v, ok
}

func newEngine(t *testing.T, files map[string]string, opts ...hook.Option) *hook.Engine {
	t.Helper()

	fsys := afero.NewMemMapFs()
	for path, body := range files {
		require.NoError(t, afero.WriteFile(fsys, path, []byte(body), 0o600))
	}
	rt, err := lua.NewRuntime()
	require.NoError(t, err)

	base := []hook.Option{
		hook.WithFS(fsys),
		hook.WithRoot("/hooks"),
		hook.WithRuntime(rt),
		hook.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
	e, err := hook.New(append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func TestRuntime_HooksShareFunctions(t *testing.T) {
	e := newEngine(t, map[string]string{
		"/hooks/core/custom.lua": `
			return {
				called = false,
				foo = function() app.custom.called = true end,
			}
		`,
		"/hooks/core/service/index.lua": `app.custom.foo()`,
	})

	report := e.Load(context.Background(), "core")
	require.Empty(t, report.Failed())

	custom, ok := e.App().Get("custom")
	require.True(t, ok)
	called, _ := custom.Get("called")
	assert.Equal(t, true, called)
	foo, _ := custom.Get("foo")
	assert.IsType(t, hook.Func(nil), foo)

	assert.False(t, e.App().Has("service"))
	assert.True(t, e.IsLoaded("core:service"))
}

func TestRuntime_GoCallsLua(t *testing.T) {
	e := newEngine(t, map[string]string{
		"/hooks/core/math.lua": `
			return {
				add = function(a, b) return a + b end,
				greet = function(name) return "hello " .. name end,
				nested = { depth = 2, list = { "x", "y" } },
			}
		`,
	})
	require.Empty(t, e.Load(context.Background(), "core").Failed())

	m, _ := e.App().Get("math")

	sum, err := hook.Call(m, "add", 2, 3)
	require.NoError(t, err)
	assert.Equal(t, float64(5), sum)

	greeting, err := hook.Call(m, "greet", "world")
	require.NoError(t, err)
	assert.Equal(t, "hello world", greeting)

	nested, ok := m.Get("nested")
	require.True(t, ok)
	table, ok := nested.(*lua.Table)
	require.True(t, ok)
	depth, _ := table.Get("depth")
	assert.Equal(t, float64(2), depth)

	list, _ := table.Get("list")
	first, ok := list.(hook.Contribution).Get("1")
	require.True(t, ok)
	assert.Equal(t, "x", first)

	assert.Equal(t, []string{"add", "greet", "nested"}, m.Keys())
	assert.Equal(t, 3, m.Len())
}

func TestRuntime_LuaCallsGo(t *testing.T) {
	e := newEngine(t, map[string]string{
		"/hooks/core/user.lua": `
			return { doubled = host.double(21), label = host.label }
		`,
	})
	e.App().Provide("host", hook.Members{
		"double": hook.Func(func(args ...any) (any, error) {
			return args[0].(float64) * 2, nil
		}),
		"label": "native",
	})

	require.Empty(t, e.Load(context.Background(), "core").Failed())

	user, _ := e.App().Get("user")
	doubled, _ := user.Get("doubled")
	assert.Equal(t, float64(42), doubled)
	label, _ := user.Get("label")
	assert.Equal(t, "native", label)
}

func TestRuntime_ConfigAndHookGlobals(t *testing.T) {
	e := newEngine(t, map[string]string{
		"/hooks/core/info.lua": `-- @order 4
			return {
				id = hook.id,
				name = hook.name,
				category = hook.category,
				order = hook.order,
				greeting = config.greeting,
				missing = config.nothing == nil,
				ulid = #nautilus.id() == 26,
			}
		`,
	}, hook.WithConfig(mapConfig{"greeting": "hi"}))

	require.Empty(t, e.Load(context.Background(), "core").Failed())

	info, _ := e.App().Get("info")
	want := map[string]any{
		"id":       "core:info",
		"name":     "info",
		"category": "core",
		"order":    float64(4),
		"greeting": "hi",
		"missing":  true,
		"ulid":     true,
	}
	for k, v := range want {
		got, ok := info.Get(k)
		require.True(t, ok, k)
		assert.Equal(t, v, got, k)
	}
}

func TestRuntime_Log(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	e := newEngine(t, map[string]string{
		"/hooks/core/chatty.lua": `nautilus.log("warn", "careful now")`,
	}, hook.WithLogger(logger))

	require.Empty(t, e.Load(context.Background(), "core").Failed())
	assert.Contains(t, buf.String(), "careful now")
	assert.Contains(t, buf.String(), "hook=core:chatty")
}

func TestRuntime_Failures(t *testing.T) {
	tests := []struct {
		name string
		src  string
		code string
	}{
		{name: "error", src: `error("I am a bad hook!")`, code: hook.CodeExecutionFailed},
		{name: "syntax", src: `return {`, code: hook.CodeCompileFailed},
		{name: "scalar return", src: `return 42`, code: hook.CodeBadContribution},
		{name: "write to app", src: `app.thing = 1`, code: hook.CodeExecutionFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngine(t, map[string]string{
				"/hooks/core/bad.lua":  tt.src,
				"/hooks/core/good.lua": `return { ok = true }`,
			})

			report := e.Load(context.Background(), "core")

			require.Len(t, report.Failed(), 1)
			errutil.AssertErrorCode(t, report.Failed()[0].Err, tt.code)
			assert.False(t, e.App().Has("bad"))
			assert.True(t, e.App().Has("good"))
		})
	}
}

func TestRuntime_WriteToAppMentionsReadOnly(t *testing.T) {
	e := newEngine(t, map[string]string{
		"/hooks/core/bad.lua": `app.thing = 1`,
	})

	report := e.Load(context.Background(), "core")

	require.Len(t, report.Failed(), 1)
	assert.ErrorContains(t, report.Failed()[0].Err, "read-only")
}

func TestRuntime_Timeout(t *testing.T) {
	e := newEngine(t, map[string]string{
		"/hooks/core/spin.lua": `while true do end`,
	}, hook.WithTimeout(50*time.Millisecond))

	report := e.Load(context.Background(), "core")

	require.Len(t, report.Failed(), 1)
	errutil.AssertErrorCode(t, report.Failed()[0].Err, hook.CodeTimeout)
}

func TestRuntime_EmptyTableContributesNothing(t *testing.T) {
	e := newEngine(t, map[string]string{
		"/hooks/core/quiet.lua": `return {}`,
	})

	report := e.Load(context.Background(), "core")

	assert.Empty(t, report.Failed())
	assert.True(t, e.IsLoaded("core:quiet"))
	assert.False(t, e.App().Has("quiet"))
}

func TestRuntime_FuncAfterClose(t *testing.T) {
	rt, err := lua.NewRuntime()
	require.NoError(t, err)
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/hooks/core/f.lua", []byte(`return { f = function() return 1 end }`), 0o600))

	e, err := hook.New(hook.WithFS(fsys), hook.WithRoot("/hooks"), hook.WithRuntime(rt),
		hook.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)
	require.Empty(t, e.Load(context.Background(), "core").Failed())

	f, _ := e.App().Get("f")
	require.NoError(t, e.Close())
	require.NoError(t, rt.Close())

	_, err = hook.Call(f, "f")
	assert.ErrorContains(t, err, "closed")
}

func TestNewRuntime_UnknownLibrary(t *testing.T) {
	_, err := lua.NewRuntime("sockets")
	errutil.AssertErrorCode(t, err, hook.CodeInvalidOption)
}
