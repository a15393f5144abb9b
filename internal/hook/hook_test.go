// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package hook_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/nautilus/internal/hook"
	"github.com/holomush/nautilus/pkg/errutil"
)

func TestParseID(t *testing.T) {
	tests := []struct {
		in       string
		category string
		name     string
		ok       bool
	}{
		{in: "core:custom", category: "core", name: "custom", ok: true},
		{in: "core:a:b", category: "core", name: "a:b", ok: true},
		{in: "custom"},
		{in: ":custom"},
		{in: "core:"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			category, name, ok := hook.ParseID(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.category, category)
			assert.Equal(t, tt.name, name)
		})
	}
	assert.Equal(t, "core:custom", hook.ID("core", "custom"))
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "pending", hook.StatusPending.String())
	assert.Equal(t, "loaded", hook.StatusLoaded.String())
	assert.Equal(t, "skipped", hook.StatusSkipped.String())
	assert.Equal(t, "failed", hook.StatusFailed.String())
	assert.Equal(t, "status(42)", hook.Status(42).String())
}

func TestMembers_KeysSorted(t *testing.T) {
	m := hook.Members{"b": 1, "a": 2, "c": 3}
	assert.Equal(t, []string{"a", "b", "c"}, m.Keys())
	assert.Equal(t, 3, m.Len())
}

func TestCall(t *testing.T) {
	m := hook.Members{
		"add": hook.Func(func(args ...any) (any, error) {
			return args[0].(int) + args[1].(int), nil
		}),
		"boom": hook.Func(func(...any) (any, error) {
			return nil, errors.New("boom")
		}),
		"value": 7,
	}

	got, err := hook.Call(m, "add", 2, 3)
	require.NoError(t, err)
	assert.Equal(t, 5, got)

	_, err = hook.Call(m, "boom")
	assert.EqualError(t, err, "boom")

	_, err = hook.Call(m, "value")
	errutil.AssertErrorCode(t, err, hook.CodeNotCallable)

	_, err = hook.Call(m, "missing")
	errutil.AssertErrorCode(t, err, hook.CodeNotCallable)

	_, err = hook.Call(nil, "add")
	errutil.AssertErrorCode(t, err, hook.CodeNotCallable)
}

func TestResolve_StableByOrder(t *testing.T) {
	batch := []hook.Descriptor{
		{Category: "c", Name: "a", Order: 1},
		{Category: "c", Name: "b"},
		{Category: "c", Name: "c", Order: -1},
		{Category: "c", Name: "d"},
		{Category: "c", Name: "e", Order: 1},
	}

	assert.Equal(t,
		[]string{"c:c", "c:b", "c:d", "c:a", "c:e"},
		ids(hook.Resolve(batch)))
	assert.Empty(t, hook.Resolve(nil))
}

func TestEnabled(t *testing.T) {
	cfg := mapConfig{
		"off":    false,
		"on":     true,
		"string": "false",
		"zero":   0,
		"nested": map[string]any{"enabled": false},
	}

	assert.False(t, hook.Enabled(cfg, "off"))
	assert.True(t, hook.Enabled(cfg, "on"))
	assert.True(t, hook.Enabled(cfg, "string"))
	assert.True(t, hook.Enabled(cfg, "zero"))
	assert.True(t, hook.Enabled(cfg, "nested"))
	assert.True(t, hook.Enabled(cfg, "absent"))
	assert.True(t, hook.Enabled(nil, "off"))
}

func TestReport_Counts(t *testing.T) {
	r := hook.Report{Records: []hook.Record{
		{ID: "c:a", Status: hook.StatusLoaded},
		{ID: "c:b", Status: hook.StatusFailed},
		{ID: "c:c", Status: hook.StatusSkipped},
		{ID: "c:d", Status: hook.StatusLoaded},
	}}

	assert.Equal(t, 2, r.Count(hook.StatusLoaded))
	assert.Equal(t, 1, r.Count(hook.StatusSkipped))
	require.Len(t, r.Failed(), 1)
	assert.Equal(t, "c:b", r.Failed()[0].ID)
}

func TestContext_Provide(t *testing.T) {
	app := hook.NewContext()
	app.Provide("db", hook.Members{"dsn": "memory"})
	app.Provide("cache", hook.Members{"size": 10})

	assert.True(t, app.Has("db"))
	assert.Equal(t, []string{"cache", "db"}, app.Names())
	assert.Equal(t, 2, app.Len())
	_, ok := app.Get("missing")
	assert.False(t, ok)
}

func TestDescriptor_ID(t *testing.T) {
	d := hook.Descriptor{Category: "core", Name: "custom"}
	assert.Equal(t, "core:custom", d.ID())
}
