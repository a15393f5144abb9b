// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package hook_test

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/holomush/nautilus/internal/hook"
)

// scriptRuntime runs ".hk" files. Each non-comment line is a command:
//
//	fail     return an error
//	panic    panic
//	slow     block until the context is done
//	empty    contribute nothing
//	k=v      contribute member k with string value v
//
// With no k=v lines the hook contributes {body: "<name>"}.
type scriptRuntime struct {
	mu     sync.Mutex
	runs   []string
	closed bool
}

func (r *scriptRuntime) Extensions() []string {
	return []string{".hk"}
}

func (r *scriptRuntime) Compile(_ context.Context, fsys afero.Fs, d hook.Descriptor) (hook.EntryPoint, error) {
	src, err := afero.ReadFile(fsys, d.Source)
	if err != nil {
		return nil, err
	}
	var cmds []string
	sc := bufio.NewScanner(bytes.NewReader(src))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		cmds = append(cmds, line)
	}

	return func(ctx context.Context, env *hook.Env) (hook.Contribution, error) {
		r.mu.Lock()
		r.runs = append(r.runs, env.Hook.ID())
		r.mu.Unlock()

		members := hook.Members{}
		for _, cmd := range cmds {
			switch cmd {
			case "fail":
				return nil, errors.New("hook exploded")
			case "panic":
				panic("hook panicked")
			case "slow":
				<-ctx.Done()
				return nil, ctx.Err()
			case "empty":
				return nil, nil
			default:
				if k, v, ok := strings.Cut(cmd, "="); ok {
					members[k] = v
				}
			}
		}
		if len(members) == 0 {
			members["body"] = env.Hook.Name
		}
		return members, nil
	}, nil
}

func (r *scriptRuntime) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *scriptRuntime) Runs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.runs...)
}

// mapConfig is a flat ConfigReader.
type mapConfig map[string]any

func (m mapConfig) Lookup(key string) (any, bool) {
	v, ok := m[key]
	return v, ok
}

type fixture struct {
	fs      afero.Fs
	runtime *scriptRuntime
	engine  *hook.Engine
}

func newFixture(t *testing.T, files map[string]string, opts ...hook.Option) *fixture {
	t.Helper()

	fsys := afero.NewMemMapFs()
	for path, body := range files {
		require.NoError(t, afero.WriteFile(fsys, path, []byte(body), 0o600))
	}

	rt := &scriptRuntime{}
	base := []hook.Option{
		hook.WithFS(fsys),
		hook.WithRoot("/hooks"),
		hook.WithRuntime(rt),
		hook.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
	engine, err := hook.New(append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = engine.Close() })

	return &fixture{fs: fsys, runtime: rt, engine: engine}
}

func statuses(r hook.Report) map[string]hook.Status {
	out := make(map[string]hook.Status, len(r.Records))
	for _, rec := range r.Records {
		out[rec.ID] = rec.Status
	}
	return out
}

func ids(ds []hook.Descriptor) []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = d.ID()
	}
	return out
}
