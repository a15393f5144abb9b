// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package config loads configuration for the engine and for hooks.
//
// The "engine" section configures the loader itself. Every other top-level
// key belongs to the hook of the same name: false disables the hook, any
// other value is passed through to it.
package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// EngineKey is the section holding engine settings.
const EngineKey = "engine"

// Engine holds the loader settings.
type Engine struct {
	Root         string        `koanf:"root"`
	Ignore       []string      `koanf:"ignore"`
	Timeout      time.Duration `koanf:"timeout"`
	LogFormat    string        `koanf:"log_format"`
	LuaLibraries []string      `koanf:"lua_libraries"`
	MetricsAddr  string        `koanf:"metrics_addr"`
}

// Validate checks that the settings are usable.
func (e Engine) Validate() error {
	if e.LogFormat != "" && e.LogFormat != "json" && e.LogFormat != "text" {
		return oops.In("config").With("log_format", e.LogFormat).
			Errorf("log_format must be 'json' or 'text', got %q", e.LogFormat)
	}
	if e.Timeout < 0 {
		return oops.In("config").With("timeout", e.Timeout).Errorf("timeout cannot be negative")
	}
	return nil
}

// Store is a mutable configuration tree.
//
// Store is safe for concurrent use.
type Store struct {
	mu sync.RWMutex
	k  *koanf.Koanf
}

// New creates an empty store.
func New() *Store {
	return &Store{k: koanf.New(".")}
}

// Load reads the YAML file at path, if it exists, then applies flags that
// were set on the command line. flags may be nil.
//
// flagKeys maps flag names to configuration keys ("hooks-root" to
// "engine.root"). Flags not in the map, and flags left at their defaults,
// are ignored.
func Load(path string, flags *pflag.FlagSet, flagKeys map[string]string) (*Store, error) {
	s := New()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := s.k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, oops.In("config").With("path", path).Hint("failed to parse config file").Wrap(err)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, oops.In("config").With("path", path).Wrap(err)
		}
	}

	if flags != nil {
		cb := func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}
		if err := s.k.Load(posflag.ProviderWithFlag(flags, ".", s.k, cb), nil); err != nil {
			return nil, oops.In("config").Hint("failed to apply flags").Wrap(err)
		}
	}

	return s, nil
}

// Lookup returns the value at key. Keys may be dotted paths.
func (s *Store) Lookup(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.k.Exists(key) {
		return nil, false
	}
	return s.k.Get(key), true
}

// Set stores value at key, replacing what was there.
func (s *Store) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.k.Set(key, value); err != nil {
		return oops.In("config").With("key", key).Wrap(err)
	}
	return nil
}

// Disable sets each named hook to false.
func (s *Store) Disable(names ...string) error {
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if err := s.Set(name, false); err != nil {
			return err
		}
	}
	return nil
}

// Engine returns the engine section with defaults applied for unset fields.
func (s *Store) Engine(defaults Engine) (Engine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := defaults
	if err := s.k.Unmarshal(EngineKey, &out); err != nil {
		return Engine{}, oops.In("config").With("section", EngineKey).Wrap(err)
	}
	if err := out.Validate(); err != nil {
		return Engine{}, err
	}
	return out, nil
}

// Keys returns all flattened keys.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.k.Keys()
}
