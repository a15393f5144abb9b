// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package app assembles an application from hooks: it wires configuration,
// the Lua and data runtimes, and the hook engine together.
package app

import (
	"context"
	"log/slog"

	"github.com/samber/oops"
	"github.com/spf13/afero"

	"github.com/holomush/nautilus/internal/config"
	"github.com/holomush/nautilus/internal/hook"
	"github.com/holomush/nautilus/internal/hook/data"
	"github.com/holomush/nautilus/internal/hook/lua"
)

// App is an assembled application.
type App struct {
	Config   *config.Store
	Engine   *hook.Engine
	Settings config.Engine
}

// Option configures New.
type Option func(*options)

type options struct {
	fs          afero.Fs
	logger      *slog.Logger
	observer    hook.Observer
	version     string
	defaultRoot string
}

// WithFS sets the filesystem hooks are read from.
func WithFS(fsys afero.Fs) Option {
	return func(o *options) {
		o.fs = fsys
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithObserver reports hook outcomes to obs.
func WithObserver(obs hook.Observer) Option {
	return func(o *options) {
		o.observer = obs
	}
}

// WithVersion sets the version checked against hook manifests.
func WithVersion(v string) Option {
	return func(o *options) {
		o.version = v
	}
}

// WithDefaultRoot sets the hooks root used when configuration names none.
func WithDefaultRoot(root string) Option {
	return func(o *options) {
		o.defaultRoot = root
	}
}

// New builds an application from cfg. A nil cfg is an empty configuration.
func New(cfg *config.Store, opts ...Option) (*App, error) {
	o := options{
		fs:          afero.NewOsFs(),
		logger:      slog.Default(),
		defaultRoot: hook.DefaultRoot,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if cfg == nil {
		cfg = config.New()
	}

	settings, err := cfg.Engine(config.Engine{
		Root:   o.defaultRoot,
		Ignore: hook.DefaultIgnore,
	})
	if err != nil {
		return nil, oops.In("app").Hint("invalid engine configuration").Wrap(err)
	}

	luaRuntime, err := lua.NewRuntime(settings.LuaLibraries...)
	if err != nil {
		return nil, oops.In("app").Wrap(err)
	}

	engineOpts := []hook.Option{
		hook.WithFS(o.fs),
		hook.WithRoot(settings.Root),
		hook.WithRuntime(luaRuntime),
		hook.WithRuntime(data.NewRuntime()),
		hook.WithConfig(cfg),
		hook.WithLogger(o.logger),
		hook.WithTimeout(settings.Timeout),
		hook.WithIgnore(settings.Ignore...),
		hook.WithVersion(o.version),
	}
	if o.observer != nil {
		engineOpts = append(engineOpts, hook.WithObserver(o.observer))
	}

	engine, err := hook.New(engineOpts...)
	if err != nil {
		_ = luaRuntime.Close()
		return nil, oops.In("app").Wrap(err)
	}

	return &App{
		Config:   cfg,
		Engine:   engine,
		Settings: settings,
	}, nil
}

// Load loads a category or a single hook.
func (a *App) Load(ctx context.Context, target string, opts ...hook.LoadOption) hook.Report {
	return a.Engine.Load(ctx, target, opts...)
}

// LoadAll loads each target in turn and returns the reports in order.
func (a *App) LoadAll(ctx context.Context, targets []string, opts ...hook.LoadOption) []hook.Report {
	reports := make([]hook.Report, 0, len(targets))
	for _, target := range targets {
		reports = append(reports, a.Engine.Load(ctx, target, opts...))
	}
	return reports
}

// Context returns the shared application context.
func (a *App) Context() *hook.Context {
	return a.Engine.App()
}

// Close releases the runtimes.
func (a *App) Close() error {
	return a.Engine.Close()
}
