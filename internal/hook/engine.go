// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package hook

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/gobwas/glob"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"github.com/spf13/afero"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/holomush/nautilus/internal/hook"

// DefaultRoot is the hooks root used when none is configured.
const DefaultRoot = "hooks"

// DefaultIgnore lists the entry-name globs skipped by discovery.
var DefaultIgnore = []string{"_*", ".*"}

// Engine discovers and runs hooks.
//
// Hooks run one at a time: a hook's execution, merge and registry update
// finish before any other hook starts, across all Load calls. Event
// callbacks run between hooks with no engine lock held, so a callback may
// call Load; the nested batch completes before the outer pass continues.
// A hook entry point must not call Load on the engine that is running it.
type Engine struct {
	fs       afero.Fs
	root     string
	runtimes []Runtime
	byExt    map[string]Runtime
	exts     []string
	app      *Context
	config   ConfigReader
	registry *Registry
	logger   *slog.Logger
	observer Observer
	timeout  time.Duration
	tracer   trace.Tracer

	ignorePatterns []string
	ignore         []glob.Glob
	rawVersion     string
	version        *semver.Version

	smu        sync.RWMutex
	static     map[string][]Descriptor
	staticCats []string

	// mu is held while a single hook executes.
	mu sync.Mutex
}

// Option configures the Engine.
type Option func(*Engine)

// WithFS sets the filesystem hooks are discovered on.
func WithFS(fsys afero.Fs) Option {
	return func(e *Engine) {
		e.fs = fsys
	}
}

// WithRoot sets the default hooks root.
func WithRoot(root string) Option {
	return func(e *Engine) {
		e.root = root
	}
}

// WithRuntime registers a runtime for the extensions it claims.
func WithRuntime(rt Runtime) Option {
	return func(e *Engine) {
		e.runtimes = append(e.runtimes, rt)
	}
}

// WithContext shares an existing application context.
func WithContext(app *Context) Option {
	return func(e *Engine) {
		e.app = app
	}
}

// WithConfig sets the configuration consulted by the gate and given to hooks.
func WithConfig(cfg ConfigReader) Option {
	return func(e *Engine) {
		e.config = cfg
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithObserver reports every hook outcome to o.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		e.observer = o
	}
}

// WithTimeout bounds each hook's execution. Zero means no limit.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.timeout = d
	}
}

// WithIgnore replaces the discovery ignore globs.
func WithIgnore(patterns ...string) Option {
	return func(e *Engine) {
		e.ignorePatterns = patterns
	}
}

// WithVersion sets the engine version checked against manifest constraints.
func WithVersion(v string) Option {
	return func(e *Engine) {
		e.rawVersion = v
	}
}

// WithTracerProvider sets the tracer provider for hook spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Engine) {
		e.tracer = tp.Tracer(tracerName)
	}
}

// New creates an engine.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		fs:             afero.NewOsFs(),
		root:           DefaultRoot,
		byExt:          make(map[string]Runtime),
		registry:       NewRegistry(),
		logger:         slog.Default(),
		tracer:         otel.Tracer(tracerName),
		ignorePatterns: DefaultIgnore,
		static:         make(map[string][]Descriptor),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.app == nil {
		e.app = NewContext()
	}

	for _, rt := range e.runtimes {
		for _, ext := range rt.Extensions() {
			if _, dup := e.byExt[ext]; dup {
				return nil, oops.In("hook").Code(CodeInvalidOption).With("extension", ext).
					Errorf("extension %q claimed by more than one runtime", ext)
			}
			e.byExt[ext] = rt
			e.exts = append(e.exts, ext)
		}
	}

	for _, p := range e.ignorePatterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, oops.In("hook").Code(CodeInvalidOption).With("pattern", p).Wrapf(err, "invalid ignore pattern")
		}
		e.ignore = append(e.ignore, g)
	}

	if e.rawVersion != "" {
		v, err := semver.NewVersion(e.rawVersion)
		if err != nil {
			// Development builds ("dev") skip manifest engine checks.
			e.logger.Debug("engine version is not semver, skipping compatibility checks",
				"version", e.rawVersion)
		} else {
			e.version = v
		}
	}

	return e, nil
}

// RegisterOption configures a hook registered from Go.
type RegisterOption func(*Descriptor)

// WithOrder sets a registered hook's order hint.
func WithOrder(order int) RegisterOption {
	return func(d *Descriptor) {
		d.Order = order
	}
}

// Register adds a Go-native hook to category. Registered hooks are
// discovered ahead of filesystem hooks of the same category, in
// registration order.
func (e *Engine) Register(category, name string, entry EntryPoint, opts ...RegisterOption) error {
	if err := validateName("category", category); err != nil {
		return err
	}
	if err := validateName("name", name); err != nil {
		return err
	}
	if entry == nil {
		return oops.In("hook").Code(CodeInvalidOption).With("hook", ID(category, name)).
			New("entry point cannot be nil")
	}

	d := Descriptor{Name: name, Category: category, entry: entry}
	for _, opt := range opts {
		opt(&d)
	}

	e.smu.Lock()
	defer e.smu.Unlock()
	for _, existing := range e.static[category] {
		if existing.Name == name {
			return oops.In("hook").Code(CodeDuplicateHook).With("hook", d.ID()).
				Errorf("hook %s already registered", d.ID())
		}
	}
	if _, ok := e.static[category]; !ok {
		e.staticCats = append(e.staticCats, category)
	}
	e.static[category] = append(e.static[category], d)
	return nil
}

func validateName(field, v string) error {
	if v == "" || strings.Contains(v, ":") {
		return oops.In("hook").Code(CodeInvalidHookName).With(field, v).
			Errorf("%s %q must be non-empty and must not contain ':'", field, v)
	}
	return nil
}

// LoadOption configures a single Load call.
type LoadOption func(*loadOptions)

type loadOptions struct {
	base string
}

// WithBase overrides the hooks root for one call.
func WithBase(path string) LoadOption {
	return func(o *loadOptions) {
		o.base = path
	}
}

func (e *Engine) loadOptions(opts []LoadOption) loadOptions {
	lo := loadOptions{base: e.root}
	for _, opt := range opts {
		opt(&lo)
	}
	if lo.base == "" {
		lo.base = e.root
	}
	return lo
}

// Plan returns the hooks Load would run for target, in execution order,
// without running them.
func (e *Engine) Plan(ctx context.Context, target string, opts ...LoadOption) []Descriptor {
	lo := e.loadOptions(opts)
	return Resolve(e.discover(ctx, target, lo.base))
}

// Load discovers and runs the hooks for target. target is a category, a
// "<category>:<name>" identifier, or a bare hook name searched across
// categories. A missing target loads nothing.
//
// Load never fails: hook failures are isolated and reported in the returned
// Report and in the registry.
func (e *Engine) Load(ctx context.Context, target string, opts ...LoadOption) Report {
	lo := e.loadOptions(opts)
	pass := ulid.Make()
	logger := e.logger.With("pass", pass.String(), "target", target)

	report := Report{Pass: pass, Target: target}
	batch := Resolve(e.discover(ctx, target, lo.base))
	if len(batch) == 0 {
		logger.Debug("no hooks found", "base", lo.base)
		return report
	}

	for _, d := range batch {
		report.Records = append(report.Records, e.run(ctx, pass, d, logger))
	}

	logger.Info("hooks loaded",
		"loaded", report.Count(StatusLoaded),
		"failed", report.Count(StatusFailed),
		"skipped", report.Count(StatusSkipped))
	return report
}

// App returns the shared application context.
func (e *Engine) App() *Context {
	return e.app
}

// Registry returns the load registry.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Root returns the default hooks root.
func (e *Engine) Root() string {
	return e.root
}

// Before subscribes to the start of hook id. The callback runs on the
// loading goroutine before the hook executes and may call Load.
func (e *Engine) Before(id string, cb Callback) {
	e.registry.Before(id, cb)
}

// After subscribes to the completion of hook id, replaying if it already
// completed. The callback runs on the loading goroutine, or on the caller's
// for a replay, and may call Load; the nested batch finishes before the
// next hook of the current pass starts.
func (e *Engine) After(id string, cb Callback) {
	e.registry.After(id, cb)
}

// Loaded returns the identifiers of hooks that have run.
func (e *Engine) Loaded() []string {
	return e.registry.Loaded()
}

// IsLoaded reports whether id has run.
func (e *Engine) IsLoaded(id string) bool {
	return e.registry.IsLoaded(id)
}

// Category returns the live name sequence for category.
func (e *Engine) Category(name string) *Sequence {
	return e.registry.Category(name)
}

// Record returns the latest record for id.
func (e *Engine) Record(id string) (Record, bool) {
	return e.registry.Record(id)
}

// Close releases all runtimes.
func (e *Engine) Close() error {
	var errs []error
	for _, rt := range e.runtimes {
		if err := rt.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return oops.In("hook").Wrapf(err, "close runtimes")
	}
	return nil
}
