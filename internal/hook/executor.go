// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package hook

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/holomush/nautilus/pkg/errutil"
)

// run takes one descriptor through gate, execution, merge, and registry
// update. Failures stay inside the returned record. The engine lock covers
// execution through the registry update; event callbacks run outside it.
func (e *Engine) run(ctx context.Context, pass ulid.ULID, d Descriptor, logger *slog.Logger) Record {
	rec := Record{
		ID:       d.ID(),
		Category: d.Category,
		Name:     d.Name,
		Pass:     pass,
	}
	log := logger.With("hook", rec.ID)

	if !Enabled(e.config, d.Name) {
		rec.Status = StatusSkipped
		log.Debug("hook disabled by configuration")
		e.observe(d, rec)
		return rec
	}

	e.registry.started(rec)

	pending := func() []Callback {
		e.mu.Lock()
		defer e.mu.Unlock()

		start := time.Now()
		err := e.execute(ctx, d, log)
		rec.Duration = time.Since(start)
		if err != nil {
			rec.Status = StatusFailed
			rec.Err = err
		} else {
			rec.Status = StatusLoaded
		}
		return e.registry.completed(rec)
	}()

	if rec.Err != nil {
		errutil.LogError(log, "hook failed", rec.Err)
	} else {
		log.Debug("hook loaded", "duration", rec.Duration, "contributed", e.app.Has(d.Name))
	}

	// A callback may start another load; its batch runs to completion here.
	dispatch(pending, eventFor(rec, PhaseAfter))
	e.observe(d, rec)
	return rec
}

// execute compiles and invokes the hook, then merges its contribution.
func (e *Engine) execute(ctx context.Context, d Descriptor, log *slog.Logger) (err error) {
	ctx, span := e.tracer.Start(ctx, "hook.execute", trace.WithAttributes(
		attribute.String("hook.id", d.ID()),
		attribute.String("hook.category", d.Category),
		attribute.Int("hook.order", d.Order),
		attribute.String("hook.runtime", d.Runtime),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if d.Err != nil {
		return d.Err
	}

	entry, err := e.entryPoint(ctx, d)
	if err != nil {
		return err
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	env := &Env{
		App:    e.app,
		Config: e.config,
		Hook:   d,
		Logger: log,
	}
	contrib, err := invoke(ctx, entry, env)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ErrTimeout(d.ID(), err)
		}
		if isPanic(err) {
			return err
		}
		return ErrExecution(d.ID(), err)
	}

	return e.app.merge(d.Name, contrib)
}

func (e *Engine) entryPoint(ctx context.Context, d Descriptor) (EntryPoint, error) {
	if d.entry != nil {
		return d.entry, nil
	}
	rt, ok := e.byExt[d.Runtime]
	if !ok {
		return nil, errNoRuntime(d)
	}
	entry, err := rt.Compile(ctx, e.fs, d)
	if err != nil {
		return nil, oops.In("hook").Code(CodeCompileFailed).With("hook", d.ID()).With("path", d.Source).
			Wrapf(err, "compile %s", d.ID())
	}
	return entry, nil
}

// invoke calls entry, converting a panic into an error.
func invoke(ctx context.Context, entry EntryPoint, env *Env) (contrib Contribution, err error) {
	defer func() {
		if r := recover(); r != nil {
			contrib = nil
			err = ErrPanic(env.Hook.ID(), r)
		}
	}()
	return entry(ctx, env)
}

func isPanic(err error) bool {
	oopsErr, ok := oops.AsOops(err)
	return ok && oopsErr.Code() == CodePanic
}

func (e *Engine) observe(d Descriptor, rec Record) {
	if e.observer != nil {
		e.observer.ObserveHook(d, rec)
	}
}
