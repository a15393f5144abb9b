// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package hook discovers, orders, and executes hook modules and merges their
// contributions into a shared application context.
package hook

import (
	"context"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/spf13/afero"
)

// Status is the outcome of a single hook in a load pass.
type Status int

// Hook statuses. StatusPending is only seen by before-subscriptions.
const (
	StatusPending Status = iota
	StatusLoaded
	StatusSkipped
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusLoaded:
		return "loaded"
	case StatusSkipped:
		return "skipped"
	case StatusFailed:
		return "failed"
	default:
		return "status(" + strconv.Itoa(int(s)) + ")"
	}
}

// ID returns the identifier of a hook: "<category>:<name>".
func ID(category, name string) string {
	return category + ":" + name
}

// ParseID splits an identifier into category and name.
// ok is false when id has no category part.
func ParseID(id string) (category, name string, ok bool) {
	category, name, ok = strings.Cut(id, ":")
	if !ok || category == "" || name == "" {
		return "", "", false
	}
	return category, name, true
}

// Descriptor describes one discovered hook.
type Descriptor struct {
	Name     string
	Category string
	Order    int
	// Source is the entry file. Empty for hooks registered from Go.
	Source string
	// Dir is the hook directory for directory-form hooks.
	Dir           string
	DirectoryForm bool
	// Runtime is the file extension that selected the runtime (".lua").
	Runtime  string
	Manifest *Manifest
	// Err is set when the hook was found but cannot be run.
	Err error

	entry EntryPoint
}

// ID returns "<category>:<name>".
func (d Descriptor) ID() string {
	return ID(d.Category, d.Name)
}

// Record is the result of running (or skipping) one hook.
type Record struct {
	ID       string
	Category string
	Name     string
	Status   Status
	Err      error
	Pass     ulid.ULID
	Duration time.Duration
}

// Report summarizes one Load call.
type Report struct {
	Pass    ulid.ULID
	Target  string
	Records []Record
}

// Count returns the number of records with the given status.
func (r Report) Count(s Status) int {
	n := 0
	for _, rec := range r.Records {
		if rec.Status == s {
			n++
		}
	}
	return n
}

// Failed returns the failed records in execution order.
func (r Report) Failed() []Record {
	var out []Record
	for _, rec := range r.Records {
		if rec.Status == StatusFailed {
			out = append(out, rec)
		}
	}
	return out
}

// Contribution is the value a hook returns. A nil or zero-length
// contribution is empty and is never merged.
type Contribution interface {
	Len() int
	Keys() []string
	Get(key string) (any, bool)
}

// Members is the Go-native Contribution.
type Members map[string]any

// Len returns the number of members.
func (m Members) Len() int { return len(m) }

// Keys returns the member names in sorted order.
func (m Members) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns a member.
func (m Members) Get(key string) (any, bool) {
	v, ok := m[key]
	return v, ok
}

// Func is a callable member of a contribution. Runtimes convert their own
// functions to Func so hooks written for different runtimes can call each
// other.
type Func func(args ...any) (any, error)

// Call invokes the Func stored under member.
func Call(c Contribution, member string, args ...any) (any, error) {
	if isEmpty(c) {
		return nil, errNotCallable(member, "contribution is empty")
	}
	v, ok := c.Get(member)
	if !ok {
		return nil, errNotCallable(member, "no such member")
	}
	fn, ok := v.(Func)
	if !ok {
		return nil, errNotCallable(member, "member is not a function")
	}
	return fn(args...)
}

func isEmpty(c Contribution) bool {
	return c == nil || c.Len() == 0
}

// ConfigReader exposes configuration to the gate and to hooks.
type ConfigReader interface {
	Lookup(key string) (any, bool)
}

// Env is what an entry point receives.
type Env struct {
	App    *Context
	Config ConfigReader
	Hook   Descriptor
	Logger *slog.Logger
}

// EntryPoint is a hook body.
type EntryPoint func(ctx context.Context, env *Env) (Contribution, error)

// Runtime turns a discovered hook file into an EntryPoint.
type Runtime interface {
	// Extensions lists the file extensions this runtime claims, with the dot.
	Extensions() []string
	// Compile reads d.Source from fsys and prepares it for execution.
	Compile(ctx context.Context, fsys afero.Fs, d Descriptor) (EntryPoint, error)
	// Close releases runtime resources.
	Close() error
}

// Observer is told about every hook outcome, including skips.
type Observer interface {
	ObserveHook(d Descriptor, rec Record)
}

// Phase says when a subscription fires.
type Phase int

// Subscription phases.
const (
	PhaseBefore Phase = iota
	PhaseAfter
)

func (p Phase) String() string {
	if p == PhaseBefore {
		return "before"
	}
	return "after"
}

// Event is delivered to subscription callbacks.
type Event struct {
	ID       string
	Category string
	Name     string
	Phase    Phase
	Status   Status
	Err      error
	Pass     ulid.ULID
	// Replayed is true when an after-subscription fired at registration
	// because the hook had already loaded.
	Replayed bool
}

// Callback receives a subscription event.
type Callback func(Event)
