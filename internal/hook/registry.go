// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package hook

import (
	"sort"
	"sync"
)

// Registry records which hooks have loaded and dispatches load events.
//
// Subscriptions are one-shot. An after-subscription for a hook that has
// already loaded fires immediately, at registration, and is not kept.
// A before-subscription never replays; it waits for the next run of that
// hook.
//
// Callbacks run on the loading goroutine with no registry or engine lock
// held, so a callback may subscribe again or call Engine.Load.
type Registry struct {
	mu         sync.Mutex
	loaded     map[string]struct{}
	order      []string
	records    map[string]Record
	categories map[string]*Sequence
	before     map[string][]Callback
	after      map[string][]Callback
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		loaded:     make(map[string]struct{}),
		records:    make(map[string]Record),
		categories: make(map[string]*Sequence),
		before:     make(map[string][]Callback),
		after:      make(map[string][]Callback),
	}
}

// Before registers cb to fire just before the hook id next runs.
func (r *Registry) Before(id string, cb Callback) {
	if cb == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.before[id] = append(r.before[id], cb)
}

// After registers cb to fire once the hook id has run, whether it loaded or
// failed. If id is already loaded cb fires now and is not stored.
func (r *Registry) After(id string, cb Callback) {
	if cb == nil {
		return
	}
	r.mu.Lock()
	if _, ok := r.loaded[id]; ok {
		rec := r.records[id]
		r.mu.Unlock()
		ev := eventFor(rec, PhaseAfter)
		ev.Replayed = true
		cb(ev)
		return
	}
	r.after[id] = append(r.after[id], cb)
	r.mu.Unlock()
}

// IsLoaded reports whether id has run in some load pass.
func (r *Registry) IsLoaded(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.loaded[id]
	return ok
}

// Loaded returns loaded identifiers in the order they first loaded.
func (r *Registry) Loaded() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Record returns the latest record for id.
func (r *Registry) Record(id string) (Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	return rec, ok
}

// Category returns the live name sequence for a category, creating it if
// needed so callers can hold it before anything loads.
func (r *Registry) Category(name string) *Sequence {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sequence(name)
}

// Categories returns the names of categories that have sequences.
func (r *Registry) Categories() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.categories))
	for name := range r.categories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) sequence(name string) *Sequence {
	seq, ok := r.categories[name]
	if !ok {
		seq = &Sequence{}
		r.categories[name] = seq
	}
	return seq
}

// started fires and clears the before-subscriptions of rec.ID.
func (r *Registry) started(rec Record) {
	r.mu.Lock()
	cbs := r.before[rec.ID]
	delete(r.before, rec.ID)
	r.mu.Unlock()

	dispatch(cbs, eventFor(rec, PhaseBefore))
}

// completed marks rec.ID loaded, appends it to its category sequence, and
// stores the record. It returns the pending after-subscriptions, which the
// caller fires once it holds no locks.
func (r *Registry) completed(rec Record) []Callback {
	r.mu.Lock()
	if _, ok := r.loaded[rec.ID]; !ok {
		r.loaded[rec.ID] = struct{}{}
		r.order = append(r.order, rec.ID)
	}
	r.records[rec.ID] = rec
	seq := r.sequence(rec.Category)
	cbs := r.after[rec.ID]
	delete(r.after, rec.ID)
	r.mu.Unlock()

	seq.push(rec.Name)
	return cbs
}

func dispatch(cbs []Callback, ev Event) {
	for _, cb := range cbs {
		cb(ev)
	}
}

func eventFor(rec Record, phase Phase) Event {
	return Event{
		ID:       rec.ID,
		Category: rec.Category,
		Name:     rec.Name,
		Phase:    phase,
		Status:   rec.Status,
		Err:      rec.Err,
		Pass:     rec.Pass,
	}
}
