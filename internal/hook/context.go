// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package hook

import (
	"sort"
	"sync"
)

// Context is the shared application context. Hooks contribute top-level
// entries named after themselves; the application may reserve entries of
// its own with Provide.
//
// Context is safe for concurrent use.
type Context struct {
	mu       sync.RWMutex
	entries  map[string]Contribution
	reserved map[string]bool
}

// NewContext creates an empty context.
func NewContext() *Context {
	return &Context{
		entries:  make(map[string]Contribution),
		reserved: make(map[string]bool),
	}
}

// Provide installs an application-owned entry. Hooks can read it but a hook
// with the same name fails instead of replacing it.
func (c *Context) Provide(name string, value Contribution) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[name] = value
	c.reserved[name] = true
}

// Get returns the entry for name.
func (c *Context) Get(name string) (Contribution, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[name]
	return v, ok
}

// Has reports whether name has an entry.
func (c *Context) Has(name string) bool {
	_, ok := c.Get(name)
	return ok
}

// Names returns all entry names in sorted order.
func (c *Context) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.entries))
	for name := range c.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of entries.
func (c *Context) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// merge folds a hook's contribution into the context. A non-empty
// contribution is stored under name; an empty one removes any entry the
// hook left earlier. Reserved entries are never touched, and only a
// non-empty contribution to one is an error.
func (c *Context) merge(name string, contrib Contribution) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if isEmpty(contrib) {
		if !c.reserved[name] {
			delete(c.entries, name)
		}
		return nil
	}
	if c.reserved[name] {
		return ErrReservedName(name)
	}
	c.entries[name] = contrib
	return nil
}
