// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package hook

import (
	"slices"
	"sync"
)

// Sequence is the live list of hook names of one category, in the order
// they finished loading. Callers may consume it with Shift; doing so only
// changes what the list reports, never what is loaded.
type Sequence struct {
	mu    sync.Mutex
	names []string
}

// Names returns a copy of the current names.
func (s *Sequence) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.names)
}

// Len returns the number of names.
func (s *Sequence) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.names)
}

// Shift removes and returns the first name.
func (s *Sequence) Shift() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.names) == 0 {
		return "", false
	}
	name := s.names[0]
	s.names = s.names[1:]
	return name, true
}

// push appends name, moving it to the end if it is already present.
func (s *Sequence) push(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := slices.Index(s.names, name); i >= 0 {
		s.names = slices.Delete(s.names, i, i+1)
	}
	s.names = append(s.names, name)
}
