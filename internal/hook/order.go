// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package hook

import (
	"cmp"
	"slices"
)

// Resolve sorts a discovered batch into execution order: ascending Order,
// ties kept in discovery order. The input slice is sorted in place and
// returned.
func Resolve(batch []Descriptor) []Descriptor {
	slices.SortStableFunc(batch, func(a, b Descriptor) int {
		return cmp.Compare(a.Order, b.Order)
	})
	return batch
}
