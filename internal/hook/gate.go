// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package hook

// Enabled reports whether configuration allows the named hook to run. Only
// an explicit boolean false disables a hook; a missing key, true, or a
// nested settings object all enable it.
func Enabled(cfg ConfigReader, name string) bool {
	if cfg == nil {
		return true
	}
	v, ok := cfg.Lookup(name)
	if !ok {
		return true
	}
	b, isBool := v.(bool)
	return !isBool || b
}
