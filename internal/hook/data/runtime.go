// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package data runs declarative hooks: YAML or JSON documents whose
// top-level mapping is the contribution.
package data

import (
	"context"

	"github.com/samber/oops"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/holomush/nautilus/internal/hook"
)

// Compile-time interface check.
var _ hook.Runtime = (*Runtime)(nil)

// Runtime loads YAML and JSON hooks. JSON is read with the YAML decoder.
type Runtime struct{}

// NewRuntime creates a data runtime.
func NewRuntime() *Runtime {
	return &Runtime{}
}

// Extensions returns the extensions handled by this runtime.
func (r *Runtime) Extensions() []string {
	return []string{".yaml", ".yml", ".json"}
}

// Compile parses the document. Parsing happens here so a malformed file
// fails before anything is merged.
func (r *Runtime) Compile(_ context.Context, fsys afero.Fs, d hook.Descriptor) (hook.EntryPoint, error) {
	src, err := afero.ReadFile(fsys, d.Source)
	if err != nil {
		return nil, oops.In("data").With("hook", d.ID()).With("path", d.Source).
			Hint("failed to read entry file").Wrap(err)
	}

	var doc any
	if err := yaml.Unmarshal(src, &doc); err != nil {
		return nil, oops.In("data").With("hook", d.ID()).With("path", d.Source).
			Hint("invalid YAML").Wrap(err)
	}

	var contrib hook.Contribution
	switch v := doc.(type) {
	case nil:
	case map[string]any:
		contrib = hook.Members(v)
	default:
		return nil, hook.ErrBadContribution(d.ID(), typeName(v))
	}

	return func(context.Context, *hook.Env) (hook.Contribution, error) {
		return contrib, nil
	}, nil
}

// Close is a no-op.
func (r *Runtime) Close() error {
	return nil
}

func typeName(v any) string {
	switch v.(type) {
	case []any:
		return "sequence"
	case string:
		return "string"
	case bool:
		return "boolean"
	case int, int64, float64:
		return "number"
	default:
		return "scalar"
	}
}
