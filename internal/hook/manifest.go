// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package hook

import (
	"fmt"
	"regexp"

	"github.com/Masterminds/semver/v3"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

// ManifestFile is the optional manifest inside a directory-form hook.
const ManifestFile = "hook.yaml"

// DefaultIndex is the base name of a directory-form hook's entry file.
const DefaultIndex = "index"

// Manifest represents a hook.yaml file.
type Manifest struct {
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Order       *int   `yaml:"order,omitempty" json:"order,omitempty"`
	Index       string `yaml:"index,omitempty" json:"index,omitempty" jsonschema:"pattern=^[A-Za-z0-9_-]+$"`
	Engine      string `yaml:"engine,omitempty" json:"engine,omitempty"`
}

// indexPattern keeps the index inside the hook directory.
var indexPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ParseManifest parses and validates a hook.yaml file.
func ParseManifest(data []byte) (*Manifest, error) {
	if err := ValidateSchema(data); err != nil {
		return nil, oops.In("hook").Code(CodeInvalidManifest).Wrap(err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, oops.In("hook").Code(CodeInvalidManifest).Wrapf(err, "invalid YAML")
	}

	if err := m.Validate(); err != nil {
		return nil, oops.In("hook").Code(CodeInvalidManifest).Wrap(err)
	}

	return &m, nil
}

// Validate checks manifest constraints.
func (m *Manifest) Validate() error {
	if m.Index != "" && !indexPattern.MatchString(m.Index) {
		return fmt.Errorf("index %q must contain only letters, digits, '-' and '_'", m.Index)
	}
	if m.Engine != "" {
		if _, err := semver.NewConstraint(m.Engine); err != nil {
			return fmt.Errorf("engine %q is not a valid version constraint: %w", m.Engine, err)
		}
	}
	return nil
}

// IndexName returns the base name of the entry file.
func (m *Manifest) IndexName() string {
	if m == nil || m.Index == "" {
		return DefaultIndex
	}
	return m.Index
}

// Compatible reports whether the manifest's engine constraint accepts v.
// A nil version or empty constraint is always compatible.
func (m *Manifest) Compatible(v *semver.Version) (bool, error) {
	if m == nil || m.Engine == "" || v == nil {
		return true, nil
	}
	c, err := semver.NewConstraint(m.Engine)
	if err != nil {
		return false, fmt.Errorf("engine constraint: %w", err)
	}
	return c.Check(v), nil
}
