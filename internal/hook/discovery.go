// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package hook

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/afero"
)

// discover resolves target to a batch of descriptors in discovery order.
// Missing categories and hooks produce an empty batch.
func (e *Engine) discover(_ context.Context, target, base string) []Descriptor {
	if target == "" {
		return nil
	}

	if category, name, ok := ParseID(target); ok {
		return e.findInCategory(base, category, name)
	}

	if e.isCategory(base, target) {
		return e.discoverCategory(base, target)
	}

	for _, category := range e.categories(base) {
		if found := e.findInCategory(base, category, target); len(found) > 0 {
			return found
		}
	}
	return nil
}

func (e *Engine) findInCategory(base, category, name string) []Descriptor {
	for _, d := range e.discoverCategory(base, category) {
		if d.Name == name {
			return []Descriptor{d}
		}
	}
	return nil
}

// isCategory reports whether target names a category: a directory under
// base or a category with Go-registered hooks.
func (e *Engine) isCategory(base, target string) bool {
	e.smu.RLock()
	_, ok := e.static[target]
	e.smu.RUnlock()
	if ok {
		return true
	}
	isDir, err := afero.DirExists(e.fs, filepath.Join(base, target))
	return err == nil && isDir
}

// categories lists every category under base plus registered ones, sorted.
func (e *Engine) categories(base string) []string {
	e.smu.RLock()
	names := slices.Clone(e.staticCats)
	e.smu.RUnlock()

	entries, err := afero.ReadDir(e.fs, base)
	if err == nil {
		for _, entry := range entries {
			if entry.IsDir() && !e.ignored(entry.Name()) && !slices.Contains(names, entry.Name()) {
				names = append(names, entry.Name())
			}
		}
	}
	sort.Strings(names)
	return names
}

// discoverCategory enumerates one category: registered hooks first, then
// filesystem entries in name order.
func (e *Engine) discoverCategory(base, category string) []Descriptor {
	e.smu.RLock()
	batch := slices.Clone(e.static[category])
	e.smu.RUnlock()

	seen := make(map[string]bool, len(batch))
	for _, d := range batch {
		seen[d.Name] = true
	}

	dir := filepath.Join(base, category)
	entries, err := afero.ReadDir(e.fs, dir)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			e.logger.Warn("failed to read hook category",
				"category", category,
				"dir", dir,
				"error", err)
		}
		return batch
	}

	for _, entry := range entries {
		if e.ignored(entry.Name()) {
			continue
		}

		var (
			d  Descriptor
			ok bool
		)
		if entry.IsDir() {
			d, ok = e.describeDir(dir, category, entry.Name())
		} else {
			d, ok = e.describeFile(dir, category, entry.Name())
		}
		if !ok {
			continue
		}

		if seen[d.Name] {
			e.logger.Warn("skipping duplicate hook",
				"hook", d.ID(),
				"source", d.Source)
			continue
		}
		seen[d.Name] = true
		batch = append(batch, d)
	}

	return batch
}

func (e *Engine) ignored(name string) bool {
	for _, g := range e.ignore {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// describeFile builds a descriptor for <dir>/<name>.<ext>. Files whose
// extension no runtime claims are not hooks.
func (e *Engine) describeFile(dir, category, fileName string) (Descriptor, bool) {
	ext := filepath.Ext(fileName)
	if _, ok := e.byExt[ext]; !ok {
		return Descriptor{}, false
	}
	name := strings.TrimSuffix(fileName, ext)
	if validateName("name", name) != nil {
		e.logger.Warn("skipping hook with invalid name", "category", category, "file", fileName)
		return Descriptor{}, false
	}

	d := Descriptor{
		Name:     name,
		Category: category,
		Source:   filepath.Join(dir, fileName),
		Runtime:  ext,
	}
	d.Order, d.Err = e.readOrder(d)
	return d, true
}

// describeDir builds a descriptor for a directory-form hook. Only the index
// entry is a hook body; other files in the directory are left alone.
// A directory with neither manifest nor index is not a hook.
func (e *Engine) describeDir(dir, category, name string) (Descriptor, bool) {
	if validateName("name", name) != nil {
		return Descriptor{}, false
	}

	hookDir := filepath.Join(dir, name)
	d := Descriptor{
		Name:          name,
		Category:      category,
		Dir:           hookDir,
		DirectoryForm: true,
	}

	manifestPath := filepath.Join(hookDir, ManifestFile)
	data, err := afero.ReadFile(e.fs, manifestPath)
	hasManifest := err == nil
	switch {
	case err == nil:
		m, parseErr := ParseManifest(data)
		if parseErr != nil {
			d.Err = oops.In("hook").With("hook", d.ID()).With("path", manifestPath).
				Hint(FormatSchemaError(parseErr)).Wrap(parseErr)
			return d, true
		}
		d.Manifest = m
	case !errors.Is(err, fs.ErrNotExist):
		d.Err = oops.In("hook").Code(CodeInvalidManifest).With("hook", d.ID()).With("path", manifestPath).
			Wrapf(err, "read manifest")
		return d, true
	}

	index := d.Manifest.IndexName()
	for _, ext := range e.exts {
		path := filepath.Join(hookDir, index+ext)
		if isDir, err := afero.IsDir(e.fs, path); err == nil && !isDir {
			d.Source = path
			d.Runtime = ext
			break
		}
	}
	if d.Source == "" {
		if !hasManifest {
			return Descriptor{}, false
		}
		d.Err = oops.In("hook").Code(CodeNoIndex).With("hook", d.ID()).With("dir", hookDir).
			Errorf("hook directory has no %s entry", index)
		return d, true
	}

	if d.Manifest != nil && d.Manifest.Order != nil {
		d.Order = *d.Manifest.Order
	} else {
		d.Order, d.Err = e.readOrder(d)
		if d.Err != nil {
			return d, true
		}
	}

	ok, err := d.Manifest.Compatible(e.version)
	if err != nil || !ok {
		d.Err = oops.In("hook").Code(CodeIncompatible).With("hook", d.ID()).
			With("engine", e.version.String()).With("constraint", d.Manifest.Engine).
			Errorf("hook %s requires engine %s", d.ID(), d.Manifest.Engine)
	}
	return d, true
}

// readOrder reads the @order directive from a hook's entry file.
func (e *Engine) readOrder(d Descriptor) (int, error) {
	src, err := afero.ReadFile(e.fs, d.Source)
	if err != nil {
		return 0, oops.In("hook").Code(CodeCompileFailed).With("hook", d.ID()).With("path", d.Source).
			Wrapf(err, "read hook source")
	}
	order, _, err := ParseOrder(src)
	if err != nil {
		return 0, oops.In("hook").With("hook", d.ID()).With("path", d.Source).Wrap(err)
	}
	return order, nil
}
