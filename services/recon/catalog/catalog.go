// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package catalog discovers candidate source files under a scan root.
//
// Discovery is sequential and deterministic: results come back in
// lexicographic directory-then-file order, and that order is the canonical
// ordering basis for every later merge in the pipeline.
package catalog

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	ignore "github.com/sabhiram/go-gitignore"
)

// ErrEntryPointOutsideRoot is the fatal configuration error: the requested
// entry point resolves outside the scan root. It is returned before any
// file I/O happens.
var ErrEntryPointOutsideRoot = errors.New("entry point resolves outside scan root")

// Entry is one discovered source file.
type Entry struct {
	// Path is relative to the scan root, forward slashes.
	Path string

	// AbsPath is the absolute path on disk.
	AbsPath string

	// Index is the discovery index: the position of this file in the
	// canonical ordering.
	Index int
}

// sourceExtensions is the extension allow-list.
var sourceExtensions = map[string]struct{}{
	".py":  {},
	".pyi": {},
}

// skipDirs are directories never descended into: caches, vendored trees,
// virtual environments, build output.
var skipDirs = map[string]struct{}{
	"__pycache__":   {},
	"node_modules":  {},
	".git":          {},
	".hg":           {},
	".svn":          {},
	"venv":          {},
	".venv":         {},
	"env":           {},
	".env":          {},
	"build":         {},
	"dist":          {},
	".tox":          {},
	".mypy_cache":   {},
	".ruff_cache":   {},
	".pytest_cache": {},
	"site-packages": {},
	"egg-info":      {},
}

// Options configures discovery.
type Options struct {
	// EntryPoint optionally restricts the scan to a sub-path of root.
	// A value escaping root fails fast with ErrEntryPointOutsideRoot.
	EntryPoint string

	// ExcludeGlobs are doublestar patterns matched against root-relative
	// paths; matching files are dropped.
	ExcludeGlobs []string
}

// Discover walks root (or root/entryPoint) and returns source files in
// canonical order.
//
// Description:
//
//	Applies the extension allow-list, the directory exclusion list, the
//	root .gitignore when present, and any configured exclude globs.
//	Unreadable entries and symlinks are skipped silently; discovery is
//	read-only and never mutates the tree.
//
// Outputs:
//   - []Entry: Discovered files ordered lexicographically by directory
//     first, then file name, each tagged with its discovery index.
//   - error: ErrEntryPointOutsideRoot, or an I/O error on the root itself.
func Discover(root string, opts Options) ([]Entry, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving root: %w", err)
	}

	scanRoot := absRoot
	if opts.EntryPoint != "" {
		scanRoot = filepath.Clean(filepath.Join(absRoot, opts.EntryPoint))
		rel, err := filepath.Rel(absRoot, scanRoot)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return nil, fmt.Errorf("%w: %q", ErrEntryPointOutsideRoot, opts.EntryPoint)
		}
	}

	gi := loadGitignore(absRoot)

	var entries []Entry

	err = filepath.WalkDir(scanRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == scanRoot {
				return walkErr
			}
			return nil // skip unreadable entries
		}

		name := d.Name()

		if d.IsDir() {
			if path == scanRoot {
				return nil
			}
			if _, skip := skipDirs[name]; skip {
				return filepath.SkipDir
			}
			if strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}

		if d.Type()&os.ModeSymlink != 0 {
			return nil
		}
		if strings.HasPrefix(name, ".") {
			return nil
		}

		if _, ok := sourceExtensions[filepath.Ext(name)]; !ok {
			return nil
		}

		rel, err := filepath.Rel(absRoot, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if gi != nil && gi.MatchesPath(rel) {
			return nil
		}
		for _, pattern := range opts.ExcludeGlobs {
			if ok, _ := doublestar.Match(pattern, rel); ok {
				return nil
			}
		}

		entries = append(entries, Entry{Path: rel, AbsPath: path})
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // empty tree is not an error
		}
		return nil, fmt.Errorf("walking %s: %w", scanRoot, err)
	}

	// Canonical order: directory first, then file name.
	sort.Slice(entries, func(i, j int) bool {
		di, fi := splitDirFile(entries[i].Path)
		dj, fj := splitDirFile(entries[j].Path)
		if di != dj {
			return di < dj
		}
		return fi < fj
	})
	for i := range entries {
		entries[i].Index = i
	}

	return entries, nil
}

func splitDirFile(rel string) (string, string) {
	idx := strings.LastIndexByte(rel, '/')
	if idx < 0 {
		return "", rel
	}
	return rel[:idx], rel[idx+1:]
}

func loadGitignore(root string) *ignore.GitIgnore {
	gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	return gi
}
