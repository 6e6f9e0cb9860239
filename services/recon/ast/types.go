// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ast extracts symbol tables from Python source files using
// tree-sitter. It is the syntax indexing stage of the Recon pipeline: one
// successfully parsed file produces one Module value tagged with its
// discovery index.
package ast

import (
	"errors"
	"path"
	"strings"
)

// Default parser limits.
const (
	// DefaultMaxFileSize is the largest file the indexer will parse (10MB).
	// Files larger than this are skipped with ErrFileTooLarge.
	DefaultMaxFileSize = 10 * 1024 * 1024

	// WarnFileSize is the size above which a warning is logged (1MB).
	WarnFileSize = 1 * 1024 * 1024
)

// Sentinel errors returned by Parse. The analyzer converts these into
// per-file skip records; they never abort a batch.
var (
	// ErrFileTooLarge indicates the content exceeds the size limit.
	ErrFileTooLarge = errors.New("file too large")

	// ErrInvalidContent indicates the content is not valid UTF-8.
	ErrInvalidContent = errors.New("invalid content")

	// ErrUnparsable indicates the syntax tree was unusable: the parse
	// produced errors and yielded no symbols and no imports.
	ErrUnparsable = errors.New("unparsable source")
)

// Param is a single declared parameter of a method.
type Param struct {
	// Name is the parameter name as written, including self/cls.
	Name string

	// Annotation is the declared type annotation text, or "" when absent.
	Annotation string
}

// Method is a function declared inside a class body.
type Method struct {
	// Name is the method name.
	Name string

	// Params are the declared parameters in order.
	Params []Param

	// Returns is the declared return annotation text, or "" when absent.
	Returns string

	// Async is true for "async def" declarations.
	Async bool

	// DocComment is the method docstring with quotes stripped, or "".
	DocComment string

	// Decorators are the decorator expressions applied to the method
	// ("app.route", "staticmethod"). Used by pattern matching.
	Decorators []string

	// StartLine is the 1-based source line of the declaration.
	StartLine int
}

// HasAnnotations reports whether the method declares at least one parameter
// annotation (beyond self/cls) or a return annotation.
func (m *Method) HasAnnotations() bool {
	if m.Returns != "" {
		return true
	}
	for _, p := range m.Params {
		if p.Name == "self" || p.Name == "cls" {
			continue
		}
		if p.Annotation != "" {
			return true
		}
	}
	return false
}

// Symbol is a class-like declaration inside a Module.
type Symbol struct {
	// Name is the class name.
	Name string

	// DocComment is the class docstring with quotes stripped, or "".
	DocComment string

	// Bases are the base class names, qualified prefixes stripped to the
	// leaf ("db.Model" → recorded as "db.Model"; callers match on text).
	Bases []string

	// Decorators are decorator expressions applied to the class.
	Decorators []string

	// Methods are the class's methods in declaration order.
	Methods []Method

	// StartLine is the 1-based source line of the declaration.
	StartLine int
}

// Method returns the method with the given name, or nil.
func (s *Symbol) Method(name string) *Method {
	for i := range s.Methods {
		if s.Methods[i].Name == name {
			return &s.Methods[i]
		}
	}
	return nil
}

// Module is the symbol table of one source file.
type Module struct {
	// Key is the module identity: the path relative to the scan root
	// normalized to a dotted key ("pkg/util.py" → "pkg.util",
	// "pkg/__init__.py" → "pkg").
	Key string

	// Path is the path relative to the scan root, forward slashes.
	Path string

	// Index is the discovery index assigned by the catalog. All
	// deterministic merges order by this value, never by completion time.
	Index int

	// DocComment is the module docstring, or "".
	DocComment string

	// Imports are the raw unresolved import references ("os",
	// "pkg.util", ".sibling"). Retained in full for theme detection even
	// when they do not resolve to graph edges.
	Imports []string

	// Symbols are the class declarations in source order.
	Symbols []Symbol
}

// IsPackage reports whether the module is a package initializer
// (__init__.py). A package's relative imports resolve against its own key,
// not its parent's.
func (m *Module) IsPackage() bool {
	base := path.Base(m.Path)
	return base == "__init__.py" || base == "__init__.pyi"
}

// ModuleKey normalizes a root-relative file path to a dotted module key.
//
// "pkg/util.py" → "pkg.util"; "pkg/__init__.py" → "pkg"; "main.pyi" →
// "main". The input must use forward slashes.
func ModuleKey(relPath string) string {
	p := relPath
	if ext := path.Ext(p); ext == ".py" || ext == ".pyi" {
		p = strings.TrimSuffix(p, ext)
	}
	p = strings.TrimSuffix(p, "/__init__")
	if p == "__init__" {
		p = ""
	}
	return strings.ReplaceAll(p, "/", ".")
}
