// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package theme derives project-wide capability labels from the aggregate
// unresolved-import surface.
//
// Detection scans every module's full import list, including imports that
// never became dependency edges: an external library reference is exactly
// the signal a theme is built from.
package theme

import (
	"strings"

	"github.com/AleutianAI/AleutianRecon/services/recon/ast"
	"github.com/AleutianAI/AleutianRecon/services/recon/config"
	"github.com/AleutianAI/AleutianRecon/services/recon/model"
)

// rule maps a well-known dependency name fragment to a theme label.
type rule struct {
	fragment string
	label    string
}

// builtinRules is the fixed detection table, in emission order. The table
// is ordered, never a map, so the returned theme set has a stable
// iteration order across runs and platforms.
var builtinRules = []rule{
	{"asyncio", "Async"},
	{"aiohttp", "Async"},
	{"trio", "Async"},
	{"anyio", "Async"},
	{"flask", "API"},
	{"fastapi", "API"},
	{"django", "API"},
	{"starlette", "API"},
	{"tornado", "API"},
	{"bottle", "API"},
	{"sqlalchemy", "Database"},
	{"django.db", "Database"},
	{"peewee", "Database"},
	{"pymongo", "Database"},
	{"psycopg", "Database"},
	{"sqlite3", "Database"},
	{"redis", "Database"},
	{"click", "CLI"},
	{"argparse", "CLI"},
	{"typer", "CLI"},
	{"docopt", "CLI"},
	{"pydantic", "Validation"},
	{"marshmallow", "Validation"},
	{"cerberus", "Validation"},
	{"voluptuous", "Validation"},
	{"pytest", "Testing"},
	{"unittest", "Testing"},
	{"hypothesis", "Testing"},
	{"requests", "HTTP Client"},
	{"httpx", "HTTP Client"},
	{"urllib3", "HTTP Client"},
}

// Detector matches import references against the theme table.
type Detector struct {
	rules []rule
}

// NewDetector creates a Detector from the built-in table plus any
// configured extensions. Extensions are evaluated after the built-ins, in
// config order, so user rules extend the label set without perturbing the
// built-in ordering.
func NewDetector(extensions []config.ThemeRule) *Detector {
	rules := make([]rule, 0, len(builtinRules)+len(extensions))
	rules = append(rules, builtinRules...)
	for _, ext := range extensions {
		rules = append(rules, rule{fragment: ext.Fragment, label: ext.Label})
	}
	return &Detector{rules: rules}
}

// Detect returns the deduplicated theme labels for the whole project.
//
// Every module's complete unresolved-import list is scanned; matched labels
// are unioned in table order, so two runs over the same tree return the
// same slice.
func (d *Detector) Detect(modules []*ast.Module) []model.Theme {
	var themes []model.Theme
	seen := make(map[string]struct{})

	for _, r := range d.rules {
		if _, dup := seen[r.label]; dup {
			continue
		}
		if anyImportMatches(modules, r.fragment) {
			seen[r.label] = struct{}{}
			themes = append(themes, model.Theme(r.label))
		}
	}
	return themes
}

// anyImportMatches reports whether any module imports a reference whose
// dotted head matches the fragment. "django.db" matches the fragment
// "django.db" exactly and the fragment "django" by head.
func anyImportMatches(modules []*ast.Module, fragment string) bool {
	for _, m := range modules {
		if m == nil {
			continue
		}
		for _, imp := range m.Imports {
			if importMatches(imp, fragment) {
				return true
			}
		}
	}
	return false
}

func importMatches(imp, fragment string) bool {
	if imp == fragment {
		return true
	}
	return strings.HasPrefix(imp, fragment+".")
}
