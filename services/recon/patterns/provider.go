// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package patterns defines the optional framework-aware pattern matcher
// that supplies extra confidence hints to scoring.
//
// The provider is modeled as an injectable capability with a no-op default:
// availability shows up in the analyzer's plugin status report instead of
// branching logic scattered through the scorer.
package patterns

import (
	"context"
	"strings"

	"github.com/AleutianAI/AleutianRecon/services/recon/ast"
	"github.com/AleutianAI/AleutianRecon/services/recon/story"
)

// Kind identifies a finding type. Each kind boosts a symbol's confidence at
// most once.
type Kind string

const (
	// KindAPIRoute marks a detected API route binding (route decorator).
	KindAPIRoute Kind = "apiRoute"

	// KindCRUDOperation marks a detected CRUD-style operation set.
	KindCRUDOperation Kind = "crudOperation"

	// KindPersistentModel marks a detected persistent-model declaration
	// (ORM base class).
	KindPersistentModel Kind = "persistentModel"
)

// Finding is one typed hint tied to a symbol.
type Finding struct {
	Kind Kind

	// Module is the key of the module the finding was emitted for. Class
	// names repeat across modules, so a finding is only meaningful for the
	// (module, symbol) pair.
	Module string

	// Symbol is the name of the symbol the finding refers to.
	Symbol string

	// Strength scales the boost, in [0,1].
	Strength float64
}

// Provider supplies zero or more findings for a parsed module.
//
// Implementations must never panic or return an error: a provider that
// cannot analyze a module returns no findings. The analyzer additionally
// bounds each call with a timeout and degrades to AST-only signals.
type Provider interface {
	// Name identifies the provider in the plugin status report.
	Name() string

	// Findings returns hints for the module's symbols.
	Findings(ctx context.Context, mod *ast.Module) []Finding
}

// Noop is the default provider: always available, never finds anything.
type Noop struct{}

func (Noop) Name() string { return "noop" }

func (Noop) Findings(context.Context, *ast.Module) []Finding { return nil }

// routeDecoratorFragments identify route-binding decorators across the
// common Python web frameworks (Flask/FastAPI/Django REST styles).
var routeDecoratorFragments = []string{
	".route", ".get", ".post", ".put", ".patch", ".delete", "api_view", "action",
}

// ormBaseFragments identify persistent-model base classes.
var ormBaseFragments = []string{
	"db.Model", "models.Model", "Base", "DeclarativeBase", "Document", "EmbeddedDocument",
}

// Heuristic is the built-in pattern matcher.
//
// Detection is pure text matching over the already-extracted symbol table;
// it reads no files and is safe for concurrent use.
type Heuristic struct{}

func (Heuristic) Name() string { return "framework-heuristics" }

// Findings implements Provider.
func (Heuristic) Findings(_ context.Context, mod *ast.Module) []Finding {
	if mod == nil {
		return nil
	}

	var findings []Finding
	for i := range mod.Symbols {
		sym := &mod.Symbols[i]

		if strength := routeStrength(sym); strength > 0 {
			findings = append(findings, Finding{Kind: KindAPIRoute, Module: mod.Key, Symbol: sym.Name, Strength: strength})
		}
		if strength := crudStrength(sym); strength > 0 {
			findings = append(findings, Finding{Kind: KindCRUDOperation, Module: mod.Key, Symbol: sym.Name, Strength: strength})
		}
		if isPersistentModel(sym) {
			findings = append(findings, Finding{Kind: KindPersistentModel, Module: mod.Key, Symbol: sym.Name, Strength: 1})
		}
	}
	return findings
}

// routeStrength returns the fraction of methods carrying a route-binding
// decorator.
func routeStrength(sym *ast.Symbol) float64 {
	if len(sym.Methods) == 0 {
		return 0
	}
	routed := 0
	for i := range sym.Methods {
		if hasRouteDecorator(sym.Methods[i].Decorators) {
			routed++
		}
	}
	if routed == 0 {
		return 0
	}
	return float64(routed) / float64(len(sym.Methods))
}

func hasRouteDecorator(decorators []string) bool {
	for _, d := range decorators {
		for _, fragment := range routeDecoratorFragments {
			if strings.HasSuffix(d, fragment) || d == strings.TrimPrefix(fragment, ".") {
				return true
			}
		}
	}
	return false
}

// crudStrength reports how much of the CRUD category set the symbol's
// methods cover. Fewer than two covered categories is not considered an
// operation set.
func crudStrength(sym *ast.Symbol) float64 {
	covered := make(map[story.Category]struct{})
	for i := range sym.Methods {
		c := story.Classify(sym.Methods[i].Name)
		if c != story.CategoryOther {
			covered[c] = struct{}{}
		}
	}
	if len(covered) < 2 {
		return 0
	}
	return float64(len(covered)) / 4
}

func isPersistentModel(sym *ast.Symbol) bool {
	for _, base := range sym.Bases {
		for _, fragment := range ormBaseFragments {
			if base == fragment || strings.HasSuffix(base, "."+fragment) {
				return true
			}
		}
	}
	return false
}
