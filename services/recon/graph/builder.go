// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package graph builds the directed module-dependency graph from each
// module's unresolved import list.
//
// Only imports that resolve to another scanned module become edges;
// external-library imports are never added as graph nodes, but remain on
// the Module for theme detection.
package graph

import (
	"sort"
	"strings"

	"github.com/AleutianAI/AleutianRecon/services/recon/ast"
	"github.com/AleutianAI/AleutianRecon/services/recon/model"
)

// Graph is the directed module-dependency graph over one scan.
//
// Thread Safety: safe for concurrent reads after Build returns.
type Graph struct {
	edges []model.DependencyEdge

	// out maps a module key to the set of module keys it depends on.
	out map[string]map[string]struct{}
}

// Build constructs the dependency graph from the merged module set.
//
// Description:
//
//	For each module's unresolved imports, attempts resolution against the
//	scanned module keys: exact match, package __init__ match, and
//	longest-dotted-prefix match (an import of "pkg.mod.Thing" resolves to
//	module "pkg.mod"). Relative imports resolve against the importing
//	module's package. Self-loops are dropped and duplicate edges collapse.
//	Edges are ordered by (importing module discovery index, imported module
//	discovery index) so the result is identical across runs.
func Build(modules []*ast.Module) *Graph {
	index := make(map[string]*ast.Module, len(modules))
	for _, m := range modules {
		if m != nil {
			index[m.Key] = m
		}
	}

	g := &Graph{out: make(map[string]map[string]struct{})}

	type edgeKey struct{ from, to string }
	seen := make(map[edgeKey]struct{})
	var ordered []edgeKey
	orderOf := make(map[string]int, len(modules))
	for _, m := range modules {
		if m != nil {
			orderOf[m.Key] = m.Index
		}
	}

	for _, m := range modules {
		if m == nil {
			continue
		}
		for _, imp := range m.Imports {
			target := resolve(imp, m.Key, m.IsPackage(), index)
			if target == "" || target == m.Key {
				continue
			}
			key := edgeKey{from: m.Key, to: target}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			ordered = append(ordered, key)

			if g.out[m.Key] == nil {
				g.out[m.Key] = make(map[string]struct{})
			}
			g.out[m.Key][target] = struct{}{}
		}
	}

	sort.SliceStable(ordered, func(i, j int) bool {
		if orderOf[ordered[i].from] != orderOf[ordered[j].from] {
			return orderOf[ordered[i].from] < orderOf[ordered[j].from]
		}
		return orderOf[ordered[i].to] < orderOf[ordered[j].to]
	})

	g.edges = make([]model.DependencyEdge, 0, len(ordered))
	for _, key := range ordered {
		g.edges = append(g.edges, model.DependencyEdge{From: key.from, To: key.to})
	}

	return g
}

// Edges returns the edge set in canonical order. The returned slice is
// shared; callers must not mutate it.
func (g *Graph) Edges() []model.DependencyEdge {
	return g.edges
}

// DependsOn reports whether module from has an edge to module to.
func (g *Graph) DependsOn(from, to string) bool {
	targets, ok := g.out[from]
	if !ok {
		return false
	}
	_, ok = targets[to]
	return ok
}

// resolve maps an unresolved import reference to a scanned module key, or
// "" when the import is external.
func resolve(imp, fromKey string, fromPackage bool, index map[string]*ast.Module) string {
	if imp == "" {
		return ""
	}

	if strings.HasPrefix(imp, ".") {
		return resolveRelative(imp, fromKey, fromPackage, index)
	}

	// Exact module match.
	if _, ok := index[imp]; ok {
		return imp
	}

	// Longest dotted prefix: "pkg.mod.Thing" → "pkg.mod".
	candidate := imp
	for {
		dot := strings.LastIndexByte(candidate, '.')
		if dot <= 0 {
			return ""
		}
		candidate = candidate[:dot]
		if _, ok := index[candidate]; ok {
			return candidate
		}
	}
}

// resolveRelative resolves leading-dot imports against the importing
// module's package. One dot is the current package, each additional dot
// walks one package up.
func resolveRelative(imp, fromKey string, fromPackage bool, index map[string]*ast.Module) string {
	dots := 0
	for dots < len(imp) && imp[dots] == '.' {
		dots++
	}
	rest := imp[dots:]

	var segments []string
	if fromKey != "" {
		segments = strings.Split(fromKey, ".")
	}
	// Drop the module's own name, then one more segment per extra dot. A
	// package initializer is its own containing package, so its key keeps
	// one segment more: "from . import x" in pkg/__init__.py resolves
	// against pkg, not pkg's parent.
	drop := dots
	if fromPackage {
		drop--
	}
	if drop < 0 || drop > len(segments) {
		return ""
	}
	base := segments[:len(segments)-drop]

	var candidate string
	switch {
	case rest == "" && len(base) > 0:
		candidate = strings.Join(base, ".")
	case rest == "":
		return ""
	case len(base) > 0:
		candidate = strings.Join(base, ".") + "." + rest
	default:
		candidate = rest
	}

	if _, ok := index[candidate]; ok {
		return candidate
	}
	// "from . import x" style: the name may itself be a module in the
	// package.
	dot := strings.LastIndexByte(candidate, '.')
	if dot > 0 {
		if _, ok := index[candidate[:dot]]; ok {
			return candidate[:dot]
		}
	}
	return ""
}
