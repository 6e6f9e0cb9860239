// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import (
	"strings"
	"testing"

	"github.com/AleutianAI/AleutianRecon/services/recon/ast"
	"github.com/AleutianAI/AleutianRecon/services/recon/model"
)

func mod(key string, index int, imports ...string) *ast.Module {
	return &ast.Module{Key: key, Path: key + ".py", Index: index, Imports: imports}
}

// pkgMod builds a package initializer module: key "pkg.sub" is backed by
// "pkg/sub/__init__.py".
func pkgMod(key string, index int, imports ...string) *ast.Module {
	path := strings.ReplaceAll(key, ".", "/") + "/__init__.py"
	return &ast.Module{Key: key, Path: path, Index: index, Imports: imports}
}

func TestBuild_SimpleEdge(t *testing.T) {
	g := Build([]*ast.Module{
		mod("a", 0),
		mod("b", 1, "a"),
	})

	edges := g.Edges()
	if len(edges) != 1 {
		t.Fatalf("expected 1 edge, got %v", edges)
	}
	if edges[0] != (model.DependencyEdge{From: "b", To: "a"}) {
		t.Errorf("edge = %+v", edges[0])
	}
	if !g.DependsOn("b", "a") {
		t.Error("DependsOn(b, a) should be true")
	}
	if g.DependsOn("a", "b") {
		t.Error("DependsOn(a, b) should be false")
	}
}

func TestBuild_ExternalImportsIgnored(t *testing.T) {
	g := Build([]*ast.Module{
		mod("a", 0, "os", "requests", "sqlalchemy.orm"),
	})
	if len(g.Edges()) != 0 {
		t.Errorf("external imports must not create edges: %v", g.Edges())
	}
}

func TestBuild_NoSelfLoops(t *testing.T) {
	g := Build([]*ast.Module{
		mod("a", 0, "a"),
		mod("pkg.b", 1, "pkg.b.Thing"),
	})
	if len(g.Edges()) != 0 {
		t.Errorf("self imports must not create edges: %v", g.Edges())
	}
}

func TestBuild_DuplicateImportsCollapse(t *testing.T) {
	g := Build([]*ast.Module{
		mod("a", 0),
		mod("b", 1, "a", "a", "a.Thing"),
	})
	if len(g.Edges()) != 1 {
		t.Errorf("expected one deduplicated edge, got %v", g.Edges())
	}
}

func TestBuild_DottedPrefixResolution(t *testing.T) {
	g := Build([]*ast.Module{
		mod("pkg.util", 0),
		mod("main", 1, "pkg.util.Helper"),
	})
	edges := g.Edges()
	if len(edges) != 1 || edges[0].To != "pkg.util" {
		t.Errorf("expected main → pkg.util, got %v", edges)
	}
}

func TestBuild_RelativeImports(t *testing.T) {
	t.Run("single dot sibling", func(t *testing.T) {
		g := Build([]*ast.Module{
			mod("pkg.a", 0),
			mod("pkg.b", 1, ".a"),
		})
		if !g.DependsOn("pkg.b", "pkg.a") {
			t.Errorf("expected pkg.b → pkg.a, got %v", g.Edges())
		}
	})

	t.Run("double dot parent package", func(t *testing.T) {
		g := Build([]*ast.Module{
			mod("common.base", 0),
			mod("app.sub.worker", 1, "..common.base"),
		})
		// Two dots from app.sub.worker land in "app"; app.common.base does
		// not exist, so no edge.
		if len(g.Edges()) != 0 {
			t.Errorf("unresolvable relative import created an edge: %v", g.Edges())
		}
	})

	t.Run("double dot resolves within package", func(t *testing.T) {
		g := Build([]*ast.Module{
			mod("app.common.base", 0),
			mod("app.sub.worker", 1, "..common.base"),
		})
		if !g.DependsOn("app.sub.worker", "app.common.base") {
			t.Errorf("expected app.sub.worker → app.common.base, got %v", g.Edges())
		}
	})

	t.Run("single dot inside package initializer", func(t *testing.T) {
		g := Build([]*ast.Module{
			pkgMod("pkg", 0, ".sibling"),
			mod("pkg.sibling", 1),
		})
		if !g.DependsOn("pkg", "pkg.sibling") {
			t.Errorf("expected pkg → pkg.sibling, got %v", g.Edges())
		}
	})

	t.Run("double dot inside package initializer", func(t *testing.T) {
		g := Build([]*ast.Module{
			mod("app.base", 0),
			pkgMod("app.sub", 1, "..base"),
		})
		if !g.DependsOn("app.sub", "app.base") {
			t.Errorf("expected app.sub → app.base, got %v", g.Edges())
		}
	})

	t.Run("from dot import name", func(t *testing.T) {
		g := Build([]*ast.Module{
			mod("pkg", 0),
			mod("pkg.a", 1),
			mod("pkg.b", 2, "."),
		})
		if !g.DependsOn("pkg.b", "pkg") {
			t.Errorf("expected pkg.b → pkg, got %v", g.Edges())
		}
	})
}

func TestBuild_EdgeOrderIsDeterministic(t *testing.T) {
	modules := []*ast.Module{
		mod("a", 0, "c", "b"),
		mod("b", 1, "a"),
		mod("c", 2),
	}
	want := []model.DependencyEdge{
		{From: "a", To: "b"},
		{From: "a", To: "c"},
		{From: "b", To: "a"},
	}

	for run := 0; run < 5; run++ {
		edges := Build(modules).Edges()
		if len(edges) != len(want) {
			t.Fatalf("run %d: edges = %v", run, edges)
		}
		for i := range want {
			if edges[i] != want[i] {
				t.Errorf("run %d: edge %d = %+v, want %+v", run, i, edges[i], want[i])
			}
		}
	}
}

func TestBuild_NilModulesSkipped(t *testing.T) {
	g := Build([]*ast.Module{nil, mod("a", 1), nil})
	if len(g.Edges()) != 0 {
		t.Errorf("edges = %v", g.Edges())
	}
}
