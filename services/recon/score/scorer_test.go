// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package score

import (
	"math"
	"testing"

	"github.com/AleutianAI/AleutianRecon/services/recon/ast"
	"github.com/AleutianAI/AleutianRecon/services/recon/config"
	"github.com/AleutianAI/AleutianRecon/services/recon/patterns"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestScore_Undocumented(t *testing.T) {
	s := NewScorer(config.Default().Scoring)
	sym := &ast.Symbol{Name: "Bare", Methods: []ast.Method{{Name: "run"}}}
	if got := s.Score("m", sym, nil); got != 0 {
		t.Errorf("score = %v, want 0", got)
	}
}

func TestScore_DocPresenceAndLengthBonus(t *testing.T) {
	s := NewScorer(config.Default().Scoring)

	t.Run("short doc", func(t *testing.T) {
		sym := &ast.Symbol{Name: "A", DocComment: "Short."}
		if got := s.Score("m", sym, nil); !almostEqual(got, 0.35) {
			t.Errorf("score = %v, want 0.35", got)
		}
	})

	t.Run("substantial doc", func(t *testing.T) {
		sym := &ast.Symbol{Name: "B", DocComment: "This docstring is long enough to earn the bonus."}
		if got := s.Score("m", sym, nil); !almostEqual(got, 0.45) {
			t.Errorf("score = %v, want 0.45", got)
		}
	})
}

func TestScore_MethodEvidenceFraction(t *testing.T) {
	s := NewScorer(config.Default().Scoring)

	documented := ast.Method{
		Name:       "create_item",
		DocComment: "Creates an item.",
		Params:     []ast.Param{{Name: "self"}, {Name: "name", Annotation: "str"}},
	}
	bare := ast.Method{Name: "helper"}

	// Half of the methods are evidenced: 0.40 * 0.5 = 0.20.
	sym := &ast.Symbol{Name: "C", Methods: []ast.Method{documented, bare}}
	if got := s.Score("m", sym, nil); !almostEqual(got, 0.20) {
		t.Errorf("score = %v, want 0.20", got)
	}

	// Documentation without annotations earns nothing on this term.
	sym = &ast.Symbol{Name: "D", Methods: []ast.Method{{Name: "x", DocComment: "Documented."}}}
	if got := s.Score("m", sym, nil); got != 0 {
		t.Errorf("score = %v, want 0", got)
	}
}

func TestScore_PatternBoosts(t *testing.T) {
	s := NewScorer(config.Default().Scoring)
	sym := &ast.Symbol{Name: "E"}

	t.Run("one boost per kind", func(t *testing.T) {
		findings := []patterns.Finding{
			{Kind: patterns.KindAPIRoute, Module: "m", Symbol: "E", Strength: 1},
			{Kind: patterns.KindAPIRoute, Module: "m", Symbol: "E", Strength: 0.5},
			{Kind: patterns.KindAPIRoute, Module: "m", Symbol: "E", Strength: 1},
		}
		// The strongest apiRoute finding applies once: 0.15.
		if got := s.Score("m", sym, findings); !almostEqual(got, 0.15) {
			t.Errorf("score = %v, want 0.15", got)
		}
	})

	t.Run("strength scales the boost", func(t *testing.T) {
		findings := []patterns.Finding{
			{Kind: patterns.KindCRUDOperation, Module: "m", Symbol: "E", Strength: 0.5},
		}
		if got := s.Score("m", sym, findings); !almostEqual(got, 0.05) {
			t.Errorf("score = %v, want 0.05", got)
		}
	})

	t.Run("kinds stack", func(t *testing.T) {
		findings := []patterns.Finding{
			{Kind: patterns.KindAPIRoute, Module: "m", Symbol: "E", Strength: 1},
			{Kind: patterns.KindCRUDOperation, Module: "m", Symbol: "E", Strength: 1},
			{Kind: patterns.KindPersistentModel, Module: "m", Symbol: "E", Strength: 1},
		}
		if got := s.Score("m", sym, findings); !almostEqual(got, 0.35) {
			t.Errorf("score = %v, want 0.35", got)
		}
	})

	t.Run("other symbols ignored", func(t *testing.T) {
		findings := []patterns.Finding{
			{Kind: patterns.KindAPIRoute, Module: "m", Symbol: "NotE", Strength: 1},
		}
		if got := s.Score("m", sym, findings); got != 0 {
			t.Errorf("score = %v, want 0", got)
		}
	})

	t.Run("same name in another module ignored", func(t *testing.T) {
		findings := []patterns.Finding{
			{Kind: patterns.KindPersistentModel, Module: "other.models", Symbol: "E", Strength: 1},
		}
		if got := s.Score("m", sym, findings); got != 0 {
			t.Errorf("score = %v, want 0: finding for other.models.E leaked onto m.E", got)
		}
	})

	t.Run("strength clamped", func(t *testing.T) {
		findings := []patterns.Finding{
			{Kind: patterns.KindAPIRoute, Module: "m", Symbol: "E", Strength: 5},
		}
		if got := s.Score("m", sym, findings); !almostEqual(got, 0.15) {
			t.Errorf("score = %v, want 0.15", got)
		}
	})
}

func TestScore_ClampedToOne(t *testing.T) {
	weights := config.Default().Scoring
	weights.SymbolDocWeight = 0.9
	weights.DocLengthBonus = 0.9
	s := NewScorer(weights)

	sym := &ast.Symbol{Name: "F", DocComment: "A very well documented class with plenty of text."}
	if got := s.Score("m", sym, nil); got != 1 {
		t.Errorf("score = %v, want 1", got)
	}
}

func TestScore_NilSymbol(t *testing.T) {
	s := NewScorer(config.Default().Scoring)
	if got := s.Score("m", nil, nil); got != 0 {
		t.Errorf("score = %v, want 0", got)
	}
}

func TestScore_Deterministic(t *testing.T) {
	s := NewScorer(config.Default().Scoring)
	sym := &ast.Symbol{
		Name:       "G",
		DocComment: "Stable documentation text for the determinism check.",
		Methods: []ast.Method{
			{Name: "get_g", DocComment: "Doc.", Returns: "int"},
			{Name: "set_g"},
		},
	}
	findings := []patterns.Finding{
		{Kind: patterns.KindCRUDOperation, Module: "m", Symbol: "G", Strength: 0.5},
	}

	first := s.Score("m", sym, findings)
	for i := 0; i < 10; i++ {
		if got := s.Score("m", sym, findings); got != first {
			t.Fatalf("iteration %d: score %v != %v", i, got, first)
		}
	}
}
