// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package score fuses documentation and type-hint signals with optional
// pattern findings into a [0,1] confidence per symbol.
package score

import (
	"strings"

	"github.com/AleutianAI/AleutianRecon/services/recon/ast"
	"github.com/AleutianAI/AleutianRecon/services/recon/config"
	"github.com/AleutianAI/AleutianRecon/services/recon/model"
	"github.com/AleutianAI/AleutianRecon/services/recon/patterns"
)

// Scorer computes symbol confidence using configured weights.
//
// Thread Safety: safe for concurrent use after construction.
type Scorer struct {
	weights config.Scoring
}

// NewScorer creates a Scorer with the given weights.
func NewScorer(weights config.Scoring) *Scorer {
	return &Scorer{weights: weights}
}

// Score fuses the symbol's AST signals with the pattern findings that
// reference it. Findings are matched on the (module, symbol) pair: class
// names repeat across modules and a finding never leaks onto a same-named
// symbol elsewhere.
//
// The result is a weighted sum of:
//   - presence of the symbol's own docstring, with a bonus when it is
//     non-trivial in length,
//   - the fraction of methods carrying both a docstring and declared type
//     annotations,
//   - additive pattern boosts, at most one per finding kind, scaled by the
//     finding's strength,
//
// clamped to [0,1]. For a fixed input the score is a constant, which is
// what makes threshold filtering monotonic: raising the threshold can only
// shrink the surviving set.
func (s *Scorer) Score(moduleKey string, sym *ast.Symbol, findings []patterns.Finding) float64 {
	if sym == nil {
		return 0
	}

	var score float64

	doc := strings.TrimSpace(sym.DocComment)
	if doc != "" {
		score += s.weights.SymbolDocWeight
		if len(doc) >= s.weights.MinDocLength {
			score += s.weights.DocLengthBonus
		}
	}

	if len(sym.Methods) > 0 {
		evidenced := 0
		for i := range sym.Methods {
			m := &sym.Methods[i]
			if m.DocComment != "" && m.HasAnnotations() {
				evidenced++
			}
		}
		score += s.weights.MethodSignalWeight * float64(evidenced) / float64(len(sym.Methods))
	}

	// One boost per kind: the strongest finding of each kind wins.
	strongest := make(map[patterns.Kind]float64)
	for _, f := range findings {
		if f.Module != moduleKey || f.Symbol != sym.Name {
			continue
		}
		strength := f.Strength
		if strength < 0 {
			strength = 0
		}
		if strength > 1 {
			strength = 1
		}
		if strength > strongest[f.Kind] {
			strongest[f.Kind] = strength
		}
	}
	for _, kind := range []patterns.Kind{patterns.KindAPIRoute, patterns.KindCRUDOperation, patterns.KindPersistentModel} {
		strength, ok := strongest[kind]
		if !ok {
			continue
		}
		score += s.weights.Boosts[string(kind)] * strength
	}

	return model.ClampConfidence(score)
}
