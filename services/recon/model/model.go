// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package model defines the capability model produced by a Recon analysis
// run: features anchored to source symbols, user-facing stories, project
// themes, and the module dependency edge set.
//
// All types in this package are plain values. A model is constructed once
// inside a single analysis run and never mutated afterward; callers that
// need a serialized form marshal it themselves.
package model

import (
	"fmt"
	"strings"
)

// KeyFormat selects how Feature and Story keys are generated.
type KeyFormat string

const (
	// KeyFromSymbolName derives keys by slugging the anchoring symbol or
	// story title ("UserAccount" → "user-account").
	KeyFromSymbolName KeyFormat = "derive-from-symbol-name"

	// KeySequential assigns counter-based keys (FEAT-001, ST-004) in
	// discovery order.
	KeySequential KeyFormat = "sequential-counter"
)

// Valid reports whether f is a recognized key format.
func (f KeyFormat) Valid() bool {
	return f == KeyFromSymbolName || f == KeySequential
}

// PointScale is the fixed ordinal set used for story_points and
// value_points. Estimates are snapped to the nearest member and are never 0
// and never outside the set.
var PointScale = []int{1, 2, 3, 5, 8, 13, 21, 34, 55, 89}

// SnapPoints snaps a raw estimate to the nearest value in PointScale.
// Ties resolve to the smaller member so snapping is deterministic.
func SnapPoints(raw int) int {
	if raw <= PointScale[0] {
		return PointScale[0]
	}
	best := PointScale[0]
	bestDist := raw - best
	for _, p := range PointScale[1:] {
		dist := raw - p
		if dist < 0 {
			dist = -dist
		}
		if dist < bestDist {
			best = p
			bestDist = dist
		}
	}
	return best
}

// OnPointScale reports whether v is a member of PointScale.
func OnPointScale(v int) bool {
	for _, p := range PointScale {
		if v == p {
			return true
		}
	}
	return false
}

// ClampConfidence clamps a confidence value to [0,1].
func ClampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// Story is a user-facing unit of behavior anchored to one or more methods of
// a feature's symbol.
//
// Invariants: Tasks has at least one entry and every task names a method
// that exists on the anchoring symbol; StoryPoints and ValuePoints are
// members of PointScale; Title has the shape "As a <role>, I can ...".
type Story struct {
	Key         string   `yaml:"key"`
	Title       string   `yaml:"title"`
	Acceptance  []string `yaml:"acceptance"`
	Tasks       []string `yaml:"tasks"`
	StoryPoints int      `yaml:"story_points"`
	ValuePoints int      `yaml:"value_points"`
	Confidence  float64  `yaml:"confidence"`
}

// Feature is a reverse-engineered capability anchored 1:1 to a source
// symbol. Draft marks features whose evidence is thin (undocumented symbol
// or low confidence) so reviewers know to treat them as provisional.
type Feature struct {
	Key        string   `yaml:"key"`
	Title      string   `yaml:"title"`
	Outcomes   []string `yaml:"outcomes"`
	Acceptance []string `yaml:"acceptance"`
	Stories    []Story  `yaml:"stories"`
	Confidence float64  `yaml:"confidence"`
	Draft      bool     `yaml:"draft"`

	// SourceModule and SourceSymbol identify the anchoring declaration.
	SourceModule string `yaml:"source_module"`
	SourceSymbol string `yaml:"source_symbol"`
}

// Theme is a deduplicated label describing a project-wide capability
// category inferred from the aggregate import surface ("Async", "API",
// "Database", ...).
type Theme string

// DependencyEdge is a directed edge between two scanned modules. An edge
// exists only when the target import resolved to another module inside the
// scan; external imports never become edges.
type DependencyEdge struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// CapabilityModel is the aggregate root returned by one analysis run.
//
// Features are ordered by the discovery index of their source module (then
// by in-file declaration order), never by completion time, so two runs over
// an unchanged tree produce identical output.
type CapabilityModel struct {
	Features []Feature        `yaml:"features"`
	Themes   []Theme          `yaml:"themes"`
	Edges    []DependencyEdge `yaml:"dependency_edges"`
}

// Slug converts a symbol or title fragment to a lowercase hyphenated key
// component ("UserAccount" → "user-account", "create_order" →
// "create-order").
func Slug(s string) string {
	words := SplitWords(s)
	for i, w := range words {
		words[i] = strings.ToLower(w)
	}
	return strings.Join(words, "-")
}

// SequentialKey formats a counter-based key with a three-digit suffix
// (prefix "FEAT", n 7 → "FEAT-007").
func SequentialKey(prefix string, n int) string {
	return fmt.Sprintf("%s-%03d", prefix, n)
}

// SplitWords splits an identifier into its component words, handling both
// snake_case and CamelCase ("create_user" → [create user], "HTTPServer" →
// [HTTP Server]).
func SplitWords(s string) []string {
	var words []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			words = append(words, current.String())
			current.Reset()
		}
	}

	runes := []rune(s)
	for i, r := range runes {
		switch {
		case r == '_' || r == '-' || r == ' ' || r == '.':
			flush()
		case r >= 'A' && r <= 'Z':
			// Boundary before an uppercase run start or a lower→upper
			// transition (HTTPServer → HTTP | Server).
			if i > 0 {
				prev := runes[i-1]
				next := rune(0)
				if i+1 < len(runes) {
					next = runes[i+1]
				}
				prevUpper := prev >= 'A' && prev <= 'Z'
				nextLower := next >= 'a' && next <= 'z'
				if !prevUpper || nextLower {
					flush()
				}
			}
			current.WriteRune(r)
		default:
			current.WriteRune(r)
		}
	}
	flush()
	return words
}

// Humanize converts an identifier into a lowercase phrase
// ("create_user_account" → "create user account").
func Humanize(s string) string {
	words := SplitWords(s)
	for i, w := range words {
		words[i] = strings.ToLower(w)
	}
	return strings.Join(words, " ")
}
