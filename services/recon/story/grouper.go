// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package story partitions a symbol's methods into user-facing stories and
// normalizes size estimates onto the fixed point scale.
//
// Classification uses an explicit ordered rule table evaluated top to
// bottom with first-match-wins semantics. Nothing here iterates a map, so
// grouping is reproducible across runs and platforms.
package story

import (
	"strings"

	"github.com/AleutianAI/AleutianRecon/services/recon/ast"
	"github.com/AleutianAI/AleutianRecon/services/recon/model"
)

// Category is a CRUD-style method category.
type Category string

const (
	CategoryCreate Category = "create"
	CategoryRead   Category = "read"
	CategoryUpdate Category = "update"
	CategoryDelete Category = "delete"
	CategoryOther  Category = "other"
)

// crudRule maps a keyword set to a category. Rules are evaluated in slice
// order; the verb is the phrase used in story titles.
type crudRule struct {
	category Category
	verb     string
	keywords []string
}

// crudRules is the ordered classification table, evaluated top to bottom.
// Order matters: a method named "create_or_get" classifies as create
// because the create rule is checked first.
var crudRules = []crudRule{
	{CategoryCreate, "create", []string{"create", "add", "insert", "new", "register", "post", "make"}},
	{CategoryRead, "view", []string{"get", "read", "list", "fetch", "find", "show", "search", "retrieve", "query", "load"}},
	{CategoryUpdate, "update", []string{"update", "set", "edit", "modify", "patch", "rename", "toggle", "assign"}},
	{CategoryDelete, "delete", []string{"delete", "remove", "destroy", "clear", "drop", "purge"}},
}

// crudCategories is the emission order for CRUD stories.
var crudCategories = []Category{CategoryCreate, CategoryRead, CategoryUpdate, CategoryDelete}

// Classify returns the CRUD category of a method name, or CategoryOther.
//
// The name is split into lowercase words and the rule table is evaluated
// top to bottom; the first rule with a keyword among the name's words
// wins.
func Classify(name string) Category {
	words := model.SplitWords(name)
	lower := make([]string, len(words))
	for i, w := range words {
		lower[i] = strings.ToLower(w)
	}
	for _, rule := range crudRules {
		for _, kw := range rule.keywords {
			for _, w := range lower {
				if w == kw {
					return rule.category
				}
			}
		}
	}
	return CategoryOther
}

// Verb returns the title phrase for a CRUD category.
func Verb(c Category) string {
	for _, rule := range crudRules {
		if rule.category == c {
			return rule.verb
		}
	}
	return ""
}

// resourceSuffixes are stripped from symbol names before deriving the
// resource phrase ("UserAccountManager" → "user account").
var resourceSuffixes = []string{
	"Manager", "Service", "Controller", "Handler", "Repository", "Store",
	"Provider", "Client", "Resource", "View", "Api", "API",
}

// ResourceName derives the human resource phrase from a symbol name.
func ResourceName(symbol string) string {
	name := symbol
	for _, suffix := range resourceSuffixes {
		if strings.HasSuffix(name, suffix) && len(name) > len(suffix) {
			name = strings.TrimSuffix(name, suffix)
			break
		}
	}
	return model.Humanize(name)
}

// KeyFunc generates a story key from its sequence number and title.
type KeyFunc func(seq int, title string) string

// Group partitions a symbol's methods into stories.
//
// Description:
//
//	Every CRUD category with at least one matching method yields exactly
//	one story titled "As a user, I can <verb> <resource>". Methods that
//	match no CRUD category each become their own story titled "As a user,
//	I can <humanized method name>". Tasks are the contributing method
//	names, so every story carries at least one task referencing an
//	existing method. Points are derived from parameter count, async
//	markers, and documentation completeness, snapped to the point scale.
//
// Inputs:
//   - sym: The anchoring symbol. Must not be nil.
//   - confidence: The symbol's fused confidence, copied onto each story.
//   - key: Story key generator. Sequence numbers restart per symbol for
//     derive-from-symbol-name keys and are global counters for sequential
//     keys; the caller decides by closure.
//
// Outputs:
//   - []model.Story: Stories in emission order: CRUD categories in fixed
//     create/read/update/delete order, then unmatched methods in
//     declaration order.
func Group(sym *ast.Symbol, confidence float64, key KeyFunc) []model.Story {
	byCategory := make(map[Category][]*ast.Method)
	var others []*ast.Method

	for i := range sym.Methods {
		m := &sym.Methods[i]
		c := Classify(m.Name)
		if c == CategoryOther {
			others = append(others, m)
			continue
		}
		byCategory[c] = append(byCategory[c], m)
	}

	resource := ResourceName(sym.Name)
	var stories []model.Story
	seq := 0

	for _, c := range crudCategories {
		methods := byCategory[c]
		if len(methods) == 0 {
			continue
		}
		seq++
		title := "As a user, I can " + Verb(c) + " " + resource
		stories = append(stories, buildStory(key(seq, title), title, methods, c, confidence))
	}

	for _, m := range others {
		seq++
		title := "As a user, I can " + model.Humanize(m.Name)
		stories = append(stories, buildStory(key(seq, title), title, []*ast.Method{m}, CategoryOther, confidence))
	}

	return stories
}

func buildStory(key, title string, methods []*ast.Method, c Category, confidence float64) model.Story {
	story := model.Story{
		Key:        key,
		Title:      title,
		Confidence: model.ClampConfidence(confidence),
	}

	for _, m := range methods {
		story.Tasks = append(story.Tasks, m.Name)
		story.Acceptance = append(story.Acceptance, acceptanceFor(m))
	}

	story.StoryPoints = model.SnapPoints(storyPointsRaw(methods))
	story.ValuePoints = model.SnapPoints(valuePointsRaw(methods, c))
	return story
}

// acceptanceFor derives one acceptance entry from a method's documentation
// or, when undocumented, from its signature.
func acceptanceFor(m *ast.Method) string {
	if sentence := firstSentence(m.DocComment); sentence != "" {
		return sentence
	}
	phrase := "Calling " + m.Name + " completes without error"
	if m.Async {
		phrase = "Awaiting " + m.Name + " completes without error"
	}
	return phrase
}

// firstSentence returns the first sentence of a docstring, collapsed to one
// line, or "".
func firstSentence(doc string) string {
	doc = strings.Join(strings.Fields(doc), " ")
	if doc == "" {
		return ""
	}
	if idx := strings.IndexAny(doc, ".!?"); idx >= 0 {
		return doc[:idx+1]
	}
	return doc
}

// storyPointsRaw estimates effort: one point of base cost per story, one
// per declared parameter beyond self/cls, two for async coordination, one
// of uncertainty for each undocumented method.
func storyPointsRaw(methods []*ast.Method) int {
	raw := 1
	for _, m := range methods {
		for _, p := range m.Params {
			if p.Name == "self" || p.Name == "cls" {
				continue
			}
			raw++
		}
		if m.Async {
			raw += 2
		}
		if m.DocComment == "" {
			raw++
		}
	}
	return raw
}

// valuePointsRaw estimates user value from the category plus a bonus for
// well-evidenced (documented and annotated) behavior.
func valuePointsRaw(methods []*ast.Method, c Category) int {
	raw := 1
	switch c {
	case CategoryCreate, CategoryUpdate:
		raw = 3
	case CategoryRead, CategoryDelete:
		raw = 2
	}
	for _, m := range methods {
		if m.DocComment != "" && m.HasAnnotations() {
			raw++
		}
	}
	return raw
}
