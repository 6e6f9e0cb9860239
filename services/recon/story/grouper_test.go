// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package story

import (
	"fmt"
	"strings"
	"testing"

	"github.com/AleutianAI/AleutianRecon/services/recon/ast"
	"github.com/AleutianAI/AleutianRecon/services/recon/model"
)

func seqKey(seq int, title string) string {
	return fmt.Sprintf("ST-%03d", seq)
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		want Category
	}{
		{"create_user", CategoryCreate},
		{"addItem", CategoryCreate},
		{"register", CategoryCreate},
		{"get_user", CategoryRead},
		{"list_all", CategoryRead},
		{"fetchRecords", CategoryRead},
		{"update_profile", CategoryUpdate},
		{"set_name", CategoryUpdate},
		{"toggle_active", CategoryUpdate},
		{"delete_user", CategoryDelete},
		{"remove_item", CategoryDelete},
		{"purge_cache", CategoryDelete},
		{"validate", CategoryOther},
		{"run", CategoryOther},
		{"__init__", CategoryOther},
		// Rule order, not word order: create is checked before read.
		{"get_or_create", CategoryCreate},
		{"create_or_get", CategoryCreate},
		// Keywords must match whole words.
		{"regetter", CategoryOther},
	}
	for _, tc := range cases {
		if got := Classify(tc.name); got != tc.want {
			t.Errorf("Classify(%q) = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestResourceName(t *testing.T) {
	cases := []struct {
		symbol string
		want   string
	}{
		{"UserAccountManager", "user account"},
		{"InvoiceService", "invoice"},
		{"OrderRepository", "order"},
		{"PaymentAPI", "payment"},
		{"Order", "order"},
		// A bare suffix is kept as the name itself.
		{"Manager", "manager"},
	}
	for _, tc := range cases {
		if got := ResourceName(tc.symbol); got != tc.want {
			t.Errorf("ResourceName(%q) = %q, want %q", tc.symbol, got, tc.want)
		}
	}
}

func TestGroup_CRUDEmissionOrder(t *testing.T) {
	sym := &ast.Symbol{
		Name: "UserManager",
		Methods: []ast.Method{
			{Name: "delete_user", Params: []ast.Param{{Name: "self"}, {Name: "user_id"}}},
			{Name: "create_user", Params: []ast.Param{{Name: "self"}, {Name: "name"}}},
			{Name: "get_user", Params: []ast.Param{{Name: "self"}, {Name: "user_id"}}},
			{Name: "update_user", Params: []ast.Param{{Name: "self"}, {Name: "user_id"}}},
		},
	}

	stories := Group(sym, 0.7, seqKey)
	if len(stories) != 4 {
		t.Fatalf("expected 4 stories, got %d", len(stories))
	}

	wantTitles := []string{
		"As a user, I can create user",
		"As a user, I can view user",
		"As a user, I can update user",
		"As a user, I can delete user",
	}
	for i, want := range wantTitles {
		if stories[i].Title != want {
			t.Errorf("story %d title = %q, want %q", i, stories[i].Title, want)
		}
	}
}

func TestGroup_OtherMethodsGetOwnStories(t *testing.T) {
	sym := &ast.Symbol{
		Name: "ReportService",
		Methods: []ast.Method{
			{Name: "generate_summary", Params: []ast.Param{{Name: "self"}}},
			{Name: "export_csv", Params: []ast.Param{{Name: "self"}}},
		},
	}

	stories := Group(sym, 0.5, seqKey)
	if len(stories) != 2 {
		t.Fatalf("expected 2 stories, got %d", len(stories))
	}
	if stories[0].Title != "As a user, I can generate summary" {
		t.Errorf("title = %q", stories[0].Title)
	}
	if stories[1].Title != "As a user, I can export csv" {
		t.Errorf("title = %q", stories[1].Title)
	}
	for _, s := range stories {
		if len(s.Tasks) != 1 {
			t.Errorf("story %q tasks = %v", s.Key, s.Tasks)
		}
	}
}

func TestGroup_TasksAreMethodNames(t *testing.T) {
	sym := &ast.Symbol{
		Name: "ItemStore",
		Methods: []ast.Method{
			{Name: "get_item"},
			{Name: "list_items"},
			{Name: "find_item"},
		},
	}

	stories := Group(sym, 0.4, seqKey)
	if len(stories) != 1 {
		t.Fatalf("expected one read story, got %d", len(stories))
	}

	s := stories[0]
	want := []string{"get_item", "list_items", "find_item"}
	if len(s.Tasks) != len(want) {
		t.Fatalf("tasks = %v", s.Tasks)
	}
	for i := range want {
		if s.Tasks[i] != want[i] {
			t.Errorf("task %d = %q, want %q", i, s.Tasks[i], want[i])
		}
	}
	if len(s.Acceptance) != len(s.Tasks) {
		t.Errorf("acceptance count %d != task count %d", len(s.Acceptance), len(s.Tasks))
	}
}

func TestGroup_PointsOnScale(t *testing.T) {
	sym := &ast.Symbol{
		Name: "JobRunner",
		Methods: []ast.Method{
			{
				Name:  "create_job",
				Async: true,
				Params: []ast.Param{
					{Name: "self"}, {Name: "a"}, {Name: "b"}, {Name: "c"}, {Name: "d"},
				},
			},
			{Name: "run_everything"},
		},
	}

	for _, s := range Group(sym, 0.9, seqKey) {
		if !model.OnPointScale(s.StoryPoints) {
			t.Errorf("story %q: StoryPoints %d off scale", s.Key, s.StoryPoints)
		}
		if !model.OnPointScale(s.ValuePoints) {
			t.Errorf("story %q: ValuePoints %d off scale", s.Key, s.ValuePoints)
		}
	}
}

func TestGroup_StoryPointEstimate(t *testing.T) {
	// Base 1 + 2 params + async 2 + undocumented 1 = 6, snaps to 5.
	sym := &ast.Symbol{
		Name: "QueueManager",
		Methods: []ast.Method{
			{
				Name:   "create_entry",
				Async:  true,
				Params: []ast.Param{{Name: "self"}, {Name: "queue"}, {Name: "payload"}},
			},
		},
	}
	stories := Group(sym, 0.5, seqKey)
	if len(stories) != 1 {
		t.Fatalf("stories = %+v", stories)
	}
	if stories[0].StoryPoints != 5 {
		t.Errorf("StoryPoints = %d, want 5", stories[0].StoryPoints)
	}
}

func TestGroup_AcceptanceFromDocstring(t *testing.T) {
	sym := &ast.Symbol{
		Name: "AccountService",
		Methods: []ast.Method{
			{Name: "create_account", DocComment: "Open a new account. Requires a verified email."},
			{Name: "close_account", Async: true},
		},
	}

	stories := Group(sym, 0.6, seqKey)
	var create, other *model.Story
	for i := range stories {
		switch {
		case strings.Contains(stories[i].Title, "create"):
			create = &stories[i]
		default:
			other = &stories[i]
		}
	}
	if create == nil || other == nil {
		t.Fatalf("stories = %+v", stories)
	}
	if create.Acceptance[0] != "Open a new account." {
		t.Errorf("acceptance = %q", create.Acceptance[0])
	}
	if other.Acceptance[0] != "Awaiting close_account completes without error" {
		t.Errorf("acceptance = %q", other.Acceptance[0])
	}
}

func TestGroup_ConfidenceCopied(t *testing.T) {
	sym := &ast.Symbol{Name: "X", Methods: []ast.Method{{Name: "get_x"}}}
	stories := Group(sym, 0.73, seqKey)
	if len(stories) != 1 || stories[0].Confidence != 0.73 {
		t.Errorf("stories = %+v", stories)
	}
}

func TestGroup_NoMethods(t *testing.T) {
	if stories := Group(&ast.Symbol{Name: "Empty"}, 0.2, seqKey); len(stories) != 0 {
		t.Errorf("expected no stories, got %+v", stories)
	}
}
