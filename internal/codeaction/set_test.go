package codeaction

import "testing"

func TestSetQueries(t *testing.T) {
	set := NewSet([]Action{
		{Title: "fix", Kind: KindQuickFix, IsPreferred: true},
		{Title: "fix-disabled", Kind: KindQuickFix, IsPreferred: true, Disabled: "busy"},
		{Title: "extract", Kind: KindRefactorExtract},
		{Title: "organize", Kind: KindSourceOrganizeImports},
		{Title: "custom", Kind: "custom"},
		{Title: "plain"},
	})

	if set.Len() != 6 {
		t.Errorf("Len: got %d, want 6", set.Len())
	}
	if got := len(set.Valid()); got != 5 {
		t.Errorf("Valid: got %d, want 5", got)
	}
	if got := set.Preferred(); len(got) != 1 || got[0].Title != "fix" {
		t.Errorf("Preferred: got %v", titles(got))
	}
	if !set.HasAutoFix() {
		t.Error("HasAutoFix should be true")
	}

	c := set.Categorize()
	if len(c.QuickFixes) != 2 {
		t.Errorf("QuickFixes: got %d, want 2", len(c.QuickFixes))
	}
	if len(c.Refactors) != 1 {
		t.Errorf("Refactors: got %d, want 1", len(c.Refactors))
	}
	if len(c.SourceActions) != 1 {
		t.Errorf("SourceActions: got %d, want 1", len(c.SourceActions))
	}
	if len(c.Other) != 2 {
		t.Errorf("Other: got %d, want 2", len(c.Other))
	}
}

func TestSetNoAutoFix(t *testing.T) {
	tests := []struct {
		name    string
		actions []Action
	}{
		{"empty", nil},
		{"not preferred", []Action{{Kind: KindQuickFix}}},
		{"disabled", []Action{{Kind: KindQuickFix, IsPreferred: true, Disabled: "x"}}},
		{"not quickfix", []Action{{Kind: KindRefactor, IsPreferred: true}}},
		{"segment mismatch", []Action{{Kind: "quickfixes", IsPreferred: true}}},
	}
	for _, tt := range tests {
		if NewSet(tt.actions).HasAutoFix() {
			t.Errorf("%s: HasAutoFix should be false", tt.name)
		}
	}
}

func TestNewSetNil(t *testing.T) {
	set := NewSet(nil)
	if set.All == nil {
		t.Error("All should be non-nil")
	}
}
