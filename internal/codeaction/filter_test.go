package codeaction

import "testing"

func TestFilterAllows(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		action Action
		want   bool
	}{
		{"empty filter keeps kindless", Filter{}, Action{Title: "x"}, true},
		{"empty filter keeps quickfix", Filter{}, Action{Kind: KindQuickFix}, true},
		{"empty filter drops source", Filter{}, Action{Kind: KindSource}, false},
		{"empty filter drops nested source", Filter{}, Action{Kind: KindSourceOrganizeImports}, false},
		{"include source without flag", Filter{Include: KindSource}, Action{Kind: KindSource}, false},
		{"include source with flag", Filter{Include: KindSource, IncludeSourceActions: true}, Action{Kind: KindSourceFixAll}, true},
		{"include prefix match", Filter{Include: "a"}, Action{Kind: "a.b"}, true},
		{"include exact match", Filter{Include: "a"}, Action{Kind: "a"}, true},
		{"include not segment", Filter{Include: "a"}, Action{Kind: "ab"}, false},
		{"include drops kindless", Filter{Include: "a"}, Action{}, false},
		{"include deep drops parent", Filter{Include: "a.b"}, Action{Kind: "a"}, false},
		{"include deep drops sibling", Filter{Include: "a.b"}, Action{Kind: "a.c"}, false},
		{"include deep keeps child", Filter{Include: "a.b"}, Action{Kind: "a.b.c"}, true},
		{"exclude drops", Filter{Excludes: []Kind{KindRefactor}}, Action{Kind: KindRefactorInline}, false},
		{"exclude keeps other", Filter{Excludes: []Kind{KindRefactor}}, Action{Kind: KindQuickFix}, true},
		{"exclude keeps kindless", Filter{Excludes: []Kind{KindRefactor}}, Action{}, true},
		{
			"narrower include beats exclude",
			Filter{Include: KindRefactorExtract, Excludes: []Kind{KindRefactor}},
			Action{Kind: KindRefactorExtract},
			true,
		},
		{
			"exclude inside include applies",
			Filter{Include: KindRefactor, Excludes: []Kind{KindRefactorInline}},
			Action{Kind: KindRefactorInline},
			false,
		},
		{"only preferred drops", Filter{OnlyPreferred: true}, Action{Kind: KindQuickFix}, false},
		{"only preferred keeps", Filter{OnlyPreferred: true}, Action{Kind: KindQuickFix, IsPreferred: true}, true},
		{"disabled kept by default", Filter{}, Action{Disabled: "not here"}, true},
		{"disabled dropped", Filter{ExcludeDisabled: true}, Action{Disabled: "not here"}, false},
		{"malformed kind fails prefix", Filter{Include: "a"}, Action{Kind: ".a"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Allows(tt.action); got != tt.want {
				t.Errorf("Allows: got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFilterWantsProvider(t *testing.T) {
	tests := []struct {
		name     string
		filter   Filter
		provided []Kind
		want     bool
	}{
		{"no advertised kinds", Filter{Include: KindQuickFix}, nil, true},
		{"include matches", Filter{Include: KindQuickFix}, []Kind{KindQuickFix}, true},
		{"include parent of provided", Filter{Include: KindRefactor}, []Kind{KindRefactorExtract}, true},
		{"include child of provided", Filter{Include: KindRefactorExtract}, []Kind{KindRefactor}, true},
		{"include disjoint", Filter{Include: KindQuickFix}, []Kind{KindRefactor}, false},
		{"source only provider hidden", Filter{}, []Kind{KindSourceOrganizeImports}, false},
		{"mixed provider asked", Filter{}, []Kind{KindSource, KindQuickFix}, true},
		{"source requested", Filter{IncludeSourceActions: true}, []Kind{KindSource}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.WantsProvider(tt.provided); got != tt.want {
				t.Errorf("WantsProvider: got %v, want %v", got, tt.want)
			}
		})
	}
}
