package codeaction

// Set is an ordered, filtered list of code actions with convenience
// queries used by editor front ends.
type Set struct {
	// All holds the selected actions in presentation order.
	All []Action
}

// Categories groups a set's actions by top-level kind.
type Categories struct {
	QuickFixes    []Action
	Refactors     []Action
	SourceActions []Action
	Other         []Action
}

// NewSet wraps already selected actions.
func NewSet(actions []Action) *Set {
	if actions == nil {
		actions = []Action{}
	}
	return &Set{All: actions}
}

// Len returns the number of actions in the set.
func (s *Set) Len() int {
	return len(s.All)
}

// Valid returns the actions that are not disabled.
func (s *Set) Valid() []Action {
	valid := make([]Action, 0, len(s.All))
	for _, a := range s.All {
		if !a.IsDisabled() {
			valid = append(valid, a)
		}
	}
	return valid
}

// Preferred returns the valid actions flagged as preferred.
func (s *Set) Preferred() []Action {
	var preferred []Action
	for _, a := range s.All {
		if a.IsPreferred && !a.IsDisabled() {
			preferred = append(preferred, a)
		}
	}
	return preferred
}

// HasAutoFix reports whether a valid, preferred quick fix exists.
func (s *Set) HasAutoFix() bool {
	for _, a := range s.All {
		if a.IsPreferred && !a.IsDisabled() && KindQuickFix.Contains(a.Kind) {
			return true
		}
	}
	return false
}

// Categorize splits the set by hierarchical kind, preserving order.
func (s *Set) Categorize() Categories {
	var c Categories
	for _, a := range s.All {
		switch {
		case KindQuickFix.Contains(a.Kind):
			c.QuickFixes = append(c.QuickFixes, a)
		case KindRefactor.Contains(a.Kind):
			c.Refactors = append(c.Refactors, a)
		case KindSource.Contains(a.Kind):
			c.SourceActions = append(c.SourceActions, a)
		default:
			c.Other = append(c.Other, a)
		}
	}
	return c
}
