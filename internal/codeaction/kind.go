package codeaction

import "strings"

// KindSeparator separates the segments of a hierarchical kind.
const KindSeparator = "."

// Kind is a dot-delimited hierarchical classification of a code action,
// such as "quickfix" or "refactor.extract". The empty kind means unset.
type Kind string

// Well-known kinds.
const (
	KindEmpty                 Kind = ""
	KindQuickFix              Kind = "quickfix"
	KindRefactor              Kind = "refactor"
	KindRefactorExtract       Kind = "refactor.extract"
	KindRefactorInline        Kind = "refactor.inline"
	KindRefactorRewrite       Kind = "refactor.rewrite"
	KindSource                Kind = "source"
	KindSourceOrganizeImports Kind = "source.organizeImports"
	KindSourceFixAll          Kind = "source.fixAll"
)

// Contains reports whether other is k itself or a descendant of k.
// Containment is segment aware: "a" contains "a.b" but not "ab".
func (k Kind) Contains(other Kind) bool {
	if k == other {
		return true
	}
	if k == KindEmpty {
		return false
	}
	return strings.HasPrefix(string(other), string(k)+KindSeparator)
}

// Intersects reports whether either kind contains the other.
func (k Kind) Intersects(other Kind) bool {
	return k.Contains(other) || other.Contains(k)
}

// Append returns the child kind k.part.
func (k Kind) Append(part string) Kind {
	if k == KindEmpty {
		return Kind(part)
	}
	return Kind(string(k) + KindSeparator + part)
}

// IsSource reports whether k is the reserved source kind or below it.
func (k Kind) IsSource() bool {
	return KindSource.Contains(k)
}

// String returns the raw kind value.
func (k Kind) String() string {
	return string(k)
}

// DisplayName returns a human-readable name for well-known kinds and the
// raw value otherwise.
func (k Kind) DisplayName() string {
	switch k {
	case KindQuickFix:
		return "Quick Fix"
	case KindRefactor:
		return "Refactor"
	case KindRefactorExtract:
		return "Extract"
	case KindRefactorInline:
		return "Inline"
	case KindRefactorRewrite:
		return "Rewrite"
	case KindSource:
		return "Source Action"
	case KindSourceOrganizeImports:
		return "Organize Imports"
	case KindSourceFixAll:
		return "Fix All"
	case KindEmpty:
		return "Action"
	default:
		return string(k)
	}
}

// ParseKinds converts raw strings into kinds, dropping empty entries.
func ParseKinds(values []string) []Kind {
	kinds := make([]Kind, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		kinds = append(kinds, Kind(v))
	}
	return kinds
}
