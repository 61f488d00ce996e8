package codeaction

// Filter decides which collected actions are kept.
type Filter struct {
	// Include keeps only actions whose kind is Include or below it.
	// Empty means no kind restriction.
	Include Kind

	// Excludes drops actions below any of these kinds, unless Include
	// is itself below the excluded kind.
	Excludes []Kind

	// IncludeSourceActions keeps actions under the reserved source kind.
	IncludeSourceActions bool

	// OnlyPreferred keeps only actions flagged as preferred.
	OnlyPreferred bool

	// ExcludeDisabled drops actions that carry a disabled reason.
	ExcludeDisabled bool
}

// Allows reports whether the action passes the filter.
func (f Filter) Allows(a Action) bool {
	if f.Include != KindEmpty {
		if a.Kind == KindEmpty || !f.Include.Contains(a.Kind) {
			return false
		}
	}

	for _, exclude := range f.Excludes {
		if f.excludes(exclude, a.Kind) {
			return false
		}
	}

	if !f.IncludeSourceActions && a.Kind != KindEmpty && a.Kind.IsSource() {
		return false
	}

	if f.OnlyPreferred && !a.IsPreferred {
		return false
	}

	if f.ExcludeDisabled && a.IsDisabled() {
		return false
	}

	return true
}

// excludes applies a single exclusion. An explicit include that sits
// inside the excluded kind wins over the exclusion.
func (f Filter) excludes(exclude, kind Kind) bool {
	if exclude == KindEmpty || kind == KindEmpty {
		return false
	}
	if !exclude.Contains(kind) {
		return false
	}
	if f.Include != KindEmpty && exclude.Contains(f.Include) {
		return false
	}
	return true
}

// WantsProvider reports whether a provider advertising the given kinds
// could produce anything this filter keeps. Providers that advertise no
// kinds are always asked.
func (f Filter) WantsProvider(provided []Kind) bool {
	if len(provided) == 0 {
		return true
	}

	if f.Include != KindEmpty {
		for _, k := range provided {
			if f.Include.Intersects(k) {
				return true
			}
		}
		return false
	}

	if !f.IncludeSourceActions {
		for _, k := range provided {
			if !k.IsSource() {
				return true
			}
		}
		return false
	}

	return true
}
