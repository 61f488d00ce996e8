package codeaction

import "sort"

// Select flattens the per-provider action lists in registration order,
// drops actions the filter rejects, and orders the rest.
//
// Actions linked to diagnostics come first, ordered by their first
// diagnostic message (ties keep collection order). All other actions
// follow in collection order.
func Select(actionsByProvider [][]Action, f Filter) []Action {
	var withDiagnostics, others []Action

	for _, actions := range actionsByProvider {
		for _, a := range actions {
			if !f.Allows(a) {
				continue
			}
			if a.HasDiagnostics() {
				withDiagnostics = append(withDiagnostics, a)
			} else {
				others = append(others, a)
			}
		}
	}

	sort.SliceStable(withDiagnostics, func(i, j int) bool {
		return withDiagnostics[i].firstMessage() < withDiagnostics[j].firstMessage()
	})

	result := make([]Action, 0, len(withDiagnostics)+len(others))
	result = append(result, withDiagnostics...)
	result = append(result, others...)
	return result
}
