// Package codeaction collects code actions from independent providers and
// selects the ones shown to the user.
//
// # Kinds
//
// Every action may carry a hierarchical Kind such as "refactor.extract".
// Containment is segment aware: "refactor" contains "refactor.extract"
// but not "refactoring". The "source" kind is reserved for whole-file
// actions (organize imports, fix all) and is hidden unless a filter asks
// for it.
//
// # Selection
//
// Select applies a Filter to the concatenated provider results and orders
// what remains:
//
//	results := [][]codeaction.Action{fromGopls, fromSpelling}
//	actions := codeaction.Select(results, codeaction.Filter{Include: codeaction.KindQuickFix})
//
// Actions linked to diagnostics come first, sorted by their first
// diagnostic message. Everything else keeps provider order.
//
// # Providers
//
// Providers implement Provider and are registered in a Registry. The
// Collector queries them concurrently and returns their results in
// registration order. A failing provider contributes nothing and never
// cancels the others.
//
//	reg := codeaction.NewRegistry()
//	reg.Register(goplsProvider)
//	reg.Register(luaProvider)
//
//	svc := codeaction.NewService(reg, codeaction.WithServiceLogger(logger))
//	set, err := svc.GetCodeActions(ctx, req, codeaction.Filter{})
//
// # Thread Safety
//
// Registry, Collector and Service are safe for concurrent use. Select is a
// pure function.
package codeaction
