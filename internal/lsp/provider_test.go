package lsp

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/dshills/quickfix/internal/codeaction"
)

func staticFile(content string) func(string) ([]byte, error) {
	return func(string) ([]byte, error) {
		return []byte(content), nil
	}
}

func TestProviderCodeActions(t *testing.T) {
	result := `[
		{"title": "Add import \"fmt\"", "kind": "quickfix", "isPreferred": true,
		 "diagnostics": [{"range": {"start": {"line": 2, "character": 1}, "end": {"line": 2, "character": 4}},
		                  "severity": 1, "code": 2, "source": "compiler", "message": "undefined: fmt"}]},
		{"title": "Extract function", "kind": "refactor.extract", "disabled": {"reason": "select statements"}},
		{"title": "Run vet", "command": "go.vet", "arguments": ["./..."]}
	]`
	server, fake := connectFakeServer(t, ServerConfig{Name: "gopls", LanguageIDs: []string{"go"}}, quickfixCaps, result)
	provider := NewProvider(server, WithFileReader(staticFile("package main\n\nfunc main() { fmt.Println() }\n")))

	if provider.ID() != "lsp:gopls" {
		t.Errorf("ID: got %q", provider.ID())
	}

	req := codeaction.Request{
		Path:  "/src/main.go",
		Range: codeaction.PointRange(codeaction.Position{Line: 2, Character: 1}),
		Diagnostics: []codeaction.Diagnostic{{
			Range:    codeaction.Range{Start: codeaction.Position{Line: 2, Character: 1}, End: codeaction.Position{Line: 2, Character: 4}},
			Severity: codeaction.SeverityError,
			Message:  "undefined: fmt",
		}},
		Trigger: codeaction.TriggerAuto,
		Only:    codeaction.KindQuickFix,
	}

	actions, err := provider.ProvideCodeActions(context.Background(), req)
	if err != nil {
		t.Fatalf("ProvideCodeActions: %v", err)
	}
	if len(actions) != 3 {
		t.Fatalf("actions: got %d, want 3", len(actions))
	}

	fix := actions[0]
	if fix.Kind != codeaction.KindQuickFix || !fix.IsPreferred || len(fix.Diagnostics) != 1 {
		t.Errorf("quick fix: got %+v", fix)
	}
	if d := fix.Diagnostics[0]; d.Code != "2" || d.Severity != codeaction.SeverityError || d.Source != "compiler" {
		t.Errorf("diagnostic: got %+v", d)
	}
	if actions[1].Disabled != "select statements" {
		t.Errorf("disabled reason: got %q", actions[1].Disabled)
	}
	if actions[2].Kind != codeaction.KindEmpty || actions[2].Command == nil || actions[2].Command.Command != "go.vet" {
		t.Errorf("command: got %+v", actions[2])
	}

	calls := fake.codeActionCalls()
	if len(calls) != 1 {
		t.Fatalf("calls: got %d, want 1", len(calls))
	}
	ctx := calls[0].Context
	if ctx.TriggerKind != CodeActionTriggerAutomatic {
		t.Errorf("trigger kind: got %d", ctx.TriggerKind)
	}
	if len(ctx.Only) != 1 || ctx.Only[0] != CodeActionKindQuickFix {
		t.Errorf("only: got %v", ctx.Only)
	}
	if len(ctx.Diagnostics) != 1 || ctx.Diagnostics[0].Message != "undefined: fmt" {
		t.Errorf("diagnostics: got %+v", ctx.Diagnostics)
	}
	if opens, _ := fake.syncs(); opens != 1 {
		t.Errorf("didOpen: got %d, want 1", opens)
	}
}

func TestProviderSkipsOtherLanguages(t *testing.T) {
	server, fake := connectFakeServer(t, ServerConfig{LanguageIDs: []string{"go"}}, quickfixCaps, `[]`)
	provider := NewProvider(server, WithFileReader(staticFile("print()")))

	actions, err := provider.ProvideCodeActions(context.Background(), codeaction.Request{Path: "/src/app.py"})
	if err != nil {
		t.Fatalf("ProvideCodeActions: %v", err)
	}
	if len(actions) != 0 {
		t.Errorf("actions: got %d, want 0", len(actions))
	}
	if calls := fake.codeActionCalls(); len(calls) != 0 {
		t.Errorf("server should not be asked, got %d calls", len(calls))
	}

	if !provider.Handles("go") || provider.Handles("python") {
		t.Error("Handles does not match configured languages")
	}
}

func TestProviderExplicitLanguage(t *testing.T) {
	server, fake := connectFakeServer(t, ServerConfig{LanguageIDs: []string{"go"}}, quickfixCaps, `[]`)
	provider := NewProvider(server, WithFileReader(staticFile("package main")))

	req := codeaction.Request{Path: "/src/generated.tmpl", LanguageID: "go"}
	if _, err := provider.ProvideCodeActions(context.Background(), req); err != nil {
		t.Fatalf("ProvideCodeActions: %v", err)
	}
	if calls := fake.codeActionCalls(); len(calls) != 1 {
		t.Errorf("calls: got %d, want 1", len(calls))
	}
}

func TestProviderProvidedKinds(t *testing.T) {
	server, _ := connectFakeServer(t, ServerConfig{}, quickfixCaps, `[]`)

	provider := NewProvider(server)
	want := []codeaction.Kind{codeaction.KindQuickFix, codeaction.KindSourceOrganizeImports}
	got := provider.ProvidedKinds()
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("ProvidedKinds: got %v, want %v", got, want)
	}

	override := NewProvider(server, WithKinds([]codeaction.Kind{codeaction.KindRefactor}))
	if got := override.ProvidedKinds(); len(got) != 1 || got[0] != codeaction.KindRefactor {
		t.Errorf("ProvidedKinds with override: got %v", got)
	}

	unstarted := NewProvider(NewServer(ServerConfig{Name: "idle"}))
	if got := unstarted.ProvidedKinds(); got != nil {
		t.Errorf("ProvidedKinds before start: got %v, want nil", got)
	}
}

func TestProviderReadError(t *testing.T) {
	server, _ := connectFakeServer(t, ServerConfig{}, quickfixCaps, `[]`)
	provider := NewProvider(server, WithFileReader(func(string) ([]byte, error) {
		return nil, os.ErrNotExist
	}))

	_, err := provider.ProvideCodeActions(context.Background(), codeaction.Request{Path: "/gone.go"})
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("got %v, want ErrNotExist", err)
	}
}

func TestProviderRemembersStartFailure(t *testing.T) {
	server := NewServer(ServerConfig{Name: "broken", Command: "quickfix-no-such-language-server"})
	provider := NewProvider(server, WithFileReader(staticFile("")))

	req := codeaction.Request{Path: "/src/main.go"}
	_, first := provider.ProvideCodeActions(context.Background(), req)
	if first == nil {
		t.Fatal("expected start error")
	}
	_, second := provider.ProvideCodeActions(context.Background(), req)
	if second != first {
		t.Errorf("second error: got %v, want remembered %v", second, first)
	}
}

func TestProviderServerGone(t *testing.T) {
	server, _ := connectFakeServer(t, ServerConfig{}, quickfixCaps, `[]`)
	provider := NewProvider(server, WithFileReader(staticFile("package main")))

	if err := provider.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	_, err := provider.ProvideCodeActions(context.Background(), codeaction.Request{Path: "/src/main.go"})
	if !errors.Is(err, ErrServerCrashed) {
		t.Errorf("got %v, want ErrServerCrashed", err)
	}
}

func TestToCodeActionParams(t *testing.T) {
	req := codeaction.Request{
		Path:  "/src/main.go",
		Range: codeaction.PointRange(codeaction.Position{Line: 4, Character: 2}),
	}
	params := ToCodeActionParams(req)

	if params.Context.TriggerKind != CodeActionTriggerInvoked {
		t.Errorf("trigger kind: got %d, want invoked", params.Context.TriggerKind)
	}
	if params.Context.Only != nil {
		t.Errorf("only: got %v, want nil", params.Context.Only)
	}
	if params.Context.Diagnostics == nil {
		t.Error("diagnostics must encode as an empty array")
	}
	if params.Range.Start.Line != 4 || params.Range.End.Character != 2 {
		t.Errorf("range: got %+v", params.Range)
	}
}

func TestToActionDisabledWithoutReason(t *testing.T) {
	action := ToAction(CodeAction{Title: "x", Disabled: &CodeActionDisabled{}})
	if !action.IsDisabled() {
		t.Error("action should be disabled")
	}
}
