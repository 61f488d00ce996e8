package lsp

import (
	"fmt"

	"github.com/dshills/quickfix/internal/codeaction"
)

func toProtocolRange(r codeaction.Range) Range {
	return Range{
		Start: Position{Line: r.Start.Line, Character: r.Start.Character},
		End:   Position{Line: r.End.Line, Character: r.End.Character},
	}
}

func fromProtocolRange(r Range) codeaction.Range {
	return codeaction.Range{
		Start: codeaction.Position{Line: r.Start.Line, Character: r.Start.Character},
		End:   codeaction.Position{Line: r.End.Line, Character: r.End.Character},
	}
}

func toProtocolDiagnostic(d codeaction.Diagnostic) Diagnostic {
	out := Diagnostic{
		Range:    toProtocolRange(d.Range),
		Severity: DiagnosticSeverity(d.Severity),
		Source:   d.Source,
		Message:  d.Message,
	}
	if d.Code != "" {
		out.Code = d.Code
	}
	return out
}

func fromProtocolDiagnostic(d Diagnostic) codeaction.Diagnostic {
	out := codeaction.Diagnostic{
		Range:    fromProtocolRange(d.Range),
		Severity: codeaction.Severity(d.Severity),
		Source:   d.Source,
		Message:  d.Message,
	}
	switch code := d.Code.(type) {
	case nil:
	case string:
		out.Code = code
	case float64:
		out.Code = fmt.Sprintf("%g", code)
	default:
		out.Code = fmt.Sprint(code)
	}
	return out
}

// ToAction converts a protocol code action into the editor model.
func ToAction(a CodeAction) codeaction.Action {
	out := codeaction.Action{
		Title:       a.Title,
		Kind:        codeaction.Kind(a.Kind),
		IsPreferred: a.IsPreferred,
		Edit:        a.Edit,
	}
	if a.Disabled != nil {
		out.Disabled = a.Disabled.Reason
		if out.Disabled == "" {
			out.Disabled = "disabled"
		}
	}
	if len(a.Diagnostics) > 0 {
		out.Diagnostics = make([]codeaction.Diagnostic, len(a.Diagnostics))
		for i, d := range a.Diagnostics {
			out.Diagnostics[i] = fromProtocolDiagnostic(d)
		}
	}
	if a.Command != nil {
		out.Command = &codeaction.Command{
			Title:     a.Command.Title,
			Command:   a.Command.Command,
			Arguments: a.Command.Arguments,
		}
	}
	return out
}

// ToCodeActionParams builds textDocument/codeAction parameters for a request.
func ToCodeActionParams(req codeaction.Request) CodeActionParams {
	diags := make([]Diagnostic, len(req.Diagnostics))
	for i, d := range req.Diagnostics {
		diags[i] = toProtocolDiagnostic(d)
	}

	params := CodeActionParams{
		TextDocument: TextDocumentIdentifier{URI: FilePathToURI(req.Path)},
		Range:        toProtocolRange(req.Range),
		Context: CodeActionContext{
			Diagnostics: diags,
			TriggerKind: CodeActionTriggerInvoked,
		},
	}
	if req.Trigger == codeaction.TriggerAuto {
		params.Context.TriggerKind = CodeActionTriggerAutomatic
	}
	if req.Only != codeaction.KindEmpty {
		params.Context.Only = []CodeActionKind{CodeActionKind(req.Only)}
	}
	return params
}
