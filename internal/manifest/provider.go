package manifest

import (
	"context"
	"strings"

	"github.com/dshills/quickfix/internal/codeaction"
)

// Provider serves a manifest's actions.
type Provider struct {
	manifest *Manifest
	kinds    []codeaction.Kind
}

// NewProvider wraps a validated manifest.
func NewProvider(m *Manifest) *Provider {
	kinds := make([]codeaction.Kind, 0, len(m.Kinds))
	for _, k := range m.Kinds {
		kinds = append(kinds, codeaction.Kind(k))
	}
	return &Provider{manifest: m, kinds: kinds}
}

// LoadProvider loads a manifest file and wraps it.
func LoadProvider(path string) (*Provider, error) {
	m, err := Load(path)
	if err != nil {
		return nil, err
	}
	return NewProvider(m), nil
}

// ID implements codeaction.Provider.
func (p *Provider) ID() string {
	return "manifest:" + p.manifest.ID
}

// ProvidedKinds implements codeaction.KindProvider.
func (p *Provider) ProvidedKinds() []codeaction.Kind {
	if len(p.kinds) == 0 {
		return nil
	}
	return p.kinds
}

// Manifest returns the underlying manifest.
func (p *Provider) Manifest() *Manifest {
	return p.manifest
}

// ProvideCodeActions implements codeaction.Provider. Actions with a match
// string are offered only when a request diagnostic contains it, and are
// linked to those diagnostics unless they declare their own.
func (p *Provider) ProvideCodeActions(ctx context.Context, req codeaction.Request) ([]codeaction.Action, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !p.manifest.AppliesTo(req.Path, req.LanguageID) {
		return nil, nil
	}

	var out []codeaction.Action
	for _, decl := range p.manifest.Actions {
		var matched []codeaction.Diagnostic
		if decl.Match != "" {
			for _, d := range req.Diagnostics {
				if strings.Contains(d.Message, decl.Match) {
					matched = append(matched, d)
				}
			}
			if len(matched) == 0 {
				continue
			}
		}

		a := decl.toAction()
		if len(a.Diagnostics) == 0 && len(matched) > 0 {
			a.Diagnostics = matched
		}
		out = append(out, a)
	}
	return out, nil
}

func (a Action) toAction() codeaction.Action {
	out := codeaction.Action{
		Title:       a.Title,
		Kind:        codeaction.Kind(a.Kind),
		IsPreferred: a.Preferred,
		Disabled:    a.Disabled,
	}
	for _, d := range a.Diagnostics {
		out.Diagnostics = append(out.Diagnostics, codeaction.Diagnostic{
			Range:    d.Range,
			Severity: codeaction.ParseSeverity(d.Severity),
			Source:   d.Source,
			Code:     d.Code,
			Message:  d.Message,
		})
	}
	if a.Command != nil {
		title := a.Command.Title
		if title == "" {
			title = a.Title
		}
		out.Command = &codeaction.Command{
			Title:     title,
			Command:   a.Command.Command,
			Arguments: a.Command.Arguments,
		}
	}
	return out
}
