package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/rivo/uniseg"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"

	"github.com/dshills/quickfix/internal/app"
	"github.com/dshills/quickfix/internal/codeaction"
)

// writeJSON writes v as indented JSON, colored on terminals.
func writeJSON(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return writeRawJSON(w, data)
}

// writeSelection writes the request summary and its actions as one JSON
// object.
func writeSelection(w io.Writer, req codeaction.Request, actions []codeaction.Action) error {
	list, err := json.Marshal(actions)
	if err != nil {
		return err
	}

	data := []byte(`{}`)
	for _, field := range []struct {
		path  string
		value any
	}{
		{"path", req.Path},
		{"language", req.LanguageID},
		{"trigger", req.Trigger.String()},
		{"range", req.Range},
	} {
		if data, err = sjson.SetBytes(data, field.path, field.value); err != nil {
			return err
		}
	}
	if data, err = sjson.SetRawBytes(data, "actions", list); err != nil {
		return err
	}
	return writeRawJSON(w, data)
}

func writeRawJSON(w io.Writer, data []byte) error {
	data = pretty.Pretty(data)
	if isTerminal(w) {
		data = pretty.Color(data, nil)
	}
	_, err := w.Write(data)
	return err
}

// writeActions writes one line per action with aligned columns, followed
// by the diagnostics it fixes and its disabled reason.
func writeActions(w io.Writer, actions []codeaction.Action) error {
	if len(actions) == 0 {
		_, err := fmt.Fprintln(w, "No code actions available.")
		return err
	}

	rows := make([][]string, len(actions))
	for i, a := range actions {
		marker := " "
		if a.IsPreferred {
			marker = "*"
		}
		kind := a.Kind.String()
		if kind == "" {
			kind = "-"
		}
		rows[i] = []string{fmt.Sprintf("%d.", i+1), marker, kind, a.Title, a.Provider}
	}
	widths := columnWidths(rows)

	var b strings.Builder
	for i, row := range rows {
		writeRow(&b, row, widths)
		a := actions[i]
		for _, d := range a.Diagnostics {
			fmt.Fprintf(&b, "      fixes %s\n", describeDiagnostic(d))
		}
		if a.IsDisabled() {
			fmt.Fprintf(&b, "      disabled: %s\n", a.Disabled)
		}
		if a.Command != nil {
			fmt.Fprintf(&b, "      runs %s\n", a.Command.Command)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// writeProviders writes the registered providers as a table.
func writeProviders(w io.Writer, providers []app.ProviderInfo) error {
	if len(providers) == 0 {
		_, err := fmt.Fprintln(w, "No providers configured.")
		return err
	}

	rows := make([][]string, 0, len(providers)+1)
	rows = append(rows, []string{"ID", "TYPE", "KINDS"})
	for _, p := range providers {
		kinds := make([]string, len(p.Kinds))
		for i, k := range p.Kinds {
			kinds[i] = k.String()
		}
		list := strings.Join(kinds, ",")
		if list == "" {
			list = "*"
		}
		rows = append(rows, []string{p.ID, p.Type, list})
	}
	widths := columnWidths(rows)

	var b strings.Builder
	for _, row := range rows {
		writeRow(&b, row, widths)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func describeDiagnostic(d codeaction.Diagnostic) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d:%d", d.Range.Start.Line+1, d.Range.Start.Character+1)
	if sev := d.Severity.String(); sev != "" {
		b.WriteString(" ")
		b.WriteString(sev)
	}
	if d.Source != "" {
		fmt.Fprintf(&b, " [%s]", d.Source)
	}
	b.WriteString(" ")
	b.WriteString(d.Message)
	return b.String()
}

// columnWidths returns the display width of each column.
func columnWidths(rows [][]string) []int {
	var widths []int
	for _, row := range rows {
		for i, cell := range row {
			if i >= len(widths) {
				widths = append(widths, 0)
			}
			if n := uniseg.StringWidth(cell); n > widths[i] {
				widths[i] = n
			}
		}
	}
	return widths
}

// writeRow pads every cell but the last to its column width.
func writeRow(b *strings.Builder, row []string, widths []int) {
	for i, cell := range row {
		if i > 0 {
			b.WriteString("  ")
		}
		b.WriteString(cell)
		if i < len(row)-1 {
			b.WriteString(strings.Repeat(" ", widths[i]-uniseg.StringWidth(cell)))
		}
	}
	b.WriteString("\n")
}
