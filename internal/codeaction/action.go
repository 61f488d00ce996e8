package codeaction

import "encoding/json"

// Position in a text document expressed as zero-based line and character
// offset. Character offsets are UTF-16 code units, as in LSP.
type Position struct {
	Line      int `json:"line" yaml:"line"`
	Character int `json:"character" yaml:"character"`
}

// Range in a text document expressed as start and end positions.
type Range struct {
	Start Position `json:"start" yaml:"start"`
	End   Position `json:"end" yaml:"end"`
}

// PointRange returns a zero-width range at pos.
func PointRange(pos Position) Range {
	return Range{Start: pos, End: pos}
}

// Severity is the severity of a diagnostic. Zero means unset.
type Severity int

const (
	SeverityError       Severity = 1
	SeverityWarning     Severity = 2
	SeverityInformation Severity = 3
	SeverityHint        Severity = 4
)

// String returns the lower-case name of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInformation:
		return "information"
	case SeverityHint:
		return "hint"
	default:
		return ""
	}
}

// ParseSeverity parses a severity name. Unknown names yield zero.
func ParseSeverity(s string) Severity {
	switch s {
	case "error", "err":
		return SeverityError
	case "warning", "warn":
		return SeverityWarning
	case "information", "info":
		return SeverityInformation
	case "hint":
		return SeverityHint
	default:
		return 0
	}
}

// Diagnostic is a reported issue that an action may remedy.
type Diagnostic struct {
	Range    Range    `json:"range"`
	Severity Severity `json:"severity,omitempty"`
	Source   string   `json:"source,omitempty"`
	Code     string   `json:"code,omitempty"`
	Message  string   `json:"message"`
}

// Command is an editor command attached to an action.
type Command struct {
	Title     string `json:"title"`
	Command   string `json:"command"`
	Arguments []any  `json:"arguments,omitempty"`
}

// Action is a user-invocable remedy or command for a code region.
// Actions are treated as immutable once a provider returns them.
type Action struct {
	Title       string          `json:"title"`
	Kind        Kind            `json:"kind,omitempty"`
	Diagnostics []Diagnostic    `json:"diagnostics,omitempty"`
	IsPreferred bool            `json:"isPreferred,omitempty"`
	Disabled    string          `json:"disabled,omitempty"` // reason; empty means enabled
	Command     *Command        `json:"command,omitempty"`
	Edit        json.RawMessage `json:"edit,omitempty"`

	// Provider is the ID of the provider that produced the action.
	Provider string `json:"provider,omitempty"`
}

// HasDiagnostics reports whether the action is linked to at least one
// diagnostic. A nil and an empty list are equivalent.
func (a Action) HasDiagnostics() bool {
	return len(a.Diagnostics) > 0
}

// IsDisabled reports whether the action carries a disabled reason.
func (a Action) IsDisabled() bool {
	return a.Disabled != ""
}

// firstMessage returns the first diagnostic's message, or "".
func (a Action) firstMessage() string {
	if len(a.Diagnostics) == 0 {
		return ""
	}
	return a.Diagnostics[0].Message
}

// Trigger describes why code actions were requested.
type Trigger int

const (
	// TriggerInvoke means the user explicitly asked for actions.
	TriggerInvoke Trigger = iota
	// TriggerAuto means the editor asked on its own, e.g. on cursor move.
	TriggerAuto
)

// String returns the trigger name.
func (t Trigger) String() string {
	if t == TriggerAuto {
		return "auto"
	}
	return "invoke"
}

// ParseTrigger parses "invoke" or "auto".
func ParseTrigger(s string) (Trigger, error) {
	switch s {
	case "", "invoke":
		return TriggerInvoke, nil
	case "auto":
		return TriggerAuto, nil
	default:
		return TriggerInvoke, &InvalidTriggerError{Value: s}
	}
}

// Request describes the code region providers are asked about.
type Request struct {
	Path        string
	LanguageID  string
	Range       Range
	Diagnostics []Diagnostic
	Trigger     Trigger

	// Only restricts providers to kinds contained in it. Empty means all.
	Only Kind
}
