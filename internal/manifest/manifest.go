// Package manifest provides code actions declared in YAML files.
//
// A manifest lists actions together with the languages and paths they
// apply to:
//
//	id: go-style
//	kinds: [quickfix, source.organizeImports]
//	languages: [go]
//	paths: ["*.go", "cmd/**"]
//	actions:
//	  - title: Wrap error with %w
//	    kind: quickfix
//	    preferred: true
//	    match: "error strings should not"
//	    command:
//	      command: go.wrapError
//	  - title: Organize imports
//	    kind: source.organizeImports
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dshills/quickfix/internal/codeaction"
)

// Validation errors.
var (
	ErrMissingID      = errors.New("manifest: id is required")
	ErrMissingTitle   = errors.New("manifest: action title is required")
	ErrMissingCommand = errors.New("manifest: command name is required")
	ErrInvalidPattern = errors.New("manifest: invalid path pattern")
	ErrInvalidSev     = errors.New("manifest: invalid severity")
)

// Manifest is a declarative set of code actions.
type Manifest struct {
	ID        string   `yaml:"id"`
	Kinds     []string `yaml:"kinds"`
	Languages []string `yaml:"languages"`
	Paths     []string `yaml:"paths"`
	Actions   []Action `yaml:"actions"`

	// path is the file the manifest was loaded from.
	path string
}

// Action declares one action.
type Action struct {
	Title       string       `yaml:"title"`
	Kind        string       `yaml:"kind"`
	Preferred   bool         `yaml:"preferred"`
	Disabled    string       `yaml:"disabled"`
	Match       string       `yaml:"match"` // offered only when a request diagnostic contains it
	Diagnostics []Diagnostic `yaml:"diagnostics"`
	Command     *Command     `yaml:"command"`
}

// Diagnostic declares a diagnostic linked to an action.
type Diagnostic struct {
	Message  string           `yaml:"message"`
	Severity string           `yaml:"severity"`
	Source   string           `yaml:"source"`
	Code     string           `yaml:"code"`
	Range    codeaction.Range `yaml:"range"`
}

// Command declares the command an action runs.
type Command struct {
	Title     string `yaml:"title"`
	Command   string `yaml:"command"`
	Arguments []any  `yaml:"arguments"`
}

// Load reads and validates a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	m.path = path
	return m, nil
}

// Parse decodes and validates manifest YAML.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks that the manifest is usable.
func (m *Manifest) Validate() error {
	if m.ID == "" {
		return ErrMissingID
	}

	for _, pattern := range m.Paths {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidPattern, pattern)
		}
	}

	for i, a := range m.Actions {
		if a.Title == "" {
			return fmt.Errorf("action %d: %w", i+1, ErrMissingTitle)
		}
		if a.Command != nil && a.Command.Command == "" {
			return fmt.Errorf("action %q: %w", a.Title, ErrMissingCommand)
		}
		for _, d := range a.Diagnostics {
			if d.Severity != "" && codeaction.ParseSeverity(d.Severity) == 0 {
				return fmt.Errorf("action %q: %w: %q", a.Title, ErrInvalidSev, d.Severity)
			}
		}
	}
	return nil
}

// Path returns the file the manifest was loaded from, if any.
func (m *Manifest) Path() string {
	return m.path
}

// AppliesTo reports whether the manifest covers a file and language. An
// empty Languages or Paths list matches everything. Patterns match the
// full path or, failing that, the base name.
func (m *Manifest) AppliesTo(path, languageID string) bool {
	if len(m.Languages) > 0 {
		found := false
		for _, lang := range m.Languages {
			if lang == languageID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if len(m.Paths) == 0 {
		return true
	}
	slashed := filepath.ToSlash(path)
	base := filepath.Base(path)
	for _, pattern := range m.Paths {
		if ok, _ := filepath.Match(pattern, slashed); ok {
			return true
		}
		if ok, _ := filepath.Match(pattern, base); ok {
			return true
		}
		if dir, ok := strings.CutSuffix(pattern, "/**"); ok && strings.Contains("/"+slashed+"/", "/"+dir+"/") {
			return true
		}
	}
	return false
}
