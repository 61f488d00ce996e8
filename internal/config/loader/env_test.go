package loader

import (
	"strings"
	"testing"
	"time"
)

func getByPath(data map[string]any, path string) (any, bool) {
	section, key, _ := strings.Cut(path, ".")
	m, ok := data[section].(map[string]any)
	if !ok {
		return nil, false
	}
	v, ok := m[key]
	return v, ok
}

func TestEnvLoader_Load(t *testing.T) {
	t.Setenv("QUICKFIX_LOG_LEVEL", "debug")
	t.Setenv("QUICKFIX_CONCURRENCY", "1")
	t.Setenv("QUICKFIX_PROVIDER_TIMEOUT", "750ms")
	t.Setenv("QUICKFIX_ONLY_PREFERRED", "yes")
	t.Setenv("QUICKFIX_EXCLUDES", `["refactor", "source"]`)

	config, err := NewEnvLoader(DefaultEnvPrefix).Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	tests := []struct {
		path string
		want any
	}{
		{"logging.level", "debug"},
		{"collect.concurrency", int64(1)},
		{"collect.provider_timeout", 750 * time.Millisecond},
		{"selection.only_preferred", true},
	}
	for _, tt := range tests {
		if val, ok := getByPath(config, tt.path); !ok || val != tt.want {
			t.Errorf("%s = %v (%T), want %v", tt.path, val, val, tt.want)
		}
	}

	excludes, _ := getByPath(config, "selection.excludes")
	if list, ok := excludes.([]any); !ok || len(list) != 2 {
		t.Errorf("selection.excludes = %#v, want two entries", excludes)
	}
}

func TestEnvLoader_LoadUnmapped(t *testing.T) {
	t.Setenv("QUICKFIX_SELECTION_INCLUDE_SOURCE", "true")
	t.Setenv("QUICKFIX_NOSECTION", "x")

	config, err := NewEnvLoader(DefaultEnvPrefix).Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if val, ok := getByPath(config, "selection.include_source"); !ok || val != true {
		t.Errorf("selection.include_source = %v, want true", val)
	}
	if _, ok := config["nosection"]; ok {
		t.Error("variables without a section should be ignored")
	}
}

func TestEnvLoader_AddMapping(t *testing.T) {
	t.Setenv("QUICKFIX_TIMEOUT", "3s")

	l := NewEnvLoader(DefaultEnvPrefix)
	l.AddMapping("QUICKFIX_TIMEOUT", "collect.provider_timeout")

	config, err := l.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if val, _ := getByPath(config, "collect.provider_timeout"); val != 3*time.Second {
		t.Errorf("collect.provider_timeout = %v, want 3s", val)
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		input string
		want  any
	}{
		{"", ""},
		{"0", int64(0)},
		{"42", int64(42)},
		{"on", true},
		{"FALSE", false},
		{"1.5", 1.5},
		{"10s", 10 * time.Second},
		{"source.fixAll", "source.fixAll"},
		{"quickfix", "quickfix"},
	}
	for _, tt := range tests {
		if got := parseValue(tt.input); got != tt.want {
			t.Errorf("parseValue(%q) = %v (%T), want %v (%T)", tt.input, got, got, tt.want, tt.want)
		}
	}
}
