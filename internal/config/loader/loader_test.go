package loader

import (
	"errors"
	"io/fs"
	"strings"
	"testing"
	"time"
)

// MemFS is an in-memory file system for testing.
type MemFS struct {
	files map[string][]byte
}

func NewMemFS() *MemFS {
	return &MemFS{files: make(map[string][]byte)}
}

func (m *MemFS) AddFile(path string, content string) {
	m.files[path] = []byte(content)
}

func (m *MemFS) ReadFile(path string) ([]byte, error) {
	data, ok := m.files[path]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return data, nil
}

func (m *MemFS) Stat(path string) (fs.FileInfo, error) {
	if _, ok := m.files[path]; ok {
		return &memFileInfo{name: path}, nil
	}
	return nil, fs.ErrNotExist
}

type memFileInfo struct {
	name string
}

func (f *memFileInfo) Name() string       { return f.name }
func (f *memFileInfo) Size() int64        { return 0 }
func (f *memFileInfo) Mode() fs.FileMode  { return 0644 }
func (f *memFileInfo) ModTime() time.Time { return time.Now() }
func (f *memFileInfo) IsDir() bool        { return false }
func (f *memFileInfo) Sys() any           { return nil }

func TestTOMLLoader_Load(t *testing.T) {
	memfs := NewMemFS()
	memfs.AddFile("/quickfix.toml", `
[selection]
include = "quickfix"
excludes = ["refactor"]

[collect]
concurrency = 4
provider_timeout = "2s"

[[lsp]]
name = "gopls"
command = "gopls"
args = ["serve"]
`)

	config, err := NewTOMLLoaderWithFS(memfs, "/quickfix.toml").Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	selection, ok := config["selection"].(map[string]any)
	if !ok {
		t.Fatal("expected selection to be a map")
	}
	if selection["include"] != "quickfix" {
		t.Errorf("include = %v, want quickfix", selection["include"])
	}

	collect := config["collect"].(map[string]any)
	if collect["concurrency"] != int64(4) {
		t.Errorf("concurrency = %v (%T), want 4", collect["concurrency"], collect["concurrency"])
	}

	servers, ok := config["lsp"].([]any)
	if !ok || len(servers) != 1 {
		t.Fatalf("lsp = %#v, want one table", config["lsp"])
	}
	if servers[0].(map[string]any)["command"] != "gopls" {
		t.Errorf("lsp[0] = %v", servers[0])
	}
}

func TestTOMLLoader_Missing(t *testing.T) {
	config, err := NewTOMLLoaderWithFS(NewMemFS(), "/nope.toml").Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if config != nil {
		t.Errorf("config = %v, want nil", config)
	}
}

func TestTOMLLoader_ParseError(t *testing.T) {
	memfs := NewMemFS()
	memfs.AddFile("/bad.toml", "[selection]\ninclude = \n")

	_, err := NewTOMLLoaderWithFS(memfs, "/bad.toml").Load()
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("error = %v, want *ParseError", err)
	}
	if perr.Path != "/bad.toml" {
		t.Errorf("Path = %q", perr.Path)
	}
	if perr.Line != 2 {
		t.Errorf("Line = %d, want 2", perr.Line)
	}
	if !strings.Contains(perr.Error(), "line 2") {
		t.Errorf("Error() = %q", perr.Error())
	}
}

func TestTOMLLoader_LoadFromReader(t *testing.T) {
	config, err := NewTOMLLoader("").LoadFromReader(strings.NewReader(`[logging]
level = "debug"`))
	if err != nil {
		t.Fatalf("LoadFromReader failed: %v", err)
	}
	if config["logging"].(map[string]any)["level"] != "debug" {
		t.Errorf("config = %v", config)
	}
}

func TestDeepMerge(t *testing.T) {
	dst := map[string]any{
		"selection": map[string]any{"include": "quickfix", "only_preferred": false},
		"lsp":       []any{map[string]any{"name": "a"}},
	}
	src := map[string]any{
		"selection": map[string]any{"only_preferred": true},
		"lsp":       []any{map[string]any{"name": "b"}},
		"logging":   map[string]any{"level": "warn"},
	}

	got := DeepMerge(dst, src)

	selection := got["selection"].(map[string]any)
	if selection["include"] != "quickfix" || selection["only_preferred"] != true {
		t.Errorf("selection = %v", selection)
	}
	if lsp := got["lsp"].([]any); len(lsp) != 1 || lsp[0].(map[string]any)["name"] != "b" {
		t.Errorf("arrays should be replaced, got %v", got["lsp"])
	}
	if got["logging"] == nil {
		t.Error("new section not merged")
	}

	if DeepMerge(nil, nil) == nil {
		t.Error("DeepMerge(nil, nil) should return an empty map")
	}
}
