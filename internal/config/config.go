package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap/zapcore"

	"github.com/dshills/quickfix/internal/codeaction"
	"github.com/dshills/quickfix/internal/config/loader"
)

// ProjectFile is the project-level configuration file name.
const ProjectFile = ".quickfix.toml"

// Config is the complete quickfix configuration.
type Config struct {
	Logging   LoggingConfig   `mapstructure:"logging"`
	Selection SelectionConfig `mapstructure:"selection"`
	Collect   CollectConfig   `mapstructure:"collect"`
	LSP       []LSPServer     `mapstructure:"lsp"`
	Lua       []LuaScript     `mapstructure:"lua"`
	Manifests []ManifestFile  `mapstructure:"manifest"`

	// Sources lists the files that were merged, in order.
	Sources []string `mapstructure:"-"`
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	// Level is a zap level name: debug, info, warn, error.
	Level string `mapstructure:"level"`
}

// SelectionConfig is the default selection filter.
type SelectionConfig struct {
	Include       string   `mapstructure:"include"`
	Excludes      []string `mapstructure:"excludes"`
	IncludeSource bool     `mapstructure:"include_source"`
	OnlyPreferred bool     `mapstructure:"only_preferred"`
}

// CollectConfig tunes provider collection.
type CollectConfig struct {
	// Concurrency bounds concurrent provider calls; 0 means unbounded.
	Concurrency     int           `mapstructure:"concurrency"`
	ProviderTimeout time.Duration `mapstructure:"provider_timeout"`
	CacheAge        time.Duration `mapstructure:"cache_age"`
}

// LSPServer configures a language server provider.
type LSPServer struct {
	Name                  string            `mapstructure:"name"`
	Command               string            `mapstructure:"command"`
	Args                  []string          `mapstructure:"args"`
	Env                   map[string]string `mapstructure:"env"`
	WorkDir               string            `mapstructure:"work_dir"`
	Languages             []string          `mapstructure:"languages"`
	Kinds                 []string          `mapstructure:"kinds"`
	Timeout               time.Duration     `mapstructure:"timeout"`
	InitializationOptions map[string]any    `mapstructure:"initialization_options"`
}

// LuaScript configures a Lua script provider.
type LuaScript struct {
	Name string `mapstructure:"name"`
	Path string `mapstructure:"path"`
}

// ManifestFile configures a YAML manifest provider.
type ManifestFile struct {
	Path string `mapstructure:"path"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "info"},
		Collect: CollectConfig{
			Concurrency: codeaction.DefaultConcurrency,
			CacheAge:    codeaction.DefaultCacheAge,
		},
	}
}

// Option configures Load.
type Option func(*loadOptions)

type loadOptions struct {
	path        string
	searchPaths []string
	fs          loader.FileSystem
	envPrefix   string
}

// WithPath loads exactly this file instead of the search paths. The file
// must exist.
func WithPath(path string) Option {
	return func(o *loadOptions) {
		o.path = path
	}
}

// WithSearchPaths replaces the default user and project file locations.
// Missing files are skipped.
func WithSearchPaths(paths ...string) Option {
	return func(o *loadOptions) {
		o.searchPaths = paths
	}
}

// WithFileSystem sets the file system files are read from.
func WithFileSystem(fsys loader.FileSystem) Option {
	return func(o *loadOptions) {
		o.fs = fsys
	}
}

// WithEnvPrefix sets the environment variable prefix. An empty prefix
// disables the environment layer.
func WithEnvPrefix(prefix string) Option {
	return func(o *loadOptions) {
		o.envPrefix = prefix
	}
}

// DefaultSearchPaths returns the user and project configuration files.
func DefaultSearchPaths() []string {
	var paths []string
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "quickfix", "config.toml"))
	}
	return append(paths, ProjectFile)
}

// Load builds a Config from defaults, configuration files and the
// environment. It does not validate the result.
func Load(opts ...Option) (*Config, error) {
	o := &loadOptions{
		fs:        loader.DefaultFS(),
		envPrefix: loader.DefaultEnvPrefix,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.searchPaths == nil {
		o.searchPaths = DefaultSearchPaths()
	}

	cfg := Default()
	merged := make(map[string]any)

	paths := o.searchPaths
	if o.path != "" {
		if _, err := o.fs.Stat(o.path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("%w: %s", ErrFileNotFound, o.path)
			}
			return nil, fmt.Errorf("stat %s: %w", o.path, err)
		}
		paths = []string{o.path}
	}

	for _, path := range paths {
		data, err := loader.NewTOMLLoaderWithFS(o.fs, path).Load()
		if err != nil {
			return nil, err
		}
		if data == nil {
			continue
		}
		merged = loader.DeepMerge(merged, data)
		cfg.Sources = append(cfg.Sources, path)
	}

	if o.envPrefix != "" {
		env, err := loader.NewEnvLoader(o.envPrefix).Load()
		if err != nil {
			return nil, err
		}
		merged = loader.DeepMerge(merged, env)
	}

	if err := decode(merged, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decode decodes a merged configuration map onto cfg.
func decode(data map[string]any, cfg *Config) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		ErrorUnused: true,
		Result:      cfg,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(data); err != nil {
		return fmt.Errorf("decoding config: %w", err)
	}
	return nil
}

// Validate checks the configuration and reports every problem found.
func (c *Config) Validate() error {
	var errs []error
	add := func(path, format string, args ...any) {
		errs = append(errs, &ValidationError{Path: path, Message: fmt.Sprintf(format, args...)})
	}

	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		add("logging.level", "unknown level %q", c.Logging.Level)
	}

	if c.Collect.Concurrency < 0 {
		add("collect.concurrency", "must not be negative")
	}
	if c.Collect.ProviderTimeout < 0 {
		add("collect.provider_timeout", "must not be negative")
	}
	if c.Collect.CacheAge < 0 {
		add("collect.cache_age", "must not be negative")
	}

	seen := make(map[string]bool)
	unique := func(path, id string) {
		if seen[id] {
			add(path, "duplicate provider %q", id)
		}
		seen[id] = true
	}

	for i, s := range c.LSP {
		path := fmt.Sprintf("lsp[%d]", i)
		if s.Name == "" {
			add(path+".name", "is required")
		} else {
			unique(path+".name", "lsp:"+s.Name)
		}
		if s.Command == "" {
			add(path+".command", "is required")
		}
		if s.Timeout < 0 {
			add(path+".timeout", "must not be negative")
		}
	}

	for i, s := range c.Lua {
		path := fmt.Sprintf("lua[%d]", i)
		if s.Name == "" {
			add(path+".name", "is required")
		} else {
			unique(path+".name", "lua:"+s.Name)
		}
		if s.Path == "" {
			add(path+".path", "is required")
		}
	}

	for i, m := range c.Manifests {
		if m.Path == "" {
			add(fmt.Sprintf("manifest[%d].path", i), "is required")
		}
	}

	return errors.Join(errs...)
}

// Filter returns the configured default selection filter.
func (c *Config) Filter() codeaction.Filter {
	return codeaction.Filter{
		Include:              codeaction.Kind(c.Selection.Include),
		Excludes:             codeaction.ParseKinds(c.Selection.Excludes),
		IncludeSourceActions: c.Selection.IncludeSource,
		OnlyPreferred:        c.Selection.OnlyPreferred,
	}
}
