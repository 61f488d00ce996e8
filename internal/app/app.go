// Package app wires configuration, providers and the code action service
// into a runnable application.
package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/dshills/quickfix/internal/codeaction"
	"github.com/dshills/quickfix/internal/config"
	"github.com/dshills/quickfix/internal/lsp"
	"github.com/dshills/quickfix/internal/manifest"
	plua "github.com/dshills/quickfix/internal/plugin/lua"
)

// Options configures the application.
type Options struct {
	// Config is the validated configuration. Nil means config.Default().
	Config *config.Config

	// Logger receives all component logs. Nil builds a console logger on
	// stderr at the configured level.
	Logger *zap.Logger

	// Metrics is where collector metrics are registered. Nil means a new
	// registry from NewMetricsRegistry.
	Metrics *prometheus.Registry

	// Workspace is the root directory sent to language servers. Empty
	// means the working directory.
	Workspace string
}

// ProviderInfo describes a registered provider.
type ProviderInfo struct {
	ID    string            `json:"id"`
	Type  string            `json:"type"`
	Kinds []codeaction.Kind `json:"kinds,omitempty"`
}

// Application holds the wired components.
type Application struct {
	config   *config.Config
	logger   *zap.Logger
	metrics  *prometheus.Registry
	registry *codeaction.Registry
	service  *codeaction.Service

	mu      sync.Mutex
	closers []closer
	closed  bool
}

type closer struct {
	name  string
	close func(context.Context) error
}

// New builds the application. Lua scripts are loaded within ctx; language
// servers start on first use.
func New(ctx context.Context, opts Options) (*Application, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, NewComponentError("config", "validate", err)
	}

	logger := opts.Logger
	if logger == nil {
		l, err := NewLogger(cfg.Logging.Level, os.Stderr)
		if err != nil {
			return nil, NewComponentError("logging", "", err)
		}
		logger = l
	}

	reg := opts.Metrics
	if reg == nil {
		reg = NewMetricsRegistry()
	}
	metrics, err := codeaction.NewMetrics(reg)
	if err != nil {
		return nil, NewComponentError("metrics", "register", err)
	}

	app := &Application{
		config:   cfg,
		logger:   logger,
		metrics:  reg,
		registry: codeaction.NewRegistry(),
	}

	if err := app.registerProviders(ctx, opts.Workspace); err != nil {
		_ = app.Close(context.WithoutCancel(ctx))
		return nil, err
	}

	collector := codeaction.NewCollector(
		codeaction.WithLogger(logger.Named("collect")),
		codeaction.WithMetrics(metrics),
		codeaction.WithConcurrency(cfg.Collect.Concurrency),
		codeaction.WithProviderTimeout(cfg.Collect.ProviderTimeout),
	)
	app.service = codeaction.NewService(app.registry,
		codeaction.WithCollector(collector),
		codeaction.WithServiceLogger(logger.Named("service")),
		codeaction.WithServiceMetrics(metrics),
		codeaction.WithCacheAge(cfg.Collect.CacheAge),
		codeaction.WithDefaultFilter(cfg.Filter()),
	)

	logger.Debug("application ready",
		zap.Int("providers", app.registry.Len()),
		zap.Strings("config", cfg.Sources),
	)
	return app, nil
}

// registerProviders registers language servers, then Lua scripts, then
// manifests, each in configuration order.
func (app *Application) registerProviders(ctx context.Context, workspace string) error {
	folders, err := workspaceFolders(workspace)
	if err != nil {
		return NewComponentError("lsp", "resolve workspace", err)
	}

	for _, sc := range app.config.LSP {
		server := lsp.NewServer(lsp.ServerConfig{
			Name:                  sc.Name,
			Command:               sc.Command,
			Args:                  sc.Args,
			Env:                   sc.Env,
			WorkDir:               sc.WorkDir,
			InitializationOptions: sc.InitializationOptions,
			LanguageIDs:           sc.Languages,
			Timeout:               sc.Timeout,
		}, lsp.WithServerLogger(app.logger.Named("lsp")))

		p := lsp.NewProvider(server,
			lsp.WithKinds(codeaction.ParseKinds(sc.Kinds)),
			lsp.WithWorkspaceFolders(folders),
			lsp.WithProviderLogger(app.logger.Named("lsp")),
		)
		if err := app.register(p, p.Close); err != nil {
			return NewComponentError("lsp", "register "+sc.Name, err)
		}
	}

	for _, sc := range app.config.Lua {
		p, err := plua.NewProvider(ctx, sc.Name, sc.Path,
			plua.WithProviderLogger(app.logger.Named("lua")),
		)
		if err != nil {
			return NewComponentError("lua", "load "+sc.Name, err)
		}
		if err := app.register(p, func(context.Context) error { return p.Close() }); err != nil {
			p.Close()
			return NewComponentError("lua", "register "+sc.Name, err)
		}
	}

	for _, mc := range app.config.Manifests {
		p, err := manifest.LoadProvider(mc.Path)
		if err != nil {
			return NewComponentError("manifest", "load "+mc.Path, err)
		}
		if err := app.register(p, nil); err != nil {
			return NewComponentError("manifest", "register "+mc.Path, err)
		}
	}

	return nil
}

func (app *Application) register(p codeaction.Provider, closeFn func(context.Context) error) error {
	if err := app.registry.Register(p); err != nil {
		return err
	}
	if closeFn != nil {
		app.mu.Lock()
		app.closers = append(app.closers, closer{name: p.ID(), close: closeFn})
		app.mu.Unlock()
	}
	app.logger.Debug("registered provider", zap.String("provider", p.ID()))
	return nil
}

func workspaceFolders(dir string) ([]lsp.WorkspaceFolder, error) {
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		dir = wd
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	return []lsp.WorkspaceFolder{{URI: lsp.FilePathToURI(abs), Name: filepath.Base(abs)}}, nil
}

// Config returns the application configuration.
func (app *Application) Config() *config.Config {
	return app.config
}

// Logger returns the application logger.
func (app *Application) Logger() *zap.Logger {
	return app.logger
}

// Metrics returns the metrics registry.
func (app *Application) Metrics() *prometheus.Registry {
	return app.metrics
}

// Registry returns the provider registry.
func (app *Application) Registry() *codeaction.Registry {
	return app.registry
}

// Service returns the code action service.
func (app *Application) Service() *codeaction.Service {
	return app.service
}

// Providers describes the registered providers in registration order.
func (app *Application) Providers() []ProviderInfo {
	providers := app.registry.Providers()
	infos := make([]ProviderInfo, len(providers))
	for i, p := range providers {
		info := ProviderInfo{ID: p.ID()}
		switch p.(type) {
		case *lsp.Provider:
			info.Type = "lsp"
		case *plua.Provider:
			info.Type = "lua"
		case *manifest.Provider:
			info.Type = "manifest"
		default:
			info.Type = "custom"
		}
		if kp, ok := p.(codeaction.KindProvider); ok {
			info.Kinds = kp.ProvidedKinds()
		}
		infos[i] = info
	}
	return infos
}

// SelectCodeActions collects and filters actions for a request.
func (app *Application) SelectCodeActions(ctx context.Context, req codeaction.Request, f codeaction.Filter) (*codeaction.Set, error) {
	app.mu.Lock()
	closed := app.closed
	app.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}
	return app.service.GetCodeActions(ctx, req, f)
}

// Close shuts down language servers and releases Lua states, in reverse
// registration order.
func (app *Application) Close(ctx context.Context) error {
	app.mu.Lock()
	if app.closed {
		app.mu.Unlock()
		return nil
	}
	app.closed = true
	closers := app.closers
	app.closers = nil
	app.mu.Unlock()

	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		c := closers[i]
		if err := c.close(ctx); err != nil {
			app.logger.Warn("close provider", zap.String("provider", c.name), zap.Error(err))
			errs = append(errs, NewComponentError(c.name, "close", err))
		}
	}
	_ = app.logger.Sync()
	return errors.Join(errs...)
}
