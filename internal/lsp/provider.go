package lsp

import (
	"context"
	"fmt"
	"os"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/dshills/quickfix/internal/codeaction"
)

// Provider exposes a language server as a code action provider.
// The server is started on first use.
type Provider struct {
	server  *Server
	kinds   []codeaction.Kind
	folders []WorkspaceFolder
	logger  *zap.Logger

	readFile func(path string) ([]byte, error)

	startMu  sync.Mutex
	startErr error
	started  bool
}

// ProviderOption configures a Provider.
type ProviderOption func(*Provider)

// WithKinds overrides the kinds the provider advertises. Without it the
// provider advertises what the server reports after initialization.
func WithKinds(kinds []codeaction.Kind) ProviderOption {
	return func(p *Provider) {
		p.kinds = kinds
	}
}

// WithWorkspaceFolders sets the folders sent during initialize.
func WithWorkspaceFolders(folders []WorkspaceFolder) ProviderOption {
	return func(p *Provider) {
		p.folders = folders
	}
}

// WithProviderLogger sets the provider logger.
func WithProviderLogger(l *zap.Logger) ProviderOption {
	return func(p *Provider) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithFileReader replaces how document content is read before syncing.
func WithFileReader(fn func(path string) ([]byte, error)) ProviderOption {
	return func(p *Provider) {
		p.readFile = fn
	}
}

// NewProvider wraps a server that has not been started yet, or one that
// the caller already connected.
func NewProvider(server *Server, opts ...ProviderOption) *Provider {
	p := &Provider{
		server:   server,
		logger:   zap.NewNop(),
		readFile: os.ReadFile,
	}
	for _, opt := range opts {
		opt(p)
	}
	if server.Status() == ServerStatusReady {
		p.started = true
	}
	return p
}

// ID implements codeaction.Provider.
func (p *Provider) ID() string {
	return "lsp:" + p.server.Name()
}

// ProvidedKinds implements codeaction.KindProvider.
func (p *Provider) ProvidedKinds() []codeaction.Kind {
	if len(p.kinds) > 0 {
		return p.kinds
	}
	if p.server.Status() != ServerStatusReady {
		return nil
	}
	_, kinds := CodeActionSupport(p.server.Capabilities())
	out := make([]codeaction.Kind, len(kinds))
	for i, k := range kinds {
		out[i] = codeaction.Kind(k)
	}
	return out
}

// Handles reports whether the server is configured for the language.
func (p *Provider) Handles(languageID string) bool {
	langs := p.server.Config().LanguageIDs
	return len(langs) == 0 || slices.Contains(langs, languageID)
}

// ProvideCodeActions implements codeaction.Provider.
func (p *Provider) ProvideCodeActions(ctx context.Context, req codeaction.Request) ([]codeaction.Action, error) {
	languageID := req.LanguageID
	if languageID == "" {
		languageID = DetectLanguageID(req.Path)
	}
	if !p.Handles(languageID) {
		return nil, nil
	}

	if err := p.ensureStarted(ctx); err != nil {
		return nil, err
	}

	content, err := p.readFile(req.Path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", req.Path, err)
	}
	if err := p.server.SyncDocument(ctx, req.Path, languageID, string(content)); err != nil {
		return nil, fmt.Errorf("sync %s: %w", req.Path, err)
	}

	actions, err := p.server.CodeActions(ctx, ToCodeActionParams(req))
	if err != nil {
		return nil, err
	}

	out := make([]codeaction.Action, len(actions))
	for i, a := range actions {
		out[i] = ToAction(a)
	}
	return out, nil
}

// ensureStarted starts the server once. A failed start is remembered so
// later requests fail fast instead of respawning the process.
func (p *Provider) ensureStarted(ctx context.Context) error {
	p.startMu.Lock()
	defer p.startMu.Unlock()

	if p.started {
		if p.server.Status() != ServerStatusReady {
			return ErrServerCrashed
		}
		return nil
	}
	if p.startErr != nil {
		return p.startErr
	}

	p.logger.Info("starting language server",
		zap.String("server", p.server.Name()),
		zap.String("command", p.server.Config().Command),
	)
	if err := p.server.Start(ctx, p.folders); err != nil {
		p.startErr = err
		return err
	}
	p.started = true
	return nil
}

// Close shuts the server down if it was started.
func (p *Provider) Close(ctx context.Context) error {
	return p.server.Shutdown(ctx)
}
