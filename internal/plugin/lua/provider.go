package lua

import (
	"context"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/dshills/quickfix/internal/codeaction"
)

// Script globals.
const (
	// EntryPoint is the function a script defines to provide actions.
	EntryPoint = "provide_code_actions"

	// KindsGlobal optionally lists the kinds a script can produce.
	KindsGlobal = "provided_kinds"
)

// Provider runs a Lua script as a code action provider. Calls into the
// script are serialized.
type Provider struct {
	name   string
	path   string
	state  *State
	kinds  []codeaction.Kind
	logger *zap.Logger

	mu sync.Mutex
}

// ProviderOption configures a Provider.
type ProviderOption func(*Provider)

// WithProviderLogger sets the provider logger. Script print output is
// logged through it too.
func WithProviderLogger(l *zap.Logger) ProviderOption {
	return func(p *Provider) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewProvider loads the script at path. The script must define
// provide_code_actions; ctx bounds the initial execution.
func NewProvider(ctx context.Context, name, path string, opts ...ProviderOption) (*Provider, error) {
	p := &Provider{
		name:   name,
		path:   path,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With(zap.String("script", path))
	p.state = NewState(WithLogger(p.logger))

	if err := p.state.DoFile(ctx, path); err != nil {
		p.state.Close()
		return nil, &ScriptError{Path: path, Err: err}
	}
	if p.state.GetGlobal(EntryPoint).Type() != lua.LTFunction {
		p.state.Close()
		return nil, &ScriptError{Path: path, Err: ErrNoEntryPoint}
	}
	p.kinds = kindsFromValue(p.state.GetGlobal(KindsGlobal))

	return p, nil
}

// ID implements codeaction.Provider.
func (p *Provider) ID() string {
	return "lua:" + p.name
}

// ProvidedKinds implements codeaction.KindProvider. A script without
// provided_kinds may produce any kind.
func (p *Provider) ProvidedKinds() []codeaction.Kind {
	return p.kinds
}

// ProvideCodeActions implements codeaction.Provider.
func (p *Provider) ProvideCodeActions(ctx context.Context, req codeaction.Request) ([]codeaction.Action, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	results, err := p.state.Call(ctx, EntryPoint, requestTable(p.state.L, req))
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, &ScriptError{Path: p.path, Err: err}
	}
	if len(results) == 0 {
		return nil, nil
	}

	actions, err := actionsFromValue(results[0])
	if err != nil {
		return nil, &ScriptError{Path: p.path, Err: err}
	}
	return actions, nil
}

// Close releases the script's Lua state.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.Close()
}
