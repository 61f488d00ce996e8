package lsp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// ServerStatus indicates the current state of a server.
type ServerStatus int

const (
	ServerStatusStopped ServerStatus = iota
	ServerStatusStarting
	ServerStatusInitializing
	ServerStatusReady
	ServerStatusShuttingDown
	ServerStatusError
)

// String returns a human-readable status name.
func (s ServerStatus) String() string {
	switch s {
	case ServerStatusStopped:
		return "stopped"
	case ServerStatusStarting:
		return "starting"
	case ServerStatusInitializing:
		return "initializing"
	case ServerStatusReady:
		return "ready"
	case ServerStatusShuttingDown:
		return "shutting down"
	case ServerStatusError:
		return "error"
	default:
		return "unknown"
	}
}

// DefaultTimeout bounds initialize and code action requests.
const DefaultTimeout = 30 * time.Second

// ServerConfig defines how to start a language server.
type ServerConfig struct {
	// Name identifies the server in logs and provider IDs.
	Name string

	// Command is the executable to run.
	Command string

	// Args are command-line arguments.
	Args []string

	// Env are additional environment variables.
	Env map[string]string

	// WorkDir is the working directory (defaults to the first workspace folder).
	WorkDir string

	// InitializationOptions are sent during initialize.
	InitializationOptions any

	// LanguageIDs that this server handles (e.g., "go"). Empty means all.
	LanguageIDs []string

	// Timeout for requests (default: 30s).
	Timeout time.Duration
}

// Document is an open document tracked by the server.
type Document struct {
	URI        DocumentURI
	LanguageID string
	Version    int
	Content    string
}

// Server represents a connection to a single language server.
type Server struct {
	mu     sync.Mutex
	config ServerConfig
	logger *zap.Logger

	// Process management
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
	stderr io.ReadCloser

	transport *Transport

	status       atomic.Int32
	capabilities ServerCapabilities
	serverInfo   *ServerInfo

	documentsMu sync.Mutex
	documents   map[DocumentURI]*Document

	cancel context.CancelFunc
	exitCh chan error
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithServerLogger sets the server logger.
func WithServerLogger(l *zap.Logger) ServerOption {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new server instance (not yet started).
func NewServer(config ServerConfig, opts ...ServerOption) *Server {
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}

	s := &Server{
		config:    config,
		logger:    zap.NewNop(),
		documents: make(map[DocumentURI]*Document),
		exitCh:    make(chan error, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("server", config.Name))
	s.status.Store(int32(ServerStatusStopped))
	return s
}

// Start launches the language server process and initializes it.
// The process outlives ctx; ctx only bounds the handshake.
func (s *Server) Start(ctx context.Context, workspaceFolders []WorkspaceFolder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Status() != ServerStatusStopped {
		return ErrAlreadyStarted
	}

	s.status.Store(int32(ServerStatusStarting))

	lifetime, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel

	if err := s.startProcess(lifetime, workspaceFolders); err != nil {
		s.status.Store(int32(ServerStatusError))
		cancel()
		return &ServerError{Name: s.config.Name, Err: err}
	}

	go s.monitorProcess()
	go s.drainStderr()

	return s.connectLocked(ctx, lifetime, s.stdout, s.stdin, nil, workspaceFolders)
}

// Connect initializes a server reachable over an existing stream, such as
// a socket or an in-process pipe. The closer, if non-nil, is closed on
// shutdown.
func (s *Server) Connect(ctx context.Context, r io.Reader, w io.Writer, c io.Closer, workspaceFolders []WorkspaceFolder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Status() != ServerStatusStopped {
		return ErrAlreadyStarted
	}

	lifetime, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel

	return s.connectLocked(ctx, lifetime, r, w, c, workspaceFolders)
}

func (s *Server) connectLocked(ctx, lifetime context.Context, r io.Reader, w io.Writer, c io.Closer, folders []WorkspaceFolder) error {
	s.transport = NewTransport(r, w, c, WithTransportLogger(s.logger))
	s.registerHandlers()
	s.transport.Start(lifetime)

	s.status.Store(int32(ServerStatusInitializing))
	if err := s.initialize(ctx, folders); err != nil {
		s.status.Store(int32(ServerStatusError))
		s.stopProcess()
		return &ServerError{Name: s.config.Name, Err: fmt.Errorf("initialize: %w", err)}
	}

	s.status.Store(int32(ServerStatusReady))
	s.logger.Debug("language server ready")
	return nil
}

// startProcess starts the language server executable.
func (s *Server) startProcess(ctx context.Context, folders []WorkspaceFolder) error {
	cmd := exec.CommandContext(ctx, s.config.Command, s.config.Args...)

	cmd.Env = os.Environ()
	for k, v := range s.config.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	if s.config.WorkDir != "" {
		cmd.Dir = s.config.WorkDir
	} else if len(folders) > 0 {
		cmd.Dir = URIToFilePath(folders[0].URI)
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return fmt.Errorf("stdout pipe: %w", err)
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		stdin.Close()
		stdout.Close()
		return fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		stdin.Close()
		stdout.Close()
		stderr.Close()
		return fmt.Errorf("start process: %w", err)
	}

	s.cmd = cmd
	s.stdin = stdin
	s.stdout = stdout
	s.stderr = stderr

	return nil
}

// monitorProcess watches the process and signals when it exits.
func (s *Server) monitorProcess() {
	err := s.cmd.Wait()

	if s.Status() != ServerStatusShuttingDown && s.Status() != ServerStatusStopped {
		s.status.Store(int32(ServerStatusError))
		s.logger.Warn("language server exited", zap.Error(err))
		if s.transport != nil {
			_ = s.transport.Close()
		}
	}

	select {
	case s.exitCh <- err:
	default:
	}
}

// drainStderr forwards server stderr to the debug log so the pipe never fills.
func (s *Server) drainStderr() {
	scanner := bufio.NewScanner(s.stderr)
	for scanner.Scan() {
		s.logger.Debug("language server stderr", zap.String("line", scanner.Text()))
	}
}

// stopProcess closes the connection and kills the process, if any.
func (s *Server) stopProcess() {
	if s.transport != nil {
		_ = s.transport.Close()
	}
	if s.stdin != nil {
		_ = s.stdin.Close()
	}
	if s.cancel != nil {
		s.cancel()
	}
	if s.cmd != nil && s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}

	s.documentsMu.Lock()
	s.documents = make(map[DocumentURI]*Document)
	s.documentsMu.Unlock()
}

// initialize performs the LSP initialize handshake.
func (s *Server) initialize(ctx context.Context, folders []WorkspaceFolder) error {
	var rootURI DocumentURI
	if len(folders) > 0 {
		rootURI = folders[0].URI
	}

	params := InitializeParams{
		ProcessID:             os.Getpid(),
		RootURI:               rootURI,
		Capabilities:          DefaultClientCapabilities(),
		InitializationOptions: s.config.InitializationOptions,
		WorkspaceFolders:      folders,
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	var result InitializeResult
	if err := s.transport.Call(ctx, "initialize", params, &result); err != nil {
		return fmt.Errorf("initialize request: %w", err)
	}

	s.capabilities = result.Capabilities
	s.serverInfo = result.ServerInfo

	if err := s.transport.Notify(ctx, "initialized", InitializedParams{}); err != nil {
		return fmt.Errorf("initialized notification: %w", err)
	}

	return nil
}

// registerHandlers answers the server-to-client traffic language servers
// commonly send while computing code actions.
func (s *Server) registerHandlers() {
	s.transport.OnNotification("window/logMessage", func(_ string, params json.RawMessage) {
		s.logger.Debug("language server log", zap.ByteString("params", params))
	})
	s.transport.OnNotification("*", func(method string, _ json.RawMessage) {
		s.logger.Debug("ignored notification", zap.String("method", method))
	})

	s.transport.OnRequest("workspace/configuration", func(_ context.Context, params json.RawMessage) (any, error) {
		var p struct {
			Items []json.RawMessage `json:"items"`
		}
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, &RPCError{Code: CodeInvalidParams, Message: err.Error()}
		}
		return s.configurationItems(p.Items), nil
	})
	accept := func(context.Context, json.RawMessage) (any, error) { return nil, nil }
	s.transport.OnRequest("client/registerCapability", accept)
	s.transport.OnRequest("window/workDoneProgress/create", accept)
}

// configurationItems answers each workspace/configuration item with the
// initialization options at the item's section, a dotted path. Unknown
// sections are answered with null.
func (s *Server) configurationItems(items []json.RawMessage) []json.RawMessage {
	out := make([]json.RawMessage, len(items))
	for i := range out {
		out[i] = json.RawMessage("null")
	}
	if s.config.InitializationOptions == nil {
		return out
	}
	opts, err := json.Marshal(s.config.InitializationOptions)
	if err != nil {
		s.logger.Warn("initialization options are not JSON", zap.Error(err))
		return out
	}

	for i, item := range items {
		section := gjson.GetBytes(item, "section").String()
		if section == "" {
			out[i] = opts
			continue
		}
		if v := gjson.GetBytes(opts, gjsonPath(section)); v.Exists() {
			out[i] = json.RawMessage(v.Raw)
		}
	}
	return out
}

// gjsonPath escapes gjson metacharacters in a dotted section name.
func gjsonPath(section string) string {
	var b strings.Builder
	for _, r := range section {
		switch r {
		case '*', '?', '|', '#', '@', '\\', '!', '=', '<', '>', '%':
			b.WriteRune('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := s.Status()
	if status == ServerStatusStopped || status == ServerStatusShuttingDown {
		return nil
	}

	s.status.Store(int32(ServerStatusShuttingDown))

	if s.transport != nil && !s.transport.IsClosed() {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		_ = s.transport.Call(shutdownCtx, "shutdown", nil, nil)
		_ = s.transport.Notify(shutdownCtx, "exit", nil)
	}

	s.stopProcess()

	s.status.Store(int32(ServerStatusStopped))
	return nil
}

// Name returns the configured server name.
func (s *Server) Name() string {
	return s.config.Name
}

// Config returns the server configuration.
func (s *Server) Config() ServerConfig {
	return s.config
}

// Status returns the current server status.
func (s *Server) Status() ServerStatus {
	return ServerStatus(s.status.Load())
}

// Capabilities returns the server's capabilities.
func (s *Server) Capabilities() ServerCapabilities {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.capabilities
}

// Info returns information about the server from initialization.
func (s *Server) Info() *ServerInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.serverInfo
}

// ExitChannel returns a channel that receives when the process exits.
func (s *Server) ExitChannel() <-chan error {
	return s.exitCh
}

// --- Document Management ---

// SyncDocument makes the server's view of a document match content:
// the first call opens it, later calls send a full-text change when the
// content differs.
func (s *Server) SyncDocument(ctx context.Context, path, languageID, content string) error {
	if s.Status() != ServerStatusReady {
		return ErrServerNotReady
	}

	uri := FilePathToURI(path)

	s.documentsMu.Lock()
	doc, open := s.documents[uri]
	if !open {
		s.documents[uri] = &Document{URI: uri, LanguageID: languageID, Version: 1, Content: content}
		s.documentsMu.Unlock()

		return s.transport.Notify(ctx, "textDocument/didOpen", DidOpenTextDocumentParams{
			TextDocument: TextDocumentItem{
				URI:        uri,
				LanguageID: languageID,
				Version:    1,
				Text:       content,
			},
		})
	}

	if doc.Content == content {
		s.documentsMu.Unlock()
		return nil
	}
	doc.Version++
	doc.Content = content
	version := doc.Version
	s.documentsMu.Unlock()

	return s.transport.Notify(ctx, "textDocument/didChange", DidChangeTextDocumentParams{
		TextDocument: VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: TextDocumentIdentifier{URI: uri},
			Version:                version,
		},
		ContentChanges: []TextDocumentContentChangeEvent{{Text: content}},
	})
}

// CloseDocument notifies the server that a document was closed.
// Closing a document that is not open is a no-op.
func (s *Server) CloseDocument(ctx context.Context, path string) error {
	if s.Status() != ServerStatusReady {
		return ErrServerNotReady
	}

	uri := FilePathToURI(path)

	s.documentsMu.Lock()
	_, open := s.documents[uri]
	delete(s.documents, uri)
	s.documentsMu.Unlock()

	if !open {
		return nil
	}
	return s.transport.Notify(ctx, "textDocument/didClose", DidCloseTextDocumentParams{
		TextDocument: TextDocumentIdentifier{URI: uri},
	})
}

// DocumentVersion returns the synced version of a document, or 0.
func (s *Server) DocumentVersion(path string) int {
	s.documentsMu.Lock()
	defer s.documentsMu.Unlock()

	if doc, ok := s.documents[FilePathToURI(path)]; ok {
		return doc.Version
	}
	return 0
}

// --- Code Actions ---

// CodeActions requests code actions for a range.
func (s *Server) CodeActions(ctx context.Context, params CodeActionParams) ([]CodeAction, error) {
	if s.Status() != ServerStatusReady {
		return nil, ErrServerNotReady
	}

	if ok, _ := CodeActionSupport(s.Capabilities()); !ok {
		return nil, ErrNotSupported
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	var raw json.RawMessage
	if err := s.transport.Call(ctx, "textDocument/codeAction", params, &raw); err != nil {
		return nil, err
	}

	return DecodeCodeActionResult(raw)
}
