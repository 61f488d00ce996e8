// Package lsp exposes Language Server Protocol servers as code action
// providers.
//
// A Server launches a language server process (or connects to an existing
// stream), performs the initialize handshake, keeps documents in sync with
// full-text updates, and issues textDocument/codeAction requests over a
// JSON-RPC 2.0 Transport with Content-Length framing.
//
// # Quick Start
//
//	server := lsp.NewServer(lsp.ServerConfig{
//	    Name:        "gopls",
//	    Command:     "gopls",
//	    Args:        []string{"serve"},
//	    LanguageIDs: []string{"go"},
//	})
//	provider := lsp.NewProvider(server)
//	defer provider.Close(ctx)
//
//	registry.Register(provider)
//
// The provider starts the server on its first request. Servers answer
// with a mix of Command and CodeAction literals; bare commands become
// kind-less actions.
//
// # Server Requests
//
// Language servers send requests back to the client while computing
// actions. The Server answers workspace/configuration with nulls and
// accepts capability registration and progress creation; anything else
// gets a method-not-found error.
//
// # Thread Safety
//
// Server, Provider and Transport are safe for concurrent use.
package lsp
