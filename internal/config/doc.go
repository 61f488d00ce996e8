// Package config loads quickfix configuration.
//
// Configuration is layered, with later layers overriding earlier ones:
//
//  1. Built-in defaults (Default)
//  2. The user file, $XDG_CONFIG_HOME/quickfix/config.toml
//  3. The project file, .quickfix.toml in the working directory
//  4. QUICKFIX_ environment variables
//
// An explicit path passed with WithPath replaces layers 2 and 3 and must
// exist. The merged map is decoded into Config with mapstructure; unknown
// keys are errors.
//
//	cfg, err := config.Load(config.WithPath("quickfix.toml"))
//	if err != nil {
//	    return err
//	}
//	if err := cfg.Validate(); err != nil {
//	    return err
//	}
//
// A complete file:
//
//	[logging]
//	level = "info"
//
//	[selection]
//	include = "quickfix"
//	excludes = ["refactor.inline"]
//	include_source = false
//	only_preferred = false
//
//	[collect]
//	concurrency = 8
//	provider_timeout = "2s"
//	cache_age = "10s"
//
//	[[lsp]]
//	name = "gopls"
//	command = "gopls"
//	args = ["serve"]
//	languages = ["go"]
//
//	[[lua]]
//	name = "whitespace"
//	path = "~/.config/quickfix/whitespace.lua"
//
//	[[manifest]]
//	path = "quickfix.yaml"
package config
