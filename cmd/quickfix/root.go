package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dshills/quickfix/internal/app"
	"github.com/dshills/quickfix/internal/config"
)

// globalOptions are the flags shared by every command.
type globalOptions struct {
	configPath string
	logLevel   string
	workspace  string
	manifests  []string
	scripts    []string
	format     string
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "quickfix",
		Short: "Collect and select code actions from language servers, scripts and manifests",
		Long: `quickfix asks every configured provider for the code actions that apply
to a position in a file, then filters and orders them the way an editor's
quick-fix menu does: actions that fix diagnostics first, source actions
only on request.

Providers are configured in TOML (see --config); manifests and Lua scripts
can also be added on the command line.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.SetErr(errOut)

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "configuration file (default: user and project files)")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	flags.StringVarP(&opts.workspace, "workspace", "w", "", "workspace root sent to language servers")
	flags.StringArrayVar(&opts.manifests, "manifest", nil, "YAML manifest provider (repeatable)")
	flags.StringArrayVar(&opts.scripts, "lua", nil, "Lua script provider (repeatable)")
	flags.StringVarP(&opts.format, "format", "f", "text", "output format: text or json")

	root.AddCommand(
		newSelectCmd(opts),
		newProvidersCmd(opts),
		newVersionCmd(),
	)
	return root
}

// loadConfig loads configuration and applies command-line providers.
func (o *globalOptions) loadConfig() (*config.Config, error) {
	var loadOpts []config.Option
	if o.configPath != "" {
		loadOpts = append(loadOpts, config.WithPath(o.configPath))
	}
	cfg, err := config.Load(loadOpts...)
	if err != nil {
		return nil, err
	}

	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	for _, path := range o.manifests {
		cfg.Manifests = append(cfg.Manifests, config.ManifestFile{Path: path})
	}
	for _, path := range o.scripts {
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		cfg.Lua = append(cfg.Lua, config.LuaScript{Name: name, Path: path})
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newApp builds the application with logs on errOut.
func (o *globalOptions) newApp(ctx context.Context, errOut io.Writer) (*app.Application, error) {
	if o.format != "text" && o.format != "json" {
		return nil, fmt.Errorf("unknown format %q (want text or json)", o.format)
	}

	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := app.NewLogger(cfg.Logging.Level, errOut)
	if err != nil {
		return nil, err
	}
	return app.New(ctx, app.Options{
		Config:    cfg,
		Logger:    logger,
		Workspace: o.workspace,
	})
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "quickfix %s\n", version)
			fmt.Fprintf(out, "Commit: %s\n", commit)
			fmt.Fprintf(out, "Built: %s\n", date)
		},
	}
}

// isTerminal reports whether w is a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
