package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dshills/quickfix/internal/app"
	"github.com/dshills/quickfix/internal/codeaction"
	"github.com/dshills/quickfix/internal/config"
	"github.com/dshills/quickfix/internal/lsp"
	"github.com/dshills/quickfix/internal/watch"
)

var errMissingFile = errors.New("--file is required")

type selectOptions struct {
	file        string
	language    string
	line        int
	character   int
	endLine     int
	endChar     int
	trigger     string
	diagnostics []string

	kind          string
	excludes      []string
	includeSource bool
	onlyPreferred bool
	hideDisabled  bool
	metrics       bool
	watch         bool
}

func newSelectCmd(global *globalOptions) *cobra.Command {
	opts := &selectOptions{}

	cmd := &cobra.Command{
		Use:   "select",
		Short: "List the code actions available at a position",
		Example: `  quickfix select --file main.go --line 12 --character 4 \
      --diagnostic "error:undefined: fmt" --kind quickfix
  quickfix select --file main.go --include-source --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSelect(cmd, global, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.file, "file", "", "file to request actions for")
	flags.StringVar(&opts.language, "language", "", "language ID (default: detected from the file extension)")
	flags.IntVarP(&opts.line, "line", "l", 1, "line number (1-based)")
	flags.IntVar(&opts.character, "character", 1, "column (1-based, UTF-16 code units)")
	flags.IntVar(&opts.endLine, "end-line", 0, "end line of the range (default: --line)")
	flags.IntVar(&opts.endChar, "end-character", 0, "end column of the range (default: --character)")
	flags.StringVar(&opts.trigger, "trigger", "invoke", "request trigger: invoke or auto")
	flags.StringArrayVarP(&opts.diagnostics, "diagnostic", "d", nil, `diagnostic at the range as "[severity:]message" (repeatable)`)

	flags.StringVarP(&opts.kind, "kind", "k", "", "only actions under this kind, e.g. quickfix or refactor.extract")
	flags.StringSliceVar(&opts.excludes, "exclude", nil, "drop actions under these kinds")
	flags.BoolVar(&opts.includeSource, "include-source", false, "keep source actions")
	flags.BoolVar(&opts.onlyPreferred, "only-preferred", false, "keep only preferred actions")
	flags.BoolVar(&opts.hideDisabled, "hide-disabled", false, "drop actions that carry a disabled reason")
	flags.BoolVar(&opts.metrics, "metrics", false, "write provider metrics to stderr after the first selection")
	flags.BoolVar(&opts.watch, "watch", false, "reprint actions when the file, configuration or a provider script changes")

	return cmd
}

func runSelect(cmd *cobra.Command, global *globalOptions, opts *selectOptions) error {
	if opts.file == "" {
		return errMissingFile
	}
	if _, err := os.Stat(opts.file); err != nil {
		return err
	}
	req, err := opts.request()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	application, err := global.newApp(ctx, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	s := &selectSession{cmd: cmd, global: global, opts: opts, app: application, req: req}
	defer func() {
		_ = s.app.Close(context.WithoutCancel(ctx))
	}()

	if err := s.print(ctx); err != nil {
		return err
	}
	if opts.metrics {
		if err := app.WriteMetrics(cmd.ErrOrStderr(), s.app.Metrics()); err != nil {
			return err
		}
	}
	if !opts.watch {
		return nil
	}
	return s.watch(ctx)
}

// selectSession is one select invocation, possibly repeated by --watch.
type selectSession struct {
	cmd    *cobra.Command
	global *globalOptions
	opts   *selectOptions
	app    *app.Application
	req    codeaction.Request
}

// print collects, filters and prints actions for the request.
func (s *selectSession) print(ctx context.Context) error {
	f := s.opts.filter(s.cmd, s.app.Service().DefaultFilter())
	set, err := s.app.SelectCodeActions(ctx, s.req, f)
	if err != nil {
		return err
	}

	out := s.cmd.OutOrStdout()
	if s.global.format == "json" {
		return writeSelection(out, s.req, set.All)
	}
	return writeActions(out, set.All)
}

// watch reprints the selection whenever the target file or a provider
// file changes. A change to the target invalidates its cached results; a
// change to configuration, a manifest or a script rebuilds the
// application. It returns when ctx is done.
func (s *selectSession) watch(ctx context.Context) error {
	w, err := watch.New(watch.WithLogger(s.app.Logger().Named("watch")))
	if err != nil {
		return err
	}
	defer w.Close()

	target, err := filepath.Abs(s.req.Path)
	if err != nil {
		return err
	}
	s.watchFiles(w, append([]string{target}, providerFiles(s.app.Config())...))

	out := s.cmd.OutOrStdout()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events():
			if !ok {
				return nil
			}
			fmt.Fprintf(out, "\n%s changed\n", ev.Path)

			if ev.Path == target {
				s.app.Service().Invalidate(s.req.Path)
			} else if s.reload(ctx) {
				s.watchFiles(w, providerFiles(s.app.Config()))
			}
			if err := s.print(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				s.app.Logger().Error("select failed", zap.Error(err))
			}
		}
	}
}

// watchFiles adds paths to w. Files already watched are skipped.
func (s *selectSession) watchFiles(w *watch.Watcher, paths []string) {
	for _, path := range paths {
		if err := w.Add(path); err != nil && !errors.Is(err, watch.ErrAlreadyWatching) {
			s.app.Logger().Warn("cannot watch file", zap.String("path", path), zap.Error(err))
		}
	}
}

// reload rebuilds the application, keeping the current one on failure.
// It reports whether the application was replaced.
func (s *selectSession) reload(ctx context.Context) bool {
	next, err := s.global.newApp(ctx, s.cmd.ErrOrStderr())
	if err != nil {
		s.app.Logger().Error("reload failed, keeping previous providers", zap.Error(err))
		return false
	}
	_ = s.app.Close(context.WithoutCancel(ctx))
	s.app = next
	return true
}

// providerFiles lists the files whose changes alter the provider set.
func providerFiles(cfg *config.Config) []string {
	files := append([]string(nil), cfg.Sources...)
	for _, l := range cfg.Lua {
		files = append(files, l.Path)
	}
	for _, m := range cfg.Manifests {
		files = append(files, m.Path)
	}
	return files
}

// request builds the code action request from flags.
func (o *selectOptions) request() (codeaction.Request, error) {
	trigger, err := codeaction.ParseTrigger(o.trigger)
	if err != nil {
		return codeaction.Request{}, err
	}
	if o.line < 1 || o.character < 1 {
		return codeaction.Request{}, fmt.Errorf("line and character are 1-based, got %d:%d", o.line, o.character)
	}

	start := codeaction.Position{Line: o.line - 1, Character: o.character - 1}
	rng := codeaction.PointRange(start)
	if o.endLine > 0 {
		rng.End.Line = o.endLine - 1
	}
	if o.endChar > 0 {
		rng.End.Character = o.endChar - 1
	}
	if rng.End.Line < rng.Start.Line ||
		(rng.End.Line == rng.Start.Line && rng.End.Character < rng.Start.Character) {
		return codeaction.Request{}, fmt.Errorf("range end %d:%d is before start %d:%d",
			rng.End.Line+1, rng.End.Character+1, o.line, o.character)
	}

	language := o.language
	if language == "" {
		language = lsp.DetectLanguageID(o.file)
	}

	req := codeaction.Request{
		Path:       o.file,
		LanguageID: language,
		Range:      rng,
		Trigger:    trigger,
	}
	for _, d := range o.diagnostics {
		req.Diagnostics = append(req.Diagnostics, parseDiagnostic(d, rng))
	}
	return req, nil
}

// parseDiagnostic parses "[severity:]message". A prefix that is not a
// severity name is part of the message.
func parseDiagnostic(s string, rng codeaction.Range) codeaction.Diagnostic {
	d := codeaction.Diagnostic{Range: rng, Message: s}
	if prefix, msg, ok := strings.Cut(s, ":"); ok {
		if sev := codeaction.ParseSeverity(strings.ToLower(strings.TrimSpace(prefix))); sev != 0 {
			d.Severity = sev
			d.Message = strings.TrimSpace(msg)
		}
	}
	return d
}

// filter applies explicitly set flags on top of the configured filter.
func (o *selectOptions) filter(cmd *cobra.Command, base codeaction.Filter) codeaction.Filter {
	f := base
	flags := cmd.Flags()
	if flags.Changed("kind") {
		f.Include = codeaction.Kind(strings.TrimSpace(o.kind))
	}
	if flags.Changed("exclude") {
		f.Excludes = codeaction.ParseKinds(o.excludes)
	}
	if flags.Changed("include-source") {
		f.IncludeSourceActions = o.includeSource
	}
	if flags.Changed("only-preferred") {
		f.OnlyPreferred = o.onlyPreferred
	}
	if o.hideDisabled {
		f.ExcludeDisabled = true
	}
	return f
}
