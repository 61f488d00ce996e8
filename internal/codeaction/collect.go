package codeaction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds how many providers are queried at once.
const DefaultConcurrency = 8

// Collector queries providers concurrently and gathers their actions in
// provider order.
type Collector struct {
	logger      *zap.Logger
	metrics     *Metrics
	concurrency int
	timeout     time.Duration
}

// CollectorOption configures a Collector.
type CollectorOption func(*Collector)

// WithLogger sets the logger used to report provider failures.
func WithLogger(l *zap.Logger) CollectorOption {
	return func(c *Collector) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *Metrics) CollectorOption {
	return func(c *Collector) {
		c.metrics = m
	}
}

// WithConcurrency bounds concurrent provider calls. Values <= 0 mean
// one goroutine per provider.
func WithConcurrency(n int) CollectorOption {
	return func(c *Collector) {
		c.concurrency = n
	}
}

// WithProviderTimeout bounds each provider call. Zero disables the bound.
func WithProviderTimeout(d time.Duration) CollectorOption {
	return func(c *Collector) {
		c.timeout = d
	}
}

// NewCollector creates a collector.
func NewCollector(opts ...CollectorOption) *Collector {
	c := &Collector{
		logger:      zap.NewNop(),
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Collect asks every provider for actions and returns one list per
// provider, in the order the providers were given. A failing provider
// contributes an empty list; it never cancels the others. Collect only
// fails when ctx is done.
func (c *Collector) Collect(ctx context.Context, providers []Provider, req Request) ([][]Action, error) {
	results, _, err := c.collect(ctx, providers, req)
	return results, err
}

// collect is Collect that also reports, per provider slot, the error that
// made the slot empty. A nil entry means the provider answered.
func (c *Collector) collect(ctx context.Context, providers []Provider, req Request) ([][]Action, []error, error) {
	results := make([][]Action, len(providers))
	errs := make([]error, len(providers))
	if len(providers) == 0 {
		return results, errs, ctx.Err()
	}

	limit := c.concurrency
	if limit <= 0 || limit > len(providers) {
		limit = len(providers)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, p := range providers {
		i, p := i, p
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i], errs[i] = c.run(gctx, p, req)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	return results, errs, nil
}

// run calls a single provider, isolating its failures.
func (c *Collector) run(ctx context.Context, p Provider, req Request) (actions []Action, err error) {
	id := p.ID()
	start := time.Now()
	outcome := outcomeOK

	defer func() {
		if r := recover(); r != nil {
			outcome = outcomePanic
			actions = nil
			err = &ProviderError{Provider: id, Err: fmt.Errorf("panic: %v", r)}
			c.logger.Error("code action provider panicked",
				zap.String("provider", id),
				zap.Any("panic", r),
			)
		}
		c.metrics.observeProvider(id, outcome, time.Since(start))
	}()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	got, perr := p.ProvideCodeActions(ctx, req)
	if perr != nil {
		outcome = classifyError(perr)
		err = &ProviderError{Provider: id, Err: perr}
		c.logger.Warn("code action provider failed",
			zap.String("provider", id),
			zap.String("path", req.Path),
			zap.Error(err),
		)
		return nil, err
	}

	actions = make([]Action, len(got))
	for i, a := range got {
		a.Provider = id
		actions[i] = a
	}

	c.logger.Debug("code action provider answered",
		zap.String("provider", id),
		zap.Int("actions", len(actions)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return actions, nil
}

func classifyError(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return outcomeTimeout
	case errors.Is(err, context.Canceled):
		return outcomeCanceled
	default:
		return outcomeError
	}
}

