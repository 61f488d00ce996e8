package codeaction

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultCacheAge is how long collected provider results are reused.
const DefaultCacheAge = 10 * time.Second

// Service collects actions from registered providers, caches the raw
// provider results, and selects from them per filter.
type Service struct {
	mu        sync.RWMutex
	registry  *Registry
	collector *Collector
	logger    *zap.Logger
	metrics   *Metrics

	defaultFilter Filter

	cache    map[cacheKey]*cacheEntry
	cacheAge time.Duration
	now      func() time.Time
}

// cacheKey identifies collected results by file, range and request shape.
type cacheKey struct {
	path      string
	startLine int
	startChar int
	endLine   int
	endChar   int
	trigger   Trigger
	only      Kind
	providers string
	diags     string
}

// cacheEntry stores collected provider results.
type cacheEntry struct {
	results   [][]Action
	timestamp time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithCollector sets the collector used to query providers.
func WithCollector(c *Collector) ServiceOption {
	return func(s *Service) {
		s.collector = c
	}
}

// WithServiceLogger sets the service logger.
func WithServiceLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithServiceMetrics sets the metrics sink for selected actions.
func WithServiceMetrics(m *Metrics) ServiceOption {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithCacheAge sets the maximum age of cached provider results.
// Zero disables caching.
func WithCacheAge(d time.Duration) ServiceOption {
	return func(s *Service) {
		s.cacheAge = d
	}
}

// WithDefaultFilter sets the filter merged into every request.
func WithDefaultFilter(f Filter) ServiceOption {
	return func(s *Service) {
		s.defaultFilter = f
	}
}

// NewService creates a service over the given registry.
func NewService(registry *Registry, opts ...ServiceOption) *Service {
	s := &Service{
		registry: registry,
		logger:   zap.NewNop(),
		cache:    make(map[cacheKey]*cacheEntry),
		cacheAge: DefaultCacheAge,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.collector == nil {
		s.collector = NewCollector(WithLogger(s.logger), WithMetrics(s.metrics))
	}
	return s
}

// DefaultFilter returns the filter configured for the service.
func (s *Service) DefaultFilter() Filter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.defaultFilter
}

// GetCodeActions returns the selected actions for the request.
// Auto-triggered requests never show disabled actions.
func (s *Service) GetCodeActions(ctx context.Context, req Request, f Filter) (*Set, error) {
	if req.Trigger == TriggerAuto {
		f.ExcludeDisabled = true
	}
	req.Only = f.Include

	providers := s.registry.ProvidersFor(f)
	key := s.key(req, providers)

	results, ok := s.cached(key)
	if !ok {
		var (
			errs []error
			err  error
		)
		results, errs, err = s.collector.collect(ctx, providers, req)
		if err != nil {
			return nil, err
		}
		if failed := countFailed(errs); failed > 0 {
			// A failed slot is empty, not authoritative; ask again next time.
			s.logger.Debug("not caching partial code action results",
				zap.String("path", req.Path),
				zap.Int("failed", failed),
			)
		} else {
			s.store(key, results)
		}
	}

	selected := Select(results, f)
	s.metrics.addSelected(len(selected))

	s.logger.Debug("selected code actions",
		zap.String("path", req.Path),
		zap.Stringer("trigger", req.Trigger),
		zap.String("only", string(req.Only)),
		zap.Int("providers", len(providers)),
		zap.Int("actions", len(selected)),
		zap.Bool("cached", ok),
	)

	return NewSet(selected), nil
}

// GetQuickFixes returns only quick fixes for the request.
func (s *Service) GetQuickFixes(ctx context.Context, req Request) ([]Action, error) {
	f := s.DefaultFilter()
	f.Include = KindQuickFix
	set, err := s.GetCodeActions(ctx, req, f)
	if err != nil {
		return nil, err
	}
	return set.All, nil
}

// GetSourceActions returns source actions, e.g. organize imports.
func (s *Service) GetSourceActions(ctx context.Context, req Request) ([]Action, error) {
	f := s.DefaultFilter()
	f.Include = KindSource
	f.IncludeSourceActions = true
	set, err := s.GetCodeActions(ctx, req, f)
	if err != nil {
		return nil, err
	}
	return set.All, nil
}

// Invalidate drops cached results for a file.
func (s *Service) Invalidate(path string) {
	clean := filepath.Clean(path)

	s.mu.Lock()
	defer s.mu.Unlock()

	for key := range s.cache {
		if key.path == clean {
			delete(s.cache, key)
		}
	}
}

// ClearCache drops all cached results.
func (s *Service) ClearCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[cacheKey]*cacheEntry)
}

func (s *Service) key(req Request, providers []Provider) cacheKey {
	var ids, diags strings.Builder
	for _, p := range providers {
		ids.WriteString(p.ID())
		ids.WriteByte(0)
	}
	for _, d := range req.Diagnostics {
		r := d.Range
		fmt.Fprintf(&diags, "%d:%d-%d:%d|%d|%q|%q|%q\x00",
			r.Start.Line, r.Start.Character, r.End.Line, r.End.Character,
			d.Severity, d.Source, d.Code, d.Message)
	}
	return cacheKey{
		path:      filepath.Clean(req.Path),
		startLine: req.Range.Start.Line,
		startChar: req.Range.Start.Character,
		endLine:   req.Range.End.Line,
		endChar:   req.Range.End.Character,
		trigger:   req.Trigger,
		only:      req.Only,
		providers: ids.String(),
		diags:     diags.String(),
	}
}

func (s *Service) cached(key cacheKey) ([][]Action, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.cacheAge <= 0 {
		return nil, false
	}
	entry, ok := s.cache[key]
	if !ok || s.now().Sub(entry.timestamp) >= s.cacheAge {
		return nil, false
	}
	return entry.results, true
}

func (s *Service) store(key cacheKey, results [][]Action) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cacheAge <= 0 {
		return
	}
	now := s.now()
	for k, entry := range s.cache {
		if now.Sub(entry.timestamp) >= s.cacheAge {
			delete(s.cache, k)
		}
	}
	s.cache[key] = &cacheEntry{
		results:   results,
		timestamp: now,
	}
}

func countFailed(errs []error) int {
	n := 0
	for _, err := range errs {
		if err != nil {
			n++
		}
	}
	return n
}
