package codeaction

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func delayed(id string, d time.Duration, actions ...Action) Provider {
	return ProviderFunc{
		Name: id,
		Fn: func(ctx context.Context, _ Request) ([]Action, error) {
			select {
			case <-time.After(d):
				return actions, nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		},
	}
}

func failing(id string, err error) Provider {
	return ProviderFunc{
		Name: id,
		Fn: func(context.Context, Request) ([]Action, error) {
			return nil, err
		},
	}
}

func TestCollectPreservesProviderOrder(t *testing.T) {
	c := NewCollector(WithLogger(zaptest.NewLogger(t)))

	providers := []Provider{
		delayed("slow", 30*time.Millisecond, Action{Title: "slow-1"}, Action{Title: "slow-2"}),
		delayed("fast", 0, Action{Title: "fast-1"}),
		delayed("medium", 10*time.Millisecond, Action{Title: "medium-1"}),
	}

	got, err := c.Collect(context.Background(), providers, Request{})
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}

	want := [][]string{{"slow-1", "slow-2"}, {"fast-1"}, {"medium-1"}}
	if len(got) != len(want) {
		t.Fatalf("lists: got %d, want %d", len(got), len(want))
	}
	for i := range want {
		if diff := cmp.Diff(want[i], titles(got[i])); diff != "" {
			t.Errorf("provider %d mismatch (-want +got):\n%s", i, diff)
		}
	}
	if got[0][0].Provider != "slow" || got[1][0].Provider != "fast" {
		t.Errorf("provider IDs not stamped: %q, %q", got[0][0].Provider, got[1][0].Provider)
	}
}

func TestCollectIsolatesFailures(t *testing.T) {
	c := NewCollector(WithLogger(zaptest.NewLogger(t)), WithConcurrency(1))

	providers := []Provider{
		failing("broken", errors.New("boom")),
		ProviderFunc{Name: "panics", Fn: func(context.Context, Request) ([]Action, error) {
			panic("provider bug")
		}},
		delayed("ok", 0, Action{Title: "survivor"}),
	}

	got, err := c.Collect(context.Background(), providers, Request{})
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(got[0]) != 0 || len(got[1]) != 0 {
		t.Errorf("failed providers should contribute nothing: %v, %v", got[0], got[1])
	}
	if len(got[2]) != 1 || got[2][0].Title != "survivor" {
		t.Errorf("healthy provider result lost: %v", got[2])
	}
}

func TestCollectReportsFailedSlots(t *testing.T) {
	c := NewCollector(WithLogger(zaptest.NewLogger(t)))

	providers := []Provider{
		delayed("ok", 0, Action{Title: "fine"}),
		failing("broken", errors.New("boom")),
		ProviderFunc{Name: "panics", Fn: func(context.Context, Request) ([]Action, error) {
			panic("provider bug")
		}},
	}

	_, errs, err := c.collect(context.Background(), providers, Request{})
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if errs[0] != nil {
		t.Errorf("healthy slot reported %v", errs[0])
	}
	var perr *ProviderError
	if !errors.As(errs[1], &perr) || perr.Provider != "broken" {
		t.Errorf("failed slot: got %v", errs[1])
	}
	if !errors.As(errs[2], &perr) || perr.Provider != "panics" {
		t.Errorf("panicked slot: got %v", errs[2])
	}
}

func TestCollectProviderTimeout(t *testing.T) {
	c := NewCollector(WithProviderTimeout(5 * time.Millisecond))

	providers := []Provider{
		delayed("stuck", time.Second, Action{Title: "never"}),
		delayed("quick", 0, Action{Title: "quick"}),
	}

	start := time.Now()
	got, err := c.Collect(context.Background(), providers, Request{})
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Error("timeout did not bound the stuck provider")
	}
	if len(got[0]) != 0 || len(got[1]) != 1 {
		t.Errorf("got %v", got)
	}
}

func TestCollectCanceled(t *testing.T) {
	c := NewCollector()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Collect(ctx, []Provider{delayed("p", time.Second)}, Request{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Collect: got %v, want context.Canceled", err)
	}
}

func TestCollectConcurrencyLimit(t *testing.T) {
	var active, peak atomic.Int32
	p := func(id string) Provider {
		return ProviderFunc{Name: id, Fn: func(context.Context, Request) ([]Action, error) {
			n := active.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			active.Add(-1)
			return nil, nil
		}}
	}

	c := NewCollector(WithConcurrency(2))
	_, err := c.Collect(context.Background(), []Provider{p("a"), p("b"), p("c"), p("d"), p("e")}, Request{})
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if peak.Load() > 2 {
		t.Errorf("peak concurrency: got %d, want <= 2", peak.Load())
	}
}

func TestCollectNoProviders(t *testing.T) {
	got, err := NewCollector().Collect(context.Background(), nil, Request{})
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d lists, want 0", len(got))
	}
}
