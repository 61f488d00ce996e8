package codeaction

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Provider call outcomes recorded in metrics.
const (
	outcomeOK       = "ok"
	outcomeError    = "error"
	outcomePanic    = "panic"
	outcomeTimeout  = "timeout"
	outcomeCanceled = "canceled"
)

// Metrics records provider and selection statistics.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	selected prometheus.Counter
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "quickfix",
				Name:      "provider_requests_total",
				Help:      "Code action provider calls by outcome.",
			},
			[]string{"provider", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "quickfix",
				Name:      "provider_duration_seconds",
				Help:      "Latency of code action provider calls.",
				Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
			},
			[]string{"provider"},
		),
		selected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quickfix",
			Name:      "actions_selected_total",
			Help:      "Code actions returned after filtering.",
		}),
	}

	if reg != nil {
		for _, c := range []prometheus.Collector{m.requests, m.duration, m.selected} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func (m *Metrics) observeProvider(provider, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(provider, outcome).Inc()
	m.duration.WithLabelValues(provider).Observe(d.Seconds())
}

func (m *Metrics) addSelected(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.selected.Add(float64(n))
}
