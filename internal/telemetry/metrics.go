package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Generation outcomes.
const (
	OutcomeAI       = "ai"
	OutcomeFallback = "fallback"
	OutcomeError    = "error"
	OutcomeRejected = "rejected"
)

// Metrics holds all Prometheus metrics for the showcase gateway. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	RequestTotal       *prometheus.CounterVec
	RequestDurationMs  *prometheus.HistogramVec
	GenerationTotal    *prometheus.CounterVec
	ProviderDurationMs *prometheus.HistogramVec
	TokenRefreshTotal  *prometheus.CounterVec
	SafetyRejections   *prometheus.CounterVec
	ParseDialectTotal  *prometheus.CounterVec
	FilterActionTotal  *prometheus.CounterVec
	RateLimitHitsTotal *prometheus.CounterVec
	CircuitState       *prometheus.GaugeVec
}

// NewMetrics creates all metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RequestTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "showcase_request_total",
			Help: "Total number of HTTP requests handled, by route and status.",
		}, []string{"route", "status"}),

		RequestDurationMs: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "showcase_request_duration_ms",
			Help:    "HTTP request duration in milliseconds.",
			Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000},
		}, []string{"route"}),

		GenerationTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "showcase_generation_total",
			Help: "Per-prompt image generation outcomes.",
		}, []string{"provider", "outcome"}),

		ProviderDurationMs: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "showcase_provider_duration_ms",
			Help:    "Provider call latency in milliseconds, by outcome kind.",
			Buckets: []float64{100, 250, 500, 1000, 2500, 5000, 10000, 20000, 40000, 60000},
		}, []string{"provider", "kind"}),

		TokenRefreshTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "showcase_token_refresh_total",
			Help: "OAuth token refreshes and invalidations.",
		}, []string{"result"}),

		SafetyRejections: f.NewCounterVec(prometheus.CounterOpts{
			Name: "showcase_safety_rejections_total",
			Help: "Prompts rejected by the safety filter.",
		}, []string{"category"}),

		ParseDialectTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "showcase_parse_dialect_total",
			Help: "Text responses parsed, by detected dialect.",
		}, []string{"dialect"}),

		FilterActionTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "showcase_filter_action_total",
			Help: "Total filter actions taken.",
		}, []string{"filter", "action"}),

		RateLimitHitsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "showcase_ratelimit_hits_total",
			Help: "Requests refused by rate limiting or quota.",
		}, []string{"dimension"}),

		CircuitState: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "showcase_circuit_state",
			Help: "Provider circuit state: 0 closed, 1 open, 2 half-open.",
		}, []string{"provider"}),
	}
}

// RecordRequest records metrics for a completed HTTP request.
func (m *Metrics) RecordRequest(labels RequestLabels) {
	if m == nil {
		return
	}
	m.RequestTotal.WithLabelValues(labels.Route, labels.Status).Inc()
	m.RequestDurationMs.WithLabelValues(labels.Route).Observe(labels.DurationMs)
}

func (m *Metrics) RecordGeneration(provider, outcome string) {
	if m == nil {
		return
	}
	m.GenerationTotal.WithLabelValues(provider, outcome).Inc()
}

func (m *Metrics) ObserveProvider(provider, kind string, d time.Duration) {
	if m == nil {
		return
	}
	m.ProviderDurationMs.WithLabelValues(provider, kind).Observe(float64(d.Milliseconds()))
}

func (m *Metrics) RecordTokenRefresh(result string) {
	if m == nil {
		return
	}
	m.TokenRefreshTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordSafetyRejection(category string) {
	if m == nil {
		return
	}
	m.SafetyRejections.WithLabelValues(category).Inc()
}

func (m *Metrics) RecordParseDialect(dialect string) {
	if m == nil {
		return
	}
	m.ParseDialectTotal.WithLabelValues(dialect).Inc()
}

// RecordFilterAction records a filter action metric.
func (m *Metrics) RecordFilterAction(filter, action string) {
	if m == nil {
		return
	}
	m.FilterActionTotal.WithLabelValues(filter, action).Inc()
}

func (m *Metrics) RecordRateLimitHit(dimension string) {
	if m == nil {
		return
	}
	m.RateLimitHitsTotal.WithLabelValues(dimension).Inc()
}

func (m *Metrics) SetCircuitState(provider string, state int) {
	if m == nil {
		return
	}
	m.CircuitState.WithLabelValues(provider).Set(float64(state))
}

// RequestLabels holds the label values for recording a request.
type RequestLabels struct {
	Route      string
	Status     string
	DurationMs float64
}
