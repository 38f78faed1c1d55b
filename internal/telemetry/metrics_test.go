package telemetry

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	var metric dto.Metric
	if err := c.WithLabelValues(labels...).Write(&metric); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	return metric.GetCounter().GetValue()
}

func TestNewMetrics(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	if m.RequestTotal == nil || m.RequestDurationMs == nil {
		t.Error("request metrics should not be nil")
	}
	if m.GenerationTotal == nil || m.ProviderDurationMs == nil {
		t.Error("generation metrics should not be nil")
	}
	if m.TokenRefreshTotal == nil || m.SafetyRejections == nil || m.ParseDialectTotal == nil {
		t.Error("pipeline metrics should not be nil")
	}
	if m.FilterActionTotal == nil || m.RateLimitHitsTotal == nil || m.CircuitState == nil {
		t.Error("gateway metrics should not be nil")
	}
}

func TestNewMetrics_SeparateRegistries(t *testing.T) {
	// Registering twice on fresh registries must not panic.
	NewMetrics(prometheus.NewRegistry())
	NewMetrics(prometheus.NewRegistry())
}

func TestRecordRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordRequest(RequestLabels{Route: "/api/images/generate", Status: "200", DurationMs: 1234})
	m.RecordRequest(RequestLabels{Route: "/api/images/generate", Status: "200", DurationMs: 50})

	if v := counterValue(t, m.RequestTotal, "/api/images/generate", "200"); v != 2 {
		t.Errorf("expected request_total=2, got %v", v)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	var found bool
	for _, mf := range families {
		if mf.GetName() == "showcase_request_duration_ms" {
			found = true
			if got := mf.GetMetric()[0].GetHistogram().GetSampleCount(); got != 2 {
				t.Errorf("expected 2 samples, got %d", got)
			}
		}
	}
	if !found {
		t.Error("duration histogram not gathered")
	}
}

func TestRecordPipelineMetrics(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordGeneration("dalle", OutcomeFallback)
	m.RecordGeneration("dalle", OutcomeFallback)
	m.RecordGeneration("dalle", OutcomeAI)
	m.RecordTokenRefresh("success")
	m.RecordSafetyRejection("violence")
	m.RecordParseDialect("summary_caption")
	m.RecordFilterAction("secrets", "block")
	m.RecordRateLimitHit("rpm")
	m.ObserveProvider("dalle", "success", 1500*time.Millisecond)

	if v := counterValue(t, m.GenerationTotal, "dalle", OutcomeFallback); v != 2 {
		t.Errorf("fallback count = %v", v)
	}
	if v := counterValue(t, m.GenerationTotal, "dalle", OutcomeAI); v != 1 {
		t.Errorf("ai count = %v", v)
	}
	if v := counterValue(t, m.TokenRefreshTotal, "success"); v != 1 {
		t.Errorf("token refresh = %v", v)
	}
	if v := counterValue(t, m.SafetyRejections, "violence"); v != 1 {
		t.Errorf("safety rejections = %v", v)
	}
	if v := counterValue(t, m.ParseDialectTotal, "summary_caption"); v != 1 {
		t.Errorf("parse dialect = %v", v)
	}
	if v := counterValue(t, m.FilterActionTotal, "secrets", "block"); v != 1 {
		t.Errorf("filter action = %v", v)
	}
	if v := counterValue(t, m.RateLimitHitsTotal, "rpm"); v != 1 {
		t.Errorf("rate limit hits = %v", v)
	}
}

func TestSetCircuitState(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.SetCircuitState("firefly", 1)

	var metric dto.Metric
	if err := m.CircuitState.WithLabelValues("firefly").Write(&metric); err != nil {
		t.Fatal(err)
	}
	if metric.GetGauge().GetValue() != 1 {
		t.Errorf("gauge = %v", metric.GetGauge().GetValue())
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordRequest(RequestLabels{Route: "x"})
	m.RecordGeneration("p", OutcomeAI)
	m.ObserveProvider("p", "success", time.Second)
	m.RecordTokenRefresh("error")
	m.RecordSafetyRejection("hate")
	m.RecordParseDialect("freeform")
	m.RecordFilterAction("f", "a")
	m.RecordRateLimitHit("daily")
	m.SetCircuitState("p", 0)
}

func TestTraceMiddleware_PassesThrough(t *testing.T) {
	var called bool
	h := TraceMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if !called || rec.Code != http.StatusTeapot {
		t.Errorf("called=%v code=%d", called, rec.Code)
	}
}

func TestEndSpan_WithError(t *testing.T) {
	_, span := StartSpan(t.Context(), "test")
	EndSpan(span, errors.New("boom"))
	_, span = StartClientSpan(t.Context(), "test.client")
	EndSpan(span, nil)
}
