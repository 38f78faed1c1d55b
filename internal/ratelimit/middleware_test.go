package ratelimit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/af-corp/showcase-gateway/internal/auth"
	"github.com/af-corp/showcase-gateway/internal/httputil"
	"github.com/af-corp/showcase-gateway/internal/telemetry"
)

func intPtr(v int) *int { return &v }

type denyLimiter struct{}

func (denyLimiter) Check(_ context.Context, _ string, _ int64, window time.Duration) (LimitResult, error) {
	return LimitResult{Allowed: false, ResetAt: time.Now().Add(window), RetryAfter: window / 2}, nil
}

type fixedQuota struct{ used int64 }

func (f fixedQuota) CheckDailyImages(_ context.Context, _ string, limit int64) (QuotaResult, error) {
	return QuotaResult{Allowed: f.used < limit, Used: f.used, Limit: limit}, nil
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func authedRequest(info *auth.AuthInfo) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/images/generate", nil)
	return req.WithContext(auth.ContextWithAuth(req.Context(), info))
}

func hitCount(t *testing.T, reg *prometheus.Registry, dimension string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != "showcase_ratelimit_hits_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "dimension" && lp.GetValue() == dimension {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestMiddleware_AllowsRequest(t *testing.T) {
	handler := Middleware(NewLimiter(nil), nil)(okHandler())

	rec := httptest.NewRecorder()
	rec.Header().Set("X-Request-ID", "req-1")
	handler.ServeHTTP(rec, authedRequest(&auth.AuthInfo{KeyID: "key-1", RPMLimit: intPtr(100)}))

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if h := rec.Header().Get(headerRateLimitRequests); h != "100" {
		t.Errorf("expected X-RateLimit-Limit-Requests=100, got %s", h)
	}
	for _, h := range []string{headerRateLimitRemainingRequests, headerRateLimitReset} {
		if rec.Header().Get(h) == "" {
			t.Errorf("missing header: %s", h)
		}
	}
}

func TestMiddleware_DefaultRPM(t *testing.T) {
	handler := Middleware(NewLimiter(nil), nil)(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(&auth.AuthInfo{KeyID: "key-2"}))

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if h := rec.Header().Get(headerRateLimitRequests); h != "60" {
		t.Errorf("expected default RPM=60, got %s", h)
	}
}

func TestMiddleware_NoAuth_PassThrough(t *testing.T) {
	called := false
	handler := Middleware(denyLimiter{}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/images/generate", nil))

	if !called {
		t.Error("expected handler to be called when no auth context")
	}
}

func TestMiddleware_RateLimited(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := telemetry.NewMetrics(reg)
	handler := Middleware(denyLimiter{}, metrics)(okHandler())

	rec := httptest.NewRecorder()
	rec.Header().Set("X-Request-ID", "req-3")
	handler.ServeHTTP(rec, authedRequest(&auth.AuthInfo{KeyID: "key-3", RPMLimit: intPtr(5)}))

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get(headerRetryAfter) != "30" {
		t.Errorf("expected Retry-After=30, got %q", rec.Header().Get(headerRetryAfter))
	}
	var apiErr httputil.APIError
	if err := json.NewDecoder(rec.Body).Decode(&apiErr); err != nil {
		t.Fatalf("failed to decode error: %v", err)
	}
	if apiErr.Error.Code != "rate_limit_exceeded" {
		t.Errorf("expected code 'rate_limit_exceeded', got %s", apiErr.Error.Code)
	}
	if got := hitCount(t, reg, "rpm"); got != 1 {
		t.Errorf("rpm hits = %v, want 1", got)
	}
}

func TestQuotaMiddleware_Exceeded(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := telemetry.NewMetrics(reg)
	handler := QuotaMiddleware(fixedQuota{used: 20}, metrics)(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(&auth.AuthInfo{KeyID: "key-4", DailyImageQuota: intPtr(20)}))

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	var apiErr httputil.APIError
	if err := json.NewDecoder(rec.Body).Decode(&apiErr); err != nil {
		t.Fatalf("failed to decode error: %v", err)
	}
	if apiErr.Error.Code != "daily_quota_exceeded" {
		t.Errorf("expected code 'daily_quota_exceeded', got %s", apiErr.Error.Code)
	}
	if got := hitCount(t, reg, "daily_images"); got != 1 {
		t.Errorf("daily_images hits = %v, want 1", got)
	}
}

func TestQuotaMiddleware_UnderQuota(t *testing.T) {
	handler := QuotaMiddleware(fixedQuota{used: 19}, nil)(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(&auth.AuthInfo{KeyID: "key-5", DailyImageQuota: intPtr(20)}))

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestQuotaMiddleware_PassThrough(t *testing.T) {
	tests := []struct {
		name string
		req  *http.Request
	}{
		{"no auth", httptest.NewRequest(http.MethodPost, "/api/images/generate", nil)},
		{"no quota on key", authedRequest(&auth.AuthInfo{KeyID: "key-6"})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := QuotaMiddleware(fixedQuota{used: 1000}, nil)(okHandler())
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, tt.req)
			if rec.Code != http.StatusOK {
				t.Errorf("expected 200, got %d", rec.Code)
			}
		})
	}
}
