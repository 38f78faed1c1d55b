package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/af-corp/showcase-gateway/internal/auth"
	"github.com/af-corp/showcase-gateway/internal/httputil"
	"github.com/af-corp/showcase-gateway/internal/telemetry"
)

const (
	defaultRPM = 60

	headerRateLimitRequests          = "X-RateLimit-Limit-Requests"
	headerRateLimitRemainingRequests = "X-RateLimit-Remaining-Requests"
	headerRateLimitReset             = "X-RateLimit-Reset-Requests"
	headerRetryAfter                 = "Retry-After"
)

// RateChecker is the sliding-window check the middleware relies on.
type RateChecker interface {
	Check(ctx context.Context, key string, limit int64, window time.Duration) (LimitResult, error)
}

// QuotaChecker is the daily image quota check the middleware relies on.
type QuotaChecker interface {
	CheckDailyImages(ctx context.Context, keyID string, limit int64) (QuotaResult, error)
}

// Middleware enforces the per-key RPM limit. Requests without auth info pass
// through untouched.
func Middleware(limiter RateChecker, metrics *telemetry.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := w.Header().Get("X-Request-ID")

			authInfo, ok := auth.AuthFromContext(r.Context())
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			rpm := defaultRPM
			if authInfo.RPMLimit != nil {
				rpm = *authInfo.RPMLimit
			}

			result, _ := limiter.Check(r.Context(), "rpm:"+authInfo.KeyID, int64(rpm), time.Minute)

			w.Header().Set(headerRateLimitRequests, strconv.Itoa(rpm))
			w.Header().Set(headerRateLimitRemainingRequests, strconv.FormatInt(result.Remaining, 10))
			w.Header().Set(headerRateLimitReset, result.ResetAt.Format(time.RFC3339))

			if !result.Allowed {
				slog.Warn("rate limit exceeded",
					"request_id", reqID,
					"key_id", authInfo.KeyID,
					"dimension", "rpm",
					"limit", rpm,
				)
				metrics.RecordRateLimitHit("rpm")
				w.Header().Set(headerRetryAfter, strconv.Itoa(int(result.RetryAfter.Seconds())))
				httputil.WriteRateLimitError(w, reqID,
					fmt.Sprintf("Rate limit exceeded: %d requests per minute. Retry after %s", rpm, result.ResetAt.Format(time.RFC3339)))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// QuotaMiddleware enforces the per-key daily image quota. It belongs on the
// image routes only; keys without a quota pass through.
func QuotaMiddleware(quota QuotaChecker, metrics *telemetry.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authInfo, ok := auth.AuthFromContext(r.Context())
			if !ok || authInfo.DailyImageQuota == nil {
				next.ServeHTTP(w, r)
				return
			}

			qr, _ := quota.CheckDailyImages(r.Context(), authInfo.KeyID, int64(*authInfo.DailyImageQuota))
			if !qr.Allowed {
				reqID := w.Header().Get("X-Request-ID")
				slog.Warn("daily image quota exceeded",
					"request_id", reqID,
					"key_id", authInfo.KeyID,
					"used", qr.Used,
					"limit", qr.Limit,
				)
				metrics.RecordRateLimitHit("daily_images")
				httputil.WriteQuotaExceededError(w, reqID,
					fmt.Sprintf("Daily image quota exceeded: generated %d of %d images", qr.Used, qr.Limit))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
