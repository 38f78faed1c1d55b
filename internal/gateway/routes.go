package gateway

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/af-corp/showcase-gateway/internal/telemetry"
)

// Guards wrap the provider-calling endpoints. Common applies to all of them,
// typically client-key auth and the RPM limit; Images is added on the image
// routes only, for the daily image quota.
type Guards struct {
	Common []func(http.Handler) http.Handler
	Images []func(http.Handler) http.Handler
}

// Routes mounts every endpoint on r.
func (h *Handler) Routes(r chi.Router, g Guards) {
	r.Use(h.instrument)

	r.Get("/health", h.Health)

	r.Group(func(r chi.Router) {
		r.Use(g.Common...)

		r.Group(func(r chi.Router) {
			r.Use(g.Images...)
			r.Post("/api/images/generate", h.Generate)
			r.Post("/api/images/generate-with-product", h.GenerateWithProduct)
			// Provider-named aliases default the provider when the body omits it.
			r.Post("/api/dalle/generate", withProvider("dalle", h.Generate))
			r.Post("/api/dalle/generate-with-product", withProvider("dalle", h.GenerateWithProduct))
			r.Post("/api/firefly/generate", withProvider("firefly", h.Generate))
		})

		r.Post("/api/writer", h.Write)
		r.Post("/api/target", h.Target)
	})

	r.Get("/api/images/status", h.Status)
	r.Get("/api/dalle/status", h.Status)

	r.Get("/api/products", h.Products)
	r.Post("/api/products/refresh", h.RefreshProducts)
	r.Post("/api/refresh", h.RefreshProducts)

	r.Get("/api/instagram/auth-url", h.InstagramAuthURL)
	r.Get(oauthCallbackPath, h.InstagramCallback)
	r.Post("/api/instagram/post", h.PostInstagram)
	r.Post("/api/instagram/record", h.RecordPost)
	r.Get("/api/instagram/records/{session_id}", h.GetRecord)
	r.Post("/api/instagram/records/{session_id}/displayed", h.MarkDisplayed)
	r.Get("/api/instagram-preview/{session_id}", h.Preview)

	r.Post("/api/image-to-dataurl", h.ImageToDataURL)
	r.Get("/api/proxy-image", h.ProxyImage)
}

// instrument records one request metric per call, labelled by route pattern
// so path parameters do not explode cardinality.
func (h *Handler) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		h.deps.Metrics.RecordRequest(telemetry.RequestLabels{
			Route:      route,
			Status:     strconv.Itoa(status),
			DurationMs: float64(time.Since(start).Milliseconds()),
		})
	})
}

type contextKey string

const (
	requestIDKey       contextKey = "request_id"
	defaultProviderKey contextKey = "default_provider"
)

func withProvider(name string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		next(w, r.WithContext(context.WithValue(r.Context(), defaultProviderKey, name)))
	}
}

// requestedProvider is the body's provider, or the route's default.
func requestedProvider(r *http.Request, fromBody string) string {
	if fromBody != "" {
		return fromBody
	}
	name, _ := r.Context().Value(defaultProviderKey).(string)
	return name
}

// RequestID propagates X-Request-ID, generating one when the caller sent none.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = generateRequestID()
		}
		w.Header().Set("X-Request-ID", reqID)
		ctx := context.WithValue(r.Context(), requestIDKey, reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func generateRequestID() string {
	b := make([]byte, 8)
	rand.Read(b)
	return fmt.Sprintf("req_%d_%s", time.Now().UnixMilli(), hex.EncodeToString(b))
}
