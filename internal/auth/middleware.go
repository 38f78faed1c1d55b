package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/af-corp/showcase-gateway/internal/httputil"
)

// Middleware authenticates requests carrying a client key, either as a Bearer
// token or in the X-Client-Key header. Keys not starting with prefix are
// rejected without a store lookup; an empty prefix accepts any key.
func Middleware(store KeyStore, prefix string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := w.Header().Get("X-Request-ID")

			token, msg := extractKey(r)
			if msg != "" {
				httputil.WriteAuthError(w, reqID, msg)
				return
			}

			if prefix != "" && !strings.HasPrefix(token, prefix+"-") {
				slog.Warn("auth failed: foreign key prefix", "key_prefix", safePrefix(token))
				httputil.WriteAuthError(w, reqID, "Invalid client key")
				return
			}

			meta, err := store.Lookup(r.Context(), HashKey(token))
			if err != nil {
				slog.Error("key lookup failed", "error", err, "key_prefix", safePrefix(token))
				httputil.WriteInternalError(w, reqID, "Internal error during authentication")
				return
			}
			if meta == nil {
				slog.Warn("auth failed: key not found", "key_prefix", safePrefix(token))
				httputil.WriteAuthError(w, reqID, "Invalid client key")
				return
			}

			info := &AuthInfo{
				KeyID:            meta.ID,
				Name:             meta.Name,
				AllowedProviders: meta.AllowedProviders,
				RPMLimit:         meta.RPMLimit,
				DailyImageQuota:  meta.DailyImageQuota,
			}
			next.ServeHTTP(w, r.WithContext(ContextWithAuth(r.Context(), info)))
		})
	}
}

func extractKey(r *http.Request) (key, problem string) {
	if k := strings.TrimSpace(r.Header.Get("X-Client-Key")); k != "" {
		return k, ""
	}
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", "Missing client key. Use: Authorization: Bearer <client-key>"
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == authHeader {
		return "", "Invalid Authorization format. Use: Authorization: Bearer <client-key>"
	}
	if token == "" {
		return "", "Empty client key"
	}
	return token, ""
}

// safePrefix returns a safe-to-log prefix of a key (never the full key).
func safePrefix(key string) string {
	if len(key) > 20 {
		return key[:20] + "..."
	}
	return key
}
