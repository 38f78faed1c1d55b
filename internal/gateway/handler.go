package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/af-corp/showcase-gateway/internal/auth"
	"github.com/af-corp/showcase-gateway/internal/catalog"
	"github.com/af-corp/showcase-gateway/internal/config"
	"github.com/af-corp/showcase-gateway/internal/filter"
	"github.com/af-corp/showcase-gateway/internal/generation"
	"github.com/af-corp/showcase-gateway/internal/httputil"
	"github.com/af-corp/showcase-gateway/internal/records"
	"github.com/af-corp/showcase-gateway/internal/showcase"
	"github.com/af-corp/showcase-gateway/internal/telemetry"
	"github.com/af-corp/showcase-gateway/internal/types"
)

// maxBodyBytes bounds JSON request bodies. Mockup captures arrive inline as
// base64, so this is well above a plain prompt payload.
const maxBodyBytes = 25 << 20

// ImageGenerator runs the image pipeline.
type ImageGenerator interface {
	Generate(ctx context.Context, req *types.GenerationRequest) ([]types.GenerationResult, error)
	CheckCredentials(requested string, creds types.Credentials) (string, error)
	Status(creds types.Credentials) []generation.ProviderStatus
}

// Copywriter runs the text pipelines.
type Copywriter interface {
	Write(ctx context.Context, req *types.TextRequest) ([]types.TextResult, error)
	Target(ctx context.Context, req *types.TextRequest) ([]types.TextResult, error)
	CheckCredentials(requested string, creds types.Credentials, appID string) (string, error)
}

type CatalogRefresher interface {
	Refresh(ctx context.Context) error
}

// Recorder persists and reads showcase post records.
type Recorder interface {
	Record(ctx context.Context, req showcase.RecordRequest) (*showcase.RecordResult, error)
	Get(ctx context.Context, sessionID string) (*records.Record, error)
	MarkDisplayed(ctx context.Context, sessionID string) error
}

type Poster interface {
	Configured() bool
	Post(ctx context.Context, imageURL, caption string) (string, error)
}

// Authorizer mints Instagram user tokens through the OAuth code flow.
type Authorizer interface {
	Configured() bool
	RedirectURL(fallback string) string
	AuthCodeURL(redirectURL, state string) (string, error)
	Exchange(ctx context.Context, code, redirectURL string) (string, error)
}

type QuotaRecorder interface {
	RecordImages(ctx context.Context, keyID string, n int64) error
}

// Deps are the collaborators of a Handler. Any of Catalog, Cache, Showcase,
// Social, OAuth, Filters and Quota may be nil; the endpoints that need a
// missing one answer 503.
type Deps struct {
	Images   ImageGenerator
	Text     Copywriter
	Catalog  catalog.Catalog
	Cache    CatalogRefresher
	Showcase Recorder
	Social   Poster
	OAuth    Authorizer
	Filters  *filter.Chain
	Quota    QuotaRecorder
	Config   func() *config.Config
	Metrics  *telemetry.Metrics
	// Fetch is used for the image proxy and data-URL endpoints.
	Fetch *http.Client
}

// Handler holds dependencies for the showcase HTTP handlers.
type Handler struct {
	deps Deps
}

func NewHandler(d Deps) *Handler {
	if d.Fetch == nil {
		d.Fetch = NewFetchClient(30 * time.Second)
	}
	if d.Config == nil {
		d.Config = config.DefaultConfig
	}
	return &Handler{deps: d}
}

// Health handles GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"message": "Shopify Product Showcase is running",
	})
}

// decode reads a JSON body into v and writes a 400 on failure.
func decode(w http.ResponseWriter, r *http.Request, reqID string, v any) bool {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		httputil.WriteBadRequestError(w, reqID, "Failed to read request body")
		return false
	}
	defer r.Body.Close()

	if len(body) == 0 {
		httputil.WriteBadRequestError(w, reqID, "No data provided")
		return false
	}
	if err := json.Unmarshal(body, v); err != nil {
		httputil.WriteBadRequestError(w, reqID, "Invalid JSON: "+err.Error())
		return false
	}
	return true
}

// admit runs the content filter chain over texts. It writes the 451 and
// returns false when a filter blocks.
func (h *Handler) admit(w http.ResponseWriter, r *http.Request, reqID, provider string, texts []string, source filter.Source, promptCount int) bool {
	if h.deps.Filters == nil {
		return true
	}
	fr := &filter.Request{
		RequestID:   reqID,
		Route:       r.URL.Path,
		Provider:    provider,
		Texts:       texts,
		Source:      source,
		PromptCount: promptCount,
	}
	if info, ok := auth.AuthFromContext(r.Context()); ok {
		fr.ClientID = info.KeyID
		fr.Client = info.Name
	}

	results, blocked := h.deps.Filters.Run(r.Context(), fr)
	if blocked != nil {
		slog.Warn("request blocked by filter",
			"request_id", reqID,
			"filter", blocked.FilterName,
			"detections", blocked.Detections,
			"score", blocked.Score,
			"client_id", fr.ClientID,
		)
		h.deps.Metrics.RecordFilterAction(blocked.FilterName, string(blocked.Action))
		httputil.WriteContentBlockedError(w, reqID, blocked.Message)
		return false
	}
	for _, res := range results {
		if res.Action == filter.ActionFlag {
			slog.Info("request flagged by filter",
				"request_id", reqID,
				"filter", res.FilterName,
				"score", res.Score,
			)
			h.deps.Metrics.RecordFilterAction(res.FilterName, string(filter.ActionFlag))
		}
	}
	return true
}

// allowProvider enforces the client key's provider allow list.
func allowProvider(w http.ResponseWriter, r *http.Request, reqID, provider string) bool {
	info, ok := auth.AuthFromContext(r.Context())
	if !ok || info.AllowsProvider(provider) {
		return true
	}
	httputil.WriteError(w, reqID, http.StatusForbidden, "permission_error", "provider_not_allowed",
		"Client key is not allowed to use provider "+provider)
	return false
}

func clientID(ctx context.Context) string {
	if info, ok := auth.AuthFromContext(ctx); ok {
		return info.KeyID
	}
	return ""
}

func timedOut(ctx context.Context) bool {
	return errors.Is(ctx.Err(), context.DeadlineExceeded)
}
