package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/af-corp/showcase-gateway/internal/filter"
	"github.com/af-corp/showcase-gateway/internal/httputil"
	"github.com/af-corp/showcase-gateway/internal/router"
	"github.com/af-corp/showcase-gateway/internal/types"
)

type textRequest struct {
	Provider          string          `json:"provider"`
	APIKey            string          `json:"api_key"`
	ApplicationID     string          `json:"application_id"`
	Products          []types.Product `json:"products"`
	TargetLanguage    string          `json:"target_language"`
	TargetDemographic string          `json:"target_demographic"`
}

type writeResponse struct {
	Success           bool               `json:"success"`
	Responses         []types.TextResult `json:"responses"`
	ProductsProcessed int                `json:"products_processed"`
}

type targetResponse struct {
	Success           bool               `json:"success"`
	Enhancements      []types.TextResult `json:"enhancements"`
	ProductsProcessed int                `json:"products_processed"`
}

type textFunc func(ctx context.Context, req *types.TextRequest) ([]types.TextResult, error)

// Write handles POST /api/writer
func (h *Handler) Write(w http.ResponseWriter, r *http.Request) {
	h.text(w, r, h.deps.Text.Write, "Writer AI request timed out", func(results []types.TextResult) any {
		return writeResponse{Success: true, Responses: results, ProductsProcessed: len(results)}
	})
}

// Target handles POST /api/target
func (h *Handler) Target(w http.ResponseWriter, r *http.Request) {
	h.text(w, r, h.deps.Text.Target, "Targeting request timed out", func(results []types.TextResult) any {
		return targetResponse{Success: true, Enhancements: results, ProductsProcessed: len(results)}
	})
}

func (h *Handler) text(w http.ResponseWriter, r *http.Request, fn textFunc, timeoutMsg string, respond func([]types.TextResult) any) {
	reqID := w.Header().Get("X-Request-ID")
	receivedAt := time.Now()

	var req textRequest
	if !decode(w, r, reqID, &req) {
		return
	}

	creds := types.Credentials{APIKey: req.APIKey}
	provider, err := h.deps.Text.CheckCredentials(req.Provider, creds, req.ApplicationID)
	switch {
	case errors.Is(err, router.ErrUnknownProvider):
		httputil.WriteBadRequestError(w, reqID, "Unknown provider: "+req.Provider)
		return
	case errors.Is(err, router.ErrMissingCredentials):
		httputil.WriteBadRequestError(w, reqID, "API key and application ID are required")
		return
	case errors.Is(err, router.ErrNoProvider):
		httputil.WriteServiceUnavailableError(w, reqID, "No text provider available")
		return
	case err != nil:
		httputil.WriteInternalError(w, reqID, err.Error())
		return
	}
	if len(req.Products) == 0 {
		httputil.WriteBadRequestError(w, reqID, "No products provided")
		return
	}
	if !allowProvider(w, r, reqID, provider) {
		return
	}
	if !h.admit(w, r, reqID, provider, productTexts(req.Products), filter.SourceProductText, 0) {
		return
	}

	results, err := fn(r.Context(), &types.TextRequest{
		RequestID:         reqID,
		Provider:          req.Provider,
		Credentials:       creds,
		ApplicationID:     req.ApplicationID,
		Products:          req.Products,
		TargetLanguage:    req.TargetLanguage,
		TargetDemographic: req.TargetDemographic,
	})
	switch {
	case timedOut(r.Context()):
		httputil.WriteTimeoutError(w, reqID, timeoutMsg)
		return
	case errors.Is(err, router.ErrNoProvider):
		httputil.WriteServiceUnavailableError(w, reqID, "No text provider available")
		return
	case err != nil:
		slog.Error("text generation failed", "request_id", reqID, "provider", provider, "error", err)
		httputil.WriteInternalError(w, reqID, "Unexpected error: "+err.Error())
		return
	}

	slog.Info("text generated",
		"request_id", reqID,
		"provider", provider,
		"products", len(results),
		"duration_ms", time.Since(receivedAt).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, respond(results))
}

// productTexts collects the caller-supplied product fields that end up in
// the text prompt.
func productTexts(products []types.Product) []string {
	out := make([]string, 0, len(products)*3)
	for _, p := range products {
		for _, s := range []string{p.Title, p.Vendor, p.Description} {
			if s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}
