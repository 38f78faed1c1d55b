package gateway

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/af-corp/showcase-gateway/internal/catalog"
	"github.com/af-corp/showcase-gateway/internal/filter"
	"github.com/af-corp/showcase-gateway/internal/httputil"
	"github.com/af-corp/showcase-gateway/internal/router"
	"github.com/af-corp/showcase-gateway/internal/types"
)

type generateRequest struct {
	Provider string `json:"provider"`
	types.Credentials
	Prompts           []string        `json:"prompts"`
	Products          []types.Product `json:"products"`
	ReferenceImageURL string          `json:"reference_image_url"`
	Size              string          `json:"size"`
	Quality           string          `json:"quality"`
	Count             int             `json:"count"`
}

type generateResponse struct {
	Success  bool                     `json:"success"`
	Provider string                   `json:"provider"`
	Results  []types.GenerationResult `json:"results"`
}

// Generate handles POST /api/images/generate
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	reqID := w.Header().Get("X-Request-ID")
	receivedAt := time.Now()

	var req generateRequest
	if !decode(w, r, reqID, &req) {
		return
	}
	req.Provider = requestedProvider(r, req.Provider)

	// Blank prompts stay in the batch; each comes back as its own rejected result.
	prompts := req.Prompts
	if len(prompts) == 0 {
		httputil.WriteBadRequestError(w, reqID, "At least one prompt is required")
		return
	}
	if limit := h.deps.Config().Generation.MaxPrompts; limit > 0 && len(prompts) > limit {
		httputil.WriteBadRequestError(w, reqID, fmt.Sprintf("At most %d prompts per request", limit))
		return
	}

	provider, ok := h.checkImageCredentials(w, r, reqID, req.Provider, req.Credentials)
	if !ok {
		return
	}
	if !h.admit(w, r, reqID, provider, prompts, filter.SourcePrompts, len(prompts)) {
		return
	}

	genReq := &types.GenerationRequest{
		RequestID:         reqID,
		ClientID:          clientID(r.Context()),
		Provider:          req.Provider,
		Credentials:       req.Credentials,
		Prompts:           prompts,
		Products:          req.Products,
		ReferenceImageURL: req.ReferenceImageURL,
		Size:              req.Size,
		Quality:           req.Quality,
		Count:             req.Count,
		ReceivedAt:        receivedAt,
	}
	results, ok := h.generate(w, r, genReq)
	if !ok {
		return
	}

	slog.Info("images generated",
		"request_id", reqID,
		"provider", provider,
		"prompts", len(prompts),
		"caller_credentials", !req.Credentials.Empty(),
		"duration_ms", time.Since(receivedAt).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, generateResponse{
		Success:  true,
		Provider: provider,
		Results:  results,
	})
}

type withProductRequest struct {
	Provider string `json:"provider"`
	types.Credentials
	ProductID types.FlexString `json:"product_id"`
	Prompt    string           `json:"prompt"`
	Size      string           `json:"size"`
	Quality   string           `json:"quality"`
}

type productData struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Category       string `json:"category"`
	ReferenceImage string `json:"reference_image"`
}

type withProductResponse struct {
	Success       bool        `json:"success"`
	Provider      string      `json:"provider"`
	ImageURL      string      `json:"image_url"`
	RevisedPrompt string      `json:"revised_prompt"`
	ProductData   productData `json:"product_data"`
	UsedReference bool        `json:"used_reference"`
	UsedFallback  bool        `json:"used_fallback"`
	FallbackInfo  string      `json:"fallback_info,omitempty"`
}

// GenerateWithProduct handles POST /api/images/generate-with-product. The
// product's first image is the reference and, when generation fails, the
// fallback.
func (h *Handler) GenerateWithProduct(w http.ResponseWriter, r *http.Request) {
	reqID := w.Header().Get("X-Request-ID")
	receivedAt := time.Now()

	var req withProductRequest
	if !decode(w, r, reqID, &req) {
		return
	}
	req.Provider = requestedProvider(r, req.Provider)
	if strings.TrimSpace(req.ProductID.String()) == "" {
		httputil.WriteBadRequestError(w, reqID, "Product ID is required")
		return
	}
	if h.deps.Catalog == nil {
		httputil.WriteServiceUnavailableError(w, reqID, "Product catalog is not configured")
		return
	}

	product, err := h.deps.Catalog.Product(r.Context(), req.ProductID.String())
	switch {
	case errors.Is(err, catalog.ErrInvalidID):
		httputil.WriteBadRequestError(w, reqID, "Invalid product ID format")
		return
	case errors.Is(err, catalog.ErrNotConfigured):
		httputil.WriteServiceUnavailableError(w, reqID, "Product catalog is not configured")
		return
	case errors.Is(err, catalog.ErrNotFound):
		httputil.WriteBadRequestError(w, reqID, "Failed to fetch product: "+err.Error())
		return
	case err != nil:
		slog.Error("product fetch failed", "request_id", reqID, "product_id", req.ProductID.String(), "error", err)
		httputil.WriteError(w, reqID, http.StatusBadGateway, "upstream_error", "catalog_error", "Failed to fetch product: "+err.Error())
		return
	}
	if len(product.Images) == 0 {
		httputil.WriteBadRequestError(w, reqID, "Product has no images to use as reference")
		return
	}

	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		prompt = fmt.Sprintf("Professional product photography of %s, clean background, high quality commercial style",
			product.TitleOr("the product"))
	}

	provider, ok := h.checkImageCredentials(w, r, reqID, req.Provider, req.Credentials)
	if !ok {
		return
	}
	if !h.admit(w, r, reqID, provider, []string{prompt}, filter.SourcePrompts, 1) {
		return
	}

	reference := product.Images[0]
	results, ok := h.generate(w, r, &types.GenerationRequest{
		RequestID:         reqID,
		ClientID:          clientID(r.Context()),
		Provider:          req.Provider,
		Credentials:       req.Credentials,
		Prompts:           []string{prompt},
		Products:          []types.Product{*product},
		ReferenceImageURL: reference,
		Size:              req.Size,
		Quality:           req.Quality,
		Count:             1,
		ReceivedAt:        receivedAt,
	})
	if !ok {
		return
	}

	res := results[0]
	if res.Error != nil {
		httputil.WriteBadRequestError(w, reqID, *res.Error)
		return
	}
	img := res.Images[0]
	httputil.WriteJSON(w, http.StatusOK, withProductResponse{
		Success:       true,
		Provider:      firstNonEmpty(res.Provider, provider),
		ImageURL:      img.URL,
		RevisedPrompt: firstNonEmpty(img.RevisedPrompt, prompt),
		ProductData: productData{
			ID:             product.ID.String(),
			Name:           product.Title,
			Category:       product.ProductType,
			ReferenceImage: reference,
		},
		UsedReference: !res.UsedFallback,
		UsedFallback:  res.UsedFallback,
		FallbackInfo:  res.FallbackInfo,
	})
}

// Status handles GET /api/images/status
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"providers": h.deps.Images.Status(types.Credentials{}),
	})
}

// checkImageCredentials resolves the provider and writes the 400/403 when the
// caller may not or cannot use it. An unavailable provider is not an error
// here: generation then serves fallbacks.
func (h *Handler) checkImageCredentials(w http.ResponseWriter, r *http.Request, reqID, requested string, creds types.Credentials) (string, bool) {
	provider, err := h.deps.Images.CheckCredentials(requested, creds)
	switch {
	case errors.Is(err, router.ErrUnknownProvider):
		httputil.WriteBadRequestError(w, reqID, "Unknown provider: "+requested)
		return "", false
	case errors.Is(err, router.ErrMissingCredentials):
		httputil.WriteBadRequestError(w, reqID, "API key is required. Provide api_key in the request or configure the provider.")
		return "", false
	case err != nil:
		httputil.WriteInternalError(w, reqID, err.Error())
		return "", false
	}
	if !allowProvider(w, r, reqID, provider) {
		return "", false
	}
	return provider, true
}

// generate calls the image pipeline and charges the client's daily quota for
// the images a provider actually produced.
func (h *Handler) generate(w http.ResponseWriter, r *http.Request, req *types.GenerationRequest) ([]types.GenerationResult, bool) {
	results, err := h.deps.Images.Generate(r.Context(), req)
	switch {
	case errors.Is(err, router.ErrUnknownProvider):
		httputil.WriteBadRequestError(w, req.RequestID, "Unknown provider: "+req.Provider)
		return nil, false
	case err != nil:
		slog.Error("image generation failed", "request_id", req.RequestID, "error", err)
		httputil.WriteInternalError(w, req.RequestID, "Image generation failed")
		return nil, false
	}

	var generated int64
	for _, res := range results {
		if res.Error == nil && !res.UsedFallback {
			generated += int64(len(res.Images))
		}
	}
	if h.deps.Quota != nil && req.ClientID != "" && generated > 0 {
		if err := h.deps.Quota.RecordImages(r.Context(), req.ClientID, generated); err != nil {
			slog.Warn("failed to record image quota", "request_id", req.RequestID, "error", err)
		}
	}
	return results, true
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
