package gateway

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/af-corp/showcase-gateway/internal/catalog"
	"github.com/af-corp/showcase-gateway/internal/httputil"
)

// Products handles GET /api/products?count=N
func (h *Handler) Products(w http.ResponseWriter, r *http.Request) {
	reqID := w.Header().Get("X-Request-ID")
	n := h.deps.Config().Catalog.SampleSize
	if raw := r.URL.Query().Get("count"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			httputil.WriteBadRequestError(w, reqID, "count must be a positive integer")
			return
		}
		n = v
	}
	h.listProducts(w, r, reqID, n)
}

// RefreshProducts handles POST /api/products/refresh. It drops the catalog
// cache and returns a fresh sample.
func (h *Handler) RefreshProducts(w http.ResponseWriter, r *http.Request) {
	reqID := w.Header().Get("X-Request-ID")
	if h.deps.Cache != nil {
		if err := h.deps.Cache.Refresh(r.Context()); err != nil {
			slog.Warn("catalog cache refresh failed", "request_id", reqID, "error", err)
		}
	}
	h.listProducts(w, r, reqID, h.deps.Config().Catalog.SampleSize)
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request, reqID string, n int) {
	if h.deps.Catalog == nil {
		httputil.WriteServiceUnavailableError(w, reqID, "Shopify credentials not configured")
		return
	}
	products, err := h.deps.Catalog.RandomProducts(r.Context(), n)
	switch {
	case errors.Is(err, catalog.ErrNotConfigured):
		httputil.WriteServiceUnavailableError(w, reqID, "Shopify credentials not configured")
		return
	case err != nil:
		slog.Error("product listing failed", "request_id", reqID, "error", err)
		httputil.WriteError(w, reqID, http.StatusBadGateway, "upstream_error", "catalog_error", "Failed to fetch products: "+err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"products": products,
		"count":    len(products),
	})
}
