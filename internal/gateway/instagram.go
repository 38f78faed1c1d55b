package gateway

import (
	"errors"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/af-corp/showcase-gateway/internal/httputil"
	"github.com/af-corp/showcase-gateway/internal/records"
	"github.com/af-corp/showcase-gateway/internal/screenshot"
	"github.com/af-corp/showcase-gateway/internal/showcase"
)

type postRequest struct {
	ImageURL string `json:"image_url"`
	Caption  string `json:"caption"`
}

// PostInstagram handles POST /api/instagram/post
func (h *Handler) PostInstagram(w http.ResponseWriter, r *http.Request) {
	reqID := w.Header().Get("X-Request-ID")

	var req postRequest
	if !decode(w, r, reqID, &req) {
		return
	}
	if strings.TrimSpace(req.ImageURL) == "" {
		httputil.WriteBadRequestError(w, reqID, "Image URL is required")
		return
	}
	if h.deps.Social == nil || !h.deps.Social.Configured() {
		httputil.WriteServiceUnavailableError(w, reqID, "Instagram access token not configured")
		return
	}

	mediaID, err := h.deps.Social.Post(r.Context(), req.ImageURL, req.Caption)
	if err != nil {
		slog.Error("instagram post failed", "request_id", reqID, "error", err)
		httputil.WriteError(w, reqID, http.StatusBadGateway, "upstream_error", "instagram_error", err.Error())
		return
	}
	slog.Info("posted to instagram", "request_id", reqID, "media_id", mediaID)
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"media_id": mediaID,
		"message":  "Posted to Instagram successfully",
	})
}

type recordResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	*showcase.RecordResult
}

// RecordPost handles POST /api/instagram/record
func (h *Handler) RecordPost(w http.ResponseWriter, r *http.Request) {
	reqID := w.Header().Get("X-Request-ID")
	if h.deps.Showcase == nil {
		httputil.WriteServiceUnavailableError(w, reqID, "Record store not configured")
		return
	}

	var req showcase.RecordRequest
	if !decode(w, r, reqID, &req) {
		return
	}

	res, err := h.deps.Showcase.Record(r.Context(), req)
	if err != nil {
		var reqErr *showcase.RequestError
		if errors.As(err, &reqErr) {
			httputil.WriteBadRequestError(w, reqID, reqErr.Msg)
			return
		}
		slog.Error("failed to record post", "request_id", reqID, "product_id", req.ProductID, "error", err)
		httputil.WriteInternalError(w, reqID, "Failed to record post: "+err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, recordResponse{
		Success:      true,
		Message:      "Instagram post recorded successfully",
		RecordResult: res,
	})
}

// GetRecord handles GET /api/instagram/records/{session_id}
func (h *Handler) GetRecord(w http.ResponseWriter, r *http.Request) {
	reqID := w.Header().Get("X-Request-ID")
	rec, ok := h.lookupRecord(w, r, reqID)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"record":  rec,
	})
}

// MarkDisplayed handles POST /api/instagram/records/{session_id}/displayed
func (h *Handler) MarkDisplayed(w http.ResponseWriter, r *http.Request) {
	reqID := w.Header().Get("X-Request-ID")
	if h.deps.Showcase == nil {
		httputil.WriteServiceUnavailableError(w, reqID, "Record store not configured")
		return
	}
	sessionID := chi.URLParam(r, "session_id")
	if err := h.deps.Showcase.MarkDisplayed(r.Context(), sessionID); err != nil {
		h.writeRecordError(w, reqID, sessionID, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"session_id": sessionID,
	})
}

func (h *Handler) lookupRecord(w http.ResponseWriter, r *http.Request, reqID string) (*records.Record, bool) {
	if h.deps.Showcase == nil {
		httputil.WriteServiceUnavailableError(w, reqID, "Record store not configured")
		return nil, false
	}
	sessionID := chi.URLParam(r, "session_id")
	rec, err := h.deps.Showcase.Get(r.Context(), sessionID)
	if err != nil {
		h.writeRecordError(w, reqID, sessionID, err)
		return nil, false
	}
	return rec, true
}

func (h *Handler) writeRecordError(w http.ResponseWriter, reqID, sessionID string, err error) {
	if errors.Is(err, records.ErrNotFound) {
		httputil.WriteError(w, reqID, http.StatusNotFound, "not_found_error", "record_not_found",
			"No record for session "+sessionID)
		return
	}
	slog.Error("record lookup failed", "request_id", reqID, "session_id", sessionID, "error", err)
	httputil.WriteInternalError(w, reqID, "Record lookup failed")
}

// Preview handles GET /api/instagram-preview/{session_id}. Query parameters
// override the stored record; without either the image URL is required.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p := screenshot.Preview{
		ImageURL:    q.Get("image_url"),
		Caption:     q.Get("caption"),
		ProductName: q.Get("product_name"),
	}

	if h.deps.Showcase != nil {
		if rec, err := h.deps.Showcase.Get(r.Context(), chi.URLParam(r, "session_id")); err == nil {
			if p.ImageURL == "" && len(rec.AssetURL) > 0 {
				p.ImageURL = rec.AssetURL[0]
			}
			p.Caption = firstNonEmpty(p.Caption, rec.Caption)
			p.ProductName = firstNonEmpty(p.ProductName, rec.ProductName)
			p.UserName = rec.UserName
		}
	}
	if p.ImageURL == "" {
		http.Error(w, "Image URL required", http.StatusBadRequest)
		return
	}

	p.Likes = 500 + rand.IntN(4501)
	if v, err := strconv.Atoi(q.Get("likes")); err == nil && v >= 0 {
		p.Likes = v
	}

	page, err := screenshot.RenderPreview(p)
	if err != nil {
		slog.Error("preview render failed", "error", err)
		http.Error(w, "Failed to render preview", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(page))
}
