// Package showcase turns a generated image into a persisted showcase post:
// mockup capture, upload and record creation.
package showcase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/af-corp/showcase-gateway/internal/catalog"
	"github.com/af-corp/showcase-gateway/internal/records"
	"github.com/af-corp/showcase-gateway/internal/screenshot"
	"github.com/af-corp/showcase-gateway/internal/storage"
)

// RequestError is a caller mistake; handlers map it to 400.
type RequestError struct {
	Msg string
}

func (e *RequestError) Error() string { return e.Msg }

func badRequest(format string, args ...any) error {
	return &RequestError{Msg: fmt.Sprintf(format, args...)}
}

// Renderer captures preview HTML as a base64 JPEG.
type Renderer interface {
	Configured() bool
	CaptureHTML(ctx context.Context, html string, width, height int) (*screenshot.Capture, error)
}

// Deps are the collaborators of a Service. Uploader and Renderer may be nil.
type Deps struct {
	Catalog  catalog.Catalog
	Uploader storage.Uploader
	Renderer Renderer
	Records  records.Store
	ShopName string
	UserName string
	Now      func() time.Time
}

type Service struct {
	deps Deps
}

func NewService(d Deps) *Service {
	if d.Now == nil {
		d.Now = time.Now
	}
	return &Service{deps: d}
}

// RecordRequest asks for a post record. MockupImageData, when set, is a base64
// or data-URL image captured by the caller and takes precedence over rendering.
type RecordRequest struct {
	ProductID       string `json:"product_id"`
	ImageURL        string `json:"image_url"`
	Caption         string `json:"caption"`
	MockupImageData string `json:"mockup_image_data,omitempty"`
}

type ProductInfo struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	URL      string `json:"url"`
}

type RecordResult struct {
	RecordID      string          `json:"record_id"`
	SessionID     string          `json:"session_id"`
	AssetURL      string          `json:"asset_url"`
	MockupCreated bool            `json:"mockup_created"`
	Product       ProductInfo     `json:"product_data"`
	Upload        *storage.Object `json:"cloud_storage,omitempty"`
}

// Record fetches the product, settles on an asset and persists the record.
// The asset is, in order of preference: the caller's mockup, a rendered
// preview, or the image URL itself.
func (s *Service) Record(ctx context.Context, req RecordRequest) (*RecordResult, error) {
	if strings.TrimSpace(req.ProductID) == "" {
		return nil, badRequest("Product ID is required")
	}
	if strings.TrimSpace(req.ImageURL) == "" {
		return nil, badRequest("Image URL is required")
	}

	product, err := s.deps.Catalog.Product(ctx, req.ProductID)
	switch {
	case errors.Is(err, catalog.ErrInvalidID):
		return nil, badRequest("Invalid product ID format: %s", req.ProductID)
	case err != nil:
		return nil, badRequest("Failed to fetch product details: %v", err)
	}

	info := ProductInfo{
		Name:     product.TitleOr("Unknown Product"),
		Category: product.ProductType,
		URL:      fmt.Sprintf("https://%s.myshopify.com/products/%s", firstNonEmpty(s.deps.ShopName, "shop"), product.Handle),
	}
	if info.Category == "" {
		info.Category = "General"
	}

	sessionID := uuid.NewString()
	res := &RecordResult{SessionID: sessionID, AssetURL: req.ImageURL, Product: info}

	mockup := req.MockupImageData
	if mockup == "" {
		mockup = s.render(ctx, req, info)
	}
	if mockup != "" {
		res.MockupCreated = true
		res.AssetURL, res.Upload = s.upload(ctx, sessionID, mockup, req.Caption)
	}

	rec := records.NewRecord(records.Draft{
		ProductID:       req.ProductID,
		ProductURL:      info.URL,
		AssetURLs:       []string{res.AssetURL},
		ProductName:     info.Name,
		ProductCategory: info.Category,
		Caption:         req.Caption,
		UserName:        s.deps.UserName,
	}, sessionID, s.deps.Now())

	id, err := s.deps.Records.Create(ctx, rec)
	if err != nil {
		s.discard(ctx, res.Upload)
		return nil, fmt.Errorf("failed to record post: %w", err)
	}
	res.RecordID = id

	slog.Info("showcase post recorded",
		"session_id", sessionID,
		"record_id", id,
		"product_id", req.ProductID,
		"mockup", res.MockupCreated,
	)
	return res, nil
}

// Get returns the record for sessionID.
func (s *Service) Get(ctx context.Context, sessionID string) (*records.Record, error) {
	return s.deps.Records.BySession(ctx, sessionID)
}

// MarkDisplayed bumps the displayed counter by one.
func (s *Service) MarkDisplayed(ctx context.Context, sessionID string) error {
	return s.deps.Records.IncrementDisplayed(ctx, sessionID, 1)
}

// render captures the preview page; "" when no renderer is available or it fails.
func (s *Service) render(ctx context.Context, req RecordRequest, info ProductInfo) string {
	if s.deps.Renderer == nil || !s.deps.Renderer.Configured() {
		return ""
	}
	html, err := screenshot.RenderPreview(screenshot.Preview{
		ImageURL:    req.ImageURL,
		Caption:     req.Caption,
		ProductName: info.Name,
		UserName:    s.deps.UserName,
		Likes:       500 + rand.IntN(4501),
	})
	if err != nil {
		slog.Warn("preview render failed", "error", err)
		return ""
	}
	capture, err := s.deps.Renderer.CaptureHTML(ctx, html, 0, 0)
	if err != nil {
		slog.Warn("screenshot capture failed, using image URL", "error", err)
		return ""
	}
	return capture.ImageData
}

// upload stores the mockup and returns its public URL. Without an uploader, or
// when the upload fails, the mockup is returned inline as a data URL.
func (s *Service) upload(ctx context.Context, sessionID, mockup, caption string) (string, *storage.Object) {
	inline := mockup
	if !strings.HasPrefix(inline, "data:") {
		inline = "data:image/jpeg;base64," + inline
	}
	if s.deps.Uploader == nil {
		return inline, nil
	}

	data, err := storage.DecodeImage(mockup)
	if err != nil {
		slog.Warn("mockup is not valid base64, storing inline", "session_id", sessionID, "error", err)
		return inline, nil
	}
	obj, err := s.deps.Uploader.Upload(ctx, sessionID, data, caption)
	if err != nil {
		slog.Warn("mockup upload failed, storing inline", "session_id", sessionID, "error", err)
		return inline, nil
	}
	return obj.PublicURL, obj
}

// discard removes an uploaded mockup whose record could not be stored, so the
// bucket does not collect assets nothing points to.
func (s *Service) discard(ctx context.Context, obj *storage.Object) {
	if obj == nil || s.deps.Uploader == nil {
		return
	}
	if err := s.deps.Uploader.Delete(context.WithoutCancel(ctx), obj.Path); err != nil {
		slog.Warn("failed to delete orphaned mockup", "path", obj.Path, "error", err)
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
