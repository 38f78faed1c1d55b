package gateway

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"syscall"
	"time"

	"github.com/af-corp/showcase-gateway/internal/httputil"
)

const maxImageBytes = 20 << 20

var (
	errBadImageURL = errors.New("image URL must be an absolute http or https URL")
	errNotImage    = errors.New("URL did not return an image")
	errTooLarge    = errors.New("image exceeds size limit")
	errBlockedHost = errors.New("image host resolves to a non-public address")
)

// sharedAddressSpace is the carrier-grade NAT range, not covered by netip's
// IsPrivate.
var sharedAddressSpace = netip.MustParsePrefix("100.64.0.0/10")

// NewFetchClient returns the client used to fetch caller-supplied image URLs.
// Its dialer refuses loopback, private, link-local (cloud metadata) and other
// non-public addresses, including after redirects.
func NewFetchClient(timeout time.Duration) *http.Client {
	dialer := &net.Dialer{
		Timeout: 10 * time.Second,
		Control: func(_, address string, _ syscall.RawConn) error {
			return checkPublicAddr(address)
		},
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext:         dialer.DialContext,
			TLSHandshakeTimeout: 10 * time.Second,
			MaxIdleConns:        20,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// checkPublicAddr rejects a dial target that is not a public unicast address.
func checkPublicAddr(address string) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return fmt.Errorf("%w: %s", errBlockedHost, address)
	}
	ip, err := netip.ParseAddr(host)
	if err != nil {
		return fmt.Errorf("%w: %s", errBlockedHost, address)
	}
	ip = ip.Unmap()
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() ||
		ip.IsInterfaceLocalMulticast() || ip.IsMulticast() || ip.IsUnspecified() || sharedAddressSpace.Contains(ip) {
		return fmt.Errorf("%w: %s", errBlockedHost, ip)
	}
	return nil
}

type dataURLRequest struct {
	ImageURL string `json:"image_url"`
}

// ImageToDataURL handles POST /api/image-to-dataurl
func (h *Handler) ImageToDataURL(w http.ResponseWriter, r *http.Request) {
	reqID := w.Header().Get("X-Request-ID")

	var req dataURLRequest
	if !decode(w, r, reqID, &req) {
		return
	}
	if strings.TrimSpace(req.ImageURL) == "" {
		httputil.WriteBadRequestError(w, reqID, "image_url is required")
		return
	}

	data, contentType, err := h.fetchImage(r.Context(), req.ImageURL)
	if err != nil {
		writeFetchError(w, reqID, req.ImageURL, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"data_url": "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data),
		"size":     len(data),
	})
}

// ProxyImage handles GET /api/proxy-image?url=
func (h *Handler) ProxyImage(w http.ResponseWriter, r *http.Request) {
	reqID := w.Header().Get("X-Request-ID")
	target := r.URL.Query().Get("url")
	if target == "" {
		httputil.WriteBadRequestError(w, reqID, "URL parameter required")
		return
	}

	data, contentType, err := h.fetchImage(r.Context(), target)
	if err != nil {
		writeFetchError(w, reqID, target, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(data)
}

// fetchImage downloads an image. Only http(s) URLs are followed and the
// response must declare an image content type, or none at all.
func (h *Handler) fetchImage(ctx context.Context, raw string) ([]byte, string, error) {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, "", errBadImageURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, "", fmt.Errorf("create request: %w", err)
	}
	resp, err := h.deps.Fetch.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("fetch image: upstream status %d", resp.StatusCode)
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/png"
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, "", errNotImage
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("read image: %w", err)
	}
	if len(data) > maxImageBytes {
		return nil, "", errTooLarge
	}
	return data, contentType, nil
}

func writeFetchError(w http.ResponseWriter, reqID, target string, err error) {
	switch {
	case errors.Is(err, errBadImageURL), errors.Is(err, errNotImage), errors.Is(err, errTooLarge):
		httputil.WriteBadRequestError(w, reqID, err.Error())
	case errors.Is(err, errBlockedHost):
		slog.Warn("image fetch refused", "request_id", reqID, "url", target, "error", err)
		httputil.WriteBadRequestError(w, reqID, errBlockedHost.Error())
	default:
		slog.Warn("image fetch failed", "request_id", reqID, "url", target, "error", err)
		httputil.WriteError(w, reqID, http.StatusBadGateway, "upstream_error", "image_fetch_failed", err.Error())
	}
}
