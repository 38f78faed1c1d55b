// Package screenshot renders preview HTML to a JPEG through an external
// screenshot API.
package screenshot

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/af-corp/showcase-gateway/internal/config"
)

var ErrNotConfigured = errors.New("screenshot service not configured")

// Capture is a rendered image.
type Capture struct {
	ImageData string `json:"image_data"`
	Format    string `json:"format"`
	Size      int    `json:"size"`
}

// Client calls a screenshotone-compatible /take endpoint.
type Client struct {
	cfg    config.ScreenshotConfig
	client *http.Client
}

func NewClient(cfg config.ScreenshotConfig, client *http.Client) *Client {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{cfg: cfg, client: client}
}

func (c *Client) Configured() bool {
	return c.cfg.Enabled && c.cfg.APIKey != "" && c.cfg.BaseURL != ""
}

// CaptureHTML renders html at width x height and returns the JPEG as base64.
// Zero dimensions use the configured defaults.
func (c *Client) CaptureHTML(ctx context.Context, html string, width, height int) (*Capture, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	if width <= 0 {
		width = c.cfg.Width
	}
	if height <= 0 {
		height = c.cfg.Height
	}

	data, err := json.Marshal(takeRequest{
		AccessKey:         c.cfg.APIKey,
		HTML:              html,
		ViewportWidth:     width,
		ViewportHeight:    height,
		DeviceScaleFactor: 2,
		Format:            "jpg",
		ImageQuality:      90,
		Delay:             1,
		Timeout:           30,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal screenshot request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/take", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create screenshot request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTML screenshot capture failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 20<<20))
	if err != nil {
		return nil, fmt.Errorf("read screenshot: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTML screenshot capture failed: %d - %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if len(body) == 0 {
		return nil, errors.New("HTML screenshot capture failed: empty image")
	}

	return &Capture{
		ImageData: base64.StdEncoding.EncodeToString(body),
		Format:    "jpeg",
		Size:      len(body),
	}, nil
}

type takeRequest struct {
	AccessKey         string `json:"access_key"`
	HTML              string `json:"html"`
	ViewportWidth     int    `json:"viewport_width"`
	ViewportHeight    int    `json:"viewport_height"`
	DeviceScaleFactor int    `json:"device_scale_factor"`
	Format            string `json:"format"`
	ImageQuality      int    `json:"image_quality"`
	Delay             int    `json:"delay"`
	Timeout           int    `json:"timeout"`
}
