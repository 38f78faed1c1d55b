// Package social publishes assets to Instagram through the Graph API.
package social

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/af-corp/showcase-gateway/internal/config"
)

var ErrNoAccessToken = errors.New("instagram access token not configured")

// Instagram posts an image in two steps: create a media container, then publish it.
type Instagram struct {
	cfg    config.InstagramConfig
	client *http.Client
}

func NewInstagram(cfg config.InstagramConfig, client *http.Client) *Instagram {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Instagram{cfg: cfg, client: client}
}

func (ig *Instagram) Configured() bool { return ig.cfg.AccessToken != "" }

// Post publishes imageURL with caption and returns the published media ID.
func (ig *Instagram) Post(ctx context.Context, imageURL, caption string) (string, error) {
	if !ig.Configured() {
		return "", ErrNoAccessToken
	}

	var created struct {
		ID string `json:"id"`
	}
	status, body, err := ig.post(ctx, "/me/media", url.Values{
		"image_url":    {imageURL},
		"caption":      {caption},
		"access_token": {ig.cfg.AccessToken},
	}, &created)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("instagram API error: %d - %s", status, body)
	}
	if created.ID == "" {
		return "", errors.New("failed to create media container - no media ID returned")
	}

	var published struct {
		ID string `json:"id"`
	}
	status, body, err = ig.post(ctx, "/me/media_publish", url.Values{
		"creation_id":  {created.ID},
		"access_token": {ig.cfg.AccessToken},
	}, &published)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("failed to publish Instagram post: %d - %s", status, body)
	}
	return published.ID, nil
}

// post sends a form request. On 200 the body is decoded into v; otherwise the
// raw body is returned for the error message.
func (ig *Instagram) post(ctx context.Context, path string, form url.Values, v any) (int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ig.cfg.BaseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return 0, "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := ig.client.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("instagram request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, strings.TrimSpace(string(data)), nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return 0, "", fmt.Errorf("decode response: %w", err)
	}
	return resp.StatusCode, "", nil
}
