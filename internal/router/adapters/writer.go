package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/af-corp/showcase-gateway/internal/config"
	"github.com/af-corp/showcase-gateway/internal/types"
)

// WriterAdapter calls a Writer no-code application.
type WriterAdapter struct {
	cfg    config.ProviderConfig
	client *http.Client
}

func NewWriterAdapter(cfg config.ProviderConfig, client *http.Client) *WriterAdapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.writer.com/v1"
	}
	return &WriterAdapter{cfg: cfg, client: client}
}

func (a *WriterAdapter) Name() string { return "writer" }

func (a *WriterAdapter) Configured(creds types.Credentials) bool {
	return firstNonEmpty(creds.APIKey, a.cfg.APIKey) != ""
}

// ApplicationConfigured reports whether appID, or the configured application, names
// the Writer application to call.
func (a *WriterAdapter) ApplicationConfigured(appID string) bool {
	return firstNonEmpty(appID, a.cfg.ApplicationID) != ""
}

// HTTP failures carry Status and a detail taken from the body's "error" or
// "message" field; callers prefix it with the product title.
func (a *WriterAdapter) GenerateText(ctx context.Context, call TextCall) Outcome {
	appID := firstNonEmpty(call.ApplicationID, a.cfg.ApplicationID)
	if appID == "" {
		return Permanent(http.StatusBadRequest, "", errors.New("application id is required"))
	}

	data, err := json.Marshal(writerRequest{Inputs: call.Inputs})
	if err != nil {
		return Permanent(0, "", fmt.Errorf("marshal writer request: %w", err))
	}

	endpoint := a.cfg.BaseURL + "/applications/" + url.PathEscape(appID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return Permanent(0, "", fmt.Errorf("create http request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+firstNonEmpty(call.Credentials.APIKey, a.cfg.APIKey))

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return transportOutcome("writer", err)
	}
	raw, err := readResponse(resp)
	if err != nil {
		return Transient(resp.StatusCode, err)
	}

	if resp.StatusCode != http.StatusOK {
		detail := string(raw)
		var e writerErrorBody
		if json.Unmarshal(raw, &e) == nil {
			detail = firstNonEmpty(e.Error, e.Message, "Unknown error")
		}
		return Classify(resp.StatusCode, "", errors.New(detail))
	}

	var out writerResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return Permanent(resp.StatusCode, "", fmt.Errorf("unmarshal writer response: %w", err))
	}
	return TextSuccess(out.Suggestion)
}

type writerRequest struct {
	Inputs []TextInput `json:"inputs"`
}

type writerResponse struct {
	Suggestion string `json:"suggestion"`
}

type writerErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
