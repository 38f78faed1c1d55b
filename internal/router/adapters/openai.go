package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/af-corp/showcase-gateway/internal/config"
	"github.com/af-corp/showcase-gateway/internal/types"
)

const (
	defaultDALLEModel   = "dall-e-3"
	defaultDALLESize    = "1024x1024"
	defaultDALLEQuality = "standard"
)

// OpenAIAdapter calls the DALL-E images endpoint with a bearer API key.
type OpenAIAdapter struct {
	cfg    config.ProviderConfig
	client *http.Client
}

func NewOpenAIAdapter(cfg config.ProviderConfig, client *http.Client) *OpenAIAdapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	return &OpenAIAdapter{cfg: cfg, client: client}
}

func (a *OpenAIAdapter) Name() string { return "openai" }

func (a *OpenAIAdapter) Mode() AuthMode { return AuthAPIKey }

func (a *OpenAIAdapter) Configured(creds types.Credentials) bool {
	return firstNonEmpty(creds.APIKey, a.cfg.APIKey) != ""
}

// ReferencePrompt wraps prompt for reference-guided generation. DALL-E 3 takes no
// image input, so the reference only steers the wording.
func ReferencePrompt(prompt string) string {
	return "Create a product showcase image inspired by this reference: " + prompt +
		". Style: professional product photography, clean background, high quality, commercial photography style."
}

func (a *OpenAIAdapter) GenerateImage(ctx context.Context, call ImageCall) Outcome {
	prompt := call.Prompt
	if call.ReferenceImageURL != "" {
		prompt = ReferencePrompt(prompt)
	}

	body := openAIImageRequest{
		Model:   firstNonEmpty(a.cfg.Model, defaultDALLEModel),
		Prompt:  prompt,
		N:       max(call.Count, 1),
		Size:    firstNonEmpty(call.Size, defaultDALLESize),
		Quality: firstNonEmpty(call.Quality, defaultDALLEQuality),
	}

	data, err := json.Marshal(body)
	if err != nil {
		return Permanent(0, "", fmt.Errorf("marshal openai request: %w", err))
	}

	url := a.cfg.BaseURL + "/images/generations"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return Permanent(0, "", fmt.Errorf("create http request: %w", err))
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+firstNonEmpty(call.Credentials.APIKey, a.cfg.APIKey))
	for k, v := range a.cfg.Headers {
		if v != "" {
			httpReq.Header.Set(k, v)
		}
	}

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return transportOutcome("openai", err)
	}
	raw, err := readResponse(resp)
	if err != nil {
		return Transient(resp.StatusCode, err)
	}

	if resp.StatusCode != http.StatusOK {
		var e openAIErrorBody
		_ = json.Unmarshal(raw, &e)
		msg := firstNonEmpty(e.Error.Message, string(raw))
		return Classify(resp.StatusCode, e.Error.Code, fmt.Errorf("DALL-E API error: %d - %s", resp.StatusCode, msg))
	}

	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return Permanent(resp.StatusCode, "", fmt.Errorf("unmarshal openai response: %w", err))
	}
	return Success(payload)
}

type openAIImageRequest struct {
	Model   string `json:"model"`
	Prompt  string `json:"prompt"`
	N       int    `json:"n"`
	Size    string `json:"size"`
	Quality string `json:"quality"`
}

type openAIErrorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}
