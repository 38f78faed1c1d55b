package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/af-corp/showcase-gateway/internal/config"
	"github.com/af-corp/showcase-gateway/internal/types"
)

const (
	defaultAnthropicModel   = "claude-sonnet-4-5"
	defaultAnthropicVersion = "2023-06-01"
	anthropicMaxTokens      = 2048
)

// AnthropicAdapter writes product copy through the Anthropic Messages API.
// The tag instructions go in the system prompt and the product inputs in a
// single user message.
type AnthropicAdapter struct {
	cfg    config.ProviderConfig
	client *http.Client
}

func NewAnthropicAdapter(cfg config.ProviderConfig, client *http.Client) *AnthropicAdapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.anthropic.com/v1"
	}
	return &AnthropicAdapter{cfg: cfg, client: client}
}

func (a *AnthropicAdapter) Name() string { return "anthropic" }

func (a *AnthropicAdapter) Configured(creds types.Credentials) bool {
	return firstNonEmpty(creds.APIKey, a.cfg.APIKey) != ""
}

func (a *AnthropicAdapter) GenerateText(ctx context.Context, call TextCall) Outcome {
	body := anthropicRequestBody{
		Model:     firstNonEmpty(a.cfg.Model, defaultAnthropicModel),
		System:    textInstructions,
		MaxTokens: anthropicMaxTokens,
		Messages:  []anthropicMessage{{Role: "user", Content: formatInputs(call.Inputs)}},
	}
	data, err := json.Marshal(body)
	if err != nil {
		return Permanent(0, "", fmt.Errorf("marshal anthropic request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.BaseURL+"/messages", bytes.NewReader(data))
	if err != nil {
		return Permanent(0, "", fmt.Errorf("create http request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", firstNonEmpty(call.Credentials.APIKey, a.cfg.APIKey))
	httpReq.Header.Set("anthropic-version", defaultAnthropicVersion)
	for k, v := range a.cfg.Headers {
		if v != "" {
			httpReq.Header.Set(k, v)
		}
	}

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return transportOutcome("anthropic", err)
	}
	raw, err := readResponse(resp)
	if err != nil {
		return Transient(resp.StatusCode, err)
	}

	if resp.StatusCode != http.StatusOK {
		detail := string(raw)
		var e anthropicErrorBody
		if json.Unmarshal(raw, &e) == nil && e.Error.Message != "" {
			detail = e.Error.Message
		}
		return Classify(resp.StatusCode, e.Error.Type, errors.New(detail))
	}

	var out anthropicResponseBody
	if err := json.Unmarshal(raw, &out); err != nil {
		return Permanent(resp.StatusCode, "", fmt.Errorf("unmarshal anthropic response: %w", err))
	}
	for _, block := range out.Content {
		if block.Type == "text" && block.Text != "" {
			return TextSuccess(block.Text)
		}
	}
	return Permanent(resp.StatusCode, "", fmt.Errorf("anthropic returned no text (stop_reason %s)", out.StopReason))
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequestBody struct {
	Model     string             `json:"model"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
	MaxTokens int                `json:"max_tokens"`
}

type anthropicResponseBody struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

type anthropicErrorBody struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}
