package adapters

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/genai"

	"github.com/af-corp/showcase-gateway/internal/config"
	"github.com/af-corp/showcase-gateway/internal/types"
)

const defaultGeminiImageModel = "gemini-2.5-flash-image"

// GeminiImageAdapter generates images through the Gemini SDK. The image bytes come
// back inline and are surfaced as data URLs by the extractors.
type GeminiImageAdapter struct {
	cfg    config.ProviderConfig
	client *http.Client
}

func NewGeminiImageAdapter(cfg config.ProviderConfig, client *http.Client) *GeminiImageAdapter {
	return &GeminiImageAdapter{cfg: cfg, client: client}
}

func (a *GeminiImageAdapter) Name() string { return "gemini" }

func (a *GeminiImageAdapter) Mode() AuthMode { return AuthSDK }

func (a *GeminiImageAdapter) Configured(creds types.Credentials) bool {
	return firstNonEmpty(creds.APIKey, a.cfg.APIKey) != ""
}

func (a *GeminiImageAdapter) GenerateImage(ctx context.Context, call ImageCall) Outcome {
	cc := &genai.ClientConfig{
		APIKey:     firstNonEmpty(call.Credentials.APIKey, a.cfg.APIKey),
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: a.client,
	}
	if a.cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: a.cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return Permanent(0, "", fmt.Errorf("create genai client: %w", err))
	}

	prompt := call.Prompt
	if call.ReferenceImageURL != "" {
		prompt = ReferencePrompt(prompt)
	}

	resp, err := client.Models.GenerateContent(ctx,
		firstNonEmpty(a.cfg.Model, defaultGeminiImageModel),
		[]*genai.Content{{Role: "user", Parts: []*genai.Part{genai.NewPartFromText(prompt)}}},
		&genai.GenerateContentConfig{ResponseModalities: []string{"TEXT", "IMAGE"}},
	)
	if err != nil {
		return genaiOutcome(err)
	}
	return Success(resp)
}

// genaiOutcome classifies SDK errors by their HTTP code when one is attached.
func genaiOutcome(err error) Outcome {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return Classify(apiErr.Code, apiErr.Status, fmt.Errorf("Gemini API error: %d - %s", apiErr.Code, apiErr.Message))
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return Classify(apiErrPtr.Code, apiErrPtr.Status, fmt.Errorf("Gemini API error: %d - %s", apiErrPtr.Code, apiErrPtr.Message))
	}
	return transportOutcome("gemini", err)
}
