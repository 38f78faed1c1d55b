package adapters

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	gentext "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/af-corp/showcase-gateway/internal/config"
	"github.com/af-corp/showcase-gateway/internal/types"
)

const defaultGeminiTextModel = "gemini-1.5-flash"

// textInstructions asks for the tag layout the parser understands.
const textInstructions = `You are an e-commerce copywriter. Using the inputs below, respond with:
<SUMMARY> a bulleted list of key selling points, one "- " line each </SUMMARY>
<CAPTION> a social media caption with hashtags </CAPTION>
<IMAGE_PROMPT> a prompt for a product photo </IMAGE_PROMPT>
When a current description is given, respond instead with
<NEW_DESCRIPTION> an improved description </NEW_DESCRIPTION>
<EXPLANATION> numbered improvements as "1. **Category**:" followed by "- detail" lines </EXPLANATION>`

// GeminiTextAdapter produces copy with the Gemini generative-ai SDK.
type GeminiTextAdapter struct {
	cfg    config.ProviderConfig
	client *http.Client
}

func NewGeminiTextAdapter(cfg config.ProviderConfig, client *http.Client) *GeminiTextAdapter {
	return &GeminiTextAdapter{cfg: cfg, client: client}
}

func (a *GeminiTextAdapter) Name() string { return "gemini_text" }

func (a *GeminiTextAdapter) Configured(creds types.Credentials) bool {
	return firstNonEmpty(creds.APIKey, a.cfg.APIKey) != ""
}

func (a *GeminiTextAdapter) GenerateText(ctx context.Context, call TextCall) Outcome {
	opts := []option.ClientOption{option.WithAPIKey(firstNonEmpty(call.Credentials.APIKey, a.cfg.APIKey))}
	if a.cfg.BaseURL != "" {
		opts = append(opts, option.WithEndpoint(a.cfg.BaseURL))
	}
	client, err := gentext.NewClient(ctx, opts...)
	if err != nil {
		return Permanent(0, "", fmt.Errorf("create gemini client: %w", err))
	}
	defer client.Close()

	model := client.GenerativeModel(firstNonEmpty(a.cfg.Model, defaultGeminiTextModel))
	resp, err := model.GenerateContent(ctx, gentext.Text(TextPrompt(call.Inputs)))
	if err != nil {
		return transportOutcome("gemini_text", err)
	}

	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(gentext.Text); ok {
				sb.WriteString(string(t))
			}
		}
		break
	}
	if sb.Len() == 0 {
		return Permanent(http.StatusOK, "", fmt.Errorf("gemini returned no text"))
	}
	return TextSuccess(sb.String())
}

// TextPrompt flattens named inputs under the tag instructions.
func TextPrompt(inputs []TextInput) string {
	return textInstructions + formatInputs(inputs)
}

// formatInputs renders each input as "ID:" followed by its values.
func formatInputs(inputs []TextInput) string {
	var sb strings.Builder
	for _, in := range inputs {
		sb.WriteString("\n\n")
		sb.WriteString(in.ID)
		sb.WriteString(":\n")
		sb.WriteString(strings.Join(in.Value, "\n"))
	}
	return sb.String()
}
