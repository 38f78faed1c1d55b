package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/af-corp/showcase-gateway/internal/config"
	"github.com/af-corp/showcase-gateway/internal/token"
	"github.com/af-corp/showcase-gateway/internal/types"
)

const (
	defaultFireflyBaseURL  = "https://firefly-api.adobe.io"
	defaultFireflyTokenURL = "https://ims-na1.adobelogin.com/ims/token/v3"
	defaultFireflyScopes   = "openid,AdobeID,session,additional_info,read_organizations,firefly_api,ff_apis"
)

// FireflyAdapter calls the Firefly image API with an IMS client-credentials token.
type FireflyAdapter struct {
	cfg    config.ProviderConfig
	client *http.Client
}

func NewFireflyAdapter(cfg config.ProviderConfig, client *http.Client) *FireflyAdapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultFireflyBaseURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaultFireflyTokenURL
	}
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = []string{defaultFireflyScopes}
	}
	return &FireflyAdapter{cfg: cfg, client: client}
}

func (a *FireflyAdapter) Name() string { return "firefly" }

func (a *FireflyAdapter) Mode() AuthMode { return AuthClientCredentials }

func (a *FireflyAdapter) Configured(creds types.Credentials) bool {
	c := a.TokenClient(creds)
	return c.ClientID != "" && c.ClientSecret != ""
}

// TokenClient merges caller credentials with provider config. IMS expects the
// scope list comma-joined in a single value.
func (a *FireflyAdapter) TokenClient(creds types.Credentials) token.Client {
	return token.Client{
		Key: token.Key{
			ClientID:     firstNonEmpty(creds.ClientID, a.cfg.ClientID),
			ClientSecret: firstNonEmpty(creds.ClientSecret, a.cfg.ClientSecret),
		},
		TokenURL: a.cfg.TokenURL,
		Scopes:   []string{strings.Join(a.cfg.Scopes, ",")},
	}
}

func (a *FireflyAdapter) GenerateImage(ctx context.Context, call ImageCall) Outcome {
	width, height := parseSize(call.Size)
	body := fireflyRequest{
		Prompt: call.Prompt,
		N:      max(call.Count, 1),
		Size:   fireflySize{Width: width, Height: height},
		Style:  fireflyStyle{Preset: "photo"},
	}

	data, err := json.Marshal(body)
	if err != nil {
		return Permanent(0, "", fmt.Errorf("marshal firefly request: %w", err))
	}

	url := a.cfg.BaseURL + "/v2/images/generate"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return Permanent(0, "", fmt.Errorf("create http request: %w", err))
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+call.AccessToken)
	httpReq.Header.Set("X-API-Key", firstNonEmpty(call.Credentials.ClientID, a.cfg.ClientID))
	for k, v := range a.cfg.Headers {
		if v != "" {
			httpReq.Header.Set(k, v)
		}
	}

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return transportOutcome("firefly", err)
	}
	raw, err := readResponse(resp)
	if err != nil {
		return Transient(resp.StatusCode, err)
	}

	if resp.StatusCode != http.StatusOK {
		var e fireflyErrorBody
		_ = json.Unmarshal(raw, &e)
		msg := firstNonEmpty(e.Message, string(raw))
		return Classify(resp.StatusCode, e.ErrorCode, fmt.Errorf("Firefly API error: %d - %s", resp.StatusCode, msg))
	}

	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return Permanent(resp.StatusCode, "", fmt.Errorf("unmarshal firefly response: %w", err))
	}
	return Success(payload)
}

// parseSize reads "WxH", defaulting to 1024x1024.
func parseSize(s string) (int, int) {
	w, h, ok := strings.Cut(strings.ToLower(s), "x")
	if ok {
		wi, err1 := strconv.Atoi(strings.TrimSpace(w))
		hi, err2 := strconv.Atoi(strings.TrimSpace(h))
		if err1 == nil && err2 == nil && wi > 0 && hi > 0 {
			return wi, hi
		}
	}
	return 1024, 1024
}

type fireflyRequest struct {
	Prompt string       `json:"prompt"`
	N      int          `json:"n"`
	Size   fireflySize  `json:"size"`
	Style  fireflyStyle `json:"style"`
}

type fireflySize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type fireflyStyle struct {
	Preset string `json:"preset"`
}

type fireflyErrorBody struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
}
