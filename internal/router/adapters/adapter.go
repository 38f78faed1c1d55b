package adapters

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/af-corp/showcase-gateway/internal/token"
	"github.com/af-corp/showcase-gateway/internal/types"
)

// AuthMode says how an adapter authenticates with its provider.
type AuthMode int

const (
	AuthAPIKey            AuthMode = iota // static bearer key
	AuthClientCredentials                 // OAuth client-credentials token
	AuthSDK                               // key handed to a vendor SDK
)

func (m AuthMode) String() string {
	switch m {
	case AuthAPIKey:
		return "api_key"
	case AuthClientCredentials:
		return "client_credentials"
	case AuthSDK:
		return "sdk"
	default:
		return "unknown"
	}
}

// ImageCall is one image-generation request as seen by an adapter.
type ImageCall struct {
	Prompt            string
	Size              string
	Quality           string
	Count             int
	ReferenceImageURL string

	// Caller-supplied credentials. Blank fields fall back to provider config.
	Credentials types.Credentials
	// AccessToken is filled in by the orchestrator for client-credentials adapters.
	AccessToken string
}

// ImageAdapter generates images with one provider.
type ImageAdapter interface {
	Name() string
	Mode() AuthMode
	// Configured reports whether creds, merged with provider config, are enough to call.
	Configured(creds types.Credentials) bool
	GenerateImage(ctx context.Context, call ImageCall) Outcome
}

// TokenClientProvider is implemented by client-credentials adapters so the
// orchestrator can obtain a bearer token before calling them.
type TokenClientProvider interface {
	TokenClient(creds types.Credentials) token.Client
}

// TextInput is one named input of a text application call.
type TextInput struct {
	ID    string   `json:"id"`
	Value []string `json:"value"`
}

// TextCall is one text-generation request.
type TextCall struct {
	Credentials   types.Credentials
	ApplicationID string
	Inputs        []TextInput
}

// TextAdapter generates copy with one provider. Success outcomes carry Text.
type TextAdapter interface {
	Name() string
	Configured(creds types.Credentials) bool
	GenerateText(ctx context.Context, call TextCall) Outcome
}

// readResponse drains and closes resp, capping the body at 10MB.
func readResponse(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return body, nil
}

// transportOutcome classifies errors from http.Client.Do.
func transportOutcome(provider string, err error) Outcome {
	if errors.Is(err, context.DeadlineExceeded) {
		return Transient(0, fmt.Errorf("%s request timed out: %w", provider, err))
	}
	return Transient(0, fmt.Errorf("%s request failed: %w", provider, err))
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
