package adapters

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/af-corp/showcase-gateway/internal/config"
	"github.com/af-corp/showcase-gateway/internal/types"
)

func TestAnthropicAdapter_GenerateText(t *testing.T) {
	var got anthropicRequestBody
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/messages" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "caller-key" {
			t.Errorf("x-api-key = %q", r.Header.Get("x-api-key"))
		}
		if r.Header.Get("anthropic-version") == "" {
			t.Error("missing anthropic-version header")
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"model":"claude","content":[{"type":"text","text":"<CAPTION>Cut, serve, repeat.</CAPTION>"}],"stop_reason":"end_turn"}`))
	}))
	defer srv.Close()

	a := NewAnthropicAdapter(config.ProviderConfig{BaseURL: srv.URL, APIKey: "config-key", Model: "claude-test"}, srv.Client())
	o := a.GenerateText(context.Background(), TextCall{
		Credentials: types.Credentials{APIKey: "caller-key"},
		Inputs:      []TextInput{{ID: "Product Details", Value: []string{"Walnut Board from Grain Co for 24.00"}}},
	})
	if !o.OK() || o.Text != "<CAPTION>Cut, serve, repeat.</CAPTION>" {
		t.Fatalf("outcome = %+v", o)
	}
	if got.Model != "claude-test" || got.System != textInstructions || got.MaxTokens == 0 {
		t.Errorf("request = %+v", got)
	}
	if len(got.Messages) != 1 || got.Messages[0].Role != "user" ||
		!strings.Contains(got.Messages[0].Content, "Product Details:\nWalnut Board from Grain Co for 24.00") {
		t.Errorf("messages = %+v", got.Messages)
	}
}

func TestAnthropicAdapter_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		kind   Kind
		want   string
	}{
		{"auth", http.StatusUnauthorized, `{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`, KindAuthError, "invalid x-api-key"},
		{"overloaded", 529, `{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`, KindTransientError, "Overloaded"},
		{"bad request", http.StatusBadRequest, `not json`, KindPermanentError, "not json"},
		{"no text", http.StatusOK, `{"content":[],"stop_reason":"max_tokens"}`, KindPermanentError, "anthropic returned no text (stop_reason max_tokens)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			a := NewAnthropicAdapter(config.ProviderConfig{BaseURL: srv.URL, APIKey: "k"}, srv.Client())
			o := a.GenerateText(context.Background(), TextCall{})
			if o.Kind != tt.kind || o.Error() != tt.want {
				t.Errorf("kind=%s error=%q, want %s %q", o.Kind, o.Error(), tt.kind, tt.want)
			}
		})
	}
}

func TestAnthropicAdapter_Configured(t *testing.T) {
	a := NewAnthropicAdapter(config.ProviderConfig{}, http.DefaultClient)
	if a.Configured(types.Credentials{}) {
		t.Error("expected unconfigured without any key")
	}
	if !a.Configured(types.Credentials{APIKey: "k"}) {
		t.Error("caller key should be enough")
	}
}
