package adapters

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/af-corp/showcase-gateway/internal/config"
	"github.com/af-corp/showcase-gateway/internal/types"
)

func TestFireflyAdapter_GenerateImage(t *testing.T) {
	var got fireflyRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/images/generate" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("authorization = %q", r.Header.Get("Authorization"))
		}
		if r.Header.Get("X-API-Key") != "cid" {
			t.Errorf("x-api-key = %q", r.Header.Get("X-API-Key"))
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"outputs":[{"seed":7,"image":{"presignedUrl":"https://ff/img"}}]}`))
	}))
	defer srv.Close()

	a := NewFireflyAdapter(config.ProviderConfig{BaseURL: srv.URL, ClientID: "cid", ClientSecret: "sec"}, srv.Client())
	o := a.GenerateImage(context.Background(), ImageCall{Prompt: "lamp", Size: "512x768", AccessToken: "tok"})
	if !o.OK() {
		t.Fatalf("expected success, got %s: %v", o.Kind, o.Err)
	}
	if got.Size.Width != 512 || got.Size.Height != 768 || got.Style.Preset != "photo" || got.N != 1 {
		t.Errorf("request = %+v", got)
	}
	refs, err := ExtractImages(o.Payload)
	if err != nil || refs[0].URL != "https://ff/img" {
		t.Errorf("refs = %+v, err = %v", refs, err)
	}
}

func TestFireflyAdapter_Entitlement(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error_code":"user_not_entitled","message":"User is not entitled"}`))
	}))
	defer srv.Close()

	a := NewFireflyAdapter(config.ProviderConfig{BaseURL: srv.URL, ClientID: "cid", ClientSecret: "sec"}, srv.Client())
	o := a.GenerateImage(context.Background(), ImageCall{Prompt: "lamp", AccessToken: "tok"})
	if o.Kind != KindPermanentError || !o.Entitlement() {
		t.Errorf("outcome = %+v", o)
	}
	if o.Error() != "Firefly API error: 403 - User is not entitled" {
		t.Errorf("error = %q", o.Error())
	}
}

func TestFireflyAdapter_TokenClient(t *testing.T) {
	a := NewFireflyAdapter(config.ProviderConfig{ClientID: "cfg-id", ClientSecret: "cfg-secret"}, http.DefaultClient)

	c := a.TokenClient(types.Credentials{ClientID: "caller-id"})
	if c.ClientID != "caller-id" || c.ClientSecret != "cfg-secret" {
		t.Errorf("client = %+v", c.Key)
	}
	if c.TokenURL != defaultFireflyTokenURL {
		t.Errorf("token url = %s", c.TokenURL)
	}
	if len(c.Scopes) != 1 || c.Scopes[0] != defaultFireflyScopes {
		t.Errorf("scopes = %v", c.Scopes)
	}
	if !a.Configured(types.Credentials{}) {
		t.Error("expected configured from provider config")
	}
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		in   string
		w, h int
	}{
		{"1024x1024", 1024, 1024},
		{"512X768", 512, 768},
		{"", 1024, 1024},
		{"big", 1024, 1024},
		{"0x10", 1024, 1024},
	}
	for _, tt := range tests {
		w, h := parseSize(tt.in)
		if w != tt.w || h != tt.h {
			t.Errorf("parseSize(%q) = %dx%d, want %dx%d", tt.in, w, h, tt.w, tt.h)
		}
	}
}
