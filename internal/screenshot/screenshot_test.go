package screenshot

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/af-corp/showcase-gateway/internal/config"
)

func TestCaptureHTML(t *testing.T) {
	var got takeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/take" || r.Method != http.MethodPost {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("\xff\xd8jpeg"))
	}))
	defer srv.Close()

	c := NewClient(config.ScreenshotConfig{
		Enabled: true, BaseURL: srv.URL + "/", APIKey: "shot-key", Width: 1080, Height: 1350,
	}, srv.Client())

	capture, err := c.CaptureHTML(context.Background(), "<p>hi</p>", 0, 0)
	if err != nil {
		t.Fatalf("CaptureHTML: %v", err)
	}
	if got.AccessKey != "shot-key" || got.HTML != "<p>hi</p>" {
		t.Errorf("request = %+v", got)
	}
	if got.ViewportWidth != 1080 || got.ViewportHeight != 1350 || got.Format != "jpg" {
		t.Errorf("defaults not applied: %+v", got)
	}
	raw, _ := base64.StdEncoding.DecodeString(capture.ImageData)
	if string(raw) != "\xff\xd8jpeg" || capture.Size != 6 || capture.Format != "jpeg" {
		t.Errorf("capture = %+v", capture)
	}
}

func TestCaptureHTML_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusPaymentRequired)
	}))
	defer srv.Close()

	c := NewClient(config.ScreenshotConfig{Enabled: true, BaseURL: srv.URL, APIKey: "k"}, srv.Client())
	_, err := c.CaptureHTML(context.Background(), "<p/>", 480, 700)
	if err == nil || !strings.Contains(err.Error(), "402") {
		t.Errorf("expected status error, got %v", err)
	}

	off := NewClient(config.ScreenshotConfig{BaseURL: srv.URL, APIKey: "k"}, nil)
	if off.Configured() {
		t.Error("disabled client reports configured")
	}
	if _, err := off.CaptureHTML(context.Background(), "<p/>", 1, 1); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("error = %v", err)
	}
}

func TestRenderPreview(t *testing.T) {
	html, err := RenderPreview(Preview{
		ImageURL:    "https://cdn.example/board.jpg",
		Caption:     "Fresh <b>drop</b>",
		ProductName: "Walnut Board",
		Likes:       1200,
	})
	if err != nil {
		t.Fatalf("RenderPreview: %v", err)
	}
	for _, want := range []string{
		`src="https://cdn.example/board.jpg"`,
		"Fresh &lt;b&gt;drop&lt;/b&gt;",
		"1200 likes",
		"AI Showcase",
		"Walnut Board",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("preview missing %q", want)
		}
	}
}

func TestRenderPreview_ImageURLs(t *testing.T) {
	data, err := RenderPreview(Preview{ImageURL: "data:image/png;base64,AAAA"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(data, `src="data:image/png;base64,AAAA"`) {
		t.Error("data image URL should be kept")
	}

	bad, err := RenderPreview(Preview{ImageURL: "javascript:alert(1)"})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(bad, "javascript") {
		t.Error("script URL should be dropped")
	}
}
