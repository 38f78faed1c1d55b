package router

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/af-corp/showcase-gateway/internal/config"
	"github.com/af-corp/showcase-gateway/internal/router/adapters"
	"github.com/af-corp/showcase-gateway/internal/token"
	"github.com/af-corp/showcase-gateway/internal/types"
)

// fakeImageAdapter implements adapters.ImageAdapter for testing.
type fakeImageAdapter struct {
	name string
}

func (f *fakeImageAdapter) Name() string                        { return f.name }
func (f *fakeImageAdapter) Mode() adapters.AuthMode             { return adapters.AuthAPIKey }
func (f *fakeImageAdapter) Configured(_ types.Credentials) bool { return true }
func (f *fakeImageAdapter) GenerateImage(_ context.Context, _ adapters.ImageCall) adapters.Outcome {
	return adapters.Success(map[string]any{"url": "https://img"})
}

type fakeTextAdapter struct {
	name string
}

func (f *fakeTextAdapter) Name() string                        { return f.name }
func (f *fakeTextAdapter) Configured(_ types.Credentials) bool { return true }
func (f *fakeTextAdapter) GenerateText(_ context.Context, _ adapters.TextCall) adapters.Outcome {
	return adapters.TextSuccess("ok")
}

func newTestRegistry(names ...string) *Registry {
	r := NewRegistry(token.NewStore(nil, 0))
	for _, n := range names {
		r.RegisterImage(n, &fakeImageAdapter{name: n})
	}
	return r
}

func routesWith(routes map[string]config.Route) *config.RoutesConfig {
	return &config.RoutesConfig{Routes: routes}
}

func TestResolveImage_NoRoute(t *testing.T) {
	registry := newTestRegistry("openai")
	_, _, err := ResolveImage(routesWith(nil), registry, nil, "")
	if !errors.Is(err, ErrNoProvider) {
		t.Fatalf("expected ErrNoProvider, got %v", err)
	}
}

func TestResolveImage_PrimaryProvider(t *testing.T) {
	registry := newTestRegistry("dalle", "firefly")
	cfg := routesWith(map[string]config.Route{
		CapabilityImage: {Primary: "dalle", Fallback: []string{"firefly"}},
	})

	adapter, name, err := ResolveImage(cfg, registry, nil, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "dalle" || adapter.Name() != "dalle" {
		t.Errorf("expected dalle, got %s", name)
	}
}

func TestResolveImage_RequestedProvider(t *testing.T) {
	registry := newTestRegistry("dalle", "firefly")
	cfg := routesWith(map[string]config.Route{CapabilityImage: {Primary: "dalle"}})

	_, name, err := ResolveImage(cfg, registry, nil, "firefly")
	if err != nil || name != "firefly" {
		t.Fatalf("name=%s err=%v", name, err)
	}

	_, _, err = ResolveImage(cfg, registry, nil, "midjourney")
	if !errors.Is(err, ErrUnknownProvider) {
		t.Errorf("expected ErrUnknownProvider, got %v", err)
	}
}

func TestResolveImage_SkipsUnregistered(t *testing.T) {
	registry := newTestRegistry("firefly")
	cfg := routesWith(map[string]config.Route{
		CapabilityImage: {Primary: "dalle", Fallback: []string{"", "firefly"}},
	})

	_, name, err := ResolveImage(cfg, registry, nil, "")
	if err != nil || name != "firefly" {
		t.Fatalf("name=%s err=%v", name, err)
	}
}

func TestResolveImage_SkipsUnhealthyProvider(t *testing.T) {
	registry := newTestRegistry("dalle", "firefly")
	ht := NewHealthTracker(1, 5*time.Second)
	cfg := routesWith(map[string]config.Route{
		CapabilityImage: {Primary: "dalle", Fallback: []string{"firefly"}},
	})

	ht.RecordFailure("dalle")

	_, name, err := ResolveImage(cfg, registry, ht, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "firefly" {
		t.Errorf("expected firefly (fallback), got %s", name)
	}
}

func TestResolveImage_AllUnhealthy_ReturnsError(t *testing.T) {
	registry := newTestRegistry("dalle", "firefly")
	ht := NewHealthTracker(1, 5*time.Second)
	cfg := routesWith(map[string]config.Route{
		CapabilityImage: {Primary: "dalle", Fallback: []string{"firefly"}},
	})

	ht.RecordFailure("dalle")
	ht.RecordFailure("firefly")

	_, _, err := ResolveImage(cfg, registry, ht, "")
	if !errors.Is(err, ErrNoProvider) {
		t.Fatalf("expected ErrNoProvider, got %v", err)
	}
}

func TestResolveText(t *testing.T) {
	registry := newTestRegistry("dalle")
	registry.RegisterText("writer", &fakeTextAdapter{name: "writer"})
	cfg := routesWith(map[string]config.Route{
		CapabilityText: {Primary: "writer"},
	})

	a, name, err := ResolveText(cfg, registry, nil, "")
	if err != nil || name != "writer" || a.Name() != "writer" {
		t.Fatalf("name=%s err=%v", name, err)
	}

	// Image providers are not text providers.
	if _, _, err := ResolveText(cfg, registry, nil, "dalle"); !errors.Is(err, ErrUnknownProvider) {
		t.Errorf("expected ErrUnknownProvider, got %v", err)
	}
}

func TestBuildFromConfig(t *testing.T) {
	tokens := token.NewStore(nil, 0)
	registry := BuildFromConfig(&config.ProvidersConfig{Providers: map[string]config.ProviderConfig{
		"dalle":   {Type: "openai", APIKey: "k", MaxConcurrent: 4, Timeout: time.Second},
		"firefly": {Type: "firefly", ClientID: "id", ClientSecret: "s"},
		"nano":    {Type: "gemini"},
		"writer":  {Type: "writer"},
		"copy":    {Type: "gemini_text"},
		"claude":  {Type: "anthropic"},
		"weird":   {Type: "carrier_pigeon"},
	}}, tokens)

	if got := registry.ImageNames(); len(got) != 3 || got[0] != "dalle" || got[1] != "firefly" || got[2] != "nano" {
		t.Errorf("image names = %v", got)
	}
	if a, ok := registry.Image("firefly"); !ok || a.Mode() != adapters.AuthClientCredentials {
		t.Error("expected firefly registered as a client-credentials adapter")
	}
	if _, ok := registry.Text("writer"); !ok {
		t.Error("expected writer text adapter")
	}
	if _, ok := registry.Text("copy"); !ok {
		t.Error("expected gemini text adapter")
	}
	if a, ok := registry.Text("claude"); !ok || a.Name() != "anthropic" {
		t.Error("expected anthropic text adapter")
	}
	if len(registry.clients) != 7 {
		t.Errorf("expected one client per provider, got %d", len(registry.clients))
	}
	registry.CloseIdleConnections()
	if _, ok := registry.Image("weird"); ok {
		t.Error("unknown types must be skipped")
	}
	if registry.Tokens() != tokens {
		t.Error("token store must be the injected one")
	}
}
