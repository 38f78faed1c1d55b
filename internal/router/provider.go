package router

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/af-corp/showcase-gateway/internal/config"
	"github.com/af-corp/showcase-gateway/internal/router/adapters"
	"github.com/af-corp/showcase-gateway/internal/token"
)

// Capabilities used as keys in routes.yaml.
const (
	CapabilityImage = "image"
	CapabilityText  = "text"
)

var (
	ErrUnknownProvider = errors.New("unknown provider")
	ErrNoProvider      = errors.New("no available provider")

	// ErrMissingCredentials means neither the caller nor provider config supplies credentials.
	ErrMissingCredentials = errors.New("missing provider credentials")
)

// Registry manages image and text adapters and the token store they share.
type Registry struct {
	mu     sync.RWMutex
	images map[string]adapters.ImageAdapter
	texts  map[string]adapters.TextAdapter
	tokens *token.Store

	clients []*http.Client
}

func NewRegistry(tokens *token.Store) *Registry {
	return &Registry{
		images: make(map[string]adapters.ImageAdapter),
		texts:  make(map[string]adapters.TextAdapter),
		tokens: tokens,
	}
}

func (r *Registry) RegisterImage(name string, a adapters.ImageAdapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.images[name] = a
}

func (r *Registry) RegisterText(name string, a adapters.TextAdapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.texts[name] = a
}

func (r *Registry) Image(name string) (adapters.ImageAdapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.images[name]
	return a, ok
}

func (r *Registry) Text(name string) (adapters.TextAdapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.texts[name]
	return a, ok
}

// ImageNames returns registered image provider names, sorted.
func (r *Registry) ImageNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.images))
	for n := range r.images {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// CloseIdleConnections releases the pooled connections of every provider
// client built for this registry. Called on the registry a reload replaced;
// requests still using it keep working.
func (r *Registry) CloseIdleConnections() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.clients {
		c.CloseIdleConnections()
	}
}

// Tokens returns the shared token store. It survives registry rebuilds.
func (r *Registry) Tokens() *token.Store {
	return r.tokens
}

// BuildFromConfig builds provider adapters from the providers config.
func BuildFromConfig(provCfg *config.ProvidersConfig, tokens *token.Store) *Registry {
	registry := NewRegistry(tokens)
	for name, cfg := range provCfg.Providers {
		client := &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        cfg.MaxConcurrent,
				MaxIdleConnsPerHost: cfg.MaxConcurrent,
				IdleConnTimeout:     90 * time.Second,
				ForceAttemptHTTP2:   true,
			},
		}
		registry.clients = append(registry.clients, client)

		switch cfg.Type {
		case "openai":
			registry.RegisterImage(name, adapters.NewOpenAIAdapter(cfg, client))
		case "firefly":
			registry.RegisterImage(name, adapters.NewFireflyAdapter(cfg, client))
		case "gemini":
			registry.RegisterImage(name, adapters.NewGeminiImageAdapter(cfg, client))
		case "writer":
			registry.RegisterText(name, adapters.NewWriterAdapter(cfg, client))
		case "gemini_text":
			registry.RegisterText(name, adapters.NewGeminiTextAdapter(cfg, client))
		case "anthropic":
			registry.RegisterText(name, adapters.NewAnthropicAdapter(cfg, client))
		default:
			slog.Warn("skipping provider with unknown type", "provider", name, "type", cfg.Type)
		}
	}
	return registry
}

// ResolveImage picks the image adapter for a request. An explicitly requested
// provider is returned as is; otherwise the image route is walked in order and
// the first registered provider with a closed or probing circuit wins.
func ResolveImage(routes *config.RoutesConfig, registry *Registry, health *HealthTracker, requested string) (adapters.ImageAdapter, string, error) {
	if requested != "" {
		a, ok := registry.Image(requested)
		if !ok {
			return nil, "", fmt.Errorf("%w: %s", ErrUnknownProvider, requested)
		}
		return a, requested, nil
	}

	name, err := resolve(routes, CapabilityImage, health, func(n string) bool {
		_, ok := registry.Image(n)
		return ok
	})
	if err != nil {
		return nil, "", err
	}
	a, _ := registry.Image(name)
	return a, name, nil
}

// ResolveText is ResolveImage for text providers.
func ResolveText(routes *config.RoutesConfig, registry *Registry, health *HealthTracker, requested string) (adapters.TextAdapter, string, error) {
	if requested != "" {
		a, ok := registry.Text(requested)
		if !ok {
			return nil, "", fmt.Errorf("%w: %s", ErrUnknownProvider, requested)
		}
		return a, requested, nil
	}

	name, err := resolve(routes, CapabilityText, health, func(n string) bool {
		_, ok := registry.Text(n)
		return ok
	})
	if err != nil {
		return nil, "", err
	}
	a, _ := registry.Text(name)
	return a, name, nil
}

func resolve(routes *config.RoutesConfig, capability string, health *HealthTracker, registered func(string) bool) (string, error) {
	route, ok := routes.Routes[capability]
	if !ok {
		return "", fmt.Errorf("%w: no route for %s", ErrNoProvider, capability)
	}

	for _, name := range route.Candidates() {
		if !registered(name) {
			continue
		}
		if health != nil && !health.IsAvailable(name) {
			continue
		}
		return name, nil
	}
	return "", fmt.Errorf("%w for %s", ErrNoProvider, capability)
}
