// Package generation drives prompts through safety checks, an image provider and,
// when the provider fails, a catalog image fallback.
package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/af-corp/showcase-gateway/internal/config"
	"github.com/af-corp/showcase-gateway/internal/router"
	"github.com/af-corp/showcase-gateway/internal/router/adapters"
	"github.com/af-corp/showcase-gateway/internal/telemetry"
	"github.com/af-corp/showcase-gateway/internal/types"
)

// Validator is the safety check run before any provider call.
type Validator interface {
	Validate(prompt string) types.SanitizedPrompt
}

// Deps are the collaborators of a Service. Registry, Routes and Config are read
// on every request so config reloads take effect immediately.
type Deps struct {
	Registry  func() *router.Registry
	Routes    func() *config.RoutesConfig
	Config    func() config.GenerationConfig
	Health    *router.HealthTracker
	Validator Validator
	Metrics   *telemetry.Metrics
}

// Service generates images with fallback.
type Service struct {
	deps Deps

	mu        sync.RWMutex
	lastCodes map[string]string
}

func NewService(d Deps) *Service {
	return &Service{deps: d, lastCodes: make(map[string]string)}
}

// Generate returns one result per prompt, in input order. Only an unknown
// explicitly requested provider is an error; every per-prompt failure is
// reported inside its result.
func (s *Service) Generate(ctx context.Context, req *types.GenerationRequest) ([]types.GenerationResult, error) {
	cfg := s.deps.Config()

	adapter, name, err := router.ResolveImage(s.deps.Routes(), s.deps.Registry(), s.deps.Health, req.Provider)
	if errors.Is(err, router.ErrUnknownProvider) {
		return nil, err
	}
	if err != nil {
		slog.Warn("no image provider available, serving fallbacks",
			"request_id", req.RequestID,
			"error", err,
		)
		adapter, name = nil, firstNonEmpty(req.Provider, "none")
	}

	results := make([]types.GenerationResult, len(req.Prompts))
	var g errgroup.Group
	g.SetLimit(max(cfg.Concurrency, 1))
	for i, prompt := range req.Prompts {
		g.Go(func() error {
			results[i] = s.generateOne(ctx, i, prompt, adapter, name, req, cfg)
			return nil
		})
	}
	_ = g.Wait()

	return results, nil
}

func (s *Service) generateOne(ctx context.Context, idx int, prompt string, adapter adapters.ImageAdapter, name string, req *types.GenerationRequest, cfg config.GenerationConfig) (res types.GenerationResult) {
	ctx, span := telemetry.StartSpan(ctx, "generation.prompt",
		attribute.Int("prompt_index", idx),
		attribute.String("provider", name),
	)
	var spanErr error
	defer func() { telemetry.EndSpan(span, spanErr) }()

	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic during generation",
				"request_id", req.RequestID,
				"prompt_index", idx,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			spanErr = fmt.Errorf("panic: %v", r)
			res = s.fail(prompt, prompt, spanErr.Error(), "", req.Products, name)
		}
	}()

	sp := s.deps.Validator.Validate(prompt)
	if !sp.IsSafe {
		s.deps.Metrics.RecordGeneration(name, telemetry.OutcomeRejected)
		msg := "Prompt rejected for safety: " + sp.Reason
		return types.GenerationResult{Prompt: prompt, Images: []types.ImageRef{}, Error: &msg, Provider: name}
	}

	out := s.callProvider(ctx, adapter, name, sp.Sanitized, req, cfg)
	if out.OK() {
		refs, err := adapters.ExtractImages(out.Payload)
		if err == nil {
			for i := range refs {
				refs[i].Prompt = sp.Sanitized
				if refs[i].RevisedPrompt == "" {
					refs[i].RevisedPrompt = sp.Sanitized
				}
			}
			s.deps.Metrics.RecordGeneration(name, telemetry.OutcomeAI)
			return types.GenerationResult{Prompt: prompt, Images: refs, Provider: name}
		}
		out = adapters.Permanent(out.Status, "", err)
	}

	spanErr = out.Err
	slog.Warn("image generation failed",
		"request_id", req.RequestID,
		"provider", name,
		"prompt_index", idx,
		"kind", out.Kind.String(),
		"status", out.Status,
		"code", out.Code,
		"error", out.Error(),
	)
	return s.fail(prompt, sp.Sanitized, out.Error(), out.Code, req.Products, name)
}

// fail substitutes a catalog image when one exists, otherwise surfaces errMsg.
func (s *Service) fail(prompt, sanitized, errMsg, code string, products []types.Product, provider string) types.GenerationResult {
	if ref, ok := SelectFallback(products, sanitized); ok {
		s.deps.Metrics.RecordGeneration(provider, telemetry.OutcomeFallback)
		return types.GenerationResult{
			Prompt:       prompt,
			Images:       []types.ImageRef{ref},
			ErrorCode:    code,
			UsedFallback: true,
			FallbackInfo: FallbackInfo,
			Provider:     provider,
		}
	}

	s.deps.Metrics.RecordGeneration(provider, telemetry.OutcomeError)
	if errMsg == "" {
		errMsg = "Failed to generate images for prompt: " + prompt
	}
	return types.GenerationResult{
		Prompt:    prompt,
		Images:    []types.ImageRef{},
		Error:     &errMsg,
		ErrorCode: code,
		Provider:  provider,
	}
}

// callProvider runs the bounded attempt loop. Client-credentials adapters get a
// fresh token per attempt; a 401/403 clears the cached token before the next one.
func (s *Service) callProvider(ctx context.Context, adapter adapters.ImageAdapter, name, prompt string, req *types.GenerationRequest, cfg config.GenerationConfig) adapters.Outcome {
	if adapter == nil {
		return adapters.Transient(0, fmt.Errorf("%w for image generation", router.ErrNoProvider))
	}

	call := adapters.ImageCall{
		Prompt:            prompt,
		Size:              firstNonEmpty(req.Size, cfg.DefaultSize),
		Quality:           firstNonEmpty(req.Quality, cfg.DefaultQuality),
		Count:             imageCount(req.Count, cfg.DefaultCount),
		ReferenceImageURL: req.ReferenceImageURL,
		Credentials:       req.Credentials,
	}

	tp, oauth := adapter.(adapters.TokenClientProvider)
	oauth = oauth && adapter.Mode() == adapters.AuthClientCredentials
	tokens := s.deps.Registry().Tokens()

	var out adapters.Outcome
	for attempt := 1; attempt <= max(cfg.MaxAttempts, 1); attempt++ {
		if oauth {
			tok, err := tokens.Fresh(ctx, tp.TokenClient(req.Credentials))
			if err != nil {
				out = adapters.Permanent(0, "", fmt.Errorf("failed to get access token: %w", err))
				break
			}
			call.AccessToken = tok.AccessToken
		}

		start := time.Now()
		cctx, span := telemetry.StartClientSpan(ctx, "provider.generate_image",
			attribute.String("provider", name),
			attribute.Int("attempt", attempt),
		)
		out = adapter.GenerateImage(cctx, call)
		telemetry.EndSpan(span, out.Err)
		s.deps.Metrics.ObserveProvider(name, out.Kind.String(), time.Since(start))

		if out.Kind != adapters.KindAuthError || !oauth {
			break
		}
		slog.Info("provider rejected token, refreshing",
			"request_id", req.RequestID,
			"provider", name,
			"attempt", attempt,
			"status", out.Status,
		)
		tokens.Invalidate(tp.TokenClient(req.Credentials).Key)
	}

	s.recordHealth(name, out)
	return out
}

func (s *Service) recordHealth(name string, out adapters.Outcome) {
	switch out.Kind {
	case adapters.KindSuccess:
		if s.deps.Health != nil {
			s.deps.Health.RecordSuccess(name)
		}
	case adapters.KindTransientError:
		if s.deps.Health != nil {
			s.deps.Health.RecordFailure(name)
		}
	}

	if out.Entitlement() {
		slog.Warn("provider account is not entitled to the API", "provider", name, "status", out.Status)
	}
	if out.Code != "" {
		s.mu.Lock()
		s.lastCodes[name] = out.Code
		s.mu.Unlock()
	}
}

// CheckCredentials resolves the image provider for requested and reports
// router.ErrMissingCredentials when creds, merged with provider config, cannot
// call it. When no provider is available at all the request is still served
// from fallbacks, so that is not an error.
func (s *Service) CheckCredentials(requested string, creds types.Credentials) (string, error) {
	adapter, name, err := router.ResolveImage(s.deps.Routes(), s.deps.Registry(), s.deps.Health, requested)
	switch {
	case errors.Is(err, router.ErrUnknownProvider):
		return "", err
	case err != nil:
		return firstNonEmpty(requested, "none"), nil
	case !adapter.Configured(creds):
		return name, fmt.Errorf("%s: %w", name, router.ErrMissingCredentials)
	}
	return name, nil
}

// LastErrorCode returns the most recent provider error code seen for name.
func (s *Service) LastErrorCode(name string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastCodes[name]
}

// imageCount is the caller's count when set, otherwise the configured default.
func imageCount(requested, def int) int {
	switch {
	case requested > 0:
		return requested
	case def > 0:
		return def
	}
	return 1
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
