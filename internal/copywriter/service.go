// Package copywriter produces social copy and enhanced product descriptions through
// a text provider, one call per product.
package copywriter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/af-corp/showcase-gateway/internal/catalog"
	"github.com/af-corp/showcase-gateway/internal/config"
	"github.com/af-corp/showcase-gateway/internal/parser"
	"github.com/af-corp/showcase-gateway/internal/router"
	"github.com/af-corp/showcase-gateway/internal/router/adapters"
	"github.com/af-corp/showcase-gateway/internal/telemetry"
	"github.com/af-corp/showcase-gateway/internal/types"
)

const (
	inputProductDetails     = "Product Details"
	inputCurrentDescription = "Current Description"

	noPostResponse   = "No response received from Writer AI"
	noTargetResponse = "No targeting received from Writer AI"
)

// Deps are the collaborators of a Service. Catalog may be nil, in which case
// Target works from the request's own product data.
type Deps struct {
	Registry func() *router.Registry
	Routes   func() *config.RoutesConfig
	Config   func() config.GenerationConfig
	Health   *router.HealthTracker
	Catalog  catalog.Catalog
	Metrics  *telemetry.Metrics
}

type Service struct {
	deps Deps
}

func NewService(d Deps) *Service {
	return &Service{deps: d}
}

// Write generates a post (summary, caption, image prompts) for each product.
func (s *Service) Write(ctx context.Context, req *types.TextRequest) ([]types.TextResult, error) {
	return s.run(ctx, req, "copywriter.write", s.writeOne)
}

// Target generates an enhanced description for each product.
func (s *Service) Target(ctx context.Context, req *types.TextRequest) ([]types.TextResult, error) {
	return s.run(ctx, req, "copywriter.target", s.targetOne)
}

// applicationScoped is implemented by text adapters that call a named
// application rather than a bare model.
type applicationScoped interface {
	ApplicationConfigured(appID string) bool
}

// CheckCredentials resolves the text provider for requested and reports
// router.ErrMissingCredentials when the caller's key and application ID,
// merged with provider config, are not enough to call it.
func (s *Service) CheckCredentials(requested string, creds types.Credentials, appID string) (string, error) {
	adapter, name, err := router.ResolveText(s.deps.Routes(), s.deps.Registry(), s.deps.Health, requested)
	if err != nil {
		return "", err
	}
	if !adapter.Configured(creds) {
		return name, fmt.Errorf("%s: %w", name, router.ErrMissingCredentials)
	}
	if as, ok := adapter.(applicationScoped); ok && !as.ApplicationConfigured(appID) {
		return name, fmt.Errorf("%s: %w", name, router.ErrMissingCredentials)
	}
	return name, nil
}

type productFunc func(ctx context.Context, adapter adapters.TextAdapter, name string, req *types.TextRequest, p types.Product) types.TextResult

func (s *Service) run(ctx context.Context, req *types.TextRequest, spanName string, fn productFunc) ([]types.TextResult, error) {
	adapter, name, err := router.ResolveText(s.deps.Routes(), s.deps.Registry(), s.deps.Health, req.Provider)
	if err != nil {
		return nil, err
	}
	cfg := s.deps.Config()

	results := make([]types.TextResult, len(req.Products))
	var g errgroup.Group
	g.SetLimit(max(cfg.Concurrency, 1))
	for i, p := range req.Products {
		g.Go(func() error {
			pctx, span := telemetry.StartSpan(ctx, spanName,
				attribute.Int("product_index", i),
				attribute.String("provider", name),
			)
			if cfg.TextTimeout > 0 {
				var cancel context.CancelFunc
				pctx, cancel = context.WithTimeout(pctx, cfg.TextTimeout)
				defer cancel()
			}
			results[i] = fn(pctx, adapter, name, req, p)
			var spanErr error
			if results[i].Error != "" {
				spanErr = errors.New(results[i].Error)
			}
			telemetry.EndSpan(span, spanErr)
			return nil
		})
	}
	_ = g.Wait()
	return results, nil
}

func (s *Service) writeOne(ctx context.Context, adapter adapters.TextAdapter, name string, req *types.TextRequest, p types.Product) types.TextResult {
	details := fmt.Sprintf("%s from %s for %s\n%s\n%s",
		p.TitleOr("Unknown Product"),
		vendorOf(p),
		priceOf(p),
		languageLine(req.TargetLanguage),
		demographicLine(req.TargetDemographic),
	)
	inputs := []adapters.TextInput{{ID: inputProductDetails, Value: []string{details}}}
	summary := summarize(p)

	out := s.call(ctx, adapter, name, req, inputs)
	if !out.OK() {
		res := emptyResult()
		res.Product = summary
		res.Error = errorMessage("Error for", p.TitleOr("Unknown Product"), out)
		return res
	}

	raw := out.Text
	if strings.TrimSpace(raw) == "" {
		raw = noPostResponse
	}
	res := types.TextResult{ParsedAIResponse: s.parse(raw), Product: summary}
	return res
}

func (s *Service) targetOne(ctx context.Context, adapter adapters.TextAdapter, name string, req *types.TextRequest, p types.Product) types.TextResult {
	full := s.lookup(ctx, req, p)

	details := strings.Join([]string{
		"Product: " + p.TitleOr("Unknown Product"),
		"Brand/Vendor: " + vendorOf(p),
		"Price: " + priceOf(p),
		"Stock Status: " + stockOf(p),
		"Product Type: " + firstNonEmpty(full.ProductType, "N/A"),
		languageLine(req.TargetLanguage),
		demographicLine(req.TargetDemographic),
	}, "\n")

	current := PlainText(full.Description)
	if current == "" || current == "No description available" {
		current = fmt.Sprintf("Basic product listing for %s from %s priced at %s",
			p.TitleOr("Unknown Product"), vendorOf(p), priceOf(p))
	}

	inputs := []adapters.TextInput{
		{ID: inputProductDetails, Value: []string{details}},
		{ID: inputCurrentDescription, Value: []string{current}},
	}
	summary := summarize(p)

	out := s.call(ctx, adapter, name, req, inputs)
	if !out.OK() {
		res := emptyResult()
		res.OriginalProduct = summary
		res.OriginalDescription = current
		res.Error = errorMessage("Error targeting", p.TitleOr("Unknown Product"), out)
		return res
	}

	raw := out.Text
	if strings.TrimSpace(raw) == "" {
		raw = noTargetResponse
	}
	return types.TextResult{
		ParsedAIResponse:    s.parse(raw),
		OriginalProduct:     summary,
		OriginalDescription: current,
	}
}

// lookup fetches the catalog copy of p for its description and type. Failures
// are logged and the request's own fields are used instead.
func (s *Service) lookup(ctx context.Context, req *types.TextRequest, p types.Product) types.Product {
	if s.deps.Catalog == nil || p.ID == "" {
		return p
	}
	full, err := s.deps.Catalog.Product(ctx, p.ID.String())
	if err != nil {
		slog.Warn("catalog lookup failed, using request product data",
			"request_id", req.RequestID,
			"product_id", p.ID.String(),
			"error", err,
		)
		return p
	}
	return *full
}

func (s *Service) call(ctx context.Context, adapter adapters.TextAdapter, name string, req *types.TextRequest, inputs []adapters.TextInput) adapters.Outcome {
	start := time.Now()
	cctx, span := telemetry.StartClientSpan(ctx, "provider.generate_text",
		attribute.String("provider", name),
	)
	out := adapter.GenerateText(cctx, adapters.TextCall{
		Credentials:   req.Credentials,
		ApplicationID: req.ApplicationID,
		Inputs:        inputs,
	})
	telemetry.EndSpan(span, out.Err)
	s.deps.Metrics.ObserveProvider(name, out.Kind.String(), time.Since(start))

	switch out.Kind {
	case adapters.KindSuccess:
		s.deps.Metrics.RecordGeneration(name, telemetry.OutcomeAI)
		if s.deps.Health != nil {
			s.deps.Health.RecordSuccess(name)
		}
	case adapters.KindTransientError:
		s.deps.Metrics.RecordGeneration(name, telemetry.OutcomeError)
		if s.deps.Health != nil {
			s.deps.Health.RecordFailure(name)
		}
	default:
		s.deps.Metrics.RecordGeneration(name, telemetry.OutcomeError)
	}

	if !out.OK() {
		slog.Warn("text generation failed",
			"request_id", req.RequestID,
			"provider", name,
			"kind", out.Kind.String(),
			"status", out.Status,
			"error", out.Error(),
		)
	}
	return out
}

func (s *Service) parse(raw string) types.ParsedAIResponse {
	s.deps.Metrics.RecordParseDialect(string(parser.DetectDialect(raw)))
	return parser.Parse(raw)
}

// errorMessage renders a per-product failure the way the front end expects:
// timeouts are named as such, HTTP failures carry the status and detail.
func errorMessage(prefix, title string, out adapters.Outcome) string {
	switch {
	case out.Timeout():
		return "Timeout error for " + title
	case out.Status > 0:
		return fmt.Sprintf("%s %s: %d - %s", prefix, title, out.Status, out.Error())
	default:
		return fmt.Sprintf("Error for %s: %s", title, out.Error())
	}
}

func emptyResult() types.TextResult {
	return types.TextResult{ParsedAIResponse: types.ParsedAIResponse{
		Summary:      []string{},
		ImagePrompts: []string{},
		Improvements: []string{},
	}}
}

func summarize(p types.Product) *types.ProductSummary {
	return &types.ProductSummary{
		ID:     p.ID.String(),
		Title:  p.TitleOr("Unknown Product"),
		Vendor: vendorOf(p),
		Price:  priceOf(p),
		Stock:  stockOf(p),
	}
}

func vendorOf(p types.Product) string { return firstNonEmpty(p.Vendor, "Unknown Brand") }
func priceOf(p types.Product) string  { return firstNonEmpty(p.Price.String(), "N/A") }
func stockOf(p types.Product) string  { return firstNonEmpty(p.Stock.String(), "N/A") }

func languageLine(lang string) string {
	return "Target Language: " + titleCase(firstNonEmpty(lang, "english"))
}

func demographicLine(demo string) string {
	demo = strings.ReplaceAll(firstNonEmpty(demo, "general"), "-", " ")
	return "Target Demographic: " + titleCase(demo)
}

// titleCase upper-cases the first letter of each word and lower-cases the rest.
// Casers are not safe for concurrent use, so one is built per call.
func titleCase(s string) string {
	return cases.Title(language.Und).String(s)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
