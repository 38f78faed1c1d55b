package secrets

import (
	"context"
	"fmt"
	"strings"

	"github.com/af-corp/showcase-gateway/internal/config"
	"github.com/af-corp/showcase-gateway/internal/filter"
)

// Detection represents a detected secret in text.
type Detection struct {
	PatternName string // e.g. "AWS Access Key"
	Start       int    // byte offset
	End         int    // byte offset
}

// Scanner scans text for secrets using pre-compiled regex patterns.
type Scanner struct {
	patterns []Pattern
	cfg      func() config.SecretsFilterConfig
}

// NewScanner creates a scanner with the default secret patterns. A nil cfg
// leaves the scanner enabled.
func NewScanner(cfg func() config.SecretsFilterConfig) *Scanner {
	if cfg == nil {
		cfg = func() config.SecretsFilterConfig { return config.SecretsFilterConfig{Enabled: true} }
	}
	return &Scanner{patterns: DefaultPatterns(), cfg: cfg}
}

// Scan checks a single text string for secrets and returns all detections.
func (s *Scanner) Scan(text string) []Detection {
	var detections []Detection
	for _, p := range s.patterns {
		for _, loc := range p.Regex.FindAllStringIndex(text, -1) {
			detections = append(detections, Detection{
				PatternName: p.Name,
				Start:       loc[0],
				End:         loc[1],
			})
		}
	}
	return detections
}

// ScanTexts scans every text and returns all detections.
func (s *Scanner) ScanTexts(texts []string) []Detection {
	var detections []Detection
	for _, t := range texts {
		detections = append(detections, s.Scan(t)...)
	}
	return detections
}

func (s *Scanner) Name() string  { return "secrets" }
func (s *Scanner) Enabled() bool { return s.cfg().Enabled }

// ScanRequest implements filter.Filter. Any detection blocks the request so
// credentials never reach an image or text provider.
func (s *Scanner) ScanRequest(_ context.Context, req *filter.Request) filter.Result {
	detections := s.ScanTexts(req.Texts)
	if len(detections) == 0 {
		return filter.Result{Action: filter.ActionPass, FilterName: s.Name()}
	}

	seen := map[string]bool{}
	var names []string
	for _, d := range detections {
		if !seen[d.PatternName] {
			seen[d.PatternName] = true
			names = append(names, d.PatternName)
		}
	}
	return filter.Result{
		Action:     filter.ActionBlock,
		FilterName: s.Name(),
		Message:    fmt.Sprintf("Prompt contains credentials (%s); remove them and retry", strings.Join(names, ", ")),
		Detections: len(detections),
	}
}
