package injection

import (
	"context"
	"fmt"

	"github.com/af-corp/showcase-gateway/internal/config"
	"github.com/af-corp/showcase-gateway/internal/filter"
)

// Detection records a matched injection pattern.
type Detection struct {
	RuleName string
	Severity float64
	Category string
	Start    int
	End      int
}

// Scanner scans caller-supplied text for prompt injection patterns before it
// is embedded in a text-provider call.
type Scanner struct {
	rules []Rule
	cfg   func() config.InjectionFilterConfig
}

func NewScanner(cfg func() config.InjectionFilterConfig) *Scanner {
	return &Scanner{rules: DefaultRules(), cfg: cfg}
}

func (s *Scanner) Name() string  { return "injection" }
func (s *Scanner) Enabled() bool { return s.cfg().Enabled }

// Scan checks a single text string and returns all detections.
func (s *Scanner) Scan(text string) []Detection {
	var detections []Detection
	for _, r := range s.rules {
		for _, loc := range r.Regex.FindAllStringIndex(text, -1) {
			detections = append(detections, Detection{
				RuleName: r.Name,
				Severity: r.Severity,
				Category: r.Category,
				Start:    loc[0],
				End:      loc[1],
			})
		}
	}
	return detections
}

// ScanTexts scans every text and returns detections and the max severity score.
func (s *Scanner) ScanTexts(texts []string) ([]Detection, float64) {
	var all []Detection
	maxScore := 0.0
	for _, t := range texts {
		detections := s.Scan(t)
		all = append(all, detections...)
		for _, d := range detections {
			maxScore = max(maxScore, d.Severity)
		}
	}
	return all, maxScore
}

// ScanRequest implements filter.Filter. Image prompts are only flagged: one
// bad prompt is rejected by itself downstream and must not fail its batch.
func (s *Scanner) ScanRequest(_ context.Context, req *filter.Request) filter.Result {
	detections, score := s.ScanTexts(req.Texts)
	cfg := s.cfg()
	blocks := req.Source != filter.SourcePrompts

	switch {
	case blocks && len(detections) > 0 && score >= cfg.BlockThreshold:
		return filter.Result{
			Action:     filter.ActionBlock,
			FilterName: s.Name(),
			Message:    fmt.Sprintf("Request blocked: prompt injection detected (score %.2f)", score),
			Detections: len(detections),
			Score:      score,
		}
	case len(detections) > 0 && score >= cfg.FlagThreshold:
		return filter.Result{
			Action:     filter.ActionFlag,
			FilterName: s.Name(),
			Detections: len(detections),
			Score:      score,
		}
	}
	return filter.Result{Action: filter.ActionPass, FilterName: s.Name(), Score: score}
}
