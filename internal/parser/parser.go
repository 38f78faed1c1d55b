// Package parser turns free-form generative text into the structured sections the
// showcase flows consume. Parsing never fails: missing or malformed tags leave the
// corresponding fields at their zero value.
package parser

import (
	"regexp"
	"strings"

	"github.com/af-corp/showcase-gateway/internal/types"
)

// Dialect identifies which response layout the targeting fields were read from.
type Dialect string

const (
	DialectDescription Dialect = "new_description"
	DialectPost        Dialect = "summary_caption"
	DialectFreeform    Dialect = "freeform"
)

const (
	tagNewDescription = "<NEW_DESCRIPTION>"
	tagSummary        = "<SUMMARY>"
	tagCaption        = "<CAPTION>"
)

var (
	summaryRe        = tagPattern("SUMMARY")
	captionRe        = tagPattern("CAPTION")
	imagePromptRe    = tagPattern("IMAGE_PROMPT")
	newDescriptionRe = tagPattern("NEW_DESCRIPTION")
	explanationRe    = tagPattern("EXPLANATION")
)

func tagPattern(name string) *regexp.Regexp {
	return regexp.MustCompile(`(?s)<` + name + `>(.*?)</` + name + `>`)
}

// Parse extracts every known section from raw. RawResponse always holds the input.
func Parse(raw string) types.ParsedAIResponse {
	res := types.ParsedAIResponse{
		Summary:      []string{},
		ImagePrompts: []string{},
		Improvements: []string{},
		RawResponse:  raw,
	}

	if inner, ok := firstMatch(summaryRe, raw); ok {
		res.Summary = markerLines(inner)
	}
	if inner, ok := firstMatch(captionRe, raw); ok {
		res.Caption = strings.TrimSpace(inner)
	}
	for _, m := range imagePromptRe.FindAllStringSubmatch(raw, -1) {
		res.ImagePrompts = append(res.ImagePrompts, strings.TrimSpace(m[1]))
	}

	switch DetectDialect(raw) {
	case DialectDescription:
		if inner, ok := firstMatch(newDescriptionRe, raw); ok {
			res.EnhancedDescription = strings.TrimSpace(inner)
		}
		if inner, ok := firstMatch(explanationRe, raw); ok {
			res.Explanation = strings.TrimSpace(inner)
		}
		if res.Explanation != "" {
			res.Improvements = ParseImprovements(res.Explanation)
		}
	case DialectPost:
		res.EnhancedDescription = res.Caption
		res.Improvements = append(res.Improvements, res.Summary...)
	default:
		res.EnhancedDescription = strings.TrimSpace(raw)
		res.Improvements = bulletLines(raw)
	}

	return res
}

// DetectDialect looks for marker substrings in priority order.
func DetectDialect(raw string) Dialect {
	switch {
	case strings.Contains(raw, tagNewDescription):
		return DialectDescription
	case strings.Contains(raw, tagSummary) && strings.Contains(raw, tagCaption):
		return DialectPost
	default:
		return DialectFreeform
	}
}

func firstMatch(re *regexp.Regexp, s string) (string, bool) {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// markerLines splits a block into trimmed non-empty lines with any leading
// "- " marker removed.
func markerLines(block string) []string {
	out := []string{}
	for _, line := range strings.Split(strings.TrimSpace(block), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out = append(out, strings.TrimLeft(line, "- "))
	}
	return out
}
