package parser

import (
	"regexp"
	"strings"
)

var (
	numberedCategoryRe = regexp.MustCompile(`^\d+\.\s*\*\*.*?\*\*:`)
	categoryNameRe     = regexp.MustCompile(`\*\*(.*?)\*\*:`)
)

const bulletMarkers = "•-* "

// ParseImprovements reads an explanation block. Lines shaped like "1. **Category**:"
// open an improvement; following "-" lines append ": detail" to it. When no numbered
// category is found, every bullet line becomes its own improvement.
func ParseImprovements(explanation string) []string {
	lines := strings.Split(explanation, "\n")
	out := []string{}
	current := ""

	for _, line := range lines {
		line = strings.TrimSpace(line)
		switch {
		case numberedCategoryRe.MatchString(line):
			if current != "" {
				out = append(out, strings.TrimSpace(current))
			}
			if m := categoryNameRe.FindStringSubmatch(line); m != nil {
				current = strings.TrimSpace(m[1])
			}
		case strings.HasPrefix(line, "-") && current != "":
			if detail := strings.TrimSpace(strings.TrimLeft(line, "- ")); detail != "" {
				current += ": " + detail
			}
		}
	}
	if current != "" {
		out = append(out, strings.TrimSpace(current))
	}

	if len(out) == 0 {
		return bulletLines(explanation)
	}
	return out
}

// bulletLines collects every line starting with •, - or *, marker stripped.
func bulletLines(text string) []string {
	out := []string{}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if !isBullet(line) {
			continue
		}
		if item := strings.TrimSpace(strings.TrimLeft(line, bulletMarkers)); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func isBullet(line string) bool {
	return strings.HasPrefix(line, "•") || strings.HasPrefix(line, "-") || strings.HasPrefix(line, "*")
}
