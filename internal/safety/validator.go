package safety

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/af-corp/showcase-gateway/internal/config"
	"github.com/af-corp/showcase-gateway/internal/types"
)

const (
	ReasonSafe     = "Safe"
	ReasonEmpty    = "Empty prompt"
	ReasonTooShort = "Prompt too short"

	defaultMaxLength = 1000
	defaultMinLength = 5
	ellipsis         = "..."
)

var (
	exclaimRun  = regexp.MustCompile(`!{3,}`)
	questionRun = regexp.MustCompile(`\?{3,}`)
	dotRun      = regexp.MustCompile(`\.{4,}`)
)

// Rejection describes why a prompt was refused, for metrics.
type Rejection struct {
	Category string
	Reason   string
}

// Validator checks and sanitizes prompts before they reach an image provider.
type Validator struct {
	keywords []Keyword
	rules    []Rule
	cfg      func() config.SafetyConfig
	onReject func(Rejection)
}

// NewValidator creates a validator with the default denylist and injection rules.
// Extra keywords from config are appended after the defaults.
func NewValidator(cfg func() config.SafetyConfig) *Validator {
	return &Validator{keywords: DefaultDenylist(), rules: DefaultRules(), cfg: cfg}
}

// OnReject registers a hook called for every rejected prompt.
func (v *Validator) OnReject(fn func(Rejection)) {
	v.onReject = fn
}

// Validate runs the full check sequence. Rejected prompts are echoed back untouched
// with an empty Sanitized field.
func (v *Validator) Validate(prompt string) types.SanitizedPrompt {
	maxLen, minLen, extra := v.limits()

	if strings.TrimSpace(prompt) == "" {
		return v.reject(prompt, "empty", ReasonEmpty)
	}

	lower := strings.ToLower(prompt)
	for _, kw := range v.keywords {
		if strings.Contains(lower, kw.Word) {
			return v.reject(prompt, kw.Category, "Contains potentially unsafe keyword: "+kw.Word)
		}
	}
	for _, w := range extra {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" && strings.Contains(lower, w) {
			return v.reject(prompt, "custom", "Contains potentially unsafe keyword: "+w)
		}
	}

	sanitized := collapseEmphasis(strings.TrimSpace(prompt))

	for _, r := range v.rules {
		if r.Regex.MatchString(sanitized) {
			return v.reject(prompt, "injection", "Contains potential prompt injection: "+r.Source)
		}
	}

	if utf8.RuneCountInString(sanitized) > maxLen {
		sanitized = truncateAtWord(sanitized, maxLen)
	}

	if utf8.RuneCountInString(strings.TrimSpace(sanitized)) < minLen {
		return v.reject(prompt, "too_short", ReasonTooShort)
	}

	return types.SanitizedPrompt{Raw: prompt, Sanitized: sanitized, IsSafe: true, Reason: ReasonSafe}
}

func (v *Validator) limits() (maxLen, minLen int, extra []string) {
	maxLen, minLen = defaultMaxLength, defaultMinLength
	if v.cfg == nil {
		return maxLen, minLen, nil
	}
	cfg := v.cfg()
	if cfg.MaxLength > len(ellipsis) {
		maxLen = cfg.MaxLength
	}
	if cfg.MinLength > 0 {
		minLen = cfg.MinLength
	}
	return maxLen, minLen, cfg.ExtraKeywords
}

func (v *Validator) reject(prompt, category, reason string) types.SanitizedPrompt {
	if v.onReject != nil {
		v.onReject(Rejection{Category: category, Reason: reason})
	}
	return types.SanitizedPrompt{Raw: prompt, IsSafe: false, Reason: reason}
}

func collapseEmphasis(s string) string {
	s = exclaimRun.ReplaceAllString(s, "!!")
	s = questionRun.ReplaceAllString(s, "??")
	s = dotRun.ReplaceAllString(s, ellipsis)
	return s
}

// truncateAtWord cuts s so that the result, including the trailing ellipsis, is at most
// max runes. Trailing dots are dropped before the ellipsis so a second pass through
// collapseEmphasis leaves the text unchanged.
func truncateAtWord(s string, max int) string {
	runes := []rune(s)
	cut := string(runes[:max-len(ellipsis)])
	if i := strings.LastIndex(cut, " "); i > 0 {
		cut = cut[:i]
	}
	cut = strings.TrimRight(cut, ". ")
	return cut + ellipsis
}

// String renders a one-line summary, handy in logs.
func (r Rejection) String() string {
	return fmt.Sprintf("%s: %s", r.Category, r.Reason)
}
