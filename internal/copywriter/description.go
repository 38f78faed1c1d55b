package copywriter

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var stripPolicy = bluemonday.StrictPolicy()

// PlainText strips markup from a catalog body_html and decodes entities.
// Non-breaking spaces become ordinary spaces.
func PlainText(bodyHTML string) string {
	if strings.TrimSpace(bodyHTML) == "" {
		return ""
	}
	text := html.UnescapeString(stripPolicy.Sanitize(bodyHTML))
	text = strings.ReplaceAll(text, "\u00a0", " ")
	return strings.TrimSpace(text)
}
