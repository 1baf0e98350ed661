// Package htmlsanitize turns user input into plain text before it is sent to the backend.
package htmlsanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// PlainText strips every tag, keeping the text content, and trims surrounding space.
// Entities are decoded again so "a < b" survives unchanged; templates escape on output.
func PlainText(input string) string {
	if input == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(input)))
}
