// Package sanitize cleans user-supplied text before it is stored.
package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	richPolicy  = bluemonday.UGCPolicy()
	plainPolicy = bluemonday.StrictPolicy()
)

// RichText keeps safe post markup (links, lists, emphasis, images) and drops
// scripts, event handlers and unknown elements.
func RichText(s string) string {
	return richPolicy.Sanitize(s)
}

// plainPasses bounds how often Plain re-sanitizes decoded output.
const plainPasses = 4

// Plain strips every tag and trims surrounding whitespace. Entities are decoded
// so "Fish & Chips" round-trips unchanged; the decoded text is sanitized again
// until it is stable, so encoded markup never comes back as a live tag. Input
// that does not settle is returned still escaped.
func Plain(s string) string {
	cur := html.UnescapeString(s)
	for range plainPasses {
		escaped := plainPolicy.Sanitize(cur)
		next := html.UnescapeString(escaped)
		if next == cur {
			return strings.TrimSpace(next)
		}
		cur = next
	}
	return strings.TrimSpace(plainPolicy.Sanitize(cur))
}

// Lines is Plain applied per line; line breaks survive.
func Lines(s string) string {
	parts := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	for i, p := range parts {
		parts[i] = Plain(p)
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}
