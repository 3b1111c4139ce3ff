package mapper

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/utafrali/marketplace/services/catalog/internal/domain"
)

// DateLayout is the wire format of local and UTC timestamps.
const DateLayout = "2006-01-02T15:04:05"

var (
	blankLines = regexp.MustCompile(`\n\s*\n`)
	blockStart = regexp.MustCompile(`(?i)^<(p|div|ul|ol|li|h[1-6]|blockquote|pre|table|figure|hr)[\s>/]`)
)

// autop wraps blank-line separated blocks of text in paragraphs and turns the
// remaining newlines into line breaks. Blocks that already start with a block
// element are left as they are.
func autop(s string) string {
	s = strings.TrimSpace(strings.ReplaceAll(s, "\r\n", "\n"))
	if s == "" {
		return ""
	}
	var b strings.Builder
	for _, block := range blankLines.Split(s, -1) {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		if blockStart.MatchString(block) {
			b.WriteString(block)
		} else {
			b.WriteString("<p>")
			b.WriteString(strings.ReplaceAll(block, "\n", "<br />\n"))
			b.WriteString("</p>")
		}
		b.WriteString("\n")
	}
	return b.String()
}

// formatDate renders t in loc, or nil when t is unset.
func formatDate(t *time.Time, loc *time.Location) *string {
	if t == nil || t.IsZero() {
		return nil
	}
	s := t.In(loc).Format(DateLayout)
	return &s
}

func formatTime(t time.Time, loc *time.Location) *string {
	return formatDate(&t, loc)
}

func formatAmount(settings domain.StoreSettings, price string) string {
	d, ok := domain.ParsePrice(price)
	if !ok {
		return ""
	}
	return fmt.Sprintf(`<span class="amount">%s%s</span>`,
		html.EscapeString(settings.CurrencySymbol), d.StringFixed(settings.PriceDecimals))
}

// priceHTML renders the storefront price of c: the active price, or the
// regular price struck through next to the sale price while on sale.
func priceHTML(settings domain.StoreSettings, c *domain.Commerce, onSale bool) string {
	if c.Price == "" {
		return ""
	}
	if onSale {
		return fmt.Sprintf("<del>%s</del> <ins>%s</ins>",
			formatAmount(settings, c.RegularPrice), formatAmount(settings, c.Price))
	}
	return formatAmount(settings, c.Price)
}
