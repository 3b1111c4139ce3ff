package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Letters, digits and marks of any script survive; everything else is a separator.
var slugRegexp = regexp.MustCompile(`[^\p{L}\p{N}\p{M}]+`)

// Letters that carry no combining mark under NFD and need an explicit ASCII form.
var foldReplacer = strings.NewReplacer(
	"ı", "i",
	"ß", "ss",
	"æ", "ae",
	"ø", "o",
	"ł", "l",
	"đ", "d",
	"œ", "oe",
)

// Fold lowercases s and strips diacritics from Latin letters, so
// "Çocuk Ürünleri" becomes "cocuk urunleri". Other scripts keep their marks.
func Fold(s string) string {
	var b strings.Builder
	latinBase := false
	for _, r := range norm.NFD.String(strings.ToLower(s)) {
		if unicode.Is(unicode.Mn, r) {
			if !latinBase {
				b.WriteRune(r)
			}
			continue
		}
		latinBase = unicode.Is(unicode.Latin, r)
		b.WriteRune(r)
	}
	return foldReplacer.Replace(norm.NFC.String(b.String()))
}

// Generate creates a URL-friendly slug from the given name.
//
// Examples:
//   - "Kadın Giyim" → "kadin-giyim"
//   - "Crème Brûlée" → "creme-brulee"
//   - "Hello   World!" → "hello-world"
//   - "Красный Цвет" → "красный-цвет"
func Generate(name string) string {
	s := Fold(strings.TrimSpace(name))
	s = slugRegexp.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
