package validation

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldDiacritics strips combining marks so accented letters reduce to their
// ASCII base ("é" becomes "e").
var foldDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Slugify derives a URL-safe, lowercase ASCII slug from a post title. The
// result is deterministic: the same title always yields the same slug.
// Accented letters fold to their base letter; runs of any other
// non-alphanumeric characters collapse into a single hyphen.
func Slugify(title string) string {
	if folded, _, err := transform.String(foldDiacritics, title); err == nil {
		title = folded
	}

	var b strings.Builder
	b.Grow(len(title))

	lastHyphen := true // suppress leading hyphen
	for _, r := range strings.ToLower(title) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			lastHyphen = false
			continue
		}
		if !lastHyphen {
			b.WriteByte('-')
			lastHyphen = true
		}
	}

	return strings.TrimSuffix(b.String(), "-")
}
