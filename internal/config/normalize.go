package config

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeName converts an arbitrary project name into a stable identifier
// usable as a namespace: diacritics are folded away, letters lowercased, and
// every run of characters outside [a-z0-9] collapses to a single underscore.
//
//	NormalizeName("My Cool Project!") == "my_cool_project"
//	NormalizeName("Café Héros")       == "cafe_heros"
func NormalizeName(name string) string {
	folded, _, err := transform.String(foldTransformer(), name)
	if err != nil {
		folded = name
	}

	var b strings.Builder
	b.Grow(len(folded))
	pending := false
	for _, r := range strings.ToLower(folded) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pending && b.Len() > 0 {
				b.WriteByte('_')
			}
			pending = false
			b.WriteRune(r)
		} else {
			pending = true
		}
	}
	return b.String()
}

// foldTransformer decomposes to NFKD, removes combining marks, and
// recomposes, turning "é" into "e" and "ﬁ" into "fi".
func foldTransformer() transform.Transformer {
	return transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}
