package mockup

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// placementVocab is the fixed placement vocabulary; scan order matters, the
// first token found wins.
var placementVocab = []string{
	"front", "back", "left", "right", "side", "detail",
	"lifestyle", "folded", "tag", "closeup",
}

// sizeAliases folds provider spellings onto one canonical token before
// comparison.
var sizeAliases = map[string]string{
	"2xl": "xxl",
	"3xl": "xxxl",
	"4xl": "xxxxl",
	"5xl": "xxxxxl",
	"2xs": "xxs",
}

var recognizedSizes = map[string]bool{
	"xxs": true, "xs": true, "s": true, "m": true, "l": true,
	"xl": true, "xxl": true, "xxxl": true, "xxxxl": true, "xxxxxl": true,
	"onesize": true,
}

var diacriticStripper = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// normalizeToken lower-cases, strips diacritics, and drops everything that is
// not a letter or digit, so "Crème-Brûlée" and "creme brulee" compare equal.
func normalizeToken(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if stripped, _, err := transform.String(diacriticStripper, s); err == nil {
		s = stripped
	}

	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isPlacement(tok string) bool {
	for _, p := range placementVocab {
		if tok == p {
			return true
		}
	}
	return false
}

// normalizeSize normalizes a size token through the alias table.
func normalizeSize(s string) string {
	tok := normalizeToken(s)
	if canonical, ok := sizeAliases[tok]; ok {
		return canonical
	}
	return tok
}

// tokenize splits a base file name (extension removed) into comparison
// tokens on whitespace, underscores and hyphens.
func tokenize(base string) []string {
	base = strings.ToLower(base)
	if stripped, _, err := transform.String(diacriticStripper, base); err == nil {
		base = stripped
	}

	return strings.FieldsFunc(base, func(r rune) bool {
		return r == '_' || r == '-' || unicode.IsSpace(r)
	})
}

// stripExtension removes the final extension from a file name.
func stripExtension(name string) string {
	if idx := strings.LastIndexByte(name, '.'); idx > 0 {
		return name[:idx]
	}
	return name
}
