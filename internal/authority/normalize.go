package authority

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

var foldCaser = cases.Fold()

// suffixes and articles that vary between publishers of the same authority
// name ("Bristol, City of" vs "City of Bristol", "County Durham" vs
// "Durham, County of", trailing "UA"/"(B)" markers in boundary products).
var nameNoise = []string{
	", city of",
	", county of",
	"city of ",
	"county of ",
	" ua",
	" (b)",
}

// NormalizeName canonicalizes an authority name for cross-dataset joins
// where only names (not GSS codes) are available. It case-folds, strips
// diacritics and publisher-specific suffixes, and collapses whitespace.
func NormalizeName(name string) string {
	s := norm.NFKD.String(name)

	// Drop combining marks left behind by NFKD decomposition.
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= 0x0300 && r <= 0x036f {
			continue
		}
		b.WriteRune(r)
	}

	s = foldCaser.String(b.String())
	s = strings.ReplaceAll(s, "&", "and")
	s = strings.ReplaceAll(s, ".", "")
	for _, noise := range nameNoise {
		s = strings.ReplaceAll(s, noise, " ")
	}
	s = strings.ReplaceAll(s, ",", " ")
	return strings.Join(strings.Fields(s), " ")
}

// titleCaser renders normalized names for display.
var titleCaser = cases.Title(language.BritishEnglish)

// DisplayName renders a normalized name in title case for reports.
func DisplayName(normalized string) string {
	return titleCaser.String(normalized)
}
