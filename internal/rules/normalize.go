// Package rules implements the classification and rate-resolution engine:
// rule matching over the operational classification table, the transition
// rate resolver, NCM category lookup, CFOP inference and the Zona Franca
// de Manaus benefit evaluation.
package rules

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NCMPrefixLen is the number of significant digits of a product code.
const NCMPrefixLen = 8

var accentStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// DigitsOnly strips every non-digit rune, turning "8471.30.12" into
// "84713012".
func DigitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NCMPrefix normalizes a product code to its significant prefix.
func NCMPrefix(s string) string {
	d := DigitsOnly(s)
	if len(d) > NCMPrefixLen {
		return d[:NCMPrefixLen]
	}
	return d
}

// NormCode trims and upper-cases a code field for matching.
func NormCode(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// FoldText lowers and accent-strips free text so keyword matching works
// against the legal wording of CFOP descriptions regardless of casing or
// diacritics.
func FoldText(s string) string {
	out, _, err := transform.String(accentStripper, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}
