package domain

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeText strips diacritics and collapses runs of whitespace into a
// single space. ASCII input is returned unchanged apart from whitespace.
func NormalizeText(s string) string {
	if s == "" {
		return ""
	}

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, err := transform.String(t, s)
	if err != nil {
		result = s
	}

	return strings.Join(strings.Fields(result), " ")
}

// NormalizeKey produces the lookup key used to join transactions with the
// open-invoice registry: normalized, upper-cased, without any whitespace.
func NormalizeKey(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(NormalizeText(s)), ""))
}
