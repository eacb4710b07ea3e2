package catalog

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// fullWidthDigitFold maps full-width digits (U+FF10-U+FF19) to ASCII.
var fullWidthDigitFold = func() *strings.Replacer {
	pairs := make([]string, 0, 20)
	for d := rune('0'); d <= '9'; d++ {
		fullWidth := rune(d - '0' + 0xFF10)
		pairs = append(pairs, string(fullWidth), string(d))
	}
	return strings.NewReplacer(pairs...)
}()

// Normalize produces the dedup/merge comparison key for a song or artist
// name: NFKC normalization, full-width digits folded to ASCII, whitespace
// collapsed, lowercased, and trimmed.
func Normalize(s string) string {
	s = norm.NFKC.String(s)
	s = fullWidthDigitFold.Replace(s)
	s = strings.Join(strings.Fields(s), " ")
	s = strings.ToLower(s)
	return strings.TrimSpace(s)
}
