package utils

import "strings"

// CountWords counts whitespace-delimited words, ignoring leading/trailing
// and repeated whitespace. Matches the word counting applied to comments
// and consultation details at the input boundary.
func CountWords(s string) int {
	return len(strings.Fields(s))
}

// WithinWordLimit reports whether s contains at most limit words.
func WithinWordLimit(s string, limit int) bool {
	return CountWords(s) <= limit
}

// WithinWordBand reports whether s contains between min and max words
// inclusive.
func WithinWordBand(s string, min, max int) bool {
	n := CountWords(s)
	return n >= min && n <= max
}
