package catalog

import (
	"regexp"
	"strconv"
	"strings"
)

// Upstream numeric fields arrive as display strings ("$19.99", "4.3 out of
// 5 stars", "1,234 ratings"). The parsers below extract a best-effort numeric
// value and never fail: a malformed field becomes zero, not an error, so one
// bad field cannot invalidate an otherwise usable product.
var (
	nonPrice   = regexp.MustCompile(`[^0-9.]`)
	firstFloat = regexp.MustCompile(`\d+\.?\d*`)
	firstInt   = regexp.MustCompile(`\d+`)
)

// ParsePrice strips everything except digits and decimal points and parses
// the remainder. Returns 0 for empty, unparsable, or negative input.
func ParsePrice(text string) float64 {
	cleaned := nonPrice.ReplaceAllString(text, "")
	if cleaned == "" {
		return 0
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

// ParseRating extracts the first integer or decimal substring, capped at the
// 5-star scale maximum. Returns 0 when none is found.
func ParseRating(text string) float64 {
	m := firstFloat.FindString(text)
	if m == "" {
		return 0
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil || v < 0 {
		return 0
	}
	if v > 5 {
		return 5
	}
	return v
}

// ParseReviewCount strips thousands separators and extracts the first integer
// substring. Returns 0 when none is found.
func ParseReviewCount(text string) int {
	m := firstInt.FindString(strings.ReplaceAll(text, ",", ""))
	if m == "" {
		return 0
	}
	v, err := strconv.Atoi(m)
	if err != nil || v < 0 {
		return 0
	}
	return v
}
