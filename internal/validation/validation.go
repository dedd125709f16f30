// Package validation holds the stateless guards every mutating operation runs
// before touching state. All functions are pure.
package validation

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf8"
)

const maxPrincipalLength = 128

// burnPrincipal mirrors config.BurnPrincipal; duplicated to keep this package a leaf.
const burnPrincipal = "SP000000000000000000002Q6VF78"

// IsValidString reports whether s has between min and max characters.
func IsValidString(s string, min, max int) bool {
	n := utf8.RuneCountInString(s)
	return n >= min && n <= max
}

func IsValidAmount(amount, min, max uint64) bool {
	return amount >= min && amount <= max
}

// IsValidDuration reports whether d is a positive number of ticks not above max.
func IsValidDuration(d, max uint64) bool {
	return d > 0 && d <= max
}

// IsValidPrincipal accepts non-empty account identifiers without whitespace or
// control characters. The burn address is never a valid participant.
func IsValidPrincipal(p string) bool {
	if p == "" || len(p) > maxPrincipalLength || p == burnPrincipal {
		return false
	}
	return strings.IndexFunc(p, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsControl(r)
	}) < 0
}

func IsValidRating(score, min, max uint8) bool {
	return score >= min && score <= max
}

func IsValidPercentage(p uint64) bool {
	return p <= 100
}

// IsWithinPriceBand reports whether proposed lies within [minPct%, maxPct%] of
// original.
func IsWithinPriceBand(proposed, original, minPct, maxPct uint64) bool {
	if proposed > math.MaxUint64/100 || original > math.MaxUint64/maxPct {
		return false
	}
	scaled := proposed * 100
	return scaled >= original*minPct && scaled <= original*maxPct
}

// AreValidLinks checks the link count and each link's length.
func AreValidLinks(links []string, minN, maxN, maxLen int) bool {
	if len(links) < minN || len(links) > maxN {
		return false
	}
	for _, l := range links {
		if !IsValidString(strings.TrimSpace(l), 1, maxLen) {
			return false
		}
	}
	return true
}
