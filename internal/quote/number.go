package quote

import (
	"math"
	"strconv"
	"strings"
)

// Upstream payloads mark a missing value in several ways depending on
// provider and market.
var missingValues = map[string]bool{
	"":     true,
	"-":    true,
	"--":   true,
	"N/A":  true,
	"null": true,
}

// ParseFloat converts a payload token into a finite float64, returning def
// for anything that is missing, malformed, NaN or infinite. It never fails.
func ParseFloat(s string, def float64) float64 {
	s = strings.TrimSpace(s)
	if missingValues[s] {
		return def
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return def
	}
	return v
}

// Round2 rounds to two decimals, ties away from zero. Non-finite input or a
// non-finite intermediate yields 0 instead of propagating.
func Round2(x float64) float64 {
	return round2(x, 0)
}

func round2(x, def float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return def
	}
	cents := x * 100
	if math.IsInf(cents, 0) {
		return def
	}
	r := math.Round(cents) / 100
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return def
	}
	return r
}
