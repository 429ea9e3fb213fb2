// Package instrument canonicalizes broker-specific symbol spellings and
// provides pip arithmetic used as a matching tolerance unit. Everything here
// is pure and total: unknown input passes through uppercased.
package instrument

import (
	"math"
	"regexp"
	"strings"
)

// Broker suffix variants appended to standard symbols, e.g. EURUSDm,
// XAUUSD.c, GBPUSD-ECN, US30Cash. Single letters are only treated as a
// suffix after a separator or on a seven-letter FX spelling, so real pairs
// ending in one of them (USDZAR) survive.
var wordSuffix = regexp.MustCompile(`(?i)[._-]?(micro|mini|cash|ecn|pro|raw)$`)
var sepLetterSuffix = regexp.MustCompile(`(?i)[._-](m|c|i|r)$`)
var bareLetterSuffix = regexp.MustCompile(`(?i)^[A-Z]{6}(m|c|i|r)$`)

var separatorReplacer = strings.NewReplacer("/", "", "-", "", "_", "", ".", "")

// Normalize canonicalizes a broker symbol spelling. Stripping runs to a
// fixpoint because removing a separator can expose a new suffix
// (EUR/USDm strips to EURUSDM, then to EURUSD), which guarantees
// Normalize(Normalize(s)) == Normalize(s).
func Normalize(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	for {
		next := stripOnce(s)
		if next == s {
			return s
		}
		s = next
	}
}

// stripOnce removes at most one layer of decoration. It never grows the
// string, so the Normalize loop terminates.
func stripOnce(s string) string {
	if strings.HasPrefix(s, "#") || strings.HasPrefix(s, ".") {
		s = s[1:]
	}

	if loc := wordSuffix.FindStringIndex(s); loc != nil && loc[0] >= 3 {
		s = s[:loc[0]]
	} else if loc := sepLetterSuffix.FindStringIndex(s); loc != nil {
		s = s[:loc[0]]
	} else if bareLetterSuffix.MatchString(s) {
		s = s[:6]
	}

	return separatorReplacer.Replace(s)
}

// index symbols quoted in whole points
var indexSymbols = map[string]bool{
	"US30":   true,
	"US100":  true,
	"US500":  true,
	"SPX500": true,
	"NAS100": true,
	"GER40":  true,
	"DAX40":  true,
	"UK100":  true,
	"JP225":  true,
	"HK50":   true,
}

// PipSize returns the pip increment for a normalized instrument. The table
// only needs to be right enough for matching tolerances; it makes no
// trading decisions.
func PipSize(instrument string) float64 {
	inst := Normalize(instrument)

	switch {
	case indexSymbols[inst]:
		return 1.0
	case strings.HasPrefix(inst, "XAU"), strings.HasPrefix(inst, "GOLD"):
		return 0.10
	case strings.HasPrefix(inst, "XAG"), strings.HasPrefix(inst, "SILVER"):
		return 0.001
	case strings.Contains(inst, "JPY"):
		return 0.01
	default:
		return 0.0001
	}
}

// PipDistance expresses the distance between two prices in pips for the
// given instrument.
func PipDistance(instrument string, priceA, priceB float64) float64 {
	return math.Abs(priceA-priceB) / PipSize(instrument)
}
