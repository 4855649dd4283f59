// Package core defines the domain entities of the derivation pipeline
// and the parsing helpers shared by its stages.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a bank-exported amount string to a decimal.
//
// Both separator conventions are accepted: "1,234.56" and "1.234,56"
// parse to the same value. When only one separator kind is present it is
// taken as the decimal mark if it occurs once with at most two trailing
// digits, and as a thousands mark otherwise. Currency symbols and
// whitespace are stripped; a trailing minus ("12,50-") is honoured.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "€$£ \t")
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}

	neg := false
	if strings.HasSuffix(s, "-") {
		neg = true
		s = strings.TrimSuffix(s, "-")
	}
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, " ", "")

	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")

	switch {
	case lastComma >= 0 && lastDot >= 0:
		// Both present: the later one is the decimal mark.
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		s = normalizeSingleSeparator(s, ",")
	case lastDot >= 0:
		s = normalizeSingleSeparator(s, ".")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if neg {
		d = d.Neg()
	}
	return d, nil
}

// normalizeSingleSeparator decides whether the only separator kind in s
// is a decimal or a thousands mark and rewrites s with "." as decimal.
func normalizeSingleSeparator(s, sep string) string {
	if strings.Count(s, sep) != 1 {
		return strings.ReplaceAll(s, sep, "")
	}
	idx := strings.LastIndex(s, sep)
	frac := len(s) - idx - 1
	if frac == 3 {
		// "1.234" / "1,234": a lone group of three is a thousands mark.
		return strings.ReplaceAll(s, sep, "")
	}
	return strings.Replace(s, sep, ".", 1)
}
