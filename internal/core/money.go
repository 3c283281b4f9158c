// Package core provides amount parsing for ledger values.
//
// Ledger amounts arrive as text typed by people or exported by spreadsheets,
// in Brazilian ("R$ 1.234,56") and plain ("1234.56") notations.
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

var currencySymbols = []string{"R$", "US$", "$", "€"}

// ParseAmount converts ledger text to a decimal amount. It never fails:
// empty or unparsable input yields zero.
//
// Separator rules, in order:
//   - both "," and "." present: "." is a thousands separator, "," the decimal point
//   - only "," present: "," is the decimal point
//   - exactly one "." followed by exactly three digits: thousands separator
//   - otherwise "." is the decimal point
//
// Examples:
//
//	ParseAmount("R$ 1.234,56") -> 1234.56
//	ParseAmount("1234,56")     -> 1234.56
//	ParseAmount("1.234")       -> 1234 (see IsAmbiguousAmount)
//	ParseAmount("1.50")        -> 1.50
//	ParseAmount("abc")         -> 0
func ParseAmount(raw string) decimal.Decimal {
	d, ok := parseAmount(raw)
	if !ok {
		return decimal.Zero
	}
	return d
}

// ParseAmountStrict applies the same rules as ParseAmount but reports empty
// or unparsable input as ErrInvalidAmount instead of defaulting to zero.
func ParseAmountStrict(raw string) (decimal.Decimal, error) {
	d, ok := parseAmount(raw)
	if !ok {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// IsAmbiguousAmount reports whether raw has a single "." followed by exactly
// three digits and no ",". Such input ("1.234") is read as a thousands
// separator, so a genuine three-decimal value is misread by ParseAmount.
func IsAmbiguousAmount(raw string) bool {
	s := stripAmount(raw)
	if strings.Contains(s, ",") || strings.Count(s, ".") != 1 {
		return false
	}
	return isThreeDigits(s[strings.Index(s, ".")+1:])
}

// FormatAmount encodes an amount for storage: two decimals, comma as the
// decimal point and no thousands separator, so it reads back unchanged
// through ParseAmount.
func FormatAmount(d decimal.Decimal) string {
	return strings.Replace(d.StringFixed(2), ".", ",", 1)
}

func parseAmount(raw string) (decimal.Decimal, bool) {
	s := stripAmount(raw)
	if s == "" {
		return decimal.Zero, false
	}
	hasComma := strings.Contains(s, ",")
	hasDot := strings.Contains(s, ".")
	switch {
	case hasComma && hasDot:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	case hasComma:
		s = strings.ReplaceAll(s, ",", ".")
	case hasDot:
		if strings.Count(s, ".") == 1 && isThreeDigits(s[strings.Index(s, ".")+1:]) {
			s = strings.Replace(s, ".", "", 1)
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

func stripAmount(raw string) string {
	s := raw
	for _, sym := range currencySymbols {
		s = strings.ReplaceAll(s, sym, "")
	}
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

func isThreeDigits(s string) bool {
	if len(s) != 3 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
