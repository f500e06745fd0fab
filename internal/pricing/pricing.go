// Package pricing normalizes locale-ambiguous price text into canonical values.
//
// Vendor pages mix European ("1.234,56") and US ("1,234.56") grouping, sometimes
// within a single page, so the convention is inferred per string rather than
// configured per vendor.
package pricing

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Parse extracts a numeric price from free-form text. Unparseable input yields 0,
// which downstream cleanup treats as the "unparseable" sentinel; Parse never fails.
func Parse(raw string) float64 {
	cleaned := stripNonNumeric(raw)
	if cleaned == "" {
		return 0
	}

	dots := strings.Count(cleaned, ".")
	commas := strings.Count(cleaned, ",")
	lastDot := strings.LastIndex(cleaned, ".")
	lastComma := strings.LastIndex(cleaned, ",")

	switch {
	case isEuropean(cleaned, dots, commas, lastDot, lastComma):
		normalized := strings.ReplaceAll(cleaned, ".", "")
		normalized = strings.ReplaceAll(normalized, ",", ".")
		return parseFloatOrZero(normalized)

	case isUS(cleaned, dots, commas, lastDot, lastComma):
		return parseFloatOrZero(strings.ReplaceAll(cleaned, ",", ""))

	default:
		return parseFloatOrZero(strings.ReplaceAll(cleaned, ",", ""))
	}
}

// isEuropean reports dot-thousands / comma-decimal grouping.
func isEuropean(s string, dots, commas, lastDot, lastComma int) bool {
	if commas == 1 && len(s)-lastComma-1 == 2 {
		return true
	}
	if commas > 0 && dots > 0 && lastComma > lastDot {
		return true
	}
	if commas == 0 && dots == 1 && len(s)-lastDot-1 == 3 {
		// single dot with three trailing digits reads as a thousands dot
		return true
	}
	if commas == 0 && dots > 1 {
		return true
	}
	if commas == 0 && dots == 0 {
		return true
	}
	return false
}

// isUS reports comma-thousands / dot-decimal grouping.
func isUS(s string, dots, commas, lastDot, lastComma int) bool {
	if dots == 1 && len(s)-lastDot-1 == 2 {
		return true
	}
	if dots > 0 && lastDot > lastComma {
		return true
	}
	return false
}

func stripNonNumeric(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == '.' || r == ',' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func parseFloatOrZero(s string) float64 {
	value, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return value
}

// ToCents converts a parsed price to minor units, the persisted representation.
// Decimal arithmetic avoids float drift on values like 19.99.
func ToCents(price float64) int64 {
	return decimal.NewFromFloat(price).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// FromCents converts a persisted minor-unit price back to a decimal value.
func FromCents(cents int64) float64 {
	value, _ := decimal.NewFromInt(cents).Div(decimal.NewFromInt(100)).Float64()
	return value
}
