package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// displayPrecision is used only when formatting amounts for export surfaces.
// Internal arithmetic is never rounded.
const displayPrecision = 2

// SafeParse parses a string into a decimal, returning zero for invalid or empty input.
func SafeParse(value string) decimal.Decimal {
	if value == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// SafeSum adds two decimals.
func SafeSum(a, b decimal.Decimal) decimal.Decimal {
	return a.Add(b)
}

// WeightedAverage returns sum(value*weight)/sum(weight), or zero when the
// weights sum to zero. Extra elements on either side are ignored.
func WeightedAverage(values, weights []decimal.Decimal) decimal.Decimal {
	n := min(len(values), len(weights))
	num := decimal.Zero
	den := decimal.Zero
	for i := range n {
		num = num.Add(values[i].Mul(weights[i]))
		den = den.Add(weights[i])
	}
	if den.IsZero() {
		return decimal.Zero
	}
	return num.Div(den)
}

// FormatAmount rounds to display precision and strips trailing zeros.
func FormatAmount(d decimal.Decimal) string {
	s := d.Round(displayPrecision).StringFixed(displayPrecision)
	if !strings.Contains(s, ".") {
		return s
	}
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	return s
}
