package decimal

import (
	"math"

	"github.com/shopspring/decimal"
)

// Zero is decimal zero
var Zero = decimal.Zero

// FromFloat converts a stored amount for display. Non-finite values become zero.
func FromFloat(v float64) decimal.Decimal {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Zero
	}
	return decimal.NewFromFloat(v)
}

// Fixed2 formats an amount with exactly two decimal places, rounding half away from zero
func Fixed2(v float64) string {
	return FromFloat(v).StringFixed(2)
}

// Plain formats a number in its shortest exact form ("2", "1.5", "7.25")
func Plain(v float64) string {
	return FromFloat(v).String()
}

// IsNonNegative returns true if v is a finite number >= 0
func IsNonNegative(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}

// IsFinite returns true if v is neither NaN nor an infinity
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
