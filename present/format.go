// Package present renders a game session to a terminal.
package present

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Price formats a price at the asset's display precision.
func Price(v float64, decimals int) string {
	return decimal.NewFromFloat(v).StringFixed(int32(decimals))
}

// Plain formats a price with as many digits as it needs.
func Plain(v float64) string {
	return decimal.NewFromFloat(v).String()
}

// Money formats a dollar amount with two decimals, sign before the symbol.
func Money(v float64) string {
	d := decimal.NewFromFloat(v).Round(2)
	if d.IsNegative() {
		return "-$" + d.Abs().StringFixed(2)
	}
	return "$" + d.StringFixed(2)
}

// Percent formats a signed percentage, e.g. "+1.25%" or "-0.40%".
func Percent(v float64) string {
	d := decimal.NewFromFloat(v).Round(2)
	s := d.StringFixed(2)
	if !d.IsNegative() {
		s = "+" + s
	}
	return s + "%"
}

var sparks = []rune("▁▂▃▄▅▆▇█")

// Sparkline draws prices as a one-line chart.
func Sparkline(prices []float64) string {
	if len(prices) == 0 {
		return ""
	}
	lo, hi := prices[0], prices[0]
	for _, p := range prices {
		lo = min(lo, p)
		hi = max(hi, p)
	}
	var b strings.Builder
	for _, p := range prices {
		i := 0
		if hi > lo {
			i = int((p - lo) / (hi - lo) * float64(len(sparks)-1))
		}
		b.WriteRune(sparks[i])
	}
	return b.String()
}
