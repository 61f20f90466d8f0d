package ledger

import "math"

// PnL is the profit or loss of a margin position marked at price.
// A long gains when price rises above entry, a short when it falls.
func PnL(dir Direction, entry, price, amount float64, leverage int) float64 {
	if entry <= 0 {
		return 0
	}
	return float64(dir.Sign()) * (price - entry) * amount * float64(leverage) / entry
}

// ROE is pnl as a percentage of the committed margin.
func ROE(pnl, amount float64) float64 {
	if amount <= 0 {
		return 0
	}
	return pnl * 100 / amount
}

// LossPercent is the absolute price move from entry, leveraged, in percent.
func LossPercent(entry, price float64, leverage int) float64 {
	if entry <= 0 {
		return 0
	}
	return math.Abs(price-entry) * float64(leverage) * 100 / entry
}

// ShouldLiquidate reports whether the leveraged move has consumed the
// full margin.
func ShouldLiquidate(entry, price float64, leverage int) bool {
	return LossPercent(entry, price, leverage) >= 100
}
