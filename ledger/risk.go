package ledger

// LiquidationPrice is the mark at which a position's loss reaches the
// full leveraged exposure.
func LiquidationPrice(dir Direction, entry float64, leverage int) float64 {
	if leverage < 1 {
		return 0
	}
	move := entry / float64(leverage)
	if dir == Short {
		return entry + move
	}
	return max(0, entry-move)
}

// StopLossPrice is the losing-side mark at which |roe| reaches stopLoss
// percent.
func StopLossPrice(dir Direction, entry float64, leverage int, stopLoss float64) float64 {
	if leverage < 1 || stopLoss <= 0 {
		return 0
	}
	move := entry * stopLoss / 100 / float64(leverage)
	if dir == Short {
		return entry + move
	}
	return max(0, entry-move)
}

// RiskAmount is what the position loses if the stop is hit, capped at the
// committed amount.
func RiskAmount(amount float64, stopLoss *float64) float64 {
	if stopLoss == nil {
		return amount
	}
	return min(amount, amount**stopLoss/100)
}
