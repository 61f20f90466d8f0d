package journal

import "time"

// TradeRecord is one settled position.
type TradeRecord struct {
	TradeID    string
	Asset      string
	Direction  string
	Amount     float64
	Leverage   int
	EntryPrice float64
	ExitPrice  float64
	OpenTime   time.Time
	CloseTime  time.Time
	RealizedPL float64
	ROE        float64
	Reason     string
}

// BalanceSnapshot captures the account after a balance change.
type BalanceSnapshot struct {
	Time       time.Time
	Balance    float64
	Equity     float64 // balance plus unrealized pnl
	MarginUsed float64 // sum of open position amounts
	FreeMargin float64
}

type Journal interface {
	RecordTrade(TradeRecord) error
	RecordBalance(BalanceSnapshot) error
	Close() error
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordTrade(TradeRecord) error       { return nil }
func (Nop) RecordBalance(BalanceSnapshot) error { return nil }
func (Nop) Close() error                        { return nil }
