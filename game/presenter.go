package game

import (
	"github.com/rustyeddy/levgame/events"
	"github.com/rustyeddy/levgame/ledger"
	"github.com/rustyeddy/levgame/market"
)

// PriceView is what a chart needs after a tick.
type PriceView struct {
	Asset      market.Asset
	Selected   bool
	Price      float64
	Change     float64 // percent vs the previous sample
	Volatility float64
	Trend      float64 // EMA of History; 0 until warmed up
	History    []float64
	Markers    []market.Marker
}

// Row is one open position as displayed.
type Row struct {
	ID           string
	Asset        string
	Decimals     int
	Direction    ledger.Direction
	Leverage     int
	Amount       float64
	EntryPrice   float64
	CurrentPrice float64
	StopLoss     *float64
	StopPrice    float64 // 0 without a stop-loss
	Liquidation  float64
	PnL          float64
	ROE          float64
}

type PositionsView struct {
	Balance   float64
	Rows      []Row
	Summary   ledger.Summary
	Selection Selection
}

// Presenter renders session output. Calls happen on the session's step
// goroutine and must not call back into the session.
type Presenter interface {
	PriceUpdated(PriceView)
	PositionsUpdated(PositionsView)
	Settled(ledger.HistoryEntry)
	EventActivated(events.Activation)
	HistoryShown([]ledger.HistoryEntry, ledger.Ranking, string)
	Rejected(action string, err error)
}

// Nop discards everything.
type Nop struct{}

func (Nop) PriceUpdated(PriceView)                                     {}
func (Nop) PositionsUpdated(PositionsView)                             {}
func (Nop) Settled(ledger.HistoryEntry)                                {}
func (Nop) EventActivated(events.Activation)                           {}
func (Nop) HistoryShown([]ledger.HistoryEntry, ledger.Ranking, string) {}
func (Nop) Rejected(string, error)                                     {}
