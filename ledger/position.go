package ledger

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rustyeddy/levgame/journal"
)

type Direction string

const (
	Long  Direction = "long"
	Short Direction = "short"
)

// Sign is +1 for long and -1 for short.
func (d Direction) Sign() int {
	if d == Short {
		return -1
	}
	return 1
}

func (d Direction) Valid() bool { return d == Long || d == Short }

// ParseDirection accepts long/short and the buy/sell aliases.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "long", "buy", "l":
		return Long, nil
	case "short", "sell", "s":
		return Short, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDirection, s)
}

// Reason tags how a position was settled.
type Reason string

const (
	ReasonManual      Reason = "manual"
	ReasonStopLoss    Reason = "stop_loss"
	ReasonLiquidation Reason = "liquidation"
)

// Position is an open leveraged position. Amount is the committed margin,
// not the notional.
type Position struct {
	ID           string    `json:"id"`
	Asset        string    `json:"asset"`
	Direction    Direction `json:"direction"`
	EntryPrice   float64   `json:"entryPrice"`
	CurrentPrice float64   `json:"currentPrice"`
	Amount       float64   `json:"amount"`
	Leverage     int       `json:"leverage"`
	StopLoss     *float64  `json:"stopLoss"` // ROE loss percent; nil when unset
	OpenTime     time.Time `json:"openTime"`
	PnL          float64   `json:"pnl"`
	ROE          float64   `json:"roe"`
}

// Mark revalues the position at price.
func (p *Position) Mark(price float64) {
	p.CurrentPrice = price
	p.PnL = PnL(p.Direction, p.EntryPrice, price, p.Amount, p.Leverage)
	p.ROE = ROE(p.PnL, p.Amount)
}

func (p *Position) hitStopLoss() bool {
	return p.StopLoss != nil && math.Abs(p.ROE) >= *p.StopLoss
}

func (p *Position) shouldLiquidate() bool {
	return ShouldLiquidate(p.EntryPrice, p.CurrentPrice, p.Leverage)
}

// HistoryEntry is the immutable record of a settled position.
type HistoryEntry struct {
	ID         string    `json:"id"`
	Asset      string    `json:"asset"`
	Direction  Direction `json:"direction"`
	OpenTime   time.Time `json:"openTime"`
	CloseTime  time.Time `json:"closeTime"`
	EntryPrice float64   `json:"entryPrice"`
	ExitPrice  float64   `json:"exitPrice"`
	Amount     float64   `json:"amount"`
	Leverage   int       `json:"leverage"`
	PnL        float64   `json:"pnl"`
	ROE        float64   `json:"roe"`
	Reason     Reason    `json:"reason,omitempty"`
}

func (p Position) settle(closeTime time.Time, reason Reason) HistoryEntry {
	return HistoryEntry{
		ID:         p.ID,
		Asset:      p.Asset,
		Direction:  p.Direction,
		OpenTime:   p.OpenTime,
		CloseTime:  closeTime,
		EntryPrice: p.EntryPrice,
		ExitPrice:  p.CurrentPrice,
		Amount:     p.Amount,
		Leverage:   p.Leverage,
		PnL:        p.PnL,
		ROE:        p.ROE,
		Reason:     reason,
	}
}

// TradeRecord maps the entry onto the journal's row.
func (h HistoryEntry) TradeRecord() journal.TradeRecord {
	return journal.TradeRecord{
		TradeID:    h.ID,
		Asset:      h.Asset,
		Direction:  string(h.Direction),
		Amount:     h.Amount,
		Leverage:   h.Leverage,
		EntryPrice: h.EntryPrice,
		ExitPrice:  h.ExitPrice,
		OpenTime:   h.OpenTime,
		CloseTime:  h.CloseTime,
		RealizedPL: h.PnL,
		ROE:        h.ROE,
		Reason:     string(h.Reason),
	}
}
