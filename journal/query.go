package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"
)

var ErrTradeNotFound = errors.New("trade not found")

const tradeColumns = `trade_id, asset, direction, amount, leverage, entry_price, exit_price, open_time, close_time, realized_pl, roe, reason`

type scanner interface {
	Scan(dest ...any) error
}

func scanTrade(s scanner) (TradeRecord, error) {
	var rec TradeRecord
	err := s.Scan(
		&rec.TradeID,
		&rec.Asset,
		&rec.Direction,
		&rec.Amount,
		&rec.Leverage,
		&rec.EntryPrice,
		&rec.ExitPrice,
		&rec.OpenTime,
		&rec.CloseTime,
		&rec.RealizedPL,
		&rec.ROE,
		&rec.Reason,
	)
	return rec, err
}

// GetTrade returns a single trade record by ID.
func (j *SQLite) GetTrade(tradeID string) (TradeRecord, error) {
	row := j.db.QueryRow(`SELECT `+tradeColumns+` FROM trades WHERE trade_id = ?`, tradeID)

	rec, err := scanTrade(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return TradeRecord{}, fmt.Errorf("%w: %q", ErrTradeNotFound, tradeID)
		}
		return TradeRecord{}, err
	}
	return rec, nil
}

// ListTradesClosedBetween returns trades whose close_time is within [start, end).
func (j *SQLite) ListTradesClosedBetween(start, end time.Time) ([]TradeRecord, error) {
	rows, err := j.db.Query(`
		SELECT `+tradeColumns+`
		FROM trades
		WHERE close_time >= ? AND close_time < ?
		ORDER BY close_time ASC`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		rec, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListBalanceBetween returns balance snapshots within [start, end).
func (j *SQLite) ListBalanceBetween(start, end time.Time) ([]BalanceSnapshot, error) {
	rows, err := j.db.Query(`
		SELECT time, balance, equity, margin_used, free_margin
		FROM balance
		WHERE time >= ? AND time < ?
		ORDER BY time ASC`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BalanceSnapshot
	for rows.Next() {
		var b BalanceSnapshot
		if err := rows.Scan(&b.Time, &b.Balance, &b.Equity, &b.MarginUsed, &b.FreeMargin); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Stats summarizes a set of settled trades.
type Stats struct {
	Trades       int
	Wins         int
	Losses       int
	StopLosses   int
	Liquidations int
	NetPL        float64
	GrossProfit  float64
	GrossLoss    float64 // positive
	WinRate      float64 // 0..1
	ProfitFactor float64 // 0 when there are no losses
}

// Summarize computes Stats over trades. Reasons are matched against the
// ledger's settlement tags.
func Summarize(trades []TradeRecord) Stats {
	var s Stats
	for _, t := range trades {
		s.Trades++
		s.NetPL += t.RealizedPL
		switch {
		case t.RealizedPL > 0:
			s.Wins++
			s.GrossProfit += t.RealizedPL
		case t.RealizedPL < 0:
			s.Losses++
			s.GrossLoss += math.Abs(t.RealizedPL)
		}
		switch t.Reason {
		case "stop_loss":
			s.StopLosses++
		case "liquidation":
			s.Liquidations++
		}
	}
	if s.Trades > 0 {
		s.WinRate = float64(s.Wins) / float64(s.Trades)
	}
	if s.GrossLoss > 0 {
		s.ProfitFactor = s.GrossProfit / s.GrossLoss
	}
	return s
}
