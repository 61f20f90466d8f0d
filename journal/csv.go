package journal

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"
)

var (
	tradeHeader   = []string{"trade_id", "asset", "direction", "amount", "leverage", "entry_price", "exit_price", "open_time", "close_time", "realized_pl", "roe", "reason"}
	balanceHeader = []string{"time", "balance", "equity", "margin_used", "free_margin"}
)

// CSVJournal appends to two CSV files. Headers are written only when a
// file is new, so a journal survives restarts.
type CSVJournal struct {
	trades  *csv.Writer
	balance *csv.Writer
	tf, bf  *os.File
}

func NewCSV(tradesPath, balancePath string) (*CSVJournal, error) {
	tf, tw, err := openCSV(tradesPath, tradeHeader)
	if err != nil {
		return nil, err
	}
	bf, bw, err := openCSV(balancePath, balanceHeader)
	if err != nil {
		_ = tf.Close()
		return nil, err
	}
	return &CSVJournal{trades: tw, balance: bw, tf: tf, bf: bf}, nil
}

func openCSV(path string, header []string) (*os.File, *csv.Writer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, nil, err
	}

	w := csv.NewWriter(f)
	if st.Size() == 0 {
		if err := w.Write(header); err != nil {
			_ = f.Close()
			return nil, nil, err
		}
		w.Flush()
		if err := w.Error(); err != nil {
			_ = f.Close()
			return nil, nil, err
		}
	}
	return f, w, nil
}

func (j *CSVJournal) RecordTrade(t TradeRecord) error {
	err := j.trades.Write([]string{
		t.TradeID,
		t.Asset,
		t.Direction,
		f(t.Amount),
		strconv.Itoa(t.Leverage),
		f(t.EntryPrice),
		f(t.ExitPrice),
		t.OpenTime.Format(time.RFC3339),
		t.CloseTime.Format(time.RFC3339),
		f(t.RealizedPL),
		f(t.ROE),
		t.Reason,
	})
	if err != nil {
		return err
	}
	j.trades.Flush()
	return j.trades.Error()
}

func (j *CSVJournal) RecordBalance(b BalanceSnapshot) error {
	err := j.balance.Write([]string{
		b.Time.Format(time.RFC3339),
		f(b.Balance),
		f(b.Equity),
		f(b.MarginUsed),
		f(b.FreeMargin),
	})
	if err != nil {
		return err
	}
	j.balance.Flush()
	return j.balance.Error()
}

func (j *CSVJournal) Close() error {
	j.trades.Flush()
	if err := j.trades.Error(); err != nil {
		return err
	}
	j.balance.Flush()
	if err := j.balance.Error(); err != nil {
		return err
	}

	if err := j.tf.Close(); err != nil {
		return err
	}
	return j.bf.Close()
}

// f keeps eight decimals so SHIB-sized prices survive.
func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 8, 64)
}
