package journal

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestCSVJournalHeaders(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tradesPath := filepath.Join(dir, "trades.csv")
	balancePath := filepath.Join(dir, "balance.csv")

	j, err := NewCSV(tradesPath, balancePath)
	require.NoError(t, err)
	require.NoError(t, j.Close())

	assert.Equal(t, [][]string{tradeHeader}, readCSV(t, tradesPath))
	assert.Equal(t, [][]string{balanceHeader}, readCSV(t, balancePath))
}

func TestCSVJournalRecordTrade(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tradesPath := filepath.Join(dir, "trades.csv")
	balancePath := filepath.Join(dir, "balance.csv")

	j, err := NewCSV(tradesPath, balancePath)
	require.NoError(t, err)

	open := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	closeT := time.Date(2024, 1, 2, 4, 5, 6, 0, time.UTC)

	require.NoError(t, j.RecordTrade(TradeRecord{
		TradeID:    "T1",
		Asset:      "DOGE",
		Direction:  "long",
		Amount:     50,
		Leverage:   3,
		EntryPrice: 0.15,
		ExitPrice:  0.165,
		OpenTime:   open,
		CloseTime:  closeT,
		RealizedPL: 15,
		ROE:        30,
		Reason:     "manual",
	}))
	require.NoError(t, j.Close())

	rows := readCSV(t, tradesPath)
	require.Len(t, rows, 2)

	want := []string{
		"T1",
		"DOGE",
		"long",
		"50.00000000",
		"3",
		"0.15000000",
		"0.16500000",
		open.Format(time.RFC3339),
		closeT.Format(time.RFC3339),
		"15.00000000",
		"30.00000000",
		"manual",
	}
	assert.Equal(t, want, rows[1])
}

func TestCSVJournalAppendsAcrossReopen(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tradesPath := filepath.Join(dir, "trades.csv")
	balancePath := filepath.Join(dir, "balance.csv")
	ts := time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC)

	for i := 0; i < 2; i++ {
		j, err := NewCSV(tradesPath, balancePath)
		require.NoError(t, err)
		require.NoError(t, j.RecordBalance(BalanceSnapshot{
			Time:       ts,
			Balance:    1000.1,
			Equity:     999.9,
			MarginUsed: 10.5,
			FreeMargin: 989.6,
		}))
		require.NoError(t, j.Close())
	}

	rows := readCSV(t, balancePath)
	require.Len(t, rows, 3, "one header and two rows")
	assert.Equal(t, balanceHeader, rows[0])
	assert.Equal(t, []string{
		ts.Format(time.RFC3339),
		"1000.10000000",
		"999.90000000",
		"10.50000000",
		"989.60000000",
	}, rows[2])
}
