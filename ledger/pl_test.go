package ledger

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPnL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		dir      Direction
		entry    float64
		price    float64
		amount   float64
		leverage int
		want     float64
	}{
		{name: "long profit", dir: Long, entry: 100, price: 110, amount: 50, leverage: 3, want: 15},
		{name: "short loss", dir: Short, entry: 100, price: 110, amount: 50, leverage: 3, want: -15},
		{name: "long loss", dir: Long, entry: 100, price: 95, amount: 200, leverage: 10, want: -100},
		{name: "short profit", dir: Short, entry: 0.00001, price: 0.000009, amount: 100, leverage: 2, want: 20},
		{name: "flat", dir: Long, entry: 50000, price: 50000, amount: 1, leverage: 100, want: 0},
		{name: "bad entry", dir: Long, entry: 0, price: 10, amount: 1, leverage: 1, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, PnL(tt.dir, tt.entry, tt.price, tt.amount, tt.leverage), 1e-9)
		})
	}
}

func TestROE(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 30.0, ROE(15, 50), 1e-12)
	assert.InDelta(t, -30.0, ROE(-15, 50), 1e-12)
	assert.Zero(t, ROE(15, 0))
}

// For a long, a price move of x% at leverage L is an ROE of x*L; a short
// sees the opposite sign.
func TestROEScalesWithLeverage(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(4, 2))
	for i := 0; i < 1000; i++ {
		entry := 0.00001 + rng.Float64()*60000
		movePct := (rng.Float64() - 0.5) * 40
		price := entry * (1 + movePct/100)
		amount := 1 + rng.Float64()*1000
		lev := 1 + rng.IntN(100)

		long := ROE(PnL(Long, entry, price, amount, lev), amount)
		short := ROE(PnL(Short, entry, price, amount, lev), amount)

		require.InDelta(t, movePct*float64(lev), long, 1e-6)
		require.InDelta(t, -long, short, 1e-9)
	}
}

func TestLossPercent(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 100.0, LossPercent(100, 90, 10), 1e-12)
	assert.InDelta(t, 100.0, LossPercent(100, 110, 10), 1e-12)
	assert.InDelta(t, 50.0, LossPercent(50000, 47500, 10), 1e-9)
	assert.Zero(t, LossPercent(0, 1, 1))

	assert.True(t, ShouldLiquidate(100, 90, 10))
	assert.False(t, ShouldLiquidate(100, 90.5, 10))
	assert.True(t, ShouldLiquidate(100, 200, 1))
	assert.False(t, ShouldLiquidate(100, 199, 1))
}

func TestParseDirection(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]Direction{
		"long":  Long, "LONG": Long, "buy": Long, " l ": Long,
		"short": Short, "Sell": Short, "s": Short,
	} {
		got, err := ParseDirection(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseDirection("sideways")
	assert.ErrorIs(t, err, ErrInvalidDirection)
}
