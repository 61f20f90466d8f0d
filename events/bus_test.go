package events

import (
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBus(t *testing.T, catalog []Event) *Bus {
	t.Helper()
	b, err := NewBus(catalog, DefaultConfig(), rand.New(rand.NewPCG(1, 2)), nil)
	require.NoError(t, err)
	return b
}

func TestCatalog(t *testing.T) {
	t.Parallel()

	c := DefaultCatalog()
	require.Len(t, c, 30)

	seen := map[int]bool{}
	var pos, neg int
	for _, ev := range c {
		assert.False(t, seen[ev.ID], "duplicate id %d", ev.ID)
		seen[ev.ID] = true
		assert.NotEmpty(t, ev.Title)
		assert.Positive(t, ev.VolatilityImpact)

		switch ev.Kind {
		case Positive:
			pos++
			assert.Positive(t, ev.PriceImpact, ev.Title)
		case Negative:
			neg++
			assert.Negative(t, ev.PriceImpact, ev.Title)
		default:
			t.Fatalf("unexpected kind %q", ev.Kind)
		}
	}
	assert.Equal(t, 15, pos)
	assert.Equal(t, 15, neg)

	// Callers get a copy.
	c[0].PriceImpact = 99
	assert.NotEqual(t, 99.0, DefaultCatalog()[0].PriceImpact)
}

func TestNewBusRejectsEmptyCatalog(t *testing.T) {
	t.Parallel()

	_, err := NewBus(nil, DefaultConfig(), nil, nil)
	assert.ErrorIs(t, err, ErrEmptyCatalog)
}

func TestActivateAndExpire(t *testing.T) {
	t.Parallel()

	b := newTestBus(t, DefaultCatalog())
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	var notified []Activation
	b.SetNotifier(func(a Activation) { notified = append(notified, a) })

	a1 := b.Activate(now)
	a2 := b.Activate(now.Add(time.Second))

	assert.NotEmpty(t, a1.InstanceID)
	assert.NotEqual(t, a1.InstanceID, a2.InstanceID)
	assert.Equal(t, now.Add(30*time.Second), a1.ExpiresAt)
	assert.Equal(t, []Activation{a1, a2}, notified)
	assert.Len(t, b.Active(), 2)
	assert.InDelta(t, a1.Event.PriceImpact+a2.Event.PriceImpact, b.ActiveImpact(), 1e-12)
	assert.InDelta(t, a1.Event.VolatilityImpact+a2.Event.VolatilityImpact, b.ActiveVolatilityImpact(), 1e-12)

	assert.True(t, b.Expire(a1.InstanceID))
	assert.False(t, b.Expire(a1.InstanceID))
	assert.Equal(t, []Activation{a2}, b.Active())
	assert.InDelta(t, a2.Event.PriceImpact, b.ActiveImpact(), 1e-12)
}

func TestExpireRemovesOnlyMatchingInstance(t *testing.T) {
	t.Parallel()

	// A one-event catalog guarantees both activations share a catalog id.
	single := []Event{DefaultCatalog()[0]}
	b := newTestBus(t, single)
	now := time.Now()

	first := b.Activate(now)
	second := b.Activate(now)
	require.Equal(t, first.Event.ID, second.Event.ID)

	require.True(t, b.Expire(second.InstanceID))

	active := b.Active()
	require.Len(t, active, 1)
	assert.Equal(t, first.InstanceID, active[0].InstanceID)
	assert.InDelta(t, single[0].PriceImpact, b.ActiveImpact(), 1e-12)
}

func TestSweep(t *testing.T) {
	t.Parallel()

	b := newTestBus(t, DefaultCatalog())
	now := time.Now()

	b.Activate(now)
	b.Activate(now.Add(10 * time.Second))
	late := b.Activate(now.Add(20 * time.Second))

	assert.Equal(t, 0, b.Sweep(now.Add(29*time.Second)))
	assert.Equal(t, 2, b.Sweep(now.Add(40*time.Second)))

	active := b.Active()
	require.Len(t, active, 1)
	assert.Equal(t, late.InstanceID, active[0].InstanceID)

	assert.Equal(t, 1, b.Sweep(now.Add(time.Hour)))
	assert.Zero(t, b.ActiveImpact())
}

func TestActivateDrawsAcrossCatalog(t *testing.T) {
	t.Parallel()

	b := newTestBus(t, DefaultCatalog())
	now := time.Now()

	kinds := map[Kind]int{}
	for i := 0; i < 300; i++ {
		a := b.Activate(now)
		kinds[a.Event.Kind]++
		b.Expire(a.InstanceID)
	}
	assert.Positive(t, kinds[Positive])
	assert.Positive(t, kinds[Negative])
	assert.Empty(t, b.Active())
}

func TestNextInterval(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		cfg      Config
		min, max time.Duration
	}{
		{
			name: "default jitter",
			cfg:  DefaultConfig(),
			min:  30 * time.Second,
			max:  60 * time.Second,
		},
		{
			name: "fixed interval",
			cfg:  Config{MinInterval: 5 * time.Second, MaxInterval: 5 * time.Second},
			min:  5 * time.Second,
			max:  5 * time.Second,
		},
		{
			name: "swapped bounds",
			cfg:  Config{MinInterval: 2 * time.Second, MaxInterval: time.Second},
			min:  time.Second,
			max:  2 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := NewBus(DefaultCatalog(), tt.cfg, rand.New(rand.NewPCG(9, 9)), nil)
			require.NoError(t, err)

			lo, hi := time.Duration(math.MaxInt64), time.Duration(0)
			for i := 0; i < 500; i++ {
				d := b.NextInterval()
				require.GreaterOrEqual(t, d, tt.min)
				require.LessOrEqual(t, d, tt.max)
				lo, hi = min(lo, d), max(hi, d)
			}
			if tt.max > tt.min {
				assert.Less(t, lo, hi)
			}
		})
	}
}
