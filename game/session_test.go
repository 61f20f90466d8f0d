package game

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/levgame/config"
	"github.com/rustyeddy/levgame/events"
	"github.com/rustyeddy/levgame/ledger"
	"github.com/rustyeddy/levgame/market"
	"github.com/rustyeddy/levgame/store"
)

type fakePresenter struct {
	mu        sync.Mutex
	prices    []PriceView
	positions []PositionsView
	settled   []ledger.HistoryEntry
	events    []events.Activation
	histories int
	rejected  []error
}

func (p *fakePresenter) PriceUpdated(v PriceView) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prices = append(p.prices, v)
}

func (p *fakePresenter) PositionsUpdated(v PositionsView) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.positions = append(p.positions, v)
}

func (p *fakePresenter) Settled(h ledger.HistoryEntry) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.settled = append(p.settled, h)
}

func (p *fakePresenter) EventActivated(a events.Activation) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, a)
}

func (p *fakePresenter) HistoryShown([]ledger.HistoryEntry, ledger.Ranking, string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.histories++
}

func (p *fakePresenter) Rejected(_ string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rejected = append(p.rejected, err)
}

func (p *fakePresenter) counts() (prices, settled, events, rejected int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.prices), len(p.settled), len(p.events), len(p.rejected)
}

func (p *fakePresenter) lastPositions() PositionsView {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.positions) == 0 {
		return PositionsView{}
	}
	return p.positions[len(p.positions)-1]
}

// flakyGateway fails on demand in front of an in-memory store.
type flakyGateway struct {
	*store.Memory
	mu       sync.Mutex
	failSave bool
	failLoad bool
}

var errDisk = errors.New("disk on fire")

func (g *flakyGateway) setFailSave(v bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failSave = v
}

func (g *flakyGateway) Save(ctx context.Context, d *store.Document) error {
	g.mu.Lock()
	fail := g.failSave
	g.mu.Unlock()
	if fail {
		return errors.Join(store.ErrUnavailable, errDisk)
	}
	return g.Memory.Save(ctx, d)
}

func (g *flakyGateway) Load(ctx context.Context) (*store.Document, error) {
	g.mu.Lock()
	fail := g.failLoad
	g.mu.Unlock()
	if fail {
		return nil, errors.Join(store.ErrUnavailable, errDisk)
	}
	return g.Memory.Load(ctx)
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Market.Seed = 7
	cfg.Market.SeedPoints = 10
	cfg.Storage.Type = "memory"
	cfg.Journal.Type = "none"
	cfg.Account.UserID = "user_test"
	return cfg
}

func newSession(t *testing.T, cfg *config.Config, gw store.Gateway, p Presenter) *Session {
	t.Helper()
	s, err := New(Deps{Config: cfg, Gateway: gw, Presenter: p})
	require.NoError(t, err)
	require.NoError(t, s.Init(context.Background()))
	return s
}

func runSession(t *testing.T, s *Session) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = s.Run(ctx) }()
	t.Cleanup(func() {
		s.Stop()
		<-s.Done()
		cancel()
	})
}

func stored(t *testing.T, gw store.Gateway) *store.Document {
	t.Helper()
	d, err := gw.Load(context.Background())
	require.NoError(t, err)
	require.NotNil(t, d)
	return d
}

func TestInitCreatesDocument(t *testing.T) {
	t.Parallel()

	gw := store.NewMemory()
	p := &fakePresenter{}
	newSession(t, testConfig(), gw, p)

	d := stored(t, gw)
	assert.Equal(t, 2000.0, d.Balance)
	assert.Equal(t, "user_test", d.UserData.UserID)
	assert.Equal(t, ledger.Ranking{{ID: "user_test", Balance: 2000}}, d.Ranking)

	prices, _, _, _ := p.counts()
	assert.Equal(t, 3, prices)
	assert.Equal(t, 2000.0, p.lastPositions().Balance)
	assert.Equal(t, Selection{Asset: "BTC", Leverage: 2, Amount: 100}, p.lastPositions().Selection)

	for _, v := range p.prices {
		// Ten seeded points ending at the restored price.
		assert.Len(t, v.History, 10, v.Asset.Symbol)
		assert.Equal(t, v.Price, v.History[len(v.History)-1], v.Asset.Symbol)
		assert.Equal(t, v.Asset.Symbol == "BTC", v.Selected)
	}
}

func TestInitLoadsExistingDocument(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	gw := store.NewMemory()
	d := store.NewDocument("user_old", 1234, config.Default().Catalog(), time.Now())
	d.Market.Prices["DOGE"] = 0.2
	require.NoError(t, gw.Save(ctx, d))

	s := newSession(t, testConfig(), gw, nil)
	assert.Equal(t, 1234.0, s.ledger.Balance())
	price, err := s.series.CurrentPrice("DOGE")
	require.NoError(t, err)
	assert.Equal(t, 0.2, price)
	assert.Equal(t, "user_old", stored(t, gw).UserData.UserID)

	st, err := s.series.State("DOGE")
	require.NoError(t, err)
	require.Len(t, st.History, 10)
	assert.Equal(t, 0.2, st.History[9], "chart runs into the stored price")
}

func TestOpenAndClose(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	gw := store.NewMemory()
	p := &fakePresenter{}
	s := newSession(t, testConfig(), gw, p)
	runSession(t, s)

	require.NoError(t, s.SelectAsset(ctx, "doge"))
	require.NoError(t, s.SelectLeverage(ctx, 10))
	require.NoError(t, s.SelectAmount(ctx, 250))
	sl := 40.0
	require.NoError(t, s.SetStopLoss(ctx, &sl))

	pos, err := s.Open(ctx, ledger.Short)
	require.NoError(t, err)
	assert.Equal(t, "DOGE", pos.Asset)
	assert.Equal(t, 10, pos.Leverage)
	assert.Equal(t, 250.0, pos.Amount)
	require.NotNil(t, pos.StopLoss)
	assert.Equal(t, 40.0, *pos.StopLoss)

	d := stored(t, gw)
	require.Len(t, d.Positions, 1)
	assert.Equal(t, pos.ID, d.Positions[0].ID)
	require.Len(t, p.lastPositions().Rows, 1)
	assert.Equal(t, 6, p.lastPositions().Rows[0].Decimals)

	h, err := s.CloseLatest(ctx)
	require.NoError(t, err)
	assert.Equal(t, pos.ID, h.ID)
	assert.Equal(t, ledger.ReasonManual, h.Reason)

	d = stored(t, gw)
	assert.Empty(t, d.Positions)
	require.Len(t, d.History, 1)
	assert.Equal(t, 2000+h.PnL, d.Balance)

	_, settled, _, _ := p.counts()
	assert.Equal(t, 1, settled)

	st, err := s.series.State("DOGE")
	require.NoError(t, err)
	require.Len(t, st.Markers, 2)
}

func TestControlRejections(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	p := &fakePresenter{}
	s := newSession(t, testConfig(), store.NewMemory(), p)
	runSession(t, s)

	assert.ErrorIs(t, s.SelectLeverage(ctx, 3), ErrLeverageNotOffered)
	assert.ErrorIs(t, s.SelectAmount(ctx, -5), ledger.ErrInvalidAmount)
	assert.ErrorIs(t, s.SelectAsset(ctx, "ETH"), market.ErrUnknownAsset)
	bad := -1.0
	assert.ErrorIs(t, s.SetStopLoss(ctx, &bad), ledger.ErrInvalidStopLoss)

	require.NoError(t, s.SelectAmount(ctx, 5000))
	_, err := s.Open(ctx, ledger.Long)
	assert.ErrorIs(t, err, ledger.ErrInsufficientBalance)

	_, _, _, rejected := p.counts()
	assert.Equal(t, 5, rejected)

	// Closing nothing is benign and not shown to the player.
	_, err = s.CloseLatest(ctx)
	assert.ErrorIs(t, err, ledger.ErrPositionNotFound)
	_, err = s.ClosePosition(ctx, "nope")
	assert.ErrorIs(t, err, ledger.ErrPositionNotFound)
	_, _, _, rejected = p.counts()
	assert.Equal(t, 5, rejected)

	sel, err := s.Selection(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, sel.Leverage)
	assert.Equal(t, 5000.0, sel.Amount)
	assert.Nil(t, sel.StopLoss)
}

func TestStepsReloadTheDocument(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	gw := store.NewMemory()
	s := newSession(t, testConfig(), gw, nil)
	runSession(t, s)

	d := stored(t, gw)
	d.Balance = 10
	require.NoError(t, gw.Save(ctx, d))

	_, err := s.Open(ctx, ledger.Long)
	assert.ErrorIs(t, err, ledger.ErrInsufficientBalance)
	assert.Equal(t, 10.0, stored(t, gw).Balance)
}

func TestFailedSaveKeepsMemoryAuthoritative(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	gw := &flakyGateway{Memory: store.NewMemory()}
	s := newSession(t, testConfig(), gw, nil)
	runSession(t, s)

	dirty := func() bool {
		var v bool
		require.NoError(t, s.Do(ctx, func(context.Context) error { v = s.Dirty(); return nil }))
		return v
	}

	gw.setFailSave(true)
	pos, err := s.Open(ctx, ledger.Long)
	require.NoError(t, err)
	assert.True(t, dirty())

	// A write that bypasses the session is not reloaded while dirty.
	d := stored(t, gw.Memory)
	d.Balance = 5
	d.Positions = nil
	require.NoError(t, gw.Memory.Save(ctx, d))

	require.NoError(t, s.TickAll(ctx))
	assert.True(t, dirty())

	gw.setFailSave(false)
	require.NoError(t, s.TickAll(ctx))
	assert.False(t, dirty())

	d = stored(t, gw)
	require.Len(t, d.Positions, 1)
	assert.Equal(t, pos.ID, d.Positions[0].ID)
	assert.Equal(t, 2000.0, d.Balance)
}

func TestTickLiquidatesUnderwaterPosition(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	gw := store.NewMemory()
	d := store.NewDocument("user_test", 2000, config.Default().Catalog(), time.Now())
	d.Positions = []ledger.Position{{
		ID:         "p1", Asset: "BTC", Direction: ledger.Long,
		EntryPrice: 100000, CurrentPrice: 100000, Amount: 100, Leverage: 10,
		OpenTime:   time.Now().UTC(),
	}}
	require.NoError(t, gw.Save(ctx, d))

	p := &fakePresenter{}
	s := newSession(t, testConfig(), gw, p)
	runSession(t, s)

	require.NoError(t, s.TickAll(ctx))

	p.mu.Lock()
	require.Len(t, p.settled, 1)
	h := p.settled[0]
	p.mu.Unlock()
	assert.Equal(t, ledger.ReasonLiquidation, h.Reason)
	assert.Less(t, h.PnL, -400.0)

	after := stored(t, gw)
	assert.Empty(t, after.Positions)
	require.Len(t, after.History, 1)
	assert.InDelta(t, 2000+h.PnL, after.Balance, 1e-9)
	assert.GreaterOrEqual(t, after.Balance, 0.0)
}

func TestTimersDriveTheSession(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Market.TickInterval = "5ms"
	cfg.Events = config.EventsConfig{MinInterval: "5ms", MaxInterval: "10ms", Lifetime: "20ms"}
	cfg.Storage.AutosaveInterval = "10ms"

	p := &fakePresenter{}
	s := newSession(t, cfg, store.NewMemory(), p)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Run(ctx) }()
	s.Start()

	require.Eventually(t, func() bool {
		prices, _, events, _ := p.counts()
		return prices > 12 && events > 1
	}, 2*time.Second, 5*time.Millisecond)

	s.Stop()
	<-s.Done()

	prices, _, events, _ := p.counts()
	time.Sleep(50 * time.Millisecond)
	prices2, _, events2, _ := p.counts()
	assert.Equal(t, prices, prices2, "no ticks after teardown")
	assert.Equal(t, events, events2, "no events after teardown")

	s.tmu.Lock()
	assert.Empty(t, s.timers)
	s.tmu.Unlock()

	assert.ErrorIs(t, s.Do(context.Background(), func(context.Context) error { return nil }), ErrStopped)
	assert.False(t, s.submit(func(context.Context) {}))
}

func TestEventExpiryRemovesOnlyItsInstance(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Events = config.EventsConfig{MinInterval: "1h", MaxInterval: "1h", Lifetime: "30ms"}
	p := &fakePresenter{}
	s := newSession(t, cfg, store.NewMemory(), p)
	runSession(t, s)

	ctx := context.Background()
	require.NoError(t, s.Do(ctx, func(ctx context.Context) error {
		s.activateEvent(ctx)
		return nil
	}))
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, s.Do(ctx, func(ctx context.Context) error {
		s.activateEvent(ctx)
		return nil
	}))
	assert.Len(t, s.bus.Active(), 2)

	require.Eventually(t, func() bool { return len(s.bus.Active()) == 1 }, time.Second, time.Millisecond)
	p.mu.Lock()
	second := p.events[1].InstanceID
	p.mu.Unlock()
	if active := s.bus.Active(); len(active) == 1 {
		assert.Equal(t, second, active[0].InstanceID)
	}
	require.Eventually(t, func() bool { return len(s.bus.Active()) == 0 }, time.Second, time.Millisecond)
}

func TestFinalSaveOnStop(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	gw := store.NewMemory()
	s := newSession(t, testConfig(), gw, nil)
	go func() { _ = s.Run(ctx) }()

	require.NoError(t, s.SelectAsset(ctx, "SHIB"))
	_, err := s.Open(ctx, ledger.Long)
	require.NoError(t, err)

	// Change memory without a commit, then stop.
	require.NoError(t, s.Do(ctx, func(context.Context) error {
		s.ledger.MarkToMarket("SHIB", 0.00002)
		return nil
	}))
	s.Stop()
	<-s.Done()

	d := stored(t, gw)
	require.Len(t, d.Positions, 1)
	assert.Equal(t, 0.00002, d.Positions[0].CurrentPrice)
	require.NotNil(t, d.Market.LastUpdate)
}

func TestRestoreAndReset(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	gw := store.NewMemory()
	p := &fakePresenter{}
	s := newSession(t, testConfig(), gw, p)
	runSession(t, s)

	d := stored(t, gw)
	d.Balance = 3
	require.NoError(t, gw.Save(ctx, d))

	require.NoError(t, s.RestoreBalance(ctx))
	assert.Equal(t, 2000.0, stored(t, gw).Balance)

	_, err := s.Open(ctx, ledger.Long)
	require.NoError(t, err)
	require.NoError(t, s.Reset(ctx))

	d = stored(t, gw)
	assert.Empty(t, d.Positions)
	assert.Empty(t, d.History)
	assert.Equal(t, 2000.0, d.Balance)
	assert.Equal(t, "user_test", d.UserData.UserID)

	require.NoError(t, s.ShowHistory(ctx))
	p.mu.Lock()
	assert.Equal(t, 1, p.histories)
	p.mu.Unlock()
}

func TestViewsCarryRiskAndTrend(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cfg := testConfig()
	cfg.Market.SeedPoints = 30
	p := &fakePresenter{}
	s := newSession(t, cfg, store.NewMemory(), p)
	runSession(t, s)

	require.NoError(t, s.SelectLeverage(ctx, 10))
	sl := 20.0
	require.NoError(t, s.SetStopLoss(ctx, &sl))
	pos, err := s.Open(ctx, ledger.Long)
	require.NoError(t, err)

	p.mu.Lock()
	last := p.positions[len(p.positions)-1]
	var price PriceView
	for _, v := range p.prices {
		if v.Asset.Symbol == pos.Asset {
			price = v
		}
	}
	p.mu.Unlock()

	require.Len(t, last.Rows, 1)
	row := last.Rows[0]
	assert.InDelta(t, pos.EntryPrice*0.9, row.Liquidation, 1e-9)
	assert.InDelta(t, pos.EntryPrice*0.98, row.StopPrice, 1e-9)
	assert.Positive(t, price.Trend, "30 points warm a 20 period EMA")
}
