package game

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rustyeddy/levgame/config"
	"github.com/rustyeddy/levgame/journal"
	"github.com/rustyeddy/levgame/ledger"
	"github.com/rustyeddy/levgame/store"
)

// SimOptions drive a headless run with a random trader.
type SimOptions struct {
	Rounds    int       // tick rounds over every asset
	OpenEvery int       // open one random position every N rounds; 0 never
	StopLoss  float64   // stop-loss for simulated trades; 0 none
	Start     time.Time // simulated start time
}

type SimResult struct {
	Rounds       int
	Start        time.Time
	End          time.Time
	StartBalance float64
	EndBalance   float64
	Trades       []ledger.HistoryEntry // settlement order
	Events       int
	Rejected     int
}

// simClock is advanced by the simulator only.
type simClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *simClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *simClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type recorder struct {
	Nop
	trades   []ledger.HistoryEntry
	rejected int
}

func (r *recorder) Settled(h ledger.HistoryEntry) { r.trades = append(r.trades, h) }
func (r *recorder) Rejected(string, error)        { r.rejected++ }

// Simulate plays a whole session on simulated time against an in-memory
// document. The same seed gives the same result. Steps run on the
// caller's goroutine; no timers are armed.
func Simulate(ctx context.Context, cfg *config.Config, opts SimOptions, j journal.Journal, log *zap.Logger) (SimResult, error) {
	if opts.Start.IsZero() {
		opts.Start = time.Now().UTC()
	}
	if log == nil {
		log = zap.NewNop()
	}
	clock := &simClock{t: opts.Start}
	rec := &recorder{}

	s, err := New(Deps{
		Config:    cfg,
		Log:       log,
		Gateway:   store.NewMemory(),
		Journal:   j,
		Presenter: rec,
		Now:       clock.Now,
	})
	if err != nil {
		return SimResult{}, err
	}
	if err := s.Init(ctx); err != nil {
		return SimResult{}, err
	}

	rng := rand.New(rand.NewPCG(cfg.Market.Seed, 3))
	assets := s.series.Assets()
	res := SimResult{
		Start:        opts.Start,
		StartBalance: s.ledger.Balance(),
	}

	tick := cfg.TickInterval()
	nextEvent := opts.Start.Add(s.bus.NextInterval())

	for i := 0; i < opts.Rounds; i++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		clock.Advance(tick)

		if now := clock.Now(); !now.Before(nextEvent) {
			s.bus.Activate(now)
			res.Events++
			nextEvent = now.Add(s.bus.NextInterval())
		}

		if opts.OpenEvery > 0 && i%opts.OpenEvery == 0 {
			s.sel.Asset = assets[rng.IntN(len(assets))].Symbol
			s.sel.Leverage = cfg.Trading.Leverages[rng.IntN(len(cfg.Trading.Leverages))]
			s.sel.Amount = cfg.Trading.DefaultAmount
			s.sel.StopLoss = nil
			if opts.StopLoss > 0 {
				sl := opts.StopLoss
				s.sel.StopLoss = &sl
			}
			dir := ledger.Long
			if rng.IntN(2) == 1 {
				dir = ledger.Short
			}
			s.openStep(ctx, dir)
		}

		for _, a := range assets {
			s.tickAsset(ctx, a.Symbol)
		}
		res.Rounds++
	}

	for _, p := range s.ledger.Positions() {
		if _, err := s.ledger.Close(p.ID, ledger.ReasonManual); err != nil {
			log.Debug("final close", zap.Error(err))
		}
	}
	s.commit(ctx)

	res.End = clock.Now()
	res.EndBalance = s.ledger.Balance()
	res.Trades = rec.trades
	res.Rejected = rec.rejected
	return res, nil
}

// openStep is the body of Open without the queue.
func (s *Session) openStep(ctx context.Context, dir ledger.Direction) (ledger.Position, error) {
	s.begin(ctx)
	sel := s.sel.clone()
	p, err := s.ledger.Open(ledger.OpenRequest{
		Asset:     sel.Asset,
		Direction: dir,
		Amount:    sel.Amount,
		Leverage:  sel.Leverage,
		StopLoss:  sel.StopLoss,
	})
	if err != nil {
		return p, s.reject("open", err)
	}
	s.commit(ctx)
	s.presentPrice(p.Asset)
	s.presentPositions()
	return p, nil
}
