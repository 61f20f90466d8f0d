// Package game wires the market, events and ledger into one interactive
// session. All state changes run as steps on a single goroutine; timers
// and user controls only enqueue steps.
package game

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rustyeddy/levgame/config"
	"github.com/rustyeddy/levgame/events"
	"github.com/rustyeddy/levgame/internal/metrics"
	"github.com/rustyeddy/levgame/journal"
	"github.com/rustyeddy/levgame/ledger"
	"github.com/rustyeddy/levgame/market"
	"github.com/rustyeddy/levgame/pkg/id"
	"github.com/rustyeddy/levgame/store"
)

// ErrStopped is returned for work submitted after Stop.
var ErrStopped = errors.New("session stopped")

// Deps are the collaborators of a session. Series, Bus and Ledger are
// built from Config when nil.
type Deps struct {
	Config    *config.Config
	Log       *zap.Logger
	Gateway   store.Gateway
	Journal   journal.Journal
	Presenter Presenter
	Series    *market.Series
	Bus       *events.Bus
	Ledger    *ledger.Ledger
	Now       func() time.Time
}

type Session struct {
	cfg       *config.Config
	log       *zap.Logger
	gw        store.Gateway
	series    *market.Series
	bus       *events.Bus
	ledger    *ledger.Ledger
	presenter Presenter
	now       func() time.Time

	jobs     chan func(context.Context)
	done     chan struct{}
	finished chan struct{}
	stopOnce sync.Once

	tmu     sync.Mutex
	stopped bool
	timers  map[*time.Timer]struct{}
	tickers []*time.Ticker

	// Owned by the step goroutine.
	doc   *store.Document
	dirty bool
	sel   Selection
}

// New builds a session. Call Init before Run.
func New(d Deps) (*Session, error) {
	if d.Config == nil {
		d.Config = config.Default()
	}
	if d.Gateway == nil {
		return nil, fmt.Errorf("game: gateway is required")
	}
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Presenter == nil {
		d.Presenter = Nop{}
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	cfg := d.Config

	seed := cfg.Market.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}

	if d.Series == nil {
		s, err := market.NewSeries(cfg.Catalog(), cfg.MarketParams(), rand.New(rand.NewPCG(seed, 1)), d.Log.Named("market"))
		if err != nil {
			return nil, fmt.Errorf("game: %w", err)
		}
		d.Series = s
	}
	if d.Bus == nil {
		ec, err := cfg.EventsConfig()
		if err != nil {
			return nil, fmt.Errorf("game: %w", err)
		}
		b, err := events.NewBus(events.DefaultCatalog(), ec, rand.New(rand.NewPCG(seed, 2)), d.Log.Named("events"))
		if err != nil {
			return nil, fmt.Errorf("game: %w", err)
		}
		d.Bus = b
	}
	if d.Ledger == nil {
		d.Ledger = ledger.New(cfg.LedgerConfig(), d.Series, d.Journal, d.Log.Named("ledger"))
	}
	d.Ledger.SetClock(d.Now)

	s := &Session{
		cfg:       cfg,
		log:       d.Log,
		gw:        d.Gateway,
		series:    d.Series,
		bus:       d.Bus,
		ledger:    d.Ledger,
		presenter: d.Presenter,
		now:       d.Now,
		jobs:      make(chan func(context.Context), 64),
		done:      make(chan struct{}),
		finished:  make(chan struct{}),
		timers:    make(map[*time.Timer]struct{}),
		sel: Selection{
			Asset:    d.Series.Assets()[0].Symbol,
			Leverage: cfg.Trading.DefaultLeverage,
			Amount:   cfg.Trading.DefaultAmount,
		},
	}
	s.ledger.SetListener(s)
	s.bus.SetNotifier(s.eventActivated)
	return s, nil
}

// Init loads or creates the document and seeds every chart up to its
// restored price. It runs on the caller's goroutine and must finish before
// Run starts.
func (s *Session) Init(ctx context.Context) error {
	doc, err := s.gw.Load(ctx)
	if err != nil {
		s.storageFailed("load", err)
		doc = nil
	}
	if doc == nil {
		doc = s.freshDocument(s.cfg.Account.UserID)
		if err := s.gw.Save(ctx, doc); err != nil {
			s.storageFailed("save", err)
			s.dirty = true
		}
		s.log.Info("new account", zap.String("user", doc.UserData.UserID), zap.Float64("balance", doc.Balance))
	}

	s.apply(doc)
	for _, a := range s.series.Assets() {
		if err := s.series.Seed(a.Symbol, s.cfg.Market.SeedPoints); err != nil {
			return fmt.Errorf("seed %s: %w", a.Symbol, err)
		}
	}
	s.presentAll()
	return nil
}

func (s *Session) freshDocument(userID string) *store.Document {
	if userID == "" {
		userID = id.NewUserID()
	}
	return store.NewDocument(userID, s.cfg.Account.StartingBalance, s.series.Assets(), s.now())
}

// Run drains the step queue until ctx is done or Stop is called, then
// makes a best-effort final save.
func (s *Session) Run(ctx context.Context) error {
	defer close(s.finished)
	defer s.stopTimers()

	for {
		select {
		case <-ctx.Done():
			s.finalSave(ctx)
			return ctx.Err()
		case <-s.done:
			s.finalSave(ctx)
			return nil
		case job := <-s.jobs:
			job(ctx)
		}
	}
}

func (s *Session) finalSave(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	s.commit(ctx)
}

// Stop cancels every timer and ends Run. Work submitted afterwards is
// dropped.
func (s *Session) Stop() {
	s.stopOnce.Do(func() {
		s.stopTimers()
		close(s.done)
	})
}

// Done is closed once Run has returned.
func (s *Session) Done() <-chan struct{} { return s.finished }

// submit enqueues fn without waiting. It reports false once stopped.
func (s *Session) submit(fn func(context.Context)) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.jobs <- fn:
		return true
	case <-s.done:
		return false
	}
}

// Do runs fn as one step and waits for it.
func (s *Session) Do(ctx context.Context, fn func(context.Context) error) error {
	errc := make(chan error, 1)
	job := func(ctx context.Context) { errc <- fn(ctx) }

	select {
	case s.jobs <- job:
	case <-s.done:
		return ErrStopped
	case <-s.finished:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-errc:
		return err
	case <-s.finished:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start arms the tick, event and autosave timers.
func (s *Session) Start() {
	s.every(s.cfg.TickInterval(), func() {
		for _, a := range s.series.Assets() {
			sym := a.Symbol
			s.submit(func(ctx context.Context) { s.tickAsset(ctx, sym) })
		}
	})
	s.every(s.cfg.AutosaveInterval(), func() {
		s.submit(s.autosave)
	})
	s.submit(func(context.Context) { s.scheduleNext() })
}

// scheduleNext arms the next event activation. Runs as a step.
func (s *Session) scheduleNext() {
	s.after(s.bus.NextInterval(), func() {
		s.submit(s.activateEvent)
	})
}

func (s *Session) activateEvent(context.Context) {
	act := s.bus.Activate(s.now())
	metrics.ActiveEvents.Set(float64(len(s.bus.Active())))

	instance := act.InstanceID
	s.after(s.bus.Config().Lifetime, func() {
		s.submit(func(context.Context) {
			if s.bus.Expire(instance) {
				s.log.Debug("event expired", zap.String("instance", instance))
			}
			metrics.ActiveEvents.Set(float64(len(s.bus.Active())))
		})
	})
	s.scheduleNext()
}

func (s *Session) eventActivated(a events.Activation) {
	s.presenter.EventActivated(a)
}

func (s *Session) autosave(ctx context.Context) {
	s.begin(ctx)
	s.commit(ctx)
}

func (s *Session) after(d time.Duration, fn func()) {
	s.tmu.Lock()
	defer s.tmu.Unlock()
	if s.stopped {
		return
	}
	var t *time.Timer
	t = time.AfterFunc(d, func() {
		s.tmu.Lock()
		delete(s.timers, t)
		s.tmu.Unlock()
		fn()
	})
	s.timers[t] = struct{}{}
}

func (s *Session) every(d time.Duration, fn func()) {
	s.tmu.Lock()
	defer s.tmu.Unlock()
	if s.stopped || d <= 0 {
		return
	}
	t := time.NewTicker(d)
	s.tickers = append(s.tickers, t)
	go func() {
		for {
			select {
			case <-t.C:
				fn()
			case <-s.done:
				return
			}
		}
	}()
}

func (s *Session) stopTimers() {
	s.tmu.Lock()
	defer s.tmu.Unlock()
	s.stopped = true
	for t := range s.timers {
		t.Stop()
	}
	for _, t := range s.tickers {
		t.Stop()
	}
	clear(s.timers)
	s.tickers = nil
}
