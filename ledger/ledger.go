package ledger

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rustyeddy/levgame/journal"
	"github.com/rustyeddy/levgame/pkg/id"
)

var (
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidLeverage     = errors.New("invalid leverage")
	ErrInvalidStopLoss     = errors.New("invalid stop-loss")
	ErrInvalidDirection    = errors.New("invalid direction")
	ErrUnknownAsset        = errors.New("unknown asset")
	ErrPositionNotFound    = errors.New("position not found")
)

// PriceSource is the part of the price series the ledger depends on.
type PriceSource interface {
	// Symbol returns the catalog spelling of symbol.
	Symbol(symbol string) (string, error)
	CurrentPrice(symbol string) (float64, error)
	AdjustVolatility(symbol string, delta float64) (float64, error)
}

// Listener is notified after a position opens or settles. Calls happen
// with the ledger unlocked.
type Listener interface {
	PositionOpened(Position)
	PositionClosed(HistoryEntry)
}

type Config struct {
	ImpactThreshold float64 // open amount above which volatility is nudged
	ImpactDelta     float64 // volatility nudge, + for long, - for short
	MaxHistory      int
}

func DefaultConfig() Config {
	return Config{
		ImpactThreshold: 500,
		ImpactDelta:     0.01,
		MaxHistory:      100,
	}
}

// Account is the persisted state owned by the ledger.
type Account struct {
	UserID    string
	Balance   float64
	Positions []Position
	History   []HistoryEntry
	Ranking   Ranking
}

type OpenRequest struct {
	Asset     string
	Direction Direction
	Amount    float64
	Leverage  int
	StopLoss  *float64
}

// Summary aggregates the open positions.
type Summary struct {
	Open          int
	TotalPnL      float64
	TotalInvested float64
	TotalROE      float64
}

type Ledger struct {
	mu       sync.Mutex
	cfg      Config
	prices   PriceSource
	journal  journal.Journal
	log      *zap.Logger
	now      func() time.Time
	listener Listener

	acct Account
}

func New(cfg Config, prices PriceSource, j journal.Journal, log *zap.Logger) *Ledger {
	if cfg.MaxHistory < 1 {
		cfg.MaxHistory = DefaultConfig().MaxHistory
	}
	if j == nil {
		j = journal.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Ledger{
		cfg:     cfg,
		prices:  prices,
		journal: j,
		log:     log,
		now:     time.Now,
	}
}

// SetListener sets an optional listener for opens and settlements.
func (l *Ledger) SetListener(listener Listener) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.listener = listener
}

func (l *Ledger) SetClock(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}

// Load replaces the in-memory account. Duplicate position ids are
// dropped and history is trimmed to the configured cap.
func (l *Ledger) Load(acct Account) {
	l.mu.Lock()
	defer l.mu.Unlock()

	seen := make(map[string]bool, len(acct.Positions))
	positions := make([]Position, 0, len(acct.Positions))
	for _, p := range acct.Positions {
		if seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		positions = append(positions, p)
	}

	history := append([]HistoryEntry(nil), acct.History...)
	if len(history) > l.cfg.MaxHistory {
		history = history[:l.cfg.MaxHistory]
	}

	ranking := append(Ranking(nil), acct.Ranking...)
	ranking.sort()

	l.acct = Account{
		UserID:    acct.UserID,
		Balance:   math.Max(0, acct.Balance),
		Positions: positions,
		History:   history,
		Ranking:   ranking,
	}
}

// Snapshot returns a deep copy of the account.
func (l *Ledger) Snapshot() Account {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshotLocked()
}

func (l *Ledger) snapshotLocked() Account {
	positions := make([]Position, len(l.acct.Positions))
	for i, p := range l.acct.Positions {
		if p.StopLoss != nil {
			sl := *p.StopLoss
			p.StopLoss = &sl
		}
		positions[i] = p
	}
	return Account{
		UserID:    l.acct.UserID,
		Balance:   l.acct.Balance,
		Positions: positions,
		History:   append([]HistoryEntry{}, l.acct.History...),
		Ranking:   append(Ranking{}, l.acct.Ranking...),
	}
}

func (l *Ledger) Balance() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.acct.Balance
}

func (l *Ledger) Positions() []Position { return l.Snapshot().Positions }

func (l *Ledger) History() []HistoryEntry { return l.Snapshot().History }

func (l *Ledger) Ranking() Ranking { return l.Snapshot().Ranking }

// Open validates req and opens a position at the current price.
func (l *Ledger) Open(req OpenRequest) (Position, error) {
	if math.IsNaN(req.Amount) || math.IsInf(req.Amount, 0) || req.Amount <= 0 {
		return Position{}, fmt.Errorf("open: %w: %v", ErrInvalidAmount, req.Amount)
	}
	if !req.Direction.Valid() {
		return Position{}, fmt.Errorf("open: %w: %q", ErrInvalidDirection, req.Direction)
	}
	if req.Leverage < 1 {
		return Position{}, fmt.Errorf("open: %w: %d", ErrInvalidLeverage, req.Leverage)
	}
	if req.StopLoss != nil && (math.IsNaN(*req.StopLoss) || *req.StopLoss <= 0) {
		return Position{}, fmt.Errorf("open: %w: %v", ErrInvalidStopLoss, *req.StopLoss)
	}

	asset, err := l.prices.Symbol(req.Asset)
	if err != nil {
		return Position{}, fmt.Errorf("open: %w: %q: %v", ErrUnknownAsset, req.Asset, err)
	}
	price, err := l.prices.CurrentPrice(asset)
	if err != nil {
		return Position{}, fmt.Errorf("open: %w: %q: %v", ErrUnknownAsset, asset, err)
	}

	l.mu.Lock()
	if req.Amount > l.acct.Balance {
		bal := l.acct.Balance
		l.mu.Unlock()
		return Position{}, fmt.Errorf("open: %w: amount %.2f, balance %.2f", ErrInsufficientBalance, req.Amount, bal)
	}

	var stop *float64
	if req.StopLoss != nil {
		sl := *req.StopLoss
		stop = &sl
	}
	p := Position{
		ID:           id.New(),
		Asset:        asset,
		Direction:    req.Direction,
		EntryPrice:   price,
		CurrentPrice: price,
		Amount:       req.Amount,
		Leverage:     req.Leverage,
		StopLoss:     stop,
		OpenTime:     l.now().UTC(),
	}
	l.acct.Positions = append(l.acct.Positions, p)
	listener := l.listener
	l.mu.Unlock()

	l.log.Info("position opened",
		zap.String("id", p.ID),
		zap.String("asset", p.Asset),
		zap.String("direction", string(p.Direction)),
		zap.Float64("amount", p.Amount),
		zap.Int("leverage", p.Leverage),
		zap.Float64("entry", p.EntryPrice))

	l.ApplyMarketImpact(p.Asset, p.Direction, p.Amount)

	if listener != nil {
		listener.PositionOpened(p)
	}
	return p, nil
}

// ApplyMarketImpact nudges the asset's volatility when a large position
// opens. It reports the resulting volatility and whether a nudge happened.
func (l *Ledger) ApplyMarketImpact(asset string, dir Direction, amount float64) (float64, bool) {
	if amount <= l.cfg.ImpactThreshold {
		return 0, false
	}
	delta := l.cfg.ImpactDelta * float64(dir.Sign())
	vol, err := l.prices.AdjustVolatility(asset, delta)
	if err != nil {
		l.log.Debug("market impact skipped", zap.String("asset", asset), zap.Error(err))
		return 0, false
	}
	return vol, true
}

// MarkToMarket revalues every open position on asset at price.
func (l *Ledger) MarkToMarket(asset string, price float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.acct.Positions {
		if l.acct.Positions[i].Asset == asset {
			l.acct.Positions[i].Mark(price)
		}
	}
}

// EvaluateRiskTriggers settles positions on asset whose stop-loss or
// liquidation threshold has been reached at their current mark. Stop-loss
// is checked first; a position settled by one rule is not seen by the other.
func (l *Ledger) EvaluateRiskTriggers(asset string) []HistoryEntry {
	l.mu.Lock()

	var ids []string
	for _, p := range l.acct.Positions {
		if p.Asset == asset {
			ids = append(ids, p.ID)
		}
	}

	var settled []HistoryEntry
	for _, pid := range ids {
		i := l.indexLocked(pid)
		if i < 0 {
			continue
		}
		p := l.acct.Positions[i]

		var reason Reason
		switch {
		case p.hitStopLoss():
			reason = ReasonStopLoss
		case p.shouldLiquidate():
			reason = ReasonLiquidation
		default:
			continue
		}
		settled = append(settled, l.settleLocked(i, reason))
	}
	listener := l.listener
	l.mu.Unlock()

	if listener != nil {
		for _, h := range settled {
			listener.PositionClosed(h)
		}
	}
	return settled
}

// Close settles the position at the latest price. An unknown id returns
// ErrPositionNotFound and changes nothing.
func (l *Ledger) Close(positionID string, reason Reason) (HistoryEntry, error) {
	if reason == "" {
		reason = ReasonManual
	}

	l.mu.Lock()
	i := l.indexLocked(positionID)
	if i < 0 {
		l.mu.Unlock()
		return HistoryEntry{}, fmt.Errorf("close position: %w: %q", ErrPositionNotFound, positionID)
	}
	asset := l.acct.Positions[i].Asset
	l.mu.Unlock()

	// Refresh the mark outside the lock; the price source has its own.
	price, perr := l.prices.CurrentPrice(asset)

	l.mu.Lock()
	i = l.indexLocked(positionID)
	if i < 0 {
		l.mu.Unlock()
		return HistoryEntry{}, fmt.Errorf("close position: %w: %q", ErrPositionNotFound, positionID)
	}
	if perr == nil {
		l.acct.Positions[i].Mark(price)
	}
	h := l.settleLocked(i, reason)
	listener := l.listener
	l.mu.Unlock()

	if listener != nil {
		listener.PositionClosed(h)
	}
	return h, nil
}

// Liquidate force-closes a position through the same settlement path.
func (l *Ledger) Liquidate(positionID string) (HistoryEntry, error) {
	return l.Close(positionID, ReasonLiquidation)
}

// CloseLatest closes the most recently opened position on asset.
func (l *Ledger) CloseLatest(asset string) (HistoryEntry, error) {
	l.mu.Lock()
	latest := -1
	for i, p := range l.acct.Positions {
		if p.Asset != asset {
			continue
		}
		if latest < 0 || !p.OpenTime.Before(l.acct.Positions[latest].OpenTime) {
			latest = i
		}
	}
	if latest < 0 {
		l.mu.Unlock()
		return HistoryEntry{}, fmt.Errorf("close latest: %w: no open position on %s", ErrPositionNotFound, asset)
	}
	pid := l.acct.Positions[latest].ID
	l.mu.Unlock()

	return l.Close(pid, ReasonManual)
}

// RestoreBalance resets the balance to amount, e.g. the starting balance.
func (l *Ledger) RestoreBalance(amount float64) error {
	if math.IsNaN(amount) || amount < 0 {
		return fmt.Errorf("restore balance: %w: %v", ErrInvalidAmount, amount)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.acct.Balance = amount
	l.acct.Ranking = l.acct.Ranking.Upsert(l.acct.UserID, amount)
	l.recordBalanceLocked(l.now().UTC())
	l.log.Info("balance restored", zap.Float64("balance", amount))
	return nil
}

// Exposure returns open leveraged exposure (amount*leverage) on asset.
func (l *Ledger) Exposure(asset string) (long, short float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, p := range l.acct.Positions {
		if p.Asset != asset {
			continue
		}
		notional := p.Amount * float64(p.Leverage)
		if p.Direction == Short {
			short += notional
		} else {
			long += notional
		}
	}
	return long, short
}

func (l *Ledger) Summary() Summary {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.summaryLocked()
}

func (l *Ledger) summaryLocked() Summary {
	var s Summary
	for _, p := range l.acct.Positions {
		s.Open++
		s.TotalPnL += p.PnL
		s.TotalInvested += p.Amount
	}
	s.TotalROE = ROE(s.TotalPnL, s.TotalInvested)
	return s
}

func (l *Ledger) indexLocked(positionID string) int {
	for i, p := range l.acct.Positions {
		if p.ID == positionID {
			return i
		}
	}
	return -1
}

// settleLocked is the only path that removes an open position. The
// position leaves the open set before history, balance and ranking change.
func (l *Ledger) settleLocked(i int, reason Reason) HistoryEntry {
	p := l.acct.Positions[i]
	l.acct.Positions = append(l.acct.Positions[:i], l.acct.Positions[i+1:]...)

	closeTime := l.now().UTC()
	h := p.settle(closeTime, reason)

	l.acct.History = append([]HistoryEntry{h}, l.acct.History...)
	if len(l.acct.History) > l.cfg.MaxHistory {
		l.acct.History = l.acct.History[:l.cfg.MaxHistory]
	}

	l.acct.Balance = math.Max(0, l.acct.Balance+h.PnL)
	l.acct.Ranking = l.acct.Ranking.Upsert(l.acct.UserID, l.acct.Balance)

	if err := l.journal.RecordTrade(h.TradeRecord()); err != nil {
		l.log.Warn("journal trade", zap.String("id", h.ID), zap.Error(err))
	}
	l.recordBalanceLocked(closeTime)

	l.log.Info("position settled",
		zap.String("id", h.ID),
		zap.String("asset", h.Asset),
		zap.String("reason", string(reason)),
		zap.Float64("exit", h.ExitPrice),
		zap.Float64("pnl", h.PnL),
		zap.Float64("roe", h.ROE),
		zap.Float64("balance", l.acct.Balance))
	return h
}

func (l *Ledger) recordBalanceLocked(at time.Time) {
	s := l.summaryLocked()
	if err := l.journal.RecordBalance(journal.BalanceSnapshot{
		Time:       at,
		Balance:    l.acct.Balance,
		Equity:     l.acct.Balance + s.TotalPnL,
		MarginUsed: s.TotalInvested,
		FreeMargin: l.acct.Balance - s.TotalInvested,
	}); err != nil {
		l.log.Warn("journal balance", zap.Error(err))
	}
}
