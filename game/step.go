package game

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/rustyeddy/levgame/internal/metrics"
	"github.com/rustyeddy/levgame/ledger"
	"github.com/rustyeddy/levgame/market"
	"github.com/rustyeddy/levgame/market/indicators"
	"github.com/rustyeddy/levgame/store"
)

// begin re-reads the document before a step mutates anything. After a
// failed save memory stays authoritative and the reload is skipped.
func (s *Session) begin(ctx context.Context) {
	if s.dirty {
		return
	}
	doc, err := s.gw.Load(ctx)
	if err != nil {
		s.storageFailed("load", err)
		return
	}
	if doc == nil {
		// Deleted underneath us; keep playing and write it back on commit.
		s.dirty = true
		return
	}
	s.apply(doc)
}

func (s *Session) apply(doc *store.Document) {
	s.doc = doc
	s.ledger.Load(doc.Account())
	s.series.Restore(doc.Market.Prices, doc.Market.Volatility)
	metrics.Balance.Set(s.ledger.Balance())
}

// commit writes memory back to the gateway.
func (s *Session) commit(ctx context.Context) {
	if s.doc == nil {
		s.doc = s.freshDocument(s.cfg.Account.UserID)
	}
	s.doc.SetAccount(s.ledger.Snapshot())
	prices, vol := s.series.Snapshot()
	s.doc.SetMarket(prices, vol, s.now())

	if err := s.gw.Save(ctx, s.doc); err != nil {
		s.storageFailed("save", err)
		s.dirty = true
		return
	}
	if s.dirty {
		s.log.Info("storage recovered")
	}
	s.dirty = false
}

func (s *Session) storageFailed(op string, err error) {
	metrics.StorageFailures.WithLabelValues(op).Inc()
	s.log.Warn("storage "+op+" failed", zap.Error(err), zap.Bool("unavailable", errors.Is(err, store.ErrUnavailable)))
}

// Dirty reports whether the last save failed.
func (s *Session) Dirty() bool { return s.dirty }

// tickAsset is one round for one asset: reload, tick, mark, evaluate
// stops and liquidations, save, present.
func (s *Session) tickAsset(ctx context.Context, symbol string) {
	s.begin(ctx)
	s.bus.Sweep(s.now())

	long, short := s.ledger.Exposure(symbol)
	price, err := s.series.Tick(symbol, market.TickInputs{
		LongExposure:  long,
		ShortExposure: short,
		EventImpact:   s.bus.ActiveImpact(),
	})
	if err != nil {
		s.log.Error("tick", zap.String("asset", symbol), zap.Error(err))
		return
	}
	metrics.PriceTicks.WithLabelValues(symbol).Inc()

	s.ledger.MarkToMarket(symbol, price)
	s.ledger.EvaluateRiskTriggers(symbol)

	s.commit(ctx)
	s.presentPrice(symbol)
	s.presentPositions()
}

// TickAll runs one round for every asset, in catalog order.
func (s *Session) TickAll(ctx context.Context) error {
	return s.Do(ctx, func(ctx context.Context) error {
		for _, a := range s.series.Assets() {
			s.tickAsset(ctx, a.Symbol)
		}
		return nil
	})
}

// PositionOpened pins an entry marker.
func (s *Session) PositionOpened(p ledger.Position) {
	metrics.PositionsOpened.WithLabelValues(string(p.Direction)).Inc()
	if err := s.series.Mark(p.Asset, market.MarkerEntry, p.EntryPrice); err != nil {
		s.log.Debug("entry marker", zap.Error(err))
	}
}

// PositionClosed pins an exit marker and always notifies the player.
func (s *Session) PositionClosed(h ledger.HistoryEntry) {
	metrics.PositionsClosed.WithLabelValues(string(h.Reason)).Inc()
	metrics.Balance.Set(s.ledger.Balance())
	if err := s.series.Mark(h.Asset, market.MarkerExit, h.ExitPrice); err != nil {
		s.log.Debug("exit marker", zap.Error(err))
	}
	s.presenter.Settled(h)
}

// trendPeriod is the EMA period drawn over each chart.
const trendPeriod = 20

func (s *Session) priceView(symbol string) (PriceView, error) {
	st, err := s.series.State(symbol)
	if err != nil {
		return PriceView{}, err
	}
	v := PriceView{
		Asset:      st.Asset,
		Selected:   st.Asset.Symbol == s.sel.Asset,
		Price:      st.Current,
		Volatility: st.Volatility,
		History:    st.History,
		Markers:    st.Markers,
	}
	if n := len(st.History); n >= 2 && st.History[n-2] > 0 {
		prev := st.History[n-2]
		v.Change = (st.History[n-1] - prev) / prev * 100
	}
	if ema, ok := indicators.Last(st.History, trendPeriod); ok {
		v.Trend = ema
	}
	return v, nil
}

func (s *Session) positionsView() PositionsView {
	acct := s.ledger.Snapshot()
	rows := make([]Row, 0, len(acct.Positions))
	for _, p := range acct.Positions {
		r := Row{
			ID:           p.ID,
			Asset:        p.Asset,
			Direction:    p.Direction,
			Leverage:     p.Leverage,
			Amount:       p.Amount,
			EntryPrice:   p.EntryPrice,
			CurrentPrice: p.CurrentPrice,
			StopLoss:     p.StopLoss,
			Liquidation:  ledger.LiquidationPrice(p.Direction, p.EntryPrice, p.Leverage),
			PnL:          p.PnL,
			ROE:          p.ROE,
		}
		if p.StopLoss != nil {
			r.StopPrice = ledger.StopLossPrice(p.Direction, p.EntryPrice, p.Leverage, *p.StopLoss)
		}
		if a, ok := s.series.Asset(p.Asset); ok {
			r.Decimals = a.Decimals
		}
		rows = append(rows, r)
	}
	return PositionsView{
		Balance:   acct.Balance,
		Rows:      rows,
		Summary:   s.ledger.Summary(),
		Selection: s.sel.clone(),
	}
}

func (s *Session) presentPrice(symbol string) {
	v, err := s.priceView(symbol)
	if err != nil {
		return
	}
	s.presenter.PriceUpdated(v)
}

func (s *Session) presentPositions() {
	s.presenter.PositionsUpdated(s.positionsView())
}

func (s *Session) presentAll() {
	for _, a := range s.series.Assets() {
		s.presentPrice(a.Symbol)
	}
	s.presentPositions()
}
