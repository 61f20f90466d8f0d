package market

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"

	"go.uber.org/zap"
)

var (
	ErrUnknownAsset = errors.New("unknown asset")
	ErrNoAssets     = errors.New("no assets configured")
)

// Params tunes the biased random walk.
type Params struct {
	Window             int     // samples kept per asset
	MinVolatility      float64 // volatility clamp, lower bound
	MaxVolatility      float64 // volatility clamp, upper bound
	ReversionThreshold float64 // deviation from the reference that arms support/resistance
	ReversionStrength  float64 // max pull-back impulse, as a fraction of the reference
	PressureFactor     float64 // weight of open long/short imbalance, in units of volatility
	EventScale         float64 // multiplier on the summed event price impact
	MaxMoveFactor      float64 // single-tick move cap, in units of volatility; 0 disables
}

func DefaultParams() Params {
	return Params{
		Window:             50,
		MinVolatility:      0.01,
		MaxVolatility:      0.2,
		ReversionThreshold: 0.10,
		ReversionStrength:  0.01,
		PressureFactor:     0.5,
		EventScale:         0.1,
		MaxMoveFactor:      3,
	}
}

// TickInputs carries the outside forces acting on one tick.
type TickInputs struct {
	LongExposure  float64 // open long margin*leverage on the asset
	ShortExposure float64 // open short margin*leverage on the asset
	EventImpact   float64 // summed price impact of active market events
}

// State is a read-only snapshot of one asset's price state.
type State struct {
	Asset      Asset
	Current    float64
	Volatility float64
	History    []float64
	Markers    []Marker
}

type priceState struct {
	asset      Asset
	current    float64
	volatility float64
	window     *Window
}

// Series owns the synthetic price state of every asset.
type Series struct {
	mu     sync.RWMutex
	params Params
	rng    *rand.Rand
	log    *zap.Logger
	assets Catalog
	states map[string]*priceState
}

func NewSeries(assets Catalog, params Params, rng *rand.Rand, log *zap.Logger) (*Series, error) {
	if len(assets) == 0 {
		return nil, ErrNoAssets
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if log == nil {
		log = zap.NewNop()
	}

	s := &Series{
		params: params,
		rng:    rng,
		log:    log,
		assets: assets,
		states: make(map[string]*priceState, len(assets)),
	}
	for _, a := range assets {
		if a.BasePrice <= 0 {
			return nil, fmt.Errorf("asset %s: base price must be positive", a.Symbol)
		}
		st := &priceState{
			asset:      a,
			current:    a.BasePrice,
			volatility: s.clampVolatility(a.Volatility),
			window:     NewWindow(params.Window),
		}
		st.window.Push(a.BasePrice)
		s.states[a.Symbol] = st
	}
	return s, nil
}

func (s *Series) Assets() Catalog { return s.assets }

func (s *Series) Asset(symbol string) (Asset, bool) { return s.assets.Lookup(symbol) }

// Symbol returns the catalog spelling of symbol.
func (s *Series) Symbol(symbol string) (string, error) {
	a, ok := s.assets.Lookup(symbol)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownAsset, symbol)
	}
	return a.Symbol, nil
}

func (s *Series) lookup(symbol string) (*priceState, error) {
	a, ok := s.assets.Lookup(symbol)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAsset, symbol)
	}
	return s.states[a.Symbol], nil
}

// Seed replaces the window with n points leading up to the current price
// so a chart has something to draw before the first live tick. The walk is
// pulled toward the base price and always ends at the current price.
func (s *Series) Seed(symbol string, n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.lookup(symbol)
	if err != nil {
		return err
	}
	if n < 1 {
		n = 1
	}

	base := st.asset.BasePrice
	floor := st.asset.MinPrice()
	anchor := st.current
	if anchor <= 0 {
		anchor = base
	}

	// Walk away from the anchor, then replay it backwards.
	path := make([]float64, n)
	price := anchor
	path[0] = price
	for i := 1; i < n; i++ {
		change := (s.rng.Float64() - 0.5) * base * 0.02
		switch {
		case price < base*(1-s.params.ReversionThreshold):
			change += s.rng.Float64() * base * s.params.ReversionStrength // support
		case price > base*(1+s.params.ReversionThreshold):
			change -= s.rng.Float64() * base * s.params.ReversionStrength // resistance
		}
		price += change
		if price <= floor || math.IsNaN(price) {
			price = floor
		}
		path[i] = price
	}

	st.window.Reset()
	for i := n - 1; i >= 0; i-- {
		st.window.Push(path[i])
	}
	st.current = anchor
	return nil
}

// Tick advances one asset by one step of the biased walk and records the
// new price in the window.
func (s *Series) Tick(symbol string, in TickInputs) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.lookup(symbol)
	if err != nil {
		return 0, err
	}

	change := s.change(st, in)
	next := st.current * (1 + change)
	if next <= 0 || math.IsNaN(next) || math.IsInf(next, 0) {
		next = st.asset.MinPrice()
	}

	st.current = next
	st.window.Push(next)

	s.log.Debug("tick",
		zap.String("asset", st.asset.Symbol),
		zap.Float64("price", next),
		zap.Float64("change", change),
		zap.Float64("volatility", st.volatility))
	return next, nil
}

func (s *Series) change(st *priceState, in TickInputs) float64 {
	vol := st.volatility
	change := uniform(s.rng, -vol, vol) * uniform(s.rng, 0.5, 1.0)

	ref := st.asset.BasePrice
	last := st.current
	switch {
	case last < ref*(1-s.params.ReversionThreshold):
		change += s.rng.Float64() * s.params.ReversionStrength * ref / last
	case last > ref*(1+s.params.ReversionThreshold):
		change -= s.rng.Float64() * s.params.ReversionStrength * ref / last
	}

	if total := in.LongExposure + in.ShortExposure; total > 0 {
		imbalance := (in.LongExposure - in.ShortExposure) / total
		change += imbalance * s.rng.Float64() * vol * s.params.PressureFactor
	}

	change += in.EventImpact * s.params.EventScale

	if limit := s.params.MaxMoveFactor * vol; limit > 0 {
		change = clamp(change, -limit, limit)
	}
	return change
}

func (s *Series) CurrentPrice(symbol string) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, err := s.lookup(symbol)
	if err != nil {
		return 0, err
	}
	return st.current, nil
}

func (s *Series) Volatility(symbol string) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, err := s.lookup(symbol)
	if err != nil {
		return 0, err
	}
	return st.volatility, nil
}

// AdjustVolatility nudges an asset's volatility by delta, clamped to the
// configured bounds, and returns the new value.
func (s *Series) AdjustVolatility(symbol string, delta float64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.lookup(symbol)
	if err != nil {
		return 0, err
	}
	st.volatility = s.clampVolatility(st.volatility + delta)
	return st.volatility, nil
}

// Mark pins an entry or exit marker to the newest sample of symbol.
func (s *Series) Mark(symbol string, kind MarkerKind, price float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.lookup(symbol)
	if err != nil {
		return err
	}
	st.window.Mark(kind, price)
	return nil
}

func (s *Series) State(symbol string) (State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, err := s.lookup(symbol)
	if err != nil {
		return State{}, err
	}
	return State{
		Asset:      st.asset,
		Current:    st.current,
		Volatility: st.volatility,
		History:    st.window.Prices(),
		Markers:    st.window.Markers(),
	}, nil
}

// Restore applies persisted prices and volatilities. Unknown symbols and
// non-positive prices are ignored; volatility is clamped.
func (s *Series) Restore(prices, volatility map[string]float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for sym, p := range prices {
		st, err := s.lookup(sym)
		if err != nil || p <= 0 || math.IsNaN(p) || math.IsInf(p, 0) {
			continue
		}
		st.current = p
		if last, ok := st.window.Last(); !ok || last != p {
			st.window.Push(p)
		}
	}
	for sym, v := range volatility {
		st, err := s.lookup(sym)
		if err != nil || math.IsNaN(v) {
			continue
		}
		st.volatility = s.clampVolatility(v)
	}
}

// Snapshot returns current prices and volatilities keyed by symbol.
func (s *Series) Snapshot() (prices, volatility map[string]float64) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prices = make(map[string]float64, len(s.states))
	volatility = make(map[string]float64, len(s.states))
	for sym, st := range s.states {
		prices[sym] = st.current
		volatility[sym] = st.volatility
	}
	return prices, volatility
}

func (s *Series) clampVolatility(v float64) float64 {
	lo, hi := s.params.MinVolatility, s.params.MaxVolatility
	if hi < lo {
		lo, hi = hi, lo
	}
	return clamp(v, lo, hi)
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + (hi-lo)*rng.Float64()
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}
