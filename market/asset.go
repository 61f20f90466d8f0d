package market

import "strings"

// Asset is an immutable catalog entry for a tradable synthetic coin.
type Asset struct {
	Symbol     string  `json:"symbol" yaml:"symbol"`
	BasePrice  float64 `json:"base_price" yaml:"base_price"` // reference level for support/resistance
	Volatility float64 `json:"volatility" yaml:"volatility"` // starting per-tick volatility
	Decimals   int     `json:"decimals" yaml:"decimals"`     // display precision
}

// MinPrice is the floor a tick may never cross.
func (a Asset) MinPrice() float64 {
	return a.BasePrice * 1e-6
}

var (
	BTC  = Asset{Symbol: "BTC", BasePrice: 50000, Volatility: 0.02, Decimals: 2}
	DOGE = Asset{Symbol: "DOGE", BasePrice: 0.15, Volatility: 0.03, Decimals: 6}
	SHIB = Asset{Symbol: "SHIB", BasePrice: 0.00001, Volatility: 0.05, Decimals: 8}
)

// Catalog is an ordered set of assets. Order is display order.
type Catalog []Asset

// DefaultCatalog returns the stock set of coins.
func DefaultCatalog() Catalog {
	return Catalog{BTC, DOGE, SHIB}
}

// Lookup finds an asset by symbol, case-insensitively.
func (c Catalog) Lookup(symbol string) (Asset, bool) {
	for _, a := range c {
		if strings.EqualFold(a.Symbol, symbol) {
			return a, true
		}
	}
	return Asset{}, false
}

// Symbols lists the catalog symbols in order.
func (c Catalog) Symbols() []string {
	out := make([]string, 0, len(c))
	for _, a := range c {
		out = append(out, a.Symbol)
	}
	return out
}
