package store

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/rustyeddy/levgame/ledger"
	"github.com/rustyeddy/levgame/market"
)

// UserData identifies the local player.
type UserData struct {
	UserID   string    `json:"userId"`
	JoinDate time.Time `json:"joinDate"`
}

// MarketState is the persisted price state. LastUpdate is unix millis.
type MarketState struct {
	Prices     map[string]float64 `json:"prices"`
	Volatility map[string]float64 `json:"volatility"`
	LastUpdate *int64             `json:"lastUpdate,omitempty"`
}

// Document is the single JSON object the game persists.
type Document struct {
	Balance   float64               `json:"balance"`
	Positions []ledger.Position     `json:"positions"`
	History   []ledger.HistoryEntry `json:"history"`
	UserData  UserData              `json:"userData"`
	Market    MarketState           `json:"market"`
	Ranking   ledger.Ranking        `json:"ranking"`
}

// NewDocument builds the first-run document.
func NewDocument(userID string, balance float64, assets market.Catalog, now time.Time) *Document {
	d := &Document{
		Balance:  balance,
		UserData: UserData{UserID: userID, JoinDate: now.UTC()},
		Market: MarketState{
			Prices:     make(map[string]float64, len(assets)),
			Volatility: make(map[string]float64, len(assets)),
		},
		Ranking: ledger.Ranking{{ID: userID, Balance: balance}},
	}
	for _, a := range assets {
		d.Market.Prices[a.Symbol] = a.BasePrice
		d.Market.Volatility[a.Symbol] = a.Volatility
	}
	d.normalize()
	return d
}

// normalize replaces nil collections so they encode as [] and {}.
func (d *Document) normalize() {
	if d.Positions == nil {
		d.Positions = []ledger.Position{}
	}
	if d.History == nil {
		d.History = []ledger.HistoryEntry{}
	}
	if d.Ranking == nil {
		d.Ranking = ledger.Ranking{}
	}
	if d.Market.Prices == nil {
		d.Market.Prices = map[string]float64{}
	}
	if d.Market.Volatility == nil {
		d.Market.Volatility = map[string]float64{}
	}
}

// Account extracts the ledger-owned part of the document.
func (d *Document) Account() ledger.Account {
	return ledger.Account{
		UserID:    d.UserData.UserID,
		Balance:   d.Balance,
		Positions: d.Positions,
		History:   d.History,
		Ranking:   d.Ranking,
	}
}

// SetAccount writes ledger state back into the document.
func (d *Document) SetAccount(a ledger.Account) {
	d.Balance = a.Balance
	d.Positions = a.Positions
	d.History = a.History
	d.Ranking = a.Ranking
	d.normalize()
}

// SetMarket writes price state back into the document.
func (d *Document) SetMarket(prices, volatility map[string]float64, at time.Time) {
	ms := at.UnixMilli()
	d.Market = MarketState{Prices: prices, Volatility: volatility, LastUpdate: &ms}
	d.normalize()
}

// Clone returns a deep copy.
func (d *Document) Clone() (*Document, error) {
	b, err := Encode(d)
	if err != nil {
		return nil, err
	}
	return Decode(b)
}

func Encode(d *Document) ([]byte, error) {
	if d == nil {
		return nil, errors.New("encode document: nil")
	}
	d.normalize()
	b, err := json.Marshal(d)
	if err != nil {
		return nil, errors.Wrap(err, "encode document")
	}
	return b, nil
}

// Decode parses a stored payload. Empty input yields a nil document.
func Decode(b []byte) (*Document, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var d Document
	if err := json.Unmarshal(b, &d); err != nil {
		return nil, errors.Wrap(err, "decode document")
	}
	d.normalize()
	return &d, nil
}
