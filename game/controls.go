package game

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"

	"go.uber.org/zap"

	"github.com/rustyeddy/levgame/ledger"
	"github.com/rustyeddy/levgame/market"
)

// ErrLeverageNotOffered rejects a multiplier outside the configured set.
var ErrLeverageNotOffered = errors.New("leverage not offered")

// Selection is the trade ticket the player is filling in.
type Selection struct {
	Asset    string
	Leverage int
	Amount   float64
	StopLoss *float64 // ROE loss percent; nil means none
}

func (s Selection) clone() Selection {
	if s.StopLoss != nil {
		v := *s.StopLoss
		s.StopLoss = &v
	}
	return s
}

// Selection returns the current ticket.
func (s *Session) Selection(ctx context.Context) (Selection, error) {
	var out Selection
	err := s.Do(ctx, func(context.Context) error {
		out = s.sel.clone()
		return nil
	})
	return out, err
}

// Leverages lists the offered multipliers.
func (s *Session) Leverages() []int { return slices.Clone(s.cfg.Trading.Leverages) }

// Amounts lists the preset trade sizes.
func (s *Session) Amounts() []float64 { return slices.Clone(s.cfg.Trading.Amounts) }

func (s *Session) SelectAsset(ctx context.Context, symbol string) error {
	return s.Do(ctx, func(context.Context) error {
		a, ok := s.series.Asset(symbol)
		if !ok {
			return s.reject("select asset", fmt.Errorf("%w: %q", market.ErrUnknownAsset, symbol))
		}
		s.sel.Asset = a.Symbol
		s.presentPrice(a.Symbol)
		s.presentPositions()
		return nil
	})
}

func (s *Session) SelectLeverage(ctx context.Context, leverage int) error {
	return s.Do(ctx, func(context.Context) error {
		if !slices.Contains(s.cfg.Trading.Leverages, leverage) {
			return s.reject("select leverage", fmt.Errorf("%w: x%d", ErrLeverageNotOffered, leverage))
		}
		s.sel.Leverage = leverage
		s.presentPositions()
		return nil
	})
}

// SelectAmount accepts a preset or any positive custom amount.
func (s *Session) SelectAmount(ctx context.Context, amount float64) error {
	return s.Do(ctx, func(context.Context) error {
		if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
			return s.reject("select amount", fmt.Errorf("%w: %v", ledger.ErrInvalidAmount, amount))
		}
		s.sel.Amount = amount
		s.presentPositions()
		return nil
	})
}

// SetStopLoss sets the ROE loss percent for new positions; nil clears it.
func (s *Session) SetStopLoss(ctx context.Context, percent *float64) error {
	return s.Do(ctx, func(context.Context) error {
		if percent == nil {
			s.sel.StopLoss = nil
			s.presentPositions()
			return nil
		}
		if math.IsNaN(*percent) || *percent <= 0 {
			return s.reject("set stop-loss", fmt.Errorf("%w: %v", ledger.ErrInvalidStopLoss, *percent))
		}
		v := *percent
		s.sel.StopLoss = &v
		s.presentPositions()
		return nil
	})
}

// Open opens a position from the current ticket.
func (s *Session) Open(ctx context.Context, dir ledger.Direction) (ledger.Position, error) {
	var p ledger.Position
	err := s.Do(ctx, func(ctx context.Context) error {
		var err error
		p, err = s.openStep(ctx, dir)
		return err
	})
	return p, err
}

// CloseLatest closes the newest position on the selected asset.
func (s *Session) CloseLatest(ctx context.Context) (ledger.HistoryEntry, error) {
	var h ledger.HistoryEntry
	err := s.Do(ctx, func(ctx context.Context) error {
		s.begin(ctx)
		var err error
		h, err = s.ledger.CloseLatest(s.sel.Asset)
		if err != nil {
			return s.reject("close", err)
		}
		s.afterSettle(ctx, h.Asset)
		return nil
	})
	return h, err
}

// ClosePosition closes one position by id.
func (s *Session) ClosePosition(ctx context.Context, positionID string) (ledger.HistoryEntry, error) {
	var h ledger.HistoryEntry
	err := s.Do(ctx, func(ctx context.Context) error {
		s.begin(ctx)
		var err error
		h, err = s.ledger.Close(positionID, ledger.ReasonManual)
		if err != nil {
			return s.reject("close", err)
		}
		s.afterSettle(ctx, h.Asset)
		return nil
	})
	return h, err
}

func (s *Session) afterSettle(ctx context.Context, asset string) {
	s.commit(ctx)
	s.presentPrice(asset)
	s.presentPositions()
}

// RestoreBalance puts the balance back to the starting balance.
func (s *Session) RestoreBalance(ctx context.Context) error {
	return s.Do(ctx, func(ctx context.Context) error {
		s.begin(ctx)
		if err := s.ledger.RestoreBalance(s.cfg.Account.StartingBalance); err != nil {
			return s.reject("restore", err)
		}
		s.commit(ctx)
		s.presentPositions()
		return nil
	})
}

// Reset deletes the stored document and starts over with the same user.
func (s *Session) Reset(ctx context.Context) error {
	return s.Do(ctx, func(ctx context.Context) error {
		userID := s.ledger.Snapshot().UserID
		if s.doc != nil {
			userID = s.doc.UserData.UserID
		}
		if err := s.gw.Delete(ctx); err != nil {
			s.storageFailed("delete", err)
			return s.reject("reset", err)
		}
		doc := s.freshDocument(userID)
		s.apply(doc)
		s.commit(ctx)
		s.log.Info("account reset", zap.String("user", userID))
		s.presentAll()
		return nil
	})
}

// ShowHistory presents closed trades and the ranking.
func (s *Session) ShowHistory(ctx context.Context) error {
	return s.Do(ctx, func(ctx context.Context) error {
		s.begin(ctx)
		acct := s.ledger.Snapshot()
		s.presenter.HistoryShown(acct.History, acct.Ranking, acct.UserID)
		return nil
	})
}

// Refresh re-presents every chart and the positions table.
func (s *Session) Refresh(ctx context.Context) error {
	return s.Do(ctx, func(ctx context.Context) error {
		s.begin(ctx)
		s.presentAll()
		return nil
	})
}

// reject reports a validation error. Unknown positions are benign and
// only logged.
func (s *Session) reject(action string, err error) error {
	if errors.Is(err, ledger.ErrPositionNotFound) {
		s.log.Debug(action, zap.Error(err))
		return err
	}
	s.presenter.Rejected(action, err)
	return err
}
