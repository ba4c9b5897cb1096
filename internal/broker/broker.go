// Package broker implements the simulated execution venue. It holds the only
// mutable trading state in a run: cash, share and option positions, and the
// append-only transaction log. A broker instance belongs to exactly one
// backtest run and is not safe for concurrent use.
package broker

import (
	"sort"
	"time"

	"github.com/rs/zerolog"

	apperrors "backchain/internal/errors"
	"backchain/internal/logging"
	"backchain/internal/models"
)

// SimBroker executes orders against recorded market prices. Per-trade
// failures (insufficient funds or holdings) are logged and skipped; they
// never abort a run.
type SimBroker struct {
	cash      float64
	positions map[string]*models.Position
	options   map[string]*models.OptionPosition
	journal   []models.TransactionRecord
	logger    zerolog.Logger
}

// New creates a broker with the given starting cash.
func New(initialCash float64, logger zerolog.Logger) *SimBroker {
	return &SimBroker{
		cash:      initialCash,
		positions: make(map[string]*models.Position),
		options:   make(map[string]*models.OptionPosition),
		logger:    logger,
	}
}

// Cash returns the current cash balance.
func (b *SimBroker) Cash() float64 {
	return b.cash
}

// Position returns a copy of the position in ticker, if held.
func (b *SimBroker) Position(ticker string) (models.Position, bool) {
	pos, ok := b.positions[ticker]
	if !ok {
		return models.Position{}, false
	}
	return *pos, true
}

// Positions returns a copy of all open positions.
func (b *SimBroker) Positions() []models.Position {
	out := make([]models.Position, 0, len(b.positions))
	for _, pos := range b.positions {
		out = append(out, *pos)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ticker < out[j].Ticker })
	return out
}

// OptionPosition returns a copy of the named option position, if held.
func (b *SimBroker) OptionPosition(name string) (models.OptionPosition, bool) {
	pos, ok := b.options[name]
	if !ok {
		return models.OptionPosition{}, false
	}
	return *pos, true
}

// TransactionLog returns a copy of the ordered transaction log.
func (b *SimBroker) TransactionLog() []models.TransactionRecord {
	out := make([]models.TransactionRecord, len(b.journal))
	copy(out, b.journal)
	return out
}

// Buy purchases qty units of ticker at price. With insufficient cash the
// order is logged and skipped, returning ErrInsufficientFunds. A non-zero
// expiry marks the position as a futures contract.
func (b *SimBroker) Buy(ticker string, qty int, price float64, date time.Time, expiry time.Time) error {
	cost := price * float64(qty)
	if b.cash < cost {
		b.logger.Warn().
			Str("ticker", ticker).
			Int("quantity", qty).
			Float64("price", price).
			Float64("cash", b.cash).
			Msg("Not enough cash to buy")
		return apperrors.ErrInsufficientFunds
	}

	b.cash -= cost
	if pos, ok := b.positions[ticker]; ok {
		newQty := pos.Quantity + qty
		pos.EntryPrice = (pos.EntryPrice*float64(pos.Quantity) + price*float64(qty)) / float64(newQty)
		pos.Quantity = newQty
		if !expiry.IsZero() {
			pos.Expiry = expiry
		}
	} else {
		if expiry.IsZero() {
			expiry = models.NeverExpires
		}
		b.positions[ticker] = &models.Position{
			Ticker:     ticker,
			Quantity:   qty,
			EntryPrice: price,
			Expiry:     expiry,
		}
	}
	b.record(date, models.ActionBuy, ticker, qty, price)
	return nil
}

// Sell disposes of qty units of ticker at price. Selling more than held is
// logged and skipped, returning ErrInsufficientHoldings. The position is
// removed when its quantity reaches zero.
func (b *SimBroker) Sell(ticker string, qty int, price float64, date time.Time) error {
	pos, ok := b.positions[ticker]
	if !ok || pos.Quantity < qty {
		b.logger.Warn().
			Str("ticker", ticker).
			Int("quantity", qty).
			Msg("Not enough shares to sell")
		return apperrors.ErrInsufficientHoldings
	}

	pos.Quantity -= qty
	b.cash += price * float64(qty)
	if pos.Quantity == 0 {
		delete(b.positions, ticker)
	}
	b.record(date, models.ActionSell, ticker, qty, price)
	return nil
}

func (b *SimBroker) record(date time.Time, action models.Action, ticker string, qty int, price float64) {
	b.journal = append(b.journal, models.TransactionRecord{
		Date:     date,
		Action:   action,
		Ticker:   ticker,
		Quantity: qty,
		Price:    price,
		Cash:     b.cash,
	})
	logging.LogTrade(b.logger, string(action), ticker, qty, price, b.cash)
}
