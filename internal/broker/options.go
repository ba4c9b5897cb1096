package broker

import (
	"time"

	apperrors "backchain/internal/errors"
	"backchain/internal/models"
	"backchain/internal/pricing"
)

// BuyOption buys qty contracts under the given name, paying the
// Black-Scholes premium at the contract's current parameters. Invalid
// contract parameters surface as a validation error; insufficient cash is
// logged and skipped like a share purchase.
func (b *SimBroker) BuyOption(name string, contract models.OptionContract, qty int, date time.Time) error {
	premium, err := pricing.Price(contract, nil)
	if err != nil {
		return err
	}

	cost := premium * float64(qty)
	if b.cash < cost {
		b.logger.Warn().
			Str("option", name).
			Int("quantity", qty).
			Float64("premium", premium).
			Float64("cash", b.cash).
			Msg("Not enough cash to buy option")
		return apperrors.ErrInsufficientFunds
	}

	b.cash -= cost
	if pos, ok := b.options[name]; ok {
		newQty := pos.Quantity + qty
		pos.EntryPremium = (pos.EntryPremium*float64(pos.Quantity) + premium*float64(qty)) / float64(newQty)
		pos.Quantity = newQty
	} else {
		b.options[name] = &models.OptionPosition{
			Name:         name,
			Contract:     contract,
			Quantity:     qty,
			EntryPremium: premium,
			OpenedAt:     date,
		}
	}
	b.record(date, models.ActionBuyOption, name, qty, premium)
	return nil
}

// SellOption sells qty contracts of the named position at the premium
// implied by the contract's current parameters. Selling more than held is
// rejected.
func (b *SimBroker) SellOption(name string, qty int, date time.Time) error {
	pos, ok := b.options[name]
	if !ok || pos.Quantity < qty {
		b.logger.Warn().
			Str("option", name).
			Int("quantity", qty).
			Msg("Not enough option contracts to sell")
		return apperrors.ErrInsufficientHoldings
	}

	premium, err := pricing.Price(pos.Contract, nil)
	if err != nil {
		return err
	}

	pos.Quantity -= qty
	b.cash += premium * float64(qty)
	if pos.Quantity == 0 {
		delete(b.options, name)
	}
	b.record(date, models.ActionSellOption, name, qty, premium)
	return nil
}

// SweepExpiredOptions removes option positions whose time to maturity has
// elapsed at date. Expired contracts are worthless here: no cash moves.
func (b *SimBroker) SweepExpiredOptions(date time.Time) {
	for name, pos := range b.options {
		if pos.Expired(date) {
			delete(b.options, name)
			b.logger.Info().
				Str("option", name).
				Time("expired_on", pos.ExpiresOn()).
				Msg("Option expired and was removed from the portfolio")
		}
	}
}
