package broker

import (
	"math"
	"sort"
	"time"

	"backchain/internal/models"
	"backchain/internal/pricing"
)

// Value returns the mark-to-market portfolio value: cash plus share
// positions at their last known prices plus option positions at their
// current Black-Scholes premium. Positions without a quoted price are
// excluded from the total, not valued at zero, so the figure understates a
// portfolio holding untracked instruments.
func (b *SimBroker) Value(prices map[string]float64) float64 {
	total := b.cash
	for ticker, pos := range b.positions {
		if price, ok := prices[ticker]; ok {
			total += pos.MarketValue(price)
		}
	}
	for _, pos := range b.options {
		if premium, err := pricing.Price(pos.Contract, nil); err == nil {
			total += premium * float64(pos.Quantity)
		}
	}
	return total
}

// Rebalance drives the share portfolio toward the target weights in two
// passes: all sells first, freeing cash, then buys. Instruments with no
// quoted price are skipped. A buy that exceeds available cash degrades to
// the largest affordable whole-unit quantity. Buys record the instrument's
// current contract expiry from expiries, which may be nil for equities.
func (b *SimBroker) Rebalance(target models.Weights, prices map[string]float64, expiries map[string]time.Time, date time.Time) {
	tickers := make([]string, 0, len(target))
	for ticker := range target {
		tickers = append(tickers, ticker)
	}
	sort.Strings(tickers)

	for _, ticker := range tickers {
		price, ok := prices[ticker]
		if !ok || price <= 0 {
			b.logger.Warn().
				Str("ticker", ticker).
				Time("date", date).
				Msg("Price not available, skipping in rebalance")
			continue
		}
		if qty := b.tradeQuantity(ticker, target[ticker], price, prices); qty < 0 {
			b.Sell(ticker, -qty, price, date)
		}
	}

	for _, ticker := range tickers {
		price, ok := prices[ticker]
		if !ok || price <= 0 {
			continue
		}
		qty := b.tradeQuantity(ticker, target[ticker], price, prices)
		if qty <= 0 {
			continue
		}
		if cost := float64(qty) * price; cost > b.cash {
			affordable := int(b.cash / price)
			b.logger.Warn().
				Str("ticker", ticker).
				Int("wanted", qty).
				Int("affordable", affordable).
				Float64("shortfall", cost-b.cash).
				Msg("Not enough cash for full rebalance buy, buying partial")
			qty = affordable
		}
		if qty > 0 {
			b.Buy(ticker, qty, price, date, expiries[ticker])
		}
	}
}

// tradeQuantity computes the signed whole-unit trade that moves the ticker's
// market value to its target share of the current total portfolio value.
func (b *SimBroker) tradeQuantity(ticker string, weight, price float64, prices map[string]float64) int {
	targetValue := b.Value(prices) * weight
	var currentValue float64
	if pos, ok := b.positions[ticker]; ok {
		currentValue = pos.MarketValue(price)
	}
	return int(math.Trunc((targetValue - currentValue) / price))
}

// SellExpiredContracts force-sells every futures position whose contract
// expiry is on or before date, at the last known price. Positions without a
// quote are kept and logged; they will be retried on the next call.
func (b *SimBroker) SellExpiredContracts(date time.Time, prices map[string]float64) {
	var expired []string
	for ticker, pos := range b.positions {
		if !pos.Expiry.After(date) {
			expired = append(expired, ticker)
		}
	}
	sort.Strings(expired)

	for _, ticker := range expired {
		price, ok := prices[ticker]
		if !ok {
			b.logger.Warn().
				Str("ticker", ticker).
				Time("date", date).
				Msg("No price to close expired contract")
			continue
		}
		qty := b.positions[ticker].Quantity
		b.logger.Info().
			Str("ticker", ticker).
			Int("quantity", qty).
			Time("date", date).
			Msg("Contract expired, forcing liquidation")
		b.Sell(ticker, qty, price, date)
	}
}
