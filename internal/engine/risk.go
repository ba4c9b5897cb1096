package engine

import (
	"time"

	"github.com/rs/zerolog"

	"backchain/internal/broker"
)

// StopLoss liquidates any position whose unrealized loss against its entry
// price exceeds the threshold fraction.
type StopLoss struct {
	// Threshold is the loss fraction that triggers liquidation, e.g. 0.1
	// sells a position once it is down 10% from entry.
	Threshold float64
}

// Apply checks every held position against the current prices and force-sells
// the ones past the threshold. Positions without a quote are left alone.
func (s *StopLoss) Apply(t time.Time, prices map[string]float64, b *broker.SimBroker, logger zerolog.Logger) {
	for _, pos := range b.Positions() {
		price, ok := prices[pos.Ticker]
		if !ok || pos.EntryPrice == 0 {
			continue
		}
		loss := (price - pos.EntryPrice) / pos.EntryPrice
		if loss >= -s.Threshold {
			continue
		}
		logger.Warn().
			Str("ticker", pos.Ticker).
			Float64("entry_price", pos.EntryPrice).
			Float64("price", price).
			Float64("loss", loss).
			Msg("Stop loss triggered, liquidating position")
		b.Sell(pos.Ticker, pos.Quantity, price, t)
	}
}
