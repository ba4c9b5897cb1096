// Package models defines the core data types shared across the application.
package models

import "time"

// AssetClass selects the instrument universe and the policies that go with it.
type AssetClass string

const (
	AssetStocks      AssetClass = "stocks"
	AssetCommodities AssetClass = "commodities"
)

// Action represents the type of a transaction.
type Action string

const (
	ActionBuy        Action = "BUY"
	ActionSell       Action = "SELL"
	ActionBuyOption  Action = "BUY_OPTION"
	ActionSellOption Action = "SELL_OPTION"
)

// NeverExpires is the sentinel expiry carried by instruments that do not
// expire (equities). It sorts after any realistic backtest date, so expiry
// filtering and contract-roll checks never trigger for it.
var NeverExpires = time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC)

// PriceBar is one row of the historical price table: the closing price of a
// ticker on a given day, plus the front-month contract expiry for futures.
// Bars are immutable once ingested.
type PriceBar struct {
	Date   time.Time
	Ticker string
	Close  float64
	Expiry time.Time // NeverExpires for non-futures instruments
}

// Expired reports whether the bar's contract has expired strictly before t.
func (b PriceBar) Expired(t time.Time) bool {
	return b.Expiry.Before(t)
}

// Position is a holding in a single instrument. Owned exclusively by the
// broker; removed when the quantity reaches zero.
type Position struct {
	Ticker     string
	Quantity   int
	EntryPrice float64   // weighted-average entry price
	Expiry     time.Time // contract expiry for futures, NeverExpires otherwise
}

// MarketValue returns the position value at the given price.
func (p Position) MarketValue(price float64) float64 {
	return float64(p.Quantity) * price
}

// TransactionRecord is one executed trade. Records are appended to the
// broker's transaction log and never mutated.
type TransactionRecord struct {
	Date     time.Time
	Action   Action
	Ticker   string
	Quantity int
	Price    float64
	Cash     float64 // cash balance after the transaction
}

// Weights maps a ticker to its target portfolio weight in [0,1]. A valid
// weighting sums to 1 over the selected instruments; an empty map means no
// trades this step.
type Weights map[string]float64

// Sum returns the total of all weights.
func (w Weights) Sum() float64 {
	var total float64
	for _, v := range w {
		total += v
	}
	return total
}
