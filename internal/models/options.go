package models

import "time"

// OptionType distinguishes calls from puts.
type OptionType string

const (
	Call OptionType = "Call"
	Put  OptionType = "Put"
)

// OptionContract describes a European option. It is an immutable value
// object; pricing is done by the pricing package, optionally with per-call
// overrides, so a contract never needs to be rebuilt for scenario shocks.
type OptionContract struct {
	Type           OptionType
	Underlying     float64 // current price of the underlying
	Strike         float64
	Rate           float64 // risk-free interest rate
	DividendYield  float64
	DaysToMaturity int     // time to maturity in calendar days
	Volatility     float64 // implied volatility
}

// OptionPosition is a holding of option contracts. Owned by the broker;
// removed when the quantity reaches zero or the contract expires.
type OptionPosition struct {
	Name         string // identifying name, e.g. "CALL_AAPL_150"
	Contract     OptionContract
	Quantity     int
	EntryPremium float64 // weighted-average premium paid per contract
	OpenedAt     time.Time
}

// ExpiresOn returns the calendar date on which the position's contract
// reaches maturity, counted from the date it was opened.
func (p OptionPosition) ExpiresOn() time.Time {
	return p.OpenedAt.AddDate(0, 0, p.Contract.DaysToMaturity)
}

// Expired reports whether the contract's time to maturity has elapsed at t.
func (p OptionPosition) Expired(t time.Time) bool {
	return !p.ExpiresOn().After(t)
}
