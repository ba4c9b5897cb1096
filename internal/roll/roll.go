// Package roll implements the futures roll calendar: front-month contract
// resolution and expiry dates for the supported commodity tickers. Portfolio
// correctness depends on these rules, so they follow the exchange
// conventions exactly: fixed contract-month tables with a 20-business-day
// rollover window for the CBOT group, and per-ticker business-day offsets
// for the energy group.
package roll

import (
	"fmt"
	"strings"
	"time"

	"backchain/internal/errors"
	"backchain/internal/models"
	"backchain/pkg/utils"
)

// rolloverWindow is the number of business days before a CBOT expiry during
// which purchases are directed to the next listed contract.
const rolloverWindow = 20

// cbotContractMonths lists the contract months traded for each CBOT
// commodity.
var cbotContractMonths = map[string][]time.Month{
	"ZS=F": {time.January, time.March, time.May, time.July, time.August, time.September, time.November}, // Soybeans
	"ZW=F": {time.March, time.May, time.July, time.September, time.December},                            // Wheat
	"ZC=F": {time.March, time.May, time.July, time.September, time.December},                            // Corn
	"CC=F": {time.March, time.May, time.July, time.September, time.December},                            // Cocoa
}

// energyTickers is the set of supported energy contracts.
var energyTickers = map[string]bool{
	"CL=F": true, // Crude Oil (WTI)
	"BZ=F": true, // Crude Oil (Brent)
	"NG=F": true, // Natural Gas
	"HO=F": true, // Heating Oil
}

// IsFutures reports whether the ticker names a futures contract.
func IsFutures(ticker string) bool {
	return strings.HasSuffix(ticker, "=F")
}

// Supported reports whether the roll calendar covers the ticker.
func Supported(ticker string) bool {
	if _, ok := cbotContractMonths[ticker]; ok {
		return true
	}
	return energyTickers[ticker]
}

// FuturesExpiry returns the expiry date of the front-month contract for a
// commodity, as seen from the purchase date. Unknown futures tickers fail
// with ErrUnsupportedTicker.
func FuturesExpiry(buyDate time.Time, ticker string) (time.Time, error) {
	buy := utils.Day(buyDate)

	if months, ok := cbotContractMonths[ticker]; ok {
		return cbotExpiry(buy, months), nil
	}
	if energyTickers[ticker] {
		return energyExpiry(buy, ticker), nil
	}
	return time.Time{}, fmt.Errorf("%w: %s", errors.ErrUnsupportedTicker, ticker)
}

// cbotExpiry resolves the front month as the earliest listed month on or
// after the purchase month (wrapping to the next year past the last listed
// month), places expiry on the business day before the 15th of that month,
// and advances one contract when the purchase falls inside the rollover
// window.
func cbotExpiry(buy time.Time, months []time.Month) time.Time {
	year := buy.Year()
	idx := -1
	for i, m := range months {
		if m >= buy.Month() {
			idx = i
			break
		}
	}
	if idx == -1 {
		idx = 0
		year++
	}

	expiry := cbotMonthExpiry(year, months[idx])
	rollover := utils.SubBusinessDays(expiry, rolloverWindow)
	if !buy.Before(rollover) {
		idx++
		if idx >= len(months) {
			idx = 0
			year++
		}
		expiry = cbotMonthExpiry(year, months[idx])
	}
	return expiry
}

func cbotMonthExpiry(year int, month time.Month) time.Time {
	fifteenth := time.Date(year, month, 15, 0, 0, 0, 0, time.UTC)
	return utils.SubBusinessDays(fifteenth, 1)
}

// energyExpiry starts from the next delivery month and applies the
// per-ticker day-of-month and business-day offset rule. When the computed
// expiry precedes the purchase date, delivery advances one month and the
// rule is reapplied.
func energyExpiry(buy time.Time, ticker string) time.Time {
	delivery := int(buy.Month())%12 + 1
	year := buy.Year()
	if delivery == 1 {
		year++
	}

	expiry := energyDeliveryExpiry(ticker, year, delivery)
	if expiry.Before(buy) {
		delivery = delivery%12 + 1
		if delivery == 1 {
			year++
		}
		expiry = energyDeliveryExpiry(ticker, year, delivery)
	}
	return expiry
}

func energyDeliveryExpiry(ticker string, year, delivery int) time.Time {
	// CL and HO expire in the month before delivery.
	prevYear, prevMonth := year, delivery-1
	if delivery == 1 {
		prevYear, prevMonth = year-1, 12
	}

	switch ticker {
	case "CL=F":
		return utils.SubBusinessDays(time.Date(prevYear, time.Month(prevMonth), 25, 0, 0, 0, 0, time.UTC), 3)
	case "BZ=F":
		return utils.SubBusinessDays(time.Date(year, time.Month(delivery), 1, 0, 0, 0, 0, time.UTC), 2)
	case "NG=F":
		return utils.SubBusinessDays(time.Date(year, time.Month(delivery), 1, 0, 0, 0, 0, time.UTC), 3)
	case "HO=F":
		return utils.SubBusinessDays(time.Date(prevYear, time.Month(prevMonth), 1, 0, 0, 0, 0, time.UTC), 1)
	}
	return time.Time{}
}

// Annotate attaches an expiry date to every bar: the front-month contract
// expiry as of the bar's date for futures tickers, the never-expires
// sentinel for everything else. The input slice is not modified.
func Annotate(bars []models.PriceBar) ([]models.PriceBar, error) {
	out := make([]models.PriceBar, len(bars))
	for i, bar := range bars {
		annotated := bar
		if IsFutures(bar.Ticker) {
			expiry, err := FuturesExpiry(bar.Date, bar.Ticker)
			if err != nil {
				return nil, err
			}
			annotated.Expiry = expiry
		} else {
			annotated.Expiry = models.NeverExpires
		}
		out[i] = annotated
	}
	return out, nil
}
