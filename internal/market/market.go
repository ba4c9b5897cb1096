// Package market provides a windowed view over the historical price table:
// trailing-window slices, last-known prices with expiry filtering, and the
// first two moments (expected returns and covariance) used by the optimizer.
package market

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"

	"backchain/internal/models"
	"backchain/pkg/utils"
)

// DefaultWindow is the trailing estimation window.
const DefaultWindow = 360 * 24 * time.Hour

// Information is a read-only view over ingested price bars. All queries are
// pure with respect to the stored table.
type Information struct {
	window time.Duration
	bars   []models.PriceBar
}

// New builds an Information view over the bars with the given trailing
// window. Bars are copied and sorted by (ticker, date) once at construction.
func New(bars []models.PriceBar, window time.Duration) *Information {
	if window <= 0 {
		window = DefaultWindow
	}
	sorted := make([]models.PriceBar, len(bars))
	copy(sorted, bars)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Ticker != sorted[j].Ticker {
			return sorted[i].Ticker < sorted[j].Ticker
		}
		return sorted[i].Date.Before(sorted[j].Date)
	})
	return &Information{window: window, bars: sorted}
}

// Slice returns the bars whose date falls in [t−window, t), compared at day
// granularity.
func (in *Information) Slice(t time.Time) []models.PriceBar {
	day := utils.Day(t)
	from := day.Add(-in.window)

	var out []models.PriceBar
	for _, bar := range in.bars {
		d := utils.Day(bar.Date)
		if !d.Before(from) && d.Before(day) {
			out = append(out, bar)
		}
	}
	return out
}

// Prices returns the last known close per instrument strictly before t,
// excluding bars whose contract expired before t. Instruments with no
// surviving bar are absent from the map.
func (in *Information) Prices(t time.Time) map[string]float64 {
	prices := make(map[string]float64)
	for _, bar := range in.Slice(t) {
		if bar.Expired(t) {
			continue
		}
		// Bars are date-sorted per ticker, so the last write wins.
		prices[bar.Ticker] = bar.Close
	}
	return prices
}

// Expiries returns the contract expiry carried by each instrument's latest
// surviving bar before t. Equities carry the never-expires sentinel.
func (in *Information) Expiries(t time.Time) map[string]time.Time {
	expiries := make(map[string]time.Time)
	for _, bar := range in.Slice(t) {
		if bar.Expired(t) {
			continue
		}
		expiries[bar.Ticker] = bar.Expiry
	}
	return expiries
}

// Estimate holds the first two moments over the instruments present in the
// slice: per-instrument mean simple return and the sample covariance of
// prices across the dates every instrument shares.
type Estimate struct {
	Tickers []string
	Mean    []float64
	Cov     *mat.SymDense
}

// Estimate computes expected returns and the price covariance matrix from
// the trailing window at t. Instruments with fewer than two observations get
// an expected return of zero. The covariance is inner-joined on date: only
// dates on which every instrument traded contribute.
func (in *Information) Estimate(t time.Time) *Estimate {
	slice := in.Slice(t)
	if len(slice) == 0 {
		return &Estimate{}
	}

	series := make(map[string][]models.PriceBar)
	for _, bar := range slice {
		series[bar.Ticker] = append(series[bar.Ticker], bar)
	}

	tickers := make([]string, 0, len(series))
	for ticker := range series {
		tickers = append(tickers, ticker)
	}
	sort.Strings(tickers)

	mean := make([]float64, len(tickers))
	for i, ticker := range tickers {
		mean[i] = meanSimpleReturn(series[ticker])
	}

	return &Estimate{
		Tickers: tickers,
		Mean:    mean,
		Cov:     priceCovariance(tickers, series),
	}
}

// meanSimpleReturn averages day-over-day simple returns along one ticker's
// series. Fewer than two observations yield zero.
func meanSimpleReturn(bars []models.PriceBar) float64 {
	if len(bars) < 2 {
		return 0
	}
	var sum float64
	var n int
	for i := 1; i < len(bars); i++ {
		prev := bars[i-1].Close
		if prev == 0 {
			continue
		}
		sum += bars[i].Close/prev - 1
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// priceCovariance computes the sample covariance of close prices over the
// dates shared by all tickers. With fewer than two shared dates the matrix
// is all zeros.
func priceCovariance(tickers []string, series map[string][]models.PriceBar) *mat.SymDense {
	n := len(tickers)
	cov := mat.NewSymDense(n, nil)

	// Inner join on date.
	counts := make(map[time.Time]int)
	byDate := make(map[time.Time]map[string]float64)
	for _, ticker := range tickers {
		for _, bar := range series[ticker] {
			d := utils.Day(bar.Date)
			if byDate[d] == nil {
				byDate[d] = make(map[string]float64)
			}
			if _, seen := byDate[d][ticker]; !seen {
				counts[d]++
			}
			byDate[d][ticker] = bar.Close
		}
	}
	var shared []time.Time
	for d, c := range counts {
		if c == n {
			shared = append(shared, d)
		}
	}
	if len(shared) < 2 {
		return cov
	}
	sort.Slice(shared, func(i, j int) bool { return shared[i].Before(shared[j]) })

	// Column means.
	means := make([]float64, n)
	for _, d := range shared {
		for i, ticker := range tickers {
			means[i] += byDate[d][ticker]
		}
	}
	for i := range means {
		means[i] /= float64(len(shared))
	}

	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			var sum float64
			for _, d := range shared {
				sum += (byDate[d][tickers[i]] - means[i]) * (byDate[d][tickers[j]] - means[j])
			}
			cov.SetSym(i, j, sum/float64(len(shared)-1))
		}
	}
	return cov
}
