// Package data implements the market-data collaborator: sources that, given
// a ticker set and a date range, return ordered rows of (date, ticker,
// close). Futures expiry annotation happens downstream in the roll package;
// sources only deliver raw closes.
package data

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/gocarina/gocsv"

	"backchain/internal/models"
)

// DateLayout is the on-disk date format for CSV price tables.
const DateLayout = "2006-01-02"

// Source fetches historical closing prices. A ticker with no data yields no
// rows; it is not an error.
type Source interface {
	Fetch(ctx context.Context, tickers []string, start, end time.Time) ([]models.PriceBar, error)
}

// csvRow is one line of a price table file.
type csvRow struct {
	Date   string  `csv:"date"`
	Ticker string  `csv:"ticker"`
	Close  float64 `csv:"close"`
}

// CSVSource reads bars from a single CSV price table with columns
// date,ticker,close.
type CSVSource struct {
	Path string
}

// NewCSVSource creates a source over the given price table file.
func NewCSVSource(path string) *CSVSource {
	return &CSVSource{Path: path}
}

// Fetch returns the bars for the requested tickers with dates in
// [start, end], ordered by (ticker, date).
func (s *CSVSource) Fetch(_ context.Context, tickers []string, start, end time.Time) ([]models.PriceBar, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("opening price table: %w", err)
	}
	defer f.Close()

	var rows []csvRow
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, fmt.Errorf("parsing price table %s: %w", s.Path, err)
	}

	wanted := make(map[string]bool, len(tickers))
	for _, t := range tickers {
		wanted[t] = true
	}

	var bars []models.PriceBar
	for _, row := range rows {
		if !wanted[row.Ticker] {
			continue
		}
		date, err := time.Parse(DateLayout, row.Date)
		if err != nil {
			return nil, fmt.Errorf("parsing date %q in %s: %w", row.Date, s.Path, err)
		}
		if date.Before(start) || date.After(end) {
			continue
		}
		bars = append(bars, models.PriceBar{Date: date, Ticker: row.Ticker, Close: row.Close})
	}

	SortBars(bars)
	return bars, nil
}

// SortBars orders bars by (ticker, date), the canonical ingest order.
func SortBars(bars []models.PriceBar) {
	sort.SliceStable(bars, func(i, j int) bool {
		if bars[i].Ticker != bars[j].Ticker {
			return bars[i].Ticker < bars[j].Ticker
		}
		return bars[i].Date.Before(bars[j].Date)
	})
}
