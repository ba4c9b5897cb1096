package data

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"backchain/internal/logging"
	"backchain/internal/models"
	"backchain/pkg/utils"
)

// HTTPSource fetches daily closes from a Stooq-style CSV endpoint:
// GET {base}?s={ticker}&d1={yyyymmdd}&d2={yyyymmdd}&i=d returning
// Date,Open,High,Low,Close,Volume rows. Tickers the endpoint does not know
// yield zero rows rather than an error.
type HTTPSource struct {
	BaseURL string
	Client  *http.Client
	Retry   utils.RetryConfig
	Logger  zerolog.Logger
}

// NewHTTPSource creates an HTTP price source against the given base URL.
func NewHTTPSource(baseURL string, logger zerolog.Logger) *HTTPSource {
	return &HTTPSource{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 30 * time.Second},
		Retry:   utils.DefaultRetryConfig(),
		Logger:  logger,
	}
}

// Fetch downloads each ticker's history in turn. Tickers are fetched
// sequentially; the stepping loop downstream is single-threaded anyway.
func (s *HTTPSource) Fetch(ctx context.Context, tickers []string, start, end time.Time) ([]models.PriceBar, error) {
	var bars []models.PriceBar
	for _, ticker := range tickers {
		logger := logging.WithTicker(s.Logger, ticker)
		rows, err := s.fetchTicker(ctx, ticker, start, end)
		if err != nil {
			return nil, fmt.Errorf("fetching %s: %w", ticker, err)
		}
		if len(rows) == 0 {
			logger.Warn().Msg("No rows returned for ticker")
		} else {
			logger.Debug().Int("rows", len(rows)).Msg("Fetched ticker history")
		}
		bars = append(bars, rows...)
	}
	SortBars(bars)
	return bars, nil
}

func (s *HTTPSource) fetchTicker(ctx context.Context, ticker string, start, end time.Time) ([]models.PriceBar, error) {
	query := url.Values{
		"s":  {ticker},
		"d1": {start.Format("20060102")},
		"d2": {end.Format("20060102")},
		"i":  {"d"},
	}
	endpoint := s.BaseURL + "?" + query.Encode()

	var body []byte
	err := utils.Retry(ctx, s.Retry, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return err
		}
		resp, err := s.Client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status %s", resp.Status)
		}
		body, err = io.ReadAll(resp.Body)
		return err
	})
	if err != nil {
		return nil, err
	}

	return parseDailyCSV(body, ticker)
}

// parseDailyCSV decodes a Date,Open,High,Low,Close,Volume table. A body with
// no data rows (or a "no data" placeholder) yields zero bars.
func parseDailyCSV(body []byte, ticker string) ([]models.PriceBar, error) {
	reader := csv.NewReader(bytes.NewReader(body))
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("decoding csv for %s: %w", ticker, err)
	}
	if len(records) < 2 {
		return nil, nil
	}

	header := records[0]
	dateCol, closeCol := -1, -1
	for i, name := range header {
		switch name {
		case "Date":
			dateCol = i
		case "Close":
			closeCol = i
		}
	}
	if dateCol == -1 || closeCol == -1 {
		// Endpoints answer unknown tickers with a placeholder body.
		return nil, nil
	}

	var bars []models.PriceBar
	for _, rec := range records[1:] {
		if len(rec) <= dateCol || len(rec) <= closeCol {
			continue
		}
		date, err := time.Parse(DateLayout, rec[dateCol])
		if err != nil {
			continue
		}
		close, err := strconv.ParseFloat(rec[closeCol], 64)
		if err != nil {
			continue
		}
		bars = append(bars, models.PriceBar{Date: date, Ticker: ticker, Close: close})
	}
	return bars, nil
}
