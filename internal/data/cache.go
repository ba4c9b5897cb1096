package data

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"backchain/internal/models"
)

// Cache wraps a Source with a SQLite bar store. A ticker whose requested
// range is already cached is served from disk; everything else goes to the
// underlying source and is written through.
type Cache struct {
	db     *sql.DB
	source Source
	logger zerolog.Logger
}

// NewCache opens (or creates) the cache database at dbPath.
func NewCache(dbPath string, source Source, logger zerolog.Logger) (*Cache, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}

	cache := &Cache{db: db, source: source, logger: logger}
	if err := cache.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing cache schema: %w", err)
	}
	return cache, nil
}

func (c *Cache) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS bars (
		ticker TEXT NOT NULL,
		date TEXT NOT NULL,
		close REAL NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(ticker, date)
	);
	CREATE INDEX IF NOT EXISTS idx_bars_ticker_date ON bars(ticker, date);

	CREATE TABLE IF NOT EXISTS fetch_ranges (
		ticker TEXT NOT NULL,
		start TEXT NOT NULL,
		end TEXT NOT NULL,
		UNIQUE(ticker, start, end)
	);
	`
	_, err := c.db.Exec(schema)
	return err
}

// Close releases the underlying database handle.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Fetch serves each ticker from the cache when its range was fetched
// before, falling back to the wrapped source and writing results through.
func (c *Cache) Fetch(ctx context.Context, tickers []string, start, end time.Time) ([]models.PriceBar, error) {
	var bars []models.PriceBar
	var misses []string

	for _, ticker := range tickers {
		cached, err := c.covered(ctx, ticker, start, end)
		if err != nil {
			return nil, err
		}
		if !cached {
			misses = append(misses, ticker)
			continue
		}
		rows, err := c.read(ctx, ticker, start, end)
		if err != nil {
			return nil, err
		}
		bars = append(bars, rows...)
	}

	if len(misses) > 0 {
		c.logger.Debug().Strs("tickers", misses).Msg("Cache miss, fetching from source")
		fetched, err := c.source.Fetch(ctx, misses, start, end)
		if err != nil {
			return nil, err
		}
		if err := c.write(ctx, fetched, misses, start, end); err != nil {
			return nil, err
		}
		bars = append(bars, fetched...)
	}

	SortBars(bars)
	return bars, nil
}

func (c *Cache) covered(ctx context.Context, ticker string, start, end time.Time) (bool, error) {
	row := c.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM fetch_ranges WHERE ticker = ? AND start <= ? AND end >= ?`,
		ticker, start.Format(DateLayout), end.Format(DateLayout))
	var n int
	if err := row.Scan(&n); err != nil {
		return false, fmt.Errorf("querying cache coverage: %w", err)
	}
	return n > 0, nil
}

func (c *Cache) read(ctx context.Context, ticker string, start, end time.Time) ([]models.PriceBar, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT date, close FROM bars WHERE ticker = ? AND date >= ? AND date <= ? ORDER BY date`,
		ticker, start.Format(DateLayout), end.Format(DateLayout))
	if err != nil {
		return nil, fmt.Errorf("reading cached bars: %w", err)
	}
	defer rows.Close()

	var bars []models.PriceBar
	for rows.Next() {
		var dateStr string
		var close float64
		if err := rows.Scan(&dateStr, &close); err != nil {
			return nil, err
		}
		date, err := time.Parse(DateLayout, dateStr)
		if err != nil {
			return nil, fmt.Errorf("corrupt date %q in cache: %w", dateStr, err)
		}
		bars = append(bars, models.PriceBar{Date: date, Ticker: ticker, Close: close})
	}
	return bars, rows.Err()
}

func (c *Cache) write(ctx context.Context, bars []models.PriceBar, tickers []string, start, end time.Time) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting cache write: %w", err)
	}
	defer tx.Rollback()

	for _, bar := range bars {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO bars (ticker, date, close) VALUES (?, ?, ?)`,
			bar.Ticker, bar.Date.Format(DateLayout), bar.Close); err != nil {
			return fmt.Errorf("caching bar: %w", err)
		}
	}
	// Record coverage per ticker, including tickers that returned no rows,
	// so an unknown ticker is not refetched on every run.
	for _, ticker := range tickers {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO fetch_ranges (ticker, start, end) VALUES (?, ?, ?)`,
			ticker, start.Format(DateLayout), end.Format(DateLayout)); err != nil {
			return fmt.Errorf("recording fetch range: %w", err)
		}
	}
	return tx.Commit()
}
