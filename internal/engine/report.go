package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"backchain/internal/data"
	"backchain/internal/models"
)

// transactionRow is the CSV shape of one transaction-log entry.
type transactionRow struct {
	Date     string  `csv:"date"`
	Action   string  `csv:"action"`
	Ticker   string  `csv:"ticker"`
	Quantity int     `csv:"quantity"`
	Price    float64 `csv:"price"`
	Cash     float64 `csv:"cash"`
}

// report persists the run's results: the transaction log as a CSV artifact
// keyed by the run name, and one ledger block holding the serialized log.
func (b *Backtest) report() error {
	log := b.broker.TransactionLog()

	if err := b.writeCSV(log); err != nil {
		return err
	}
	return b.commitLedger(log)
}

func (b *Backtest) writeCSV(log []models.TransactionRecord) error {
	if err := os.MkdirAll(b.cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	rows := make([]transactionRow, len(log))
	for i, rec := range log {
		rows[i] = transactionRow{
			Date:     rec.Date.Format(data.DateLayout),
			Action:   string(rec.Action),
			Ticker:   rec.Ticker,
			Quantity: rec.Quantity,
			Price:    rec.Price,
			Cash:     rec.Cash,
		}
	}

	path := filepath.Join(b.cfg.OutputDir, b.cfg.Name+".csv")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating transaction log file: %w", err)
	}
	defer f.Close()

	if err := gocsv.MarshalFile(&rows, f); err != nil {
		return fmt.Errorf("writing transaction log: %w", err)
	}
	b.logger.Info().Str("path", path).Int("transactions", len(rows)).Msg("Transaction log written")
	return nil
}

func (b *Backtest) commitLedger(log []models.TransactionRecord) error {
	if b.store == nil {
		return nil
	}

	chain, err := b.store.Create(b.cfg.Name, true)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(log)
	if err != nil {
		return fmt.Errorf("serializing transaction log: %w", err)
	}
	if err := b.store.Append(chain, b.cfg.Name, string(payload)); err != nil {
		return err
	}
	b.logger.Info().Str("chain", b.cfg.Name).Int("blocks", chain.Len()).Msg("Run committed to ledger")
	return nil
}
