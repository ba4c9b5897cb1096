package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"backchain/internal/config"
	"backchain/internal/data"
	"backchain/internal/engine"
	"backchain/internal/models"
)

func newRunCmd(app *App) *cobra.Command {
	var (
		name       string
		from       string
		to         string
		cash       float64
		universe   []string
		assetClass string
		windowDays int
		stopLoss   float64
		csvPath    string
		outputDir  string
		noProgress bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a backtest",
		Long: `Run a backtest over the given date range.

The portfolio is rebalanced on the first day of each month, and additionally
whenever a held futures contract reaches expiry. Completed runs write a CSV
transaction log and commit one block to the audit ledger.`,
		Example: `  backchain run --from 2023-01-01 --to 2024-01-01
  backchain run --from 2023-01-01 --to 2024-01-01 --asset-class commodities --universe CL=F,NG=F
  backchain run --from 2023-01-01 --to 2024-01-01 --csv prices.csv --name my-run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			initialDate, err := time.Parse(data.DateLayout, from)
			if err != nil {
				output.Error("Invalid --from date %q, expected YYYY-MM-DD", from)
				return err
			}
			finalDate, err := time.Parse(data.DateLayout, to)
			if err != nil {
				output.Error("Invalid --to date %q, expected YYYY-MM-DD", to)
				return err
			}

			if len(universe) == 0 {
				universe = app.Config.Trading.Universe
				if assetClass == "commodities" {
					universe = append([]string(nil), config.DefaultCommodityUniverse...)
				}
			}

			source, closeSource, err := app.buildSource(csvPath)
			if err != nil {
				output.Error("Failed to initialize data source: %v", err)
				return err
			}
			defer closeSource()

			rule := engine.RebalanceFirstOfMonth
			if app.Config.Trading.Rebalance == "daily" {
				rule = engine.RebalanceDaily
			}

			bt, err := engine.New(engine.Config{
				Name:         name,
				InitialDate:  initialDate,
				FinalDate:    finalDate,
				InitialCash:  cash,
				Universe:     universe,
				AssetClass:   models.AssetClass(assetClass),
				Window:       time.Duration(windowDays) * 24 * time.Hour,
				Rule:         rule,
				StopLoss:     stopLoss,
				OutputDir:    outputDir,
				ShowProgress: !noProgress && !output.IsJSON(),
			}, source, app.Ledger, app.Logger)
			if err != nil {
				output.Error("Invalid run parameters: %v", err)
				return err
			}

			if app.Ledger == nil {
				output.Warning("Ledger store unavailable, this run will not be committed to the audit ledger")
			}
			output.Info("Starting backtest %q", bt.Name())
			if err := bt.Run(context.Background()); err != nil {
				output.Error("Backtest failed: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"name":        bt.Name(),
					"state":       bt.State(),
					"final_value": bt.FinalValue(),
					"trades":      len(bt.Broker().TransactionLog()),
				})
			}

			output.Println()
			output.Success("Backtest %q completed", bt.Name())
			output.Printf("Final portfolio value: %s\n", FormatMoney(bt.FinalValue()))
			output.Printf("Total return:          %s\n", FormatPercent((bt.FinalValue()-cash)/cash))
			output.Printf("Executed trades:       %d\n", len(bt.Broker().TransactionLog()))
			output.Dim("Transaction log: %s/%s.csv", outputDir, bt.Name())
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "run name (generated when empty)")
	cmd.Flags().StringVar(&from, "from", "", "initial date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "final date (YYYY-MM-DD)")
	cmd.Flags().Float64Var(&cash, "cash", app.Config.Trading.InitialCash, "initial cash")
	cmd.Flags().StringSliceVar(&universe, "universe", nil, "tickers to trade (defaults from config)")
	cmd.Flags().StringVar(&assetClass, "asset-class", app.Config.Trading.AssetClass, "asset class: stocks or commodities")
	cmd.Flags().IntVar(&windowDays, "window", app.Config.Market.WindowDays, "estimation window in days")
	cmd.Flags().Float64Var(&stopLoss, "stop-loss", app.Config.Risk.StopLoss, "stop-loss fraction (0 disables)")
	cmd.Flags().StringVar(&csvPath, "csv", app.Config.Data.CSVPath, "CSV price table (overrides the HTTP source)")
	cmd.Flags().StringVar(&outputDir, "output", app.Config.Output.Dir, "directory for run artifacts")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "disable the progress bar")
	cmd.MarkFlagRequired("from")
	cmd.MarkFlagRequired("to")

	return cmd
}

// buildSource selects the price source: an explicit CSV table when given,
// otherwise the HTTP source, cached in SQLite when a cache path is set.
func (app *App) buildSource(csvPath string) (data.Source, func(), error) {
	if csvPath != "" {
		return data.NewCSVSource(csvPath), func() {}, nil
	}

	httpSource := data.NewHTTPSource(app.Config.Data.BaseURL, app.Logger)
	if app.Config.Data.CachePath == "" {
		return httpSource, func() {}, nil
	}

	cache, err := data.NewCache(app.Config.Data.CachePath, httpSource, app.Logger)
	if err != nil {
		return nil, nil, err
	}
	return cache, func() { cache.Close() }, nil
}
