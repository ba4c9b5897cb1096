package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"backchain/internal/config"
	"backchain/internal/ledger"
	"backchain/internal/logging"
)

// Version information
const (
	Version = "0.1.0"
)

// App holds the application dependencies.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	Ledger *ledger.Store
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	store, err := ledger.NewStore(cfg.Ledger.Dir, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to open ledger store, audit commands unavailable")
	} else {
		app.Ledger = store
	}

	rootCmd := &cobra.Command{
		Use:   "backchain",
		Short: "Backchain - portfolio backtester with a verifiable audit ledger",
		Long: `Backchain simulates periodic portfolio rebalancing over historical prices
for equities and commodity futures, with futures contract-roll handling,
stop-loss risk management and an append-only hash-chain audit log per run.

Use 'backchain help <command>' for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/backchain)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newRunCmd(app))
	rootCmd.AddCommand(newLedgerCmd(app))
	rootCmd.AddCommand(newPriceCmd(app))
	rootCmd.AddCommand(newExpiryCmd(app))

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"version": Version})
			} else {
				output.Printf("backchain v%s\n", Version)
			}
		},
	}
}
