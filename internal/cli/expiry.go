package cli

import (
	"time"

	"github.com/spf13/cobra"

	"backchain/internal/data"
	"backchain/internal/roll"
)

func newExpiryCmd(app *App) *cobra.Command {
	var asOf string

	cmd := &cobra.Command{
		Use:   "expiry <ticker>",
		Short: "Show the front-month contract expiry for a futures ticker",
		Long: `Resolve the front-month contract and its expiry date for a supported
futures ticker, as seen from a given purchase date.`,
		Example: `  backchain expiry CL=F
  backchain expiry ZS=F --as-of 2024-12-15`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ticker := args[0]

			buyDate := time.Now().UTC()
			if asOf != "" {
				parsed, err := time.Parse(data.DateLayout, asOf)
				if err != nil {
					output.Error("Invalid --as-of date %q, expected YYYY-MM-DD", asOf)
					return err
				}
				buyDate = parsed
			}

			expiry, err := roll.FuturesExpiry(buyDate, ticker)
			if err != nil {
				output.Error("%v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]string{
					"ticker": ticker,
					"as_of":  buyDate.Format(data.DateLayout),
					"expiry": expiry.Format(data.DateLayout),
				})
			}
			output.Printf("%s front-month expiry as of %s: %s\n",
				ticker, buyDate.Format(data.DateLayout), FormatDate(expiry))
			return nil
		},
	}

	cmd.Flags().StringVar(&asOf, "as-of", "", "purchase date (YYYY-MM-DD, default today)")
	return cmd
}
