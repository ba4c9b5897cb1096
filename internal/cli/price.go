package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"backchain/internal/models"
	"backchain/internal/pricing"
)

func newPriceCmd(app *App) *cobra.Command {
	var (
		optionType string
		underlying float64
		strike     float64
		rate       float64
		dividend   float64
		days       int
		vol        float64
	)

	cmd := &cobra.Command{
		Use:   "price",
		Short: "Price an option and show its Greeks",
		Long:  "Value a European option with the Black-Scholes model and print the analytic Greeks.",
		Example: `  backchain price --type call --underlying 100 --strike 105 --days 90 --vol 0.2
  backchain price --type put --underlying 50 --strike 45 --rate 0.05 --days 30 --vol 0.35 --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			var t models.OptionType
			switch strings.ToLower(optionType) {
			case "call":
				t = models.Call
			case "put":
				t = models.Put
			default:
				t = models.OptionType(optionType)
			}

			contract := models.OptionContract{
				Type:           t,
				Underlying:     underlying,
				Strike:         strike,
				Rate:           rate,
				DividendYield:  dividend,
				DaysToMaturity: days,
				Volatility:     vol,
			}

			price, err := pricing.Price(contract, nil)
			if err != nil {
				output.Error("Pricing failed: %v", err)
				return err
			}
			delta, _ := pricing.Delta(contract, nil)
			gamma, _ := pricing.Gamma(contract, nil)
			vega, _ := pricing.Vega(contract, nil)
			theta, _ := pricing.Theta(contract, nil)

			if output.IsJSON() {
				return output.JSON(map[string]float64{
					"price": price,
					"delta": delta,
					"gamma": gamma,
					"vega":  vega,
					"theta": theta,
				})
			}

			output.Bold("%s %.2f/%.2f, %d days, vol %.1f%%", strings.ToUpper(optionType), underlying, strike, days, vol*100)
			output.Printf("Price: %.4f\n", price)
			output.Println(FormatGreeks(delta, gamma, vega, theta))
			return nil
		},
	}

	cmd.Flags().StringVar(&optionType, "type", "call", "option type: call or put")
	cmd.Flags().Float64Var(&underlying, "underlying", 0, "underlying price")
	cmd.Flags().Float64Var(&strike, "strike", 0, "strike price")
	cmd.Flags().Float64Var(&rate, "rate", 0, "risk-free rate (annualized fraction)")
	cmd.Flags().Float64Var(&dividend, "dividend", 0, "dividend yield (annualized fraction)")
	cmd.Flags().IntVar(&days, "days", 0, "days to maturity")
	cmd.Flags().Float64Var(&vol, "vol", 0, "implied volatility (fraction)")
	cmd.MarkFlagRequired("underlying")
	cmd.MarkFlagRequired("strike")
	cmd.MarkFlagRequired("days")
	cmd.MarkFlagRequired("vol")

	return cmd
}
