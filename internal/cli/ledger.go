package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	apperrors "backchain/internal/errors"
)

func newLedgerCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Audit ledger management",
		Long:  "Inspect and verify the append-only audit chains written by backtest runs.",
	}

	cmd.AddCommand(newLedgerListCmd(app))
	cmd.AddCommand(newLedgerShowCmd(app))
	cmd.AddCommand(newLedgerVerifyCmd(app))
	cmd.AddCommand(newLedgerRemoveCmd(app))

	return cmd
}

func (app *App) requireLedger() error {
	if app.Ledger == nil {
		return fmt.Errorf("ledger store unavailable")
	}
	return nil
}

func newLedgerListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all audit chains",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.requireLedger(); err != nil {
				return err
			}

			names, err := app.Ledger.List()
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string][]string{"chains": names})
			}
			if len(names) == 0 {
				output.Info("No audit chains recorded yet.")
				return nil
			}

			table := NewTable(output, "NAME", "BLOCKS", "UPDATED", "TIP HASH")
			for _, name := range names {
				chain, err := app.Ledger.Load(name)
				if err != nil {
					output.Warning("Skipping unreadable chain %q: %v", name, err)
					continue
				}
				tip := chain.Tip()
				table.AddRow(
					name,
					strconv.Itoa(chain.Len()),
					FormatDate(time.Unix(0, tip.Timestamp)),
					TruncateString(tip.Hash, 15),
				)
			}
			table.Render()
			return nil
		},
	}
}

func newLedgerShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Show the blocks of an audit chain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.requireLedger(); err != nil {
				return err
			}

			chain, err := app.Ledger.Load(args[0])
			if err != nil {
				if apperrors.Is(err, apperrors.ErrChainNotFound) {
					output.Error("No chain named %q", args[0])
				}
				return err
			}
			if output.IsJSON() {
				return output.JSON(chain)
			}
			output.Printf("%s", chain.String())
			return nil
		},
	}
}

func newLedgerVerifyCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <name>",
		Short: "Verify an audit chain's hash linkage",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.requireLedger(); err != nil {
				return err
			}

			chain, err := app.Ledger.Load(args[0])
			if err != nil {
				return err
			}
			if err := chain.Verify(); err != nil {
				output.Error("Chain %q FAILED verification: %v", args[0], err)
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]interface{}{"chain": args[0], "valid": true, "blocks": chain.Len()})
			}
			output.Success("Chain %q verified: %d blocks intact", args[0], chain.Len())
			return nil
		},
		Args: cobra.ExactArgs(1),
	}
}

func newLedgerRemoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name>",
		Short: "Delete an audit chain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.requireLedger(); err != nil {
				return err
			}

			if err := app.Ledger.Remove(args[0]); err != nil {
				return err
			}
			output.Success("Chain %q removed", args[0])
			return nil
		},
	}
}
