// Package cli defines the ledgerline command tree.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/ledgerline/ledgerline/internal/daemon"
)

var configPath string

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "ledgerline.toml", "Path to the TOML config file")
}

var rootCmd = &cobra.Command{
	Use:   "ledgerline",
	Short: "Invoice and billing engine for freelancers and agencies",
	Long: `Ledgerline manages the billing core: invoices with line items, taxes,
discounts and payments, billing calculations for hourly, fixed-price,
milestone and retainer projects, and sequential invoice numbering.

State lives in a local SQLite database; the serve command exposes the
HTTP API on top of it.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func loadConfig() (daemon.Config, error) {
	return daemon.Load(configPath)
}
