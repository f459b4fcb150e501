package cli

import (
	"github.com/spf13/cobra"
)

// NewRoot builds the moneyctl command tree.
func NewRoot() *cobra.Command {
	root := &cobra.Command{
		Use:           "moneyctl",
		Short:         "Reduce multi-currency money expressions",
		Long:          "moneyctl reduces money expressions against a set of exchange rates, mints admin tokens and runs the moneybank HTTP service.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newReduceCmd(),
		newRateCmd(),
		newTokenCmd(),
		newServeCmd(),
	)
	return root
}
