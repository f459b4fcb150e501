package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newRateCmd() *cobra.Command {
	var rates rateFlags
	cmd := &cobra.Command{
		Use:   "rate FROM TO",
		Short: "Print the rate used to convert FROM into TO",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := rates.newBank()
			if err != nil {
				return err
			}
			from := strings.ToUpper(strings.TrimSpace(args[0]))
			to := strings.ToUpper(strings.TrimSpace(args[1]))
			value, err := b.Rate(from, to)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), value.String())
			return err
		},
	}
	rates.register(cmd)
	return cmd
}
