package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/ayo6706/moneybank/internal/bank"
	"github.com/ayo6706/moneybank/internal/money"
	"github.com/spf13/cobra"
)

type rateFlags struct {
	rates []string
}

func (f *rateFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVarP(&f.rates, "rate", "r", nil, "exchange rate FROM:TO=VALUE (repeatable, comma separated lists allowed)")
}

// newBank builds a Bank holding every --rate flag.
func (f *rateFlags) newBank() (*bank.Bank, error) {
	b := bank.New()
	for _, raw := range f.rates {
		rates, err := bank.ParseRates(raw)
		if err != nil {
			return nil, err
		}
		for _, r := range rates {
			if err := b.AddRate(r.From, r.To, r.Value); err != nil {
				return nil, fmt.Errorf("rate %s: %w", r, err)
			}
		}
	}
	return b, nil
}

func newReduceCmd() *cobra.Command {
	var (
		rates  rateFlags
		to     string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "reduce EXPRESSION",
		Short: "Reduce an expression to a single currency",
		Long: `Reduce a JSON money expression to one currency using the given rates.
Pass "-" to read the expression from stdin.

  moneyctl reduce --to USD --rate CHF:USD=0.5 \
    '{"sum":{"augend":{"money":{"amount":5,"currency":"USD"}},"addend":{"money":{"amount":10,"currency":"CHF"}}}}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data := []byte(args[0])
			if args[0] == "-" {
				var err error
				if data, err = io.ReadAll(cmd.InOrStdin()); err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
			}
			expr, err := money.ParseJSON(data)
			if err != nil {
				return err
			}
			b, err := rates.newBank()
			if err != nil {
				return err
			}
			result, err := b.Reduce(expr, strings.ToUpper(strings.TrimSpace(to)))
			if err != nil {
				return err
			}

			if asJSON {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(result)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), result)
			return err
		},
	}
	rates.register(cmd)
	cmd.Flags().StringVarP(&to, "to", "t", "", "target currency")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}
