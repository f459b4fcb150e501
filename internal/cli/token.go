package cli

import (
	"fmt"
	"time"

	"github.com/ayo6706/moneybank/internal/api/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newTokenCmd() *cobra.Command {
	v := viper.New()
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for the rate registration endpoint",
		Long:  "Mint an HS256 bearer token. The secret, issuer and audience default to JWT_SECRET, JWT_ISSUER and JWT_AUDIENCE.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := v.GetString("secret")
			if len(secret) < 32 {
				return fmt.Errorf("jwt secret must be at least 32 characters (set --secret or JWT_SECRET)")
			}
			auth := middleware.NewAuthenticator(secret, v.GetString("issuer"), v.GetString("audience"))
			token, err := auth.IssueToken(v.GetString("subject"), v.GetString("role"), v.GetDuration("ttl"))
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}

	flags := cmd.Flags()
	flags.String("secret", "", "HS256 signing secret")
	flags.String("issuer", "moneybank", "token issuer")
	flags.String("audience", "moneybank-api", "token audience")
	flags.String("subject", "", "token subject")
	flags.String("role", middleware.RoleAdmin, "role claim")
	flags.Duration("ttl", time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("subject")

	_ = v.BindPFlags(flags)
	_ = v.BindEnv("secret", "JWT_SECRET", "MONEYBANK_JWT_SECRET")
	_ = v.BindEnv("issuer", "JWT_ISSUER", "MONEYBANK_JWT_ISSUER")
	_ = v.BindEnv("audience", "JWT_AUDIENCE", "MONEYBANK_JWT_AUDIENCE")
	return cmd
}
