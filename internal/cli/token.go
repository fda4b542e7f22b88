package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sakif/cellexec/internal/auth"
)

func newTokenCommand(a *app) *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for the HTTP bridge",
		Long: `Mint a bearer token signed with the configured JWT secret.

Clients send it as "Authorization: Bearer <token>" on POST /api/execute.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.Server.JWTSecret == "" {
				return errors.New("no JWT secret configured (set CELLEXEC_JWT_SECRET or server.jwt_secret)")
			}
			tokens, err := auth.NewTokenService(a.cfg.Server.JWTSecret)
			if err != nil {
				return err
			}
			token, err := tokens.Generate(subject, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "notebook", "name of the client the token is for")
	cmd.Flags().DurationVar(&ttl, "ttl", auth.DefaultTTL, "token lifetime")
	return cmd
}
