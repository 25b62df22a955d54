package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/VerteraIO/agentrouter/internal/config"
	"github.com/VerteraIO/agentrouter/internal/security/auth"
)

func newTokenCommand(g *globalOptions) *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for the routing API",
		Long: `Issue an HS256 bearer token signed with auth.jwt_secret
(AGENTROUTER_AUTH_JWT_SECRET). Clients send it as "Authorization: Bearer <token>".`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(g.configPath)
			if err != nil {
				return err
			}
			if !cfg.Auth.Enabled() {
				return errors.New("auth.jwt_secret is not set")
			}
			tok, err := auth.IssueToken([]byte(cfg.Auth.JWTSecret), subject, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "agentrouter-client", "token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
