package cmd

import (
	"errors"
	"fmt"
	"time"

	"checkout-svc/config"
	"checkout-svc/middleware"

	"github.com/spf13/cobra"
)

func newTokenCmd() *cobra.Command {
	var (
		userID string
		role   string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign a bearer token for local testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.JWTSecret == "" {
				return errors.New("JWT_SECRET must be set")
			}
			if role != middleware.RoleAdmin && role != middleware.RoleCustomer {
				return fmt.Errorf("unknown role %q", role)
			}

			token, err := middleware.IssueToken([]byte(cfg.JWTSecret), userID, role, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user id to put in the subject claim")
	cmd.Flags().StringVar(&role, "role", middleware.RoleCustomer, "admin or customer")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
