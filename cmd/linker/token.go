package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jwalitptl/wellness-api/pkg/auth"
)

func newTokenCommand() *cobra.Command {
	var (
		name  string
		email string
		ttl   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a staff bearer token for the admin API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Auth.JWTSecret == "" {
				return fmt.Errorf("auth.jwt_secret is not set")
			}

			token, err := auth.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.Issuer, ttl).GenerateToken(name, email)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "staff display name, used as recorded_by")
	cmd.Flags().StringVar(&email, "email", "", "staff email")
	cmd.Flags().DurationVar(&ttl, "ttl", 12*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}
