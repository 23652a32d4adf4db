package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"chat-backend/internal/auth"
)

var (
	tokenUser int
	tokenTTL  time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a bearer token for local testing",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.JWTSecret == "" {
			return errors.New("jwt secret is required (CHAT_JWT_SECRET)")
		}
		token, err := auth.NewJWTAuth(cfg.JWTSecret, cfg.JWTIssuer).IssueToken(tokenUser, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().IntVarP(&tokenUser, "user", "u", 0, "user id carried in the token")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")
	_ = tokenCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(tokenCmd)
}
