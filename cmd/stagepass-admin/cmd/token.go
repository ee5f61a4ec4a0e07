package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/stagepass/api/pkg/jwt"
)

var (
	flagTokenUser  string
	flagTokenEmail string
	flagTokenTTL   time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a bearer token for an operator (needs AUTH_JWT_SECRET)",
	RunE: func(cmd *cobra.Command, args []string) error {
		secret := os.Getenv("AUTH_JWT_SECRET")
		if secret == "" {
			return fmt.Errorf("AUTH_JWT_SECRET must be set")
		}

		manager := jwt.NewManager(secret, os.Getenv("AUTH_JWT_ISSUER"))
		token, err := manager.Generate(flagTokenUser, flagTokenEmail, flagTokenTTL)
		if err != nil {
			return err
		}
		fmt.Println(token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&flagTokenUser, "user", "", "User id the token acts as (required)")
	tokenCmd.Flags().StringVar(&flagTokenEmail, "email", "", "Email claim")
	tokenCmd.Flags().DurationVar(&flagTokenTTL, "ttl", time.Hour, "Token lifetime")
	_ = tokenCmd.MarkFlagRequired("user")
}
