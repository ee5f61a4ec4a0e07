// Package cmd implements the stagepass-admin subcommands.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	flagAPIURL string
	flagToken  string
	flagOutput string
)

var rootCmd = &cobra.Command{
	Use:   "stagepass-admin",
	Short: "StagePass membership administration CLI",
	Long: `stagepass-admin manages organization memberships through the
membership API: listing, inviting and removing members, and minting
operator tokens.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&flagAPIURL, "api-url", "", "Override API URL (env: STAGEPASS_API_URL)")
	rootCmd.PersistentFlags().StringVar(&flagToken, "token", "", "Override bearer token (env: STAGEPASS_API_TOKEN)")
	rootCmd.PersistentFlags().StringVarP(&flagOutput, "output", "o", "table", "Output format: table, json")

	rootCmd.AddCommand(membershipsCmd)
	rootCmd.AddCommand(tokenCmd)
}

func initConfig() {
	if flagAPIURL == "" {
		flagAPIURL = os.Getenv("STAGEPASS_API_URL")
	}
	if flagAPIURL == "" {
		flagAPIURL = "http://localhost:8080"
	}
	if flagToken == "" {
		flagToken = os.Getenv("STAGEPASS_API_TOKEN")
	}
}
