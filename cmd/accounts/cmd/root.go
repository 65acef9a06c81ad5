package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var envFiles []string

var rootCmd = &cobra.Command{
	Use:   "accounts",
	Short: "Accounts is the credential and sign-in service",
	Long: `Accounts handles sign-in, registration, email verification and password
reset, and mints the session tokens other services trust.

Configuration is read from the environment and from .env files.`,
	SilenceUsage: true,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "Load variables from these files first (default .env)")
}
