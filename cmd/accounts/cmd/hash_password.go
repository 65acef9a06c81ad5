package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/aussiebroadwan/accounts/pkg/cryptox"
	"github.com/spf13/cobra"
)

var hashIterations int

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password",
	Short: "Read a password from stdin and print its encoded hash",
	Long: `Reads one line from stdin and prints the encoded PBKDF2 hash, ready to
be stored in the users table when seeding an administrator.

  echo -n 'correct horse' | accounts hash-password`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("failed to read password: %w", err)
		}

		password := strings.TrimRight(line, "\r\n")
		if password == "" {
			return errors.New("empty password")
		}

		hash, err := cryptox.NewPasswordHasher(hashIterations, cryptox.MinIterations).CreateHash(password)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(hashPasswordCmd)
	hashPasswordCmd.Flags().IntVar(&hashIterations, "iterations", cryptox.DefaultIterations, "PBKDF2 iteration count")
}
