package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/aussiebroadwan/accounts/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func runRoot(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	err := rootCmd.Execute()
	return out.String(), err
}

func TestHashPassword(t *testing.T) {
	out, err := runRoot(t, "correct horse\n", "hash-password")
	require.NoError(t, err)

	hash := strings.TrimSpace(out)
	require.True(t, strings.HasPrefix(hash, "$"+cryptox.HashVersion+"$"))

	ok, err := cryptox.VerifyPassword("correct horse", hash)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestHashPasswordWithoutTrailingNewline(t *testing.T) {
	out, err := runRoot(t, "secret1", "hash-password")
	require.NoError(t, err)

	ok, err := cryptox.VerifyPassword("secret1", strings.TrimSpace(out))
	require.NoError(t, err)
	require.True(t, ok)
}

func TestHashPasswordRejectsEmptyInput(t *testing.T) {
	_, err := runRoot(t, "\n", "hash-password")
	require.Error(t, err)
}
