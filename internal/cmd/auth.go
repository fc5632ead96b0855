package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/halyard-dev/halyard/internal/secrets"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the agent access token",
}

var authSetCmd = &cobra.Command{
	Use:   "set-token <token>",
	Short: "Store the access token in the system keychain",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := secrets.SetAccessToken(args[0]); err != nil {
			if errors.Is(err, secrets.ErrNotSupported) {
				return fmt.Errorf("no keychain available on this platform")
			}
			return fmt.Errorf("failed to store token: %w", err)
		}
		fmt.Println("🔑 Token stored.")
		return nil
	},
}

var authClearCmd = &cobra.Command{
	Use:   "clear-token",
	Short: "Remove the stored access token",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := secrets.DeleteAccessToken(); err != nil &&
			!errors.Is(err, secrets.ErrNotFound) && !errors.Is(err, secrets.ErrNotSupported) {
			return fmt.Errorf("failed to remove token: %w", err)
		}
		fmt.Println("🔑 Token removed.")
		return nil
	},
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether an access token is stored",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := secrets.AccessToken()
		switch {
		case err == nil:
			fmt.Println("🔑 A token is stored.")
		case errors.Is(err, secrets.ErrNotFound):
			fmt.Println("No token stored.")
		case errors.Is(err, secrets.ErrNotSupported):
			fmt.Println("No keychain available on this platform.")
		default:
			return fmt.Errorf("failed to read token: %w", err)
		}
		return nil
	},
}

func init() {
	authCmd.AddCommand(authSetCmd, authClearCmd, authStatusCmd)
	rootCmd.AddCommand(authCmd)
}
