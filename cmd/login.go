package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// loginCmd runs the re-authentication flow explicitly
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate against the configured host",
	Long: `Run the re-authentication flow: the login request is dispatched to the
registered login module, which exchanges the configured credentials for a
bearer token at the auth endpoint.`,
	RunE: runLogin,
}

func init() {
	rootCmd.AddCommand(loginCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	defer dispatcher.Close()

	if !dispatcher.Authenticate(context.Background()) {
		return fmt.Errorf("authentication failed")
	}

	fmt.Println("✓ Authenticated, credential header refreshed")
	return nil
}
