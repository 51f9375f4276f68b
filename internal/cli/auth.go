package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the service credential",
	Long: `Manage the bearer token used to authenticate against the verification
service. Obtain a token from your VeriHub account page; this client does not
perform the login exchange itself.

The token is stored at ~/.verihub/token and is cleared automatically when
the service rejects it as expired.`,
}

var authSetTokenCmd = &cobra.Command{
	Use:   "set-token [token]",
	Short: "Store a bearer token",
	Long:  `Store a bearer token. With no argument the token is read from stdin, which keeps it out of shell history.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var token string
		if len(args) == 1 {
			token = args[0]
		} else {
			fmt.Fprint(os.Stderr, "Token: ")
			reader := bufio.NewReader(os.Stdin)
			line, err := reader.ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("read token: %w", err)
			}
			token = strings.TrimSpace(line)
		}

		store, err := newTokenStore()
		if err != nil {
			return err
		}

		if err := store.Save(token); err != nil {
			return err
		}

		fmt.Println("✓ Token stored")
		return nil
	},
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether a token is stored",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := newTokenStore()
		if err != nil {
			return err
		}

		token, ok := store.Token()
		if !ok {
			fmt.Println("No token stored. Run 'verihub auth set-token'.")
			return nil
		}

		// Show enough to recognize the token without exposing it.
		preview := token
		if len(preview) > 12 {
			preview = preview[:12] + "..."
		}
		fmt.Printf("Token stored (%s)\n", preview)
		return nil
	},
}

var authClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the stored token",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := newTokenStore()
		if err != nil {
			return err
		}

		if err := store.Clear(); err != nil {
			return err
		}

		fmt.Println("✓ Token cleared")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authSetTokenCmd)
	authCmd.AddCommand(authStatusCmd)
	authCmd.AddCommand(authClearCmd)
}
