package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(whoamiCmd)
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show your principal",
	Long:  "Print the principal derived from your local identity key, and your role if the daemon is reachable.",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, id, err := newClient()
		if err != nil {
			return err
		}

		fmt.Fprintln(os.Stdout, id.Principal)

		// Role is best-effort; the principal is local and always available.
		if role, err := client.GetCallerUserRole(cmd.Context()); err == nil {
			fmt.Fprintf(os.Stdout, "role: %s\n", role)
		}
		return nil
	},
}
