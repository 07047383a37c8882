package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/courier-im/courier/internal/models"
	"github.com/courier-im/courier/internal/principal"
)

func init() {
	rootCmd.AddCommand(adminCmd)
	adminCmd.AddCommand(adminAssignRoleCmd)
}

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Administrative operations",
	Long:  "Operations that require the admin role on the store daemon.",
}

var adminAssignRoleCmd = &cobra.Command{
	Use:   "assign-role <principal> <role>",
	Short: "Assign a role",
	Long:  "Assign a role (admin, user, guest) to a principal. Requires the admin role.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := principal.FromText(args[0])
		if err != nil {
			return fmt.Errorf("invalid principal %q: %w", args[0], err)
		}
		role := models.UserRole(args[1])
		if !role.Valid() {
			return fmt.Errorf("invalid role %q: must be admin, user, or guest", args[1])
		}

		client, _, err := newClient()
		if err != nil {
			return err
		}

		if err := client.AssignCallerUserRole(cmd.Context(), user, role); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Assigned %s to %s.\n", role, user)
		return nil
	},
}
