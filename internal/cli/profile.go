package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/courier-im/courier/internal/models"
	"github.com/courier-im/courier/internal/principal"
)

var profileSetName string

func init() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.Flags().StringVar(&profileSetName, "set-name", "", "set your display name")
}

var profileCmd = &cobra.Command{
	Use:   "profile [principal]",
	Short: "Show or update a profile",
	Long: `Show your own profile, or another user's when a principal is given.
Use --set-name to create or replace your display name.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, err := newClient()
		if err != nil {
			return err
		}

		if profileSetName != "" {
			if len(args) > 0 {
				return fmt.Errorf("--set-name only applies to your own profile")
			}
			if result := models.ValidateDisplayName(profileSetName); !result.Valid {
				return fmt.Errorf("%s", result.Error)
			}
			if err := client.SaveCallerUserProfile(cmd.Context(), models.UserProfile{DisplayName: profileSetName}); err != nil {
				return err
			}
			fmt.Fprintln(os.Stdout, "Profile saved.")
			return nil
		}

		var profile models.Option[models.UserProfile]
		if len(args) == 1 {
			user, err := principal.FromText(args[0])
			if err != nil {
				return fmt.Errorf("invalid principal %q: %w", args[0], err)
			}
			profile, err = client.GetUserProfile(cmd.Context(), user)
			if err != nil {
				return err
			}
		} else {
			profile, err = client.GetCallerUserProfile(cmd.Context())
			if err != nil {
				return err
			}
		}

		if p, ok := profile.Get(); ok {
			fmt.Fprintf(os.Stdout, "Display name: %s\n", p.DisplayName)
		} else {
			fmt.Fprintln(os.Stdout, "No profile saved.")
		}
		return nil
	},
}
