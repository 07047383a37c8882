package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/courier-im/courier/internal/models"
	"github.com/courier-im/courier/internal/principal"
)

func init() {
	rootCmd.AddCommand(sendCmd)
}

var sendCmd = &cobra.Command{
	Use:   "send <principal> <message>",
	Short: "Send a message",
	Long:  "Send a direct message to the given principal.",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		receiver, err := principal.FromText(args[0])
		if err != nil {
			return fmt.Errorf("invalid principal %q: %w", args[0], err)
		}

		content := strings.Join(args[1:], " ")
		if result := models.ValidateMessage(content); !result.Valid {
			return fmt.Errorf("%s", result.Error)
		}

		client, _, err := newClient()
		if err != nil {
			return err
		}

		if err := client.SendMessage(cmd.Context(), receiver, strings.TrimSpace(content)); err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, "Sent.")
		return nil
	},
}
