package cli

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/courier-im/courier/internal/principal"
)

var messagesMarkRead bool

func init() {
	rootCmd.AddCommand(messagesCmd)
	messagesCmd.Flags().BoolVar(&messagesMarkRead, "mark-read", false, "mark the conversation read after printing")
}

var messagesCmd = &cobra.Command{
	Use:   "messages <principal>",
	Short: "Show a conversation",
	Long:  "Print every message exchanged with the given principal, oldest first.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		other, err := principal.FromText(args[0])
		if err != nil {
			return fmt.Errorf("invalid principal %q: %w", args[0], err)
		}

		client, id, err := newClient()
		if err != nil {
			return err
		}

		messages, err := client.GetMessages(cmd.Context(), other)
		if err != nil {
			return err
		}

		sort.SliceStable(messages, func(i, j int) bool {
			if messages[i].Timestamp != messages[j].Timestamp {
				return messages[i].Timestamp < messages[j].Timestamp
			}
			return messages[i].ID < messages[j].ID
		})

		if len(messages) == 0 {
			fmt.Fprintln(os.Stdout, "No messages yet.")
			return nil
		}

		for _, msg := range messages {
			who := "them"
			if msg.Sender.Equal(id.Principal) {
				who = "you"
			}
			marker := " "
			if !msg.IsRead && msg.Receiver.Equal(id.Principal) {
				marker = "*"
			}
			fmt.Fprintf(os.Stdout, "%s %s [%s] %s\n",
				marker,
				time.Unix(0, msg.Timestamp).Format("2006-01-02 15:04"),
				who,
				msg.Content,
			)
		}

		if messagesMarkRead {
			if err := client.MarkMessagesAsRead(cmd.Context(), other); err != nil {
				return fmt.Errorf("failed to mark read: %w", err)
			}
		}
		return nil
	},
}
