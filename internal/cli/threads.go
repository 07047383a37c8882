package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/courier-im/courier/internal/chatlist"
)

func init() {
	rootCmd.AddCommand(threadsCmd)
}

var threadsCmd = &cobra.Command{
	Use:   "threads",
	Short: "List conversations",
	Long:  "List your conversations, most recently active first.",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, id, err := newClient()
		if err != nil {
			return err
		}

		entries, err := client.GetChatList(cmd.Context())
		if err != nil {
			return err
		}

		threads, projErr := chatlist.Project(entries, id.Principal)
		if projErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", projErr)
		}

		if len(threads) == 0 {
			fmt.Fprintln(os.Stdout, "No conversations yet.")
			return nil
		}

		writer := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
		fmt.Fprintln(writer, "PEER\tUNREAD\tLAST ACTIVITY")
		for _, t := range threads {
			unread := "-"
			if count, err := client.GetUnreadMessageCount(cmd.Context(), t.Other); err == nil && count > 0 {
				unread = fmt.Sprintf("%d", count)
			}
			fmt.Fprintf(writer, "%s\t%s\t%s\n",
				t.Other,
				unread,
				time.Unix(0, t.LastActivity).Format(time.RFC3339),
			)
		}
		return writer.Flush()
	},
}
