package friend

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/acetime/acetime/internal/friends"
	"github.com/spf13/cobra"
)

var Group = &cobra.Group{
	ID:    "friends",
	Title: "Friend operations",
}

func init() {
	Add.Flags().String("server", "http://localhost:4000", "base URL of the AceTime server")
}

var Add = &cobra.Command{
	Use:     "add [friend-code]",
	GroupID: "friends",
	Short:   "Add a friend",
	Long: `Adds the caller with the given friend code over the JSON API.

The bearer token comes from the ACETIME_API_TOKEN environment variable. Mint
one with POST /api/token while signed in.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		server, err := cmd.Flags().GetString("server")
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "invalid server flag: %v\n", err)
			return
		}

		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		client := friends.NewClient(server, os.Getenv("ACETIME_API_TOKEN"), logger)

		requestTimeout := 30 * time.Second
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		notice := client.Add(ctx, args[0])
		fmt.Println(notice.Message)
		if notice.Kind == friends.NoticeError {
			os.Exit(1)
		}
	},
}
