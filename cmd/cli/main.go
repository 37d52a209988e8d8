package main

import (
	"fmt"
	"os"

	"github.com/acetime/acetime/cmd/cli/friend"
	"github.com/acetime/acetime/cmd/cli/img"
	"github.com/acetime/acetime/internal/errors"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func init() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	rootCmd.AddGroup(img.Group)
	rootCmd.AddCommand(img.Generate)
	rootCmd.AddGroup(friend.Group)
	rootCmd.AddCommand(friend.Add)
}

var rootCmd = &cobra.Command{
	Use:  "acetime-cli",
	Long: `Command line utilities for AceTime https://github.com/acetime/acetime`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	Execute()
}
