package fitrose

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var dbPath string

var rootCmd = &cobra.Command{
	Use:   "fitrose",
	Short: "fitrose is a Telegram diet assistant",
	Long:  "fitrose runs a Russian-language Telegram bot that tracks meals, estimates nutrition with an LLM, and keeps daily calorie and macro logs in a local SQLite database.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database file (overrides FITROSE_DB)")
}
