package fitrose

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/SblYMblK/FitRose/internal/app"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the database and apply migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolveDBPath()
		if err != nil {
			return err
		}
		sqldb, err := openDatabase(path)
		if err != nil {
			return err
		}
		if err := sqldb.Close(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Database ready at %s\n", path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}

// resolveDBPath prefers the --db flag, then FITROSE_DB, then the per-user
// default location.
func resolveDBPath() (string, error) {
	if dbPath != "" {
		return dbPath, nil
	}
	if env := strings.TrimSpace(os.Getenv("FITROSE_DB")); env != "" {
		return env, nil
	}
	return app.DefaultDBPath()
}
