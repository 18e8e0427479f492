package fitrose

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/SblYMblK/FitRose/internal/store"
)

var (
	backupOut    string
	backupDir    string
	restoreFile  string
	restoreForce bool
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Manage database snapshots",
}

var backupCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Snapshot the database with a checksum",
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath, err := resolveDBPath()
		if err != nil {
			return err
		}
		out := backupOut
		if out == "" {
			stamp := time.Now().Format("20060102-150405")
			out = filepath.Join(backupDirFor(dbPath), "fitrose-"+stamp+".db")
		}
		info, err := store.CreateBackup(dbPath, out)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created backup: %s (%s)\n", info.Path, humanize.Bytes(uint64(info.SizeBytes)))
		fmt.Fprintf(cmd.OutOrStdout(), "SHA-256: %s\n", info.Checksum)
		return nil
	},
}

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List snapshots, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath, err := resolveDBPath()
		if err != nil {
			return err
		}
		dir := backupDir
		if dir == "" {
			dir = backupDirFor(dbPath)
		}
		items, err := store.ListBackups(dir)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "No backups in %s\n", dir)
			return nil
		}
		for _, it := range items {
			checksum := it.Checksum
			if checksum == "" {
				checksum = "-"
			} else if len(checksum) > 12 {
				checksum = checksum[:12]
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s\n",
				filepath.Base(it.Path),
				humanize.Bytes(uint64(it.SizeBytes)),
				it.CreatedAt.Format(time.RFC3339),
				checksum)
		}
		return nil
	},
}

var backupRestoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Restore the database from a snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		if restoreFile == "" {
			return fmt.Errorf("restore needs --file pointing at a snapshot")
		}
		dbPath, err := resolveDBPath()
		if err != nil {
			return err
		}
		if err := store.RestoreBackup(restoreFile, dbPath, restoreForce); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Restored %s from %s\n", dbPath, restoreFile)
		return nil
	},
}

// backupDirFor is the default snapshot location: a backups/ directory next
// to the database file.
func backupDirFor(dbPath string) string {
	return filepath.Join(filepath.Dir(dbPath), "backups")
}

func init() {
	rootCmd.AddCommand(backupCmd)
	backupCmd.AddCommand(backupCreateCmd, backupListCmd, backupRestoreCmd)

	backupCreateCmd.Flags().StringVar(&backupOut, "out", "", "Where to write the snapshot (default: timestamped file in backups/)")
	backupListCmd.Flags().StringVar(&backupDir, "dir", "", "Backup directory (default: backups/ next to the database)")
	backupRestoreCmd.Flags().StringVar(&restoreFile, "file", "", "Backup .db file to restore")
	backupRestoreCmd.Flags().BoolVar(&restoreForce, "force", false, "Overwrite an existing database")
}
