package app

import (
	"fmt"
	"os"
	"path/filepath"
)

const appDirName = "fitrose"

// DefaultDBPath is the per-user database location, fitrose/fitrose.db
// under the OS config directory.
func DefaultDBPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(base, appDirName, appDirName+".db"), nil
}

// EnsureDBDir creates the directory that will hold the database file.
func EnsureDBDir(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create db directory: %w", err)
	}
	return nil
}
