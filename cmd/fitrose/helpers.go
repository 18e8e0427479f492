package fitrose

import (
	"database/sql"

	"github.com/SblYMblK/FitRose/internal/app"
	"github.com/SblYMblK/FitRose/internal/db"
)

// openDatabase opens the SQLite file at path, creating the parent directory
// when needed, and brings the schema up to date.
func openDatabase(path string) (*sql.DB, error) {
	if err := app.EnsureDBDir(path); err != nil {
		return nil, err
	}
	sqldb, err := db.Open(path)
	if err != nil {
		return nil, err
	}
	if err := db.ApplyMigrations(sqldb); err != nil {
		sqldb.Close()
		return nil, err
	}
	return sqldb, nil
}

// withDB resolves the database location, opens it, and hands the connection
// to run, closing it afterwards.
func withDB(run func(*sql.DB) error) error {
	path, err := resolveDBPath()
	if err != nil {
		return err
	}
	sqldb, err := openDatabase(path)
	if err != nil {
		return err
	}
	defer sqldb.Close()
	return run(sqldb)
}
