package store_test

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/SblYMblK/FitRose/internal/db"
	"github.com/SblYMblK/FitRose/internal/metrics"
	"github.com/SblYMblK/FitRose/internal/model"
	"github.com/SblYMblK/FitRose/internal/store"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	return newTestDBAt(t, filepath.Join(t.TempDir(), "fitrose.db"))
}

func newTestDBAt(t *testing.T, path string) *sql.DB {
	t.Helper()
	sqldb, err := db.Open(path)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { sqldb.Close() })
	if err := db.ApplyMigrations(sqldb); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	return sqldb
}

func seedUser(t *testing.T, sqldb *sql.DB, userID int64) model.UserProfile {
	t.Helper()
	m, err := metrics.Build(70, 175, 30, metrics.SexMale, metrics.ActivityLight, metrics.GoalMaintain)
	if err != nil {
		t.Fatalf("build metrics: %v", err)
	}
	u := model.UserProfile{
		TelegramID: userID,
		Age:        30,
		Sex:        metrics.SexMale,
		HeightCm:   175,
		WeightKg:   70,
		Activity:   metrics.ActivityLight,
		Goal:       metrics.GoalMaintain,
		Metrics:    m,
	}
	if err := store.UpsertUser(sqldb, u); err != nil {
		t.Fatalf("seed user %d: %v", userID, err)
	}
	return u
}
