package store

import (
	"database/sql"
	"fmt"

	"github.com/SblYMblK/FitRose/internal/model"
)

type ActiveDay struct {
	ID  int64
	Day string
}

type DaySummary struct {
	DayLogID int64
	Day      string
	Status   model.DayStatus
	Totals   model.DayTotals
	Meals    []model.MealEntry
}

type PeriodDay struct {
	Day    string
	Totals model.DayTotals
}

// SetActiveDay finds or creates the day log for (userID, day), marks it
// active and closes every other day log of the user. One transaction, so at
// most one active day per user can ever be observed.
func SetActiveDay(db *sql.DB, userID int64, day string) (int64, error) {
	if err := validateDay(day); err != nil {
		return 0, err
	}
	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin set active day tx: %w", err)
	}

	var dayLogID int64
	err = tx.QueryRow(`SELECT id FROM day_logs WHERE user_id = ? AND day = ?`, userID, day).Scan(&dayLogID)
	switch {
	case err == sql.ErrNoRows:
		res, err := tx.Exec(`INSERT INTO day_logs(user_id, day, status) VALUES(?, ?, 'active')`, userID, day)
		if err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("create day log for %s: %w", day, err)
		}
		dayLogID, err = res.LastInsertId()
		if err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("day log id for %s: %w", day, err)
		}
	case err != nil:
		_ = tx.Rollback()
		return 0, fmt.Errorf("find day log for %s: %w", day, err)
	default:
		if _, err := tx.Exec(`UPDATE day_logs SET status = 'active', updated_at = CURRENT_TIMESTAMP WHERE id = ?`, dayLogID); err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("activate day log %d: %w", dayLogID, err)
		}
	}

	if _, err := tx.Exec(`UPDATE day_logs SET status = 'closed', updated_at = CURRENT_TIMESTAMP WHERE user_id = ? AND id <> ? AND status <> 'closed'`, userID, dayLogID); err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("close other day logs: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit set active day: %w", err)
	}
	return dayLogID, nil
}

func GetActiveDay(db *sql.DB, userID int64) (*ActiveDay, error) {
	var ad ActiveDay
	err := db.QueryRow(`
SELECT id, day FROM day_logs
WHERE user_id = ? AND status = 'active'
ORDER BY day DESC
LIMIT 1
`, userID).Scan(&ad.ID, &ad.Day)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get active day for user %d: %w", userID, err)
	}
	return &ad, nil
}

func CloseDay(db *sql.DB, userID int64, day string) error {
	if err := validateDay(day); err != nil {
		return err
	}
	if _, err := db.Exec(`UPDATE day_logs SET status = 'closed', updated_at = CURRENT_TIMESTAMP WHERE user_id = ? AND day = ?`, userID, day); err != nil {
		return fmt.Errorf("close day %s: %w", day, err)
	}
	return nil
}

// GetDaySummary returns the day log with its meals in insertion order, or
// nil when the user never touched that day.
func GetDaySummary(db *sql.DB, userID int64, day string) (*DaySummary, error) {
	if err := validateDay(day); err != nil {
		return nil, err
	}
	var s DaySummary
	var status string
	err := db.QueryRow(`
SELECT id, day, status, calories, protein_g, fat_g, carbs_g
FROM day_logs
WHERE user_id = ? AND day = ?
`, userID, day).Scan(&s.DayLogID, &s.Day, &status, &s.Totals.Calories, &s.Totals.ProteinG, &s.Totals.FatG, &s.Totals.CarbG)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get day summary %s: %w", day, err)
	}
	s.Status = model.DayStatus(status)

	meals, err := ListMeals(db, s.DayLogID)
	if err != nil {
		return nil, err
	}
	s.Meals = meals
	return &s, nil
}

// IterPeriodTotals returns per-day totals for days that have a log row in
// [start, end], ascending. Days without a row are absent, not zero.
func IterPeriodTotals(db *sql.DB, userID int64, start, end string) ([]PeriodDay, error) {
	if err := validateDay(start); err != nil {
		return nil, err
	}
	if err := validateDay(end); err != nil {
		return nil, err
	}
	rows, err := db.Query(`
SELECT day, calories, protein_g, fat_g, carbs_g
FROM day_logs
WHERE user_id = ? AND day BETWEEN ? AND ?
ORDER BY day
`, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("query period totals: %w", err)
	}
	defer rows.Close()

	out := make([]PeriodDay, 0)
	for rows.Next() {
		var pd PeriodDay
		if err := rows.Scan(&pd.Day, &pd.Totals.Calories, &pd.Totals.ProteinG, &pd.Totals.FatG, &pd.Totals.CarbG); err != nil {
			return nil, fmt.Errorf("scan period totals: %w", err)
		}
		out = append(out, pd)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate period totals: %w", err)
	}
	return out, nil
}
