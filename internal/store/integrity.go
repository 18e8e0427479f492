package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
)

type DoctorReport struct {
	MismatchedDays    int `json:"mismatched_days"`
	OrphanMeals       int `json:"orphan_meals"`
	InvalidEstimates  int `json:"invalid_estimates"`
	RecomputedDays    int `json:"recomputed_days,omitempty"`
	ActiveDayConflict int `json:"active_day_conflicts"`
}

// RunDoctor scans for rows that violate the store's invariants: day logs
// whose stored totals disagree with the sum of their meals, meals without an
// owning day log, estimate columns that are not valid JSON, and users with
// more than one active day. With fix set, mismatched day totals are
// recomputed in one transaction; the other findings are report-only.
func RunDoctor(db *sql.DB, fix bool) (DoctorReport, error) {
	report := DoctorReport{}

	mismatched, err := mismatchedDayLogIDs(db)
	if err != nil {
		return report, err
	}
	report.MismatchedDays = len(mismatched)

	if err := db.QueryRow(`
SELECT COUNT(1) FROM meals m LEFT JOIN day_logs d ON d.id = m.day_log_id WHERE d.id IS NULL
`).Scan(&report.OrphanMeals); err != nil {
		return report, fmt.Errorf("doctor orphan check: %w", err)
	}

	rows, err := db.Query(`SELECT estimate_json, IFNULL(corrected_json, '') FROM meals`)
	if err != nil {
		return report, fmt.Errorf("doctor estimate query: %w", err)
	}
	for rows.Next() {
		var estimate, corrected string
		if err := rows.Scan(&estimate, &corrected); err != nil {
			_ = rows.Close()
			return report, fmt.Errorf("doctor estimate scan: %w", err)
		}
		if !json.Valid([]byte(estimate)) {
			report.InvalidEstimates++
		}
		if corrected = strings.TrimSpace(corrected); corrected != "" && !json.Valid([]byte(corrected)) {
			report.InvalidEstimates++
		}
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return report, fmt.Errorf("doctor estimate iterate: %w", err)
	}
	_ = rows.Close()

	if err := db.QueryRow(`
SELECT COALESCE(SUM(cnt - 1), 0) FROM (
  SELECT COUNT(1) AS cnt FROM day_logs WHERE status = 'active' GROUP BY user_id HAVING cnt > 1
)
`).Scan(&report.ActiveDayConflict); err != nil {
		return report, fmt.Errorf("doctor active day check: %w", err)
	}

	if fix && len(mismatched) > 0 {
		tx, err := db.Begin()
		if err != nil {
			return report, fmt.Errorf("doctor fix begin tx: %w", err)
		}
		for _, id := range mismatched {
			if _, err := tx.Exec(recomputeDayTotalsSQL, id, id, id, id, id); err != nil {
				_ = tx.Rollback()
				return report, fmt.Errorf("doctor fix day log %d: %w", id, err)
			}
			report.RecomputedDays++
		}
		if err := tx.Commit(); err != nil {
			return report, fmt.Errorf("doctor fix commit: %w", err)
		}
	}

	return report, nil
}

func mismatchedDayLogIDs(db *sql.DB) ([]int64, error) {
	rows, err := db.Query(`
SELECT d.id
FROM day_logs d
LEFT JOIN (
  SELECT day_log_id,
         COALESCE(SUM(calories), 0) AS calories,
         COALESCE(SUM(protein_g), 0) AS protein_g,
         COALESCE(SUM(fat_g), 0) AS fat_g,
         COALESCE(SUM(carbs_g), 0) AS carbs_g
  FROM meals
  GROUP BY day_log_id
) s ON s.day_log_id = d.id
WHERE ABS(d.calories - COALESCE(s.calories, 0)) > 1e-6
   OR ABS(d.protein_g - COALESCE(s.protein_g, 0)) > 1e-6
   OR ABS(d.fat_g - COALESCE(s.fat_g, 0)) > 1e-6
   OR ABS(d.carbs_g - COALESCE(s.carbs_g, 0)) > 1e-6
`)
	if err != nil {
		return nil, fmt.Errorf("doctor totals query: %w", err)
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("doctor totals scan: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("doctor totals iterate: %w", err)
	}
	return ids, nil
}
