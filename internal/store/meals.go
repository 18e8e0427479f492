package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/SblYMblK/FitRose/internal/model"
)

type AddMealInput struct {
	DayLogID   int64
	Slot       model.MealSlot
	Modality   model.Modality
	UserInput  string
	Estimate   model.NutritionEstimate
	Correction *model.NutritionEstimate
}

const recomputeDayTotalsSQL = `
UPDATE day_logs
SET calories  = (SELECT COALESCE(SUM(calories), 0) FROM meals WHERE day_log_id = ?),
    protein_g = (SELECT COALESCE(SUM(protein_g), 0) FROM meals WHERE day_log_id = ?),
    fat_g     = (SELECT COALESCE(SUM(fat_g), 0) FROM meals WHERE day_log_id = ?),
    carbs_g   = (SELECT COALESCE(SUM(carbs_g), 0) FROM meals WHERE day_log_id = ?),
    updated_at = CURRENT_TIMESTAMP
WHERE id = ?
`

// AddMealEntry inserts a meal and recomputes the owning day's totals as the
// sum over all its meals, in one transaction. Committed macro columns come
// from the correction when present, the raw estimate otherwise.
func AddMealEntry(db *sql.DB, in AddMealInput) (int64, error) {
	if !model.ValidMealSlot(in.Slot) {
		return 0, fmt.Errorf("invalid meal slot %q", in.Slot)
	}
	if in.Modality != model.ModalityText && in.Modality != model.ModalityPhoto {
		return 0, fmt.Errorf("invalid entry modality %q", in.Modality)
	}

	estimateJSON, err := json.Marshal(in.Estimate)
	if err != nil {
		return 0, fmt.Errorf("encode estimate: %w", err)
	}
	var correctedJSON any
	committed := in.Estimate
	if in.Correction != nil {
		committed = *in.Correction
		raw, err := json.Marshal(in.Correction)
		if err != nil {
			return 0, fmt.Errorf("encode correction: %w", err)
		}
		correctedJSON = string(raw)
	}

	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin add meal tx: %w", err)
	}
	res, err := tx.Exec(`
INSERT INTO meals (
  day_log_id, meal_type, entry_type, user_input, estimate_json, corrected_json,
  calories, protein_g, fat_g, carbs_g
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`,
		in.DayLogID, string(in.Slot), string(in.Modality), in.UserInput,
		string(estimateJSON), correctedJSON,
		committed.Calories, committed.ProteinG, committed.FatG, committed.CarbG,
	)
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("insert meal: %w", err)
	}
	mealID, err := res.LastInsertId()
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("meal id: %w", err)
	}

	if _, err := tx.Exec(recomputeDayTotalsSQL, in.DayLogID, in.DayLogID, in.DayLogID, in.DayLogID, in.DayLogID); err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("recompute day totals: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit add meal: %w", err)
	}
	return mealID, nil
}

// UpdateMealCorrection replaces a meal's committed values with the given
// estimate and recomputes the owning day's totals in the same transaction.
func UpdateMealCorrection(db *sql.DB, mealID int64, estimate model.NutritionEstimate) error {
	raw, err := json.Marshal(estimate)
	if err != nil {
		return fmt.Errorf("encode correction: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin correction tx: %w", err)
	}
	var dayLogID int64
	if err := tx.QueryRow(`SELECT day_log_id FROM meals WHERE id = ?`, mealID).Scan(&dayLogID); err != nil {
		_ = tx.Rollback()
		if err == sql.ErrNoRows {
			return fmt.Errorf("meal %d does not exist", mealID)
		}
		return fmt.Errorf("find meal %d: %w", mealID, err)
	}
	if _, err := tx.Exec(`
UPDATE meals
SET corrected_json = ?, calories = ?, protein_g = ?, fat_g = ?, carbs_g = ?
WHERE id = ?
`, string(raw), estimate.Calories, estimate.ProteinG, estimate.FatG, estimate.CarbG, mealID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("update meal %d correction: %w", mealID, err)
	}
	if _, err := tx.Exec(recomputeDayTotalsSQL, dayLogID, dayLogID, dayLogID, dayLogID, dayLogID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("recompute day totals: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit correction: %w", err)
	}
	return nil
}

func ListMeals(db *sql.DB, dayLogID int64) ([]model.MealEntry, error) {
	rows, err := db.Query(`
SELECT id, day_log_id, meal_type, entry_type, user_input, estimate_json, corrected_json,
       calories, protein_g, fat_g, carbs_g, created_at
FROM meals
WHERE day_log_id = ?
ORDER BY created_at, id
`, dayLogID)
	if err != nil {
		return nil, fmt.Errorf("query meals for day log %d: %w", dayLogID, err)
	}
	defer rows.Close()

	meals := make([]model.MealEntry, 0)
	for rows.Next() {
		var (
			m             model.MealEntry
			slot          string
			modality      string
			estimateJSON  string
			correctedJSON sql.NullString
		)
		if err := rows.Scan(&m.ID, &m.DayLogID, &slot, &modality, &m.UserInput, &estimateJSON, &correctedJSON,
			&m.Calories, &m.ProteinG, &m.FatG, &m.CarbG, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan meal: %w", err)
		}
		m.Slot = model.MealSlot(slot)
		m.Modality = model.Modality(modality)
		est, err := model.UnmarshalEstimate([]byte(estimateJSON))
		if err != nil {
			return nil, fmt.Errorf("meal %d estimate: %w", m.ID, err)
		}
		m.Estimate = est
		if correctedJSON.Valid {
			corr, err := model.UnmarshalEstimate([]byte(correctedJSON.String))
			if err != nil {
				return nil, fmt.Errorf("meal %d correction: %w", m.ID, err)
			}
			m.Correction = &corr
		}
		meals = append(meals, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate meals: %w", err)
	}
	return meals, nil
}
