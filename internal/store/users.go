package store

import (
	"database/sql"
	"fmt"

	"github.com/SblYMblK/FitRose/internal/metrics"
	"github.com/SblYMblK/FitRose/internal/model"
)

func GetUser(db *sql.DB, userID int64) (*model.UserProfile, error) {
	var (
		u        model.UserProfile
		sex      string
		activity string
		goal     string
	)
	err := db.QueryRow(`
SELECT user_id, age, sex, height_cm, weight_kg, activity, goal,
       bmr, tdee, calorie_target, protein_target_g, fat_target_g, carb_target_g,
       created_at, updated_at
FROM users
WHERE user_id = ?
`, userID).Scan(
		&u.TelegramID, &u.Age, &sex, &u.HeightCm, &u.WeightKg, &activity, &goal,
		&u.Metrics.BMR, &u.Metrics.TDEE, &u.Metrics.CalorieTarget,
		&u.Metrics.ProteinG, &u.Metrics.FatG, &u.Metrics.CarbG,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get user %d: %w", userID, err)
	}
	u.Sex = metrics.Sex(sex)
	u.Activity = metrics.ActivityLevel(activity)
	u.Goal = metrics.Goal(goal)
	return &u, nil
}

// UpsertUser replaces the whole profile row, derived targets included.
// Re-registration overwrites everything for the user id.
func UpsertUser(db *sql.DB, u model.UserProfile) error {
	_, err := db.Exec(`
INSERT INTO users (
  user_id, age, sex, height_cm, weight_kg, activity, goal,
  bmr, tdee, calorie_target, protein_target_g, fat_target_g, carb_target_g
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(user_id) DO UPDATE SET
  age=excluded.age,
  sex=excluded.sex,
  height_cm=excluded.height_cm,
  weight_kg=excluded.weight_kg,
  activity=excluded.activity,
  goal=excluded.goal,
  bmr=excluded.bmr,
  tdee=excluded.tdee,
  calorie_target=excluded.calorie_target,
  protein_target_g=excluded.protein_target_g,
  fat_target_g=excluded.fat_target_g,
  carb_target_g=excluded.carb_target_g,
  updated_at=CURRENT_TIMESTAMP
`,
		u.TelegramID, u.Age, string(u.Sex), u.HeightCm, u.WeightKg, string(u.Activity), string(u.Goal),
		u.Metrics.BMR, u.Metrics.TDEE, u.Metrics.CalorieTarget,
		u.Metrics.ProteinG, u.Metrics.FatG, u.Metrics.CarbG,
	)
	if err != nil {
		return fmt.Errorf("upsert user %d: %w", u.TelegramID, err)
	}
	return nil
}
