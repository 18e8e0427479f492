// Package metrics computes daily energy and macronutrient targets from
// body measurements. All functions are pure; enum inputs are validated and
// anything outside the closed sets is an error.
package metrics

import (
	"errors"
	"fmt"
)

type Sex string

const (
	SexMale   Sex = "male"
	SexFemale Sex = "female"
)

type ActivityLevel string

const (
	ActivitySedentary ActivityLevel = "sedentary"
	ActivityLight     ActivityLevel = "light"
	ActivityModerate  ActivityLevel = "moderate"
	ActivityHigh      ActivityLevel = "high"
	ActivityVeryHigh  ActivityLevel = "very_high"
)

type Goal string

const (
	GoalLose     Goal = "lose"
	GoalMaintain Goal = "maintain"
	GoalGain     Goal = "gain"
)

var (
	ErrInvalidSex      = errors.New("invalid sex")
	ErrInvalidActivity = errors.New("invalid activity level")
	ErrInvalidGoal     = errors.New("invalid goal")
)

// activityFactors is the single source of truth for valid activity levels.
var activityFactors = map[ActivityLevel]float64{
	ActivitySedentary: 1.2,
	ActivityLight:     1.375,
	ActivityModerate:  1.55,
	ActivityHigh:      1.725,
	ActivityVeryHigh:  1.9,
}

var proteinPerKg = map[Goal]float64{
	GoalLose:     2.2,
	GoalMaintain: 2.0,
	GoalGain:     2.2,
}

var fatPerKg = map[Goal]float64{
	GoalLose:     1.0,
	GoalMaintain: 1.2,
	GoalGain:     1.3,
}

// Metrics is the full derived bundle persisted alongside a user profile.
type Metrics struct {
	BMR           float64
	TDEE          float64
	CalorieTarget float64
	ProteinG      float64
	FatG          float64
	CarbG         float64
}

// BMR implements the Mifflin-St Jeor equations. Weight in kg, height in cm.
func BMR(weight, height float64, age int, sex Sex) (float64, error) {
	base := 10*weight + 6.25*height - 5*float64(age)
	switch sex {
	case SexMale:
		return base + 5, nil
	case SexFemale:
		return base - 161, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidSex, sex)
}

func TDEE(bmr float64, level ActivityLevel) (float64, error) {
	factor, ok := activityFactors[level]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidActivity, level)
	}
	return bmr * factor, nil
}

func CalorieTarget(tdee float64, goal Goal) (float64, error) {
	switch goal {
	case GoalLose:
		return tdee * 0.8, nil
	case GoalMaintain:
		return tdee, nil
	case GoalGain:
		return tdee * 1.2, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidGoal, goal)
}

// Macros returns daily protein, fat and carb targets in grams. Protein and
// fat scale with body weight per goal; carbs absorb the remaining calories
// and never go below zero.
func Macros(weight, calorieTarget float64, goal Goal) (proteinG, fatG, carbG float64, err error) {
	pPerKg, ok := proteinPerKg[goal]
	if !ok {
		return 0, 0, 0, fmt.Errorf("%w: %q", ErrInvalidGoal, goal)
	}
	fPerKg := fatPerKg[goal]

	proteinG = pPerKg * weight
	fatG = fPerKg * weight

	carbCalories := calorieTarget - (proteinG*4 + fatG*9)
	if carbCalories < 0 {
		carbCalories = 0
	}
	return proteinG, fatG, carbCalories / 4, nil
}

// Build composes the whole pipeline. It fails on the first invalid enum and
// returns the zero Metrics in that case, so callers never persist a
// partially derived bundle.
func Build(weight, height float64, age int, sex Sex, activity ActivityLevel, goal Goal) (Metrics, error) {
	bmr, err := BMR(weight, height, age, sex)
	if err != nil {
		return Metrics{}, err
	}
	tdee, err := TDEE(bmr, activity)
	if err != nil {
		return Metrics{}, err
	}
	target, err := CalorieTarget(tdee, goal)
	if err != nil {
		return Metrics{}, err
	}
	proteinG, fatG, carbG, err := Macros(weight, target, goal)
	if err != nil {
		return Metrics{}, err
	}
	return Metrics{
		BMR:           bmr,
		TDEE:          tdee,
		CalorieTarget: target,
		ProteinG:      proteinG,
		FatG:          fatG,
		CarbG:         carbG,
	}, nil
}
