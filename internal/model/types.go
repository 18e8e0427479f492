package model

import (
	"time"

	"github.com/SblYMblK/FitRose/internal/metrics"
)

type UserProfile struct {
	TelegramID int64
	Age        int
	Sex        metrics.Sex
	HeightCm   float64
	WeightKg   float64
	Activity   metrics.ActivityLevel
	Goal       metrics.Goal
	Metrics    metrics.Metrics
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type DayStatus string

const (
	DayActive DayStatus = "active"
	DayClosed DayStatus = "closed"
)

type DayTotals struct {
	Calories float64
	ProteinG float64
	FatG     float64
	CarbG    float64
}

type DayLog struct {
	ID     int64
	UserID int64
	Day    string
	Totals DayTotals
	Status DayStatus
}

type MealSlot string

const (
	SlotBreakfast MealSlot = "breakfast"
	SlotLunch     MealSlot = "lunch"
	SlotDinner    MealSlot = "dinner"
	SlotSnack     MealSlot = "snack"
)

// MealSlots lists the slots in presentation order.
func MealSlots() []MealSlot {
	return []MealSlot{SlotBreakfast, SlotLunch, SlotDinner, SlotSnack}
}

func ValidMealSlot(s MealSlot) bool {
	switch s {
	case SlotBreakfast, SlotLunch, SlotDinner, SlotSnack:
		return true
	}
	return false
}

type Modality string

const (
	ModalityText  Modality = "text"
	ModalityPhoto Modality = "photo"
)

type MealEntry struct {
	ID         int64
	DayLogID   int64
	Slot       MealSlot
	Modality   Modality
	UserInput  string
	Estimate   NutritionEstimate
	Correction *NutritionEstimate
	Calories   float64
	ProteinG   float64
	FatG       float64
	CarbG      float64
	CreatedAt  time.Time
}

// Committed returns the estimate whose macros count toward day totals: the
// correction when present, the raw estimate otherwise.
func (m MealEntry) Committed() NutritionEstimate {
	if m.Correction != nil {
		return *m.Correction
	}
	return m.Estimate
}

type EstimateItem struct {
	Name     string  `json:"name"`
	Calories float64 `json:"calories"`
	ProteinG float64 `json:"protein"`
	FatG     float64 `json:"fat"`
	CarbG    float64 `json:"carbs"`
}

type NutritionEstimate struct {
	Calories float64        `json:"calories"`
	ProteinG float64        `json:"protein"`
	FatG     float64        `json:"fat"`
	CarbG    float64        `json:"carbs"`
	Notes    string         `json:"notes"`
	Items    []EstimateItem `json:"items"`
}

func (e NutritionEstimate) Totals() DayTotals {
	return DayTotals{Calories: e.Calories, ProteinG: e.ProteinG, FatG: e.FatG, CarbG: e.CarbG}
}
