package engine

import (
	"sync"

	"github.com/SblYMblK/FitRose/internal/metrics"
	"github.com/SblYMblK/FitRose/internal/model"
)

type flowKind int

const (
	flowNone flowKind = iota
	flowRegister
	flowMealLog
)

type regStep int

const (
	regAge regStep = iota
	regSex
	regHeight
	regWeight
	regActivity
	regGoal
)

type mealStep int

const (
	mealChooseDay mealStep = iota
	mealEnterDate
	mealChooseSlot
	mealChooseModality
	mealEnterText
	mealEnterPhoto
	mealConfirm
	mealCorrection
)

// Correction notes are kept as a sliding window so a pathological edit loop
// cannot grow the refine prompt without bound.
const maxCorrectionNotes = 10

type regDraft struct {
	age      int
	sex      metrics.Sex
	heightCm float64
	weightKg float64
	activity metrics.ActivityLevel
}

type mealDraft struct {
	dayLogID    int64
	day         string
	slot        model.MealSlot
	modality    model.Modality
	description string
	photo       []byte
	estimate    model.NutritionEstimate
	corrections []string
}

// session is the per-user scratch state. It only lives in memory; a process
// restart drops in-progress dialogues and the user simply starts over.
type session struct {
	mu     sync.Mutex
	userID int64

	flow   flowKind
	flowID string

	regStep regStep
	reg     regDraft

	mealStep mealStep
	meal     mealDraft

	finishPending bool
}

func (s *session) reset() {
	s.flow = flowNone
	s.flowID = ""
	s.regStep = regAge
	s.reg = regDraft{}
	s.mealStep = mealChooseDay
	s.meal = mealDraft{}
	s.finishPending = false
}

// clearMealContent drops the per-meal scratch but keeps the selected day,
// so the flow can loop back to the meal choice.
func (s *session) clearMealContent() {
	s.meal.slot = ""
	s.meal.modality = ""
	s.meal.description = ""
	s.meal.photo = nil
	s.meal.estimate = model.NutritionEstimate{}
	s.meal.corrections = nil
}
