package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/SblYMblK/FitRose/internal/model"
	"github.com/SblYMblK/FitRose/internal/store"
)

func (e *Engine) beginMealLog(ctx context.Context, s *session) ([]Message, error) {
	profile, msgs, err := e.loadProfile(s.userID)
	if err != nil || profile == nil {
		return msgs, err
	}
	s.reset()
	s.flow = flowMealLog
	s.flowID = uuid.NewString()
	s.mealStep = mealChooseDay

	rows := [][]Button{{
		{Label: "Сегодня", Token: tokenDayToday},
		{Label: "Другой день", Token: tokenDayOther},
	}}
	active, err := store.GetActiveDay(e.db, s.userID)
	if err != nil {
		return nil, fmt.Errorf("load active day: %w", err)
	}
	if active != nil {
		current := []Button{{Label: "Текущий день (" + active.Day + ")", Token: tokenDayCurrent}}
		rows = append([][]Button{current}, rows...)
	}
	e.log.Info("meal log started", zap.Int64("user_id", s.userID), zap.String("flow_id", s.flowID))
	return reply(Message{Text: msgChooseDay, Buttons: rows}), nil
}

func (e *Engine) mealText(ctx context.Context, s *session, text string) ([]Message, error) {
	switch s.mealStep {
	case mealChooseDay, mealEnterDate:
		day, ok := parseDay(strings.TrimSpace(text))
		if !ok {
			return reply(Message{Text: msgBadDate}), nil
		}
		return e.mealSelectDay(ctx, s, day)
	case mealEnterText:
		return e.mealContent(ctx, s, text, nil)
	case mealEnterPhoto:
		return reply(Message{Text: msgSendPhoto}), nil
	case mealCorrection:
		return e.mealCorrection(ctx, s, text)
	}
	// Buttons are pending; repeat the prompt for the current step.
	return e.repeatPrompt(s), nil
}

func (e *Engine) repeatPrompt(s *session) []Message {
	switch s.mealStep {
	case mealChooseSlot:
		return reply(promptMealSlot())
	case mealChooseModality:
		return reply(promptModality())
	case mealConfirm:
		return reply(Message{Text: msgConfirm, Buttons: confirmRow()})
	}
	return reply(Message{Text: msgStaleSession})
}

func (e *Engine) mealSelectDay(ctx context.Context, s *session, day string) ([]Message, error) {
	id, err := store.SetActiveDay(e.db, s.userID, day)
	if err != nil {
		return nil, fmt.Errorf("activate day: %w", err)
	}
	s.meal.dayLogID = id
	s.meal.day = day
	s.mealStep = mealChooseSlot
	return reply(
		Message{Text: "Выбран день: " + day},
		promptMealSlot(),
	), nil
}

// mealSelectCurrentDay reuses the day that is already active. If it vanished
// since the keyboard was shown, the flow is treated as expired.
func (e *Engine) mealSelectCurrentDay(ctx context.Context, s *session) ([]Message, error) {
	active, err := store.GetActiveDay(e.db, s.userID)
	if err != nil {
		return nil, fmt.Errorf("load active day: %w", err)
	}
	if active == nil {
		s.reset()
		return reply(Message{Text: msgStaleSession}), nil
	}
	return e.mealSelectDay(ctx, s, active.Day)
}

func (e *Engine) mealSelectSlot(ctx context.Context, s *session, slot model.MealSlot) ([]Message, error) {
	s.meal.slot = slot
	s.mealStep = mealChooseModality
	return reply(promptModality()), nil
}

func (e *Engine) mealSelectModality(ctx context.Context, s *session, photo bool) ([]Message, error) {
	if photo {
		s.meal.modality = model.ModalityPhoto
		s.mealStep = mealEnterPhoto
		return reply(Message{Text: msgSendPhoto}), nil
	}
	s.meal.modality = model.ModalityText
	s.mealStep = mealEnterText
	return reply(Message{Text: msgDescribeText}), nil
}

func (e *Engine) mealPhoto(ctx context.Context, s *session, image []byte, caption string) ([]Message, error) {
	if len(image) == 0 {
		return reply(Message{Text: msgPhotoMissing}), nil
	}
	return e.mealContent(ctx, s, caption, image)
}

// mealContent runs the estimate and moves to confirmation. On oracle
// failure the step does not change, so the user can simply resend.
func (e *Engine) mealContent(ctx context.Context, s *session, description string, photo []byte) ([]Message, error) {
	var est model.NutritionEstimate
	var err error
	if len(photo) > 0 {
		est, err = e.oracle.EstimateFromImage(ctx, description, photo)
	} else {
		est, err = e.oracle.EstimateFromText(ctx, description)
	}
	if err != nil {
		e.log.Warn("estimate failed",
			zap.Int64("user_id", s.userID),
			zap.String("flow_id", s.flowID),
			zap.Error(err))
		return reply(Message{Text: msgOracleRetry}), nil
	}
	s.meal.description = description
	s.meal.photo = photo
	s.meal.estimate = est
	s.meal.corrections = nil
	s.mealStep = mealConfirm
	return reply(
		Message{Text: formatEstimate(est), Markdown: true},
		Message{Text: msgConfirm, Buttons: confirmRow()},
	), nil
}

func (e *Engine) mealCorrection(ctx context.Context, s *session, text string) ([]Message, error) {
	notes := append(append([]string{}, s.meal.corrections...), strings.TrimSpace(text))
	if len(notes) > maxCorrectionNotes {
		notes = notes[len(notes)-maxCorrectionNotes:]
	}
	joined := "- " + strings.Join(notes, "\n- ")
	est, err := e.oracle.RefineEstimate(ctx, joined, s.meal.estimate, s.meal.description, s.meal.photo)
	if err != nil {
		e.log.Warn("refine failed",
			zap.Int64("user_id", s.userID),
			zap.String("flow_id", s.flowID),
			zap.Error(err))
		return reply(Message{Text: msgOracleRetryEdit}), nil
	}
	s.meal.corrections = notes
	s.meal.estimate = est
	s.mealStep = mealConfirm
	return reply(
		Message{Text: formatEstimate(est), Markdown: true},
		Message{Text: msgConfirm, Buttons: confirmRow()},
	), nil
}

func (e *Engine) mealPersist(ctx context.Context, s *session) ([]Message, error) {
	mealID, err := store.AddMealEntry(e.db, store.AddMealInput{
		DayLogID:  s.meal.dayLogID,
		Slot:      s.meal.slot,
		Modality:  s.meal.modality,
		UserInput: s.meal.description,
		Estimate:  s.meal.estimate,
	})
	if err != nil {
		return nil, fmt.Errorf("save meal: %w", err)
	}
	e.logEvent(s.userID, "meal_logged", map[string]any{
		"meal_type":  string(s.meal.slot),
		"entry_type": string(s.meal.modality),
		"corrected":  len(s.meal.corrections) > 0,
		"flow_id":    s.flowID,
	})
	e.log.Info("meal saved",
		zap.Int64("user_id", s.userID),
		zap.String("flow_id", s.flowID),
		zap.Int64("meal_id", mealID),
		zap.String("day", s.meal.day),
		zap.String("slot", string(s.meal.slot)))
	s.clearMealContent()
	s.mealStep = mealChooseSlot
	return reply(
		Message{Text: msgSaving},
		Message{Text: msgSaved},
		promptMealSlot(),
	), nil
}

func promptMealSlot() Message {
	rows := make([][]Button, 0, 4)
	for _, slot := range model.MealSlots() {
		rows = append(rows, []Button{{Label: mealSlotLabels[slot], Token: mealSlotToken(slot)}})
	}
	return Message{Text: msgChooseMeal, Buttons: rows}
}

func promptModality() Message {
	return Message{Text: msgChooseEntry, Buttons: [][]Button{{
		{Label: "Текст", Token: tokenEntryText},
		{Label: "Фото", Token: tokenEntryPhoto},
	}}}
}

// parseDay validates a typed date and insists on the canonical zero-padded
// form, since day strings are compared lexicographically in storage.
func parseDay(text string) (string, bool) {
	t, err := time.Parse("2006-01-02", text)
	if err != nil || t.Format("2006-01-02") != text {
		return "", false
	}
	return text, true
}
