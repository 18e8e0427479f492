package engine

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/SblYMblK/FitRose/internal/model"
	"github.com/SblYMblK/FitRose/internal/store"
)

// finalizeDay closes out the user's active day. Without one, the user is
// offered a choice of day instead, since past days can be finalized too.
func (e *Engine) finalizeDay(ctx context.Context, s *session) ([]Message, error) {
	profile, msgs, err := e.loadProfile(s.userID)
	if err != nil || profile == nil {
		return msgs, err
	}
	active, err := store.GetActiveDay(e.db, s.userID)
	if err != nil {
		return nil, fmt.Errorf("load active day: %w", err)
	}
	if active == nil {
		return reply(Message{Text: msgNoActiveDay, Buttons: finishRow()}), nil
	}
	out := reply(Message{Text: "Подводим итоги за " + active.Day + "..."})
	more, err := e.summarizeAndClose(ctx, s, profile, active.Day)
	if err != nil {
		return nil, err
	}
	return append(out, more...), nil
}

// finalizeChosenDay handles the finish_today button and typed dates.
func (e *Engine) finalizeChosenDay(ctx context.Context, s *session, day string) ([]Message, error) {
	profile, err := store.GetUser(e.db, s.userID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if profile == nil {
		return reply(Message{Text: msgUserGone}), nil
	}
	out := reply(Message{Text: "Подводим итоги за " + day + "..."})
	more, err := e.summarizeAndClose(ctx, s, profile, day)
	if err != nil {
		return nil, err
	}
	return append(out, more...), nil
}

func (e *Engine) finalizeTypedDate(ctx context.Context, s *session, text string) ([]Message, error) {
	day, ok := parseDay(strings.TrimSpace(text))
	if !ok {
		return reply(Message{Text: msgBadFinishDate}), nil
	}
	s.finishPending = false
	return e.finalizeChosenDay(ctx, s, day)
}

// summarizeAndClose fetches the day, asks the oracle for feedback, and only
// then closes the day. A failed oracle call leaves the day open so the whole
// step can be retried; nothing here mutates meal data, so retries are safe.
func (e *Engine) summarizeAndClose(ctx context.Context, s *session, profile *model.UserProfile, day string) ([]Message, error) {
	summary, err := store.GetDaySummary(e.db, s.userID, day)
	if err != nil {
		return nil, fmt.Errorf("load day summary: %w", err)
	}
	if summary == nil || len(summary.Meals) == 0 {
		return reply(Message{Text: msgEmptyDay, Menu: true}), nil
	}
	target := model.DayTotals{
		Calories: profile.Metrics.CalorieTarget,
		ProteinG: profile.Metrics.ProteinG,
		FatG:     profile.Metrics.FatG,
		CarbG:    profile.Metrics.CarbG,
	}
	advice, err := e.oracle.SummarizeDay(ctx, target, summary.Totals)
	if err != nil {
		e.log.Warn("day summary failed",
			zap.Int64("user_id", s.userID),
			zap.String("day", day),
			zap.Error(err))
		return reply(Message{Text: msgOracleRetryFinish, Menu: true}), nil
	}
	if err := store.CloseDay(e.db, s.userID, day); err != nil {
		return nil, fmt.Errorf("close day: %w", err)
	}
	e.logEvent(s.userID, "day_finalized", map[string]any{"day": day})
	e.log.Info("day finalized", zap.Int64("user_id", s.userID), zap.String("day", day))
	if s.flow == flowMealLog && s.meal.day == day {
		s.reset()
	}
	return reply(Message{Text: formatDaySummary(summary, target, advice), Markdown: true, Menu: true}), nil
}

func finishRow() [][]Button {
	return [][]Button{{
		{Label: "Сегодня", Token: tokenFinishToday},
		{Label: "Выбрать дату", Token: tokenFinishOther},
	}}
}
