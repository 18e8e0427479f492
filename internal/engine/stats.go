package engine

import (
	"context"
	"fmt"

	"github.com/SblYMblK/FitRose/internal/store"
)

type period int

const (
	periodWeek period = iota
	periodMonth
)

func (e *Engine) showStats(ctx context.Context, s *session) ([]Message, error) {
	profile, msgs, err := e.loadProfile(s.userID)
	if err != nil || profile == nil {
		return msgs, err
	}
	return reply(Message{Text: msgChoosePeriod, Buttons: [][]Button{{
		{Label: "Неделя", Token: tokenStatsWeek},
		{Label: "Месяц", Token: tokenStatsMonth},
	}}}), nil
}

// statsPeriod renders per-day totals over the last 7 or 30 days, both
// bounds inclusive. Days without a log row are simply absent.
func (e *Engine) statsPeriod(ctx context.Context, s *session, p period) ([]Message, error) {
	end := e.Now()
	days := 6
	label := "неделю"
	if p == periodMonth {
		days = 29
		label = "месяц"
	}
	start := end.AddDate(0, 0, -days)

	startDay := start.Format("2006-01-02")
	endDay := end.Format("2006-01-02")
	rows, err := store.IterPeriodTotals(e.db, s.userID, startDay, endDay)
	if err != nil {
		return nil, fmt.Errorf("load period totals: %w", err)
	}
	if len(rows) == 0 {
		return reply(Message{Text: msgEmptyPeriod, Menu: true}), nil
	}
	return reply(Message{Text: formatStats(label, startDay, endDay, rows), Menu: true}), nil
}

func (e *Engine) showProfile(ctx context.Context, s *session) ([]Message, error) {
	profile, msgs, err := e.loadProfile(s.userID)
	if err != nil || profile == nil {
		return msgs, err
	}
	return reply(Message{Text: formatProfile(profile), Markdown: true, Menu: true}), nil
}
