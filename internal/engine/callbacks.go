package engine

import (
	"strings"

	"github.com/SblYMblK/FitRose/internal/model"
)

// callbackIntent is the closed set of button meanings. Tokens follow the
// prefix convention day_*, meal_*, entry_*, confirm_*, stats_*, finish_*;
// anything else maps to intentUnknown and is answered as a stale session.
type callbackIntent int

const (
	intentUnknown callbackIntent = iota
	intentDayCurrent
	intentDayToday
	intentDayOther
	intentMealSlot
	intentEntryText
	intentEntryPhoto
	intentConfirmYes
	intentConfirmEdit
	intentStatsWeek
	intentStatsMonth
	intentFinishToday
	intentFinishOther
)

const (
	tokenDayCurrent  = "day_current"
	tokenDayToday    = "day_today"
	tokenDayOther    = "day_other"
	tokenEntryText   = "entry_text"
	tokenEntryPhoto  = "entry_photo"
	tokenConfirmYes  = "confirm_yes"
	tokenConfirmEdit = "confirm_edit"
	tokenStatsWeek   = "stats_week"
	tokenStatsMonth  = "stats_month"
	tokenFinishToday = "finish_today"
	tokenFinishOther = "finish_other"
	tokenMealPrefix  = "meal_"
)

func mealSlotToken(slot model.MealSlot) string {
	return tokenMealPrefix + string(slot)
}

func parseCallback(token string) (callbackIntent, model.MealSlot) {
	switch token {
	case tokenDayCurrent:
		return intentDayCurrent, ""
	case tokenDayToday:
		return intentDayToday, ""
	case tokenDayOther:
		return intentDayOther, ""
	case tokenEntryText:
		return intentEntryText, ""
	case tokenEntryPhoto:
		return intentEntryPhoto, ""
	case tokenConfirmYes:
		return intentConfirmYes, ""
	case tokenConfirmEdit:
		return intentConfirmEdit, ""
	case tokenStatsWeek:
		return intentStatsWeek, ""
	case tokenStatsMonth:
		return intentStatsMonth, ""
	case tokenFinishToday:
		return intentFinishToday, ""
	case tokenFinishOther:
		return intentFinishOther, ""
	}
	if rest, ok := strings.CutPrefix(token, tokenMealPrefix); ok {
		slot := model.MealSlot(rest)
		if model.ValidMealSlot(slot) {
			return intentMealSlot, slot
		}
	}
	return intentUnknown, ""
}
