package engine

import (
	"fmt"
	"strings"

	"github.com/SblYMblK/FitRose/internal/metrics"
	"github.com/SblYMblK/FitRose/internal/model"
	"github.com/SblYMblK/FitRose/internal/oracle"
	"github.com/SblYMblK/FitRose/internal/store"
)

// Menu labels double as text shortcuts: pressing a menu button sends the
// label back as a plain message.
const (
	menuLogDay    = "Внести прием пищи"
	menuFinishDay = "Завершить день"
	menuStats     = "Статистика"
	menuProfile   = "Профиль"
)

// MenuRows is the persistent reply-menu layout the front end renders when a
// Message has Menu set.
func MenuRows() [][]string {
	return [][]string{
		{menuLogDay, menuFinishDay},
		{menuStats, menuProfile},
	}
}

const (
	msgCommands = "Используйте команды:\n" +
		"• /log_day — внести прием пищи\n" +
		"• /finish_day — завершить день\n" +
		"• /stats — статистика\n" +
		"• /profile — профиль и цели"
	msgWelcome            = "Добро пожаловать! Для расчета калоража ответьте на несколько вопросов.\nСколько вам лет?"
	msgWelcomeBack        = "С возвращением! " + msgCommands
	msgRegistered         = "Используйте /log_day, чтобы внести прием пищи, или /finish_day, чтобы завершить день."
	msgRegisterFirst      = "Сначала зарегистрируйтесь с помощью команды /start"
	msgUserGone           = "Пользователь не найден. Используйте /start."
	msgCanceled           = "Ввод прерван."
	msgStaleSession       = "Сессия устарела. Попробуйте снова командой /log_day."
	msgExpectText         = "Сейчас ожидается текстовый ответ."
	msgEnterDate          = "Введите дату в формате ГГГГ-ММ-ДД:"
	msgBadDate            = "Неверный формат. Попробуйте снова (ГГГГ-ММ-ДД)."
	msgBadFinishDate      = "Неверный формат даты. Попробуйте снова."
	msgChooseDay          = "Какой день хотите заполнить?"
	msgChooseMeal         = "Выберите прием пищи:"
	msgChooseEntry        = "Как хотите внести информацию?"
	msgDescribeText       = "Опишите, что вы съели. Можно указать количество и вес продуктов."
	msgSendPhoto          = "Пришлите фото блюда. Можно добавить подпись с описанием."
	msgPhotoMissing       = "Не удалось получить фото. Попробуйте еще раз."
	msgOracleRetry        = "Не удалось получить ответ от LLM. Пожалуйста, отправьте информацию еще раз."
	msgOracleRetryEdit    = "Не удалось получить ответ от LLM. Попробуйте отправить исправленный текст еще раз."
	msgOracleRetryFinish  = "Не удалось получить рекомендации от LLM. Попробуйте завершить день еще раз."
	msgConfirm            = "Все верно?"
	msgSaving             = "Сохраняю запись..."
	msgSaved              = "Запись сохранена. Хотите добавить еще один прием пищи?"
	msgDescribeCorrection = "Опишите корректную информацию о блюде текстом."
	msgNoActiveDay        = "Нет активного дня. Какой день завершить?"
	msgEmptyDay           = "За выбранный день нет данных."
	msgChoosePeriod       = "Какой период показать?"
	msgEmptyPeriod        = "Нет данных за выбранный период."
)

var mealSlotLabels = map[model.MealSlot]string{
	model.SlotBreakfast: "Завтрак",
	model.SlotLunch:     "Обед",
	model.SlotDinner:    "Ужин",
	model.SlotSnack:     "Перекус",
}

var activityLabels = map[metrics.ActivityLevel]string{
	metrics.ActivitySedentary: "Минимальная (сидячая работа)",
	metrics.ActivityLight:     "Легкая (1-3 тренировки в неделю)",
	metrics.ActivityModerate:  "Средняя (3-5 тренировок в неделю)",
	metrics.ActivityHigh:      "Высокая (6-7 тренировок в неделю)",
	metrics.ActivityVeryHigh:  "Очень высокая (физический труд + спорт)",
}

var activityOrder = []metrics.ActivityLevel{
	metrics.ActivitySedentary,
	metrics.ActivityLight,
	metrics.ActivityModerate,
	metrics.ActivityHigh,
	metrics.ActivityVeryHigh,
}

var goalLabels = map[metrics.Goal]string{
	metrics.GoalLose:     "Похудение",
	metrics.GoalMaintain: "Поддержание",
	metrics.GoalGain:     "Набор массы",
}

var goalOrder = []metrics.Goal{metrics.GoalLose, metrics.GoalMaintain, metrics.GoalGain}

func activityRows() [][]string {
	rows := make([][]string, 0, len(activityOrder))
	for _, level := range activityOrder {
		rows = append(rows, []string{activityLabels[level]})
	}
	return rows
}

func activityByLabel(text string) (metrics.ActivityLevel, bool) {
	for _, level := range activityOrder {
		if activityLabels[level] == text {
			return level, true
		}
	}
	return "", false
}

func goalRows() [][]string {
	rows := make([][]string, 0, len(goalOrder))
	for _, goal := range goalOrder {
		rows = append(rows, []string{goalLabels[goal]})
	}
	return rows
}

func goalByLabel(text string) (metrics.Goal, bool) {
	for _, goal := range goalOrder {
		if goalLabels[goal] == text {
			return goal, true
		}
	}
	return "", false
}

func sexLetter(s metrics.Sex) string {
	if s == metrics.SexFemale {
		return "Ж"
	}
	return "М"
}

func formatProfile(p *model.UserProfile) string {
	return fmt.Sprintf(
		"*Ваш профиль*\n"+
			"Возраст: %d\n"+
			"Пол: %s\n"+
			"Рост: %.0f см\n"+
			"Вес: %.1f кг\n"+
			"Активность: %s\n"+
			"Цель: %s\n\n"+
			"*Целевые показатели*\n"+
			"Калории: %.0f ккал\n"+
			"Белки: %.0f г\n"+
			"Жиры: %.0f г\n"+
			"Углеводы: %.0f г",
		p.Age, sexLetter(p.Sex), p.HeightCm, p.WeightKg,
		activityLabels[p.Activity], goalLabels[p.Goal],
		p.Metrics.CalorieTarget, p.Metrics.ProteinG, p.Metrics.FatG, p.Metrics.CarbG,
	)
}

func formatEstimate(est model.NutritionEstimate) string {
	items := make([]string, 0, len(est.Items))
	for _, item := range est.Items {
		name := item.Name
		if name == "" {
			name = "Продукт"
		}
		items = append(items, fmt.Sprintf("• %s: %.0f ккал", name, item.Calories))
	}
	itemsText := strings.Join(items, "\n")
	if itemsText == "" {
		itemsText = "• нет деталей"
	}
	notes := est.Notes
	if notes == "" {
		notes = "—"
	}
	return fmt.Sprintf(
		"*Оценка приема пищи*\n"+
			"Калории: %.0f ккал\n"+
			"Белки: %.0f г\n"+
			"Жиры: %.0f г\n"+
			"Углеводы: %.0f г\n"+
			"Заметки: %s\n\n"+
			"Состав:\n%s",
		est.Calories, est.ProteinG, est.FatG, est.CarbG, notes, itemsText,
	)
}

func formatDaySummary(summary *store.DaySummary, target model.DayTotals, advice oracle.Advice) string {
	lines := []string{
		fmt.Sprintf("*Итоги за %s*", summary.Day),
		fmt.Sprintf("Цель: %.0f ккал (Б %.0f / Ж %.0f / У %.0f)",
			target.Calories, target.ProteinG, target.FatG, target.CarbG),
		fmt.Sprintf("Факт: %.0f ккал (Б %.0f / Ж %.0f / У %.0f)",
			summary.Totals.Calories, summary.Totals.ProteinG, summary.Totals.FatG, summary.Totals.CarbG),
		"\n*Приемы пищи:*",
	}
	for _, meal := range summary.Meals {
		label, ok := mealSlotLabels[meal.Slot]
		if !ok {
			label = string(meal.Slot)
		}
		lines = append(lines, fmt.Sprintf("— %s: %.0f ккал (Б %.0f / Ж %.0f / У %.0f)",
			label, meal.Calories, meal.ProteinG, meal.FatG, meal.CarbG))
	}
	lines = append(lines, "\n*Рекомендации:*")
	if advice.Summary != "" {
		lines = append(lines, advice.Summary)
	} else {
		lines = append(lines, "Нет данных")
	}
	if advice.Recommendations != "" {
		lines = append(lines, advice.Recommendations)
	}
	return strings.Join(lines, "\n")
}

func formatStats(label, start, end string, rows []store.PeriodDay) string {
	var total model.DayTotals
	for _, row := range rows {
		total.Calories += row.Totals.Calories
		total.ProteinG += row.Totals.ProteinG
		total.FatG += row.Totals.FatG
		total.CarbG += row.Totals.CarbG
	}
	lines := []string{
		fmt.Sprintf("Статистика за %s (%s — %s):", label, start, end),
		fmt.Sprintf("Всего: %.0f ккал, белки %.0f г, жиры %.0f г, углеводы %.0f г",
			total.Calories, total.ProteinG, total.FatG, total.CarbG),
	}
	for _, row := range rows {
		lines = append(lines, fmt.Sprintf("%s: %.0f ккал (Б %.0f г / Ж %.0f г / У %.0f г)",
			row.Day, row.Totals.Calories, row.Totals.ProteinG, row.Totals.FatG, row.Totals.CarbG))
	}
	return strings.Join(lines, "\n")
}

func confirmRow() [][]Button {
	return [][]Button{{
		{Label: "Подтвердить", Token: tokenConfirmYes},
		{Label: "Исправить", Token: tokenConfirmEdit},
	}}
}
