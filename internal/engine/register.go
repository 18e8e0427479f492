package engine

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/SblYMblK/FitRose/internal/metrics"
	"github.com/SblYMblK/FitRose/internal/model"
	"github.com/SblYMblK/FitRose/internal/store"
)

func (e *Engine) startSession(ctx context.Context, s *session) ([]Message, error) {
	profile, err := store.GetUser(e.db, s.userID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	s.reset()
	if profile != nil {
		return reply(Message{Text: msgWelcomeBack, Menu: true}), nil
	}
	s.flow = flowRegister
	s.flowID = uuid.NewString()
	s.regStep = regAge
	e.log.Info("registration started", zap.Int64("user_id", s.userID), zap.String("flow_id", s.flowID))
	return reply(Message{Text: msgWelcome, RemoveKeyboard: true}), nil
}

func (e *Engine) registerText(ctx context.Context, s *session, text string) ([]Message, error) {
	text = strings.TrimSpace(text)
	switch s.regStep {
	case regAge:
		age, err := strconv.Atoi(text)
		if err != nil {
			return reply(Message{Text: "Пожалуйста, введите число."}), nil
		}
		if age <= 0 || age > 120 {
			return reply(Message{Text: "Возраст должен быть от 1 до 120."}), nil
		}
		s.reg.age = age
		s.regStep = regSex
		return reply(Message{Text: "Выберите пол:", Options: [][]string{{"М"}, {"Ж"}}}), nil

	case regSex:
		switch strings.ToUpper(text) {
		case "М":
			s.reg.sex = metrics.SexMale
		case "Ж":
			s.reg.sex = metrics.SexFemale
		default:
			return reply(Message{Text: "Выберите М или Ж."}), nil
		}
		s.regStep = regHeight
		return reply(Message{Text: "Введите ваш рост в см:"}), nil

	case regHeight:
		height, err := parseDecimal(text)
		if err != nil {
			return reply(Message{Text: "Введите число, например 175."}), nil
		}
		if height < 50 || height > 250 {
			return reply(Message{Text: "Рост должен быть в пределах 50-250 см."}), nil
		}
		s.reg.heightCm = height
		s.regStep = regWeight
		return reply(Message{Text: "Введите ваш вес в кг:"}), nil

	case regWeight:
		weight, err := parseDecimal(text)
		if err != nil {
			return reply(Message{Text: "Введите число, например 70.5"}), nil
		}
		if weight < 30 || weight > 400 {
			return reply(Message{Text: "Вес должен быть в пределах 30-400 кг."}), nil
		}
		s.reg.weightKg = weight
		s.regStep = regActivity
		return reply(Message{Text: "Выберите уровень активности:", Options: activityRows()}), nil

	case regActivity:
		level, ok := activityByLabel(text)
		if !ok {
			return reply(Message{Text: "Пожалуйста, выберите один из вариантов из клавиатуры."}), nil
		}
		s.reg.activity = level
		s.regStep = regGoal
		return reply(Message{Text: "Какая ваша цель?", Options: goalRows()}), nil

	case regGoal:
		goal, ok := goalByLabel(text)
		if !ok {
			return reply(Message{Text: "Пожалуйста, выберите один из вариантов из клавиатуры."}), nil
		}
		return e.completeRegistration(ctx, s, goal)
	}
	return nil, fmt.Errorf("registration step %d out of range", s.regStep)
}

func (e *Engine) completeRegistration(ctx context.Context, s *session, goal metrics.Goal) ([]Message, error) {
	m, err := metrics.Build(s.reg.weightKg, s.reg.heightCm, s.reg.age, s.reg.sex, s.reg.activity, goal)
	if err != nil {
		return nil, fmt.Errorf("build metrics: %w", err)
	}
	now := e.Now()
	profile := model.UserProfile{
		TelegramID: s.userID,
		Age:        s.reg.age,
		Sex:        s.reg.sex,
		HeightCm:   s.reg.heightCm,
		WeightKg:   s.reg.weightKg,
		Activity:   s.reg.activity,
		Goal:       goal,
		Metrics:    m,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := store.UpsertUser(e.db, profile); err != nil {
		return nil, fmt.Errorf("save profile: %w", err)
	}
	e.logEvent(s.userID, "registration_completed", map[string]any{"goal": string(goal), "flow_id": s.flowID})
	e.log.Info("registration completed",
		zap.Int64("user_id", s.userID),
		zap.String("flow_id", s.flowID),
		zap.String("goal", string(goal)))
	s.reset()
	return reply(
		Message{Text: formatProfile(&profile), Markdown: true, RemoveKeyboard: true},
		Message{Text: msgRegistered, Menu: true},
	), nil
}

// parseDecimal reads a float accepting both the dot and the comma as the
// decimal separator.
func parseDecimal(text string) (float64, error) {
	return strconv.ParseFloat(strings.Replace(text, ",", ".", 1), 64)
}
