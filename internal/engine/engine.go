// Package engine drives the bot's conversations: registration, meal
// logging, day finalization, statistics, and profile display. It is
// transport-agnostic; a front end feeds it user events and sends back the
// messages it returns.
package engine

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/SblYMblK/FitRose/internal/model"
	"github.com/SblYMblK/FitRose/internal/oracle"
	"github.com/SblYMblK/FitRose/internal/store"
)

// Oracle is the nutrition estimation service as the engine sees it. Any
// error is treated as temporary unavailability and answered with a retry
// prompt, never a partial commit.
type Oracle interface {
	EstimateFromText(ctx context.Context, description string) (model.NutritionEstimate, error)
	EstimateFromImage(ctx context.Context, description string, image []byte) (model.NutritionEstimate, error)
	RefineEstimate(ctx context.Context, corrections string, previous model.NutritionEstimate, description string, image []byte) (model.NutritionEstimate, error)
	SummarizeDay(ctx context.Context, target, actual model.DayTotals) (oracle.Advice, error)
}

// Button is one inline choice; Token is the callback payload the front end
// echoes back through ButtonPress.
type Button struct {
	Label string
	Token string
}

// Message is one outbound reply. At most one keyboard field is set:
// Buttons (inline), Options (one-time reply keyboard), Menu (the persistent
// shortcut menu), or RemoveKeyboard.
type Message struct {
	Text           string
	Markdown       bool
	Buttons        [][]Button
	Options        [][]string
	Menu           bool
	RemoveKeyboard bool
}

type Engine struct {
	db     *sql.DB
	oracle Oracle
	log    *zap.Logger

	// Now supplies the wall clock; swap it in tests to pin "today".
	Now func() time.Time

	mu       sync.Mutex
	sessions map[int64]*session
}

func New(db *sql.DB, o Oracle, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		db:       db,
		oracle:   o,
		log:      log,
		Now:      time.Now,
		sessions: make(map[int64]*session),
	}
}

// session finds or creates the per-user session. The session's own mutex
// serializes events for one user; different users proceed concurrently.
func (e *Engine) session(userID int64) *session {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.sessions[userID]
	if !ok {
		s = &session{userID: userID}
		e.sessions[userID] = s
	}
	return s
}

func (e *Engine) today() string {
	return e.Now().Format("2006-01-02")
}

// StartSession handles first contact: unknown users begin registration,
// known users get the command reminder. Any in-flight flow is discarded.
func (e *Engine) StartSession(ctx context.Context, userID int64) ([]Message, error) {
	s := e.session(userID)
	s.mu.Lock()
	defer s.mu.Unlock()
	return e.startSession(ctx, s)
}

// TextMessage routes free text to the open flow, to a pending date prompt,
// or to the menu-label shortcuts when nothing is in progress.
func (e *Engine) TextMessage(ctx context.Context, userID int64, text string) ([]Message, error) {
	s := e.session(userID)
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.flow {
	case flowRegister:
		return e.registerText(ctx, s, text)
	case flowMealLog:
		return e.mealText(ctx, s, text)
	}
	if s.finishPending {
		return e.finalizeTypedDate(ctx, s, text)
	}
	return e.menuShortcut(ctx, s, text)
}

// PhotoMessage routes a photo to the meal flow when one is expected there.
func (e *Engine) PhotoMessage(ctx context.Context, userID int64, image []byte, caption string) ([]Message, error) {
	s := e.session(userID)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.flow == flowMealLog && s.mealStep == mealEnterPhoto {
		return e.mealPhoto(ctx, s, image, caption)
	}
	if s.flow != flowNone || s.finishPending {
		return reply(Message{Text: msgExpectText}), nil
	}
	return reply(Message{Text: msgCommands, Menu: true}), nil
}

// ButtonPress dispatches a callback token. Stats and finish intents work at
// any time; the meal-flow intents require the matching step and otherwise
// answer with the expired-session notice.
func (e *Engine) ButtonPress(ctx context.Context, userID int64, token string) ([]Message, error) {
	s := e.session(userID)
	s.mu.Lock()
	defer s.mu.Unlock()

	intent, slot := parseCallback(token)
	switch intent {
	case intentStatsWeek:
		return e.statsPeriod(ctx, s, periodWeek)
	case intentStatsMonth:
		return e.statsPeriod(ctx, s, periodMonth)
	case intentFinishToday:
		return e.finalizeChosenDay(ctx, s, e.today())
	case intentFinishOther:
		s.finishPending = true
		return reply(Message{Text: msgEnterDate}), nil
	}

	if s.flow != flowMealLog {
		return reply(Message{Text: msgStaleSession}), nil
	}
	switch intent {
	case intentDayCurrent, intentDayToday, intentDayOther:
		if s.mealStep != mealChooseDay && s.mealStep != mealEnterDate {
			return reply(Message{Text: msgStaleSession}), nil
		}
		switch intent {
		case intentDayToday:
			return e.mealSelectDay(ctx, s, e.today())
		case intentDayCurrent:
			return e.mealSelectCurrentDay(ctx, s)
		default:
			s.mealStep = mealEnterDate
			return reply(Message{Text: msgEnterDate}), nil
		}
	case intentMealSlot:
		if s.mealStep != mealChooseSlot {
			return reply(Message{Text: msgStaleSession}), nil
		}
		return e.mealSelectSlot(ctx, s, slot)
	case intentEntryText, intentEntryPhoto:
		if s.mealStep != mealChooseModality {
			return reply(Message{Text: msgStaleSession}), nil
		}
		return e.mealSelectModality(ctx, s, intent == intentEntryPhoto)
	case intentConfirmYes:
		if s.mealStep != mealConfirm {
			return reply(Message{Text: msgStaleSession}), nil
		}
		return e.mealPersist(ctx, s)
	case intentConfirmEdit:
		if s.mealStep != mealConfirm {
			return reply(Message{Text: msgStaleSession}), nil
		}
		s.mealStep = mealCorrection
		return reply(Message{Text: msgDescribeCorrection}), nil
	}
	return reply(Message{Text: msgStaleSession}), nil
}

// BeginMealLog is the /log_day entry point.
func (e *Engine) BeginMealLog(ctx context.Context, userID int64) ([]Message, error) {
	s := e.session(userID)
	s.mu.Lock()
	defer s.mu.Unlock()
	return e.beginMealLog(ctx, s)
}

// FinalizeDay is the /finish_day entry point.
func (e *Engine) FinalizeDay(ctx context.Context, userID int64) ([]Message, error) {
	s := e.session(userID)
	s.mu.Lock()
	defer s.mu.Unlock()
	return e.finalizeDay(ctx, s)
}

// ShowStats is the /stats entry point.
func (e *Engine) ShowStats(ctx context.Context, userID int64) ([]Message, error) {
	s := e.session(userID)
	s.mu.Lock()
	defer s.mu.Unlock()
	return e.showStats(ctx, s)
}

// ShowProfile is the /profile entry point.
func (e *Engine) ShowProfile(ctx context.Context, userID int64) ([]Message, error) {
	s := e.session(userID)
	s.mu.Lock()
	defer s.mu.Unlock()
	return e.showProfile(ctx, s)
}

// CancelActiveFlow aborts whatever is in progress without persisting
// anything.
func (e *Engine) CancelActiveFlow(ctx context.Context, userID int64) ([]Message, error) {
	s := e.session(userID)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.flow != flowNone || s.finishPending {
		e.log.Info("flow canceled", zap.Int64("user_id", s.userID), zap.String("flow_id", s.flowID))
	}
	s.reset()
	return reply(Message{Text: msgCanceled, Menu: true}), nil
}

func (e *Engine) menuShortcut(ctx context.Context, s *session, text string) ([]Message, error) {
	switch strings.TrimSpace(text) {
	case menuLogDay:
		return e.beginMealLog(ctx, s)
	case menuFinishDay:
		return e.finalizeDay(ctx, s)
	case menuStats:
		return e.showStats(ctx, s)
	case menuProfile:
		return e.showProfile(ctx, s)
	}
	return reply(Message{Text: msgCommands, Menu: true}), nil
}

// loadProfile returns the stored profile or, when the user has not
// registered yet, the standard pointer to /start.
func (e *Engine) loadProfile(userID int64) (*model.UserProfile, []Message, error) {
	profile, err := store.GetUser(e.db, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("load user: %w", err)
	}
	if profile == nil {
		return nil, reply(Message{Text: msgRegisterFirst, RemoveKeyboard: true}), nil
	}
	return profile, nil, nil
}

func (e *Engine) logEvent(userID int64, eventType string, payload map[string]any) {
	if err := store.LogEvent(e.db, userID, eventType, payload); err != nil {
		e.log.Warn("event not recorded", zap.String("event", eventType), zap.Error(err))
	}
}

func reply(msgs ...Message) []Message {
	return msgs
}
