package telegram_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/SblYMblK/FitRose/internal/engine"
	"github.com/SblYMblK/FitRose/internal/telegram"
)

type convCall struct {
	method string
	userID int64
	text   string
	image  []byte
}

type fakeConv struct {
	mu     sync.Mutex
	calls  []convCall
	reply  []engine.Message
	err    error
	notify chan struct{}
}

func (c *fakeConv) record(method string, userID int64, text string, image []byte) ([]engine.Message, error) {
	c.mu.Lock()
	c.calls = append(c.calls, convCall{method: method, userID: userID, text: text, image: image})
	c.mu.Unlock()
	if c.notify != nil {
		select {
		case c.notify <- struct{}{}:
		default:
		}
	}
	return c.reply, c.err
}

func (c *fakeConv) recorded() []convCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]convCall(nil), c.calls...)
}

func (c *fakeConv) StartSession(_ context.Context, userID int64) ([]engine.Message, error) {
	return c.record("start", userID, "", nil)
}

func (c *fakeConv) TextMessage(_ context.Context, userID int64, text string) ([]engine.Message, error) {
	return c.record("text", userID, text, nil)
}

func (c *fakeConv) PhotoMessage(_ context.Context, userID int64, image []byte, caption string) ([]engine.Message, error) {
	return c.record("photo", userID, caption, image)
}

func (c *fakeConv) ButtonPress(_ context.Context, userID int64, token string) ([]engine.Message, error) {
	return c.record("button", userID, token, nil)
}

func (c *fakeConv) BeginMealLog(_ context.Context, userID int64) ([]engine.Message, error) {
	return c.record("log_day", userID, "", nil)
}

func (c *fakeConv) FinalizeDay(_ context.Context, userID int64) ([]engine.Message, error) {
	return c.record("finish_day", userID, "", nil)
}

func (c *fakeConv) ShowStats(_ context.Context, userID int64) ([]engine.Message, error) {
	return c.record("stats", userID, "", nil)
}

func (c *fakeConv) ShowProfile(_ context.Context, userID int64) ([]engine.Message, error) {
	return c.record("profile", userID, "", nil)
}

func (c *fakeConv) CancelActiveFlow(_ context.Context, userID int64) ([]engine.Message, error) {
	return c.record("cancel", userID, "", nil)
}

type fakeAPI struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	fileURL  func(fileID string) (string, error)
}

func (a *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sent = append(a.sent, c)
	return tgbotapi.Message{}, nil
}

func (a *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.requests = append(a.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (a *fakeAPI) GetFileDirectURL(fileID string) (string, error) {
	if a.fileURL == nil {
		return "", errors.New("no file server configured")
	}
	return a.fileURL(fileID)
}

func (a *fakeAPI) sentMessages(t *testing.T) []tgbotapi.MessageConfig {
	t.Helper()
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]tgbotapi.MessageConfig, 0, len(a.sent))
	for _, c := range a.sent {
		cfg, ok := c.(tgbotapi.MessageConfig)
		if !ok {
			t.Fatalf("sent %T, want tgbotapi.MessageConfig", c)
		}
		out = append(out, cfg)
	}
	return out
}

func newTestBot(t *testing.T) (*telegram.Bot, *fakeAPI, *fakeConv) {
	t.Helper()
	api := &fakeAPI{}
	conv := &fakeConv{reply: []engine.Message{{Text: "ок"}}}
	return telegram.New(api, conv, zap.NewNop()), api, conv
}

func commandUpdate(userID int64, text string) tgbotapi.Update {
	command := strings.Fields(text)[0]
	return tgbotapi.Update{Message: &tgbotapi.Message{
		From:     &tgbotapi.User{ID: userID},
		Chat:     &tgbotapi.Chat{ID: userID},
		Text:     text,
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(command)}},
	}}
}

func textUpdate(userID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		From: &tgbotapi.User{ID: userID},
		Chat: &tgbotapi.Chat{ID: userID},
		Text: text,
	}}
}

func TestCommandsRouteToEngine(t *testing.T) {
	t.Parallel()

	cases := []struct {
		command string
		method  string
	}{
		{"/start", "start"},
		{"/log_day", "log_day"},
		{"/finish_day", "finish_day"},
		{"/stats", "stats"},
		{"/profile", "profile"},
		{"/cancel", "cancel"},
	}
	for _, tc := range cases {
		t.Run(tc.command, func(t *testing.T) {
			t.Parallel()

			bot, api, conv := newTestBot(t)
			bot.HandleUpdate(context.Background(), commandUpdate(42, tc.command))

			calls := conv.recorded()
			if len(calls) != 1 || calls[0].method != tc.method {
				t.Fatalf("calls = %+v, want one %q", calls, tc.method)
			}
			if calls[0].userID != 42 {
				t.Fatalf("userID = %d, want 42", calls[0].userID)
			}
			sent := api.sentMessages(t)
			if len(sent) != 1 || sent[0].ChatID != 42 || sent[0].Text != "ок" {
				t.Fatalf("sent = %+v, want one reply to chat 42", sent)
			}
		})
	}
}

func TestUnknownCommandIsIgnored(t *testing.T) {
	t.Parallel()

	bot, api, conv := newTestBot(t)
	bot.HandleUpdate(context.Background(), commandUpdate(42, "/frobnicate"))

	if calls := conv.recorded(); len(calls) != 0 {
		t.Fatalf("calls = %+v, want none", calls)
	}
	if sent := api.sentMessages(t); len(sent) != 0 {
		t.Fatalf("sent = %+v, want none", sent)
	}
}

func TestPlainTextGoesToEngine(t *testing.T) {
	t.Parallel()

	bot, api, conv := newTestBot(t)
	bot.HandleUpdate(context.Background(), textUpdate(42, "овсянка с бананом"))

	calls := conv.recorded()
	if len(calls) != 1 || calls[0].method != "text" || calls[0].text != "овсянка с бананом" {
		t.Fatalf("calls = %+v, want the text forwarded", calls)
	}
	if sent := api.sentMessages(t); len(sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(sent))
	}
}

func TestPhotoDownloadsLargestSize(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/files/large" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("jpeg-bytes"))
	}))
	t.Cleanup(srv.Close)

	api := &fakeAPI{fileURL: func(fileID string) (string, error) {
		return srv.URL + "/files/" + fileID, nil
	}}
	conv := &fakeConv{reply: []engine.Message{{Text: "ок"}}}
	bot := telegram.New(api, conv, zap.NewNop())

	bot.HandleUpdate(context.Background(), tgbotapi.Update{Message: &tgbotapi.Message{
		From:    &tgbotapi.User{ID: 42},
		Chat:    &tgbotapi.Chat{ID: 42},
		Caption: "мой обед",
		Photo: []tgbotapi.PhotoSize{
			{FileID: "small", Width: 90, Height: 90},
			{FileID: "large", Width: 800, Height: 800},
		},
	}})

	calls := conv.recorded()
	if len(calls) != 1 || calls[0].method != "photo" {
		t.Fatalf("calls = %+v, want one photo call", calls)
	}
	if string(calls[0].image) != "jpeg-bytes" {
		t.Fatalf("image = %q, want the downloaded bytes", calls[0].image)
	}
	if calls[0].text != "мой обед" {
		t.Fatalf("caption = %q, want %q", calls[0].text, "мой обед")
	}
}

func TestPhotoDownloadFailureForwardsNilImage(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(http.NotFound))
	t.Cleanup(srv.Close)

	api := &fakeAPI{fileURL: func(fileID string) (string, error) {
		return srv.URL + "/files/" + fileID, nil
	}}
	conv := &fakeConv{reply: []engine.Message{{Text: "Не удалось получить фото. Попробуйте еще раз."}}}
	bot := telegram.New(api, conv, zap.NewNop())

	bot.HandleUpdate(context.Background(), tgbotapi.Update{Message: &tgbotapi.Message{
		From:  &tgbotapi.User{ID: 42},
		Chat:  &tgbotapi.Chat{ID: 42},
		Photo: []tgbotapi.PhotoSize{{FileID: "gone"}},
	}})

	calls := conv.recorded()
	if len(calls) != 1 || calls[0].method != "photo" || calls[0].image != nil {
		t.Fatalf("calls = %+v, want one photo call with a nil image", calls)
	}
	if sent := api.sentMessages(t); len(sent) != 1 {
		t.Fatalf("sent %d messages, want the engine's re-prompt delivered", len(sent))
	}
}

func TestCallbackAnsweredThenRouted(t *testing.T) {
	t.Parallel()

	bot, api, conv := newTestBot(t)
	bot.HandleUpdate(context.Background(), tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb-1",
		From:    &tgbotapi.User{ID: 42},
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 42}},
		Data:    "meal_breakfast",
	}})

	api.mu.Lock()
	requests := append([]tgbotapi.Chattable(nil), api.requests...)
	api.mu.Unlock()
	if len(requests) != 1 {
		t.Fatalf("requests = %d, want the callback answered once", len(requests))
	}
	answer, ok := requests[0].(tgbotapi.CallbackConfig)
	if !ok || answer.CallbackQueryID != "cb-1" {
		t.Fatalf("request = %+v, want answer for cb-1", requests[0])
	}

	calls := conv.recorded()
	if len(calls) != 1 || calls[0].method != "button" || calls[0].text != "meal_breakfast" {
		t.Fatalf("calls = %+v, want the token forwarded", calls)
	}
	if sent := api.sentMessages(t); len(sent) != 1 || sent[0].ChatID != 42 {
		t.Fatalf("sent = %+v, want one reply to chat 42", sent)
	}
}

func TestEngineErrorSendsApology(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{}
	conv := &fakeConv{err: errors.New("database locked")}
	bot := telegram.New(api, conv, zap.NewNop())

	bot.HandleUpdate(context.Background(), textUpdate(42, "привет"))

	sent := api.sentMessages(t)
	if len(sent) != 1 || sent[0].Text != "Произошла ошибка. Попробуйте позже." {
		t.Fatalf("sent = %+v, want the generic apology", sent)
	}
}

func TestRenderKeyboards(t *testing.T) {
	t.Parallel()

	deliver := func(t *testing.T, reply engine.Message) tgbotapi.MessageConfig {
		t.Helper()
		api := &fakeAPI{}
		conv := &fakeConv{reply: []engine.Message{reply}}
		bot := telegram.New(api, conv, zap.NewNop())
		bot.HandleUpdate(context.Background(), textUpdate(42, "x"))
		sent := api.sentMessages(t)
		if len(sent) != 1 {
			t.Fatalf("sent %d messages, want 1", len(sent))
		}
		return sent[0]
	}

	t.Run("inline buttons", func(t *testing.T) {
		t.Parallel()
		cfg := deliver(t, engine.Message{
			Text:    "Какой день заполняем?",
			Buttons: [][]engine.Button{{{Label: "Сегодня", Token: "day_today"}, {Label: "Другой день", Token: "day_other"}}},
		})
		kb, ok := cfg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
		if !ok {
			t.Fatalf("markup = %T, want InlineKeyboardMarkup", cfg.ReplyMarkup)
		}
		if len(kb.InlineKeyboard) != 1 || len(kb.InlineKeyboard[0]) != 2 {
			t.Fatalf("keyboard = %+v, want 1 row of 2", kb.InlineKeyboard)
		}
		btn := kb.InlineKeyboard[0][1]
		if btn.Text != "Другой день" || btn.CallbackData == nil || *btn.CallbackData != "day_other" {
			t.Fatalf("button = %+v, want label and token", btn)
		}
	})

	t.Run("reply options", func(t *testing.T) {
		t.Parallel()
		cfg := deliver(t, engine.Message{Text: "Укажите пол (М/Ж):", Options: [][]string{{"М"}, {"Ж"}}})
		kb, ok := cfg.ReplyMarkup.(tgbotapi.ReplyKeyboardMarkup)
		if !ok {
			t.Fatalf("markup = %T, want ReplyKeyboardMarkup", cfg.ReplyMarkup)
		}
		if !kb.OneTimeKeyboard || !kb.ResizeKeyboard {
			t.Fatalf("keyboard flags = %+v, want one-time and resized", kb)
		}
		if len(kb.Keyboard) != 2 || kb.Keyboard[0][0].Text != "М" || kb.Keyboard[1][0].Text != "Ж" {
			t.Fatalf("keyboard = %+v, want М and Ж rows", kb.Keyboard)
		}
	})

	t.Run("persistent menu", func(t *testing.T) {
		t.Parallel()
		cfg := deliver(t, engine.Message{Text: "Готово.", Menu: true})
		kb, ok := cfg.ReplyMarkup.(tgbotapi.ReplyKeyboardMarkup)
		if !ok {
			t.Fatalf("markup = %T, want ReplyKeyboardMarkup", cfg.ReplyMarkup)
		}
		if kb.OneTimeKeyboard {
			t.Fatal("menu keyboard must stay on screen")
		}
		want := engine.MenuRows()
		if len(kb.Keyboard) != len(want) {
			t.Fatalf("menu rows = %d, want %d", len(kb.Keyboard), len(want))
		}
		if kb.Keyboard[0][0].Text != want[0][0] {
			t.Fatalf("first menu button = %q, want %q", kb.Keyboard[0][0].Text, want[0][0])
		}
	})

	t.Run("remove keyboard", func(t *testing.T) {
		t.Parallel()
		cfg := deliver(t, engine.Message{Text: "Сколько вам лет?", RemoveKeyboard: true})
		kb, ok := cfg.ReplyMarkup.(tgbotapi.ReplyKeyboardRemove)
		if !ok || !kb.RemoveKeyboard {
			t.Fatalf("markup = %+v, want ReplyKeyboardRemove", cfg.ReplyMarkup)
		}
	})

	t.Run("markdown", func(t *testing.T) {
		t.Parallel()
		cfg := deliver(t, engine.Message{Text: "*Ваш профиль*", Markdown: true})
		if cfg.ParseMode != tgbotapi.ModeMarkdown {
			t.Fatalf("parse mode = %q, want %q", cfg.ParseMode, tgbotapi.ModeMarkdown)
		}
		plain := deliver(t, engine.Message{Text: "без разметки"})
		if plain.ParseMode != "" {
			t.Fatalf("parse mode = %q, want empty", plain.ParseMode)
		}
	})
}

func TestRunDeliversUpdatesUntilClosed(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{}
	conv := &fakeConv{reply: []engine.Message{{Text: "ок"}}, notify: make(chan struct{}, 1)}
	bot := telegram.New(api, conv, zap.NewNop())

	updates := make(chan tgbotapi.Update, 1)
	updates <- textUpdate(42, "привет")
	close(updates)

	bot.Run(context.Background(), updates)

	select {
	case <-conv.notify:
	case <-time.After(2 * time.Second):
		t.Fatal("update was not handled before the deadline")
	}
}
