// Package telegram is the Telegram front end: it feeds updates from long
// polling into the conversation engine and renders the engine's replies
// back through the Bot API.
package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/SblYMblK/FitRose/internal/engine"
)

const errorReply = "Произошла ошибка. Попробуйте позже."

// Conversation is the engine surface the front end drives. Implemented by
// *engine.Engine.
type Conversation interface {
	StartSession(ctx context.Context, userID int64) ([]engine.Message, error)
	TextMessage(ctx context.Context, userID int64, text string) ([]engine.Message, error)
	PhotoMessage(ctx context.Context, userID int64, image []byte, caption string) ([]engine.Message, error)
	ButtonPress(ctx context.Context, userID int64, token string) ([]engine.Message, error)
	BeginMealLog(ctx context.Context, userID int64) ([]engine.Message, error)
	FinalizeDay(ctx context.Context, userID int64) ([]engine.Message, error)
	ShowStats(ctx context.Context, userID int64) ([]engine.Message, error)
	ShowProfile(ctx context.Context, userID int64) ([]engine.Message, error)
	CancelActiveFlow(ctx context.Context, userID int64) ([]engine.Message, error)
}

// API is the slice of the Bot API client the front end uses. Implemented by
// *tgbotapi.BotAPI.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

type Bot struct {
	api   API
	conv  Conversation
	log   *zap.Logger
	files *http.Client
}

func New(api API, conv Conversation, log *zap.Logger) *Bot {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bot{
		api:   api,
		conv:  conv,
		log:   log,
		files: &http.Client{Timeout: 30 * time.Second},
	}
}

// Run consumes updates until the context is canceled or the channel closes.
// Each update is handled on its own goroutine; the engine serializes events
// per user, so different users never block each other.
func (b *Bot) Run(ctx context.Context, updates <-chan tgbotapi.Update) {
	for {
		select {
		case <-ctx.Done():
			return
		case upd, ok := <-updates:
			if !ok {
				return
			}
			go b.HandleUpdate(ctx, upd)
		}
	}
}

// HandleUpdate processes one update synchronously.
func (b *Bot) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	switch {
	case upd.CallbackQuery != nil:
		b.handleCallback(ctx, upd.CallbackQuery)
	case upd.Message != nil:
		b.handleMessage(ctx, upd.Message)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	userID := msg.From.ID
	chatID := msg.Chat.ID

	switch {
	case msg.IsCommand():
		b.handleCommand(ctx, chatID, userID, msg.Command())
	case len(msg.Photo) > 0:
		image, err := b.photoBytes(ctx, msg.Photo)
		if err != nil {
			// Forward a nil image; the engine answers with a re-prompt.
			b.log.Warn("download photo", zap.Error(err), zap.Int64("user_id", userID))
			image = nil
		}
		msgs, err := b.conv.PhotoMessage(ctx, userID, image, msg.Caption)
		b.deliver(chatID, msgs, err)
	default:
		msgs, err := b.conv.TextMessage(ctx, userID, msg.Text)
		b.deliver(chatID, msgs, err)
	}
}

func (b *Bot) handleCommand(ctx context.Context, chatID, userID int64, command string) {
	var (
		msgs []engine.Message
		err  error
	)
	switch command {
	case "start":
		msgs, err = b.conv.StartSession(ctx, userID)
	case "log_day":
		msgs, err = b.conv.BeginMealLog(ctx, userID)
	case "finish_day":
		msgs, err = b.conv.FinalizeDay(ctx, userID)
	case "stats":
		msgs, err = b.conv.ShowStats(ctx, userID)
	case "profile":
		msgs, err = b.conv.ShowProfile(ctx, userID)
	case "cancel":
		msgs, err = b.conv.CancelActiveFlow(ctx, userID)
	default:
		b.log.Debug("unknown command", zap.String("command", command), zap.Int64("user_id", userID))
		return
	}
	b.deliver(chatID, msgs, err)
}

func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	// Answer right away so the client stops its progress indicator.
	if _, err := b.api.Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
		b.log.Warn("answer callback", zap.Error(err))
	}
	chatID := cq.From.ID
	if cq.Message != nil {
		chatID = cq.Message.Chat.ID
	}
	msgs, err := b.conv.ButtonPress(ctx, cq.From.ID, cq.Data)
	b.deliver(chatID, msgs, err)
}

// photoBytes downloads the largest rendition of a photo. Telegram lists
// sizes from smallest to largest.
func (b *Bot) photoBytes(ctx context.Context, sizes []tgbotapi.PhotoSize) ([]byte, error) {
	fileID := sizes[len(sizes)-1].FileID
	url, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("resolve file url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create file request: %w", err)
	}
	resp, err := b.files.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: status %s", resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return data, nil
}

// deliver sends the engine's replies in order. A handling error replaces
// them with a generic apology so the user is never left without an answer.
func (b *Bot) deliver(chatID int64, msgs []engine.Message, err error) {
	if err != nil {
		b.log.Error("handle update", zap.Error(err), zap.Int64("chat_id", chatID))
		msgs = []engine.Message{{Text: errorReply}}
	}
	for _, m := range msgs {
		if _, err := b.api.Send(render(chatID, m)); err != nil {
			b.log.Warn("send message", zap.Error(err), zap.Int64("chat_id", chatID))
		}
	}
}
