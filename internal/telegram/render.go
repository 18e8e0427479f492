package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/SblYMblK/FitRose/internal/engine"
)

// render maps one engine reply onto a Bot API message. The engine sets at
// most one keyboard field; Buttons and Options win over the menu markers.
func render(chatID int64, m engine.Message) tgbotapi.MessageConfig {
	out := tgbotapi.NewMessage(chatID, m.Text)
	if m.Markdown {
		out.ParseMode = tgbotapi.ModeMarkdown
	}
	switch {
	case len(m.Buttons) > 0:
		out.ReplyMarkup = inlineKeyboard(m.Buttons)
	case len(m.Options) > 0:
		out.ReplyMarkup = replyKeyboard(m.Options, true)
	case m.RemoveKeyboard:
		out.ReplyMarkup = tgbotapi.NewRemoveKeyboard(false)
	case m.Menu:
		out.ReplyMarkup = replyKeyboard(engine.MenuRows(), false)
	}
	return out
}

func inlineKeyboard(rows [][]engine.Button) tgbotapi.InlineKeyboardMarkup {
	keyboard := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, btn := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(btn.Label, btn.Token))
		}
		keyboard = append(keyboard, buttons)
	}
	return tgbotapi.NewInlineKeyboardMarkup(keyboard...)
}

func replyKeyboard(rows [][]string, oneTime bool) tgbotapi.ReplyKeyboardMarkup {
	keyboard := make([][]tgbotapi.KeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tgbotapi.KeyboardButton, 0, len(row))
		for _, label := range row {
			buttons = append(buttons, tgbotapi.NewKeyboardButton(label))
		}
		keyboard = append(keyboard, buttons)
	}
	kb := tgbotapi.NewReplyKeyboard(keyboard...)
	kb.OneTimeKeyboard = oneTime
	return kb
}
