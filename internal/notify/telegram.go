package notify

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramSender delivers notifications through the Telegram Bot API.
type TelegramSender struct {
	api *tgbotapi.BotAPI
}

func NewTelegramSender(api *tgbotapi.BotAPI) *TelegramSender {
	return &TelegramSender{api: api}
}

// Send implements Sender. Actions become a single-row inline keyboard.
func (s *TelegramSender) Send(ctx context.Context, msg Message) error {
	out := tgbotapi.NewMessage(msg.ChatID, msg.Text)
	if len(msg.Actions) > 0 {
		row := make([]tgbotapi.InlineKeyboardButton, 0, len(msg.Actions))
		for _, a := range msg.Actions {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(a.Label, a.Data))
		}
		out.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(row)
	}
	if _, err := s.api.Send(out); err != nil {
		return fmt.Errorf("send telegram message to %d: %w", msg.ChatID, err)
	}
	return nil
}
