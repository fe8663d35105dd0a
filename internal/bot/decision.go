package bot

import (
	"context"
	"errors"

	"github.com/altynbek07/invbot/internal/models"
	"github.com/altynbek07/invbot/internal/notify"
	"github.com/altynbek07/invbot/internal/service"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// handleDecision applies an admin accept/deny button press. Non-admin
// presses are answered and ignored; a decision that raced another admin
// re-renders the message in its settled state instead of erroring.
func (b *Bot) handleDecision(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	verb, txID, ok := notify.ParseActionData(cq.Data)
	if !ok {
		b.answerCallback(cq.ID, "")
		return
	}
	if cq.From == nil {
		return
	}

	isAdmin, err := b.admins.IsAdmin(ctx, cq.From.ID)
	if err != nil {
		zap.L().Error("admin check failed", zap.Int64("from", cq.From.ID), zap.Error(err))
		b.answerCallback(cq.ID, "Try again later.")
		return
	}
	if !isAdmin {
		b.answerCallback(cq.ID, "Not allowed.")
		return
	}

	var tx *models.Transaction
	switch verb {
	case notify.AcceptAction:
		tx, err = b.txs.Accept(ctx, txID)
	case notify.DenyAction:
		tx, err = b.txs.Deny(ctx, txID, "declined by "+cq.From.UserName)
	default:
		b.answerCallback(cq.ID, "")
		return
	}

	switch {
	case err == nil:
		b.answerCallback(cq.ID, "Done.")
	case errors.Is(err, service.ErrCannotAccept), errors.Is(err, service.ErrCannotDeny):
		// Another admin got there first; show the settled state.
		b.answerCallback(cq.ID, "Already processed.")
	case errors.Is(err, service.ErrTxNotFound):
		b.answerCallback(cq.ID, "Transaction not found.")
		return
	default:
		zap.L().Error("admin decision failed",
			zap.String("verb", verb),
			zap.Int64("tx_id", txID),
			zap.Error(err),
		)
		b.answerCallback(cq.ID, "Failed, try again.")
		return
	}

	if tx != nil && cq.Message != nil {
		b.rerenderDecision(cq.Message.Chat.ID, cq.Message.MessageID, tx)
	}
}

// rerenderDecision replaces the approval message with the transaction's
// current full form, dropping buttons that are no longer valid.
func (b *Bot) rerenderDecision(chatID int64, messageID int, tx *models.Transaction) {
	text := notify.Headline(tx) + "\n" + notify.FullText(tx)
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)

	markup := tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}}
	if actions := notify.TxActions(tx); len(actions) > 0 {
		row := make([]tgbotapi.InlineKeyboardButton, 0, len(actions))
		for _, a := range actions {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(a.Label, a.Data))
		}
		markup = tgbotapi.NewInlineKeyboardMarkup(row)
	}
	edit.ReplyMarkup = &markup

	if _, err := b.api.Send(edit); err != nil {
		zap.L().Warn("decision message edit failed",
			zap.Int64("chat_id", chatID),
			zap.Int("message_id", messageID),
			zap.Error(err),
		)
	}
}

func (b *Bot) answerCallback(id, text string) {
	cb := tgbotapi.NewCallback(id, text)
	if _, err := b.api.Request(cb); err != nil {
		zap.L().Warn("callback answer failed", zap.Error(err))
	}
}
