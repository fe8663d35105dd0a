package bot

import (
	"context"
	"errors"
	"strings"

	"github.com/altynbek07/invbot/internal/domain"
	"github.com/altynbek07/invbot/internal/models"
	"github.com/altynbek07/invbot/internal/service"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Dialog flows walk the user through a request one message at a time.
// Sessions are in-memory only; a restart simply drops half-finished
// dialogs and the user starts over.

type flow int

const (
	flowPayin flow = iota
	flowPayout
)

type step int

const (
	stepCurrency step = iota
	stepExt
	stepAmount
	stepDstAddress
	stepTip
)

type session struct {
	flow     flow
	step     step
	currency string
	extID    int64
	ext      string
	amount   int64 // micros
	tip      int64 // micros
	dst      string
}

func (b *Bot) startDialog(chatID int64, f flow) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sessions[chatID] = &session{flow: f, step: stepCurrency}
}

func (b *Bot) clearSession(chatID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.sessions, chatID)
}

func (b *Bot) getSession(chatID int64) *session {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sessions[chatID]
}

func (b *Bot) askCurrency(chatID int64) {
	all := append(append([]string{}, b.currencies...), b.specialCurrencies...)
	rows := make([][]tgbotapi.KeyboardButton, 0, len(all))
	for _, c := range all {
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(c)))
	}
	keyboard := tgbotapi.NewReplyKeyboard(rows...)
	keyboard.OneTimeKeyboard = true
	keyboard.ResizeKeyboard = true
	b.replyWithMarkup(chatID, "Choose a currency:", keyboard)
}

// continueDialog advances the chat's in-flight dialog with the user's
// latest message, if any dialog is open.
func (b *Bot) continueDialog(ctx context.Context, user *models.User, msg *tgbotapi.Message) {
	sess := b.getSession(msg.Chat.ID)
	if sess == nil {
		b.reply(msg.Chat.ID, "Use /payin or /payout to start, /id to register identifiers.")
		return
	}
	text := strings.TrimSpace(msg.Text)

	switch sess.step {
	case stepCurrency:
		if !b.knownCurrency(text) {
			b.reply(msg.Chat.ID, "Unknown currency, pick one from the keyboard.")
			return
		}
		sess.currency = text
		sess.step = stepExt
		b.askExt(ctx, user, msg.Chat.ID)
	case stepExt:
		b.pickExt(ctx, user, msg.Chat.ID, sess, text)
	case stepAmount:
		amount, err := domain.ParseAmount(text)
		if err != nil {
			b.reply(msg.Chat.ID, "Enter a positive amount, e.g. 12.5")
			return
		}
		sess.amount = amount
		b.afterAmount(ctx, user, msg.Chat.ID, sess)
	case stepDstAddress:
		if text == "" {
			b.reply(msg.Chat.ID, "Enter the destination address.")
			return
		}
		sess.dst = text
		sess.step = stepTip
		b.reply(msg.Chat.ID, "Enter a tip amount, or 0:")
	case stepTip:
		tip, err := domain.ParseNonNegativeAmount(text)
		if err != nil {
			b.reply(msg.Chat.ID, "Enter a tip amount, or 0:")
			return
		}
		sess.tip = tip
		b.finishPayout(ctx, user, msg.Chat.ID, sess)
	}
}

func (b *Bot) askExt(ctx context.Context, user *models.User, chatID int64) {
	exts, err := b.users.Exts(ctx, user, 10)
	if err != nil {
		zap.L().Error("list exts failed", zap.Int64("user_id", user.UserID), zap.Error(err))
		b.reply(chatID, "Something went wrong, try again later.")
		b.clearSession(chatID)
		return
	}
	if len(exts) == 0 {
		b.reply(chatID, "Register an identifier first: /id <identifier>")
		b.clearSession(chatID)
		return
	}

	rows := make([][]tgbotapi.KeyboardButton, 0, len(exts))
	for _, e := range exts {
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(e.Ext)))
	}
	keyboard := tgbotapi.NewReplyKeyboard(rows...)
	keyboard.OneTimeKeyboard = true
	keyboard.ResizeKeyboard = true
	b.replyWithMarkup(chatID, "Choose an identifier:", keyboard)
}

func (b *Bot) pickExt(ctx context.Context, user *models.User, chatID int64, sess *session, text string) {
	exts, err := b.users.Exts(ctx, user, 50)
	if err != nil {
		zap.L().Error("list exts failed", zap.Int64("user_id", user.UserID), zap.Error(err))
		b.reply(chatID, "Something went wrong, try again later.")
		b.clearSession(chatID)
		return
	}
	for _, e := range exts {
		if e.Ext == text {
			sess.extID = e.ID
			sess.ext = e.Ext
			sess.step = stepAmount
			b.reply(chatID, "Enter the amount:")
			return
		}
	}
	b.reply(chatID, "Unknown identifier, pick one from the keyboard.")
}

func (b *Bot) afterAmount(ctx context.Context, user *models.User, chatID int64, sess *session) {
	ext := &models.Ext{ID: sess.extID, Ext: sess.ext, UserID: user.ID}

	switch sess.flow {
	case flowPayin:
		b.finishPayin(ctx, user, chatID, sess, ext)
	case flowPayout:
		if b.isSpecial(sess.currency) {
			b.finishSpecialPayout(ctx, user, chatID, sess, ext)
			return
		}
		sess.step = stepDstAddress
		b.reply(chatID, "Enter the destination address:")
	}
}

func (b *Bot) finishPayin(ctx context.Context, user *models.User, chatID int64, sess *session, ext *models.Ext) {
	defer b.clearSession(chatID)

	if b.isSpecial(sess.currency) {
		if _, err := b.payin.RequestSpecial(ctx, user, ext, sess.currency, sess.amount); err != nil {
			b.replyRequestError(chatID, err)
			return
		}
		b.reply(chatID, "Request registered, awaiting approval.")
		return
	}

	addr, err := b.payin.RequestAddress(ctx, ext, sess.currency, sess.amount)
	if err != nil {
		b.replyRequestError(chatID, err)
		return
	}
	b.reply(chatID, "Send the funds to this address:\n"+addr)
}

func (b *Bot) finishPayout(ctx context.Context, user *models.User, chatID int64, sess *session) {
	defer b.clearSession(chatID)

	ext := &models.Ext{ID: sess.extID, Ext: sess.ext, UserID: user.ID}
	req := service.PayoutRequest{
		Currency:   sess.currency,
		Amount:     sess.amount,
		Tip:        sess.tip,
		DstAddress: sess.dst,
	}
	if _, err := b.payout.RequestCrypto(ctx, user, ext, req); err != nil {
		b.replyRequestError(chatID, err)
		return
	}
	b.reply(chatID, "Withdrawal registered, awaiting approval.")
}

func (b *Bot) finishSpecialPayout(ctx context.Context, user *models.User, chatID int64, sess *session, ext *models.Ext) {
	defer b.clearSession(chatID)

	if _, err := b.payout.RequestSpecial(ctx, user, ext, sess.currency, sess.amount); err != nil {
		b.replyRequestError(chatID, err)
		return
	}
	b.reply(chatID, "Withdrawal registered, awaiting approval.")
}

func (b *Bot) replyRequestError(chatID int64, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidAmount):
		b.reply(chatID, "Enter a positive amount.")
	case errors.Is(err, service.ErrGatewayUnavailable):
		b.reply(chatID, "The payment gateway is unavailable, try again later.")
	default:
		zap.L().Error("request failed", zap.Int64("chat_id", chatID), zap.Error(err))
		b.reply(chatID, "Something went wrong, try again later.")
	}
}
