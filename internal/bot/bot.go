package bot

import (
	"context"
	"sync"

	"github.com/altynbek07/invbot/internal/service"
	"github.com/altynbek07/invbot/internal/worker"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Bot runs the Telegram long-poll loop and routes updates to the
// payment services. All state beyond the in-flight dialogs lives in the
// database; the process can restart at any point.
type Bot struct {
	api *tgbotapi.BotAPI

	users       *service.UserService
	payin       *service.PayinService
	payout      *service.PayoutService
	txs         *service.TransactionService
	admins      *service.AdminService
	settings    *service.SettingsService
	reports     *service.ReportService
	broadcaster *worker.Broadcaster

	currencies        []string
	specialCurrencies []string

	mu       sync.Mutex
	sessions map[int64]*session
}

// Deps bundles the services the bot routes updates to.
type Deps struct {
	Users       *service.UserService
	Payin       *service.PayinService
	Payout      *service.PayoutService
	Txs         *service.TransactionService
	Admins      *service.AdminService
	Settings    *service.SettingsService
	Reports     *service.ReportService
	Broadcaster *worker.Broadcaster

	Currencies        []string
	SpecialCurrencies []string
}

func New(api *tgbotapi.BotAPI, deps Deps) *Bot {
	return &Bot{
		api:               api,
		users:             deps.Users,
		payin:             deps.Payin,
		payout:            deps.Payout,
		txs:               deps.Txs,
		admins:            deps.Admins,
		settings:          deps.Settings,
		reports:           deps.Reports,
		broadcaster:       deps.Broadcaster,
		currencies:        deps.Currencies,
		specialCurrencies: deps.SpecialCurrencies,
		sessions:          make(map[int64]*session),
	}
}

// Run consumes updates until the context is cancelled.
func (b *Bot) Run(ctx context.Context) {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 30
	updates := b.api.GetUpdatesChan(cfg)
	zap.L().Info("bot update loop started", zap.String("username", b.api.Self.UserName))

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			zap.L().Info("bot update loop stopped")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if rec := recover(); rec != nil {
			zap.L().Error("panic handling update", zap.Any("panic", rec), zap.Int("update_id", update.UpdateID))
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		b.handleDecision(ctx, update.CallbackQuery)
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	}
}

// reply sends a plain text answer, logging delivery failure only.
func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		zap.L().Error("bot reply failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (b *Bot) replyWithMarkup(chatID int64, text string, markup any) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = markup
	if _, err := b.api.Send(msg); err != nil {
		zap.L().Error("bot reply failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (b *Bot) isSpecial(currency string) bool {
	for _, c := range b.specialCurrencies {
		if c == currency {
			return true
		}
	}
	return false
}

func (b *Bot) knownCurrency(currency string) bool {
	for _, c := range b.currencies {
		if c == currency {
			return true
		}
	}
	return b.isSpecial(currency)
}
