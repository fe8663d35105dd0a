package bot

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/altynbek07/invbot/internal/models"
	"github.com/altynbek07/invbot/internal/repository"
	"github.com/altynbek07/invbot/internal/service"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const welcomeText = "Share your contact to register."

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.Chat == nil {
		return
	}
	if msg.Chat.IsGroup() || msg.Chat.IsSuperGroup() {
		b.handleGroupMessage(ctx, msg)
		return
	}
	if msg.From == nil {
		return
	}

	if msg.Contact != nil {
		b.handleContact(ctx, msg)
		return
	}

	user, err := b.users.Lookup(ctx, msg.From.ID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			b.requestContact(msg.Chat.ID)
			return
		}
		zap.L().Error("user lookup failed", zap.Int64("from", msg.From.ID), zap.Error(err))
		b.reply(msg.Chat.ID, "Something went wrong, try again later.")
		return
	}
	if err := b.users.Touch(ctx, user); err != nil {
		zap.L().Warn("touch user failed", zap.Int64("user_id", user.UserID), zap.Error(err))
	}

	if msg.IsCommand() {
		b.handleCommand(ctx, user, msg)
		return
	}
	b.continueDialog(ctx, user, msg)
}

func (b *Bot) handleCommand(ctx context.Context, user *models.User, msg *tgbotapi.Message) {
	b.clearSession(msg.Chat.ID)

	switch msg.Command() {
	case "start":
		b.reply(msg.Chat.ID, "You are registered. Commands: /id, /payin, /payout, /mute, /unmute.")
	case "id":
		b.handleRegisterExts(ctx, user, msg)
	case "payin":
		b.startDialog(msg.Chat.ID, flowPayin)
		b.askCurrency(msg.Chat.ID)
	case "payout":
		b.startDialog(msg.Chat.ID, flowPayout)
		b.askCurrency(msg.Chat.ID)
	case "account":
		b.handleAssignAccount(ctx, user, msg)
	case "mute":
		if err := b.users.SetBroadcast(ctx, user, false); err != nil {
			zap.L().Error("broadcast opt-out failed", zap.Int64("user_id", user.UserID), zap.Error(err))
			b.reply(msg.Chat.ID, "Something went wrong, try again later.")
			return
		}
		b.reply(msg.Chat.ID, "Announcements disabled.")
	case "unmute":
		if err := b.users.SetBroadcast(ctx, user, true); err != nil {
			zap.L().Error("broadcast opt-in failed", zap.Int64("user_id", user.UserID), zap.Error(err))
			b.reply(msg.Chat.ID, "Something went wrong, try again later.")
			return
		}
		b.reply(msg.Chat.ID, "Announcements enabled.")
	default:
		b.reply(msg.Chat.ID, "Unknown command.")
	}
}

func (b *Bot) requestContact(chatID int64) {
	keyboard := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButtonContact("Share contact")),
	)
	keyboard.OneTimeKeyboard = true
	keyboard.ResizeKeyboard = true
	b.replyWithMarkup(chatID, welcomeText, keyboard)
}

func (b *Bot) handleContact(ctx context.Context, msg *tgbotapi.Message) {
	// Only accept the sender's own contact card.
	if msg.Contact.UserID != msg.From.ID {
		b.reply(msg.Chat.ID, "Please share your own contact.")
		return
	}

	contact := service.Contact{
		PhoneNumber: msg.Contact.PhoneNumber,
		UserID:      msg.From.ID,
		ChatID:      msg.Chat.ID,
	}
	if msg.From.UserName != "" {
		username := msg.From.UserName
		contact.Username = &username
	}
	if msg.From.FirstName != "" {
		first := msg.From.FirstName
		contact.FirstName = &first
	}
	if msg.From.LastName != "" {
		last := msg.From.LastName
		contact.LastName = &last
	}

	if _, err := b.users.Register(ctx, contact); err != nil {
		zap.L().Error("user registration failed", zap.Int64("from", msg.From.ID), zap.Error(err))
		b.reply(msg.Chat.ID, "Registration failed, try again later.")
		return
	}

	remove := tgbotapi.NewRemoveKeyboard(true)
	b.replyWithMarkup(msg.Chat.ID, "Registered. Use /id to add your identifiers, /payin and /payout to move funds.", remove)
}

func (b *Bot) handleRegisterExts(ctx context.Context, user *models.User, msg *tgbotapi.Message) {
	args := strings.Fields(msg.CommandArguments())
	if len(args) == 0 {
		b.reply(msg.Chat.ID, "Usage: /id <identifier> [more...]")
		return
	}
	if err := b.users.RegisterExts(ctx, user, args); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			b.reply(msg.Chat.ID, "One of the identifiers is already taken. None were added.")
			return
		}
		zap.L().Error("register exts failed", zap.Int64("user_id", user.UserID), zap.Error(err))
		b.reply(msg.Chat.ID, "Something went wrong, try again later.")
		return
	}
	b.reply(msg.Chat.ID, "Identifiers registered.")
}

func (b *Bot) handleAssignAccount(ctx context.Context, user *models.User, msg *tgbotapi.Message) {
	name := strings.TrimSpace(msg.CommandArguments())
	if name == "" {
		b.reply(msg.Chat.ID, "Usage: /account <name>")
		return
	}
	if err := b.users.AssignAccount(ctx, user, name); err != nil {
		zap.L().Error("assign account failed", zap.Int64("user_id", user.UserID), zap.Error(err))
		b.reply(msg.Chat.ID, "Something went wrong, try again later.")
		return
	}
	b.reply(msg.Chat.ID, "Account assigned: "+name)
}

// handleGroupMessage covers the admin group surface: designation on
// join, roster sync, broadcasts and reports.
func (b *Bot) handleGroupMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.NewChatMembers != nil {
		for _, member := range msg.NewChatMembers {
			if member.ID == b.api.Self.ID {
				b.handleGroupJoin(ctx, msg.Chat)
				return
			}
		}
	}
	if msg.From == nil || !msg.IsCommand() {
		return
	}

	isAdmin, err := b.admins.IsAdmin(ctx, msg.From.ID)
	if err != nil {
		zap.L().Error("admin check failed", zap.Int64("from", msg.From.ID), zap.Error(err))
		return
	}
	if !isAdmin {
		return
	}

	switch msg.Command() {
	case "sync":
		b.syncAdmins(ctx, msg.Chat.ID)
		b.reply(msg.Chat.ID, "Admin roster synced.")
	case "broadcast":
		text := strings.TrimSpace(msg.CommandArguments())
		if text == "" {
			b.reply(msg.Chat.ID, "Usage: /broadcast <text>")
			return
		}
		if b.broadcaster.Enqueue(text) {
			b.reply(msg.Chat.ID, "Broadcast queued.")
		} else {
			b.reply(msg.Chat.ID, "Broadcast queue is full, try later.")
		}
	case "report":
		b.handleReport(ctx, msg)
	}
}

// handleGroupJoin designates the group the bot was added to as the
// admin group and mirrors its membership.
func (b *Bot) handleGroupJoin(ctx context.Context, chat *tgbotapi.Chat) {
	if err := b.settings.SetAdminGroup(ctx, chat.ID); err != nil {
		zap.L().Error("set admin group failed", zap.Int64("chat_id", chat.ID), zap.Error(err))
		return
	}
	zap.L().Info("admin group designated", zap.Int64("chat_id", chat.ID), zap.String("title", chat.Title))
	b.syncAdmins(ctx, chat.ID)
	b.reply(chat.ID, "This group now receives transaction approvals.")
}

func (b *Bot) syncAdmins(ctx context.Context, chatID int64) {
	members, err := b.api.GetChatAdministrators(tgbotapi.ChatAdministratorsConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: chatID},
	})
	if err != nil {
		zap.L().Error("fetch group administrators failed", zap.Int64("chat_id", chatID), zap.Error(err))
		return
	}

	roster := make([]models.Admin, 0, len(members))
	for _, m := range members {
		if m.User == nil || m.User.IsBot {
			continue
		}
		admin := models.Admin{UserID: m.User.ID}
		if m.User.UserName != "" {
			username := m.User.UserName
			admin.Username = &username
		}
		roster = append(roster, admin)
	}
	if err := b.admins.Sync(ctx, roster); err != nil {
		zap.L().Error("admin roster sync failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (b *Bot) handleReport(ctx context.Context, msg *tgbotapi.Message) {
	// Default: the current month.
	now := time.Now().UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	stop := start.AddDate(0, 1, 0)

	args := strings.Fields(msg.CommandArguments())
	if len(args) == 2 {
		var err1, err2 error
		start, err1 = time.Parse("2006-01-02", args[0])
		stop, err2 = time.Parse("2006-01-02", args[1])
		if err1 != nil || err2 != nil {
			b.reply(msg.Chat.ID, "Usage: /report [YYYY-MM-DD YYYY-MM-DD]")
			return
		}
	}

	var buf strings.Builder
	if err := b.reports.WriteCSV(ctx, &buf, start, stop); err != nil {
		zap.L().Error("report generation failed", zap.Error(err))
		b.reply(msg.Chat.ID, "Report generation failed.")
		return
	}

	doc := tgbotapi.NewDocument(msg.Chat.ID, tgbotapi.FileBytes{
		Name:  "transactions-" + start.Format("2006-01-02") + ".csv",
		Bytes: []byte(buf.String()),
	})
	if _, err := b.api.Send(doc); err != nil {
		zap.L().Error("report delivery failed", zap.Int64("chat_id", msg.Chat.ID), zap.Error(err))
	}
}
