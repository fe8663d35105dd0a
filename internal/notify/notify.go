package notify

import (
	"context"

	"github.com/altynbek07/invbot/internal/domain"
	"github.com/altynbek07/invbot/internal/models"
	"github.com/altynbek07/invbot/internal/observability"
	"go.uber.org/zap"
)

// Action is a button attached to an actionable admin message.
type Action struct {
	Label string
	Data  string
}

// Message is one outbound chat notification.
type Message struct {
	ChatID  int64
	Text    string
	Actions []Action
}

// Sender delivers a message to a chat. Implementations must not retry;
// delivery is best-effort and failures are logged by the dispatcher.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// AdminGroupFunc resolves the designated admin group chat id.
// ok is false when no group has been configured yet.
type AdminGroupFunc func(ctx context.Context) (chatID int64, ok bool)

// Dispatcher computes which party gets notified after a state change
// and in what form. It is stateless with respect to transactions:
// everything is derived from the row it is handed.
type Dispatcher struct {
	sender     Sender
	adminGroup AdminGroupFunc
}

func NewDispatcher(sender Sender, adminGroup AdminGroupFunc) *Dispatcher {
	return &Dispatcher{sender: sender, adminGroup: adminGroup}
}

// TransactionChanged notifies the owning user (short form) and, for
// payout and special flows, the admin group (full form). Called after
// the state change has committed; delivery failure never rolls it back.
func (d *Dispatcher) TransactionChanged(ctx context.Context, tx *models.Transaction) {
	d.notifyUser(ctx, tx)
	if tx.Type != domain.TxTypePayin {
		d.notifyAdminGroup(ctx, tx, nil)
	}
}

// CallbackProcessed notifies after gateway callback ingestion: the user
// always hears (short form); the admin group only if configured, with
// full form for payouts and an actionable approval request for pay-ins.
func (d *Dispatcher) CallbackProcessed(ctx context.Context, tx *models.Transaction) {
	d.notifyUser(ctx, tx)
	switch tx.Type {
	case domain.TxTypePayout:
		d.notifyAdminGroup(ctx, tx, nil)
	case domain.TxTypePayin:
		d.NewTransaction(ctx, tx)
	}
}

// NewTransaction asks the admin group for a decision on a transaction,
// attaching accept/deny actions while it is still actionable.
func (d *Dispatcher) NewTransaction(ctx context.Context, tx *models.Transaction) {
	chatID, ok := d.adminGroup(ctx)
	if !ok {
		zap.L().Warn("admin group not set, admin notification skipped", zap.Int64("tx_id", tx.ID))
		return
	}
	d.send(ctx, Message{
		ChatID:  chatID,
		Text:    "New transaction awaiting approval.\n" + FullText(tx),
		Actions: TxActions(tx),
	})
}

func (d *Dispatcher) notifyUser(ctx context.Context, tx *models.Transaction) {
	if tx.User == nil {
		zap.L().Error("transaction without loaded user, user notification skipped", zap.Int64("tx_id", tx.ID))
		return
	}
	d.send(ctx, Message{
		ChatID: tx.User.ChatID,
		Text:   Headline(tx) + "\n" + ShortText(tx),
	})
}

func (d *Dispatcher) notifyAdminGroup(ctx context.Context, tx *models.Transaction, actions []Action) {
	chatID, ok := d.adminGroup(ctx)
	if !ok {
		zap.L().Warn("admin group not set, admin notification skipped", zap.Int64("tx_id", tx.ID))
		return
	}
	d.send(ctx, Message{
		ChatID:  chatID,
		Text:    Headline(tx) + "\n" + FullText(tx),
		Actions: actions,
	})
}

func (d *Dispatcher) send(ctx context.Context, msg Message) {
	if err := d.sender.Send(ctx, msg); err != nil {
		observability.IncrementNotification("error")
		zap.L().Error("notification delivery failed", zap.Int64("chat_id", msg.ChatID), zap.Error(err))
		return
	}
	observability.IncrementNotification("ok")
}
