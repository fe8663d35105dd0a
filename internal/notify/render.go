package notify

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/altynbek07/invbot/internal/domain"
	"github.com/altynbek07/invbot/internal/models"
)

const timeFormat = "02.01.2006 15:04:05"

// statusText is the human wording of a lifecycle state.
func statusText(s domain.TxStatus) string {
	switch s {
	case domain.TxStatusNew:
		return "awaiting processing"
	case domain.TxStatusGwError:
		return "gateway send error"
	case domain.TxStatusGwPayed:
		return "payed"
	case domain.TxStatusGwRejected:
		return "rejected by gateway"
	case domain.TxStatusGwSend:
		return "sent to gateway"
	case domain.TxStatusAdminAccepted:
		return "approved"
	case domain.TxStatusAdminRejected:
		return "declined"
	default:
		return "unknown"
	}
}

func typeSym(t domain.TxType) string {
	if t.IsPayin() {
		return "→"
	}
	return "←"
}

func typeText(t domain.TxType) string {
	if t.IsPayin() {
		return "payin"
	}
	return "payout"
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(timeFormat)
}

func amountText(micros int64, currency string) string {
	return domain.NewMoney(micros, currency).String()
}

// ShortText renders the user-facing form of a transaction, omitting
// operational detail.
func ShortText(tx *models.Transaction) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s[%d] %s\n", typeSym(tx.Type), tx.ID, typeText(tx.Type))
	fmt.Fprintf(&b, "Amount: %s\n", amountText(tx.Amount, tx.Currency))
	fmt.Fprintf(&b, "Created: %s\n", tx.CreatedAt.Format(timeFormat))
	fmt.Fprintf(&b, "Status: %s", statusText(tx.Status))
	if tx.Status == domain.TxStatusAdminRejected && tx.RejectCause != nil {
		fmt.Fprintf(&b, "\nReason: %s", *tx.RejectCause)
	}
	return b.String()
}

// FullText renders the admin-group form including operational detail.
func FullText(tx *models.Transaction) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s[%d] %s\n", typeSym(tx.Type), tx.ID, typeText(tx.Type))
	if tx.Ext != nil {
		fmt.Fprintf(&b, "USER ID: %s\n", tx.Ext.Ext)
	}
	fmt.Fprintf(&b, "Amount: %s", amountText(tx.Amount, tx.Currency))
	if tx.Type == domain.TxTypePayout || tx.Type == domain.TxTypeSpecialPayout {
		fmt.Fprintf(&b, "\nTip: %s", amountText(tx.PayoutTip, tx.Currency))
	}
	fmt.Fprintf(&b, "\nCreated: %s\n", tx.CreatedAt.Format(timeFormat))
	fmt.Fprintf(&b, "Processed: %s", formatTime(tx.AdminActionAt))

	switch tx.Type {
	case domain.TxTypeSpecialPayin:
		if tx.User != nil && tx.User.Account != nil {
			fmt.Fprintf(&b, "\nAccount: %s", tx.User.Account.Name)
		}
	case domain.TxTypeSpecialPayout:
		if tx.PayoutDstAddress != nil {
			fmt.Fprintf(&b, "\nAccount: %s", *tx.PayoutDstAddress)
		}
	}

	fmt.Fprintf(&b, "\nStatus: %s", statusText(tx.Status))

	if tx.Type == domain.TxTypePayin {
		switch tx.Status {
		case domain.TxStatusGwPayed, domain.TxStatusAdminAccepted, domain.TxStatusAdminRejected:
			if tx.PayinAmount != nil {
				fmt.Fprintf(&b, "\nConfirmed amount: %s", amountText(*tx.PayinAmount, tx.Currency))
			} else {
				b.WriteString("\nConfirmed amount: -")
			}
		}
	}
	if tx.Type == domain.TxTypePayout {
		src, dst := "", ""
		if tx.PayoutSrcAddress != nil {
			src = *tx.PayoutSrcAddress
		}
		if tx.PayoutDstAddress != nil {
			dst = *tx.PayoutDstAddress
		}
		fmt.Fprintf(&b, "\nSource address:\n%s\nDestination address: %s", src, dst)
	}
	if tx.GwError != nil {
		fmt.Fprintf(&b, "\nGateway error: %s", *tx.GwError)
	}
	if tx.RejectCause != nil {
		fmt.Fprintf(&b, "\nReject cause: %s", *tx.RejectCause)
	}
	return b.String()
}

// Headline prefixes the rendered body with the event wording.
func Headline(tx *models.Transaction) string {
	switch {
	case tx.Status == domain.TxStatusAdminAccepted || tx.Status == domain.TxStatusGwSend:
		return "Transaction approved."
	case tx.Status == domain.TxStatusAdminRejected || tx.Status == domain.TxStatusGwRejected:
		return "Transaction declined."
	case tx.Status == domain.TxStatusGwPayed:
		return "Transaction payed."
	case tx.Status == domain.TxStatusGwError:
		return "Transaction failed."
	default:
		return "Transaction update."
	}
}

// AcceptAction and DenyAction are the callback-data verbs attached to
// actionable admin messages.
const (
	AcceptAction = "accept"
	DenyAction   = "deny"
)

// TxActions builds the accept/deny buttons valid for the transaction's
// current type and status.
func TxActions(tx *models.Transaction) []Action {
	var actions []Action
	if tx.CanAccept() {
		actions = append(actions, Action{Label: "Approve", Data: ActionData(AcceptAction, tx.ID)})
	}
	if tx.CanDeny() {
		actions = append(actions, Action{Label: "Decline", Data: ActionData(DenyAction, tx.ID)})
	}
	return actions
}

// ActionData encodes an admin decision callback payload.
func ActionData(verb string, txID int64) string {
	return "tx:" + verb + ":" + strconv.FormatInt(txID, 10)
}

// ParseActionData decodes an admin decision callback payload.
func ParseActionData(data string) (verb string, txID int64, ok bool) {
	parts := strings.Split(data, ":")
	if len(parts) != 3 || parts[0] != "tx" {
		return "", 0, false
	}
	id, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return "", 0, false
	}
	return parts[1], id, true
}
