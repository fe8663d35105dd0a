package models

import (
	"time"

	"github.com/altynbek07/invbot/internal/domain"
)

// Account is a named external settlement target for special currencies.
type Account struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// User is a chat participant. Created on first successful contact
// sharing, updated on every interaction, never hard-deleted.
type User struct {
	ID          int64     `json:"id"`
	PhoneNumber string    `json:"phone_number"`
	UserID      int64     `json:"user_id"` // platform user id
	ChatID      int64     `json:"chat_id"` // private chat id
	BcastStatus bool      `json:"bcast_status"`
	LastVisited time.Time `json:"last_visited"`
	Username    *string   `json:"username,omitempty"`
	FirstName   *string   `json:"first_name,omitempty"`
	LastName    *string   `json:"last_name,omitempty"`
	AccountID   *int64    `json:"account_id,omitempty"`
	Account     *Account  `json:"account,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Ext is a user-supplied identifier correlating gateway deposits to a
// user. Immutable once created; uniqueness enforced by the database.
type Ext struct {
	ID        int64     `json:"id"`
	Ext       string    `json:"ext"`
	Path      string    `json:"path"` // opaque routing path, uuid hex
	UserID    int64     `json:"user_id"`
	User      *User     `json:"user,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Transaction is the audit-trail entity driven by the lifecycle state
// machine. Exactly one owning user and ext at all times; rows are never
// deleted.
type Transaction struct {
	ID     int64           `json:"id"`
	UserID int64           `json:"user_id"`
	User   *User           `json:"user,omitempty"`
	ExtID  int64           `json:"ext_id"`
	Ext    *Ext            `json:"ext,omitempty"`
	Type   domain.TxType   `json:"tx_type"`
	Status domain.TxStatus `json:"status"`

	Currency    string `json:"currency"`
	Amount      int64  `json:"amount"`       // micros
	PayinAmount *int64 `json:"payin_amount"` // micros, confirmed by gateway

	PayinAddress     *string `json:"payin_address,omitempty"`
	PayoutSrcAddress *string `json:"payout_src_address,omitempty"`
	PayoutDstAddress *string `json:"payout_dst_address,omitempty"`
	PayoutTip        int64   `json:"payout_tip"` // micros

	GwError        *string `json:"gw_error,omitempty"`
	GwTxID         *int64  `json:"gw_tx_id,omitempty"`
	GwBlockchainID *string `json:"gw_blockchain_id,omitempty"`

	AdminActionAt *time.Time `json:"admin_action_at,omitempty"`
	GwCallbackAt  *time.Time `json:"gw_cb_at,omitempty"`

	RejectCause *string `json:"reject_cause,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CanAccept reports whether an admin accept is currently valid.
func (t *Transaction) CanAccept() bool {
	return domain.CanAccept(t.Type, t.Status)
}

// CanDeny reports whether an admin deny is currently valid.
func (t *Transaction) CanDeny() bool {
	return domain.CanDeny(t.Type, t.Status)
}

// IsError reports whether the gateway failed or rejected the transaction.
func (t *Transaction) IsError() bool {
	return t.Status.IsError()
}

// Admin is a cached membership record of the designated admin group.
type Admin struct {
	ID          int64   `json:"id"`
	UserID      int64   `json:"user_id"`
	Username    *string `json:"username,omitempty"`
	PhoneNumber *string `json:"phone_number,omitempty"`
}

// Setting is a process-wide key/value record, e.g. the admin group id.
type Setting struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Value string `json:"value"` // JSON-encoded
}
