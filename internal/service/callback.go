package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/altynbek07/invbot/internal/domain"
	"github.com/altynbek07/invbot/internal/models"
	"github.com/altynbek07/invbot/internal/notify"
	"github.com/altynbek07/invbot/internal/observability"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// Deduper absorbs gateway callback redeliveries. Nil disables deduping.
type Deduper interface {
	FirstSeen(ctx context.Context, key string) (bool, error)
}

// CallbackService validates inbound gateway callbacks and maps them
// onto existing or newly created transactions.
type CallbackService struct {
	store      QueryStore
	dispatcher *notify.Dispatcher
	deduper    Deduper
}

func NewCallbackService(store QueryStore, dispatcher *notify.Dispatcher, deduper Deduper) *CallbackService {
	return &CallbackService{store: store, dispatcher: dispatcher, deduper: deduper}
}

// Callback is a validated inbound gateway callback.
type Callback struct {
	ExternalID   string
	Type         int
	Amount       float64
	RequestID    *int64
	Error        *string
	Currency     string
	GwTxID       *int64
	BlockchainID *string
}

type rawCallback struct {
	ExternalID   json.RawMessage `json:"ExternalId"`
	Type         json.RawMessage `json:"Type"`
	Amount       json.RawMessage `json:"Amount"`
	RequestID    json.RawMessage `json:"RequestId"`
	Error        json.RawMessage `json:"Error"`
	Currency     string          `json:"Currency"`
	ID           *int64          `json:"Id"`
	TxID         *string         `json:"TxId"`
}

// ParseCallback validates the callback body: it must be a JSON object
// with a coercible ExternalId, Type and Amount. Anything else fails the
// whole callback with a client error and no state is mutated.
func ParseCallback(body []byte) (*Callback, error) {
	var raw rawCallback
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("body must be a json object: %w", err)
	}

	extID, err := coerceString(raw.ExternalID)
	if err != nil {
		return nil, fmt.Errorf("ExternalId: %w", err)
	}
	txType, err := coerceInt(raw.Type)
	if err != nil {
		return nil, fmt.Errorf("Type: %w", err)
	}
	amount, err := coerceFloat(raw.Amount)
	if err != nil {
		return nil, fmt.Errorf("Amount: %w", err)
	}

	cb := &Callback{
		ExternalID:   extID,
		Type:         int(txType),
		Amount:       amount,
		Currency:     raw.Currency,
		GwTxID:       raw.ID,
		BlockchainID: raw.TxID,
	}
	if cb.Currency == "" {
		cb.Currency = domain.DefaultCurrency
	}

	// RequestId is optional here; the withdrawal path checks for it.
	if reqID, err := coerceInt(raw.RequestID); err == nil {
		cb.RequestID = &reqID
	}
	if cbErr := coerceError(raw.Error); cbErr != "" {
		cb.Error = &cbErr
	}
	return cb, nil
}

// Key identifies a callback for redelivery deduplication. It is empty
// when the callback carries no unique event identifier (Id, TxId or
// RequestId): two distinct on-chain deposits of the same amount from
// the same user would collide on ext:type:amount alone, so such
// callbacks are never deduped.
func (c *Callback) Key() string {
	parts := []string{c.ExternalID, strconv.Itoa(c.Type), strconv.FormatFloat(c.Amount, 'f', -1, 64)}
	unique := false
	if c.GwTxID != nil {
		parts = append(parts, strconv.FormatInt(*c.GwTxID, 10))
		unique = true
	}
	if c.BlockchainID != nil {
		parts = append(parts, *c.BlockchainID)
		unique = true
	}
	if c.RequestID != nil {
		parts = append(parts, strconv.FormatInt(*c.RequestID, 10))
		unique = true
	}
	if !unique {
		return ""
	}
	return strings.Join(parts, ":")
}

// Handle maps a validated callback onto a transaction and advances it.
//
// Deposits create a brand-new PAYIN transaction after the fact of the
// money arriving; withdrawals resolve the row-locked transaction named
// by RequestId. The callback's reported amount is authoritative for
// pay-in confirmation.
func (s *CallbackService) Handle(ctx context.Context, cb *Callback) (*models.Transaction, error) {
	if key := cb.Key(); s.deduper != nil && key != "" {
		first, err := s.deduper.FirstSeen(ctx, key)
		if err != nil {
			zap.L().Warn("callback dedupe unavailable, processing anyway", zap.Error(err))
		} else if !first {
			observability.IncrementCallback("duplicate")
			return nil, ErrDuplicateCallback
		}
	}

	var tx *models.Transaction
	err := s.store.RunInTx(ctx, func(q Querier) error {
		ext, err := q.GetExtByExt(ctx, cb.ExternalID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrExtNotFound
			}
			return fmt.Errorf("resolve ext: %w", err)
		}

		switch cb.Type {
		case domain.GatewayTypeDeposit:
			// Unsolicited-deposit path: record first, then advance.
			tx = &models.Transaction{
				Type:     domain.TxTypePayin,
				Status:   domain.TxStatusNew,
				Currency: cb.Currency,
				Amount:   domain.MoneyFromFloat(cb.Amount, cb.Currency).Amount,
				UserID:   ext.UserID,
				ExtID:    ext.ID,
			}
			payin := tx.Amount
			tx.PayinAmount = &payin
			if err := q.CreateTransaction(ctx, tx); err != nil {
				return err
			}
		case domain.GatewayTypeWithdrawal:
			if cb.RequestID == nil {
				return fmt.Errorf("%w: withdrawal callback without RequestId", ErrTxNotFound)
			}
			tx, err = q.GetTransactionForUpdate(ctx, *cb.RequestID)
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return ErrTxNotFound
				}
				return fmt.Errorf("resolve withdrawal transaction: %w", err)
			}
		default:
			return fmt.Errorf("unknown gateway callback type %d", cb.Type)
		}

		now := time.Now().UTC()
		tx.GwCallbackAt = &now

		if cb.Error != nil {
			tx.Status = domain.TxStatusGwRejected
			tx.GwError = cb.Error
		} else {
			tx.Status = domain.TxStatusGwPayed
			tx.GwTxID = cb.GwTxID
			tx.GwBlockchainID = cb.BlockchainID
			if tx.Type == domain.TxTypePayin {
				confirmed := domain.MoneyFromFloat(cb.Amount, cb.Currency).Amount
				tx.PayinAmount = &confirmed
			}
		}

		rows, err := q.UpdateTransaction(ctx, tx)
		if err != nil {
			return err
		}
		return requireExactlyOne(rows, "apply gateway callback")
	})
	if err != nil {
		observability.IncrementCallback("rejected")
		return nil, err
	}
	observability.IncrementCallback(tx.Status.String())

	if err := s.loadRelated(ctx, tx); err != nil {
		zap.L().Error("load related after callback failed", zap.Int64("tx_id", tx.ID), zap.Error(err))
		return tx, nil
	}
	s.dispatcher.CallbackProcessed(ctx, tx)
	return tx, nil
}

func (s *CallbackService) loadRelated(ctx context.Context, tx *models.Transaction) error {
	q := s.store.Queries()
	user, err := q.GetUser(ctx, tx.UserID)
	if err != nil {
		return fmt.Errorf("load callback user: %w", err)
	}
	ext, err := q.GetExt(ctx, tx.ExtID)
	if err != nil {
		return fmt.Errorf("load callback ext: %w", err)
	}
	tx.User = user
	tx.Ext = ext
	return nil
}

func coerceString(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", errors.New("missing")
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), nil
	}
	return "", errors.New("not coercible to string")
}

func coerceInt(raw json.RawMessage) (int64, error) {
	if len(raw) == 0 {
		return 0, errors.New("missing")
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
			return v, nil
		}
	}
	return 0, errors.New("not coercible to int")
}

func coerceFloat(raw json.RawMessage) (float64, error) {
	if len(raw) == 0 {
		return 0, errors.New("missing")
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return v, nil
		}
	}
	return 0, errors.New("not coercible to float")
}

// coerceError flattens the Error payload: a plain string, an object
// with a Code field, or null.
func coerceError(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		Code string `json:"Code"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.Code
	}
	return string(raw)
}
