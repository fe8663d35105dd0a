package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/altynbek07/invbot/internal/domain"
	"github.com/altynbek07/invbot/internal/gateway"
	"github.com/altynbek07/invbot/internal/models"
	"github.com/altynbek07/invbot/internal/notify"
	"github.com/altynbek07/invbot/internal/observability"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// TransactionService drives the transaction lifecycle state machine:
// admin accept/deny decisions and the gateway dispatch nested in payout
// acceptance.
type TransactionService struct {
	store      QueryStore
	gateway    gateway.Gateway
	dispatcher *notify.Dispatcher
	autoPayout bool
}

func NewTransactionService(store QueryStore, gw gateway.Gateway, dispatcher *notify.Dispatcher, autoPayout bool) *TransactionService {
	return &TransactionService{
		store:      store,
		gateway:    gw,
		dispatcher: dispatcher,
		autoPayout: autoPayout,
	}
}

// Accept applies an admin accept decision. The transaction row is
// locked for the whole transition; for payouts with automatic payout
// enabled the gateway withdrawal runs inside the same scope, so the
// decision and the dispatch are atomic with respect to concurrent admin
// actions. The held-lock network call is a deliberate
// consistency-over-latency tradeoff at this volume.
//
// Returns the transaction in its resulting state. On ErrCannotAccept
// the returned transaction reflects the current, unmodified state so
// callers can re-render it.
func (s *TransactionService) Accept(ctx context.Context, txID int64) (*models.Transaction, error) {
	var tx *models.Transaction
	err := s.store.RunInTx(ctx, func(q Querier) error {
		var err error
		tx, err = q.GetTransactionForUpdate(ctx, txID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrTxNotFound
			}
			return fmt.Errorf("load transaction for accept: %w", err)
		}
		if !tx.CanAccept() {
			return ErrCannotAccept
		}

		now := time.Now().UTC()
		tx.AdminActionAt = &now
		tx.Status = domain.TxStatusAdminAccepted

		if tx.Type == domain.TxTypePayout && s.autoPayout {
			if err := s.loadRelated(ctx, q, tx); err != nil {
				return err
			}
			s.payoutCrypto(ctx, tx)
		}

		rows, err := q.UpdateTransaction(ctx, tx)
		if err != nil {
			return err
		}
		return requireExactlyOne(rows, "accept transaction")
	})
	if err != nil {
		if errors.Is(err, ErrCannotAccept) {
			observability.IncrementAdminDecision("accept", "noop")
			return tx, err
		}
		observability.IncrementAdminDecision("accept", "error")
		return nil, err
	}
	observability.IncrementAdminDecision("accept", tx.Status.String())

	// Outside the lock: exactly one user notification, plus the admin
	// group for payout/special flows.
	s.notifyAfterDecision(ctx, tx)
	return tx, nil
}

// Deny applies an admin deny decision with a rejection cause.
func (s *TransactionService) Deny(ctx context.Context, txID int64, cause string) (*models.Transaction, error) {
	var tx *models.Transaction
	err := s.store.RunInTx(ctx, func(q Querier) error {
		var err error
		tx, err = q.GetTransactionForUpdate(ctx, txID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrTxNotFound
			}
			return fmt.Errorf("load transaction for deny: %w", err)
		}
		if !tx.CanDeny() {
			return ErrCannotDeny
		}

		now := time.Now().UTC()
		tx.AdminActionAt = &now
		tx.Status = domain.TxStatusAdminRejected
		if cause != "" {
			tx.RejectCause = &cause
		}

		rows, err := q.UpdateTransaction(ctx, tx)
		if err != nil {
			return err
		}
		return requireExactlyOne(rows, "deny transaction")
	})
	if err != nil {
		if errors.Is(err, ErrCannotDeny) {
			observability.IncrementAdminDecision("deny", "noop")
			return tx, err
		}
		observability.IncrementAdminDecision("deny", "error")
		return nil, err
	}
	observability.IncrementAdminDecision("deny", tx.Status.String())

	s.notifyAfterDecision(ctx, tx)
	return tx, nil
}

// payoutCrypto invokes the gateway withdrawal and folds the outcome
// into the transaction status. Transport failures become GW_ERROR and
// are never propagated: the decision itself must still commit.
func (s *TransactionService) payoutCrypto(ctx context.Context, tx *models.Transaction) {
	res, err := s.gateway.Withdraw(ctx, tx)
	if err != nil {
		zap.L().Error("gateway withdraw failed", zap.Int64("tx_id", tx.ID), zap.Error(err))
		observability.IncrementGatewayCall("withdraw", "error")
		tx.Status = domain.TxStatusGwError
		return
	}

	if res.StatusCode == http.StatusOK && res.Body != nil && res.Body.Status == gateway.StatusSuccess {
		observability.IncrementGatewayCall("withdraw", "ok")
		tx.Status = domain.TxStatusGwSend
		return
	}

	if res.Body == nil {
		observability.IncrementGatewayCall("withdraw", "error")
		tx.Status = domain.TxStatusGwError
		return
	}

	if res.Body.ErrorCode != "" {
		code := res.Body.ErrorCode
		tx.GwError = &code
	}
	if res.StatusCode != http.StatusOK {
		observability.IncrementGatewayCall("withdraw", "error")
		tx.Status = domain.TxStatusGwError
	} else {
		observability.IncrementGatewayCall("withdraw", "rejected")
		tx.Status = domain.TxStatusGwRejected
	}
}

// Get loads a transaction with its related user and ext, no locking.
func (s *TransactionService) Get(ctx context.Context, txID int64) (*models.Transaction, error) {
	q := s.store.Queries()
	tx, err := q.GetTransaction(ctx, txID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTxNotFound
		}
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	if err := s.loadRelated(ctx, q, tx); err != nil {
		return nil, err
	}
	return tx, nil
}

// ListForProcessing returns transactions still awaiting an admin
// decision, related records attached.
func (s *TransactionService) ListForProcessing(ctx context.Context, limit int32) ([]models.Transaction, error) {
	q := s.store.Queries()
	txs, err := q.ListTransactionsForProcessing(ctx, limit)
	if err != nil {
		return nil, err
	}
	for i := range txs {
		if err := s.loadRelated(ctx, q, &txs[i]); err != nil {
			return nil, err
		}
	}
	return txs, nil
}

// loadRelated attaches the owning user (with account) and ext.
func (s *TransactionService) loadRelated(ctx context.Context, q Querier, tx *models.Transaction) error {
	user, err := q.GetUser(ctx, tx.UserID)
	if err != nil {
		return fmt.Errorf("load transaction user: %w", err)
	}
	if user.AccountID != nil {
		account, err := q.GetAccount(ctx, *user.AccountID)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("load user account: %w", err)
		}
		user.Account = account
	}
	ext, err := q.GetExt(ctx, tx.ExtID)
	if err != nil {
		return fmt.Errorf("load transaction ext: %w", err)
	}
	tx.User = user
	tx.Ext = ext
	return nil
}

func (s *TransactionService) notifyAfterDecision(ctx context.Context, tx *models.Transaction) {
	if tx.User == nil || tx.Ext == nil {
		if err := s.loadRelated(ctx, s.store.Queries(), tx); err != nil {
			zap.L().Error("load related for notification failed", zap.Int64("tx_id", tx.ID), zap.Error(err))
			return
		}
	}
	s.dispatcher.TransactionChanged(ctx, tx)
}
