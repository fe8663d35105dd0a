package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/altynbek07/invbot/internal/domain"
	"github.com/altynbek07/invbot/internal/models"
	"github.com/jackc/pgx/v5"
)

const txColumns = `id, user_id, ext_id, tx_type, status, currency, amount, payin_amount,
	payin_address, payout_src_address, payout_dst_address, payout_tip,
	gw_error, gw_tx_id, gw_blockchain_id, admin_action_at, gw_cb_at, reject_cause,
	created_at, updated_at`

func scanTransaction(row pgx.Row) (*models.Transaction, error) {
	t := &models.Transaction{}
	err := row.Scan(
		&t.ID, &t.UserID, &t.ExtID, &t.Type, &t.Status, &t.Currency, &t.Amount, &t.PayinAmount,
		&t.PayinAddress, &t.PayoutSrcAddress, &t.PayoutDstAddress, &t.PayoutTip,
		&t.GwError, &t.GwTxID, &t.GwBlockchainID, &t.AdminActionAt, &t.GwCallbackAt, &t.RejectCause,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// CreateTransaction inserts a new transaction and fills generated fields.
func (q *Queries) CreateTransaction(ctx context.Context, t *models.Transaction) error {
	query := `INSERT INTO transactions (
			user_id, ext_id, tx_type, status, currency, amount, payin_amount,
			payin_address, payout_src_address, payout_dst_address, payout_tip
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at`
	err := q.db.QueryRow(ctx, query,
		t.UserID, t.ExtID, t.Type, t.Status, t.Currency, t.Amount, t.PayinAmount,
		t.PayinAddress, t.PayoutSrcAddress, t.PayoutDstAddress, t.PayoutTip,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}
	return nil
}

// GetTransaction loads a transaction by id without locking.
func (q *Queries) GetTransaction(ctx context.Context, id int64) (*models.Transaction, error) {
	query := `SELECT ` + txColumns + ` FROM transactions WHERE id = $1`
	return scanTransaction(q.db.QueryRow(ctx, query, id))
}

// GetTransactionForUpdate loads a transaction with an exclusive row lock.
// Must run inside RunInTx; the lock is held until commit so at most one
// admin decision or callback mutates the row at a time.
func (q *Queries) GetTransactionForUpdate(ctx context.Context, id int64) (*models.Transaction, error) {
	query := `SELECT ` + txColumns + ` FROM transactions WHERE id = $1 FOR UPDATE`
	return scanTransaction(q.db.QueryRow(ctx, query, id))
}

// UpdateTransaction persists all mutable transaction fields.
func (q *Queries) UpdateTransaction(ctx context.Context, t *models.Transaction) (int64, error) {
	query := `UPDATE transactions SET
			status = $2, payin_amount = $3, payin_address = $4,
			payout_src_address = $5, payout_dst_address = $6,
			gw_error = $7, gw_tx_id = $8, gw_blockchain_id = $9,
			admin_action_at = $10, gw_cb_at = $11, reject_cause = $12,
			updated_at = NOW()
		WHERE id = $1`
	tag, err := q.db.Exec(ctx, query,
		t.ID, t.Status, t.PayinAmount, t.PayinAddress,
		t.PayoutSrcAddress, t.PayoutDstAddress,
		t.GwError, t.GwTxID, t.GwBlockchainID,
		t.AdminActionAt, t.GwCallbackAt, t.RejectCause,
	)
	if err != nil {
		return 0, fmt.Errorf("update transaction: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ListTransactionsForProcessing returns transactions still awaiting an
// admin decision, newest first.
func (q *Queries) ListTransactionsForProcessing(ctx context.Context, limit int32) ([]models.Transaction, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + txColumns + ` FROM transactions
		WHERE (tx_type = $1 AND status = $2)
		   OR (tx_type = $3 AND status = $4)
		   OR (tx_type = $5 AND status = $4)
		   OR (tx_type = $6 AND status = $4)
		ORDER BY id DESC LIMIT $7`
	rows, err := q.db.Query(ctx, query,
		domain.TxTypePayin, domain.TxStatusGwPayed,
		domain.TxTypePayout, domain.TxStatusNew,
		domain.TxTypeSpecialPayin, domain.TxTypeSpecialPayout,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list transactions for processing: %w", err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

// ListTransactionsByDateRange streams transactions created in
// [start, stop) for reporting. Snapshot reads, no row locks.
func (q *Queries) ListTransactionsByDateRange(ctx context.Context, start, stop time.Time) ([]models.Transaction, error) {
	query := `SELECT ` + txColumns + ` FROM transactions
		WHERE created_at >= $1 AND created_at < $2
		ORDER BY id`
	rows, err := q.db.Query(ctx, query, start, stop)
	if err != nil {
		return nil, fmt.Errorf("list transactions by date range: %w", err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

func collectTransactions(rows pgx.Rows) ([]models.Transaction, error) {
	var out []models.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}
