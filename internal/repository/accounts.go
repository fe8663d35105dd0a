package repository

import (
	"context"
	"fmt"

	"github.com/altynbek07/invbot/internal/models"
)

// CreateAccount inserts a named settlement account.
func (q *Queries) CreateAccount(ctx context.Context, a *models.Account) error {
	query := `INSERT INTO accounts (name) VALUES ($1) RETURNING id, created_at, updated_at`
	err := q.db.QueryRow(ctx, query, a.Name).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

// GetAccount loads an account by id.
func (q *Queries) GetAccount(ctx context.Context, id int64) (*models.Account, error) {
	query := `SELECT id, name, created_at, updated_at FROM accounts WHERE id = $1`
	a := &models.Account{}
	err := q.db.QueryRow(ctx, query, id).Scan(&a.ID, &a.Name, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// GetAccountByName loads an account by its unique name.
func (q *Queries) GetAccountByName(ctx context.Context, name string) (*models.Account, error) {
	query := `SELECT id, name, created_at, updated_at FROM accounts WHERE name = $1`
	a := &models.Account{}
	err := q.db.QueryRow(ctx, query, name).Scan(&a.ID, &a.Name, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// ListAccounts returns accounts newest first.
func (q *Queries) ListAccounts(ctx context.Context, limit int32) ([]models.Account, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT id, name, created_at, updated_at FROM accounts ORDER BY id DESC LIMIT $1`
	rows, err := q.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		var a models.Account
		if err := rows.Scan(&a.ID, &a.Name, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}
