package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/altynbek07/invbot/internal/models"
	"github.com/jackc/pgx/v5"
)

const userColumns = `id, phone_number, user_id, chat_id, bcast_status, last_visited,
	username, first_name, last_name, account_id, created_at, updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(
		&u.ID, &u.PhoneNumber, &u.UserID, &u.ChatID, &u.BcastStatus, &u.LastVisited,
		&u.Username, &u.FirstName, &u.LastName, &u.AccountID, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// CreateUser inserts a user registered via contact sharing.
// Returns ErrDuplicate when the phone number or platform id is taken.
func (q *Queries) CreateUser(ctx context.Context, u *models.User) error {
	query := `INSERT INTO users (phone_number, user_id, chat_id, bcast_status, last_visited, username, first_name, last_name)
		VALUES ($1, $2, $3, $4, NOW(), $5, $6, $7)
		RETURNING id, last_visited, created_at, updated_at`
	err := q.db.QueryRow(ctx, query,
		u.PhoneNumber, u.UserID, u.ChatID, u.BcastStatus, u.Username, u.FirstName, u.LastName,
	).Scan(&u.ID, &u.LastVisited, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// GetUserByUserID loads a user by its platform user id.
func (q *Queries) GetUserByUserID(ctx context.Context, userID int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE user_id = $1`
	return scanUser(q.db.QueryRow(ctx, query, userID))
}

// GetUser loads a user by internal id.
func (q *Queries) GetUser(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(q.db.QueryRow(ctx, query, id))
}

// TouchUser updates last-seen bookkeeping on every interaction.
func (q *Queries) TouchUser(ctx context.Context, id int64, at time.Time) error {
	query := `UPDATE users SET last_visited = $2, updated_at = NOW() WHERE id = $1`
	if _, err := q.db.Exec(ctx, query, id, at); err != nil {
		return fmt.Errorf("touch user: %w", err)
	}
	return nil
}

// SetUserAccount links a user to a settlement account.
func (q *Queries) SetUserAccount(ctx context.Context, id, accountID int64) (int64, error) {
	query := `UPDATE users SET account_id = $2, updated_at = NOW() WHERE id = $1`
	tag, err := q.db.Exec(ctx, query, id, accountID)
	if err != nil {
		return 0, fmt.Errorf("set user account: %w", err)
	}
	return tag.RowsAffected(), nil
}

// SetBcastStatus flips the broadcast opt-in flag.
func (q *Queries) SetBcastStatus(ctx context.Context, id int64, status bool) error {
	query := `UPDATE users SET bcast_status = $2, updated_at = NOW() WHERE id = $1`
	if _, err := q.db.Exec(ctx, query, id, status); err != nil {
		return fmt.Errorf("set bcast status: %w", err)
	}
	return nil
}

// ListBroadcastUsers returns all users opted in to broadcasts.
func (q *Queries) ListBroadcastUsers(ctx context.Context) ([]models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE bcast_status ORDER BY id`
	rows, err := q.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list broadcast users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}
