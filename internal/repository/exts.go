package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/altynbek07/invbot/internal/models"
	"github.com/google/uuid"
)

// CreateExts inserts identifiers for a user in one statement.
// Exts are immutable: a duplicate anywhere fails the whole batch with
// ErrDuplicate and nothing is written.
func (q *Queries) CreateExts(ctx context.Context, userID int64, exts []string) error {
	if len(exts) == 0 {
		return nil
	}
	values := make([]string, 0, len(exts))
	args := make([]any, 0, len(exts)*3)
	for i, ext := range exts {
		values = append(values, fmt.Sprintf("($%d, $%d, $%d)", i*3+1, i*3+2, i*3+3))
		path := strings.ReplaceAll(uuid.NewString(), "-", "")
		args = append(args, ext, path, userID)
	}
	query := `INSERT INTO exts (ext, path, user_id) VALUES ` + strings.Join(values, ", ")
	if _, err := q.db.Exec(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create exts: %w", err)
	}
	return nil
}

// GetExtByExt resolves an external identifier string with its owner.
func (q *Queries) GetExtByExt(ctx context.Context, ext string) (*models.Ext, error) {
	query := `SELECT e.id, e.ext, e.path, e.user_id, e.created_at, ` + prefixedUserColumns("u") + `
		FROM exts e JOIN users u ON u.id = e.user_id
		WHERE e.ext = $1`
	row := q.db.QueryRow(ctx, query, ext)

	e := &models.Ext{}
	u := &models.User{}
	err := row.Scan(
		&e.ID, &e.Ext, &e.Path, &e.UserID, &e.CreatedAt,
		&u.ID, &u.PhoneNumber, &u.UserID, &u.ChatID, &u.BcastStatus, &u.LastVisited,
		&u.Username, &u.FirstName, &u.LastName, &u.AccountID, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.User = u
	return e, nil
}

// GetExt loads an identifier by internal id.
func (q *Queries) GetExt(ctx context.Context, id int64) (*models.Ext, error) {
	query := `SELECT id, ext, path, user_id, created_at FROM exts WHERE id = $1`
	e := &models.Ext{}
	err := q.db.QueryRow(ctx, query, id).Scan(&e.ID, &e.Ext, &e.Path, &e.UserID, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// ListExtsByUser returns the user's latest identifiers.
func (q *Queries) ListExtsByUser(ctx context.Context, userID int64, limit int32) ([]models.Ext, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT id, ext, path, user_id, created_at FROM exts
		WHERE user_id = $1 ORDER BY id DESC LIMIT $2`
	rows, err := q.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list exts: %w", err)
	}
	defer rows.Close()

	var exts []models.Ext
	for rows.Next() {
		var e models.Ext
		if err := rows.Scan(&e.ID, &e.Ext, &e.Path, &e.UserID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ext: %w", err)
		}
		exts = append(exts, e)
	}
	return exts, rows.Err()
}

func prefixedUserColumns(alias string) string {
	cols := []string{
		"id", "phone_number", "user_id", "chat_id", "bcast_status", "last_visited",
		"username", "first_name", "last_name", "account_id", "created_at", "updated_at",
	}
	for i, c := range cols {
		cols[i] = alias + "." + c
	}
	return strings.Join(cols, ", ")
}
