package repository

import (
	"context"
	"fmt"

	"github.com/altynbek07/invbot/internal/models"
)

// ListAdmins returns the cached admin-group membership.
func (q *Queries) ListAdmins(ctx context.Context) ([]models.Admin, error) {
	query := `SELECT id, user_id, username, phone_number FROM admins ORDER BY id`
	rows, err := q.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	defer rows.Close()

	var admins []models.Admin
	for rows.Next() {
		var a models.Admin
		if err := rows.Scan(&a.ID, &a.UserID, &a.Username, &a.PhoneNumber); err != nil {
			return nil, fmt.Errorf("scan admin: %w", err)
		}
		admins = append(admins, a)
	}
	return admins, rows.Err()
}

// DeleteAdmins removes admins by platform user ids.
func (q *Queries) DeleteAdmins(ctx context.Context, userIDs []int64) error {
	if len(userIDs) == 0 {
		return nil
	}
	query := `DELETE FROM admins WHERE user_id = ANY($1)`
	if _, err := q.db.Exec(ctx, query, userIDs); err != nil {
		return fmt.Errorf("delete admins: %w", err)
	}
	return nil
}

// InsertAdmins caches new admin-group members. Existing records are
// left untouched so concurrent syncs do not conflict.
func (q *Queries) InsertAdmins(ctx context.Context, admins []models.Admin) error {
	for _, a := range admins {
		query := `INSERT INTO admins (user_id, username) VALUES ($1, $2)
			ON CONFLICT (user_id) DO NOTHING`
		if _, err := q.db.Exec(ctx, query, a.UserID, a.Username); err != nil {
			return fmt.Errorf("insert admin %d: %w", a.UserID, err)
		}
	}
	return nil
}

// IsAdmin reports whether the platform user id belongs to the cached
// admin-group membership.
func (q *Queries) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM admins WHERE user_id = $1)`
	var exists bool
	if err := q.db.QueryRow(ctx, query, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check admin: %w", err)
	}
	return exists, nil
}
