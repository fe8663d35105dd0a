package repository

import (
	"context"
	"fmt"
)

// GetSettingValue loads a raw JSON-encoded setting value.
func (q *Queries) GetSettingValue(ctx context.Context, name string) (string, error) {
	query := `SELECT value::text FROM settings WHERE name = $1`
	var value string
	if err := q.db.QueryRow(ctx, query, name).Scan(&value); err != nil {
		return "", err
	}
	return value, nil
}

// SetSettingValue upserts a JSON-encoded setting value.
func (q *Queries) SetSettingValue(ctx context.Context, name, value string) error {
	query := `INSERT INTO settings (name, value) VALUES ($1, $2::jsonb)
		ON CONFLICT (name) DO UPDATE SET value = EXCLUDED.value`
	if _, err := q.db.Exec(ctx, query, name, value); err != nil {
		return fmt.Errorf("set setting %s: %w", name, err)
	}
	return nil
}
