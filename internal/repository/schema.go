package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		phone_number TEXT NOT NULL UNIQUE,
		user_id BIGINT NOT NULL UNIQUE,
		chat_id BIGINT NOT NULL UNIQUE,
		bcast_status BOOLEAN NOT NULL DEFAULT TRUE,
		last_visited TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		username TEXT,
		first_name TEXT,
		last_name TEXT,
		account_id BIGINT REFERENCES accounts(id) ON DELETE SET NULL ON UPDATE CASCADE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_users_bcast ON users (bcast_status)`,
	`CREATE TABLE IF NOT EXISTS exts (
		id BIGSERIAL PRIMARY KEY,
		ext TEXT NOT NULL UNIQUE,
		path TEXT NOT NULL UNIQUE,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE ON UPDATE CASCADE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE ON UPDATE CASCADE,
		ext_id BIGINT NOT NULL REFERENCES exts(id) ON DELETE CASCADE ON UPDATE CASCADE,
		tx_type SMALLINT NOT NULL DEFAULT 0,
		status SMALLINT NOT NULL DEFAULT 0,
		currency TEXT NOT NULL,
		amount BIGINT NOT NULL,
		payin_amount BIGINT,
		payin_address TEXT,
		payout_src_address TEXT,
		payout_dst_address TEXT,
		payout_tip BIGINT NOT NULL DEFAULT 0,
		gw_error TEXT,
		gw_tx_id BIGINT,
		gw_blockchain_id TEXT,
		admin_action_at TIMESTAMPTZ,
		gw_cb_at TIMESTAMPTZ,
		reject_cause TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_type ON transactions (tx_type)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_created ON transactions (created_at)`,
	`CREATE TABLE IF NOT EXISTS admins (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL UNIQUE,
		username TEXT,
		phone_number TEXT UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS settings (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		value JSONB NOT NULL
	)`,
}

// Migrate creates all tables if they do not exist yet.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
