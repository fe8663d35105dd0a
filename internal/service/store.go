package service

import (
	"context"
	"time"

	"github.com/altynbek07/invbot/internal/models"
	"github.com/altynbek07/invbot/internal/repository"
)

// Querier is the data access contract required by services. It is
// implemented by *repository.Queries; tests substitute an in-memory
// ledger so the state machine can be exercised without a database.
type Querier interface {
	CreateTransaction(ctx context.Context, t *models.Transaction) error
	GetTransaction(ctx context.Context, id int64) (*models.Transaction, error)
	GetTransactionForUpdate(ctx context.Context, id int64) (*models.Transaction, error)
	UpdateTransaction(ctx context.Context, t *models.Transaction) (int64, error)
	ListTransactionsForProcessing(ctx context.Context, limit int32) ([]models.Transaction, error)
	ListTransactionsByDateRange(ctx context.Context, start, stop time.Time) ([]models.Transaction, error)

	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetUserByUserID(ctx context.Context, userID int64) (*models.User, error)
	TouchUser(ctx context.Context, id int64, at time.Time) error
	SetUserAccount(ctx context.Context, id, accountID int64) (int64, error)
	SetBcastStatus(ctx context.Context, id int64, status bool) error
	ListBroadcastUsers(ctx context.Context) ([]models.User, error)

	CreateExts(ctx context.Context, userID int64, exts []string) error
	GetExt(ctx context.Context, id int64) (*models.Ext, error)
	GetExtByExt(ctx context.Context, ext string) (*models.Ext, error)
	ListExtsByUser(ctx context.Context, userID int64, limit int32) ([]models.Ext, error)

	CreateAccount(ctx context.Context, a *models.Account) error
	GetAccount(ctx context.Context, id int64) (*models.Account, error)
	GetAccountByName(ctx context.Context, name string) (*models.Account, error)
	ListAccounts(ctx context.Context, limit int32) ([]models.Account, error)

	ListAdmins(ctx context.Context) ([]models.Admin, error)
	DeleteAdmins(ctx context.Context, userIDs []int64) error
	InsertAdmins(ctx context.Context, admins []models.Admin) error
	IsAdmin(ctx context.Context, userID int64) (bool, error)

	GetSettingValue(ctx context.Context, name string) (string, error)
	SetSettingValue(ctx context.Context, name, value string) error
}

// QueryStore defines the minimal data access contract required by
// services: plain queries plus a transaction scope under which row
// locks are held.
type QueryStore interface {
	Queries() Querier
	RunInTx(ctx context.Context, fn func(q Querier) error) error
}

type pgStore struct {
	store *repository.Store
}

// NewPgStore adapts the pgx-backed repository store to QueryStore.
func NewPgStore(store *repository.Store) QueryStore {
	return &pgStore{store: store}
}

func (p *pgStore) Queries() Querier {
	return p.store.Queries()
}

func (p *pgStore) RunInTx(ctx context.Context, fn func(q Querier) error) error {
	return p.store.RunInTx(ctx, func(q *repository.Queries) error {
		return fn(q)
	})
}
