package service

import (
	"context"
	"sync"
	"time"

	"github.com/altynbek07/invbot/internal/gateway"
	"github.com/altynbek07/invbot/internal/models"
	"github.com/altynbek07/invbot/internal/notify"
	"github.com/altynbek07/invbot/internal/repository"
	"github.com/jackc/pgx/v5"
)

// memStore is an in-memory Querier/QueryStore so the state machine can
// be exercised without a database. Row locking degenerates to the
// store-wide mutex, which is strict enough for these tests.
type memStore struct {
	mu sync.Mutex

	seq      int64
	txs      map[int64]models.Transaction
	users    map[int64]models.User
	exts     map[int64]models.Ext
	accounts map[int64]models.Account
	admins   map[int64]models.Admin
	settings map[string]string
}

func newMemStore() *memStore {
	return &memStore{
		txs:      make(map[int64]models.Transaction),
		users:    make(map[int64]models.User),
		exts:     make(map[int64]models.Ext),
		accounts: make(map[int64]models.Account),
		admins:   make(map[int64]models.Admin),
		settings: make(map[string]string),
	}
}

func (m *memStore) Queries() Querier { return m }

func (m *memStore) RunInTx(ctx context.Context, fn func(q Querier) error) error {
	return fn(m)
}

func (m *memStore) nextID() int64 {
	m.seq++
	return m.seq
}

func (m *memStore) CreateTransaction(ctx context.Context, t *models.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.ID = m.nextID()
	t.CreatedAt = time.Now().UTC()
	t.UpdatedAt = t.CreatedAt
	m.txs[t.ID] = *t
	return nil
}

func (m *memStore) GetTransaction(ctx context.Context, id int64) (*models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.txs[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := tx
	return &cp, nil
}

func (m *memStore) GetTransactionForUpdate(ctx context.Context, id int64) (*models.Transaction, error) {
	return m.GetTransaction(ctx, id)
}

func (m *memStore) UpdateTransaction(ctx context.Context, t *models.Transaction) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.txs[t.ID]; !ok {
		return 0, nil
	}
	t.UpdatedAt = time.Now().UTC()
	m.txs[t.ID] = *t
	return 1, nil
}

func (m *memStore) ListTransactionsForProcessing(ctx context.Context, limit int32) ([]models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Transaction
	for _, tx := range m.txs {
		if tx.CanAccept() || tx.CanDeny() {
			out = append(out, tx)
		}
		if int32(len(out)) == limit {
			break
		}
	}
	return out, nil
}

func (m *memStore) ListTransactionsByDateRange(ctx context.Context, start, stop time.Time) ([]models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Transaction
	for _, tx := range m.txs {
		if !tx.CreatedAt.Before(start) && tx.CreatedAt.Before(stop) {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (m *memStore) CreateUser(ctx context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.UserID == u.UserID {
			return repository.ErrDuplicate
		}
	}
	u.ID = m.nextID()
	u.CreatedAt = time.Now().UTC()
	m.users[u.ID] = *u
	return nil
}

func (m *memStore) GetUser(ctx context.Context, id int64) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := u
	return &cp, nil
}

func (m *memStore) GetUserByUserID(ctx context.Context, userID int64) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.UserID == userID {
			cp := u
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memStore) TouchUser(ctx context.Context, id int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	u.LastVisited = at
	m.users[id] = u
	return nil
}

func (m *memStore) SetUserAccount(ctx context.Context, id, accountID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return 0, nil
	}
	u.AccountID = &accountID
	m.users[id] = u
	return 1, nil
}

func (m *memStore) SetBcastStatus(ctx context.Context, id int64, status bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	u.BcastStatus = status
	m.users[id] = u
	return nil
}

func (m *memStore) ListBroadcastUsers(ctx context.Context) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.User
	for _, u := range m.users {
		if u.BcastStatus {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *memStore) CreateExts(ctx context.Context, userID int64, exts []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range exts {
		for _, existing := range m.exts {
			if existing.Ext == e {
				return repository.ErrDuplicate
			}
		}
	}
	for _, e := range exts {
		id := m.nextID()
		m.exts[id] = models.Ext{ID: id, Ext: e, UserID: userID, CreatedAt: time.Now().UTC()}
	}
	return nil
}

func (m *memStore) GetExt(ctx context.Context, id int64) (*models.Ext, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.exts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := e
	return &cp, nil
}

func (m *memStore) GetExtByExt(ctx context.Context, ext string) (*models.Ext, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.exts {
		if e.Ext == ext {
			cp := e
			if u, ok := m.users[e.UserID]; ok {
				ucp := u
				cp.User = &ucp
			}
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memStore) ListExtsByUser(ctx context.Context, userID int64, limit int32) ([]models.Ext, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Ext
	for _, e := range m.exts {
		if e.UserID == userID {
			out = append(out, e)
		}
		if int32(len(out)) == limit {
			break
		}
	}
	return out, nil
}

func (m *memStore) CreateAccount(ctx context.Context, a *models.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = m.nextID()
	m.accounts[a.ID] = *a
	return nil
}

func (m *memStore) GetAccount(ctx context.Context, id int64) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := a
	return &cp, nil
}

func (m *memStore) GetAccountByName(ctx context.Context, name string) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.Name == name {
			cp := a
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memStore) ListAccounts(ctx context.Context, limit int32) ([]models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Account
	for _, a := range m.accounts {
		out = append(out, a)
		if int32(len(out)) == limit {
			break
		}
	}
	return out, nil
}

func (m *memStore) ListAdmins(ctx context.Context) ([]models.Admin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Admin
	for _, a := range m.admins {
		out = append(out, a)
	}
	return out, nil
}

func (m *memStore) DeleteAdmins(ctx context.Context, userIDs []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range userIDs {
		for key, a := range m.admins {
			if a.UserID == id {
				delete(m.admins, key)
			}
		}
	}
	return nil
}

func (m *memStore) InsertAdmins(ctx context.Context, admins []models.Admin) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range admins {
		a.ID = m.nextID()
		m.admins[a.ID] = a
	}
	return nil
}

func (m *memStore) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.admins {
		if a.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) GetSettingValue(ctx context.Context, name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.settings[name]
	if !ok {
		return "", pgx.ErrNoRows
	}
	return v, nil
}

func (m *memStore) SetSettingValue(ctx context.Context, name, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[name] = value
	return nil
}

// seedUserWithExt inserts a registered user holding one ext and returns
// both records.
func (m *memStore) seedUserWithExt(ext string) (*models.User, *models.Ext) {
	ctx := context.Background()
	user := &models.User{
		PhoneNumber: "+10000000001",
		UserID:      1001,
		ChatID:      2001,
		BcastStatus: true,
		LastVisited: time.Now().UTC(),
	}
	_ = m.CreateUser(ctx, user)
	_ = m.CreateExts(ctx, user.ID, []string{ext})
	e, _ := m.GetExtByExt(ctx, ext)
	return user, e
}

type stubGateway struct {
	address    string
	addressErr error

	withdrawResult *gateway.WithdrawResult
	withdrawErr    error
	withdrawCalls  int
}

func (s *stubGateway) GetAddress(ctx context.Context, ext, currency string, amount float64) (string, error) {
	return s.address, s.addressErr
}

func (s *stubGateway) Withdraw(ctx context.Context, tx *models.Transaction) (*gateway.WithdrawResult, error) {
	s.withdrawCalls++
	return s.withdrawResult, s.withdrawErr
}

// recordingSender captures dispatched notifications.
type recordingSender struct {
	mu       sync.Mutex
	messages []notify.Message
	err      error
}

func (r *recordingSender) Send(ctx context.Context, msg notify.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
	return r.err
}

func (r *recordingSender) sent() []notify.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]notify.Message, len(r.messages))
	copy(out, r.messages)
	return out
}

func (r *recordingSender) sentTo(chatID int64) []notify.Message {
	var out []notify.Message
	for _, m := range r.sent() {
		if m.ChatID == chatID {
			out = append(out, m)
		}
	}
	return out
}

const testAdminGroup int64 = -500

func adminGroupSet(ctx context.Context) (int64, bool)   { return testAdminGroup, true }
func adminGroupUnset(ctx context.Context) (int64, bool) { return 0, false }

func newTestDispatcher(sender notify.Sender) *notify.Dispatcher {
	return notify.NewDispatcher(sender, adminGroupSet)
}
