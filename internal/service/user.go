package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/altynbek07/invbot/internal/models"
	"github.com/altynbek07/invbot/internal/repository"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// UserService manages chat participants and their external identifiers.
type UserService struct {
	store QueryStore
}

func NewUserService(store QueryStore) *UserService {
	return &UserService{store: store}
}

// Contact is the payload a user shares to register.
type Contact struct {
	PhoneNumber string
	UserID      int64
	ChatID      int64
	Username    *string
	FirstName   *string
	LastName    *string
}

// Register creates the user on first contact sharing, or refreshes the
// existing record. Safe to call on every /start.
func (s *UserService) Register(ctx context.Context, c Contact) (*models.User, error) {
	user, err := s.store.Queries().GetUserByUserID(ctx, c.UserID)
	if err == nil {
		if err := s.Touch(ctx, user); err != nil {
			zap.L().Warn("touch user failed", zap.Int64("user_id", user.UserID), zap.Error(err))
		}
		return user, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	user = &models.User{
		PhoneNumber: c.PhoneNumber,
		UserID:      c.UserID,
		ChatID:      c.ChatID,
		Username:    c.Username,
		FirstName:   c.FirstName,
		LastName:    c.LastName,
		BcastStatus: true,
		LastVisited: time.Now().UTC(),
	}
	if err := s.store.Queries().CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// Concurrent registration; the row exists now.
			return s.store.Queries().GetUserByUserID(ctx, c.UserID)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	zap.L().Info("user registered", zap.Int64("user_id", user.UserID), zap.Int64("chat_id", user.ChatID))
	return user, nil
}

// Lookup resolves a user by platform user id.
func (s *UserService) Lookup(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.store.Queries().GetUserByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	return user, nil
}

// Touch stamps the user's last interaction time.
func (s *UserService) Touch(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	if err := s.store.Queries().TouchUser(ctx, user.ID, now); err != nil {
		return err
	}
	user.LastVisited = now
	return nil
}

// RegisterExts records a batch of external identifiers for the user.
// The whole batch fails on a duplicate; identifiers are permanent once
// taken, even across users.
func (s *UserService) RegisterExts(ctx context.Context, user *models.User, exts []string) error {
	if len(exts) == 0 {
		return errors.New("no external identifiers given")
	}
	err := s.store.RunInTx(ctx, func(q Querier) error {
		return q.CreateExts(ctx, user.ID, exts)
	})
	if errors.Is(err, repository.ErrDuplicate) {
		return err
	}
	if err != nil {
		return fmt.Errorf("register exts: %w", err)
	}
	return nil
}

// Exts lists the user's registered external identifiers, newest first.
func (s *UserService) Exts(ctx context.Context, user *models.User, limit int32) ([]models.Ext, error) {
	return s.store.Queries().ListExtsByUser(ctx, user.ID, limit)
}

// AssignAccount binds the user to a named settlement account for the
// special currency flows.
func (s *UserService) AssignAccount(ctx context.Context, user *models.User, accountName string) error {
	return s.store.RunInTx(ctx, func(q Querier) error {
		account, err := q.GetAccountByName(ctx, accountName)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				account = &models.Account{Name: accountName}
				if err := q.CreateAccount(ctx, account); err != nil {
					return fmt.Errorf("create account: %w", err)
				}
			} else {
				return fmt.Errorf("lookup account: %w", err)
			}
		}
		rows, err := q.SetUserAccount(ctx, user.ID, account.ID)
		if err != nil {
			return err
		}
		if err := requireExactlyOne(rows, "assign account"); err != nil {
			return err
		}
		user.AccountID = &account.ID
		user.Account = account
		return nil
	})
}

// SetBroadcast flips the user's broadcast opt-in flag.
func (s *UserService) SetBroadcast(ctx context.Context, user *models.User, enabled bool) error {
	if err := s.store.Queries().SetBcastStatus(ctx, user.ID, enabled); err != nil {
		return err
	}
	user.BcastStatus = enabled
	return nil
}
