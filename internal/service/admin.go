package service

import (
	"context"
	"fmt"

	"github.com/altynbek07/invbot/internal/models"
	"go.uber.org/zap"
)

// AdminService maintains the cached admin roster mirrored from the
// designated admin group's membership.
type AdminService struct {
	store QueryStore
}

func NewAdminService(store QueryStore) *AdminService {
	return &AdminService{store: store}
}

// Sync replaces the cached roster with the given membership snapshot.
// The diff is applied in one transaction so authorization checks never
// observe a half-synced roster.
func (s *AdminService) Sync(ctx context.Context, members []models.Admin) error {
	return s.store.RunInTx(ctx, func(q Querier) error {
		current, err := q.ListAdmins(ctx)
		if err != nil {
			return fmt.Errorf("list admins: %w", err)
		}

		wanted := make(map[int64]struct{}, len(members))
		for _, m := range members {
			wanted[m.UserID] = struct{}{}
		}
		have := make(map[int64]struct{}, len(current))
		var stale []int64
		for _, a := range current {
			have[a.UserID] = struct{}{}
			if _, ok := wanted[a.UserID]; !ok {
				stale = append(stale, a.UserID)
			}
		}
		var fresh []models.Admin
		for _, m := range members {
			if _, ok := have[m.UserID]; !ok {
				fresh = append(fresh, m)
			}
		}

		if len(stale) > 0 {
			if err := q.DeleteAdmins(ctx, stale); err != nil {
				return fmt.Errorf("delete admins: %w", err)
			}
		}
		if len(fresh) > 0 {
			if err := q.InsertAdmins(ctx, fresh); err != nil {
				return fmt.Errorf("insert admins: %w", err)
			}
		}
		zap.L().Info("admin roster synced",
			zap.Int("total", len(members)),
			zap.Int("added", len(fresh)),
			zap.Int("removed", len(stale)),
		)
		return nil
	})
}

// IsAdmin reports whether the platform user id is on the roster.
func (s *AdminService) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	return s.store.Queries().IsAdmin(ctx, userID)
}
