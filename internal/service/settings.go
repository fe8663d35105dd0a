package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/altynbek07/invbot/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const settingsCachePrefix = "invbot:setting:"

// SettingsService serves process-wide settings with a redis
// read-through cache in front of the settings table. The cache is
// invalidated on every write, so a changed admin group takes effect on
// the next read regardless of TTL.
type SettingsService struct {
	store QueryStore
	cache redis.Cmdable // nil disables caching
	ttl   time.Duration
}

func NewSettingsService(store QueryStore, cache redis.Cmdable, ttl time.Duration) *SettingsService {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &SettingsService{store: store, cache: cache, ttl: ttl}
}

// Get returns the raw JSON-encoded setting value, "" when unset.
func (s *SettingsService) Get(ctx context.Context, name string) (string, error) {
	if s.cache != nil {
		val, err := s.cache.Get(ctx, settingsCachePrefix+name).Result()
		if err == nil {
			return val, nil
		}
		if !errors.Is(err, redis.Nil) {
			zap.L().Warn("settings cache read failed", zap.String("setting", name), zap.Error(err))
		}
	}

	val, err := s.store.Queries().GetSettingValue(ctx, name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, settingsCachePrefix+name, val, s.ttl).Err(); err != nil {
			zap.L().Warn("settings cache write failed", zap.String("setting", name), zap.Error(err))
		}
	}
	return val, nil
}

// Set persists a setting value and drops the cached copy.
func (s *SettingsService) Set(ctx context.Context, name, value string) error {
	if err := s.store.Queries().SetSettingValue(ctx, name, value); err != nil {
		return err
	}
	if s.cache != nil {
		if err := s.cache.Del(ctx, settingsCachePrefix+name).Err(); err != nil {
			zap.L().Warn("settings cache invalidation failed", zap.String("setting", name), zap.Error(err))
		}
	}
	return nil
}

// AdminGroup returns the configured admin group chat id.
func (s *SettingsService) AdminGroup(ctx context.Context) (int64, error) {
	raw, err := s.Get(ctx, domain.SettingAdminGroup)
	if err != nil {
		return 0, err
	}
	if raw == "" {
		return 0, ErrAdminGroupNotSet
	}
	chatID, err := strconv.ParseInt(strings.Trim(raw, `"`), 10, 64)
	if err != nil {
		return 0, ErrAdminGroupNotSet
	}
	return chatID, nil
}

// SetAdminGroup designates the admin group chat.
func (s *SettingsService) SetAdminGroup(ctx context.Context, chatID int64) error {
	return s.Set(ctx, domain.SettingAdminGroup, strconv.FormatInt(chatID, 10))
}

// AdminGroupFunc adapts the service to the notification dispatcher's
// group resolver. Lookup failures read as "not configured" so delivery
// degrades instead of erroring.
func (s *SettingsService) AdminGroupFunc() func(ctx context.Context) (int64, bool) {
	return func(ctx context.Context) (int64, bool) {
		chatID, err := s.AdminGroup(ctx)
		if err != nil {
			if !errors.Is(err, ErrAdminGroupNotSet) {
				zap.L().Error("admin group lookup failed", zap.Error(err))
			}
			return 0, false
		}
		return chatID, true
	}
}
