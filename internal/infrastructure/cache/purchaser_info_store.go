package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/bivex/paywall-purchases/internal/domain/entity"
	domainErrors "github.com/bivex/paywall-purchases/internal/domain/errors"
)

// RedisPurchaserInfoStore keeps purchaser info snapshots in Redis, one key
// per app user id
type RedisPurchaserInfoStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisPurchaserInfoStore creates a new Redis-backed snapshot store
func NewRedisPurchaserInfoStore(client *redis.Client, prefix string, ttl time.Duration, logger *zap.Logger) *RedisPurchaserInfoStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisPurchaserInfoStore{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		logger: logger,
	}
}

// Key returns the Redis key of a user's snapshot
func (s *RedisPurchaserInfoStore) Key(appUserID string) string {
	return fmt.Sprintf("%s:purchaser_info:%s", s.prefix, appUserID)
}

// Save stores the snapshot under its original app user id
func (s *RedisPurchaserInfoStore) Save(ctx context.Context, info *entity.PurchaserInfo) error {
	if info == nil || info.OriginalAppUserID == "" {
		return domainErrors.NewValidationError("purchaser_info", "snapshot has no app user id")
	}

	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to marshal purchaser info: %w", err)
	}

	key := s.Key(info.OriginalAppUserID)
	if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set purchaser info: %w", err)
	}

	s.logger.Debug("Cached purchaser info",
		zap.String("key", key),
		zap.Duration("ttl", s.ttl),
	)
	return nil
}

// Load returns the stored snapshot of appUserID
func (s *RedisPurchaserInfoStore) Load(ctx context.Context, appUserID string) (*entity.PurchaserInfo, error) {
	data, err := s.client.Get(ctx, s.Key(appUserID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, &domainErrors.NotFoundError{Entity: "purchaser_info", ID: appUserID, Err: domainErrors.ErrPurchaserInfoNotFound}
		}
		return nil, fmt.Errorf("failed to get purchaser info: %w", err)
	}

	var info entity.PurchaserInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("failed to unmarshal purchaser info: %w", err)
	}
	return &info, nil
}

// Invalidate removes a user's snapshot
func (s *RedisPurchaserInfoStore) Invalidate(ctx context.Context, appUserID string) error {
	if err := s.client.Del(ctx, s.Key(appUserID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate purchaser info: %w", err)
	}
	return nil
}
