package listener

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/bivex/paywall-purchases/internal/domain/entity"
	"github.com/bivex/paywall-purchases/internal/domain/event"
)

// SnapshotStore persists purchaser info snapshots per app user id
type SnapshotStore interface {
	Save(ctx context.Context, info *entity.PurchaserInfo) error
	Load(ctx context.Context, appUserID string) (*entity.PurchaserInfo, error)
}

// PurchaserInfoCache keeps the latest purchaser info pushed by the SDK.
// When a store is configured every snapshot is also written through to it.
type PurchaserInfoCache struct {
	store        SnapshotStore
	storeTimeout time.Duration
	logger       *zap.Logger

	mu        sync.RWMutex
	latest    *entity.PurchaserInfo
	updatedAt time.Time
	updates   atomic.Uint64
}

var _ event.PurchaserInfoUpdateListener = (*PurchaserInfoCache)(nil)

// NewPurchaserInfoCache creates an empty cache. store may be nil.
func NewPurchaserInfoCache(store SnapshotStore, logger *zap.Logger) *PurchaserInfoCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PurchaserInfoCache{
		store:        store,
		storeTimeout: 2 * time.Second,
		logger:       logger,
	}
}

// OnPurchaserInfoUpdated stores a private copy of info
func (c *PurchaserInfoCache) OnPurchaserInfoUpdated(info *entity.PurchaserInfo) {
	snapshot := info.Clone()

	c.mu.Lock()
	c.latest = snapshot
	c.updatedAt = time.Now().UTC()
	c.mu.Unlock()
	c.updates.Add(1)

	if c.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.storeTimeout)
	defer cancel()
	if err := c.store.Save(ctx, snapshot); err != nil {
		c.logger.Warn("Failed to persist purchaser info snapshot",
			zap.String("app_user_id", snapshot.OriginalAppUserID),
			zap.Error(err),
		)
	}
}

// Latest returns a copy of the most recent snapshot
func (c *PurchaserInfoCache) Latest() (*entity.PurchaserInfo, time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.latest == nil {
		return nil, time.Time{}, false
	}
	return c.latest.Clone(), c.updatedAt, true
}

// ForUser returns the snapshot of appUserID, falling back to the store
// when the latest snapshot belongs to someone else
func (c *PurchaserInfoCache) ForUser(ctx context.Context, appUserID string) (*entity.PurchaserInfo, bool) {
	if info, _, ok := c.Latest(); ok && info.OriginalAppUserID == appUserID {
		return info, true
	}
	if c.store == nil {
		return nil, false
	}

	info, err := c.store.Load(ctx, appUserID)
	if err != nil {
		c.logger.Debug("Purchaser info snapshot not available",
			zap.String("app_user_id", appUserID),
			zap.Error(err),
		)
		return nil, false
	}
	return info, true
}

// Updates returns how many snapshots the cache has received
func (c *PurchaserInfoCache) Updates() uint64 {
	return c.updates.Load()
}
