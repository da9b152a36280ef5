package query

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bivex/paywall-purchases/internal/application/dto"
	"github.com/bivex/paywall-purchases/internal/domain/entity"
	domainErrors "github.com/bivex/paywall-purchases/internal/domain/errors"
)

// PurchaserInfoReader fetches a live purchaser info snapshot
type PurchaserInfoReader interface {
	GetPurchaserInfo(ctx context.Context) (*entity.PurchaserInfo, error)
}

// CachedPurchaserInfo returns the most recent pushed snapshot
type CachedPurchaserInfo interface {
	Latest() (*entity.PurchaserInfo, time.Time, bool)
}

// CheckAccessQuery answers whether the current user holds an entitlement.
// It reads the cached snapshot pushed by the SDK and falls back to a live
// fetch when nothing has been pushed yet. Expiration is re-evaluated
// against the clock, so a stale snapshot never grants expired access.
type CheckAccessQuery struct {
	cache  CachedPurchaserInfo
	reader PurchaserInfoReader
	clock  func() time.Time
}

// NewCheckAccessQuery creates a new check access query
func NewCheckAccessQuery(cache CachedPurchaserInfo, reader PurchaserInfoReader) *CheckAccessQuery {
	return &CheckAccessQuery{
		cache:  cache,
		reader: reader,
		clock:  time.Now,
	}
}

// WithClock overrides time.Now
func (q *CheckAccessQuery) WithClock(clock func() time.Time) *CheckAccessQuery {
	q.clock = clock
	return q
}

// Execute executes the access check query
func (q *CheckAccessQuery) Execute(ctx context.Context, entitlementID string) (*dto.AccessCheckResponse, error) {
	if strings.TrimSpace(entitlementID) == "" {
		return nil, domainErrors.NewFieldError("entitlement_id", domainErrors.ErrRequiredField)
	}

	info, source, err := q.purchaserInfo(ctx)
	if err != nil {
		return nil, err
	}

	resp := &dto.AccessCheckResponse{
		EntitlementID: entitlementID,
		AppUserID:     info.OriginalAppUserID,
		Source:        source,
	}

	ent, ok := info.Entitlements.All[entitlementID]
	if !ok {
		resp.Reason = "entitlement never granted"
		return resp, nil
	}

	resp.ProductID = ent.ProductIdentifier
	resp.WillRenew = ent.WillRenew
	if ent.ExpirationDate != nil {
		resp.ExpiresAt = *ent.ExpirationDate
	}

	switch {
	case ent.IsActiveAt(q.clock()):
		resp.HasAccess = true
		if ent.HasBillingIssue() {
			resp.Reason = "billing issue detected"
		}
	default:
		resp.Reason = "entitlement expired"
	}
	return resp, nil
}

func (q *CheckAccessQuery) purchaserInfo(ctx context.Context) (*entity.PurchaserInfo, string, error) {
	if q.cache != nil {
		if info, _, ok := q.cache.Latest(); ok {
			return info, dto.SourceCache, nil
		}
	}

	info, err := q.reader.GetPurchaserInfo(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("failed to get purchaser info: %w", err)
	}
	return info, dto.SourceLive, nil
}
