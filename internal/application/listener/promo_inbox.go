package listener

import (
	"context"
	"slices"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/bivex/paywall-purchases/internal/domain/entity"
	domainErrors "github.com/bivex/paywall-purchases/internal/domain/errors"
	"github.com/bivex/paywall-purchases/internal/domain/event"
)

// PendingPromo describes a parked promoted purchase
type PendingPromo struct {
	CallbackID int       `json:"callback_id"`
	ReceivedAt time.Time `json:"received_at"`
}

type parkedPurchase struct {
	purchase   *event.DeferredPurchase
	receivedAt time.Time
}

// PromoPurchaseInbox parks intercepted promoted purchases until the app
// decides to resume them
type PromoPurchaseInbox struct {
	logger *zap.Logger

	mu     sync.Mutex
	parked map[int]parkedPurchase
}

var _ event.ShouldPurchasePromoProductListener = (*PromoPurchaseInbox)(nil)

// NewPromoPurchaseInbox creates an empty inbox
func NewPromoPurchaseInbox(logger *zap.Logger) *PromoPurchaseInbox {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PromoPurchaseInbox{
		logger: logger,
		parked: make(map[int]parkedPurchase),
	}
}

// OnShouldPurchasePromoProduct parks the handle under its callback id
func (i *PromoPurchaseInbox) OnShouldPurchasePromoProduct(purchase *event.DeferredPurchase) {
	i.mu.Lock()
	i.parked[purchase.CallbackID()] = parkedPurchase{purchase: purchase, receivedAt: time.Now().UTC()}
	i.mu.Unlock()

	i.logger.Info("Promoted purchase parked", zap.Int("callback_id", purchase.CallbackID()))
}

// Pending lists parked purchases ordered by callback id
func (i *PromoPurchaseInbox) Pending() []PendingPromo {
	i.mu.Lock()
	defer i.mu.Unlock()

	pending := make([]PendingPromo, 0, len(i.parked))
	for id, p := range i.parked {
		pending = append(pending, PendingPromo{CallbackID: id, ReceivedAt: p.receivedAt})
	}
	slices.SortFunc(pending, func(a, b PendingPromo) int { return a.CallbackID - b.CallbackID })
	return pending
}

// Resume continues the parked purchase. A purchase that fails for any
// reason other than user cancellation stays parked so it can be retried.
func (i *PromoPurchaseInbox) Resume(ctx context.Context, callbackID int) (*entity.PurchaseResult, error) {
	i.mu.Lock()
	parked, ok := i.parked[callbackID]
	delete(i.parked, callbackID)
	i.mu.Unlock()

	if !ok {
		return nil, &domainErrors.NotFoundError{
			Entity: "promo_purchase",
			ID:     strconv.Itoa(callbackID),
			Err:    domainErrors.ErrPromoPurchaseNotFound,
		}
	}

	result, err := parked.purchase.Resume(ctx)
	if err != nil {
		if !domainErrors.IsUserCancelled(err) {
			i.mu.Lock()
			if _, taken := i.parked[callbackID]; !taken {
				i.parked[callbackID] = parked
			}
			i.mu.Unlock()
		}
		return nil, err
	}
	return result, nil
}

// Discard drops a parked purchase without resuming it
func (i *PromoPurchaseInbox) Discard(callbackID int) bool {
	i.mu.Lock()
	defer i.mu.Unlock()

	_, ok := i.parked[callbackID]
	delete(i.parked, callbackID)
	return ok
}
