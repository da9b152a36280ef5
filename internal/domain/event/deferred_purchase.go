package event

import (
	"context"

	"github.com/bivex/paywall-purchases/internal/domain/bridge"
	"github.com/bivex/paywall-purchases/internal/domain/entity"
	domainErrors "github.com/bivex/paywall-purchases/internal/domain/errors"
)

// DeferredPurchase resumes one intercepted promoted purchase. It is built
// per dispatch and owned by whichever listener keeps it.
type DeferredPurchase struct {
	callbackID int
	module     bridge.NativeModule
}

// NewDeferredPurchase creates a handle for the given correlation id
func NewDeferredPurchase(callbackID int, module bridge.NativeModule) *DeferredPurchase {
	return &DeferredPurchase{
		callbackID: callbackID,
		module:     module,
	}
}

// CallbackID returns the native correlation id
func (d *DeferredPurchase) CallbackID() int {
	return d.callbackID
}

// Resume asks the native SDK to continue the intercepted purchase.
// Rejections are normalized like any other purchase call.
func (d *DeferredPurchase) Resume(ctx context.Context) (*entity.PurchaseResult, error) {
	if d.module == nil {
		return nil, domainErrors.ErrNativeModuleUnavailable
	}

	result, err := d.module.MakeDeferredPurchase(ctx, d.callbackID)
	if err != nil {
		return nil, domainErrors.NormalizePurchaseError(err)
	}
	return result, nil
}
