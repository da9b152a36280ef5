package event

import (
	"github.com/bivex/paywall-purchases/internal/domain/entity"
)

// PurchaserInfoUpdateListener receives every purchaser info snapshot the
// native SDK pushes.
type PurchaserInfoUpdateListener interface {
	OnPurchaserInfoUpdated(info *entity.PurchaserInfo)
}

// ShouldPurchasePromoProductListener receives a handle for every promoted
// purchase the SDK intercepts. The purchase only proceeds if a listener
// calls Resume on the handle.
type ShouldPurchasePromoProductListener interface {
	OnShouldPurchasePromoProduct(purchase *DeferredPurchase)
}

// PurchaserInfoUpdateFunc adapts a function to PurchaserInfoUpdateListener.
// Each adapter is its own listener identity.
type PurchaserInfoUpdateFunc struct {
	fn func(*entity.PurchaserInfo)
}

// PurchaserInfoListener wraps fn so it can be added and later removed
func PurchaserInfoListener(fn func(*entity.PurchaserInfo)) *PurchaserInfoUpdateFunc {
	return &PurchaserInfoUpdateFunc{fn: fn}
}

// OnPurchaserInfoUpdated calls the wrapped function
func (f *PurchaserInfoUpdateFunc) OnPurchaserInfoUpdated(info *entity.PurchaserInfo) {
	f.fn(info)
}

// PromoProductFunc adapts a function to ShouldPurchasePromoProductListener
type PromoProductFunc struct {
	fn func(*DeferredPurchase)
}

// PromoProductListener wraps fn so it can be added and later removed
func PromoProductListener(fn func(*DeferredPurchase)) *PromoProductFunc {
	return &PromoProductFunc{fn: fn}
}

// OnShouldPurchasePromoProduct calls the wrapped function
func (f *PromoProductFunc) OnShouldPurchasePromoProduct(purchase *DeferredPurchase) {
	f.fn(purchase)
}
