package bridge

import (
	"context"

	"github.com/bivex/paywall-purchases/internal/domain/entity"
	"github.com/bivex/paywall-purchases/internal/domain/valueobject"
)

// NativeModule defines the request/response surface of the native
// purchases SDK. Rejections are returned as *errors.NativeError.
type NativeModule interface {
	// SetupPurchases configures the SDK. An empty appUserID lets the SDK
	// generate an anonymous identifier.
	SetupPurchases(ctx context.Context, apiKey, appUserID string, observerMode bool) error

	SetAllowSharingStoreAccount(ctx context.Context, allowSharing bool) error
	SetFinishTransactions(ctx context.Context, finishTransactions bool) error
	SetDebugLogsEnabled(ctx context.Context, enabled bool) error

	// AddAttributionData forwards attribution data for a network
	AddAttributionData(ctx context.Context, data map[string]any, network valueobject.AttributionNetwork, networkUserID string) error

	// GetOfferings fetches the offerings configured for the app
	GetOfferings(ctx context.Context) (*entity.Offerings, error)

	// GetProductInfo fetches store products by identifier
	GetProductInfo(ctx context.Context, productIDs []string, purchaseType valueobject.PurchaseType) ([]entity.Product, error)

	// PurchaseProduct starts a purchase for a product identifier
	PurchaseProduct(ctx context.Context, productID string, upgradeInfo *entity.UpgradeInfo, purchaseType valueobject.PurchaseType) (*entity.PurchaseResult, error)

	// PurchasePackage starts a purchase for a package of an offering
	PurchasePackage(ctx context.Context, packageID, offeringID string, upgradeInfo *entity.UpgradeInfo) (*entity.PurchaseResult, error)

	// MakeDeferredPurchase resumes a purchase intercepted by the SDK
	MakeDeferredPurchase(ctx context.Context, callbackID int) (*entity.PurchaseResult, error)

	RestoreTransactions(ctx context.Context) (*entity.PurchaserInfo, error)
	GetAppUserID(ctx context.Context) (string, error)
	CreateAlias(ctx context.Context, newAppUserID string) (*entity.PurchaserInfo, error)
	Identify(ctx context.Context, newAppUserID string) (*entity.PurchaserInfo, error)
	Reset(ctx context.Context) (*entity.PurchaserInfo, error)
	GetPurchaserInfo(ctx context.Context) (*entity.PurchaserInfo, error)

	// SyncPurchases syncs purchases made outside the SDK (Android only)
	SyncPurchases(ctx context.Context) error

	// CheckTrialOrIntroductoryPriceEligibility reports eligibility per product
	CheckTrialOrIntroductoryPriceEligibility(ctx context.Context, productIDs []string) (map[string]entity.IntroEligibility, error)
}

// EventSink receives decoded native events
type EventSink interface {
	Dispatch(ev NativeEvent)
}

// EventSource delivers native events to a sink. Attach is called once per
// sink; delivery may happen on any goroutine.
type EventSource interface {
	Attach(sink EventSink) error
}
