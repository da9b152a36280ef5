package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/bivex/paywall-purchases/internal/domain/bridge"
	"github.com/bivex/paywall-purchases/internal/domain/entity"
	domainErrors "github.com/bivex/paywall-purchases/internal/domain/errors"
	"github.com/bivex/paywall-purchases/internal/domain/event"
	"github.com/bivex/paywall-purchases/internal/domain/valueobject"
)

// PurchasesService is the application-facing purchases API. Every call
// forwards to the native module; purchase-initiating calls normalize
// native rejections into *errors.PurchasesError.
type PurchasesService struct {
	module   bridge.NativeModule
	registry *event.Registry
	platform valueobject.Platform
	logger   *zap.Logger
}

// NewPurchasesService creates a new purchases service
func NewPurchasesService(
	module bridge.NativeModule,
	registry *event.Registry,
	platform valueobject.Platform,
	logger *zap.Logger,
) *PurchasesService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PurchasesService{
		module:   module,
		registry: registry,
		platform: platform,
		logger:   logger,
	}
}

// Platform returns the platform the service was configured for
func (s *PurchasesService) Platform() valueobject.Platform {
	return s.platform
}

// SetupOption customizes Setup
type SetupOption func(*setupParams)

type setupParams struct {
	appUserID    string
	appUserIDSet bool
	observerMode bool
}

// WithAppUserID identifies the user at setup. The id must be a non-empty
// string; leave the option out to let the SDK create an anonymous id.
func WithAppUserID(appUserID string) SetupOption {
	return func(p *setupParams) {
		p.appUserID = appUserID
		p.appUserIDSet = true
	}
}

// WithObserverMode leaves transaction finishing to the app
func WithObserverMode(observerMode bool) SetupOption {
	return func(p *setupParams) {
		p.observerMode = observerMode
	}
}

// Setup configures the native SDK
func (s *PurchasesService) Setup(ctx context.Context, apiKey string, opts ...SetupOption) error {
	var params setupParams
	for _, opt := range opts {
		opt(&params)
	}
	if params.appUserIDSet {
		if err := validateAppUserID(params.appUserID); err != nil {
			return err
		}
	}

	if err := s.module.SetupPurchases(ctx, apiKey, params.appUserID, params.observerMode); err != nil {
		return fmt.Errorf("failed to setup purchases: %w", err)
	}

	s.logger.Info("Purchases configured",
		zap.Bool("anonymous", !params.appUserIDSet),
		zap.Bool("observer_mode", params.observerMode),
		zap.String("platform", s.platform.String()),
	)
	return nil
}

// SetAllowSharingStoreAccount allows several app user ids to share a store account
func (s *PurchasesService) SetAllowSharingStoreAccount(ctx context.Context, allowSharing bool) error {
	return s.module.SetAllowSharingStoreAccount(ctx, allowSharing)
}

// SetFinishTransactions controls whether the SDK finishes store transactions
func (s *PurchasesService) SetFinishTransactions(ctx context.Context, finishTransactions bool) error {
	return s.module.SetFinishTransactions(ctx, finishTransactions)
}

// SetDebugLogsEnabled toggles native debug logs
func (s *PurchasesService) SetDebugLogsEnabled(ctx context.Context, enabled bool) error {
	return s.module.SetDebugLogsEnabled(ctx, enabled)
}

// AddAttributionData reports attribution data for a network. The network is
// forwarded as given; a nil data map is sent as an empty one.
func (s *PurchasesService) AddAttributionData(
	ctx context.Context,
	data map[string]any,
	network valueobject.AttributionNetwork,
	networkUserID string,
) error {
	if data == nil {
		data = map[string]any{}
	}
	return s.module.AddAttributionData(ctx, data, network, networkUserID)
}

// GetOfferings fetches the configured offerings
func (s *PurchasesService) GetOfferings(ctx context.Context) (*entity.Offerings, error) {
	return s.module.GetOfferings(ctx)
}

// GetProducts fetches products by identifier. An empty purchase type means
// subs; any other value is forwarded unchanged.
func (s *PurchasesService) GetProducts(
	ctx context.Context,
	productIDs []string,
	purchaseType valueobject.PurchaseType,
) ([]entity.Product, error) {
	return s.module.GetProductInfo(ctx, productIDs, purchaseType.OrDefault())
}

// PurchaseProduct purchases a product. An empty purchase type means subs.
func (s *PurchasesService) PurchaseProduct(
	ctx context.Context,
	productID string,
	upgradeInfo *entity.UpgradeInfo,
	purchaseType valueobject.PurchaseType,
) (*entity.PurchaseResult, error) {
	result, err := s.module.PurchaseProduct(ctx, productID, upgradeInfo, purchaseType.OrDefault())
	if err != nil {
		return nil, s.purchaseFailed("product", productID, err)
	}
	return result, nil
}

// MakePurchase purchases a product, replacing oldSKU when set.
//
// Deprecated: use PurchaseProduct or PurchasePackage.
func (s *PurchasesService) MakePurchase(
	ctx context.Context,
	productID string,
	oldSKU string,
	purchaseType valueobject.PurchaseType,
) (*entity.PurchaseResult, error) {
	return s.PurchaseProduct(ctx, productID, entity.NewUpgradeInfo(oldSKU), purchaseType)
}

// PurchasePackage purchases a package of an offering
func (s *PurchasesService) PurchasePackage(
	ctx context.Context,
	pkg entity.Package,
	upgradeInfo *entity.UpgradeInfo,
) (*entity.PurchaseResult, error) {
	result, err := s.module.PurchasePackage(ctx, pkg.Identifier, pkg.OfferingIdentifier, upgradeInfo)
	if err != nil {
		return nil, s.purchaseFailed("package", pkg.Identifier, err)
	}
	return result, nil
}

// RestoreTransactions restores purchases made by the store account
func (s *PurchasesService) RestoreTransactions(ctx context.Context) (*entity.PurchaserInfo, error) {
	return s.module.RestoreTransactions(ctx)
}

// GetAppUserID returns the current app user id
func (s *PurchasesService) GetAppUserID(ctx context.Context) (string, error) {
	return s.module.GetAppUserID(ctx)
}

// CreateAlias links newAppUserID to the current user
func (s *PurchasesService) CreateAlias(ctx context.Context, newAppUserID string) (*entity.PurchaserInfo, error) {
	if err := validateAppUserID(newAppUserID); err != nil {
		return nil, err
	}
	return s.module.CreateAlias(ctx, newAppUserID)
}

// Identify switches the SDK to newAppUserID
func (s *PurchasesService) Identify(ctx context.Context, newAppUserID string) (*entity.PurchaserInfo, error) {
	if err := validateAppUserID(newAppUserID); err != nil {
		return nil, err
	}
	return s.module.Identify(ctx, newAppUserID)
}

// Reset switches the SDK back to a fresh anonymous user
func (s *PurchasesService) Reset(ctx context.Context) (*entity.PurchaserInfo, error) {
	return s.module.Reset(ctx)
}

// GetPurchaserInfo returns the current purchaser info
func (s *PurchasesService) GetPurchaserInfo(ctx context.Context) (*entity.PurchaserInfo, error) {
	return s.module.GetPurchaserInfo(ctx)
}

// SyncPurchases syncs purchases made outside the SDK. It is a no-op on
// platforms that do not need it.
func (s *PurchasesService) SyncPurchases(ctx context.Context) error {
	if !s.platform.SupportsSyncPurchases() {
		s.logger.Debug("Skipping sync purchases", zap.String("platform", s.platform.String()))
		return nil
	}
	return s.module.SyncPurchases(ctx)
}

// CheckTrialOrIntroductoryPriceEligibility reports intro eligibility per product
func (s *PurchasesService) CheckTrialOrIntroductoryPriceEligibility(
	ctx context.Context,
	productIDs []string,
) (map[string]entity.IntroEligibility, error) {
	return s.module.CheckTrialOrIntroductoryPriceEligibility(ctx, productIDs)
}

// AddPurchaserInfoUpdateListener subscribes to purchaser info updates
func (s *PurchasesService) AddPurchaserInfoUpdateListener(l event.PurchaserInfoUpdateListener) error {
	return s.registry.AddPurchaserInfoUpdateListener(l)
}

// RemovePurchaserInfoUpdateListener unsubscribes from purchaser info updates
func (s *PurchasesService) RemovePurchaserInfoUpdateListener(l event.PurchaserInfoUpdateListener) {
	s.registry.RemovePurchaserInfoUpdateListener(l)
}

// AddShouldPurchasePromoProductListener subscribes to promoted purchases
func (s *PurchasesService) AddShouldPurchasePromoProductListener(l event.ShouldPurchasePromoProductListener) error {
	return s.registry.AddShouldPurchasePromoProductListener(l)
}

// RemoveShouldPurchasePromoProductListener unsubscribes from promoted purchases
func (s *PurchasesService) RemoveShouldPurchasePromoProductListener(l event.ShouldPurchasePromoProductListener) {
	s.registry.RemoveShouldPurchasePromoProductListener(l)
}

// IsUTCDateStringFuture reports whether a native date string is in the future
func (s *PurchasesService) IsUTCDateStringFuture(dateString string) bool {
	return valueobject.IsUTCDateStringFuture(dateString)
}

func (s *PurchasesService) purchaseFailed(kind, identifier string, err error) error {
	normalized := domainErrors.NormalizePurchaseError(err)
	if domainErrors.IsUserCancelled(normalized) {
		s.logger.Info("Purchase cancelled by user",
			zap.String("kind", kind),
			zap.String("identifier", identifier),
		)
	} else {
		s.logger.Warn("Purchase failed",
			zap.String("kind", kind),
			zap.String("identifier", identifier),
			zap.Error(normalized),
		)
	}
	return normalized
}

// validateAppUserID rejects the empty string, which stands in for a missing
// id. Any other string, whitespace included, is the native module's call.
func validateAppUserID(appUserID string) error {
	if appUserID == "" {
		return domainErrors.NewFieldError("app_user_id", domainErrors.ErrInvalidAppUserID)
	}
	return nil
}
