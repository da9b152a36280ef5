package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/bivex/paywall-purchases/internal/domain/entity"
	"github.com/bivex/paywall-purchases/internal/domain/valueobject"
)

// MockNativeModule is a mock implementation of bridge.NativeModule
type MockNativeModule struct {
	mock.Mock
}

// NewMockNativeModule creates a new mock native module
func NewMockNativeModule() *MockNativeModule {
	return &MockNativeModule{}
}

func (m *MockNativeModule) SetupPurchases(ctx context.Context, apiKey, appUserID string, observerMode bool) error {
	args := m.Called(ctx, apiKey, appUserID, observerMode)
	return args.Error(0)
}

func (m *MockNativeModule) SetAllowSharingStoreAccount(ctx context.Context, allowSharing bool) error {
	args := m.Called(ctx, allowSharing)
	return args.Error(0)
}

func (m *MockNativeModule) SetFinishTransactions(ctx context.Context, finishTransactions bool) error {
	args := m.Called(ctx, finishTransactions)
	return args.Error(0)
}

func (m *MockNativeModule) SetDebugLogsEnabled(ctx context.Context, enabled bool) error {
	args := m.Called(ctx, enabled)
	return args.Error(0)
}

func (m *MockNativeModule) AddAttributionData(ctx context.Context, data map[string]any, network valueobject.AttributionNetwork, networkUserID string) error {
	args := m.Called(ctx, data, network, networkUserID)
	return args.Error(0)
}

func (m *MockNativeModule) GetOfferings(ctx context.Context) (*entity.Offerings, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Offerings), args.Error(1)
}

func (m *MockNativeModule) GetProductInfo(ctx context.Context, productIDs []string, purchaseType valueobject.PurchaseType) ([]entity.Product, error) {
	args := m.Called(ctx, productIDs, purchaseType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Product), args.Error(1)
}

func (m *MockNativeModule) PurchaseProduct(ctx context.Context, productID string, upgradeInfo *entity.UpgradeInfo, purchaseType valueobject.PurchaseType) (*entity.PurchaseResult, error) {
	args := m.Called(ctx, productID, upgradeInfo, purchaseType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.PurchaseResult), args.Error(1)
}

func (m *MockNativeModule) PurchasePackage(ctx context.Context, packageID, offeringID string, upgradeInfo *entity.UpgradeInfo) (*entity.PurchaseResult, error) {
	args := m.Called(ctx, packageID, offeringID, upgradeInfo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.PurchaseResult), args.Error(1)
}

func (m *MockNativeModule) MakeDeferredPurchase(ctx context.Context, callbackID int) (*entity.PurchaseResult, error) {
	args := m.Called(ctx, callbackID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.PurchaseResult), args.Error(1)
}

func (m *MockNativeModule) RestoreTransactions(ctx context.Context) (*entity.PurchaserInfo, error) {
	args := m.Called(ctx)
	return purchaserInfoOrNil(args)
}

func (m *MockNativeModule) GetAppUserID(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockNativeModule) CreateAlias(ctx context.Context, newAppUserID string) (*entity.PurchaserInfo, error) {
	args := m.Called(ctx, newAppUserID)
	return purchaserInfoOrNil(args)
}

func (m *MockNativeModule) Identify(ctx context.Context, newAppUserID string) (*entity.PurchaserInfo, error) {
	args := m.Called(ctx, newAppUserID)
	return purchaserInfoOrNil(args)
}

func (m *MockNativeModule) Reset(ctx context.Context) (*entity.PurchaserInfo, error) {
	args := m.Called(ctx)
	return purchaserInfoOrNil(args)
}

func (m *MockNativeModule) GetPurchaserInfo(ctx context.Context) (*entity.PurchaserInfo, error) {
	args := m.Called(ctx)
	return purchaserInfoOrNil(args)
}

func (m *MockNativeModule) SyncPurchases(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockNativeModule) CheckTrialOrIntroductoryPriceEligibility(ctx context.Context, productIDs []string) (map[string]entity.IntroEligibility, error) {
	args := m.Called(ctx, productIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]entity.IntroEligibility), args.Error(1)
}

func purchaserInfoOrNil(args mock.Arguments) (*entity.PurchaserInfo, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.PurchaserInfo), args.Error(1)
}
