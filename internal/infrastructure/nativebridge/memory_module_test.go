package nativebridge_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bivex/paywall-purchases/internal/domain/bridge"
	"github.com/bivex/paywall-purchases/internal/domain/entity"
	domainErrors "github.com/bivex/paywall-purchases/internal/domain/errors"
	"github.com/bivex/paywall-purchases/internal/domain/event"
	"github.com/bivex/paywall-purchases/internal/domain/service"
	"github.com/bivex/paywall-purchases/internal/domain/valueobject"
	"github.com/bivex/paywall-purchases/internal/infrastructure/nativebridge"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingSink struct {
	mu     sync.Mutex
	events []bridge.NativeEvent
}

func (s *recordingSink) Dispatch(ev bridge.NativeEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *recordingSink) last() bridge.NativeEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) == 0 {
		return nil
	}
	return s.events[len(s.events)-1]
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func newModule(t *testing.T) (*nativebridge.MemoryModule, *fakeClock, *recordingSink) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)}
	module := nativebridge.NewMemoryModule(
		nativebridge.WithDefaultCatalog(),
		nativebridge.WithClock(clock.Now),
	)
	sink := &recordingSink{}
	require.NoError(t, module.Attach(sink))
	return module, clock, sink
}

func configured(t *testing.T, appUserID string) (*nativebridge.MemoryModule, *fakeClock, *recordingSink) {
	t.Helper()
	module, clock, sink := newModule(t)
	require.NoError(t, module.SetupPurchases(context.Background(), "appl_key", appUserID, false))
	return module, clock, sink
}

func readableCode(t *testing.T, err error) string {
	t.Helper()
	var nativeErr *domainErrors.NativeError
	require.ErrorAs(t, err, &nativeErr)
	return nativeErr.ReadableErrorCode
}

func TestMemoryModule_Setup(t *testing.T) {
	ctx := context.Background()

	t.Run("calls before setup are rejected", func(t *testing.T) {
		module, _, _ := newModule(t)

		_, err := module.GetPurchaserInfo(ctx)
		assert.Equal(t, domainErrors.ReadableConfigurationError, readableCode(t, err))
	})

	t.Run("anonymous setup generates an anonymous id and emits an update", func(t *testing.T) {
		module, _, sink := configured(t, "")

		id, err := module.GetAppUserID(ctx)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(id, nativebridge.AnonymousIDPrefix))
		assert.Len(t, strings.TrimPrefix(id, nativebridge.AnonymousIDPrefix), 32)

		update, ok := sink.last().(bridge.PurchaserInfoUpdatedEvent)
		require.True(t, ok)
		assert.Equal(t, id, update.PurchaserInfo.OriginalAppUserID)
	})

	t.Run("setup with an app user id and observer mode", func(t *testing.T) {
		module, _, _ := newModule(t)
		require.NoError(t, module.SetupPurchases(ctx, "appl_key", "user-1", true))

		state := module.State()
		assert.True(t, state.Configured)
		assert.True(t, state.ObserverMode)
		assert.Equal(t, "user-1", state.AppUserID)
	})

	t.Run("empty api key is rejected", func(t *testing.T) {
		module, _, _ := newModule(t)

		err := module.SetupPurchases(ctx, "", "", false)
		assert.Equal(t, domainErrors.ReadableInvalidCredentials, readableCode(t, err))
	})

	t.Run("settings are stored", func(t *testing.T) {
		module, _, _ := configured(t, "user-1")

		require.NoError(t, module.SetAllowSharingStoreAccount(ctx, true))
		require.NoError(t, module.SetFinishTransactions(ctx, false))
		require.NoError(t, module.SetDebugLogsEnabled(ctx, true))
		require.NoError(t, module.AddAttributionData(ctx, map[string]any{"campaign": "spring"}, valueobject.AttributionBranch, "b-1"))

		state := module.State()
		assert.True(t, state.AllowSharingStoreAccount)
		assert.False(t, state.FinishTransactions)
		assert.True(t, state.DebugLogs)
		require.Len(t, state.Attribution, 1)
		assert.Equal(t, valueobject.AttributionBranch, state.Attribution[0].Network)
	})

	t.Run("cancelled context is honored", func(t *testing.T) {
		module, _, _ := configured(t, "user-1")
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := module.GetPurchaserInfo(cancelled)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestMemoryModule_Catalog(t *testing.T) {
	ctx := context.Background()
	module, _, _ := configured(t, "user-1")

	t.Run("offerings expose the default offering as current", func(t *testing.T) {
		offerings, err := module.GetOfferings(ctx)
		require.NoError(t, err)
		require.NotNil(t, offerings.Current)
		assert.Equal(t, nativebridge.OfferingDefault, offerings.Current.Identifier)
		require.NotNil(t, offerings.Current.Monthly)
		assert.Equal(t, nativebridge.OfferingDefault, offerings.Current.Monthly.OfferingIdentifier)
	})

	t.Run("products are filtered by purchase type", func(t *testing.T) {
		ids := []string{nativebridge.ProductMonthly, nativebridge.ProductCoins, "missing"}

		subs, err := module.GetProductInfo(ctx, ids, valueobject.PurchaseTypeSubs)
		require.NoError(t, err)
		require.Len(t, subs, 1)
		assert.Equal(t, nativebridge.ProductMonthly, subs[0].Identifier)

		inapp, err := module.GetProductInfo(ctx, ids, valueobject.PurchaseTypeInApp)
		require.NoError(t, err)
		require.Len(t, inapp, 1)
		assert.Equal(t, nativebridge.ProductCoins, inapp[0].Identifier)
	})
}

func TestMemoryModule_Purchases(t *testing.T) {
	ctx := context.Background()

	t.Run("subscription grants the entitlement until it expires", func(t *testing.T) {
		module, clock, sink := configured(t, "user-1")
		before := sink.count()

		result, err := module.PurchaseProduct(ctx, nativebridge.ProductMonthly, nil, valueobject.PurchaseTypeSubs)
		require.NoError(t, err)

		assert.Equal(t, nativebridge.ProductMonthly, result.ProductIdentifier)
		assert.True(t, result.PurchaserInfo.HasActiveEntitlement(nativebridge.EntitlementPro))
		assert.Equal(t, []string{nativebridge.ProductMonthly}, result.PurchaserInfo.ActiveSubscriptions)
		require.NotNil(t, result.PurchaserInfo.LatestExpirationDate)
		assert.Equal(t, "2026-11-18T12:00:00Z", *result.PurchaserInfo.LatestExpirationDate)
		assert.Equal(t, before+1, sink.count())

		clock.Advance(31 * 24 * time.Hour)
		info, err := module.GetPurchaserInfo(ctx)
		require.NoError(t, err)
		assert.False(t, info.HasActiveEntitlement(nativebridge.EntitlementPro))
		assert.Empty(t, info.ActiveSubscriptions)
		assert.True(t, info.HasPurchased(nativebridge.ProductMonthly))
	})

	t.Run("wrong purchase type is not available", func(t *testing.T) {
		module, _, _ := configured(t, "user-1")

		_, err := module.PurchaseProduct(ctx, nativebridge.ProductMonthly, nil, valueobject.PurchaseTypeInApp)
		assert.Equal(t, domainErrors.ReadableProductNotAvailable, readableCode(t, err))
	})

	t.Run("upgrade ends the old subscription", func(t *testing.T) {
		module, _, _ := configured(t, "user-1")
		_, err := module.PurchaseProduct(ctx, nativebridge.ProductMonthly, nil, "")
		require.NoError(t, err)

		upgrade := entity.NewUpgradeInfo(nativebridge.ProductMonthly).WithProrationMode(valueobject.ProrationImmediateWithTimeProration)
		result, err := module.PurchaseProduct(ctx, nativebridge.ProductAnnual, upgrade, "")
		require.NoError(t, err)

		assert.Equal(t, []string{nativebridge.ProductAnnual}, result.PurchaserInfo.ActiveSubscriptions)
		pro := result.PurchaserInfo.Entitlements.Active[nativebridge.EntitlementPro]
		assert.Equal(t, nativebridge.ProductAnnual, pro.ProductIdentifier)
	})

	t.Run("upgrade from a product the user does not own fails", func(t *testing.T) {
		module, _, _ := configured(t, "user-1")

		_, err := module.PurchaseProduct(ctx, nativebridge.ProductAnnual, entity.NewUpgradeInfo(nativebridge.ProductMonthly), "")
		assert.Equal(t, domainErrors.ReadablePurchaseInvalid, readableCode(t, err))
	})

	t.Run("lifetime unlock cannot be bought twice but coins can", func(t *testing.T) {
		module, _, _ := configured(t, "user-1")

		result, err := module.PurchaseProduct(ctx, nativebridge.ProductLifetime, nil, valueobject.PurchaseTypeInApp)
		require.NoError(t, err)
		pro := result.PurchaserInfo.Entitlements.Active[nativebridge.EntitlementPro]
		assert.Nil(t, pro.ExpirationDate)
		assert.False(t, pro.WillRenew)

		_, err = module.PurchaseProduct(ctx, nativebridge.ProductLifetime, nil, valueobject.PurchaseTypeInApp)
		assert.Equal(t, domainErrors.ReadableProductAlreadyPurchased, readableCode(t, err))

		for i := 0; i < 2; i++ {
			_, err = module.PurchaseProduct(ctx, nativebridge.ProductCoins, nil, valueobject.PurchaseTypeInApp)
			require.NoError(t, err)
		}
	})

	t.Run("package purchase resolves the offering package", func(t *testing.T) {
		module, _, _ := configured(t, "user-1")

		result, err := module.PurchasePackage(ctx, nativebridge.PackageAnnualID, nativebridge.OfferingDefault, nil)
		require.NoError(t, err)
		assert.Equal(t, nativebridge.ProductAnnual, result.ProductIdentifier)

		_, err = module.PurchasePackage(ctx, "$rc_weekly", nativebridge.OfferingDefault, nil)
		assert.Equal(t, domainErrors.ReadableProductNotAvailable, readableCode(t, err))

		_, err = module.PurchasePackage(ctx, nativebridge.PackageAnnualID, "missing", nil)
		assert.Equal(t, domainErrors.ReadableProductNotAvailable, readableCode(t, err))
	})

	t.Run("scripted failure is returned once", func(t *testing.T) {
		module, _, _ := configured(t, "user-1")
		module.FailNext(&domainErrors.NativeError{Code: "1", ReadableErrorCode: domainErrors.ReadableUserCancelled})

		_, err := module.PurchaseProduct(ctx, nativebridge.ProductMonthly, nil, "")
		assert.Equal(t, domainErrors.ReadableUserCancelled, readableCode(t, err))

		_, err = module.PurchaseProduct(ctx, nativebridge.ProductMonthly, nil, "")
		assert.NoError(t, err)
	})
}

func TestMemoryModule_PromoPurchases(t *testing.T) {
	ctx := context.Background()

	t.Run("intercepted purchase completes through the callback id", func(t *testing.T) {
		module, _, sink := configured(t, "user-1")

		callbackID, err := module.InterceptPromoPurchase(nativebridge.ProductAnnual)
		require.NoError(t, err)
		assert.Equal(t, 1, callbackID)
		assert.Equal(t, bridge.ShouldPurchasePromoProductEvent{CallbackID: 1}, sink.last())
		assert.Equal(t, 1, module.State().PendingPromos)

		result, err := module.MakeDeferredPurchase(ctx, callbackID)
		require.NoError(t, err)
		assert.Equal(t, nativebridge.ProductAnnual, result.ProductIdentifier)
		assert.Equal(t, 0, module.State().PendingPromos)

		_, err = module.MakeDeferredPurchase(ctx, callbackID)
		assert.Equal(t, domainErrors.ReadableUnknown, readableCode(t, err))
	})

	t.Run("unknown product cannot be intercepted", func(t *testing.T) {
		module, _, _ := configured(t, "user-1")

		_, err := module.InterceptPromoPurchase("missing")
		assert.Equal(t, domainErrors.ReadableProductNotAvailable, readableCode(t, err))
	})
}

func TestMemoryModule_Identity(t *testing.T) {
	ctx := context.Background()

	t.Run("identify carries anonymous purchases to the new user", func(t *testing.T) {
		module, _, _ := configured(t, "")
		_, err := module.PurchaseProduct(ctx, nativebridge.ProductMonthly, nil, "")
		require.NoError(t, err)

		info, err := module.Identify(ctx, "user-7")
		require.NoError(t, err)
		assert.Equal(t, "user-7", info.OriginalAppUserID)
		assert.True(t, info.HasActiveEntitlement(nativebridge.EntitlementPro))
	})

	t.Run("reset switches to a fresh anonymous user", func(t *testing.T) {
		module, _, _ := configured(t, "user-1")
		_, err := module.PurchaseProduct(ctx, nativebridge.ProductMonthly, nil, "")
		require.NoError(t, err)

		info, err := module.Reset(ctx)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(info.OriginalAppUserID, nativebridge.AnonymousIDPrefix))
		assert.False(t, info.HasActiveEntitlement(nativebridge.EntitlementPro))

		restored, err := module.RestoreTransactions(ctx)
		require.NoError(t, err)
		assert.True(t, restored.HasActiveEntitlement(nativebridge.EntitlementPro))
	})

	t.Run("alias resolves to the same purchaser", func(t *testing.T) {
		module, _, _ := configured(t, "user-1")
		_, err := module.PurchaseProduct(ctx, nativebridge.ProductMonthly, nil, "")
		require.NoError(t, err)

		_, err = module.CreateAlias(ctx, "user-1-alias")
		require.NoError(t, err)
		_, err = module.Reset(ctx)
		require.NoError(t, err)

		info, err := module.Identify(ctx, "user-1-alias")
		require.NoError(t, err)
		assert.Equal(t, "user-1", info.OriginalAppUserID)
		assert.True(t, info.HasActiveEntitlement(nativebridge.EntitlementPro))
	})

	t.Run("blank ids are rejected natively", func(t *testing.T) {
		module, _, _ := configured(t, "user-1")

		_, err := module.Identify(ctx, " ")
		assert.Equal(t, domainErrors.ReadableInvalidAppUserID, readableCode(t, err))
	})

	t.Run("sync restores store receipts and is counted", func(t *testing.T) {
		module, _, _ := configured(t, "user-1")
		require.NoError(t, module.SyncPurchases(ctx))
		assert.Equal(t, 1, module.State().Syncs)
	})
}

func TestMemoryModule_Eligibility(t *testing.T) {
	ctx := context.Background()
	module, _, _ := configured(t, "user-1")
	ids := []string{nativebridge.ProductMonthly, nativebridge.ProductAnnual, "missing"}

	eligibility, err := module.CheckTrialOrIntroductoryPriceEligibility(ctx, ids)
	require.NoError(t, err)
	assert.Equal(t, valueobject.IntroEligibilityEligible, eligibility[nativebridge.ProductMonthly].Status)
	assert.Equal(t, valueobject.IntroEligibilityIneligible, eligibility[nativebridge.ProductAnnual].Status)
	assert.Equal(t, valueobject.IntroEligibilityUnknown, eligibility["missing"].Status)

	_, err = module.PurchaseProduct(ctx, nativebridge.ProductAnnual, nil, "")
	require.NoError(t, err)

	eligibility, err = module.CheckTrialOrIntroductoryPriceEligibility(ctx, ids)
	require.NoError(t, err)
	assert.Equal(t, valueobject.IntroEligibilityIneligible, eligibility[nativebridge.ProductMonthly].Status)
}

func TestMemoryModule_WithRegistry(t *testing.T) {
	ctx := context.Background()
	module := nativebridge.NewMemoryModule(nativebridge.WithDefaultCatalog())
	registry := event.NewRegistry(module, module)
	svc := service.NewPurchasesService(module, registry, valueobject.PlatformIOS, nil)

	var updates []*entity.PurchaserInfo
	listener := event.PurchaserInfoListener(func(info *entity.PurchaserInfo) {
		updates = append(updates, info)
	})
	require.NoError(t, svc.AddPurchaserInfoUpdateListener(listener))

	var handles []*event.DeferredPurchase
	require.NoError(t, svc.AddShouldPurchasePromoProductListener(
		event.PromoProductListener(func(p *event.DeferredPurchase) { handles = append(handles, p) }),
	))

	require.NoError(t, svc.Setup(ctx, "appl_key", service.WithAppUserID("user-1")))
	require.Len(t, updates, 1)

	t.Run("native error updates never reach listeners", func(t *testing.T) {
		module.EmitPurchaserInfoError(&domainErrors.NativeError{Code: "10", ReadableErrorCode: domainErrors.ReadableNetworkError})
		assert.Len(t, updates, 1)
	})

	t.Run("cancelled purchase is normalized", func(t *testing.T) {
		module.FailNext(&domainErrors.NativeError{Code: "1", Message: "cancelled", ReadableErrorCode: domainErrors.ReadableUserCancelled})

		_, err := svc.PurchaseProduct(ctx, nativebridge.ProductMonthly, nil, "")

		var purchasesErr *domainErrors.PurchasesError
		require.ErrorAs(t, err, &purchasesErr)
		assert.True(t, purchasesErr.UserCancelled)
	})

	t.Run("promoted purchase resumes through the handle", func(t *testing.T) {
		_, err := module.InterceptPromoPurchase(nativebridge.ProductMonthly)
		require.NoError(t, err)
		require.Len(t, handles, 1)

		result, err := handles[0].Resume(ctx)
		require.NoError(t, err)
		assert.True(t, result.PurchaserInfo.HasActiveEntitlement(nativebridge.EntitlementPro))
		assert.True(t, updates[len(updates)-1].HasActiveEntitlement(nativebridge.EntitlementPro))
	})

	t.Run("removed listener stops receiving updates", func(t *testing.T) {
		svc.RemovePurchaserInfoUpdateListener(listener)
		count := len(updates)

		_, err := svc.RestoreTransactions(ctx)
		require.NoError(t, err)
		assert.Len(t, updates, count)
	})
}
