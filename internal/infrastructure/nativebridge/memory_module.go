package nativebridge

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bivex/paywall-purchases/internal/domain/bridge"
	"github.com/bivex/paywall-purchases/internal/domain/entity"
	domainErrors "github.com/bivex/paywall-purchases/internal/domain/errors"
	"github.com/bivex/paywall-purchases/internal/domain/valueobject"
)

// AnonymousIDPrefix prefixes every generated anonymous app user id
const AnonymousIDPrefix = "$RCAnonymousID:"

// Native error codes reported by the memory module
const (
	codeUnknown            = "0"
	codePurchaseInvalid    = "4"
	codeProductNotAvail    = "5"
	codeAlreadyPurchased   = "6"
	codeInvalidCredentials = "11"
	codeInvalidAppUserID   = "14"
	codeConfiguration      = "23"
)

// CatalogProduct is a store product the memory module can sell
type CatalogProduct struct {
	Product       entity.Product
	Type          valueobject.PurchaseType
	EntitlementID string
	// Period is the subscription length; zero never expires
	Period time.Duration
}

// AttributionRecord is one AddAttributionData call
type AttributionRecord struct {
	Data          map[string]any
	Network       valueobject.AttributionNetwork
	NetworkUserID string
}

// MemoryState is a snapshot of the module settings
type MemoryState struct {
	Configured               bool
	APIKey                   string
	AppUserID                string
	ObserverMode             bool
	AllowSharingStoreAccount bool
	FinishTransactions       bool
	DebugLogs                bool
	Attribution              []AttributionRecord
	Syncs                    int
	PendingPromos            int
}

type purchaseRecord struct {
	productID     string
	entitlementID string
	purchaseType  valueobject.PurchaseType
	purchasedAt   time.Time
	expiresAt     *time.Time
}

type customer struct {
	firstSeen time.Time
	purchases []purchaseRecord
}

// MemoryModule is an in-process bridge.NativeModule and bridge.EventSource.
// It keeps a product catalog, sells products to the current app user and
// pushes a purchaser info update after every state change.
type MemoryModule struct {
	platform valueobject.Platform
	clock    func() time.Time
	logger   *zap.Logger

	mu            sync.Mutex
	catalog       map[string]CatalogProduct
	offerings     map[string]entity.Offering
	currentID     string
	state         MemoryState
	anonymous     bool
	customers     map[string]*customer
	aliases       map[string]string
	storeReceipts []purchaseRecord
	pendingPromos map[int]string
	nextCallback  int
	failNext      *domainErrors.NativeError
	sinks         []bridge.EventSink
}

var (
	_ bridge.NativeModule = (*MemoryModule)(nil)
	_ bridge.EventSource  = (*MemoryModule)(nil)
)

// MemoryOption configures a MemoryModule
type MemoryOption func(*MemoryModule)

// WithPlatform sets the store family reported on entitlements
func WithPlatform(platform valueobject.Platform) MemoryOption {
	return func(m *MemoryModule) {
		m.platform = platform
	}
}

// WithClock overrides time.Now
func WithClock(clock func() time.Time) MemoryOption {
	return func(m *MemoryModule) {
		if clock != nil {
			m.clock = clock
		}
	}
}

// WithLogger sets the module logger
func WithLogger(logger *zap.Logger) MemoryOption {
	return func(m *MemoryModule) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithProducts adds products to the catalog. An empty type means subs.
func WithProducts(products ...CatalogProduct) MemoryOption {
	return func(m *MemoryModule) {
		for _, p := range products {
			p.Type = p.Type.OrDefault()
			m.catalog[p.Product.Identifier] = p
		}
	}
}

// WithOffering adds an offering. The first offering added, or the one
// marked current, becomes the current offering.
func WithOffering(offering entity.Offering, current bool) MemoryOption {
	return func(m *MemoryModule) {
		m.offerings[offering.Identifier] = offering
		if current || m.currentID == "" {
			m.currentID = offering.Identifier
		}
	}
}

// NewMemoryModule creates an unconfigured module
func NewMemoryModule(opts ...MemoryOption) *MemoryModule {
	m := &MemoryModule{
		platform:      valueobject.PlatformIOS,
		clock:         time.Now,
		logger:        zap.NewNop(),
		catalog:       make(map[string]CatalogProduct),
		offerings:     make(map[string]entity.Offering),
		customers:     make(map[string]*customer),
		aliases:       make(map[string]string),
		pendingPromos: make(map[int]string),
		nextCallback:  1,
	}
	m.state.FinishTransactions = true
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Attach registers sink for purchaser info and promo events
func (m *MemoryModule) Attach(sink bridge.EventSink) error {
	if sink == nil {
		return domainErrors.ErrNilListener
	}
	m.mu.Lock()
	m.sinks = append(m.sinks, sink)
	m.mu.Unlock()
	return nil
}

// FailNext makes the next native call reject with err
func (m *MemoryModule) FailNext(err *domainErrors.NativeError) {
	m.mu.Lock()
	m.failNext = err
	m.mu.Unlock()
}

// EmitPurchaserInfoError pushes an update that carries a native error
func (m *MemoryModule) EmitPurchaserInfoError(err *domainErrors.NativeError) {
	m.emit(bridge.PurchaserInfoUpdatedEvent{Error: err})
}

// InterceptPromoPurchase simulates the store intercepting a promoted
// purchase of productID. Listeners receive the callback id and the
// purchase completes only through MakeDeferredPurchase.
func (m *MemoryModule) InterceptPromoPurchase(productID string) (int, error) {
	m.mu.Lock()
	if _, ok := m.catalog[productID]; !ok {
		m.mu.Unlock()
		return 0, productNotAvailable(productID)
	}
	callbackID := m.nextCallback
	m.nextCallback++
	m.pendingPromos[callbackID] = productID
	m.mu.Unlock()

	m.logger.Debug("Intercepted promoted purchase",
		zap.String("product_id", productID),
		zap.Int("callback_id", callbackID),
	)
	m.emit(bridge.ShouldPurchasePromoProductEvent{CallbackID: callbackID})
	return callbackID, nil
}

// State returns a snapshot of the module settings
func (m *MemoryModule) State() MemoryState {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.state
	s.Attribution = slices.Clone(m.state.Attribution)
	s.PendingPromos = len(m.pendingPromos)
	return s
}

func (m *MemoryModule) SetupPurchases(ctx context.Context, apiKey, appUserID string, observerMode bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	if err := m.takeFailure(); err != nil {
		m.mu.Unlock()
		return err
	}
	if strings.TrimSpace(apiKey) == "" {
		m.mu.Unlock()
		return nativeError(codeInvalidCredentials, domainErrors.ReadableInvalidCredentials, "API key is empty")
	}

	m.state.Configured = true
	m.state.APIKey = apiKey
	m.state.ObserverMode = observerMode
	if appUserID == "" {
		m.switchUser(newAnonymousID(), true)
	} else {
		m.switchUser(appUserID, false)
	}
	info := m.purchaserInfo()
	m.mu.Unlock()

	m.logger.Info("Memory purchases module configured",
		zap.String("app_user_id", info.OriginalAppUserID),
		zap.Bool("observer_mode", observerMode),
	)
	m.emit(bridge.PurchaserInfoUpdatedEvent{PurchaserInfo: info})
	return nil
}

func (m *MemoryModule) SetAllowSharingStoreAccount(ctx context.Context, allowSharing bool) error {
	return m.update(ctx, func() { m.state.AllowSharingStoreAccount = allowSharing })
}

func (m *MemoryModule) SetFinishTransactions(ctx context.Context, finishTransactions bool) error {
	return m.update(ctx, func() { m.state.FinishTransactions = finishTransactions })
}

func (m *MemoryModule) SetDebugLogsEnabled(ctx context.Context, enabled bool) error {
	return m.update(ctx, func() { m.state.DebugLogs = enabled })
}

func (m *MemoryModule) AddAttributionData(ctx context.Context, data map[string]any, network valueobject.AttributionNetwork, networkUserID string) error {
	return m.update(ctx, func() {
		m.state.Attribution = append(m.state.Attribution, AttributionRecord{
			Data:          data,
			Network:       network,
			NetworkUserID: networkUserID,
		})
	})
}

func (m *MemoryModule) GetOfferings(ctx context.Context) (*entity.Offerings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.begin(ctx); err != nil {
		return nil, err
	}

	all := make(map[string]entity.Offering, len(m.offerings))
	for id, o := range m.offerings {
		all[id] = entity.NewOffering(o.Identifier, o.ServerDescription, o.AvailablePackages)
	}
	offerings := &entity.Offerings{All: all}
	if current, ok := all[m.currentID]; ok {
		offerings.Current = &current
	}
	return offerings, nil
}

func (m *MemoryModule) GetProductInfo(ctx context.Context, productIDs []string, purchaseType valueobject.PurchaseType) ([]entity.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.begin(ctx); err != nil {
		return nil, err
	}

	products := make([]entity.Product, 0, len(productIDs))
	for _, id := range productIDs {
		p, ok := m.catalog[id]
		if !ok || p.Type != purchaseType.OrDefault() {
			continue
		}
		products = append(products, p.Product)
	}
	return products, nil
}

func (m *MemoryModule) PurchaseProduct(ctx context.Context, productID string, upgradeInfo *entity.UpgradeInfo, purchaseType valueobject.PurchaseType) (*entity.PurchaseResult, error) {
	m.mu.Lock()
	if err := m.begin(ctx); err != nil {
		m.mu.Unlock()
		return nil, err
	}
	p, ok := m.catalog[productID]
	if !ok || p.Type != purchaseType.OrDefault() {
		m.mu.Unlock()
		return nil, productNotAvailable(productID)
	}
	result, err := m.purchase(p, upgradeInfo)
	m.mu.Unlock()

	return m.finishPurchase(result, err)
}

func (m *MemoryModule) PurchasePackage(ctx context.Context, packageID, offeringID string, upgradeInfo *entity.UpgradeInfo) (*entity.PurchaseResult, error) {
	m.mu.Lock()
	if err := m.begin(ctx); err != nil {
		m.mu.Unlock()
		return nil, err
	}

	offering, ok := m.offerings[offeringID]
	if !ok {
		m.mu.Unlock()
		return nil, nativeError(codeProductNotAvail, domainErrors.ReadableProductNotAvailable,
			fmt.Sprintf("offering %q not found", offeringID))
	}
	pkg := offering.Package(packageID)
	if pkg == nil {
		m.mu.Unlock()
		return nil, nativeError(codeProductNotAvail, domainErrors.ReadableProductNotAvailable,
			fmt.Sprintf("package %q not found in offering %q", packageID, offeringID))
	}
	p, ok := m.catalog[pkg.Product.Identifier]
	if !ok {
		m.mu.Unlock()
		return nil, productNotAvailable(pkg.Product.Identifier)
	}
	result, err := m.purchase(p, upgradeInfo)
	m.mu.Unlock()

	return m.finishPurchase(result, err)
}

func (m *MemoryModule) MakeDeferredPurchase(ctx context.Context, callbackID int) (*entity.PurchaseResult, error) {
	m.mu.Lock()
	if err := m.begin(ctx); err != nil {
		m.mu.Unlock()
		return nil, err
	}
	productID, ok := m.pendingPromos[callbackID]
	if !ok {
		m.mu.Unlock()
		return nil, nativeError(codeUnknown, domainErrors.ReadableUnknown,
			fmt.Sprintf("no pending promoted purchase for callback %d", callbackID))
	}
	delete(m.pendingPromos, callbackID)
	result, err := m.purchase(m.catalog[productID], nil)
	m.mu.Unlock()

	return m.finishPurchase(result, err)
}

func (m *MemoryModule) RestoreTransactions(ctx context.Context) (*entity.PurchaserInfo, error) {
	return m.change(ctx, func() error {
		m.restoreReceipts()
		return nil
	})
}

func (m *MemoryModule) GetAppUserID(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.begin(ctx); err != nil {
		return "", err
	}
	return m.state.AppUserID, nil
}

func (m *MemoryModule) CreateAlias(ctx context.Context, newAppUserID string) (*entity.PurchaserInfo, error) {
	return m.change(ctx, func() error {
		if err := checkAppUserID(newAppUserID); err != nil {
			return err
		}
		current := m.canonical(m.state.AppUserID)
		if newAppUserID != current {
			m.aliases[newAppUserID] = current
		}
		return nil
	})
}

func (m *MemoryModule) Identify(ctx context.Context, newAppUserID string) (*entity.PurchaserInfo, error) {
	return m.change(ctx, func() error {
		if err := checkAppUserID(newAppUserID); err != nil {
			return err
		}
		if m.anonymous {
			// Anonymous purchases follow the user to the identified id
			from := m.customerFor(m.state.AppUserID)
			if to := m.customerFor(newAppUserID); to != from {
				to.purchases = append(to.purchases, from.purchases...)
				from.purchases = nil
			}
		}
		m.switchUser(newAppUserID, false)
		return nil
	})
}

func (m *MemoryModule) Reset(ctx context.Context) (*entity.PurchaserInfo, error) {
	return m.change(ctx, func() error {
		m.switchUser(newAnonymousID(), true)
		return nil
	})
}

func (m *MemoryModule) GetPurchaserInfo(ctx context.Context) (*entity.PurchaserInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.begin(ctx); err != nil {
		return nil, err
	}
	return m.purchaserInfo(), nil
}

func (m *MemoryModule) SyncPurchases(ctx context.Context) error {
	_, err := m.change(ctx, func() error {
		m.restoreReceipts()
		m.state.Syncs++
		return nil
	})
	return err
}

func (m *MemoryModule) CheckTrialOrIntroductoryPriceEligibility(ctx context.Context, productIDs []string) (map[string]entity.IntroEligibility, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.begin(ctx); err != nil {
		return nil, err
	}

	purchases := m.customerFor(m.state.AppUserID).purchases
	result := make(map[string]entity.IntroEligibility, len(productIDs))
	for _, id := range productIDs {
		p, ok := m.catalog[id]
		switch {
		case !ok:
			result[id] = entity.IntroEligibility{Status: valueobject.IntroEligibilityUnknown, Description: "product not found"}
		case !p.Product.HasIntroPrice():
			result[id] = entity.IntroEligibility{Status: valueobject.IntroEligibilityIneligible, Description: "product has no introductory price"}
		case usedIntro(purchases, p):
			result[id] = entity.IntroEligibility{Status: valueobject.IntroEligibilityIneligible, Description: "introductory price already used"}
		default:
			result[id] = entity.IntroEligibility{Status: valueobject.IntroEligibilityEligible, Description: "eligible for introductory price"}
		}
	}
	return result, nil
}

// begin runs the common checks of every native call. Callers hold mu.
func (m *MemoryModule) begin(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := m.takeFailure(); err != nil {
		return err
	}
	if !m.state.Configured {
		return nativeError(codeConfiguration, domainErrors.ReadableConfigurationError, "purchases has not been configured")
	}
	return nil
}

func (m *MemoryModule) takeFailure() error {
	if m.failNext == nil {
		return nil
	}
	err := *m.failNext
	m.failNext = nil
	return &err
}

func (m *MemoryModule) update(ctx context.Context, apply func()) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.begin(ctx); err != nil {
		return err
	}
	apply()
	return nil
}

// change applies a user-state mutation and emits the resulting snapshot
func (m *MemoryModule) change(ctx context.Context, apply func() error) (*entity.PurchaserInfo, error) {
	m.mu.Lock()
	if err := m.begin(ctx); err != nil {
		m.mu.Unlock()
		return nil, err
	}
	if err := apply(); err != nil {
		m.mu.Unlock()
		return nil, err
	}
	info := m.purchaserInfo()
	m.mu.Unlock()

	m.emit(bridge.PurchaserInfoUpdatedEvent{PurchaserInfo: info.Clone()})
	return info, nil
}

// purchase records a purchase for the current user. Callers hold mu.
func (m *MemoryModule) purchase(p CatalogProduct, upgradeInfo *entity.UpgradeInfo) (*entity.PurchaseResult, error) {
	now := m.clock().UTC()
	c := m.customerFor(m.state.AppUserID)

	if upgradeInfo != nil && upgradeInfo.OldSKU != "" {
		idx := activePurchase(c.purchases, upgradeInfo.OldSKU, now)
		if idx < 0 {
			return nil, nativeError(codePurchaseInvalid, domainErrors.ReadablePurchaseInvalid,
				fmt.Sprintf("product %q is not active and cannot be replaced", upgradeInfo.OldSKU))
		}
		ended := now
		c.purchases[idx].expiresAt = &ended
	}

	nonConsumable := p.Type == valueobject.PurchaseTypeInApp && p.Period == 0 && p.EntitlementID != ""
	if nonConsumable && activePurchase(c.purchases, p.Product.Identifier, now) >= 0 {
		return nil, nativeError(codeAlreadyPurchased, domainErrors.ReadableProductAlreadyPurchased,
			fmt.Sprintf("product %q is already owned", p.Product.Identifier))
	}

	record := purchaseRecord{
		productID:     p.Product.Identifier,
		entitlementID: p.EntitlementID,
		purchaseType:  p.Type,
		purchasedAt:   now,
	}
	if p.Period > 0 {
		expires := now.Add(p.Period)
		record.expiresAt = &expires
	}
	c.purchases = append(c.purchases, record)
	m.storeReceipts = append(m.storeReceipts, record)

	return &entity.PurchaseResult{
		ProductIdentifier: p.Product.Identifier,
		PurchaserInfo:     m.purchaserInfo(),
	}, nil
}

func (m *MemoryModule) finishPurchase(result *entity.PurchaseResult, err error) (*entity.PurchaseResult, error) {
	if err != nil {
		return nil, err
	}
	m.logger.Debug("Purchase completed", zap.String("product_id", result.ProductIdentifier))
	m.emit(bridge.PurchaserInfoUpdatedEvent{PurchaserInfo: result.PurchaserInfo.Clone()})
	return result, nil
}

// restoreReceipts grants every purchase made on this store account to the
// current user. Callers hold mu.
func (m *MemoryModule) restoreReceipts() {
	c := m.customerFor(m.state.AppUserID)
	for _, r := range m.storeReceipts {
		if !slices.ContainsFunc(c.purchases, func(p purchaseRecord) bool {
			return p.productID == r.productID && p.purchasedAt.Equal(r.purchasedAt)
		}) {
			c.purchases = append(c.purchases, r)
		}
	}
}

func (m *MemoryModule) switchUser(appUserID string, anonymous bool) {
	m.state.AppUserID = appUserID
	m.anonymous = anonymous
	m.customerFor(appUserID)
}

func (m *MemoryModule) canonical(appUserID string) string {
	if target, ok := m.aliases[appUserID]; ok {
		return target
	}
	return appUserID
}

func (m *MemoryModule) customerFor(appUserID string) *customer {
	id := m.canonical(appUserID)
	c, ok := m.customers[id]
	if !ok {
		c = &customer{firstSeen: m.clock().UTC()}
		m.customers[id] = c
	}
	return c
}

// purchaserInfo builds the snapshot for the current user. Callers hold mu.
func (m *MemoryModule) purchaserInfo() *entity.PurchaserInfo {
	now := m.clock().UTC()
	id := m.canonical(m.state.AppUserID)
	c := m.customerFor(id)

	info := entity.NewPurchaserInfo(id, c.firstSeen)
	info.RequestDate = formatDate(now)

	var latest *time.Time
	for _, p := range c.purchases {
		if !slices.Contains(info.AllPurchasedProductIdentifiers, p.productID) {
			info.AllPurchasedProductIdentifiers = append(info.AllPurchasedProductIdentifiers, p.productID)
		}
		purchased := formatDate(p.purchasedAt)
		info.AllPurchaseDates[p.productID] = &purchased
		info.AllExpirationDates[p.productID] = formatDatePtr(p.expiresAt)

		active := p.expiresAt == nil || p.expiresAt.After(now)
		if p.purchaseType == valueobject.PurchaseTypeSubs && p.expiresAt != nil {
			if active && !slices.Contains(info.ActiveSubscriptions, p.productID) {
				info.ActiveSubscriptions = append(info.ActiveSubscriptions, p.productID)
			}
			if latest == nil || p.expiresAt.After(*latest) {
				latest = p.expiresAt
			}
		}

		if p.entitlementID == "" {
			continue
		}
		existing, seen := info.Entitlements.All[p.entitlementID]
		if seen && !outlasts(p, existing) {
			continue
		}
		ent := entity.EntitlementInfo{
			Identifier:           p.entitlementID,
			IsActive:             active,
			WillRenew:            active && p.purchaseType == valueobject.PurchaseTypeSubs && p.expiresAt != nil,
			PeriodType:           entity.PeriodNormal,
			LatestPurchaseDate:   purchased,
			OriginalPurchaseDate: purchased,
			ExpirationDate:       formatDatePtr(p.expiresAt),
			Store:                m.store(),
			ProductIdentifier:    p.productID,
			IsSandbox:            true,
		}
		if seen {
			ent.OriginalPurchaseDate = existing.OriginalPurchaseDate
		}
		info.Entitlements.All[p.entitlementID] = ent
		if active {
			info.Entitlements.Active[p.entitlementID] = ent
		} else {
			delete(info.Entitlements.Active, p.entitlementID)
		}
	}
	info.LatestExpirationDate = formatDatePtr(latest)
	return info
}

func (m *MemoryModule) store() entity.Store {
	if m.platform == valueobject.PlatformAndroid {
		return entity.StorePlayStore
	}
	return entity.StoreAppStore
}

// emit delivers ev to every attached sink outside the module lock
func (m *MemoryModule) emit(ev bridge.NativeEvent) {
	m.mu.Lock()
	sinks := slices.Clone(m.sinks)
	m.mu.Unlock()

	for _, sink := range sinks {
		sink.Dispatch(ev)
	}
}

// outlasts reports whether p grants longer access than the entitlement
// already recorded
func outlasts(p purchaseRecord, existing entity.EntitlementInfo) bool {
	if existing.ExpirationDate == nil {
		return p.expiresAt == nil
	}
	if p.expiresAt == nil {
		return true
	}
	current, ok := valueobject.ParseUTCDate(*existing.ExpirationDate)
	return !ok || !p.expiresAt.Before(current)
}

func activePurchase(purchases []purchaseRecord, productID string, now time.Time) int {
	for i := len(purchases) - 1; i >= 0; i-- {
		p := purchases[i]
		if p.productID == productID && (p.expiresAt == nil || p.expiresAt.After(now)) {
			return i
		}
	}
	return -1
}

func usedIntro(purchases []purchaseRecord, p CatalogProduct) bool {
	return slices.ContainsFunc(purchases, func(r purchaseRecord) bool {
		if r.productID == p.Product.Identifier {
			return true
		}
		return p.EntitlementID != "" && r.entitlementID == p.EntitlementID
	})
}

func checkAppUserID(appUserID string) error {
	if strings.TrimSpace(appUserID) == "" {
		return nativeError(codeInvalidAppUserID, domainErrors.ReadableInvalidAppUserID, "app user id is empty")
	}
	return nil
}

func newAnonymousID() string {
	return AnonymousIDPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}

func nativeError(code, readable, message string) *domainErrors.NativeError {
	return &domainErrors.NativeError{
		Code:              code,
		Message:           message,
		ReadableErrorCode: readable,
	}
}

func productNotAvailable(productID string) *domainErrors.NativeError {
	return nativeError(codeProductNotAvail, domainErrors.ReadableProductNotAvailable,
		fmt.Sprintf("product %q is not available for purchase", productID))
}

func formatDate(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatDatePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatDate(*t)
	return &s
}
