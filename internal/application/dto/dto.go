package dto

import (
	"time"

	"github.com/bivex/paywall-purchases/internal/domain/entity"
)

// ========== SETUP DTOs ==========

// SetupRequest configures the native SDK
type SetupRequest struct {
	APIKey       string  `json:"api_key" binding:"required"`
	AppUserID    *string `json:"app_user_id"`
	ObserverMode bool    `json:"observer_mode"`
}

// SettingsRequest toggles SDK settings. Absent fields are left unchanged.
type SettingsRequest struct {
	AllowSharingStoreAccount *bool `json:"allow_sharing_store_account"`
	FinishTransactions       *bool `json:"finish_transactions"`
	DebugLogsEnabled         *bool `json:"debug_logs_enabled"`
}

// AttributionRequest reports attribution data for a network
type AttributionRequest struct {
	Data          map[string]any `json:"data"`
	Network       *int           `json:"network" binding:"required"`
	NetworkUserID string         `json:"network_user_id"`
}

// ========== CATALOG DTOs ==========

// ProductsRequest is bound from the products query string
type ProductsRequest struct {
	ProductIDs []string `form:"id" binding:"required,min=1"`
	Type       string   `form:"type"`
}

// ProductsResponse lists fetched products
type ProductsResponse struct {
	Products []entity.Product `json:"products"`
}

// ========== PURCHASE DTOs ==========

// UpgradeRequest replaces an active subscription
type UpgradeRequest struct {
	OldSKU        string `json:"old_sku" binding:"required"`
	ProrationMode *int   `json:"proration_mode"`
}

// PurchaseProductRequest purchases a product by identifier
type PurchaseProductRequest struct {
	ProductID string          `json:"product_id" binding:"required"`
	Type      string          `json:"type"`
	Upgrade   *UpgradeRequest `json:"upgrade"`
}

// PurchasePackageRequest purchases a package of an offering
type PurchasePackageRequest struct {
	OfferingID string          `json:"offering_id" binding:"required"`
	PackageID  string          `json:"package_id" binding:"required"`
	Upgrade    *UpgradeRequest `json:"upgrade"`
}

// ========== IDENTITY DTOs ==========

// AppUserIDRequest carries an app user id for identify and alias
type AppUserIDRequest struct {
	AppUserID string `json:"app_user_id"`
}

// AppUserIDResponse returns the current app user id
type AppUserIDResponse struct {
	AppUserID string `json:"app_user_id"`
}

// ========== PURCHASER INFO DTOs ==========

// CachedPurchaserInfoResponse is the latest snapshot pushed by the SDK
type CachedPurchaserInfoResponse struct {
	PurchaserInfo *entity.PurchaserInfo `json:"purchaser_info"`
	UpdatedAt     time.Time             `json:"updated_at"`
	Updates       uint64                `json:"updates"`
}

// EligibilityRequest is bound from the eligibility query string
type EligibilityRequest struct {
	ProductIDs []string `form:"id" binding:"required,min=1"`
}

// EligibilityResponse maps product ids to intro eligibility
type EligibilityResponse struct {
	Eligibility map[string]entity.IntroEligibility `json:"eligibility"`
}

// ========== PROMO DTOs ==========

// PendingPromoResponse is one parked promoted purchase
type PendingPromoResponse struct {
	CallbackID int       `json:"callback_id"`
	ReceivedAt time.Time `json:"received_at"`
}

// PendingPromosResponse lists parked promoted purchases
type PendingPromosResponse struct {
	Pending []PendingPromoResponse `json:"pending"`
}

// ========== ACCESS DTOs ==========

// Access check sources
const (
	SourceCache = "cache"
	SourceLive  = "live"
)

// AccessCheckResponse represents an access check response
type AccessCheckResponse struct {
	EntitlementID string `json:"entitlement_id"`
	AppUserID     string `json:"app_user_id"`
	HasAccess     bool   `json:"has_access"`
	ProductID     string `json:"product_id,omitempty"`
	ExpiresAt     string `json:"expires_at,omitempty"`
	WillRenew     bool   `json:"will_renew"`
	Reason        string `json:"reason,omitempty"`
	Source        string `json:"source"`
}

// ========== HEALTH DTOs ==========

// HealthResponse reports host health
type HealthResponse struct {
	Status    string `json:"status"`
	Platform  string `json:"platform"`
	Attached  bool   `json:"attached"`
	Listeners struct {
		PurchaserInfo int `json:"purchaser_info"`
		PromoProduct  int `json:"promo_product"`
	} `json:"listeners"`
	Redis string `json:"redis,omitempty"`
}
