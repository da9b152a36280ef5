package entity

import (
	"sort"
	"time"

	"github.com/bivex/paywall-purchases/internal/domain/valueobject"
)

type PeriodType string

const (
	PeriodNormal PeriodType = "NORMAL"
	PeriodIntro  PeriodType = "INTRO"
	PeriodTrial  PeriodType = "TRIAL"
)

type Store string

const (
	StoreAppStore    Store = "APP_STORE"
	StoreMacAppStore Store = "MAC_APP_STORE"
	StorePlayStore   Store = "PLAY_STORE"
	StoreStripe      Store = "STRIPE"
	StorePromotional Store = "PROMOTIONAL"
	StoreUnknown     Store = "UNKNOWN_STORE"
)

// EntitlementInfo is the state of a single entitlement for the current user
type EntitlementInfo struct {
	Identifier             string     `json:"identifier"`
	IsActive               bool       `json:"isActive"`
	WillRenew              bool       `json:"willRenew"`
	PeriodType             PeriodType `json:"periodType"`
	LatestPurchaseDate     string     `json:"latestPurchaseDate"`
	OriginalPurchaseDate   string     `json:"originalPurchaseDate"`
	ExpirationDate         *string    `json:"expirationDate"`
	Store                  Store      `json:"store"`
	ProductIdentifier      string     `json:"productIdentifier"`
	IsSandbox              bool       `json:"isSandbox"`
	UnsubscribeDetectedAt  *string    `json:"unsubscribeDetectedAt"`
	BillingIssueDetectedAt *string    `json:"billingIssueDetectedAt"`
}

// IsActiveAt re-evaluates the entitlement against now. An entitlement
// without an expiration date never expires.
func (e EntitlementInfo) IsActiveAt(now time.Time) bool {
	if e.ExpirationDate == nil {
		return true
	}
	return valueobject.IsUTCDateStringFutureAt(*e.ExpirationDate, now)
}

// HasBillingIssue returns true if the store reported a failed renewal
func (e EntitlementInfo) HasBillingIssue() bool {
	return e.BillingIssueDetectedAt != nil
}

// EntitlementInfos groups every entitlement and the currently active ones
type EntitlementInfos struct {
	All    map[string]EntitlementInfo `json:"all"`
	Active map[string]EntitlementInfo `json:"active"`
}

// PurchaserInfo is the subscriber state snapshot owned by the native SDK
type PurchaserInfo struct {
	Entitlements                   EntitlementInfos   `json:"entitlements"`
	ActiveSubscriptions            []string           `json:"activeSubscriptions"`
	AllPurchasedProductIdentifiers []string           `json:"allPurchasedProductIdentifiers"`
	LatestExpirationDate           *string            `json:"latestExpirationDate"`
	FirstSeen                      string             `json:"firstSeen"`
	OriginalAppUserID              string             `json:"originalAppUserId"`
	RequestDate                    string             `json:"requestDate"`
	AllExpirationDates             map[string]*string `json:"allExpirationDates"`
	AllPurchaseDates               map[string]*string `json:"allPurchaseDates"`
	OriginalApplicationVersion     *string            `json:"originalApplicationVersion"`
}

// NewPurchaserInfo creates an empty snapshot for a freshly seen user
func NewPurchaserInfo(appUserID string, now time.Time) *PurchaserInfo {
	seen := now.UTC().Format(time.RFC3339)
	return &PurchaserInfo{
		Entitlements: EntitlementInfos{
			All:    make(map[string]EntitlementInfo),
			Active: make(map[string]EntitlementInfo),
		},
		ActiveSubscriptions:            []string{},
		AllPurchasedProductIdentifiers: []string{},
		FirstSeen:                      seen,
		OriginalAppUserID:              appUserID,
		RequestDate:                    seen,
		AllExpirationDates:             make(map[string]*string),
		AllPurchaseDates:               make(map[string]*string),
	}
}

// ActiveEntitlementIDs returns the identifiers of active entitlements, sorted
func (p *PurchaserInfo) ActiveEntitlementIDs() []string {
	ids := make([]string, 0, len(p.Entitlements.Active))
	for id := range p.Entitlements.Active {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// HasActiveEntitlement returns true if the entitlement is active
func (p *PurchaserInfo) HasActiveEntitlement(identifier string) bool {
	_, ok := p.Entitlements.Active[identifier]
	return ok
}

// HasPurchased returns true if the product was ever purchased
func (p *PurchaserInfo) HasPurchased(productID string) bool {
	for _, id := range p.AllPurchasedProductIdentifiers {
		if id == productID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy that shares no maps or slices with p
func (p *PurchaserInfo) Clone() *PurchaserInfo {
	if p == nil {
		return nil
	}
	c := *p
	c.Entitlements = EntitlementInfos{
		All:    cloneEntitlements(p.Entitlements.All),
		Active: cloneEntitlements(p.Entitlements.Active),
	}
	c.ActiveSubscriptions = append([]string{}, p.ActiveSubscriptions...)
	c.AllPurchasedProductIdentifiers = append([]string{}, p.AllPurchasedProductIdentifiers...)
	c.LatestExpirationDate = cloneString(p.LatestExpirationDate)
	c.AllExpirationDates = cloneDates(p.AllExpirationDates)
	c.AllPurchaseDates = cloneDates(p.AllPurchaseDates)
	c.OriginalApplicationVersion = cloneString(p.OriginalApplicationVersion)
	return &c
}

func cloneEntitlements(in map[string]EntitlementInfo) map[string]EntitlementInfo {
	out := make(map[string]EntitlementInfo, len(in))
	for k, v := range in {
		v.ExpirationDate = cloneString(v.ExpirationDate)
		v.UnsubscribeDetectedAt = cloneString(v.UnsubscribeDetectedAt)
		v.BillingIssueDetectedAt = cloneString(v.BillingIssueDetectedAt)
		out[k] = v
	}
	return out
}

func cloneDates(in map[string]*string) map[string]*string {
	out := make(map[string]*string, len(in))
	for k, v := range in {
		out[k] = cloneString(v)
	}
	return out
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
