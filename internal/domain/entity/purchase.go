package entity

import (
	"github.com/bivex/paywall-purchases/internal/domain/valueobject"
)

// PurchaseResult is the resolved value of every purchase-initiating call
type PurchaseResult struct {
	ProductIdentifier string         `json:"purchasedProductIdentifier"`
	PurchaserInfo     *PurchaserInfo `json:"purchaserInfo"`
}

// UpgradeInfo describes the subscription being replaced on Android
type UpgradeInfo struct {
	OldSKU        string                     `json:"oldSKU"`
	ProrationMode *valueobject.ProrationMode `json:"prorationMode,omitempty"`
}

// NewUpgradeInfo returns nil for an empty old SKU
func NewUpgradeInfo(oldSKU string) *UpgradeInfo {
	if oldSKU == "" {
		return nil
	}
	return &UpgradeInfo{OldSKU: oldSKU}
}

// WithProrationMode returns a copy carrying the proration mode
func (u UpgradeInfo) WithProrationMode(mode valueobject.ProrationMode) *UpgradeInfo {
	u.ProrationMode = &mode
	return &u
}

// IntroEligibility is the trial/intro price eligibility of one product
type IntroEligibility struct {
	Status      valueobject.IntroEligibilityStatus `json:"status"`
	Description string                             `json:"description"`
}
