package valueobject

import (
	"errors"
)

var (
	ErrInvalidPurchaseType = errors.New("invalid purchase type")
)

// PurchaseType selects the store product family on Android
type PurchaseType string

const (
	PurchaseTypeInApp PurchaseType = "inapp"
	PurchaseTypeSubs  PurchaseType = "subs"
)

// NewPurchaseType creates a PurchaseType, defaulting an empty value to subs
func NewPurchaseType(purchaseType string) (PurchaseType, error) {
	pt := PurchaseType(purchaseType).OrDefault()
	switch pt {
	case PurchaseTypeInApp, PurchaseTypeSubs:
		return pt, nil
	default:
		return "", ErrInvalidPurchaseType
	}
}

// OrDefault returns subs when the purchase type is unset
func (p PurchaseType) OrDefault() PurchaseType {
	if p == "" {
		return PurchaseTypeSubs
	}
	return p
}

// String returns the string representation of the purchase type
func (p PurchaseType) String() string {
	return string(p)
}
