package valueobject

import (
	"errors"
)

var (
	ErrInvalidProrationMode = errors.New("invalid proration mode")
)

// ProrationMode mirrors the Play Billing proration modes used on upgrades
type ProrationMode int

const (
	ProrationUnknownUpgradeDowngradePolicy ProrationMode = iota
	ProrationImmediateWithTimeProration
	ProrationImmediateAndChargeProratedPrice
	ProrationImmediateWithoutProration
	ProrationDeferred
)

var prorationModeNames = map[ProrationMode]string{
	ProrationUnknownUpgradeDowngradePolicy:   "UNKNOWN_SUBSCRIPTION_UPGRADE_DOWNGRADE_POLICY",
	ProrationImmediateWithTimeProration:      "IMMEDIATE_WITH_TIME_PRORATION",
	ProrationImmediateAndChargeProratedPrice: "IMMEDIATE_AND_CHARGE_PRORATED_PRICE",
	ProrationImmediateWithoutProration:       "IMMEDIATE_WITHOUT_PRORATION",
	ProrationDeferred:                        "DEFERRED",
}

// NewProrationMode validates a raw proration mode value
func NewProrationMode(mode int) (ProrationMode, error) {
	pm := ProrationMode(mode)
	if !pm.IsValid() {
		return 0, ErrInvalidProrationMode
	}
	return pm, nil
}

// IsValid returns true if the mode is known
func (p ProrationMode) IsValid() bool {
	_, ok := prorationModeNames[p]
	return ok
}

// String returns the constant name of the mode
func (p ProrationMode) String() string {
	if name, ok := prorationModeNames[p]; ok {
		return name
	}
	return "INVALID"
}
