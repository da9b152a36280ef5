package valueobject

import (
	"errors"
)

var (
	ErrInvalidAttributionNetwork = errors.New("invalid attribution network")
)

// AttributionNetwork identifies the source of attribution data
type AttributionNetwork int

const (
	AttributionAppleSearchAds AttributionNetwork = iota
	AttributionAdjust
	AttributionAppsFlyer
	AttributionBranch
	AttributionTenjin
	AttributionFacebook
)

var attributionNetworkNames = map[AttributionNetwork]string{
	AttributionAppleSearchAds: "APPLE_SEARCH_ADS",
	AttributionAdjust:         "ADJUST",
	AttributionAppsFlyer:      "APPSFLYER",
	AttributionBranch:         "BRANCH",
	AttributionTenjin:         "TENJIN",
	AttributionFacebook:       "FACEBOOK",
}

// NewAttributionNetwork validates a raw network value
func NewAttributionNetwork(network int) (AttributionNetwork, error) {
	n := AttributionNetwork(network)
	if !n.IsValid() {
		return 0, ErrInvalidAttributionNetwork
	}
	return n, nil
}

// IsValid returns true if the network is known
func (n AttributionNetwork) IsValid() bool {
	_, ok := attributionNetworkNames[n]
	return ok
}

// String returns the constant name of the network
func (n AttributionNetwork) String() string {
	if name, ok := attributionNetworkNames[n]; ok {
		return name
	}
	return "INVALID"
}
