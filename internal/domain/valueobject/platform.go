package valueobject

import (
	"errors"
	"strings"
)

var (
	ErrInvalidPlatform = errors.New("invalid platform")
)

// Platform is the store family the native SDK runs on
type Platform string

const (
	PlatformIOS     Platform = "ios"
	PlatformAndroid Platform = "android"
)

// NewPlatform parses a platform name case-insensitively
func NewPlatform(platform string) (Platform, error) {
	p := Platform(strings.ToLower(strings.TrimSpace(platform)))
	switch p {
	case PlatformIOS, PlatformAndroid:
		return p, nil
	default:
		return "", ErrInvalidPlatform
	}
}

// String returns the string representation of the platform
func (p Platform) String() string {
	return string(p)
}

// SupportsSyncPurchases returns true on platforms where purchases made
// outside the SDK must be synced explicitly
func (p Platform) SupportsSyncPurchases() bool {
	return p == PlatformAndroid
}
