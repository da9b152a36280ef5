package valueobject

import (
	"errors"
)

var (
	ErrInvalidPackageType = errors.New("invalid package type")
)

// PackageType identifies the duration slot a package occupies in an offering
type PackageType string

const (
	PackageUnknown    PackageType = "UNKNOWN"
	PackageCustom     PackageType = "CUSTOM"
	PackageLifetime   PackageType = "LIFETIME"
	PackageAnnual     PackageType = "ANNUAL"
	PackageSixMonth   PackageType = "SIX_MONTH"
	PackageThreeMonth PackageType = "THREE_MONTH"
	PackageTwoMonth   PackageType = "TWO_MONTH"
	PackageMonthly    PackageType = "MONTHLY"
	PackageWeekly     PackageType = "WEEKLY"
)

// NewPackageType creates a new PackageType value object
func NewPackageType(packageType string) (PackageType, error) {
	pt := PackageType(packageType)
	if !pt.IsValid() {
		return "", ErrInvalidPackageType
	}
	return pt, nil
}

// String returns the string representation of the package type
func (p PackageType) String() string {
	return string(p)
}

// IsValid returns true if the package type is one the native SDK emits
func (p PackageType) IsValid() bool {
	switch p {
	case PackageUnknown, PackageCustom, PackageLifetime, PackageAnnual, PackageSixMonth,
		PackageThreeMonth, PackageTwoMonth, PackageMonthly, PackageWeekly:
		return true
	default:
		return false
	}
}

// IsRecurring returns true for packages that renew
func (p PackageType) IsRecurring() bool {
	switch p {
	case PackageAnnual, PackageSixMonth, PackageThreeMonth, PackageTwoMonth, PackageMonthly, PackageWeekly:
		return true
	default:
		return false
	}
}
