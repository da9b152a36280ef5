package entity

import (
	"github.com/bivex/paywall-purchases/internal/domain/valueobject"
)

// Product is a store product as returned by the native SDK
type Product struct {
	Identifier                    string   `json:"identifier"`
	Description                   string   `json:"description"`
	Title                         string   `json:"title"`
	Price                         float64  `json:"price"`
	PriceString                   string   `json:"price_string"`
	CurrencyCode                  string   `json:"currency_code"`
	IntroPrice                    *float64 `json:"intro_price"`
	IntroPriceString              *string  `json:"intro_price_string"`
	IntroPricePeriod              *string  `json:"intro_price_period"`
	IntroPriceCycles              *int     `json:"intro_price_cycles"`
	IntroPricePeriodUnit          *string  `json:"intro_price_period_unit"`
	IntroPricePeriodNumberOfUnits *int     `json:"intro_price_period_number_of_units"`
}

// PriceValue returns the product price as a validated value object
func (p Product) PriceValue() (*valueobject.Price, error) {
	return valueobject.NewPrice(p.Price, p.CurrencyCode, p.PriceString)
}

// HasIntroPrice returns true if the store advertises an intro price
func (p Product) HasIntroPrice() bool {
	return p.IntroPrice != nil
}

// Package is a product placed in an offering slot
type Package struct {
	Identifier         string                  `json:"identifier"`
	PackageType        valueobject.PackageType `json:"packageType"`
	Product            Product                 `json:"product"`
	OfferingIdentifier string                  `json:"offeringIdentifier"`
}

// Offering is a named set of packages configured in the dashboard
type Offering struct {
	Identifier        string    `json:"identifier"`
	ServerDescription string    `json:"serverDescription"`
	AvailablePackages []Package `json:"availablePackages"`
	Lifetime          *Package  `json:"lifetime"`
	Annual            *Package  `json:"annual"`
	SixMonth          *Package  `json:"sixMonth"`
	ThreeMonth        *Package  `json:"threeMonth"`
	TwoMonth          *Package  `json:"twoMonth"`
	Monthly           *Package  `json:"monthly"`
	Weekly            *Package  `json:"weekly"`
}

// NewOffering builds an offering and fills the duration slots from the
// package types. Packages inherit the offering identifier.
func NewOffering(identifier, description string, packages []Package) Offering {
	o := Offering{
		Identifier:        identifier,
		ServerDescription: description,
		AvailablePackages: make([]Package, 0, len(packages)),
	}
	for _, pkg := range packages {
		pkg.OfferingIdentifier = identifier
		o.AvailablePackages = append(o.AvailablePackages, pkg)
	}
	for i := range o.AvailablePackages {
		pkg := &o.AvailablePackages[i]
		switch pkg.PackageType {
		case valueobject.PackageLifetime:
			o.Lifetime = pkg
		case valueobject.PackageAnnual:
			o.Annual = pkg
		case valueobject.PackageSixMonth:
			o.SixMonth = pkg
		case valueobject.PackageThreeMonth:
			o.ThreeMonth = pkg
		case valueobject.PackageTwoMonth:
			o.TwoMonth = pkg
		case valueobject.PackageMonthly:
			o.Monthly = pkg
		case valueobject.PackageWeekly:
			o.Weekly = pkg
		}
	}
	return o
}

// Package looks up a package by identifier
func (o Offering) Package(identifier string) *Package {
	for i := range o.AvailablePackages {
		if o.AvailablePackages[i].Identifier == identifier {
			return &o.AvailablePackages[i]
		}
	}
	return nil
}

// PackageByType returns the first package of the given type
func (o Offering) PackageByType(packageType valueobject.PackageType) *Package {
	for i := range o.AvailablePackages {
		if o.AvailablePackages[i].PackageType == packageType {
			return &o.AvailablePackages[i]
		}
	}
	return nil
}

// Offerings is every configured offering plus the current one
type Offerings struct {
	All     map[string]Offering `json:"all"`
	Current *Offering           `json:"current"`
}

// Offering looks up an offering by identifier
func (o *Offerings) Offering(identifier string) (Offering, bool) {
	off, ok := o.All[identifier]
	return off, ok
}
