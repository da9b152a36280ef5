package nativebridge

import (
	"time"

	"github.com/bivex/paywall-purchases/internal/domain/entity"
	"github.com/bivex/paywall-purchases/internal/domain/valueobject"
)

// Identifiers of the default catalog
const (
	ProductMonthly   = "pro_monthly"
	ProductAnnual    = "pro_annual"
	ProductLifetime  = "pro_lifetime"
	ProductCoins     = "coins_100"
	EntitlementPro   = "pro"
	OfferingDefault  = "default"
	PackageMonthlyID = "$rc_monthly"
	PackageAnnualID  = "$rc_annual"
	PackageLifetime  = "$rc_lifetime"
)

// DefaultProducts returns a small subscription catalog: two renewable
// plans, a lifetime unlock and a consumable.
func DefaultProducts() []CatalogProduct {
	introPrice := 0.99
	introString := "$0.99"
	introPeriod := "P1W"
	introCycles := 1
	introUnit := "WEEK"
	introUnits := 1

	return []CatalogProduct{
		{
			Product: entity.Product{
				Identifier:                    ProductMonthly,
				Title:                         "Pro Monthly",
				Description:                   "All pro features, billed monthly",
				Price:                         4.99,
				PriceString:                   "$4.99",
				CurrencyCode:                  "USD",
				IntroPrice:                    &introPrice,
				IntroPriceString:              &introString,
				IntroPricePeriod:              &introPeriod,
				IntroPriceCycles:              &introCycles,
				IntroPricePeriodUnit:          &introUnit,
				IntroPricePeriodNumberOfUnits: &introUnits,
			},
			Type:          valueobject.PurchaseTypeSubs,
			EntitlementID: EntitlementPro,
			Period:        30 * 24 * time.Hour,
		},
		{
			Product: entity.Product{
				Identifier:   ProductAnnual,
				Title:        "Pro Annual",
				Description:  "All pro features, billed yearly",
				Price:        39.99,
				PriceString:  "$39.99",
				CurrencyCode: "USD",
			},
			Type:          valueobject.PurchaseTypeSubs,
			EntitlementID: EntitlementPro,
			Period:        365 * 24 * time.Hour,
		},
		{
			Product: entity.Product{
				Identifier:   ProductLifetime,
				Title:        "Pro Lifetime",
				Description:  "All pro features, forever",
				Price:        99.99,
				PriceString:  "$99.99",
				CurrencyCode: "USD",
			},
			Type:          valueobject.PurchaseTypeInApp,
			EntitlementID: EntitlementPro,
		},
		{
			Product: entity.Product{
				Identifier:   ProductCoins,
				Title:        "100 Coins",
				Description:  "A pile of coins",
				Price:        0.99,
				PriceString:  "$0.99",
				CurrencyCode: "USD",
			},
			Type: valueobject.PurchaseTypeInApp,
		},
	}
}

// DefaultOffering packages the default catalog
func DefaultOffering() entity.Offering {
	products := make(map[string]entity.Product)
	for _, p := range DefaultProducts() {
		products[p.Product.Identifier] = p.Product
	}

	return entity.NewOffering(OfferingDefault, "Standard pro offering", []entity.Package{
		{Identifier: PackageMonthlyID, PackageType: valueobject.PackageMonthly, Product: products[ProductMonthly]},
		{Identifier: PackageAnnualID, PackageType: valueobject.PackageAnnual, Product: products[ProductAnnual]},
		{Identifier: PackageLifetime, PackageType: valueobject.PackageLifetime, Product: products[ProductLifetime]},
	})
}

// WithDefaultCatalog loads DefaultProducts and DefaultOffering
func WithDefaultCatalog() MemoryOption {
	return func(m *MemoryModule) {
		WithProducts(DefaultProducts()...)(m)
		WithOffering(DefaultOffering(), true)(m)
	}
}
