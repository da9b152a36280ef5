package valueobject_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bivex/paywall-purchases/internal/domain/valueobject"
)

func TestPurchaseType(t *testing.T) {
	t.Run("empty defaults to subs", func(t *testing.T) {
		pt, err := valueobject.NewPurchaseType("")
		require.NoError(t, err)
		assert.Equal(t, valueobject.PurchaseTypeSubs, pt)
	})

	t.Run("inapp is accepted", func(t *testing.T) {
		pt, err := valueobject.NewPurchaseType("inapp")
		require.NoError(t, err)
		assert.Equal(t, valueobject.PurchaseTypeInApp, pt)
	})

	t.Run("unknown type is rejected", func(t *testing.T) {
		_, err := valueobject.NewPurchaseType("nosubs")
		assert.ErrorIs(t, err, valueobject.ErrInvalidPurchaseType)
	})
}

func TestAttributionNetwork(t *testing.T) {
	n, err := valueobject.NewAttributionNetwork(2)
	require.NoError(t, err)
	assert.Equal(t, valueobject.AttributionAppsFlyer, n)
	assert.Equal(t, "APPSFLYER", n.String())

	_, err = valueobject.NewAttributionNetwork(42)
	assert.ErrorIs(t, err, valueobject.ErrInvalidAttributionNetwork)
	assert.Equal(t, "INVALID", valueobject.AttributionNetwork(42).String())
}

func TestProrationMode(t *testing.T) {
	m, err := valueobject.NewProrationMode(4)
	require.NoError(t, err)
	assert.Equal(t, valueobject.ProrationDeferred, m)
	assert.Equal(t, "DEFERRED", m.String())

	_, err = valueobject.NewProrationMode(-1)
	assert.ErrorIs(t, err, valueobject.ErrInvalidProrationMode)
}

func TestPackageType(t *testing.T) {
	pt, err := valueobject.NewPackageType("MONTHLY")
	require.NoError(t, err)
	assert.True(t, pt.IsRecurring())
	assert.False(t, valueobject.PackageLifetime.IsRecurring())

	_, err = valueobject.NewPackageType("FORTNIGHTLY")
	assert.ErrorIs(t, err, valueobject.ErrInvalidPackageType)
}

func TestPlatform(t *testing.T) {
	p, err := valueobject.NewPlatform(" Android ")
	require.NoError(t, err)
	assert.Equal(t, valueobject.PlatformAndroid, p)
	assert.True(t, p.SupportsSyncPurchases())
	assert.False(t, valueobject.PlatformIOS.SupportsSyncPurchases())

	_, err = valueobject.NewPlatform("windows")
	assert.ErrorIs(t, err, valueobject.ErrInvalidPlatform)
}

func TestPrice(t *testing.T) {
	p, err := valueobject.NewPrice(4.5, "USD", "$4.50")
	require.NoError(t, err)
	assert.Equal(t, "$4.50", p.String())
	assert.False(t, p.IsFree())

	p, err = valueobject.NewPrice(0, "EUR", "")
	require.NoError(t, err)
	assert.Equal(t, "0.00 EUR", p.String())
	assert.True(t, p.IsFree())

	_, err = valueobject.NewPrice(-1, "USD", "")
	assert.ErrorIs(t, err, valueobject.ErrInvalidAmount)

	_, err = valueobject.NewPrice(1, "US", "")
	assert.ErrorIs(t, err, valueobject.ErrInvalidCurrency)
}

func TestIntroEligibilityStatus(t *testing.T) {
	assert.True(t, valueobject.IntroEligibilityEligible.IsEligible())
	assert.False(t, valueobject.IntroEligibilityUnknown.IsEligible())
	assert.Equal(t, "INTRO_ELIGIBILITY_STATUS_INELIGIBLE", valueobject.IntroEligibilityIneligible.String())
}
