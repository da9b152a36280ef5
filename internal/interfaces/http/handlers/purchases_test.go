package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bivex/paywall-purchases/internal/application/listener"
	"github.com/bivex/paywall-purchases/internal/application/query"
	domainErrors "github.com/bivex/paywall-purchases/internal/domain/errors"
	"github.com/bivex/paywall-purchases/internal/domain/event"
	"github.com/bivex/paywall-purchases/internal/domain/service"
	"github.com/bivex/paywall-purchases/internal/domain/valueobject"
	"github.com/bivex/paywall-purchases/internal/infrastructure/nativebridge"
	"github.com/bivex/paywall-purchases/internal/interfaces/http/handlers"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testHost struct {
	router   *gin.Engine
	module   *nativebridge.MemoryModule
	registry *event.Registry
}

func newTestHost(t *testing.T) *testHost {
	t.Helper()

	module := nativebridge.NewMemoryModule(
		nativebridge.WithDefaultCatalog(),
		nativebridge.WithPlatform(valueobject.PlatformAndroid),
	)
	registry := event.NewRegistry(module, module)
	purchases := service.NewPurchasesService(module, registry, valueobject.PlatformAndroid, nil)

	cache := listener.NewPurchaserInfoCache(nil, nil)
	inbox := listener.NewPromoPurchaseInbox(nil)
	require.NoError(t, purchases.AddPurchaserInfoUpdateListener(cache))
	require.NoError(t, purchases.AddShouldPurchasePromoProductListener(inbox))

	router := gin.New()
	handlers.RegisterRoutes(router,
		handlers.NewPurchasesHandler(purchases, cache, inbox, query.NewCheckAccessQuery(cache, purchases)),
		handlers.NewHealthHandler(registry, valueobject.PlatformAndroid, nil),
		nil,
	)
	return &testHost{router: router, module: module, registry: registry}
}

func (h *testHost) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func (h *testHost) setup(t *testing.T, appUserID string) {
	t.Helper()
	w := h.do(t, http.MethodPost, "/v1/setup", map[string]any{"api_key": "appl_key", "app_user_id": appUserID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

type envelope struct {
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
	Field   string          `json:"field"`
	Purch   *struct {
		Code          string `json:"code"`
		UserCancelled bool   `json:"userCancelled"`
	} `json:"purchase_error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func TestSetup(t *testing.T) {
	t.Run("identified setup returns the app user id", func(t *testing.T) {
		host := newTestHost(t)

		w := host.do(t, http.MethodPost, "/v1/setup", map[string]any{
			"api_key":       "appl_key",
			"app_user_id":   "user-1",
			"observer_mode": true,
		})

		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"app_user_id":"user-1"}`, string(decode(t, w).Data))
		assert.True(t, host.module.State().ObserverMode)
	})

	t.Run("omitted app user id is anonymous", func(t *testing.T) {
		host := newTestHost(t)

		w := host.do(t, http.MethodPost, "/v1/setup", map[string]any{"api_key": "appl_key"})

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, string(decode(t, w).Data), nativebridge.AnonymousIDPrefix)
	})

	t.Run("empty app user id is rejected before the native call", func(t *testing.T) {
		host := newTestHost(t)

		w := host.do(t, http.MethodPost, "/v1/setup", map[string]any{"api_key": "appl_key", "app_user_id": ""})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "app_user_id", decode(t, w).Field)
		assert.False(t, host.module.State().Configured)
	})

	t.Run("missing api key fails binding", func(t *testing.T) {
		host := newTestHost(t)

		w := host.do(t, http.MethodPost, "/v1/setup", map[string]any{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("calls before setup surface the native error", func(t *testing.T) {
		host := newTestHost(t)

		w := host.do(t, http.MethodGet, "/v1/offerings", nil)

		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.Equal(t, "NATIVE_ERROR", decode(t, w).Error)
	})
}

func TestSettingsAndAttribution(t *testing.T) {
	host := newTestHost(t)
	host.setup(t, "user-1")

	t.Run("only present settings change", func(t *testing.T) {
		w := host.do(t, http.MethodPatch, "/v1/settings", map[string]any{
			"allow_sharing_store_account": true,
			"debug_logs_enabled":          true,
		})

		require.Equal(t, http.StatusNoContent, w.Code)
		state := host.module.State()
		assert.True(t, state.AllowSharingStoreAccount)
		assert.True(t, state.DebugLogs)
		assert.True(t, state.FinishTransactions)
	})

	t.Run("attribution is forwarded", func(t *testing.T) {
		w := host.do(t, http.MethodPost, "/v1/attribution", map[string]any{
			"data":            map[string]any{"campaign": "spring"},
			"network":         int(valueobject.AttributionAdjust),
			"network_user_id": "adj-1",
		})

		require.Equal(t, http.StatusNoContent, w.Code)
		records := host.module.State().Attribution
		require.Len(t, records, 1)
		assert.Equal(t, valueobject.AttributionAdjust, records[0].Network)
		assert.Equal(t, "adj-1", records[0].NetworkUserID)
	})

	t.Run("unknown network is rejected", func(t *testing.T) {
		w := host.do(t, http.MethodPost, "/v1/attribution", map[string]any{"network": 42})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "network", decode(t, w).Field)
	})
}

func TestCatalog(t *testing.T) {
	host := newTestHost(t)
	host.setup(t, "user-1")

	t.Run("offerings include the current offering", func(t *testing.T) {
		w := host.do(t, http.MethodGet, "/v1/offerings", nil)

		require.Equal(t, http.StatusOK, w.Code)
		var offerings struct {
			Current struct {
				Identifier string `json:"identifier"`
			} `json:"current"`
		}
		require.NoError(t, json.Unmarshal(decode(t, w).Data, &offerings))
		assert.Equal(t, nativebridge.OfferingDefault, offerings.Current.Identifier)
	})

	t.Run("products default to subscriptions", func(t *testing.T) {
		w := host.do(t, http.MethodGet, "/v1/products?id=pro_monthly&id=coins_100", nil)

		require.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Products []struct {
				Identifier string `json:"identifier"`
			} `json:"products"`
		}
		require.NoError(t, json.Unmarshal(decode(t, w).Data, &resp))
		require.Len(t, resp.Products, 1)
		assert.Equal(t, nativebridge.ProductMonthly, resp.Products[0].Identifier)
	})

	t.Run("unknown purchase type is passed to the store", func(t *testing.T) {
		w := host.do(t, http.MethodGet, "/v1/products?id=pro_monthly&type=bogus", nil)

		require.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Products []struct {
				Identifier string `json:"identifier"`
			} `json:"products"`
		}
		require.NoError(t, json.Unmarshal(decode(t, w).Data, &resp))
		assert.Empty(t, resp.Products)
	})

	t.Run("product ids are required", func(t *testing.T) {
		w := host.do(t, http.MethodGet, "/v1/products", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestPurchases(t *testing.T) {
	t.Run("purchase grants access and updates the cache", func(t *testing.T) {
		host := newTestHost(t)
		host.setup(t, "user-1")

		w := host.do(t, http.MethodPost, "/v1/purchases/product", map[string]any{"product_id": nativebridge.ProductMonthly})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		w = host.do(t, http.MethodGet, "/v1/access/pro", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var access struct {
			HasAccess bool   `json:"has_access"`
			Source    string `json:"source"`
		}
		require.NoError(t, json.Unmarshal(decode(t, w).Data, &access))
		assert.True(t, access.HasAccess)
		assert.Equal(t, "cache", access.Source)

		w = host.do(t, http.MethodGet, "/v1/purchaser-info/cached", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, string(decode(t, w).Data), nativebridge.ProductMonthly)
	})

	t.Run("package purchase resolves the offering", func(t *testing.T) {
		host := newTestHost(t)
		host.setup(t, "user-1")

		w := host.do(t, http.MethodPost, "/v1/purchases/package", map[string]any{
			"offering_id": nativebridge.OfferingDefault,
			"package_id":  nativebridge.PackageAnnualID,
		})

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Contains(t, string(decode(t, w).Data), nativebridge.ProductAnnual)
	})

	t.Run("unknown package is not found", func(t *testing.T) {
		host := newTestHost(t)
		host.setup(t, "user-1")

		w := host.do(t, http.MethodPost, "/v1/purchases/package", map[string]any{
			"offering_id": nativebridge.OfferingDefault,
			"package_id":  "$rc_weekly",
		})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("user cancellation is flagged", func(t *testing.T) {
		host := newTestHost(t)
		host.setup(t, "user-1")
		host.module.FailNext(&domainErrors.NativeError{
			Code:              "1",
			Message:           "Purchase was cancelled.",
			ReadableErrorCode: domainErrors.ReadableUserCancelled,
		})

		w := host.do(t, http.MethodPost, "/v1/purchases/product", map[string]any{"product_id": nativebridge.ProductMonthly})

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		env := decode(t, w)
		assert.Equal(t, "PURCHASE_CANCELLED", env.Error)
		require.NotNil(t, env.Purch)
		assert.True(t, env.Purch.UserCancelled)
		assert.Equal(t, "1", env.Purch.Code)
	})

	t.Run("other rejections are not cancellations", func(t *testing.T) {
		host := newTestHost(t)
		host.setup(t, "user-1")

		w := host.do(t, http.MethodPost, "/v1/purchases/product", map[string]any{"product_id": "missing"})

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		env := decode(t, w)
		assert.Equal(t, "PURCHASE_FAILED", env.Error)
		require.NotNil(t, env.Purch)
		assert.False(t, env.Purch.UserCancelled)
	})

	t.Run("invalid proration mode is rejected", func(t *testing.T) {
		host := newTestHost(t)
		host.setup(t, "user-1")

		w := host.do(t, http.MethodPost, "/v1/purchases/product", map[string]any{
			"product_id": nativebridge.ProductAnnual,
			"upgrade":    map[string]any{"old_sku": nativebridge.ProductMonthly, "proration_mode": 99},
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "upgrade.proration_mode", decode(t, w).Field)
	})

	t.Run("restore and sync succeed", func(t *testing.T) {
		host := newTestHost(t)
		host.setup(t, "user-1")

		assert.Equal(t, http.StatusOK, host.do(t, http.MethodPost, "/v1/restore", nil).Code)
		assert.Equal(t, http.StatusNoContent, host.do(t, http.MethodPost, "/v1/sync", nil).Code)
		assert.Equal(t, 1, host.module.State().Syncs)
	})
}

func TestIdentity(t *testing.T) {
	host := newTestHost(t)
	host.setup(t, "")

	t.Run("identify switches the app user id", func(t *testing.T) {
		w := host.do(t, http.MethodPost, "/v1/identity/identify", map[string]any{"app_user_id": "user-9"})
		require.Equal(t, http.StatusOK, w.Code)

		w = host.do(t, http.MethodGet, "/v1/identity", nil)
		assert.JSONEq(t, `{"app_user_id":"user-9"}`, string(decode(t, w).Data))
	})

	t.Run("blank alias is rejected", func(t *testing.T) {
		w := host.do(t, http.MethodPost, "/v1/identity/alias", map[string]any{"app_user_id": ""})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "app_user_id", decode(t, w).Field)
	})

	t.Run("alias keeps the current user", func(t *testing.T) {
		w := host.do(t, http.MethodPost, "/v1/identity/alias", map[string]any{"app_user_id": "user-9-web"})
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("reset returns to an anonymous user", func(t *testing.T) {
		require.Equal(t, http.StatusOK, host.do(t, http.MethodPost, "/v1/identity/reset", nil).Code)

		w := host.do(t, http.MethodGet, "/v1/identity", nil)
		assert.Contains(t, string(decode(t, w).Data), nativebridge.AnonymousIDPrefix)
	})
}

func TestEligibility(t *testing.T) {
	host := newTestHost(t)
	host.setup(t, "user-1")

	w := host.do(t, http.MethodGet, "/v1/eligibility?id=pro_monthly&id=pro_annual", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Eligibility map[string]struct {
			Status int `json:"status"`
		} `json:"eligibility"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &resp))
	assert.Equal(t, int(valueobject.IntroEligibilityEligible), resp.Eligibility["pro_monthly"].Status)
	assert.Equal(t, int(valueobject.IntroEligibilityIneligible), resp.Eligibility["pro_annual"].Status)
}

func TestPromos(t *testing.T) {
	t.Run("intercepted purchase is parked and resumed", func(t *testing.T) {
		host := newTestHost(t)
		host.setup(t, "user-1")
		callbackID, err := host.module.InterceptPromoPurchase(nativebridge.ProductLifetime)
		require.NoError(t, err)

		w := host.do(t, http.MethodGet, "/v1/promos", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, string(decode(t, w).Data), `"callback_id":1`)

		w = host.do(t, http.MethodPost, "/v1/promos/1/resume", nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Contains(t, string(decode(t, w).Data), nativebridge.ProductLifetime)
		assert.Equal(t, 1, callbackID)

		w = host.do(t, http.MethodPost, "/v1/promos/1/resume", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("discard drops the parked purchase", func(t *testing.T) {
		host := newTestHost(t)
		host.setup(t, "user-1")
		_, err := host.module.InterceptPromoPurchase(nativebridge.ProductCoins)
		require.NoError(t, err)

		assert.Equal(t, http.StatusNoContent, host.do(t, http.MethodDelete, "/v1/promos/1", nil).Code)
		assert.Equal(t, http.StatusNotFound, host.do(t, http.MethodDelete, "/v1/promos/1", nil).Code)
	})

	t.Run("non numeric callback id is rejected", func(t *testing.T) {
		host := newTestHost(t)
		assert.Equal(t, http.StatusBadRequest, host.do(t, http.MethodPost, "/v1/promos/abc/resume", nil).Code)
	})
}

func TestCachedPurchaserInfo(t *testing.T) {
	t.Run("nothing pushed yet is not found", func(t *testing.T) {
		host := newTestHost(t)
		assert.Equal(t, http.StatusNotFound, host.do(t, http.MethodGet, "/v1/purchaser-info/cached", nil).Code)
	})

	t.Run("lookup by app user id uses the latest snapshot", func(t *testing.T) {
		host := newTestHost(t)
		host.setup(t, "user-1")

		w := host.do(t, http.MethodGet, "/v1/purchaser-info/cached?app_user_id=user-1", nil)
		assert.Equal(t, http.StatusOK, w.Code)

		w = host.do(t, http.MethodGet, "/v1/purchaser-info/cached?app_user_id=someone-else", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestHealth(t *testing.T) {
	host := newTestHost(t)

	w := host.do(t, http.MethodGet, "/health", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var health struct {
		Status    string `json:"status"`
		Platform  string `json:"platform"`
		Attached  bool   `json:"attached"`
		Listeners struct {
			PurchaserInfo int `json:"purchaser_info"`
			PromoProduct  int `json:"promo_product"`
		} `json:"listeners"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "android", health.Platform)
	assert.True(t, health.Attached)
	assert.Equal(t, 1, health.Listeners.PurchaserInfo)
	assert.Equal(t, 1, health.Listeners.PromoProduct)
}
