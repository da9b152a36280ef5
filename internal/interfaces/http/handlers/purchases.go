package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/bivex/paywall-purchases/internal/application/dto"
	"github.com/bivex/paywall-purchases/internal/application/listener"
	"github.com/bivex/paywall-purchases/internal/application/query"
	"github.com/bivex/paywall-purchases/internal/domain/entity"
	domainErrors "github.com/bivex/paywall-purchases/internal/domain/errors"
	"github.com/bivex/paywall-purchases/internal/domain/service"
	"github.com/bivex/paywall-purchases/internal/domain/valueobject"
	"github.com/bivex/paywall-purchases/internal/interfaces/http/response"
)

// PurchasesHandler exposes the purchases facade over HTTP
type PurchasesHandler struct {
	purchases *service.PurchasesService
	cache     *listener.PurchaserInfoCache
	inbox     *listener.PromoPurchaseInbox
	access    *query.CheckAccessQuery
}

// NewPurchasesHandler creates a new purchases handler
func NewPurchasesHandler(
	purchases *service.PurchasesService,
	cache *listener.PurchaserInfoCache,
	inbox *listener.PromoPurchaseInbox,
	access *query.CheckAccessQuery,
) *PurchasesHandler {
	return &PurchasesHandler{
		purchases: purchases,
		cache:     cache,
		inbox:     inbox,
		access:    access,
	}
}

// Setup configures the native SDK
// @Summary Configure purchases
// @Tags setup
// @Accept json
// @Produce json
// @Param request body dto.SetupRequest true "Setup request"
// @Success 200 {object} response.SuccessResponse{data=dto.AppUserIDResponse}
// @Failure 400 {object} response.ErrorResponse
// @Router /setup [post]
func (h *PurchasesHandler) Setup(c *gin.Context) {
	var req dto.SetupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	opts := []service.SetupOption{service.WithObserverMode(req.ObserverMode)}
	if req.AppUserID != nil {
		opts = append(opts, service.WithAppUserID(*req.AppUserID))
	}

	ctx := c.Request.Context()
	if err := h.purchases.Setup(ctx, req.APIKey, opts...); err != nil {
		response.FromError(c, err)
		return
	}

	appUserID, err := h.purchases.GetAppUserID(ctx)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, dto.AppUserIDResponse{AppUserID: appUserID})
}

// UpdateSettings toggles SDK settings
// @Summary Update SDK settings
// @Tags setup
// @Accept json
// @Param request body dto.SettingsRequest true "Settings"
// @Success 204
// @Router /settings [patch]
func (h *PurchasesHandler) UpdateSettings(c *gin.Context) {
	var req dto.SettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	if req.AllowSharingStoreAccount != nil {
		if err := h.purchases.SetAllowSharingStoreAccount(ctx, *req.AllowSharingStoreAccount); err != nil {
			response.FromError(c, err)
			return
		}
	}
	if req.FinishTransactions != nil {
		if err := h.purchases.SetFinishTransactions(ctx, *req.FinishTransactions); err != nil {
			response.FromError(c, err)
			return
		}
	}
	if req.DebugLogsEnabled != nil {
		if err := h.purchases.SetDebugLogsEnabled(ctx, *req.DebugLogsEnabled); err != nil {
			response.FromError(c, err)
			return
		}
	}
	response.NoContent(c)
}

// AddAttribution reports attribution data
// @Summary Add attribution data
// @Tags attribution
// @Accept json
// @Param request body dto.AttributionRequest true "Attribution"
// @Success 204
// @Failure 400 {object} response.ErrorResponse
// @Router /attribution [post]
func (h *PurchasesHandler) AddAttribution(c *gin.Context) {
	var req dto.AttributionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	network, err := valueobject.NewAttributionNetwork(*req.Network)
	if err != nil {
		response.FromError(c, domainErrors.NewFieldError("network", domainErrors.ErrInvalidAttributionNetwork))
		return
	}
	if err := h.purchases.AddAttributionData(c.Request.Context(), req.Data, network, req.NetworkUserID); err != nil {
		response.FromError(c, err)
		return
	}
	response.NoContent(c)
}

// GetOfferings returns the configured offerings
// @Summary Get offerings
// @Tags catalog
// @Produce json
// @Success 200 {object} response.SuccessResponse{data=entity.Offerings}
// @Router /offerings [get]
func (h *PurchasesHandler) GetOfferings(c *gin.Context) {
	offerings, err := h.purchases.GetOfferings(c.Request.Context())
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, offerings)
}

// GetProducts returns products by identifier
// @Summary Get products
// @Tags catalog
// @Produce json
// @Param id query []string true "Product identifiers"
// @Param type query string false "inapp or subs"
// @Success 200 {object} response.SuccessResponse{data=dto.ProductsResponse}
// @Router /products [get]
func (h *PurchasesHandler) GetProducts(c *gin.Context) {
	var req dto.ProductsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	products, err := h.purchases.GetProducts(c.Request.Context(), req.ProductIDs, valueobject.PurchaseType(req.Type))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, dto.ProductsResponse{Products: products})
}

// PurchaseProduct purchases a product
// @Summary Purchase a product
// @Tags purchases
// @Accept json
// @Produce json
// @Param request body dto.PurchaseProductRequest true "Purchase"
// @Success 200 {object} response.SuccessResponse{data=entity.PurchaseResult}
// @Failure 422 {object} response.ErrorResponse
// @Router /purchases/product [post]
func (h *PurchasesHandler) PurchaseProduct(c *gin.Context) {
	var req dto.PurchaseProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	upgrade, err := upgradeInfo(req.Upgrade)
	if err != nil {
		response.FromError(c, err)
		return
	}

	result, err := h.purchases.PurchaseProduct(c.Request.Context(), req.ProductID, upgrade, valueobject.PurchaseType(req.Type))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, result)
}

// PurchasePackage purchases a package of an offering
// @Summary Purchase a package
// @Tags purchases
// @Accept json
// @Produce json
// @Param request body dto.PurchasePackageRequest true "Purchase"
// @Success 200 {object} response.SuccessResponse{data=entity.PurchaseResult}
// @Failure 404 {object} response.ErrorResponse
// @Failure 422 {object} response.ErrorResponse
// @Router /purchases/package [post]
func (h *PurchasesHandler) PurchasePackage(c *gin.Context) {
	var req dto.PurchasePackageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	upgrade, err := upgradeInfo(req.Upgrade)
	if err != nil {
		response.FromError(c, err)
		return
	}

	ctx := c.Request.Context()
	offerings, err := h.purchases.GetOfferings(ctx)
	if err != nil {
		response.FromError(c, err)
		return
	}
	offering, ok := offerings.Offering(req.OfferingID)
	if !ok {
		response.NotFound(c, "Offering not found")
		return
	}
	pkg := offering.Package(req.PackageID)
	if pkg == nil {
		response.NotFound(c, "Package not found")
		return
	}

	result, err := h.purchases.PurchasePackage(ctx, *pkg, upgrade)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, result)
}

// RestoreTransactions restores purchases of the store account
// @Summary Restore transactions
// @Tags purchases
// @Produce json
// @Success 200 {object} response.SuccessResponse{data=entity.PurchaserInfo}
// @Router /restore [post]
func (h *PurchasesHandler) RestoreTransactions(c *gin.Context) {
	info, err := h.purchases.RestoreTransactions(c.Request.Context())
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, info)
}

// SyncPurchases syncs purchases made outside the SDK
// @Summary Sync purchases
// @Tags purchases
// @Success 204
// @Router /sync [post]
func (h *PurchasesHandler) SyncPurchases(c *gin.Context) {
	if err := h.purchases.SyncPurchases(c.Request.Context()); err != nil {
		response.FromError(c, err)
		return
	}
	response.NoContent(c)
}

// GetAppUserID returns the current app user id
// @Summary Get app user id
// @Tags identity
// @Produce json
// @Success 200 {object} response.SuccessResponse{data=dto.AppUserIDResponse}
// @Router /identity [get]
func (h *PurchasesHandler) GetAppUserID(c *gin.Context) {
	appUserID, err := h.purchases.GetAppUserID(c.Request.Context())
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, dto.AppUserIDResponse{AppUserID: appUserID})
}

// Identify switches to another app user id
// @Summary Identify user
// @Tags identity
// @Accept json
// @Produce json
// @Param request body dto.AppUserIDRequest true "App user id"
// @Success 200 {object} response.SuccessResponse{data=entity.PurchaserInfo}
// @Failure 400 {object} response.ErrorResponse
// @Router /identity/identify [post]
func (h *PurchasesHandler) Identify(c *gin.Context) {
	var req dto.AppUserIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	info, err := h.purchases.Identify(c.Request.Context(), req.AppUserID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, info)
}

// CreateAlias links another app user id to the current user
// @Summary Create alias
// @Tags identity
// @Accept json
// @Produce json
// @Param request body dto.AppUserIDRequest true "App user id"
// @Success 200 {object} response.SuccessResponse{data=entity.PurchaserInfo}
// @Failure 400 {object} response.ErrorResponse
// @Router /identity/alias [post]
func (h *PurchasesHandler) CreateAlias(c *gin.Context) {
	var req dto.AppUserIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	info, err := h.purchases.CreateAlias(c.Request.Context(), req.AppUserID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, info)
}

// Reset switches back to a new anonymous user
// @Summary Reset identity
// @Tags identity
// @Produce json
// @Success 200 {object} response.SuccessResponse{data=entity.PurchaserInfo}
// @Router /identity/reset [post]
func (h *PurchasesHandler) Reset(c *gin.Context) {
	info, err := h.purchases.Reset(c.Request.Context())
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, info)
}

// GetPurchaserInfo fetches purchaser info from the SDK
// @Summary Get purchaser info
// @Tags purchaser-info
// @Produce json
// @Success 200 {object} response.SuccessResponse{data=entity.PurchaserInfo}
// @Router /purchaser-info [get]
func (h *PurchasesHandler) GetPurchaserInfo(c *gin.Context) {
	info, err := h.purchases.GetPurchaserInfo(c.Request.Context())
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, info)
}

// GetCachedPurchaserInfo returns the latest snapshot pushed by the SDK.
// With app_user_id set it reads the persisted snapshot of that user.
// @Summary Get cached purchaser info
// @Tags purchaser-info
// @Produce json
// @Param app_user_id query string false "App user id"
// @Success 200 {object} response.SuccessResponse{data=dto.CachedPurchaserInfoResponse}
// @Failure 404 {object} response.ErrorResponse
// @Router /purchaser-info/cached [get]
func (h *PurchasesHandler) GetCachedPurchaserInfo(c *gin.Context) {
	if appUserID := c.Query("app_user_id"); appUserID != "" {
		info, ok := h.cache.ForUser(c.Request.Context(), appUserID)
		if !ok {
			response.NotFound(c, "No purchaser info stored for app user")
			return
		}
		response.OK(c, dto.CachedPurchaserInfoResponse{PurchaserInfo: info, Updates: h.cache.Updates()})
		return
	}

	info, updatedAt, ok := h.cache.Latest()
	if !ok {
		response.NotFound(c, "No purchaser info received yet")
		return
	}
	response.OK(c, dto.CachedPurchaserInfoResponse{
		PurchaserInfo: info,
		UpdatedAt:     updatedAt,
		Updates:       h.cache.Updates(),
	})
}

// CheckEligibility reports intro price eligibility per product
// @Summary Check intro eligibility
// @Tags purchaser-info
// @Produce json
// @Param id query []string true "Product identifiers"
// @Success 200 {object} response.SuccessResponse{data=dto.EligibilityResponse}
// @Router /eligibility [get]
func (h *PurchasesHandler) CheckEligibility(c *gin.Context) {
	var req dto.EligibilityRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	eligibility, err := h.purchases.CheckTrialOrIntroductoryPriceEligibility(c.Request.Context(), req.ProductIDs)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, dto.EligibilityResponse{Eligibility: eligibility})
}

// CheckAccess checks if the current user holds an entitlement
// @Summary Check access to an entitlement
// @Tags purchaser-info
// @Produce json
// @Param entitlement path string true "Entitlement identifier"
// @Success 200 {object} response.SuccessResponse{data=dto.AccessCheckResponse}
// @Router /access/{entitlement} [get]
func (h *PurchasesHandler) CheckAccess(c *gin.Context) {
	resp, err := h.access.Execute(c.Request.Context(), c.Param("entitlement"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, resp)
}

// ListPromos lists parked promoted purchases
// @Summary List parked promoted purchases
// @Tags promos
// @Produce json
// @Success 200 {object} response.SuccessResponse{data=dto.PendingPromosResponse}
// @Router /promos [get]
func (h *PurchasesHandler) ListPromos(c *gin.Context) {
	pending := h.inbox.Pending()
	resp := dto.PendingPromosResponse{Pending: make([]dto.PendingPromoResponse, 0, len(pending))}
	for _, p := range pending {
		resp.Pending = append(resp.Pending, dto.PendingPromoResponse{
			CallbackID: p.CallbackID,
			ReceivedAt: p.ReceivedAt,
		})
	}
	response.OK(c, resp)
}

// ResumePromo completes a parked promoted purchase
// @Summary Resume a promoted purchase
// @Tags promos
// @Produce json
// @Param callbackID path int true "Callback id"
// @Success 200 {object} response.SuccessResponse{data=entity.PurchaseResult}
// @Failure 404 {object} response.ErrorResponse
// @Failure 422 {object} response.ErrorResponse
// @Router /promos/{callbackID}/resume [post]
func (h *PurchasesHandler) ResumePromo(c *gin.Context) {
	callbackID, ok := callbackIDParam(c)
	if !ok {
		return
	}

	result, err := h.inbox.Resume(c.Request.Context(), callbackID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, result)
}

// DiscardPromo drops a parked promoted purchase
// @Summary Discard a promoted purchase
// @Tags promos
// @Param callbackID path int true "Callback id"
// @Success 204
// @Failure 404 {object} response.ErrorResponse
// @Router /promos/{callbackID} [delete]
func (h *PurchasesHandler) DiscardPromo(c *gin.Context) {
	callbackID, ok := callbackIDParam(c)
	if !ok {
		return
	}

	if !h.inbox.Discard(callbackID) {
		response.NotFound(c, "Promoted purchase not found")
		return
	}
	response.NoContent(c)
}

func callbackIDParam(c *gin.Context) (int, bool) {
	callbackID, err := strconv.Atoi(c.Param("callbackID"))
	if err != nil {
		response.BadRequest(c, "callback id must be an integer")
		return 0, false
	}
	return callbackID, true
}

func upgradeInfo(req *dto.UpgradeRequest) (*entity.UpgradeInfo, error) {
	if req == nil {
		return nil, nil
	}

	info := entity.NewUpgradeInfo(req.OldSKU)
	if info != nil && req.ProrationMode != nil {
		mode, err := valueobject.NewProrationMode(*req.ProrationMode)
		if err != nil {
			return nil, domainErrors.NewFieldError("upgrade.proration_mode", err)
		}
		info = info.WithProrationMode(mode)
	}
	return info, nil
}
