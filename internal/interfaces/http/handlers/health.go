package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/bivex/paywall-purchases/internal/application/dto"
	"github.com/bivex/paywall-purchases/internal/domain/bridge"
	"github.com/bivex/paywall-purchases/internal/domain/event"
	"github.com/bivex/paywall-purchases/internal/domain/valueobject"
	"github.com/bivex/paywall-purchases/internal/interfaces/http/response"
)

// HealthHandler reports whether the host can serve native events
type HealthHandler struct {
	registry *event.Registry
	platform valueobject.Platform
	redis    *redis.Client
}

// NewHealthHandler creates a new health handler. redisClient may be nil.
func NewHealthHandler(registry *event.Registry, platform valueobject.Platform, redisClient *redis.Client) *HealthHandler {
	return &HealthHandler{
		registry: registry,
		platform: platform,
		redis:    redisClient,
	}
}

// GetHealth returns registry and Redis status. A failed Redis ping
// answers 503.
func (h *HealthHandler) GetHealth(c *gin.Context) {
	resp := dto.HealthResponse{
		Status:   "ok",
		Platform: h.platform.String(),
		Attached: h.registry.Attached(),
	}
	resp.Listeners.PurchaserInfo = h.registry.ListenerCount(bridge.ClassPurchaserInfoUpdated)
	resp.Listeners.PromoProduct = h.registry.ListenerCount(bridge.ClassShouldPurchasePromoProduct)

	status := http.StatusOK
	if h.redis != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		resp.Redis = "ok"
		if err := h.redis.Ping(ctx).Err(); err != nil {
			resp.Status = "degraded"
			resp.Redis = err.Error()
			status = http.StatusServiceUnavailable
		}
	}
	response.Send(c, status, resp)
}
