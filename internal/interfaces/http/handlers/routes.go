package handlers

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the purchases API on router. purchaseLimit guards
// the purchase-initiating routes and may be nil.
func RegisterRoutes(router gin.IRouter, purchases *PurchasesHandler, health *HealthHandler, purchaseLimit gin.HandlerFunc) {
	guard := []gin.HandlerFunc{}
	if purchaseLimit != nil {
		guard = append(guard, purchaseLimit)
	}
	limited := func(h gin.HandlerFunc) []gin.HandlerFunc {
		return append(append([]gin.HandlerFunc{}, guard...), h)
	}

	router.GET("/health", health.GetHealth)

	v1 := router.Group("/v1")
	{
		v1.POST("/setup", purchases.Setup)
		v1.PATCH("/settings", purchases.UpdateSettings)
		v1.POST("/attribution", purchases.AddAttribution)

		v1.GET("/offerings", purchases.GetOfferings)
		v1.GET("/products", purchases.GetProducts)

		v1.POST("/purchases/product", limited(purchases.PurchaseProduct)...)
		v1.POST("/purchases/package", limited(purchases.PurchasePackage)...)
		v1.POST("/restore", limited(purchases.RestoreTransactions)...)
		v1.POST("/sync", limited(purchases.SyncPurchases)...)

		identity := v1.Group("/identity")
		identity.GET("", purchases.GetAppUserID)
		identity.POST("/identify", purchases.Identify)
		identity.POST("/alias", purchases.CreateAlias)
		identity.POST("/reset", purchases.Reset)

		v1.GET("/purchaser-info", purchases.GetPurchaserInfo)
		v1.GET("/purchaser-info/cached", purchases.GetCachedPurchaserInfo)
		v1.GET("/eligibility", purchases.CheckEligibility)
		v1.GET("/access/:entitlement", purchases.CheckAccess)

		promos := v1.Group("/promos")
		promos.GET("", purchases.ListPromos)
		promos.POST("/:callbackID/resume", limited(purchases.ResumePromo)...)
		promos.DELETE("/:callbackID", purchases.DiscardPromo)
	}
}
