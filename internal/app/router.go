// internal/app/router.go
package app

import (
	authHandler "flagpost-service/internal/handlers/auth"
	billingHandler "flagpost-service/internal/handlers/billing"
	catalogHandler "flagpost-service/internal/handlers/catalog"
	customerHandler "flagpost-service/internal/handlers/customer"
	holidayHandler "flagpost-service/internal/handlers/holiday"
	inventoryHandler "flagpost-service/internal/handlers/inventory"
	notifyHandler "flagpost-service/internal/handlers/notification"
	placementHandler "flagpost-service/internal/handlers/placement"
	subscriptionHandler "flagpost-service/internal/handlers/subscription"
	wsHandler "flagpost-service/internal/handlers/websocket"
	"flagpost-service/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Handlers struct {
	AuthHandler         *authHandler.AuthHandler
	HolidayHandler      *holidayHandler.HolidayHandler
	CatalogHandler      *catalogHandler.CatalogHandler
	CustomerHandler     *customerHandler.CustomerHandler
	SubscriptionHandler *subscriptionHandler.SubscriptionHandler
	PlacementHandler    *placementHandler.PlacementHandler
	InventoryHandler    *inventoryHandler.InventoryHandler
	WebhookHandler      *billingHandler.WebhookHandler
	NotifHandler        *notifyHandler.NotificationHandler
	WSHandler           *wsHandler.WebSocketHandler
	AuthMiddleware      *middleware.AuthMiddleware
}

func SetupRouter(r *gin.Engine, logger *zap.Logger, h *Handlers) {
	api := r.Group("/api/v1")

	// ==================== Health Check ====================
	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "version": "1.0.0"})
	})

	// ==================== Metrics ====================
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// ==================== WebSocket ====================
	r.GET("/ws", h.WSHandler.HandleConnection)

	// ==================== Billing Webhook ====================
	// Authenticated by payload signature, never by staff token.
	api.POST("/billing/webhook", h.WebhookHandler.HandleWebhook)

	// ==================== Public Auth Routes ====================
	authPublic := api.Group("/auth")
	{
		authPublic.POST("/login", h.AuthHandler.Login)
	}

	// ==================== Storefront (public) ====================
	catalog := api.Group("/catalog")
	{
		catalog.GET("/products", h.CatalogHandler.ListProducts)
		catalog.GET("/products/:id", h.CatalogHandler.GetProduct)
		catalog.GET("/holidays", h.HolidayHandler.ListHolidays)
	}

	customers := api.Group("/customers")
	{
		customers.POST("", h.CustomerHandler.Register)
		customers.GET("/:id", h.CustomerHandler.GetCustomer)
		customers.PUT("/:id", h.CustomerHandler.UpdateCustomer)
	}

	subscriptions := api.Group("/subscriptions")
	{
		subscriptions.POST("/checkout", h.SubscriptionHandler.Checkout)
		subscriptions.GET("/:id", h.SubscriptionHandler.GetSubscription)
		subscriptions.POST("/:id/cancel", h.SubscriptionHandler.CancelSubscription)
	}

	// ==================== Staff Routes ====================
	staff := api.Group("/staff")
	staff.Use(h.AuthMiddleware.Auth())
	{
		staff.GET("/ws/stats", h.WSHandler.GetStats)

		staff.GET("/subscriptions", h.SubscriptionHandler.ListSubscriptions)
		staff.POST("/subscriptions/:id/renew", h.SubscriptionHandler.RenewSubscription)
		staff.POST("/subscriptions/:id/placements/generate", h.SubscriptionHandler.RegeneratePlacements)

		staff.GET("/placements", h.PlacementHandler.ListPlacements)
		staff.GET("/placements/:id", h.PlacementHandler.GetPlacement)
		staff.PUT("/placements/:id/placed", h.PlacementHandler.MarkPlaced)
		staff.PUT("/placements/:id/removed", h.PlacementHandler.MarkRemoved)
		staff.PUT("/placements/:id/address", h.PlacementHandler.OverrideAddress)

		staff.POST("/routes", h.PlacementHandler.CreateRoute)
		staff.GET("/routes", h.PlacementHandler.ListRoutes)
		staff.GET("/routes/:id", h.PlacementHandler.GetRoute)

		staff.GET("/notifications", h.NotifHandler.ListNotifications)
	}

	// ==================== Admin Routes ====================
	admin := api.Group("/admin")
	admin.Use(h.AuthMiddleware.Auth(), h.AuthMiddleware.RequireAdmin())
	{
		admin.POST("/holidays", h.HolidayHandler.CreateHoliday)
		admin.GET("/holidays", h.HolidayHandler.ListHolidays)
		admin.GET("/holidays/integrity", h.HolidayHandler.CheckIntegrity)
		admin.GET("/holidays/:id", h.HolidayHandler.GetHoliday)
		admin.PUT("/holidays/:id", h.HolidayHandler.UpdateHoliday)
		admin.DELETE("/holidays/:id", h.HolidayHandler.DeactivateHoliday)

		admin.POST("/products", h.CatalogHandler.CreateProduct)
		admin.PUT("/products/:id", h.CatalogHandler.UpdateProduct)
		admin.PUT("/products/:id/billing", h.CatalogHandler.LinkBilling)

		admin.POST("/products/:id/stock", h.InventoryHandler.AdjustStock)
		admin.GET("/products/:id/stock/history", h.InventoryHandler.StockHistory)
	}
}
