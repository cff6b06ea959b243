package handlers

import (
	"github.com/farmdirect/marketplace_backend/models"
	"github.com/farmdirect/marketplace_backend/workflow"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// NewRouter wires the REST surface. The database handle and payment
// provider are passed in explicitly; handlers hold no globals.
func NewRouter(db *gorm.DB, provider workflow.PaymentProvider) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(CorrelationMiddleware())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization", "X-Correlation-Id")
	r.Use(cors.New(corsConfig))

	r.GET("/healthz", func(c *gin.Context) { c.JSON(200, gin.H{"status": "ok"}) })

	api := r.Group("/api/v1")

	// public
	api.POST("/auth/signup", RateLimitMiddleware(10), signupHandler(db))
	api.POST("/auth/login", RateLimitMiddleware(30), loginHandler(db))
	api.GET("/products", listProductsHandler(db))
	api.GET("/products/:id", getProductHandler(db))
	api.GET("/products/:id/reviews", productReviewsHandler(db))
	api.GET("/farms/:id", getFarmHandler(db))
	api.GET("/farms/:id/delivery-options", farmDeliveryOptionsHandler(db))
	api.GET("/farms/:id/reviews", farmReviewsHandler(db))

	// any authenticated user
	auth := api.Group("")
	auth.Use(AuthMiddleware())
	auth.GET("/me", meHandler(db))
	auth.GET("/cart", getCartHandler(db))
	auth.POST("/cart/items", addCartItemHandler(db))
	auth.DELETE("/cart/items/:productId", removeCartItemHandler(db))
	auth.DELETE("/cart", clearCartHandler(db))
	auth.POST("/orders", placeOrderHandler(db))
	auth.GET("/orders", listOrdersHandler(db))
	auth.GET("/orders/:id", getOrderHandler(db))
	auth.GET("/orders/:id/fulfillments", listOrderFulfillmentsHandler(db))
	auth.POST("/orders/:id/cancel", cancelOrderHandler(db))
	auth.POST("/payments", recordPaymentHandler(db, provider))
	auth.POST("/reviews", createReviewHandler(db))
	auth.GET("/favorites", listFavoritesHandler(db))
	auth.PUT("/favorites/farms/:id", addFavoriteFarmHandler(db))
	auth.DELETE("/favorites/farms/:id", removeFavoriteFarmHandler(db))
	auth.PUT("/favorites/products/:id", addFavoriteProductHandler(db))
	auth.DELETE("/favorites/products/:id", removeFavoriteProductHandler(db))
	auth.POST("/messages", sendMessageHandler(db))
	auth.GET("/messages/:userId", conversationHandler(db))
	auth.GET("/notifications", listNotificationsHandler(db))
	auth.POST("/notifications/read-all", markAllNotificationsReadHandler(db))
	auth.POST("/notifications/:id/read", markNotificationReadHandler(db))
	auth.POST("/auto-reorders", createAutoReorderHandler(db))
	auth.GET("/auto-reorders", listAutoReordersHandler(db))
	auth.POST("/auto-reorders/:id/pause", autoReorderStatusHandler(db, pauseAutoReorder))
	auth.POST("/auto-reorders/:id/resume", autoReorderStatusHandler(db, resumeAutoReorder))
	auth.POST("/auto-reorders/:id/cancel", autoReorderStatusHandler(db, cancelAutoReorder))

	// farmers and admins
	farmer := auth.Group("")
	farmer.Use(RequireRole(models.UserRoleFarmer, models.UserRoleAdmin))
	farmer.POST("/farms", createFarmHandler(db))
	farmer.GET("/farms/:id/orders", listFarmOrdersHandler(db))
	farmer.POST("/products", createProductHandler(db))
	farmer.PATCH("/products/:id", updateProductHandler(db))
	farmer.GET("/products/:id/stock", currentStockHandler(db))
	farmer.GET("/products/:id/adjustments", listAdjustmentsHandler(db))
	farmer.POST("/inventory/adjustments", adjustInventoryHandler(db))
	farmer.POST("/fulfillments/:id/advance", advanceFulfillmentHandler(db))
	farmer.PATCH("/fulfillments/:id/tracking", updateFulfillmentTrackingHandler(db))
	farmer.GET("/farms/:id/reports/inventory", inventoryReportHandler(db))

	// admin only
	admin := auth.Group("")
	admin.Use(RequireRole(models.UserRoleAdmin))
	admin.POST("/orders/:id/confirm", confirmOrderHandler(db))
	admin.POST("/orders/:id/refund", refundOrderHandler(db, provider))
	admin.POST("/admin/auto-reorders/sweep", runSweepHandler(db))
	admin.GET("/admin/reports/orders", orderReportHandler(db))

	return r
}
